package dhcp

import (
	"encoding/binary"
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/insomniacslk/dhcp/dhcpv6"
)

const (
	OptClientID    uint16 = uint16(dhcpv6.OptionClientID)
	OptIANA        uint16 = uint16(dhcpv6.OptionIANA)
	OptIATA        uint16 = uint16(dhcpv6.OptionIATA)
	OptIAAddr      uint16 = uint16(dhcpv6.OptionIAAddr)
	OptRelayMsg    uint16 = uint16(dhcpv6.OptionRelayMsg)
	OptInterfaceID uint16 = uint16(dhcpv6.OptionInterfaceID)
	OptIAPD        uint16 = uint16(dhcpv6.OptionIAPD)
	OptIAPrefix    uint16 = uint16(dhcpv6.OptionIAPrefix)

	relayHeaderLen = 34
	leafHeaderLen  = 4
	maxRelayDepth  = 32
)

var ErrNoRelayMessage = errors.New("relay message option missing")

// Option6 is a raw DHCPv6 option.
type Option6 struct {
	Code uint16
	Data []byte
}

type Options6 []Option6

func (o Options6) Get(code uint16) []byte {
	for _, opt := range o {
		if opt.Code == code {
			return opt.Data
		}
	}
	return nil
}

func (o Options6) Has(code uint16) bool {
	for _, opt := range o {
		if opt.Code == code {
			return true
		}
	}
	return false
}

func (o Options6) marshal(out []byte) []byte {
	for _, opt := range o {
		out = binary.BigEndian.AppendUint16(out, opt.Code)
		out = binary.BigEndian.AppendUint16(out, uint16(len(opt.Data)))
		out = append(out, opt.Data...)
	}
	return out
}

func parseOptions6(data []byte) (Options6, error) {
	var opts Options6
	for i := 0; i < len(data); {
		if i+4 > len(data) {
			return nil, fmt.Errorf("%w: option header at %d", ErrTruncated, i)
		}
		code := binary.BigEndian.Uint16(data[i:])
		length := int(binary.BigEndian.Uint16(data[i+2:]))
		if i+4+length > len(data) {
			return nil, fmt.Errorf("%w: option %d wants %d bytes", ErrTruncated, code, length)
		}
		opts = append(opts, Option6{Code: code, Data: append([]byte(nil), data[i+4:i+4+length]...)})
		i += 4 + length
	}
	return opts, nil
}

// Message6 is either a relay envelope or a leaf client/server message.
type Message6 interface {
	Type() MessageType6
	Marshal() []byte
	message6()
}

// Relay6 is a RELAY-FORW or RELAY-REPL envelope.
type Relay6 struct {
	MsgType  MessageType6
	HopCount uint8
	LinkAddr net.IP
	PeerAddr net.IP
	Options  Options6
}

// Leaf6 is a non-relay DHCPv6 message.
type Leaf6 struct {
	MsgType       MessageType6
	TransactionID [3]byte
	Options       Options6
}

func (r *Relay6) Type() MessageType6 { return r.MsgType }
func (l *Leaf6) Type() MessageType6 { return l.MsgType }

func (*Relay6) message6() {}
func (*Leaf6) message6() {}

func (r *Relay6) Marshal() []byte {
	out := make([]byte, 0, relayHeaderLen+64)
	out = append(out, byte(r.MsgType), r.HopCount)
	out = append(out, to16(r.LinkAddr)...)
	out = append(out, to16(r.PeerAddr)...)
	return r.Options.marshal(out)
}

func (l *Leaf6) Marshal() []byte {
	out := make([]byte, 0, leafHeaderLen+64)
	out = append(out, byte(l.MsgType))
	out = append(out, l.TransactionID[:]...)
	return l.Options.marshal(out)
}

// Inner decodes the relay message option one level down.
func (r *Relay6) Inner() (Message6, error) {
	data := r.Options.Get(OptRelayMsg)
	if data == nil {
		return nil, ErrNoRelayMessage
	}
	return ParseMessage6(data)
}

func (r *Relay6) InterfaceID() []byte {
	return r.Options.Get(OptInterfaceID)
}

func ParseMessage6(data []byte) (Message6, error) {
	if len(data) < leafHeaderLen {
		return nil, fmt.Errorf("%w: %d byte message", ErrTruncated, len(data))
	}

	t := messageType6Of(data[0])
	if t == Unsupported6 {
		return nil, fmt.Errorf("unsupported dhcpv6 message type %d", data[0])
	}

	if t.IsRelay() {
		if len(data) < relayHeaderLen {
			return nil, fmt.Errorf("%w: %d byte relay message", ErrTruncated, len(data))
		}
		opts, err := parseOptions6(data[relayHeaderLen:])
		if err != nil {
			return nil, err
		}
		return &Relay6{
			MsgType:  t,
			HopCount: data[1],
			LinkAddr: append(net.IP(nil), data[2:18]...),
			PeerAddr: append(net.IP(nil), data[18:34]...),
			Options:  opts,
		}, nil
	}

	opts, err := parseOptions6(data[leafHeaderLen:])
	if err != nil {
		return nil, err
	}
	leaf := &Leaf6{MsgType: t, Options: opts}
	copy(leaf.TransactionID[:], data[1:4])
	return leaf, nil
}

// UnwrapToLeaf descends through nested relay envelopes.
func UnwrapToLeaf(m Message6) (*Leaf6, error) {
	for depth := 0; depth <= maxRelayDepth; depth++ {
		switch v := m.(type) {
		case *Leaf6:
			return v, nil
		case *Relay6:
			inner, err := v.Inner()
			if err != nil {
				return nil, err
			}
			m = inner
		default:
			return nil, fmt.Errorf("unknown message variant %T", m)
		}
	}
	return nil, fmt.Errorf("relay nesting deeper than %d", maxRelayDepth)
}

// NewRelayForward wraps inner in a RELAY-FORW envelope carrying the
// relay message and interface id options.
func NewRelayForward(inner Message6, hopCount uint8, linkAddr, peerAddr net.IP, interfaceID []byte) *Relay6 {
	return &Relay6{
		MsgType:  RelayForw,
		HopCount: hopCount,
		LinkAddr: linkAddr,
		PeerAddr: peerAddr,
		Options: Options6{
			{Code: OptRelayMsg, Data: inner.Marshal()},
			{Code: OptInterfaceID, Data: interfaceID},
		},
	}
}

// IAAddress is an IA_NA or IA_TA address binding.
type IAAddress struct {
	IP        net.IP
	Preferred time.Duration
	Valid     time.Duration
}

// IAPrefix is a delegated prefix from an IA_PD.
type IAPrefix struct {
	Prefix    *net.IPNet
	Preferred time.Duration
	Valid     time.Duration
}

func (l *Leaf6) ClientID() []byte {
	return l.Options.Get(OptClientID)
}

// Addresses collects IAADDR options from every IA_NA and IA_TA.
func (l *Leaf6) Addresses() []IAAddress {
	var out []IAAddress
	for _, opt := range l.Options {
		var inner []byte
		switch opt.Code {
		case OptIANA:
			if len(opt.Data) < 12 {
				continue
			}
			inner = opt.Data[12:]
		case OptIATA:
			if len(opt.Data) < 4 {
				continue
			}
			inner = opt.Data[4:]
		default:
			continue
		}
		sub, err := parseOptions6(inner)
		if err != nil {
			continue
		}
		for _, s := range sub {
			if s.Code != OptIAAddr || len(s.Data) < 24 {
				continue
			}
			out = append(out, IAAddress{
				IP:        append(net.IP(nil), s.Data[:16]...),
				Preferred: seconds(s.Data[16:20]),
				Valid:     seconds(s.Data[20:24]),
			})
		}
	}
	return out
}

// Prefixes collects IAPREFIX options from every IA_PD.
func (l *Leaf6) Prefixes() []IAPrefix {
	var out []IAPrefix
	for _, opt := range l.Options {
		if opt.Code != OptIAPD || len(opt.Data) < 12 {
			continue
		}
		sub, err := parseOptions6(opt.Data[12:])
		if err != nil {
			continue
		}
		for _, s := range sub {
			if s.Code != OptIAPrefix || len(s.Data) < 25 {
				continue
			}
			bits := int(s.Data[8])
			if bits > 128 {
				continue
			}
			ip := append(net.IP(nil), s.Data[9:25]...)
			mask := net.CIDRMask(bits, 128)
			out = append(out, IAPrefix{
				Prefix:    &net.IPNet{IP: ip.Mask(mask), Mask: mask},
				Preferred: seconds(s.Data[0:4]),
				Valid:     seconds(s.Data[4:8]),
			})
		}
	}
	return out
}

// ClientMAC extracts the link-layer address from a DUID-LL or DUID-LLT
// client identifier.
func ClientMAC(clientID []byte) (net.HardwareAddr, error) {
	duid, err := dhcpv6.DUIDFromBytes(clientID)
	if err != nil {
		return nil, fmt.Errorf("parse duid: %w", err)
	}
	switch d := duid.(type) {
	case *dhcpv6.DUIDLL:
		return d.LinkLayerAddr, nil
	case *dhcpv6.DUIDLLT:
		return d.LinkLayerAddr, nil
	default:
		return nil, fmt.Errorf("duid type %T carries no link-layer address", duid)
	}
}

func seconds(b []byte) time.Duration {
	return time.Duration(binary.BigEndian.Uint32(b)) * time.Second
}

func to16(ip net.IP) []byte {
	out := make([]byte, 16)
	if ip16 := ip.To16(); ip16 != nil {
		copy(out, ip16)
	}
	return out
}
