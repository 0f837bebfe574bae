package dhcp6

import (
	"errors"
	"net"

	"github.com/veesix-networks/dhcprelay/pkg/counters"
	"github.com/veesix-networks/dhcprelay/pkg/dhcp"
)

// PeerLookup resolves the current L2 binding of a peer address.
type PeerLookup func(ip net.IP) (net.HardwareAddr, bool)

type Reply struct {
	Frame  *dhcp.Frame
	Relay  *dhcp.Relay6
	Direct bool
}

// ReplyResult is the client-facing frame plus what was recovered from the
// envelope for bookkeeping.
type ReplyResult struct {
	Output
	InterfaceID dhcp.InterfaceID
	Inner       dhcp.Message6
}

// BuildRelayReply unwraps one envelope level and addresses the inner
// message to the peer recorded in it.
func BuildRelayReply(rep Reply, ifaces Interfaces, lookup PeerLookup) (ReplyResult, string) {
	raw := rep.Relay.InterfaceID()
	if raw == nil {
		return ReplyResult{}, counters.OptionMissingFail
	}
	id, err := dhcp.DecodeInterfaceID(raw)
	if err != nil {
		return ReplyResult{}, counters.OptionMissingFail
	}

	clientIface := ifaces.InterfaceOnPort(id.ConnectPoint, id.VLAN)
	if clientIface == nil {
		return ReplyResult{}, counters.NoMatchingIntf
	}

	var dstMAC net.HardwareAddr
	if lookup != nil {
		if mac, ok := lookup(rep.Relay.PeerAddr); ok {
			dstMAC = mac
		}
	}
	if dstMAC == nil {
		dstMAC = id.MAC
	}
	if len(dstMAC) == 0 {
		return ReplyResult{}, counters.NoClientIntfMAC
	}

	inner, err := rep.Relay.Inner()
	if err != nil {
		if errors.Is(err, dhcp.ErrNoRelayMessage) {
			return ReplyResult{}, counters.OptionMissingFail
		}
		return ReplyResult{}, counters.InvalidPacket
	}

	dstPort := ServerPort
	if rep.Direct {
		dstPort = ClientPort
	}

	return ReplyResult{
		Output: Output{
			Egress: id.ConnectPoint,
			Frame: &dhcp.Frame{
				SrcMAC:  clientIface.MAC,
				DstMAC:  dstMAC,
				VLAN:    id.VLAN,
				SrcIP:   append(net.IP(nil), rep.Relay.LinkAddr...),
				DstIP:   append(net.IP(nil), rep.Relay.PeerAddr...),
				TTL:     dhcp.DefaultTTL,
				SrcPort: ServerPort,
				DstPort: dstPort,
				Payload: inner.Marshal(),
			},
		},
		InterfaceID: id,
		Inner:       inner,
	}, ""
}
