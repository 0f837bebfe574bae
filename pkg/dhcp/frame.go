package dhcp

import (
	"errors"
	"fmt"
	"net"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/veesix-networks/dhcprelay/pkg/models"
)

const DefaultTTL = 64

var ErrNotUDP = errors.New("not a UDP datagram")

// Frame is a single-tagged Ethernet UDP datagram flattened into the fields
// the relay rewrites.
type Frame struct {
	SrcMAC  net.HardwareAddr
	DstMAC  net.HardwareAddr
	VLAN    models.VLAN
	SrcIP   net.IP
	DstIP   net.IP
	TTL     uint8
	SrcPort uint16
	DstPort uint16
	Payload []byte
}

func (f *Frame) IsIPv6() bool {
	return f.SrcIP.To4() == nil
}

func (f *Frame) Clone() *Frame {
	return &Frame{
		SrcMAC:  append(net.HardwareAddr(nil), f.SrcMAC...),
		DstMAC:  append(net.HardwareAddr(nil), f.DstMAC...),
		VLAN:    f.VLAN,
		SrcIP:   append(net.IP(nil), f.SrcIP...),
		DstIP:   append(net.IP(nil), f.DstIP...),
		TTL:     f.TTL,
		SrcPort: f.SrcPort,
		DstPort: f.DstPort,
		Payload: append([]byte(nil), f.Payload...),
	}
}

func DecodeFrame(data []byte) (*Frame, error) {
	pkt := gopacket.NewPacket(data, layers.LayerTypeEthernet, gopacket.Default)

	ethLayer := pkt.Layer(layers.LayerTypeEthernet)
	if ethLayer == nil {
		return nil, fmt.Errorf("no ethernet layer")
	}
	eth := ethLayer.(*layers.Ethernet)

	f := &Frame{
		SrcMAC: append(net.HardwareAddr(nil), eth.SrcMAC...),
		DstMAC: append(net.HardwareAddr(nil), eth.DstMAC...),
	}

	if dot1q, ok := pkt.Layer(layers.LayerTypeDot1Q).(*layers.Dot1Q); ok {
		f.VLAN = models.VLAN(dot1q.VLANIdentifier)
	}

	switch {
	case pkt.Layer(layers.LayerTypeIPv4) != nil:
		ip := pkt.Layer(layers.LayerTypeIPv4).(*layers.IPv4)
		f.SrcIP = append(net.IP(nil), ip.SrcIP.To4()...)
		f.DstIP = append(net.IP(nil), ip.DstIP.To4()...)
		f.TTL = ip.TTL
	case pkt.Layer(layers.LayerTypeIPv6) != nil:
		ip := pkt.Layer(layers.LayerTypeIPv6).(*layers.IPv6)
		f.SrcIP = append(net.IP(nil), ip.SrcIP...)
		f.DstIP = append(net.IP(nil), ip.DstIP...)
		f.TTL = ip.HopLimit
	default:
		return nil, ErrNotUDP
	}

	udp, ok := pkt.Layer(layers.LayerTypeUDP).(*layers.UDP)
	if !ok {
		return nil, ErrNotUDP
	}
	f.SrcPort = uint16(udp.SrcPort)
	f.DstPort = uint16(udp.DstPort)
	f.Payload = append([]byte(nil), udp.Payload...)

	return f, nil
}

// Encode serialises the frame, computing lengths and checksums.
func (f *Frame) Encode() ([]byte, error) {
	ipType := layers.EthernetTypeIPv4
	if f.IsIPv6() {
		ipType = layers.EthernetTypeIPv6
	}

	eth := &layers.Ethernet{
		SrcMAC:       f.SrcMAC,
		DstMAC:       f.DstMAC,
		EthernetType: ipType,
	}
	stack := []gopacket.SerializableLayer{eth}

	if f.VLAN.Tagged() {
		eth.EthernetType = layers.EthernetTypeDot1Q
		stack = append(stack, &layers.Dot1Q{
			VLANIdentifier: uint16(f.VLAN),
			Type:           ipType,
		})
	}

	ttl := f.TTL
	if ttl == 0 {
		ttl = DefaultTTL
	}

	udp := &layers.UDP{
		SrcPort: layers.UDPPort(f.SrcPort),
		DstPort: layers.UDPPort(f.DstPort),
	}

	if f.IsIPv6() {
		ip := &layers.IPv6{
			Version:    6,
			HopLimit:   ttl,
			NextHeader: layers.IPProtocolUDP,
			SrcIP:      f.SrcIP,
			DstIP:      f.DstIP,
		}
		if err := udp.SetNetworkLayerForChecksum(ip); err != nil {
			return nil, err
		}
		stack = append(stack, ip)
	} else {
		ip := &layers.IPv4{
			Version:  4,
			IHL:      5,
			TTL:      ttl,
			Protocol: layers.IPProtocolUDP,
			SrcIP:    f.SrcIP.To4(),
			DstIP:    f.DstIP.To4(),
		}
		if err := udp.SetNetworkLayerForChecksum(ip); err != nil {
			return nil, err
		}
		stack = append(stack, ip)
	}

	stack = append(stack, udp, gopacket.Payload(f.Payload))

	buf := gopacket.NewSerializeBuffer()
	opts := gopacket.SerializeOptions{FixLengths: true, ComputeChecksums: true}
	if err := gopacket.SerializeLayers(buf, opts, stack...); err != nil {
		return nil, fmt.Errorf("serialize frame: %w", err)
	}
	return buf.Bytes(), nil
}
