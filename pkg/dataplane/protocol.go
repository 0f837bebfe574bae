package dataplane

import (
	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
)

type Protocol uint8

const (
	ProtocolUnknown Protocol = iota
	ProtocolDHCPv4
	ProtocolDHCPv6
	ProtocolARP
	ProtocolNDP
)

func (p Protocol) String() string {
	switch p {
	case ProtocolDHCPv4:
		return "dhcpv4"
	case ProtocolDHCPv6:
		return "dhcpv6"
	case ProtocolARP:
		return "arp"
	case ProtocolNDP:
		return "ndp"
	default:
		return "unknown"
	}
}

// Classify looks only as deep as needed to route a frame.
func Classify(data []byte) Protocol {
	pkt := gopacket.NewPacket(data, layers.LayerTypeEthernet, gopacket.Lazy|gopacket.NoCopy)

	if pkt.Layer(layers.LayerTypeARP) != nil {
		return ProtocolARP
	}
	if icmp, ok := pkt.Layer(layers.LayerTypeICMPv6).(*layers.ICMPv6); ok {
		switch icmp.TypeCode.Type() {
		case layers.ICMPv6TypeNeighborSolicitation, layers.ICMPv6TypeNeighborAdvertisement:
			return ProtocolNDP
		}
		return ProtocolUnknown
	}
	udp, ok := pkt.Layer(layers.LayerTypeUDP).(*layers.UDP)
	if !ok {
		return ProtocolUnknown
	}
	switch {
	case isPort(udp, 67, 68):
		if pkt.Layer(layers.LayerTypeIPv4) != nil {
			return ProtocolDHCPv4
		}
	case isPort(udp, 546, 547):
		if pkt.Layer(layers.LayerTypeIPv6) != nil {
			return ProtocolDHCPv6
		}
	}
	return ProtocolUnknown
}

func isPort(udp *layers.UDP, a, b layers.UDPPort) bool {
	return udp.SrcPort == a || udp.SrcPort == b || udp.DstPort == a || udp.DstPort == b
}
