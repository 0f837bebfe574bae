// Package arp encodes and decodes the ARP and IPv6 neighbor discovery
// frames used to resolve next hops and to answer for relay addresses.
package arp

import (
	"errors"
	"fmt"
	"net"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/veesix-networks/dhcprelay/pkg/models"
)

type Operation uint8

const (
	OpRequest Operation = iota + 1
	OpReply
)

func (o Operation) String() string {
	switch o {
	case OpRequest:
		return "request"
	case OpReply:
		return "reply"
	default:
		return "unknown"
	}
}

// naFlags sets the solicited and override bits.
const naFlags = 0x60

var (
	ErrNotNeighbor = errors.New("not an ARP or neighbor discovery frame")

	broadcastMAC = net.HardwareAddr{0xff, 0xff, 0xff, 0xff, 0xff, 0xff}
	allNodes     = net.ParseIP("ff02::1")
)

// Packet is a decoded neighbor message. For IPv6 a solicitation maps to
// OpRequest and an advertisement to OpReply, with SenderIP the address
// being advertised.
type Packet struct {
	Operation Operation
	SrcMAC    net.HardwareAddr
	VLAN      models.VLAN
	SenderMAC net.HardwareAddr
	SenderIP  net.IP
	TargetMAC net.HardwareAddr
	TargetIP  net.IP
}

func (p *Packet) IsIPv6() bool {
	return p.TargetIP.To4() == nil
}

func Decode(frame []byte) (*Packet, error) {
	pkt := gopacket.NewPacket(frame, layers.LayerTypeEthernet, gopacket.Default)
	eth, ok := pkt.Layer(layers.LayerTypeEthernet).(*layers.Ethernet)
	if !ok {
		return nil, ErrNotNeighbor
	}

	p := &Packet{SrcMAC: append(net.HardwareAddr(nil), eth.SrcMAC...)}
	if dot1q, ok := pkt.Layer(layers.LayerTypeDot1Q).(*layers.Dot1Q); ok {
		p.VLAN = models.VLAN(dot1q.VLANIdentifier)
	}

	if a, ok := pkt.Layer(layers.LayerTypeARP).(*layers.ARP); ok {
		if a.HwAddressSize != 6 || a.ProtAddressSize != 4 || a.Protocol != layers.EthernetTypeIPv4 {
			return nil, fmt.Errorf("unsupported ARP format")
		}
		switch a.Operation {
		case layers.ARPRequest:
			p.Operation = OpRequest
		case layers.ARPReply:
			p.Operation = OpReply
		default:
			return nil, fmt.Errorf("unsupported ARP operation %d", a.Operation)
		}
		p.SenderMAC = append(net.HardwareAddr(nil), a.SourceHwAddress...)
		p.SenderIP = net.IP(append([]byte(nil), a.SourceProtAddress...)).To4()
		p.TargetMAC = append(net.HardwareAddr(nil), a.DstHwAddress...)
		p.TargetIP = net.IP(append([]byte(nil), a.DstProtAddress...)).To4()
		return p, nil
	}

	ip6, ok := pkt.Layer(layers.LayerTypeIPv6).(*layers.IPv6)
	if !ok {
		return nil, ErrNotNeighbor
	}

	if ns, ok := pkt.Layer(layers.LayerTypeICMPv6NeighborSolicitation).(*layers.ICMPv6NeighborSolicitation); ok {
		p.Operation = OpRequest
		p.SenderMAC = linkOption(ns.Options, layers.ICMPv6OptSourceAddress, eth.SrcMAC)
		if !ip6.SrcIP.IsUnspecified() {
			p.SenderIP = append(net.IP(nil), ip6.SrcIP...)
		}
		p.TargetIP = append(net.IP(nil), ns.TargetAddress...)
		return p, nil
	}
	if na, ok := pkt.Layer(layers.LayerTypeICMPv6NeighborAdvertisement).(*layers.ICMPv6NeighborAdvertisement); ok {
		p.Operation = OpReply
		p.SenderMAC = linkOption(na.Options, layers.ICMPv6OptTargetAddress, eth.SrcMAC)
		p.SenderIP = append(net.IP(nil), na.TargetAddress...)
		p.TargetMAC = append(net.HardwareAddr(nil), eth.DstMAC...)
		p.TargetIP = append(net.IP(nil), ip6.DstIP...)
		return p, nil
	}
	return nil, ErrNotNeighbor
}

func linkOption(opts layers.ICMPv6Options, t layers.ICMPv6Opt, fallback net.HardwareAddr) net.HardwareAddr {
	for _, o := range opts {
		if o.Type == t && len(o.Data) >= 6 {
			return append(net.HardwareAddr(nil), o.Data[:6]...)
		}
	}
	return append(net.HardwareAddr(nil), fallback...)
}

// Request builds a broadcast ARP request or a solicited-node neighbor
// solicitation for target.
func Request(srcMAC net.HardwareAddr, srcIP, target net.IP, vlan models.VLAN) ([]byte, error) {
	if v4 := target.To4(); v4 != nil {
		return serialize(vlan, &layers.Ethernet{
			SrcMAC:       srcMAC,
			DstMAC:       broadcastMAC,
			EthernetType: layers.EthernetTypeARP,
		}, &layers.ARP{
			AddrType:          layers.LinkTypeEthernet,
			Protocol:          layers.EthernetTypeIPv4,
			HwAddressSize:     6,
			ProtAddressSize:   4,
			Operation:         layers.ARPRequest,
			SourceHwAddress:   srcMAC,
			SourceProtAddress: srcIP.To4(),
			DstHwAddress:      make([]byte, 6),
			DstProtAddress:    v4,
		})
	}

	group := SolicitedNode(target)
	return serialize6(vlan, srcMAC, multicastMAC(group), srcIP, group,
		layers.ICMPv6TypeNeighborSolicitation,
		&layers.ICMPv6NeighborSolicitation{
			TargetAddress: target.To16(),
			Options: layers.ICMPv6Options{{
				Type: layers.ICMPv6OptSourceAddress,
				Data: srcMAC,
			}},
		})
}

// Reply answers req on behalf of req.TargetIP with mac.
func Reply(req *Packet, mac net.HardwareAddr) ([]byte, error) {
	if !req.IsIPv6() {
		return serialize(req.VLAN, &layers.Ethernet{
			SrcMAC:       mac,
			DstMAC:       req.SenderMAC,
			EthernetType: layers.EthernetTypeARP,
		}, &layers.ARP{
			AddrType:          layers.LinkTypeEthernet,
			Protocol:          layers.EthernetTypeIPv4,
			HwAddressSize:     6,
			ProtAddressSize:   4,
			Operation:         layers.ARPReply,
			SourceHwAddress:   mac,
			SourceProtAddress: req.TargetIP.To4(),
			DstHwAddress:      req.SenderMAC,
			DstProtAddress:    req.SenderIP.To4(),
		})
	}

	dstIP, dstMAC := req.SenderIP, req.SenderMAC
	if dstIP == nil {
		dstIP, dstMAC = allNodes, multicastMAC(allNodes)
	}
	return serialize6(req.VLAN, mac, dstMAC, req.TargetIP, dstIP,
		layers.ICMPv6TypeNeighborAdvertisement,
		&layers.ICMPv6NeighborAdvertisement{
			Flags:         naFlags,
			TargetAddress: req.TargetIP.To16(),
			Options: layers.ICMPv6Options{{
				Type: layers.ICMPv6OptTargetAddress,
				Data: mac,
			}},
		})
}

// SolicitedNode returns the ff02::1:ffXX:XXXX group for ip.
func SolicitedNode(ip net.IP) net.IP {
	ip16 := ip.To16()
	return net.IP{0xff, 0x02, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0x01, 0xff, ip16[13], ip16[14], ip16[15]}
}

func multicastMAC(group net.IP) net.HardwareAddr {
	g := group.To16()
	return net.HardwareAddr{0x33, 0x33, g[12], g[13], g[14], g[15]}
}

func serialize6(vlan models.VLAN, srcMAC, dstMAC net.HardwareAddr, srcIP, dstIP net.IP, t uint8, body gopacket.SerializableLayer) ([]byte, error) {
	ip := &layers.IPv6{
		Version:    6,
		HopLimit:   255,
		NextHeader: layers.IPProtocolICMPv6,
		SrcIP:      srcIP.To16(),
		DstIP:      dstIP.To16(),
	}
	icmp := &layers.ICMPv6{TypeCode: layers.CreateICMPv6TypeCode(t, 0)}
	if err := icmp.SetNetworkLayerForChecksum(ip); err != nil {
		return nil, err
	}
	return serialize(vlan, &layers.Ethernet{
		SrcMAC:       srcMAC,
		DstMAC:       dstMAC,
		EthernetType: layers.EthernetTypeIPv6,
	}, ip, icmp, body)
}

func serialize(vlan models.VLAN, eth *layers.Ethernet, rest ...gopacket.SerializableLayer) ([]byte, error) {
	stack := []gopacket.SerializableLayer{eth}
	if vlan.Tagged() {
		stack = append(stack, &layers.Dot1Q{VLANIdentifier: uint16(vlan), Type: eth.EthernetType})
		eth.EthernetType = layers.EthernetTypeDot1Q
	}
	stack = append(stack, rest...)

	buf := gopacket.NewSerializeBuffer()
	opts := gopacket.SerializeOptions{FixLengths: true, ComputeChecksums: true}
	if err := gopacket.SerializeLayers(buf, opts, stack...); err != nil {
		return nil, fmt.Errorf("serialize neighbor frame: %w", err)
	}
	return buf.Bytes(), nil
}
