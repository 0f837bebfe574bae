package dhcp4

import (
	"net"

	"github.com/google/gopacket/layers"
	"github.com/veesix-networks/dhcprelay/pkg/counters"
	"github.com/veesix-networks/dhcprelay/pkg/dhcp"
	"github.com/veesix-networks/dhcprelay/pkg/models"
)

// Locator returns the latest known location of a client and the VLAN it
// was seen on.
type Locator func(mac net.HardwareAddr, vlan models.VLAN) (models.ConnectPoint, models.VLAN, bool)

// CircuitLocation decodes the egress from an option 82 this relay added,
// which is the case when giaddr is one of our addresses.
func CircuitLocation(msg *layers.DHCPv4, ifaces Interfaces) (models.ConnectPoint, models.VLAN, bool) {
	info, present, err := dhcp.AgentInfo4(msg.Options)
	if !present || err != nil || !ifaces.IsLocalIP(msg.RelayAgentIP) {
		return models.ConnectPoint{}, 0, false
	}
	cp, vlan, err := dhcp.DecodeCircuitID(info.CircuitID())
	if err != nil {
		return models.ConnectPoint{}, 0, false
	}
	return cp, vlan, true
}

// ResolveEgress finds where a server reply must go. A locally added
// circuit-id wins; otherwise the client's stored location is used.
func ResolveEgress(msg *layers.DHCPv4, vlan models.VLAN, ifaces Interfaces, locate Locator) (models.ConnectPoint, models.VLAN, bool) {
	if cp, v, ok := CircuitLocation(msg, ifaces); ok {
		return cp, v, true
	}
	if locate == nil {
		return models.ConnectPoint{}, 0, false
	}
	return locate(msg.ClientHWAddr, vlan)
}

type Reply struct {
	Frame   *dhcp.Frame
	Message *layers.DHCPv4
	Direct  bool
	// NextHop is the downstream relay MAC for indirect clients.
	NextHop net.HardwareAddr
}

// BuildReply produces the client-facing frame for a server reply.
func BuildReply(rep Reply, ifaces Interfaces, locate Locator) (Output, string) {
	cp, vlan, ok := ResolveEgress(rep.Message, rep.Frame.VLAN, ifaces, locate)
	if !ok {
		return Output{}, counters.NoEgressLocation
	}

	clientIface := ifaces.InterfaceOnPort(cp, vlan)
	if clientIface == nil {
		return Output{}, counters.NoMatchingIntf
	}
	srcIP := clientIface.IPv4Addr()
	if srcIP == nil {
		return Output{}, counters.NoRelayAgentIP
	}

	msg, err := dhcp.DecodeDHCPv4(rep.Frame.Payload)
	if err != nil {
		return Output{}, counters.InvalidPacket
	}
	broadcast := msg.Flags&dhcp.FlagBroadcast != 0

	dstMAC := append(net.HardwareAddr(nil), msg.ClientHWAddr...)
	if !rep.Direct {
		if len(rep.NextHop) == 0 {
			return Output{}, counters.NoClientIntfMAC
		}
		dstMAC = rep.NextHop
	}
	if broadcast {
		dstMAC = broadcastMAC
	}

	dstIP := msg.YourClientIP
	if broadcast || dstIP == nil || dstIP.IsUnspecified() {
		dstIP = net.IPv4bcast
	}

	dstPort := uint16(ServerPort)
	if rep.Direct {
		dstPort = ClientPort
		msg.Options = dhcp.WithoutOption4(msg.Options, dhcp.OptionAgentInfo)
		msg.RelayAgentIP = net.IPv4zero
	}

	payload, err := dhcp.EncodeDHCPv4(msg)
	if err != nil {
		return Output{}, counters.InvalidPacket
	}

	return Output{
		Egress: cp,
		Frame: &dhcp.Frame{
			SrcMAC:  clientIface.MAC,
			DstMAC:  dstMAC,
			VLAN:    vlan,
			SrcIP:   srcIP,
			DstIP:   dstIP.To4(),
			TTL:     dhcp.DefaultTTL,
			SrcPort: ServerPort,
			DstPort: dstPort,
			Payload: payload,
		},
	}, ""
}
