// Package dhcp4 builds relayed DHCPv4 frames. Nothing here does I/O; the
// caller supplies interface and location lookups and emits the result.
package dhcp4

import (
	"net"

	"github.com/google/gopacket/layers"
	"github.com/veesix-networks/dhcprelay/pkg/counters"
	"github.com/veesix-networks/dhcprelay/pkg/dhcp"
	"github.com/veesix-networks/dhcprelay/pkg/models"
	"github.com/veesix-networks/dhcprelay/pkg/servers"
)

const (
	ServerPort = 67
	ClientPort = 68
)

var broadcastMAC = net.HardwareAddr{0xff, 0xff, 0xff, 0xff, 0xff, 0xff}

type Interfaces interface {
	InterfaceOnPort(cp models.ConnectPoint, vlan models.VLAN) *models.Interface
	InterfacesOnPort(cp models.ConnectPoint) []*models.Interface
	IsLocalIP(ip net.IP) bool
}

// Output is a frame to emit on Egress.
type Output struct {
	Egress models.ConnectPoint
	Frame  *dhcp.Frame
}

type Request struct {
	Ingress models.ConnectPoint
	Frame   *dhcp.Frame
	Message *layers.DHCPv4
	Direct  bool
}

// BuildRequest produces one frame per resolved server in targets. When
// nothing is produced the returned reason names the last failure.
func BuildRequest(req Request, ifaces Interfaces, targets []servers.ServerInfo) ([]Output, string) {
	if len(targets) == 0 {
		return nil, counters.NoServerInfo
	}

	clientIface := ifaces.InterfaceOnPort(req.Ingress, req.Frame.VLAN)
	if clientIface == nil {
		return nil, counters.NoMatchingIntf
	}
	if clientIface.IPv4Addr() == nil {
		return nil, counters.NoRelayAgentIP
	}

	var (
		out    []Output
		reason string
	)
	for _, s := range targets {
		if !s.Resolved() {
			reason = counters.UnresolvedServer
			continue
		}
		serverIface := ServerInterface(ifaces, s)
		if serverIface == nil {
			reason = counters.NoMatchingIntf
			continue
		}
		srcIP := serverIface.IPv4Addr()
		if srcIP == nil {
			reason = counters.NoRelayAgentIP
			continue
		}

		msg, err := dhcp.DecodeDHCPv4(req.Frame.Payload)
		if err != nil {
			return nil, counters.InvalidPacket
		}
		relayIP := s.RelayAgentIP
		if relayIP == nil {
			relayIP = clientIface.IPv4Addr()
		}
		if !dhcp.HasOption4(msg.Options, dhcp.OptionAgentInfo) {
			info := &dhcp.AgentInfo{SubOptions: []dhcp.SubOption{{
				Code: dhcp.SubOptCircuitID,
				Data: dhcp.EncodeCircuitID(req.Ingress, req.Frame.VLAN),
			}}}
			data, err := info.Marshal()
			if err != nil {
				return nil, counters.InvalidPacket
			}
			msg.Options = append(dhcp.WithoutOption4(msg.Options, layers.DHCPOptEnd),
				layers.NewDHCPOption(dhcp.OptionAgentInfo, data))
			msg.RelayAgentIP = relayIP.To4()
		} else if msg.RelayAgentIP == nil || msg.RelayAgentIP.IsUnspecified() {
			msg.RelayAgentIP = relayIP.To4()
		}
		msg.Flags = 0

		payload, err := dhcp.EncodeDHCPv4(msg)
		if err != nil {
			return nil, counters.InvalidPacket
		}

		out = append(out, Output{
			Egress: s.ConnectPoint,
			Frame: &dhcp.Frame{
				SrcMAC:  serverIface.MAC,
				DstMAC:  s.ResolvedMAC,
				VLAN:    s.ResolvedVLAN,
				SrcIP:   srcIP,
				DstIP:   s.ServerIP,
				TTL:     dhcp.DefaultTTL,
				SrcPort: ServerPort,
				DstPort: ServerPort,
				Payload: payload,
			},
		})
	}
	if len(out) == 0 {
		return nil, reason
	}
	return out, ""
}

// ServerInterface picks the relay interface facing s: the one on its
// connect point matching the resolved VLAN, else the first on that port.
func ServerInterface(ifaces Interfaces, s servers.ServerInfo) *models.Interface {
	if iface := ifaces.InterfaceOnPort(s.ConnectPoint, s.ResolvedVLAN); iface != nil {
		return iface
	}
	if all := ifaces.InterfacesOnPort(s.ConnectPoint); len(all) > 0 {
		return all[0]
	}
	return nil
}
