// Package dhcp6 builds relayed DHCPv6 frames. Client traffic is wrapped in
// RELAY-FORW envelopes carrying an interface id; server RELAY-REPL
// envelopes are unwrapped one level toward the client.
package dhcp6

import (
	"github.com/insomniacslk/dhcp/dhcpv6"
	"github.com/veesix-networks/dhcprelay/pkg/counters"
	"github.com/veesix-networks/dhcprelay/pkg/dhcp"
	"github.com/veesix-networks/dhcprelay/pkg/models"
	"github.com/veesix-networks/dhcprelay/pkg/servers"
)

const (
	ServerPort = uint16(dhcpv6.DefaultServerPort)
	ClientPort = uint16(dhcpv6.DefaultClientPort)
)

type Interfaces interface {
	InterfaceOnPort(cp models.ConnectPoint, vlan models.VLAN) *models.Interface
	InterfacesOnPort(cp models.ConnectPoint) []*models.Interface
}

// Output is a frame to emit on Egress.
type Output struct {
	Egress models.ConnectPoint
	Frame  *dhcp.Frame
}

// Direct classifies a message by its envelope nesting. A bare client
// message is direct. A RELAY-FORW means another agent is between us and
// the client. A RELAY-REPL is direct unless it wraps another RELAY-REPL.
func Direct(m dhcp.Message6) bool {
	relay, ok := m.(*dhcp.Relay6)
	if !ok {
		return true
	}
	inner, err := relay.Inner()
	if err != nil {
		return true
	}
	if relay.MsgType == dhcp.RelayForw {
		return false
	}
	return inner.Type() != dhcp.RelayRepl
}

type Request struct {
	Ingress models.ConnectPoint
	Frame   *dhcp.Frame
	Message dhcp.Message6
	Direct  bool
}

// BuildRelayForward produces one RELAY-FORW frame per resolved server.
func BuildRelayForward(req Request, ifaces Interfaces, targets []servers.ServerInfo) ([]Output, string) {
	if len(targets) == 0 {
		return nil, counters.NoServerInfo
	}

	clientIface := ifaces.InterfaceOnPort(req.Ingress, req.Frame.VLAN)
	if clientIface == nil {
		return nil, counters.NoMatchingIntf
	}

	var hop uint8
	if relay, ok := req.Message.(*dhcp.Relay6); ok && !req.Direct {
		hop = relay.HopCount + 1
	}
	ifaceID := dhcp.EncodeInterfaceID(dhcp.InterfaceID{
		MAC:          req.Frame.SrcMAC,
		ConnectPoint: req.Ingress,
		VLAN:         req.Frame.VLAN,
	})

	var (
		out    []Output
		reason string
	)
	for _, s := range targets {
		linkAddr := s.RelayAgentIP
		if linkAddr == nil {
			linkAddr = clientIface.IPv6Addr()
		}
		if linkAddr == nil {
			reason = counters.NoRelayAgentIP
			continue
		}
		if !s.Resolved() {
			reason = counters.UnresolvedServer
			continue
		}
		serverIface := serverInterface(ifaces, s)
		if serverIface == nil {
			reason = counters.NoMatchingIntf
			continue
		}
		srcIP := serverIface.IPv6Addr()
		if srcIP == nil {
			srcIP = serverIface.LinkLocal()
		}
		if srcIP == nil {
			reason = counters.NoLinkLocalFail
			continue
		}

		envelope := dhcp.NewRelayForward(req.Message, hop, linkAddr, req.Frame.SrcIP, ifaceID)
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
				Payload: envelope.Marshal(),
			},
		})
	}
	if len(out) == 0 {
		return nil, reason
	}
	return out, ""
}

func serverInterface(ifaces Interfaces, s servers.ServerInfo) *models.Interface {
	if iface := ifaces.InterfaceOnPort(s.ConnectPoint, s.ResolvedVLAN); iface != nil {
		return iface
	}
	if all := ifaces.InterfacesOnPort(s.ConnectPoint); len(all) > 0 {
		return all[0]
	}
	return nil
}
