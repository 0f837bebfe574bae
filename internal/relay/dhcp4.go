package relay

import (
	"log/slog"
	"net"
	"time"

	"github.com/google/gopacket/layers"
	"github.com/veesix-networks/dhcprelay/pkg/counters"
	"github.com/veesix-networks/dhcprelay/pkg/dhcp"
	"github.com/veesix-networks/dhcprelay/pkg/dhcp4"
	"github.com/veesix-networks/dhcprelay/pkg/hosts"
	"github.com/veesix-networks/dhcprelay/pkg/logger"
	"github.com/veesix-networks/dhcprelay/pkg/models"
	"github.com/veesix-networks/dhcprelay/pkg/record"
	"github.com/veesix-networks/dhcprelay/pkg/routes"
)

func (c *Component) handleDHCPv4(ingress models.ConnectPoint, fr *dhcp.Frame) {
	msg, err := dhcp.DecodeDHCPv4(fr.Payload)
	if err != nil {
		c.drop(c.log4, counters.InvalidPacket, "port", ingress.String(), "error", err)
		return
	}

	t := dhcp.MessageType4Of(msg.Options)
	switch t {
	case dhcp.Discover, dhcp.Request, dhcp.Decline, dhcp.Release, dhcp.Inform:
		c.counters.Inc(t.String())
		c.clientToServer4(ingress, fr, msg, t)
	case dhcp.Offer, dhcp.Ack, dhcp.Nak:
		c.counters.Inc(t.String())
		c.serverToClient4(ingress, fr, msg, t)
	default:
		c.drop(c.log4, counters.Unsupported, "port", ingress.String(), "mac", msg.ClientHWAddr.String())
	}
}

func (c *Component) clientToServer4(ingress models.ConnectPoint, fr *dhcp.Frame, msg *layers.DHCPv4, t dhcp.MessageType4) {
	_, present, _ := dhcp.AgentInfo4(msg.Options)
	direct := dhcp.Classify(present, c.ifaces.IsLocalIP(msg.RelayAgentIP))

	l := logger.WithHost(c.log4, logger.HostAttrs{
		MAC:          msg.ClientHWAddr.String(),
		VLAN:         fr.VLAN.String(),
		ConnectPoint: ingress.String(),
		Direct:       &direct,
	})

	if !c.v4.Configured() {
		c.drop(l, counters.NoServerInfo, "message_type", t.String())
		return
	}

	now := c.now()
	id := models.NewHostID(msg.ClientHWAddr, fr.VLAN)
	rec := record.GetOrNew(c.records, id)
	rec.AddLocation(ingress, now)
	rec.IP4Status = t
	rec.DirectlyConnected = direct
	if !direct {
		rec.NextHop = append(net.HardwareAddr(nil), fr.SrcMAC...)
		c.learnGateway(fr.SrcMAC, fr.VLAN, fr.SrcIP, ingress)
	}
	rec.Touch(now)
	rec.Count(t.String())
	c.records.Put(id, rec)

	outs, reason := dhcp4.BuildRequest(dhcp4.Request{
		Ingress: ingress,
		Frame:   fr,
		Message: msg,
		Direct:  direct,
	}, c.ifaces, c.v4.Select(direct))
	if reason != "" {
		c.drop(l, reason, "message_type", t.String())
		return
	}

	for _, out := range outs {
		if c.emit(l, out.Egress, out.Frame) {
			l.Debug("Forwarded DHCP to server", "message_type", t.String(), "server", out.Frame.DstIP.String(), "egress", out.Egress.String())
		}
	}
}

func (c *Component) serverToClient4(ingress models.ConnectPoint, fr *dhcp.Frame, msg *layers.DHCPv4, t dhcp.MessageType4) {
	if _, ok := c.v4.MatchArrival(ingress); !ok {
		c.drop(c.log4, counters.NoServerInfo, "port", ingress.String(), "message_type", t.String())
		return
	}

	vlan := fr.VLAN
	if _, v, ok := dhcp4.CircuitLocation(msg, c.ifaces); ok {
		vlan = v
	}
	rec, _ := c.findRecord(msg.ClientHWAddr, vlan)
	direct := c.replyDirect4(msg, rec)

	var nextHop net.HardwareAddr
	if rec != nil {
		nextHop = rec.NextHop
	}

	out, reason := dhcp4.BuildReply(dhcp4.Reply{
		Frame:   fr,
		Message: msg,
		Direct:  direct,
		NextHop: nextHop,
	}, c.ifaces, c.locate)

	l := logger.WithHost(c.log4, logger.HostAttrs{
		MAC:          msg.ClientHWAddr.String(),
		ConnectPoint: out.Egress.String(),
		Direct:       &direct,
	})
	if reason != "" {
		c.drop(l, reason, "message_type", t.String())
		return
	}

	if c.emit(l, out.Egress, out.Frame) {
		l.Debug("Forwarded DHCP to client", "message_type", t.String(), "vlan", out.Frame.VLAN.String(), "yiaddr", msg.YourClientIP.String())
	}

	now := c.now()
	id := models.NewHostID(msg.ClientHWAddr, out.Frame.VLAN)
	if rec == nil || rec.HostID.Key() != id.Key() {
		rec = record.GetOrNew(c.records, id)
		rec.DirectlyConnected = direct
	}
	rec.IP4Status = t
	if t == dhcp.Ack && msg.YourClientIP != nil && !msg.YourClientIP.IsUnspecified() {
		rec.IP4Address = append(net.IP(nil), msg.YourClientIP.To4()...)
		c.bindLease4(l, rec, out.Egress, now)
	}
	rec.Touch(now)
	rec.Count(t.String())
	c.records.Put(id, rec)
}

// bindLease4 makes an acknowledged address reachable: a host binding for
// direct clients, a host route via the downstream relay otherwise.
func (c *Component) bindLease4(l *slog.Logger, rec *record.DhcpRecord, egress models.ConnectPoint, now time.Time) {
	if rec.DirectlyConnected {
		c.hosts.CreateOrUpdateHost(hosts.ProviderDHCPRelay, rec.HostID, hosts.Description{
			Location: models.HostLocation{ConnectPoint: egress, Time: now},
			IPs:      []net.IP{rec.IP4Address},
		})
		return
	}

	gw := c.gatewayIPv4(rec.NextHop)
	if gw == nil {
		l.Warn("No address known for downstream relay, route not installed", "next_hop", rec.NextHop.String(), "ip", rec.IP4Address.String())
		return
	}
	prefix, ok := routes.HostPrefix(rec.IP4Address)
	if !ok {
		return
	}
	if err := c.routes.UpdateRoute(prefix, gw); err != nil {
		l.Warn("Failed to install client route", "prefix", prefix.String(), "next_hop", gw.String(), "error", err)
	}
}
