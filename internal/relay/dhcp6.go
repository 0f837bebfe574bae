package relay

import (
	"log/slog"
	"net"
	"time"

	"github.com/veesix-networks/dhcprelay/pkg/counters"
	"github.com/veesix-networks/dhcprelay/pkg/dhcp"
	"github.com/veesix-networks/dhcprelay/pkg/dhcp6"
	"github.com/veesix-networks/dhcprelay/pkg/hosts"
	"github.com/veesix-networks/dhcprelay/pkg/logger"
	"github.com/veesix-networks/dhcprelay/pkg/models"
	"github.com/veesix-networks/dhcprelay/pkg/record"
	"github.com/veesix-networks/dhcprelay/pkg/routes"
	"inet.af/netaddr"
)

func (c *Component) handleDHCPv6(ingress models.ConnectPoint, fr *dhcp.Frame) {
	msg, err := dhcp.ParseMessage6(fr.Payload)
	if err != nil {
		c.drop(c.log6, counters.InvalidPacket, "port", ingress.String(), "error", err)
		return
	}

	switch t := msg.Type(); {
	case t == dhcp.RelayRepl:
		c.serverToClient6(ingress, fr, msg.(*dhcp.Relay6))
	case t == dhcp.RelayForw || t.FromClient():
		c.clientToServer6(ingress, fr, msg)
	default:
		c.drop(c.log6, counters.Unsupported, "port", ingress.String(), "message_type", t.String())
	}
}

func (c *Component) clientToServer6(ingress models.ConnectPoint, fr *dhcp.Frame, msg dhcp.Message6) {
	direct := dhcp6.Direct(msg)

	leaf, err := dhcp.UnwrapToLeaf(msg)
	if err != nil {
		c.drop(c.log6, counters.InvalidPacket, "port", ingress.String(), "error", err)
		return
	}
	c.counters.Inc(leaf.MsgType.String())

	clientID := leaf.ClientID()
	if clientID == nil {
		c.drop(c.log6, counters.NoClientIDFail, "port", ingress.String(), "message_type", leaf.MsgType.String())
		return
	}
	clientMAC, err := dhcp.ClientMAC(clientID)
	if err != nil {
		if !direct {
			c.drop(c.log6, counters.NoClientIDFail, "port", ingress.String(), "error", err)
			return
		}
		clientMAC = fr.SrcMAC
	}

	l := logger.WithHost(c.log6, logger.HostAttrs{
		MAC:          clientMAC.String(),
		VLAN:         fr.VLAN.String(),
		ConnectPoint: ingress.String(),
		Direct:       &direct,
	})

	if !c.v6.Configured() {
		c.drop(l, counters.NoServerInfo, "message_type", leaf.MsgType.String())
		return
	}

	now := c.now()
	id := models.NewHostID(clientMAC, fr.VLAN)
	rec := record.GetOrNew(c.records, id)
	rec.AddLocation(ingress, now)
	rec.IP6Status = leaf.MsgType
	rec.DirectlyConnected = direct
	if !direct {
		rec.NextHop = append(net.HardwareAddr(nil), fr.SrcMAC...)
		c.learnGateway(fr.SrcMAC, fr.VLAN, fr.SrcIP, ingress)
	}
	if leaf.MsgType == dhcp.Release6 {
		c.release6(l, rec, leaf)
	}
	rec.Touch(now)
	rec.Count(leaf.MsgType.String())
	if leaf.MsgType == dhcp.Release6 && !rec.HasIP6Address() && !rec.HasPDPrefix() && rec.IP4Address == nil {
		c.records.Remove(id)
	} else {
		c.records.Put(id, rec)
	}

	outs, reason := dhcp6.BuildRelayForward(dhcp6.Request{
		Ingress: ingress,
		Frame:   fr,
		Message: msg,
		Direct:  direct,
	}, c.ifaces, c.v6.Select(direct))
	if reason != "" {
		c.drop(l, reason, "message_type", leaf.MsgType.String())
		return
	}

	for _, out := range outs {
		if c.emit(l, out.Egress, out.Frame) {
			l.Debug("Relayed DHCPv6 to server", "message_type", leaf.MsgType.String(), "server", out.Frame.DstIP.String(), "egress", out.Egress.String())
		}
	}
}

// release6 withdraws the bindings for every address and prefix the client
// gives back.
func (c *Component) release6(l *slog.Logger, rec *record.DhcpRecord, leaf *dhcp.Leaf6) {
	for _, a := range leaf.Addresses() {
		c.unbindAddress6(l, rec, a.IP)
		if rec.IP6Address.Equal(a.IP) {
			rec.IP6Address = nil
			rec.AddrPreferredLifetime = 0
		}
	}
	for _, p := range leaf.Prefixes() {
		prefix, ok := netaddr.FromStdIPNet(p.Prefix)
		if !ok {
			continue
		}
		c.unbindPrefix6(l, rec, prefix)
		if rec.PDPrefix == prefix {
			rec.PDPrefix = netaddr.IPPrefix{}
			rec.PDPreferredLifetime = 0
		}
	}
}

func (c *Component) serverToClient6(ingress models.ConnectPoint, fr *dhcp.Frame, relay *dhcp.Relay6) {
	server, ok := c.v6.MatchArrival(ingress)
	if !ok {
		c.drop(c.log6, counters.NoServerInfo, "port", ingress.String())
		return
	}
	if !server.Resolved() {
		c.drop(c.log6, counters.UnresolvedServer, "port", ingress.String(), "server", server.ServerIP.String())
		return
	}

	direct := dhcp6.Direct(relay)
	res, reason := dhcp6.BuildRelayReply(dhcp6.Reply{
		Frame:  fr,
		Relay:  relay,
		Direct: direct,
	}, c.ifaces, c.peerMAC)
	if reason != "" {
		c.drop(c.log6, reason, "port", ingress.String())
		return
	}

	leaf, err := dhcp.UnwrapToLeaf(res.Inner)
	if err != nil {
		c.drop(c.log6, counters.InvalidPacket, "port", ingress.String(), "error", err)
		return
	}
	c.counters.Inc(leaf.MsgType.String())

	clientMAC := res.InterfaceID.MAC
	if mac, err := dhcp.ClientMAC(leaf.ClientID()); err == nil {
		clientMAC = mac
	}

	l := logger.WithHost(c.log6, logger.HostAttrs{
		MAC:          clientMAC.String(),
		VLAN:         res.InterfaceID.VLAN.String(),
		ConnectPoint: res.Egress.String(),
		Direct:       &direct,
	})

	if c.emit(l, res.Egress, res.Frame) {
		l.Debug("Relayed DHCPv6 to client", "message_type", leaf.MsgType.String(), "peer", relay.PeerAddr.String())
	}

	now := c.now()
	id := models.NewHostID(clientMAC, res.InterfaceID.VLAN)
	rec, found := c.records.Get(id)
	if !found {
		rec = record.New(id)
		rec.DirectlyConnected = direct
	}
	rec.IP6Status = leaf.MsgType
	if leaf.MsgType == dhcp.Reply {
		c.bindLease6(l, rec, leaf, relay.PeerAddr, res.Egress, now)
	}
	rec.Touch(now)
	rec.Count(leaf.MsgType.String())
	c.records.Put(id, rec)
}

// bindLease6 stores the leased address and delegated prefix from a REPLY
// and makes them reachable.
func (c *Component) bindLease6(l *slog.Logger, rec *record.DhcpRecord, leaf *dhcp.Leaf6, peer net.IP, egress models.ConnectPoint, now time.Time) {
	if addrs := leaf.Addresses(); len(addrs) > 0 {
		a := addrs[0]
		rec.IP6Address = append(net.IP(nil), a.IP...)
		rec.AddrPreferredLifetime = a.Preferred
		rec.LastIP6AddrUpdate = now
		c.bindAddress6(l, rec, a.IP, egress, now)
	}

	if prefixes := leaf.Prefixes(); len(prefixes) > 0 {
		p := prefixes[0]
		prefix, ok := netaddr.FromStdIPNet(p.Prefix)
		if !ok {
			return
		}
		rec.PDPrefix = prefix
		rec.PDPreferredLifetime = p.Preferred
		rec.LastIP6PDUpdate = now

		nextHop := peer
		if !rec.DirectlyConnected {
			nextHop = c.gatewayLinkLocal(rec.NextHop)
		}
		if nextHop == nil {
			c.counters.Inc(counters.NoLinkLocalGW)
			l.Warn("No link-local next hop for delegated prefix", "prefix", prefix.String())
			return
		}
		if err := c.routes.UpdateRoute(prefix, nextHop); err != nil {
			l.Warn("Failed to install delegated prefix route", "prefix", prefix.String(), "next_hop", nextHop.String(), "error", err)
		}
	}
}

func (c *Component) bindAddress6(l *slog.Logger, rec *record.DhcpRecord, ip net.IP, egress models.ConnectPoint, now time.Time) {
	if rec.DirectlyConnected {
		c.hosts.CreateOrUpdateHost(hosts.ProviderDHCPRelay, rec.HostID, hosts.Description{
			Location: models.HostLocation{ConnectPoint: egress, Time: now},
			IPs:      []net.IP{ip},
		})
		return
	}

	gw := c.gatewayLinkLocal(rec.NextHop)
	if gw == nil {
		c.counters.Inc(counters.NoLinkLocalGW)
		l.Warn("No link-local address known for downstream relay", "next_hop", rec.NextHop.String(), "ip", ip.String())
		return
	}
	prefix, ok := routes.HostPrefix(ip)
	if !ok {
		return
	}
	if err := c.routes.UpdateRoute(prefix, gw); err != nil {
		l.Warn("Failed to install client route", "prefix", prefix.String(), "next_hop", gw.String(), "error", err)
	}
}

func (c *Component) unbindAddress6(l *slog.Logger, rec *record.DhcpRecord, ip net.IP) {
	if rec.DirectlyConnected {
		c.hosts.RemoveIP(rec.HostID, ip)
		return
	}
	prefix, ok := routes.HostPrefix(ip)
	if !ok {
		return
	}
	gw := c.gatewayLinkLocal(rec.NextHop)
	if gw == nil {
		l.Warn("No link-local address for gateway, keeping client route", "host", rec.HostID.String(), "prefix", prefix.String())
		return
	}
	if err := c.routes.RemoveRoute(prefix, gw); err != nil {
		l.Warn("Failed to remove client route", "prefix", prefix.String(), "error", err)
	}
}

func (c *Component) unbindPrefix6(l *slog.Logger, rec *record.DhcpRecord, prefix netaddr.IPPrefix) {
	var nextHop net.IP
	if !rec.DirectlyConnected {
		if nextHop = c.gatewayLinkLocal(rec.NextHop); nextHop == nil {
			l.Warn("No link-local address for gateway, keeping delegated prefix route", "host", rec.HostID.String(), "prefix", prefix.String())
			return
		}
	}
	if err := c.routes.RemoveRoute(prefix, nextHop); err != nil {
		l.Warn("Failed to remove delegated prefix route", "prefix", prefix.String(), "error", err)
	}
}
