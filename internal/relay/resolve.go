package relay

import (
	"net"

	"github.com/google/gopacket/layers"
	"github.com/veesix-networks/dhcprelay/pkg/dhcp"
	"github.com/veesix-networks/dhcprelay/pkg/dhcp4"
	"github.com/veesix-networks/dhcprelay/pkg/hosts"
	"github.com/veesix-networks/dhcprelay/pkg/models"
	"github.com/veesix-networks/dhcprelay/pkg/record"
)

// findRecord returns the record for mac on vlan, falling back to the most
// recently seen record for mac on any VLAN.
func (c *Component) findRecord(mac net.HardwareAddr, vlan models.VLAN) (*record.DhcpRecord, bool) {
	if len(mac) == 0 {
		return nil, false
	}
	if rec, ok := c.records.Get(models.NewHostID(mac, vlan)); ok {
		return rec, true
	}
	var best *record.DhcpRecord
	for _, rec := range record.ByMAC(c.records, mac.String()) {
		if best == nil || rec.LastSeen.After(best.LastSeen) {
			best = rec
		}
	}
	return best, best != nil
}

// locate is the stored-location fallback for server replies that carry no
// circuit-id of ours.
func (c *Component) locate(mac net.HardwareAddr, vlan models.VLAN) (models.ConnectPoint, models.VLAN, bool) {
	rec, ok := c.findRecord(mac, vlan)
	if !ok {
		return models.ConnectPoint{}, 0, false
	}
	loc, ok := rec.LatestLocation()
	if !ok {
		return models.ConnectPoint{}, 0, false
	}
	return loc.ConnectPoint, rec.HostID.VLAN, true
}

// replyDirect4 decides how a server reply reaches the client. Stored
// bookkeeping wins, then a circuit-id we added, then the header classifier.
func (c *Component) replyDirect4(msg *layers.DHCPv4, rec *record.DhcpRecord) bool {
	if rec != nil {
		return rec.DirectlyConnected
	}
	if _, _, ok := dhcp4.CircuitLocation(msg, c.ifaces); ok {
		return true
	}
	_, present, _ := dhcp.AgentInfo4(msg.Options)
	return dhcp.Classify(present, c.ifaces.IsLocalIP(msg.RelayAgentIP))
}

// gatewayIPv4 is the IPv4 address of the downstream relay behind mac.
func (c *Component) gatewayIPv4(mac net.HardwareAddr) net.IP {
	if len(mac) == 0 {
		return nil
	}
	for _, h := range c.hosts.HostsByMAC(mac) {
		if ip := h.IPv4(); ip != nil {
			return ip
		}
	}
	return nil
}

// gatewayLinkLocal is the link-local address of the downstream relay
// behind mac.
func (c *Component) gatewayLinkLocal(mac net.HardwareAddr) net.IP {
	if len(mac) == 0 {
		return nil
	}
	for _, h := range c.hosts.HostsByMAC(mac) {
		if ip := h.LinkLocalIPv6(); ip != nil {
			return ip
		}
	}
	return nil
}

// peerMAC resolves a DHCPv6 peer address through the host store.
func (c *Component) peerMAC(ip net.IP) (net.HardwareAddr, bool) {
	if hs := c.hosts.HostsByIP(ip); len(hs) > 0 {
		return hs[0].ID.MAC, true
	}
	return nil, false
}

// learnGateway records the sender of a relayed frame so indirect routes
// can later resolve their next hop.
func (c *Component) learnGateway(src net.HardwareAddr, vlan models.VLAN, ip net.IP, cp models.ConnectPoint) {
	if len(src) == 0 || ip == nil || ip.IsUnspecified() {
		return
	}
	c.hosts.Learn(hosts.ProviderDHCPRelay, models.NewHostID(src, vlan), ip, cp)
}
