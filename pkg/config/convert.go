package config

import (
	"fmt"
	"net"
	"sort"
	"time"

	"github.com/veesix-networks/dhcprelay/pkg/models"
	"github.com/veesix-networks/dhcprelay/pkg/servers"
	"inet.af/netaddr"
)

// InterfaceModels converts the interfaces section, sorted by name.
func (c *Config) InterfaceModels() ([]*models.Interface, error) {
	names := make([]string, 0, len(c.Interfaces))
	for name := range c.Interfaces {
		names = append(names, name)
	}
	sort.Strings(names)

	out := make([]*models.Interface, 0, len(names))
	for _, name := range names {
		ic := c.Interfaces[name]
		if ic == nil {
			continue
		}

		cp, err := models.ParseConnectPoint(ic.ConnectPoint)
		if err != nil {
			return nil, fmt.Errorf("interfaces.%s.connect_point: %w", name, err)
		}
		mac, err := net.ParseMAC(ic.MAC)
		if err != nil {
			return nil, fmt.Errorf("interfaces.%s.mac: %w", name, err)
		}
		vlan, err := models.VLANFromInt(ic.VLANID)
		if err != nil {
			return nil, fmt.Errorf("interfaces.%s.vlan-id: %w", name, err)
		}

		iface := &models.Interface{Name: ic.Name, ConnectPoint: cp, MAC: mac, VLAN: vlan}
		if ic.Address != nil {
			for _, s := range ic.Address.IPv4 {
				p, err := netaddr.ParseIPPrefix(s)
				if err != nil || !p.IP().Is4() {
					return nil, fmt.Errorf("interfaces.%s.address.ipv4: invalid prefix %q", name, s)
				}
				iface.IPv4 = append(iface.IPv4, p)
			}
			for _, s := range ic.Address.IPv6 {
				p, err := netaddr.ParseIPPrefix(s)
				if err != nil || !p.IP().Is6() {
					return nil, fmt.Errorf("interfaces.%s.address.ipv6: invalid prefix %q", name, s)
				}
				iface.IPv6 = append(iface.IPv6, p)
			}
		}
		out = append(out, iface)
	}
	return out, nil
}

// Build converts both server lists of one family.
func (g ServerGroupConfig) Build(v6 bool) (def, indirect []servers.ServerInfo, err error) {
	if def, err = buildServers("default", g.Default, v6); err != nil {
		return nil, nil, err
	}
	if indirect, err = buildServers("indirect", g.Indirect, v6); err != nil {
		return nil, nil, err
	}
	return def, indirect, nil
}

func buildServers(list string, cfgs []ServerConfig, v6 bool) ([]servers.ServerInfo, error) {
	out := make([]servers.ServerInfo, 0, len(cfgs))
	for i, sc := range cfgs {
		cp, err := models.ParseConnectPoint(sc.ConnectPoint)
		if err != nil {
			return nil, fmt.Errorf("%s[%d].connect_point: %w", list, i, err)
		}
		info := servers.ServerInfo{ConnectPoint: cp}
		if info.ServerIP, err = parseFamilyIP(sc.ServerIP, v6); err != nil {
			return nil, fmt.Errorf("%s[%d].server_ip: %w", list, i, err)
		}
		if sc.GatewayIP != "" {
			if info.GatewayIP, err = parseFamilyIP(sc.GatewayIP, v6); err != nil {
				return nil, fmt.Errorf("%s[%d].gateway_ip: %w", list, i, err)
			}
		}
		if sc.RelayAgentIP != "" {
			if info.RelayAgentIP, err = parseFamilyIP(sc.RelayAgentIP, v6); err != nil {
				return nil, fmt.Errorf("%s[%d].relay_agent_ip: %w", list, i, err)
			}
		}
		out = append(out, info)
	}
	return out, nil
}

func parseFamilyIP(s string, v6 bool) (net.IP, error) {
	ip := net.ParseIP(s)
	if ip == nil {
		return nil, fmt.Errorf("invalid address %q", s)
	}
	if v4 := ip.To4(); v4 != nil {
		if v6 {
			return nil, fmt.Errorf("%q is not an IPv6 address", s)
		}
		return v4, nil
	}
	if !v6 {
		return nil, fmt.Errorf("%q is not an IPv4 address", s)
	}
	return ip, nil
}

func (c *Config) IgnoredVLANs() ([]models.PortVLAN, error) {
	out := make([]models.PortVLAN, 0, len(c.Relay.IgnoreVLANs))
	for i, iv := range c.Relay.IgnoreVLANs {
		cp, err := models.ParseConnectPoint(iv.ConnectPoint)
		if err != nil {
			return nil, fmt.Errorf("relay.ignore_vlans[%d].connect_point: %w", i, err)
		}
		vlan, err := models.VLANFromInt(iv.VLAN)
		if err != nil {
			return nil, fmt.Errorf("relay.ignore_vlans[%d].vlan: %w", i, err)
		}
		out = append(out, models.PortVLAN{ConnectPoint: cp, VLAN: vlan})
	}
	return out, nil
}

func (c *Config) StaticHosts() ([]*models.Host, error) {
	out := make([]*models.Host, 0, len(c.Hosts))
	for i, hc := range c.Hosts {
		mac, err := net.ParseMAC(hc.MAC)
		if err != nil {
			return nil, fmt.Errorf("hosts[%d].mac: %w", i, err)
		}
		vlan, err := models.VLANFromInt(hc.VLAN)
		if err != nil {
			return nil, fmt.Errorf("hosts[%d].vlan: %w", i, err)
		}
		cp, err := models.ParseConnectPoint(hc.ConnectPoint)
		if err != nil {
			return nil, fmt.Errorf("hosts[%d].connect_point: %w", i, err)
		}
		h := &models.Host{
			ID:       models.NewHostID(mac, vlan),
			Location: models.HostLocation{ConnectPoint: cp, Time: time.Now()},
		}
		for _, s := range hc.IPs {
			ip := net.ParseIP(s)
			if ip == nil {
				return nil, fmt.Errorf("hosts[%d].ips: invalid address %q", i, s)
			}
			h.IPs = append(h.IPs, ip)
		}
		out = append(out, h)
	}
	return out, nil
}
