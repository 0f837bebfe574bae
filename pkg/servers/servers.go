// Package servers tracks the configured DHCP servers for one address family
// and the link-layer binding used to reach each of them.
package servers

import (
	"log/slog"
	"net"
	"sync"
	"sync/atomic"

	"github.com/veesix-networks/dhcprelay/pkg/events"
	"github.com/veesix-networks/dhcprelay/pkg/logger"
	"github.com/veesix-networks/dhcprelay/pkg/models"
)

// ServerInfo is one configured server entry. ResolvedMAC and ResolvedVLAN
// hold the binding of the probe target once host discovery has seen it.
type ServerInfo struct {
	ConnectPoint models.ConnectPoint `json:"connect_point"`
	ServerIP     net.IP              `json:"server_ip"`
	GatewayIP    net.IP              `json:"gateway_ip,omitempty"`
	RelayAgentIP net.IP              `json:"relay_agent_ip,omitempty"`
	ResolvedMAC  net.HardwareAddr    `json:"resolved_mac,omitempty"`
	ResolvedVLAN models.VLAN         `json:"resolved_vlan"`
}

// ProbeIP is the address whose binding is used as the next hop: the
// gateway when one is configured, otherwise the server itself.
func (s ServerInfo) ProbeIP() net.IP {
	if s.GatewayIP != nil {
		return s.GatewayIP
	}
	return s.ServerIP
}

func (s ServerInfo) Resolved() bool {
	return len(s.ResolvedMAC) > 0
}

func (s ServerInfo) clone() ServerInfo {
	s.ServerIP = append(net.IP(nil), s.ServerIP...)
	if s.GatewayIP != nil {
		s.GatewayIP = append(net.IP(nil), s.GatewayIP...)
	}
	if s.RelayAgentIP != nil {
		s.RelayAgentIP = append(net.IP(nil), s.RelayAgentIP...)
	}
	if s.ResolvedMAC != nil {
		s.ResolvedMAC = append(net.HardwareAddr(nil), s.ResolvedMAC...)
	}
	return s
}

func (s *ServerInfo) bind(h *models.Host) {
	s.ResolvedMAC = append(net.HardwareAddr(nil), h.ID.MAC...)
	s.ResolvedVLAN = h.ID.VLAN
}

func (s *ServerInfo) unbind() {
	s.ResolvedMAC = nil
	s.ResolvedVLAN = models.VLANNone
}

type List int

const (
	Default List = iota
	Indirect
)

func (l List) String() string {
	if l == Indirect {
		return "indirect"
	}
	return "default"
}

// HostLookup is the part of host discovery the manager needs.
type HostLookup interface {
	HostsByIP(ip net.IP) []*models.Host
	StartMonitoring(ip net.IP)
	StopMonitoring(ip net.IP)
}

// Manager holds the default and indirect server lists. Readers load an
// immutable slice; writers replace it under mu.
type Manager struct {
	mu     sync.Mutex
	lists  [2]atomic.Pointer[[]ServerInfo]
	hosts  HostLookup
	logger *slog.Logger
}

func New(family string, hosts HostLookup) *Manager {
	m := &Manager{
		hosts:  hosts,
		logger: logger.Get(logger.Servers).With("family", family),
	}
	empty := []ServerInfo{}
	m.lists[Default].Store(&empty)
	m.lists[Indirect].Store(&empty)
	return m
}

func (m *Manager) load(l List) []ServerInfo {
	return *m.lists[l].Load()
}

// Servers returns a copy of list l.
func (m *Manager) Servers(l List) []ServerInfo {
	cur := m.load(l)
	out := make([]ServerInfo, len(cur))
	for i, s := range cur {
		out[i] = s.clone()
	}
	return out
}

func (m *Manager) SetDefault(servers []ServerInfo) { m.Set(Default, servers) }

func (m *Manager) SetIndirect(servers []ServerInfo) { m.Set(Indirect, servers) }

// Set replaces list l. Probe targets of the old list are no longer
// monitored, the new ones are, and each new entry gets an immediate
// best-effort resolution.
func (m *Manager) Set(l List, servers []ServerInfo) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, old := range m.load(l) {
		m.hosts.StopMonitoring(old.ProbeIP())
	}

	next := make([]ServerInfo, len(servers))
	for i, s := range servers {
		s = s.clone()
		s.unbind()
		m.hosts.StartMonitoring(s.ProbeIP())
		m.resolve(&s)
		next[i] = s
	}
	m.lists[l].Store(&next)

	// Monitoring is keyed by IP, so a target shared with the other list
	// must stay monitored.
	for _, s := range m.load(1 - l) {
		m.hosts.StartMonitoring(s.ProbeIP())
	}

	m.logger.Info("Server list updated", "list", l.String(), "servers", len(next))
}

func (m *Manager) resolve(s *ServerInfo) bool {
	for _, h := range m.hosts.HostsByIP(s.ProbeIP()) {
		s.bind(h)
		m.logger.Debug("Resolved server next hop", "server", s.ServerIP.String(), "probe", s.ProbeIP().String(), "mac", s.ResolvedMAC.String(), "vlan", s.ResolvedVLAN.String())
		return true
	}
	return false
}

// Select returns the list to forward a client message to: the indirect
// list when the client is not directly connected and that list is
// non-empty, otherwise the default list. Unresolved entries get one lookup
// attempt first.
func (m *Manager) Select(direct bool) []ServerInfo {
	l := Default
	if !direct && len(m.load(Indirect)) > 0 {
		l = Indirect
	}
	m.resolvePending(l)
	return m.Servers(l)
}

func (m *Manager) resolvePending(l List) {
	pending := false
	for _, s := range m.load(l) {
		if !s.Resolved() {
			pending = true
			break
		}
	}
	if !pending {
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	cur := m.load(l)
	next := make([]ServerInfo, len(cur))
	changed := false
	for i, s := range cur {
		s = s.clone()
		if !s.Resolved() && m.resolve(&s) {
			changed = true
		}
		next[i] = s
	}
	if changed {
		m.lists[l].Store(&next)
	}
}

// MatchArrival finds the server entry facing cp, searching the default list
// first. An unresolved match gets one lookup attempt.
func (m *Manager) MatchArrival(cp models.ConnectPoint) (ServerInfo, bool) {
	for _, l := range []List{Default, Indirect} {
		for i, s := range m.load(l) {
			if s.ConnectPoint != cp {
				continue
			}
			if !s.Resolved() {
				m.resolvePending(l)
				if cur := m.load(l); i < len(cur) && cur[i].ConnectPoint == cp {
					s = cur[i]
				}
			}
			return s.clone(), true
		}
	}
	return ServerInfo{}, false
}

// Configured reports whether any default server exists.
func (m *Manager) Configured() bool {
	return len(m.load(Default)) > 0
}

// HandleHostEvent binds or unbinds entries whose probe target is one of the
// event host's addresses.
func (m *Manager) HandleHostEvent(e events.HostEvent) {
	if e.Host == nil {
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	for _, l := range []List{Default, Indirect} {
		cur := m.load(l)
		next := make([]ServerInfo, len(cur))
		changed := false
		for i, s := range cur {
			s = s.clone()
			probe := s.ProbeIP()
			lost := e.Type == events.HostRemoved && e.Host.HasIP(probe)
			if e.Type != events.HostRemoved && e.Previous != nil && e.Previous.HasIP(probe) && !e.Host.HasIP(probe) {
				lost = true
			}
			switch {
			case lost:
				s.unbind()
				changed = true
				m.logger.Warn("Server next hop lost", "list", l.String(), "probe", probe.String())
			case e.Type != events.HostRemoved && e.Host.HasIP(probe):
				s.bind(e.Host)
				changed = true
				m.logger.Info("Server next hop resolved", "list", l.String(), "probe", probe.String(), "mac", s.ResolvedMAC.String(), "vlan", s.ResolvedVLAN.String())
			}
			next[i] = s
		}
		if changed {
			m.lists[l].Store(&next)
		}
	}
}
