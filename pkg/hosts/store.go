// Package hosts tracks L2/L3 host bindings. It serves as host discovery for
// server next-hop resolution and as the binding store for directly attached
// DHCP clients.
package hosts

import (
	"log/slog"
	"net"
	"sync"
	"time"

	"github.com/veesix-networks/dhcprelay/pkg/events"
	"github.com/veesix-networks/dhcprelay/pkg/logger"
	"github.com/veesix-networks/dhcprelay/pkg/models"
)

const (
	ProviderDHCPRelay = "dhcprelay"
	ProviderARP       = "arp"
	ProviderStatic    = "static"
)

// Description is what a provider reports about a host.
type Description struct {
	Location models.HostLocation
	IPs      []net.IP
}

type Store struct {
	mu        sync.RWMutex
	hosts     map[string]*models.Host
	monitored map[string]net.IP
	bus       events.Bus
	logger    *slog.Logger
}

func New(bus events.Bus) *Store {
	return &Store{
		hosts:     make(map[string]*models.Host),
		monitored: make(map[string]net.IP),
		bus:       bus,
		logger:    logger.Get(logger.Hosts),
	}
}

func (s *Store) Host(id models.HostID) (*models.Host, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	h, ok := s.hosts[id.Key()]
	if !ok {
		return nil, false
	}
	return h.Clone(), true
}

func (s *Store) Hosts() []*models.Host {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*models.Host, 0, len(s.hosts))
	for _, h := range s.hosts {
		out = append(out, h.Clone())
	}
	return out
}

func (s *Store) HostsByIP(ip net.IP) []*models.Host {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*models.Host
	for _, h := range s.hosts {
		if h.HasIP(ip) {
			out = append(out, h.Clone())
		}
	}
	return out
}

func (s *Store) HostsByMAC(mac net.HardwareAddr) []*models.Host {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*models.Host
	for _, h := range s.hosts {
		if h.ID.MAC.String() == mac.String() {
			out = append(out, h.Clone())
		}
	}
	return out
}

func (s *Store) StartMonitoring(ip net.IP) {
	s.mu.Lock()
	s.monitored[ip.String()] = append(net.IP(nil), ip...)
	s.mu.Unlock()
	s.logger.Debug("Monitoring host", "ip", ip.String())
}

func (s *Store) StopMonitoring(ip net.IP) {
	s.mu.Lock()
	delete(s.monitored, ip.String())
	s.mu.Unlock()
	s.logger.Debug("Stopped monitoring host", "ip", ip.String())
}

func (s *Store) Monitored() []net.IP {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]net.IP, 0, len(s.monitored))
	for _, ip := range s.monitored {
		out = append(out, ip)
	}
	return out
}

func (s *Store) IsMonitored(ip net.IP) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	_, ok := s.monitored[ip.String()]
	return ok
}

// CreateOrUpdateHost merges desc into the binding for id. Existing addresses
// are kept; the location is replaced.
func (s *Store) CreateOrUpdateHost(providerID string, id models.HostID, desc Description) {
	s.mu.Lock()
	prev, existed := s.hosts[id.Key()]
	var host *models.Host
	if existed {
		host = prev.Clone()
	} else {
		host = &models.Host{ID: models.NewHostID(id.MAC, id.VLAN)}
	}
	host.Provider = providerID
	if !desc.Location.ConnectPoint.IsZero() {
		host.Location = desc.Location
	}
	for _, ip := range desc.IPs {
		if ip != nil && !host.HasIP(ip) {
			host.IPs = append(host.IPs, append(net.IP(nil), ip...))
		}
	}
	s.hosts[id.Key()] = host
	s.mu.Unlock()

	if existed {
		s.publish(events.HostUpdated, host, prev)
	} else {
		s.publish(events.HostAdded, host, nil)
	}
}

// Learn records a sighting of ip at loc, as ARP does.
func (s *Store) Learn(providerID string, id models.HostID, ip net.IP, loc models.ConnectPoint) {
	s.CreateOrUpdateHost(providerID, id, Description{
		Location: models.HostLocation{ConnectPoint: loc, Time: time.Now()},
		IPs:      []net.IP{ip},
	})
}

func (s *Store) RemoveIP(id models.HostID, ip net.IP) {
	s.mu.Lock()
	prev, ok := s.hosts[id.Key()]
	if !ok || !prev.HasIP(ip) {
		s.mu.Unlock()
		return
	}
	host := prev.Clone()
	kept := host.IPs[:0]
	for _, a := range host.IPs {
		if !a.Equal(ip) {
			kept = append(kept, a)
		}
	}
	host.IPs = kept
	s.hosts[id.Key()] = host
	s.mu.Unlock()

	s.publish(events.HostUpdated, host, prev)
}

func (s *Store) RemoveHost(id models.HostID) {
	s.mu.Lock()
	prev, ok := s.hosts[id.Key()]
	if ok {
		delete(s.hosts, id.Key())
	}
	s.mu.Unlock()

	if ok {
		s.publish(events.HostRemoved, prev, prev)
	}
}

func (s *Store) publish(t events.HostEventType, host, prev *models.Host) {
	s.logger.Debug("Host binding changed", "event", string(t), "host", host.ID.String(), "ips", host.IPs)
	if s.bus == nil {
		return
	}
	s.bus.Publish(events.TopicFor(t), events.Event{
		Source: logger.Hosts,
		Data: events.HostEvent{
			Type:     t,
			Host:     host.Clone(),
			Previous: prev.Clone(),
		},
	})
}
