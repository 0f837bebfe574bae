// Package routes is the relay's route store for indirectly attached clients.
package routes

import (
	"net"
	"sort"
	"sync"

	"inet.af/netaddr"
)

type Route struct {
	Prefix  netaddr.IPPrefix `json:"prefix"`
	NextHop net.IP           `json:"next_hop"`
}

type Store interface {
	UpdateRoute(prefix netaddr.IPPrefix, nextHop net.IP) error
	RemoveRoute(prefix netaddr.IPPrefix, nextHop net.IP) error
	Routes() []Route
}

// HostPrefix returns the /32 or /128 for ip.
func HostPrefix(ip net.IP) (netaddr.IPPrefix, bool) {
	addr, ok := netaddr.FromStdIP(ip)
	if !ok {
		return netaddr.IPPrefix{}, false
	}
	return netaddr.IPPrefixFrom(addr, addr.BitLen()), true
}

// Memory is a Store that only records routes. The netlink store embeds it to
// answer Routes without a kernel dump.
type Memory struct {
	mu     sync.RWMutex
	routes map[netaddr.IPPrefix]Route
}

func NewMemory() *Memory {
	return &Memory{routes: make(map[netaddr.IPPrefix]Route)}
}

func (m *Memory) UpdateRoute(prefix netaddr.IPPrefix, nextHop net.IP) error {
	m.mu.Lock()
	m.routes[prefix.Masked()] = Route{Prefix: prefix.Masked(), NextHop: append(net.IP(nil), nextHop...)}
	m.mu.Unlock()
	return nil
}

// RemoveRoute deletes prefix if it points at nextHop. A nil nextHop matches
// any next hop.
func (m *Memory) RemoveRoute(prefix netaddr.IPPrefix, nextHop net.IP) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	r, ok := m.routes[prefix.Masked()]
	if !ok {
		return nil
	}
	if nextHop != nil && !r.NextHop.Equal(nextHop) {
		return nil
	}
	delete(m.routes, prefix.Masked())
	return nil
}

func (m *Memory) Routes() []Route {
	m.mu.RLock()
	out := make([]Route, 0, len(m.routes))
	for _, r := range m.routes {
		out = append(out, r)
	}
	m.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		return out[i].Prefix.String() < out[j].Prefix.String()
	})
	return out
}
