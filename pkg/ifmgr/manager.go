package ifmgr

import (
	"net"
	"sync"

	"github.com/veesix-networks/dhcprelay/pkg/models"
)

// Manager is the relay's view of its own L3 interfaces, indexed by connect
// point.
type Manager struct {
	mu     sync.RWMutex
	byPort map[models.ConnectPoint][]*models.Interface
	all    []*models.Interface
}

func New() *Manager {
	return &Manager{
		byPort: make(map[models.ConnectPoint][]*models.Interface),
	}
}

func (m *Manager) Add(iface *models.Interface) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.byPort[iface.ConnectPoint] = append(m.byPort[iface.ConnectPoint], iface)
	m.all = append(m.all, iface)
}

// Replace swaps the whole interface set.
func (m *Manager) Replace(ifaces []*models.Interface) {
	byPort := make(map[models.ConnectPoint][]*models.Interface, len(ifaces))
	for _, iface := range ifaces {
		byPort[iface.ConnectPoint] = append(byPort[iface.ConnectPoint], iface)
	}

	m.mu.Lock()
	m.byPort = byPort
	m.all = append([]*models.Interface(nil), ifaces...)
	m.mu.Unlock()
}

func (m *Manager) InterfacesOnPort(cp models.ConnectPoint) []*models.Interface {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return append([]*models.Interface(nil), m.byPort[cp]...)
}

// InterfaceOnPort returns the interface on cp matching vlan. Untagged
// interfaces match untagged traffic only.
func (m *Manager) InterfaceOnPort(cp models.ConnectPoint, vlan models.VLAN) *models.Interface {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, iface := range m.byPort[cp] {
		if iface.VLAN == vlan {
			return iface
		}
	}
	return nil
}

func (m *Manager) InterfacesByIP(ip net.IP) []*models.Interface {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []*models.Interface
	for _, iface := range m.all {
		if iface.HasIP(ip) {
			out = append(out, iface)
		}
	}
	return out
}

// IsLocalIP reports whether ip is owned by any relay interface.
func (m *Manager) IsLocalIP(ip net.IP) bool {
	if ip == nil || ip.IsUnspecified() {
		return false
	}
	return len(m.InterfacesByIP(ip)) > 0
}

// InterfacesForSubnet returns the interfaces whose subnet contains ip.
func (m *Manager) InterfacesForSubnet(ip net.IP) []*models.Interface {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []*models.Interface
	for _, iface := range m.all {
		if iface.InSubnet(ip) {
			out = append(out, iface)
		}
	}
	return out
}

func (m *Manager) Interfaces() []*models.Interface {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return append([]*models.Interface(nil), m.all...)
}

func (m *Manager) Ports() []models.ConnectPoint {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]models.ConnectPoint, 0, len(m.byPort))
	for cp := range m.byPort {
		out = append(out, cp)
	}
	return out
}
