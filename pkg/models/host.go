package models

import (
	"fmt"
	"net"
	"strings"
	"time"
)

// HostID is the stable identity of a host: its MAC on a VLAN.
type HostID struct {
	MAC  net.HardwareAddr `json:"mac"`
	VLAN VLAN             `json:"vlan"`
}

func NewHostID(mac net.HardwareAddr, vlan VLAN) HostID {
	return HostID{MAC: append(net.HardwareAddr(nil), mac...), VLAN: vlan}
}

func (h HostID) String() string {
	return h.MAC.String() + "/" + h.VLAN.String()
}

// Key is a comparable form of the identity for use in maps.
func (h HostID) Key() string {
	return h.String()
}

func ParseHostID(s string) (HostID, error) {
	idx := strings.LastIndex(s, "/")
	if idx < 0 {
		return HostID{}, fmt.Errorf("invalid host id %q", s)
	}
	mac, err := net.ParseMAC(s[:idx])
	if err != nil {
		return HostID{}, fmt.Errorf("invalid host id %q: %w", s, err)
	}
	vlan, err := ParseVLAN(s[idx+1:])
	if err != nil {
		return HostID{}, fmt.Errorf("invalid host id %q: %w", s, err)
	}
	return HostID{MAC: mac, VLAN: vlan}, nil
}

// HostLocation is a connect point at which a host was seen.
type HostLocation struct {
	ConnectPoint ConnectPoint `json:"connect_point"`
	Time         time.Time    `json:"time"`
}

// Host is a discovered or bound end station.
type Host struct {
	ID       HostID       `json:"id"`
	IPs      []net.IP     `json:"ips"`
	Location HostLocation `json:"location"`
	Provider string       `json:"provider,omitempty"`
}

func (h *Host) HasIP(ip net.IP) bool {
	for _, a := range h.IPs {
		if a.Equal(ip) {
			return true
		}
	}
	return false
}

// LinkLocalIPv6 returns the host's first fe80::/10 address.
func (h *Host) LinkLocalIPv6() net.IP {
	for _, a := range h.IPs {
		if a.To4() == nil && a.IsLinkLocalUnicast() {
			return a
		}
	}
	return nil
}

// IPv4 returns the host's first IPv4 address.
func (h *Host) IPv4() net.IP {
	for _, a := range h.IPs {
		if v4 := a.To4(); v4 != nil {
			return v4
		}
	}
	return nil
}

func (h *Host) Clone() *Host {
	if h == nil {
		return nil
	}
	out := &Host{
		ID:       NewHostID(h.ID.MAC, h.ID.VLAN),
		Location: h.Location,
		Provider: h.Provider,
		IPs:      make([]net.IP, len(h.IPs)),
	}
	for i, ip := range h.IPs {
		out.IPs[i] = append(net.IP(nil), ip...)
	}
	return out
}
