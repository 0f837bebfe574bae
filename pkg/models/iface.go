package models

import (
	"net"

	"inet.af/netaddr"
)

// Interface is an L3 interface of the relay on a connect point and VLAN.
type Interface struct {
	Name         string             `json:"name"`
	ConnectPoint ConnectPoint       `json:"connect_point"`
	MAC          net.HardwareAddr   `json:"mac"`
	VLAN         VLAN               `json:"vlan"`
	IPv4         []netaddr.IPPrefix `json:"ipv4"`
	IPv6         []netaddr.IPPrefix `json:"ipv6"`
}

// IPv4Addr returns the first configured IPv4 address or nil.
func (i *Interface) IPv4Addr() net.IP {
	if len(i.IPv4) == 0 {
		return nil
	}
	return i.IPv4[0].IP().IPAddr().IP.To4()
}

// IPv6Addr returns the first non link-local IPv6 address or nil.
func (i *Interface) IPv6Addr() net.IP {
	for _, p := range i.IPv6 {
		if !p.IP().IsLinkLocalUnicast() {
			return p.IP().IPAddr().IP
		}
	}
	return nil
}

// LinkLocal returns the first fe80::/10 address or nil.
func (i *Interface) LinkLocal() net.IP {
	for _, p := range i.IPv6 {
		if p.IP().IsLinkLocalUnicast() {
			return p.IP().IPAddr().IP
		}
	}
	return nil
}

// HasIP reports whether ip is one of the interface's own addresses.
func (i *Interface) HasIP(ip net.IP) bool {
	addr, ok := netaddr.FromStdIP(ip)
	if !ok {
		return false
	}
	for _, p := range i.prefixes() {
		if p.IP() == addr {
			return true
		}
	}
	return false
}

// InSubnet reports whether ip falls inside any of the interface's subnets.
func (i *Interface) InSubnet(ip net.IP) bool {
	addr, ok := netaddr.FromStdIP(ip)
	if !ok {
		return false
	}
	for _, p := range i.prefixes() {
		if p.Masked().Contains(addr) {
			return true
		}
	}
	return false
}

func (i *Interface) prefixes() []netaddr.IPPrefix {
	out := make([]netaddr.IPPrefix, 0, len(i.IPv4)+len(i.IPv6))
	out = append(out, i.IPv4...)
	return append(out, i.IPv6...)
}
