package routes

import (
	"net"
	"testing"

	"inet.af/netaddr"
)

func TestMemoryStore(t *testing.T) {
	m := NewMemory()
	p, ok := HostPrefix(net.ParseIP("10.0.0.50"))
	if !ok || p.String() != "10.0.0.50/32" {
		t.Fatalf("got %v, want 10.0.0.50/32", p)
	}
	pd := netaddr.MustParseIPPrefix("2001:db8:100::/56")

	m.UpdateRoute(p, net.ParseIP("192.168.1.1"))
	m.UpdateRoute(pd, net.ParseIP("fe80::1"))
	if got := len(m.Routes()); got != 2 {
		t.Fatalf("got %d routes, want 2", got)
	}

	m.RemoveRoute(p, net.ParseIP("192.168.1.2"))
	if got := len(m.Routes()); got != 2 {
		t.Fatalf("mismatched next hop removed route: %d left", got)
	}

	m.RemoveRoute(p, net.ParseIP("192.168.1.1"))
	m.RemoveRoute(pd, nil)
	if got := len(m.Routes()); got != 0 {
		t.Fatalf("got %d routes, want 0", got)
	}
}

func TestHostPrefixV6(t *testing.T) {
	p, ok := HostPrefix(net.ParseIP("2001:db8::10"))
	if !ok || p.String() != "2001:db8::10/128" {
		t.Fatalf("got %v, want 2001:db8::10/128", p)
	}
}
