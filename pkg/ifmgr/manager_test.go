package ifmgr

import (
	"net"
	"testing"

	"github.com/veesix-networks/dhcprelay/pkg/models"
	"inet.af/netaddr"
)

func TestLookups(t *testing.T) {
	cp := models.ConnectPoint{Device: "r1", Port: "eth0"}
	m := New()
	m.Add(&models.Interface{
		Name:         "v10",
		ConnectPoint: cp,
		VLAN:         10,
		IPv4:         []netaddr.IPPrefix{netaddr.MustParseIPPrefix("10.0.0.1/24")},
	})
	m.Add(&models.Interface{
		Name:         "v20",
		ConnectPoint: cp,
		VLAN:         20,
		IPv4:         []netaddr.IPPrefix{netaddr.MustParseIPPrefix("10.0.1.1/24")},
	})

	if got := m.InterfacesOnPort(cp); len(got) != 2 {
		t.Fatalf("got %d interfaces, want 2", len(got))
	}
	if got := m.InterfaceOnPort(cp, 20); got == nil || got.Name != "v20" {
		t.Fatalf("got %v, want v20", got)
	}
	if got := m.InterfaceOnPort(cp, models.VLANNone); got != nil {
		t.Fatalf("untagged lookup matched %v", got.Name)
	}
	if !m.IsLocalIP(net.ParseIP("10.0.1.1")) || m.IsLocalIP(net.ParseIP("10.0.1.2")) {
		t.Fatal("IsLocalIP should match owned addresses only")
	}
	if m.IsLocalIP(net.IPv4zero) {
		t.Fatal("unspecified address is never local")
	}
	if got := m.InterfacesForSubnet(net.ParseIP("10.0.0.77")); len(got) != 1 || got[0].Name != "v10" {
		t.Fatalf("got %v, want v10", got)
	}

	m.Replace(nil)
	if len(m.Interfaces()) != 0 || len(m.Ports()) != 0 {
		t.Fatal("Replace(nil) should clear all interfaces")
	}
}
