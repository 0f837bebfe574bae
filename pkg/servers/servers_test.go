package servers

import (
	"net"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/veesix-networks/dhcprelay/pkg/events"
	"github.com/veesix-networks/dhcprelay/pkg/hosts"
	"github.com/veesix-networks/dhcprelay/pkg/models"
)

var (
	serverCP = models.ConnectPoint{Device: "relay1", Port: "eth9"}
	serverIP = net.ParseIP("192.168.100.2")
	gwIP     = net.ParseIP("192.168.100.1")
)

func gatewayHost(t *testing.T) *models.Host {
	t.Helper()
	mac, _ := net.ParseMAC("02:00:00:00:00:01")
	return &models.Host{ID: models.NewHostID(mac, 100), IPs: []net.IP{gwIP}}
}

func TestSetResolvesImmediately(t *testing.T) {
	h := hosts.New(nil)
	gw := gatewayHost(t)
	h.Learn(hosts.ProviderARP, gw.ID, gwIP, serverCP)

	m := New("dhcpv4", h)
	require.False(t, m.Configured())
	m.SetDefault([]ServerInfo{{ConnectPoint: serverCP, ServerIP: serverIP, GatewayIP: gwIP}})
	require.True(t, m.Configured())
	require.True(t, h.IsMonitored(gwIP))
	require.False(t, h.IsMonitored(serverIP))

	got := m.Select(true)
	require.Len(t, got, 1)
	require.True(t, got[0].Resolved())
	require.Equal(t, gw.ID.MAC.String(), got[0].ResolvedMAC.String())
	require.Equal(t, models.VLAN(100), got[0].ResolvedVLAN)
}

func TestHostEventsBindAndUnbind(t *testing.T) {
	h := hosts.New(nil)
	m := New("dhcpv4", h)
	m.SetDefault([]ServerInfo{{ConnectPoint: serverCP, ServerIP: serverIP}})
	require.False(t, m.Select(true)[0].Resolved())

	mac, _ := net.ParseMAC("02:00:00:00:00:02")
	srv := &models.Host{ID: models.NewHostID(mac, models.VLANNone), IPs: []net.IP{serverIP}}

	m.HandleHostEvent(events.HostEvent{Type: events.HostAdded, Host: srv})
	require.True(t, m.Servers(Default)[0].Resolved())

	m.HandleHostEvent(events.HostEvent{Type: events.HostRemoved, Host: srv, Previous: srv})
	require.False(t, m.Servers(Default)[0].Resolved())

	m.HandleHostEvent(events.HostEvent{Type: events.HostAdded, Host: srv})
	moved := &models.Host{ID: srv.ID}
	m.HandleHostEvent(events.HostEvent{Type: events.HostUpdated, Host: moved, Previous: srv})
	require.False(t, m.Servers(Default)[0].Resolved())
}

func TestSelectPrefersIndirectForRelayedClients(t *testing.T) {
	h := hosts.New(nil)
	m := New("dhcpv4", h)
	m.SetDefault([]ServerInfo{{ConnectPoint: serverCP, ServerIP: serverIP}})

	require.Equal(t, serverIP.String(), m.Select(false)[0].ServerIP.String())

	other := net.ParseIP("192.168.200.2")
	m.SetIndirect([]ServerInfo{{ConnectPoint: serverCP, ServerIP: other}})
	require.Equal(t, other.String(), m.Select(false)[0].ServerIP.String())
	require.Equal(t, serverIP.String(), m.Select(true)[0].ServerIP.String())
}

func TestReplaceStopsOldMonitoring(t *testing.T) {
	h := hosts.New(nil)
	m := New("dhcpv6", h)
	old := net.ParseIP("2001:db8::2")
	m.SetDefault([]ServerInfo{{ConnectPoint: serverCP, ServerIP: old}})
	require.True(t, h.IsMonitored(old))

	next := net.ParseIP("2001:db8::3")
	m.SetDefault([]ServerInfo{{ConnectPoint: serverCP, ServerIP: next}})
	require.False(t, h.IsMonitored(old))
	require.True(t, h.IsMonitored(next))
}

func TestMatchArrival(t *testing.T) {
	m := New("dhcpv4", hosts.New(nil))
	m.SetDefault([]ServerInfo{{ConnectPoint: serverCP, ServerIP: serverIP}})

	got, ok := m.MatchArrival(serverCP)
	require.True(t, ok)
	require.True(t, got.ServerIP.Equal(serverIP))

	_, ok = m.MatchArrival(models.ConnectPoint{Device: "relay1", Port: "eth0"})
	require.False(t, ok)
}
