package main

import (
	"bytes"
	"context"
	"net"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/veesix-networks/dhcprelay/pkg/api"
	"github.com/veesix-networks/dhcprelay/pkg/dhcp"
	"github.com/veesix-networks/dhcprelay/pkg/models"
	"github.com/veesix-networks/dhcprelay/pkg/record"
	"gopkg.in/yaml.v3"
)

type fakeClient struct {
	recs   []*record.DhcpRecord
	counts map[string]uint64
	resets int
}

func (f *fakeClient) List(context.Context) ([]*record.DhcpRecord, error) { return f.recs, nil }

func (f *fakeClient) Get(_ context.Context, id models.HostID) (*record.DhcpRecord, error) {
	for _, r := range f.recs {
		if r.HostID.Key() == id.Key() {
			return r, nil
		}
	}
	return nil, record.ErrNotFound
}

func (f *fakeClient) Counters(context.Context) (map[string]uint64, error) { return f.counts, nil }

func (f *fakeClient) ResetCounters(context.Context) error {
	f.resets++
	return nil
}

func (f *fakeClient) Servers(context.Context) ([]api.ServerEntry, error) {
	return []api.ServerEntry{{
		Family:       "dhcpv4",
		List:         "default",
		ConnectPoint: models.ConnectPoint{Device: "leaf1", Port: "eth9"},
		ServerIP:     net.ParseIP("192.168.100.2"),
	}}, nil
}

func newTestCLI() (*CLI, *fakeClient, *bytes.Buffer) {
	mac, _ := net.ParseMAC("00:11:22:33:44:55")
	rec := record.New(models.NewHostID(mac, 10))
	rec.IP4Address = net.ParseIP("10.0.0.50").To4()
	rec.IP4Status = dhcp.Ack

	fc := &fakeClient{
		recs:   []*record.DhcpRecord{rec},
		counts: map[string]uint64{"DHCPACK": 4, "NO_SERVER_INFO": 1},
	}
	var out bytes.Buffer
	return NewCLI(fc, "test", &out), fc, &out
}

func TestShowRecordsTable(t *testing.T) {
	cli, _, out := newTestCLI()
	require.NoError(t, cli.Execute(context.Background(), "show records"))
	require.Contains(t, out.String(), "00:11:22:33:44:55/10")
	require.Contains(t, out.String(), "10.0.0.50")
	require.Contains(t, out.String(), "DHCPACK")
}

func TestShowRecordByID(t *testing.T) {
	cli, _, out := newTestCLI()
	require.NoError(t, cli.Execute(context.Background(), "show record 00:11:22:33:44:55/10"))
	require.Contains(t, out.String(), "IPv4:")

	require.ErrorIs(t, cli.Execute(context.Background(), "show record 00:11:22:33:44:55/20"), record.ErrNotFound)
	require.Error(t, cli.Execute(context.Background(), "show record"))
}

func TestShowCountersYAML(t *testing.T) {
	cli, _, out := newTestCLI()
	require.NoError(t, cli.Execute(context.Background(), "show counters yaml"))

	var got map[string]int
	require.NoError(t, yaml.Unmarshal(out.Bytes(), &got))
	require.Equal(t, 4, got["DHCPACK"])
}

func TestShowServersUnresolved(t *testing.T) {
	cli, _, out := newTestCLI()
	require.NoError(t, cli.Execute(context.Background(), "show servers"))
	require.Contains(t, out.String(), "192.168.100.2")
	require.Contains(t, out.String(), "unresolved")
}

func TestClearCounters(t *testing.T) {
	cli, fc, _ := newTestCLI()
	require.NoError(t, cli.Execute(context.Background(), "clear counters"))
	require.Equal(t, 1, fc.resets)
}

func TestUnknownCommand(t *testing.T) {
	cli, _, _ := newTestCLI()
	require.Error(t, cli.Execute(context.Background(), "show nothing"))
}
