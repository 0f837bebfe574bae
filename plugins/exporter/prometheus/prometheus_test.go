package prometheus

import (
	"context"
	"io"
	"net"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/veesix-networks/dhcprelay/pkg/component"
	"github.com/veesix-networks/dhcprelay/pkg/config"
	"github.com/veesix-networks/dhcprelay/pkg/config/system"
	"github.com/veesix-networks/dhcprelay/pkg/counters"
	"github.com/veesix-networks/dhcprelay/pkg/dhcp"
	"github.com/veesix-networks/dhcprelay/pkg/hosts"
	"github.com/veesix-networks/dhcprelay/pkg/models"
	"github.com/veesix-networks/dhcprelay/pkg/record"
	"github.com/veesix-networks/dhcprelay/pkg/record/memory"
)

func newDeps(listen string) component.Dependencies {
	cfg := &config.Config{Monitoring: system.MonitoringConfig{Listen: listen}}
	return component.Dependencies{
		Config:   cfg,
		Counters: counters.New(),
		Records:  memory.New(),
		Hosts:    hosts.New(nil),
	}
}

func TestDisabledWithoutListenAddress(t *testing.T) {
	comp, err := New(newDeps(""))
	require.NoError(t, err)
	require.Nil(t, comp)
}

func TestGatherReportsRelayState(t *testing.T) {
	deps := newDeps("127.0.0.1:0")
	deps.Counters.Add("DHCPDISCOVER", 2)
	deps.Counters.Inc("NO_SERVER_INFO")

	mac, _ := net.ParseMAC("00:11:22:33:44:55")
	rec := record.New(models.NewHostID(mac, 10))
	rec.IP4Address = net.ParseIP("10.0.0.50").To4()
	rec.IP4Status = dhcp.Ack
	rec.DirectlyConnected = true
	deps.Records.Put(rec.HostID, rec)

	deps.Hosts.StartMonitoring(net.ParseIP("192.168.100.2"))

	comp, err := New(deps)
	require.NoError(t, err)

	families, err := comp.(*Component).Registry().Gather()
	require.NoError(t, err)

	values := map[string]float64{}
	for _, mf := range families {
		for _, m := range mf.GetMetric() {
			key := mf.GetName()
			for _, lp := range m.GetLabel() {
				key += "," + lp.GetName() + "=" + lp.GetValue()
			}
			switch {
			case m.GetCounter() != nil:
				values[key] = m.GetCounter().GetValue()
			case m.GetGauge() != nil:
				values[key] = m.GetGauge().GetValue()
			}
		}
	}

	require.Equal(t, 2.0, values["dhcprelay_events_total,name=DHCPDISCOVER"])
	require.Equal(t, 1.0, values["dhcprelay_events_total,name=NO_SERVER_INFO"])
	require.Equal(t, 1.0, values["dhcprelay_records"])
	require.Equal(t, 1.0, values["dhcprelay_bindings,attachment=direct,kind=ipv4"])
	require.Equal(t, 0.0, values["dhcprelay_bindings,attachment=indirect,kind=ipv4"])
	require.Equal(t, 1.0, values["dhcprelay_monitored_addresses,resolved=false"])
}

func TestServesMetricsOverHTTP(t *testing.T) {
	deps := newDeps("127.0.0.1:0")
	deps.Counters.Inc("DHCPACK")

	comp, err := New(deps)
	require.NoError(t, err)
	c := comp.(*Component)

	require.NoError(t, c.Start(context.Background()))
	t.Cleanup(func() { c.Stop(context.Background()) })
	require.True(t, c.Running())

	resp, err := http.Get("http://" + c.Addr() + defaultPath)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.Contains(t, string(body), `dhcprelay_events_total{name="DHCPACK"} 1`)
}
