package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/veesix-networks/dhcprelay/pkg/models"
)

const sample = `
relay:
  device_id: leaf1
  arp_enabled: true
  ignore_vlans:
    - connect_point: leaf1/eth1
      vlan: 999
dhcpv4:
  default:
    - connect_point: leaf1/eth9
      server_ip: 192.168.100.2
      gateway_ip: 192.168.100.1
dhcpv6:
  default:
    - connect_point: leaf1/eth9
      server_ip: 2001:db8:100::2
interfaces:
  eth1:
    mac: 02:00:00:00:01:01
    vlan-id: 10
    address:
      ipv4: [10.0.0.1/24]
      ipv6: [2001:db8:1::1/64, fe80::1/64]
hosts:
  - mac: 02:00:00:00:09:01
    connect_point: leaf1/eth9
    ips: [192.168.100.1]
`

func TestParseAppliesDefaults(t *testing.T) {
	cfg, err := Parse([]byte(sample))
	require.NoError(t, err)
	require.Equal(t, DefaultPollInterval, cfg.Relay.PollInterval)
	require.Equal(t, DefaultAPIListen, cfg.API.Listen)

	ifaces, err := cfg.InterfaceModels()
	require.NoError(t, err)
	require.Len(t, ifaces, 1)
	require.Equal(t, models.ConnectPoint{Device: "leaf1", Port: "eth1"}, ifaces[0].ConnectPoint)
	require.Equal(t, models.VLAN(10), ifaces[0].VLAN)
	require.Equal(t, "10.0.0.1", ifaces[0].IPv4Addr().String())

	def, indirect, err := cfg.DHCPv4.Build(false)
	require.NoError(t, err)
	require.Len(t, def, 1)
	require.Empty(t, indirect)
	require.Equal(t, "192.168.100.1", def[0].ProbeIP().String())

	ignored, err := cfg.IgnoredVLANs()
	require.NoError(t, err)
	require.Equal(t, "leaf1/eth1:999", ignored[0].String())

	hosts, err := cfg.StaticHosts()
	require.NoError(t, err)
	require.Len(t, hosts, 1)
}

func TestValidateRejects(t *testing.T) {
	tests := map[string]string{
		"wrong family": `
dhcpv4:
  default:
    - connect_point: leaf1/eth9
      server_ip: 2001:db8::2
`,
		"bad connect point": `
dhcpv6:
  default:
    - connect_point: eth9
      server_ip: 2001:db8::2
`,
		"bad mac": `
interfaces:
  eth1:
    mac: nope
`,
		"vlan range": `
relay:
  ignore_vlans:
    - connect_point: leaf1/eth1
      vlan: 5000
`,
	}

	for name, doc := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := Parse([]byte(doc))
			require.Error(t, err)
		})
	}
}

func TestWatchReloads(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "dhcprelay.yaml")
	require.NoError(t, os.WriteFile(path, []byte(sample), 0644))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	got := make(chan *Config, 8)
	done := make(chan error, 1)
	go func() { done <- Watch(ctx, path, func(c *Config) { got <- c }) }()

	updated := sample + "\nmonitoring:\n  listen: 127.0.0.1:9100\n"
	deadline := time.After(5 * time.Second)
	tick := time.NewTicker(100 * time.Millisecond)
	defer tick.Stop()

	for {
		select {
		case cfg := <-got:
			if cfg.Monitoring.Listen == "" {
				continue
			}
			require.Equal(t, "127.0.0.1:9100", cfg.Monitoring.Listen)
			require.Equal(t, DefaultMetricsPath, cfg.Monitoring.Path)
			cancel()
			require.NoError(t, <-done)
			return
		case <-tick.C:
			require.NoError(t, os.WriteFile(path, []byte(updated), 0644))
		case <-deadline:
			t.Fatal("no reload observed")
		}
	}
}
