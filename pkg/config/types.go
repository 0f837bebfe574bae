package config

import (
	"time"

	"github.com/veesix-networks/dhcprelay/pkg/config/interfaces"
	"github.com/veesix-networks/dhcprelay/pkg/config/system"
)

const (
	DefaultDeviceID     = "relay1"
	DefaultPollInterval = 24 * time.Hour
	DefaultOpDBPath     = "/var/lib/dhcprelay/opdb.db"
	DefaultAPIListen    = "127.0.0.1:50051"
	DefaultMetricsPath  = "/metrics"
)

type Config struct {
	Logging    system.LoggingConfig                   `json:"logging,omitempty" yaml:"logging,omitempty"`
	Relay      RelayConfig                            `json:"relay,omitempty" yaml:"relay,omitempty"`
	DHCPv4     ServerGroupConfig                      `json:"dhcpv4,omitempty" yaml:"dhcpv4,omitempty"`
	DHCPv6     ServerGroupConfig                      `json:"dhcpv6,omitempty" yaml:"dhcpv6,omitempty"`
	Interfaces map[string]*interfaces.InterfaceConfig `json:"interfaces,omitempty" yaml:"interfaces,omitempty"`
	Hosts      []StaticHostConfig                     `json:"hosts,omitempty" yaml:"hosts,omitempty"`
	Dataplane  system.DataplaneConfig                 `json:"dataplane,omitempty" yaml:"dataplane,omitempty"`
	Routing    system.RoutingConfig                   `json:"routing,omitempty" yaml:"routing,omitempty"`
	OpDB       system.OpDBConfig                      `json:"opdb,omitempty" yaml:"opdb,omitempty"`
	Monitoring system.MonitoringConfig                `json:"monitoring,omitempty" yaml:"monitoring,omitempty"`
	API        system.APIConfig                       `json:"api,omitempty" yaml:"api,omitempty"`
}

type RelayConfig struct {
	DeviceID     string             `json:"device_id,omitempty" yaml:"device_id,omitempty"`
	PollInterval time.Duration      `json:"poll_interval,omitempty" yaml:"poll_interval,omitempty"`
	ARPEnabled   bool               `json:"arp_enabled,omitempty" yaml:"arp_enabled,omitempty"`
	Workers      int                `json:"workers,omitempty" yaml:"workers,omitempty"`
	IgnoreVLANs  []IgnoreVLANConfig `json:"ignore_vlans,omitempty" yaml:"ignore_vlans,omitempty"`
}

// IgnoreVLANConfig drops DHCP received on VLAN at ConnectPoint.
type IgnoreVLANConfig struct {
	ConnectPoint string `json:"connect_point" yaml:"connect_point"`
	VLAN         int    `json:"vlan" yaml:"vlan"`
}

type ServerGroupConfig struct {
	Default  []ServerConfig `json:"default,omitempty" yaml:"default,omitempty"`
	Indirect []ServerConfig `json:"indirect,omitempty" yaml:"indirect,omitempty"`
}

type ServerConfig struct {
	ConnectPoint string `json:"connect_point" yaml:"connect_point"`
	ServerIP     string `json:"server_ip" yaml:"server_ip"`
	GatewayIP    string `json:"gateway_ip,omitempty" yaml:"gateway_ip,omitempty"`
	RelayAgentIP string `json:"relay_agent_ip,omitempty" yaml:"relay_agent_ip,omitempty"`
}

type StaticHostConfig struct {
	MAC          string   `json:"mac" yaml:"mac"`
	VLAN         int      `json:"vlan,omitempty" yaml:"vlan,omitempty"`
	ConnectPoint string   `json:"connect_point" yaml:"connect_point"`
	IPs          []string `json:"ips" yaml:"ips"`
}
