package logger

const (
	Main      = "main"
	Relay     = "relay"
	ARP       = "arp"
	Dataplane = "dataplane"
	Events    = "events"
	Config    = "configd"
	Gateway   = "gateway"
	Servers   = "servers"
	Hosts     = "hosts"
	Routes    = "routes"
	OpDB      = "opdb"
	Exporter  = "exporter"

	RelayDHCP4   = "relay.dhcp4"
	RelayDHCP6   = "relay.dhcp6"
	RelaySweeper = "relay.sweeper"
)
