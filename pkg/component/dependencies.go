package component

import (
	"github.com/veesix-networks/dhcprelay/pkg/config"
	"github.com/veesix-networks/dhcprelay/pkg/counters"
	"github.com/veesix-networks/dhcprelay/pkg/dataplane"
	"github.com/veesix-networks/dhcprelay/pkg/events"
	"github.com/veesix-networks/dhcprelay/pkg/hosts"
	"github.com/veesix-networks/dhcprelay/pkg/ifmgr"
	"github.com/veesix-networks/dhcprelay/pkg/record"
	"github.com/veesix-networks/dhcprelay/pkg/routes"
)

type Dependencies struct {
	EventBus   events.Bus
	Config     *config.Config
	Interfaces *ifmgr.Manager
	Hosts      *hosts.Store
	Routes     routes.Store
	Records    record.Store
	Counters   *counters.Set
	PacketIO   dataplane.PacketIO

	DHCPChan <-chan dataplane.Frame
	ARPChan  <-chan dataplane.Frame
	Egress   dataplane.Emitter
}
