// Package relay is the dispatch core of the DHCP relay. It consumes DHCP
// frames from the dataplane, rewrites them toward servers or clients,
// keeps the lease record store current and installs host bindings and
// routes as leases are granted.
package relay

import (
	"context"
	"fmt"
	"hash/fnv"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/veesix-networks/dhcprelay/pkg/component"
	"github.com/veesix-networks/dhcprelay/pkg/config"
	"github.com/veesix-networks/dhcprelay/pkg/counters"
	"github.com/veesix-networks/dhcprelay/pkg/dataplane"
	"github.com/veesix-networks/dhcprelay/pkg/dhcp"
	"github.com/veesix-networks/dhcprelay/pkg/events"
	"github.com/veesix-networks/dhcprelay/pkg/hosts"
	"github.com/veesix-networks/dhcprelay/pkg/ifmgr"
	"github.com/veesix-networks/dhcprelay/pkg/logger"
	"github.com/veesix-networks/dhcprelay/pkg/models"
	"github.com/veesix-networks/dhcprelay/pkg/record"
	"github.com/veesix-networks/dhcprelay/pkg/routes"
	"github.com/veesix-networks/dhcprelay/pkg/servers"
)

const (
	defaultWorkers = 4
	workerQueueLen = 256
)

type Component struct {
	*component.Base
	logger *slog.Logger
	log4   *slog.Logger
	log6   *slog.Logger

	bus      events.Bus
	ifaces   *ifmgr.Manager
	hosts    *hosts.Store
	routes   routes.Store
	records  record.Store
	counters *counters.Set
	egress   dataplane.Emitter
	dhcpChan <-chan dataplane.Frame

	v4 *servers.Manager
	v6 *servers.Manager

	ignored atomic.Pointer[map[models.PortVLAN]struct{}]
	period  time.Duration
	workers int
	now     func() time.Time

	subs []events.Subscription
}

func New(deps component.Dependencies) (component.Component, error) {
	return NewComponent(deps)
}

// NewComponent is New with the concrete type, for callers that need the
// record and counter lookups.
func NewComponent(deps component.Dependencies) (*Component, error) {
	switch {
	case deps.Config == nil:
		return nil, fmt.Errorf("relay: config is required")
	case deps.Interfaces == nil, deps.Hosts == nil:
		return nil, fmt.Errorf("relay: interface and host stores are required")
	case deps.Records == nil:
		return nil, fmt.Errorf("relay: record store is required")
	case deps.Egress == nil:
		return nil, fmt.Errorf("relay: egress is required")
	}

	routeStore := deps.Routes
	if routeStore == nil {
		routeStore = routes.NewMemory()
	}
	set := deps.Counters
	if set == nil {
		set = counters.New()
	}

	period := deps.Config.Relay.PollInterval
	if period <= 0 {
		period = config.DefaultPollInterval
	}
	workers := deps.Config.Relay.Workers
	if workers <= 0 {
		workers = defaultWorkers
	}

	c := &Component{
		Base:     component.NewBase("relay"),
		logger:   logger.Get(logger.Relay),
		log4:     logger.Get(logger.RelayDHCP4),
		log6:     logger.Get(logger.RelayDHCP6),
		bus:      deps.EventBus,
		ifaces:   deps.Interfaces,
		hosts:    deps.Hosts,
		routes:   routeStore,
		records:  deps.Records,
		counters: set,
		egress:   deps.Egress,
		dhcpChan: deps.DHCPChan,
		v4:       servers.New("dhcpv4", deps.Hosts),
		v6:       servers.New("dhcpv6", deps.Hosts),
		period:   period,
		workers:  workers,
		now:      time.Now,
	}
	if err := c.ApplyConfig(deps.Config); err != nil {
		return nil, err
	}
	return c, nil
}

// ApplyConfig replaces server lists, ignored VLANs and relay interfaces.
// Records survive.
func (c *Component) ApplyConfig(cfg *config.Config) error {
	ifaces, err := cfg.InterfaceModels()
	if err != nil {
		return err
	}
	def4, ind4, err := cfg.DHCPv4.Build(false)
	if err != nil {
		return fmt.Errorf("dhcpv4: %w", err)
	}
	def6, ind6, err := cfg.DHCPv6.Build(true)
	if err != nil {
		return fmt.Errorf("dhcpv6: %w", err)
	}
	ignored, err := cfg.IgnoredVLANs()
	if err != nil {
		return err
	}

	c.ifaces.Replace(ifaces)

	c.v4.SetDefault(def4)
	c.v4.SetIndirect(ind4)
	c.v6.SetDefault(def6)
	c.v6.SetIndirect(ind6)

	set := make(map[models.PortVLAN]struct{}, len(ignored))
	for _, pv := range ignored {
		set[pv] = struct{}{}
	}
	c.ignored.Store(&set)

	if cfg.Relay.PollInterval > 0 && cfg.Relay.PollInterval != c.period {
		c.logger.Warn("Poll interval change takes effect on restart", "current", c.period, "configured", cfg.Relay.PollInterval)
	}

	c.logger.Info("Relay configuration applied",
		"interfaces", len(ifaces),
		"dhcpv4_servers", len(def4), "dhcpv4_indirect", len(ind4),
		"dhcpv6_servers", len(def6), "dhcpv6_indirect", len(ind6),
		"ignored_vlans", len(ignored))
	return nil
}

func (c *Component) Start(ctx context.Context) error {
	c.StartContext(ctx)

	if c.bus != nil {
		for _, topic := range events.HostTopics {
			c.subs = append(c.subs, c.bus.Subscribe(topic, c.onHostEvent))
		}
		c.subs = append(c.subs, c.bus.Subscribe(events.TopicConfigChanged, c.onConfigChanged))
	}

	if c.dhcpChan != nil {
		queues := make([]chan dataplane.Frame, c.workers)
		for i := range queues {
			q := make(chan dataplane.Frame, workerQueueLen)
			queues[i] = q
			c.Go(func() { c.work(q) })
		}
		c.Go(func() { c.distribute(queues) })
	}
	c.Go(c.sweepLoop)

	c.logger.Info("Relay started", "workers", c.workers, "poll_interval", c.period)
	return nil
}

func (c *Component) Stop(ctx context.Context) error {
	for _, sub := range c.subs {
		sub.Unsubscribe()
	}
	c.subs = nil
	c.StopContext()
	c.logger.Info("Relay stopped")
	return nil
}

// distribute shards frames by source MAC so one flow is always handled by
// the same worker, in arrival order.
func (c *Component) distribute(queues []chan dataplane.Frame) {
	for {
		select {
		case <-c.Ctx.Done():
			return
		case f, ok := <-c.dhcpChan:
			if !ok {
				return
			}
			q := queues[shard(f.Data, len(queues))]
			select {
			case q <- f:
			case <-c.Ctx.Done():
				return
			}
		}
	}
}

func shard(frame []byte, n int) int {
	if n <= 1 || len(frame) < 12 {
		return 0
	}
	h := fnv.New32a()
	h.Write(frame[6:12])
	return int(h.Sum32() % uint32(n))
}

func (c *Component) work(q <-chan dataplane.Frame) {
	for {
		select {
		case <-c.Ctx.Done():
			return
		case f := <-q:
			c.HandleFrame(f)
		}
	}
}

// HandleFrame runs one received frame to completion.
func (c *Component) HandleFrame(f dataplane.Frame) {
	fr, err := dhcp.DecodeFrame(f.Data)
	if err != nil {
		c.counters.Inc(counters.InvalidPacket)
		c.logger.Debug("Dropping undecodable frame", "port", f.Port.String(), "error", err)
		return
	}

	if set := c.ignored.Load(); set != nil {
		if _, skip := (*set)[models.PortVLAN{ConnectPoint: f.Port, VLAN: fr.VLAN}]; skip {
			c.counters.Inc(counters.IgnoredVLAN)
			c.logger.Debug("Dropping DHCP on ignored VLAN", "port", f.Port.String(), "vlan", fr.VLAN.String())
			return
		}
	}

	if fr.IsIPv6() {
		c.handleDHCPv6(f.Port, fr)
		return
	}
	c.handleDHCPv4(f.Port, fr)
}

func (c *Component) onHostEvent(e events.Event) {
	he, ok := e.Data.(events.HostEvent)
	if !ok {
		return
	}
	c.v4.HandleHostEvent(he)
	c.v6.HandleHostEvent(he)
}

func (c *Component) onConfigChanged(e events.Event) {
	cfg, ok := e.Data.(*config.Config)
	if !ok || cfg == nil {
		return
	}
	if err := c.ApplyConfig(cfg); err != nil {
		c.logger.Error("Rejected configuration update", "error", err)
	}
}

// emit encodes and transmits an output frame, counting drops on failure.
func (c *Component) emit(l *slog.Logger, egress models.ConnectPoint, fr *dhcp.Frame) bool {
	data, err := fr.Encode()
	if err != nil {
		c.counters.Inc(counters.InvalidPacket)
		l.Warn("Failed to encode frame", "egress", egress.String(), "error", err)
		return false
	}
	if err := c.egress.Emit(dataplane.Frame{Port: egress, Data: data}); err != nil {
		l.Warn("Failed to emit frame", "egress", egress.String(), "error", err)
		return false
	}
	return true
}

func (c *Component) drop(l *slog.Logger, reason string, args ...any) {
	c.counters.Inc(reason)
	l.Debug("Dropping packet", append([]any{"reason", reason}, args...)...)
}
