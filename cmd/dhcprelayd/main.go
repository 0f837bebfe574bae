package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/veesix-networks/dhcprelay/internal/arp"
	"github.com/veesix-networks/dhcprelay/internal/dataplane"
	"github.com/veesix-networks/dhcprelay/internal/gateway"
	"github.com/veesix-networks/dhcprelay/internal/relay"
	"github.com/veesix-networks/dhcprelay/pkg/component"
	"github.com/veesix-networks/dhcprelay/pkg/config"
	"github.com/veesix-networks/dhcprelay/pkg/counters"
	"github.com/veesix-networks/dhcprelay/pkg/dataplane/afpacket"
	"github.com/veesix-networks/dhcprelay/pkg/events"
	"github.com/veesix-networks/dhcprelay/pkg/events/local"
	"github.com/veesix-networks/dhcprelay/pkg/hosts"
	"github.com/veesix-networks/dhcprelay/pkg/ifmgr"
	"github.com/veesix-networks/dhcprelay/pkg/logger"
	"github.com/veesix-networks/dhcprelay/pkg/opdb"
	"github.com/veesix-networks/dhcprelay/pkg/opdb/sqlite"
	"github.com/veesix-networks/dhcprelay/pkg/record/journal"
	"github.com/veesix-networks/dhcprelay/pkg/record/memory"
	"github.com/veesix-networks/dhcprelay/pkg/routes"
	"github.com/veesix-networks/dhcprelay/pkg/routes/netlink"
	"github.com/veesix-networks/dhcprelay/pkg/version"
	_ "github.com/veesix-networks/dhcprelay/plugins/all"
)

func main() {
	configPath := flag.String("config", "configs/config.yaml", "Path to configuration file")
	showVersion := flag.Bool("version", false, "Print version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Println("dhcprelayd", version.Full())
		return
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	if cfg.Logging.File != nil && cfg.Logging.File.Path != "" {
		out := logger.OpenFile(*cfg.Logging.File)
		defer out.Close()
		logger.SetOutput(out)
	}
	configureLogging(cfg)

	mainLog := logger.Get(logger.Main)
	mainLog.Info("Starting dhcprelay", "version", version.Version, "device_id", cfg.Relay.DeviceID)

	eventBus := local.NewBus()
	defer eventBus.Close()

	ifaces := ifmgr.New()
	hostStore := hosts.New(eventBus)
	static, err := cfg.StaticHosts()
	if err != nil {
		log.Fatalf("Invalid static hosts: %v", err)
	}
	for _, h := range static {
		hostStore.CreateOrUpdateHost(hosts.ProviderStatic, h.ID, hosts.Description{Location: h.Location, IPs: h.IPs})
	}

	db, err := sqlite.Open(cfg.OpDB.Path)
	if err != nil {
		log.Fatalf("Failed to open operational database: %v", err)
	}
	defer db.Close()

	records := journal.New(memory.New(), db, opdb.NamespaceRecords)
	providers := opdb.NewProviderRegistry()
	providers.Register(records)
	if err := providers.RestoreAll(context.Background(), db); err != nil {
		mainLog.Warn("Failed to restore records", "error", err)
	}

	packetIO, err := afpacket.New(afpacket.Config{
		Device:     cfg.Relay.DeviceID,
		Ports:      cfg.Dataplane.Ports,
		RecvBuffer: cfg.Dataplane.RecvBuffer,
	})
	if err != nil {
		log.Fatalf("Failed to open packet ports: %v", err)
	}

	var routeStore routes.Store = routes.NewMemory()
	if cfg.Routing.Enabled {
		nl, err := netlink.New(netlink.Config{Netns: cfg.Routing.Netns, Table: cfg.Routing.Table})
		if err != nil {
			log.Fatalf("Failed to open routing table: %v", err)
		}
		defer nl.Close()
		routeStore = nl
	}

	deps := component.Dependencies{
		EventBus:   eventBus,
		Config:     cfg,
		Interfaces: ifaces,
		Hosts:      hostStore,
		Routes:     routeStore,
		Records:    records,
		Counters:   counters.New(),
		PacketIO:   packetIO,
	}

	dataplaneComp, err := dataplane.New(deps)
	if err != nil {
		log.Fatalf("Failed to create dataplane component: %v", err)
	}
	dpComp := dataplaneComp.(*dataplane.Component)
	deps.DHCPChan = dpComp.DHCPChan
	deps.ARPChan = dpComp.ARPChan
	deps.Egress = dpComp

	relayComp, err := relay.NewComponent(deps)
	if err != nil {
		log.Fatalf("Failed to create relay component: %v", err)
	}

	orch := component.NewOrchestrator()
	orch.Register(dataplaneComp)
	orch.Register(relayComp)

	if cfg.Relay.ARPEnabled {
		arpComp, err := arp.New(deps)
		if err != nil {
			log.Fatalf("Failed to create arp component: %v", err)
		}
		orch.Register(arpComp)
	}

	orch.Register(gateway.New(relayComp, cfg.API.Listen))

	pluginComponents, err := component.LoadAll(deps)
	if err != nil {
		log.Fatalf("Failed to load plugin components: %v", err)
	}
	for _, comp := range pluginComponents {
		mainLog.Info("Loaded plugin component", "name", comp.Name())
		orch.Register(comp)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := orch.Start(ctx); err != nil {
		log.Fatalf("Failed to start components: %v", err)
	}

	go func() {
		err := config.Watch(ctx, *configPath, func(next *config.Config) {
			configureLogging(next)
			eventBus.Publish(events.TopicConfigChanged, events.Event{
				Type:   events.TopicConfigChanged,
				Source: "main",
				Data:   next,
			})
		})
		if err != nil {
			mainLog.Warn("Config watcher stopped", "error", err)
		}
	}()

	mainLog.Info("dhcprelay started successfully")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	mainLog.Info("Shutting down dhcprelay...")
	cancel()

	if err := orch.Stop(context.Background()); err != nil {
		mainLog.Error("Error stopping components", "error", err)
	}

	mainLog.Info("dhcprelay stopped")
}

func configureLogging(cfg *config.Config) {
	levels := make(map[string]logger.LogLevel, len(cfg.Logging.Components))
	for name, level := range cfg.Logging.Components {
		levels[name] = logger.LogLevel(level)
	}
	logger.Configure(cfg.Logging.Format, logger.LogLevel(cfg.Logging.Level), levels)
}
