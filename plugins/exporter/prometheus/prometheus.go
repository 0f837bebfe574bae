package prometheus

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/veesix-networks/dhcprelay/pkg/component"
	"github.com/veesix-networks/dhcprelay/pkg/logger"
	"github.com/veesix-networks/dhcprelay/plugins/exporter/prometheus/metrics"
)

const Namespace = "exporter.prometheus"

const defaultPath = "/metrics"

func init() {
	component.Register(Namespace, New)
}

type Component struct {
	*component.Base
	logger   *slog.Logger
	source   metrics.Source
	addr     string
	path     string
	registry *prometheus.Registry
	server   *http.Server

	mu      sync.RWMutex
	running bool
	bound   string
}

// New returns nil when no monitoring listen address is configured.
func New(deps component.Dependencies) (component.Component, error) {
	if deps.Config == nil || deps.Config.Monitoring.Listen == "" {
		return nil, nil
	}

	path := deps.Config.Monitoring.Path
	if path == "" {
		path = defaultPath
	}

	c := &Component{
		Base:   component.NewBase(Namespace),
		logger: logger.Get(logger.Exporter),
		source: metrics.Source{
			Counters: deps.Counters,
			Records:  deps.Records,
			Hosts:    deps.Hosts,
		},
		addr: deps.Config.Monitoring.Listen,
		path: path,
	}

	handlers, err := metrics.DefaultRegistry().CreateHandlers(c.logger)
	if err != nil {
		return nil, fmt.Errorf("create metric handlers: %w", err)
	}
	c.registry = prometheus.NewRegistry()
	if err := c.registry.Register(&collector{source: c.source, logger: c.logger, handlers: handlers}); err != nil {
		return nil, fmt.Errorf("register collector: %w", err)
	}
	c.logger.Info("Registered metric handlers", "count", len(handlers))
	return c, nil
}

// Registry exposes the gatherer backing the HTTP handler.
func (c *Component) Registry() *prometheus.Registry {
	return c.registry
}

// Addr is the bound listen address once the server is running.
func (c *Component) Addr() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.bound != "" {
		return c.bound
	}
	return c.addr
}

func (c *Component) Running() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.running
}

func (c *Component) Start(ctx context.Context) error {
	c.StartContext(ctx)
	c.logger.Info("Starting Prometheus exporter", "addr", c.addr, "path", c.path)

	lis, err := net.Listen("tcp", c.addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", c.addr, err)
	}

	mux := http.NewServeMux()
	mux.Handle(c.path, promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{}))
	c.server = &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	c.mu.Lock()
	c.running = true
	c.bound = lis.Addr().String()
	c.mu.Unlock()

	c.Go(func() {
		if err := c.server.Serve(lis); err != nil && !errors.Is(err, http.ErrServerClosed) {
			c.logger.Error("Prometheus HTTP server error", "error", err)
		}
		c.mu.Lock()
		c.running = false
		c.mu.Unlock()
	})
	return nil
}

func (c *Component) Stop(ctx context.Context) error {
	c.logger.Info("Stopping Prometheus exporter")

	if c.server != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		c.server.Shutdown(shutdownCtx)
	}

	c.StopContext()
	return nil
}

type collector struct {
	source   metrics.Source
	logger   *slog.Logger
	handlers []metrics.MetricHandler
}

func (pc *collector) Describe(ch chan<- *prometheus.Desc) {
	for _, handler := range pc.handlers {
		handler.Describe(ch)
	}
}

func (pc *collector) Collect(ch chan<- prometheus.Metric) {
	ctx := context.Background()
	for _, handler := range pc.handlers {
		if err := handler.Collect(ctx, pc.source, ch); err != nil {
			pc.logger.Error("Failed to collect metrics", "handler", handler.Name(), "error", err)
		}
	}
}
