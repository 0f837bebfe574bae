package dataplane

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/veesix-networks/dhcprelay/pkg/component"
	"github.com/veesix-networks/dhcprelay/pkg/dataplane"
	"github.com/veesix-networks/dhcprelay/pkg/logger"
)

const channelSize = 1000

// Component demultiplexes received frames to the DHCP and ARP handlers and
// carries their output back to the ports.
type Component struct {
	*component.Base

	logger *slog.Logger
	io     dataplane.PacketIO

	DHCPChan chan dataplane.Frame
	ARPChan  chan dataplane.Frame

	rxCount      atomic.Int64
	egressCount  atomic.Int64
	egressErrors atomic.Int64
}

var _ dataplane.Emitter = (*Component)(nil)

func New(deps component.Dependencies) (component.Component, error) {
	if deps.PacketIO == nil {
		return nil, fmt.Errorf("dataplane: no packet io configured")
	}
	return &Component{
		Base:     component.NewBase("dataplane"),
		logger:   logger.Get(logger.Dataplane),
		io:       deps.PacketIO,
		DHCPChan: make(chan dataplane.Frame, channelSize),
		ARPChan:  make(chan dataplane.Frame, channelSize),
	}, nil
}

func (c *Component) Start(ctx context.Context) error {
	c.StartContext(ctx)
	c.logger.Info("Starting dataplane component")

	c.Go(func() {
		if err := c.io.Run(c.Ctx); err != nil {
			c.logger.Error("Packet I/O stopped", "error", err)
		}
	})
	c.Go(c.readLoop)
	c.Go(c.statsLoop)

	return nil
}

func (c *Component) Stop(ctx context.Context) error {
	c.logger.Info("Stopping dataplane component")
	c.io.Close()
	c.StopContext()
	return nil
}

func (c *Component) readLoop() {
	frames := c.io.Frames()
	for {
		select {
		case <-c.Ctx.Done():
			return
		case f, ok := <-frames:
			if !ok {
				return
			}
			c.rxCount.Add(1)
			c.dispatch(f)
		}
	}
}

func (c *Component) dispatch(f dataplane.Frame) {
	switch p := dataplane.Classify(f.Data); p {
	case dataplane.ProtocolDHCPv4, dataplane.ProtocolDHCPv6:
		select {
		case c.DHCPChan <- f:
		default:
			c.logger.Warn("DHCP channel full, dropping packet", "port", f.Port.String())
		}
	case dataplane.ProtocolARP, dataplane.ProtocolNDP:
		select {
		case c.ARPChan <- f:
		default:
			c.logger.Warn("Neighbor channel full, dropping packet", "port", f.Port.String(), "protocol", p.String())
		}
	default:
		c.logger.Debug("Ignoring frame", "port", f.Port.String(), "protocol", p.String())
	}
}

// Emit sends f on its port.
func (c *Component) Emit(f dataplane.Frame) error {
	if err := c.io.Emit(f); err != nil {
		c.egressErrors.Add(1)
		return fmt.Errorf("send packet: %w", err)
	}
	c.egressCount.Add(1)
	c.logger.Debug("Sent egress packet", "port", f.Port.String(), "size", len(f.Data))
	return nil
}

func (c *Component) statsLoop() {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()
	var lastRx, lastTx, lastErrors int64
	for {
		select {
		case <-c.Ctx.Done():
			return
		case <-ticker.C:
			rx, tx, errs := c.rxCount.Load(), c.egressCount.Load(), c.egressErrors.Load()
			if rx != lastRx || tx != lastTx || errs != lastErrors {
				c.logger.Info("Dataplane stats", "total_received", rx, "total_sent", tx, "total_errors", errs)
				lastRx, lastTx, lastErrors = rx, tx, errs
			}
		}
	}
}
