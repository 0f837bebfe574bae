// Package arp learns neighbors from ARP and IPv6 neighbor discovery,
// answers for relay interface addresses and probes the next hops the
// server managers are waiting on.
package arp

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"time"

	"github.com/veesix-networks/dhcprelay/pkg/arp"
	"github.com/veesix-networks/dhcprelay/pkg/component"
	"github.com/veesix-networks/dhcprelay/pkg/dataplane"
	"github.com/veesix-networks/dhcprelay/pkg/hosts"
	"github.com/veesix-networks/dhcprelay/pkg/ifmgr"
	"github.com/veesix-networks/dhcprelay/pkg/logger"
	"github.com/veesix-networks/dhcprelay/pkg/models"
)

const defaultProbeInterval = 10 * time.Second

type Component struct {
	*component.Base

	logger *slog.Logger
	frames <-chan dataplane.Frame
	egress dataplane.Emitter
	ifaces *ifmgr.Manager
	hosts  *hosts.Store

	probeInterval time.Duration
}

func New(deps component.Dependencies) (component.Component, error) {
	if deps.ARPChan == nil || deps.Egress == nil {
		return nil, fmt.Errorf("arp: packet channel and egress are required")
	}
	if deps.Interfaces == nil || deps.Hosts == nil {
		return nil, fmt.Errorf("arp: interface and host stores are required")
	}

	return &Component{
		Base:          component.NewBase("arp"),
		logger:        logger.Get(logger.ARP),
		frames:        deps.ARPChan,
		egress:        deps.Egress,
		ifaces:        deps.Interfaces,
		hosts:         deps.Hosts,
		probeInterval: defaultProbeInterval,
	}, nil
}

func (c *Component) Start(ctx context.Context) error {
	c.StartContext(ctx)
	c.logger.Info("Starting neighbor component", "probe_interval", c.probeInterval)

	c.Go(c.readLoop)
	c.Go(c.probeLoop)
	return nil
}

func (c *Component) Stop(ctx context.Context) error {
	c.logger.Info("Stopping neighbor component")
	c.StopContext()
	return nil
}

func (c *Component) readLoop() {
	for {
		select {
		case <-c.Ctx.Done():
			return
		case f, ok := <-c.frames:
			if !ok {
				return
			}
			if err := c.handleFrame(f); err != nil {
				c.logger.Debug("Error handling neighbor packet", "port", f.Port.String(), "error", err)
			}
		}
	}
}

func (c *Component) handleFrame(f dataplane.Frame) error {
	pkt, err := arp.Decode(f.Data)
	if err != nil {
		return err
	}

	iface := c.ifaces.InterfaceOnPort(f.Port, pkt.VLAN)
	if iface == nil {
		return fmt.Errorf("no relay interface on %s vlan %s", f.Port, pkt.VLAN)
	}

	c.learn(f.Port, iface, pkt)

	if pkt.Operation != arp.OpRequest || !iface.HasIP(pkt.TargetIP) {
		return nil
	}

	reply, err := arp.Reply(pkt, iface.MAC)
	if err != nil {
		return err
	}
	if err := c.egress.Emit(dataplane.Frame{Port: f.Port, Data: reply}); err != nil {
		return fmt.Errorf("emit reply: %w", err)
	}
	c.logger.Debug("Answered neighbor request", "port", f.Port.String(), "target_ip", pkt.TargetIP.String(), "requester", pkt.SenderMAC.String())
	return nil
}

// learn records the sender when it is on the interface's subnet, or is
// link-local for IPv6.
func (c *Component) learn(cp models.ConnectPoint, iface *models.Interface, pkt *arp.Packet) {
	ip := pkt.SenderIP
	if ip == nil || ip.IsUnspecified() || len(pkt.SenderMAC) == 0 || iface.HasIP(ip) {
		return
	}
	if !iface.InSubnet(ip) && !ip.IsLinkLocalUnicast() {
		return
	}

	id := models.NewHostID(pkt.SenderMAC, pkt.VLAN)
	if h, ok := c.hosts.Host(id); ok && h.HasIP(ip) && h.Location.ConnectPoint == cp {
		return
	}
	c.hosts.Learn(hosts.ProviderARP, id, ip, cp)
	c.logger.Debug("Learned neighbor", "mac", pkt.SenderMAC.String(), "vlan", pkt.VLAN.String(), "ip", ip.String(), "port", cp.String())
}

func (c *Component) probeLoop() {
	c.Probe()

	ticker := time.NewTicker(c.probeInterval)
	defer ticker.Stop()

	for {
		select {
		case <-c.Ctx.Done():
			return
		case <-ticker.C:
			c.Probe()
		}
	}
}

// Probe solicits every monitored address no host answers for yet, out of
// each relay interface whose subnet contains it. Returns the number of
// requests sent.
func (c *Component) Probe() int {
	sent := 0
	for _, ip := range c.hosts.Monitored() {
		if len(c.hosts.HostsByIP(ip)) > 0 {
			continue
		}
		for _, iface := range c.ifaces.InterfacesForSubnet(ip) {
			src := sourceFor(iface, ip)
			if src == nil {
				continue
			}
			req, err := arp.Request(iface.MAC, src, ip, iface.VLAN)
			if err != nil {
				c.logger.Warn("Failed to build neighbor request", "ip", ip.String(), "error", err)
				continue
			}
			if err := c.egress.Emit(dataplane.Frame{Port: iface.ConnectPoint, Data: req}); err != nil {
				c.logger.Warn("Failed to send neighbor request", "ip", ip.String(), "port", iface.ConnectPoint.String(), "error", err)
				continue
			}
			sent++
		}
	}
	if sent > 0 {
		c.logger.Debug("Probed unresolved next hops", "requests", sent)
	}
	return sent
}

func sourceFor(iface *models.Interface, target net.IP) net.IP {
	if target.To4() != nil {
		return iface.IPv4Addr()
	}
	if ll := iface.LinkLocal(); ll != nil {
		return ll
	}
	return iface.IPv6Addr()
}
