package relay

import (
	"time"

	"github.com/veesix-networks/dhcprelay/pkg/dhcp"
	"github.com/veesix-networks/dhcprelay/pkg/logger"
	"inet.af/netaddr"
)

func (c *Component) sweepLoop() {
	ticker := time.NewTicker(c.period)
	defer ticker.Stop()

	for {
		select {
		case <-c.Ctx.Done():
			return
		case <-ticker.C:
			c.Sweep(c.now())
		}
	}
}

// Sweep expires v6 addresses and prefixes whose preferred lifetime, plus
// half a poll period of grace, has passed since the last REPLY. A record
// whose last v6 lease expired in this pass is deleted when it holds no v4
// address either. Records that never held a v6 lease are left alone. Returns
// how many records changed.
func (c *Component) Sweep(now time.Time) int {
	l := logger.Get(logger.RelaySweeper)
	grace := c.period / 2
	changed := 0

	for _, rec := range c.records.All() {
		if rec.IP6Status == dhcp.Unsupported6 {
			continue
		}

		touched := false
		if rec.HasIP6Address() && now.Sub(rec.LastIP6AddrUpdate) > rec.AddrPreferredLifetime+grace {
			l.Info("IPv6 address expired", "host", rec.HostID.String(), "ip", rec.IP6Address.String())
			c.unbindAddress6(l, rec, rec.IP6Address)
			rec.IP6Address = nil
			rec.AddrPreferredLifetime = 0
			touched = true
		}
		if rec.HasPDPrefix() && now.Sub(rec.LastIP6PDUpdate) > rec.PDPreferredLifetime+grace {
			l.Info("Delegated prefix expired", "host", rec.HostID.String(), "prefix", rec.PDPrefix.String())
			c.unbindPrefix6(l, rec, rec.PDPrefix)
			rec.PDPrefix = netaddr.IPPrefix{}
			rec.PDPreferredLifetime = 0
			touched = true
		}

		if touched && !rec.HasIP6Address() && !rec.HasPDPrefix() {
			if rec.IP4Address == nil {
				c.records.Remove(rec.HostID)
				changed++
				continue
			}
			rec.IP6Status = dhcp.Unsupported6
			touched = true
		}
		if touched {
			c.records.Put(rec.HostID, rec)
			changed++
		}
	}

	if changed > 0 {
		l.Debug("Lease sweep finished", "changed", changed)
	}
	return changed
}
