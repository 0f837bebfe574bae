package relay

import (
	"sort"

	"github.com/veesix-networks/dhcprelay/pkg/models"
	"github.com/veesix-networks/dhcprelay/pkg/record"
	"github.com/veesix-networks/dhcprelay/pkg/servers"
)

// Records returns a snapshot of every record ordered by host id.
func (c *Component) Records() []*record.DhcpRecord {
	all := c.records.All()
	sort.Slice(all, func(i, j int) bool {
		return all[i].HostID.Key() < all[j].HostID.Key()
	})
	return all
}

func (c *Component) Record(id models.HostID) (*record.DhcpRecord, error) {
	rec, ok := c.records.Get(id)
	if !ok {
		return nil, record.ErrNotFound
	}
	return rec, nil
}

func (c *Component) Counters() map[string]uint64 {
	return c.counters.Snapshot()
}

func (c *Component) ResetCounters() {
	c.counters.Reset()
}

// ServerStatus pairs a family with its configured server entries.
type ServerStatus struct {
	Family  string
	List    servers.List
	Servers []servers.ServerInfo
}

func (c *Component) Servers() []ServerStatus {
	var out []ServerStatus
	for _, fam := range []struct {
		name string
		m    *servers.Manager
	}{{"dhcpv4", c.v4}, {"dhcpv6", c.v6}} {
		for _, l := range []servers.List{servers.Default, servers.Indirect} {
			out = append(out, ServerStatus{Family: fam.name, List: l, Servers: fam.m.Servers(l)})
		}
	}
	return out
}
