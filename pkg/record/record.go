package record

import (
	"errors"
	"net"
	"time"

	"github.com/veesix-networks/dhcprelay/pkg/dhcp"
	"github.com/veesix-networks/dhcprelay/pkg/models"
	"inet.af/netaddr"
)

var ErrNotFound = errors.New("record not found")

// DhcpRecord is the relay's lease bookkeeping for one host identity.
type DhcpRecord struct {
	HostID models.HostID `json:"host_id"`

	IP4Address net.IP            `json:"ip4_address,omitempty"`
	IP4Status  dhcp.MessageType4 `json:"ip4_status,omitempty"`

	IP6Address            net.IP            `json:"ip6_address,omitempty"`
	IP6Status             dhcp.MessageType6 `json:"ip6_status,omitempty"`
	PDPrefix              netaddr.IPPrefix  `json:"pd_prefix"`
	AddrPreferredLifetime time.Duration     `json:"addr_preferred_lifetime,omitempty"`
	PDPreferredLifetime   time.Duration     `json:"pd_preferred_lifetime,omitempty"`
	LastIP6AddrUpdate     time.Time         `json:"last_ip6_addr_update"`
	LastIP6PDUpdate       time.Time         `json:"last_ip6_pd_update"`

	Locations         []models.HostLocation `json:"locations"`
	DirectlyConnected bool                  `json:"directly_connected"`
	NextHop           net.HardwareAddr      `json:"next_hop,omitempty"`
	LastSeen          time.Time             `json:"last_seen"`

	Counters map[string]uint64 `json:"counters,omitempty"`
}

func New(id models.HostID) *DhcpRecord {
	return &DhcpRecord{
		HostID:            models.NewHostID(id.MAC, id.VLAN),
		DirectlyConnected: true,
		Counters:          make(map[string]uint64),
	}
}

// Clone returns a deep copy. Callers mutate the copy and Put it back.
func (r *DhcpRecord) Clone() *DhcpRecord {
	if r == nil {
		return nil
	}
	out := *r
	out.HostID = models.NewHostID(r.HostID.MAC, r.HostID.VLAN)
	out.IP4Address = cloneIP(r.IP4Address)
	out.IP6Address = cloneIP(r.IP6Address)
	out.NextHop = nil
	if r.NextHop != nil {
		out.NextHop = append(net.HardwareAddr{}, r.NextHop...)
	}
	out.Locations = append([]models.HostLocation(nil), r.Locations...)
	out.Counters = make(map[string]uint64, len(r.Counters))
	for k, v := range r.Counters {
		out.Counters[k] = v
	}
	return &out
}

// AddLocation records a sighting at cp. An existing entry for the same
// connect point has its timestamp refreshed.
func (r *DhcpRecord) AddLocation(cp models.ConnectPoint, at time.Time) {
	for i := range r.Locations {
		if r.Locations[i].ConnectPoint == cp {
			r.Locations[i].Time = at
			return
		}
	}
	r.Locations = append(r.Locations, models.HostLocation{ConnectPoint: cp, Time: at})
}

// LatestLocation returns the most recently seen location.
func (r *DhcpRecord) LatestLocation() (models.HostLocation, bool) {
	if len(r.Locations) == 0 {
		return models.HostLocation{}, false
	}
	latest := r.Locations[0]
	for _, l := range r.Locations[1:] {
		if l.Time.After(latest.Time) {
			latest = l
		}
	}
	return latest, true
}

func (r *DhcpRecord) HasIP6Address() bool {
	return len(r.IP6Address) > 0
}

func (r *DhcpRecord) HasPDPrefix() bool {
	return !r.PDPrefix.IsZero()
}

func (r *DhcpRecord) Count(name string) {
	if r.Counters == nil {
		r.Counters = make(map[string]uint64)
	}
	r.Counters[name]++
}

func (r *DhcpRecord) Touch(at time.Time) {
	r.LastSeen = at
}

func cloneIP(ip net.IP) net.IP {
	if ip == nil {
		return nil
	}
	return append(net.IP(nil), ip...)
}
