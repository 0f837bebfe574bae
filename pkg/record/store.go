package record

import "github.com/veesix-networks/dhcprelay/pkg/models"

// Store holds one DhcpRecord per host identity. Implementations copy records
// on the way in and out so a stored snapshot is never aliased.
type Store interface {
	Get(id models.HostID) (*DhcpRecord, bool)
	Put(id models.HostID, rec *DhcpRecord)
	Remove(id models.HostID) (*DhcpRecord, bool)
	RemoveIf(pred func(*DhcpRecord) bool) []*DhcpRecord
	All() []*DhcpRecord
}

// GetOrNew returns a copy of the stored record or a fresh one.
func GetOrNew(s Store, id models.HostID) *DhcpRecord {
	if rec, ok := s.Get(id); ok {
		return rec
	}
	return New(id)
}

// ByMAC returns every record for mac regardless of VLAN.
func ByMAC(s Store, mac string) []*DhcpRecord {
	var out []*DhcpRecord
	for _, rec := range s.All() {
		if rec.HostID.MAC.String() == mac {
			out = append(out, rec)
		}
	}
	return out
}
