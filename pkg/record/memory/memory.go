package memory

import (
	"hash/fnv"
	"sort"
	"sync"

	"github.com/veesix-networks/dhcprelay/pkg/models"
	"github.com/veesix-networks/dhcprelay/pkg/record"
)

const shardCount = 32

type shard struct {
	mu      sync.RWMutex
	records map[string]*record.DhcpRecord
}

// Store is a sharded in-memory record store. Writes for identities on
// different shards never contend.
type Store struct {
	shards [shardCount]*shard
}

func New() *Store {
	s := &Store{}
	for i := range s.shards {
		s.shards[i] = &shard{records: make(map[string]*record.DhcpRecord)}
	}
	return s
}

func (s *Store) shardFor(key string) *shard {
	h := fnv.New32a()
	h.Write([]byte(key))
	return s.shards[h.Sum32()%shardCount]
}

func (s *Store) Get(id models.HostID) (*record.DhcpRecord, bool) {
	key := id.Key()
	sh := s.shardFor(key)

	sh.mu.RLock()
	defer sh.mu.RUnlock()

	rec, ok := sh.records[key]
	if !ok {
		return nil, false
	}
	return rec.Clone(), true
}

func (s *Store) Put(id models.HostID, rec *record.DhcpRecord) {
	key := id.Key()
	sh := s.shardFor(key)
	stored := rec.Clone()

	sh.mu.Lock()
	sh.records[key] = stored
	sh.mu.Unlock()
}

func (s *Store) Remove(id models.HostID) (*record.DhcpRecord, bool) {
	key := id.Key()
	sh := s.shardFor(key)

	sh.mu.Lock()
	defer sh.mu.Unlock()

	rec, ok := sh.records[key]
	if ok {
		delete(sh.records, key)
	}
	return rec, ok
}

func (s *Store) RemoveIf(pred func(*record.DhcpRecord) bool) []*record.DhcpRecord {
	var removed []*record.DhcpRecord
	for _, sh := range s.shards {
		sh.mu.Lock()
		for key, rec := range sh.records {
			if pred(rec.Clone()) {
				delete(sh.records, key)
				removed = append(removed, rec)
			}
		}
		sh.mu.Unlock()
	}
	return removed
}

// All returns copies ordered by host identity.
func (s *Store) All() []*record.DhcpRecord {
	var out []*record.DhcpRecord
	for _, sh := range s.shards {
		sh.mu.RLock()
		for _, rec := range sh.records {
			out = append(out, rec.Clone())
		}
		sh.mu.RUnlock()
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].HostID.Key() < out[j].HostID.Key()
	})
	return out
}

func (s *Store) Len() int {
	n := 0
	for _, sh := range s.shards {
		sh.mu.RLock()
		n += len(sh.records)
		sh.mu.RUnlock()
	}
	return n
}
