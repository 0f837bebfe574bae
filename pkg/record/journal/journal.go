// Package journal persists record store mutations to an opdb namespace so
// lease bookkeeping survives a restart.
package journal

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/veesix-networks/dhcprelay/pkg/logger"
	"github.com/veesix-networks/dhcprelay/pkg/models"
	"github.com/veesix-networks/dhcprelay/pkg/opdb"
	"github.com/veesix-networks/dhcprelay/pkg/record"
)

// Store writes through to an opdb.Store. Persistence failures are logged and
// never block the in-memory update.
type Store struct {
	inner     record.Store
	db        opdb.Store
	namespace string
	logger    *slog.Logger
}

var (
	_ record.Store  = (*Store)(nil)
	_ opdb.Provider = (*Store)(nil)
)

func New(inner record.Store, db opdb.Store, namespace string) *Store {
	return &Store{
		inner:     inner,
		db:        db,
		namespace: namespace,
		logger:    logger.Get(logger.OpDB),
	}
}

func (s *Store) Get(id models.HostID) (*record.DhcpRecord, bool) {
	return s.inner.Get(id)
}

func (s *Store) Put(id models.HostID, rec *record.DhcpRecord) {
	s.inner.Put(id, rec)

	data, err := json.Marshal(rec)
	if err != nil {
		s.logger.Warn("Failed to marshal record for checkpoint", "host", id.String(), "error", err)
		return
	}
	if err := s.db.Put(context.Background(), s.namespace, id.Key(), data); err != nil {
		s.logger.Warn("Failed to checkpoint record", "host", id.String(), "error", err)
	}
}

func (s *Store) Remove(id models.HostID) (*record.DhcpRecord, bool) {
	rec, ok := s.inner.Remove(id)
	if ok {
		s.deleteCheckpoint(id)
	}
	return rec, ok
}

func (s *Store) RemoveIf(pred func(*record.DhcpRecord) bool) []*record.DhcpRecord {
	removed := s.inner.RemoveIf(pred)
	for _, rec := range removed {
		s.deleteCheckpoint(rec.HostID)
	}
	return removed
}

func (s *Store) All() []*record.DhcpRecord {
	return s.inner.All()
}

func (s *Store) deleteCheckpoint(id models.HostID) {
	if err := s.db.Delete(context.Background(), s.namespace, id.Key()); err != nil {
		s.logger.Warn("Failed to delete record checkpoint", "host", id.String(), "error", err)
	}
}

func (s *Store) Namespaces() []string {
	return []string{s.namespace}
}

// Restore loads checkpointed records into the inner store without writing
// them back.
func (s *Store) Restore(ctx context.Context, db opdb.Store) error {
	restored := 0
	err := db.Load(ctx, s.namespace, func(key string, value []byte) error {
		var rec record.DhcpRecord
		if err := json.Unmarshal(value, &rec); err != nil {
			s.logger.Warn("Skipping unreadable record checkpoint", "key", key, "error", err)
			return nil
		}
		if rec.Counters == nil {
			rec.Counters = make(map[string]uint64)
		}
		s.inner.Put(rec.HostID, &rec)
		restored++
		return nil
	})
	if err != nil {
		return fmt.Errorf("restore %s: %w", s.namespace, err)
	}

	s.logger.Info("Restored records from OpDB", "namespace", s.namespace, "count", restored)
	return nil
}
