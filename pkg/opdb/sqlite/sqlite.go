// Package sqlite is the on-disk operational database. Records are journaled
// here on every change, so the hot statements are prepared once at open.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"
	"github.com/veesix-networks/dhcprelay/pkg/opdb"
)

const (
	memoryPath    = ":memory:"
	schemaVersion = 1
)

var schema = []string{
	`CREATE TABLE IF NOT EXISTS checkpoints (
		namespace  TEXT    NOT NULL,
		key        TEXT    NOT NULL,
		value      BLOB    NOT NULL,
		updated_at INTEGER NOT NULL DEFAULT (strftime('%s', 'now')),
		PRIMARY KEY (namespace, key)
	) WITHOUT ROWID`,
}

type Store struct {
	db *sql.DB

	put *sql.Stmt
	del *sql.Stmt
}

var _ opdb.Store = (*Store)(nil)

// Open creates or opens the database at path. ":memory:" gives a private
// in-memory database.
func Open(path string) (*Store, error) {
	if path != memoryPath {
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, fmt.Errorf("create opdb dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open opdb: %w", err)
	}
	// sqlite serialises writers anyway and a memory database is per
	// connection.
	db.SetMaxOpenConns(1)

	s := &Store{db: db}
	if err := s.init(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) init() error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA busy_timeout=5000",
	}
	for _, p := range pragmas {
		if _, err := s.db.Exec(p); err != nil {
			return fmt.Errorf("pragma %s: %w", p, err)
		}
	}

	var version int
	if err := s.db.QueryRow("PRAGMA user_version").Scan(&version); err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}
	if version > schemaVersion {
		return fmt.Errorf("opdb schema version %d is newer than supported %d", version, schemaVersion)
	}
	for _, stmt := range schema {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("create schema: %w", err)
		}
	}
	if _, err := s.db.Exec(fmt.Sprintf("PRAGMA user_version=%d", schemaVersion)); err != nil {
		return fmt.Errorf("write schema version: %w", err)
	}

	var err error
	s.put, err = s.db.Prepare(`
		INSERT INTO checkpoints (namespace, key, value, updated_at)
		VALUES (?, ?, ?, strftime('%s', 'now'))
		ON CONFLICT(namespace, key) DO UPDATE SET
			value = excluded.value,
			updated_at = excluded.updated_at`)
	if err != nil {
		return fmt.Errorf("prepare put: %w", err)
	}
	s.del, err = s.db.Prepare(`DELETE FROM checkpoints WHERE namespace = ? AND key = ?`)
	if err != nil {
		return fmt.Errorf("prepare delete: %w", err)
	}
	return nil
}

func (s *Store) Put(ctx context.Context, namespace, key string, value []byte) error {
	if _, err := s.put.ExecContext(ctx, namespace, key, value); err != nil {
		return fmt.Errorf("put %s/%s: %w", namespace, key, err)
	}
	return nil
}

func (s *Store) Delete(ctx context.Context, namespace, key string) error {
	if _, err := s.del.ExecContext(ctx, namespace, key); err != nil {
		return fmt.Errorf("delete %s/%s: %w", namespace, key, err)
	}
	return nil
}

// Load reads the namespace into memory before calling fn, so fn may write
// back to the store.
func (s *Store) Load(ctx context.Context, namespace string, fn opdb.LoadFunc) error {
	type entry struct {
		key   string
		value []byte
	}

	rows, err := s.db.QueryContext(ctx, `SELECT key, value FROM checkpoints WHERE namespace = ? ORDER BY key`, namespace)
	if err != nil {
		return fmt.Errorf("load %s: %w", namespace, err)
	}
	var entries []entry
	for rows.Next() {
		var e entry
		if err := rows.Scan(&e.key, &e.value); err != nil {
			rows.Close()
			return fmt.Errorf("load %s: %w", namespace, err)
		}
		entries = append(entries, e)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return fmt.Errorf("load %s: %w", namespace, err)
	}

	for _, e := range entries {
		if err := fn(e.key, e.value); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) Count(ctx context.Context, namespace string) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM checkpoints WHERE namespace = ?`, namespace).Scan(&n); err != nil {
		return 0, fmt.Errorf("count %s: %w", namespace, err)
	}
	return n, nil
}

func (s *Store) Clear(ctx context.Context, namespace string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM checkpoints WHERE namespace = ?`, namespace); err != nil {
		return fmt.Errorf("clear %s: %w", namespace, err)
	}
	return nil
}

func (s *Store) Close() error {
	if s.put != nil {
		s.put.Close()
	}
	if s.del != nil {
		s.del.Close()
	}
	return s.db.Close()
}
