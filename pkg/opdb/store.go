// Package opdb is the operational database: namespaced key/value
// checkpoints that let the relay rebuild its record store after a restart.
package opdb

import "context"

// Store is a namespaced blob store. Keys are unique per namespace.
type Store interface {
	Put(ctx context.Context, namespace, key string, value []byte) error
	Delete(ctx context.Context, namespace, key string) error
	Load(ctx context.Context, namespace string, fn LoadFunc) error
	Count(ctx context.Context, namespace string) (int, error)
	Clear(ctx context.Context, namespace string) error
	Close() error
}

// LoadFunc receives one checkpoint. Returning an error aborts the load.
type LoadFunc func(key string, value []byte) error

// NamespaceRecords holds one JSON DhcpRecord per host id; both address
// families share it because one record carries both.
const NamespaceRecords = "dhcprelay_records"
