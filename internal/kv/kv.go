// Package kv defines the partitioned durable key space backing the actors.
// Implementations live under internal/kv/<driver>/ (sqlite, postgres, memory).
package kv

import "context"

// Store is a raw key-value space grouped into partitions. Values are opaque
// bytes; callers own serialization. Get returns model.ErrNotFound (wrapped)
// for absent keys.
type Store interface {
	Get(ctx context.Context, partition, key string) ([]byte, error)
	Put(ctx context.Context, partition, key string, value []byte) error
	Delete(ctx context.Context, partition, key string) error

	// List returns all entries of a partition whose key starts with prefix.
	// An empty prefix returns the partition verbatim.
	List(ctx context.Context, partition, prefix string) (map[string][]byte, error)

	// Dump returns the partition's entire raw key space.
	Dump(ctx context.Context, partition string) (map[string][]byte, error)

	// Replace atomically overwrites the partition with the given entries.
	// Keys not present in data are removed; other partitions are untouched.
	Replace(ctx context.Context, partition string, data map[string][]byte) error

	Close() error
}
