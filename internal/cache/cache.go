// Package cache provides the advisory edge cache consulted by the facade.
// Losing cache contents changes latency, never results.
package cache

import (
	"context"
	"time"
)

// Cache is a TTL'd byte cache. Match returns (nil, false, nil) for a miss;
// errors are reported so callers can log them, but a failed cache is always
// equivalent to a miss.
type Cache interface {
	Match(ctx context.Context, key string) ([]byte, bool, error)
	Update(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Remove(ctx context.Context, key string) error
}
