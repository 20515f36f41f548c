// Package cache defines the shared second-tier store for fetched survey objects.
package cache

import (
	"context"
	"time"
)

// Store holds raw object bodies under keys built by cache/keys.
type Store interface {
	// Get reports ok=false for a missing or expired object.
	Get(ctx context.Context, key string) (val []byte, ok bool, err error)
	Put(ctx context.Context, key string, val []byte, ttl time.Duration) error
	// Evict returns how many of keys were present.
	Evict(ctx context.Context, keys ...string) (int64, error)
}
