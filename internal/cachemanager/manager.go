// Package cachemanager provides TTL caches keyed by string-like keys and a
// read-through wrapper that collapses concurrent misses for the same key.
package cachemanager

import (
	"context"
	"time"
)

// CacheManager is a typed TTL cache.
type CacheManager[K ~string, V any] interface {
	Get(ctx context.Context, key K) (V, bool)
	Set(ctx context.Context, key K, value V, ttl time.Duration)
	Delete(ctx context.Context, keys ...K) error
	Flush(ctx context.Context) error
	Len() int
}

// Stats counts lookups served by a cache.
type Stats struct {
	Hits   int64
	Misses int64
}
