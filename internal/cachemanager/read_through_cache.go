package cachemanager

import (
	"context"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"
)

// ReadThroughCache serves values from cache and falls back to fn on a miss.
// Concurrent misses for one key share a single call to fn. Errors from fn
// are never cached.
type ReadThroughCache[K ~string, V any, I any] struct {
	cache    CacheManager[K, V]
	fn       func(ctx context.Context, input I) (V, error)
	disabled bool
	group    singleflight.Group

	hits   atomic.Int64
	misses atomic.Int64
}

// NewReadThroughCache wraps fn with cache. With disabled set every call goes
// straight to fn.
func NewReadThroughCache[K ~string, V any, I any](
	cache CacheManager[K, V],
	fn func(ctx context.Context, input I) (V, error),
	disabled bool,
) *ReadThroughCache[K, V, I] {
	return &ReadThroughCache[K, V, I]{
		cache:    cache,
		fn:       fn,
		disabled: disabled,
	}
}

// Get returns the cached value for key or computes it from input.
func (r *ReadThroughCache[K, V, I]) Get(ctx context.Context, key K, input I, ttl time.Duration) (V, error) {
	if r.disabled {
		return r.fn(ctx, input)
	}
	if value, ok := r.cache.Get(ctx, key); ok {
		r.hits.Add(1)
		return value, nil
	}
	r.misses.Add(1)

	ch := r.group.DoChan(string(key), func() (any, error) {
		value, err := r.fn(ctx, input)
		if err != nil {
			return value, err
		}
		r.cache.Set(ctx, key, value, ttl)
		return value, nil
	})

	select {
	case res := <-ch:
		value, _ := res.Val.(V)
		return value, res.Err
	case <-ctx.Done():
		var zero V
		return zero, ctx.Err()
	}
}

// Forget drops key from the cache and from any in-flight call, so the next
// Get recomputes it.
func (r *ReadThroughCache[K, V, I]) Forget(ctx context.Context, key K) {
	r.group.Forget(string(key))
	_ = r.cache.Delete(ctx, key)
}

// Stats returns hit and miss counts since creation.
func (r *ReadThroughCache[K, V, I]) Stats() Stats {
	return Stats{Hits: r.hits.Load(), Misses: r.misses.Load()}
}
