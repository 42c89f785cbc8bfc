package cachemanager

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type replyKey string

func newTestCache[V any]() *InMemoryCacheManager[replyKey, V] {
	return NewInMemoryCacheManager[replyKey, V]("test", DefaultExpiration, DefaultCleanupInterval)
}

func TestInMemoryCacheManager_SetAndGet(t *testing.T) {
	cache := newTestCache[string]()
	cache.Set(context.Background(), "hello", "Hello! How can I assist you?", DefaultExpiration)

	got, ok := cache.Get(context.Background(), "hello")
	require.True(t, ok)
	require.Equal(t, "Hello! How can I assist you?", got)
	require.Equal(t, 1, cache.Len())
}

func TestInMemoryCacheManager_GetMissing(t *testing.T) {
	cache := newTestCache[string]()

	got, ok := cache.Get(context.Background(), "missing")
	require.False(t, ok)
	require.Empty(t, got)
}

func TestInMemoryCacheManager_WrongType(t *testing.T) {
	cache := newTestCache[string]()
	cache.cache.Set("reply", 123, DefaultExpiration)

	got, ok := cache.Get(context.Background(), "reply")
	require.False(t, ok)
	require.Empty(t, got)
}

func TestInMemoryCacheManager_Expiry(t *testing.T) {
	cache := newTestCache[string]()
	cache.Set(context.Background(), "k", "v", 10*time.Millisecond)

	require.Eventually(t, func() bool {
		_, ok := cache.Get(context.Background(), "k")
		return !ok
	}, time.Second, 5*time.Millisecond)
}

func TestInMemoryCacheManager_DeleteAndFlush(t *testing.T) {
	cache := newTestCache[int]()
	ctx := context.Background()
	cache.Set(ctx, "a", 1, DefaultExpiration)
	cache.Set(ctx, "b", 2, DefaultExpiration)
	cache.Set(ctx, "c", 3, DefaultExpiration)

	require.NoError(t, cache.Delete(ctx))
	require.NoError(t, cache.Delete(ctx, "a", "b"))
	_, ok := cache.Get(ctx, "a")
	require.False(t, ok)
	require.Equal(t, 1, cache.Len())

	require.NoError(t, cache.Flush(ctx))
	require.Zero(t, cache.Len())
}
