package responder

import (
	"context"
	"strings"
	"time"

	"github.com/zjrosen/devdeck/internal/cachemanager"
	"github.com/zjrosen/devdeck/internal/log"
)

type cacheKey string

// Cached memoises another Responder by normalised prompt text.
type Cached struct {
	rtc *cachemanager.ReadThroughCache[cacheKey, string, string]
	ttl time.Duration
}

// NewCached wraps next. A non-positive ttl disables caching.
func NewCached(next Responder, ttl time.Duration) *Cached {
	cache := cachemanager.NewInMemoryCacheManager[cacheKey, string]("responder", ttl, cachemanager.DefaultCleanupInterval)
	return &Cached{
		rtc: cachemanager.NewReadThroughCache[cacheKey, string, string](cache, next.Respond, ttl <= 0),
		ttl: ttl,
	}
}

// Respond returns a cached reply for text or asks the wrapped responder.
func (c *Cached) Respond(ctx context.Context, text string) (string, error) {
	key := normalise(text)
	reply, err := c.rtc.Get(ctx, key, text, c.ttl)
	if err != nil {
		log.Debug(log.CatResponder, "reply failed", "error", err)
	}
	return reply, err
}

func normalise(text string) cacheKey {
	return cacheKey(strings.ToLower(strings.Join(strings.Fields(text), " ")))
}

// Stats reports cache hits and misses.
func (c *Cached) Stats() cachemanager.Stats {
	return c.rtc.Stats()
}
