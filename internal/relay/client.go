package relay

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// Client is the part of Redis the relay needs.
type Client interface {
	Publish(ctx context.Context, channel string, payload []byte) error
	Subscribe(ctx context.Context, channel string) (Subscription, error)
	Close() error
}

// Subscription is an open Redis pub/sub subscription.
type Subscription interface {
	Channel() <-chan *redis.Message
	Close() error
}

// RedisClient adapts a go-redis client to Client.
type RedisClient struct {
	rdb *redis.Client
}

// Dial parses a redis:// URL, connects and pings the server.
func Dial(ctx context.Context, rawURL string) (*RedisClient, error) {
	opts, err := redis.ParseURL(rawURL)
	if err != nil {
		return nil, fmt.Errorf("parsing redis url: %w", err)
	}
	rdb := redis.NewClient(opts)
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("connecting to redis: %w", err)
	}
	return &RedisClient{rdb: rdb}, nil
}

// NewRedisClient wraps an existing go-redis client.
func NewRedisClient(rdb *redis.Client) *RedisClient {
	return &RedisClient{rdb: rdb}
}

// Publish implements Client.
func (c *RedisClient) Publish(ctx context.Context, channel string, payload []byte) error {
	return c.rdb.Publish(ctx, channel, payload).Err()
}

// Subscribe implements Client. It waits for the server to confirm the
// subscription before returning.
func (c *RedisClient) Subscribe(ctx context.Context, channel string) (Subscription, error) {
	ps := c.rdb.Subscribe(ctx, channel)
	if _, err := ps.Receive(ctx); err != nil {
		_ = ps.Close()
		return nil, fmt.Errorf("subscribing to %s: %w", channel, err)
	}
	return redisSubscription{ps: ps}, nil
}

// Close implements Client.
func (c *RedisClient) Close() error {
	return c.rdb.Close()
}

type redisSubscription struct {
	ps *redis.PubSub
}

func (s redisSubscription) Channel() <-chan *redis.Message { return s.ps.Channel() }
func (s redisSubscription) Close() error                  { return s.ps.Close() }
