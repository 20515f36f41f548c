// Package redisstore keeps fetched survey objects in Redis so that replicas
// share one copy of each file.
package redisstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	maintnotifications "github.com/redis/go-redis/v9/maintnotifications"

	"github.com/mohammed-shakir/survey-stats/internal/core/observability"
)

// DefaultMaxObjectBytes caps what Put stores; bigger survey files stay in
// the in-process tier only.
const DefaultMaxObjectBytes = 8 << 20

type Option func(*settings)

type settings struct {
	ro       redis.Options
	maxBytes int
}

func WithPoolSize(n int) Option {
	return func(s *settings) { s.ro.PoolSize = n }
}

func WithTimeouts(dial, rw time.Duration) Option {
	return func(s *settings) {
		s.ro.DialTimeout = dial
		s.ro.ReadTimeout = rw
		s.ro.WriteTimeout = rw
	}
}

// WithMaxObjectBytes sets the size cap for Put; n <= 0 removes it.
func WithMaxObjectBytes(n int) Option {
	return func(s *settings) { s.maxBytes = n }
}

type Client struct {
	rdb      *redis.Client
	maxBytes int
}

// New connects and pings; a server that does not answer is an error.
func New(ctx context.Context, addr string, opts ...Option) (*Client, error) {
	if addr == "" {
		return nil, errors.New("redis address is required")
	}

	s := settings{
		ro: redis.Options{
			Addr:         addr,
			PoolSize:     32,
			MinIdleConns: 2,
			DialTimeout:  2 * time.Second,
			ReadTimeout:  time.Second,
			WriteTimeout: time.Second,
			MaintNotificationsConfig: &maintnotifications.Config{
				Mode: maintnotifications.ModeDisabled,
			},
		},
		maxBytes: DefaultMaxObjectBytes,
	}
	for _, f := range opts {
		f(&s)
	}

	c := &Client{rdb: redis.NewClient(&s.ro), maxBytes: s.maxBytes}
	if err := c.Ping(ctx); err != nil {
		_ = c.rdb.Close()
		return nil, err
	}
	return c, nil
}

func (c *Client) Get(ctx context.Context, key string) ([]byte, bool, error) {
	start := time.Now()
	b, err := c.rdb.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		observability.ObserveCacheOp("get", nil, time.Since(start).Seconds())
		return nil, false, nil
	}
	observability.ObserveCacheOp("get", err, time.Since(start).Seconds())
	if err != nil {
		return nil, false, fmt.Errorf("redis GET %q: %w", key, err)
	}
	return b, true, nil
}

// Put stores val with ttl (0 keeps it until evicted). Objects over the size
// cap are skipped without error.
func (c *Client) Put(ctx context.Context, key string, val []byte, ttl time.Duration) error {
	if c.maxBytes > 0 && len(val) > c.maxBytes {
		observability.ObserveCacheOp("put_skipped", nil, 0)
		return nil
	}
	start := time.Now()
	err := c.rdb.Set(ctx, key, val, ttl).Err()
	observability.ObserveCacheOp("put", err, time.Since(start).Seconds())
	if err != nil {
		return fmt.Errorf("redis SET %q: %w", key, err)
	}
	return nil
}

func (c *Client) Evict(ctx context.Context, keys ...string) (int64, error) {
	if len(keys) == 0 {
		return 0, nil
	}
	start := time.Now()
	n, err := c.rdb.Del(ctx, keys...).Result()
	observability.ObserveCacheOp("evict", err, time.Since(start).Seconds())
	if err != nil {
		return 0, fmt.Errorf("redis DEL %d keys: %w", len(keys), err)
	}
	return n, nil
}

// TTL returns the remaining lifetime of key; ok=false when it is not cached.
// A key stored without expiry reports a negative duration.
func (c *Client) TTL(ctx context.Context, key string) (time.Duration, bool, error) {
	start := time.Now()
	d, err := c.rdb.TTL(ctx, key).Result()
	observability.ObserveCacheOp("ttl", err, time.Since(start).Seconds())
	if err != nil {
		return 0, false, fmt.Errorf("redis TTL %q: %w", key, err)
	}
	// go-redis passes the raw -2 (missing) and -1 (no expiry) through
	if d == -2 {
		return 0, false, nil
	}
	return d, true, nil
}

func (c *Client) Close() error {
	if err := c.rdb.Close(); err != nil {
		return fmt.Errorf("redis close: %w", err)
	}
	return nil
}

// Ping reports whether the server answers, for readiness checks.
func (c *Client) Ping(ctx context.Context) error {
	start := time.Now()
	err := c.rdb.Ping(ctx).Err()
	observability.ObserveCacheOp("ping", err, time.Since(start).Seconds())
	if err != nil {
		return fmt.Errorf("redis ping: %w", err)
	}
	return nil
}
