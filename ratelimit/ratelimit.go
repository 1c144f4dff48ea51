// Package ratelimit provides fixed window limiters for login attempts,
// in memory for a single instance and on Redis when shared.
package ratelimit

import (
	"context"
	"sync"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/redis/go-redis/v9"

	auth "github.com/goliatone/go-syr-auth"
)

var (
	_ auth.RateLimiter = (*Memory)(nil)
	_ auth.RateLimiter = (*Redis)(nil)
)

type window struct {
	count   int
	resetAt time.Time
}

// Memory allows max hits per key per window
type Memory struct {
	mu      sync.Mutex
	max     int
	window  time.Duration
	now     func() time.Time
	buckets map[string]*window
}

// NewMemory creates an in process limiter
func NewMemory(max int, per time.Duration) *Memory {
	return &Memory{
		max:     max,
		window:  per,
		now:     time.Now,
		buckets: make(map[string]*window),
	}
}

// WithClock sets the time source
func (m *Memory) WithClock(now func() time.Time) *Memory {
	m.now = now
	return m
}

// Allow records a hit and reports whether key is still under the limit
func (m *Memory) Allow(_ context.Context, key string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	b, ok := m.buckets[key]
	if !ok || !now.Before(b.resetAt) {
		if len(m.buckets) > 1024 {
			m.prune(now)
		}
		b = &window{resetAt: now.Add(m.window)}
		m.buckets[key] = b
	}

	b.count++
	return b.count <= m.max, nil
}

func (m *Memory) prune(now time.Time) {
	for k, b := range m.buckets {
		if !now.Before(b.resetAt) {
			delete(m.buckets, k)
		}
	}
}

// RedisCmdable is the subset of the redis client the limiter needs
type RedisCmdable interface {
	Incr(ctx context.Context, key string) *redis.IntCmd
	Expire(ctx context.Context, key string, expiration time.Duration) *redis.BoolCmd
}

// Redis shares the limit across instances with INCR and EXPIRE
type Redis struct {
	client RedisCmdable
	prefix string
	max    int
	window time.Duration
}

// NewRedis creates a limiter backed by client
func NewRedis(client RedisCmdable, max int, per time.Duration) *Redis {
	return &Redis{
		client: client,
		prefix: "syr:ratelimit:",
		max:    max,
		window: per,
	}
}

// Allow records a hit and reports whether key is still under the limit
func (r *Redis) Allow(ctx context.Context, key string) (bool, error) {
	k := r.prefix + key

	count, err := r.client.Incr(ctx, k).Result()
	if err != nil {
		return false, goerrors.Wrap(err, goerrors.CategoryOperation, "rate limit counter failed")
	}

	// the first hit opens the window
	if count == 1 {
		if err := r.client.Expire(ctx, k, r.window).Err(); err != nil {
			return false, goerrors.Wrap(err, goerrors.CategoryOperation, "rate limit expiry failed")
		}
	}

	return count <= int64(r.max), nil
}

// NewRedisClient connects to addr and pings it
func NewRedisClient(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, goerrors.Wrap(err, goerrors.CategoryOperation, "redis ping failed")
	}
	return client, nil
}
