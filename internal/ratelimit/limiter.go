package ratelimit

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Limiter is a fixed-window attempt counter keyed by caller identity.
type Limiter interface {
	// Hit records one attempt and reports whether it is still within the
	// limit, plus the time left in the current window.
	Hit(ctx context.Context, key string) (allowed bool, retryAfter time.Duration, err error)
	Reset(ctx context.Context, key string) error
}

const keyPrefix = "ratelimit:"

type RedisLimiter struct {
	client *redis.Client
	max    int
	window time.Duration
}

func NewRedisLimiter(ctx context.Context, redisURL string, max int, window time.Duration) (*RedisLimiter, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis URL: %w", err)
	}
	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}
	return &RedisLimiter{client: client, max: max, window: window}, nil
}

func (l *RedisLimiter) Hit(ctx context.Context, key string) (bool, time.Duration, error) {
	k := keyPrefix + key

	var incr *redis.IntCmd
	var ttl *redis.DurationCmd
	_, err := l.client.TxPipelined(ctx, func(p redis.Pipeliner) error {
		incr = p.Incr(ctx, k)
		ttl = p.PTTL(ctx, k)
		return nil
	})
	if err != nil {
		return false, 0, fmt.Errorf("redis: count attempt: %w", err)
	}

	left := ttl.Val()
	// first hit of a window, or a key that lost its expiry
	if left < 0 {
		if err := l.client.PExpire(ctx, k, l.window).Err(); err != nil {
			return false, 0, fmt.Errorf("redis: set window: %w", err)
		}
		left = l.window
	}
	return incr.Val() <= int64(l.max), left, nil
}

func (l *RedisLimiter) Reset(ctx context.Context, key string) error {
	return l.client.Del(ctx, keyPrefix+key).Err()
}

func (l *RedisLimiter) Ping(ctx context.Context) error {
	return l.client.Ping(ctx).Err()
}

func (l *RedisLimiter) Close() error {
	return l.client.Close()
}

// MemoryLimiter keeps counters in process. It only serves single-instance
// development setups that run without Redis.
type MemoryLimiter struct {
	max    int
	window time.Duration
	now    func() time.Time

	mu        sync.Mutex
	windows   map[string]memWindow
	nextSweep time.Time
}

type memWindow struct {
	count   int
	resetAt time.Time
}

func NewMemoryLimiter(max int, window time.Duration) *MemoryLimiter {
	return &MemoryLimiter{max: max, window: window, now: time.Now, windows: map[string]memWindow{}}
}

func (l *MemoryLimiter) Hit(_ context.Context, key string) (bool, time.Duration, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	l.sweep(now)
	w, ok := l.windows[key]
	if !ok || !now.Before(w.resetAt) {
		w = memWindow{resetAt: now.Add(l.window)}
	}
	w.count++
	l.windows[key] = w
	return w.count <= l.max, w.resetAt.Sub(now), nil
}

// sweep drops closed windows at most once per window length.
func (l *MemoryLimiter) sweep(now time.Time) {
	if now.Before(l.nextSweep) {
		return
	}
	for k, w := range l.windows {
		if !now.Before(w.resetAt) {
			delete(l.windows, k)
		}
	}
	l.nextSweep = now.Add(l.window)
}

func (l *MemoryLimiter) Reset(_ context.Context, key string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.windows, key)
	return nil
}
