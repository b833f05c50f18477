// Package ratelimit throttles per-merchant request volume on mutating
// routes, grounded on common/mredis/redis.go's connection pattern (the
// teacher's Redis wrapper) and on the fixed-window counter the pack's
// pkg/net/http/ratelimit_test.go exercises. Redis is optional: when
// REDIS_URL is unset the in-process window limiter stands in, the same
// "additive, never required" posture bootstrap already applies to
// RabbitMQ fan-out.
package ratelimit

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Limiter decides whether key may take one more action inside the
// current window.
type Limiter interface {
	Allow(ctx context.Context, key string) (bool, error)
}

// RedisLimiter implements a fixed-window counter in Redis via
// INCR+EXPIRE, so every process sharing the same Redis instance agrees
// on the count regardless of which one served a given request.
type RedisLimiter struct {
	client *redis.Client
	limit  int
	window time.Duration
}

// NewRedisLimiter builds a RedisLimiter allowing limit actions per
// window, per key.
func NewRedisLimiter(client *redis.Client, limit int, window time.Duration) *RedisLimiter {
	return &RedisLimiter{client: client, limit: limit, window: window}
}

// Allow increments key's counter for the current window, creating it
// with a TTL of window on first use, and reports whether the count is
// still within limit.
func (l *RedisLimiter) Allow(ctx context.Context, key string) (bool, error) {
	redisKey := fmt.Sprintf("ratelimit:%s:%d", key, time.Now().UTC().Unix()/int64(l.window.Seconds()))

	count, err := l.client.Incr(ctx, redisKey).Result()
	if err != nil {
		return false, err
	}

	if count == 1 {
		if err := l.client.Expire(ctx, redisKey, l.window).Err(); err != nil {
			return false, err
		}
	}

	return count <= int64(l.limit), nil
}

// MemoryLimiter is the same fixed-window algorithm kept entirely
// in-process, for single-instance deployments with no Redis configured.
type MemoryLimiter struct {
	mu     sync.Mutex
	limit  int
	window time.Duration
	counts map[string]*bucket
}

type bucket struct {
	windowStart int64
	count       int
}

// NewMemoryLimiter builds a MemoryLimiter allowing limit actions per
// window, per key.
func NewMemoryLimiter(limit int, window time.Duration) *MemoryLimiter {
	return &MemoryLimiter{limit: limit, window: window, counts: map[string]*bucket{}}
}

// Allow reports whether key is still within limit for the current
// window, resetting the window's count when it has rolled over.
func (l *MemoryLimiter) Allow(_ context.Context, key string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	windowIdx := time.Now().UTC().Unix() / int64(l.window.Seconds())

	b, ok := l.counts[key]
	if !ok || b.windowStart != windowIdx {
		b = &bucket{windowStart: windowIdx}
		l.counts[key] = b
	}

	b.count++

	return b.count <= l.limit, nil
}
