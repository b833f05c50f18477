package bootstrap

import (
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/brackwater/payrail/internal/config"
	"github.com/brackwater/payrail/internal/ratelimit"
)

const rateLimitWindow = time.Minute

// newRateLimiter builds a Redis-backed limiter when REDIS_URL is set so
// every process sharing it agrees on a merchant's request count,
// falling back to an in-process limiter otherwise — rate limiting stays
// in effect either way, only its cross-process consistency changes.
func newRateLimiter(cfg config.Config) ratelimit.Limiter {
	if cfg.RedisURL == "" {
		return ratelimit.NewMemoryLimiter(cfg.RateLimitPerMinute, rateLimitWindow)
	}

	opts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return ratelimit.NewMemoryLimiter(cfg.RateLimitPerMinute, rateLimitWindow)
	}

	client := redis.NewClient(opts)

	return ratelimit.NewRedisLimiter(client, cfg.RateLimitPerMinute, rateLimitWindow)
}
