package bootstrap

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/brackwater/payrail/internal/config"
	"github.com/brackwater/payrail/internal/ratelimit"
)

func TestNewRateLimiterFallsBackToMemoryWhenRedisURLUnset(t *testing.T) {
	limiter := newRateLimiter(config.Config{RedisURL: "", RateLimitPerMinute: 10})

	_, isMemory := limiter.(*ratelimit.MemoryLimiter)
	assert.True(t, isMemory)
}

func TestNewRateLimiterBuildsRedisLimiterWhenRedisURLSet(t *testing.T) {
	limiter := newRateLimiter(config.Config{RedisURL: "redis://localhost:6379/0", RateLimitPerMinute: 10})

	_, isRedis := limiter.(*ratelimit.RedisLimiter)
	assert.True(t, isRedis)
}

func TestNewRateLimiterFallsBackToMemoryOnUnparseableRedisURL(t *testing.T) {
	limiter := newRateLimiter(config.Config{RedisURL: "not-a-valid-url", RateLimitPerMinute: 10})

	_, isMemory := limiter.(*ratelimit.MemoryLimiter)
	assert.True(t, isMemory)
}
