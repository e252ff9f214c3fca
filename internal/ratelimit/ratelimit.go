// Package ratelimit throttles credential endpoints with a Redis token bucket.
package ratelimit

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
)

type Limiter interface {
	Allow(ctx context.Context, key string) (bool, error)
}

var tokenBucketScript = redis.NewScript(`
	local key = KEYS[1]
	local capacity = tonumber(ARGV[1])
	local rate = tonumber(ARGV[2])
	local now = tonumber(ARGV[3])
	local requested = tonumber(ARGV[4])

	local info = redis.call("HMGET", key, "tokens", "last_refill")
	local tokens = tonumber(info[1])
	local last_refill = tonumber(info[2])

	if tokens == nil then
		tokens = capacity
		last_refill = now
	end

	local delta = math.max(0, now - last_refill)
	local filled = math.min(capacity, tokens + (delta / 1000 * rate))

	local allowed = 0
	if filled >= requested then
		filled = filled - requested
		allowed = 1
	end
	redis.call("HSET", key, "tokens", filled, "last_refill", now)
	redis.call("EXPIRE", key, math.ceil(capacity / rate) * 2)

	return allowed
`)

type RedisLimiter struct {
	client   redis.Scripter
	prefix   string
	capacity int
	rate     float64
	now      func() time.Time
}

// NewRedisLimiter allows bursts of capacity requests per key, refilled at rate per second.
func NewRedisLimiter(client redis.Scripter, capacity int, rate float64) *RedisLimiter {
	if capacity <= 0 {
		capacity = 1
	}
	if rate <= 0 {
		rate = 1
	}
	return &RedisLimiter{
		client:   client,
		prefix:   "registrar:rate_limit:",
		capacity: capacity,
		rate:     rate,
		now:      time.Now,
	}
}

func (l *RedisLimiter) Allow(ctx context.Context, key string) (bool, error) {
	keys := []string{l.prefix + key}
	args := []interface{}{l.capacity, l.rate, l.now().UnixMilli(), 1}

	result, err := tokenBucketScript.Run(ctx, l.client, keys, args...).Int64()
	if err != nil {
		return false, errors.Wrap(err, "token bucket")
	}
	return result == 1, nil
}
