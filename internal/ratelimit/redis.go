package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const redisKeyPrefix = "ratelimit:"

// RedisLimiter shares fixed-window counters between replicas through Redis.
// The first INCR in a window sets the key's expiry, so the window is anchored
// at the first request, the same as MemoryLimiter.
type RedisLimiter struct {
	client *redis.Client
	max    int
	period time.Duration
}

func NewRedisLimiter(client *redis.Client, max int, period time.Duration) *RedisLimiter {
	return &RedisLimiter{client: client, max: max, period: period}
}

func (l *RedisLimiter) Allow(ctx context.Context, key string) (Result, error) {
	redisKey := redisKeyPrefix + key

	count, err := l.client.Incr(ctx, redisKey).Result()
	if err != nil {
		return Result{}, fmt.Errorf("incrementing rate limit counter: %w", err)
	}
	if count == 1 {
		if err := l.client.PExpire(ctx, redisKey, l.period).Err(); err != nil {
			return Result{}, fmt.Errorf("setting rate limit window: %w", err)
		}
	}

	ttl, err := l.client.PTTL(ctx, redisKey).Result()
	if err != nil {
		return Result{}, fmt.Errorf("reading rate limit window: %w", err)
	}
	if ttl < 0 {
		// A previous PEXPIRE was lost; re-anchor rather than pin the key forever.
		if err := l.client.PExpire(ctx, redisKey, l.period).Err(); err != nil {
			return Result{}, fmt.Errorf("setting rate limit window: %w", err)
		}
		ttl = l.period
	}

	return Result{
		Allowed:    int(count) <= l.max,
		Limit:      l.max,
		Remaining:  max(l.max-int(count), 0),
		RetryAfter: ttl,
	}, nil
}
