package ratelimit

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// fixedWindowScript atomically consumes one slot of the current window
var fixedWindowScript = redis.NewScript(`
	local key = KEYS[1]
	local limit = tonumber(ARGV[1])
	local requested = tonumber(ARGV[2])
	local ttl = tonumber(ARGV[3])

	local current = tonumber(redis.call('GET', key)) or 0
	local allowed = current + requested <= limit

	if allowed then
		current = redis.call('INCRBY', key, requested)
		redis.call('EXPIRE', key, ttl)
	end

	if allowed then
		return {1, current}
	end
	return {0, current}
`)

// DistributedLimiter implements a fixed window limiter shared across instances through Redis
type DistributedLimiter struct {
	config Config
	redis  *redis.Client
	now    func() time.Time
}

// NewDistributedLimiter creates a new distributed limiter
func NewDistributedLimiter(config Config, redisClient *redis.Client) *DistributedLimiter {
	if config.Window <= 0 {
		config.Window = time.Minute
	}
	return &DistributedLimiter{
		config: config,
		redis:  redisClient,
		now:    time.Now,
	}
}

// Allow checks if a request is allowed in the current window
func (d *DistributedLimiter) Allow(ctx context.Context, key string) (*LimitInfo, error) {
	now := d.now()
	windowStart := now.Truncate(d.config.Window)
	keyStr := d.getRedisKey(key) + ":" + strconv.FormatInt(windowStart.Unix(), 10)

	limit := d.config.RequestsPerMinute + d.config.Burst
	ttl := int(d.config.Window.Seconds()) + 1

	result, err := fixedWindowScript.Run(ctx, d.redis, []string{keyStr}, limit, 1, ttl).Int64Slice()
	if err != nil {
		return nil, fmt.Errorf("fixed window script failed: %w", err)
	}
	if len(result) != 2 {
		return nil, fmt.Errorf("fixed window script returned %d values", len(result))
	}

	allowed := result[0] == 1
	current := result[1]

	remaining := limit - current
	if remaining < 0 {
		remaining = 0
	}

	reset := windowStart.Add(d.config.Window)

	var retryAfter time.Duration
	if !allowed {
		retryAfter = reset.Sub(now)
		if retryAfter < 0 {
			retryAfter = 0
		}
	}

	return &LimitInfo{
		Allowed:    allowed,
		Limit:      limit,
		Remaining:  remaining,
		Reset:      reset,
		RetryAfter: retryAfter,
	}, nil
}

// Wait blocks until the next window when the current one is exhausted
func (d *DistributedLimiter) Wait(ctx context.Context, key string) error {
	for {
		info, err := d.Allow(ctx, key)
		if err != nil {
			return err
		}
		if info.Allowed {
			return nil
		}

		timer := time.NewTimer(info.RetryAfter + 10*time.Millisecond)
		select {
		case <-ctx.Done():
			timer.Stop()
			return fmt.Errorf("rate limit wait for %s: %w", key, ctx.Err())
		case <-timer.C:
		}
	}
}

// Reset clears the current window for a key
func (d *DistributedLimiter) Reset(ctx context.Context, key string) error {
	windowStart := d.now().Truncate(d.config.Window)
	keyStr := d.getRedisKey(key) + ":" + strconv.FormatInt(windowStart.Unix(), 10)
	return d.redis.Del(ctx, keyStr).Err()
}

func (d *DistributedLimiter) getRedisKey(key string) string {
	prefix := d.config.KeyPrefix
	if prefix == "" {
		prefix = "ratelimit"
	}
	return prefix + ":" + key
}
