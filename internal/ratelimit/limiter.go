package ratelimit

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/time/rate"
)

// Config represents rate limit configuration
type Config struct {
	// RequestsPerMinute is the sustained budget per key
	RequestsPerMinute int64

	// Burst allowance (additional requests allowed in short bursts)
	Burst int64

	// Window duration for the distributed fixed window
	Window time.Duration

	// Enable distributed mode (using Redis)
	Distributed bool

	// Key prefix for Redis
	KeyPrefix string
}

// DefaultConfig returns the limits matching Groq's free tier
func DefaultConfig() Config {
	return Config{
		RequestsPerMinute: 30,
		Burst:             5,
		Window:            time.Minute,
		KeyPrefix:         "council:ratelimit",
	}
}

// LimitInfo contains information about current limit state
type LimitInfo struct {
	// Allowed indicates if the request is allowed
	Allowed bool

	// Limit is the maximum number of requests allowed
	Limit int64

	// Remaining is the number of requests remaining
	Remaining int64

	// Reset is when the limit will reset
	Reset time.Time

	// RetryAfter is how long to wait before retrying
	RetryAfter time.Duration
}

// Limiter is a keyed request limiter
type Limiter interface {
	// Allow checks whether one request for key may proceed now
	Allow(ctx context.Context, key string) (*LimitInfo, error)

	// Wait blocks until one request for key may proceed or ctx is done
	Wait(ctx context.Context, key string) error
}

// New returns a Redis-backed limiter when distributed mode is enabled,
// an in-process limiter otherwise. A non-positive budget disables limiting.
func New(config Config, redisClient *redis.Client) (Limiter, error) {
	if config.RequestsPerMinute <= 0 {
		return Noop{}, nil
	}
	if config.Window <= 0 {
		config.Window = time.Minute
	}

	if config.Distributed {
		if redisClient == nil {
			return nil, fmt.Errorf("distributed rate limiting requires a redis client")
		}
		return NewDistributedLimiter(config, redisClient), nil
	}

	return NewLocalLimiter(config), nil
}

// LocalLimiter keeps one token bucket per key in memory
type LocalLimiter struct {
	config   Config
	limiters map[string]*rate.Limiter
	mu       sync.Mutex
}

// NewLocalLimiter creates a new in-process limiter
func NewLocalLimiter(config Config) *LocalLimiter {
	return &LocalLimiter{
		config:   config,
		limiters: make(map[string]*rate.Limiter),
	}
}

func (l *LocalLimiter) get(key string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()

	limiter, exists := l.limiters[key]
	if !exists {
		perSecond := rate.Limit(float64(l.config.RequestsPerMinute) / 60.0)
		burst := int(l.config.Burst)
		if burst < 1 {
			burst = 1
		}
		limiter = rate.NewLimiter(perSecond, burst)
		l.limiters[key] = limiter
	}
	return limiter
}

// Allow checks if a request is allowed
func (l *LocalLimiter) Allow(ctx context.Context, key string) (*LimitInfo, error) {
	limiter := l.get(key)
	now := time.Now()

	reservation := limiter.ReserveN(now, 1)
	if !reservation.OK() {
		return nil, fmt.Errorf("rate limit burst is zero for key %s", key)
	}

	delay := reservation.DelayFrom(now)
	allowed := delay == 0
	if !allowed {
		reservation.CancelAt(now)
	}

	remaining := int64(math.Floor(limiter.TokensAt(now)))
	if remaining < 0 {
		remaining = 0
	}

	return &LimitInfo{
		Allowed:    allowed,
		Limit:      int64(limiter.Burst()),
		Remaining:  remaining,
		Reset:      now.Add(delay),
		RetryAfter: delay,
	}, nil
}

// Wait blocks until a request is allowed
func (l *LocalLimiter) Wait(ctx context.Context, key string) error {
	if err := l.get(key).Wait(ctx); err != nil {
		return fmt.Errorf("rate limit wait for %s: %w", key, err)
	}
	return nil
}

// Noop never limits
type Noop struct{}

// Allow always allows
func (Noop) Allow(ctx context.Context, key string) (*LimitInfo, error) {
	return &LimitInfo{Allowed: true, Remaining: -1}, nil
}

// Wait never blocks
func (Noop) Wait(ctx context.Context, key string) error {
	return ctx.Err()
}
