package ratelimit

import (
	"fmt"
	"strconv"

	"github.com/gofiber/fiber/v3"
)

// MiddlewareConfig represents middleware configuration
type MiddlewareConfig struct {
	// Limiter to consult for each request
	Limiter Limiter

	// KeyFunc generates the rate limit key from request
	KeyFunc func(c fiber.Ctx) string

	// OnRateLimitExceeded is called when rate limit is exceeded
	OnRateLimitExceeded func(c fiber.Ctx, info *LimitInfo) error
}

// Middleware returns a Fiber middleware for rate limiting
func Middleware(config MiddlewareConfig) fiber.Handler {
	if config.KeyFunc == nil {
		config.KeyFunc = DefaultKeyFunc
	}
	if config.OnRateLimitExceeded == nil {
		config.OnRateLimitExceeded = DefaultRateLimitExceeded
	}

	return func(c fiber.Ctx) error {
		info, err := config.Limiter.Allow(c.Context(), config.KeyFunc(c))
		if err != nil {
			return fmt.Errorf("rate limit check failed: %w", err)
		}

		setRateLimitHeaders(c, info)

		if !info.Allowed {
			return config.OnRateLimitExceeded(c, info)
		}

		return c.Next()
	}
}

// DefaultKeyFunc limits by client IP
func DefaultKeyFunc(c fiber.Ctx) string {
	return "ip:" + c.IP()
}

// DefaultRateLimitExceeded returns a 429 with retry information
func DefaultRateLimitExceeded(c fiber.Ctx, info *LimitInfo) error {
	if info.RetryAfter > 0 {
		c.Set("Retry-After", strconv.Itoa(int(info.RetryAfter.Seconds())+1))
	}

	return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
		"error":       "rate_limit_exceeded",
		"message":     "Too many requests. Please try again later.",
		"limit":       info.Limit,
		"remaining":   info.Remaining,
		"retry_after": int(info.RetryAfter.Seconds()),
	})
}

// setRateLimitHeaders sets rate limit headers on response
func setRateLimitHeaders(c fiber.Ctx, info *LimitInfo) {
	if info.Limit > 0 {
		c.Set("X-RateLimit-Limit", strconv.FormatInt(info.Limit, 10))
	}

	if info.Remaining >= 0 {
		c.Set("X-RateLimit-Remaining", strconv.FormatInt(info.Remaining, 10))
	}

	if !info.Reset.IsZero() {
		c.Set("X-RateLimit-Reset", strconv.FormatInt(info.Reset.Unix(), 10))
	}
}
