package ratelimit

import (
	"context"
	"fmt"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gofiber/fiber/v3"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	return mr, client
}

func TestNew(t *testing.T) {
	_, client := setupTestRedis(t)

	tests := []struct {
		name    string
		config  Config
		client  *redis.Client
		want    interface{}
		wantErr bool
	}{
		{name: "disabled", config: Config{}, want: Noop{}},
		{name: "local", config: DefaultConfig(), want: &LocalLimiter{}},
		{name: "distributed", config: Config{RequestsPerMinute: 10, Distributed: true}, client: client, want: &DistributedLimiter{}},
		{name: "distributed without redis", config: Config{RequestsPerMinute: 10, Distributed: true}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			limiter, err := New(tt.config, tt.client)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.IsType(t, tt.want, limiter)
		})
	}
}

func TestLocalLimiter_Allow(t *testing.T) {
	limiter := NewLocalLimiter(Config{RequestsPerMinute: 60, Burst: 2})
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		info, err := limiter.Allow(ctx, "groq")
		require.NoError(t, err)
		assert.True(t, info.Allowed, "request %d should pass", i)
	}

	info, err := limiter.Allow(ctx, "groq")
	require.NoError(t, err)
	assert.False(t, info.Allowed)
	assert.Greater(t, info.RetryAfter, time.Duration(0))

	// Chiavi diverse hanno bucket indipendenti
	info, err = limiter.Allow(ctx, "openrouter")
	require.NoError(t, err)
	assert.True(t, info.Allowed)
}

func TestLocalLimiter_WaitHonoursContext(t *testing.T) {
	limiter := NewLocalLimiter(Config{RequestsPerMinute: 1, Burst: 1})
	require.NoError(t, limiter.Wait(context.Background(), "groq"))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	assert.Error(t, limiter.Wait(ctx, "groq"))
}

func TestDistributedLimiter_FixedWindow(t *testing.T) {
	_, client := setupTestRedis(t)
	limiter := NewDistributedLimiter(Config{RequestsPerMinute: 2, Burst: 1, KeyPrefix: "test"}, client)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		info, err := limiter.Allow(ctx, "groq")
		require.NoError(t, err)
		assert.True(t, info.Allowed, "request %d should pass", i)
		assert.Equal(t, int64(3), info.Limit)
		assert.Equal(t, int64(2-i), info.Remaining)
	}

	info, err := limiter.Allow(ctx, "groq")
	require.NoError(t, err)
	assert.False(t, info.Allowed)
	assert.Equal(t, int64(0), info.Remaining)

	require.NoError(t, limiter.Reset(ctx, "groq"))

	info, err = limiter.Allow(ctx, "groq")
	require.NoError(t, err)
	assert.True(t, info.Allowed)
}

func TestDistributedLimiter_WaitCancelled(t *testing.T) {
	_, client := setupTestRedis(t)
	limiter := NewDistributedLimiter(Config{RequestsPerMinute: 1, Window: time.Hour}, client)

	require.NoError(t, limiter.Wait(context.Background(), "groq"))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	err := limiter.Wait(ctx, "groq")
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestDistributedLimiter_RedisDown(t *testing.T) {
	mr, client := setupTestRedis(t)
	limiter := NewDistributedLimiter(Config{RequestsPerMinute: 1}, client)
	mr.Close()

	_, err := limiter.Allow(context.Background(), "groq")
	assert.Error(t, err)
}

func TestMiddleware(t *testing.T) {
	app := fiber.New()
	app.Use(Middleware(MiddlewareConfig{
		Limiter: NewLocalLimiter(Config{RequestsPerMinute: 1, Burst: 1}),
		KeyFunc: func(c fiber.Ctx) string { return "fixed" },
	}))
	app.Get("/", func(c fiber.Ctx) error { return c.SendString("ok") })

	resp, err := app.Test(httptest.NewRequest("GET", "/", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, "1", resp.Header.Get("X-RateLimit-Limit"))

	resp, err = app.Test(httptest.NewRequest("GET", "/", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusTooManyRequests, resp.StatusCode)
	assert.NotEmpty(t, resp.Header.Get("Retry-After"))
}

func Example_local() {
	limiter, _ := New(Config{RequestsPerMinute: 30, Burst: 5}, nil)

	info, err := limiter.Allow(context.Background(), "groq")
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}

	if info.Allowed {
		fmt.Println("Request allowed")
	}
	// Output: Request allowed
}
