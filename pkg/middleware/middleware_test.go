package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRequestID(t *testing.T) {
	app := fiber.New()
	app.Use(RequestID())

	var seen string
	app.Get("/test", func(c fiber.Ctx) error {
		seen = GetRequestID(c)
		return c.SendString("OK")
	})

	t.Run("generated", func(t *testing.T) {
		resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/test", nil))
		require.NoError(t, err)
		assert.NotEmpty(t, seen)
		assert.Equal(t, seen, resp.Header.Get(HeaderRequestID))
	})

	t.Run("propagated", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/test", nil)
		req.Header.Set(HeaderRequestID, "req-123")

		resp, err := app.Test(req)
		require.NoError(t, err)
		assert.Equal(t, "req-123", seen)
		assert.Equal(t, "req-123", resp.Header.Get(HeaderRequestID))
	})
}

func TestRecovery(t *testing.T) {
	app := fiber.New()
	app.Use(RequestID(), Recovery(RecoveryConfig{EnableStackTrace: false}))

	app.Get("/panic", func(c fiber.Ctx) error {
		panic("test panic")
	})

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/panic", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusInternalServerError, resp.StatusCode)
}

func TestLogging(t *testing.T) {
	app := fiber.New()
	app.Use(RequestID(), Logging(LoggingConfig{SkipPaths: []string{"/health"}}))

	app.Get("/health", func(c fiber.Ctx) error { return c.SendString("ok") })
	app.Get("/missing", func(c fiber.Ctx) error { return fiber.ErrNotFound })

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/health", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	resp, err = app.Test(httptest.NewRequest(http.MethodGet, "/missing", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
}

func TestCORS(t *testing.T) {
	app := fiber.New()
	app.Use(CORS(DefaultCORSConfig("http://localhost:5173", "*.example.com")))
	app.Get("/api", func(c fiber.Ctx) error { return c.SendString("ok") })

	tests := []struct {
		name       string
		method     string
		origin     string
		wantStatus int
		wantOrigin string
	}{
		{name: "no origin", method: http.MethodGet, wantStatus: fiber.StatusOK},
		{name: "allowed origin", method: http.MethodGet, origin: "http://localhost:5173", wantStatus: fiber.StatusOK, wantOrigin: "http://localhost:5173"},
		{name: "wildcard subdomain", method: http.MethodGet, origin: "https://app.example.com", wantStatus: fiber.StatusOK, wantOrigin: "https://app.example.com"},
		{name: "rejected origin", method: http.MethodGet, origin: "http://evil.test", wantStatus: fiber.StatusForbidden},
		{name: "preflight", method: http.MethodOptions, origin: "http://localhost:5173", wantStatus: fiber.StatusNoContent, wantOrigin: "http://localhost:5173"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, "/api", nil)
			if tt.origin != "" {
				req.Header.Set("Origin", tt.origin)
			}

			resp, err := app.Test(req)
			require.NoError(t, err)
			assert.Equal(t, tt.wantStatus, resp.StatusCode)
			assert.Equal(t, tt.wantOrigin, resp.Header.Get("Access-Control-Allow-Origin"))

			if tt.method == http.MethodOptions {
				assert.Equal(t, "86400", resp.Header.Get("Access-Control-Max-Age"))
			}
		})
	}
}
