package gateway

import (
	"context"
	"errors"
	"fmt"

	"github.com/biodoia/goleapcouncil/internal/conversation"
	"github.com/biodoia/goleapcouncil/internal/health"
	"github.com/biodoia/goleapcouncil/internal/ratelimit"
	"github.com/biodoia/goleapcouncil/internal/stats"
	"github.com/biodoia/goleapcouncil/pkg/config"
	"github.com/biodoia/goleapcouncil/pkg/database"
	"github.com/biodoia/goleapcouncil/pkg/middleware"
	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/adaptor"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Version è la versione riportata da /health
var Version = "dev"

// Gateway espone il council e lo storage delle conversazioni via HTTP
type Gateway struct {
	config  *config.Config
	db      *database.DB
	service *conversation.Service
	metrics *stats.Metrics
	limiter ratelimit.Limiter
	health  *health.Monitor
	app     *fiber.App
	logger  zerolog.Logger
}

// Option configura il gateway
type Option func(*Gateway)

// WithMetrics espone le metriche su /metrics
func WithMetrics(metrics *stats.Metrics) Option {
	return func(g *Gateway) { g.metrics = metrics }
}

// WithLimiter limita per client le route che avviano una run
func WithLimiter(limiter ratelimit.Limiter) Option {
	return func(g *Gateway) { g.limiter = limiter }
}

// WithHealth riporta lo stato dei provider su /health
func WithHealth(monitor *health.Monitor) Option {
	return func(g *Gateway) { g.health = monitor }
}

// New crea una nuova istanza del gateway
func New(cfg *config.Config, db *database.DB, service *conversation.Service, opts ...Option) *Gateway {
	app := fiber.New(fiber.Config{
		AppName:      "LLM Council API",
		ServerHeader: "goleapcouncil",
		ErrorHandler: customErrorHandler,
	})

	gw := &Gateway{
		config:  cfg,
		db:      db,
		service: service,
		limiter: ratelimit.Noop{},
		app:     app,
		logger:  log.With().Str("component", "gateway").Logger(),
	}
	for _, opt := range opts {
		opt(gw)
	}

	gw.setupMiddlewares()
	gw.setupRoutes()

	return gw
}

// customErrorHandler gestisce gli errori globali
func customErrorHandler(c fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	message := "Internal Server Error"

	var fe *fiber.Error
	if errors.As(err, &fe) {
		code = fe.Code
		message = fe.Message
	}

	return c.Status(code).JSON(fiber.Map{
		"error":      message,
		"request_id": middleware.GetRequestID(c),
	})
}

// mapError traduce gli errori del service in errori HTTP
func mapError(err error) error {
	switch {
	case errors.Is(err, conversation.ErrNotFound):
		return fiber.NewError(fiber.StatusNotFound, "Conversation not found")
	case errors.Is(err, conversation.ErrEmptyContent):
		return fiber.NewError(fiber.StatusBadRequest, "Message content must not be empty")
	default:
		return err
	}
}

// setupMiddlewares configura i middleware globali
func (g *Gateway) setupMiddlewares() {
	// Il request ID serve già al recovery per correlare i panic
	g.app.Use(middleware.RequestID())
	g.app.Use(middleware.Recovery())
	g.app.Use(middleware.CORS(middleware.DefaultCORSConfig(g.config.Server.AllowedOrigins...)))
	g.app.Use(middleware.Logging(middleware.LoggingConfig{
		SkipPaths: []string{"/health", "/metrics"},
	}))
}

// setupRoutes configura le route HTTP
func (g *Gateway) setupRoutes() {
	g.app.Get("/", g.handleRoot)
	g.app.Get("/health", g.handleHealth)

	if g.config.Monitoring.Prometheus.Enabled && g.metrics != nil {
		g.app.Get("/metrics", adaptor.HTTPHandler(g.metrics.Handler()))
	}

	api := g.app.Group("/api")
	api.Get("/stats", g.handleStats)
	api.Get("/debug/conversations/:id", g.handleDebugConversation)

	api.Get("/conversations", g.handleListConversations)
	api.Post("/conversations", g.handleCreateConversation)
	api.Get("/conversations/:id", g.handleGetConversation)
	api.Delete("/conversations/:id", g.handleDeleteConversation)
	api.Put("/conversations/:id/title", g.handleUpdateTitle)

	limited := ratelimit.Middleware(ratelimit.MiddlewareConfig{Limiter: g.limiter})
	api.Post("/conversations/:id/message", limited, g.handleSendMessage)
	api.Post("/conversations/:id/message/stream", limited, g.handleSendMessageStream)
}

// App restituisce l'applicazione fiber
func (g *Gateway) App() *fiber.App {
	return g.app
}

// Start avvia il gateway
func (g *Gateway) Start() error {
	addr := fmt.Sprintf("%s:%d", g.config.Server.Host, g.config.Server.Port)
	return g.app.Listen(addr, fiber.ListenConfig{DisableStartupMessage: true})
}

// Shutdown esegue lo shutdown graceful del gateway
func (g *Gateway) Shutdown(ctx context.Context) error {
	if err := g.app.ShutdownWithContext(ctx); err != nil {
		return fmt.Errorf("failed to shutdown server: %w", err)
	}

	g.logger.Info().Msg("Gateway shutdown completed")
	return nil
}
