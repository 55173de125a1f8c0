package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/biodoia/goleapcouncil/internal/conversation"
	"github.com/biodoia/goleapcouncil/internal/gateway"
	"github.com/biodoia/goleapcouncil/internal/health"
	"github.com/biodoia/goleapcouncil/internal/ratelimit"
	"github.com/biodoia/goleapcouncil/pkg/database"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var (
	devMode     bool
	verbose     bool
	autoMigrate bool
)

// ServeCmd rappresenta il comando serve
var ServeCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the LLM Council API server",
	Long: `Start the HTTP server that runs council deliberations and
stores conversations.`,
	Example: `  # Start server with default settings
  council serve

  # Start in development mode with verbose logging
  council serve --dev --verbose

  # Start with custom config
  council serve -c /path/to/config.yaml`,
	RunE: runServe,
}

func init() {
	ServeCmd.Flags().BoolVar(&devMode, "dev", false, "Enable development mode (pretty logging)")
	ServeCmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging (debug level)")
	ServeCmd.Flags().BoolVar(&autoMigrate, "migrate", true, "Auto-run database migrations on startup")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	level := cfg.Monitoring.Logging.Level
	if verbose {
		level = "debug"
	}
	setupLogger(level, devMode || cfg.Monitoring.Logging.Format == "console")

	log.Info().Msg("Starting LLM Council API")

	log.Info().
		Str("host", cfg.Server.Host).
		Int("port", cfg.Server.Port).
		Strs("council", cfg.Council.Models).
		Str("chairman", cfg.Council.Chairman).
		Bool("dev_mode", devMode).
		Msg("Configuration loaded")

	// Initialize database
	db, err := database.New(&cfg.Database)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer db.Close()

	log.Info().
		Str("type", cfg.Database.Type).
		Msg("Database connected")

	if autoMigrate {
		if err := db.AutoMigrate(); err != nil {
			return fmt.Errorf("failed to run migrations: %w", err)
		}
		log.Info().Msg("Database migrations completed")
	}

	st, err := buildStack(cfg, cfg.CouncilConfig())
	if err != nil {
		return err
	}
	defer st.Close()

	httpLimiter, err := ratelimit.New(cfg.HTTPLimits(), st.redis)
	if err != nil {
		return fmt.Errorf("failed to create HTTP rate limiter: %w", err)
	}

	monitor := health.NewMonitor(st.registry, cfg.Monitoring.HealthCheckInterval)
	monitor.Start()
	defer monitor.Stop()

	service := conversation.NewService(conversation.NewStore(db.DB), st.council, log.Logger)
	gw := gateway.New(cfg, db, service,
		gateway.WithMetrics(st.metrics),
		gateway.WithLimiter(httpLimiter),
		gateway.WithHealth(monitor),
	)

	errCh := make(chan error, 1)
	go func() {
		errCh <- gw.Start()
	}()

	log.Info().Msgf("Council API running on http://%s:%d", cfg.Server.Host, cfg.Server.Port)
	if cfg.Monitoring.Prometheus.Enabled {
		log.Info().Msgf("Metrics: http://%s:%d/metrics", cfg.Server.Host, cfg.Server.Port)
	}

	return waitForShutdown(gw, errCh)
}

func waitForShutdown(gw *gateway.Gateway, errCh <-chan error) error {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return fmt.Errorf("gateway failed: %w", err)
	case <-quit:
	}

	log.Info().Msg("Shutting down gracefully...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := gw.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("Error during shutdown")
		return err
	}

	log.Info().Msg("LLM Council API stopped cleanly")
	return nil
}
