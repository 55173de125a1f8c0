package commands

import (
	"fmt"
	"os"
	"time"

	"github.com/biodoia/goleapcouncil/internal/council"
	"github.com/biodoia/goleapcouncil/internal/providers"
	"github.com/biodoia/goleapcouncil/internal/providers/openai"
	"github.com/biodoia/goleapcouncil/internal/ratelimit"
	"github.com/biodoia/goleapcouncil/internal/stats"
	"github.com/biodoia/goleapcouncil/pkg/config"
	"github.com/biodoia/goleapcouncil/pkg/database"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

// loadConfig carica e valida la configurazione indicata da --config
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	configPath, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	if level, _ := cmd.Flags().GetString("log-level"); level != "" {
		cfg.Monitoring.Logging.Level = level
	}
	return cfg, nil
}

// setupLogger configura il logger globale
func setupLogger(level string, console bool) {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil || level == "" {
		lvl = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(lvl)

	if console {
		log.Logger = log.Output(zerolog.ConsoleWriter{
			Out:        os.Stderr,
			TimeFormat: time.RFC3339,
		})
		return
	}

	// JSON output for production
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
}

// initDB apre il database configurato
func initDB(cmd *cobra.Command) (*database.DB, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}

	db, err := database.New(&cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	return db, nil
}

// buildRegistry registra un client OpenAI-compatible per ogni provider configurato
func buildRegistry(cfg *config.Config) (*providers.Registry, error) {
	registry := providers.NewRegistry()

	for _, p := range cfg.Providers {
		if p.APIKey == "" {
			log.Warn().Str("provider", p.Name).Msg("Provider has no API key configured")
		}

		opts := []openai.Option{openai.WithMaxRetries(p.MaxRetries)}
		if p.Timeout > 0 {
			opts = append(opts, openai.WithTimeout(p.Timeout))
		}

		client := openai.NewClient(p.Name, p.BaseURL, p.APIKey, opts...)
		if err := registry.Register(client, p.Models...); err != nil {
			return nil, fmt.Errorf("failed to register provider %s: %w", p.Name, err)
		}
	}

	return registry, nil
}

// newRedisClient crea il client Redis quando il limite distribuito è abilitato
func newRedisClient(cfg *config.Config) *redis.Client {
	if !cfg.Redis.Enabled {
		return nil
	}

	return redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Host,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
}

// stack raccoglie i componenti condivisi da serve e ask
type stack struct {
	registry *providers.Registry
	limiter  ratelimit.Limiter
	redis    *redis.Client
	metrics  *stats.Metrics
	council  *council.Council
}

// Close rilascia le risorse dello stack
func (s *stack) Close() {
	if s.redis != nil {
		_ = s.redis.Close()
	}
}

// buildStack costruisce provider, limiter, metriche e council
func buildStack(cfg *config.Config, councilCfg council.Config) (*stack, error) {
	registry, err := buildRegistry(cfg)
	if err != nil {
		return nil, err
	}

	rdb := newRedisClient(cfg)
	limiter, err := ratelimit.New(cfg.ProviderLimits(), rdb)
	if err != nil {
		return nil, fmt.Errorf("failed to create rate limiter: %w", err)
	}

	var metrics *stats.Metrics
	if cfg.Monitoring.Prometheus.Enabled {
		metrics = stats.NewMetrics(cfg.Monitoring.Prometheus.Namespace)
	}

	c, err := council.New(councilCfg,
		council.NewProviderInvoker(registry, limiter),
		council.WithMetrics(metrics),
		council.WithLogger(log.Logger),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create council: %w", err)
	}

	return &stack{
		registry: registry,
		limiter:  limiter,
		redis:    rdb,
		metrics:  metrics,
		council:  c,
	}, nil
}
