package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/biodoia/goleapcouncil/internal/council"
	"github.com/biodoia/goleapcouncil/internal/ratelimit"
	"github.com/biodoia/goleapcouncil/pkg/database"
	"github.com/spf13/viper"
)

// EnvPrefix è il prefisso delle variabili d'ambiente
const EnvPrefix = "COUNCIL"

// Config rappresenta la configurazione completa dell'applicazione
type Config struct {
	Server     ServerConfig     `mapstructure:"server" yaml:"server"`
	Database   database.Config  `mapstructure:"database" yaml:"database"`
	Redis      RedisConfig      `mapstructure:"redis" yaml:"redis"`
	Providers  []ProviderConfig `mapstructure:"providers" yaml:"providers"`
	Council    CouncilConfig    `mapstructure:"council" yaml:"council"`
	RateLimit  RateLimitConfig  `mapstructure:"rate_limit" yaml:"rate_limit"`
	Monitoring MonitoringConfig `mapstructure:"monitoring" yaml:"monitoring"`
}

// ServerConfig configurazione del server
type ServerConfig struct {
	Port           int      `mapstructure:"port" yaml:"port"`
	Host           string   `mapstructure:"host" yaml:"host"`
	AllowedOrigins []string `mapstructure:"allowed_origins" yaml:"allowed_origins"`
}

// RedisConfig configurazione Redis
type RedisConfig struct {
	Enabled  bool   `mapstructure:"enabled" yaml:"enabled"`
	Host     string `mapstructure:"host" yaml:"host"`
	Password string `mapstructure:"password" yaml:"password"`
	DB       int    `mapstructure:"db" yaml:"db"`
}

// ProviderConfig configurazione di un endpoint OpenAI-compatible
type ProviderConfig struct {
	Name       string        `mapstructure:"name" yaml:"name"`
	BaseURL    string        `mapstructure:"base_url" yaml:"base_url"`
	APIKey     string        `mapstructure:"api_key" yaml:"api_key"`
	Models     []string      `mapstructure:"models" yaml:"models"`
	MaxRetries int           `mapstructure:"max_retries" yaml:"max_retries"`
	Timeout    time.Duration `mapstructure:"timeout" yaml:"timeout"`
}

// CouncilConfig composizione del council e parametri di invocazione
type CouncilConfig struct {
	Models         []string      `mapstructure:"models" yaml:"models"`
	Chairman       string        `mapstructure:"chairman" yaml:"chairman"`
	TitleModel     string        `mapstructure:"title_model" yaml:"title_model"`
	MaxConcurrent  int           `mapstructure:"max_concurrent" yaml:"max_concurrent"`
	Temperature    float64       `mapstructure:"temperature" yaml:"temperature"`
	MaxTokens      int           `mapstructure:"max_tokens" yaml:"max_tokens"`
	Timeout        time.Duration `mapstructure:"timeout" yaml:"timeout"`
	TitleMaxTokens int           `mapstructure:"title_max_tokens" yaml:"title_max_tokens"`
	TitleTimeout   time.Duration `mapstructure:"title_timeout" yaml:"title_timeout"`
	HistoryTurns   int           `mapstructure:"history_turns" yaml:"history_turns"`
	HistoryChars   int           `mapstructure:"history_chars" yaml:"history_chars"`
	SynthesisChars int           `mapstructure:"synthesis_chars" yaml:"synthesis_chars"`
}

// RateLimitConfig limiti verso i provider e sulle API di messaggio
type RateLimitConfig struct {
	RequestsPerMinute     int64 `mapstructure:"requests_per_minute" yaml:"requests_per_minute"`
	Burst                 int64 `mapstructure:"burst" yaml:"burst"`
	HTTPRequestsPerMinute int64 `mapstructure:"http_requests_per_minute" yaml:"http_requests_per_minute"`
}

// MonitoringConfig configurazione monitoring
type MonitoringConfig struct {
	Prometheus struct {
		Enabled   bool   `mapstructure:"enabled" yaml:"enabled"`
		Namespace string `mapstructure:"namespace" yaml:"namespace"`
	} `mapstructure:"prometheus" yaml:"prometheus"`
	Logging struct {
		Level  string `mapstructure:"level" yaml:"level"`
		Format string `mapstructure:"format" yaml:"format"`
	} `mapstructure:"logging" yaml:"logging"`
	HealthCheckInterval time.Duration `mapstructure:"health_check_interval" yaml:"health_check_interval"`
}

// Load carica la configurazione da file, ambiente e default
func Load(configPath string) (*Config, error) {
	v := viper.New()

	// Set defaults
	setDefaults(v)

	// Read config file
	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("./configs")
		v.AddConfigPath(".")
	}

	// Read environment variables
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	_ = v.BindEnv("groq_api_key", "GROQ_API_KEY")

	// Read config file
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok || configPath != "" {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
		// Config file not found, use defaults
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// La chiave Groq può arrivare dalla variabile storica GROQ_API_KEY
	if key := v.GetString("groq_api_key"); key != "" {
		for i := range cfg.Providers {
			if cfg.Providers[i].Name == "groq" && cfg.Providers[i].APIKey == "" {
				cfg.Providers[i].APIKey = key
			}
		}
	}

	return &cfg, nil
}

// Default restituisce la configurazione di default senza leggere file
func Default() *Config {
	v := viper.New()
	setDefaults(v)

	var cfg Config
	_ = v.Unmarshal(&cfg)
	return &cfg
}

// setDefaults imposta i valori di default
func setDefaults(v *viper.Viper) {
	defaults := council.DefaultConfig()

	// Server defaults
	v.SetDefault("server.port", 8001)
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.allowed_origins", []string{"http://localhost:5173", "http://localhost:3000"})

	// Database defaults
	v.SetDefault("database.type", "sqlite")
	v.SetDefault("database.connection", "./data/council.db")
	v.SetDefault("database.max_conns", 10)
	v.SetDefault("database.log_level", "warn")

	// Redis defaults
	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.host", "localhost:6379")
	v.SetDefault("redis.db", 0)

	// Providers defaults
	v.SetDefault("providers", []map[string]interface{}{
		{
			"name":        "groq",
			"base_url":    "https://api.groq.com/openai",
			"models":      []string{},
			"max_retries": 1,
			"timeout":     "120s",
		},
	})

	// Council defaults
	v.SetDefault("council.models", defaults.Models)
	v.SetDefault("council.chairman", defaults.Chairman)
	v.SetDefault("council.title_model", defaults.TitleModel)
	v.SetDefault("council.max_concurrent", defaults.MaxConcurrent)
	v.SetDefault("council.temperature", defaults.Temperature)
	v.SetDefault("council.max_tokens", defaults.MaxTokens)
	v.SetDefault("council.timeout", defaults.Timeout.String())
	v.SetDefault("council.title_max_tokens", defaults.TitleMaxTokens)
	v.SetDefault("council.title_timeout", defaults.TitleTimeout.String())
	v.SetDefault("council.history_turns", defaults.HistoryTurns)
	v.SetDefault("council.history_chars", defaults.HistoryChars)
	v.SetDefault("council.synthesis_chars", defaults.SynthesisChars)

	// Rate limit defaults
	v.SetDefault("rate_limit.requests_per_minute", 30)
	v.SetDefault("rate_limit.burst", 5)
	v.SetDefault("rate_limit.http_requests_per_minute", 20)

	// Monitoring defaults
	v.SetDefault("monitoring.prometheus.enabled", true)
	v.SetDefault("monitoring.prometheus.namespace", "council")
	v.SetDefault("monitoring.logging.level", "info")
	v.SetDefault("monitoring.logging.format", "json")
	v.SetDefault("monitoring.health_check_interval", "5m")
}

// Validate valida la configurazione
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}

	switch c.Database.Type {
	case "sqlite", "postgres":
	default:
		return fmt.Errorf("unsupported database type: %s", c.Database.Type)
	}

	if len(c.Providers) == 0 {
		return fmt.Errorf("at least one provider is required")
	}
	names := make(map[string]struct{}, len(c.Providers))
	for _, p := range c.Providers {
		if p.Name == "" || p.BaseURL == "" {
			return fmt.Errorf("provider requires name and base_url")
		}
		if _, dup := names[p.Name]; dup {
			return fmt.Errorf("duplicate provider: %s", p.Name)
		}
		names[p.Name] = struct{}{}
	}

	if c.RateLimit.RequestsPerMinute < 0 || c.RateLimit.Burst < 0 || c.RateLimit.HTTPRequestsPerMinute < 0 {
		return fmt.Errorf("rate limits must not be negative")
	}

	if err := c.CouncilConfig().Validate(); err != nil {
		return fmt.Errorf("invalid council: %w", err)
	}

	return nil
}

// CouncilConfig converte la sezione council nella configurazione dell'orchestratore
func (c *Config) CouncilConfig() council.Config {
	return council.Config{
		Models:         append([]string(nil), c.Council.Models...),
		Chairman:       c.Council.Chairman,
		TitleModel:     c.Council.TitleModel,
		MaxConcurrent:  c.Council.MaxConcurrent,
		Temperature:    c.Council.Temperature,
		MaxTokens:      c.Council.MaxTokens,
		Timeout:        c.Council.Timeout,
		TitleMaxTokens: c.Council.TitleMaxTokens,
		TitleTimeout:   c.Council.TitleTimeout,
		HistoryTurns:   c.Council.HistoryTurns,
		HistoryChars:   c.Council.HistoryChars,
		SynthesisChars: c.Council.SynthesisChars,
	}
}

// ProviderLimits restituisce i limiti verso i provider
func (c *Config) ProviderLimits() ratelimit.Config {
	cfg := ratelimit.DefaultConfig()
	cfg.RequestsPerMinute = c.RateLimit.RequestsPerMinute
	cfg.Burst = c.RateLimit.Burst
	cfg.Distributed = c.Redis.Enabled
	cfg.KeyPrefix = "council:provider"
	return cfg
}

// HTTPLimits restituisce i limiti per client sulle API di messaggio
func (c *Config) HTTPLimits() ratelimit.Config {
	cfg := ratelimit.DefaultConfig()
	cfg.RequestsPerMinute = c.RateLimit.HTTPRequestsPerMinute
	cfg.Burst = c.RateLimit.HTTPRequestsPerMinute
	cfg.Distributed = c.Redis.Enabled
	cfg.KeyPrefix = "council:http"
	return cfg
}
