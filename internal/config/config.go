// Package config loads and validates application configuration from environment variables.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"

	"github.com/pkordes/plan-itinerary/internal/currency"
	"github.com/pkordes/plan-itinerary/internal/domain"
)

// Config holds all configuration values for the API server.
// Values are populated by Load from environment variables.
type Config struct {
	// Port is the TCP port the HTTP server listens on.
	Port string `env:"PORT" env-default:"8080"`

	// DatabaseURL is the Postgres connection string. Required.
	DatabaseURL string `env:"DATABASE_URL" env-description:"Postgres connection string"`

	// LogLevel controls the minimum log level: debug, info, warn or error.
	LogLevel string `env:"LOG_LEVEL" env-default:"info"`

	// CORSOrigins is the list of allowed cross-origin request origins.
	CORSOrigins []string `env:"CORS_ORIGINS" env-separator:"," env-default:"http://localhost:5173"`

	// MigrateOnStart applies pending goose migrations before serving.
	MigrateOnStart bool `env:"MIGRATE_ON_START" env-default:"true"`

	// RedisURL enables the plan snapshot cache when set.
	RedisURL string        `env:"REDIS_URL"`
	CacheTTL time.Duration `env:"CACHE_TTL" env-default:"5m"`

	// ExchangeRatesRaw is the rate table as CODE=rate pairs, units per 1 USD.
	ExchangeRatesRaw string `env:"EXCHANGE_RATES" env-default:"USD=1,KRW=1450,EUR=0.92,JPY=145"`

	// DefaultCurrencyRaw is assumed for details written without a currency.
	DefaultCurrencyRaw string `env:"DEFAULT_CURRENCY" env-default:"KRW"`

	// OverlapPolicy names how overlapping detail writes are settled:
	// last-writer-wins or reject.
	OverlapPolicy string `env:"OVERLAP_POLICY" env-default:"last-writer-wins"`

	RetentionWindow time.Duration `env:"RETENTION_WINDOW" env-default:"720h"`
	PurgeSchedule   string        `env:"PURGE_SCHEDULE" env-default:"0 3 * * *"`

	RateLimitRPS   float64 `env:"RATE_LIMIT_RPS" env-default:"50"`
	RateLimitBurst int     `env:"RATE_LIMIT_BURST" env-default:"100"`
	MaxBodyBytes   int64   `env:"MAX_BODY_BYTES" env-default:"1048576"`

	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" env-default:"10s"`

	// Parsed from the raw fields above by Load.
	ExchangeRates   currency.Rates
	DefaultCurrency domain.Currency
}

// Load reads configuration from environment variables and returns a Config.
// A .env file in the working directory is read first when present; variables
// already set in the environment win over it.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("config: read .env: %w", err)
	}

	var cfg Config
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return Config{}, fmt.Errorf("config: %w", err)
	}

	if cfg.DatabaseURL == "" {
		return Config{}, fmt.Errorf("required environment variables not set: DATABASE_URL")
	}

	rates, err := currency.ParseRates(cfg.ExchangeRatesRaw)
	if err != nil {
		return Config{}, fmt.Errorf("config: EXCHANGE_RATES: %w", err)
	}
	cfg.ExchangeRates = rates

	cur, err := domain.ParseCurrency(cfg.DefaultCurrencyRaw)
	if err != nil {
		return Config{}, fmt.Errorf("config: DEFAULT_CURRENCY: %w", err)
	}
	cfg.DefaultCurrency = cur

	if cfg.RetentionWindow <= 0 {
		return Config{}, fmt.Errorf("config: RETENTION_WINDOW must be positive, got %s", cfg.RetentionWindow)
	}
	return cfg, nil
}

// Usage describes every supported variable, for --help output.
func Usage() (string, error) {
	return cleanenv.GetDescription(&Config{}, nil)
}
