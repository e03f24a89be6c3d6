// Package config loads and validates environment-based configuration.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

type Env string

const (
	EnvProd Env = "prod"
	EnvDev  Env = "dev"
)

func (e Env) IsValid() bool {
	switch e {
	case EnvProd, EnvDev:
		return true
	}
	return false
}

type Mode string

const (
	ModeSync  Mode = "sync"
	ModeBatch Mode = "batch"
)

func (m Mode) IsValid() bool {
	switch m {
	case ModeSync, ModeBatch:
		return true
	}
	return false
}

type CacheBackend string

const (
	CacheNone     CacheBackend = "none"
	CachePostgres CacheBackend = "postgres"
	CacheRedis    CacheBackend = "redis"
)

func (c CacheBackend) IsValid() bool {
	switch c {
	case CacheNone, CachePostgres, CacheRedis:
		return true
	}
	return false
}

type Config struct {
	ServiceURL  string        `env:"MATRIX_SERVICE_URL" envDefault:"https://graphhopper.com/api/1"`
	APIKey      string        `env:"MATRIX_API_KEY"`
	Mode        Mode          `env:"MATRIX_MODE" envDefault:"sync"`
	HTTPTimeout time.Duration `env:"MATRIX_HTTP_TIMEOUT" envDefault:"30s"`

	PollInitial      time.Duration `env:"MATRIX_POLL_INITIAL" envDefault:"500ms"`
	PollMax          time.Duration `env:"MATRIX_POLL_MAX" envDefault:"5s"`
	PollFactor       float64       `env:"MATRIX_POLL_FACTOR" envDefault:"1.5"`
	PollMaxWait      time.Duration `env:"MATRIX_POLL_MAX_WAIT" envDefault:"5m"`
	PollMaxPolls     int           `env:"MATRIX_POLL_MAX_POLLS" envDefault:"0"`
	PollMaxTransient int           `env:"MATRIX_POLL_MAX_TRANSIENT" envDefault:"3"`

	// Requests per second; 0 disables client-side rate limiting.
	RateLimit float64 `env:"MATRIX_RATE_LIMIT" envDefault:"0"`
	RateBurst int     `env:"MATRIX_RATE_BURST" envDefault:"1"`

	Cache       CacheBackend  `env:"MATRIX_CACHE" envDefault:"none"`
	CacheTTL    time.Duration `env:"MATRIX_CACHE_TTL" envDefault:"24h"`
	DatabaseURL string        `env:"DATABASE_URL"`
	RedisAddr   string        `env:"REDIS_ADDR" envDefault:"localhost:6379"`

	Env Env `env:"ENV" envDefault:"prod"`
}

func New() (*Config, error) {
	cfg, err := env.ParseAs[Config]()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	if !c.Env.IsValid() {
		return fmt.Errorf("invalid env variable (must be 'prod' or 'dev')")
	}
	if !c.Mode.IsValid() {
		return fmt.Errorf("invalid MATRIX_MODE %q (must be 'sync' or 'batch')", c.Mode)
	}
	if !c.Cache.IsValid() {
		return fmt.Errorf("invalid MATRIX_CACHE %q (must be 'none', 'postgres' or 'redis')", c.Cache)
	}
	if strings.TrimSpace(c.ServiceURL) == "" {
		return fmt.Errorf("MATRIX_SERVICE_URL must not be empty")
	}
	if c.PollInitial <= 0 || c.PollMax < c.PollInitial {
		return fmt.Errorf("poll delays must satisfy 0 < MATRIX_POLL_INITIAL <= MATRIX_POLL_MAX")
	}
	if c.PollFactor < 1 {
		return fmt.Errorf("MATRIX_POLL_FACTOR must be >= 1, got %v", c.PollFactor)
	}
	if c.PollMaxWait <= 0 {
		return fmt.Errorf("MATRIX_POLL_MAX_WAIT must be positive")
	}
	if c.PollMaxPolls < 0 || c.PollMaxTransient < 0 {
		return fmt.Errorf("poll counts must not be negative")
	}
	if c.Cache == CachePostgres && strings.TrimSpace(c.DatabaseURL) == "" {
		return fmt.Errorf("DATABASE_URL is required when MATRIX_CACHE=postgres")
	}
	return nil
}
