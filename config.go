package apiclient

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config mirrors every client tunable as an environment-parseable struct.
// Functional options remain the primary API; Config exists so deployments
// can configure the client entirely through ONWARD_* variables and bridge
// into options with Options().
type Config struct {
	// BaseURL is the primary backend base URL.
	BaseURL string `env:"ONWARD_API_BASE_URL" envDefault:"http://localhost:3001/api"`

	// StandbyURL and StandbyAPIKey configure the standby data service.
	// Leaving StandbyURL empty disables the standby path entirely.
	StandbyURL    string `env:"ONWARD_STANDBY_URL"`
	StandbyAPIKey string `env:"ONWARD_STANDBY_API_KEY"`

	// UseStandby statically selects the standby backend for every
	// standby-capable read.
	UseStandby bool `env:"ONWARD_USE_STANDBY"`

	// RequestTimeout is the hard deadline for each network attempt.
	RequestTimeout time.Duration `env:"ONWARD_REQUEST_TIMEOUT" envDefault:"10s"`

	// CacheTTL bounds how long a cached read stays fresh. CacheDisabled
	// turns read memoization off entirely.
	CacheTTL      time.Duration `env:"ONWARD_CACHE_TTL" envDefault:"30s"`
	CacheDisabled bool          `env:"ONWARD_CACHE_DISABLED"`

	// Retry knobs. Total attempts are MaxRetries+1.
	MaxRetries        int           `env:"ONWARD_MAX_RETRIES" envDefault:"3"`
	InitialBackoff    time.Duration `env:"ONWARD_INITIAL_BACKOFF" envDefault:"1s"`
	MaxBackoff        time.Duration `env:"ONWARD_MAX_BACKOFF" envDefault:"30s"`
	BackoffMultiplier float64       `env:"ONWARD_BACKOFF_MULTIPLIER" envDefault:"2.0"`
	BackoffJitter     float64       `env:"ONWARD_BACKOFF_JITTER" envDefault:"0"`

	// TokenFile persists the session token at the given path. Empty keeps
	// the token in process memory only.
	TokenFile string `env:"ONWARD_TOKEN_FILE"`

	// TrustPersistedToken keeps a token found in durable storage at
	// startup instead of discarding it.
	TrustPersistedToken bool `env:"ONWARD_TRUST_PERSISTED_TOKEN"`

	// Dedupe coalesces concurrent identical cacheable reads.
	Dedupe bool `env:"ONWARD_DEDUPE"`

	// Metrics registers Prometheus metrics on the default registerer.
	Metrics bool `env:"ONWARD_METRICS"`

	// Debug enables per-area debug logging through a logrus console
	// logger.
	Debug bool `env:"ONWARD_DEBUG"`
}

// ConfigFromEnv parses ONWARD_* environment variables into a Config.
func ConfigFromEnv() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	return &cfg, nil
}

// Options converts the config into the option list New consumes. Extra
// options append after the config-derived ones, so callers can override any
// setting programmatically.
func (cfg *Config) Options() ([]Option, error) {
	opts := []Option{
		WithBaseURL(cfg.BaseURL),
		WithRequestTimeout(cfg.RequestTimeout),
		WithCacheTTL(cfg.CacheTTL),
		WithMaxRetries(cfg.MaxRetries),
		WithInitialBackoff(cfg.InitialBackoff),
		WithMaxBackoff(cfg.MaxBackoff),
		WithBackoffMultiplier(cfg.BackoffMultiplier),
		WithJitter(cfg.BackoffJitter),
	}

	if cfg.CacheDisabled {
		opts = append(opts, WithoutCache())
	}
	if cfg.StandbyURL != "" {
		opts = append(opts, WithStandby(cfg.StandbyURL, cfg.StandbyAPIKey))
		opts = append(opts, WithStandbyEnabled(cfg.UseStandby))
	}
	if cfg.TokenFile != "" {
		storage, err := NewFileTokenStorage(cfg.TokenFile)
		if err != nil {
			return nil, fmt.Errorf("token storage: %w", err)
		}
		opts = append(opts, WithTokenStorage(storage))
	}
	if cfg.TrustPersistedToken {
		opts = append(opts, WithPersistedTokenTrust())
	}
	if cfg.Dedupe {
		opts = append(opts, WithDeduplication())
	}
	if cfg.Metrics {
		opts = append(opts, WithMetrics())
	}
	if cfg.Debug {
		opts = append(opts, WithSimpleLogger())
	}

	return opts, nil
}

// NewFromEnv builds a client from ONWARD_* environment variables. Extra
// options run last and override anything the environment set.
func NewFromEnv(extra ...Option) (*Client, error) {
	cfg, err := ConfigFromEnv()
	if err != nil {
		return nil, err
	}
	opts, err := cfg.Options()
	if err != nil {
		return nil, err
	}
	return New(append(opts, extra...)...), nil
}
