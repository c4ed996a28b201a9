// Package config handles application configuration from environment variables
package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config holds all application configuration. One value is parsed at
// startup and handed to constructors; nothing reads the environment later.
type Config struct {
	Port        string `env:"PORT" envDefault:"8080"`
	Environment string `env:"ENVIRONMENT" envDefault:"dev"`

	// AuthToken is the bearer token API clients must present. Optional in
	// dev, required everywhere else.
	AuthToken string `env:"API_AUTH_TOKEN"`

	// DataBasePath is the root of the local partition tree.
	DataBasePath string `env:"DATA_BASE_PATH" envDefault:"./data/clean"`

	// RemoteBaseURL enables the remote fallback when a dataset is missing
	// locally. Empty disables it.
	RemoteBaseURL string `env:"REMOTE_BASE_URL"`
	RemoteToken   string `env:"REMOTE_BEARER_TOKEN"`

	// Remote OAuth client-credentials settings. When all three are set they
	// take precedence over RemoteToken.
	RemoteOAuthClientID     string `env:"REMOTE_OAUTH_CLIENT_ID"`
	RemoteOAuthClientSecret string `env:"REMOTE_OAUTH_CLIENT_SECRET"`
	RemoteOAuthTokenURL     string `env:"REMOTE_OAUTH_TOKEN_URL"`

	CacheDir      string        `env:"CACHE_DIR" envDefault:"/tmp/datalayer-cache"`
	FetchTTL      time.Duration `env:"FETCH_TTL" envDefault:"5m"`
	ResultTTL     time.Duration `env:"RESULT_TTL" envDefault:"5m"`
	FetchTimeout  time.Duration `env:"FETCH_TIMEOUT" envDefault:"30s"`
	MaxLimit      int           `env:"MAX_LIMIT" envDefault:"10000"`
	SweepInterval time.Duration `env:"CACHE_SWEEP_INTERVAL" envDefault:"0"`
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	cfg, err := env.ParseAs[Config]()
	if err != nil {
		return nil, fmt.Errorf("parse environment: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// HasRemote returns true if a remote dataset source is configured
func (c *Config) HasRemote() bool {
	return c.RemoteBaseURL != ""
}

// HasRemoteOAuth returns true if remote OAuth configuration is complete
func (c *Config) HasRemoteOAuth() bool {
	return c.RemoteOAuthClientID != "" && c.RemoteOAuthClientSecret != "" && c.RemoteOAuthTokenURL != ""
}

// IsDev returns true for the local development environment
func (c *Config) IsDev() bool {
	return c.Environment == "dev"
}

// Validate ensures the configuration is usable before anything starts
func (c *Config) Validate() error {
	if !c.IsDev() && c.AuthToken == "" {
		return fmt.Errorf("API_AUTH_TOKEN is required when ENVIRONMENT=%s", c.Environment)
	}
	if c.MaxLimit < 1 {
		return fmt.Errorf("MAX_LIMIT must be positive, got %d", c.MaxLimit)
	}
	if c.FetchTTL < time.Second || c.ResultTTL < time.Second {
		return fmt.Errorf("FETCH_TTL and RESULT_TTL must be at least one second")
	}
	if c.FetchTimeout <= 0 {
		return fmt.Errorf("FETCH_TIMEOUT must be positive, got %s", c.FetchTimeout)
	}
	return nil
}
