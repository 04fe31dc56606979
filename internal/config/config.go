// Package config defines the top-level configuration for the farming engine
// and provides validation helpers.
package config

import (
	"fmt"
	"time"
)

// Config is the root configuration structure. Fields are populated from a
// TOML file and then optionally overridden by FARMING_* environment
// variables.
type Config struct {
	Server   ServerConfig   `toml:"server"`
	Database DatabaseConfig `toml:"database"`
	Redis    RedisConfig    `toml:"redis"`
	Market   MarketConfig   `toml:"market"`
	Farming  FarmingConfig  `toml:"farming"`
	LogLevel string         `toml:"log_level"`
}

// ServerConfig holds the HTTP listener parameters.
type ServerConfig struct {
	Port            int           `toml:"port"`
	ReadTimeout     time.Duration `toml:"read_timeout"`
	WriteTimeout    time.Duration `toml:"write_timeout"`
	IdleTimeout     time.Duration `toml:"idle_timeout"`
	ShutdownTimeout time.Duration `toml:"shutdown_timeout"`
	APIKey          string        `toml:"api_key"` // operator endpoints; empty disables auth
}

// DatabaseConfig holds PostgreSQL connection parameters. An empty URL
// selects the in-memory store.
type DatabaseConfig struct {
	URL string `toml:"url"`
}

// RedisConfig holds the cache parameters. An empty URL disables caching.
type RedisConfig struct {
	URL      string        `toml:"url"`
	CacheTTL time.Duration `toml:"cache_ttl"`
}

// MarketConfig points at the external prediction-market API. An empty URL
// selects the in-memory stub (development only).
type MarketConfig struct {
	URL string `toml:"url"`
}

// FarmingConfig holds the engine's domain parameters.
type FarmingConfig struct {
	// MaxAffiliatePercent caps affiliate revenue shares; scale 1000 = 100%.
	MaxAffiliatePercent int64 `toml:"max_affiliate_percent"`

	// Operators are the bootstrap wallets granted operator capability.
	Operators []string `toml:"operators"`
}

// Defaults returns the built-in configuration.
func Defaults() Config {
	return Config{
		Server: ServerConfig{
			Port:            8081,
			ReadTimeout:     10 * time.Second,
			WriteTimeout:    10 * time.Second,
			IdleTimeout:     60 * time.Second,
			ShutdownTimeout: 5 * time.Second,
		},
		Redis: RedisConfig{
			CacheTTL: 30 * time.Second,
		},
		Farming: FarmingConfig{
			MaxAffiliatePercent: 500, // 50%
		},
		LogLevel: "info",
	}
}

// Validate checks invariants the loader cannot express.
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("config: invalid server port %d", c.Server.Port)
	}
	if c.Farming.MaxAffiliatePercent < 0 || c.Farming.MaxAffiliatePercent > 1000 {
		return fmt.Errorf("config: max_affiliate_percent %d outside [0, 1000]",
			c.Farming.MaxAffiliatePercent)
	}
	if c.Redis.URL != "" && c.Database.URL == "" {
		return fmt.Errorf("config: redis cache requires a database url")
	}
	return nil
}
