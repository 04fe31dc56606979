package config

import (
	"os"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Load reads a TOML configuration file at path (skipped when path is
// empty), merges it on top of the built-in defaults, applies FARMING_*
// environment variable overrides, and returns the final Config. The
// returned Config has NOT been validated; call Config.Validate() after
// Load.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	if path != "" {
		if _, err := toml.DecodeFile(path, &cfg); err != nil {
			return nil, err
		}
	}

	// Load .env file if present (silently ignore if missing).
	_ = godotenv.Load()

	applyEnvOverrides(&cfg)

	return &cfg, nil
}

// applyEnvOverrides reads well-known FARMING_* environment variables and
// overwrites the corresponding Config fields when a variable is set. This
// lets operators inject secrets at deploy time without touching the TOML
// file.
func applyEnvOverrides(cfg *Config) {
	setInt(&cfg.Server.Port, "FARMING_SERVER_PORT")
	setStr(&cfg.Server.APIKey, "FARMING_API_KEY")

	setStr(&cfg.Database.URL, "FARMING_DATABASE_URL")
	setStr(&cfg.Database.URL, "DATABASE_URL") // compatibility alias

	setStr(&cfg.Redis.URL, "FARMING_REDIS_URL")
	setStr(&cfg.Redis.URL, "REDIS_URL") // compatibility alias

	setStr(&cfg.Market.URL, "FARMING_MARKET_URL")

	setInt64(&cfg.Farming.MaxAffiliatePercent, "FARMING_MAX_AFFILIATE_PERCENT")
	if v := os.Getenv("FARMING_OPERATORS"); v != "" {
		var ops []string
		for _, w := range strings.Split(v, ",") {
			if w = strings.TrimSpace(w); w != "" {
				ops = append(ops, w)
			}
		}
		cfg.Farming.Operators = ops
	}

	setStr(&cfg.LogLevel, "FARMING_LOG_LEVEL")
}

func setStr(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setInt64(dst *int64, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			*dst = n
		}
	}
}
