package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaults(t *testing.T) {
	cfg := Defaults()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("defaults must validate: %v", err)
	}
	if cfg.Server.Port != 8081 {
		t.Fatalf("port = %d, want 8081", cfg.Server.Port)
	}
	if cfg.Farming.MaxAffiliatePercent != 500 {
		t.Fatalf("max percent = %d, want 500", cfg.Farming.MaxAffiliatePercent)
	}
}

func TestLoadTOML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	data := `
log_level = "debug"

[server]
port = 9090
api_key = "secret"

[farming]
max_affiliate_percent = 300
operators = ["0xOP1", "0xOP2"]

[redis]
cache_ttl = 60000000000
`
	if err := os.WriteFile(path, []byte(data), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Server.Port != 9090 {
		t.Errorf("port = %d, want 9090", cfg.Server.Port)
	}
	if cfg.Server.APIKey != "secret" {
		t.Errorf("api key = %q", cfg.Server.APIKey)
	}
	if cfg.Farming.MaxAffiliatePercent != 300 {
		t.Errorf("max percent = %d, want 300", cfg.Farming.MaxAffiliatePercent)
	}
	if len(cfg.Farming.Operators) != 2 || cfg.Farming.Operators[0] != "0xOP1" {
		t.Errorf("operators = %v", cfg.Farming.Operators)
	}
	if cfg.Redis.CacheTTL != time.Minute {
		t.Errorf("cache ttl = %v, want 1m", cfg.Redis.CacheTTL)
	}
	if cfg.LogLevel != "debug" {
		t.Errorf("log level = %q", cfg.LogLevel)
	}

	// Untouched sections keep their defaults.
	if cfg.Server.ReadTimeout != 10*time.Second {
		t.Errorf("read timeout = %v, want default", cfg.Server.ReadTimeout)
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("FARMING_SERVER_PORT", "7070")
	t.Setenv("FARMING_API_KEY", "env-key")
	t.Setenv("FARMING_MAX_AFFILIATE_PERCENT", "250")
	t.Setenv("FARMING_OPERATORS", "0xA, 0xB ,0xC")
	t.Setenv("FARMING_LOG_LEVEL", "warn")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Server.Port != 7070 {
		t.Errorf("port = %d, want 7070", cfg.Server.Port)
	}
	if cfg.Server.APIKey != "env-key" {
		t.Errorf("api key = %q", cfg.Server.APIKey)
	}
	if cfg.Farming.MaxAffiliatePercent != 250 {
		t.Errorf("max percent = %d, want 250", cfg.Farming.MaxAffiliatePercent)
	}
	want := []string{"0xA", "0xB", "0xC"}
	if len(cfg.Farming.Operators) != len(want) {
		t.Fatalf("operators = %v, want %v", cfg.Farming.Operators, want)
	}
	for i := range want {
		if cfg.Farming.Operators[i] != want[i] {
			t.Errorf("operator[%d] = %q, want %q", i, cfg.Farming.Operators[i], want[i])
		}
	}
	if cfg.LogLevel != "warn" {
		t.Errorf("log level = %q", cfg.LogLevel)
	}
}

func TestValidate(t *testing.T) {
	cases := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"defaults", func(*Config) {}, false},
		{"zero port", func(c *Config) { c.Server.Port = 0 }, true},
		{"port too high", func(c *Config) { c.Server.Port = 70000 }, true},
		{"negative percent", func(c *Config) { c.Farming.MaxAffiliatePercent = -1 }, true},
		{"percent above scale", func(c *Config) { c.Farming.MaxAffiliatePercent = 1001 }, true},
		{"redis without database", func(c *Config) { c.Redis.URL = "redis://localhost:6379" }, true},
		{"redis with database", func(c *Config) {
			c.Redis.URL = "redis://localhost:6379"
			c.Database.URL = "postgres://localhost/farming"
		}, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Defaults()
			tc.mutate(&cfg)
			err := cfg.Validate()
			if (err != nil) != tc.wantErr {
				t.Fatalf("Validate() = %v, wantErr %v", err, tc.wantErr)
			}
		})
	}
}
