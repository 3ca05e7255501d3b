// Package config loads monitor configuration from a YAML file with
// JANUS_* environment variable overrides.
package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

type NukiConfig struct {
	APIToken string `yaml:"api_token" koanf:"api_token"`
	BaseURL  string `yaml:"base_url" koanf:"base_url"`
}

type DBConfig struct {
	Env  string `yaml:"env" koanf:"env"` // "dev" | "prod"
	Path string `yaml:"path" koanf:"path"`
}

type Config struct {
	HTTPAddr string     `yaml:"http_addr" koanf:"http_addr"`
	Nuki     NukiConfig `yaml:"nuki" koanf:"nuki"`
	DB       DBConfig   `yaml:"db" koanf:"db"`

	ScanIntervalSeconds    int `yaml:"scan_interval_seconds" koanf:"scan_interval_seconds"`
	DetectionWindowSeconds int `yaml:"detection_window_seconds" koanf:"detection_window_seconds"`
	LogFetchLimit          int `yaml:"log_fetch_limit" koanf:"log_fetch_limit"`

	// FingerprintUsers maps a keypad source slot ("source_1", "source_2")
	// to the user name attributed to otherwise unresolvable entries.
	FingerprintUsers map[string]string `yaml:"fingerprint_users" koanf:"fingerprint_users"`

	EnhancedLogging bool `yaml:"enhanced_logging" koanf:"enhanced_logging"`
	AllowActions    bool `yaml:"allow_actions" koanf:"allow_actions"`

	RedisURL string `yaml:"redis_url" koanf:"redis_url"`

	// Event retention; 0 = keep forever.
	EventRetentionDays int `yaml:"event_retention_days" koanf:"event_retention_days"`
	PruneIntervalHours int `yaml:"prune_interval_hours" koanf:"prune_interval_hours"`
}

func Default() *Config {
	return &Config{
		HTTPAddr: ":8080",
		Nuki:     NukiConfig{BaseURL: "https://api.nuki.io"},
		DB:       DBConfig{Env: "dev", Path: "./data/janus.db"},

		ScanIntervalSeconds:    30,
		DetectionWindowSeconds: 120,
		LogFetchLimit:          20,

		EventRetentionDays: 30,
		PruneIntervalHours: 6,
	}
}

// Load reads configuration from the given YAML file, then overlays
// environment variable overrides (JANUS_*). A missing file is not an
// error; env and defaults still apply.
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	cfg := Default()

	if path != "" {
		if _, err := os.Stat(path); err == nil {
			if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
				return nil, fmt.Errorf("reading config %s: %w", path, err)
			}
		} else if !os.IsNotExist(err) {
			return nil, fmt.Errorf("accessing config %s: %w", path, err)
		}
	}

	// JANUS_NUKI__API_TOKEN -> nuki.api_token, JANUS_HTTP_ADDR -> http_addr.
	if err := k.Load(env.Provider("JANUS_", ".", func(s string) string {
		s = strings.ToLower(strings.TrimPrefix(s, "JANUS_"))
		return strings.ReplaceAll(s, "__", ".")
	}), nil); err != nil {
		return nil, fmt.Errorf("loading env overrides: %w", err)
	}

	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("unmarshalling config: %w", err)
	}

	cfg.normalize()
	return cfg, nil
}

// normalize clamps out-of-range values to safe defaults rather than
// failing startup.
func (c *Config) normalize() {
	c.DB.Env = strings.ToLower(strings.TrimSpace(c.DB.Env))
	if c.DB.Env != "dev" && c.DB.Env != "prod" {
		// fail-soft: treat unknown as dev
		c.DB.Env = "dev"
	}
	if strings.TrimSpace(c.HTTPAddr) == "" {
		c.HTTPAddr = ":8080"
	}
	if strings.TrimSpace(c.Nuki.BaseURL) == "" {
		c.Nuki.BaseURL = "https://api.nuki.io"
	}
	if c.ScanIntervalSeconds < 10 {
		c.ScanIntervalSeconds = 30
	}
	if c.DetectionWindowSeconds < 30 || c.DetectionWindowSeconds > 600 {
		c.DetectionWindowSeconds = 120
	}
	if c.LogFetchLimit < 1 || c.LogFetchLimit > 50 {
		c.LogFetchLimit = 20
	}
	if c.EventRetentionDays < 0 {
		c.EventRetentionDays = 0
	}
	if c.PruneIntervalHours < 1 {
		c.PruneIntervalHours = 6
	}
}

// Validate checks the settings that cannot be defaulted.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Nuki.APIToken) == "" {
		return fmt.Errorf("nuki.api_token is required (set JANUS_NUKI__API_TOKEN)")
	}
	return nil
}
