// Package config loads the application configuration from YAML with
// environment variable overrides for credentials and connection strings.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config is the top-level configuration for stratlab.
type Config struct {
	Database Database `yaml:"database"`
	Alpaca   Alpaca   `yaml:"alpaca"`
	Logging  Logging  `yaml:"logging"`
	Backtest Backtest `yaml:"backtest"`
}

// Database holds the historical bar store connection.
type Database struct {
	URL string `yaml:"url"`
}

// Alpaca holds credentials and endpoint for the live broker API.
type Alpaca struct {
	APIKey          string `yaml:"api_key"`
	APISecret       string `yaml:"api_secret"`
	BaseURL         string `yaml:"base_url"`
	RateLimitPerMin int    `yaml:"rate_limit_per_min"`
}

// Logging configures the application logger.
type Logging struct {
	Level string `yaml:"level"`
}

// Backtest holds default run parameters that CLI flags can override.
type Backtest struct {
	InitialCapital     string `yaml:"initial_capital"`
	Timeframe          string `yaml:"timeframe"`
	CommissionPerShare string `yaml:"commission_per_share"`
	CommissionPercent  string `yaml:"commission_percent"`
	SlippagePercent    string `yaml:"slippage_percent"`
	AllowFractional    bool   `yaml:"allow_fractional"`
	EnableSlippage     bool   `yaml:"enable_slippage"`
	EnableCommission   bool   `yaml:"enable_commission"`
	SkipOnNoFunds      bool   `yaml:"skip_on_no_funds"`
	BatchSize          int    `yaml:"batch_size"`
}

// Load reads the YAML configuration file at path, then applies environment
// variable overrides. A missing file is an error; an empty path returns a
// zero Config with only env overrides applied.
func Load(path string) (*Config, error) {
	cfg := &Config{}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	applyEnvOverrides(cfg)
	return cfg, nil
}

// applyEnvOverrides checks well-known environment variables and overrides
// the corresponding fields when they are set.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("DATABASE_URL"); v != "" {
		cfg.Database.URL = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}

	if v := os.Getenv("ALPACA_BASE_URL"); v != "" {
		cfg.Alpaca.BaseURL = v
	}

	// Canonical Alpaca env vars take priority over the YAML values.
	if v := os.Getenv("APCA_API_KEY_ID"); v != "" {
		cfg.Alpaca.APIKey = v
	}
	if v := os.Getenv("APCA_API_SECRET_KEY"); v != "" {
		cfg.Alpaca.APISecret = v
	}
}
