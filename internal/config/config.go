// Package config defines all configuration for the betting exchange engine.
// Config is loaded from a YAML file (default: configs/config.yaml) with
// sensitive fields overridable via EXCH_* environment variables.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config is the top-level configuration. Maps directly to the YAML file structure.
type Config struct {
	Operator   OperatorConfig   `mapstructure:"operator"`
	Limits     LimitsConfig     `mapstructure:"limits"`
	Ledger     LedgerConfig     `mapstructure:"ledger"`
	ResultFeed ResultFeedConfig `mapstructure:"result_feed"`
	Exposure   ExposureConfig   `mapstructure:"exposure"`
	Store      StoreConfig      `mapstructure:"store"`
	Logging    LoggingConfig    `mapstructure:"logging"`
	Dashboard  DashboardConfig  `mapstructure:"dashboard"`
}

// OperatorConfig identifies the address permitted to create/close markets
// and declare results. Authentication of that address is out of scope
// (external collaborator) — this is the address the engine trusts once
// a caller has already been authenticated upstream.
type OperatorConfig struct {
	Address string `mapstructure:"address"`
}

// LimitsConfig bounds the values validate_bet_amount/validate_bet_odds
// accept at placement time.
type LimitsConfig struct {
	StakeMin int64 `mapstructure:"stake_min"`
	StakeMax int64 `mapstructure:"stake_max"`
	OddsMax  int64 `mapstructure:"odds_max"` // e.g. 100000 -> 1000.00
}

// LedgerConfig points at the external receipt-token (NFT) service. If
// BaseURL is empty, the engine falls back to an in-memory ReceiptIssuer
// (useful for tests and for running without a configured receipt service).
type LedgerConfig struct {
	BaseURL string `mapstructure:"base_url"`
	ApiKey  string `mapstructure:"api_key"`
	Secret  string `mapstructure:"secret"`
	TokenID string `mapstructure:"token_id"`
}

// ResultFeedConfig controls polling of the external fixtures/results feed.
type ResultFeedConfig struct {
	BaseURL      string        `mapstructure:"base_url"`
	PollInterval time.Duration `mapstructure:"poll_interval"`
}

// ExposureConfig tunes the Back/Lay liability-imbalance monitor.
//
//   - ImbalanceMultiple: alert when one side's liquidity exceeds the other's
//     by this multiple (e.g. 5.0 means back_liquidity > 5x lay_liquidity,
//     or vice versa, raises an ExposureAlert).
//   - CheckInterval: how often the monitor recomputes imbalance.
type ExposureConfig struct {
	ImbalanceMultiple float64       `mapstructure:"imbalance_multiple"`
	CheckInterval     time.Duration `mapstructure:"check_interval"`
}

// StoreConfig sets where the persistent-state snapshot is written (JSON file).
type StoreConfig struct {
	DataDir string `mapstructure:"data_dir"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// DashboardConfig controls the read-only web dashboard server.
type DashboardConfig struct {
	Enabled        bool     `mapstructure:"enabled"`
	Port           int      `mapstructure:"port"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// Load reads config from a YAML file with env var overrides.
// Sensitive fields use env vars: EXCH_OPERATOR_ADDRESS, EXCH_LEDGER_API_KEY,
// EXCH_LEDGER_SECRET.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetEnvPrefix("EXCH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	// Override sensitive fields from env
	if addr := os.Getenv("EXCH_OPERATOR_ADDRESS"); addr != "" {
		cfg.Operator.Address = addr
	}
	if key := os.Getenv("EXCH_LEDGER_API_KEY"); key != "" {
		cfg.Ledger.ApiKey = key
	}
	if secret := os.Getenv("EXCH_LEDGER_SECRET"); secret != "" {
		cfg.Ledger.Secret = secret
	}

	return &cfg, nil
}

// Validate checks all required fields and value ranges.
func (c *Config) Validate() error {
	if c.Operator.Address == "" {
		return fmt.Errorf("operator.address is required (set EXCH_OPERATOR_ADDRESS)")
	}
	if c.Limits.StakeMin <= 0 {
		return fmt.Errorf("limits.stake_min must be > 0")
	}
	if c.Limits.StakeMax <= c.Limits.StakeMin {
		return fmt.Errorf("limits.stake_max must be > limits.stake_min")
	}
	if c.Limits.OddsMax <= 100 {
		return fmt.Errorf("limits.odds_max must be > 100 (odds are scaled x100)")
	}
	if c.Store.DataDir == "" {
		return fmt.Errorf("store.data_dir is required")
	}
	if c.Exposure.ImbalanceMultiple <= 1 {
		return fmt.Errorf("exposure.imbalance_multiple must be > 1")
	}
	if c.Exposure.CheckInterval <= 0 {
		return fmt.Errorf("exposure.check_interval must be > 0")
	}
	if c.ResultFeed.BaseURL != "" && c.ResultFeed.PollInterval <= 0 {
		return fmt.Errorf("result_feed.poll_interval must be > 0 when result_feed.base_url is set")
	}
	return nil
}
