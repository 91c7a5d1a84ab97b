package config

import (
	"testing"
	"time"
)

func validConfig() *Config {
	return &Config{
		Operator: OperatorConfig{Address: "0x1111111111111111111111111111111111111111"},
		Limits:   LimitsConfig{StakeMin: 1, StakeMax: 1_000_000, OddsMax: 100_000},
		Store:    StoreConfig{DataDir: "/tmp/exchange-data"},
		Exposure: ExposureConfig{ImbalanceMultiple: 5.0, CheckInterval: 30 * time.Second},
	}
}

func TestValidateAcceptsValidConfig(t *testing.T) {
	t.Parallel()

	if err := validConfig().Validate(); err != nil {
		t.Fatalf("Validate() = %v, want nil", err)
	}
}

func TestValidateRejectsBadFields(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		mutate  func(c *Config)
	}{
		{"missing operator address", func(c *Config) { c.Operator.Address = "" }},
		{"zero stake min", func(c *Config) { c.Limits.StakeMin = 0 }},
		{"stake max equal to min", func(c *Config) { c.Limits.StakeMax = c.Limits.StakeMin }},
		{"odds max too low", func(c *Config) { c.Limits.OddsMax = 100 }},
		{"missing data dir", func(c *Config) { c.Store.DataDir = "" }},
		{"imbalance multiple too low", func(c *Config) { c.Exposure.ImbalanceMultiple = 1 }},
		{"zero check interval", func(c *Config) { c.Exposure.CheckInterval = 0 }},
	}

	for _, tt := range tests {
		c := validConfig()
		tt.mutate(c)
		if err := c.Validate(); err == nil {
			t.Errorf("%s: Validate() = nil, want error", tt.name)
		}
	}
}

func TestValidateRequiresPollIntervalWhenResultFeedConfigured(t *testing.T) {
	t.Parallel()

	c := validConfig()
	c.ResultFeed.BaseURL = "https://results.example.com"
	if err := c.Validate(); err == nil {
		t.Fatal("Validate() = nil, want error for missing poll_interval")
	}

	c.ResultFeed.PollInterval = 10 * time.Second
	if err := c.Validate(); err != nil {
		t.Fatalf("Validate() = %v, want nil once poll_interval is set", err)
	}
}
