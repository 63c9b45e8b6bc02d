package config

import (
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
)

func TestKebabToSnakeCase(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"etherscan.api-key", "etherscan.api_key"},
		{"ledger.from-block", "ledger.from_block"},
		{"debug", "debug"},
	}

	for _, test := range tests {
		result := KebabToSnakeCase(test.input)
		if result != test.expected {
			t.Errorf("KebabToSnakeCase(%s) = %v, want %v", test.input, result, test.expected)
		}
	}
}

func Test_NewConfig(t *testing.T) {
	t.Run("Should apply defaults when nothing is set", func(t *testing.T) {
		viper.Reset()
		defer viper.Reset()

		cfg := NewConfig()
		assert.Equal(t, LedgerSource_Etherscan, cfg.LedgerConfig.Source)
		assert.Equal(t, DefaultFromBlock, cfg.LedgerConfig.FromBlock)
		assert.Equal(t, "latest", cfg.LedgerConfig.ToBlock)
		assert.Equal(t, RosterWindowPolicy_Ignore, cfg.RosterConfig.WindowPolicy)
	})
	t.Run("Should read values set through viper", func(t *testing.T) {
		viper.Reset()
		defer viper.Reset()

		viper.Set(KebabToSnakeCase(EtherscanApiKey), "some-key")
		viper.Set(KebabToSnakeCase(LedgerWorkers), 4)
		viper.Set(KebabToSnakeCase(RosterWindowPolicyFlag), "enforce")
		viper.Set(KebabToSnakeCase(RosterPath), "delegate_data/Aligned Delegates.csv")

		cfg := NewConfig()
		assert.Equal(t, "some-key", cfg.EtherscanConfig.ApiKey)
		assert.Equal(t, 4, cfg.LedgerConfig.Workers)
		assert.Equal(t, RosterWindowPolicy_Enforce, cfg.RosterConfig.WindowPolicy)
		assert.Nil(t, cfg.ValidateLedgerConfig())
	})
}

func Test_ValidateLedgerConfig(t *testing.T) {
	base := func() *Config {
		return &Config{
			EtherscanConfig: EtherscanConfig{ApiKey: "key"},
			LedgerConfig:    LedgerConfig{Source: LedgerSource_Etherscan},
			RosterConfig:    RosterConfig{Path: "roster.csv", WindowPolicy: RosterWindowPolicy_Ignore},
		}
	}

	t.Run("Should accept a complete etherscan config", func(t *testing.T) {
		assert.Nil(t, base().ValidateLedgerConfig())
	})
	t.Run("Should reject the placeholder api key", func(t *testing.T) {
		cfg := base()
		cfg.EtherscanConfig.ApiKey = "YOUR_ETHERSCAN_API_KEY"
		assert.NotNil(t, cfg.ValidateLedgerConfig())
	})
	t.Run("Should require database settings for the database source", func(t *testing.T) {
		cfg := base()
		cfg.LedgerConfig.Source = LedgerSource_Database
		assert.NotNil(t, cfg.ValidateLedgerConfig())

		cfg.DatabaseConfig.Host = "localhost"
		cfg.DatabaseConfig.DbName = "delegates"
		assert.Nil(t, cfg.ValidateLedgerConfig())
	})
	t.Run("Should reject an unknown window policy", func(t *testing.T) {
		cfg := base()
		cfg.RosterConfig.WindowPolicy = "sometimes"
		assert.NotNil(t, cfg.ValidateLedgerConfig())
	})
	t.Run("Should require a roster path", func(t *testing.T) {
		cfg := base()
		cfg.RosterConfig.Path = ""
		assert.NotNil(t, cfg.ValidateLedgerConfig())
	})
}
