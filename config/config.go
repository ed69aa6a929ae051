// Package config loads runtime configuration from the environment with an
// optional config file, validated after unmarshal.
package config

import (
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
)

// Config runtime settings for the exchange server.
type Config struct {
	Addr        string `mapstructure:"ADDR" validate:"required"`
	FeeRate     string `mapstructure:"FEE_RATE" validate:"required"`
	SystemOwner string `mapstructure:"SYSTEM_OWNER" validate:"required,email"`
	SeedDemo    bool   `mapstructure:"SEED_DEMO"`
}

// Load reads APP_-prefixed environment variables, falling back to an
// optional config.yaml in the working directory.
func Load() (*Config, error) {
	viper.SetEnvPrefix("app")
	viper.AutomaticEnv()

	viper.SetDefault("ADDR", ":8080")
	viper.SetDefault("FEE_RATE", "0.02")
	viper.SetDefault("SYSTEM_OWNER", "system@exchange.local")
	viper.SetDefault("SEED_DEMO", true)

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	_ = viper.ReadInConfig() // optional

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := validator.New().Struct(&cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	if _, err := cfg.Fee(); err != nil {
		return nil, fmt.Errorf("invalid fee rate %q: %w", cfg.FeeRate, err)
	}
	return &cfg, nil
}

// Fee parses the configured fee rate.
func (c *Config) Fee() (decimal.Decimal, error) {
	fee, err := decimal.NewFromString(c.FeeRate)
	if err != nil {
		return decimal.Decimal{}, err
	}
	if fee.IsNegative() {
		return decimal.Decimal{}, fmt.Errorf("fee rate must not be negative")
	}
	return fee, nil
}
