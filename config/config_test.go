package config

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Addr)
	assert.Equal(t, "system@exchange.local", cfg.SystemOwner)
	assert.True(t, cfg.SeedDemo)

	fee, err := cfg.Fee()
	require.NoError(t, err)
	assert.True(t, fee.Equal(decimal.RequireFromString("0.02")))
}

func TestLoad_EnvOverride(t *testing.T) {
	t.Setenv("APP_ADDR", ":9090")
	t.Setenv("APP_FEE_RATE", "0.05")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.Addr)
	fee, err := cfg.Fee()
	require.NoError(t, err)
	assert.True(t, fee.Equal(decimal.RequireFromString("0.05")))
}

func TestFee_RejectsNegative(t *testing.T) {
	cfg := &Config{FeeRate: "-0.01"}
	_, err := cfg.Fee()
	assert.Error(t, err)
}
