package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost:5432/trading?sslmode=disable")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "development", cfg.Env)
	assert.Equal(t, "paper", cfg.Broker.Mode)
	assert.False(t, cfg.Broker.EnableLiveTrading)
	assert.Equal(t, int64(42), cfg.Broker.StubPriceSeed)

	// Strategy defaults
	assert.Equal(t, 3, cfg.Strategy.LookbackMonths)
	assert.Equal(t, 2, cfg.Strategy.KRTopM)
	assert.Equal(t, 4, cfg.Strategy.USTopN)
	assert.InDelta(t, 0.4, cfg.Strategy.KRSplit, 1e-9)
	assert.InDelta(t, 0.6, cfg.Strategy.USSplit, 1e-9)

	// Constraint defaults
	assert.Equal(t, 20, cfg.Constraints.MaxPositions)
	assert.InDelta(t, 0.01, cfg.Constraints.SplitTolerance, 1e-9)

	assert.Equal(t, 72*time.Hour, cfg.PlanTTL)
}

func TestLoad_MissingDatabaseURL(t *testing.T) {
	t.Setenv("DATABASE_URL", "")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "DATABASE_URL")
}

func TestLoad_InvalidBrokerMode(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost:5432/trading?sslmode=disable")
	t.Setenv("BROKER_MODE", "mcp")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "BROKER_MODE")
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost:5432/trading?sslmode=disable")
	t.Setenv("BROKER_MODE", "live")
	t.Setenv("ENABLE_LIVE_TRADING", "true")
	t.Setenv("STRATEGY_LOOKBACK_MONTHS", "6")
	t.Setenv("CONSTRAINTS_MAX_POSITIONS", "10")
	t.Setenv("PLAN_TTL", "24h")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "live", cfg.Broker.Mode)
	assert.True(t, cfg.Broker.EnableLiveTrading)
	assert.Equal(t, 6, cfg.Strategy.LookbackMonths)
	assert.Equal(t, 10, cfg.Constraints.MaxPositions)
	assert.Equal(t, 24*time.Hour, cfg.PlanTTL)
}

func TestLoad_BadNumericFallsBackToDefault(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost:5432/trading?sslmode=disable")
	t.Setenv("STRATEGY_KR_SPLIT", "not-a-number")

	cfg, err := Load()
	require.NoError(t, err)
	assert.InDelta(t, 0.4, cfg.Strategy.KRSplit, 1e-9)
}
