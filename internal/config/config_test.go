package config

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	for _, key := range []string{
		"LOG_LEVEL", "NUM_SIMULATIONS", "FORECAST_DAYS", "SCORE_WINDOW", "SIM_WORKERS",
		"RANDOM_SEED", "WEIGHTS_FILE", "NUM_CUSTOMERS", "DB_HOST", "DB_PORT", "DB_SSLMODE",
		"PORT", "ALERT_CHAT_ID", "ALERT_THRESHOLD", "ALERTS_PER_SECOND",
	} {
		t.Setenv(key, "")
	}

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, 100, cfg.NumSimulations)
	assert.Equal(t, 90, cfg.ForecastDays)
	assert.Equal(t, 30, cfg.ScoreWindow)
	assert.Equal(t, 0, cfg.Workers)
	assert.Equal(t, int64(0), cfg.RandomSeed)
	assert.Equal(t, 50, cfg.NumCustomers)
	assert.Equal(t, "5432", cfg.DB.Port)
	assert.Equal(t, "disable", cfg.DB.SSLMode)
	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, 0.7, cfg.AlertThreshold)
	assert.False(t, cfg.HasDatabase())
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("NUM_SIMULATIONS", "250")
	t.Setenv("FORECAST_DAYS", "30")
	t.Setenv("RANDOM_SEED", "1234567890123")
	t.Setenv("ALERT_THRESHOLD", "0.55")
	t.Setenv("ALERT_CHAT_ID", "-100200300")
	t.Setenv("DB_HOST", "localhost")
	t.Setenv("SCORE_WINDOW", "not-a-number")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 250, cfg.NumSimulations)
	assert.Equal(t, 30, cfg.ForecastDays)
	assert.Equal(t, int64(1234567890123), cfg.RandomSeed)
	assert.Equal(t, 0.55, cfg.AlertThreshold)
	assert.Equal(t, int64(-100200300), cfg.AlertChatID)
	assert.Equal(t, 30, cfg.ScoreWindow, "invalid values fall back to defaults")
	assert.True(t, cfg.HasDatabase())
}

func TestLoggerLevel(t *testing.T) {
	cfg := &Config{LogLevel: "debug"}
	assert.Equal(t, zerolog.DebugLevel, cfg.SetupLogger().GetLevel())

	cfg.LogLevel = "loud"
	assert.Equal(t, zerolog.InfoLevel, cfg.SetupLogger().GetLevel())
}
