package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var keys = []string{
	"TELEGRAM_TOKEN", "DATABASE_URL", "LOG_LEVEL", "LOG_FORMAT",
	"SWEEP_INTERVAL", "SWEEP_CONCURRENCY", "SWEEP_MAX_CATCHUP",
	"SUMMARY_TIME", "TIMEZONE",
}

// clearEnv unsets every key for the test; t.Setenv restores them afterwards.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range keys {
		t.Setenv(k, "")
		require.NoError(t, os.Unsetenv(k))
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.env"))
	require.NoError(t, err)

	assert.Equal(t, "taskward.db", cfg.DatabaseURL)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "console", cfg.LogFormat)
	assert.Equal(t, 15*time.Minute, cfg.SweepInterval)
	assert.Equal(t, 4, cfg.SweepConcurrency)
	assert.Equal(t, 366, cfg.SweepMaxCatchUp)
	assert.Equal(t, "09:00", cfg.SummaryTime)
	assert.Equal(t, "UTC", cfg.Timezone)
	assert.ErrorIs(t, cfg.RequireBot(), ErrMissingToken)
}

func TestLoadFromEnv(t *testing.T) {
	clearEnv(t)
	t.Setenv("TELEGRAM_TOKEN", "  token  ")
	t.Setenv("SWEEP_INTERVAL", "1h")
	t.Setenv("SWEEP_CONCURRENCY", "8")
	t.Setenv("TIMEZONE", "Europe/Moscow")
	t.Setenv("LOG_FORMAT", "json")

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.env"))
	require.NoError(t, err)

	assert.Equal(t, "token", cfg.TelegramToken)
	assert.NoError(t, cfg.RequireBot())
	assert.Equal(t, time.Hour, cfg.SweepInterval)
	assert.Equal(t, 8, cfg.SweepConcurrency)
	assert.Equal(t, "json", cfg.LogFormat)

	loc, err := cfg.Location()
	require.NoError(t, err)
	assert.Equal(t, "Europe/Moscow", loc.String())
}

func TestLoadEnvFile(t *testing.T) {
	clearEnv(t)
	t.Setenv("LOG_LEVEL", "warn")

	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("DATABASE_URL=data/test.db\nLOG_LEVEL=debug\n"), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "data/test.db", cfg.DatabaseURL)
	// The environment wins over the file.
	assert.Equal(t, "warn", cfg.LogLevel)
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	cases := map[string]string{
		"LOG_LEVEL":         "loud",
		"LOG_FORMAT":        "xml",
		"SWEEP_INTERVAL":    "10ms",
		"SWEEP_CONCURRENCY": "0",
		"SWEEP_MAX_CATCHUP": "0",
		"SUMMARY_TIME":      "25:00",
		"TIMEZONE":          "Mars/Olympus",
	}
	for key, value := range cases {
		t.Run(key, func(t *testing.T) {
			clearEnv(t)
			t.Setenv(key, value)

			_, err := Load(filepath.Join(t.TempDir(), "missing.env"))
			assert.Error(t, err)
		})
	}
}

func TestLoadRejectsUnparsableDuration(t *testing.T) {
	clearEnv(t)
	t.Setenv("SWEEP_INTERVAL", "soon")

	_, err := Load(filepath.Join(t.TempDir(), "missing.env"))
	assert.ErrorContains(t, err, "process environment")
}
