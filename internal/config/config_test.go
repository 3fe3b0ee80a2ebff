package config

import (
	"testing"
	"time"

	"reedfrost/internal/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	for _, key := range []string{
		"PORT", "UI_PORT", "GIN_MODE", "DATABASE_URL", "PPROF_ENABLED",
		"REEDFROST_DEFAULT_P", "REEDFROST_MAX_POPULATION", "REEDFROST_MAX_RUNS",
		"REEDFROST_WORKERS", "REEDFROST_SHARED_CACHE", "REEDFROST_CACHE_ENTRIES", "REEDFROST_RNG",
		"REEDFROST_REQUEST_TIMEOUT",
	} {
		t.Setenv(key, "")
	}

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
	assert.Nil(t, cfg.Model.DefaultP)
	assert.Equal(t, uint(400), cfg.Model.MaxPopulation)
	assert.Equal(t, 8_000_000, cfg.Model.CacheEntries)
}

func TestLoad_FromEnvironment(t *testing.T) {
	t.Setenv("PORT", "9000")
	t.Setenv("DATABASE_URL", "postgres://localhost/reedfrost?sslmode=disable")
	t.Setenv("REEDFROST_DEFAULT_P", "0.05")
	t.Setenv("REEDFROST_MAX_POPULATION", "250")
	t.Setenv("REEDFROST_SHARED_CACHE", "false")
	t.Setenv("REEDFROST_CACHE_ENTRIES", "50000")
	t.Setenv("REEDFROST_RNG", "chacha8")
	t.Setenv("REEDFROST_REQUEST_TIMEOUT", "5s")
	t.Setenv("PPROF_ENABLED", "true")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "9000", cfg.Server.Port)
	assert.Equal(t, "postgres://localhost/reedfrost?sslmode=disable", cfg.Database.URL)
	require.NotNil(t, cfg.Model.DefaultP)
	assert.Equal(t, 0.05, *cfg.Model.DefaultP)
	assert.Equal(t, uint(250), cfg.Model.MaxPopulation)
	assert.False(t, cfg.Model.SharedCache)
	assert.Equal(t, 50000, cfg.Model.CacheEntries)
	assert.Equal(t, "chacha8", cfg.Model.RNG)
	assert.Equal(t, 5*time.Second, cfg.Server.RequestTimeout)
	assert.True(t, cfg.Profiling.Enabled)
}

func TestLoad_RejectsInvalidValues(t *testing.T) {
	tests := map[string]string{
		"REEDFROST_DEFAULT_P":      "1.5",
		"REEDFROST_WORKERS":        "0",
		"REEDFROST_MAX_RUNS":       "-3",
		"REEDFROST_MAX_POPULATION": "0",
		"REEDFROST_CACHE_ENTRIES":  "-1",
	}
	for key, value := range tests {
		t.Run(key, func(t *testing.T) {
			t.Setenv(key, value)
			_, err := Load()
			require.Error(t, err)
			assert.Equal(t, errors.CodeConfigInvalid, errors.GetCode(err))
		})
	}

	t.Run("unparseable default p", func(t *testing.T) {
		t.Setenv("REEDFROST_DEFAULT_P", "five percent")
		_, err := Load()
		require.Error(t, err)
		assert.Equal(t, errors.CodeConfigInvalid, errors.GetCode(err))
	})
}
