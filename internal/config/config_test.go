package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, BackendSQLite, cfg.Store.Backend)
	assert.Equal(t, BackendStore, cfg.Store.RateLimitBackend)
	assert.Equal(t, "dashboard.db", cfg.Database.Path)
	assert.Equal(t, 5*time.Second, cfg.Oracle.PollingInterval)
	assert.Equal(t, "feeds.yaml", cfg.Oracle.FeedsFile)
	assert.Equal(t, 60, cfg.RateLimit.DefaultLimit)
	assert.True(t, cfg.RateLimit.SweepEnabled)
	assert.Equal(t, 8, cfg.Fees.MaxTotalsRetries)
}

func TestLoad_FromEnv(t *testing.T) {
	t.Setenv("STORE_BACKEND", "mongo")
	t.Setenv("RATE_LIMIT_BACKEND", "redis")
	t.Setenv("MONGO_DATABASE", "fees")
	t.Setenv("ORACLE_POLLING_INTERVAL", "2s")
	t.Setenv("RATE_LIMIT_SWEEP_ENABLED", "false")
	t.Setenv("RATE_LIMIT_SWEEP_BATCH_SIZE", "50")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, BackendMongo, cfg.Store.Backend)
	assert.Equal(t, BackendRedis, cfg.Store.RateLimitBackend)
	assert.Equal(t, "fees", cfg.Mongo.Database)
	assert.Equal(t, 2*time.Second, cfg.Oracle.PollingInterval)
	assert.False(t, cfg.RateLimit.SweepEnabled)
	assert.Equal(t, 50, cfg.RateLimit.SweepBatchSize)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
	}{
		{name: "unknown backend", key: "STORE_BACKEND", value: "postgres"},
		{name: "unknown rate limit backend", key: "RATE_LIMIT_BACKEND", value: "memcached"},
		{name: "bad duration", key: "ORACLE_POLLING_INTERVAL", value: "soon"},
		{name: "zero limit", key: "RATE_LIMIT_DEFAULT_LIMIT", value: "0"},
		{name: "zero batch", key: "RATE_LIMIT_SWEEP_BATCH_SIZE", value: "0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)
			_, err := Load()
			assert.Error(t, err)
		})
	}
}
