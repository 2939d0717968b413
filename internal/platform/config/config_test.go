package config

import (
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromEnvDefaults(t *testing.T) {
	cfg, err := FromEnv()
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, StoreMemory, cfg.Store.Backend)
	assert.Equal(t, runtime.NumCPU(), cfg.Offload.Workers)
	assert.Equal(t, 2*time.Minute, cfg.Offload.CallTimeout)
	assert.True(t, cfg.Offload.PrecompileOnStart)
	assert.Empty(t, cfg.Kafka.Brokers)
	assert.NotEmpty(t, cfg.Provider.SigningKey)
}

func TestFromEnvOverrides(t *testing.T) {
	t.Setenv("ZKATTEST_ADDR", ":9090")
	t.Setenv("OFFLOAD_WORKERS", "3")
	t.Setenv("OFFLOAD_CALL_TIMEOUT", "45s")
	t.Setenv("PRECOMPILE_ON_START", "false")
	t.Setenv("RECORD_STORE", "Redis")
	t.Setenv("REDIS_URL", "redis://localhost:6379/0")
	t.Setenv("KAFKA_BROKERS", "k1:9092, k2:9092,")

	cfg, err := FromEnv()
	require.NoError(t, err)
	assert.Equal(t, ":9090", cfg.Server.Addr)
	assert.Equal(t, 3, cfg.Offload.Workers)
	assert.Equal(t, 45*time.Second, cfg.Offload.CallTimeout)
	assert.False(t, cfg.Offload.PrecompileOnStart)
	assert.Equal(t, StoreRedis, cfg.Store.Backend)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Kafka.Brokers)
}

func TestFromEnvRejects(t *testing.T) {
	tests := map[string]map[string]string{
		"bad duration":          {"OFFLOAD_CALL_TIMEOUT": "soon"},
		"bad integer":           {"OFFLOAD_WORKERS": "many"},
		"zero workers":          {"OFFLOAD_WORKERS": "0"},
		"unknown store":         {"RECORD_STORE": "mongo"},
		"postgres without dsn":  {"RECORD_STORE": "postgres"},
		"redis without url":     {"RECORD_STORE": "redis"},
		"bad precompile toggle": {"PRECOMPILE_ON_START": "maybe"},
	}
	for name, env := range tests {
		t.Run(name, func(t *testing.T) {
			for k, v := range env {
				t.Setenv(k, v)
			}
			_, err := FromEnv()
			assert.Error(t, err)
		})
	}
}
