package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(viper.New(), "")
	require.NoError(t, err)
	assert.Equal(t, Defaults(), *cfg)
}

func TestLoad_FileOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	body := "server:\n  http_addr: \":9090\"\ncache:\n  entity_ttl: 1m\n"
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))

	cfg, err := Load(viper.New(), path)
	require.NoError(t, err)
	assert.Equal(t, ":9090", cfg.Server.HTTPAddr)
	assert.Equal(t, time.Minute, cfg.Cache.EntityTTL)
	assert.Equal(t, ":50051", cfg.Server.GRPCAddr)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	t.Setenv("BARCODE_REDIS_ADDR", "cache:6380")
	t.Setenv("BARCODE_COUNTER_REPLAY_INTERVAL", "5s")
	cfg, err := Load(viper.New(), "")
	require.NoError(t, err)
	assert.Equal(t, "cache:6380", cfg.Redis.Addr)
	assert.Equal(t, 5*time.Second, cfg.Counter.ReplayInterval)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(viper.New(), filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	cfg := Defaults()
	cfg.MySQL.DSN = ""
	cfg.Counter.IdempotencyTTL = 0
	cfg.Counter.ReplayInterval = 0
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "mysql.dsn")
	assert.Contains(t, err.Error(), "idempotency_ttl")
	assert.Contains(t, err.Error(), "replay_interval")
}
