package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1:6379", cfg.Server.Address)
	assert.Equal(t, 0, cfg.Server.RateLimit)
	assert.False(t, cfg.Server.NilOnMiss)
	assert.Equal(t, 1, cfg.Store.Shards)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "console", cfg.Log.Format)
	assert.Empty(t, cfg.Metrics.Address)
	assert.Equal(t, 512*1024*1024, cfg.Limits().MaxBulkLen)
}

func TestLoadFileThenEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "miniredis.yaml")
	yaml := `
server:
  address: 0.0.0.0:7000
  nil_on_miss: true
store:
  shards: 8
log:
  level: debug
`
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o644))
	t.Setenv("MINIREDIS_SERVER__ADDRESS", "127.0.0.1:7001")
	t.Setenv("MINIREDIS_PROTO__MAX_BULK_LEN", "1024")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1:7001", cfg.Server.Address)
	assert.True(t, cfg.Server.NilOnMiss)
	assert.Equal(t, 8, cfg.Store.Shards)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, 1024, cfg.Proto.MaxBulkLen)
}

func TestSetOverridesEverything(t *testing.T) {
	t.Setenv("MINIREDIS_SERVER__ADDRESS", "127.0.0.1:7001")

	l := NewLoader()
	require.NoError(t, l.Load(""))
	require.NoError(t, l.Set("server.address", ":6380"))
	require.NoError(t, l.Set("server.rate_limit", 50))

	cfg, err := l.Config()
	require.NoError(t, err)
	assert.Equal(t, ":6380", cfg.Server.Address)
	assert.Equal(t, 50, cfg.Server.RateLimit)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		cfg, err := Load("")
		require.NoError(t, err)
		return cfg
	}

	cfg := valid()
	cfg.Store.Shards = 3
	assert.Error(t, cfg.Validate())

	cfg = valid()
	cfg.Server.Address = ""
	assert.Error(t, cfg.Validate())

	cfg = valid()
	cfg.Server.RateLimit = -1
	assert.Error(t, cfg.Validate())

	cfg = valid()
	cfg.Proto.MaxArrayLen = 0
	assert.Error(t, cfg.Validate())

	cfg = valid()
	cfg.Log.Format = "xml"
	assert.Error(t, cfg.Validate())

	cfg = valid()
	cfg.Log.Level = "loud"
	assert.Error(t, cfg.Validate())
}
