package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	return writeConfigAs(t, "cms.yaml", body)
}

func writeConfigAs(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadConfig(t *testing.T) {
	path := writeConfig(t, `
cms:
  env: prod
  logs:
    level: debug
    stats: true
  sketch:
    epsilon: 0.001
    delta: 0.99
    decay_ratio: 0.002
    hash: fnv1
    seed: 7
    overflow: fail
  registry:
    mem_limit: 1048576
    eviction_threshold: 0.9
  server:
    addr: ":9000"
    read_timeout: 2s
`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.True(t, cfg.IsProd())
	assert.Equal(t, "debug", cfg.Cms.Logs.Level)
	assert.True(t, cfg.Cms.Logs.Stats)
	assert.Equal(t, 0.001, cfg.Cms.Sketch.Epsilon)
	assert.Equal(t, 0.99, cfg.Cms.Sketch.Delta)
	assert.Equal(t, 0.002, cfg.Cms.Sketch.DecayRatio)
	assert.Equal(t, "fnv1", cfg.Cms.Sketch.Hash)
	assert.Equal(t, uint64(7), cfg.Cms.Sketch.Seed)
	assert.Equal(t, OverflowFail, cfg.Cms.Sketch.Overflow)
	assert.Equal(t, ":9000", cfg.Cms.Server.Addr)
	assert.Equal(t, 2*time.Second, cfg.Cms.Server.ReadTimeout)
	assert.Equal(t, int64(1<<20), cfg.Cms.Registry.MemLimit)
	assert.Equal(t, 0.9, cfg.Cms.Registry.EvictionThreshold)

	// untouched keys keep defaults
	assert.Equal(t, DefaultMaxCounters, cfg.Cms.Sketch.MaxCounters)
	assert.Equal(t, 5*time.Second, cfg.Cms.Server.WriteTimeout)
	assert.Equal(t, "count-min-sketch", cfg.Cms.Server.Name)
}

func TestLoadConfigTOML(t *testing.T) {
	path := writeConfigAs(t, "cms.toml", `
[cms]
env = "test"

[cms.logs]
level = "warn"
file = "/var/log/cms.log"

[cms.sketch]
epsilon = 0.01
hash = "metro"

[cms.server]
addr = ":9100"
write_timeout = "3s"
rate_limit = 250.0
rate_burst = 50
`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.True(t, cfg.IsTest())
	assert.Equal(t, "warn", cfg.Cms.Logs.Level)
	assert.Equal(t, "/var/log/cms.log", cfg.Cms.Logs.File)
	assert.Equal(t, 0.01, cfg.Cms.Sketch.Epsilon)
	assert.Equal(t, DefaultDelta, cfg.Cms.Sketch.Delta)
	assert.Equal(t, "metro", cfg.Cms.Sketch.Hash)
	assert.Equal(t, ":9100", cfg.Cms.Server.Addr)
	assert.Equal(t, 3*time.Second, cfg.Cms.Server.WriteTimeout)
	assert.Equal(t, 250.0, cfg.Cms.Server.RateLimit)
	assert.Equal(t, 50, cfg.Cms.Server.RateBurst)
	assert.Equal(t, 100, cfg.Cms.Logs.MaxSizeMB)
}

func TestLoadConfigMissingFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, os.ErrNotExist))
}

func TestLoadConfigInvalid(t *testing.T) {
	tests := map[string]string{
		"zero epsilon":   "cms:\n  sketch:\n    epsilon: 0\n",
		"negative delta": "cms:\n  sketch:\n    delta: -0.5\n",
		"delta of one":   "cms:\n  sketch:\n    delta: 1\n",
		"negative decay": "cms:\n  sketch:\n    decay_ratio: -1\n",
		"bad overflow":   "cms:\n  sketch:\n    overflow: wrap\n",
		"nan decay":      "cms:\n  sketch:\n    decay_ratio: .nan\n",
		"negative cap":   "cms:\n  sketch:\n    max_counters: -1\n",
		"bad env":        "cms:\n  env: staging\n",
		"negative limit": "cms:\n  registry:\n    mem_limit: -1\n",
		"zero threshold": "cms:\n  registry:\n    eviction_threshold: 0\n",
		"threshold > 1":  "cms:\n  registry:\n    eviction_threshold: 1.5\n",
		"negative rate":  "cms:\n  server:\n    rate_limit: -1\n",
	}
	for name, body := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := LoadConfig(writeConfig(t, body))
			assert.True(t, errors.Is(err, ErrInvalidConfig), "got %v", err)
		})
	}
}

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.True(t, cfg.IsDev())
	assert.False(t, cfg.IsTest())
	assert.Zero(t, cfg.Cms.Sketch.DecayRatio)
	assert.Zero(t, cfg.Cms.Registry.MemLimit)
	assert.Equal(t, 1.0, cfg.Cms.Registry.EvictionThreshold)
}
