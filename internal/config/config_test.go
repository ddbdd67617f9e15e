package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "http://localhost:8188", cfg.Engine.BaseURL)
	assert.Equal(t, 120*time.Second, cfg.Engine.EventTimeout)
	assert.Equal(t, 300*time.Second, cfg.Engine.RunTimeout)
	assert.Equal(t, 2, cfg.Limits.MaxWorkers)
	assert.Equal(t, 1, cfg.Limits.PerTopic)
	assert.Equal(t, 3, cfg.Limits.PerRequesterPending)
	assert.Equal(t, 1024, cfg.Limits.QueueSize)
	assert.Equal(t, "data/topics", cfg.Paths.TopicsDir)
	assert.True(t, cfg.Server.Enabled)
	assert.Equal(t, "info", cfg.Logging.Level)
}

func TestLoad_YAMLFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
engine:
  base_url: http://gpu-box:8188
  api_key: sk-test
  run_timeout: 10m
limits:
  max_workers: 4
  per_requester_pending: 5
logging:
  level: debug
`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "http://gpu-box:8188", cfg.Engine.BaseURL)
	assert.Equal(t, "sk-test", cfg.Engine.APIKey)
	assert.Equal(t, 10*time.Minute, cfg.Engine.RunTimeout)
	assert.Equal(t, 4, cfg.Limits.MaxWorkers)
	assert.Equal(t, 5, cfg.Limits.PerRequesterPending)
	assert.Equal(t, "debug", cfg.Logging.Level)

	// Untouched settings keep their defaults.
	assert.Equal(t, 120*time.Second, cfg.Engine.EventTimeout)
	assert.Equal(t, 1, cfg.Limits.PerTopic)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("GE_ENGINE_BASE_URL", "http://env-host:8188")
	t.Setenv("GE_LIMITS_MAX_WORKERS", "8")
	t.Setenv("GE_ENGINE_RUN_TIMEOUT", "2m")
	t.Setenv("GE_ENGINE_EVENT_TIMEOUT", "45") // bare seconds
	t.Setenv("GE_SERVER_ENABLED", "false")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "http://env-host:8188", cfg.Engine.BaseURL)
	assert.Equal(t, 8, cfg.Limits.MaxWorkers)
	assert.Equal(t, 2*time.Minute, cfg.Engine.RunTimeout)
	assert.Equal(t, 45*time.Second, cfg.Engine.EventTimeout)
	assert.False(t, cfg.Server.Enabled)
}

func TestLoad_EnvBeatsFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("engine:\n  base_url: http://file-host\n"), 0o644))
	t.Setenv("GE_ENGINE_BASE_URL", "http://env-host")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "http://env-host", cfg.Engine.BaseURL)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestLoad_BadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("engine: ["), 0o644))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	mutations := []struct {
		name   string
		mutate func(*Config)
	}{
		{"empty base url", func(c *Config) { c.Engine.BaseURL = "" }},
		{"zero workers", func(c *Config) { c.Limits.MaxWorkers = 0 }},
		{"zero per topic", func(c *Config) { c.Limits.PerTopic = 0 }},
		{"zero queue size", func(c *Config) { c.Limits.QueueSize = 0 }},
		{"zero event timeout", func(c *Config) { c.Engine.EventTimeout = 0 }},
		{"negative run timeout", func(c *Config) { c.Engine.RunTimeout = -time.Second }},
		{"empty topics dir", func(c *Config) { c.Paths.TopicsDir = "" }},
	}
	for _, tt := range mutations {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}

	assert.NoError(t, DefaultConfig().Validate())
}
