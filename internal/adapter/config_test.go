package adapter

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0644))
	return path
}

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig(writeConfig(t, "{}\n"))
	require.NoError(t, err)

	assert.Equal(t, "http://localhost:8000", cfg.API.URL)
	assert.Equal(t, 30*time.Second, cfg.API.Timeout)
	assert.Equal(t, 2, cfg.API.ReadRetries)
	assert.Equal(t, 2, cfg.Schedule.Hour)
	assert.Equal(t, BatchModeAbort, cfg.Batch.Mode)
	assert.Equal(t, "ebookgen.jobs.completed", cfg.Notify.Subject)
	assert.Equal(t, "INFO", cfg.Logging.Level)
}

func TestLoadConfigFromFile(t *testing.T) {
	path := writeConfig(t, `
api:
  url: https://books.example.com
  timeout: 5s
  read_retries: 0
schedule:
  hour: 4
batch:
  mode: collect
cache:
  dir: ""
`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "https://books.example.com", cfg.API.URL)
	assert.Equal(t, 5*time.Second, cfg.API.Timeout)
	assert.Equal(t, 0, cfg.API.ReadRetries)
	assert.Equal(t, 4, cfg.Schedule.Hour)
	assert.Equal(t, BatchModeCollect, cfg.Batch.Mode)
	assert.Empty(t, cfg.Cache.Dir)
}

func TestLoadConfigEnvOverride(t *testing.T) {
	t.Setenv("EBOOKCTL_API_URL", "http://10.0.0.5:9000")
	t.Setenv("EBOOKCTL_BATCH_MODE", "collect")

	cfg, err := LoadConfig(writeConfig(t, "api:\n  url: http://ignored:1\n"))
	require.NoError(t, err)

	assert.Equal(t, "http://10.0.0.5:9000", cfg.API.URL)
	assert.Equal(t, BatchModeCollect, cfg.Batch.Mode)
}

func TestLoadConfigMissingExplicitFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"empty url", func(c *Config) { c.API.URL = "" }},
		{"bad scheme", func(c *Config) { c.API.URL = "ftp://host" }},
		{"no host", func(c *Config) { c.API.URL = "http://" }},
		{"negative retries", func(c *Config) { c.API.ReadRetries = -1 }},
		{"hour too large", func(c *Config) { c.Schedule.Hour = 24 }},
		{"unknown batch mode", func(c *Config) { c.Batch.Mode = "parallel" }},
	}

	require.NoError(t, DefaultConfig().Validate())

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestSaveConfigRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "saved.yaml")

	cfg := DefaultConfig()
	cfg.API.URL = "http://saved:8000"
	cfg.API.Timeout = 12 * time.Second
	cfg.Schedule.Hour = 3
	cfg.Batch.Mode = BatchModeCollect
	require.NoError(t, SaveConfig(cfg, path))

	loaded, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "http://saved:8000", loaded.API.URL)
	assert.Equal(t, 12*time.Second, loaded.API.Timeout)
	assert.Equal(t, 3, loaded.Schedule.Hour)
	assert.Equal(t, BatchModeCollect, loaded.Batch.Mode)
}
