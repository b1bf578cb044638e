// ABOUTME: Tests for configuration loading and validation.
// ABOUTME: Covers YAML files, environment overrides, and invalid settings.

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func envFrom(values map[string]string) func(string) (string, bool) {
	return func(key string) (string, bool) {
		v, ok := values[key]
		return v, ok
	}
}

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()

	require.NoError(t, cfg.Validate())
	assert.Equal(t, 9090, cfg.Port)
	assert.Equal(t, "https://pypi.org/pypi", cfg.FeedURL)
	assert.Equal(t, 10, cfg.Concurrency)
	assert.Equal(t, logrus.InfoLevel, cfg.Level())
}

func TestLoadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "vulnaudit.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
port: 8080
feed_url: https://mirror.example.com/pypi
cache_dir: /var/cache/vulnaudit
cache_ttl: 1h
dependency_file: requirements.json
concurrency: 4
timeout: 15s
connect_timeout: 2s
scrape_interval: 30m
log_level: debug
`), 0o600))

	for _, key := range []string{"PORT", "FEED_URL", "CACHE_DIR", "CACHE_TTL", "DEPENDENCY_FILE", "CONCURRENCY",
		"TIMEOUT", "CONNECT_TIMEOUT", "SCRAPE_INTERVAL", "MOCK_MODE", "LOG_LEVEL"} {
		t.Setenv(key, "")
	}

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, &Config{
		Port:           8080,
		FeedURL:        "https://mirror.example.com/pypi",
		CacheDir:       "/var/cache/vulnaudit",
		CacheTTL:       time.Hour,
		DependencyFile: "requirements.json",
		Concurrency:    4,
		Timeout:        15 * time.Second,
		ConnectTimeout: 2 * time.Second,
		ScrapeInterval: 30 * time.Minute,
		LogLevel:       "debug",
	}, cfg)
	assert.Equal(t, logrus.DebugLevel, cfg.Level())
}

func TestLoadEnvironmentOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "vulnaudit.yaml")
	require.NoError(t, os.WriteFile(path, []byte("port: 8080\nconcurrency: 4\n"), 0o600))

	t.Setenv("PORT", "7070")
	t.Setenv("SCRAPE_INTERVAL", "90s")
	t.Setenv("MOCK_MODE", "true")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 7070, cfg.Port)
	assert.Equal(t, 4, cfg.Concurrency)
	assert.Equal(t, 90*time.Second, cfg.ScrapeInterval)
	assert.True(t, cfg.MockMode)
}

func TestLoadErrors(t *testing.T) {
	dir := t.TempDir()
	malformed := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(malformed, []byte("port: [not a number"), 0o600))
	invalid := filepath.Join(dir, "invalid.yaml")
	require.NoError(t, os.WriteFile(invalid, []byte("concurrency: 0\n"), 0o600))

	for name, path := range map[string]string{
		"missing file":   filepath.Join(dir, "missing.yaml"),
		"malformed yaml": malformed,
		"invalid values": invalid,
	} {
		t.Run(name, func(t *testing.T) {
			cfg, err := Load(path)
			assert.Error(t, err)
			assert.Nil(t, cfg)
		})
	}
}

func TestApplyEnv(t *testing.T) {
	tests := []struct {
		name      string
		env       map[string]string
		check     func(t *testing.T, cfg *Config)
		expectErr bool
	}{
		{
			name: "all overrides",
			env: map[string]string{
				"PORT":            "9191",
				"FEED_URL":        "http://localhost:8000/pypi",
				"CACHE_DIR":       "/tmp/cache",
				"CACHE_TTL":       "5m",
				"DEPENDENCY_FILE": "deps.json",
				"CONCURRENCY":     "2",
				"TIMEOUT":         "1m",
				"CONNECT_TIMEOUT": "3s",
				"SCRAPE_INTERVAL": "1h",
				"MOCK_MODE":       "1",
				"LOG_LEVEL":       "trace",
			},
			check: func(t *testing.T, cfg *Config) {
				assert.Equal(t, 9191, cfg.Port)
				assert.Equal(t, "http://localhost:8000/pypi", cfg.FeedURL)
				assert.Equal(t, "/tmp/cache", cfg.CacheDir)
				assert.Equal(t, 5*time.Minute, cfg.CacheTTL)
				assert.Equal(t, "deps.json", cfg.DependencyFile)
				assert.Equal(t, 2, cfg.Concurrency)
				assert.Equal(t, time.Minute, cfg.Timeout)
				assert.Equal(t, 3*time.Second, cfg.ConnectTimeout)
				assert.Equal(t, time.Hour, cfg.ScrapeInterval)
				assert.True(t, cfg.MockMode)
				assert.Equal(t, logrus.TraceLevel, cfg.Level())
			},
		},
		{
			name: "blank values are ignored",
			env:  map[string]string{"PORT": "  ", "FEED_URL": ""},
			check: func(t *testing.T, cfg *Config) {
				assert.Equal(t, Default().Port, cfg.Port)
				assert.Equal(t, Default().FeedURL, cfg.FeedURL)
			},
		},
		{name: "invalid port", env: map[string]string{"PORT": "ninety"}, expectErr: true},
		{name: "invalid concurrency", env: map[string]string{"CONCURRENCY": "many"}, expectErr: true},
		{name: "invalid duration", env: map[string]string{"TIMEOUT": "soon"}, expectErr: true},
		{name: "invalid mock flag", env: map[string]string{"MOCK_MODE": "maybe"}, expectErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			err := cfg.ApplyEnv(envFrom(tt.env))
			if tt.expectErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			tt.check(t, cfg)
		})
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(cfg *Config)
		valid  bool
	}{
		{name: "defaults", mutate: func(*Config) {}, valid: true},
		{name: "port zero", mutate: func(c *Config) { c.Port = 0 }},
		{name: "port too large", mutate: func(c *Config) { c.Port = 70000 }},
		{name: "negative concurrency", mutate: func(c *Config) { c.Concurrency = -1 }},
		{name: "zero timeout", mutate: func(c *Config) { c.Timeout = 0 }},
		{name: "zero scrape interval", mutate: func(c *Config) { c.ScrapeInterval = 0 }},
		{name: "relative feed url", mutate: func(c *Config) { c.FeedURL = "pypi.org/pypi" }},
		{name: "ftp feed url", mutate: func(c *Config) { c.FeedURL = "ftp://pypi.org/pypi" }},
		{name: "feed url ignored in mock mode", mutate: func(c *Config) { c.FeedURL = ""; c.MockMode = true }, valid: true},
		{name: "unknown log level", mutate: func(c *Config) { c.LogLevel = "chatty" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.valid {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}
