// ABOUTME: Runtime configuration for the audit CLI and exporter.
// ABOUTME: Merges defaults, an optional YAML file, and environment overrides, then validates.

package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

// Config holds every tunable of the audit engine, feed client, and HTTP server
type Config struct {
	Port           int           `yaml:"port"`
	FeedURL        string        `yaml:"feed_url"`
	CacheDir       string        `yaml:"cache_dir"`
	CacheTTL       time.Duration `yaml:"cache_ttl"`
	DependencyFile string        `yaml:"dependency_file"`
	Concurrency    int           `yaml:"concurrency"`
	Timeout        time.Duration `yaml:"timeout"`
	ConnectTimeout time.Duration `yaml:"connect_timeout"`
	ScrapeInterval time.Duration `yaml:"scrape_interval"`
	MockMode       bool          `yaml:"mock_mode"`
	LogLevel       string        `yaml:"log_level"`
}

// Default returns the configuration used when nothing is overridden
func Default() *Config {
	return &Config{
		Port:           9090,
		FeedURL:        "https://pypi.org/pypi",
		CacheDir:       defaultCacheDir(),
		CacheTTL:       30 * time.Minute,
		Concurrency:    10,
		Timeout:        30 * time.Second,
		ConnectTimeout: 10 * time.Second,
		ScrapeInterval: 6 * time.Hour,
		LogLevel:       "info",
	}
}

func defaultCacheDir() string {
	dir, err := os.UserCacheDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "vulnaudit")
}

// Load builds a configuration from defaults, the YAML file at path (skipped
// when path is empty), and the process environment.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %q: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	if err := cfg.ApplyEnv(os.LookupEnv); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// ApplyEnv overrides fields from environment variables resolved through lookup
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	get := func(key string) (string, bool) {
		value, ok := lookup(key)
		value = strings.TrimSpace(value)
		return value, ok && value != ""
	}

	if v, ok := get("PORT"); ok {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid PORT %q: %w", v, err)
		}
		c.Port = port
	}
	if v, ok := get("FEED_URL"); ok {
		c.FeedURL = v
	}
	if v, ok := get("CACHE_DIR"); ok {
		c.CacheDir = v
	}
	if v, ok := get("DEPENDENCY_FILE"); ok {
		c.DependencyFile = v
	}
	if v, ok := get("CONCURRENCY"); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid CONCURRENCY %q: %w", v, err)
		}
		c.Concurrency = n
	}
	if v, ok := get("LOG_LEVEL"); ok {
		c.LogLevel = v
	}
	if v, ok := get("MOCK_MODE"); ok {
		mock, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("invalid MOCK_MODE %q: %w", v, err)
		}
		c.MockMode = mock
	}

	durations := []struct {
		key    string
		target *time.Duration
	}{
		{"CACHE_TTL", &c.CacheTTL},
		{"TIMEOUT", &c.Timeout},
		{"CONNECT_TIMEOUT", &c.ConnectTimeout},
		{"SCRAPE_INTERVAL", &c.ScrapeInterval},
	}
	for _, d := range durations {
		v, ok := get(d.key)
		if !ok {
			continue
		}
		parsed, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid %s %q: %w", d.key, v, err)
		}
		*d.target = parsed
	}

	return nil
}

// Validate checks that the configuration is usable
func (c *Config) Validate() error {
	var errs []error

	if c.Port < 1 || c.Port > 65535 {
		errs = append(errs, fmt.Errorf("port must be between 1 and 65535, got %d", c.Port))
	}
	if c.Concurrency < 1 {
		errs = append(errs, fmt.Errorf("concurrency must be positive, got %d", c.Concurrency))
	}
	for name, d := range map[string]time.Duration{
		"cache_ttl":       c.CacheTTL,
		"timeout":         c.Timeout,
		"connect_timeout": c.ConnectTimeout,
		"scrape_interval": c.ScrapeInterval,
	} {
		if d <= 0 {
			errs = append(errs, fmt.Errorf("%s must be positive, got %s", name, d))
		}
	}
	if !c.MockMode {
		u, err := url.Parse(c.FeedURL)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			errs = append(errs, fmt.Errorf("feed_url must be an absolute http(s) URL, got %q", c.FeedURL))
		}
	}
	if _, err := logrus.ParseLevel(c.LogLevel); err != nil {
		errs = append(errs, fmt.Errorf("invalid log_level: %w", err))
	}

	return errors.Join(errs...)
}

// Level returns the parsed log level, defaulting to info
func (c *Config) Level() logrus.Level {
	level, err := logrus.ParseLevel(c.LogLevel)
	if err != nil {
		return logrus.InfoLevel
	}
	return level
}
