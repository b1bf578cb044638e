// ABOUTME: Tests for provider factory functionality.
// ABOUTME: Tests vulnerability service and dependency source creation with different configurations.

package providers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"slices"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jfeddern/VulnAudit/internal/config"
	"github.com/jfeddern/VulnAudit/internal/metrics"
	"github.com/jfeddern/VulnAudit/internal/providers/pypi"
	"github.com/jfeddern/VulnAudit/internal/service"
)

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(logrus.ErrorLevel)
	return logger
}

func createTestDependencyFile(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "dependencies.json")
	content := `[
		{"name": "jinja2", "version": "2.4.1"},
		{"name": "my-local-pkg", "skip_reason": "editable install"}
	]`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestCreateVulnerabilityService(t *testing.T) {
	tests := []struct {
		name        string
		mutate      func(cfg *config.Config)
		expectError bool
		expectType  string
	}{
		{
			name:       "mock mode",
			mutate:     func(cfg *config.Config) { cfg.MockMode = true },
			expectType: "mock-feed",
		},
		{
			name:       "pypi feed",
			mutate:     func(cfg *config.Config) { cfg.CacheDir = t.TempDir() },
			expectType: "pypi",
		},
		{
			name:        "no feed url",
			mutate:      func(cfg *config.Config) { cfg.FeedURL = "" },
			expectError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.Default()
			tt.mutate(cfg)

			svc, err := CreateVulnerabilityService(cfg, quietLogger(), nil)
			if tt.expectError {
				assert.Error(t, err)
				assert.Nil(t, svc)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.expectType, svc.Name())
			if client, ok := svc.(*pypi.Client); ok {
				client.Close()
			}
		})
	}
}

func TestCreateDependencySource(t *testing.T) {
	tests := []struct {
		name        string
		cfg         *config.Config
		expectError bool
		expectType  string
	}{
		{
			name:       "mock mode",
			cfg:        &config.Config{MockMode: true},
			expectType: "mock-static",
		},
		{
			name:       "mock mode with dependency file",
			cfg:        &config.Config{MockMode: true, DependencyFile: createTestDependencyFile(t)},
			expectType: "local",
		},
		{
			name:       "dependency file",
			cfg:        &config.Config{DependencyFile: createTestDependencyFile(t)},
			expectType: "local",
		},
		{
			name:        "no configuration",
			cfg:         &config.Config{},
			expectError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			source, err := CreateDependencySource(tt.cfg, quietLogger())
			if tt.expectError {
				assert.Error(t, err)
				assert.Nil(t, source)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.expectType, source.Name())

			deps, err := source.Dependencies(context.Background())
			require.NoError(t, err)
			assert.NotEmpty(t, deps)
		})
	}
}

func TestFactoryIntegration(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/pypi/jinja2/2.4.1/json" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"vulnerabilities": [{"id": "PYSEC-2014-8", "summary": "Insecure temp files", "aliases": ["CVE-2014-1402"], "fixed_in": ["2.7.2"]}]}`))
	}))
	defer server.Close()

	cfg := config.Default()
	cfg.FeedURL = server.URL + "/pypi"
	cfg.CacheDir = t.TempDir()
	cfg.DependencyFile = createTestDependencyFile(t)

	registry := prometheus.NewRegistry()
	svc, err := CreateVulnerabilityService(cfg, quietLogger(), metrics.NewFeedMetrics(registry))
	require.NoError(t, err)
	defer svc.(*pypi.Client).Close()

	source, err := CreateDependencySource(cfg, quietLogger())
	require.NoError(t, err)

	deps, err := source.Dependencies(context.Background())
	require.NoError(t, err)

	audit, err := service.Collect(svc.QueryAll(context.Background(), slices.Values(deps)))
	require.NoError(t, err)

	assert.Equal(t, 2, audit.Len())
	assert.Equal(t, 1, audit.VulnerableCount())
	assert.Equal(t, 1, audit.SkippedCount())

	series, err := testutil.GatherAndCount(registry, "vulnaudit_feed_requests_total")
	require.NoError(t, err)
	assert.Equal(t, 1, series)
}
