// ABOUTME: Factory for creating vulnerability services and dependency sources.
// ABOUTME: Centralizes provider instantiation and configuration logic.

package providers

import (
	"errors"

	"github.com/sirupsen/logrus"

	"github.com/jfeddern/VulnAudit/internal/config"
	"github.com/jfeddern/VulnAudit/internal/metrics"
	"github.com/jfeddern/VulnAudit/internal/providers/local"
	"github.com/jfeddern/VulnAudit/internal/providers/mock"
	"github.com/jfeddern/VulnAudit/internal/providers/pypi"
	"github.com/jfeddern/VulnAudit/internal/service"
)

// CreateVulnerabilityService creates a vulnerability service based on configuration.
// feedMetrics may be nil.
func CreateVulnerabilityService(cfg *config.Config, logger *logrus.Logger, feedMetrics *metrics.FeedMetrics) (service.VulnerabilityService, error) {
	if cfg.MockMode {
		logger.Info("Using mock vulnerability feed for testing")
		return mock.NewFeedService(logger), nil
	}

	if cfg.FeedURL == "" {
		return nil, errors.New("no vulnerability feed configured")
	}

	logger.WithFields(logrus.Fields{
		"feed_url":  cfg.FeedURL,
		"cache_dir": cfg.CacheDir,
	}).Info("Using PyPI vulnerability feed")

	return pypi.NewClient(cfg.CacheDir, logger,
		pypi.WithBaseURL(cfg.FeedURL),
		pypi.WithMetrics(feedMetrics),
		pypi.WithTimeout(cfg.Timeout),
		pypi.WithConnectTimeout(cfg.ConnectTimeout),
		pypi.WithCacheTTL(cfg.CacheTTL),
	), nil
}

// CreateDependencySource creates a dependency source based on configuration
func CreateDependencySource(cfg *config.Config, logger *logrus.Logger) (DependencySource, error) {
	if cfg.MockMode && cfg.DependencyFile == "" {
		logger.Info("Using mock dependency source for testing")
		return mock.NewStaticSource(logger), nil
	}

	if cfg.DependencyFile == "" {
		return nil, errors.New("dependency file is required (unless using mock mode)")
	}

	return local.NewFileSource(cfg.DependencyFile, logger), nil
}
