// ABOUTME: Audit engine that fans dependency queries out over a bounded worker pool.
// ABOUTME: Periodically re-audits a dependency source and keeps the latest result for reporting.

package engine

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/jfeddern/VulnAudit/internal/service"
	"github.com/jfeddern/VulnAudit/internal/types"
)

const (
	DefaultConcurrency    = 10
	DefaultScrapeInterval = 6 * time.Hour
)

// DependencySource supplies the dependencies to audit
type DependencySource interface {
	Name() string
	Dependencies(ctx context.Context) ([]types.Dependency, error)
}

// Config holds configuration for the audit engine
type Config struct {
	Concurrency    int
	ScrapeInterval time.Duration
}

// Engine orchestrates audits using a pluggable vulnerability service
type Engine struct {
	service service.VulnerabilityService
	source  DependencySource
	config  *Config
	logger  *logrus.Logger

	mutex              sync.RWMutex
	auditData          *types.AuditResult
	lastCollectionTime time.Time
	lastErr            error
}

// NewEngine creates a new audit engine. source may be nil when only Audit is used.
func NewEngine(svc service.VulnerabilityService, source DependencySource, config *Config, logger *logrus.Logger) *Engine {
	if config == nil {
		config = &Config{}
	}
	if config.Concurrency <= 0 {
		config.Concurrency = DefaultConcurrency
	}
	if config.ScrapeInterval <= 0 {
		config.ScrapeInterval = DefaultScrapeInterval
	}

	return &Engine{
		service: svc,
		source:  source,
		config:  config,
		logger:  logger,
	}
}

// Audit queries every dependency concurrently and returns the results in input order.
// The first fatal error cancels outstanding queries and no result is returned.
func (e *Engine) Audit(ctx context.Context, deps []types.Dependency) (*types.AuditResult, error) {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.config.Concurrency)

	results := make([]service.QueryResult, len(deps))
	for i, dep := range deps {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			result, err := e.service.Query(gctx, dep)
			if err != nil {
				return err
			}
			results[i] = result
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	// errgroup only sees cancellation that happened while tasks were still running
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	audit := types.NewAuditResult()
	for _, result := range results {
		audit.Add(result.Dependency, result.Vulnerabilities)
	}
	return audit, nil
}

// Start begins the periodic audit process and blocks until ctx is done
func (e *Engine) Start(ctx context.Context) {
	logger := e.logger.WithField("component", "audit_engine")

	if err := e.collect(ctx); err != nil {
		logger.WithError(err).Error("Initial audit failed")
	}

	ticker := time.NewTicker(e.config.ScrapeInterval)
	defer ticker.Stop()

	logger.WithField("interval", e.config.ScrapeInterval).Info("Starting periodic audits")

	for {
		select {
		case <-ctx.Done():
			logger.Info("Audit engine stopping")
			return
		case <-ticker.C:
			if err := e.collect(ctx); err != nil {
				logger.WithError(err).Error("Audit failed")
			}
		}
	}
}

// Collect runs a single audit of the dependency source and stores the outcome
func (e *Engine) Collect(ctx context.Context) error {
	return e.collect(ctx)
}

func (e *Engine) collect(ctx context.Context) error {
	if e.source == nil {
		return errors.New("no dependency source configured")
	}

	logger := e.logger.WithFields(logrus.Fields{
		"operation": "audit",
		"source":    e.source.Name(),
		"service":   e.service.Name(),
	})
	startTime := time.Now()

	deps, err := e.source.Dependencies(ctx)
	if err != nil {
		e.recordError(err)
		return err
	}

	logger.WithField("dependency_count", len(deps)).Info("Loaded dependencies")

	audit, err := e.Audit(ctx, deps)
	if err != nil {
		e.recordError(err)
		return err
	}

	e.mutex.Lock()
	e.auditData = audit
	e.lastCollectionTime = time.Now()
	e.lastErr = nil
	e.mutex.Unlock()

	logger.WithFields(logrus.Fields{
		"duration":              time.Since(startTime),
		"dependencies_audited":  audit.Len(),
		"vulnerable":            audit.VulnerableCount(),
		"skipped":               audit.SkippedCount(),
		"total_vulnerabilities": audit.VulnerabilityCount(),
	}).Info("Audit completed")

	return nil
}

func (e *Engine) recordError(err error) {
	e.mutex.Lock()
	e.lastErr = err
	e.mutex.Unlock()
}

// GetAuditData returns the latest successful audit and when it completed
func (e *Engine) GetAuditData() (*types.AuditResult, time.Time) {
	e.mutex.RLock()
	defer e.mutex.RUnlock()
	return e.auditData, e.lastCollectionTime
}

// LastError returns the error of the most recent audit, or nil if it succeeded
func (e *Engine) LastError() error {
	e.mutex.RLock()
	defer e.mutex.RUnlock()
	return e.lastErr
}
