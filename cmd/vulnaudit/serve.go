// ABOUTME: Exporter subcommand serving periodic audit results over HTTP.
// ABOUTME: Exposes Prometheus metrics, a JSON vulnerability report, and a health endpoint.

package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/jfeddern/VulnAudit/internal/config"
	"github.com/jfeddern/VulnAudit/internal/engine"
	"github.com/jfeddern/VulnAudit/internal/metrics"
	"github.com/jfeddern/VulnAudit/internal/providers"
	"github.com/jfeddern/VulnAudit/internal/server"
	"github.com/jfeddern/VulnAudit/internal/service"
)

func newServeCommand(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Audit periodically and serve the results over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			exporter, err := NewExporter(opts.cfg, opts.logger)
			if err != nil {
				return err
			}
			defer exporter.Close()
			return exporter.Start(cmd.Context())
		},
	}

	cmd.Flags().Int("port", 0, "Port to expose metrics on")
	cmd.Flags().Duration("scrape-interval", 0, "Interval between audits")
	return cmd
}

type Exporter struct {
	config   *config.Config
	logger   *logrus.Logger
	engine   *engine.Engine
	service  service.VulnerabilityService
	registry *prometheus.Registry
}

func NewExporter(cfg *config.Config, logger *logrus.Logger) (*Exporter, error) {
	logger.WithFields(logrus.Fields{
		"port":            cfg.Port,
		"feed_url":        cfg.FeedURL,
		"dependency_file": cfg.DependencyFile,
		"scrape_interval": cfg.ScrapeInterval,
		"mock":            cfg.MockMode,
	}).Info("Initializing VulnAudit")

	registry := prometheus.NewRegistry()
	feedMetrics := metrics.NewFeedMetrics(registry)

	source, err := providers.CreateDependencySource(cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create dependency source: %w", err)
	}

	svc, err := providers.CreateVulnerabilityService(cfg, logger, feedMetrics)
	if err != nil {
		return nil, fmt.Errorf("failed to create vulnerability service: %w", err)
	}

	auditEngine := engine.NewEngine(svc, source, &engine.Config{
		Concurrency:    cfg.Concurrency,
		ScrapeInterval: cfg.ScrapeInterval,
	}, logger)

	return &Exporter{
		config:   cfg,
		logger:   logger,
		engine:   auditEngine,
		service:  svc,
		registry: registry,
	}, nil
}

// Close releases the vulnerability service's resources
func (e *Exporter) Close() {
	if closer, ok := e.service.(interface{ Close() }); ok {
		closer.Close()
	}
}

// Handler returns the exporter's HTTP routes
func (e *Exporter) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/metrics", e.securityMiddleware(metrics.CreateMetricsHandler(e.engine, e.logger, e.registry)))
	mux.HandleFunc("/vulnerabilities", e.securityMiddleware(server.CreateVulnerabilitiesHandler(e.engine, e.logger)))
	mux.HandleFunc("/health", e.securityMiddleware(e.healthHandler))
	return mux
}

func (e *Exporter) Start(ctx context.Context) error {
	go e.engine.Start(ctx)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", e.config.Port),
		Handler:           e.Handler(),
		ReadTimeout:       10 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       60 * time.Second,
		MaxHeaderBytes:    1 << 20, // 1 MB
	}

	go func() {
		<-ctx.Done()
		e.logger.Info("Shutting down HTTP server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			e.logger.WithError(err).Warn("HTTP server shutdown incomplete")
		}
	}()

	e.logger.WithField("port", e.config.Port).Info("Starting HTTP server")

	if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	return nil
}

func (e *Exporter) securityMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("X-XSS-Protection", "1; mode=block")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
		w.Header().Set("Content-Security-Policy", "default-src 'none'; script-src 'none'; object-src 'none'; frame-ancestors 'none'")

		if r.Method != http.MethodGet && r.Method != http.MethodHead {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		e.logger.WithFields(logrus.Fields{
			"method":     r.Method,
			"path":       r.URL.Path,
			"remote_ip":  r.RemoteAddr,
			"user_agent": r.UserAgent(),
		}).Trace("HTTP request received")

		next(w, r)
	}
}

type healthResponse struct {
	Status    string `json:"status"`
	Service   string `json:"service"`
	LastAudit string `json:"last_audit,omitempty"`
	LastError string `json:"last_error,omitempty"`
}

// healthHandler reports "degraded" while the most recent audit failed
func (e *Exporter) healthHandler(w http.ResponseWriter, r *http.Request) {
	response := healthResponse{Status: "ok", Service: e.service.Name()}

	if _, collected := e.engine.GetAuditData(); !collected.IsZero() {
		response.LastAudit = collected.UTC().Format(time.RFC3339)
	}
	if err := e.engine.LastError(); err != nil {
		response.Status = "degraded"
		response.LastError = err.Error()
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(response); err != nil {
		e.logger.WithError(err).Error("Failed to encode health response")
	}
}
