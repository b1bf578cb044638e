// ABOUTME: Prometheus metrics exposition for dependency audit results.
// ABOUTME: Defines per-scrape gauges and provides the HTTP handler for the /metrics endpoint.

package metrics

import (
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/jfeddern/VulnAudit/internal/types"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
)

type AuditDataProvider interface {
	GetAuditData() (*types.AuditResult, time.Time)
}

type MetricsHandler struct {
	collector AuditDataProvider
	logger    *logrus.Logger
	gatherers prometheus.Gatherers

	// serializes scrapes, which reset and refill the shared gauges
	mu sync.Mutex

	// Prometheus metrics
	vulnerabilityCount *prometheus.GaugeVec
	skippedDependency  *prometheus.GaugeVec
	collectionInfo     *prometheus.GaugeVec

	// Detailed vulnerability metrics
	vulnerabilityInfo *prometheus.GaugeVec
	fixAvailability   *prometheus.GaugeVec
	publishedTime     *prometheus.GaugeVec
}

// NewMetricsHandler creates the handler. Extra gatherers (e.g. the registry
// holding FeedMetrics) are served alongside the audit gauges.
func NewMetricsHandler(collector AuditDataProvider, logger *logrus.Logger, extra ...prometheus.Gatherer) *MetricsHandler {
	return &MetricsHandler{
		collector: collector,
		logger:    logger,
		gatherers: extra,

		vulnerabilityCount: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "vulnaudit_dependency_vulnerability_count",
				Help: "Number of known vulnerabilities affecting an audited dependency",
			},
			[]string{"package", "version"},
		),

		skippedDependency: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "vulnaudit_dependency_skipped",
				Help: "Dependencies that could not be audited (1=skipped)",
			},
			[]string{"package", "reason"},
		),

		collectionInfo: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "vulnaudit_collection_info",
				Help: "Information about dependency audit collection",
			},
			[]string{"info_type"},
		),

		vulnerabilityInfo: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "vulnaudit_vulnerability_info",
				Help: "Detailed vulnerability information with advisory details",
			},
			[]string{"package", "version", "id", "aliases", "description"},
		),

		fixAvailability: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "vulnaudit_vulnerability_fix_available",
				Help: "Fix availability for vulnerabilities (1=YES, 0=NO)",
			},
			[]string{"package", "version", "id", "fix_versions"},
		),

		publishedTime: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "vulnaudit_vulnerability_published_timestamp",
				Help: "Publication timestamp of a vulnerability advisory",
			},
			[]string{"package", "version", "id"},
		),
	}
}

func (m *MetricsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	m.mu.Lock()
	defer m.mu.Unlock()

	// Create a new registry for this request to avoid conflicts
	registry := prometheus.NewRegistry()

	// Register our metrics
	registry.MustRegister(m.vulnerabilityCount)
	registry.MustRegister(m.skippedDependency)
	registry.MustRegister(m.collectionInfo)
	registry.MustRegister(m.vulnerabilityInfo)
	registry.MustRegister(m.fixAvailability)
	registry.MustRegister(m.publishedTime)

	// Reset all metrics to avoid stale data
	m.vulnerabilityCount.Reset()
	m.skippedDependency.Reset()
	m.collectionInfo.Reset()
	m.vulnerabilityInfo.Reset()
	m.fixAvailability.Reset()
	m.publishedTime.Reset()

	result, lastCollectionTime := m.collector.GetAuditData()
	if result == nil {
		result = types.NewAuditResult()
	}

	for _, dep := range result.Dependencies() {
		vulns, _ := result.Get(dep)

		switch d := dep.(type) {
		case types.SkippedDependency:
			m.skippedDependency.WithLabelValues(sanitizeLabelValue(d.Name), sanitizeLabelValue(d.SkipReason)).Set(1)
		case types.ResolvedDependency:
			pkg := sanitizeLabelValue(d.CanonicalName())
			version := sanitizeLabelValue(d.Version.String())

			m.vulnerabilityCount.WithLabelValues(pkg, version).Set(float64(len(vulns)))

			for _, vuln := range vulns {
				id := sanitizeLabelValue(vuln.ID)

				m.vulnerabilityInfo.WithLabelValues(
					pkg, version, id,
					sanitizeLabelValue(strings.Join(vuln.AliasList(), ",")),
					sanitizeLabelValue(vuln.Description),
				).Set(1)

				fixValue := float64(0)
				if len(vuln.FixVersions) > 0 {
					fixValue = 1
				}
				m.fixAvailability.WithLabelValues(
					pkg, version, id, sanitizeLabelValue(strings.Join(vuln.FixVersionStrings(), ",")),
				).Set(fixValue)

				if vuln.Published != nil {
					m.publishedTime.WithLabelValues(pkg, version, id).Set(float64(vuln.Published.Unix()))
				}
			}
		default:
			m.logger.WithField("dependency", dep.String()).Error("Unsupported dependency type in audit result")
		}
	}

	// Collection info
	m.collectionInfo.WithLabelValues("last_collection_timestamp").Set(float64(lastCollectionTime.Unix()))
	m.collectionInfo.WithLabelValues("dependencies_monitored").Set(float64(result.Len()))
	m.collectionInfo.WithLabelValues("vulnerable_dependencies").Set(float64(result.VulnerableCount()))

	gatherers := append(prometheus.Gatherers{registry}, m.gatherers...)
	handler := promhttp.HandlerFor(gatherers, promhttp.HandlerOpts{})
	handler.ServeHTTP(w, r)
}

// sanitizeLabelValue cleans strings for use as Prometheus labels
func sanitizeLabelValue(value string) string {
	if value == "" {
		return "unknown"
	}

	// Remove newlines and carriage returns
	value = strings.ReplaceAll(value, "\n", " ")
	value = strings.ReplaceAll(value, "\r", " ")
	value = strings.ReplaceAll(value, "\t", " ")

	// Limit length to prevent excessive label sizes
	if len(value) > 200 {
		value = value[:200] + "..."
	}

	// Remove any leading/trailing whitespace
	return strings.TrimSpace(value)
}

// CreateMetricsHandler creates a standard HTTP handler that can be used with http.ServeMux
func CreateMetricsHandler(dataProvider AuditDataProvider, logger *logrus.Logger, extra ...prometheus.Gatherer) http.HandlerFunc {
	metricsHandler := NewMetricsHandler(dataProvider, logger, extra...)
	return metricsHandler.ServeHTTP
}
