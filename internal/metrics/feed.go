// ABOUTME: Prometheus instrumentation for vulnerability feed requests.
// ABOUTME: Counts request outcomes, cache hits, latency, and withdrawn advisories.

package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Feed request outcomes
const (
	OutcomeSuccess         = "success"
	OutcomeNotFound        = "not_found"
	OutcomeHTTPError       = "http_error"
	OutcomeConnectionError = "connection_error"
	OutcomeInvalidResponse = "invalid_response"
	OutcomeHashMismatch    = "hash_mismatch"
	OutcomeCancelled       = "cancelled"
)

// FeedMetrics instruments a feed client. A nil *FeedMetrics is a no-op.
type FeedMetrics struct {
	requests  *prometheus.CounterVec
	duration  *prometheus.HistogramVec
	cacheHits prometheus.Counter
	withdrawn prometheus.Counter
}

// NewFeedMetrics creates feed metrics and registers them with reg, if non-nil
func NewFeedMetrics(reg prometheus.Registerer) *FeedMetrics {
	m := &FeedMetrics{
		requests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "vulnaudit_feed_requests_total",
				Help: "Number of vulnerability feed requests by outcome",
			},
			[]string{"source", "outcome"},
		),
		duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "vulnaudit_feed_request_duration_seconds",
				Help:    "Latency of vulnerability feed requests",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"source"},
		),
		cacheHits: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "vulnaudit_feed_cache_hits_total",
				Help: "Number of feed responses served from the HTTP cache",
			},
		),
		withdrawn: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "vulnaudit_withdrawn_advisories_total",
				Help: "Number of withdrawn advisories ignored while normalizing feed responses",
			},
		),
	}

	if reg != nil {
		reg.MustRegister(m.requests, m.duration, m.cacheHits, m.withdrawn)
	}

	return m
}

// ObserveRequest records the outcome and latency of one feed request
func (m *FeedMetrics) ObserveRequest(source, outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.requests.WithLabelValues(source, outcome).Inc()
	m.duration.WithLabelValues(source).Observe(elapsed.Seconds())
}

func (m *FeedMetrics) CacheHit() {
	if m == nil {
		return
	}
	m.cacheHits.Inc()
}

func (m *FeedMetrics) Withdrawn() {
	if m == nil {
		return
	}
	m.withdrawn.Inc()
}
