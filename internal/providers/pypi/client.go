// ABOUTME: PyPI JSON API vulnerability service implementation.
// ABOUTME: Queries one release endpoint per dependency and normalizes its advisories.

package pypi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"iter"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gregjones/httpcache"
	"github.com/sirupsen/logrus"

	"github.com/jfeddern/VulnAudit/internal/cache"
	"github.com/jfeddern/VulnAudit/internal/metrics"
	"github.com/jfeddern/VulnAudit/internal/service"
	"github.com/jfeddern/VulnAudit/internal/types"
)

const (
	DefaultBaseURL   = "https://pypi.org/pypi"
	defaultUserAgent = "vulnaudit"
	sourceName       = "pypi"
)

// Client implements service.VulnerabilityService against the PyPI JSON API
type Client struct {
	baseURL   string
	userAgent string
	http      HTTPDoer
	logger    *logrus.Logger
	metrics   *metrics.FeedMetrics

	cache          *cache.TieredCache
	cacheTTL       time.Duration
	timeout        time.Duration
	connectTimeout time.Duration
}

var _ service.VulnerabilityService = (*Client)(nil)

// Option configures a Client
type Option func(*Client)

func WithBaseURL(baseURL string) Option {
	return func(c *Client) { c.baseURL = strings.TrimRight(baseURL, "/") }
}

// WithHTTPClient replaces the default caching HTTP client
func WithHTTPClient(doer HTTPDoer) Option {
	return func(c *Client) { c.http = doer }
}

func WithMetrics(m *metrics.FeedMetrics) Option {
	return func(c *Client) { c.metrics = m }
}

func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) { c.timeout = timeout }
}

func WithConnectTimeout(timeout time.Duration) Option {
	return func(c *Client) { c.connectTimeout = timeout }
}

func WithCacheTTL(ttl time.Duration) Option {
	return func(c *Client) { c.cacheTTL = ttl }
}

func WithUserAgent(userAgent string) Option {
	return func(c *Client) { c.userAgent = userAgent }
}

// NewClient creates a PyPI client whose responses are cached under cacheDir.
// An empty cacheDir keeps the cache in memory only.
func NewClient(cacheDir string, logger *logrus.Logger, opts ...Option) *Client {
	c := &Client{
		baseURL:   DefaultBaseURL,
		userAgent: defaultUserAgent,
		logger:    logger,
	}
	for _, opt := range opts {
		opt(c)
	}

	if c.http == nil {
		c.cache = cache.NewTieredCache(cacheDir, c.cacheTTL, logger)
		c.http = NewHTTPClient(c.cache, c.timeout, c.connectTimeout)
	}

	return c
}

// Name returns the vulnerability service name
func (c *Client) Name() string {
	return sourceName
}

// Close releases the response cache
func (c *Client) Close() {
	if c.cache != nil {
		c.cache.Close()
	}
}

// QueryAll queries deps sequentially as the returned sequence is consumed
func (c *Client) QueryAll(ctx context.Context, deps iter.Seq[types.Dependency]) iter.Seq2[service.QueryResult, error] {
	return service.Sequential(ctx, c, deps)
}

// Query resolves the vulnerabilities of one dependency. Skipped dependencies
// are returned as-is without touching the network.
func (c *Client) Query(ctx context.Context, dep types.Dependency) (service.QueryResult, error) {
	switch d := dep.(type) {
	case types.SkippedDependency:
		return service.QueryResult{Dependency: d}, nil
	case types.ResolvedDependency:
		return c.queryResolved(ctx, d)
	default:
		return service.QueryResult{}, service.NewServiceError(fmt.Sprintf("unsupported dependency type %T", dep), nil)
	}
}

func (c *Client) queryResolved(ctx context.Context, dep types.ResolvedDependency) (service.QueryResult, error) {
	logger := c.logger.WithFields(logrus.Fields{
		"package": dep.CanonicalName(),
		"version": dep.Version.String(),
	})

	start := time.Now()
	payload, status, err := c.fetchRelease(ctx, dep, logger)
	if err != nil {
		c.metrics.ObserveRequest(sourceName, outcomeFor(status, err), time.Since(start))
		return service.QueryResult{}, err
	}

	if status == http.StatusNotFound {
		c.metrics.ObserveRequest(sourceName, metrics.OutcomeNotFound, time.Since(start))

		skipped := types.SkippedDependency{
			Name: dep.CanonicalName(),
			SkipReason: fmt.Sprintf("dependency not found on feed and could not be audited: %s (%s)",
				dep.CanonicalName(), dep.Version.String()),
		}
		logger.Debug(skipped.SkipReason)
		return service.QueryResult{Dependency: skipped}, nil
	}

	vulns := make([]types.VulnerabilityResult, 0, len(payload.Vulnerabilities))
	for _, record := range payload.Vulnerabilities {
		if record.withdrawn() {
			c.metrics.Withdrawn()
			logger.WithFields(logrus.Fields{
				"id":        record.ID,
				"withdrawn": record.Withdrawn,
			}).Debugf("feed vuln entry '%s' marked as withdrawn at %s", record.ID, record.Withdrawn)
			continue
		}

		result, err := record.toResult()
		if err != nil {
			c.metrics.ObserveRequest(sourceName, metrics.OutcomeInvalidResponse, time.Since(start))
			return service.QueryResult{}, err
		}
		vulns = append(vulns, result)
	}

	if dep.HasHashes() {
		if err := verifyHashes(dep, payload.URLs); err != nil {
			c.metrics.ObserveRequest(sourceName, metrics.OutcomeHashMismatch, time.Since(start))
			return service.QueryResult{}, err
		}
	}

	c.metrics.ObserveRequest(sourceName, metrics.OutcomeSuccess, time.Since(start))
	logger.WithField("vulnerabilities", len(vulns)).Trace("Audited dependency")

	return service.QueryResult{Dependency: dep, Vulnerabilities: vulns}, nil
}

// fetchRelease issues the GET and decodes the body. A 404 is reported
// through the status with a nil payload, not as an error.
func (c *Client) fetchRelease(ctx context.Context, dep types.ResolvedDependency, logger *logrus.Entry) (*releasePayload, int, error) {
	endpoint := c.releaseURL(dep)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, 0, service.NewServiceError("failed to build feed request", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)

	logger.WithField("url", endpoint).Trace("Querying vulnerability feed")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, 0, classifyTransportError(ctx, err)
	}
	defer resp.Body.Close()

	if resp.Header.Get(httpcache.XFromCache) != "" {
		c.metrics.CacheHit()
		logger.Trace("Feed response served from cache")
	}

	if resp.StatusCode == http.StatusNotFound {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, resp.StatusCode, nil
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, resp.StatusCode, service.NewServiceError(
			fmt.Sprintf("feed returned HTTP %d for %s", resp.StatusCode, dep.String()), nil)
	}

	var payload releasePayload
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, resp.StatusCode, service.NewServiceError(fmt.Sprintf("failed to decode feed response for %s", dep.String()), err)
	}
	// the cache only stores bodies that were read to EOF
	_, _ = io.Copy(io.Discard, resp.Body)

	return &payload, resp.StatusCode, nil
}

func (c *Client) releaseURL(dep types.ResolvedDependency) string {
	return fmt.Sprintf("%s/%s/%s/json",
		c.baseURL,
		url.PathEscape(dep.CanonicalName()),
		url.PathEscape(dep.Version.String()))
}

func outcomeFor(status int, err error) string {
	switch {
	case service.IsConnectionError(err):
		return metrics.OutcomeConnectionError
	case errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded):
		return metrics.OutcomeCancelled
	case status != 0 && (status < 200 || status > 299):
		return metrics.OutcomeHTTPError
	default:
		return metrics.OutcomeInvalidResponse
	}
}
