// ABOUTME: HTTP transport for the PyPI feed: caching, redirect limits, and dial timeouts.
// ABOUTME: Also classifies transport failures into connection errors.

package pypi

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/gregjones/httpcache"

	"github.com/jfeddern/VulnAudit/internal/service"
)

const (
	maxRedirects          = 10
	defaultTimeout        = 30 * time.Second
	defaultConnectTimeout = 10 * time.Second
)

// ErrTooManyRedirects is returned by the default client's redirect policy.
var ErrTooManyRedirects = errors.New("too many redirects")

// HTTPDoer is the transport the client issues feed requests through
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// NewHTTPClient builds an http.Client that caches responses in c (if non-nil),
// fails connection attempts after connectTimeout and stops after maxRedirects.
func NewHTTPClient(c httpcache.Cache, timeout, connectTimeout time.Duration) *http.Client {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	if connectTimeout <= 0 {
		connectTimeout = defaultConnectTimeout
	}

	base := http.DefaultTransport.(*http.Transport).Clone()
	base.DialContext = (&net.Dialer{
		Timeout:   connectTimeout,
		KeepAlive: 30 * time.Second,
	}).DialContext

	var transport http.RoundTripper = base
	if c != nil {
		cached := httpcache.NewTransport(c)
		cached.Transport = base
		cached.MarkCachedResponses = true
		transport = cached
	}

	return &http.Client{
		Transport:     transport,
		Timeout:       timeout,
		CheckRedirect: limitRedirects,
	}
}

func limitRedirects(_ *http.Request, via []*http.Request) error {
	if len(via) >= maxRedirects {
		return ErrTooManyRedirects
	}
	return nil
}

// classifyTransportError maps a failed round trip onto the error taxonomy.
// Redirect loops are checked before connect timeouts.
func classifyTransportError(ctx context.Context, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}

	if errors.Is(err, ErrTooManyRedirects) {
		return service.NewConnectionError("feed is not redirecting properly", err)
	}

	if isConnectTimeout(err) {
		return service.NewConnectionError("could not connect to feed", err)
	}

	return service.NewConnectionError("could not reach feed", err)
}

func isConnectTimeout(err error) bool {
	var opErr *net.OpError
	if errors.As(err, &opErr) && opErr.Op == "dial" {
		return opErr.Timeout()
	}
	return false
}
