// Package fetcher retrieves transcript pages over plain HTTP.
package fetcher

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/edgecomet/chatexport/internal/common/config"
	"github.com/edgecomet/chatexport/internal/common/urlutil"
	"github.com/edgecomet/chatexport/internal/export/exporterr"
)

const publicFetchError = "Failed to fetch content"

// StaticFetcher issues a single GET, following redirects, and returns the
// decoded body. Nothing is retried.
type StaticFetcher struct {
	client       *fasthttp.Client
	userAgent    string
	maxRedirects int
	logger       *zap.Logger
}

// Option customizes a StaticFetcher
type Option func(*fasthttp.Client)

// WithDial replaces the client dialer
func WithDial(dial fasthttp.DialFunc) Option {
	return func(c *fasthttp.Client) {
		c.Dial = dial
	}
}

// New creates a fetcher from the fetch section of the configuration
func New(cfg config.FetchConfig, logger *zap.Logger, opts ...Option) *StaticFetcher {
	timeout := cfg.Timeout.ToDuration()

	client := &fasthttp.Client{
		ReadTimeout:              timeout,
		WriteTimeout:             timeout,
		MaxResponseBodySize:      cfg.MaxBodySize,
		NoDefaultUserAgentHeader: true,
	}

	// Enable SSRF protection by default (blocks DNS rebinding to private IPs)
	if cfg.SSRFEnabled() {
		client.Dial = fasthttp.DialFunc(urlutil.SafeDialer(net.LookupIP, fasthttp.DialTimeout, timeout))
	}

	for _, opt := range opts {
		opt(client)
	}

	return &StaticFetcher{
		client:       client,
		userAgent:    cfg.UserAgent,
		maxRedirects: cfg.MaxRedirects,
		logger:       logger,
	}
}

// Fetch returns the page body. Non-2xx responses and transport failures
// are fetch errors; timeouts carry the timeout sub-kind.
func (f *StaticFetcher) Fetch(ctx context.Context, url string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, exporterr.Fetch(publicFetchError, err)
	}

	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(url)
	req.Header.SetMethod(fasthttp.MethodGet)
	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml")
	req.Header.Set("Accept-Encoding", "gzip, br")

	start := time.Now()
	if err := f.client.DoRedirects(req, resp, f.maxRedirects); err != nil {
		f.logger.Warn("Static fetch failed",
			zap.String("url", url),
			zap.Duration("duration", time.Since(start)),
			zap.Error(err))
		if isTimeout(err) {
			return nil, exporterr.FetchTimeout(publicFetchError, err)
		}
		return nil, exporterr.Fetch(publicFetchError, err)
	}

	status := resp.StatusCode()
	if status < 200 || status > 299 {
		f.logger.Warn("Static fetch returned non-2xx status",
			zap.String("url", url),
			zap.Int("status_code", status))
		return nil, exporterr.Fetch(publicFetchError, fmt.Errorf("unexpected status %d", status))
	}

	body, err := resp.BodyUncompressed()
	if err != nil {
		return nil, exporterr.Fetch(publicFetchError, fmt.Errorf("decode body: %w", err))
	}

	f.logger.Debug("Static fetch completed",
		zap.String("url", url),
		zap.Int("status_code", status),
		zap.Int("response_size", len(body)),
		zap.Duration("duration", time.Since(start)))

	// resp is released on return
	return append([]byte(nil), body...), nil
}

func isTimeout(err error) bool {
	if errors.Is(err, fasthttp.ErrTimeout) || errors.Is(err, fasthttp.ErrDialTimeout) ||
		errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
