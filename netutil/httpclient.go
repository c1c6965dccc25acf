package netutil

import (
	"context"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/yourusername/domainspotter/ratelimit"
)

const (
	defaultTimeout     = 30 * time.Second
	defaultMaxAttempts = 3
	defaultRetryDelay  = 500 * time.Millisecond
)

type clientConfig struct {
	userAgent   string
	maxAttempts int
	baseDelay   time.Duration
}

type ClientOption func(*clientConfig)

// WithUserAgent sets the User-Agent header on requests that do not carry one.
func WithUserAgent(ua string) ClientOption {
	return func(c *clientConfig) {
		c.userAgent = ua
	}
}

// WithRetries configures how many times idempotent requests are attempted
// when the server answers 5xx or the connection fails. attempts <= 1
// disables retrying.
func WithRetries(attempts int, baseDelay time.Duration) ClientOption {
	return func(c *clientConfig) {
		c.maxAttempts = attempts
		c.baseDelay = baseDelay
	}
}

type limitingRoundTripper struct {
	base    http.RoundTripper
	limiter *ratelimit.Limiter
}

func (l *limitingRoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	base := l.base
	if base == nil {
		base = http.DefaultTransport
	}
	if l.limiter != nil {
		if err := l.limiter.Acquire(req.Context()); err != nil {
			return nil, err
		}
	}
	return base.RoundTrip(req)
}

type userAgentRoundTripper struct {
	base      http.RoundTripper
	userAgent string
}

func (u *userAgentRoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	if req.Header.Get("User-Agent") == "" {
		req = req.Clone(req.Context())
		req.Header.Set("User-Agent", u.userAgent)
	}
	return u.base.RoundTrip(req)
}

type retryRoundTripper struct {
	base        http.RoundTripper
	maxAttempts int
	baseDelay   time.Duration
}

func (r *retryRoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	if req.Method != http.MethodGet && req.Method != http.MethodHead {
		return r.base.RoundTrip(req)
	}

	delay := r.baseDelay
	var (
		resp *http.Response
		err  error
	)
	for attempt := 1; ; attempt++ {
		resp, err = r.base.RoundTrip(req)
		if !retryable(resp, err) || attempt >= r.maxAttempts {
			return resp, err
		}
		if req.Context().Err() != nil {
			return resp, err
		}
		if resp != nil {
			_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
			resp.Body.Close()
		}
		if waitErr := sleepContext(req.Context(), delay); waitErr != nil {
			return nil, waitErr
		}
		delay *= 2
	}
}

func retryable(resp *http.Response, err error) bool {
	if err != nil {
		return true
	}
	return resp != nil && resp.StatusCode >= http.StatusInternalServerError
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// NewHTTPClient builds the client used for the feed download. The transport
// chain is limiter -> user agent -> retry -> http.Transport, with each layer
// present only when configured.
func NewHTTPClient(timeout time.Duration, limiter *ratelimit.Limiter, opts ...ClientOption) *http.Client {
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	cfg := clientConfig{maxAttempts: defaultMaxAttempts, baseDelay: defaultRetryDelay}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}

	transport := &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		DialContext:           (&net.Dialer{Timeout: timeout, KeepAlive: 30 * time.Second}).DialContext,
		ForceAttemptHTTP2:     true,
		MaxIdleConns:          16,
		MaxIdleConnsPerHost:   4,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   timeout,
		ExpectContinueTimeout: 1 * time.Second,
	}

	rt := http.RoundTripper(transport)
	if cfg.maxAttempts > 1 {
		rt = &retryRoundTripper{base: rt, maxAttempts: cfg.maxAttempts, baseDelay: cfg.baseDelay}
	}
	if cfg.userAgent != "" {
		rt = &userAgentRoundTripper{base: rt, userAgent: cfg.userAgent}
	}
	if limiter != nil {
		rt = &limitingRoundTripper{base: rt, limiter: limiter}
	}

	return &http.Client{
		Timeout:   timeout,
		Transport: rt,
	}
}
