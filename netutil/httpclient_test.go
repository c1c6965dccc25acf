package netutil

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/yourusername/domainspotter/ratelimit"
)

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(r *http.Request) (*http.Response, error) {
	return f(r)
}

func TestNewHTTPClientDefaults(t *testing.T) {
	client := NewHTTPClient(0, nil)
	if client.Timeout != defaultTimeout {
		t.Fatalf("expected default timeout, got %s", client.Timeout)
	}
	rt, ok := client.Transport.(*retryRoundTripper)
	if !ok {
		t.Fatalf("expected retry transport, got %T", client.Transport)
	}
	if rt.maxAttempts != defaultMaxAttempts {
		t.Fatalf("expected %d attempts, got %d", defaultMaxAttempts, rt.maxAttempts)
	}
	if _, ok := rt.base.(*http.Transport); !ok {
		t.Fatalf("expected http transport as base, got %T", rt.base)
	}
}

func TestNewHTTPClientWithLimiter(t *testing.T) {
	limiter := ratelimit.New(1)
	client := NewHTTPClient(5*time.Second, limiter, WithUserAgent("spotter-test"), WithRetries(1, 0))
	lrt, ok := client.Transport.(*limitingRoundTripper)
	if !ok {
		t.Fatalf("expected limiting round tripper, got %T", client.Transport)
	}
	if lrt.limiter == nil {
		t.Fatalf("expected limiter to be set")
	}
	ua, ok := lrt.base.(*userAgentRoundTripper)
	if !ok {
		t.Fatalf("expected user agent transport under limiter, got %T", lrt.base)
	}
	if _, ok := ua.base.(*http.Transport); !ok {
		t.Fatalf("expected retries to be disabled, got %T", ua.base)
	}
}

func TestLimitingRoundTripperHonoursContext(t *testing.T) {
	limiter := ratelimit.New(1)
	if err := limiter.Acquire(context.Background()); err != nil {
		t.Fatalf("failed to acquire token: %v", err)
	}
	rt := &limitingRoundTripper{base: roundTripFunc(func(r *http.Request) (*http.Response, error) {
		return nil, errors.New("should not reach base")
	}), limiter: limiter}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, "http://example.com", nil)
	if err != nil {
		t.Fatalf("failed to create request: %v", err)
	}

	if _, err := rt.RoundTrip(req); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context cancellation error, got %v", err)
	}
}

func TestUserAgentApplied(t *testing.T) {
	var got string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Get("User-Agent")
	}))
	defer server.Close()

	client := NewHTTPClient(time.Second, nil, WithUserAgent("spotter-test/1.0"))
	resp, err := client.Get(server.URL)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	resp.Body.Close()
	if got != "spotter-test/1.0" {
		t.Fatalf("expected user agent to be set, got %q", got)
	}
}

func TestRetryRoundTripperRetriesOnFailure(t *testing.T) {
	var mu sync.Mutex
	attempts := 0
	base := roundTripFunc(func(r *http.Request) (*http.Response, error) {
		mu.Lock()
		defer mu.Unlock()
		attempts++
		if attempts < 3 {
			return &http.Response{StatusCode: http.StatusInternalServerError, Body: io.NopCloser(bytes.NewReader(nil)), Header: make(http.Header)}, nil
		}
		return &http.Response{StatusCode: http.StatusOK, Body: io.NopCloser(bytes.NewBufferString("done")), Header: make(http.Header)}, nil
	})

	rrt := &retryRoundTripper{base: base, maxAttempts: 3, baseDelay: time.Microsecond}
	req, err := http.NewRequest(http.MethodGet, "http://example.com", nil)
	if err != nil {
		t.Fatalf("failed to create request: %v", err)
	}

	resp, err := rrt.RoundTrip(req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected success response, got %d", resp.StatusCode)
	}

	mu.Lock()
	total := attempts
	mu.Unlock()
	if total != 3 {
		t.Fatalf("expected three attempts, got %d", total)
	}
}

func TestRetryRoundTripperDoesNotRetryClientErrors(t *testing.T) {
	attempts := 0
	base := roundTripFunc(func(r *http.Request) (*http.Response, error) {
		attempts++
		return &http.Response{StatusCode: http.StatusNotFound, Body: io.NopCloser(bytes.NewReader(nil)), Header: make(http.Header)}, nil
	})

	rrt := &retryRoundTripper{base: base, maxAttempts: 3, baseDelay: time.Microsecond}
	req, _ := http.NewRequest(http.MethodGet, "http://example.com", nil)
	resp, err := rrt.RoundTrip(req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound || attempts != 1 {
		t.Fatalf("expected a single 404 attempt, got status %d after %d attempts", resp.StatusCode, attempts)
	}
}
