package webhook

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/yourusername/domainspotter/logging"
	"github.com/yourusername/domainspotter/report"
)

const (
	EventMatched    = "domain.matched"
	SignatureHeader = "X-Domainspotter-Signature"
	EventHeader     = "X-Domainspotter-Event"
)

// Options configures the webhook notifier.
type Options struct {
	Endpoint string
	Secret   string
	// FeedDate is the feed day the matches were taken from.
	FeedDate string
	Client   *http.Client
	Logger   *logging.Logger
}

// Notifier delivers match events to a configured webhook endpoint.
type Notifier struct {
	endpoint string
	secret   string
	feedDate string
	client   *http.Client
	logger   *logging.Logger
}

type payload struct {
	Event    string        `json:"event"`
	FeedDate string        `json:"feed_date"`
	Record   report.Record `json:"record"`
	SentAt   time.Time     `json:"sent_at"`
	Version  string        `json:"version"`
}

// New initialises a webhook notifier. It returns nil when the endpoint is empty.
func New(opts Options) (*Notifier, error) {
	endpoint := strings.TrimSpace(opts.Endpoint)
	if endpoint == "" {
		return nil, nil
	}
	if !strings.HasPrefix(endpoint, "http://") && !strings.HasPrefix(endpoint, "https://") {
		return nil, fmt.Errorf("webhook endpoint must be an absolute URL")
	}

	client := opts.Client
	if client == nil {
		client = &http.Client{Timeout: 15 * time.Second}
	}

	return &Notifier{
		endpoint: endpoint,
		secret:   strings.TrimSpace(opts.Secret),
		feedDate: opts.FeedDate,
		client:   client,
		logger:   opts.Logger,
	}, nil
}

// Notify posts the provided match to the webhook endpoint.
func (n *Notifier) Notify(ctx context.Context, record report.Record) error {
	if n == nil {
		return nil
	}

	body := payload{
		Event:    EventMatched,
		FeedDate: n.feedDate,
		Record:   record,
		SentAt:   time.Now().UTC(),
		Version:  "1",
	}

	data, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshal webhook payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.endpoint, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("build webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "domainspotter-webhook/1.0")
	req.Header.Set(EventHeader, body.Event)

	if n.secret != "" {
		req.Header.Set(SignatureHeader, Sign(n.secret, data))
	}

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("deliver webhook: %w", err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("webhook responded with status %s", resp.Status)
	}

	n.logger.Debugf("Webhook delivered for %s (term %q)", record.Domain, record.Term)
	return nil
}

// Sign returns the hex HMAC-SHA256 of body under secret, as sent in
// SignatureHeader.
func Sign(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}
