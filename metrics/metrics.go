// Package metrics exposes run statistics in the Prometheus text format so a
// node_exporter textfile collector can pick up scheduled runs.
package metrics

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "domainspotter"

// Metrics holds the collectors for one run. Each run gets its own registry.
type Metrics struct {
	registry *prometheus.Registry

	FeedBytes       prometheus.Gauge
	FeedDomains     prometheus.Gauge
	FilteredDomains prometheus.Gauge
	FetchDuration   prometheus.Gauge
	MatchDuration   prometheus.Gauge
	Terms           prometheus.Gauge
	Matches         *prometheus.CounterVec
	Written         prometheus.Counter
	Resolved        prometheus.Counter
	WebhookFailures prometheus.Counter
	LastSuccess     prometheus.Gauge
}

func New() *Metrics {
	registry := prometheus.NewRegistry()
	factory := promauto.With(registry)

	return &Metrics{
		registry: registry,
		FeedBytes: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Name: "feed_archive_bytes",
			Help: "Size of the newly registered domains archive.",
		}),
		FeedDomains: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Name: "feed_domains",
			Help: "Domains extracted from the archive.",
		}),
		FilteredDomains: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Name: "filtered_domains",
			Help: "Domains removed by exclude or TLD rules before scoring.",
		}),
		FetchDuration: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Name: "fetch_duration_seconds",
			Help: "Time spent downloading or reading the archive.",
		}),
		MatchDuration: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Name: "match_duration_seconds",
			Help: "Time spent scoring the wordlist against the domains.",
		}),
		Terms: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Name: "wordlist_terms",
			Help: "Terms loaded from the wordlist.",
		}),
		Matches: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "matches_total",
			Help: "Domains scoring at or above the cutoff, by term.",
		}, []string{"term"}),
		Written: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "report_lines_written_total",
			Help: "Matches written to the report.",
		}),
		Resolved: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "resolved_domains_total",
			Help: "Matched domains with at least one address record.",
		}),
		WebhookFailures: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "webhook_failures_total",
			Help: "Webhook deliveries that failed.",
		}),
		LastSuccess: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Name: "last_success_timestamp_seconds",
			Help: "Unix time of the last completed run.",
		}),
	}
}

// Registry exposes the underlying registry, mostly for tests.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// MarkSuccess stamps the completion time of the run.
func (m *Metrics) MarkSuccess(at time.Time) {
	if m == nil {
		return
	}
	m.LastSuccess.Set(float64(at.Unix()))
}

// WriteFile atomically writes all collected metrics to path in the text
// exposition format.
func (m *Metrics) WriteFile(path string) error {
	if m == nil || path == "" {
		return nil
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creating metrics directory: %w", err)
		}
	}
	if err := prometheus.WriteToTextfile(path, m.registry); err != nil {
		return fmt.Errorf("writing metrics: %w", err)
	}
	return nil
}
