// Package spotter runs one matching pass: load the day's domains once, score
// every wordlist term against them and report what clears the cutoff.
package spotter

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/yourusername/domainspotter/filters"
	"github.com/yourusername/domainspotter/fuzzy"
	"github.com/yourusername/domainspotter/logging"
	"github.com/yourusername/domainspotter/metrics"
	"github.com/yourusername/domainspotter/report"
	"github.com/yourusername/domainspotter/resolver"
	"github.com/yourusername/domainspotter/stats"
)

// DomainResolver enriches matches with address records.
type DomainResolver interface {
	Resolve(ctx context.Context, domain string) resolver.Result
}

// MatchNotifier is told about every newly reported match.
type MatchNotifier interface {
	Notify(ctx context.Context, record report.Record) error
}

// Runner is the run context. It is built once per invocation and owns every
// collaborator the run needs; nothing is shared through package state.
type Runner struct {
	Source  Source
	Extract fuzzy.ExtractFunc
	Filter  *filters.Filter
	Report  *report.Writer

	// Optional collaborators.
	Resolver DomainResolver
	Notifier MatchNotifier
	Tracker  *stats.Tracker
	Metrics  *metrics.Metrics
	Logger   *logging.Logger

	Limit   int
	Cutoff  float64
	Workers int
}

// Summary describes a completed run.
type Summary struct {
	Domains int
	Terms   int
	Matches int
	Written int
	Path    string
}

func (r *Runner) validate() error {
	switch {
	case r.Source == nil:
		return errors.New("spotter: no domain source configured")
	case r.Report == nil:
		return errors.New("spotter: no report writer configured")
	}
	if r.Extract == nil {
		r.Extract = fuzzy.Extract
	}
	if r.Logger == nil {
		r.Logger = logging.Discard()
	}
	return nil
}

// Run loads the domain list once and reports matches for terms in order.
// Errors loading or decoding the archive and errors writing the report are
// fatal; DNS and webhook failures are logged and the run continues.
func (r *Runner) Run(ctx context.Context, terms []string) (Summary, error) {
	if err := r.validate(); err != nil {
		return Summary{}, err
	}
	summary := Summary{Terms: len(terms), Path: r.Report.Path()}

	r.Logger.Infof("Connecting to %s", r.Source)
	started := time.Now()
	loaded, err := r.Source.Load(ctx)
	if err != nil {
		return summary, err
	}
	if r.Metrics != nil {
		r.Metrics.FetchDuration.Set(time.Since(started).Seconds())
		r.Metrics.FeedBytes.Set(float64(loaded.Size))
		r.Metrics.FeedDomains.Set(float64(len(loaded.Domains)))
		r.Metrics.Terms.Set(float64(len(terms)))
	}

	candidates := r.Filter.Apply(loaded.Domains)
	summary.Domains = len(candidates.Domains)
	r.Tracker.SetCandidates(len(candidates.Domains), candidates.Dropped)
	r.Tracker.SetTerms(len(terms))
	if r.Metrics != nil {
		r.Metrics.FilteredDomains.Set(float64(candidates.Dropped))
	}
	if candidates.Dropped > 0 {
		r.Logger.Debugf("%d domains removed by exclude/TLD rules", candidates.Dropped)
	}
	r.Logger.Infof("Domain list opened (%d domains), conducting fuzzy matching", len(candidates.Domains))

	scoring := time.Now()
	defer func() {
		if r.Metrics != nil {
			r.Metrics.MatchDuration.Set(time.Since(scoring).Seconds())
		}
	}()

	if r.Workers <= 1 {
		for _, term := range terms {
			if err := ctx.Err(); err != nil {
				return summary, err
			}
			matches := r.Extract(term, candidates.Keys, r.Limit, r.Cutoff)
			if err := r.report(ctx, term, matches, candidates, &summary); err != nil {
				return summary, err
			}
		}
		return summary, nil
	}

	results, err := r.scoreConcurrently(ctx, terms, candidates.Keys)
	if err != nil {
		return summary, err
	}
	for i, term := range terms {
		if err := r.report(ctx, term, results[i], candidates, &summary); err != nil {
			return summary, err
		}
	}
	return summary, nil
}

// scoreConcurrently scores terms on up to Workers goroutines. Results are
// indexed like terms so reporting order matches the sequential path.
func (r *Runner) scoreConcurrently(ctx context.Context, terms, keys []string) ([][]fuzzy.Match, error) {
	results := make([][]fuzzy.Match, len(terms))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.Workers)
	for i, term := range terms {
		i, term := i, term
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			results[i] = r.Extract(term, keys, r.Limit, r.Cutoff)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

func (r *Runner) report(ctx context.Context, term string, matches []fuzzy.Match, candidates filters.Candidates, summary *Summary) error {
	summary.Matches += len(matches)
	if r.Metrics != nil && len(matches) > 0 {
		r.Metrics.Matches.WithLabelValues(term).Add(float64(len(matches)))
	}
	if len(matches) == 0 {
		r.Logger.Debugf("%q: no matches", term)
		r.Tracker.RecordTerm(term, 0, 0)
		return nil
	}

	records := make([]report.Record, 0, len(matches))
	for _, match := range matches {
		domain := candidates.Domains[match.Index]
		record := report.Record{
			Term:        term,
			Domain:      domain,
			Score:       match.Score,
			Index:       match.Index,
			Registrable: filters.Registrable(domain),
		}
		r.enrich(ctx, &record)
		records = append(records, record)
	}

	written, err := r.Report.WriteTerm(records)
	if err != nil {
		return fmt.Errorf("writing matches for %q: %w", term, err)
	}
	summary.Written += len(written)
	r.Tracker.RecordTerm(term, len(matches), len(written))
	if r.Metrics != nil {
		r.Metrics.Written.Add(float64(len(written)))
	}
	r.Logger.Debugf("%q: %d matches, %d written", term, len(matches), len(written))

	for _, record := range written {
		if r.Notifier == nil {
			break
		}
		if err := r.Notifier.Notify(ctx, record); err != nil {
			r.Logger.Warnf("Webhook delivery for %s failed: %v", record.Domain, err)
			if r.Metrics != nil {
				r.Metrics.WebhookFailures.Inc()
			}
		}
	}
	return nil
}

func (r *Runner) enrich(ctx context.Context, record *report.Record) {
	if r.Resolver == nil {
		return
	}
	res := r.Resolver.Resolve(ctx, record.Domain)
	if res.Err != nil {
		r.Logger.Warnf("Resolving %s failed: %v", record.Domain, res.Err)
		return
	}
	if len(res.IPAddresses) == 0 {
		return
	}
	record.IPAddresses = res.IPAddresses
	record.CDN = filters.IsCDNResponse(res.Records())
	r.Tracker.RecordResolved()
	if r.Metrics != nil {
		r.Metrics.Resolved.Inc()
	}
}
