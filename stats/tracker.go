package stats

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/yourusername/domainspotter/logging"
)

type Options struct {
	Logger   *logging.Logger
	Interval time.Duration
}

// Tracker accumulates run counters and periodically logs progress while
// terms are being scored.
type Tracker struct {
	mu         sync.RWMutex
	start      time.Time
	domains    int
	dropped    int
	termsTotal int
	termsDone  int
	matches    int
	written    int
	resolved   int

	termBreakdown map[string]int

	logger   *logging.Logger
	interval time.Duration
	ticker   *time.Ticker
	done     chan struct{}
	stopOnce sync.Once
}

type Snapshot struct {
	Domains    int
	Dropped    int
	TermsTotal int
	TermsDone  int
	Matches    int
	Written    int
	Resolved   int
	Terms      map[string]int
	Duration   time.Duration
}

func NewTracker(opts Options) *Tracker {
	interval := opts.Interval
	if interval <= 0 {
		interval = 5 * time.Second
	}
	return &Tracker{
		logger:        opts.Logger,
		interval:      interval,
		termBreakdown: make(map[string]int),
		done:          make(chan struct{}),
	}
}

func (t *Tracker) Start(ctxDone <-chan struct{}) {
	if t == nil {
		return
	}
	t.mu.Lock()
	t.start = time.Now()
	t.mu.Unlock()

	if t.logger == nil {
		return
	}

	t.ticker = time.NewTicker(t.interval)
	go func() {
		for {
			select {
			case <-t.ticker.C:
				t.logSnapshot(false)
			case <-ctxDone:
				return
			case <-t.done:
				return
			}
		}
	}()
}

func (t *Tracker) Stop() Snapshot {
	if t == nil {
		return Snapshot{}
	}
	t.stopOnce.Do(func() {
		close(t.done)
		if t.ticker != nil {
			t.ticker.Stop()
		}
	})
	return t.Snapshot()
}

// SetCandidates records the size of the scored domain list and how many
// feed entries were filtered out before scoring.
func (t *Tracker) SetCandidates(domains, dropped int) {
	if t == nil {
		return
	}
	t.mu.Lock()
	t.domains = domains
	t.dropped = dropped
	t.mu.Unlock()
}

func (t *Tracker) SetTerms(total int) {
	if t == nil {
		return
	}
	t.mu.Lock()
	t.termsTotal = total
	t.mu.Unlock()
}

// RecordTerm records the outcome of one term: matches found above the
// cutoff and how many of them reached the report.
func (t *Tracker) RecordTerm(term string, matches, written int) {
	if t == nil {
		return
	}
	t.mu.Lock()
	t.termsDone++
	t.matches += matches
	t.written += written
	if matches > 0 {
		t.termBreakdown[term] += matches
	}
	t.mu.Unlock()
}

func (t *Tracker) RecordResolved() {
	if t == nil {
		return
	}
	t.mu.Lock()
	t.resolved++
	t.mu.Unlock()
}

func (t *Tracker) Snapshot() Snapshot {
	if t == nil {
		return Snapshot{}
	}
	t.mu.RLock()
	defer t.mu.RUnlock()
	copyMap := make(map[string]int, len(t.termBreakdown))
	for key, value := range t.termBreakdown {
		copyMap[key] = value
	}
	duration := time.Duration(0)
	if !t.start.IsZero() {
		duration = time.Since(t.start)
	}
	return Snapshot{
		Domains:    t.domains,
		Dropped:    t.dropped,
		TermsTotal: t.termsTotal,
		TermsDone:  t.termsDone,
		Matches:    t.matches,
		Written:    t.written,
		Resolved:   t.resolved,
		Terms:      copyMap,
		Duration:   duration,
	}
}

// Skipped is the number of matches that were not written, i.e. dropped as
// already reported.
func (s Snapshot) Skipped() int {
	if s.Matches < s.Written {
		return 0
	}
	return s.Matches - s.Written
}

func (s Snapshot) Progress() float64 {
	if s.TermsTotal == 0 {
		return 0
	}
	return float64(s.TermsDone) / float64(s.TermsTotal) * 100
}

// LogSummary writes the final run statistics.
func (t *Tracker) LogSummary() {
	t.logSnapshot(true)
}

func (t *Tracker) logSnapshot(final bool) {
	if t == nil || t.logger == nil {
		return
	}
	snapshot := t.Snapshot()
	if final {
		t.logger.Infof("Run statistics: %s", renderSnapshot(snapshot))
		return
	}
	t.logger.Infof("Progress: %s", renderSnapshot(snapshot))
}

func renderSnapshot(s Snapshot) string {
	parts := []string{
		fmt.Sprintf("terms=%d/%d (%.0f%%)", s.TermsDone, s.TermsTotal, s.Progress()),
		fmt.Sprintf("domains=%d", s.Domains),
		fmt.Sprintf("matches=%d", s.Matches),
		fmt.Sprintf("written=%d", s.Written),
	}
	if s.Dropped > 0 {
		parts = append(parts, fmt.Sprintf("filtered=%d", s.Dropped))
	}
	if skipped := s.Skipped(); skipped > 0 {
		parts = append(parts, fmt.Sprintf("already_reported=%d", skipped))
	}
	if s.Resolved > 0 {
		parts = append(parts, fmt.Sprintf("resolved=%d", s.Resolved))
	}
	parts = append(parts, fmt.Sprintf("duration=%s", s.Duration.Truncate(time.Millisecond)))
	if len(s.Terms) > 0 {
		parts = append(parts, fmt.Sprintf("top_terms=%s", FormatTermBreakdown(s.Terms, 5)))
	}
	return strings.Join(parts, " | ")
}

// FormatTermBreakdown converts a map of per-term match counts into a human
// readable string, busiest terms first.
func FormatTermBreakdown(terms map[string]int, limit int) string {
	if limit <= 0 {
		limit = len(terms)
	}
	type item struct {
		name  string
		count int
	}
	entries := make([]item, 0, len(terms))
	for name, count := range terms {
		entries = append(entries, item{name: name, count: count})
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].count == entries[j].count {
			return entries[i].name < entries[j].name
		}
		return entries[i].count > entries[j].count
	})
	if len(entries) > limit {
		entries = entries[:limit]
	}
	formatted := make([]string, 0, len(entries))
	for _, entry := range entries {
		formatted = append(formatted, fmt.Sprintf("%s=%d", entry.name, entry.count))
	}
	return strings.Join(formatted, ", ")
}
