package stats

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/yourusername/domainspotter/logging"
)

func TestTrackerSnapshot(t *testing.T) {
	tracker := NewTracker(Options{})
	tracker.SetCandidates(1200, 30)
	tracker.SetTerms(4)
	tracker.RecordTerm("paypal", 3, 2)
	tracker.RecordTerm("microsoft", 0, 0)
	tracker.RecordResolved()

	snapshot := tracker.Snapshot()
	if snapshot.Domains != 1200 || snapshot.Dropped != 30 {
		t.Fatalf("unexpected candidate counts: %+v", snapshot)
	}
	if snapshot.TermsDone != 2 || snapshot.Matches != 3 || snapshot.Written != 2 || snapshot.Resolved != 1 {
		t.Fatalf("unexpected snapshot values: %+v", snapshot)
	}
	if snapshot.Skipped() != 1 {
		t.Fatalf("expected one skipped match, got %d", snapshot.Skipped())
	}
	if snapshot.Progress() != 50 {
		t.Fatalf("expected 50%% progress, got %v", snapshot.Progress())
	}
	if _, ok := snapshot.Terms["microsoft"]; ok {
		t.Fatalf("terms without matches should not appear in the breakdown")
	}
}

func TestTrackerLogging(t *testing.T) {
	var buf bytes.Buffer
	logger, err := logging.New(logging.Options{Level: logging.LevelInfo, Console: &buf})
	if err != nil {
		t.Fatalf("failed to create logger: %v", err)
	}
	defer logger.Close()

	tracker := NewTracker(Options{Logger: logger, Interval: time.Millisecond})
	ctx, cancel := context.WithCancel(context.Background())
	tracker.Start(ctx.Done())
	tracker.SetTerms(1)
	tracker.RecordTerm("example", 2, 2)
	time.Sleep(5 * time.Millisecond)
	cancel()
	snapshot := tracker.Stop()
	tracker.LogSummary()

	if snapshot.Matches != 2 {
		t.Fatalf("expected snapshot to reflect matches")
	}
	if !strings.Contains(buf.String(), "Run statistics: terms=1/1 (100%)") {
		t.Fatalf("expected summary output, got %s", buf.String())
	}
}

func TestFormatTermBreakdown(t *testing.T) {
	breakdown := map[string]int{"b": 2, "a": 5, "c": 1}
	formatted := FormatTermBreakdown(breakdown, 2)
	if formatted != "a=5, b=2" {
		t.Fatalf("unexpected breakdown: %s", formatted)
	}
}

func TestNilTracker(t *testing.T) {
	var tracker *Tracker
	tracker.RecordTerm("x", 1, 1)
	tracker.Start(nil)
	if tracker.Stop().Matches != 0 {
		t.Fatalf("nil tracker should report zero values")
	}
}
