package spotter

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/yourusername/domainspotter/archive"
	"github.com/yourusername/domainspotter/feed"
	"github.com/yourusername/domainspotter/filters"
	"github.com/yourusername/domainspotter/report"
	"github.com/yourusername/domainspotter/resolver"
	"github.com/yourusername/domainspotter/stats"
)

var runDate = time.Date(2023, 1, 7, 12, 0, 0, 0, time.UTC)

func buildZip(t *testing.T, files map[string]string, order ...string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, name := range order {
		w, err := zw.Create(name)
		if err != nil {
			t.Fatalf("create entry: %v", err)
		}
		if _, err := w.Write([]byte(files[name])); err != nil {
			t.Fatalf("write entry: %v", err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("close zip: %v", err)
	}
	return buf.Bytes()
}

func writeArchive(t *testing.T, dir string, data []byte) string {
	t.Helper()
	path := filepath.Join(dir, "nrd.zip")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write archive: %v", err)
	}
	return path
}

func sampleArchive(t *testing.T) []byte {
	return buildZip(t, map[string]string{
		"domain-names.txt": "evil-example.com\nexample.com\ntotally-unrelated.net\n",
	}, "domain-names.txt")
}

func newRunner(t *testing.T, dir string, source Source, opts report.Options) *Runner {
	t.Helper()
	opts.Dir = dir
	opts.WordlistPath = "brands.txt"
	opts.Date = runDate
	writer, err := report.NewWriter(opts)
	if err != nil {
		t.Fatalf("new writer: %v", err)
	}
	return &Runner{Source: source, Report: writer, Limit: 10, Cutoff: 70, Workers: 1}
}

func TestRunWritesMatches(t *testing.T) {
	dir := t.TempDir()
	source := &FileSource{Path: writeArchive(t, t.TempDir(), sampleArchive(t))}
	runner := newRunner(t, dir, source, report.Options{})
	runner.Tracker = stats.NewTracker(stats.Options{})

	summary, err := runner.Run(context.Background(), []string{"example"})
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}

	data, err := os.ReadFile(summary.Path)
	if err != nil {
		t.Fatalf("read report: %v", err)
	}
	if string(data) != "evil-example.com\nexample.com\n" {
		t.Fatalf("unexpected report: %q", string(data))
	}
	if summary.Domains != 3 || summary.Matches != 2 || summary.Written != 2 {
		t.Fatalf("unexpected summary: %+v", summary)
	}
	if filepath.Base(summary.Path) != "brands_2023-01-07_matches.txt" {
		t.Fatalf("unexpected report name: %s", summary.Path)
	}
	if snapshot := runner.Tracker.Snapshot(); snapshot.TermsDone != 1 || snapshot.Matches != 2 {
		t.Fatalf("tracker not updated: %+v", snapshot)
	}
}

func TestRunWithoutMatchesLeavesNoFile(t *testing.T) {
	dir := t.TempDir()
	source := &FileSource{Path: writeArchive(t, t.TempDir(), sampleArchive(t))}
	runner := newRunner(t, dir, source, report.Options{})

	summary, err := runner.Run(context.Background(), []string{"zzzzqqqq"})
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if _, err := os.Stat(summary.Path); !os.IsNotExist(err) {
		t.Fatalf("expected no report file, stat err: %v", err)
	}
}

func TestRunEmptyArchive(t *testing.T) {
	dir := t.TempDir()
	source := &FileSource{Path: writeArchive(t, t.TempDir(), buildZip(t, nil))}
	runner := newRunner(t, dir, source, report.Options{})
	runner.Tracker = stats.NewTracker(stats.Options{})

	summary, err := runner.Run(context.Background(), []string{"example", "paypal"})
	if err != nil {
		t.Fatalf("empty archive must not fail the run: %v", err)
	}
	if summary.Domains != 0 || summary.Matches != 0 || summary.Written != 0 {
		t.Fatalf("unexpected summary: %+v", summary)
	}
	if _, err := os.Stat(summary.Path); !os.IsNotExist(err) {
		t.Fatalf("expected no report file, stat err: %v", err)
	}
	if snapshot := runner.Tracker.Snapshot(); snapshot.TermsDone != 2 {
		t.Fatalf("expected every term to be processed, got %+v", snapshot)
	}
}

func TestRunTwiceAppends(t *testing.T) {
	dir := t.TempDir()
	source := &FileSource{Path: writeArchive(t, t.TempDir(), sampleArchive(t))}

	var path string
	for i := 0; i < 2; i++ {
		summary, err := newRunner(t, dir, source, report.Options{}).Run(context.Background(), []string{"example"})
		if err != nil {
			t.Fatalf("run %d failed: %v", i, err)
		}
		path = summary.Path
	}

	data, _ := os.ReadFile(path)
	want := "evil-example.com\nexample.com\nevil-example.com\nexample.com\n"
	if string(data) != want {
		t.Fatalf("expected second run to append, got %q", string(data))
	}
}

func TestRunCorruptArchiveIsFatal(t *testing.T) {
	dir := t.TempDir()
	source := &FileSource{Path: writeArchive(t, t.TempDir(), []byte("<html>not yet published</html>"))}
	runner := newRunner(t, dir, source, report.Options{})

	summary, err := runner.Run(context.Background(), []string{"example"})
	if !errors.Is(err, archive.ErrNotZip) {
		t.Fatalf("expected ErrNotZip, got %v", err)
	}
	if errors.Is(err, ErrFetch) {
		t.Fatalf("a corrupt archive is not a fetch failure")
	}
	if _, statErr := os.Stat(summary.Path); !os.IsNotExist(statErr) {
		t.Fatalf("report must not be created on fatal error")
	}
}

func TestRunConcurrentMatchesSequential(t *testing.T) {
	data := buildZip(t, map[string]string{
		"a.txt": "evil-example.com\nexample.com\npaypa1.com\n",
		"b.txt": "totally-unrelated.net\npaypal-login.net\nrnicrosoft.com\n",
	}, "a.txt", "b.txt")
	archivePath := writeArchive(t, t.TempDir(), data)
	terms := []string{"example", "paypal", "unrelated", "microsoft", "zzzzqqqq"}

	outputs := make([]string, 0, 2)
	for _, workers := range []int{1, 4} {
		dir := t.TempDir()
		runner := newRunner(t, dir, &FileSource{Path: archivePath}, report.Options{})
		runner.Workers = workers
		summary, err := runner.Run(context.Background(), terms)
		if err != nil {
			t.Fatalf("workers=%d: run failed: %v", workers, err)
		}
		contents, err := os.ReadFile(summary.Path)
		if err != nil {
			t.Fatalf("workers=%d: read report: %v", workers, err)
		}
		outputs = append(outputs, string(contents))
	}
	if outputs[0] != outputs[1] {
		t.Fatalf("concurrent output differs:\nsequential:\n%s\nconcurrent:\n%s", outputs[0], outputs[1])
	}
}

func TestRunFetchFailure(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	defer server.Close()

	source := &FeedSource{Client: feed.NewClient(feed.WithBaseURL(server.URL)), Date: runDate}
	runner := newRunner(t, t.TempDir(), source, report.Options{})

	_, err := runner.Run(context.Background(), []string{"example"})
	if !errors.Is(err, ErrFetch) {
		t.Fatalf("expected ErrFetch, got %v", err)
	}
	var statusErr *feed.StatusError
	if !errors.As(err, &statusErr) || statusErr.StatusCode != http.StatusNotFound {
		t.Fatalf("expected wrapped 404 status error, got %v", err)
	}
}

func TestFeedSourceSavesArchive(t *testing.T) {
	data := sampleArchive(t)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(data)
	}))
	defer server.Close()

	savePath := filepath.Join(t.TempDir(), "archives", "2023-01-05.zip")
	source := &FeedSource{Client: feed.NewClient(feed.WithBaseURL(server.URL)), Date: runDate, SavePath: savePath}
	loaded, err := source.Load(context.Background())
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if len(loaded.Domains) != 3 || loaded.Size != int64(len(data)) {
		t.Fatalf("unexpected feed: %+v", loaded)
	}
	saved, err := os.ReadFile(savePath)
	if err != nil || !bytes.Equal(saved, data) {
		t.Fatalf("archive not saved (%v)", err)
	}
}

type stubResolver struct{}

func (stubResolver) Resolve(ctx context.Context, domain string) resolver.Result {
	if domain == "example.com" {
		return resolver.Result{Domain: domain, IPAddresses: []string{"192.0.2.10"}, CNAMEs: []string{"edge.cloudfront.net"}}
	}
	return resolver.Result{Domain: domain}
}

type recordingNotifier struct {
	mu      sync.Mutex
	records []report.Record
	fail    bool
}

func (n *recordingNotifier) Notify(ctx context.Context, record report.Record) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.records = append(n.records, record)
	if n.fail {
		return errors.New("endpoint down")
	}
	return nil
}

func TestRunEnrichesAndNotifies(t *testing.T) {
	dir := t.TempDir()
	source := &FileSource{Path: writeArchive(t, t.TempDir(), sampleArchive(t))}
	runner := newRunner(t, dir, source, report.Options{Dedupe: true})
	notifier := &recordingNotifier{fail: true}
	runner.Resolver = stubResolver{}
	runner.Notifier = notifier

	summary, err := runner.Run(context.Background(), []string{"example", "example"})
	if err != nil {
		t.Fatalf("webhook failures must not abort the run: %v", err)
	}
	if summary.Matches != 4 || summary.Written != 2 {
		t.Fatalf("expected dedupe to skip the repeated term, got %+v", summary)
	}
	if len(notifier.records) != 2 {
		t.Fatalf("expected two notifications, got %d", len(notifier.records))
	}
	second := notifier.records[1]
	if second.Domain != "example.com" || len(second.IPAddresses) != 1 || !second.CDN {
		t.Fatalf("expected enriched record, got %+v", second)
	}
	if second.Registrable != "example.com" || second.Term != "example" {
		t.Fatalf("unexpected record context: %+v", second)
	}
}

func TestRunMatchLabelReportsFeedDomain(t *testing.T) {
	data := buildZip(t, map[string]string{"d.txt": "login.examp1e.co.uk\nunrelated.org\n"}, "d.txt")
	dir := t.TempDir()
	runner := newRunner(t, dir, &FileSource{Path: writeArchive(t, t.TempDir(), data)}, report.Options{})
	runner.Filter = filters.New(filters.Options{MatchLabel: true})

	summary, err := runner.Run(context.Background(), []string{"example"})
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}
	contents, _ := os.ReadFile(summary.Path)
	if string(contents) != "login.examp1e.co.uk\n" {
		t.Fatalf("expected the full feed domain in the report, got %q", string(contents))
	}
}

func TestRunRequiresCollaborators(t *testing.T) {
	if _, err := (&Runner{}).Run(context.Background(), nil); err == nil {
		t.Fatalf("expected error without source")
	}
}
