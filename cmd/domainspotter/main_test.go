package main

import (
	"archive/zip"
	"bytes"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/yourusername/domainspotter/spotter"
)

var fixedNow = time.Date(2023, 1, 7, 8, 0, 0, 0, time.UTC)

func fixedClock() time.Time { return fixedNow }

func sampleZip(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	w, err := zw.Create("domain-names.txt")
	if err != nil {
		t.Fatalf("create entry: %v", err)
	}
	w.Write([]byte("evil-example.com\r\nexample.com\r\ntotally-unrelated.net\r\n"))
	if err := zw.Close(); err != nil {
		t.Fatalf("close zip: %v", err)
	}
	return buf.Bytes()
}

func writeWordlist(t *testing.T, dir string, contents string) string {
	t.Helper()
	path := filepath.Join(dir, "brands.txt")
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("write wordlist: %v", err)
	}
	return path
}

func runCLI(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	t.Setenv("HOME", t.TempDir())
	var stdout, stderr bytes.Buffer
	cmd := newRootCmd(fixedClock)
	cmd.SetArgs(args)
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func TestNoWordlistPrintsUsage(t *testing.T) {
	stdout, _, err := runCLI(t)
	if err != nil {
		t.Fatalf("expected help path to succeed, got %v", err)
	}
	if !strings.Contains(stdout, "No argument provided") || !strings.Contains(stdout, "--wordlist") {
		t.Fatalf("expected usage hint, got %q", stdout)
	}
}

func TestNoWordlistIgnoresOtherFlags(t *testing.T) {
	stdout, _, err := runCLI(t, "--format", "xml", "-w", "  ")
	if err != nil {
		t.Fatalf("expected help path without a wordlist, got %v", err)
	}
	if !strings.Contains(stdout, "No argument provided") {
		t.Fatalf("expected usage hint, got %q", stdout)
	}
}

func TestInvalidFlagWithWordlist(t *testing.T) {
	dir := t.TempDir()
	wordlistPath := writeWordlist(t, dir, "example\n")
	if _, _, err := runCLI(t, "-w", wordlistPath, "--format", "xml"); err == nil {
		t.Fatalf("expected invalid format to be rejected")
	}
}

func TestVersionFlag(t *testing.T) {
	stdout, _, err := runCLI(t, "--version")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(stdout, "domainspotter version: dev") {
		t.Fatalf("unexpected version output: %q", stdout)
	}
}

func TestRunAgainstFeed(t *testing.T) {
	data := sampleZip(t)
	var requested, userAgent string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requested = r.URL.Path
		userAgent = r.Header.Get("User-Agent")
		w.Write(data)
	}))
	defer server.Close()

	dir := t.TempDir()
	wordlistPath := writeWordlist(t, dir, "example\nzzzzqqqq\n")
	metricsPath := filepath.Join(dir, "metrics", "domainspotter.prom")

	stdout, _, err := runCLI(t,
		"-w", wordlistPath,
		"--base-url", server.URL,
		"--output-dir", dir,
		"--user-agent", "spotter-test/1.0",
		"--metrics-file", metricsPath,
	)
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}

	if requested != "/MjAyMy0wMS0wNS56aXA=/nrd" {
		t.Fatalf("unexpected request path %q", requested)
	}
	if userAgent != "spotter-test/1.0" {
		t.Fatalf("unexpected user agent %q", userAgent)
	}

	reportPath := filepath.Join(dir, "brands_2023-01-07_matches.txt")
	contents, err := os.ReadFile(reportPath)
	if err != nil {
		t.Fatalf("read report: %v", err)
	}
	if string(contents) != "evil-example.com\nexample.com\n" {
		t.Fatalf("unexpected report contents %q", string(contents))
	}
	if !strings.Contains(stdout, "Done. Output file can be found at: "+reportPath) {
		t.Fatalf("expected completion message, got %q", stdout)
	}
	if _, err := os.Stat(metricsPath); err != nil {
		t.Fatalf("expected metrics file: %v", err)
	}
}

func TestRunFetchFailurePrintsHint(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	defer server.Close()

	dir := t.TempDir()
	wordlistPath := writeWordlist(t, dir, "example\n")

	_, stderr, err := runCLI(t, "-w", wordlistPath, "--base-url", server.URL, "--output-dir", dir)
	if !errors.Is(err, spotter.ErrFetch) {
		t.Fatalf("expected fetch error, got %v", err)
	}
	if !strings.Contains(stderr, notPostedHint) {
		t.Fatalf("expected not-posted hint, got %q", stderr)
	}
	if _, statErr := os.Stat(filepath.Join(dir, "brands_2023-01-07_matches.txt")); !os.IsNotExist(statErr) {
		t.Fatalf("report should not exist after a failed fetch")
	}
}

func TestRunFromLocalArchive(t *testing.T) {
	dir := t.TempDir()
	archivePath := filepath.Join(dir, "nrd.zip")
	if err := os.WriteFile(archivePath, sampleZip(t), 0o644); err != nil {
		t.Fatalf("write archive: %v", err)
	}
	wordlistPath := writeWordlist(t, dir, "example\n")

	_, _, err := runCLI(t, "-w", wordlistPath, "--archive", archivePath, "--output-dir", dir, "--format", "csv", "--silent")
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}
	contents, err := os.ReadFile(filepath.Join(dir, "brands_2023-01-07_matches.csv"))
	if err != nil {
		t.Fatalf("read report: %v", err)
	}
	if !strings.HasPrefix(string(contents), "term,domain,score") || !strings.Contains(string(contents), "example,example.com,90.00") {
		t.Fatalf("unexpected csv report: %q", string(contents))
	}
}

func TestMissingWordlistFails(t *testing.T) {
	_, _, err := runCLI(t, "-w", filepath.Join(t.TempDir(), "missing.txt"))
	if !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("expected not-exist error, got %v", err)
	}
}

func TestFormatRefillDuration(t *testing.T) {
	cases := map[time.Duration]string{
		0:                       "ready",
		500 * time.Microsecond:  "<1ms",
		250 * time.Millisecond:  "250ms",
		1530 * time.Millisecond: "1.5s",
	}
	for input, want := range cases {
		if got := formatRefillDuration(input); got != want {
			t.Fatalf("formatRefillDuration(%s): expected %q, got %q", input, want, got)
		}
	}
}
