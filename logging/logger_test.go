package logging

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestParseLevel(t *testing.T) {
	level, err := ParseLevel("warn")
	if err != nil || level != LevelWarn {
		t.Fatalf("unexpected parse result: %v %v", level, err)
	}
	if level, err := ParseLevel(""); err != nil || level != LevelInfo {
		t.Fatalf("expected empty level to default to info, got %v %v", level, err)
	}
	if _, err := ParseLevel("unknown"); err == nil {
		t.Fatalf("expected error for unknown level")
	}
}

func TestLoggerWritesToOutputs(t *testing.T) {
	dir := t.TempDir()
	logPath := filepath.Join(dir, "logs", "spotter.log")
	var console bytes.Buffer
	fixed := time.Date(2023, 1, 7, 10, 0, 0, 0, time.UTC)

	logger, err := New(Options{Level: LevelInfo, Console: &console, FilePath: logPath, Clock: func() time.Time { return fixed }})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer logger.Close()

	logger.Infof("connecting to %s", "feed")
	logger.Debugf("debug message should be filtered")
	logger.Warnf("careful")
	writer := logger.Writer(LevelError)
	writer.Write([]byte("first error\r\nsecond error\n"))

	out := console.String()
	if !strings.Contains(out, "[+] connecting to feed\n") {
		t.Fatalf("console output missing info entry: %s", out)
	}
	if !strings.Contains(out, "[!] careful\n") || !strings.Contains(out, "[!] second error\n") {
		t.Fatalf("console output missing warning markers: %s", out)
	}
	if strings.Contains(out, "debug message") {
		t.Fatalf("debug line should be filtered: %s", out)
	}

	if err := logger.Close(); err != nil {
		t.Fatalf("close failed: %v", err)
	}

	data, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("failed to read log file: %v", err)
	}
	contents := string(data)
	if !strings.Contains(contents, "2023-01-07T10:00:00Z [INFO] connecting to feed") {
		t.Fatalf("log file missing timestamped entry: %s", contents)
	}
	if !strings.Contains(contents, "[ERROR] first error") {
		t.Fatalf("log file missing adapter entry: %s", contents)
	}
}

func TestDiscardAndNilLogger(t *testing.T) {
	Discard().Errorf("dropped %d", 1)
	var logger *Logger
	logger.Infof("nil logger must not panic")
	if err := logger.Close(); err != nil {
		t.Fatalf("unexpected close error: %v", err)
	}
}
