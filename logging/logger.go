package logging

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

var levelNames = map[string]Level{
	"debug":   LevelDebug,
	"info":    LevelInfo,
	"warn":    LevelWarn,
	"warning": LevelWarn,
	"error":   LevelError,
}

var levelStrings = map[Level]string{
	LevelDebug: "DEBUG",
	LevelInfo:  "INFO",
	LevelWarn:  "WARN",
	LevelError: "ERROR",
}

// console markers
var levelMarkers = map[Level]string{
	LevelDebug: "[*]",
	LevelInfo:  "[+]",
	LevelWarn:  "[!]",
	LevelError: "[!]",
}

type Options struct {
	Level    Level
	Console  io.Writer
	FilePath string
	// Clock overrides time.Now for log file timestamps.
	Clock func() time.Time
}

// Logger writes short marker-prefixed lines to the console and, when a log
// file is configured, timestamped lines with level names to that file.
type Logger struct {
	mu      sync.Mutex
	level   Level
	console io.Writer
	file    *os.File
	clock   func() time.Time
}

func ParseLevel(value string) (Level, error) {
	value = strings.ToLower(strings.TrimSpace(value))
	if value == "" {
		return LevelInfo, nil
	}
	level, ok := levelNames[value]
	if !ok {
		return LevelInfo, fmt.Errorf("unknown log level %q", value)
	}
	return level, nil
}

func New(opts Options) (*Logger, error) {
	console := opts.Console
	if console == nil {
		console = os.Stderr
	}

	clock := opts.Clock
	if clock == nil {
		clock = time.Now
	}

	var logFile *os.File
	if filePath := strings.TrimSpace(opts.FilePath); filePath != "" {
		dir := filepath.Dir(filePath)
		if dir != "." && dir != "" {
			if err := os.MkdirAll(dir, 0o755); err != nil && !errors.Is(err, os.ErrExist) {
				return nil, fmt.Errorf("creating log directory: %w", err)
			}
		}
		f, err := os.OpenFile(filePath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
		if err != nil {
			return nil, fmt.Errorf("opening log file: %w", err)
		}
		logFile = f
	}

	return &Logger{
		level:   opts.Level,
		console: console,
		file:    logFile,
		clock:   clock,
	}, nil
}

// Discard returns a logger that drops everything. Handy for library callers
// and tests that do not care about output.
func Discard() *Logger {
	return &Logger{level: LevelError + 1, console: io.Discard, clock: time.Now}
}

func (l *Logger) Close() error {
	if l == nil {
		return nil
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.file != nil {
		err := l.file.Close()
		l.file = nil
		return err
	}
	return nil
}

func (l *Logger) logf(level Level, format string, args ...interface{}) {
	if l == nil {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if level < l.level {
		return
	}

	message := strings.TrimRight(fmt.Sprintf(format, args...), "\n")

	marker := levelMarkers[level]
	if marker == "" {
		marker = "[+]"
	}
	_, _ = fmt.Fprintf(l.console, "%s %s\n", marker, message)

	if l.file != nil {
		levelName := levelStrings[level]
		if levelName == "" {
			levelName = "INFO"
		}
		timestamp := l.clock().UTC().Format(time.RFC3339)
		_, _ = fmt.Fprintf(l.file, "%s [%s] %s\n", timestamp, levelName, message)
	}
}

func (l *Logger) Debugf(format string, args ...interface{}) {
	l.logf(LevelDebug, format, args...)
}

func (l *Logger) Infof(format string, args ...interface{}) {
	l.logf(LevelInfo, format, args...)
}

func (l *Logger) Warnf(format string, args ...interface{}) {
	l.logf(LevelWarn, format, args...)
}

func (l *Logger) Errorf(format string, args ...interface{}) {
	l.logf(LevelError, format, args...)
}

type writerAdapter struct {
	logger *Logger
	level  Level
}

func (w writerAdapter) Write(p []byte) (int, error) {
	if len(p) == 0 || w.logger == nil {
		return len(p), nil
	}
	text := strings.ReplaceAll(string(p), "\r", "")
	for _, line := range strings.Split(text, "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			continue
		}
		w.logger.logf(w.level, "%s", trimmed)
	}
	return len(p), nil
}

// Writer adapts the logger to io.Writer, logging each non-blank line at level.
func (l *Logger) Writer(level Level) io.Writer {
	return writerAdapter{logger: l, level: level}
}
