// Package archive turns the zipped daily feed into an ordered domain list.
package archive

import (
	"archive/zip"
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/yourusername/domainspotter/internal/intern"
)

const (
	scannerBufferSize = 64 * 1024
	maxLineSize       = 4 * 1024 * 1024
)

// ErrNotZip is returned when the payload cannot be opened as a zip archive.
var ErrNotZip = errors.New("archive is not a valid zip file")

// DecodeError reports a line that is not valid UTF-8 text.
type DecodeError struct {
	Entry string
	Line  int
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("entry %s line %d: invalid UTF-8 sequence", e.Entry, e.Line)
}

// Extract reads every file entry of the zip payload in archive order and
// returns its lines as domain names. Line order is preserved across and within
// entries, duplicates are kept and blank lines are skipped.
func Extract(data []byte) ([]string, error) {
	reader, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNotZip, err)
	}

	var total uint64
	for _, file := range reader.File {
		total += file.UncompressedSize64
	}
	// feed lines average well above 8 bytes, so this never undershoots badly
	capacity := 256
	if estimate := total / 16; estimate > uint64(capacity) && estimate < 1<<24 {
		capacity = int(estimate)
	}

	table := intern.New(capacity)
	domains := make([]string, 0, capacity)

	for _, file := range reader.File {
		if file.FileInfo().IsDir() {
			continue
		}
		domains, err = readEntry(file, table, domains)
		if err != nil {
			return nil, err
		}
	}

	return domains, nil
}

func readEntry(file *zip.File, table *intern.Table, domains []string) ([]string, error) {
	rc, err := file.Open()
	if err != nil {
		return nil, fmt.Errorf("%w: opening entry %s: %v", ErrNotZip, file.Name, err)
	}
	defer rc.Close()

	return readLines(rc, file.Name, table, domains)
}

func readLines(r io.Reader, name string, table *intern.Table, domains []string) ([]string, error) {
	scanner := bufio.NewScanner(r)
	scanner.Split(bufio.ScanLines)
	scanner.Buffer(make([]byte, scannerBufferSize), maxLineSize)

	line := 0
	for scanner.Scan() {
		line++
		raw := scanner.Bytes()
		if !utf8.Valid(raw) {
			return nil, &DecodeError{Entry: name, Line: line}
		}
		domain := strings.TrimRight(string(raw), "\r\n")
		if domain == "" {
			continue
		}
		domains = append(domains, table.Intern(domain))
	}

	if err := scanner.Err(); err != nil {
		if errors.Is(err, zip.ErrChecksum) || errors.Is(err, zip.ErrFormat) || errors.Is(err, io.ErrUnexpectedEOF) {
			return nil, fmt.Errorf("%w: reading entry %s: %v", ErrNotZip, name, err)
		}
		return nil, fmt.Errorf("reading entry %s: %w", name, err)
	}

	return domains, nil
}
