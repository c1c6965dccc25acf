// Package wordlist loads the analyst's query terms.
package wordlist

import (
	"bufio"
	"io"
	"os"
	"path/filepath"
	"strings"
)

const (
	scannerBufferSize = 64 * 1024
	maxTermSize       = 1024 * 1024
)

// Load reads one query term per line from path. Lines are trimmed and blank
// lines skipped; file order is preserved and duplicates are kept.
func Load(path string) ([]string, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	return Read(file)
}

// Read is Load for an already opened source.
func Read(r io.Reader) ([]string, error) {
	scanner := bufio.NewScanner(r)
	scanner.Split(bufio.ScanLines)
	scanner.Buffer(make([]byte, scannerBufferSize), maxTermSize)

	terms := make([]string, 0, 32)
	for scanner.Scan() {
		term := strings.TrimSpace(scanner.Text())
		if term == "" {
			continue
		}
		terms = append(terms, term)
	}

	if err := scanner.Err(); err != nil {
		return nil, err
	}

	return terms, nil
}

// BaseName returns the wordlist file name without directory or extension,
// used to name the match report.
func BaseName(path string) string {
	base := filepath.Base(strings.TrimSpace(path))
	if base == "." || base == string(filepath.Separator) {
		return "wordlist"
	}
	if ext := filepath.Ext(base); ext != "" && ext != base {
		base = strings.TrimSuffix(base, ext)
	}
	if base == "" {
		return "wordlist"
	}
	return base
}
