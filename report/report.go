// Package report persists matched domains to the per-day match file.
package report

import (
	"bufio"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/yourusername/domainspotter/config"
	"github.com/yourusername/domainspotter/wordlist"
)

const dateLayout = "2006-01-02"

// Record captures one matched domain and the context it was found in.
type Record struct {
	Term        string   `json:"term"`
	Domain      string   `json:"domain"`
	Score       float64  `json:"score"`
	Index       int      `json:"index"`
	Registrable string   `json:"registrable,omitempty"`
	IPAddresses []string `json:"ip_addresses,omitempty"`
	CDN         bool     `json:"cdn,omitempty"`
	Timestamp   string   `json:"timestamp"`
}

var csvHeader = []string{"term", "domain", "score", "index", "registrable", "ip_addresses", "cdn", "timestamp"}

// Options configures a Writer.
type Options struct {
	Dir          string
	WordlistPath string
	// Date names the file; the run clock's calendar day.
	Date      time.Time
	Format    config.Format
	Overwrite bool
	Dedupe    bool
	// Clock stamps records that carry no timestamp. Defaults to time.Now.
	Clock func() time.Time
}

// Writer appends matches to the report file, opening it once per term and
// only when the term produced something to write.
type Writer struct {
	path      string
	format    config.Format
	overwrite bool
	clock     func() time.Time

	mu        sync.Mutex
	truncated bool
	seen      *Index
}

// OutputPath returns {dir}/{wordlist basename}_{YYYY-MM-DD}_matches.{format}.
func OutputPath(dir, wordlistPath string, date time.Time, format config.Format) string {
	if format == "" {
		format = config.FormatTXT
	}
	if dir == "" {
		dir = "."
	}
	name := fmt.Sprintf("%s_%s_matches.%s", wordlist.BaseName(wordlistPath), date.Format(dateLayout), format)
	return filepath.Join(dir, name)
}

func NewWriter(opts Options) (*Writer, error) {
	format := opts.Format
	switch format {
	case "":
		format = config.FormatTXT
	case config.FormatTXT, config.FormatJSON, config.FormatCSV:
	default:
		return nil, fmt.Errorf("unsupported output format: %s", format)
	}

	clock := opts.Clock
	if clock == nil {
		clock = time.Now
	}

	w := &Writer{
		path:      OutputPath(opts.Dir, opts.WordlistPath, opts.Date, format),
		format:    format,
		overwrite: opts.Overwrite,
		clock:     clock,
	}

	if opts.Dedupe {
		w.seen = NewIndex()
		// An overwritten report starts empty, so earlier entries do not count.
		if !opts.Overwrite {
			domains, err := LoadDomains(w.path, format)
			if err != nil && !os.IsNotExist(err) {
				return nil, fmt.Errorf("loading existing report: %w", err)
			}
			for _, domain := range domains {
				w.seen.Add(domain)
			}
		}
	}

	return w, nil
}

// Path is the report file location, fixed for the lifetime of the Writer.
func (w *Writer) Path() string {
	return w.path
}

// WriteTerm persists the records found for one term and returns the ones that
// were written. Nothing is created or opened when no record survives dedupe.
func (w *Writer) WriteTerm(records []Record) ([]Record, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	pending := records
	if w.seen != nil {
		pending = make([]Record, 0, len(records))
		for _, record := range records {
			if w.seen.Add(record.Domain) {
				pending = append(pending, record)
			}
		}
	}
	if len(pending) == 0 {
		return nil, nil
	}

	if dir := filepath.Dir(w.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating output directory: %w", err)
		}
	}

	flags := os.O_APPEND | os.O_CREATE | os.O_WRONLY
	if w.overwrite && !w.truncated {
		flags |= os.O_TRUNC
	}
	file, err := os.OpenFile(w.path, flags, 0o644)
	if err != nil {
		return nil, fmt.Errorf("opening output file: %w", err)
	}
	w.truncated = true

	info, err := file.Stat()
	if err != nil {
		file.Close()
		return nil, fmt.Errorf("stat output file: %w", err)
	}

	buffered := bufio.NewWriter(file)
	if err := w.encode(buffered, pending, info.Size() == 0); err != nil {
		file.Close()
		return nil, err
	}
	if err := buffered.Flush(); err != nil {
		file.Close()
		return nil, err
	}
	if err := file.Close(); err != nil {
		return nil, err
	}
	return pending, nil
}

func (w *Writer) encode(dest io.Writer, records []Record, fresh bool) error {
	switch w.format {
	case config.FormatJSON:
		encoder := json.NewEncoder(dest)
		encoder.SetEscapeHTML(false)
		for _, record := range records {
			if err := encoder.Encode(w.stamp(record)); err != nil {
				return err
			}
		}
		return nil
	case config.FormatCSV:
		writer := csv.NewWriter(dest)
		if fresh {
			if err := writer.Write(csvHeader); err != nil {
				return err
			}
		}
		for _, record := range records {
			record = w.stamp(record)
			row := []string{
				record.Term,
				record.Domain,
				strconv.FormatFloat(record.Score, 'f', 2, 64),
				strconv.Itoa(record.Index),
				record.Registrable,
				strings.Join(record.IPAddresses, ";"),
				strconv.FormatBool(record.CDN),
				record.Timestamp,
			}
			if err := writer.Write(row); err != nil {
				return err
			}
		}
		writer.Flush()
		return writer.Error()
	default:
		for _, record := range records {
			if _, err := io.WriteString(dest, record.Domain+"\n"); err != nil {
				return err
			}
		}
		return nil
	}
}

func (w *Writer) stamp(record Record) Record {
	if record.Timestamp == "" {
		record.Timestamp = w.clock().UTC().Format(time.RFC3339)
	}
	return record
}
