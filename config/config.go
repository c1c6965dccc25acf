package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
)

// Format represents an output format option.
type Format string

// Supported output format options.
const (
	FormatTXT  Format = "txt"
	FormatJSON Format = "json"
	FormatCSV  Format = "csv"
)

// Write modes for the match report.
const (
	WriteAppend    = "append"
	WriteOverwrite = "overwrite"
)

const (
	DefaultCutoff  = 70.0
	DefaultLimit   = 10
	DefaultTimeout = 60 * time.Second
	DefaultLag     = 2

	webhookSecretEnv = "DOMAINSPOTTER_WEBHOOK_SECRET"
)

// Config captures all runtime configuration for the CLI.
type Config struct {
	WordlistPath string
	OutputDir    string
	Format       Format
	WriteMode    string
	Dedupe       bool

	Cutoff  float64
	Limit   int
	Workers int

	Timeout     time.Duration
	Retries     int
	RateLimit   float64
	BaseURL     string
	UserAgent   string
	Lag         int
	Date        string
	ArchivePath string
	SaveArchive string

	Verbose    bool
	Silent     bool
	LogLevel   string
	LogFile    string
	ConfigPath string
	Profile    string

	Exclude    []string
	TLDs       []string
	MatchLabel bool
	DecodeIDN  bool

	Resolve    bool
	DNSServer  string
	DNSTimeout time.Duration

	WebhookURL    string
	WebhookSecret string
	MetricsFile   string
}

// BindFlags registers the command-line flags and returns a Config instance
// whose fields are populated when Cobra parses flag values.
func BindFlags(cmd *cobra.Command) *Config {
	cfg := &Config{}

	flags := cmd.PersistentFlags()
	flags.StringVarP(&cfg.WordlistPath, "wordlist", "w", "", "Path to the wordlist of brand terms to look for")
	flags.StringVarP(&cfg.OutputDir, "output-dir", "o", ".", "Directory the match report is written to")
	flags.StringVar((*string)(&cfg.Format), "format", string(FormatTXT), "Report format (txt, json, csv)")
	flags.StringVar(&cfg.WriteMode, "write-mode", WriteAppend, "Report write mode (append or overwrite)")
	flags.BoolVar(&cfg.Dedupe, "dedupe", false, "Skip domains already present in the report for the same day")

	flags.Float64Var(&cfg.Cutoff, "cutoff", DefaultCutoff, "Minimum similarity score (0-100) for a domain to count as a match")
	flags.IntVar(&cfg.Limit, "limit", DefaultLimit, "Maximum matches kept per term (0 keeps all)")
	flags.IntVar(&cfg.Workers, "workers", 1, "Number of terms scored concurrently")

	flags.DurationVar(&cfg.Timeout, "timeout", DefaultTimeout, "Timeout for the feed download")
	flags.IntVar(&cfg.Retries, "retries", 1, "Download attempts on 5xx or connection errors (1 disables retrying)")
	flags.Float64Var(&cfg.RateLimit, "rate-limit", 0, "Maximum outbound requests per second (0 disables limiting)")
	flags.StringVar(&cfg.BaseURL, "base-url", "", "Override the newly registered domains feed location")
	flags.StringVar(&cfg.UserAgent, "user-agent", "", "User-Agent header sent to the feed")
	flags.IntVar(&cfg.Lag, "lag", DefaultLag, "Days between today and the published feed date")
	flags.StringVar(&cfg.Date, "date", "", "Fetch the feed for a specific day (YYYY-MM-DD) instead of today minus lag")
	flags.StringVar(&cfg.ArchivePath, "archive", "", "Read domains from a local zip archive instead of downloading")
	flags.StringVar(&cfg.SaveArchive, "save-archive", "", "Keep a copy of the downloaded archive at this path")

	flags.BoolVarP(&cfg.Verbose, "verbose", "v", false, "Enable verbose logging output")
	flags.BoolVar(&cfg.Silent, "silent", false, "Only log warnings and errors")
	flags.StringVar(&cfg.LogLevel, "log-level", "", "Log level (debug, info, warn, error)")
	flags.StringVar(&cfg.LogFile, "log-file", "", "Append logs to this file")
	flags.StringVar(&cfg.ConfigPath, "config", "", "Path to a "+defaultConfigFilename+" profile file")
	flags.StringVar(&cfg.Profile, "profile", "", "Profile name to load from the config file")

	flags.StringSliceVar(&cfg.Exclude, "exclude", nil, "Drop domains matching these glob patterns, .suffixes or substrings")
	flags.StringSliceVar(&cfg.TLDs, "tld", nil, "Only consider domains under these public suffixes")
	flags.BoolVar(&cfg.MatchLabel, "match-label", false, "Score terms against the registrable label instead of the full domain")
	flags.BoolVar(&cfg.DecodeIDN, "decode-idn", false, "Decode punycode domains to Unicode before scoring")

	flags.BoolVar(&cfg.Resolve, "resolve", false, "Resolve A/AAAA records for matched domains")
	flags.StringVar(&cfg.DNSServer, "dns-server", "", "DNS server to use for resolution (host or host:port)")
	flags.DurationVar(&cfg.DNSTimeout, "dns-timeout", 5*time.Second, "Timeout for individual DNS lookups")

	flags.StringVar(&cfg.WebhookURL, "webhook", "", "POST each match to this URL")
	flags.StringVar(&cfg.WebhookSecret, "webhook-secret", "", "HMAC secret for webhook signatures (or "+webhookSecretEnv+")")
	flags.StringVar(&cfg.MetricsFile, "metrics-file", "", "Write Prometheus textfile metrics for the run to this path")

	return cfg
}

// Validate ensures the provided configuration values meet the expected
// constraints and normalises their representation where required.
func (c *Config) Validate() error {
	c.WordlistPath = strings.TrimSpace(c.WordlistPath)
	c.OutputDir = strings.TrimSpace(c.OutputDir)
	if c.OutputDir == "" {
		c.OutputDir = "."
	}

	format := strings.ToLower(strings.TrimSpace(string(c.Format)))
	switch Format(format) {
	case FormatJSON, FormatCSV, FormatTXT:
		c.Format = Format(format)
	case "":
		c.Format = FormatTXT
	default:
		return fmt.Errorf("invalid output format %q: expected txt, json, or csv", c.Format)
	}

	c.WriteMode = strings.ToLower(strings.TrimSpace(c.WriteMode))
	switch c.WriteMode {
	case WriteAppend, WriteOverwrite:
	case "":
		c.WriteMode = WriteAppend
	default:
		return fmt.Errorf("invalid write mode %q: expected %q or %q", c.WriteMode, WriteAppend, WriteOverwrite)
	}

	if c.Cutoff < 0 || c.Cutoff > 100 {
		return fmt.Errorf("cutoff must be between 0 and 100, got %g", c.Cutoff)
	}
	if c.Limit < 0 {
		return fmt.Errorf("limit must not be negative, got %d", c.Limit)
	}
	if c.Workers <= 0 {
		c.Workers = 1
	}
	if c.Timeout <= 0 {
		c.Timeout = DefaultTimeout
	}
	if c.Retries <= 0 {
		c.Retries = 1
	}
	if c.RateLimit < 0 {
		c.RateLimit = 0
	}
	if c.Lag < 0 {
		return fmt.Errorf("lag must not be negative, got %d", c.Lag)
	}

	c.BaseURL = strings.TrimSpace(c.BaseURL)
	c.UserAgent = strings.TrimSpace(c.UserAgent)
	c.Date = strings.TrimSpace(c.Date)
	c.ArchivePath = strings.TrimSpace(c.ArchivePath)
	c.SaveArchive = strings.TrimSpace(c.SaveArchive)
	if c.ArchivePath != "" && c.Date != "" {
		return fmt.Errorf("--archive and --date are mutually exclusive")
	}

	if c.Silent && c.Verbose {
		return fmt.Errorf("--silent and --verbose cannot be combined")
	}
	c.LogLevel = strings.ToLower(strings.TrimSpace(c.LogLevel))
	c.LogFile = strings.TrimSpace(c.LogFile)

	c.Exclude = cleanList(c.Exclude, false)
	c.TLDs = cleanList(c.TLDs, true)

	c.DNSServer = strings.TrimSpace(c.DNSServer)
	if c.DNSTimeout <= 0 {
		c.DNSTimeout = 5 * time.Second
	}

	c.WebhookURL = strings.TrimSpace(c.WebhookURL)
	if c.WebhookSecret == "" {
		c.WebhookSecret = strings.TrimSpace(os.Getenv(webhookSecretEnv))
	}
	c.MetricsFile = strings.TrimSpace(c.MetricsFile)

	return nil
}

// EffectiveLogLevel resolves the log level from the explicit setting and the
// verbose/silent switches, in that order of precedence.
func (c *Config) EffectiveLogLevel() string {
	switch {
	case c.LogLevel != "":
		return c.LogLevel
	case c.Verbose:
		return "debug"
	case c.Silent:
		return "warn"
	default:
		return "info"
	}
}

func cleanList(values []string, lower bool) []string {
	if len(values) == 0 {
		return nil
	}
	cleaned := make([]string, 0, len(values))
	for _, value := range values {
		value = strings.TrimSpace(value)
		if lower {
			value = strings.ToLower(strings.TrimPrefix(value, "."))
		}
		if value == "" {
			continue
		}
		cleaned = append(cleaned, value)
	}
	return cleaned
}
