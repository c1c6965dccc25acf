package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"
)

const defaultConfigFilename = ".domainspotter.yaml"

type fileConfig struct {
	Profiles map[string]profileSettings `yaml:"profiles"`
}

type profileSettings struct {
	WordlistPath  *string        `yaml:"wordlist"`
	OutputDir     *string        `yaml:"output_dir"`
	Format        *string        `yaml:"format"`
	WriteMode     *string        `yaml:"write_mode"`
	Dedupe        *bool          `yaml:"dedupe"`
	Cutoff        *float64       `yaml:"cutoff"`
	Limit         *int           `yaml:"limit"`
	Workers       *int           `yaml:"workers"`
	Timeout       *time.Duration `yaml:"timeout"`
	Retries       *int           `yaml:"retries"`
	RateLimit     *float64       `yaml:"rate_limit"`
	BaseURL       *string        `yaml:"base_url"`
	UserAgent     *string        `yaml:"user_agent"`
	Lag           *int           `yaml:"lag"`
	SaveArchive   *string        `yaml:"save_archive"`
	Verbose       *bool          `yaml:"verbose"`
	Silent        *bool          `yaml:"silent"`
	LogLevel      *string        `yaml:"log_level"`
	LogFile       *string        `yaml:"log_file"`
	Exclude       *StringSlice   `yaml:"exclude"`
	TLDs          *StringSlice   `yaml:"tld"`
	MatchLabel    *bool          `yaml:"match_label"`
	DecodeIDN     *bool          `yaml:"decode_idn"`
	Resolve       *bool          `yaml:"resolve"`
	DNSServer     *string        `yaml:"dns_server"`
	DNSTimeout    *time.Duration `yaml:"dns_timeout"`
	WebhookURL    *string        `yaml:"webhook"`
	WebhookSecret *string        `yaml:"webhook_secret"`
	MetricsFile   *string        `yaml:"metrics_file"`
}

type StringSlice []string

func (s *StringSlice) UnmarshalYAML(value *yaml.Node) error {
	switch value.Kind {
	case yaml.ScalarNode:
		var str string
		if err := value.Decode(&str); err != nil {
			return err
		}
		*s = nil
		for _, item := range strings.Split(str, ",") {
			if item = strings.TrimSpace(item); item != "" {
				*s = append(*s, item)
			}
		}
		return nil
	case yaml.SequenceNode:
		var raw []string
		if err := value.Decode(&raw); err != nil {
			return err
		}
		cleaned := make([]string, 0, len(raw))
		for _, item := range raw {
			item = strings.TrimSpace(item)
			if item == "" {
				continue
			}
			cleaned = append(cleaned, item)
		}
		*s = cleaned
		return nil
	default:
		return fmt.Errorf("unsupported YAML type %s for string slice", value.ShortTag())
	}
}

func (s *StringSlice) ToSlice() []string {
	if s == nil {
		return nil
	}
	dup := make([]string, len(*s))
	copy(dup, *s)
	return dup
}

// ApplyProfile loads and applies the requested configuration profile to cfg.
// Command-line flag overrides take precedence over profile values.
func ApplyProfile(cfg *Config, cmd *cobra.Command) error {
	path, err := resolveConfigPath(cfg.ConfigPath)
	if err != nil {
		return fmt.Errorf("locating config file: %w", err)
	}

	if path == "" {
		if cfg.Profile != "" {
			return fmt.Errorf("profile %q requested but no %s file was found", cfg.Profile, defaultConfigFilename)
		}
		return nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading config file %s: %w", path, err)
	}

	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return fmt.Errorf("parsing config file %s: %w", path, err)
	}

	profileName := cfg.Profile
	if profileName == "" {
		if _, ok := fc.Profiles["default"]; ok {
			profileName = "default"
		}
	}
	if profileName == "" {
		return nil
	}

	profile, ok := fc.Profiles[profileName]
	if !ok {
		return fmt.Errorf("profile %q not found in %s", profileName, path)
	}

	applyProfileSettings(cfg, &profile, cmd.Flags())
	cfg.ConfigPath = path
	return nil
}

func applyProfileSettings(cfg *Config, p *profileSettings, flags *pflag.FlagSet) {
	setString(&cfg.WordlistPath, p.WordlistPath, flags, "wordlist")
	setString(&cfg.OutputDir, p.OutputDir, flags, "output-dir")
	if p.Format != nil && !flagChanged(flags, "format") {
		cfg.Format = Format(strings.TrimSpace(*p.Format))
	}
	setString(&cfg.WriteMode, p.WriteMode, flags, "write-mode")
	setValue(&cfg.Dedupe, p.Dedupe, flags, "dedupe")
	setValue(&cfg.Cutoff, p.Cutoff, flags, "cutoff")
	setValue(&cfg.Limit, p.Limit, flags, "limit")
	setValue(&cfg.Workers, p.Workers, flags, "workers")
	setValue(&cfg.Timeout, p.Timeout, flags, "timeout")
	setValue(&cfg.Retries, p.Retries, flags, "retries")
	setValue(&cfg.RateLimit, p.RateLimit, flags, "rate-limit")
	setString(&cfg.BaseURL, p.BaseURL, flags, "base-url")
	setString(&cfg.UserAgent, p.UserAgent, flags, "user-agent")
	setValue(&cfg.Lag, p.Lag, flags, "lag")
	setString(&cfg.SaveArchive, p.SaveArchive, flags, "save-archive")
	setValue(&cfg.Verbose, p.Verbose, flags, "verbose")
	setValue(&cfg.Silent, p.Silent, flags, "silent")
	setString(&cfg.LogLevel, p.LogLevel, flags, "log-level")
	setString(&cfg.LogFile, p.LogFile, flags, "log-file")
	if p.Exclude != nil && !flagChanged(flags, "exclude") {
		cfg.Exclude = p.Exclude.ToSlice()
	}
	if p.TLDs != nil && !flagChanged(flags, "tld") {
		cfg.TLDs = p.TLDs.ToSlice()
	}
	setValue(&cfg.MatchLabel, p.MatchLabel, flags, "match-label")
	setValue(&cfg.DecodeIDN, p.DecodeIDN, flags, "decode-idn")
	setValue(&cfg.Resolve, p.Resolve, flags, "resolve")
	setString(&cfg.DNSServer, p.DNSServer, flags, "dns-server")
	setValue(&cfg.DNSTimeout, p.DNSTimeout, flags, "dns-timeout")
	setString(&cfg.WebhookURL, p.WebhookURL, flags, "webhook")
	setString(&cfg.WebhookSecret, p.WebhookSecret, flags, "webhook-secret")
	setString(&cfg.MetricsFile, p.MetricsFile, flags, "metrics-file")
}

func setString(dst *string, value *string, flags *pflag.FlagSet, name string) {
	if value != nil && !flagChanged(flags, name) {
		*dst = strings.TrimSpace(*value)
	}
}

func setValue[T any](dst *T, value *T, flags *pflag.FlagSet, name string) {
	if value != nil && !flagChanged(flags, name) {
		*dst = *value
	}
}

func resolveConfigPath(explicit string) (string, error) {
	if explicit != "" {
		abs := explicit
		if !filepath.IsAbs(abs) {
			if resolved, err := filepath.Abs(explicit); err == nil {
				abs = resolved
			}
		}
		if _, err := os.Stat(abs); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return "", err
			}
			return "", fmt.Errorf("stat %s: %w", abs, err)
		}
		return abs, nil
	}

	cwd, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("getwd: %w", err)
	}
	candidate := filepath.Join(cwd, defaultConfigFilename)
	if _, err := os.Stat(candidate); err == nil {
		return candidate, nil
	}

	if home, err := os.UserHomeDir(); err == nil {
		candidate := filepath.Join(home, defaultConfigFilename)
		if _, err := os.Stat(candidate); err == nil {
			return candidate, nil
		}
	}

	return "", nil
}

func flagChanged(flags *pflag.FlagSet, name string) bool {
	if flags == nil {
		return false
	}
	flag := flags.Lookup(name)
	if flag == nil {
		return false
	}
	return flag.Changed
}
