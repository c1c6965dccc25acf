package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/yourusername/domainspotter/config"
	"github.com/yourusername/domainspotter/feed"
	"github.com/yourusername/domainspotter/filters"
	"github.com/yourusername/domainspotter/fuzzy"
	"github.com/yourusername/domainspotter/logging"
	"github.com/yourusername/domainspotter/metrics"
	"github.com/yourusername/domainspotter/netutil"
	"github.com/yourusername/domainspotter/notifier/webhook"
	"github.com/yourusername/domainspotter/ratelimit"
	"github.com/yourusername/domainspotter/report"
	"github.com/yourusername/domainspotter/resolver"
	"github.com/yourusername/domainspotter/spotter"
	"github.com/yourusername/domainspotter/stats"
	"github.com/yourusername/domainspotter/wordlist"
)

var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

const banner = `
  __   __                    __   __   __  ___ ___  ___  __
 |  \ /  \ |\/|  /\  | |\ | /__' |__) /  \  |   |  |__  |__)
 |__/ \__/ |  | /~~\ | | \| .__/ |    \__/  |   |  |___ |  \
--------------------------------------------------------------------------
`

const notPostedHint = "Today's domains list may not have been posted yet. Please try again later."

func newRootCmd(clock func() time.Time) *cobra.Command {
	if clock == nil {
		clock = time.Now
	}

	cmd := &cobra.Command{
		Use:   "domainspotter",
		Short: "Search newly registered domains for lookalikes of your brands.",
		Long: banner + `
Search for suspect domains using fuzzy string matching and a user defined
wordlist. Each run downloads the daily newly registered domains list and
appends every domain that resembles a wordlist term to
{wordlist}_{YYYY-MM-DD}_matches.txt.`,
		Example:       "  domainspotter --wordlist brands.txt\n  domainspotter -w brands.txt --cutoff 85 --format csv --resolve",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cfg := config.BindFlags(cmd)
	cmd.PersistentFlags().BoolP("version", "V", false, "Show domainspotter version information and exit")

	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		showVersion, err := cmd.Flags().GetBool("version")
		if err != nil {
			return err
		}
		if showVersion {
			fmt.Fprintf(cmd.OutOrStdout(), "domainspotter version: %s\n", version)
			fmt.Fprintf(cmd.OutOrStdout(), "commit: %s\n", commit)
			fmt.Fprintf(cmd.OutOrStdout(), "built: %s\n", date)
			return nil
		}

		if err := config.ApplyProfile(cfg, cmd); err != nil {
			return err
		}

		// Without a wordlist there is nothing to run, so other flags are
		// not checked.
		cfg.WordlistPath = strings.TrimSpace(cfg.WordlistPath)
		if cfg.WordlistPath == "" {
			out := cmd.OutOrStdout()
			fmt.Fprint(out, banner)
			fmt.Fprintln(out, "[!] No argument provided.")
			fmt.Fprintf(out, "[!] usage: %s --wordlist /path/to/wordlist\n\n", cmd.CommandPath())
			return nil
		}

		if err := cfg.Validate(); err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		return run(ctx, cmd, cfg, clock)
	}

	return cmd
}

func run(ctx context.Context, cmd *cobra.Command, cfg *config.Config, clock func() time.Time) (runErr error) {
	level, err := logging.ParseLevel(cfg.EffectiveLogLevel())
	if err != nil {
		return err
	}
	logger, err := logging.New(logging.Options{Level: level, Console: cmd.ErrOrStderr(), FilePath: cfg.LogFile})
	if err != nil {
		return err
	}
	defer logger.Close()

	if !cfg.Silent {
		fmt.Fprint(cmd.OutOrStdout(), banner+"\n")
	}
	if cfg.ConfigPath != "" {
		logger.Debugf("Loaded configuration from %s", cfg.ConfigPath)
	}

	terms, err := wordlist.Load(cfg.WordlistPath)
	if err != nil {
		return fmt.Errorf("loading wordlist: %w", err)
	}
	if len(terms) == 0 {
		logger.Warnf("Wordlist %s contains no terms", cfg.WordlistPath)
	}

	now := clock()
	feedDate := feed.TargetDate(now, cfg.Lag)
	if cfg.Date != "" {
		if feedDate, err = feed.ParseDate(cfg.Date, now.Location()); err != nil {
			return err
		}
	}

	limiter := ratelimit.New(cfg.RateLimit)
	startRateLimitMonitor(ctx, limiter, logger)
	httpClient := netutil.NewHTTPClient(cfg.Timeout, limiter,
		netutil.WithUserAgent(cfg.UserAgent),
		netutil.WithRetries(cfg.Retries, time.Second),
	)

	writer, err := report.NewWriter(report.Options{
		Dir:          cfg.OutputDir,
		WordlistPath: cfg.WordlistPath,
		Date:         now,
		Format:       cfg.Format,
		Overwrite:    cfg.WriteMode == config.WriteOverwrite,
		Dedupe:       cfg.Dedupe,
		Clock:        clock,
	})
	if err != nil {
		return err
	}

	var runMetrics *metrics.Metrics
	if cfg.MetricsFile != "" {
		runMetrics = metrics.New()
		defer func() {
			if runErr == nil {
				runMetrics.MarkSuccess(clock())
			}
			if err := runMetrics.WriteFile(cfg.MetricsFile); err != nil {
				logger.Warnf("%v", err)
			}
		}()
	}

	tracker := stats.NewTracker(stats.Options{Logger: logger, Interval: 5 * time.Second})
	tracker.Start(ctx.Done())

	runner := &spotter.Runner{
		Source:  buildSource(cfg, httpClient, feedDate),
		Extract: fuzzy.Extract,
		Filter: filters.New(filters.Options{
			Exclude:    cfg.Exclude,
			TLDs:       cfg.TLDs,
			MatchLabel: cfg.MatchLabel,
			DecodeIDN:  cfg.DecodeIDN,
		}),
		Report:  writer,
		Tracker: tracker,
		Metrics: runMetrics,
		Logger:  logger,
		Limit:   cfg.Limit,
		Cutoff:  cfg.Cutoff,
		Workers: cfg.Workers,
	}

	if cfg.Resolve {
		dnsResolver, err := resolver.New(resolver.Options{Server: cfg.DNSServer, Timeout: cfg.DNSTimeout, RateLimiter: limiter})
		if err != nil {
			return err
		}
		logger.Debugf("Resolving matches via %s", dnsResolver.Server())
		runner.Resolver = dnsResolver
	}

	notifier, err := webhook.New(webhook.Options{
		Endpoint: cfg.WebhookURL,
		Secret:   cfg.WebhookSecret,
		FeedDate: feed.FormatDate(feedDate),
		Client:   httpClient,
		Logger:   logger,
	})
	if err != nil {
		return err
	}
	if notifier != nil {
		runner.Notifier = notifier
	}

	summary, err := runner.Run(ctx, terms)
	tracker.Stop()
	if err != nil {
		if errors.Is(err, spotter.ErrFetch) {
			logger.Errorf("%v", err)
			logger.Warnf(notPostedHint)
			return fmt.Errorf("no domain list for %s: %w", feed.FormatDate(feedDate), spotter.ErrFetch)
		}
		return err
	}

	tracker.LogSummary()
	if summary.Written == 0 {
		logger.Infof("No domains scored %.0f or higher against %d term(s)", cfg.Cutoff, len(terms))
	}
	fmt.Fprintf(cmd.OutOrStdout(), "[!] Done. Output file can be found at: %s\n", summary.Path)
	return nil
}

func buildSource(cfg *config.Config, httpClient *http.Client, feedDate time.Time) spotter.Source {
	if cfg.ArchivePath != "" {
		return &spotter.FileSource{Path: cfg.ArchivePath}
	}
	client := feed.NewClient(
		feed.WithHTTPClient(httpClient),
		feed.WithBaseURL(cfg.BaseURL),
		feed.WithTimeout(cfg.Timeout),
		feed.WithUserAgent(cfg.UserAgent),
	)
	return &spotter.FeedSource{Client: client, Date: feedDate, SavePath: cfg.SaveArchive}
}

func startRateLimitMonitor(ctx context.Context, limiter *ratelimit.Limiter, logger *logging.Logger) {
	if limiter == nil || logger == nil {
		return
	}

	status := limiter.Status()
	logger.Debugf("Rate limit configured: %.2f req/s (bucket capacity %.2f token(s))", status.Rate, status.Capacity)

	ticker := time.NewTicker(5 * time.Second)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				snapshot := limiter.Status()
				logger.Debugf("Rate limit status: %.2f token(s) remaining (%.0f%% used, refill in %s)",
					snapshot.Remaining, snapshot.Utilization*100, formatRefillDuration(snapshot.RefillIn))
			}
		}
	}()
}

func formatRefillDuration(d time.Duration) string {
	if d <= 0 {
		return "ready"
	}
	if d < time.Millisecond {
		return "<1ms"
	}
	if d < time.Second {
		return d.Round(time.Millisecond).String()
	}
	return d.Round(100 * time.Millisecond).String()
}

func execute(args []string, stdout, stderr io.Writer) error {
	cmd := newRootCmd(nil)
	cmd.SetArgs(args)
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)
	return cmd.Execute()
}

func main() {
	if err := execute(os.Args[1:], os.Stdout, os.Stderr); err != nil {
		fmt.Fprintln(os.Stderr, "[!]", err)
		os.Exit(1)
	}
}
