package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"

	"github.com/nao1215/sitesnap/internal/config"
	"github.com/nao1215/sitesnap/internal/crawler"
	"github.com/nao1215/sitesnap/internal/database"
	"github.com/nao1215/sitesnap/internal/fingerprint"
	"github.com/nao1215/sitesnap/internal/log"
	"github.com/nao1215/sitesnap/internal/model"
	"github.com/nao1215/sitesnap/internal/pipeline"
	"github.com/nao1215/sitesnap/internal/report"
	"github.com/spf13/cobra"
)

// NewSnapshotCmd creates the snapshot command.
func NewSnapshotCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "snapshot <seed-url>...",
		Short: "Crawl seeds and report which pages changed since the last run",
		Long: `Snapshot crawls every page reachable from each seed URL that stays on the
seed's origin and below the seed's path. Each page body is hashed with
SHA-256 and compared with the hash recorded by the previous run:

  New          the page had no recorded hash
  Changed      the hash differs from the recorded one
  Unchanged    the hash is the same
  FetchFailed  the page could not be fetched (nothing is recorded)

The new hashes replace the old ones, so the next run compares against this
one. Per-page failures never fail the command; use --exit-code to get exit
status 1 when something changed.

Seeds that normalize to the same URL are crawled once. Overlapping seeds
(one below the other) share the fingerprints of their common pages: the
seed that reaches such a page second in the same invocation sees it as
Unchanged, and with -b > 1 which seed that is depends on timing.

Examples:
  # Snapshot a documentation site
  sitesnap snapshot https://example.com/docs

  # Several sites, two at a time, with a page limit
  sitesnap snapshot -b 2 -p 500 https://a.example https://b.example

  # Keep fingerprints as files in a directory instead of SQLite
  sitesnap snapshot --store dir --snapshot-dir ./fingerprints https://example.com

  # Markdown report written to a file, exit status 1 on change
  sitesnap snapshot -m -o report.md --exit-code https://example.com

Configuration file (.sitesnap) example:
  defaults:
    timeout: 15s
  sites:
    https://example.com/docs:
      maxPages: 200
      headers:
        Authorization: "Bearer token"
      ignorePatterns:
        - "/docs/archive/*"`,
		Args: cobra.ArbitraryArgs,
		RunE: runSnapshotCmd,
	}

	// Crawl behavior flags
	cmd.Flags().DurationP("timeout", "t", config.DefaultTimeout,
		"Timeout for each page fetch")
	cmd.Flags().IntP("max-pages", "p", config.DefaultMaxPages,
		"Maximum number of pages to visit per seed (0 = no limit)")
	cmd.Flags().IntP("retries", "r", config.DefaultRetries,
		"Retries for fetches failing with a network error or 5xx status")
	cmd.Flags().StringP("user-agent", "A", config.DefaultUserAgent,
		"User-Agent header sent with every request")
	cmd.Flags().Int64("max-body-size", config.DefaultMaxBodySize,
		"Maximum response body size in bytes; larger pages are FetchFailed (0 = no limit)")

	// Batch flags
	cmd.Flags().IntP("batch", "b", config.DefaultBatchSize,
		"Number of seeds crawled concurrently")

	// Store flags
	cmd.Flags().StringP("store", "s", config.StoreSQLite,
		"Fingerprint store: sqlite, dir or memory")
	cmd.Flags().String("db-dir", "",
		"Directory of the SQLite database (default: XDG data directory)")
	cmd.Flags().String("snapshot-dir", "",
		"Directory of the dir store (default: <db-dir>/snapshots)")

	// Configuration file
	cmd.Flags().StringP("config", "c", "",
		"Configuration file path (default: .sitesnap in current or home directory)")

	// Report flags
	cmd.Flags().BoolP("json", "j", false,
		"Output JSON report (mutually exclusive with --markdown)")
	cmd.Flags().BoolP("markdown", "m", false,
		"Output Markdown report (mutually exclusive with --json)")
	cmd.Flags().StringP("output", "o", "",
		"Write report to specified file path (creates directories if needed)")
	cmd.Flags().Bool("only-changes", false,
		"Do not list unchanged pages in text output")
	cmd.Flags().Bool("exit-code", false,
		"Exit with status 1 when a page is new or changed")
	cmd.Flags().Bool("tee", false,
		"With --output, also print the text report to stdout")

	return cmd
}

// runSnapshotCmd executes the snapshot command.
func runSnapshotCmd(cmd *cobra.Command, args []string) error {
	cfg, err := buildConfig(cmd, args)
	if err != nil {
		return err
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	logger := log.NewSecureLogger(cmd.ErrOrStderr(), cfg.Verbose)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	onlyChanges, err := cmd.Flags().GetBool("only-changes")
	if err != nil {
		return err
	}

	changed, err := runSnapshot(ctx, cfg, cmd.OutOrStdout(), onlyChanges, logger)
	if err != nil {
		return err
	}
	if cfg.ExitCode && changed {
		return errChangesDetected
	}
	return nil
}

// buildConfig creates a Config from cobra command flags.
func buildConfig(cmd *cobra.Command, args []string) (*config.Config, error) {
	cfg := config.NewConfig()
	flags := cmd.Flags()

	var err error
	cfg.Verbose = getVerboseFlag(cmd)

	if cfg.Timeout, err = flags.GetDuration("timeout"); err != nil {
		return nil, err
	}
	if cfg.MaxPages, err = flags.GetInt("max-pages"); err != nil {
		return nil, err
	}
	if cfg.Retries, err = flags.GetInt("retries"); err != nil {
		return nil, err
	}
	if cfg.UserAgent, err = flags.GetString("user-agent"); err != nil {
		return nil, err
	}
	if cfg.MaxBodySize, err = flags.GetInt64("max-body-size"); err != nil {
		return nil, err
	}
	if cfg.BatchSize, err = flags.GetInt("batch"); err != nil {
		return nil, err
	}
	if cfg.Store, err = flags.GetString("store"); err != nil {
		return nil, err
	}
	if cfg.DBDir, err = flags.GetString("db-dir"); err != nil {
		return nil, err
	}
	if cfg.DBDir == "" {
		cfg.DBDir = config.XDGDataDir()
	}
	if cfg.SnapshotDir, err = flags.GetString("snapshot-dir"); err != nil {
		return nil, err
	}
	if cfg.SnapshotDir == "" {
		cfg.SnapshotDir = filepath.Join(cfg.DBDir, config.DefaultSnapshotDir)
	}
	if cfg.JSONReport, err = flags.GetBool("json"); err != nil {
		return nil, err
	}
	if cfg.MarkdownReport, err = flags.GetBool("markdown"); err != nil {
		return nil, err
	}
	if cfg.ReportFile, err = flags.GetString("output"); err != nil {
		return nil, err
	}
	if cfg.ExitCode, err = flags.GetBool("exit-code"); err != nil {
		return nil, err
	}
	if cfg.Tee, err = flags.GetBool("tee"); err != nil {
		return nil, err
	}
	if cfg.ConfigFilePath, err = flags.GetString("config"); err != nil {
		return nil, err
	}

	// An explicitly given config file must exist; the default lookup may
	// find nothing.
	configPath := config.FindConfigFile(cfg.ConfigFilePath)
	switch {
	case configPath != "":
		cfg.SiteConfigs, err = config.LoadConfigFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
	case cfg.ConfigFilePath != "":
		return nil, fmt.Errorf("%w: %s", config.ErrConfigNotFound, cfg.ConfigFilePath)
	default:
		cfg.SiteConfigs = &config.File{Sites: make(map[string]config.SiteConfig)}
	}

	cfg.Seeds = dedupeSeeds(args)

	return cfg, nil
}

// dedupeSeeds drops seeds that normalize to an earlier seed, keeping the
// first spelling so that it still matches its site configuration. Invalid
// seeds are kept and rejected later.
func dedupeSeeds(args []string) []string {
	seen := make(map[crawler.NormalizedURL]struct{}, len(args))
	seeds := make([]string, 0, len(args))
	for _, arg := range args {
		normalized, err := crawler.Normalize(arg, nil)
		if err == nil {
			if _, dup := seen[normalized]; dup {
				continue
			}
			seen[normalized] = struct{}{}
		}
		seeds = append(seeds, arg)
	}
	return seeds
}

// openStore opens the fingerprint backend selected by cfg.Store. The
// returned database is nil unless the sqlite store is used; it also
// receives the run history.
func openStore(cfg *config.Config) (*fingerprint.Store, *database.SnapshotDB, error) {
	switch cfg.Store {
	case config.StoreDir:
		return fingerprint.NewStore(fingerprint.NewDirBackend(cfg.SnapshotDir)), nil, nil
	case config.StoreMemory:
		return fingerprint.NewStore(fingerprint.NewMemoryBackend()), nil, nil
	default:
		db, err := database.Open(cfg.DBDir, database.DefaultOptions())
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open database: %w", err)
		}
		return fingerprint.NewStore(db), db, nil
	}
}

// runSnapshot crawls every seed and writes the reports to out or to the
// report file. It reports whether any run detected a change.
func runSnapshot(ctx context.Context, cfg *config.Config, out io.Writer, onlyChanges bool, logger *slog.Logger) (bool, error) {
	for _, seed := range cfg.Seeds {
		if _, err := crawler.Normalize(seed, nil); err != nil {
			return false, fmt.Errorf("invalid seed %q: %w", seed, err)
		}
	}

	store, db, err := openStore(cfg)
	if err != nil {
		return false, err
	}
	if db != nil {
		defer db.Close()
		logger.Info("database opened", "path", db.Path())
	}

	output, closeOutput, err := openOutput(cfg.ReportFile, out)
	if err != nil {
		return false, err
	}
	defer closeOutput()

	var mu sync.Mutex
	text := report.NewSimpleWriter(output, report.WithOnlyChanges(onlyChanges), report.WithVerbose(cfg.Verbose))
	writer := newReportWriter(cfg, output)
	if cfg.ReportFile != "" && cfg.Tee {
		fileWriter := writer
		if fileWriter == nil {
			fileWriter = text
		}
		writer = report.NewMultiWriter(fileWriter,
			report.NewSimpleWriter(out, report.WithOnlyChanges(onlyChanges), report.WithVerbose(cfg.Verbose)))
	}

	// Text on the terminal streams page lines as they are visited.
	streaming := writer == nil && cfg.ReportFile == ""
	observer := func(model.PageResult) {}
	if streaming {
		observer = func(p model.PageResult) {
			mu.Lock()
			defer mu.Unlock()
			_, _ = text.WritePage(p) //nolint:errcheck // terminal output
		}
	}

	bp := pipeline.NewBatchProcessor(
		func(seed string) *pipeline.Pipeline {
			return newSeedPipeline(cfg, seed, store, db, observer, logger)
		},
		pipeline.WithConcurrency(cfg.BatchSize),
		pipeline.WithBatchLogger(logger),
	)

	var (
		changed  bool
		writeErr error
	)
	err = bp.ProcessBatchWithCallback(ctx, cfg.Seeds, func(r *model.RunReport, _ int) {
		mu.Lock()
		defer mu.Unlock()

		changed = changed || r.Changed
		var werr error
		switch {
		case writer != nil:
			_, werr = writer.Write(r)
		case streaming:
			_, werr = text.WriteSummary(r)
		default:
			_, werr = text.Write(r)
		}
		if werr != nil && writeErr == nil {
			writeErr = fmt.Errorf("failed to write report: %w", werr)
		}
	})
	if db != nil {
		if n, cerr := db.CountFingerprints(context.WithoutCancel(ctx)); cerr == nil {
			logger.Info("fingerprints stored", "count", n, "path", db.Path())
		}
	}
	if err != nil {
		return changed, err
	}
	return changed, writeErr
}

// newReportWriter returns the JSON or Markdown writer selected by cfg, or
// nil for text output.
func newReportWriter(cfg *config.Config, output io.Writer) report.Writer {
	switch {
	case cfg.JSONReport:
		return report.NewJSONWriter(output, report.WithPrettyPrint(), report.WithVersion(getVersion()))
	case cfg.MarkdownReport:
		return report.NewMarkdownWriter(output)
	default:
		return nil
	}
}

// newSeedPipeline builds the crawl pipeline of one seed with its site
// configuration applied over the global flags.
func newSeedPipeline(
	cfg *config.Config,
	seed string,
	store *fingerprint.Store,
	db *database.SnapshotDB,
	observer func(model.PageResult),
	logger *slog.Logger,
) *pipeline.Pipeline {
	site := cfg.SiteConfigs.GetSiteConfig(seed)

	timeout := cfg.Timeout
	if site.Timeout > 0 {
		timeout = site.Timeout
	}
	userAgent := cfg.UserAgent
	if site.UserAgent != "" {
		userAgent = site.UserAgent
	}
	maxPages := cfg.MaxPages
	if site.MaxPages > 0 {
		maxPages = site.MaxPages
	}

	fetcher := crawler.NewHTTPFetcher(
		crawler.WithFetchTimeout(timeout),
		crawler.WithUserAgent(userAgent),
		crawler.WithHeaders(site.Headers),
		crawler.WithMaxBodySize(cfg.MaxBodySize),
		crawler.WithRetries(cfg.Retries),
		crawler.WithFetcherLogger(logger),
	)
	spider := crawler.NewSpider(fetcher, store,
		crawler.WithMaxPages(maxPages),
		crawler.WithOriginScope(site.Scope == config.ScopeOrigin),
		crawler.WithIgnorePatterns(site.IgnorePatterns),
		crawler.WithFollowPatterns(site.FollowPatterns),
		crawler.WithObserver(observer),
		crawler.WithLogger(logger),
	)

	p := pipeline.New([]pipeline.Step{pipeline.NewCrawlStep(spider)}, pipeline.WithLogger(logger))
	if db != nil {
		p.AddStep(pipeline.NewSaveRunStep(db, pipeline.WithSaveLogger(logger)))
	}
	return p
}

// openOutput returns the report destination: the report file when path is
// set, stdout otherwise.
func openOutput(path string, stdout io.Writer) (io.Writer, func(), error) {
	if path == "" {
		return stdout, func() {}, nil
	}

	dir := filepath.Dir(path)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0750); err != nil {
			return nil, nil, fmt.Errorf("failed to create output directory: %w", err)
		}
	}

	// Reports list every crawled URL, so only the owner may read them.
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600) //nolint:gosec // user-provided output path
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create output file: %w", err)
	}
	return f, func() { _ = f.Close() }, nil
}
