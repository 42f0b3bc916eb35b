package config

import (
	"path/filepath"
	"slices"
	"time"

	"github.com/adrg/xdg"
)

// Default configuration values.
const (
	// DefaultTimeout bounds a single page fetch. A fetch that takes longer
	// is recorded as a failure and the crawl moves on.
	DefaultTimeout = 10 * time.Second

	// DefaultMaxPages of 0 means the crawl runs until the frontier is empty.
	DefaultMaxPages = 0

	// DefaultBatchSize is the number of seeds crawled concurrently.
	DefaultBatchSize = 4

	// DefaultRetries is the number of extra attempts for a fetch that failed
	// with a network error or a 5xx response.
	DefaultRetries = 0

	// AppName is the application name used for XDG directory paths.
	AppName = "sitesnap"

	// DefaultUserAgent identifies sitesnap in HTTP requests.
	DefaultUserAgent = "sitesnap/1.0 (+https://github.com/nao1215/sitesnap)"

	// DefaultMaxBodySize limits the response body read per page.
	DefaultMaxBodySize = 10 * 1024 * 1024 // 10MB

	// DefaultSnapshotDir is the directory used by the "dir" store when
	// --snapshot-dir is not given.
	DefaultSnapshotDir = "snapshots"
)

// Store backend names accepted by --store.
const (
	// StoreSQLite keeps fingerprints and run history in an SQLite database.
	StoreSQLite = "sqlite"
	// StoreDir keeps one <key>.hash file per page.
	StoreDir = "dir"
	// StoreMemory keeps fingerprints in memory only. Nothing survives the run.
	StoreMemory = "memory"
)

// Scope modes accepted in the configuration file.
const (
	// ScopePath limits the crawl to the seed's origin under the seed's path.
	ScopePath = "path"
	// ScopeOrigin limits the crawl to the seed's origin only.
	ScopeOrigin = "origin"
)

// Config holds all configuration options for sitesnap.
// It is populated from CLI flags and passed down explicitly.
type Config struct {
	// Timeout is the per-fetch timeout.
	Timeout time.Duration

	// MaxPages stops a crawl after this many pages. 0 means no limit.
	MaxPages int

	// Retries is the number of retries for transient fetch failures.
	Retries int

	// Verbose enables debug logging.
	Verbose bool

	// BatchSize is the number of seeds crawled concurrently.
	BatchSize int

	// ConfigFilePath is the path to the configuration file.
	// If empty, .sitesnap is searched in the current directory
	// and then in the user's home directory.
	ConfigFilePath string

	// SiteConfigs holds per-seed settings loaded from the config file.
	SiteConfigs *File

	// JSONReport selects JSON output. Mutually exclusive with MarkdownReport.
	JSONReport bool

	// MarkdownReport selects Markdown output. Mutually exclusive with JSONReport.
	MarkdownReport bool

	// ReportFile is the output file path for the report.
	// When empty the report goes to stdout.
	ReportFile string

	// Seeds are the start URLs, one crawl per seed.
	Seeds []string

	// Store selects the fingerprint backend: sqlite, dir or memory.
	Store string

	// DBDir is the directory holding the SQLite database.
	// Defaults to the XDG data directory (~/.local/share/sitesnap on Linux).
	DBDir string

	// SnapshotDir is the directory used by the dir store.
	SnapshotDir string

	// UserAgent is the User-Agent header sent with HTTP requests.
	UserAgent string

	// MaxBodySize is the maximum response body size in bytes to read.
	MaxBodySize int64

	// ExitCode makes a run that detected changes exit with status 1.
	ExitCode bool

	// Tee also prints the text report to stdout when ReportFile is set.
	Tee bool
}

// NewConfig creates a new Config with default values.
func NewConfig() *Config {
	return &Config{
		Timeout:     DefaultTimeout,
		MaxPages:    DefaultMaxPages,
		Retries:     DefaultRetries,
		BatchSize:   DefaultBatchSize,
		Store:       StoreSQLite,
		SnapshotDir: DefaultSnapshotDir,
		UserAgent:   DefaultUserAgent,
		MaxBodySize: DefaultMaxBodySize,
	}
}

// XDGDataDir returns the XDG data directory for sitesnap.
// On Linux: ~/.local/share/sitesnap
// On macOS: ~/Library/Application Support/sitesnap
// On Windows: %LOCALAPPDATA%\sitesnap
func XDGDataDir() string {
	return filepath.Join(xdg.DataHome, AppName)
}

// XDGConfigDir returns the XDG config directory for sitesnap.
func XDGConfigDir() string {
	return filepath.Join(xdg.ConfigHome, AppName)
}

// Validate checks if the configuration is valid and returns the first
// problem found.
func (c *Config) Validate() error {
	if len(c.Seeds) == 0 {
		return ErrNoSeed
	}

	if c.Timeout <= 0 {
		return ErrInvalidTimeout
	}

	if c.BatchSize <= 0 {
		return ErrInvalidBatchSize
	}

	if c.MaxPages < 0 {
		return ErrInvalidMaxPages
	}

	if c.Retries < 0 {
		return ErrInvalidRetries
	}

	if c.JSONReport && c.MarkdownReport {
		return ErrConflictingReportFormats
	}

	if c.MaxBodySize < 0 {
		return ErrInvalidMaxBodySize
	}

	if !slices.Contains([]string{StoreSQLite, StoreDir, StoreMemory}, c.Store) {
		return ErrUnknownStore
	}

	if c.SiteConfigs != nil {
		for _, sc := range c.SiteConfigs.Sites {
			if err := sc.Validate(); err != nil {
				return err
			}
		}
		if err := c.SiteConfigs.Defaults.Validate(); err != nil {
			return err
		}
	}

	return nil
}
