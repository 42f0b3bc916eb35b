package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/nao1215/sitesnap/internal/config"
	"github.com/nao1215/sitesnap/internal/crawler"
	"github.com/nao1215/sitesnap/internal/database"
	"github.com/nao1215/sitesnap/internal/report"
	"github.com/spf13/cobra"
)

// NewHistoryCmd creates the history command.
// It reads the runs stored by snapshot --store sqlite.
func NewHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history [seed-url]",
		Short: "Show stored snapshot runs",
		Long: `History lists the runs recorded in the SQLite database by earlier
snapshots, newest first, with the number of pages per status.

Only the sqlite store records history; runs made with --store dir or
--store memory are not listed.

Examples:
  # List the runs of a seed
  sitesnap history https://example.com/docs

  # Show the full report of run 12
  sitesnap history --show 12

  # Show the full report of the latest run of a seed
  sitesnap history --latest https://example.com/docs

  # Show the fingerprint stored for one page
  sitesnap history --page https://example.com/docs/intro

  # List every seed that has been snapshotted
  sitesnap history --list-seeds

  # Run history as JSON
  sitesnap history --json https://example.com/docs`,
		Args: cobra.MaximumNArgs(1),
		RunE: runHistoryCmd,
	}

	cmd.Flags().BoolP("list-seeds", "L", false,
		"List all seeds stored in the database")
	cmd.Flags().Int64P("show", "i", 0,
		"Show the full report of the run with this ID")
	cmd.Flags().BoolP("latest", "l", false,
		"Show the full report of the latest run of the seed")
	cmd.Flags().String("page", "",
		"Show the fingerprint stored for this page URL")
	cmd.Flags().String("db-dir", "",
		"Directory of the SQLite database (default: XDG data directory)")
	cmd.Flags().BoolP("json", "j", false,
		"Output in JSON format")
	cmd.Flags().BoolP("markdown", "m", false,
		"Output in Markdown format")

	return cmd
}

// runHistoryCmd executes the history command.
func runHistoryCmd(cmd *cobra.Command, args []string) error {
	flags := cmd.Flags()

	listSeeds, err := flags.GetBool("list-seeds")
	if err != nil {
		return err
	}
	showID, err := flags.GetInt64("show")
	if err != nil {
		return err
	}
	latest, err := flags.GetBool("latest")
	if err != nil {
		return err
	}
	page, err := flags.GetString("page")
	if err != nil {
		return err
	}
	jsonOutput, err := flags.GetBool("json")
	if err != nil {
		return err
	}
	markdownOutput, err := flags.GetBool("markdown")
	if err != nil {
		return err
	}
	if jsonOutput && markdownOutput {
		return config.ErrConflictingReportFormats
	}
	dbDir, err := flags.GetString("db-dir")
	if err != nil {
		return err
	}
	if dbDir == "" {
		dbDir = config.XDGDataDir()
	}

	// Validate arguments before opening the database.
	var seed string
	if page != "" {
		normalized, err := crawler.Normalize(page, nil)
		if err != nil {
			return fmt.Errorf("invalid page %q: %w", page, err)
		}
		page = normalized.String()
	}
	if !listSeeds && showID == 0 && page == "" {
		if len(args) == 0 {
			return errors.New("seed URL is required (use --list-seeds to see stored seeds)")
		}
		normalized, err := crawler.Normalize(args[0], nil)
		if err != nil {
			return fmt.Errorf("invalid seed %q: %w", args[0], err)
		}
		seed = normalized.String()
	}

	db, err := database.Open(dbDir, database.Options{CreateIfNotExists: false, EnableWAL: true})
	if err != nil {
		return err
	}
	defer db.Close()

	ctx := cmd.Context()
	out := cmd.OutOrStdout()

	if listSeeds {
		seeds, err := db.ListSeeds(ctx)
		if err != nil {
			return err
		}
		return writeSeeds(out, seeds, jsonOutput)
	}

	if page != "" {
		rec, err := db.GetFingerprint(ctx, crawler.StorageKey(crawler.NormalizedURL(page)))
		if err != nil {
			return err
		}
		return writeFingerprint(out, rec, jsonOutput)
	}

	var w report.Writer
	switch {
	case jsonOutput:
		w = report.NewJSONWriter(out, report.WithPrettyPrint(), report.WithVersion(getVersion()))
	case markdownOutput:
		w = report.NewMarkdownWriter(out)
	default:
		w = report.NewSimpleWriter(out, report.WithVerbose(getVerboseFlag(cmd)))
	}

	if showID != 0 {
		run, err := db.GetRunByID(ctx, showID)
		if err != nil {
			return err
		}
		_, err = w.Write(run)
		return err
	}

	if latest {
		run, err := db.GetLatestRun(ctx, seed)
		if err != nil {
			return err
		}
		_, err = w.Write(run)
		return err
	}

	runs, err := db.GetRunHistory(ctx, seed)
	if err != nil {
		return err
	}
	_, err = w.WriteHistory(seed, runs)
	return err
}

// writeSeeds prints one seed per line, or a JSON array.
func writeSeeds(out io.Writer, seeds []string, asJSON bool) error {
	if asJSON {
		if seeds == nil {
			seeds = []string{}
		}
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(seeds)
	}

	if len(seeds) == 0 {
		_, err := fmt.Fprintln(out, "No seeds recorded")
		return err
	}
	for _, s := range seeds {
		if _, err := fmt.Fprintln(out, s); err != nil {
			return err
		}
	}
	return nil
}

// storedFingerprint is the JSON form of a stored page fingerprint.
type storedFingerprint struct {
	URL       string    `json:"url"`
	Hash      string    `json:"hash"`
	UpdatedAt time.Time `json:"updated_at"`
}

// writeFingerprint prints the fingerprint stored for one page.
func writeFingerprint(out io.Writer, rec *database.FingerprintRecord, asJSON bool) error {
	u, err := crawler.URLFromStorageKey(rec.Key)
	if err != nil {
		return err
	}
	fp := storedFingerprint{URL: u.String(), Hash: rec.Value, UpdatedAt: rec.UpdatedAt}

	if asJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(fp)
	}

	_, err = fmt.Fprintf(out, "URL:      %s\nHash:     %s\nRecorded: %s\n",
		fp.URL, fp.Hash, fp.UpdatedAt.Local().Format(time.DateTime))
	return err
}
