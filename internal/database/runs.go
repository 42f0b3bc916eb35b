package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/nao1215/sitesnap/internal/model"
)

// SaveRun stores a finished run and sets report.ID.
func (sdb *SnapshotDB) SaveRun(ctx context.Context, report *model.RunReport) error {
	reportJSON, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("failed to serialize report: %w", err)
	}
	countsJSON, _ := json.Marshal(report.Counts) //nolint:errcheck,errchkjson // map[string]int always marshals

	query := `
	INSERT INTO runs (seed, started_at, finished_at, changed, pages, counts, report_json)
	VALUES (?, ?, ?, ?, ?, ?, ?)
	`

	res, err := sdb.db.ExecContext(ctx, query,
		report.Seed,
		formatTimestamp(report.StartedAt),
		formatTimestamp(report.FinishedAt),
		report.Changed,
		len(report.Pages),
		string(countsJSON),
		string(reportJSON),
	)
	if err != nil {
		return fmt.Errorf("failed to save run: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to read run id: %w", err)
	}
	report.ID = id
	return nil
}

// RunMetadata summarizes a stored run without loading its pages.
type RunMetadata struct {
	// ID is the unique identifier of the run in the database.
	ID int64 `json:"id"`

	// Seed is the normalized seed URL.
	Seed string `json:"seed"`

	// StartedAt and FinishedAt bound the run.
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`

	// Changed is true when the run detected a New or Changed page.
	Changed bool `json:"changed"`

	// Pages is the number of visited pages.
	Pages int `json:"pages"`

	// Counts holds the number of pages per status label.
	Counts map[string]int `json:"counts"`
}

// GetRunHistory returns the metadata of every run of seed, newest first.
func (sdb *SnapshotDB) GetRunHistory(ctx context.Context, seed string) ([]RunMetadata, error) {
	query := `
	SELECT id, seed, started_at, finished_at, changed, pages, counts
	FROM runs
	WHERE seed = ?
	ORDER BY id DESC
	`

	rows, err := sdb.db.QueryContext(ctx, query, seed)
	if err != nil {
		return nil, fmt.Errorf("failed to get run history: %w", err)
	}
	defer rows.Close()

	var results []RunMetadata
	for rows.Next() {
		var (
			meta              RunMetadata
			started, finished string
			countsJSON        sql.NullString
		)
		if err := rows.Scan(&meta.ID, &meta.Seed, &started, &finished, &meta.Changed, &meta.Pages, &countsJSON); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		meta.StartedAt = parseTimestamp(started)
		meta.FinishedAt = parseTimestamp(finished)
		meta.Counts = make(map[string]int)
		if countsJSON.Valid && countsJSON.String != "" {
			if err := json.Unmarshal([]byte(countsJSON.String), &meta.Counts); err != nil {
				meta.Counts = make(map[string]int)
			}
		}
		results = append(results, meta)
	}

	return results, rows.Err()
}

// GetRunByID returns the full report of a run, or ErrNotFound.
func (sdb *SnapshotDB) GetRunByID(ctx context.Context, id int64) (*model.RunReport, error) {
	var reportJSON string
	err := sdb.db.QueryRowContext(ctx, `SELECT report_json FROM runs WHERE id = ?`, id).Scan(&reportJSON)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("run %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get run: %w", err)
	}
	return decodeRun(id, reportJSON)
}

// GetLatestRun returns the most recent run of seed, or ErrNotFound.
func (sdb *SnapshotDB) GetLatestRun(ctx context.Context, seed string) (*model.RunReport, error) {
	var (
		id         int64
		reportJSON string
	)
	err := sdb.db.QueryRowContext(ctx,
		`SELECT id, report_json FROM runs WHERE seed = ? ORDER BY id DESC LIMIT 1`, seed,
	).Scan(&id, &reportJSON)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("no run for %s: %w", seed, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get run: %w", err)
	}
	return decodeRun(id, reportJSON)
}

// ListSeeds returns every seed that has at least one stored run.
func (sdb *SnapshotDB) ListSeeds(ctx context.Context) ([]string, error) {
	rows, err := sdb.db.QueryContext(ctx, `SELECT DISTINCT seed FROM runs ORDER BY seed`)
	if err != nil {
		return nil, fmt.Errorf("failed to list seeds: %w", err)
	}
	defer rows.Close()

	var seeds []string
	for rows.Next() {
		var seed string
		if err := rows.Scan(&seed); err != nil {
			return nil, fmt.Errorf("failed to scan seed: %w", err)
		}
		seeds = append(seeds, seed)
	}

	return seeds, rows.Err()
}

func decodeRun(id int64, reportJSON string) (*model.RunReport, error) {
	var report model.RunReport
	if err := json.Unmarshal([]byte(reportJSON), &report); err != nil {
		return nil, fmt.Errorf("failed to parse run %d: %w", id, err)
	}
	report.ID = id
	return &report, nil
}
