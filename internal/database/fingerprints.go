package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// Exists reports whether a fingerprint is stored under key.
func (sdb *SnapshotDB) Exists(ctx context.Context, key string) (bool, error) {
	var one int
	err := sdb.db.QueryRowContext(ctx, `SELECT 1 FROM fingerprints WHERE key = ?`, key).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to look up fingerprint: %w", err)
	}
	return true, nil
}

// Read returns the fingerprint stored under key, or ErrNotFound.
func (sdb *SnapshotDB) Read(ctx context.Context, key string) ([]byte, error) {
	var value []byte
	err := sdb.db.QueryRowContext(ctx, `SELECT value FROM fingerprints WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("fingerprint %q: %w", key, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read fingerprint: %w", err)
	}
	return value, nil
}

// Write stores value under key, replacing any previous value.
func (sdb *SnapshotDB) Write(ctx context.Context, key string, value []byte) error {
	query := `
	INSERT INTO fingerprints (key, value, updated_at)
	VALUES (?, ?, ?)
	ON CONFLICT(key) DO UPDATE SET
		value = excluded.value,
		updated_at = excluded.updated_at
	`
	if _, err := sdb.db.ExecContext(ctx, query, key, value, formatTimestamp(time.Now())); err != nil {
		return fmt.Errorf("failed to write fingerprint: %w", err)
	}
	return nil
}

// FingerprintRecord is a stored fingerprint with its last update time.
type FingerprintRecord struct {
	Key       string
	Value     string
	UpdatedAt time.Time
}

// GetFingerprint returns the record stored under key, or ErrNotFound.
func (sdb *SnapshotDB) GetFingerprint(ctx context.Context, key string) (*FingerprintRecord, error) {
	var (
		rec       FingerprintRecord
		value     []byte
		updatedAt string
	)
	err := sdb.db.QueryRowContext(ctx,
		`SELECT key, value, updated_at FROM fingerprints WHERE key = ?`, key,
	).Scan(&rec.Key, &value, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("fingerprint %q: %w", key, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get fingerprint: %w", err)
	}
	rec.Value = string(value)
	rec.UpdatedAt = parseTimestamp(updatedAt)
	return &rec, nil
}

// CountFingerprints returns the number of stored fingerprints.
func (sdb *SnapshotDB) CountFingerprints(ctx context.Context) (int, error) {
	var n int
	if err := sdb.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM fingerprints`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count fingerprints: %w", err)
	}
	return n, nil
}
