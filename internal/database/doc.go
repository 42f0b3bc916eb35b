// Package database provides SQLite-based storage for sitesnap.
//
// The SnapshotDB stores:
//   - one fingerprint per page, keyed by storage key and overwritten on
//     every visit (it implements fingerprint.Backend)
//   - one row per crawl run with the full run report as JSON, so past runs
//     can be listed and inspected
//
// SQLite is provided by modernc.org/sqlite, a CGO-free driver. The database
// lives in a single file, sitesnap.db, inside the XDG data directory unless
// another directory is given.
package database
