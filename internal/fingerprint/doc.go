// Package fingerprint records one content hash per page between runs and
// classifies each visit as New, Changed or Unchanged.
//
// The Store sits on a Backend, a small key/value byte store. Three backends
// exist: MemoryBackend, DirBackend (one <key>.hash file per page) and the
// SQLite backend in package database.
//
// Usage:
//
//	store := fingerprint.NewStore(fingerprint.NewDirBackend("snapshots"))
//	obs, err := store.Observe(ctx, key, body)
//	if errors.Is(err, fingerprint.ErrStoreIO) {
//		// abort the run
//	}
package fingerprint
