package fingerprint

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
)

// MemoryBackend keeps values in a map. Nothing survives the process.
type MemoryBackend struct {
	mu     sync.RWMutex
	values map[string][]byte
}

// NewMemoryBackend creates an empty in-memory backend.
func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{values: make(map[string][]byte)}
}

// Exists implements Backend.
func (m *MemoryBackend) Exists(_ context.Context, key string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.values[key]
	return ok, nil
}

// Read implements Backend.
func (m *MemoryBackend) Read(_ context.Context, key string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.values[key]
	if !ok {
		return nil, fmt.Errorf("key %q: %w", key, fs.ErrNotExist)
	}
	return append([]byte(nil), v...), nil
}

// Write implements Backend.
func (m *MemoryBackend) Write(_ context.Context, key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[key] = append([]byte(nil), value...)
	return nil
}

// Len returns the number of stored keys.
func (m *MemoryBackend) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.values)
}

// HashFileSuffix is appended to every key to form a file name in DirBackend.
const HashFileSuffix = ".hash"

// maxFileNameLen keeps names under the 255 byte limit of common filesystems.
const maxFileNameLen = 240

// DirBackend stores each value in its own file, <dir>/<key>.hash.
// The directory is created on first write.
type DirBackend struct {
	dir string
}

// NewDirBackend creates a backend rooted at dir.
func NewDirBackend(dir string) *DirBackend {
	return &DirBackend{dir: dir}
}

// Dir returns the root directory.
func (d *DirBackend) Dir() string {
	return d.dir
}

// Exists implements Backend.
func (d *DirBackend) Exists(_ context.Context, key string) (bool, error) {
	_, err := os.Stat(d.path(key))
	if err == nil {
		return true, nil
	}
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	return false, err
}

// Read implements Backend.
func (d *DirBackend) Read(_ context.Context, key string) ([]byte, error) {
	return os.ReadFile(d.path(key))
}

// Write implements Backend. The value is written to a temporary file and
// renamed into place so readers never see a partial fingerprint.
func (d *DirBackend) Write(_ context.Context, key string, value []byte) error {
	if err := os.MkdirAll(d.dir, 0o750); err != nil {
		return fmt.Errorf("failed to create snapshot directory: %w", err)
	}

	tmp, err := os.CreateTemp(d.dir, ".tmp-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(value); err != nil {
		_ = tmp.Close()        //nolint:errcheck // already failing
		_ = os.Remove(tmpName) //nolint:errcheck // best effort
		return err
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName) //nolint:errcheck // best effort
		return err
	}
	if err := os.Rename(tmpName, d.path(key)); err != nil {
		_ = os.Remove(tmpName) //nolint:errcheck // best effort
		return err
	}
	return nil
}

// path maps a key to its file. Keys too long for a file name keep a
// readable prefix and end with the SHA-256 of the full key.
func (d *DirBackend) path(key string) string {
	name := key
	if len(name)+len(HashFileSuffix) > maxFileNameLen {
		sum := sha256.Sum256([]byte(key))
		digest := hex.EncodeToString(sum[:])
		keep := maxFileNameLen - len(HashFileSuffix) - len(digest) - 1
		name = key[:keep] + "-" + digest
	}
	return filepath.Join(d.dir, name+HashFileSuffix)
}
