package fingerprint

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"hash/fnv"
	"sync"

	"github.com/nao1215/sitesnap/internal/model"
)

// ErrStoreIO wraps every backend failure. A run that hits it must stop:
// continuing would leave fingerprints in an unknown state.
var ErrStoreIO = errors.New("fingerprint store i/o error")

// Hash is a lowercase hex SHA-256 digest.
type Hash string

// ComputeHash returns the SHA-256 digest of content in lowercase hex.
// Identical bytes always give the identical hash; the empty body has a hash
// too.
func ComputeHash(content []byte) Hash {
	sum := sha256.Sum256(content)
	return Hash(hex.EncodeToString(sum[:]))
}

// Classify compares the stored fingerprint with the new one.
// found is false when nothing was stored for the page.
func Classify(old Hash, found bool, current Hash) model.Status {
	switch {
	case !found:
		return model.StatusNew
	case old == current:
		return model.StatusUnchanged
	default:
		return model.StatusChanged
	}
}

// Backend is a persistent key/value byte store keyed by storage key.
type Backend interface {
	Exists(ctx context.Context, key string) (bool, error)
	Read(ctx context.Context, key string) ([]byte, error)
	Write(ctx context.Context, key string, value []byte) error
}

// Observation is the result of recording one page visit.
type Observation struct {
	Status   model.Status
	Hash     Hash
	Previous Hash
}

// lockStripes is the number of mutexes guarding keys in Observe.
const lockStripes = 64

// Store persists one fingerprint per page on top of a Backend.
// It is safe for concurrent use; Observe calls on the same key run one at
// a time.
type Store struct {
	backend Backend
	locks   [lockStripes]sync.Mutex
}

// NewStore creates a Store on top of b.
func NewStore(b Backend) *Store {
	return &Store{backend: b}
}

// Load returns the stored fingerprint for key. found is false for a page
// never seen before, which is not an error.
func (s *Store) Load(ctx context.Context, key string) (h Hash, found bool, err error) {
	ok, err := s.backend.Exists(ctx, key)
	if err != nil {
		return "", false, fmt.Errorf("%w: check %s: %w", ErrStoreIO, key, err)
	}
	if !ok {
		return "", false, nil
	}
	data, err := s.backend.Read(ctx, key)
	if err != nil {
		return "", false, fmt.Errorf("%w: read %s: %w", ErrStoreIO, key, err)
	}
	return Hash(data), true, nil
}

// Save records h for key, replacing any previous value.
func (s *Store) Save(ctx context.Context, key string, h Hash) error {
	if err := s.backend.Write(ctx, key, []byte(h)); err != nil {
		return fmt.Errorf("%w: write %s: %w", ErrStoreIO, key, err)
	}
	return nil
}

// Observe hashes content, classifies it against the stored fingerprint and
// stores the new fingerprint. The store is written on every call, whatever
// the classification.
func (s *Store) Observe(ctx context.Context, key string, content []byte) (Observation, error) {
	mu := s.lockFor(key)
	mu.Lock()
	defer mu.Unlock()

	current := ComputeHash(content)
	old, found, err := s.Load(ctx, key)
	if err != nil {
		return Observation{}, err
	}
	status := Classify(old, found, current)
	if err := s.Save(ctx, key, current); err != nil {
		return Observation{}, err
	}
	return Observation{Status: status, Hash: current, Previous: old}, nil
}

func (s *Store) lockFor(key string) *sync.Mutex {
	h := fnv.New32a()
	_, _ = h.Write([]byte(key)) //nolint:errcheck // hash.Hash never fails
	return &s.locks[h.Sum32()%lockStripes]
}
