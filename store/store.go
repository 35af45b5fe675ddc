package store

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/pkg/errors"

	coreerrors "github.com/hrygo/focusmind/internal/errors"
	"github.com/hrygo/focusmind/internal/profile"
)

// Blob keys owned by the engine's aggregates.
const (
	KeyMemory   = "memory.v1"
	KeyPatterns = "patterns.v1"
	KeyProfile  = "profile.v1"
)

// Store provides blob access on top of a Driver.
//
// Writes to the same key are serialized and applied in submission order: a write
// that reaches the driver after a newer write to the same key was persisted is dropped.
// Writes to distinct keys proceed concurrently.
type Store struct {
	profile *profile.Profile
	driver  Driver

	mu    sync.Mutex
	locks map[string]*keyLock
}

type keyLock struct {
	mu        sync.Mutex
	submitted uint64
	written   uint64
}

// New creates a new instance of Store.
func New(driver Driver, profile *profile.Profile) *Store {
	return &Store{
		driver:  driver,
		profile: profile,
		locks:   make(map[string]*keyLock),
	}
}

func (s *Store) GetDriver() Driver {
	return s.driver
}

func (s *Store) Close() error {
	return s.driver.Close()
}

// Get returns the blob stored under key. The boolean is false when no blob exists.
func (s *Store) Get(ctx context.Context, key string) ([]byte, bool, error) {
	data, err := s.driver.GetBlob(ctx, key)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, false, nil
		}
		return nil, false, errors.Wrapf(err, "failed to get blob %s", key)
	}
	return data, true, nil
}

// Set stores value under key.
func (s *Store) Set(ctx context.Context, key string, value []byte) error {
	return s.write(key, func() error {
		return s.driver.UpsertBlob(ctx, key, value)
	})
}

// Delete removes key.
func (s *Store) Delete(ctx context.Context, key string) error {
	return s.write(key, func() error {
		return s.driver.DeleteBlob(ctx, key)
	})
}

// GetJSON decodes the blob under key into v. It reports false when the blob is absent.
// A blob that cannot be decoded yields a CORRUPT_BLOB error.
func (s *Store) GetJSON(ctx context.Context, key string, v any) (bool, error) {
	data, ok, err := s.Get(ctx, key)
	if err != nil || !ok {
		return false, err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return false, coreerrors.CorruptBlob(key, err)
	}
	return true, nil
}

// SetJSON encodes v and stores it under key.
func (s *Store) SetJSON(ctx context.Context, key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return errors.Wrapf(err, "failed to encode blob %s", key)
	}
	return s.Set(ctx, key, data)
}

func (s *Store) write(key string, apply func() error) error {
	kl := s.lockFor(key)

	kl.mu.Lock()
	kl.submitted++
	seq := kl.submitted
	kl.mu.Unlock()

	kl.mu.Lock()
	defer kl.mu.Unlock()
	if seq < kl.written {
		// A newer write to this key already reached the driver.
		return nil
	}
	if err := apply(); err != nil {
		return coreerrors.PersistenceFailed(key, err)
	}
	kl.written = seq
	return nil
}

func (s *Store) lockFor(key string) *keyLock {
	s.mu.Lock()
	defer s.mu.Unlock()

	kl, ok := s.locks[key]
	if !ok {
		kl = &keyLock{}
		s.locks[key] = kl
	}
	return kl
}
