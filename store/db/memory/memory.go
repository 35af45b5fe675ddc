// Package memory provides an in-process blob driver for tests and the "memory" mode.
package memory

import (
	"context"
	"sync"

	"github.com/hrygo/focusmind/store"
)

type DB struct {
	mu    sync.RWMutex
	blobs map[string][]byte
}

func NewDB() store.Driver {
	return &DB{blobs: make(map[string][]byte)}
}

func (d *DB) GetBlob(_ context.Context, key string) ([]byte, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	value, ok := d.blobs[key]
	if !ok {
		return nil, store.ErrNotFound
	}
	out := make([]byte, len(value))
	copy(out, value)
	return out, nil
}

func (d *DB) UpsertBlob(_ context.Context, key string, value []byte) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	stored := make([]byte, len(value))
	copy(stored, value)
	d.blobs[key] = stored
	return nil
}

func (d *DB) DeleteBlob(_ context.Context, key string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.blobs, key)
	return nil
}

func (d *DB) Close() error {
	return nil
}
