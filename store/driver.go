package store

import (
	"context"

	"github.com/pkg/errors"
)

// ErrNotFound is returned by a Driver when no blob is stored under a key.
var ErrNotFound = errors.New("blob not found")

// Driver is an interface for store driver.
// It contains all methods that a blob storage backend should implement.
type Driver interface {
	// GetBlob returns the bytes stored under key, or ErrNotFound.
	GetBlob(ctx context.Context, key string) ([]byte, error)
	// UpsertBlob stores value under key, replacing any previous value.
	UpsertBlob(ctx context.Context, key string, value []byte) error
	// DeleteBlob removes key. Deleting a missing key is not an error.
	DeleteBlob(ctx context.Context, key string) error

	Close() error
}
