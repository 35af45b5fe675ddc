package store_test

import (
	"context"
	"sync"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	coreerrors "github.com/hrygo/focusmind/internal/errors"
	"github.com/hrygo/focusmind/store"
	"github.com/hrygo/focusmind/store/db/memory"
)

// recordingDriver records the order values reach the driver and can fail on demand.
type recordingDriver struct {
	store.Driver
	mu      sync.Mutex
	applied []string
	fail    bool
}

func (d *recordingDriver) UpsertBlob(ctx context.Context, key string, value []byte) error {
	d.mu.Lock()
	fail := d.fail
	if !fail {
		d.applied = append(d.applied, string(value))
	}
	d.mu.Unlock()
	if fail {
		return errors.New("disk full")
	}
	return d.Driver.UpsertBlob(ctx, key, value)
}

func newStore(t *testing.T) (*store.Store, *recordingDriver) {
	t.Helper()
	d := &recordingDriver{Driver: memory.NewDB()}
	s := store.New(d, nil)
	t.Cleanup(func() { _ = s.Close() })
	return s, d
}

func TestStoreGetMissing(t *testing.T) {
	s, _ := newStore(t)

	data, ok, err := s.Get(context.Background(), store.KeyMemory)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Nil(t, data)
}

func TestStoreSetGetDelete(t *testing.T) {
	ctx := context.Background()
	s, _ := newStore(t)

	require.NoError(t, s.Set(ctx, store.KeyProfile, []byte(`{"persona":"nightOwl"}`)))
	data, ok, err := s.Get(ctx, store.KeyProfile)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.JSONEq(t, `{"persona":"nightOwl"}`, string(data))

	require.NoError(t, s.Delete(ctx, store.KeyProfile))
	_, ok, err = s.Get(ctx, store.KeyProfile)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestStoreJSON(t *testing.T) {
	ctx := context.Background()
	s, _ := newStore(t)

	type payload struct {
		Goals []string `json:"goals"`
	}
	require.NoError(t, s.SetJSON(ctx, store.KeyMemory, payload{Goals: []string{"ship", "rest"}}))

	var got payload
	ok, err := s.GetJSON(ctx, store.KeyMemory, &got)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, []string{"ship", "rest"}, got.Goals)

	var missing payload
	ok, err = s.GetJSON(ctx, store.KeyPatterns, &missing)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestStoreCorruptBlob(t *testing.T) {
	ctx := context.Background()
	s, _ := newStore(t)

	require.NoError(t, s.Set(ctx, store.KeyPatterns, []byte("{not json")))
	var v map[string]any
	ok, err := s.GetJSON(ctx, store.KeyPatterns, &v)
	assert.False(t, ok)
	require.Error(t, err)
	assert.True(t, coreerrors.IsCode(err, coreerrors.ErrCodeCorruptBlob))
}

func TestStorePersistenceFailure(t *testing.T) {
	s, d := newStore(t)
	d.fail = true

	err := s.Set(context.Background(), store.KeyMemory, []byte("x"))
	require.Error(t, err)
	assert.True(t, coreerrors.IsCode(err, coreerrors.ErrCodePersistenceFailed))
}

func TestStoreSameKeyLastWriteWins(t *testing.T) {
	ctx := context.Background()
	s, _ := newStore(t)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_ = s.Set(ctx, store.KeyMemory, []byte{byte('a' + i%26)})
		}(i)
	}
	wg.Wait()

	// Whatever order goroutines were scheduled in, the persisted value is the
	// last one that reached the driver, never an older one written afterwards.
	require.NoError(t, s.Set(ctx, store.KeyMemory, []byte("final")))
	data, ok, err := s.Get(ctx, store.KeyMemory)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "final", string(data))
}

func TestStoreSequentialWritesApplyInOrder(t *testing.T) {
	ctx := context.Background()
	s, d := newStore(t)

	for _, v := range []string{"one", "two", "three"} {
		require.NoError(t, s.Set(ctx, store.KeyMemory, []byte(v)))
	}
	assert.Equal(t, []string{"one", "two", "three"}, d.applied)
}

func TestStoreDistinctKeysIndependent(t *testing.T) {
	ctx := context.Background()
	s, _ := newStore(t)

	var wg sync.WaitGroup
	for _, key := range []string{store.KeyMemory, store.KeyPatterns, store.KeyProfile} {
		wg.Add(1)
		go func(key string) {
			defer wg.Done()
			assert.NoError(t, s.Set(ctx, key, []byte(key)))
		}(key)
	}
	wg.Wait()

	for _, key := range []string{store.KeyMemory, store.KeyPatterns, store.KeyProfile} {
		data, ok, err := s.Get(ctx, key)
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, key, string(data))
	}
}
