package postgres

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hrygo/focusmind/internal/profile"
	"github.com/hrygo/focusmind/store"
)

func TestBlobRoundTrip(t *testing.T) {
	dsn := os.Getenv("POSTGRES_TEST_DSN")
	if dsn == "" {
		t.Skip("POSTGRES_TEST_DSN not set")
	}
	ctx := context.Background()
	p := profile.Default()
	p.Driver = "postgres"
	p.DSN = dsn

	d, err := NewDB(p)
	require.NoError(t, err)
	defer d.Close()

	key := "test.roundtrip"
	defer d.DeleteBlob(ctx, key)

	require.NoError(t, d.UpsertBlob(ctx, key, []byte("v1")))
	require.NoError(t, d.UpsertBlob(ctx, key, []byte("v2")))
	got, err := d.GetBlob(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, "v2", string(got))

	require.NoError(t, d.DeleteBlob(ctx, key))
	_, err = d.GetBlob(ctx, key)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestPlaceholder(t *testing.T) {
	assert.Equal(t, "$1", placeholder(1))
	assert.Equal(t, "$12", placeholder(12))
}
