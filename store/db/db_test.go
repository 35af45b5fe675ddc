package db

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hrygo/focusmind/internal/profile"
)

func TestNewDBDriver(t *testing.T) {
	p := profile.Default()
	p.Driver = "memory"
	d, err := NewDBDriver(p)
	require.NoError(t, err)
	require.NoError(t, d.Close())

	p = profile.Default()
	p.DSN = filepath.Join(t.TempDir(), "x.db")
	d, err = NewDBDriver(p)
	require.NoError(t, err)
	require.NoError(t, d.Close())

	p = profile.Default()
	p.Driver = "mysql"
	_, err = NewDBDriver(p)
	assert.Error(t, err)
}
