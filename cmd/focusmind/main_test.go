package main

import (
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLogger(t *testing.T) {
	ctx := context.Background()
	assert.True(t, newLogger("debug", "json").Enabled(ctx, slog.LevelDebug))
	assert.False(t, newLogger("info", "text").Enabled(ctx, slog.LevelDebug))
	assert.False(t, newLogger("warn", "text").Enabled(ctx, slog.LevelInfo))
}

func TestLoadSnapshotEmptyPath(t *testing.T) {
	snap, err := loadSnapshot("")
	require.NoError(t, err)
	sessions, err := snap.CurrentSessions(context.Background())
	require.NoError(t, err)
	assert.Empty(t, sessions)
}

func TestLoadSnapshotMissingFile(t *testing.T) {
	_, err := loadSnapshot("/nonexistent/snapshot.yaml")
	assert.Error(t, err)
}
