package memory

import (
	"context"
	"log/slog"

	coreerrors "github.com/hrygo/focusmind/internal/errors"
	"github.com/hrygo/focusmind/internal/observability"
	"github.com/hrygo/focusmind/store"
)

// loadMemory reads the persisted memory. Absent or unreadable blobs yield defaults.
func loadMemory(ctx context.Context, blobs BlobStore, metrics *observability.Metrics) Memory {
	m := DefaultMemory()
	ok, err := blobs.GetJSON(ctx, store.KeyMemory, &m)
	if err != nil {
		if coreerrors.IsCode(err, coreerrors.ErrCodeCorruptBlob) {
			metrics.RecordCorruptBlob()
		}
		slog.Warn("failed to load memory, using defaults", "key", store.KeyMemory, "error", err)
		return DefaultMemory()
	}
	if !ok {
		return DefaultMemory()
	}
	if m.MotivationStyle == "" {
		m.MotivationStyle = MotivationBalanced
	}
	m.normalize()
	m.enforceBounds()
	return m
}

// loadPatterns reads the persisted patterns. Absent or unreadable blobs yield defaults.
func loadPatterns(ctx context.Context, blobs BlobStore, metrics *observability.Metrics) LearnedPatterns {
	p := DefaultPatterns()
	ok, err := blobs.GetJSON(ctx, store.KeyPatterns, &p)
	if err != nil {
		if coreerrors.IsCode(err, coreerrors.ErrCodeCorruptBlob) {
			metrics.RecordCorruptBlob()
		}
		slog.Warn("failed to load learned patterns, using defaults", "key", store.KeyPatterns, "error", err)
		return DefaultPatterns()
	}
	if !ok {
		return DefaultPatterns()
	}
	p.enforceBounds()
	return p
}

// persist writes v under key. Failures are logged and counted; the in-memory
// aggregate stays authoritative.
func persist(ctx context.Context, blobs BlobStore, metrics *observability.Metrics, key string, v any) error {
	if err := blobs.SetJSON(ctx, key, v); err != nil {
		metrics.RecordPersistFailure()
		slog.Warn("failed to persist blob", "key", key, "error", err)
		return err
	}
	return nil
}

// normalize replaces nil slices so persisted and fresh memories encode identically.
func (m *Memory) normalize() {
	if m.PeakHours == nil {
		m.PeakHours = []int{}
	}
	if m.RecentGoals == nil {
		m.RecentGoals = []string{}
	}
	if m.LearnedFacts == nil {
		m.LearnedFacts = []string{}
	}
	if m.UserGoals == nil {
		m.UserGoals = []string{}
	}
	if m.UserChallenges == nil {
		m.UserChallenges = []string{}
	}
	if m.ConversationSummaries == nil {
		m.ConversationSummaries = []ConversationSummary{}
	}
}
