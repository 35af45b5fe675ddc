package memory

import (
	"context"
	"log/slog"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/lithammer/shortuuid/v4"

	"github.com/hrygo/focusmind/internal/observability"
	"github.com/hrygo/focusmind/plugin/ai/activity"
	"github.com/hrygo/focusmind/plugin/ai/behavior"
	"github.com/hrygo/focusmind/store"
)

// Store is the single owner of Memory and LearnedPatterns.
//
// Mutations are applied and persisted under the owner lock, so the persisted blob
// always follows the in-memory order of updates.
type Store struct {
	blobs   BlobStore
	metrics *observability.Metrics
	now     func() time.Time

	mu       sync.RWMutex
	memory   Memory
	patterns LearnedPatterns
	started  bool

	changed activity.Notifier
}

// Option configures a Store.
type Option func(*Store)

// WithClock overrides the clock used for timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// WithMetrics sets the metrics sink for persistence failures.
func WithMetrics(m *observability.Metrics) Option {
	return func(s *Store) { s.metrics = m }
}

// NewStore loads both aggregates from blobs.
func NewStore(ctx context.Context, blobs BlobStore, opts ...Option) *Store {
	s := &Store{
		blobs:   blobs,
		metrics: observability.NewMetrics(observability.DefaultMaxDurations),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.memory = loadMemory(ctx, blobs, s.metrics)
	s.patterns = loadPatterns(ctx, blobs, s.metrics)
	return s
}

// Subscribe registers fn to run after every memory or pattern mutation.
func (s *Store) Subscribe(fn func()) func() {
	return s.changed.Subscribe(fn)
}

// Update applies mutate to the memory, persists it and returns the new value.
// A persistence failure is logged and counted but never rolls back the mutation.
func (s *Store) Update(ctx context.Context, mutate func(*Memory)) Memory {
	s.mu.Lock()
	mutate(&s.memory)
	s.memory.normalize()
	s.memory.enforceBounds()
	_ = persist(ctx, s.blobs, s.metrics, store.KeyMemory, s.memory)
	out := s.memory.Clone()
	s.mu.Unlock()

	s.changed.Notify()
	return out
}

// UpdatePatterns applies mutate to the learned patterns and persists them.
// A change to the focus duration history also refreshes Memory.PreferredFocusDuration.
func (s *Store) UpdatePatterns(ctx context.Context, mutate func(*LearnedPatterns)) LearnedPatterns {
	s.mu.Lock()
	before := append([]int(nil), s.patterns.PreferredFocusDurations...)

	mutate(&s.patterns)
	s.patterns.enforceBounds()
	_ = persist(ctx, s.blobs, s.metrics, store.KeyPatterns, s.patterns)

	if !slices.Equal(before, s.patterns.PreferredFocusDurations) {
		s.memory.PreferredFocusDuration = meanDuration(s.patterns.PreferredFocusDurations)
		_ = persist(ctx, s.blobs, s.metrics, store.KeyMemory, s.memory)
	}
	out := s.patterns.Clone()
	s.mu.Unlock()

	s.changed.Notify()
	return out
}

// BeginSession counts one app session. Only the first call per Store has an effect.
func (s *Store) BeginSession(ctx context.Context) Memory {
	s.mu.Lock()
	if s.started {
		out := s.memory.Clone()
		s.mu.Unlock()
		return out
	}
	s.started = true
	s.mu.Unlock()

	now := s.now()
	return s.Update(ctx, func(m *Memory) {
		m.TotalSessions++
		m.LastSessionDate = &now
	})
}

// LearnFromAction updates the action histograms. start_focus with a duration also
// feeds the focus duration history.
func (s *Store) LearnFromAction(ctx context.Context, action string, ac ActionContext) {
	if action == "" {
		return
	}
	s.UpdatePatterns(ctx, func(p *LearnedPatterns) {
		p.ActionFrequency[action]++
		if ac.Hour >= 0 && ac.Hour < 24 {
			hourly, ok := p.HourlyActionPatterns[ac.Hour]
			if !ok {
				hourly = map[string]int{}
				p.HourlyActionPatterns[ac.Hour] = hourly
			}
			hourly[action]++
		}
		if ac.TaskType != "" {
			p.CommonTaskTypes[ac.TaskType]++
		}
		if action == ActionStartFocus && ac.DurationMinutes > 0 {
			p.PreferredFocusDurations = appendBounded(p.PreferredFocusDurations, ac.DurationMinutes, MaxFocusDurations)
		}
	})
}

// RecordFeedback counts a positive or negative interaction and retunes the motivation style.
func (s *Store) RecordFeedback(ctx context.Context, positive bool) Memory {
	return s.Update(ctx, func(m *Memory) {
		applyFeedback(m, positive)
	})
}

func applyFeedback(m *Memory, positive bool) {
	if positive {
		m.PositiveInteractions++
	} else {
		m.NegativeInteractions++
	}
	total := m.PositiveInteractions + m.NegativeInteractions
	ratio := float64(m.PositiveInteractions) / float64(total)
	switch {
	case ratio < 0.5:
		m.MotivationStyle = MotivationDirect
	case ratio > 0.8:
		m.MotivationStyle = MotivationEncouraging
	}
}

// RecordConversation counts a conversation and keeps its summary. A known
// satisfaction also counts as feedback.
func (s *Store) RecordConversation(ctx context.Context, intent string, actions []string, satisfied *bool) Memory {
	summary := ConversationSummary{
		ID:      shortuuid.New(),
		Intent:  intent,
		Actions: append([]string{}, actions...),
		At:      s.now(),
	}
	if satisfied != nil {
		v := *satisfied
		summary.Satisfied = &v
	}
	return s.Update(ctx, func(m *Memory) {
		m.TotalConversations++
		m.ConversationSummaries = appendBounded(m.ConversationSummaries, summary, MaxConversationSummaries)
		if satisfied != nil {
			applyFeedback(m, *satisfied)
		}
	})
}

// AddLearnedFact remembers a fact about the user.
func (s *Store) AddLearnedFact(ctx context.Context, fact string) Memory {
	return s.Update(ctx, func(m *Memory) {
		m.LearnedFacts = appendUnique(m.LearnedFacts, fact, MaxLearnedFacts)
	})
}

// AddGoal remembers a long-term user goal.
func (s *Store) AddGoal(ctx context.Context, goal string) Memory {
	return s.Update(ctx, func(m *Memory) {
		m.UserGoals = appendUnique(m.UserGoals, goal, MaxUserGoals)
	})
}

// AddChallenge remembers something the user struggles with.
func (s *Store) AddChallenge(ctx context.Context, challenge string) Memory {
	return s.Update(ctx, func(m *Memory) {
		m.UserChallenges = appendUnique(m.UserChallenges, challenge, MaxUserChallenges)
	})
}

// AddRecentGoal remembers a goal mentioned in a recent conversation.
func (s *Store) AddRecentGoal(ctx context.Context, goal string) Memory {
	return s.Update(ctx, func(m *Memory) {
		m.RecentGoals = appendUnique(m.RecentGoals, goal, MaxRecentGoals)
	})
}

// RefreshPeakHours recomputes Memory.PeakHours from the session history.
func (s *Store) RefreshPeakHours(ctx context.Context, sessions []activity.SessionRecord) Memory {
	hours := PeakHoursFromSessions(sessions, s.now().Location())
	return s.Update(ctx, func(m *Memory) {
		m.PeakHours = hours
	})
}

// Reset deletes both blobs and restores defaults.
func (s *Store) Reset(ctx context.Context) {
	s.mu.Lock()
	s.memory = DefaultMemory()
	s.patterns = DefaultPatterns()
	for _, key := range []string{store.KeyMemory, store.KeyPatterns} {
		if err := s.blobs.Delete(ctx, key); err != nil {
			s.metrics.RecordPersistFailure()
			slog.Warn("failed to delete blob", "key", key, "error", err)
		}
	}
	s.mu.Unlock()

	s.changed.Notify()
}

// Memory returns a copy of the current memory.
func (s *Store) Memory() Memory {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.memory.Clone()
}

// Patterns returns a copy of the current learned patterns.
func (s *Store) Patterns() LearnedPatterns {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.patterns.Clone()
}

// PeakHoursFromSessions returns the three most frequent session start hours in loc.
func PeakHoursFromSessions(sessions []activity.SessionRecord, loc *time.Location) []int {
	return behavior.PeakHours(sessions, 3, loc)
}

// MostUsedActions returns up to n actions by frequency, ties by name.
func (s *Store) MostUsedActions(n int) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return rankCounts(s.patterns.ActionFrequency, n)
}

// SuggestedAction returns the action most often taken at hour, or "" when none was seen.
func (s *Store) SuggestedAction(hour int) string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	top := rankCounts(s.patterns.HourlyActionPatterns[hour], 1)
	if len(top) == 0 {
		return ""
	}
	return top[0]
}

func rankCounts(counts map[string]int, n int) []string {
	keys := make([]string, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if counts[keys[i]] != counts[keys[j]] {
			return counts[keys[i]] > counts[keys[j]]
		}
		return keys[i] < keys[j]
	})
	if n >= 0 && len(keys) > n {
		keys = keys[:n]
	}
	return keys
}
