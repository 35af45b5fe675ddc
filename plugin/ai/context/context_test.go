package context

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hrygo/focusmind/internal/observability"
	"github.com/hrygo/focusmind/plugin/ai/activity"
	"github.com/hrygo/focusmind/plugin/ai/behavior"
	"github.com/hrygo/focusmind/plugin/ai/cache"
	"github.com/hrygo/focusmind/plugin/ai/habit"
	"github.com/hrygo/focusmind/plugin/ai/memory"
	"github.com/hrygo/focusmind/store"
	memdb "github.com/hrygo/focusmind/store/db/memory"
)

var testNow = time.Date(2026, 10, 14, 14, 0, 0, 0, time.Local)

func at(daysAgo, hour int) time.Time {
	d := testNow.AddDate(0, 0, -daysAgo)
	return time.Date(d.Year(), d.Month(), d.Day(), hour, 0, 0, 0, time.Local)
}

func newSnapshot() *activity.Snapshot {
	snap := activity.NewSnapshot()
	snap.ReplaceSessions([]activity.SessionRecord{
		{ID: "s1", Date: at(1, 9), DurationSeconds: 30 * 60},
		{ID: "s2", Date: at(0, 10), DurationSeconds: 60 * 60},
	})
	reminder := at(0, 9)
	snap.ReplaceTasks([]activity.TaskRecord{
		{ID: "t1", Title: "Write report", ReminderDate: &reminder, DurationMinutes: 45},
		{ID: "t2", Title: "Email Alex", DurationMinutes: 10},
		{ID: "t3", Title: "Plan sprint"},
	})
	snap.SetCompletion("t3", testNow, true)
	snap.ReplacePresets([]activity.PresetRecord{
		{ID: "p1", Name: "Pomodoro", FocusMinutes: 25, BreakMinutes: 5},
		{ID: "p2", Name: "Deep work", FocusMinutes: 50, BreakMinutes: 10},
	}, "p1")
	settings := activity.DefaultSettings()
	settings.DisplayName = "Sam"
	snap.SetSettings(settings)
	return snap
}

type fixture struct {
	snap    *activity.Snapshot
	memory  *memory.Store
	learner *habit.Learner
	metrics *observability.Metrics
	svc     *Service
}

func newFixture(t *testing.T, cfg Config, sources *activity.Sources) *fixture {
	t.Helper()
	ctx := context.Background()
	clock := func() time.Time { return testNow }
	metrics := observability.NewMetrics(10)
	blobs := store.New(memdb.NewDB(), nil)

	f := &fixture{
		snap:    newSnapshot(),
		metrics: metrics,
		memory:  memory.NewStore(ctx, blobs, memory.WithClock(clock), memory.WithMetrics(metrics)),
		learner: habit.NewLearner(ctx, blobs, habit.DefaultAnalysisConfig(), habit.WithClock(clock), habit.WithMetrics(metrics)),
	}
	src := f.snap.Sources()
	if sources != nil {
		src = *sources
	}
	f.svc = NewService(cfg, Deps{
		Sources: src,
		Memory:  f.memory,
		Learner: f.learner,
		Clock:   clock,
		Metrics: metrics,
	})
	return f
}

func TestPriorityRanking(t *testing.T) {
	ranker := NewPriorityRanker()

	t.Run("Keeps input order", func(t *testing.T) {
		segments := []*ContextSegment{
			{Content: "low", Priority: PriorityPresets, TokenCost: 100},
			{Content: "high", Priority: PriorityHeader, TokenCost: 100},
			{Content: "mid", Priority: PriorityMemory, TokenCost: 100},
		}

		result := ranker.RankAndTruncate(segments, 300)

		require.Len(t, result, 3)
		assert.Equal(t, "low", result[0].Content)
		assert.Equal(t, "high", result[1].Content)
		assert.Equal(t, "mid", result[2].Content)
	})

	t.Run("Drops lowest priority first", func(t *testing.T) {
		segments := []*ContextSegment{
			{Content: "header", Priority: PriorityHeader, TokenCost: 100},
			{Content: "presets", Priority: PriorityPresets, TokenCost: 100},
			{Content: "progress", Priority: PriorityProgress, TokenCost: 100},
		}

		result := ranker.RankAndTruncate(segments, 210)

		require.Len(t, result, 2)
		assert.Equal(t, "header", result[0].Content)
		assert.Equal(t, "progress", result[1].Content)
	})

	t.Run("Truncates partial segment", func(t *testing.T) {
		long := strings.Repeat("word ", 200)
		segments := []*ContextSegment{
			NewSegment("header", "header", PriorityHeader),
			NewSegment("memory", long, PriorityMemory),
		}

		result := ranker.RankAndTruncate(segments, 50)

		require.Len(t, result, 2)
		assert.True(t, strings.HasSuffix(result[1].Content, "..."))
		assert.Less(t, len(result[1].Content), len(long))
	})

	t.Run("Truncated wide text stays within budget", func(t *testing.T) {
		wide := strings.Repeat("专注", 100)
		result := ranker.RankAndTruncate([]*ContextSegment{NewSegment("memory", wide, PriorityMemory)}, 30)

		require.Len(t, result, 1)
		assert.LessOrEqual(t, EstimateTokens(result[0].Content), 30)
		assert.True(t, strings.HasSuffix(result[0].Content, "..."))
	})

	t.Run("Skips empty segments", func(t *testing.T) {
		result := PrioritizeAndTruncate([]*ContextSegment{NewSegment("task", "", PriorityTasks)}, 100)
		assert.Empty(t, result)
	})
}

func TestEstimateTokens(t *testing.T) {
	assert.Equal(t, 0, EstimateTokens(""))
	assert.Equal(t, 1, EstimateTokens("hi"))
	assert.Equal(t, 25, EstimateTokens(strings.Repeat("a", 100)))
	assert.Equal(t, 4, EstimateTokens("专注"))
}

func TestFormatTasks(t *testing.T) {
	snap := newSnapshot()
	tasks, _ := snap.CurrentTasks(context.Background())

	out := FormatTasks(tasks, snap.TaskSource().IsCompleted, testNow)

	assert.Contains(t, out, "1 of 3 done today, about 55 min of work left.")
	assert.Contains(t, out, "- [ ] Write report (45 min) overdue since 09:00")
	assert.Contains(t, out, "- [x] Plan sprint")
	assert.Less(t, strings.Index(out, "Write report"), strings.Index(out, "Email Alex"), "overdue listed first")

	assert.Contains(t, FormatTasks(nil, nil, testNow), "No tasks scheduled")
}

func TestFormatPresets(t *testing.T) {
	out := FormatPresets([]activity.PresetRecord{
		{ID: "p1", Name: "Pomodoro", FocusMinutes: 25, BreakMinutes: 5},
	}, "p1")
	assert.Equal(t, "### Presets\n- Pomodoro: 25 min focus / 5 min break (active)", out)
}

func TestBuildContextSections(t *testing.T) {
	f := newFixture(t, DefaultConfig(), nil)
	f.memory.AddGoal(context.Background(), "Ship the beta")

	out := f.svc.BuildContext(context.Background())

	assert.True(t, strings.HasPrefix(out, "You are FocusMind"))
	assert.Contains(t, out, "The user's name is Sam.")
	assert.Contains(t, out, "No focus session is running.")
	assert.Contains(t, out, "Today: 60 of 120 min (50%) across 1 sessions.")
	assert.Contains(t, out, "### Tasks")
	assert.Contains(t, out, "### Insights")
	assert.Contains(t, out, "Halfway there")
	assert.Contains(t, out, "Goals: Ship the beta.")
	assert.Contains(t, out, "(active)")

	order := []string{"You are", "### Progress", "### Tasks", "### Insights", "### Memory", "### Presets"}
	last := -1
	for _, marker := range order {
		idx := strings.Index(out, marker)
		require.GreaterOrEqual(t, idx, 0, marker)
		assert.Greater(t, idx, last, marker)
		last = idx
	}
}

func TestBuildContextActiveFocus(t *testing.T) {
	f := newFixture(t, DefaultConfig(), nil)
	settings := activity.DefaultSettings()
	settings.ActiveFocus = &activity.ActiveFocus{StartedAt: testNow.Add(-12 * time.Minute), PresetID: "p2"}
	f.snap.SetSettings(settings)

	out := f.svc.BuildContext(context.Background())
	assert.Contains(t, out, "A focus session is running (12 min in, preset Deep work).")
}

func TestBuildContextIsCachedUntilInvalidated(t *testing.T) {
	f := newFixture(t, DefaultConfig(), nil)
	ctx := context.Background()

	first := f.svc.BuildContext(ctx)
	f.snap.ReplaceTasks([]activity.TaskRecord{{ID: "t9", Title: "Call the bank"}})
	assert.Equal(t, first, f.svc.BuildContext(ctx), "no invalidation wired, full tier still live")

	f.svc.Cache().Invalidate(cache.TierTask)
	second := f.svc.BuildContext(ctx)
	assert.Contains(t, second, "Call the bank")
	assert.NotContains(t, second, "Write report")

	stats := f.svc.GetStats()
	assert.EqualValues(t, 3, stats.TotalBuilds)
	assert.EqualValues(t, 1, stats.CacheHits)
	assert.Greater(t, stats.AverageTokens, 0.0)
}

func TestBuildContextRespectsTokenBudget(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MaxTokens = 50
	f := newFixture(t, cfg, nil)

	res := f.svc.Build(context.Background())
	assert.True(t, strings.HasPrefix(res.Context, "You are FocusMind"))
	assert.NotContains(t, res.Context, "### Presets")
	assert.NotContains(t, res.Context, "### Memory")
	assert.LessOrEqual(t, res.TotalTokens, 50)
}

type failingTasks struct{}

func (failingTasks) CurrentTasks(context.Context) ([]activity.TaskRecord, error) {
	return nil, errors.New("task store offline")
}
func (failingTasks) IsCompleted(string, time.Time) bool { return false }
func (failingTasks) Subscribe(func()) func()            { return func() {} }

func TestBuildContextDegradesOnSourceFailure(t *testing.T) {
	snap := newSnapshot()
	src := snap.Sources()
	src.Tasks = failingTasks{}
	f := newFixture(t, DefaultConfig(), &src)

	out := f.svc.BuildContext(context.Background())
	assert.Contains(t, out, "No tasks scheduled for today.")
	assert.Contains(t, out, "### Progress")
	assert.GreaterOrEqual(t, f.metrics.Snapshot().SourceFailures, int64(1))
}

func TestLearnFromActionInvalidatesFull(t *testing.T) {
	f := newFixture(t, DefaultConfig(), nil)
	ctx := context.Background()

	f.svc.BuildContext(ctx)
	f.svc.LearnFromAction(ctx, "open_stats", memory.ActionContext{Hour: 14})
	_, ok := f.svc.Cache().Entry(cache.TierFull)
	assert.True(t, ok)

	f.svc.LearnFromAction(ctx, memory.ActionStartFocus, memory.ActionContext{Hour: 14, DurationMinutes: 25})
	_, ok = f.svc.Cache().Entry(cache.TierFull)
	assert.False(t, ok)

	patterns := f.memory.Patterns()
	assert.Equal(t, 1, patterns.ActionFrequency[memory.ActionStartFocus])
	require.NotNil(t, f.memory.Memory().PreferredFocusDuration)
	assert.Equal(t, 25, *f.memory.Memory().PreferredFocusDuration)
}

func TestRecordConversationOutcome(t *testing.T) {
	f := newFixture(t, DefaultConfig(), nil)
	ctx := context.Background()
	yes, no := true, false

	f.svc.RecordConversationOutcome(ctx, "start a session", []string{"start_focus"}, &yes)
	profile := f.learner.Profile()
	require.Len(t, profile.SuccessPatterns, 1)
	assert.Equal(t, 14, profile.SuccessPatterns[0].Hour)
	assert.Equal(t, time.Wednesday, profile.SuccessPatterns[0].Weekday)
	assert.Equal(t, "start_focus", profile.SuccessPatterns[0].Action)
	assert.Equal(t, 1, profile.FeatureUsage["start_focus"])
	require.Len(t, profile.EffectiveMotivations, 1)

	f.svc.RecordConversationOutcome(ctx, "plan my week", nil, &no)
	assert.Contains(t, f.learner.Profile().IneffectiveApproaches, "plan my week")

	f.svc.RecordConversationOutcome(ctx, "chat", nil, nil)
	m := f.memory.Memory()
	assert.Equal(t, 3, m.TotalConversations)
	assert.Equal(t, 1, m.PositiveInteractions)
	assert.Equal(t, 1, m.NegativeInteractions)
}

func TestRecordFeedbackMirrorsStyle(t *testing.T) {
	f := newFixture(t, DefaultConfig(), nil)

	f.svc.RecordFeedback(context.Background(), false)

	assert.Equal(t, memory.MotivationDirect, f.memory.Memory().MotivationStyle)
	assert.Equal(t, memory.MotivationDirect, f.learner.Profile().MotivationStyle)
}

func TestGenerateIntelligenceReport(t *testing.T) {
	f := newFixture(t, DefaultConfig(), nil)

	report := f.svc.GenerateIntelligenceReport(context.Background())

	assert.Equal(t, 60, report.Performance.TodayMinutes)
	assert.Equal(t, 50, report.Performance.TodayPercent)
	assert.Equal(t, 2, report.Performance.Streak)
	assert.Equal(t, testNow, report.GeneratedAt)

	var kinds []behavior.SignalKind
	for _, s := range report.Opportunities {
		kinds = append(kinds, s.Kind)
	}
	assert.Contains(t, kinds, behavior.SignalHalfwayToGoal)
	assert.Contains(t, kinds, behavior.SignalQuickWin)

	kinds = nil
	for _, s := range report.Risks {
		kinds = append(kinds, s.Kind)
	}
	assert.Contains(t, kinds, behavior.SignalOverdueTask)
}

func TestNewServiceWithoutMemory(t *testing.T) {
	snap := newSnapshot()
	svc := NewService(Config{}, Deps{Sources: snap.Sources(), Clock: func() time.Time { return testNow }, Metrics: observability.NewMetrics(10)})

	out := svc.BuildContext(context.Background())
	assert.Contains(t, out, "Motivation style: balanced.")
	svc.RecordFeedback(context.Background(), true)
	svc.RecordConversationOutcome(context.Background(), "x", nil, nil)
}
