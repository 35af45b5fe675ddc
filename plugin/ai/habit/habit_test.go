package habit

import (
	"context"
	"fmt"
	"reflect"
	"sync/atomic"
	"testing"
	"time"

	"github.com/pkg/errors"

	"github.com/hrygo/focusmind/internal/observability"
	"github.com/hrygo/focusmind/plugin/ai/activity"
	"github.com/hrygo/focusmind/store"
	memdb "github.com/hrygo/focusmind/store/db/memory"
)

var testNow = time.Date(2026, 10, 14, 9, 0, 0, 0, time.UTC)

// mockSessionSource implements activity.SessionSource for testing.
type mockSessionSource struct {
	sessions []activity.SessionRecord
	err      error
	calls    atomic.Int32
}

func (m *mockSessionSource) CurrentSessions(ctx context.Context) ([]activity.SessionRecord, error) {
	m.calls.Add(1)
	return m.sessions, m.err
}

func (m *mockSessionSource) Subscribe(fn func()) func() { return func() {} }

// Helper to generate sessions cycling through hours, one per day going back.
func generateSessions(count int, hours []int, minutes int) []activity.SessionRecord {
	sessions := make([]activity.SessionRecord, count)
	today := activity.Day(testNow)
	for i := 0; i < count; i++ {
		hour := hours[i%len(hours)]
		sessions[i] = activity.SessionRecord{
			ID:              fmt.Sprintf("s%d", i),
			Date:            today.AddDate(0, 0, -i/2).Add(time.Duration(hour) * time.Hour),
			DurationSeconds: minutes * 60,
		}
	}
	return sessions
}

func newTestLearner(t *testing.T, blobs BlobStore) *Learner {
	t.Helper()
	if blobs == nil {
		blobs = store.New(memdb.NewDB(), nil)
	}
	return NewLearner(context.Background(), blobs, DefaultAnalysisConfig(),
		WithClock(func() time.Time { return testNow }),
		WithMetrics(observability.NewMetrics(10)))
}

func TestPersonaGuard(t *testing.T) {
	// Strong morning skew, but only 9 sessions.
	sessions := generateSessions(9, []int{6, 7, 8}, 25)
	if got := InferPersona(sessions, 10, time.Local); got != PersonaUnknown {
		t.Errorf("InferPersona() = %s, want %s", got, PersonaUnknown)
	}
	if got := InferPersona(nil, 0, time.Local); got != PersonaUnknown {
		t.Errorf("InferPersona(nil) = %s, want %s", got, PersonaUnknown)
	}
}

func TestInferPersona(t *testing.T) {
	tests := []struct {
		name    string
		hours   []int
		minutes int
		want    Persona
	}{
		{"morning warrior", []int{6, 9, 11}, 30, PersonaMorningWarrior},
		{"night owl", []int{19, 22, 23}, 30, PersonaNightOwl},
		{"sprint worker", []int{9, 20, 14}, 15, PersonaSprintWorker},
		{"marathon runner", []int{9, 20, 14}, 60, PersonaMarathonRunner},
		{"flexible adapter", []int{9, 20, 14}, 30, PersonaFlexibleAdapter},
		{"boundary hours count", []int{5, 17, 12, 13}, 20, PersonaSprintWorker},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := InferPersona(generateSessions(12, tt.hours, tt.minutes), 10, time.Local)
			if got != tt.want {
				t.Errorf("InferPersona() = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestMedianMinutes(t *testing.T) {
	mk := func(mins ...int) []activity.SessionRecord {
		out := make([]activity.SessionRecord, len(mins))
		for i, m := range mins {
			out[i] = activity.SessionRecord{DurationSeconds: m * 60}
		}
		return out
	}
	cases := []struct {
		mins []int
		want int
	}{
		{[]int{25, 50, 23}, 25},
		{[]int{10, 30}, 20},
		{[]int{1, 2, 1}, 5},
		{[]int{43, 44, 47}, 45},
	}
	for _, c := range cases {
		if got := medianMinutes(mk(c.mins...)); got != c.want {
			t.Errorf("medianMinutes(%v) = %d, want %d", c.mins, got, c.want)
		}
	}
	if got := medianMinutes(nil); got != 0 {
		t.Errorf("medianMinutes(nil) = %d, want 0", got)
	}
}

func TestAnalyze(t *testing.T) {
	l := newTestLearner(t, nil)

	// Two sprints per day at 9 and 10 for 10 days, plus older history outside the window.
	sessions := generateSessions(50, []int{9, 10}, 15)
	old := generateSessions(20, []int{22}, 90)
	for i := range old {
		old[i].Date = old[i].Date.AddDate(-1, 0, 0)
	}
	sessions = append(old, sessions...)

	p := l.Analyze(context.Background(), sessions)

	if p.SessionsAnalyzed != 50 {
		t.Errorf("SessionsAnalyzed = %d, want 50", p.SessionsAnalyzed)
	}
	if p.Persona != PersonaMorningWarrior {
		t.Errorf("Persona = %s, want %s", p.Persona, PersonaMorningWarrior)
	}
	if p.PeakHours != [3]int{9, 10, 14} {
		t.Errorf("PeakHours = %v, want [9 10 14]", p.PeakHours)
	}
	if p.PreferredSessionLength != 15 {
		t.Errorf("PreferredSessionLength = %d, want 15", p.PreferredSessionLength)
	}
	if p.NudgeFrequency != NudgeMedium {
		t.Errorf("NudgeFrequency = %s, want %s", p.NudgeFrequency, NudgeMedium)
	}
	if p.ResponseStyle != ResponseBalanced {
		t.Errorf("ResponseStyle = %s, want %s", p.ResponseStyle, ResponseBalanced)
	}
	if p.LastAnalyzedAt == nil || !p.LastAnalyzedAt.Equal(testNow) {
		t.Errorf("LastAnalyzedAt = %v, want %v", p.LastAnalyzedAt, testNow)
	}
}

func TestAnalyzeSprintWorkerIsConcise(t *testing.T) {
	l := newTestLearner(t, nil)
	p := l.Analyze(context.Background(), generateSessions(20, []int{9, 20, 14, 15}, 10))
	if p.Persona != PersonaSprintWorker || p.ResponseStyle != ResponseConcise {
		t.Errorf("got persona=%s style=%s, want sprintWorker/concise", p.Persona, p.ResponseStyle)
	}
}

func TestNudgeFrequency(t *testing.T) {
	day := activity.Day(testNow)
	var busy []activity.SessionRecord
	for i := 0; i < 6; i++ {
		busy = append(busy, activity.SessionRecord{Date: day.Add(time.Duration(8+i) * time.Hour)})
	}
	if got := nudgeFrequencyFor(busy, time.Local); got != NudgeLow {
		t.Errorf("nudgeFrequencyFor(busy, time.Local) = %s, want low", got)
	}

	var sparse []activity.SessionRecord
	for i := 0; i < 6; i++ {
		sparse = append(sparse, activity.SessionRecord{Date: day.AddDate(0, 0, -i)})
	}
	if got := nudgeFrequencyFor(sparse, time.Local); got != NudgeHigh {
		t.Errorf("nudgeFrequencyFor(sparse, time.Local) = %s, want high", got)
	}
}

func TestRecordSuccessPatternMerges(t *testing.T) {
	l := newTestLearner(t, nil)
	ctx := context.Background()

	l.RecordSuccessPattern(ctx, 9, time.Wednesday, "start_focus")
	p := l.RecordSuccessPattern(ctx, 9, time.Wednesday, "start_focus")

	if len(p.SuccessPatterns) != 1 {
		t.Fatalf("len(SuccessPatterns) = %d, want 1", len(p.SuccessPatterns))
	}
	if p.SuccessPatterns[0].Count != 2 {
		t.Errorf("Count = %d, want 2", p.SuccessPatterns[0].Count)
	}

	p = l.RecordSuccessPattern(ctx, 9, time.Thursday, "start_focus")
	if len(p.SuccessPatterns) != 2 {
		t.Errorf("len(SuccessPatterns) = %d, want 2", len(p.SuccessPatterns))
	}
}

func TestSuccessPatternCapEvictsLeastRecent(t *testing.T) {
	var patterns []SuccessPattern
	base := testNow
	for i := 0; i < MaxSuccessPatterns; i++ {
		patterns = mergeSuccessPattern(patterns, i%24, time.Weekday(i/24), fmt.Sprintf("a%d", i), base.Add(time.Duration(i)*time.Minute))
	}
	// Refresh the oldest so the second-oldest becomes the eviction target.
	patterns = mergeSuccessPattern(patterns, 0, time.Sunday, "a0", base.Add(time.Hour*24))
	patterns = mergeSuccessPattern(patterns, 23, time.Saturday, "new", base.Add(time.Hour*25))

	if len(patterns) != MaxSuccessPatterns {
		t.Fatalf("len = %d, want %d", len(patterns), MaxSuccessPatterns)
	}
	for _, p := range patterns {
		if p.Action == "a1" {
			t.Errorf("least recent pattern a1 should have been evicted")
		}
	}
}

func TestRecordIneffectiveApproachDedup(t *testing.T) {
	l := newTestLearner(t, nil)
	ctx := context.Background()

	for i := 0; i < 25; i++ {
		l.RecordIneffectiveApproach(ctx, fmt.Sprintf("approach-%d", i))
	}
	p := l.RecordIneffectiveApproach(ctx, "approach-24")
	if len(p.IneffectiveApproaches) != MaxIneffectiveApproaches {
		t.Fatalf("len = %d, want %d", len(p.IneffectiveApproaches), MaxIneffectiveApproaches)
	}
	if p.IneffectiveApproaches[0] != "approach-5" {
		t.Errorf("oldest = %s, want approach-5", p.IneffectiveApproaches[0])
	}
}

func TestRecordEffectiveMotivationBounded(t *testing.T) {
	l := newTestLearner(t, nil)
	var p UserProfile
	for i := 0; i < 35; i++ {
		p = l.RecordEffectiveMotivation(context.Background(), fmt.Sprintf("m%d", i), "")
	}
	if len(p.EffectiveMotivations) != MaxEffectiveMotivations {
		t.Fatalf("len = %d, want %d", len(p.EffectiveMotivations), MaxEffectiveMotivations)
	}
	if p.EffectiveMotivations[0].Approach != "m5" {
		t.Errorf("oldest = %s, want m5", p.EffectiveMotivations[0].Approach)
	}
}

func TestTrackFeatureSetsActionBias(t *testing.T) {
	l := newTestLearner(t, nil)
	ctx := context.Background()
	l.TrackFeature(ctx, "tasks")
	l.TrackFeature(ctx, "stats")
	p := l.TrackFeature(ctx, "stats")
	if p.ActionBias != "stats" {
		t.Errorf("ActionBias = %s, want stats", p.ActionBias)
	}
	if p.FeatureUsage["stats"] != 2 {
		t.Errorf("FeatureUsage[stats] = %d, want 2", p.FeatureUsage["stats"])
	}
}

func TestProfileRoundTrip(t *testing.T) {
	blobs := store.New(memdb.NewDB(), nil)
	ctx := context.Background()
	l := newTestLearner(t, blobs)
	l.Analyze(ctx, generateSessions(12, []int{21}, 45))
	l.RecordSuccessPattern(ctx, 21, time.Tuesday, "start_focus")
	l.TrackFeature(ctx, "presets")
	l.SetMotivationStyle(ctx, "direct")

	want := l.Profile()
	got := newTestLearner(t, blobs).Profile()
	if !reflect.DeepEqual(got, want) {
		t.Errorf("reloaded profile = %+v, want %+v", got, want)
	}
	if got.Persona != PersonaNightOwl || got.MotivationStyle != "direct" {
		t.Errorf("got persona=%s style=%s", got.Persona, got.MotivationStyle)
	}
}

func TestCorruptProfileYieldsDefault(t *testing.T) {
	blobs := store.New(memdb.NewDB(), nil)
	if err := blobs.Set(context.Background(), store.KeyProfile, []byte("not json")); err != nil {
		t.Fatal(err)
	}
	p := newTestLearner(t, blobs).Profile()
	if p.Persona != PersonaUnknown || p.PeakHours != DefaultPeakHours {
		t.Errorf("profile = %+v, want default", p)
	}
}

func TestRunOnceSourceFailure(t *testing.T) {
	l := newTestLearner(t, nil)
	_, err := l.RunOnce(context.Background(), &mockSessionSource{err: errors.New("locked")})
	if err == nil {
		t.Fatal("expected error from failing source")
	}
	if _, err := l.RunOnce(context.Background(), nil); err == nil {
		t.Fatal("expected error for nil source")
	}
}

func TestStartStop(t *testing.T) {
	l := newTestLearner(t, nil)
	l.config.Interval = 10 * time.Millisecond
	src := &mockSessionSource{sessions: generateSessions(12, []int{7}, 30)}

	changed := make(chan struct{}, 100)
	l.Subscribe(func() {
		select {
		case changed <- struct{}{}:
		default:
		}
	})

	if err := l.Start(context.Background(), src); err != nil {
		t.Fatal(err)
	}
	// Second Start is a no-op.
	_ = l.Start(context.Background(), src)

	select {
	case <-changed:
	case <-time.After(2 * time.Second):
		t.Fatal("analysis did not run")
	}
	deadline := time.Now().Add(2 * time.Second)
	for src.calls.Load() < 2 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	l.Stop()
	l.Stop()

	if src.calls.Load() < 2 {
		t.Errorf("calls = %d, want periodic runs", src.calls.Load())
	}
	if l.Profile().Persona != PersonaMorningWarrior {
		t.Errorf("Persona = %s, want morningWarrior", l.Profile().Persona)
	}
}

func TestPromptHints(t *testing.T) {
	p := DefaultUserProfile()
	if hints := PromptHints(p, testNow); len(hints) != 2 {
		t.Errorf("default hints = %v, want style and session length only", hints)
	}

	p.Persona = PersonaNightOwl
	p.NudgeFrequency = NudgeLow
	p.SuccessPatterns = []SuccessPattern{
		{Hour: 9, Weekday: testNow.Weekday(), Action: "review_tasks", Count: 1},
		{Hour: 9, Weekday: testNow.Weekday(), Action: "start_focus", Count: 3},
	}
	p.IneffectiveApproaches = []string{"a", "b", "c", "d"}
	hints := PromptHints(p, testNow)
	if len(hints) != 6 {
		t.Fatalf("hints = %v", hints)
	}
	if hints[4] != "At this hour the user usually succeeds with: start_focus." {
		t.Errorf("success hint = %q", hints[4])
	}
	if hints[5] != "Approaches that did not land: b, c, d." {
		t.Errorf("ineffective hint = %q", hints[5])
	}
}

func TestInferPersonaUsesUserZone(t *testing.T) {
	jst := time.FixedZone("JST", 9*3600)
	// 22:00 UTC is 07:00 the next morning in JST.
	sessions := make([]activity.SessionRecord, 12)
	for i := range sessions {
		sessions[i] = activity.SessionRecord{
			ID:              fmt.Sprintf("s%d", i),
			Date:            time.Date(2026, 10, 1+i, 22, 0, 0, 0, time.UTC),
			DurationSeconds: 30 * 60,
		}
	}

	if got := InferPersona(sessions, 10, jst); got != PersonaMorningWarrior {
		t.Errorf("InferPersona(JST) = %s, want %s", got, PersonaMorningWarrior)
	}
	if got := InferPersona(sessions, 10, time.UTC); got != PersonaNightOwl {
		t.Errorf("InferPersona(UTC) = %s, want %s", got, PersonaNightOwl)
	}
	if got := peakHoursFor(sessions, jst); got[0] != 7 {
		t.Errorf("peakHoursFor(JST)[0] = %d, want 7", got[0])
	}
}
