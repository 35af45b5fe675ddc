package context

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/hrygo/focusmind/internal/observability"
	"github.com/hrygo/focusmind/plugin/ai/activity"
	"github.com/hrygo/focusmind/plugin/ai/behavior"
	"github.com/hrygo/focusmind/plugin/ai/cache"
	"github.com/hrygo/focusmind/plugin/ai/habit"
	"github.com/hrygo/focusmind/plugin/ai/memory"
)

const topSignals = 3

// Service implements Assembler on top of a ContextCache.
type Service struct {
	cfg     Config
	sources activity.Sources
	memory  *memory.Store
	learner *habit.Learner
	rules   *behavior.RuleSet
	now     func() time.Time
	logger  *slog.Logger
	metrics *observability.Metrics

	ranker *PriorityRanker
	cache  *cache.ContextCache

	stats *serviceStats
}

type serviceStats struct {
	totalBuilds  int64
	totalTokens  int64
	totalBuildMs int64
}

// Config configures the context service.
type Config struct {
	TTL           cache.TTLConfig
	MaxTokens     int    // Full context budget (default: 2048)
	AssistantName string // Name used in the header (default: FocusMind)
}

// DefaultConfig returns default configuration.
func DefaultConfig() Config {
	return Config{
		TTL:           cache.DefaultTTLConfig(),
		MaxTokens:     DefaultMaxTokens,
		AssistantName: "FocusMind",
	}
}

// Deps are the collaborators of the service. Memory and Learner may be nil,
// in which case their defaults are rendered.
type Deps struct {
	Sources activity.Sources
	Memory  *memory.Store
	Learner *habit.Learner
	Rules   *behavior.RuleSet
	Clock   func() time.Time
	Logger  *slog.Logger
	Metrics *observability.Metrics
}

// NewService creates a new context service.
func NewService(cfg Config, deps Deps) *Service {
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = DefaultMaxTokens
	}
	if cfg.AssistantName == "" {
		cfg.AssistantName = "FocusMind"
	}
	if deps.Clock == nil {
		deps.Clock = time.Now
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.Metrics == nil {
		deps.Metrics = observability.NewMetrics(observability.DefaultMaxDurations)
	}

	s := &Service{
		cfg:     cfg,
		sources: deps.Sources,
		memory:  deps.Memory,
		learner: deps.Learner,
		rules:   deps.Rules,
		now:     deps.Clock,
		logger:  deps.Logger,
		metrics: deps.Metrics,
		ranker:  NewPriorityRanker(),
		stats:   &serviceStats{},
	}
	s.cache = cache.New(cfg.TTL, map[cache.Tier]cache.Builder{
		cache.TierTask:     s.buildTasks,
		cache.TierProgress: s.buildProgress,
		cache.TierPreset:   s.buildPresets,
		cache.TierMemory:   s.buildMemory,
		cache.TierFull:     s.buildFull,
	}, cache.WithClock(deps.Clock), cache.WithMetrics(deps.Metrics))
	return s
}

// Cache exposes the tier cache for invalidation wiring.
func (s *Service) Cache() *cache.ContextCache {
	return s.cache
}

// Build constructs the full context.
func (s *Service) Build(ctx context.Context) *ContextResult {
	reqCtx := observability.NewRequestContext(s.logger, "build_context")
	ctx = observability.WithRequestContext(ctx, reqCtx)

	start := time.Now()
	atomic.AddInt64(&s.stats.totalBuilds, 1)

	text := s.cache.Get(ctx, cache.TierFull)
	result := &ContextResult{
		Context:     text,
		TotalTokens: EstimateTokens(text),
		BuildTime:   time.Since(start),
	}

	atomic.AddInt64(&s.stats.totalTokens, int64(result.TotalTokens))
	atomic.AddInt64(&s.stats.totalBuildMs, result.BuildTime.Milliseconds())
	s.metrics.RecordBuild(result.BuildTime)

	reqCtx.Debug("context built",
		slog.Int(observability.LogFieldTokens, result.TotalTokens),
		slog.Int64(observability.LogFieldDuration, reqCtx.DurationMs()))
	return result
}

// BuildContext returns the full context string.
func (s *Service) BuildContext(ctx context.Context) string {
	return s.Build(ctx).Context
}

// InvalidateCache drops every tier.
func (s *Service) InvalidateCache() {
	s.cache.InvalidateAll()
}

// GetStats returns context building statistics.
func (s *Service) GetStats() *ContextStats {
	builds := atomic.LoadInt64(&s.stats.totalBuilds)
	hits := s.cache.Stats()[cache.TierFull].Hits
	if builds == 0 {
		return &ContextStats{CacheHits: hits}
	}

	return &ContextStats{
		TotalBuilds:      builds,
		AverageTokens:    float64(atomic.LoadInt64(&s.stats.totalTokens)) / float64(builds),
		CacheHits:        hits,
		AverageBuildTime: time.Duration(atomic.LoadInt64(&s.stats.totalBuildMs)/builds) * time.Millisecond,
	}
}

// collect reads src and logs every degraded source.
func (s *Service) collect(ctx context.Context, src activity.Sources) activity.Data {
	data, errs := activity.Collect(ctx, src)
	if len(errs) > 0 {
		logger := observability.LoggerFrom(ctx, s.logger)
		for _, err := range errs {
			s.metrics.RecordSourceFailure()
			logger.Warn("source unavailable, rendering without it", "error", err)
		}
	}
	return data
}

func (s *Service) buildTasks(ctx context.Context) string {
	data := s.collect(ctx, activity.Sources{Tasks: s.sources.Tasks})
	return FormatTasks(data.Tasks, data.Completed, s.now())
}

func (s *Service) buildProgress(ctx context.Context) string {
	data := s.collect(ctx, activity.Sources{Sessions: s.sources.Sessions, Settings: s.sources.Settings})
	now := s.now()
	return FormatProgress(behavior.ComputePerformance(data.Sessions, data.Settings.DailyGoalMinutes, now), now)
}

func (s *Service) buildPresets(ctx context.Context) string {
	data := s.collect(ctx, activity.Sources{Presets: s.sources.Presets})
	return FormatPresets(data.Presets, data.ActivePresetID)
}

func (s *Service) buildMemory(_ context.Context) string {
	return FormatMemory(s.currentMemory(), s.currentProfile(), s.now())
}

func (s *Service) currentMemory() memory.Memory {
	if s.memory == nil {
		return memory.DefaultMemory()
	}
	return s.memory.Memory()
}

func (s *Service) currentProfile() habit.UserProfile {
	if s.learner == nil {
		return habit.DefaultUserProfile()
	}
	return s.learner.Profile()
}

// buildFull refreshes the dependency tiers concurrently and joins them under
// the token budget.
func (s *Service) buildFull(ctx context.Context) string {
	deps := []cache.Tier{cache.TierTask, cache.TierProgress, cache.TierPreset, cache.TierMemory}
	parts := make([]string, len(deps))
	var data activity.Data

	g, gctx := errgroup.WithContext(ctx)
	for i, tier := range deps {
		g.Go(func() error {
			parts[i] = s.cache.Get(gctx, tier)
			return nil
		})
	}
	g.Go(func() error {
		data = s.collect(gctx, s.sources)
		return nil
	})
	_ = g.Wait()

	now := s.now()
	report := behavior.Analyze(behavior.InputFromData(data), now, s.rules)

	segments := []*ContextSegment{
		NewSegment("header", s.header(data.Settings, data.Presets, now), PriorityHeader),
		NewSegment("progress", parts[1], PriorityProgress),
		NewSegment("task", parts[0], PriorityTasks),
		NewSegment("intelligence", FormatIntelligence(report), PriorityIntelligence),
		NewSegment("memory", parts[3], PriorityMemory),
		NewSegment("preset", parts[2], PriorityPresets),
	}

	kept := s.ranker.RankAndTruncate(segments, s.cfg.MaxTokens)
	out := make([]string, 0, len(kept))
	for _, seg := range kept {
		out = append(out, seg.Content)
	}
	return strings.Join(out, "\n\n")
}

func (s *Service) header(settings activity.Settings, presets []activity.PresetRecord, now time.Time) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "You are %s, a focus coach inside a productivity timer app.", s.cfg.AssistantName)
	if name := strings.TrimSpace(settings.DisplayName); name != "" {
		fmt.Fprintf(&sb, " The user's name is %s.", name)
	}
	fmt.Fprintf(&sb, "\nLocal time: %s.", now.Format("Monday, January 2 2006 15:04"))

	if f := settings.ActiveFocus; f != nil {
		elapsed := int(now.Sub(f.StartedAt).Minutes())
		if elapsed < 0 {
			elapsed = 0
		}
		line := fmt.Sprintf("\nA focus session is running (%d min in", elapsed)
		for _, p := range presets {
			if p.ID == f.PresetID {
				line += fmt.Sprintf(", preset %s", p.Name)
				break
			}
		}
		sb.WriteString(line + "). Keep replies short and avoid distracting the user.")
	} else {
		sb.WriteString("\nNo focus session is running.")
	}
	return sb.String()
}

// FormatIntelligence renders the top signals of a report.
func FormatIntelligence(r behavior.IntelligenceReport) string {
	var sb strings.Builder
	sb.WriteString("### Insights\n")
	fmt.Fprintf(&sb, "Momentum: %s. Energy: %s. Streak risk: %s.", r.Patterns.Momentum, r.UserState.Energy, r.UserState.StreakRisk)
	if t := r.Patterns.Trend; t != nil {
		fmt.Fprintf(&sb, " Trend: %s (%+d%%).", t.Direction, t.ChangePercent)
	}
	if len(r.Patterns.PeakHours) > 0 {
		hours := make([]string, len(r.Patterns.PeakHours))
		for i, h := range r.Patterns.PeakHours {
			hours[i] = fmt.Sprintf("%02d:00", h)
		}
		fmt.Fprintf(&sb, " Peak hours: %s.", strings.Join(hours, ", "))
	}
	writeSignals(&sb, "Opportunities", behavior.Top(r.Opportunities, topSignals))
	writeSignals(&sb, "Risks", behavior.Top(r.Risks, topSignals))
	return sb.String()
}

func writeSignals(sb *strings.Builder, title string, signals []behavior.Signal) {
	if len(signals) == 0 {
		return
	}
	fmt.Fprintf(sb, "\n%s:", title)
	for _, sig := range signals {
		fmt.Fprintf(sb, "\n- %s", sig.Message)
	}
}

// GenerateIntelligenceReport analyzes the current activity data.
func (s *Service) GenerateIntelligenceReport(ctx context.Context) behavior.IntelligenceReport {
	data := s.collect(ctx, s.sources)
	return behavior.Analyze(behavior.InputFromData(data), s.now(), s.rules)
}

// RecordConversationOutcome stores the conversation summary. A satisfied outcome
// records a success pattern and a feature use per executed action; an unsatisfied
// one marks the intent as an ineffective approach.
func (s *Service) RecordConversationOutcome(ctx context.Context, intent string, actionsExecuted []string, satisfaction *bool) {
	var style string
	if s.memory != nil {
		style = s.memory.RecordConversation(ctx, intent, actionsExecuted, satisfaction).MotivationStyle
	}
	if s.learner == nil || satisfaction == nil {
		return
	}

	now := s.now()
	if *satisfaction {
		for _, action := range actionsExecuted {
			s.learner.RecordSuccessPattern(ctx, now.Hour(), now.Weekday(), action)
			s.learner.TrackFeature(ctx, action)
		}
		if intent != "" && style != "" {
			s.learner.RecordEffectiveMotivation(ctx, style, intent)
		}
	} else if intent != "" {
		s.learner.RecordIneffectiveApproach(ctx, intent)
	}
	s.learner.SetMotivationStyle(ctx, style)
}

// RecordFeedback counts explicit feedback and mirrors the resulting style into the profile.
func (s *Service) RecordFeedback(ctx context.Context, positive bool) {
	if s.memory == nil {
		return
	}
	m := s.memory.RecordFeedback(ctx, positive)
	if s.learner != nil {
		s.learner.SetMotivationStyle(ctx, m.MotivationStyle)
	}
}

// LearnFromAction records action. Starting focus or completing a task changes
// what the header and insights say, so the full tier is dropped right away.
func (s *Service) LearnFromAction(ctx context.Context, action string, ac memory.ActionContext) {
	if s.memory != nil {
		s.memory.LearnFromAction(ctx, action, ac)
	}
	if action == memory.ActionStartFocus || action == memory.ActionCompleteTask {
		s.cache.Invalidate(cache.TierFull)
	}
}

var _ Assembler = (*Service)(nil)
