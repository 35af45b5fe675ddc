package habit

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	coreerrors "github.com/hrygo/focusmind/internal/errors"
	"github.com/hrygo/focusmind/internal/observability"
	"github.com/hrygo/focusmind/plugin/ai/activity"
	"github.com/hrygo/focusmind/store"
)

// BlobStore is the persistence the learner needs. *store.Store satisfies it.
type BlobStore interface {
	GetJSON(ctx context.Context, key string, v any) (bool, error)
	SetJSON(ctx context.Context, key string, v any) error
}

// Learner owns the UserProfile and re-analyzes session history periodically.
type Learner struct {
	blobs   BlobStore
	config  *AnalysisConfig
	metrics *observability.Metrics
	now     func() time.Time

	mu      sync.RWMutex
	profile UserProfile
	changed activity.Notifier

	runMu    sync.Mutex
	running  bool
	stopChan chan struct{}
	wg       sync.WaitGroup
}

// Option configures a Learner.
type Option func(*Learner)

// WithClock overrides the learner clock.
func WithClock(now func() time.Time) Option {
	return func(l *Learner) { l.now = now }
}

// WithMetrics sets the metrics sink.
func WithMetrics(m *observability.Metrics) Option {
	return func(l *Learner) { l.metrics = m }
}

// NewLearner loads the persisted profile. A missing or corrupt blob yields the default profile.
func NewLearner(ctx context.Context, blobs BlobStore, config *AnalysisConfig, opts ...Option) *Learner {
	if config == nil {
		config = DefaultAnalysisConfig()
	}
	l := &Learner{
		blobs:   blobs,
		config:  config,
		metrics: observability.NewMetrics(observability.DefaultMaxDurations),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(l)
	}
	l.profile = l.load(ctx)
	return l
}

func (l *Learner) load(ctx context.Context) UserProfile {
	p := DefaultUserProfile()
	ok, err := l.blobs.GetJSON(ctx, store.KeyProfile, &p)
	if err != nil {
		if coreerrors.IsCode(err, coreerrors.ErrCodeCorruptBlob) {
			l.metrics.RecordCorruptBlob()
		}
		slog.Warn("failed to load user profile, using defaults", "key", store.KeyProfile, "error", err)
		return DefaultUserProfile()
	}
	if !ok {
		return DefaultUserProfile()
	}
	p.normalize()
	return p
}

// update applies mutate under the owner lock and persists the result.
func (l *Learner) update(ctx context.Context, mutate func(*UserProfile)) UserProfile {
	l.mu.Lock()
	mutate(&l.profile)
	l.profile.normalize()
	if err := l.blobs.SetJSON(ctx, store.KeyProfile, l.profile); err != nil {
		l.metrics.RecordPersistFailure()
		slog.Warn("failed to persist user profile", "key", store.KeyProfile, "error", err)
	}
	out := l.profile.Clone()
	l.mu.Unlock()

	l.changed.Notify()
	return out
}

// Profile returns a copy of the current profile.
func (l *Learner) Profile() UserProfile {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.profile.Clone()
}

// Subscribe registers fn to run after every profile change.
func (l *Learner) Subscribe(fn func()) func() {
	return l.changed.Subscribe(fn)
}

// Analyze recomputes the session-derived profile fields from sessions.
func (l *Learner) Analyze(ctx context.Context, sessions []activity.SessionRecord) UserProfile {
	now := l.now()
	return l.update(ctx, func(p *UserProfile) {
		applyAnalysis(p, sessions, l.config, now)
	})
}

// RecordSuccessPattern counts a successful action at hour and weekday.
func (l *Learner) RecordSuccessPattern(ctx context.Context, hour int, weekday time.Weekday, action string) UserProfile {
	at := l.now()
	return l.update(ctx, func(p *UserProfile) {
		p.SuccessPatterns = mergeSuccessPattern(p.SuccessPatterns, hour, weekday, action, at)
	})
}

// RecordEffectiveMotivation remembers an approach that worked.
func (l *Learner) RecordEffectiveMotivation(ctx context.Context, approach, situation string) UserProfile {
	rec := MotivationRecord{Approach: approach, Context: situation, At: l.now()}
	return l.update(ctx, func(p *UserProfile) {
		p.EffectiveMotivations = append(p.EffectiveMotivations, rec)
	})
}

// RecordIneffectiveApproach remembers an approach that did not work. Duplicates are ignored.
func (l *Learner) RecordIneffectiveApproach(ctx context.Context, approach string) UserProfile {
	approach = strings.TrimSpace(approach)
	return l.update(ctx, func(p *UserProfile) {
		if approach == "" {
			return
		}
		for _, existing := range p.IneffectiveApproaches {
			if existing == approach {
				return
			}
		}
		p.IneffectiveApproaches = append(p.IneffectiveApproaches, approach)
	})
}

// TrackFeature counts one use of feature and refreshes the action bias.
func (l *Learner) TrackFeature(ctx context.Context, feature string) UserProfile {
	return l.update(ctx, func(p *UserProfile) {
		if feature == "" {
			return
		}
		p.FeatureUsage[feature]++
		p.ActionBias = actionBiasFor(p.FeatureUsage)
	})
}

// SetMotivationStyle mirrors the style tuned by the memory store.
func (l *Learner) SetMotivationStyle(ctx context.Context, style string) {
	l.mu.RLock()
	same := l.profile.MotivationStyle == style
	l.mu.RUnlock()
	if same || style == "" {
		return
	}
	l.update(ctx, func(p *UserProfile) { p.MotivationStyle = style })
}

// Start runs the analysis immediately and then every Interval until Stop or ctx is done.
func (l *Learner) Start(ctx context.Context, sessions activity.SessionSource) error {
	l.runMu.Lock()
	if l.running {
		l.runMu.Unlock()
		return nil
	}
	l.running = true
	l.stopChan = make(chan struct{})
	stop := l.stopChan
	l.runMu.Unlock()

	l.wg.Add(1)
	go l.loop(ctx, sessions, stop)
	return nil
}

// Stop stops the periodic analysis and waits for an in-flight run to finish.
func (l *Learner) Stop() {
	l.runMu.Lock()
	if !l.running {
		l.runMu.Unlock()
		return
	}
	l.running = false
	close(l.stopChan)
	l.runMu.Unlock()

	l.wg.Wait()
}

func (l *Learner) loop(ctx context.Context, sessions activity.SessionSource, stop <-chan struct{}) {
	defer l.wg.Done()

	l.runAnalysis(ctx, sessions)

	ticker := time.NewTicker(l.config.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-stop:
			return
		case <-ticker.C:
			l.runAnalysis(ctx, sessions)
		}
	}
}

func (l *Learner) runAnalysis(ctx context.Context, sessions activity.SessionSource) {
	startTime := time.Now()
	p, err := l.RunOnce(ctx, sessions)
	if err != nil {
		slog.Warn("profile analysis skipped", "error", err)
		return
	}
	slog.Info("profile analysis completed",
		"persona", p.Persona,
		"sessions_analyzed", p.SessionsAnalyzed,
		"duration_ms", time.Since(startTime).Milliseconds())
}

// RunOnce reads the current sessions and analyzes them immediately.
func (l *Learner) RunOnce(ctx context.Context, sessions activity.SessionSource) (UserProfile, error) {
	if sessions == nil {
		return l.Profile(), coreerrors.SourceUnavailable("sessions", nil)
	}
	records, err := sessions.CurrentSessions(ctx)
	if err != nil {
		l.metrics.RecordSourceFailure()
		return l.Profile(), coreerrors.SourceUnavailable("sessions", err)
	}
	return l.Analyze(ctx, records), nil
}
