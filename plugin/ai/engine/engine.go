// Package engine wires the cache, memory, learner and assembler into one runnable unit.
package engine

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/hrygo/focusmind/internal/observability"
	"github.com/hrygo/focusmind/internal/profile"
	"github.com/hrygo/focusmind/plugin/ai"
	"github.com/hrygo/focusmind/plugin/ai/activity"
	"github.com/hrygo/focusmind/plugin/ai/cache"
	aicontext "github.com/hrygo/focusmind/plugin/ai/context"
	"github.com/hrygo/focusmind/plugin/ai/habit"
	"github.com/hrygo/focusmind/plugin/ai/memory"
	"github.com/hrygo/focusmind/store"
	"github.com/hrygo/focusmind/store/db"
)

// Engine owns every long-lived component.
type Engine struct {
	cfg     *ai.Config
	store   *store.Store
	sources activity.Sources
	logger  *slog.Logger
	metrics *observability.Metrics

	memory      *memory.Store
	learner     *habit.Learner
	assembler   *aicontext.Service
	invalidator *cache.Invalidator

	mu      sync.Mutex
	cancels []func()
	stopped bool
}

type options struct {
	clock   func() time.Time
	logger  *slog.Logger
	metrics *observability.Metrics
}

// Option configures an Engine.
type Option func(*options)

// WithClock overrides the clock of every component.
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.clock = now }
}

// WithLogger sets the logger used for request scoped logs.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithMetrics sets the shared metrics sink.
func WithMetrics(m *observability.Metrics) Option {
	return func(o *options) { o.metrics = m }
}

// Open creates the profile's store driver and an engine on top of it.
// Close releases the store.
func Open(ctx context.Context, p *profile.Profile, sources activity.Sources, opts ...Option) (*Engine, error) {
	cfg := ai.NewConfigFromProfile(p)
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid engine config")
	}

	driver, err := db.NewDBDriver(p)
	if err != nil {
		return nil, err
	}
	st := store.New(driver, p)

	e, err := New(ctx, cfg, st, sources, opts...)
	if err != nil {
		_ = st.Close()
		return nil, err
	}
	return e, nil
}

// New validates cfg and builds an engine over st.
func New(ctx context.Context, cfg *ai.Config, st *store.Store, sources activity.Sources, opts ...Option) (*Engine, error) {
	o := &options{clock: time.Now, logger: slog.Default(), metrics: observability.NewMetrics(observability.DefaultMaxDurations)}
	for _, opt := range opts {
		opt(o)
	}
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid engine config")
	}

	mem := memory.NewStore(ctx, st, memory.WithClock(o.clock), memory.WithMetrics(o.metrics))
	mem.BeginSession(ctx)

	learnerCfg := cfg.Learner
	learner := habit.NewLearner(ctx, st, &learnerCfg, habit.WithClock(o.clock), habit.WithMetrics(o.metrics))

	assembler := aicontext.NewService(cfg.Context, aicontext.Deps{
		Sources: sources,
		Memory:  mem,
		Learner: learner,
		Rules:   cfg.RuleSet(),
		Clock:   o.clock,
		Logger:  o.logger,
		Metrics: o.metrics,
	})

	inv := cache.NewInvalidator(assembler.Cache(), cfg.Debounce)
	inv.Watch(sources.Sessions, sources.Tasks, sources.Presets)

	e := &Engine{
		cfg:         cfg,
		store:       st,
		sources:     sources,
		logger:      o.logger,
		metrics:     o.metrics,
		memory:      mem,
		learner:     learner,
		assembler:   assembler,
		invalidator: inv,
	}
	e.cancels = append(e.cancels,
		mem.Subscribe(inv.MemoryChanged),
		learner.Subscribe(inv.MemoryChanged),
	)
	return e, nil
}

// Start refreshes the memory peak hours and starts the profile learner loop.
func (e *Engine) Start(ctx context.Context) error {
	if e.sources.Sessions == nil {
		slog.Warn("no session source, profile learner not started")
		return nil
	}
	if sessions, err := e.sources.Sessions.CurrentSessions(ctx); err == nil {
		e.memory.RefreshPeakHours(ctx, sessions)
	} else {
		slog.Warn("failed to read sessions for peak hours", "error", err)
	}
	if err := e.learner.Start(ctx, e.sources.Sessions); err != nil {
		return errors.Wrap(err, "failed to start profile learner")
	}
	slog.Info("engine started", "debounce", e.cfg.Debounce, "learner_interval", e.cfg.Learner.Interval)
	return nil
}

// Stop halts the learner, flushes pending invalidations and drops every subscription.
func (e *Engine) Stop() {
	e.mu.Lock()
	if e.stopped {
		e.mu.Unlock()
		return
	}
	e.stopped = true
	cancels := e.cancels
	e.cancels = nil
	e.mu.Unlock()

	e.learner.Stop()
	e.invalidator.Close()
	for _, cancel := range cancels {
		cancel()
	}
	slog.Info("engine stopped")
}

// Close stops the engine and closes the store.
func (e *Engine) Close() error {
	e.Stop()
	return e.store.Close()
}

// Assembler returns the context service.
func (e *Engine) Assembler() *aicontext.Service { return e.assembler }

// Memory returns the memory store.
func (e *Engine) Memory() *memory.Store { return e.memory }

// Learner returns the profile learner.
func (e *Engine) Learner() *habit.Learner { return e.learner }

// Invalidator returns the change stream wiring.
func (e *Engine) Invalidator() *cache.Invalidator { return e.invalidator }

// Sources returns the configured collaborators.
func (e *Engine) Sources() activity.Sources { return e.sources }

// Metrics returns the shared metrics sink.
func (e *Engine) Metrics() *observability.Metrics { return e.metrics }
