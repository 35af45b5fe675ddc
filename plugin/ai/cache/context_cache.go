package cache

import (
	"context"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/hrygo/focusmind/internal/observability"
)

// Builder produces a tier's string. It reads its upstream snapshot at call time.
type Builder func(ctx context.Context) string

// CacheEntry is a computed tier value.
type CacheEntry struct {
	Value      string
	ComputedAt time.Time
	TTL        time.Duration
	Generation uint64
}

// IsExpired reports whether the entry is no longer servable at now.
// An entry whose age has reached its TTL is expired.
func (e CacheEntry) IsExpired(now time.Time) bool {
	return now.Sub(e.ComputedAt) >= e.TTL
}

// ContextCache serves tiers from fresh entries and rebuilds stale ones synchronously.
//
// Every tier carries a generation counter bumped by Invalidate. A rebuild stores its
// result only if the generation it started under is still current, so a rebuild
// racing with an invalidation never resurrects a stale value.
type ContextCache struct {
	ttl      TTLConfig
	builders map[Tier]Builder
	now      func() time.Time
	metrics  *observability.Metrics
	group    singleflight.Group

	mu          sync.Mutex
	entries     map[Tier]CacheEntry
	generations map[Tier]uint64
}

// Option configures a ContextCache.
type Option func(*ContextCache)

// WithClock overrides the cache clock.
func WithClock(now func() time.Time) Option {
	return func(c *ContextCache) { c.now = now }
}

// WithMetrics sets the metrics sink for per-tier counters.
func WithMetrics(m *observability.Metrics) Option {
	return func(c *ContextCache) { c.metrics = m }
}

// New creates a cache. Tiers without a builder always yield "".
func New(ttl TTLConfig, builders map[Tier]Builder, opts ...Option) *ContextCache {
	c := &ContextCache{
		ttl:         ttl,
		builders:    make(map[Tier]Builder, len(builders)),
		now:         time.Now,
		metrics:     observability.NewMetrics(observability.DefaultMaxDurations),
		entries:     make(map[Tier]CacheEntry),
		generations: make(map[Tier]uint64),
	}
	for t, b := range builders {
		c.builders[t] = b
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Get returns the live value of tier, rebuilding it when absent or expired.
// Concurrent callers of one stale tier share a single rebuild.
func (c *ContextCache) Get(ctx context.Context, tier Tier) string {
	tm := c.metrics.Tier(string(tier))

	c.mu.Lock()
	if e, ok := c.entries[tier]; ok && !e.IsExpired(c.now()) {
		c.mu.Unlock()
		tm.Hits.Add(1)
		return e.Value
	}
	gen := c.generations[tier]
	c.mu.Unlock()
	tm.Misses.Add(1)

	key := string(tier) + "/" + strconv.FormatUint(gen, 10)
	v, _, _ := c.group.Do(key, func() (any, error) {
		startedAt := c.now()
		value := c.build(ctx, tier)

		c.mu.Lock()
		defer c.mu.Unlock()
		if c.generations[tier] != gen {
			tm.Discarded.Add(1)
			slog.Debug("discarded rebuild after invalidation", "tier", tier, "generation", gen)
			return value, nil
		}
		c.entries[tier] = CacheEntry{
			Value:      value,
			ComputedAt: startedAt,
			TTL:        c.ttl.For(tier),
			Generation: gen,
		}
		tm.Rebuilds.Add(1)
		return value, nil
	})
	return v.(string)
}

// build runs the tier builder. A panicking builder degrades to "".
func (c *ContextCache) build(ctx context.Context, tier Tier) (value string) {
	b, ok := c.builders[tier]
	if !ok {
		return ""
	}
	defer func() {
		if r := recover(); r != nil {
			slog.Warn("tier builder panicked", "tier", tier, "panic", r)
			value = ""
		}
	}()
	return b(ctx)
}

// Invalidate clears tier. Invalidating any dependency tier also clears full.
func (c *ContextCache) Invalidate(tier Tier) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.invalidateLocked(tier)
	if cascades(tier) {
		c.invalidateLocked(TierFull)
	}
}

// InvalidateAll clears every tier.
func (c *ContextCache) InvalidateAll() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, t := range Tiers {
		c.invalidateLocked(t)
	}
}

func (c *ContextCache) invalidateLocked(tier Tier) {
	delete(c.entries, tier)
	c.generations[tier]++
	c.metrics.Tier(string(tier)).Invalidations.Add(1)
}

// Entry returns the stored entry of tier, expired or not.
func (c *ContextCache) Entry(tier Tier) (CacheEntry, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[tier]
	return e, ok
}

// Generation returns the current generation of tier.
func (c *ContextCache) Generation(tier Tier) uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.generations[tier]
}

// TTL returns the configured TTLs.
func (c *ContextCache) TTL() TTLConfig {
	return c.ttl
}

// Stats returns the counters of every tier.
func (c *ContextCache) Stats() map[Tier]observability.TierSnapshot {
	tiers := c.metrics.Snapshot().Tiers
	out := make(map[Tier]observability.TierSnapshot, len(Tiers))
	for _, t := range Tiers {
		out[t] = tiers[string(t)]
	}
	return out
}
