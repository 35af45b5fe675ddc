package cache

import (
	"sync"
	"time"

	"github.com/hrygo/focusmind/plugin/ai/activity"
)

// Invalidatable is the part of ContextCache the Invalidator drives.
type Invalidatable interface {
	Invalidate(tier Tier)
}

// Invalidator maps upstream change streams onto tier invalidations.
// Each tier has its own debounce timer: a burst of events produces one
// invalidation once the stream has been quiet for the window.
type Invalidator struct {
	cache  Invalidatable
	window time.Duration

	mu      sync.Mutex
	closed  bool
	seq     map[Tier]uint64
	timers  map[Tier]*time.Timer
	cancels []func()
}

// NewInvalidator creates an invalidator. A window <= 0 invalidates synchronously.
func NewInvalidator(cache Invalidatable, window time.Duration) *Invalidator {
	return &Invalidator{
		cache:  cache,
		window: window,
		seq:    make(map[Tier]uint64),
		timers: make(map[Tier]*time.Timer),
	}
}

// Watch subscribes to the session, task and preset streams. Nil sources are skipped.
func (i *Invalidator) Watch(sessions activity.SessionSource, tasks activity.TaskSource, presets activity.PresetSource) {
	var cancels []func()
	if sessions != nil {
		cancels = append(cancels, sessions.Subscribe(func() { i.Trigger(TierProgress) }))
	}
	if tasks != nil {
		cancels = append(cancels, tasks.Subscribe(func() { i.Trigger(TierTask) }))
	}
	if presets != nil {
		cancels = append(cancels, presets.Subscribe(func() { i.Trigger(TierPreset) }))
	}

	i.mu.Lock()
	i.cancels = append(i.cancels, cancels...)
	i.mu.Unlock()
}

// MemoryChanged is the memory store listener.
func (i *Invalidator) MemoryChanged() {
	i.Trigger(TierMemory)
}

// Trigger schedules an invalidation of tier, restarting its debounce timer.
func (i *Invalidator) Trigger(tier Tier) {
	i.mu.Lock()
	if i.closed {
		i.mu.Unlock()
		return
	}
	if i.window <= 0 {
		i.mu.Unlock()
		i.cache.Invalidate(tier)
		return
	}

	i.seq[tier]++
	seq := i.seq[tier]
	if t, ok := i.timers[tier]; ok {
		t.Stop()
	}
	i.timers[tier] = time.AfterFunc(i.window, func() { i.fire(tier, seq) })
	i.mu.Unlock()
}

// fire invalidates tier unless a later event re-armed the timer.
func (i *Invalidator) fire(tier Tier, seq uint64) {
	i.mu.Lock()
	if i.seq[tier] != seq {
		i.mu.Unlock()
		return
	}
	if _, pending := i.timers[tier]; !pending {
		i.mu.Unlock()
		return
	}
	delete(i.timers, tier)
	i.mu.Unlock()

	i.cache.Invalidate(tier)
}

// Pending reports whether tier has an invalidation waiting on its timer.
func (i *Invalidator) Pending(tier Tier) bool {
	i.mu.Lock()
	defer i.mu.Unlock()
	_, ok := i.timers[tier]
	return ok
}

// Flush fires every pending invalidation now.
func (i *Invalidator) Flush() {
	i.mu.Lock()
	var pending []Tier
	for _, t := range Tiers {
		timer, ok := i.timers[t]
		if !ok {
			continue
		}
		timer.Stop()
		delete(i.timers, t)
		i.seq[t]++
		pending = append(pending, t)
	}
	i.mu.Unlock()

	for _, t := range pending {
		i.cache.Invalidate(t)
	}
}

// Close flushes pending invalidations, unsubscribes from every stream and
// ignores later triggers.
func (i *Invalidator) Close() {
	i.Flush()

	i.mu.Lock()
	i.closed = true
	cancels := i.cancels
	i.cancels = nil
	i.mu.Unlock()

	for _, cancel := range cancels {
		cancel()
	}
}
