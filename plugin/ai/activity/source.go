package activity

import (
	"context"
	"slices"
	"sync"
	"time"
)

// SessionSource exposes the current session history.
type SessionSource interface {
	CurrentSessions(ctx context.Context) ([]SessionRecord, error)
	// Subscribe registers fn for "sessions changed" and returns a cancel func.
	Subscribe(fn func()) (cancel func())
}

// TaskSource exposes the current tasks and their completion log.
type TaskSource interface {
	CurrentTasks(ctx context.Context) ([]TaskRecord, error)
	IsCompleted(taskID string, day time.Time) bool
	Subscribe(fn func()) (cancel func())
}

// PresetSource exposes the timer presets.
type PresetSource interface {
	CurrentPresets(ctx context.Context) ([]PresetRecord, error)
	ActivePresetID() string
	Subscribe(fn func()) (cancel func())
}

// SettingsSource exposes a read-only settings snapshot.
type SettingsSource interface {
	Settings(ctx context.Context) (Settings, error)
}

// Sources bundles the four collaborators.
type Sources struct {
	Sessions SessionSource
	Tasks    TaskSource
	Presets  PresetSource
	Settings SettingsSource
}

// Notifier is a thread-safe callback list.
type Notifier struct {
	mu     sync.Mutex
	nextID int
	subs   map[int]func()
}

// Subscribe registers fn. The returned cancel is idempotent.
func (n *Notifier) Subscribe(fn func()) func() {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.subs == nil {
		n.subs = make(map[int]func())
	}
	id := n.nextID
	n.nextID++
	n.subs[id] = fn

	var once sync.Once
	return func() {
		once.Do(func() {
			n.mu.Lock()
			delete(n.subs, id)
			n.mu.Unlock()
		})
	}
}

// Notify invokes every subscriber outside the lock, in subscription order.
func (n *Notifier) Notify() {
	n.mu.Lock()
	ids := make([]int, 0, len(n.subs))
	for id := range n.subs {
		ids = append(ids, id)
	}
	fns := make(map[int]func(), len(n.subs))
	for id, fn := range n.subs {
		fns[id] = fn
	}
	n.mu.Unlock()

	slices.Sort(ids)
	for _, id := range ids {
		fns[id]()
	}
}

// Len returns the number of active subscribers.
func (n *Notifier) Len() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.subs)
}
