package cache

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/hrygo/focusmind/plugin/ai/activity"
)

type recordingCache struct {
	mu    sync.Mutex
	calls []Tier
}

func (r *recordingCache) Invalidate(tier Tier) {
	r.mu.Lock()
	r.calls = append(r.calls, tier)
	r.mu.Unlock()
}

func (r *recordingCache) count(tier Tier) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, c := range r.calls {
		if c == tier {
			n++
		}
	}
	return n
}

func TestInvalidatorCoalescesBurst(t *testing.T) {
	rc := &recordingCache{}
	inv := NewInvalidator(rc, 30*time.Millisecond)
	defer inv.Close()

	for i := 0; i < 5; i++ {
		inv.Trigger(TierTask)
	}
	assert.True(t, inv.Pending(TierTask))
	assert.Equal(t, 0, rc.count(TierTask), "nothing fires inside the window")

	assert.Eventually(t, func() bool { return rc.count(TierTask) == 1 }, time.Second, 5*time.Millisecond)
	time.Sleep(60 * time.Millisecond)
	assert.Equal(t, 1, rc.count(TierTask))
	assert.False(t, inv.Pending(TierTask))
}

func TestInvalidatorTiersDebounceIndependently(t *testing.T) {
	rc := &recordingCache{}
	inv := NewInvalidator(rc, time.Hour)
	defer inv.Close()

	inv.Trigger(TierTask)
	inv.Trigger(TierPreset)
	inv.Trigger(TierTask)

	inv.Flush()
	assert.Equal(t, 1, rc.count(TierTask))
	assert.Equal(t, 1, rc.count(TierPreset))
	assert.Equal(t, 0, rc.count(TierProgress))

	inv.Flush()
	assert.Equal(t, 1, rc.count(TierTask), "flush with nothing pending is a no-op")
}

func TestInvalidatorZeroWindowIsSynchronous(t *testing.T) {
	rc := &recordingCache{}
	inv := NewInvalidator(rc, 0)

	inv.MemoryChanged()
	inv.MemoryChanged()
	assert.Equal(t, 2, rc.count(TierMemory))
}

func TestInvalidatorWatchMapsStreams(t *testing.T) {
	rc := &recordingCache{}
	inv := NewInvalidator(rc, 0)
	snap := activity.NewSnapshot()
	inv.Watch(snap, snap.TaskSource(), snap.PresetSource())

	snap.AddSession(activity.SessionRecord{ID: "s1", Date: time.Now(), DurationSeconds: 600})
	snap.ReplaceTasks([]activity.TaskRecord{{ID: "t1", Title: "Write"}})
	snap.ReplacePresets([]activity.PresetRecord{{ID: "p1", Name: "Pomodoro", FocusMinutes: 25, BreakMinutes: 5}}, "p1")

	assert.Equal(t, []Tier{TierProgress, TierTask, TierPreset}, rc.calls)

	inv.Close()
	snap.AddSession(activity.SessionRecord{ID: "s2", Date: time.Now(), DurationSeconds: 600})
	assert.Len(t, rc.calls, 3, "closed invalidator is unsubscribed")
}

func TestInvalidatorCloseFlushesPending(t *testing.T) {
	rc := &recordingCache{}
	inv := NewInvalidator(rc, time.Hour)

	inv.Trigger(TierProgress)
	inv.Close()
	assert.Equal(t, 1, rc.count(TierProgress))

	inv.Trigger(TierProgress)
	assert.False(t, inv.Pending(TierProgress))
}

func TestInvalidatorDrivesCacheCascade(t *testing.T) {
	c, _, _ := newTestCache(t)
	inv := NewInvalidator(c, time.Hour)
	defer inv.Close()

	c.Get(t.Context(), TierFull)
	inv.Trigger(TierPreset)
	_, ok := c.Entry(TierFull)
	assert.True(t, ok, "full still cached while the preset event is debouncing")

	inv.Flush()
	_, ok = c.Entry(TierFull)
	assert.False(t, ok)
}
