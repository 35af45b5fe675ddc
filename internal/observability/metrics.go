package observability

import (
	"sort"
	"sync"
	"sync/atomic"
	"time"
)

// Metrics collects counters for context builds, cache tiers and persistence.
type Metrics struct {
	mu sync.Mutex

	builds          atomic.Int64
	persistFailures atomic.Int64
	sourceFailures  atomic.Int64
	corruptBlobs    atomic.Int64
	tiers           map[string]*TierMetrics
	durations       []time.Duration
	maxDurations    int
}

// TierMetrics represents counters for a single cache tier.
type TierMetrics struct {
	Hits          atomic.Int64
	Misses        atomic.Int64
	Rebuilds      atomic.Int64
	Discarded     atomic.Int64
	Invalidations atomic.Int64
}

// DefaultMaxDurations is the number of build durations kept for percentiles.
const DefaultMaxDurations = 1000

// NewMetrics creates a new metrics collector keeping the last maxDurations build durations.
// Each component defaults to its own instance; share one through the WithMetrics options.
func NewMetrics(maxDurations int) *Metrics {
	if maxDurations <= 0 {
		maxDurations = DefaultMaxDurations
	}
	return &Metrics{
		tiers:        make(map[string]*TierMetrics),
		durations:    make([]time.Duration, 0, maxDurations),
		maxDurations: maxDurations,
	}
}

// Tier returns the counters of a tier, creating them on first use.
func (m *Metrics) Tier(name string) *TierMetrics {
	m.mu.Lock()
	defer m.mu.Unlock()

	tm, ok := m.tiers[name]
	if !ok {
		tm = &TierMetrics{}
		m.tiers[name] = tm
	}
	return tm
}

// RecordBuild records one assembled context and its duration.
func (m *Metrics) RecordBuild(d time.Duration) {
	m.builds.Add(1)

	m.mu.Lock()
	if len(m.durations) >= m.maxDurations {
		// Remove oldest duration (FIFO)
		m.durations = m.durations[1:]
	}
	m.durations = append(m.durations, d)
	m.mu.Unlock()
}

// RecordPersistFailure records a failed blob write.
func (m *Metrics) RecordPersistFailure() { m.persistFailures.Add(1) }

// RecordSourceFailure records a failed upstream snapshot read.
func (m *Metrics) RecordSourceFailure() { m.sourceFailures.Add(1) }

// RecordCorruptBlob records a blob that was discarded on load.
func (m *Metrics) RecordCorruptBlob() { m.corruptBlobs.Add(1) }

// Reset resets all metrics (useful for testing).
func (m *Metrics) Reset() {
	m.builds.Store(0)
	m.persistFailures.Store(0)
	m.sourceFailures.Store(0)
	m.corruptBlobs.Store(0)

	m.mu.Lock()
	m.tiers = make(map[string]*TierMetrics)
	m.durations = make([]time.Duration, 0, m.maxDurations)
	m.mu.Unlock()
}

// Snapshot returns a point-in-time copy of the counters.
func (m *Metrics) Snapshot() *MetricsSnapshot {
	m.mu.Lock()
	defer m.mu.Unlock()

	tiers := make(map[string]TierSnapshot, len(m.tiers))
	for name, tm := range m.tiers {
		tiers[name] = TierSnapshot{
			Hits:          tm.Hits.Load(),
			Misses:        tm.Misses.Load(),
			Rebuilds:      tm.Rebuilds.Load(),
			Discarded:     tm.Discarded.Load(),
			Invalidations: tm.Invalidations.Load(),
		}
	}

	return &MetricsSnapshot{
		Builds:          m.builds.Load(),
		PersistFailures: m.persistFailures.Load(),
		SourceFailures:  m.sourceFailures.Load(),
		CorruptBlobs:    m.corruptBlobs.Load(),
		Tiers:           tiers,
		P50BuildMs:      percentile(m.durations, 0.50),
		P95BuildMs:      percentile(m.durations, 0.95),
	}
}

// MetricsSnapshot represents a point-in-time snapshot of metrics.
type MetricsSnapshot struct {
	Builds          int64                   `json:"builds"`
	PersistFailures int64                   `json:"persist_failures"`
	SourceFailures  int64                   `json:"source_failures"`
	CorruptBlobs    int64                   `json:"corrupt_blobs"`
	Tiers           map[string]TierSnapshot `json:"tiers"`
	P50BuildMs      int64                   `json:"p50_build_ms"`
	P95BuildMs      int64                   `json:"p95_build_ms"`
}

// TierSnapshot represents counters for one tier.
type TierSnapshot struct {
	Hits          int64 `json:"hits"`
	Misses        int64 `json:"misses"`
	Rebuilds      int64 `json:"rebuilds"`
	Discarded     int64 `json:"discarded"`
	Invalidations int64 `json:"invalidations"`
}

// HitRate returns hits / (hits + misses) as a percentage (0-100).
func (s TierSnapshot) HitRate() float64 {
	total := s.Hits + s.Misses
	if total == 0 {
		return 0
	}
	return float64(s.Hits) / float64(total) * 100.0
}

func percentile(durations []time.Duration, q float64) int64 {
	if len(durations) == 0 {
		return 0
	}
	sorted := make([]time.Duration, len(durations))
	copy(sorted, durations)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })
	idx := int(float64(len(sorted)-1) * q)
	return sorted[idx].Milliseconds()
}
