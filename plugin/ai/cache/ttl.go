// Package cache serves the five context tiers with independent TTLs and turns
// upstream change notifications into targeted invalidations.
package cache

import (
	"time"

	"github.com/pkg/errors"
)

// Tier is one independently cached context string.
type Tier string

const (
	TierTask     Tier = "task"
	TierProgress Tier = "progress"
	TierPreset   Tier = "preset"
	TierMemory   Tier = "memory"
	TierFull     Tier = "full"
)

// Tiers lists every tier, dependencies first.
var Tiers = []Tier{TierTask, TierProgress, TierPreset, TierMemory, TierFull}

// cascades reports whether invalidating t must also invalidate the full tier.
func cascades(t Tier) bool {
	return t != TierFull
}

// TTLConfig holds the per-tier time-to-live.
type TTLConfig struct {
	Task     time.Duration
	Progress time.Duration
	Preset   time.Duration
	Memory   time.Duration
	Full     time.Duration
}

// DefaultTTLConfig returns the default TTLs.
func DefaultTTLConfig() TTLConfig {
	return TTLConfig{
		Task:     30 * time.Second,
		Progress: 60 * time.Second,
		Preset:   120 * time.Second,
		Memory:   180 * time.Second,
		Full:     15 * time.Second,
	}
}

// For returns the TTL of t.
func (c TTLConfig) For(t Tier) time.Duration {
	switch t {
	case TierTask:
		return c.Task
	case TierProgress:
		return c.Progress
	case TierPreset:
		return c.Preset
	case TierMemory:
		return c.Memory
	case TierFull:
		return c.Full
	default:
		return 0
	}
}

// Validate enforces positive TTLs ordered full <= task < progress < preset < memory.
func (c TTLConfig) Validate() error {
	for _, t := range Tiers {
		if c.For(t) <= 0 {
			return errors.Errorf("%s ttl must be positive, got %s", t, c.For(t))
		}
	}
	switch {
	case c.Full > c.Task:
		return errors.Errorf("full ttl %s must not exceed task ttl %s", c.Full, c.Task)
	case c.Task >= c.Progress:
		return errors.Errorf("task ttl %s must be shorter than progress ttl %s", c.Task, c.Progress)
	case c.Progress >= c.Preset:
		return errors.Errorf("progress ttl %s must be shorter than preset ttl %s", c.Progress, c.Preset)
	case c.Preset >= c.Memory:
		return errors.Errorf("preset ttl %s must be shorter than memory ttl %s", c.Preset, c.Memory)
	}
	return nil
}
