package ai

import (
	"time"

	"github.com/pkg/errors"

	"github.com/hrygo/focusmind/internal/profile"
	"github.com/hrygo/focusmind/plugin/ai/behavior"
	"github.com/hrygo/focusmind/plugin/ai/cache"
	aicontext "github.com/hrygo/focusmind/plugin/ai/context"
	"github.com/hrygo/focusmind/plugin/ai/habit"
)

// Config represents the engine configuration derived from the profile.
type Config struct {
	Cache    cache.TTLConfig
	Debounce time.Duration
	Learner  habit.AnalysisConfig
	Context  aicontext.Config
	Rules    []behavior.RuleSpec

	compiled *behavior.RuleSet
}

// NewConfigFromProfile creates the engine config from profile.
func NewConfigFromProfile(p *profile.Profile) *Config {
	ttl := cache.TTLConfig{
		Task:     p.Cache.TaskTTL,
		Progress: p.Cache.ProgressTTL,
		Preset:   p.Cache.PresetTTL,
		Memory:   p.Cache.MemoryTTL,
		Full:     p.Cache.FullTTL,
	}

	learner := *habit.DefaultAnalysisConfig()
	if p.Learner.Window > 0 {
		learner.Window = p.Learner.Window
	}
	if p.Learner.Interval > 0 {
		learner.Interval = p.Learner.Interval
	}

	ctxCfg := aicontext.DefaultConfig()
	ctxCfg.TTL = ttl
	if p.Context.MaxTokens > 0 {
		ctxCfg.MaxTokens = p.Context.MaxTokens
	}

	rules := make([]behavior.RuleSpec, 0, len(p.Rules))
	for _, r := range p.Rules {
		rules = append(rules, behavior.RuleSpec{Name: r.Name, Kind: r.Kind, Expr: r.Expr, Message: r.Message})
	}

	return &Config{
		Cache:    ttl,
		Debounce: p.Cache.Debounce,
		Learner:  learner,
		Context:  ctxCfg,
		Rules:    rules,
	}
}

// Validate checks the TTL ordering and compiles the custom rules.
func (c *Config) Validate() error {
	if err := c.Cache.Validate(); err != nil {
		return errors.Wrap(err, "invalid cache ttls")
	}
	if c.Debounce < 0 {
		return errors.New("debounce must be >= 0")
	}
	if c.Learner.Interval <= 0 {
		return errors.Errorf("learner interval must be > 0, got %s", c.Learner.Interval)
	}
	if c.Learner.Window < c.Learner.MinSessions {
		return errors.Errorf("learner window %d is smaller than the %d sessions needed for a persona", c.Learner.Window, c.Learner.MinSessions)
	}
	rules, err := behavior.CompileRules(c.Rules)
	if err != nil {
		return errors.Wrap(err, "invalid rules")
	}
	c.compiled = rules
	return nil
}

// RuleSet returns the rules compiled by Validate, or nil before a successful Validate.
func (c *Config) RuleSet() *behavior.RuleSet {
	return c.compiled
}
