// Package habit learns the slow-moving user profile: persona, peak hours, session
// length and tone preferences.
package habit

import (
	"time"
)

// Persona is a coarse behavioral classification.
type Persona string

const (
	PersonaUnknown         Persona = "unknown"
	PersonaMorningWarrior  Persona = "morningWarrior"
	PersonaNightOwl        Persona = "nightOwl"
	PersonaSprintWorker    Persona = "sprintWorker"
	PersonaMarathonRunner  Persona = "marathonRunner"
	PersonaFlexibleAdapter Persona = "flexibleAdapter"
)

// Response styles.
const (
	ResponseConcise  = "concise"
	ResponseBalanced = "balanced"
	ResponseDetailed = "detailed"
)

// Nudge frequencies.
const (
	NudgeLow    = "low"
	NudgeMedium = "medium"
	NudgeHigh   = "high"
)

// Profile collection bounds.
const (
	MaxEffectiveMotivations  = 30
	MaxIneffectiveApproaches = 20
	MaxSuccessPatterns       = 50
)

// MotivationRecord is an approach that worked.
type MotivationRecord struct {
	Approach string    `json:"approach"`
	Context  string    `json:"context,omitempty"`
	At       time.Time `json:"at"`
}

// SuccessPattern counts successful actions per (hour, weekday, action).
type SuccessPattern struct {
	Hour         int          `json:"hour"`
	Weekday      time.Weekday `json:"weekday"`
	Action       string       `json:"action"`
	Count        int          `json:"count"`
	LastOccurred time.Time    `json:"last_occurred"`
}

// UserProfile is the persisted learned profile.
type UserProfile struct {
	Persona                Persona            `json:"persona"`
	MotivationStyle        string             `json:"motivation_style"`
	PeakHours              [3]int             `json:"peak_hours"`
	PreferredSessionLength int                `json:"preferred_session_length"`
	ResponseStyle          string             `json:"response_style"`
	NudgeFrequency         string             `json:"nudge_frequency"`
	ActionBias             string             `json:"action_bias"`
	EffectiveMotivations   []MotivationRecord `json:"effective_motivations"`
	IneffectiveApproaches  []string           `json:"ineffective_approaches"`
	FeatureUsage           map[string]int     `json:"feature_usage"`
	SuccessPatterns        []SuccessPattern   `json:"success_patterns"`
	LastAnalyzedAt         *time.Time         `json:"last_analyzed_at,omitempty"`
	SessionsAnalyzed       int                `json:"sessions_analyzed"`
}

// DefaultPeakHours is used until enough history exists.
var DefaultPeakHours = [3]int{9, 14, 20}

// DefaultUserProfile returns the profile used when nothing is persisted.
func DefaultUserProfile() UserProfile {
	return UserProfile{
		Persona:                PersonaUnknown,
		MotivationStyle:        "balanced",
		PeakHours:              DefaultPeakHours,
		PreferredSessionLength: 25,
		ResponseStyle:          ResponseBalanced,
		NudgeFrequency:         NudgeMedium,
		ActionBias:             "focus",
		EffectiveMotivations:   []MotivationRecord{},
		IneffectiveApproaches:  []string{},
		FeatureUsage:           map[string]int{},
		SuccessPatterns:        []SuccessPattern{},
	}
}

// Clone returns a deep copy.
func (p UserProfile) Clone() UserProfile {
	out := p
	out.EffectiveMotivations = append([]MotivationRecord{}, p.EffectiveMotivations...)
	out.IneffectiveApproaches = append([]string{}, p.IneffectiveApproaches...)
	out.SuccessPatterns = append([]SuccessPattern{}, p.SuccessPatterns...)
	out.FeatureUsage = make(map[string]int, len(p.FeatureUsage))
	for k, v := range p.FeatureUsage {
		out.FeatureUsage[k] = v
	}
	if p.LastAnalyzedAt != nil {
		t := *p.LastAnalyzedAt
		out.LastAnalyzedAt = &t
	}
	return out
}

func (p *UserProfile) normalize() {
	if p.Persona == "" {
		p.Persona = PersonaUnknown
	}
	if p.EffectiveMotivations == nil {
		p.EffectiveMotivations = []MotivationRecord{}
	}
	if p.IneffectiveApproaches == nil {
		p.IneffectiveApproaches = []string{}
	}
	if p.FeatureUsage == nil {
		p.FeatureUsage = map[string]int{}
	}
	if p.SuccessPatterns == nil {
		p.SuccessPatterns = []SuccessPattern{}
	}
	if n := len(p.EffectiveMotivations); n > MaxEffectiveMotivations {
		p.EffectiveMotivations = append([]MotivationRecord{}, p.EffectiveMotivations[n-MaxEffectiveMotivations:]...)
	}
	if n := len(p.IneffectiveApproaches); n > MaxIneffectiveApproaches {
		p.IneffectiveApproaches = append([]string{}, p.IneffectiveApproaches[n-MaxIneffectiveApproaches:]...)
	}
	for len(p.SuccessPatterns) > MaxSuccessPatterns {
		p.SuccessPatterns = evictLeastRecent(p.SuccessPatterns)
	}
}

// AnalysisConfig holds configuration for profile analysis.
type AnalysisConfig struct {
	// Window is how many of the most recent sessions are analyzed
	Window int `json:"window"`
	// MinSessions is the minimum history required to infer a persona
	MinSessions int `json:"min_sessions"`
	// Interval is the period of the background re-analysis
	Interval time.Duration `json:"interval"`
}

// DefaultAnalysisConfig returns the default analysis configuration.
func DefaultAnalysisConfig() *AnalysisConfig {
	return &AnalysisConfig{
		Window:      50,
		MinSessions: 10,
		Interval:    time.Hour,
	}
}
