// Package memory owns the long-horizon user memory and the learned action patterns.
// Every mutation goes through Store.Update or Store.UpdatePatterns, which persist
// the aggregate before returning.
package memory

import (
	"context"
	"time"
)

// Bounds of the memory collections. Overflow evicts the oldest entries.
const (
	MaxRecentGoals           = 5
	MaxLearnedFacts          = 20
	MaxUserGoals             = 10
	MaxUserChallenges        = 10
	MaxConversationSummaries = 10
	MaxFocusDurations        = 20
)

// Motivation styles.
const (
	MotivationBalanced    = "balanced"
	MotivationEncouraging = "encouraging"
	MotivationDirect      = "direct"
)

// Actions with learning side effects.
const (
	ActionStartFocus   = "start_focus"
	ActionCompleteTask = "complete_task"
)

// Memory is the persisted long-horizon user memory.
type Memory struct {
	PreferredFocusDuration *int                  `json:"preferred_focus_duration,omitempty"`
	PeakHours              []int                 `json:"peak_hours"`
	RecentGoals            []string              `json:"recent_goals"`
	TotalConversations     int                   `json:"total_conversations"`
	PositiveInteractions   int                   `json:"positive_interactions"`
	NegativeInteractions   int                   `json:"negative_interactions"`
	MotivationStyle        string                `json:"motivation_style"`
	LastSessionDate        *time.Time            `json:"last_session_date,omitempty"`
	TotalSessions          int                   `json:"total_sessions"`
	LearnedFacts           []string              `json:"learned_facts"`
	UserGoals              []string              `json:"user_goals"`
	UserChallenges         []string              `json:"user_challenges"`
	ConversationSummaries  []ConversationSummary `json:"conversation_summaries"`
}

// ConversationSummary records the outcome of one assistant conversation.
type ConversationSummary struct {
	ID        string    `json:"id"`
	Intent    string    `json:"intent"`
	Actions   []string  `json:"actions"`
	Satisfied *bool     `json:"satisfied,omitempty"`
	At        time.Time `json:"at"`
}

// LearnedPatterns holds the action histograms.
type LearnedPatterns struct {
	ActionFrequency         map[string]int         `json:"action_frequency"`
	HourlyActionPatterns    map[int]map[string]int `json:"hourly_action_patterns"`
	PreferredFocusDurations []int                  `json:"preferred_focus_durations"`
	CommonTaskTypes         map[string]int         `json:"common_task_types"`
}

// ActionContext describes an executed action.
type ActionContext struct {
	Hour            int    `json:"hour"`
	DurationMinutes int    `json:"duration_minutes,omitempty"`
	TaskType        string `json:"task_type,omitempty"`
}

// DefaultMemory returns the memory used when nothing is persisted.
func DefaultMemory() Memory {
	return Memory{
		PeakHours:             []int{},
		RecentGoals:           []string{},
		MotivationStyle:       MotivationBalanced,
		LearnedFacts:          []string{},
		UserGoals:             []string{},
		UserChallenges:        []string{},
		ConversationSummaries: []ConversationSummary{},
	}
}

// DefaultPatterns returns empty histograms.
func DefaultPatterns() LearnedPatterns {
	return LearnedPatterns{
		ActionFrequency:         map[string]int{},
		HourlyActionPatterns:    map[int]map[string]int{},
		PreferredFocusDurations: []int{},
		CommonTaskTypes:         map[string]int{},
	}
}

// BlobStore is the persistence the memory store needs. *store.Store satisfies it.
type BlobStore interface {
	GetJSON(ctx context.Context, key string, v any) (bool, error)
	SetJSON(ctx context.Context, key string, v any) error
	Delete(ctx context.Context, key string) error
}

// Clone returns a deep copy.
func (m Memory) Clone() Memory {
	out := m
	if m.PreferredFocusDuration != nil {
		v := *m.PreferredFocusDuration
		out.PreferredFocusDuration = &v
	}
	if m.LastSessionDate != nil {
		v := *m.LastSessionDate
		out.LastSessionDate = &v
	}
	out.PeakHours = append([]int{}, m.PeakHours...)
	out.RecentGoals = append([]string{}, m.RecentGoals...)
	out.LearnedFacts = append([]string{}, m.LearnedFacts...)
	out.UserGoals = append([]string{}, m.UserGoals...)
	out.UserChallenges = append([]string{}, m.UserChallenges...)
	out.ConversationSummaries = make([]ConversationSummary, len(m.ConversationSummaries))
	for i, s := range m.ConversationSummaries {
		s.Actions = append([]string{}, s.Actions...)
		if s.Satisfied != nil {
			v := *s.Satisfied
			s.Satisfied = &v
		}
		out.ConversationSummaries[i] = s
	}
	return out
}

// Clone returns a deep copy.
func (p LearnedPatterns) Clone() LearnedPatterns {
	out := DefaultPatterns()
	for k, v := range p.ActionFrequency {
		out.ActionFrequency[k] = v
	}
	for h, m := range p.HourlyActionPatterns {
		inner := make(map[string]int, len(m))
		for k, v := range m {
			inner[k] = v
		}
		out.HourlyActionPatterns[h] = inner
	}
	out.PreferredFocusDurations = append(out.PreferredFocusDurations, p.PreferredFocusDurations...)
	for k, v := range p.CommonTaskTypes {
		out.CommonTaskTypes[k] = v
	}
	return out
}
