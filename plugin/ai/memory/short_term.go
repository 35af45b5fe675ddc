package memory

import (
	"strings"
)

// appendBounded appends v and evicts from the front until len <= maxSize.
func appendBounded[T any](items []T, v T, maxSize int) []T {
	items = append(items, v)
	return trimFront(items, maxSize)
}

// appendUnique appends a non-empty string. An equal one (case-insensitive) already
// present is moved to the tail instead, so re-mentioned items count as the newest.
func appendUnique(items []string, v string, maxSize int) []string {
	v = strings.TrimSpace(v)
	if v == "" {
		return items
	}
	for i, existing := range items {
		if strings.EqualFold(existing, v) {
			items = append(items[:i:i], items[i+1:]...)
			return appendBounded(items, existing, maxSize)
		}
	}
	return appendBounded(items, v, maxSize)
}

// trimFront keeps the newest maxSize items.
func trimFront[T any](items []T, maxSize int) []T {
	if len(items) <= maxSize {
		return items
	}
	out := make([]T, maxSize)
	copy(out, items[len(items)-maxSize:])
	return out
}

// enforceBounds trims every bounded collection. Mutators can append freely; the
// choke point restores the caps before persisting.
func (m *Memory) enforceBounds() {
	m.RecentGoals = trimFront(m.RecentGoals, MaxRecentGoals)
	m.LearnedFacts = trimFront(m.LearnedFacts, MaxLearnedFacts)
	m.UserGoals = trimFront(m.UserGoals, MaxUserGoals)
	m.UserChallenges = trimFront(m.UserChallenges, MaxUserChallenges)
	m.ConversationSummaries = trimFront(m.ConversationSummaries, MaxConversationSummaries)
}

func (p *LearnedPatterns) enforceBounds() {
	p.PreferredFocusDurations = trimFront(p.PreferredFocusDurations, MaxFocusDurations)
	if p.ActionFrequency == nil {
		p.ActionFrequency = map[string]int{}
	}
	if p.HourlyActionPatterns == nil {
		p.HourlyActionPatterns = map[int]map[string]int{}
	}
	if p.CommonTaskTypes == nil {
		p.CommonTaskTypes = map[string]int{}
	}
}

// meanDuration returns the integer mean, or nil for an empty history.
func meanDuration(durations []int) *int {
	if len(durations) == 0 {
		return nil
	}
	sum := 0
	for _, d := range durations {
		sum += d
	}
	mean := sum / len(durations)
	return &mean
}
