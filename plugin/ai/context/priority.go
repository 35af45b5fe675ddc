// Package context assembles the assistant system prompt from the cached tiers.
package context

import (
	"sort"
	"unicode/utf8"
)

const (
	// DefaultMaxTokens bounds the full context when no budget is configured.
	DefaultMaxTokens = 2048
	// MinSegmentTokens is the smallest remainder worth filling with a truncated segment.
	MinSegmentTokens = 20
)

// ContextPriority represents the priority level of a context segment.
type ContextPriority int

const (
	PriorityHeader       ContextPriority = 100 // Role, user and clock - highest
	PriorityProgress     ContextPriority = 90  // Today's progress
	PriorityTasks        ContextPriority = 85  // Today's tasks
	PriorityIntelligence ContextPriority = 80  // Signals and momentum
	PriorityMemory       ContextPriority = 70  // Long-term memory and profile
	PriorityPresets      ContextPriority = 60  // Timer presets
)

// ContextSegment represents a piece of context with priority.
type ContextSegment struct {
	Content   string
	Priority  ContextPriority
	TokenCost int
	Source    string // "header", "task", "progress", "preset", "memory", "intelligence"
	order     int
}

// NewSegment estimates the token cost of content.
func NewSegment(source, content string, priority ContextPriority) *ContextSegment {
	return &ContextSegment{
		Content:   content,
		Priority:  priority,
		TokenCost: EstimateTokens(content),
		Source:    source,
	}
}

// PriorityRanker ranks and truncates context segments by priority.
type PriorityRanker struct{}

// NewPriorityRanker creates a new priority ranker.
func NewPriorityRanker() *PriorityRanker {
	return &PriorityRanker{}
}

// RankAndTruncate keeps the highest priority segments that fit budget, truncating
// the first one that does not. Kept segments are returned in their input order.
func (r *PriorityRanker) RankAndTruncate(segments []*ContextSegment, budget int) []*ContextSegment {
	if len(segments) == 0 {
		return nil
	}

	sorted := make([]*ContextSegment, len(segments))
	for i, seg := range segments {
		cp := *seg
		cp.order = i
		sorted[i] = &cp
	}
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Priority > sorted[j].Priority
	})

	var result []*ContextSegment
	usedTokens := 0

	for _, seg := range sorted {
		if seg.TokenCost <= 0 {
			continue
		}

		if usedTokens+seg.TokenCost <= budget {
			result = append(result, seg)
			usedTokens += seg.TokenCost
			continue
		}

		remaining := budget - usedTokens
		if remaining >= MinSegmentTokens {
			if truncated := truncateToTokens(seg.Content, remaining); len(truncated) > 0 {
				seg.Content = truncated
				seg.TokenCost = remaining
				result = append(result, seg)
			}
		}
		break
	}

	sort.Slice(result, func(i, j int) bool { return result[i].order < result[j].order })
	return result
}

// PrioritizeAndTruncate is a convenience function.
func PrioritizeAndTruncate(segments []*ContextSegment, budget int) []*ContextSegment {
	return NewPriorityRanker().RankAndTruncate(segments, budget)
}

// truncateToTokens cuts content so its EstimateTokens cost, ellipsis included,
// stays within maxTokens.
func truncateToTokens(content string, maxTokens int) string {
	if maxTokens <= 0 {
		return ""
	}
	if EstimateTokens(content) <= maxTokens {
		return content
	}

	// Costs in quarter tokens: ASCII 1, wide 8. The ellipsis takes 3.
	budget := maxTokens*4 - 3
	used := 0
	cut := 0
	for i, r := range content {
		cost := 1
		if r >= 128 {
			cost = 8
		}
		if used+cost > budget {
			break
		}
		used += cost
		cut = i + utf8.RuneLen(r)
	}
	if cut == 0 {
		return ""
	}
	return content[:cut] + "..."
}

// EstimateTokens estimates the token count for a string.
// ASCII counts ~0.25 tokens per char, anything wider ~2 tokens per char.
func EstimateTokens(content string) int {
	if len(content) == 0 {
		return 0
	}

	wideCount := 0
	asciiCount := 0
	for _, r := range content {
		if r < 128 {
			asciiCount++
		} else {
			wideCount++
		}
	}

	tokens := wideCount*2 + asciiCount/4
	if tokens == 0 {
		tokens = 1
	}
	return tokens
}
