package context

import (
	"fmt"
	"strings"
	"time"

	"github.com/hrygo/focusmind/plugin/ai/habit"
	"github.com/hrygo/focusmind/plugin/ai/memory"
)

const recentIntents = 3

// FormatMemory renders the long-term memory and the learned profile.
func FormatMemory(m memory.Memory, p habit.UserProfile, now time.Time) string {
	var parts []string

	parts = append(parts, fmt.Sprintf("Motivation style: %s.", m.MotivationStyle))
	if m.PreferredFocusDuration != nil {
		parts = append(parts, fmt.Sprintf("Preferred focus length: %d min.", *m.PreferredFocusDuration))
	}
	if len(m.UserGoals) > 0 {
		parts = append(parts, "Goals: "+strings.Join(m.UserGoals, "; ")+".")
	}
	if len(m.RecentGoals) > 0 {
		parts = append(parts, "Recently mentioned: "+strings.Join(m.RecentGoals, "; ")+".")
	}
	if len(m.UserChallenges) > 0 {
		parts = append(parts, "Challenges: "+strings.Join(m.UserChallenges, "; ")+".")
	}
	if len(m.LearnedFacts) > 0 {
		parts = append(parts, "Known facts: "+strings.Join(m.LearnedFacts, "; ")+".")
	}
	if intents := lastIntents(m.ConversationSummaries, recentIntents); len(intents) > 0 {
		parts = append(parts, "Recent requests: "+strings.Join(intents, ", ")+".")
	}
	if m.TotalConversations > 0 {
		parts = append(parts, fmt.Sprintf("Conversations so far: %d (%d positive, %d negative).",
			m.TotalConversations, m.PositiveInteractions, m.NegativeInteractions))
	}
	parts = append(parts, habit.PromptHints(p, now)...)

	return "### Memory\n" + strings.Join(parts, "\n")
}

// lastIntents returns up to n most recent non-empty intents, newest first.
func lastIntents(summaries []memory.ConversationSummary, n int) []string {
	var out []string
	for i := len(summaries) - 1; i >= 0 && len(out) < n; i-- {
		if summaries[i].Intent != "" {
			out = append(out, summaries[i].Intent)
		}
	}
	return out
}
