package habit

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

var personaDescriptions = map[Persona]string{
	PersonaMorningWarrior:  "does their best work in the morning",
	PersonaNightOwl:        "does their best work in the evening",
	PersonaSprintWorker:    "prefers short focused sprints",
	PersonaMarathonRunner:  "prefers long deep-work sessions",
	PersonaFlexibleAdapter: "adapts session length to the task",
}

var responseInstructions = map[string]string{
	ResponseConcise:  "Keep replies short and actionable.",
	ResponseBalanced: "Keep replies brief, with one line of context when useful.",
	ResponseDetailed: "Detailed explanations are welcome.",
}

// PromptHints turns the profile into short guidance lines for the assistant prompt.
func PromptHints(p UserProfile, now time.Time) []string {
	var hints []string

	if desc, ok := personaDescriptions[p.Persona]; ok {
		hints = append(hints, fmt.Sprintf("Persona: %s (%s).", p.Persona, desc))
	}
	if instr, ok := responseInstructions[p.ResponseStyle]; ok {
		hints = append(hints, instr)
	}
	if p.PreferredSessionLength > 0 {
		hints = append(hints, fmt.Sprintf("Typical session length: %d min.", p.PreferredSessionLength))
	}
	switch p.NudgeFrequency {
	case NudgeLow:
		hints = append(hints, "Avoid unprompted nudges; the user already focuses often.")
	case NudgeHigh:
		hints = append(hints, "Gentle nudges toward starting a session are welcome.")
	}
	if action := bestActionAt(p.SuccessPatterns, now); action != "" {
		hints = append(hints, fmt.Sprintf("At this hour the user usually succeeds with: %s.", action))
	}
	if len(p.IneffectiveApproaches) > 0 {
		recent := p.IneffectiveApproaches
		if len(recent) > 3 {
			recent = recent[len(recent)-3:]
		}
		hints = append(hints, fmt.Sprintf("Approaches that did not land: %s.", strings.Join(recent, ", ")))
	}
	return hints
}

// bestActionAt returns the most counted success pattern action for now's hour and weekday.
func bestActionAt(patterns []SuccessPattern, now time.Time) string {
	var matches []SuccessPattern
	for _, p := range patterns {
		if p.Hour == now.Hour() && p.Weekday == now.Weekday() {
			matches = append(matches, p)
		}
	}
	if len(matches) == 0 {
		return ""
	}
	sort.Slice(matches, func(i, j int) bool {
		if matches[i].Count != matches[j].Count {
			return matches[i].Count > matches[j].Count
		}
		return matches[i].Action < matches[j].Action
	})
	return matches[0].Action
}
