package habit

import (
	"math"
	"sort"
	"time"

	"github.com/hrygo/focusmind/plugin/ai/activity"
	"github.com/hrygo/focusmind/plugin/ai/behavior"
)

// recentSessions returns the newest window sessions, oldest first.
func recentSessions(sessions []activity.SessionRecord, window int) []activity.SessionRecord {
	sorted := append([]activity.SessionRecord(nil), sessions...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Date.Before(sorted[j].Date) })
	if window > 0 && len(sorted) > window {
		sorted = sorted[len(sorted)-window:]
	}
	return sorted
}

func isMorning(hour int) bool { return hour >= 5 && hour <= 11 }
func isEvening(hour int) bool { return hour >= 17 && hour <= 23 }

// InferPersona classifies sessions by their start hours in loc. Fewer than
// minSessions always yields PersonaUnknown.
func InferPersona(sessions []activity.SessionRecord, minSessions int, loc *time.Location) Persona {
	if len(sessions) < minSessions || len(sessions) == 0 {
		return PersonaUnknown
	}

	morning, evening, seconds := 0, 0, 0
	for _, s := range sessions {
		h := s.Date.In(loc).Hour()
		switch {
		case isMorning(h):
			morning++
		case isEvening(h):
			evening++
		}
		seconds += s.DurationSeconds
	}

	avgMinutes := float64(seconds) / 60 / float64(len(sessions))
	switch {
	case morning > 2*evening:
		return PersonaMorningWarrior
	case evening > 2*morning:
		return PersonaNightOwl
	case avgMinutes <= 20:
		return PersonaSprintWorker
	case avgMinutes >= 40:
		return PersonaMarathonRunner
	default:
		return PersonaFlexibleAdapter
	}
}

// medianMinutes returns the median session length rounded to the nearest 5 minutes.
func medianMinutes(sessions []activity.SessionRecord) int {
	if len(sessions) == 0 {
		return 0
	}
	mins := make([]float64, len(sessions))
	for i, s := range sessions {
		mins[i] = float64(s.DurationSeconds) / 60
	}
	sort.Float64s(mins)
	mid := len(mins) / 2
	median := mins[mid]
	if len(mins)%2 == 0 {
		median = (mins[mid-1] + mins[mid]) / 2
	}
	rounded := int(math.Round(median/5) * 5)
	if rounded < 5 {
		rounded = 5
	}
	return rounded
}

func responseStyleFor(p Persona) string {
	switch p {
	case PersonaSprintWorker:
		return ResponseConcise
	case PersonaMarathonRunner:
		return ResponseDetailed
	default:
		return ResponseBalanced
	}
}

// nudgeFrequencyFor maps sessions per active day to how often to nudge.
// Users who already focus often need fewer nudges.
func nudgeFrequencyFor(sessions []activity.SessionRecord, loc *time.Location) string {
	days := make(map[time.Time]struct{})
	for _, s := range sessions {
		days[activity.DayIn(s.Date, loc)] = struct{}{}
	}
	if len(days) == 0 {
		return NudgeMedium
	}
	perDay := float64(len(sessions)) / float64(len(days))
	switch {
	case perDay >= 3:
		return NudgeLow
	case perDay < 1.5:
		return NudgeHigh
	default:
		return NudgeMedium
	}
}

func actionBiasFor(usage map[string]int) string {
	best, bestCount := "", 0
	for feature, count := range usage {
		if count > bestCount || (count == bestCount && feature < best) {
			best, bestCount = feature, count
		}
	}
	if best == "" {
		return "focus"
	}
	return best
}

// peakHoursFor fills the top three start hours, topping up from the defaults.
func peakHoursFor(sessions []activity.SessionRecord, loc *time.Location) [3]int {
	var out [3]int
	hours := behavior.PeakHours(sessions, 3, loc)
	for _, h := range DefaultPeakHours {
		if len(hours) == 3 {
			break
		}
		seen := false
		for _, existing := range hours {
			if existing == h {
				seen = true
				break
			}
		}
		if !seen {
			hours = append(hours, h)
		}
	}
	copy(out[:], hours)
	return out
}

// applyAnalysis recomputes the session-derived fields of p.
func applyAnalysis(p *UserProfile, sessions []activity.SessionRecord, cfg *AnalysisConfig, now time.Time) {
	window := recentSessions(sessions, cfg.Window)

	p.Persona = InferPersona(window, cfg.MinSessions, now.Location())
	p.SessionsAnalyzed = len(window)
	p.LastAnalyzedAt = &now
	p.ActionBias = actionBiasFor(p.FeatureUsage)

	if len(window) == 0 {
		return
	}
	p.PeakHours = peakHoursFor(window, now.Location())
	p.PreferredSessionLength = medianMinutes(window)
	p.ResponseStyle = responseStyleFor(p.Persona)
	p.NudgeFrequency = nudgeFrequencyFor(window, now.Location())
}

// mergeSuccessPattern increments the record for (hour, weekday, action) or adds one,
// evicting the least recently occurred record beyond the cap.
func mergeSuccessPattern(patterns []SuccessPattern, hour int, weekday time.Weekday, action string, at time.Time) []SuccessPattern {
	for i := range patterns {
		p := &patterns[i]
		if p.Hour == hour && p.Weekday == weekday && p.Action == action {
			p.Count++
			p.LastOccurred = at
			return patterns
		}
	}
	patterns = append(patterns, SuccessPattern{Hour: hour, Weekday: weekday, Action: action, Count: 1, LastOccurred: at})
	for len(patterns) > MaxSuccessPatterns {
		patterns = evictLeastRecent(patterns)
	}
	return patterns
}

func evictLeastRecent(patterns []SuccessPattern) []SuccessPattern {
	oldest := 0
	for i := range patterns {
		if patterns[i].LastOccurred.Before(patterns[oldest].LastOccurred) {
			oldest = i
		}
	}
	return append(patterns[:oldest:oldest], patterns[oldest+1:]...)
}
