package context

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/hrygo/focusmind/plugin/ai/activity"
	"github.com/hrygo/focusmind/plugin/ai/behavior"
)

// The short-term tiers describe today's state: tasks, progress and presets.

const maxListedTasks = 10

// FormatTasks lists today's tasks with completion marks, overdue items first.
func FormatTasks(tasks []activity.TaskRecord, completed func(string, time.Time) bool, now time.Time) string {
	today := activity.Day(now)

	var current []activity.TaskRecord
	for _, t := range tasks {
		if t.ScheduledOn(today) {
			current = append(current, t)
		}
	}
	if len(current) == 0 {
		return "### Tasks\nNo tasks scheduled for today."
	}

	sort.SliceStable(current, func(i, j int) bool {
		return strings.ToLower(current[i].Title) < strings.ToLower(current[j].Title)
	})

	var done, pending, overdue []string
	totalPending := 0
	for _, t := range current {
		if completed(t.ID, today) {
			done = append(done, fmt.Sprintf("- [x] %s", t.Title))
			continue
		}
		line := fmt.Sprintf("- [ ] %s", t.Title)
		if t.DurationMinutes > 0 {
			line += fmt.Sprintf(" (%d min)", t.DurationMinutes)
			totalPending += t.DurationMinutes
		}
		if due, ok := reminderToday(t, now); ok && due.Before(now) {
			overdue = append(overdue, line+fmt.Sprintf(" overdue since %s", due.Format("15:04")))
			continue
		}
		pending = append(pending, line)
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "### Tasks\n%d of %d done today", len(done), len(current))
	if totalPending > 0 {
		fmt.Fprintf(&sb, ", about %d min of work left", totalPending)
	}
	sb.WriteString(".\n")

	lines := make([]string, 0, len(current))
	lines = append(lines, overdue...)
	lines = append(lines, pending...)
	lines = append(lines, done...)
	if len(lines) > maxListedTasks {
		rest := len(lines) - maxListedTasks
		lines = append(lines[:maxListedTasks], fmt.Sprintf("- ...and %d more", rest))
	}
	sb.WriteString(strings.Join(lines, "\n"))
	return sb.String()
}

// reminderToday returns the reminder instant of t on now's day.
func reminderToday(t activity.TaskRecord, now time.Time) (time.Time, bool) {
	if t.ReminderDate == nil {
		return time.Time{}, false
	}
	r := t.ReminderDate.In(now.Location())
	if t.RepeatRule == "" || t.RepeatRule == activity.RepeatNone {
		return r, true
	}
	day := activity.Day(now)
	return time.Date(day.Year(), day.Month(), day.Day(), r.Hour(), r.Minute(), 0, 0, now.Location()), true
}

// FormatProgress summarizes today's focus time against the goal.
func FormatProgress(perf behavior.Performance, now time.Time) string {
	var sb strings.Builder
	sb.WriteString("### Progress\n")
	fmt.Fprintf(&sb, "Today: %d of %d min (%d%%) across %d sessions", perf.TodayMinutes, perf.GoalMinutes, perf.TodayPercent, perf.TodaySessions)
	if perf.GoalMet {
		sb.WriteString(", goal met")
	}
	sb.WriteString(".\n")
	fmt.Fprintf(&sb, "Streak: %d days (longest %d). This week: %d min. Lifetime: %d min.", perf.Streak, perf.LongestStreak, perf.WeekMinutes, perf.LifetimeMinutes)
	if perf.LastSessionAt != nil {
		fmt.Fprintf(&sb, "\nLast session: %s.", relativeTime(*perf.LastSessionAt, now))
	}
	return sb.String()
}

func relativeTime(t, now time.Time) string {
	d := now.Sub(t)
	switch {
	case d < time.Minute:
		return "just now"
	case d < time.Hour:
		return fmt.Sprintf("%d min ago", int(d.Minutes()))
	case d < 24*time.Hour:
		return fmt.Sprintf("%d h ago", int(d.Hours()))
	default:
		return t.Format("Mon Jan 2 15:04")
	}
}

// FormatPresets lists the timer presets, marking the active one.
func FormatPresets(presets []activity.PresetRecord, activeID string) string {
	if len(presets) == 0 {
		return "### Presets\nNo timer presets configured."
	}

	var sb strings.Builder
	sb.WriteString("### Presets\n")
	for i, p := range presets {
		if i > 0 {
			sb.WriteString("\n")
		}
		fmt.Fprintf(&sb, "- %s: %d min focus / %d min break", p.Name, p.FocusMinutes, p.BreakMinutes)
		if p.ID == activeID {
			sb.WriteString(" (active)")
		}
	}
	return sb.String()
}
