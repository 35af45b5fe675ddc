// Package activity defines the live activity data the engine reads from the app
// and the narrow source interfaces it consumes.
package activity

import (
	"time"
)

// SessionRecord is a completed focus session. Owned by the session store; never mutated here.
type SessionRecord struct {
	ID              string    `json:"id" yaml:"id"`
	Date            time.Time `json:"date" yaml:"date"`
	DurationSeconds int       `json:"duration_seconds" yaml:"duration_seconds"`
	Label           string    `json:"label,omitempty" yaml:"label,omitempty"`
}

// Minutes returns the session duration in whole minutes.
func (s SessionRecord) Minutes() int {
	return s.DurationSeconds / 60
}

// RepeatRule describes how a task recurs.
type RepeatRule string

const (
	RepeatNone     RepeatRule = "none"
	RepeatDaily    RepeatRule = "daily"
	RepeatWeekdays RepeatRule = "weekdays"
	RepeatWeekly   RepeatRule = "weekly"
)

// TaskRecord is a task as seen by the engine. Completion is looked up per calendar day
// through TaskSource.IsCompleted.
type TaskRecord struct {
	ID              string     `json:"id" yaml:"id"`
	Title           string     `json:"title" yaml:"title"`
	ReminderDate    *time.Time `json:"reminder_date,omitempty" yaml:"reminder_date,omitempty"`
	DurationMinutes int        `json:"duration_minutes" yaml:"duration_minutes"`
	RepeatRule      RepeatRule `json:"repeat_rule,omitempty" yaml:"repeat_rule,omitempty"`
}

// ScheduledOn reports whether the task is due on day.
// Tasks without a reminder are always considered current.
func (t TaskRecord) ScheduledOn(day time.Time) bool {
	if t.ReminderDate == nil {
		return true
	}
	start := DayIn(*t.ReminderDate, day.Location())
	day = Day(day)
	if day.Before(start) {
		return false
	}
	switch t.RepeatRule {
	case RepeatDaily:
		return true
	case RepeatWeekdays:
		wd := day.Weekday()
		return wd != time.Saturday && wd != time.Sunday
	case RepeatWeekly:
		return day.Weekday() == start.Weekday()
	default:
		return day.Equal(start)
	}
}

// PresetRecord is a focus/break timer preset.
type PresetRecord struct {
	ID           string `json:"id" yaml:"id"`
	Name         string `json:"name" yaml:"name"`
	FocusMinutes int    `json:"focus_minutes" yaml:"focus_minutes"`
	BreakMinutes int    `json:"break_minutes" yaml:"break_minutes"`
}

// ActiveFocus reports a running focus session.
type ActiveFocus struct {
	StartedAt time.Time `json:"started_at" yaml:"started_at"`
	PresetID  string    `json:"preset_id,omitempty" yaml:"preset_id,omitempty"`
}

// Settings is a read-only snapshot of user settings.
type Settings struct {
	DailyGoalMinutes int          `json:"daily_goal_minutes" yaml:"daily_goal_minutes"`
	DisplayName      string       `json:"display_name" yaml:"display_name"`
	SoundEnabled     bool         `json:"sound_enabled" yaml:"sound_enabled"`
	DarkTheme        bool         `json:"dark_theme" yaml:"dark_theme"`
	ActiveFocus      *ActiveFocus `json:"active_focus,omitempty" yaml:"active_focus,omitempty"`
}

// DefaultSettings returns the settings used when no settings source is available.
func DefaultSettings() Settings {
	return Settings{DailyGoalMinutes: 120}
}

// Day truncates t to midnight of its calendar day in t's own location.
func Day(t time.Time) time.Time {
	return DayIn(t, t.Location())
}

// DayIn returns midnight of the calendar day t falls on in loc. Results for the same
// loc compare equal with ==, so they are safe as map keys whatever zone t was decoded in.
func DayIn(t time.Time, loc *time.Location) time.Time {
	y, m, d := t.In(loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, loc)
}
