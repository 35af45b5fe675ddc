// Package behavior turns a snapshot of sessions and tasks into an IntelligenceReport.
//
// Everything here is a pure function of its inputs and the injected now, so equal
// inputs always produce byte-identical reports.
package behavior

import (
	"time"

	"github.com/hrygo/focusmind/plugin/ai/activity"
)

// TrendDirection classifies the three-day focus trend.
type TrendDirection string

const (
	TrendImproving TrendDirection = "improving"
	TrendStable    TrendDirection = "stable"
	TrendDeclining TrendDirection = "declining"
)

// Trend compares focused minutes of the last three days with the three days before.
type Trend struct {
	Direction     TrendDirection `json:"direction"`
	RecentMinutes int            `json:"recent_minutes"`
	PriorMinutes  int            `json:"prior_minutes"`
	ChangePercent int            `json:"change_percent"`
}

// MomentumLevel is the composite streak/progress/trend label.
type MomentumLevel string

const (
	MomentumStrong     MomentumLevel = "strong"
	MomentumBuilding   MomentumLevel = "building"
	MomentumNeedsBoost MomentumLevel = "needsBoost"
	MomentumSteady     MomentumLevel = "steady"
)

// EnergyLevel is the estimated user energy.
type EnergyLevel string

const (
	EnergyHigh   EnergyLevel = "high"
	EnergyMedium EnergyLevel = "medium"
	EnergyLow    EnergyLevel = "low"
)

// RiskLevel grades how close the streak is to breaking.
type RiskLevel string

const (
	RiskNone   RiskLevel = "none"
	RiskLow    RiskLevel = "low"
	RiskMedium RiskLevel = "medium"
	RiskHigh   RiskLevel = "high"
)

// SignalKind names an opportunity or a risk.
type SignalKind string

const (
	// Opportunities.
	SignalHalfwayToGoal   SignalKind = "halfwayToGoal"
	SignalGoalWithinReach SignalKind = "goalWithinReach"
	SignalQuickWin        SignalKind = "quickWin"
	SignalStreakExtension SignalKind = "streakExtension"
	SignalPeakHourUnused  SignalKind = "peakHourUnused"
	SignalMilestoneNear   SignalKind = "milestoneNear"

	// Risks.
	SignalStreakAtRisk SignalKind = "streakAtRisk"
	SignalOverdueTask  SignalKind = "overdueTask"
	SignalInactivity   SignalKind = "inactivity"
	SignalBurnout      SignalKind = "burnout"

	// SignalCustom is raised by a user-configured rule.
	SignalCustom SignalKind = "custom"
)

// Signal is one detected opportunity or risk.
// Value carries the signal's number (minutes left, streak days, hours idle, ...).
type Signal struct {
	Kind    SignalKind `json:"kind"`
	Message string     `json:"message"`
	Value   int        `json:"value"`
	Level   RiskLevel  `json:"level,omitempty"`
	Rule    string     `json:"rule,omitempty"`
}

// Performance summarizes focus totals.
type Performance struct {
	TodayMinutes          int        `json:"today_minutes"`
	TodaySessions         int        `json:"today_sessions"`
	TodayPercent          int        `json:"today_percent"`
	GoalMinutes           int        `json:"goal_minutes"`
	GoalMet               bool       `json:"goal_met"`
	YesterdayMinutes      int        `json:"yesterday_minutes"`
	WeekMinutes           int        `json:"week_minutes"`
	LifetimeMinutes       int        `json:"lifetime_minutes"`
	TotalSessions         int        `json:"total_sessions"`
	AverageSessionMinutes int        `json:"average_session_minutes"`
	Streak                int        `json:"streak"`
	LongestStreak         int        `json:"longest_streak"`
	LastSessionAt         *time.Time `json:"last_session_at,omitempty"`
}

// Patterns holds the detected long-run habits.
type Patterns struct {
	PeakHours          []int         `json:"peak_hours"`
	Trend              *Trend        `json:"trend"`
	Momentum           MomentumLevel `json:"momentum"`
	BestWeekday        string        `json:"best_weekday,omitempty"`
	ConsistencyPercent int           `json:"consistency_percent"`
}

// UserState is the inferred state right now.
type UserState struct {
	Energy                EnergyLevel `json:"energy"`
	StreakRisk            RiskLevel   `json:"streak_risk"`
	InPeakHour            bool        `json:"in_peak_hour"`
	FocusActive           bool        `json:"focus_active"`
	HoursSinceLastSession *int        `json:"hours_since_last_session,omitempty"`
}

// IntelligenceReport is recomputed on every request and never persisted.
type IntelligenceReport struct {
	Performance   Performance `json:"performance"`
	Patterns      Patterns    `json:"patterns"`
	UserState     UserState   `json:"user_state"`
	Opportunities []Signal    `json:"opportunities"`
	Risks         []Signal    `json:"risks"`
	GeneratedAt   time.Time   `json:"generated_at"`
}

// Input is the snapshot analyzed by Analyze.
type Input struct {
	Sessions         []activity.SessionRecord
	Tasks            []activity.TaskRecord
	Completed        func(taskID string, day time.Time) bool
	DailyGoalMinutes int
	FocusActive      bool
}

// InputFromData adapts collected source data.
func InputFromData(d activity.Data) Input {
	return Input{
		Sessions:         d.Sessions,
		Tasks:            d.Tasks,
		Completed:        d.Completed,
		DailyGoalMinutes: d.Settings.DailyGoalMinutes,
		FocusActive:      d.Settings.ActiveFocus != nil,
	}
}

// Top returns at most n signals, preserving order.
func Top(signals []Signal, n int) []Signal {
	if n < 0 {
		n = 0
	}
	if len(signals) <= n {
		return signals
	}
	return signals[:n]
}
