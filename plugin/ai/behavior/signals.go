package behavior

import (
	"fmt"
	"sort"
	"time"

	"github.com/hrygo/focusmind/plugin/ai/activity"
)

const (
	quickWinMaxMinutes  = 15
	milestoneStep       = 1000
	milestoneWindow     = 30
	inactivityHours     = 48
	burnoutYesterdayMin = 180
	burnoutHour         = 12
)

// detectOpportunities evaluates every opportunity predicate independently, in a fixed order.
func detectOpportunities(in Input, perf Performance, patterns Patterns, now time.Time) []Signal {
	out := []Signal{}
	pct := perf.TodayPercent

	if perf.GoalMinutes > 0 {
		left := perf.GoalMinutes - perf.TodayMinutes
		switch {
		case pct >= 50 && pct < 75:
			out = append(out, Signal{
				Kind:    SignalHalfwayToGoal,
				Message: fmt.Sprintf("Halfway there: %d%% of today's goal, %d min to go", pct, left),
				Value:   left,
			})
		case pct >= 75 && pct < 100:
			out = append(out, Signal{
				Kind:    SignalGoalWithinReach,
				Message: fmt.Sprintf("Only %d min left to hit today's goal", left),
				Value:   left,
			})
		}
	}

	if task, ok := quickWin(in, now); ok {
		out = append(out, Signal{
			Kind:    SignalQuickWin,
			Message: fmt.Sprintf("Quick win: %q takes about %d min", task.Title, task.DurationMinutes),
			Value:   task.DurationMinutes,
		})
	}

	if perf.GoalMet && pct > 100 && perf.Streak >= 1 {
		out = append(out, Signal{
			Kind:    SignalStreakExtension,
			Message: fmt.Sprintf("Goal beaten at %d%%, the %d-day streak is safe", pct, perf.Streak),
			Value:   perf.Streak,
		})
	}

	if perf.TotalSessions > 0 && perf.TodaySessions == 0 {
		for _, h := range patterns.PeakHours {
			if h == now.Hour() {
				out = append(out, Signal{
					Kind:    SignalPeakHourUnused,
					Message: fmt.Sprintf("%02d:00 is one of your best hours and nothing is logged yet today", h),
					Value:   h,
				})
				break
			}
		}
	}

	if perf.LifetimeMinutes > 0 {
		next := (perf.LifetimeMinutes/milestoneStep + 1) * milestoneStep
		if left := next - perf.LifetimeMinutes; left <= milestoneWindow {
			out = append(out, Signal{
				Kind:    SignalMilestoneNear,
				Message: fmt.Sprintf("%d min away from %d lifetime minutes", left, next),
				Value:   next,
			})
		}
	}
	return out
}

func quickWin(in Input, now time.Time) (activity.TaskRecord, bool) {
	var candidates []activity.TaskRecord
	for _, t := range in.Tasks {
		if t.DurationMinutes <= 0 || t.DurationMinutes > quickWinMaxMinutes {
			continue
		}
		if !t.ScheduledOn(now) || completed(in, t.ID, now) {
			continue
		}
		candidates = append(candidates, t)
	}
	if len(candidates) == 0 {
		return activity.TaskRecord{}, false
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].Title != candidates[j].Title {
			return candidates[i].Title < candidates[j].Title
		}
		return candidates[i].ID < candidates[j].ID
	})
	return candidates[0], true
}

// detectRisks evaluates every risk predicate independently, in a fixed order.
func detectRisks(in Input, perf Performance, state UserState, now time.Time) []Signal {
	out := []Signal{}

	if state.StreakRisk == RiskMedium || state.StreakRisk == RiskHigh {
		out = append(out, Signal{
			Kind:    SignalStreakAtRisk,
			Message: fmt.Sprintf("The %d-day streak is at risk: %d%% of today's goal so far", perf.Streak, perf.TodayPercent),
			Value:   perf.Streak,
			Level:   state.StreakRisk,
		})
	}

	if task, due, ok := earliestOverdue(in, now); ok {
		out = append(out, Signal{
			Kind:    SignalOverdueTask,
			Message: fmt.Sprintf("%q was due at %s", task.Title, due.Format("Jan 2 15:04")),
			Value:   int(now.Sub(due).Minutes()),
		})
	}

	if state.HoursSinceLastSession != nil && *state.HoursSinceLastSession > inactivityHours {
		out = append(out, Signal{
			Kind:    SignalInactivity,
			Message: fmt.Sprintf("No focus session for %d hours", *state.HoursSinceLastSession),
			Value:   *state.HoursSinceLastSession,
		})
	}

	if perf.YesterdayMinutes > burnoutYesterdayMin && perf.TodayMinutes == 0 && now.Hour() >= burnoutHour {
		out = append(out, Signal{
			Kind:    SignalBurnout,
			Message: fmt.Sprintf("%d min yesterday and nothing yet today, consider an easy start", perf.YesterdayMinutes),
			Value:   perf.YesterdayMinutes,
		})
	}
	return out
}

// dueAt returns when the task falls due relative to now. One-off tasks are due at
// their reminder; repeating tasks are due at the reminder's clock time on each
// scheduled day.
func dueAt(t activity.TaskRecord, now time.Time) (time.Time, bool) {
	if t.ReminderDate == nil {
		return time.Time{}, false
	}
	r := t.ReminderDate.In(now.Location())
	if t.RepeatRule == "" || t.RepeatRule == activity.RepeatNone {
		return r, true
	}
	if !t.ScheduledOn(now) {
		return time.Time{}, false
	}
	today := activity.Day(now)
	return time.Date(today.Year(), today.Month(), today.Day(), r.Hour(), r.Minute(), r.Second(), 0, now.Location()), true
}

func earliestOverdue(in Input, now time.Time) (activity.TaskRecord, time.Time, bool) {
	var (
		best    activity.TaskRecord
		bestDue time.Time
		found   bool
	)
	for _, t := range in.Tasks {
		due, ok := dueAt(t, now)
		if !ok || !due.Before(now) {
			continue
		}
		if completed(in, t.ID, due) || completed(in, t.ID, now) {
			continue
		}
		if !found || due.Before(bestDue) || (due.Equal(bestDue) && t.Title < best.Title) {
			best, bestDue, found = t, due, true
		}
	}
	return best, bestDue, found
}

func completed(in Input, taskID string, day time.Time) bool {
	if in.Completed == nil {
		return false
	}
	return in.Completed(taskID, activity.Day(day))
}
