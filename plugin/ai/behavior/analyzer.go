package behavior

import (
	"math"
	"sort"
	"time"

	"github.com/hrygo/focusmind/plugin/ai/activity"
)

const (
	maxStreakWalk        = 365
	trendWindow          = 3
	trendThreshold       = 20
	consistencyDays      = 14
	defaultPeakHourCount = 3
)

// daySeconds sums focused seconds per calendar day in loc.
func daySeconds(sessions []activity.SessionRecord, loc *time.Location) map[time.Time]int {
	days := make(map[time.Time]int, len(sessions))
	for _, s := range sessions {
		days[activity.DayIn(s.Date, loc)] += s.DurationSeconds
	}
	return days
}

// Streak counts consecutive days with at least one session, walking back from today,
// or from yesterday when today has no session yet.
func Streak(sessions []activity.SessionRecord, now time.Time) int {
	days := daySeconds(sessions, now.Location())
	day := activity.Day(now)
	if _, ok := days[day]; !ok {
		day = day.AddDate(0, 0, -1)
	}

	streak := 0
	for streak < maxStreakWalk {
		if _, ok := days[day]; !ok {
			break
		}
		streak++
		day = day.AddDate(0, 0, -1)
	}
	return streak
}

// LongestStreak returns the longest run of consecutive active days in loc.
func LongestStreak(sessions []activity.SessionRecord, loc *time.Location) int {
	days := daySeconds(sessions, loc)
	sorted := make([]time.Time, 0, len(days))
	for d := range days {
		sorted = append(sorted, d)
	}
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Before(sorted[j]) })

	longest, run := 0, 0
	for i, d := range sorted {
		if i > 0 && sorted[i-1].AddDate(0, 0, 1).Equal(d) {
			run++
		} else {
			run = 1
		}
		if run > longest {
			longest = run
		}
	}
	return longest
}

// minutesBetween sums focused minutes of days in [from, to], both local midnights.
func minutesBetween(days map[time.Time]int, from, to time.Time) int {
	seconds := 0
	for d := from; !d.After(to); d = d.AddDate(0, 0, 1) {
		seconds += days[d]
	}
	return seconds / 60
}

// DetectTrend compares the last three days (today included) with the three before.
// It returns nil when the prior window has no focused minutes.
func DetectTrend(sessions []activity.SessionRecord, now time.Time) *Trend {
	days := daySeconds(sessions, now.Location())
	today := activity.Day(now)

	recent := minutesBetween(days, today.AddDate(0, 0, -(trendWindow-1)), today)
	prior := minutesBetween(days, today.AddDate(0, 0, -(2*trendWindow-1)), today.AddDate(0, 0, -trendWindow))
	if prior == 0 {
		return nil
	}

	change := int(math.Round(float64(recent-prior) * 100 / float64(prior)))
	direction := TrendStable
	switch {
	case change >= trendThreshold:
		direction = TrendImproving
	case change <= -trendThreshold:
		direction = TrendDeclining
	}
	return &Trend{
		Direction:     direction,
		RecentMinutes: recent,
		PriorMinutes:  prior,
		ChangePercent: change,
	}
}

// Momentum combines streak, today's goal percentage and trend. First matching rule wins.
func Momentum(streak, todayPercent int, trend *Trend) MomentumLevel {
	improving := trend != nil && trend.Direction == TrendImproving
	declining := trend != nil && trend.Direction == TrendDeclining

	switch {
	case streak >= 7 && todayPercent >= 50:
		return MomentumStrong
	case streak >= 3 || (improving && todayPercent >= 25):
		return MomentumBuilding
	case declining || (streak == 0 && todayPercent == 0):
		return MomentumNeedsBoost
	default:
		return MomentumSteady
	}
}

// PeakHours returns the n most frequent session start hours in loc. Ties are broken
// by the hour's total minutes, then by the lower hour.
func PeakHours(sessions []activity.SessionRecord, n int, loc *time.Location) []int {
	type hourStat struct {
		hour    int
		count   int
		seconds int
	}

	var stats [24]hourStat
	for h := range stats {
		stats[h].hour = h
	}
	for _, s := range sessions {
		h := s.Date.In(loc).Hour()
		stats[h].count++
		stats[h].seconds += s.DurationSeconds
	}

	ranked := make([]hourStat, 0, 24)
	for _, st := range stats {
		if st.count > 0 {
			ranked = append(ranked, st)
		}
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].count != ranked[j].count {
			return ranked[i].count > ranked[j].count
		}
		if ranked[i].seconds != ranked[j].seconds {
			return ranked[i].seconds > ranked[j].seconds
		}
		return ranked[i].hour < ranked[j].hour
	})

	result := make([]int, 0, n)
	for i := 0; i < n && i < len(ranked); i++ {
		result = append(result, ranked[i].hour)
	}
	return result
}

// StreakRisk grades the chance of breaking a live streak today.
func StreakRisk(streak, todayPercent int, goalMet bool, hour int) RiskLevel {
	switch {
	case streak == 0 || goalMet:
		return RiskNone
	case hour >= 21 && todayPercent < 50:
		return RiskHigh
	case hour >= 18 && todayPercent < 25:
		return RiskHigh
	case hour >= 15 && todayPercent == 0:
		return RiskMedium
	default:
		return RiskLow
	}
}

// ComputePerformance aggregates focus totals for the day containing now.
func ComputePerformance(sessions []activity.SessionRecord, goalMinutes int, now time.Time) Performance {
	days := daySeconds(sessions, now.Location())
	today := activity.Day(now)

	p := Performance{
		GoalMinutes:      goalMinutes,
		TotalSessions:    len(sessions),
		TodayMinutes:     days[today] / 60,
		YesterdayMinutes: days[today.AddDate(0, 0, -1)] / 60,
		WeekMinutes:      minutesBetween(days, today.AddDate(0, 0, -6), today),
		Streak:           Streak(sessions, now),
		LongestStreak:    LongestStreak(sessions, now.Location()),
	}

	lifetimeSeconds := 0
	var last *time.Time
	for i := range sessions {
		s := sessions[i]
		lifetimeSeconds += s.DurationSeconds
		if activity.DayIn(s.Date, now.Location()) == today {
			p.TodaySessions++
		}
		if last == nil || s.Date.After(*last) {
			d := s.Date
			last = &d
		}
	}
	p.LifetimeMinutes = lifetimeSeconds / 60
	p.LastSessionAt = last
	if p.TotalSessions > 0 {
		p.AverageSessionMinutes = p.LifetimeMinutes / p.TotalSessions
	}
	if goalMinutes > 0 {
		p.TodayPercent = p.TodayMinutes * 100 / goalMinutes
		p.GoalMet = p.TodayMinutes >= goalMinutes
	}
	return p
}

// ComputePatterns derives peak hours, trend, momentum, best weekday and consistency.
func ComputePatterns(sessions []activity.SessionRecord, perf Performance, now time.Time) Patterns {
	trend := DetectTrend(sessions, now)
	p := Patterns{
		PeakHours: PeakHours(sessions, defaultPeakHourCount, now.Location()),
		Trend:     trend,
		Momentum:  Momentum(perf.Streak, perf.TodayPercent, trend),
	}

	var weekday [7]int
	for _, s := range sessions {
		weekday[s.Date.In(now.Location()).Weekday()] += s.DurationSeconds
	}
	best := -1
	for d, secs := range weekday {
		if secs > 0 && (best < 0 || secs > weekday[best]) {
			best = d
		}
	}
	if best >= 0 {
		p.BestWeekday = time.Weekday(best).String()
	}

	days := daySeconds(sessions, now.Location())
	today := activity.Day(now)
	active := 0
	for i := 0; i < consistencyDays; i++ {
		if _, ok := days[today.AddDate(0, 0, -i)]; ok {
			active++
		}
	}
	p.ConsistencyPercent = active * 100 / consistencyDays
	return p
}

// ComputeUserState infers energy, streak risk and peak-hour position.
func ComputeUserState(perf Performance, patterns Patterns, focusActive bool, now time.Time) UserState {
	hour := now.Hour()
	st := UserState{
		Energy:      EstimateEnergy(hour, perf.TodaySessions),
		StreakRisk:  StreakRisk(perf.Streak, perf.TodayPercent, perf.GoalMet, hour),
		FocusActive: focusActive,
	}
	for _, h := range patterns.PeakHours {
		if h == hour {
			st.InPeakHour = true
			break
		}
	}
	if perf.LastSessionAt != nil {
		hours := int(now.Sub(*perf.LastSessionAt).Hours())
		st.HoursSinceLastSession = &hours
	}
	return st
}

// Analyze builds the full report. rules may be nil.
func Analyze(in Input, now time.Time, rules *RuleSet) IntelligenceReport {
	perf := ComputePerformance(in.Sessions, in.DailyGoalMinutes, now)
	patterns := ComputePatterns(in.Sessions, perf, now)
	state := ComputeUserState(perf, patterns, in.FocusActive, now)

	report := IntelligenceReport{
		Performance:   perf,
		Patterns:      patterns,
		UserState:     state,
		Opportunities: detectOpportunities(in, perf, patterns, now),
		Risks:         detectRisks(in, perf, state, now),
		GeneratedAt:   now,
	}
	if rules != nil {
		opps, risks := rules.Evaluate(RuleVars(perf, patterns, now))
		report.Opportunities = append(report.Opportunities, opps...)
		report.Risks = append(report.Risks, risks...)
	}
	return report
}
