package behavior

// TimeBucket is a coarse time-of-day slot.
type TimeBucket string

const (
	BucketEarlyMorning TimeBucket = "earlyMorning" // 5-8
	BucketMorning      TimeBucket = "morning"      // 9-11
	BucketMidday       TimeBucket = "midday"       // 12-13
	BucketAfternoon    TimeBucket = "afternoon"    // 14-17
	BucketEvening      TimeBucket = "evening"      // 18-21
	BucketNight        TimeBucket = "night"        // 22-4
)

// SessionLoad buckets today's session count.
type SessionLoad string

const (
	LoadNone  SessionLoad = "none"  // 0
	LoadLight SessionLoad = "light" // 1-2
	LoadHeavy SessionLoad = "heavy" // 3+
)

type energyKey struct {
	bucket TimeBucket
	load   SessionLoad
}

var energyTable = map[energyKey]EnergyLevel{
	{BucketEarlyMorning, LoadNone}:  EnergyMedium,
	{BucketEarlyMorning, LoadLight}: EnergyMedium,
	{BucketEarlyMorning, LoadHeavy}: EnergyLow,

	{BucketMorning, LoadNone}:  EnergyHigh,
	{BucketMorning, LoadLight}: EnergyHigh,
	{BucketMorning, LoadHeavy}: EnergyMedium,

	{BucketMidday, LoadNone}:  EnergyMedium,
	{BucketMidday, LoadLight}: EnergyMedium,
	{BucketMidday, LoadHeavy}: EnergyLow,

	{BucketAfternoon, LoadNone}:  EnergyMedium,
	{BucketAfternoon, LoadLight}: EnergyMedium,
	{BucketAfternoon, LoadHeavy}: EnergyLow,

	{BucketEvening, LoadNone}:  EnergyMedium,
	{BucketEvening, LoadLight}: EnergyLow,
	{BucketEvening, LoadHeavy}: EnergyLow,

	{BucketNight, LoadNone}:  EnergyLow,
	{BucketNight, LoadLight}: EnergyLow,
	{BucketNight, LoadHeavy}: EnergyLow,
}

// HourToBucket maps an hour of day (0-23) to its bucket.
func HourToBucket(hour int) TimeBucket {
	switch {
	case hour >= 5 && hour <= 8:
		return BucketEarlyMorning
	case hour >= 9 && hour <= 11:
		return BucketMorning
	case hour >= 12 && hour <= 13:
		return BucketMidday
	case hour >= 14 && hour <= 17:
		return BucketAfternoon
	case hour >= 18 && hour <= 21:
		return BucketEvening
	default:
		return BucketNight
	}
}

// LoadFor buckets a session count.
func LoadFor(sessionsToday int) SessionLoad {
	switch {
	case sessionsToday <= 0:
		return LoadNone
	case sessionsToday <= 2:
		return LoadLight
	default:
		return LoadHeavy
	}
}

// EstimateEnergy looks up the energy table.
func EstimateEnergy(hour, sessionsToday int) EnergyLevel {
	if level, ok := energyTable[energyKey{HourToBucket(hour), LoadFor(sessionsToday)}]; ok {
		return level
	}
	return EnergyMedium
}
