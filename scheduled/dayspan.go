package scheduled

import "time"

// dayKey identifies a calendar date a query is being evaluated against,
// plus the minutes-since-midnight offset that date's virtual timeline
// contributes (spec §9: "calendar dates plus minutes-since-midnight").
type dayKey struct {
	Date      time.Time
	BaseMinute float64 // dayIndex * 1440, relative to the run's epoch
}

// candidateDays returns yesterday/today/tomorrow relative to a run-epoch
// time t (in minutes since the run's day zero), to tolerate after-midnight
// service the way spec §4.3.2's earliest_path and §3.4's BlockTrip lookups
// both require.
func candidateDays(epoch time.Time, t float64) []dayKey {
	dayIndex := int(t / 1440.0)
	out := make([]dayKey, 0, 3)
	for _, offset := range []int{-1, 0, 1} {
		idx := dayIndex + offset
		out = append(out, dayKey{
			Date:       epoch.AddDate(0, 0, idx),
			BaseMinute: float64(idx) * 1440.0,
		})
	}
	return out
}
