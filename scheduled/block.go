package scheduled

import "sort"

// ConcatenatedBlock is a single operational day's chain of StopTimes for a
// block: only the member trips whose calendar operates that day contribute,
// concatenated in departure order (spec §4.3.4, restored in detail per
// SPEC_FULL §5 from original_source/.../routedeviation/trip.py's
// BlockTrip.stop_times_with).
type ConcatenatedBlock struct {
	Day      dayKey
	TripID   string // synthetic id identifying this day's concatenation
	Elements []TripElement
}

// Concatenate builds the day's operating chain. It only ever returns the
// trips operating on a single given day, so a chain never spans a day
// boundary: see SPEC_FULL §5's resolution of the Open Question (BlockTrip
// reservation across days: reject).
func Concatenate(b *BlockTrip, day dayKey) ConcatenatedBlock {
	operating := b.OperatingTrips(day)
	sort.SliceStable(operating, func(i, j int) bool {
		return firstDeparture(operating[i]) < firstDeparture(operating[j])
	})
	cb := ConcatenatedBlock{Day: day, TripID: b.BlockID}
	for _, t := range operating {
		cb.Elements = append(cb.Elements, t.Elements...)
	}
	return cb
}

func firstDeparture(t *Trip) float64 {
	for _, e := range t.Elements {
		if e.StopTime != nil {
			return e.StopTime.Departure
		}
	}
	return 0
}
