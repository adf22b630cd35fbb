package scheduled

import "fmt"

// StopTime is spec §3's scheduled StopTime: arrival ≤ departure, with
// whichever of the two is omitted defaulting to the other.
type StopTime struct {
	Stop      string
	Arrival   float64
	Departure float64
}

// NewStopTime validates and normalizes arrival/departure (spec §3: "at
// least one must be provided, missing one defaults to the other").
func NewStopTime(stop string, arrival, departure *float64) (StopTime, error) {
	if arrival == nil && departure == nil {
		return StopTime{}, fmt.Errorf("scheduled: stop time at %s needs arrival or departure", stop)
	}
	a, d := arrival, departure
	if a == nil {
		a = d
	}
	if d == nil {
		d = a
	}
	if *a > *d {
		return StopTime{}, fmt.Errorf("scheduled: stop time at %s has arrival %.2f after departure %.2f", stop, *a, *d)
	}
	return StopTime{Stop: stop, Arrival: *a, Departure: *d}, nil
}

// TripLocation is a deviation window embedded between two StopTimes (spec
// §3): passengers may be picked up/dropped off here via a uniformly-spaced
// DeviatedStop insertion during traversal.
type TripLocation struct {
	LocationID  string
	StartWindow float64
	EndWindow   float64
}

// TripElement is either a fixed StopTime or a deviation TripLocation, kept
// as a tagged union per spec §9's guidance against inheritance.
type TripElement struct {
	StopTime *StopTime
	Deviation *TripLocation
}

// Trip is spec §3's scheduled Trip: a calendar, an ordered list of
// elements (≥2 StopTimes overall), and an optional block id.
type Trip struct {
	ID       string
	Calendar *Calendar
	Elements []TripElement
	BlockID  string
}

// StopTimesOnly returns just the fixed StopTime elements, in order.
func (t *Trip) StopTimesOnly() []StopTime {
	var out []StopTime
	for _, e := range t.Elements {
		if e.StopTime != nil {
			out = append(out, *e.StopTime)
		}
	}
	return out
}

// BlockTrip is spec §3/§4.3.4: an ordered list of Trips sharing a block id,
// representing one vehicle's daily chain.
type BlockTrip struct {
	BlockID string
	Trips   []*Trip
}

// OperatingTrips returns the member trips whose calendar operates on day,
// in the block's listed order (Concatenate sorts them by departure) — the
// per-date filtering spec §4.3.4/SPEC_FULL §5
// requires before concatenating a block's stop times.
func (b *BlockTrip) OperatingTrips(day dayKey) []*Trip {
	var out []*Trip
	for _, t := range b.Trips {
		if t.Calendar.Operates(day.Date) {
			out = append(out, t)
		}
	}
	return out
}
