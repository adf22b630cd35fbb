package ondemand

import "math"

// Window is an operating interval for one service-day.
type Window struct {
	Start, End float64
	Valid      bool
}

// FlexTripCalendar is the minimal calendar a group/flex-trip needs to answer
// "what are today's operating hours" (spec §4.2.4); daily windows are
// expressed in minutes-since-midnight-of-that-day, offset by dayIndex*1440
// when projected onto the run's continuous virtual timeline.
type FlexTripCalendar struct {
	// WindowStartMin/WindowEndMin are minutes since midnight on an operating
	// day; WindowEndMin may exceed 1440 to express after-midnight spill.
	WindowStartMin, WindowEndMin float64
	// Operates reports whether the calendar runs service on the given day
	// index (0 = run's day zero), so callers can plug in a weekly-bitmap
	// calendar if they want one; the default always operates.
	Operates func(dayIndex int) bool
}

func alwaysOperates(int) bool { return true }

// DefaultCalendar returns an always-on calendar spanning a fixed daily window.
func DefaultCalendar(startMin, endMin float64) FlexTripCalendar {
	return FlexTripCalendar{WindowStartMin: startMin, WindowEndMin: endMin, Operates: alwaysOperates}
}

// CurrentWindow computes the vehicle's current operating window by checking,
// in order, yesterday (for post-midnight spill), today, and tomorrow;
// returns the first service-day whose window has not yet ended (spec
// §4.2.4).
func CurrentWindow(now float64, cal FlexTripCalendar) Window {
	op := cal.Operates
	if op == nil {
		op = alwaysOperates
	}
	today := int(math.Floor(now / 1440.0))
	for _, dayIndex := range []int{today - 1, today, today + 1} {
		if !op(dayIndex) {
			continue
		}
		base := float64(dayIndex) * 1440.0
		start := base + cal.WindowStartMin
		end := base + cal.WindowEndMin
		if end >= now {
			return Window{Start: start, End: end, Valid: true}
		}
	}
	return Window{Valid: false}
}
