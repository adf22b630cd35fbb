// Package data holds small static tables shared by the scenario stand-in's
// optional synthetic-demand mode.
package data

// TimePeriodMultiplier maps a period id to a demand-rate multiplier: how
// much more or less likely a DEMAND event is to fall in that period relative
// to the baseline. 1 = early off-peak, 2 = morning peak, 3 = late morning,
// 4 = mid-day, 5 = evening peak, 6 = late evening.
var TimePeriodMultiplier = map[int]float64{
	1: 0.3,
	2: 1.6,
	3: 0.9,
	4: 0.8,
	5: 1.4,
	6: 0.5,
}