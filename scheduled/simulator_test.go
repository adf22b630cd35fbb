package scheduled

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/mobility-cosim/platform/simproto"
)

// TestScenarioS3SingleTripTimetable reproduces spec scenario S3: a
// single-trip timetable, reservation, and boarding/arrival at the recorded
// minutes.
func TestScenarioS3SingleTripTimetable(t *testing.T) {
	stops := []string{"3_1", "7_1", "12_1", "16_1", "20_1", "23_0", "27_1", "31_1", "35_1"}
	departures := []float64{543, 548, 558, 562, 566, 574, 578, 583, 590}
	waypoints := make([]Waypoint, len(stops))
	for i, s := range stops {
		waypoints[i] = Waypoint{LocationID: s, Arrival: departures[i], Departure: departures[i]}
	}

	sim := NewSimulator(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	v := NewVehicle("bus1", 20, "trip1", waypoints)
	sim.AddVehicle(v)

	result := sim.Reserve("bus1", "User1", "demand1", "3_1", "23_0", 490)
	require.True(t, result.Success)
	require.Equal(t, 543.0, result.Route[0].Dept)
	require.Equal(t, 574.0, result.Route[0].Arrv)

	sim.Clock.Run(600)
	events := sim.DrainEvents()

	var departedAt543, arrivedAt574 bool
	for _, e := range events {
		if e.EventType == simproto.EventDeparted && e.Details["userId"] == "User1" {
			require.Equal(t, 543.0, e.Time)
			departedAt543 = true
		}
		if e.EventType == simproto.EventArrived && e.Details["userId"] == "User1" {
			require.Equal(t, 574.0, e.Time)
			arrivedAt574 = true
		}
	}
	require.True(t, departedAt543)
	require.True(t, arrivedAt574)
}

func TestCalendarOperatesRespectsExceptions(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2026, 12, 31, 0, 0, 0, 0, time.UTC)
	cal := NewCalendar(start, end, [7]bool{false, true, true, true, true, false, false})

	monday := time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC)
	require.True(t, cal.Operates(monday))

	saturday := time.Date(2026, 1, 3, 0, 0, 0, 0, time.UTC)
	require.False(t, cal.Operates(saturday))

	require.NoError(t, cal.AddException(saturday, true))
	require.True(t, cal.Operates(saturday))

	require.NoError(t, cal.AddException(monday, false))
	require.False(t, cal.Operates(monday))
}

func TestBlockTripPartialOperationS4(t *testing.T) {
	mon := time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC)  // Monday
	thu := time.Date(2026, 1, 8, 0, 0, 0, 0, time.UTC)  // Thursday
	monThu := [7]bool{false, true, true, true, true, false, false}
	thuSun := [7]bool{true, false, false, false, true, true, true}

	calA := NewCalendar(mon.AddDate(0, -1, 0), mon.AddDate(1, 0, 0), monThu)
	calB := NewCalendar(mon.AddDate(0, -1, 0), mon.AddDate(1, 0, 0), thuSun)

	half := func(name string, dep1, arr2 float64) *Trip {
		d1, d2 := dep1, arr2
		st1, _ := NewStopTime("A", nil, &d1)
		st2, _ := NewStopTime("B", &d2, nil)
		return &Trip{ID: name, Elements: []TripElement{{StopTime: &st1}, {StopTime: &st2}}}
	}
	tripA := half("tripA", 480, 500)
	tripA.Calendar = calA
	tripA.BlockID = "block1"
	tripB := half("tripB", 510, 530)
	tripB.Calendar = calB
	tripB.BlockID = "block1"

	block := &BlockTrip{BlockID: "block1", Trips: []*Trip{tripA, tripB}}

	mondayKey := dayKey{Date: mon}
	cbMon := Concatenate(block, mondayKey)
	require.Len(t, cbMon.Elements, 2, "only trip A operates Monday")

	thuKey := dayKey{Date: thu}
	cbThu := Concatenate(block, thuKey)
	require.Len(t, cbThu.Elements, 4, "both trips operate Thursday")
}
