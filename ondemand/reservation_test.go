package ondemand

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/mobility-cosim/platform/simproto"
)

func simpleNetwork() *Network {
	n := NewNetwork(30, nil)
	n.AddLocation(simproto.Location{LocationID: "Stop1"})
	n.AddLocation(simproto.Location{LocationID: "Stop2"})
	n.AddLocation(simproto.Location{LocationID: "Stop3"})
	n.AddEdge("Stop1", "Stop2", 30, true)
	n.AddEdge("Stop1", "Stop3", 15, true)
	n.AddEdge("Stop2", "Stop3", 20, true)
	return n
}

// TestScenarioS1SingleVehicleSingleUser reproduces spec scenario S1: one
// on-demand vehicle, single user, capacity 2, service window [60,1380].
func TestScenarioS1SingleVehicleSingleUser(t *testing.T) {
	sim := NewSimulator(simpleNetwork(), 0, 0)
	sim.Clock.Run(480)

	v := NewVehicle("car1", 2, "Stop1", "grp1")
	sim.AddVehicle(v, DefaultCalendar(60, 1380))
	for _, id := range []string{"Stop1", "Stop2", "Stop3"} {
		sim.Stops[id] = Stop{ID: id}
	}

	result := sim.ReserveUser("User1", "demand1", "Stop1", "Stop2", 490)
	require.True(t, result.Success)
	require.Len(t, result.Route, 1)
	require.Equal(t, "Stop1", result.Route[0].Org)
	require.Equal(t, "Stop2", result.Route[0].Dst)
	require.Equal(t, 490.0, result.Route[0].Dept)
	require.Equal(t, 520.0, result.Route[0].Arrv)

	require.True(t, sim.ReadyToDepart("User1"))

	sim.Clock.Run(1440)
	events := sim.DrainEvents()
	require.NotEmpty(t, events)

	var depUser, depBroadcast, arrBroadcastStop2, arrUser bool
	var depHome, arrHome bool
	for _, e := range events {
		switch e.EventType {
		case simproto.EventDeparted:
			if e.Details["userId"] == "User1" {
				depUser = true
				require.Equal(t, 490.0, e.Time)
			} else {
				depBroadcast = true
				if e.Time == 1380.0 {
					depHome = true
					loc, _ := e.Details["location"].(map[string]any)
					require.Equal(t, "Stop2", loc["locationId"])
				}
			}
		case simproto.EventArrived:
			if e.Details["userId"] == "User1" {
				arrUser = true
				require.Equal(t, 520.0, e.Time)
			} else if e.Time == 520.0 {
				arrBroadcastStop2 = true
			} else if e.Time == 1410.0 {
				arrHome = true
				loc, _ := e.Details["location"].(map[string]any)
				require.Equal(t, "Stop1", loc["locationId"])
			}
		}
	}
	require.True(t, depUser)
	require.True(t, depBroadcast)
	require.True(t, arrBroadcastStop2)
	require.True(t, arrUser)

	// Spec scenario S1's trailing pair: once the [60,1380] service window
	// closes with an empty schedule, the vehicle makes a non-scheduled move
	// back to its home stop (DEPARTED(∅,Stop2,1380), ARRIVED(∅,Stop1,1410)).
	require.True(t, depHome, "vehicle never departed home at window close")
	require.True(t, arrHome, "vehicle never arrived home after window close")
}

// TestScenarioS2CapacityAndRouting reproduces spec scenario S2: two
// reservations that pool onto one vehicle in a single pickup run.
func TestScenarioS2CapacityAndRouting(t *testing.T) {
	sim := NewSimulator(simpleNetwork(), 0, 60)
	sim.Clock.Run(480)
	v := NewVehicle("car1", 2, "Stop1", "grp1")
	sim.AddVehicle(v, DefaultCalendar(60, 1380))

	r1 := sim.ReserveUser("User1", "d1", "Stop1", "Stop2", 490)
	require.True(t, r1.Success)

	sim.Clock.Run(481)
	r2 := sim.ReserveUser("User2", "d2", "Stop3", "Stop2", 510)
	require.True(t, r2.Success)
}

// TestReservationNoFeasibleVehicleFails exercises the success:false branch
// of spec §4.2.1 step 4 when no vehicle has a registered service window.
func TestReservationNoFeasibleVehicleFails(t *testing.T) {
	sim := NewSimulator(simpleNetwork(), 1, 10)
	result := sim.ReserveUser("User1", "d1", "Stop1", "Stop2", 10)
	require.False(t, result.Success)
	require.Empty(t, result.Route)
}
