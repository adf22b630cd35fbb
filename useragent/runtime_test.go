package useragent

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/mobility-cosim/platform/simproto"
)

// TestScenarioS6UserAgentFallback reproduces spec scenario S6: a primary
// plan's mobility leg comes back RESERVED{success:false}, and the
// user-agent must immediately issue a RESERVE for the walking fallback from
// the failed pickup point to the final destination.
func TestScenarioS6UserAgentFallback(t *testing.T) {
	a := NewAgent()
	fallback := []Task{WalkTrip("stopA", "dstFinal", 0)}
	a.StartUser("user1", "demand1", []Task{Trip("stopA", "stopB", "shuttle", 0, fallback)})

	a.Clock.Step()
	events := a.DrainEvents()
	require.Len(t, events, 1)
	require.Equal(t, simproto.EventReserve, events[0].EventType)
	require.Equal(t, "shuttle", events[0].Service)

	details, err := simproto.ToMap(simproto.ReservedDetails{Success: false, UserID: "user1", DemandID: "demand1"})
	require.NoError(t, err)
	a.Triggered(simproto.Event{EventType: simproto.EventReserved, Source: "shuttle", Time: a.Clock.Now(), Details: details})

	events = a.DrainEvents()
	require.Len(t, events, 1)
	require.Equal(t, simproto.EventReserve, events[0].EventType)
	require.Equal(t, WalkService, events[0].Service)

	var d simproto.ReserveDetails
	require.NoError(t, simproto.DecodeDetails(events[0].Details, &d))
	require.Equal(t, "stopA", d.Org.LocationID)
	require.Equal(t, "dstFinal", d.Dst.LocationID)
}

// TestTripSuccessEmitsDepartThenAwaitsArrived covers the golden path of the
// Trip variant (spec §4.4.1): RESERVED{success:true} must produce a DEPART,
// and only the matching ARRIVED advances the task chain.
func TestTripSuccessEmitsDepartThenAwaitsArrived(t *testing.T) {
	a := NewAgent()
	a.StartUser("user1", "demand1", []Task{Trip("stopA", "stopB", "shuttle", 0, nil), Wait(5)})
	a.Clock.Step()
	a.DrainEvents()

	details, _ := simproto.ToMap(simproto.ReservedDetails{Success: true, UserID: "user1", DemandID: "demand1"})
	a.Triggered(simproto.Event{EventType: simproto.EventReserved, Source: "shuttle", Time: a.Clock.Now(), Details: details})

	events := a.DrainEvents()
	require.Len(t, events, 1)
	require.Equal(t, simproto.EventDepart, events[0].EventType)

	// An unrelated ARRIVED for a different user must not resolve the wait.
	otherDetails, _ := simproto.ToMap(simproto.ArrivalDetails{UserID: "someoneElse", DemandID: "x", Location: simproto.Location{LocationID: "stopB"}})
	a.Triggered(simproto.Event{EventType: simproto.EventArrived, Source: "shuttle", Time: a.Clock.Now(), Details: otherDetails})
	require.Empty(t, a.DrainEvents())

	arrivedDetails, _ := simproto.ToMap(simproto.ArrivalDetails{UserID: "user1", DemandID: "demand1", Location: simproto.Location{LocationID: "stopB"}})
	a.Triggered(simproto.Event{EventType: simproto.EventArrived, Source: "shuttle", Time: a.Clock.Now(), Details: arrivedDetails})

	require.Contains(t, a.riders, "user1")
	a.Clock.Run(10)
	require.NotContains(t, a.riders, "user1")
}

// TestReserveVariantReplacesTaskOnSuccess covers the Reserve variant (spec
// §4.4.1): on success it splices in [walk, ReservedTrip, walk] derived from
// the RESERVED route and immediately starts the first walk.
func TestReserveVariantReplacesTaskOnSuccess(t *testing.T) {
	a := NewAgent()
	a.ConfirmedServices["valet"] = true
	a.ReservationLeadMinutes["valet"] = 30

	dept := a.ReservationDeptFor("valet", 600)
	require.Equal(t, 570.0, dept)

	a.StartUser("user1", "demand1", []Task{Reserve("home", "work", "valet", dept, nil)})
	a.Clock.Step()
	a.DrainEvents()

	route := []simproto.RouteLeg{{Org: "curbA", Dst: "curbB", Dept: 580, Arrv: 595, Service: "valet"}}
	details, _ := simproto.ToMap(simproto.ReservedDetails{Success: true, UserID: "user1", DemandID: "demand1", Route: route})
	a.Triggered(simproto.Event{EventType: simproto.EventReserved, Source: "valet", Time: a.Clock.Now(), Details: details})

	u := a.riders["user1"]
	require.NotNil(t, u)

	// The first walk (home -> curbA) is already running: its RESERVE is out.
	events := a.DrainEvents()
	require.Len(t, events, 1)
	require.Equal(t, WalkService, events[0].Service)
	var d simproto.ReserveDetails
	require.NoError(t, simproto.DecodeDetails(events[0].Details, &d))
	require.Equal(t, "home", d.Org.LocationID)
	require.Equal(t, "curbA", d.Dst.LocationID)

	// The ReservedTrip and the closing walk remain queued.
	require.Len(t, u.Tasks, 2)
	require.Equal(t, TaskReservedTrip, u.Tasks[0].Kind)
	require.Equal(t, "curbA", u.Tasks[0].Org)
	require.Equal(t, "curbB", u.Tasks[0].Dst)
	require.Equal(t, WalkService, u.Tasks[1].Service)
	require.Equal(t, "curbB", u.Tasks[1].Org)
}
