package scheduled

import (
	"time"

	"github.com/mobility-cosim/platform/clock"
	"github.com/mobility-cosim/platform/simproto"
)

// Simulator is the scheduled module's runtime: the clock, the day's
// vehicles, and the emitted-event buffer drained by /step.
type Simulator struct {
	Clock    *clock.Scheduler
	Epoch    time.Time
	Vehicles map[string]*Vehicle
	Stops    map[string]simproto.Location

	events []simproto.Event
}

// NewSimulator builds a scheduled-core simulator anchored at epoch (the
// calendar date that virtual minute 0 represents).
func NewSimulator(epoch time.Time) *Simulator {
	return &Simulator{
		Clock:    clock.New(),
		Epoch:    epoch,
		Vehicles: make(map[string]*Vehicle),
		Stops:    make(map[string]simproto.Location),
	}
}

func (s *Simulator) DrainEvents() []simproto.Event {
	out := s.events
	s.events = nil
	return out
}

func (s *Simulator) emit(et simproto.EventType, details map[string]any) {
	s.events = append(s.events, simproto.Event{EventType: et, Time: s.Clock.Now(), Details: details})
}

func (s *Simulator) loc(id string) simproto.Location {
	if l, ok := s.Stops[id]; ok {
		return l
	}
	return simproto.Location{LocationID: id}
}

func (s *Simulator) emitArrival(et simproto.EventType, userID, demandID, locationID, mobilityID string) {
	d, _ := simproto.ToMap(simproto.ArrivalDetails{UserID: userID, DemandID: demandID, Location: s.loc(locationID), MobilityID: mobilityID})
	s.emit(et, d)
}

// AddVehicle registers a vehicle and starts its traversal process (spec
// §4.3.1): first ARRIVED fires at the first waypoint's arrival; on days
// with no trip operation the caller simply does not register a vehicle for
// that day.
func (s *Simulator) AddVehicle(v *Vehicle) {
	s.Vehicles[v.VehicleID] = v
	if len(v.Waypoints) == 0 {
		return
	}
	first := v.Waypoints[0]
	s.Clock.AfterAt(first.Arrival, func(*clock.Scheduler) { s.arriveAt(v) })
}

func (s *Simulator) arriveAt(v *Vehicle) {
	if v.cursor >= len(v.Waypoints) {
		return
	}
	wp := v.Waypoints[v.cursor]
	s.emitArrival(simproto.EventArrived, "", "", wp.LocationID, v.VehicleID)

	for _, uid := range v.AlightAt[v.cursor] {
		u, ok := v.Users[uid]
		if !ok || !u.Riding {
			continue
		}
		u.Riding = false
		s.emitArrival(simproto.EventArrived, uid, u.DemandID, wp.LocationID, "")
	}

	s.Clock.AfterAt(wp.Departure, func(*clock.Scheduler) { s.departFrom(v) })
}

func (s *Simulator) departFrom(v *Vehicle) {
	wp := v.Waypoints[v.cursor]

	for _, uid := range v.BoardAt[v.cursor] {
		u, ok := v.Users[uid]
		if !ok {
			continue
		}
		if u.Org != wp.LocationID || u.Departure > s.Clock.Now() {
			continue
		}
		u.Riding = true
		s.emitArrival(simproto.EventDeparted, uid, u.DemandID, wp.LocationID, "")
	}
	s.emitArrival(simproto.EventDeparted, "", "", wp.LocationID, v.VehicleID)

	v.cursor++
	if v.cursor >= len(v.Waypoints) {
		return
	}
	next := v.Waypoints[v.cursor]
	s.Clock.AfterAt(next.Arrival, func(*clock.Scheduler) { s.arriveAt(v) })
}

// Reserve runs spec §4.3.2 end to end against one vehicle's day: search for
// the earliest feasible path, check seat availability, and on success
// attach the reservation and return the RESERVED details (it emits nothing).
func (s *Simulator) Reserve(vehicleID, userID, demandID, org, dst string, dept float64) simproto.ReservedDetails {
	v, ok := s.Vehicles[vehicleID]
	if !ok {
		return simproto.ReservedDetails{Success: false, UserID: userID, DemandID: demandID}
	}
	path, found := EarliestPath(s.Epoch, dept, org, dst, func(dayKey) []Waypoint { return v.Waypoints }, v.TripID)
	if !found || !v.Reservable(path) {
		return simproto.ReservedDetails{Success: false, UserID: userID, DemandID: demandID}
	}
	if !v.Reserve(userID, demandID, path) {
		return simproto.ReservedDetails{Success: false, UserID: userID, DemandID: demandID}
	}
	return simproto.ReservedDetails{
		Success: true, UserID: userID, DemandID: demandID,
		Route: []simproto.RouteLeg{{Org: org, Dst: dst, Dept: path.Org.Departure, Arrv: path.Dst.Arrival}},
	}
}

// Reservable answers spec §6 GET /reservable without mutating state.
func (s *Simulator) Reservable(vehicleID, org, dst string, dept float64) bool {
	v, ok := s.Vehicles[vehicleID]
	if !ok {
		return false
	}
	path, found := EarliestPath(s.Epoch, dept, org, dst, func(dayKey) []Waypoint { return v.Waypoints }, v.TripID)
	if !found {
		return false
	}
	return v.Reservable(path)
}

// ReserveAny searches every registered vehicle's trip for the
// earliest-arriving reservable path and commits to it (the scheduled
// module's incoming RESERVE events name only org/dst/dept, not a vehicle,
// so the module itself resolves which trip/vehicle serves the request —
// analogous to the on-demand core's fleet-wide search in spec §4.2.1).
func (s *Simulator) ReserveAny(userID, demandID, org, dst string, dept float64) simproto.ReservedDetails {
	var bestVehicle *Vehicle
	var bestPath Path
	found := false
	for _, v := range s.Vehicles {
		path, ok := EarliestPath(s.Epoch, dept, org, dst, func(dayKey) []Waypoint { return v.Waypoints }, v.TripID)
		if !ok || !v.Reservable(path) {
			continue
		}
		if !found || path.Dst.Arrival < bestPath.Dst.Arrival {
			bestVehicle, bestPath, found = v, path, true
		}
	}
	if !found {
		return simproto.ReservedDetails{Success: false, UserID: userID, DemandID: demandID}
	}
	bestVehicle.Reserve(userID, demandID, bestPath)
	return simproto.ReservedDetails{
		Success: true, UserID: userID, DemandID: demandID,
		Route: []simproto.RouteLeg{{Org: org, Dst: dst, Dept: bestPath.Org.Departure, Arrv: bestPath.Dst.Arrival}},
	}
}

// ReservableAny reports whether any registered vehicle could serve org->dst
// departing at dept, without mutating state (spec §6 GET /reservable).
func (s *Simulator) ReservableAny(org, dst string, dept float64) bool {
	for _, v := range s.Vehicles {
		path, ok := EarliestPath(s.Epoch, dept, org, dst, func(dayKey) []Waypoint { return v.Waypoints }, v.TripID)
		if ok && v.Reservable(path) {
			return true
		}
	}
	return false
}
