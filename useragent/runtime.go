package useragent

import (
	"github.com/mobility-cosim/platform/clock"
	"github.com/mobility-cosim/platform/simproto"
)

// pendingWait is a task suspended awaiting a triggered event, keyed the way
// spec §4.4.4 requires: event type, source module, user id, and (for
// depart/arrive) a location.
type pendingWait struct {
	eventType simproto.EventType
	source    string
	userID    string
	location  string
	resume    func(ev simproto.Event)
}

// RiderUser drives one user's task chain (spec §4.4.1) through the clock.
type RiderUser struct {
	UserID   string
	DemandID string
	Tasks    []Task
}

// Agent is the user-agent module's runtime: the clock, every active rider's
// task chain, and the pending-event waits spec §4.4.4 matches triggered
// events against. Grounded on the teacher repo's sim/runner.go process
// loop, generalized from fixed boarding events into the tagged-union task
// dispatch spec §4.4.1/§9 describes.
type Agent struct {
	Clock *clock.Scheduler

	// ConfirmedServices is the set of mobility services requiring advance
	// reservation (glossary's "Confirmed service"); ReservationLeadMinutes
	// gives each its configured lead time (SPEC_FULL §5, restored from
	// original_source/src/user_model/favorite/user_manager.py).
	ConfirmedServices     map[string]bool
	ReservationLeadMinutes map[string]float64

	riders  map[string]*RiderUser
	waits   []*pendingWait
	events  []simproto.Event
}

// NewAgent builds an Agent with empty confirmed-service configuration.
func NewAgent() *Agent {
	return &Agent{
		Clock:                  clock.New(),
		ConfirmedServices:      map[string]bool{},
		ReservationLeadMinutes: map[string]float64{},
		riders:                 map[string]*RiderUser{},
	}
}

func (a *Agent) DrainEvents() []simproto.Event {
	out := a.events
	a.events = nil
	return out
}

func (a *Agent) emit(et simproto.EventType, service string, details map[string]any) {
	a.events = append(a.events, simproto.Event{EventType: et, Time: a.Clock.Now(), Service: service, Details: details})
}

// StartUser registers a rider and begins running its task chain immediately
// (spec §4.4.1: a User holds an ordered list of tasks).
func (a *Agent) StartUser(userID, demandID string, tasks []Task) {
	u := &RiderUser{UserID: userID, DemandID: demandID, Tasks: tasks}
	a.riders[userID] = u
	a.Clock.Schedule(a.Clock.Now(), func(*clock.Scheduler) { a.runNext(u) })
}

// runNext pops and runs the head task, per spec §4.4.1's dispatch.
func (a *Agent) runNext(u *RiderUser) {
	if len(u.Tasks) == 0 {
		delete(a.riders, u.UserID)
		return
	}
	task := u.Tasks[0]
	u.Tasks = u.Tasks[1:]

	switch task.Kind {
	case TaskWait:
		a.runWait(u, task)
	case TaskTrip:
		a.runTrip(u, task)
	case TaskReserve:
		a.runReserve(u, task)
	case TaskReservedTrip:
		a.runReservedTrip(u, task)
	}
}

func (a *Agent) runWait(u *RiderUser, task Task) {
	if task.Dept > a.Clock.Now() {
		a.Clock.AfterAt(task.Dept, func(*clock.Scheduler) { a.runNext(u) })
		return
	}
	a.runNext(u)
}

// runTrip implements spec §4.4.1's Trip variant: emit RESERVE targeted at
// the service, wait for matching RESERVED. Walking legs use the same
// envelope but are "never allowed to fail" — callers should never route a
// RESERVED{success:false} back for walking in a conforming planner, but we
// still honor the fallback machinery uniformly rather than special-casing it.
func (a *Agent) runTrip(u *RiderUser, task Task) {
	d, _ := simproto.ToMap(simproto.ReserveDetails{
		UserID: u.UserID, DemandID: u.DemandID,
		Org: simproto.Location{LocationID: task.Org}, Dst: simproto.Location{LocationID: task.Dst},
		Dept: task.Dept,
	})
	a.emit(simproto.EventReserve, task.Service, d)

	a.await(simproto.EventReserved, task.Service, u.UserID, "", func(ev simproto.Event) {
		var rd simproto.ReservedDetails
		_ = simproto.DecodeDetails(ev.Details, &rd)
		if !rd.Success {
			a.onTaskFailure(u, task)
			return
		}
		dd, _ := simproto.ToMap(simproto.DepartDetails{UserID: u.UserID, DemandID: u.DemandID})
		a.emit(simproto.EventDepart, task.Service, dd)
		a.await(simproto.EventArrived, task.Service, u.UserID, task.Dst, func(simproto.Event) {
			a.runNext(u)
		})
	})
}

// runReserve implements spec §4.4.1's Reserve variant: for confirmed
// services, issue RESERVE well before departure (the reservation-lead-time
// feature restored per SPEC_FULL §5); on success, replace the task with the
// [walk, ReservedTrip, walk] triple, adjusting walking endpoints/durations
// from the RESERVED route; on failure, fall back.
func (a *Agent) runReserve(u *RiderUser, task Task) {
	d, _ := simproto.ToMap(simproto.ReserveDetails{
		UserID: u.UserID, DemandID: u.DemandID,
		Org: simproto.Location{LocationID: task.Org}, Dst: simproto.Location{LocationID: task.Dst},
		Dept: task.Dept,
	})
	a.emit(simproto.EventReserve, task.Service, d)

	a.await(simproto.EventReserved, task.Service, u.UserID, "", func(ev simproto.Event) {
		var rd simproto.ReservedDetails
		_ = simproto.DecodeDetails(ev.Details, &rd)
		if !rd.Success {
			a.onTaskFailure(u, task)
			return
		}
		var mobilityOrg, mobilityDst string = task.Org, task.Dst
		var mobilityDept, mobilityArrv = task.Dept, task.Dept
		if len(rd.Route) > 0 {
			mobilityOrg = rd.Route[0].Org
			mobilityDst = rd.Route[len(rd.Route)-1].Dst
			mobilityDept = rd.Route[0].Dept
			mobilityArrv = rd.Route[len(rd.Route)-1].Arrv
		}
		replacement := []Task{
			WalkTrip(task.Org, mobilityOrg, task.Dept),
			ReservedTrip(mobilityOrg, mobilityDst, task.Service, mobilityDept),
			WalkTrip(mobilityDst, task.Dst, mobilityArrv),
		}
		u.Tasks = append(replacement, u.Tasks...)
		a.runNext(u)
	})
}

// ReservationDeptFor computes the departure minute the Reserve task should
// use for a confirmed service: desiredDept minus its configured lead time.
func (a *Agent) ReservationDeptFor(service string, desiredDept float64) float64 {
	if a.ConfirmedServices[service] {
		return desiredDept - a.ReservationLeadMinutes[service]
	}
	return desiredDept
}

// runReservedTrip implements spec §4.4.1's ReservedTrip variant: no
// reservation step, emit DEPART immediately, wait for ARRIVED.
func (a *Agent) runReservedTrip(u *RiderUser, task Task) {
	dd, _ := simproto.ToMap(simproto.DepartDetails{UserID: u.UserID, DemandID: u.DemandID})
	a.emit(simproto.EventDepart, task.Service, dd)
	a.await(simproto.EventArrived, task.Service, u.UserID, task.Dst, func(simproto.Event) {
		a.runNext(u)
	})
}

// onTaskFailure implements the "return fail list, or if empty, terminate
// user" branch common to Trip/Reserve (spec §4.4.1).
func (a *Agent) onTaskFailure(u *RiderUser, task Task) {
	if len(task.Fallback) == 0 {
		delete(a.riders, u.UserID)
		return
	}
	u.Tasks = append(append([]Task{}, task.Fallback...), u.Tasks...)
	a.runNext(u)
}

// await registers a wait matched per spec §4.4.4's event-identity rule.
// location is only compared for DEPARTED/ARRIVED waits (pass "" to skip it).
func (a *Agent) await(et simproto.EventType, source, userID, location string, resume func(simproto.Event)) {
	a.waits = append(a.waits, &pendingWait{eventType: et, source: source, userID: userID, location: location, resume: resume})
}

// Triggered delivers a broker-forwarded event to the agent (spec §6's
// /triggered): it is matched against pending waits by (event_type,
// source_module, user_id, [location]); unmatched events are ignored.
func (a *Agent) Triggered(ev simproto.Event) {
	userID, location := identityOf(ev)
	for i, w := range a.waits {
		if w.eventType != ev.EventType || w.source != ev.Source || w.userID != userID {
			continue
		}
		if w.location != "" && w.location != location {
			continue
		}
		a.waits = append(a.waits[:i], a.waits[i+1:]...)
		w.resume(ev)
		return
	}
}

func identityOf(ev simproto.Event) (userID, location string) {
	switch ev.EventType {
	case simproto.EventReserved:
		var d simproto.ReservedDetails
		_ = simproto.DecodeDetails(ev.Details, &d)
		return d.UserID, ""
	case simproto.EventDeparted, simproto.EventArrived:
		var d simproto.ArrivalDetails
		_ = simproto.DecodeDetails(ev.Details, &d)
		return d.UserID, d.Location.LocationID
	default:
		return "", ""
	}
}
