package ondemand

import (
	"github.com/mobility-cosim/platform/clock"
	"github.com/mobility-cosim/platform/simproto"
)

// Simulator is the on-demand module's runtime: the discrete-event scheduler,
// the fleet, the shared network, and the buffer of events produced since the
// last drain (consumed by the module's /step handler). Grounded on the
// teacher repo's sim/simulator.go, generalized from a fixed-route bus loop
// into the vehicle state machine of spec §4.2.5.
type Simulator struct {
	Clock     *clock.Scheduler
	Network   *Network
	Fleet     map[string]*Vehicle
	Calendars map[string]FlexTripCalendar
	Stops     map[string]Stop
	BoardTime float64
	MaxDelay  float64

	events []simproto.Event
}

// NewSimulator builds an empty on-demand simulator ready for vehicles to be
// registered via AddVehicle.
func NewSimulator(network *Network, boardTime, maxDelay float64) *Simulator {
	return &Simulator{
		Clock:     clock.New(),
		Network:   network,
		Fleet:     make(map[string]*Vehicle),
		Calendars: make(map[string]FlexTripCalendar),
		Stops:     make(map[string]Stop),
		BoardTime: boardTime,
		MaxDelay:  maxDelay,
	}
}

// AddVehicle registers a vehicle and its flex-trip calendar, and parks it in
// StateAt at its home stop.
func (s *Simulator) AddVehicle(v *Vehicle, cal FlexTripCalendar) {
	s.Fleet[v.MobilityID] = v
	s.Calendars[v.GroupID] = cal
}

// DrainEvents returns and clears the events produced since the last drain.
func (s *Simulator) DrainEvents() []simproto.Event {
	out := s.events
	s.events = nil
	return out
}

func (s *Simulator) emit(et simproto.EventType, details map[string]any, service string) {
	s.events = append(s.events, simproto.Event{
		EventType: et,
		Time:      s.Clock.Now(),
		Service:   service,
		Details:   details,
	})
}

func (s *Simulator) loc(stopID string) simproto.Location {
	if st, ok := s.Stops[stopID]; ok {
		return st.Loc
	}
	return simproto.Location{LocationID: stopID}
}

func (s *Simulator) emitArrival(et simproto.EventType, userID, demandID, stopID, mobilityID string) {
	d, _ := simproto.ToMap(simproto.ArrivalDetails{
		UserID: userID, DemandID: demandID, Location: s.loc(stopID), MobilityID: mobilityID,
	})
	s.emit(et, d, "")
}

// ReserveUser runs the spec §4.2.1 pipeline against the whole fleet and, on
// success, starts (or interrupts and restarts) the winning vehicle's loop.
func (s *Simulator) ReserveUser(userID, demandID, org, dst string, dept float64) simproto.ReservedDetails {
	fleet := make([]*Vehicle, 0, len(s.Fleet))
	for _, v := range s.Fleet {
		fleet = append(fleet, v)
	}
	result := ReserveUser(fleet, s.Network, userID, demandID, org, dst, dept, s.Clock.Now(), s.BoardTime, s.MaxDelay, s.Calendars)
	if result.Success {
		v := s.Fleet[vehicleHoldingReserved(fleet, userID)]
		if v != nil {
			s.interruptAndReplan(v)
		}
	}
	return result
}

func vehicleHoldingReserved(fleet []*Vehicle, userID string) string {
	for _, v := range fleet {
		if _, ok := v.Reserved[userID]; ok {
			return v.MobilityID
		}
	}
	return ""
}

// ReadyToDepart moves a user from RESERVED to WAITING on the vehicle holding
// them (spec §4.2.6). A missing user is a logged warning, not an error —
// callers should log when ok is false.
func (s *Simulator) ReadyToDepart(userID string) (ok bool) {
	for _, v := range s.Fleet {
		if u, found := v.Reserved[userID]; found {
			delete(v.Reserved, userID)
			u.Status = StatusWaiting
			v.Waiting[userID] = u
			s.interruptAndReplan(v)
			return true
		}
	}
	return false
}

// interruptAndReplan cancels a vehicle's WaitingForScheduled timer (if any
// new reservation/readiness just landed at the current stop) and re-enters
// the decision loop (spec §4.2.5: "Reservation arrival while
// WaitingForScheduled interrupts the wait").
func (s *Simulator) interruptAndReplan(v *Vehicle) {
	if v.State == StateWaitingForScheduled && v.waitTimer != nil && v.waitTimer.Active() {
		v.waitTimer.Cancel()
		s.advance(v)
		return
	}
	if v.State == StateAt {
		if v.idleTimer != nil && v.idleTimer.Active() {
			v.idleTimer.Cancel()
			v.idleTimer = nil
		}
		s.advance(v)
	}
	// InTransit/IdleAwaitingReturnToHome: nothing to interrupt; the vehicle
	// will pick up the new schedule entries once it arrives.
}

// advance is the vehicle's decision point whenever it is physically At a
// stop with no pending wait (spec §4.2.5).
func (s *Simulator) advance(v *Vehicle) {
	if len(v.Schedule.Future) == 0 {
		s.handleIdle(v)
		return
	}
	next := v.Schedule.Future[0]
	if next.Stop == v.CurrentStop {
		if len(next.On) > 0 {
			v.State = StateWaitingForScheduled
			v.waitTimer = s.Clock.AfterAt(next.Departure, func(*clock.Scheduler) { s.departFromStop(v) })
			return
		}
		v.Schedule.Future = v.Schedule.Future[1:]
		s.advance(v)
		return
	}
	s.moveTo(v, next.Stop, func(sc *clock.Scheduler) { s.processArrivalAt(v) })
}

// handleIdle is the vehicle's decision point with an empty schedule (spec
// §4.2.5). While its service window is still open it parks and waits; since
// the clock only fires callbacks that were actually scheduled, that wait
// must arm a wakeup for the window's close itself, or a vehicle that goes
// idle early would never be revisited absent some unrelated event.
func (s *Simulator) handleIdle(v *Vehicle) {
	win := CurrentWindow(s.Clock.Now(), s.Calendars[v.GroupID])
	if win.Valid && s.Clock.Now() < win.End {
		v.State = StateAt
		if v.idleTimer == nil || !v.idleTimer.Active() {
			v.idleTimer = s.Clock.AfterAt(win.End, func(*clock.Scheduler) {
				v.idleTimer = nil
				s.advance(v)
			})
		}
		return
	}
	v.idleTimer = nil
	if v.CurrentStop != v.HomeStop && v.CurrentStop != "" {
		v.State = StateIdleAwaitingReturnToHome
		s.moveTo(v, v.HomeStop, func(sc *clock.Scheduler) {
			v.State = StateAt
			s.emitArrival(simproto.EventArrived, "", "", v.CurrentStop, v.MobilityID)
		})
		return
	}
	v.State = StateAt
}

// moveTo transitions the vehicle into InTransit toward dest, emitting the
// broadcast DEPARTED at departure and scheduling onArrive at the computed
// arrival time.
func (s *Simulator) moveTo(v *Vehicle, dest string, onArrive clock.Callback) {
	from := v.CurrentStop
	duration, _ := s.Network.Duration(from, dest)
	s.emitArrival(simproto.EventDeparted, "", "", from, v.MobilityID)

	v.CurrentStop = ""
	v.NextStop = dest
	v.ArrivalTime = s.Clock.Now() + duration
	v.State = StateInTransit

	s.Clock.AfterAt(v.ArrivalTime, func(sc *clock.Scheduler) {
		v.CurrentStop = dest
		v.NextStop = ""
		v.LastArrival = sc.Now()
		onArrive(sc)
	})
}

// processArrivalAt handles an arrival at a scheduled stop: emit the
// broadcast ARRIVED, alight passengers (spec §4.2.5: "emit ARRIVED per
// alighting passenger, remove from passengers"), then either enter
// WaitingForScheduled (if users board here too) or continue the decision
// loop.
func (s *Simulator) processArrivalAt(v *Vehicle) {
	s.emitArrival(simproto.EventArrived, "", "", v.CurrentStop, v.MobilityID)

	if len(v.Schedule.Future) == 0 || v.Schedule.Future[0].Stop != v.CurrentStop {
		s.advance(v)
		return
	}
	entry := v.Schedule.Future[0]
	for _, uid := range entry.Off {
		u, ok := v.Passengers[uid]
		if !ok {
			continue
		}
		delete(v.Passengers, uid)
		s.emitArrival(simproto.EventArrived, uid, u.DemandID, entry.Stop, "")
	}
	if len(entry.On) == 0 {
		v.Schedule.Future = v.Schedule.Future[1:]
	}
	s.advance(v)
}

func (s *Simulator) departFromStop(v *Vehicle) {
	entry := v.Schedule.Future[0]
	v.Schedule.Future = v.Schedule.Future[1:]
	for _, uid := range entry.On {
		u, ok := v.Waiting[uid]
		if !ok {
			continue
		}
		delete(v.Waiting, uid)
		u.Status = StatusRiding
		v.Passengers[uid] = u
		s.emitArrival(simproto.EventDeparted, uid, u.DemandID, entry.Stop, "")
	}
	s.advance(v)
}
