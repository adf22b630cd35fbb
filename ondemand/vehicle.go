package ondemand

import (
	"github.com/mobility-cosim/platform/clock"
)

// VehicleState is the spec §4.2.5 state machine tag.
type VehicleState int

const (
	StateAt VehicleState = iota
	StateInTransit
	StateWaitingForScheduled
	StateIdleAwaitingReturnToHome
)

// Vehicle is the on-demand Car of spec §3: capacity, current position, the
// three user sets it owns, and its running Schedule. Grounded on the teacher
// repo's model/bus.go Bus struct (capacity + boarding/alighting bookkeeping),
// generalized from a fixed-route bus to a freely-routed on-demand vehicle.
type Vehicle struct {
	MobilityID string
	Capacity   int
	HomeStop   string
	GroupID    string // flex-trip group this vehicle serves, for service-window lookup

	CurrentStop string // "" if in transit
	NextStop    string // valid only while InTransit
	ArrivalTime float64

	Schedule Schedule

	Reserved   map[string]*User // user id -> User, RESERVED state
	Waiting    map[string]*User // user id -> User, WAITING state
	Passengers map[string]*User // user id -> User, RIDING state

	LastArrival float64

	State       VehicleState
	waitTimer   *clock.Timer
	idleTimer   *clock.Timer // pending window-end wakeup while StateAt with an empty schedule
	onInterrupt func()       // not set anywhere; interrupts go through Simulator.interruptAndReplan
}

// NewVehicle constructs an idle vehicle parked at its home stop.
func NewVehicle(id string, capacity int, homeStop, groupID string) *Vehicle {
	return &Vehicle{
		MobilityID:  id,
		Capacity:    capacity,
		HomeStop:    homeStop,
		GroupID:     groupID,
		CurrentStop: homeStop,
		Reserved:    make(map[string]*User),
		Waiting:     make(map[string]*User),
		Passengers:  make(map[string]*User),
		State:       StateAt,
	}
}

// InTransit reports whether the vehicle has no fixed current stop (spec §3
// invariant: current_stop = nil iff vehicle in transit).
func (v *Vehicle) InTransit() bool { return v.CurrentStop == "" }

// Load returns the number of onboard passengers right now.
func (v *Vehicle) Load() int { return len(v.Passengers) }

// RemoveUserEverywhere deletes userID from all three of this vehicle's sets
// (reserved, waiting, passengers), so a completed user is left in none.
func (v *Vehicle) RemoveUserEverywhere(userID string) {
	delete(v.Reserved, userID)
	delete(v.Waiting, userID)
	delete(v.Passengers, userID)
}

// DepotCumulStart computes the depot's cumul start for the VRP per spec
// §4.2.2: now if at a stop, the scheduled arrival time if in transit.
func (v *Vehicle) DepotCumulStart(now float64) float64 {
	if v.InTransit() {
		return v.ArrivalTime
	}
	return now
}

// DepotStopID is the stop the VRP's depot node represents: current stop if
// parked, or the scheduled arrival stop if in transit (spec §4.2.2).
func (v *Vehicle) DepotStopID() string {
	if v.InTransit() {
		return v.NextStop
	}
	return v.CurrentStop
}
