// Package ondemand implements the ride-pooling simulator core: stops,
// vehicles, the pickup-delivery route solver, the vehicle state machine, and
// the reservation pipeline (spec §4.2). Grounded throughout on the teacher
// repo's bus/passenger bookkeeping (model/bus.go, model/passenger.go) and the
// ride-pooling example's pkg/geo insertion heuristic, generalized from a
// single-destination airport shuttle into the general capacitated,
// time-windowed pickup/delivery problem.
package ondemand

import (
	"github.com/mobility-cosim/platform/geo"
	"github.com/mobility-cosim/platform/simproto"
)

// UserStatus mirrors spec §3's User.status enum.
type UserStatus string

const (
	StatusReserved UserStatus = "RESERVED"
	StatusWaiting  UserStatus = "WAITING"
	StatusRiding   UserStatus = "RIDING"
)

// Stop is a named location a vehicle can serve (spec §3).
type Stop struct {
	ID   string
	Name string
	Loc  simproto.Location
}

// Group is a named set of stops serving one flex trip (spec §3).
type Group struct {
	ID    string
	Stops []string // stop ids
}

// User is a reservation in flight or in progress (spec §3).
type User struct {
	UserID        string
	DemandID      string
	Org           string
	Dst           string
	DesiredDept   float64
	IdealDuration float64
	Status        UserStatus
	MaxDelay      float64
}

// StopTimeEntry is one stop of a vehicle's Schedule, carrying the users
// boarding/alighting there (spec §3's Schedule entry shape).
type StopTimeEntry struct {
	Stop string
	On   []string // user ids boarding here
	Off  []string // user ids alighting here
	// Arrival/Departure are filled in by evaluation (§4.2.3); zero until then.
	Arrival   float64
	Departure float64
}

// Schedule is a vehicle's planned stop sequence (spec §3).
type Schedule struct {
	Current *StopTimeEntry
	Future  []StopTimeEntry
}

// RouteLeg mirrors simproto.RouteLeg but indexed by user for internal use
// during route construction, before conversion to the wire shape.
type RouteLeg = simproto.RouteLeg

// Network is the travel-duration source every vehicle routes against; an
// alias kept local so callers don't need to import geo directly everywhere.
type Network = geo.Network

// DurationCache is geo's memoization interface, aliased for the same reason.
type DurationCache = geo.DurationCache
