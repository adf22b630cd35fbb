// Package useragent implements the user-agent core (spec §4.4): demand to
// plan selection to task chain, with failure fallbacks. Grounded on the
// teacher repo's passenger/event bookkeeping (model/passenger.go,
// sim/events.go), generalized from a fixed-route rider into the polymorphic
// task-chain model spec §4.4.1/§9 call for.
package useragent

import "github.com/mobility-cosim/platform/simproto"

// TaskKind tags a Task's variant (spec §4.4.1, §9: "tagged unions, not
// inheritance").
type TaskKind int

const (
	TaskWait TaskKind = iota
	TaskTrip
	TaskReserve
	TaskReservedTrip
)

// Task is the tagged union of spec §4.4.1's four variants. Only the fields
// relevant to Kind are meaningful; Fallback holds the task list substituted
// in on failure ("a non-empty fallback becomes the new head of the list").
type Task struct {
	Kind TaskKind

	// Wait
	Dept float64

	// Trip / ReservedTrip
	Org, Dst string
	Service  string
	Arrv     *float64

	// Reserve
	Route []simproto.RouteLeg

	Fallback []Task
}

// WalkService is the sentinel service name meaning "walk" (spec §4.4.1:
// "walking is never allowed to fail").
const WalkService = "walking"

func Wait(dept float64) Task { return Task{Kind: TaskWait, Dept: dept} }

func Trip(org, dst, service string, dept float64, fallback []Task) Task {
	return Task{Kind: TaskTrip, Org: org, Dst: dst, Service: service, Dept: dept, Fallback: fallback}
}

func Reserve(org, dst, service string, dept float64, fallback []Task) Task {
	return Task{Kind: TaskReserve, Org: org, Dst: dst, Service: service, Dept: dept, Fallback: fallback}
}

func ReservedTrip(org, dst, service string, dept float64) Task {
	return Task{Kind: TaskReservedTrip, Org: org, Dst: dst, Service: service, Dept: dept}
}

func WalkTrip(org, dst string, dept float64) Task {
	return Trip(org, dst, WalkService, dept, nil)
}
