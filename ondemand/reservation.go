package ondemand

import (
	"math"

	"github.com/mobility-cosim/platform/simproto"
)

// DefaultBoardTimeMinutes is the per-boarding/alighting dwell added at each stop
// (spec §4.2.3); configurable per fleet, defaulted here.
const DefaultBoardTimeMinutes = 1.0

// Candidate is a feasible (vehicle, schedule, score) solution for a
// reservation attempt.
type Candidate struct {
	Vehicle *Vehicle
	Entries []StopTimeEntry
	Score   float64
}

// SolveNewRoute attempts to fit newUser into v's existing commitments (spec
// §4.2.2): build the VRP node set (existing passengers/waiting/reserved plus
// the candidate), run parallel-cheapest-insertion, then evaluate the
// resulting sequence for feasibility and score (spec §4.2.3). Returns ok=false
// if the vehicle has no valid service window or the route is infeasible.
func SolveNewRoute(v *Vehicle, newUser *User, now float64, network *Network, boardTime float64, cal FlexTripCalendar) (Candidate, bool) {
	win := CurrentWindow(now, cal)
	if !win.Valid {
		return Candidate{}, false
	}

	start := v.DepotCumulStart(now)
	if start < win.Start {
		start = win.Start
	}

	pairs := buildPairs(v, newUser, network, boardTime)
	if len(pairs) == 0 {
		return Candidate{}, false
	}
	seq := solveSequence(v.DepotStopID(), pairs, network)
	entries, pickupWindows, deliverWindows := coalesce(seq)

	users := collectUsers(v, newUser)
	if !capacityFeasible(entries, users, v.Capacity, v.Load()) {
		return Candidate{}, false
	}

	res := evaluate(v.DepotStopID(), start, entries, network, boardTime, win.End, pickupWindows, deliverWindows)
	if !res.Feasible {
		return Candidate{}, false
	}
	return Candidate{Vehicle: v, Entries: entries, Score: res.Score}, true
}

func collectUsers(v *Vehicle, newUser *User) map[string]*User {
	out := make(map[string]*User, len(v.Passengers)+len(v.Waiting)+len(v.Reserved)+1)
	for k, u := range v.Passengers {
		out[k] = u
	}
	for k, u := range v.Waiting {
		out[k] = u
	}
	for k, u := range v.Reserved {
		out[k] = u
	}
	if newUser != nil {
		out[newUser.UserID] = newUser
	}
	return out
}

// capacityFeasible walks the coalesced entries tracking onboard load,
// starting from the vehicle's current passengers (spec §3's |passengers| ≤
// capacity invariant).
func capacityFeasible(entries []StopTimeEntry, users map[string]*User, capacity, startLoad int) bool {
	load := startLoad
	for _, e := range entries {
		load -= len(e.Off)
		load += len(e.On)
		if load > capacity {
			return false
		}
	}
	return true
}

// ReserveUser runs the full spec §4.2.1 pipeline against a fleet: construct
// the User, try every vehicle, pick the feasible candidate with the lowest
// score (deterministic tie-break by vehicle id), commit the winning
// schedule, and return the RESERVED event details to emit.
func ReserveUser(fleet []*Vehicle, network *Network, userID, demandID, org, dst string, dept float64, now float64, boardTime float64, maxDelay float64, calendars map[string]FlexTripCalendar) simproto.ReservedDetails {
	duration, _ := network.Duration(org, dst)
	user := &User{
		UserID:        userID,
		DemandID:      demandID,
		Org:           org,
		Dst:           dst,
		DesiredDept:   dept,
		IdealDuration: duration + 2*boardTime,
		Status:        StatusReserved,
		MaxDelay:      maxDelay,
	}

	var best Candidate
	found := false
	bestScore := math.Inf(1)
	for _, v := range fleet {
		cal := calendars[v.GroupID]
		cand, ok := SolveNewRoute(v, user, now, network, boardTime, cal)
		if !ok {
			continue
		}
		if !found || cand.Score < bestScore || (cand.Score == bestScore && v.MobilityID < best.Vehicle.MobilityID) {
			best = cand
			bestScore = cand.Score
			found = true
		}
	}

	if !found {
		return simproto.ReservedDetails{Success: false, UserID: userID, DemandID: demandID}
	}

	best.Vehicle.Reserved[userID] = user

	route := applySchedule(best.Vehicle, best.Entries, userID)
	return simproto.ReservedDetails{Success: true, UserID: userID, DemandID: demandID, Route: route}
}

// applySchedule commits the winning candidate's stop sequence onto the
// vehicle and derives the RESERVED route legs (one per boarding->alighting
// pair for this user) per spec §4.2.1 step 4.
func applySchedule(v *Vehicle, entries []StopTimeEntry, userID string) []simproto.RouteLeg {
	v.Schedule.Future = entries

	var legs []simproto.RouteLeg
	var openOrg string
	var openDept float64
	open := false
	for _, e := range entries {
		for _, uid := range e.On {
			if uid == userID {
				openOrg = e.Stop
				openDept = e.Departure
				open = true
			}
		}
		for _, uid := range e.Off {
			if uid == userID && open {
				legs = append(legs, simproto.RouteLeg{Org: openOrg, Dst: e.Stop, Dept: openDept, Arrv: e.Arrival})
				open = false
			}
		}
	}
	return legs
}
