package ondemand

import (
	"math"
	"sort"
)

// nodeKind tags a VRP node (spec §4.2.2's three node shapes).
type nodeKind int

const (
	nodeDeliveryOnly nodeKind = iota // already-onboard passenger's drop-off
	nodePickup
	nodeDelivery
)

// node is one stop visit the solver must place in the vehicle's route.
type node struct {
	kind        nodeKind
	stop        string
	userID      string
	windowStart float64
	windowEnd   float64
}

// pair bundles a user's pickup+delivery nodes. Pickup is nil for users
// already onboard (only the delivery node needs inserting).
type pair struct {
	userID  string
	pickup  *node
	deliver node
}

// buildPairs assembles the node-pairs solve_new_route must place: one
// delivery-only entry per current passenger, one pickup+delivery pair per
// waiting/reserved user, and one for the candidate new user (spec §4.2.2).
func buildPairs(v *Vehicle, newUser *User, network *Network, boardTime float64) []pair {
	var pairs []pair

	for uid, u := range v.Passengers {
		pairs = append(pairs, pair{
			userID: uid,
			deliver: node{
				kind: nodeDeliveryOnly, stop: u.Dst, userID: uid,
				windowStart: u.DesiredDept + u.IdealDuration,
				windowEnd:   u.DesiredDept + u.IdealDuration + u.MaxDelay,
			},
		})
	}
	addPickupDelivery := func(uid string, u *User) {
		p := &node{kind: nodePickup, stop: u.Org, userID: uid,
			windowStart: u.DesiredDept, windowEnd: u.DesiredDept + u.MaxDelay}
		d := node{kind: nodeDelivery, stop: u.Dst, userID: uid,
			windowStart: u.DesiredDept + u.IdealDuration,
			windowEnd:   u.DesiredDept + u.IdealDuration + u.MaxDelay}
		pairs = append(pairs, pair{userID: uid, pickup: p, deliver: d})
	}
	for uid, u := range v.Waiting {
		addPickupDelivery(uid, u)
	}
	for uid, u := range v.Reserved {
		addPickupDelivery(uid, u)
	}
	// Map iteration order varies between runs; sorting by user id keeps
	// equal-cost insertions resolving the same way every time.
	sort.Slice(pairs, func(i, j int) bool { return pairs[i].userID < pairs[j].userID })
	if newUser != nil {
		addPickupDelivery(newUser.UserID, newUser)
	}
	return pairs
}

// insertionCost is the added travel time from inserting stop between
// seq[pos-1] and seq[pos] (depot is seq[-1] conceptually; inserting at the
// end only costs the leg from the last stop).
func insertionCost(network *Network, depotStop string, seq []node, pos int, stop string) float64 {
	prevStop := depotStop
	if pos > 0 {
		prevStop = seq[pos-1].stop
	}
	if pos == len(seq) {
		d, _ := network.Duration(prevStop, stop)
		return d
	}
	nextStop := seq[pos].stop
	dPrev, _ := network.Duration(prevStop, stop)
	dNext, _ := network.Duration(stop, nextStop)
	dSkip, _ := network.Duration(prevStop, nextStop)
	return dPrev + dNext - dSkip
}

func insertAt(seq []node, pos int, n node) []node {
	out := make([]node, 0, len(seq)+1)
	out = append(out, seq[:pos]...)
	out = append(out, n)
	out = append(out, seq[pos:]...)
	return out
}

// solveSequence runs parallel-cheapest-insertion (spec §4.2.2/§9): at each
// round, every unplaced pair/delivery-only node is scored for its cheapest
// insertion; the globally cheapest is committed, repeat until everything is
// placed. Grounded on the ride-pooling example's FindBestInsertionIndex,
// generalized from single-stop insertion into paired pickup/delivery
// placement with precedence (pickup before its own delivery).
func solveSequence(depotStop string, pairs []pair, network *Network) []node {
	seq := make([]node, 0, len(pairs)*2)
	remaining := append([]pair(nil), pairs...)

	for len(remaining) > 0 {
		bestIdx := -1
		bestCost := math.Inf(1)
		var bestSeq []node

		for i, p := range remaining {
			if p.pickup == nil {
				for pos := 0; pos <= len(seq); pos++ {
					cost := insertionCost(network, depotStop, seq, pos, p.deliver.stop)
					if cost < bestCost {
						bestCost = cost
						bestIdx = i
						bestSeq = insertAt(seq, pos, p.deliver)
					}
				}
				continue
			}
			for pPos := 0; pPos <= len(seq); pPos++ {
				withPickup := insertAt(seq, pPos, *p.pickup)
				pickupCost := insertionCost(network, depotStop, seq, pPos, p.pickup.stop)
				for dPos := pPos + 1; dPos <= len(withPickup); dPos++ {
					deliverCost := insertionCost(network, depotStop, withPickup, dPos, p.deliver.stop)
					total := pickupCost + deliverCost
					if total < bestCost {
						bestCost = total
						bestIdx = i
						bestSeq = insertAt(withPickup, dPos, p.deliver)
					}
				}
			}
		}

		if bestIdx < 0 {
			break
		}
		seq = bestSeq
		remaining = append(remaining[:bestIdx], remaining[bestIdx+1:]...)
	}
	return seq
}

// nodeWindow is a node's hard arrival/departure-time range (spec §4.2.2,
// mirroring the original ortools model's CumulVar(...).SetRange on the
// org/dst nodes).
type nodeWindow struct {
	Start, End float64
}

// coalesce merges consecutive nodes at the same stop into one StopTimeEntry,
// per spec §4.2.2/§3's Route definition, and separately returns each user's
// pickup and delivery node windows so evaluate can enforce them (the
// coalesced StopTimeEntry itself only records who boards/alights where, not
// their individual time bounds).
func coalesce(seq []node) (entries []StopTimeEntry, pickupWindows, deliverWindows map[string]nodeWindow) {
	pickupWindows = make(map[string]nodeWindow)
	deliverWindows = make(map[string]nodeWindow)
	for _, n := range seq {
		if len(entries) > 0 && entries[len(entries)-1].Stop == n.stop {
			addUserTo(&entries[len(entries)-1], n)
		} else {
			e := StopTimeEntry{Stop: n.stop}
			addUserTo(&e, n)
			entries = append(entries, e)
		}
		switch n.kind {
		case nodePickup:
			pickupWindows[n.userID] = nodeWindow{Start: n.windowStart, End: n.windowEnd}
		case nodeDelivery, nodeDeliveryOnly:
			deliverWindows[n.userID] = nodeWindow{Start: n.windowStart, End: n.windowEnd}
		}
	}
	return entries, pickupWindows, deliverWindows
}

func addUserTo(e *StopTimeEntry, n node) {
	switch n.kind {
	case nodePickup:
		e.On = append(e.On, n.userID)
	case nodeDelivery, nodeDeliveryOnly:
		e.Off = append(e.Off, n.userID)
	}
}
