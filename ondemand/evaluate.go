package ondemand

import "math"

// InfeasibleScore is the score assigned to a route whose final arrival
// exceeds the operating window end (spec §4.2.3: "Infeasible -> score = 1 day").
const InfeasibleScore = 24 * 60.0

// evalResult is the outcome of forward-simulating a candidate stop sequence.
type evalResult struct {
	Feasible  bool
	Score     float64
	FinalTime float64
}

// evaluate forward-simulates arrival/departure times through entries
// starting at startTime, applying travel durations and boarding time (spec
// §4.2.3), writing each entry's Arrival/Departure in place. windowEnd bounds
// the day-end feasibility of the whole route.
//
// pickupWindows/deliverWindows are each user's own hard node bounds, carried
// from buildPairs/coalesce (spec §4.2.2, mirroring the original ortools
// model's CumulVar(...).SetRange on the org/dst nodes): pickup in
// [desired_dept, desired_dept+max_delay], delivery in
// [desired_dept+ideal_duration, desired_dept+ideal_duration+max_delay]. A
// candidate sequence that places a rider's pickup or delivery outside their
// own window is rejected here exactly like the day-end check, not merely
// penalized by the delay score.
func evaluate(depotStop string, startTime float64, entries []StopTimeEntry, network *Network, boardTime float64, windowEnd float64, pickupWindows, deliverWindows map[string]nodeWindow) evalResult {
	prevStop := depotStop
	t := startTime

	var delaySum float64
	var delayCount int

	out := entries

	for i := range out {
		e := &out[i]
		d, _ := network.Duration(prevStop, e.Stop)
		t += d
		e.Arrival = t

		for _, uid := range e.Off {
			if w, ok := deliverWindows[uid]; ok {
				if e.Arrival < w.Start || e.Arrival > w.End {
					return evalResult{Feasible: false, Score: InfeasibleScore, FinalTime: t}
				}
			}
		}

		dep := t
		if len(e.Off) > 0 {
			dep += boardTime
		}
		if len(e.On) > 0 {
			dep += boardTime
		}
		for _, uid := range e.On {
			if w, ok := pickupWindows[uid]; ok {
				floor := w.Start + boardTime
				if floor > dep {
					dep = floor
				}
			}
		}
		for _, uid := range e.On {
			if w, ok := pickupWindows[uid]; ok {
				hi := w.End + boardTime
				if dep > hi {
					return evalResult{Feasible: false, Score: InfeasibleScore, FinalTime: t}
				}
			}
		}
		e.Departure = dep
		t = dep
		prevStop = e.Stop

		for _, uid := range e.Off {
			if w, ok := deliverWindows[uid]; ok {
				delaySum += e.Arrival - w.Start + boardTime
				delayCount++
			}
		}
	}

	if math.IsInf(windowEnd, 0) == false && t > windowEnd {
		return evalResult{Feasible: false, Score: InfeasibleScore, FinalTime: t}
	}
	if delayCount == 0 {
		return evalResult{Feasible: true, Score: 0, FinalTime: t}
	}
	return evalResult{Feasible: true, Score: delaySum / float64(delayCount), FinalTime: t}
}
