package useragent

// PlanLeg is one leg of a planner-returned Route (spec §4.4.2): an ordered
// Trip leg annotated with the service operating it. Dept/Arrv are the
// planner's own estimate for that leg (the teacher's route_planner.Trip
// carries the same pair), not recomputed by the user-agent.
type PlanLeg struct {
	Org, Dst string
	Service  string
	Dept     float64
	Arrv     float64
}

// Plan is one candidate route the planner returns for a demand.
type Plan struct {
	Legs []PlanLeg
}

// IsWalkingOnly reports whether every leg of the plan is walking.
func (p Plan) IsWalkingOnly() bool {
	for _, l := range p.Legs {
		if l.Service != WalkService {
			return false
		}
	}
	return true
}

func (p Plan) totalWalkingMinutes() float64 {
	var total float64
	for _, l := range p.Legs {
		if l.Service == WalkService {
			total += l.Arrv - l.Dept
		}
	}
	return total
}

// arrivalTime is the plan's overall arrival: its last leg's Arrv.
func (p Plan) arrivalTime() float64 {
	if len(p.Legs) == 0 {
		return 0
	}
	return p.Legs[len(p.Legs)-1].Arrv
}

// firstMobilityLeg returns the index of the first non-walking leg, or -1.
func (p Plan) firstMobilityLeg() int {
	for i, l := range p.Legs {
		if l.Service != WalkService {
			return i
		}
	}
	return -1
}

// Filter is a user's configured plan preferences (spec §4.4.2).
type Filter struct {
	FavoriteServices   map[string]bool // empty means no restriction
	WalkingTimeLimit   float64         // minutes; 0 means unlimited
	SortType           SortType
}

type SortType int

const (
	SortNone SortType = iota
	SortByArrivalTime
	SortByWalkingTime
)

func (f Filter) passesFavoriteAndWalkLimit(p Plan) bool {
	if p.IsWalkingOnly() {
		return true
	}
	if len(f.FavoriteServices) > 0 {
		ok := false
		for _, l := range p.Legs {
			if l.Service != WalkService && f.FavoriteServices[l.Service] {
				ok = true
				break
			}
		}
		if !ok {
			return false
		}
	}
	if f.WalkingTimeLimit > 0 && p.totalWalkingMinutes() > f.WalkingTimeLimit {
		return false
	}
	return true
}

// SelectPlans runs spec §4.4.2's filter-and-sort pipeline: if the DEMAND
// named a service, restrict to plans using it (or walking-only plans if the
// named service is "walking"), falling back to the unfiltered list (with a
// caller-visible warning) if nothing matches; otherwise apply the user's
// configured Filter. Returns the chosen primary and, if any, the recovery
// plan (second after filtering/sorting).
func SelectPlans(plans []Plan, demandService string, filter Filter) (primary *Plan, recovery *Plan, usedFallbackWarning bool) {
	candidates := plans

	if demandService != "" {
		var matched []Plan
		for _, p := range plans {
			if demandService == WalkService {
				if p.IsWalkingOnly() {
					matched = append(matched, p)
				}
				continue
			}
			for _, l := range p.Legs {
				if l.Service == demandService {
					matched = append(matched, p)
					break
				}
			}
		}
		if len(matched) > 0 {
			candidates = matched
		} else {
			usedFallbackWarning = true
		}
	} else {
		var matched []Plan
		for _, p := range plans {
			if filter.passesFavoriteAndWalkLimit(p) {
				matched = append(matched, p)
			}
		}
		candidates = sortPlans(matched, filter.SortType)
	}

	if len(candidates) == 0 {
		return nil, nil, usedFallbackWarning
	}
	primary = &candidates[0]
	if len(candidates) > 1 {
		recovery = &candidates[1]
	}
	return primary, recovery, usedFallbackWarning
}

func sortPlans(plans []Plan, sortType SortType) []Plan {
	if sortType == SortNone || len(plans) < 2 {
		return plans
	}
	out := append([]Plan(nil), plans...)
	for i := 1; i < len(out); i++ {
		j := i
		for j > 0 && less(out[j], out[j-1], sortType) {
			out[j], out[j-1] = out[j-1], out[j]
			j--
		}
	}
	return out
}

func less(a, b Plan, sortType SortType) bool {
	switch sortType {
	case SortByWalkingTime:
		return a.totalWalkingMinutes() < b.totalWalkingMinutes()
	case SortByArrivalTime:
		return a.arrivalTime() < b.arrivalTime()
	default:
		return false
	}
}

// BuildFallbackChain implements spec §4.4.3: for a multi-leg primary plan
// whose middle leg uses a bookable mobility, wire that leg's fallback to
// [walk(primary.mobility_org -> recovery.mobility_org), recovery's mobility
// leg (with its own walking fallback), recovery's post-walk]. Every
// non-walking Trip task that has no explicit fallback gets a final
// walk(origin -> final destination) fallback. If primary is walking-only, no
// fallback is added.
func BuildFallbackChain(primary Plan, recovery *Plan, dept float64) []Task {
	if primary.IsWalkingOnly() {
		return walkOnlyTasks(primary, dept)
	}

	origin := primary.Legs[0].Org
	finalDst := primary.Legs[len(primary.Legs)-1].Dst

	idx := primary.firstMobilityLeg()
	var tasks []Task
	t := dept
	for i, leg := range primary.Legs {
		var fallback []Task
		if i == idx && recovery != nil && !recovery.IsWalkingOnly() {
			recIdx := recovery.firstMobilityLeg()
			if recIdx >= 0 {
				recLeg := recovery.Legs[recIdx]
				walkToRecovery := WalkTrip(leg.Org, recLeg.Org, t)
				recMobility := Trip(recLeg.Org, recLeg.Dst, recLeg.Service, t, []Task{WalkTrip(recLeg.Org, finalDst, t)})
				var postWalk []Task
				if recIdx+1 < len(recovery.Legs) {
					post := recovery.Legs[recIdx+1]
					postWalk = []Task{WalkTrip(post.Org, post.Dst, t)}
				}
				fallback = append([]Task{walkToRecovery, recMobility}, postWalk...)
			}
		}
		if fallback == nil && leg.Service != WalkService {
			fallback = []Task{WalkTrip(origin, finalDst, t)}
		}
		if leg.Service == WalkService {
			tasks = append(tasks, WalkTrip(leg.Org, leg.Dst, t))
		} else {
			tasks = append(tasks, Trip(leg.Org, leg.Dst, leg.Service, t, fallback))
		}
	}
	return tasks
}

func walkOnlyTasks(plan Plan, dept float64) []Task {
	out := make([]Task, 0, len(plan.Legs))
	for _, l := range plan.Legs {
		out = append(out, WalkTrip(l.Org, l.Dst, dept))
	}
	return out
}
