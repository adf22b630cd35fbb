package ondemand

import "github.com/mobility-cosim/platform/simproto"

// SpecVersion is the version URI every module in a topology must share
// (spec §4.5.2).
const SpecVersion = "mobility-cosim/v1"

// Specification describes this module's event directions/schemas/features
// for the broker's compatibility gate (spec §4.5.2, §6 GET /spec).
func Specification() simproto.SpecificationResponse {
	req := func(fields ...string) simproto.JSONSchema {
		return simproto.JSONSchema{Type: "object", Required: fields}
	}
	return simproto.SpecificationResponse{
		Version: SpecVersion,
		Events: map[simproto.EventType]simproto.EventSpec{
			simproto.EventReserve: {
				Dir:    simproto.Rx,
				Schema: req("userId", "demandId", "org", "dst", "dept"),
			},
			simproto.EventReserved: {
				Dir:    simproto.Tx,
				Schema: req("success", "userId", "demandId"),
			},
			simproto.EventDepart: {
				Dir:    simproto.Rx,
				Schema: req("userId", "demandId"),
			},
			simproto.EventDeparted: {
				Dir:    simproto.Tx,
				Schema: req("location"),
			},
			simproto.EventArrived: {
				Dir:    simproto.Tx,
				Schema: req("location"),
			},
		},
	}
}

// NewNetworkFromStops builds a geo.Network pre-populated with every stop's
// location, relying on the Haversine fallback for durations (spec §4.2.2's
// network.duration) unless a fixture loads explicit edges afterward.
// avgSpeedKmph bounds the Haversine estimate; a nil cache falls back to
// Network's own in-process memoization.
func NewNetworkFromStops(stops []Stop, avgSpeedKmph float64, cache DurationCache) *Network {
	if avgSpeedKmph <= 0 {
		avgSpeedKmph = 30
	}
	n := NewNetwork(avgSpeedKmph, cache)
	for _, st := range stops {
		n.AddLocation(st.Loc)
	}
	return n
}

// Reservable answers spec §6's GET /reservable without mutating state: true
// if at least one vehicle has a feasible (if only hypothetical) route for a
// trivial single-rider request from org to dst departing now.
func (s *Simulator) Reservable(org, dst string) bool {
	probe := &User{UserID: "__probe__", Org: org, Dst: dst, DesiredDept: s.Clock.Now(), MaxDelay: s.MaxDelay}
	duration, err := s.Network.Duration(org, dst)
	if err != nil {
		return false
	}
	probe.IdealDuration = duration + 2*s.BoardTime
	for _, v := range s.Fleet {
		cal := s.Calendars[v.GroupID]
		if _, ok := SolveNewRoute(v, probe, s.Clock.Now(), s.Network, s.BoardTime, cal); ok {
			return true
		}
	}
	return false
}
