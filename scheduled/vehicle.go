package scheduled

// ScheduledUser mirrors spec §3's User, scoped to one reserved path on one
// scheduled vehicle.
type ScheduledUser struct {
	UserID    string
	DemandID  string
	Org, Dst  string
	Departure float64
	Arrival   float64
	Riding    bool
}

// Vehicle is one scheduled/route-deviation vehicle: its day's materialized
// Waypoints (spec §4.3.1) plus which users board/alight at each index.
// Grounded on the teacher repo's model/bus.go, generalized from a
// fixed-headway loop into calendar-driven single/block-trip traversal.
type Vehicle struct {
	VehicleID string
	Capacity  int
	TripID    string

	Waypoints []Waypoint
	BoardAt   map[int][]string
	AlightAt  map[int][]string

	Users map[string]*ScheduledUser

	cursor      int // index of the next Waypoint not yet arrived at
	reservations []ReservedInterval
}

// NewVehicle builds a vehicle bound to a fixed day's waypoint list.
func NewVehicle(id string, capacity int, tripID string, waypoints []Waypoint) *Vehicle {
	return &Vehicle{
		VehicleID: id, Capacity: capacity, TripID: tripID,
		Waypoints: waypoints,
		BoardAt:   map[int][]string{},
		AlightAt:  map[int][]string{},
		Users:     map[string]*ScheduledUser{},
	}
}

// indexOfWaypoint finds the first waypoint index matching location at the
// given arrival/departure instant (used to attach
// a freshly-accepted reservation's board/alight points).
func (v *Vehicle) indexOfWaypoint(locationID string, instant float64, isDeparture bool) (int, bool) {
	for i, wp := range v.Waypoints {
		if wp.LocationID != locationID {
			continue
		}
		if isDeparture && wp.Departure == instant {
			return i, true
		}
		if !isDeparture && wp.Arrival == instant {
			return i, true
		}
	}
	return -1, false
}

// Reserve attaches an accepted path to this vehicle (spec §4.3.2 "On
// reserve: append the User to the vehicle"): records the reservation
// interval for future IsReservable checks and the board/alight attachment
// points for traversal.
func (v *Vehicle) Reserve(userID, demandID string, path Path) bool {
	orgIdx, ok1 := v.indexOfWaypoint(path.Org.LocationID, path.Org.Departure, true)
	dstIdx, ok2 := v.indexOfWaypoint(path.Dst.LocationID, path.Dst.Arrival, false)
	if !ok1 || !ok2 {
		return false
	}
	v.reservations = append(v.reservations, ReservedInterval{Departure: path.Org.Departure, Arrival: path.Dst.Arrival})
	v.BoardAt[orgIdx] = append(v.BoardAt[orgIdx], userID)
	v.AlightAt[dstIdx] = append(v.AlightAt[dstIdx], userID)
	v.Users[userID] = &ScheduledUser{UserID: userID, DemandID: demandID, Org: path.Org.LocationID, Dst: path.Dst.LocationID, Departure: path.Org.Departure, Arrival: path.Dst.Arrival}
	return true
}

// Reservable reports whether accepting a candidate path would keep the
// vehicle within capacity at every instant (spec §4.3.2's IsReservable),
// without mutating state.
func (v *Vehicle) Reservable(path Path) bool {
	return IsReservable(v.reservations, ReservedInterval{Departure: path.Org.Departure, Arrival: path.Dst.Arrival}, v.Capacity)
}
