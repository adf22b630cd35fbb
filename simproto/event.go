// Package simproto holds the wire types shared by every HTTP module in the
// platform (broker, on-demand simulator, scheduled simulator, user-agent):
// the event envelope, location type, and module specification/feature
// schema used by the broker's compatibility gate. Grounded on the shared
// request/response conventions the example corpus pulls into one package per
// service family (shared/pkg in the logistics-platform example) and, more
// directly, on the original Python implementation's libs/mblib, which every
// base_simulators/* package imports for exactly this purpose.
package simproto

import "fmt"

// EventType enumerates the observable events produced during a broker tick
// (spec §2, §6).
type EventType string

const (
	EventDemand   EventType = "DEMAND"
	EventReserve  EventType = "RESERVE"
	EventReserved EventType = "RESERVED"
	EventDepart   EventType = "DEPART"
	EventDeparted EventType = "DEPARTED"
	EventArrived  EventType = "ARRIVED"
)

// Location identifies a point served by a mobility service. Identity is by
// ID; lat/lng are advisory (spec §3).
type Location struct {
	LocationID string  `json:"locationId"`
	Lat        float64 `json:"lat"`
	Lng        float64 `json:"lng"`
}

func (l Location) String() string { return l.LocationID }

// Event is the common envelope every module Tx/Rx's (spec §6). Details is
// left as raw JSON-ish data (map[string]any) so each module can decode its
// own detail shape without this package needing to know every variant.
type Event struct {
	EventType EventType      `json:"eventType"`
	Source    string         `json:"source,omitempty"`
	Time      float64        `json:"time"`
	Service   string         `json:"service,omitempty"`
	Details   map[string]any `json:"details"`
}

func (e Event) String() string {
	return fmt.Sprintf("%s@%.2f(source=%s,service=%s)", e.EventType, e.Time, e.Source, e.Service)
}

// RouteLeg is one entry of a RESERVED event's route detail (spec §6):
// one per boarding->alighting pair.
type RouteLeg struct {
	Org     string  `json:"org"`
	Dst     string  `json:"dst"`
	Dept    float64 `json:"dept"`
	Arrv    float64 `json:"arrv"`
	Service string  `json:"service,omitempty"`
}

// DemandDetails decodes a DEMAND.details payload.
type DemandDetails struct {
	UserID   string   `json:"userId"`
	DemandID string   `json:"demandId"`
	Org      Location `json:"org"`
	Dst      Location `json:"dst"`
	Service  string   `json:"service,omitempty"`
	Dept     *float64 `json:"dept,omitempty"`
	Arrv     *float64 `json:"arrv,omitempty"`
	UserType string   `json:"userType,omitempty"`
}

// ReserveDetails decodes a RESERVE.details payload.
type ReserveDetails struct {
	UserID   string   `json:"userId"`
	DemandID string   `json:"demandId"`
	Org      Location `json:"org"`
	Dst      Location `json:"dst"`
	Dept     float64  `json:"dept"`
	Arrv     *float64 `json:"arrv,omitempty"`
}

// ReservedDetails decodes/encodes a RESERVED.details payload.
type ReservedDetails struct {
	Success  bool       `json:"success"`
	UserID   string     `json:"userId"`
	DemandID string     `json:"demandId"`
	Route    []RouteLeg `json:"route,omitempty"`
}

// DepartDetails decodes a DEPART.details payload.
type DepartDetails struct {
	UserID   string `json:"userId"`
	DemandID string `json:"demandId"`
}

// ArrivalDetails decodes/encodes both DEPARTED and ARRIVED detail payloads;
// the validator requires userId/demandId to be present or absent together.
type ArrivalDetails struct {
	UserID     string   `json:"userId,omitempty"`
	DemandID   string   `json:"demandId,omitempty"`
	Location   Location `json:"location"`
	MobilityID string   `json:"mobilityId,omitempty"`
}

// ValidateUserDemandPairing enforces the spec §6 validator rule that userId
// and demandId must be present or absent together on DEPARTED/ARRIVED.
func (a ArrivalDetails) ValidateUserDemandPairing() error {
	if (a.UserID == "") != (a.DemandID == "") {
		return fmt.Errorf("userId and demandId must be present or absent together: userId=%q demandId=%q", a.UserID, a.DemandID)
	}
	return nil
}

// ToMap renders a details struct into the generic map Event.Details expects.
// Implementations marshal/unmarshal through encoding/json via this helper so
// every module shares one encoding path.
func ToMap(v any) (map[string]any, error) {
	return structToMap(v)
}
