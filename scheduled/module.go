package scheduled

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/mobility-cosim/platform/apperr"
	"github.com/mobility-cosim/platform/obslog"
	"github.com/mobility-cosim/platform/simproto"
)

// SpecVersion must match every other module's (spec §4.5.2).
const SpecVersion = "mobility-cosim/v1"

// SetupRequest is the scheduled module's POST /setup body: one vehicle per
// day's materialized waypoint sequence, precomputed by the operator/fixture
// loader from trip/block/calendar data (spec §4.3's Trip/BlockTrip model;
// the CSV/GTFS ingestion that would produce this is out of scope per spec §1).
type SetupRequest struct {
	Epoch    string           `json:"epoch"` // RFC3339 date, minute 0 of the run
	Vehicles []VehicleSetup   `json:"vehicles"`
}

type VehicleSetup struct {
	VehicleID string              `json:"vehicleId"`
	Capacity  int                 `json:"capacity"`
	TripID    string              `json:"tripId"`
	Waypoints []WaypointSetup     `json:"waypoints"`
}

type WaypointSetup struct {
	LocationID string  `json:"locationId"`
	Arrival    float64 `json:"arrival"`
	Departure  float64 `json:"departure"`
}

// Module wires a Simulator to the HTTP surface (spec §6), mirroring
// ondemand.Module's handler shape.
type Module struct {
	Name string
	Log  *obslog.Logger
	sim  *Simulator
}

func NewModule(name string, log *obslog.Logger) *Module {
	return &Module{Name: name, Log: log}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeErr(w http.ResponseWriter, status int, err *apperr.AppError) { writeJSON(w, status, err) }

func (m *Module) Router() *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/spec", m.handleSpec).Methods(http.MethodGet)
	r.HandleFunc("/setup", m.handleSetup).Methods(http.MethodPost)
	r.HandleFunc("/start", m.handleStart).Methods(http.MethodPost)
	r.HandleFunc("/peek", m.handlePeek).Methods(http.MethodGet)
	r.HandleFunc("/step", m.handleStep).Methods(http.MethodPost)
	r.HandleFunc("/triggered", m.handleTriggered).Methods(http.MethodPost)
	r.HandleFunc("/reservable", m.handleReservable).Methods(http.MethodGet)
	r.HandleFunc("/finish", m.handleFinish).Methods(http.MethodPost)
	r.HandleFunc("/upload", m.handleUpload).Methods(http.MethodPost)
	return r
}

func (m *Module) handleSpec(w http.ResponseWriter, r *http.Request) {
	req := func(fields ...string) simproto.JSONSchema { return simproto.JSONSchema{Type: "object", Required: fields} }
	writeJSON(w, http.StatusOK, simproto.SpecificationResponse{
		Version: SpecVersion,
		Events: map[simproto.EventType]simproto.EventSpec{
			simproto.EventReserve:  {Dir: simproto.Rx, Schema: req("userId", "demandId", "org", "dst", "dept")},
			simproto.EventReserved: {Dir: simproto.Tx, Schema: req("success", "userId", "demandId")},
			simproto.EventDeparted: {Dir: simproto.Tx, Schema: req("location")},
			simproto.EventArrived:  {Dir: simproto.Tx, Schema: req("location")},
		},
	})
}

func (m *Module) handleSetup(w http.ResponseWriter, r *http.Request) {
	var req SetupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErr(w, http.StatusBadRequest, apperr.ValidationError(err.Error(), "body", nil))
		return
	}
	epoch, err := time.Parse(time.RFC3339, req.Epoch)
	if err != nil {
		epoch = time.Now()
	}
	sim := NewSimulator(epoch)
	for _, vs := range req.Vehicles {
		wps := make([]Waypoint, 0, len(vs.Waypoints))
		for _, w := range vs.Waypoints {
			wps = append(wps, Waypoint{LocationID: w.LocationID, Arrival: w.Arrival, Departure: w.Departure})
		}
		sim.AddVehicle(NewVehicle(vs.VehicleID, vs.Capacity, vs.TripID, wps))
	}
	m.sim = sim
	m.Log.Infow("scheduled setup complete", "vehicles", len(req.Vehicles))
	writeJSON(w, http.StatusOK, simproto.MessageResponse{Message: "ok"})
}

func (m *Module) handleStart(w http.ResponseWriter, r *http.Request) {
	if m.sim == nil {
		writeErr(w, http.StatusConflict, apperr.New("NOT_SETUP", "module not set up"))
		return
	}
	writeJSON(w, http.StatusOK, simproto.MessageResponse{Message: "started"})
}

func (m *Module) handlePeek(w http.ResponseWriter, r *http.Request) {
	if m.sim == nil {
		writeJSON(w, http.StatusOK, simproto.PeekResponse{Next: -1})
		return
	}
	next := m.sim.Clock.Peek()
	if next > 1e18 {
		writeJSON(w, http.StatusOK, simproto.PeekResponse{Next: -1})
		return
	}
	writeJSON(w, http.StatusOK, simproto.PeekResponse{Next: next})
}

func (m *Module) handleStep(w http.ResponseWriter, r *http.Request) {
	if m.sim == nil {
		writeErr(w, http.StatusConflict, apperr.New("NOT_SETUP", "module not set up"))
		return
	}
	m.sim.Clock.Step()
	events := m.sim.DrainEvents()
	writeJSON(w, http.StatusOK, simproto.StepResponse{Now: m.sim.Clock.Now(), Events: events})
}

func (m *Module) handleTriggered(w http.ResponseWriter, r *http.Request) {
	if m.sim == nil {
		writeErr(w, http.StatusConflict, apperr.New("NOT_SETUP", "module not set up"))
		return
	}
	var ev simproto.Event
	if err := json.NewDecoder(r.Body).Decode(&ev); err != nil {
		writeErr(w, http.StatusBadRequest, apperr.ValidationError(err.Error(), "body", nil))
		return
	}
	if ev.EventType == simproto.EventReserve {
		var d simproto.ReserveDetails
		if err := simproto.DecodeDetails(ev.Details, &d); err != nil {
			m.Log.WithError(err).Warnw("malformed RESERVE details")
		} else {
			result := m.sim.ReserveAny(d.UserID, d.DemandID, d.Org.LocationID, d.Dst.LocationID, d.Dept)
			detailsMap, _ := simproto.ToMap(result)
			m.sim.events = append(m.sim.events, simproto.Event{EventType: simproto.EventReserved, Time: m.sim.Clock.Now(), Details: detailsMap})
		}
	}
	w.WriteHeader(http.StatusNoContent)
}

func (m *Module) handleReservable(w http.ResponseWriter, r *http.Request) {
	if m.sim == nil {
		writeJSON(w, http.StatusOK, simproto.ReservableResponse{Reservable: false})
		return
	}
	org := r.URL.Query().Get("org")
	dst := r.URL.Query().Get("dst")
	ok := m.sim.ReservableAny(org, dst, m.sim.Clock.Now())
	writeJSON(w, http.StatusOK, simproto.ReservableResponse{Reservable: ok})
}

func (m *Module) handleFinish(w http.ResponseWriter, r *http.Request) {
	m.sim = nil
	writeJSON(w, http.StatusOK, simproto.MessageResponse{Message: "finished"})
}

func (m *Module) handleUpload(w http.ResponseWriter, r *http.Request) {
	writeErr(w, http.StatusNotImplemented, apperr.New("NOT_IMPLEMENTED", "upload is not implemented"))
}
