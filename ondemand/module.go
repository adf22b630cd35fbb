package ondemand

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/mobility-cosim/platform/apperr"
	"github.com/mobility-cosim/platform/config"
	"github.com/mobility-cosim/platform/geo"
	"github.com/mobility-cosim/platform/obslog"
	"github.com/mobility-cosim/platform/simproto"
)

// SetupRequest is the module-specific body POST /setup accepts (spec §6):
// fleet roster, stop roster, and tunables.
type SetupRequest struct {
	Stops     []Stop               `json:"stops"`
	Vehicles  []VehicleSetup       `json:"vehicles"`
	BoardTime float64              `json:"boardTimeMinutes"`
	MaxDelay  float64              `json:"maxDelayMinutes"`
}

// VehicleSetup describes one fleet member at setup time.
type VehicleSetup struct {
	MobilityID     string  `json:"mobilityId"`
	Capacity       int     `json:"capacity"`
	HomeStop       string  `json:"homeStop"`
	GroupID        string  `json:"groupId"`
	WindowStartMin float64 `json:"windowStartMin"`
	WindowEndMin   float64 `json:"windowEndMin"`
}

// Module wires a Simulator to the HTTP surface every runner exposes (spec
// §6), grounded on the ride-pooling example's handler+router split
// (internal/handler registered onto a gorilla/mux router in cmd/server).
type Module struct {
	Name string
	Log  *obslog.Logger
	Cfg  *config.Config
	sim  *Simulator
}

// NewModule returns a Module with no simulator until /setup is called. cfg
// supplies the Haversine speed bound and optional Redis duration cache every
// /setup call builds its Network from.
func NewModule(name string, log *obslog.Logger, cfg *config.Config) *Module {
	return &Module{Name: name, Log: log, Cfg: cfg}
}

// durationCache returns a Redis-backed cache when the module is configured
// with one, otherwise nil (Network falls back to its own in-process cache).
func (m *Module) durationCache() DurationCache {
	if m.Cfg == nil || !m.Cfg.Redis.Enabled() {
		return nil
	}
	return geo.NewRedisDurationCache(m.Cfg.Redis.Addr(), m.Cfg.Redis.Password, m.Cfg.Redis.DB, 30*time.Minute)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeErr(w http.ResponseWriter, status int, err *apperr.AppError) {
	writeJSON(w, status, err)
}

// Router builds the gorilla/mux router for this module's HTTP surface.
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
	writeJSON(w, http.StatusOK, Specification())
}

func (m *Module) handleSetup(w http.ResponseWriter, r *http.Request) {
	var req SetupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErr(w, http.StatusBadRequest, apperr.ValidationError(err.Error(), "body", nil))
		return
	}
	if req.BoardTime <= 0 {
		req.BoardTime = DefaultBoardTimeMinutes
	}

	avgSpeed := 30.0
	if m.Cfg != nil && m.Cfg.Clock.AvgSpeedKmph > 0 {
		avgSpeed = m.Cfg.Clock.AvgSpeedKmph
	}
	network := NewNetworkFromStops(req.Stops, avgSpeed, m.durationCache())
	sim := NewSimulator(network, req.BoardTime, req.MaxDelay)
	for _, st := range req.Stops {
		sim.Stops[st.ID] = st
	}
	for _, vs := range req.Vehicles {
		v := NewVehicle(vs.MobilityID, vs.Capacity, vs.HomeStop, vs.GroupID)
		sim.AddVehicle(v, DefaultCalendar(vs.WindowStartMin, vs.WindowEndMin))
	}
	m.sim = sim
	m.Log.Infow("ondemand setup complete", "stops", len(req.Stops), "vehicles", len(req.Vehicles))
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
	m.dispatchTriggered(ev)
	w.WriteHeader(http.StatusNoContent)
}

// dispatchTriggered handles the events this module cares about as an Rx
// target: RESERVE (spec §4.2.1) and DEPART (spec §4.2.6's ready_to_depart,
// bound to DEPART by the user-agent's protocol — see useragent package).
func (m *Module) dispatchTriggered(ev simproto.Event) {
	switch ev.EventType {
	case simproto.EventReserve:
		var d simproto.ReserveDetails
		if err := simproto.DecodeDetails(ev.Details, &d); err != nil {
			m.Log.WithError(err).Warnw("malformed RESERVE details")
			return
		}
		result := m.sim.ReserveUser(d.UserID, d.DemandID, d.Org.LocationID, d.Dst.LocationID, d.Dept)
		detailsMap, _ := simproto.ToMap(result)
		m.sim.events = append(m.sim.events, simproto.Event{EventType: simproto.EventReserved, Time: m.sim.Clock.Now(), Details: detailsMap})
	case simproto.EventDepart:
		var d simproto.DepartDetails
		if err := simproto.DecodeDetails(ev.Details, &d); err != nil {
			m.Log.WithError(err).Warnw("malformed DEPART details")
			return
		}
		if !m.sim.ReadyToDepart(d.UserID) {
			m.Log.Warnw("ready_to_depart for unknown user", "userId", d.UserID)
		}
	}
}

func (m *Module) handleReservable(w http.ResponseWriter, r *http.Request) {
	if m.sim == nil {
		writeJSON(w, http.StatusOK, simproto.ReservableResponse{Reservable: false})
		return
	}
	org := r.URL.Query().Get("org")
	dst := r.URL.Query().Get("dst")
	reservable := m.sim.Reservable(org, dst)
	writeJSON(w, http.StatusOK, simproto.ReservableResponse{Reservable: reservable})
}

func (m *Module) handleFinish(w http.ResponseWriter, r *http.Request) {
	m.sim = nil
	writeJSON(w, http.StatusOK, simproto.MessageResponse{Message: "finished"})
}

// handleUpload is a documented-but-unimplemented stand-in (spec §6 marks
// /upload optional; file ingestion is out of scope per spec §1).
func (m *Module) handleUpload(w http.ResponseWriter, r *http.Request) {
	writeErr(w, http.StatusNotImplemented, apperr.New("NOT_IMPLEMENTED", "upload is not implemented"))
}
