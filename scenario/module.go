package scenario

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/mobility-cosim/platform/apperr"
	"github.com/mobility-cosim/platform/obslog"
	"github.com/mobility-cosim/platform/simproto"
)

const SpecVersion = "mobility-cosim/v1"

// SetupRequest is the module-specific body POST /setup accepts: a seed and
// the window fixtures Setup expands into concrete demands.
type SetupRequest struct {
	Seed         int64         `json:"seed"`
	UserIDFormat string        `json:"userIdFormat"`
	Windows      []WindowSetup `json:"windows"`
}

// WindowSetup is the wire shape of one Window.
type WindowSetup struct {
	Begin           float64           `json:"begin"`
	End             float64           `json:"end"`
	ExpectedDemands float64           `json:"expectedDemands"`
	ReserveAt       *float64          `json:"reserveAt,omitempty"`
	Org             simproto.Location `json:"org"`
	Dst             simproto.Location `json:"dst"`
	Service         string            `json:"service,omitempty"`
	UserType        string            `json:"userType,omitempty"`
	PeriodID        int               `json:"periodId,omitempty"`
}

func (w WindowSetup) toWindow() Window {
	return Window{
		Begin: w.Begin, End: w.End, ExpectedDemands: w.ExpectedDemands,
		ReserveAt: w.ReserveAt, Org: w.Org, Dst: w.Dst,
		Service: w.Service, UserType: w.UserType, PeriodID: w.PeriodID,
	}
}

// Module wires a Generator to the HTTP surface every runner exposes (spec
// §6), in the same shape ondemand/useragent's modules do.
type Module struct {
	Name string
	Log  *obslog.Logger
	gen  *Generator
}

func NewModule(name string, log *obslog.Logger) *Module {
	return &Module{Name: name, Log: log}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeErr(w http.ResponseWriter, status int, err *apperr.AppError) {
	writeJSON(w, status, err)
}

func (m *Module) Router() *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/spec", m.handleSpec).Methods(http.MethodGet)
	r.HandleFunc("/setup", m.handleSetup).Methods(http.MethodPost)
	r.HandleFunc("/start", m.handleStart).Methods(http.MethodPost)
	r.HandleFunc("/peek", m.handlePeek).Methods(http.MethodGet)
	r.HandleFunc("/step", m.handleStep).Methods(http.MethodPost)
	r.HandleFunc("/triggered", m.handleTriggered).Methods(http.MethodPost)
	r.HandleFunc("/finish", m.handleFinish).Methods(http.MethodPost)
	return r
}

// handleSpec declares the generator as a pure DEMAND producer: it transmits
// DEMAND and receives nothing (spec.md §6's Tx/Rx direction per event type).
func (m *Module) handleSpec(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, simproto.SpecificationResponse{
		Version: SpecVersion,
		Events: map[simproto.EventType]simproto.EventSpec{
			simproto.EventDemand: {
				Dir: simproto.Tx,
				Schema: simproto.JSONSchema{
					Type:     "object",
					Required: []string{"userId", "demandId", "org", "dst"},
				},
			},
		},
	})
}

func (m *Module) handleSetup(w http.ResponseWriter, r *http.Request) {
	var req SetupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErr(w, http.StatusBadRequest, apperr.ValidationError(err.Error(), "body", nil))
		return
	}
	windows := make([]Window, 0, len(req.Windows))
	for _, ws := range req.Windows {
		windows = append(windows, ws.toWindow())
	}
	gen := NewGenerator()
	gen.Setup(windows, req.Seed, req.UserIDFormat)
	m.gen = gen
	m.Log.Infow("scenario setup complete", "windows", len(windows))
	writeJSON(w, http.StatusOK, simproto.MessageResponse{Message: "ok"})
}

func (m *Module) handleStart(w http.ResponseWriter, r *http.Request) {
	if m.gen == nil {
		writeErr(w, http.StatusConflict, apperr.New("NOT_SETUP", "module not set up"))
		return
	}
	m.gen.Start()
	writeJSON(w, http.StatusOK, simproto.MessageResponse{Message: "started"})
}

func (m *Module) handlePeek(w http.ResponseWriter, r *http.Request) {
	if m.gen == nil {
		writeJSON(w, http.StatusOK, simproto.PeekResponse{Next: -1})
		return
	}
	next := m.gen.Clock.Peek()
	if next > 1e18 {
		writeJSON(w, http.StatusOK, simproto.PeekResponse{Next: -1})
		return
	}
	writeJSON(w, http.StatusOK, simproto.PeekResponse{Next: next})
}

func (m *Module) handleStep(w http.ResponseWriter, r *http.Request) {
	if m.gen == nil {
		writeErr(w, http.StatusConflict, apperr.New("NOT_SETUP", "module not set up"))
		return
	}
	m.gen.Clock.Step()
	events := m.gen.DrainEvents()
	writeJSON(w, http.StatusOK, simproto.StepResponse{Now: m.gen.Clock.Now(), Events: events})
}

// handleTriggered is a no-op: the generator consumes no events, but every
// runner must answer /triggered so the broker's fan-out never fails.
func (m *Module) handleTriggered(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, simproto.MessageResponse{Message: "ignored"})
}

func (m *Module) handleFinish(w http.ResponseWriter, r *http.Request) {
	m.gen = nil
	writeJSON(w, http.StatusOK, simproto.MessageResponse{Message: "finished"})
}
