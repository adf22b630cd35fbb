package useragent

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/mobility-cosim/platform/apperr"
	"github.com/mobility-cosim/platform/obslog"
	"github.com/mobility-cosim/platform/simproto"
)

// SpecVersion must match every other module's (spec §4.5.2).
const SpecVersion = "mobility-cosim/v1"

// SetupRequest is the user-agent module's POST /setup body: one entry per
// demand the planner produced candidate plans for (spec §4.4.2's planner
// facade is out of this module's scope per spec §1 — plans arrive
// pre-computed, same as the teacher's fixture-driven demand loading).
type SetupRequest struct {
	Users []UserSetup `json:"users"`
}

type UserSetup struct {
	UserID        string     `json:"userId"`
	DemandID      string     `json:"demandId"`
	DemandService string     `json:"demandService,omitempty"`
	Dept          float64    `json:"dept"`
	Plans         []PlanJSON `json:"plans"`
	Filter        Filter     `json:"filter"`
}

// PlanJSON is the wire shape of a Plan (Plan itself has no json tags since
// it is also used internally by SelectPlans/BuildFallbackChain).
type PlanJSON struct {
	Legs []PlanLeg `json:"legs"`
}

func (p PlanJSON) toPlan() Plan { return Plan{Legs: p.Legs} }

// Module wires an Agent to the HTTP surface (spec §6). Unlike ondemand and
// scheduled, a user-agent is never itself reservable, so it has no
// /reservable route; its /triggered instead consumes RESERVED/DEPARTED/
// ARRIVED events the broker forwards to it from other modules (spec §4.4.4).
type Module struct {
	Name    string
	Log     *obslog.Logger
	agent   *Agent
	pending []pendingUser
}

func NewModule(name string, log *obslog.Logger) *Module {
	return &Module{Name: name, Log: log, agent: NewAgent()}
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
	r.HandleFunc("/finish", m.handleFinish).Methods(http.MethodPost)
	return r
}

func (m *Module) handleSpec(w http.ResponseWriter, r *http.Request) {
	req := func(fields ...string) simproto.JSONSchema { return simproto.JSONSchema{Type: "object", Required: fields} }
	writeJSON(w, http.StatusOK, simproto.SpecificationResponse{
		Version: SpecVersion,
		Events: map[simproto.EventType]simproto.EventSpec{
			simproto.EventReserve:  {Dir: simproto.Tx, Schema: req("userId", "demandId", "org", "dst", "dept")},
			simproto.EventReserved: {Dir: simproto.Rx, Schema: req("success", "userId", "demandId")},
			simproto.EventDepart:   {Dir: simproto.Tx, Schema: req("userId", "demandId")},
			simproto.EventDeparted: {Dir: simproto.Rx, Schema: req("location")},
			simproto.EventArrived:  {Dir: simproto.Rx, Schema: req("location")},
		},
	})
}

// pendingUser holds the task chain computed at /setup, started at /start
// (mirroring ondemand/scheduled's setup-then-start split even though this
// module has no vehicles to spin up).
type pendingUser struct {
	userID, demandID string
	tasks            []Task
}

func (m *Module) handleSetup(w http.ResponseWriter, r *http.Request) {
	var req SetupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErr(w, http.StatusBadRequest, apperr.ValidationError(err.Error(), "body", nil))
		return
	}
	m.agent = NewAgent()
	m.pending = nil
	for _, us := range req.Users {
		plans := make([]Plan, 0, len(us.Plans))
		for _, p := range us.Plans {
			plans = append(plans, p.toPlan())
		}
		primary, recovery, fallbackWarning := SelectPlans(plans, us.DemandService, us.Filter)
		if fallbackWarning {
			m.Log.Warnw("no plan matched demand service or filter, using unfiltered choice", "userId", us.UserID)
		}
		if primary == nil {
			m.Log.Warnw("no candidate plan available for user", "userId", us.UserID)
			continue
		}
		tasks := BuildFallbackChain(*primary, recovery, us.Dept)
		m.pending = append(m.pending, pendingUser{userID: us.UserID, demandID: us.DemandID, tasks: tasks})
	}
	m.Log.Infow("useragent setup complete", "users", len(req.Users))
	writeJSON(w, http.StatusOK, simproto.MessageResponse{Message: "ok"})
}

func (m *Module) handleStart(w http.ResponseWriter, r *http.Request) {
	if m.agent == nil {
		writeErr(w, http.StatusConflict, apperr.New("NOT_SETUP", "module not set up"))
		return
	}
	for _, p := range m.pending {
		m.agent.StartUser(p.userID, p.demandID, p.tasks)
	}
	m.pending = nil
	writeJSON(w, http.StatusOK, simproto.MessageResponse{Message: "started"})
}

func (m *Module) handlePeek(w http.ResponseWriter, r *http.Request) {
	if m.agent == nil {
		writeJSON(w, http.StatusOK, simproto.PeekResponse{Next: -1})
		return
	}
	next := m.agent.Clock.Peek()
	if next > 1e18 {
		writeJSON(w, http.StatusOK, simproto.PeekResponse{Next: -1})
		return
	}
	writeJSON(w, http.StatusOK, simproto.PeekResponse{Next: next})
}

func (m *Module) handleStep(w http.ResponseWriter, r *http.Request) {
	if m.agent == nil {
		writeErr(w, http.StatusConflict, apperr.New("NOT_SETUP", "module not set up"))
		return
	}
	m.agent.Clock.Step()
	events := m.agent.DrainEvents()
	writeJSON(w, http.StatusOK, simproto.StepResponse{Now: m.agent.Clock.Now(), Events: events})
}

// handleTriggered delivers a broker-forwarded RESERVED/DEPARTED/ARRIVED
// event to whichever user task is waiting on it (spec §4.4.4).
func (m *Module) handleTriggered(w http.ResponseWriter, r *http.Request) {
	if m.agent == nil {
		writeErr(w, http.StatusConflict, apperr.New("NOT_SETUP", "module not set up"))
		return
	}
	var ev simproto.Event
	if err := json.NewDecoder(r.Body).Decode(&ev); err != nil {
		writeErr(w, http.StatusBadRequest, apperr.ValidationError(err.Error(), "body", nil))
		return
	}
	m.agent.Triggered(ev)
	w.WriteHeader(http.StatusNoContent)
}

func (m *Module) handleFinish(w http.ResponseWriter, r *http.Request) {
	m.agent = nil
	m.pending = nil
	writeJSON(w, http.StatusOK, simproto.MessageResponse{Message: "finished"})
}
