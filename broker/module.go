package broker

import (
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/mobility-cosim/platform/apperr"
	"github.com/mobility-cosim/platform/config"
	"github.com/mobility-cosim/platform/obslog"
	"github.com/mobility-cosim/platform/simproto"
)

// Module is the broker's own HTTP surface (spec §4.5.5): setup, start,
// peek, step, run, plan, reservable, finish, events. Grounded on
// controller.py's FastAPI routes, re-expressed with gorilla/mux the way
// every other module in this repository builds its router.
type Module struct {
	Log      *obslog.Logger
	Cfg      *config.Config
	manager  *Manager
	filePath string
}

func NewModule(log *obslog.Logger, cfg *config.Config) *Module {
	return &Module{Log: log, Cfg: cfg}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeErr(w http.ResponseWriter, status int, err *apperr.AppError) { writeJSON(w, status, err) }

func (m *Module) Router() *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/setup", m.handleSetup).Methods(http.MethodPost)
	r.HandleFunc("/start", m.handleStart).Methods(http.MethodPost)
	r.HandleFunc("/peek", m.handlePeek).Methods(http.MethodGet)
	r.HandleFunc("/step", m.handleStep).Methods(http.MethodPost)
	r.HandleFunc("/run", m.handleRun).Methods(http.MethodPost)
	r.HandleFunc("/plan", m.handlePlan).Methods(http.MethodPost)
	r.HandleFunc("/reservable", m.handleReservable).Methods(http.MethodGet)
	r.HandleFunc("/finish", m.handleFinish).Methods(http.MethodPost)
	r.HandleFunc("/events", m.handleEvents).Methods(http.MethodGet)
	return r
}

type messageResponse struct {
	Message string `json:"message"`
}

func (m *Module) handleSetup(w http.ResponseWriter, r *http.Request) {
	var req SetupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErr(w, http.StatusBadRequest, apperr.ValidationError(err.Error(), "body", nil))
		return
	}

	m.manager = NewManager(m.Log)

	var sink ResultSink
	switch {
	case m.Cfg.Kafka.Enabled():
		sink = NewKafkaSink([]string{m.Cfg.Kafka.Brokers}, m.Cfg.Kafka.Topic)
	case m.Cfg.Broker.ResultSinkURL != "":
		sink = NewHTTPResultSink(m.Cfg.Broker.ResultSinkURL)
	default:
		path := m.Cfg.Broker.ResultSinkPath
		if path == "" {
			path = "events.txt"
		}
		m.filePath = path
		fileSink, err := NewFileResultSink(path)
		if err != nil {
			writeErr(w, http.StatusInternalServerError, apperr.InternalError(fmt.Errorf("cannot open result file: %w", err)))
			return
		}
		sink = fileSink
	}

	m.manager.SetupTimeout = m.Cfg.Broker.SetupTimeout
	m.manager.CallTimeout = m.Cfg.Broker.StepTimeout
	if err := m.manager.Setup(r.Context(), req, sink); err != nil {
		writeErr(w, http.StatusBadRequest, apperr.New("SETUP_FAILED", err.Error()))
		return
	}
	writeJSON(w, http.StatusOK, messageResponse{Message: "successfully configured."})
}

func (m *Module) handleStart(w http.ResponseWriter, r *http.Request) {
	if err := m.manager.Start(r.Context()); err != nil {
		writeErr(w, http.StatusInternalServerError, apperr.InternalError(fmt.Errorf("start failed: %w", err)))
		return
	}
	writeJSON(w, http.StatusOK, messageResponse{Message: "successfully started."})
}

type peekResponse struct {
	Success bool    `json:"success"`
	Next    float64 `json:"next"`
	Running bool    `json:"running"`
}

func (m *Module) handlePeek(w http.ResponseWriter, r *http.Request) {
	next, err := m.manager.Peek(r.Context())
	if err != nil {
		writeErr(w, http.StatusInternalServerError, apperr.InternalError(fmt.Errorf("peek failed: %w", err)))
		return
	}
	out := next
	if math.IsInf(next, 1) {
		out = -1
	}
	writeJSON(w, http.StatusOK, peekResponse{Success: m.manager.Success(), Next: out, Running: m.manager.Running()})
}

type stepResponse struct {
	Success bool    `json:"success"`
	Now     float64 `json:"now"`
}

// handleStep runs a single tick (spec §4.5.3), "usually for debugging".
func (m *Module) handleStep(w http.ResponseWriter, r *http.Request) {
	now, err := m.manager.Step(r.Context(), nil)
	if err != nil {
		writeErr(w, http.StatusInternalServerError, apperr.InternalError(fmt.Errorf("step failed: %w", err)))
		return
	}
	out := now
	if math.IsInf(now, 1) {
		out = -1
	}
	writeJSON(w, http.StatusOK, stepResponse{Success: m.manager.Success(), Now: out})
}

func (m *Module) handleRun(w http.ResponseWriter, r *http.Request) {
	until := math.Inf(1)
	if v := r.URL.Query().Get("until"); v != "" {
		if parsed, err := strconv.ParseFloat(v, 64); err == nil {
			until = parsed
		}
	}
	m.manager.Run(r.Context(), until)
	writeJSON(w, http.StatusOK, messageResponse{Message: "successfully run."})
}

func (m *Module) handlePlan(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Org  simproto.Location `json:"org"`
		Dst  simproto.Location `json:"dst"`
		Dept float64           `json:"dept"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErr(w, http.StatusBadRequest, apperr.ValidationError(err.Error(), "body", nil))
		return
	}
	legs, err := m.manager.Plan(r.Context(), req.Org, req.Dst, req.Dept)
	if err != nil {
		writeErr(w, http.StatusInternalServerError, apperr.InternalError(fmt.Errorf("plan failed: %w", err)))
		return
	}
	writeJSON(w, http.StatusOK, legs)
}

type reservableResponse struct {
	Reservable bool `json:"reservable"`
}

func (m *Module) handleReservable(w http.ResponseWriter, r *http.Request) {
	service := r.URL.Query().Get("service")
	org := r.URL.Query().Get("org")
	dst := r.URL.Query().Get("dst")
	ok, err := m.manager.Reservable(r.Context(), service, org, dst)
	if err != nil {
		writeErr(w, http.StatusNotFound, apperr.NotFoundError("service", service))
		return
	}
	writeJSON(w, http.StatusOK, reservableResponse{Reservable: ok})
}

func (m *Module) handleFinish(w http.ResponseWriter, r *http.Request) {
	if err := m.manager.Finish(r.Context()); err != nil {
		m.Log.WithError(err).Warnw("finish encountered an error")
	}
	writeJSON(w, http.StatusOK, messageResponse{Message: "successfully finished."})
}

// handleEvents serves the accumulated result file when the File sink is in
// use (spec §4.5.4); with the HTTP or Kafka sink, results live with that
// external endpoint/topic instead.
func (m *Module) handleEvents(w http.ResponseWriter, r *http.Request) {
	if m.filePath == "" {
		writeErr(w, http.StatusNotFound, apperr.New("NOT_AVAILABLE", "results must be retrieved from the configured sink"))
		return
	}
	http.ServeFile(w, r, m.filePath)
}
