package broker

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/mobility-cosim/platform/obslog"
	"github.com/mobility-cosim/platform/simproto"
)

// ModuleType tags one entry of a broker SetupRequest (spec §4.5.1).
type ModuleType string

const (
	ModuleBroker  ModuleType = "broker"
	ModulePlanner ModuleType = "planner"
	ModuleHTTP    ModuleType = "http"
)

// ModuleSetting is one keyed entry of the broker's /setup body.
type ModuleSetting struct {
	Type     ModuleType `json:"type"`
	Endpoint string     `json:"endpoint,omitempty"`
	Details  any        `json:"details,omitempty"`
}

// SetupRequest is the broker's POST /setup body: a keyed configuration of
// modules (spec §4.5.1).
type SetupRequest map[string]ModuleSetting

// externalOrder ranks module names the way spec §4.5.1 requires ("scenario
// generators before walking before evaluation before user-agent"), grounded
// on controller.py's SetupParser._order.
var externalOrderPrefixes = []string{"historical", "generator", "commuter", "scenario", "walk", "evaluat", "user"}

func externalOrder(name string) int {
	for i, prefix := range externalOrderPrefixes {
		if len(name) >= len(prefix) && name[:len(prefix)] == prefix {
			return i
		}
	}
	return len(externalOrderPrefixes)
}

// Manager owns one run's lifecycle: setup -> (start -> step*|run) -> finish
// (spec §9's "global state... scoped per request-handler instance rather
// than truly global storage" — callers own one Manager per run, not a
// package-level singleton, unlike controller.py's module-level `manager`).
// Grounded on controller.py's Manager dataclass.
type Manager struct {
	Log     *obslog.Logger
	engine  *RunnerEngine
	sink    ResultSink
	running bool
	err     error

	SetupTimeout time.Duration
	CallTimeout  time.Duration
}

func NewManager(log *obslog.Logger) *Manager {
	return &Manager{Log: log, SetupTimeout: time.Hour, CallTimeout: 5 * time.Minute}
}

func (m *Manager) Success() bool { return m.err == nil }
func (m *Manager) Running() bool { return m.running }
func (m *Manager) Err() error    { return m.err }

// Setup registers every http-tagged module as an HttpRunner, fetches their
// specifications and sets each module up, then validates the specifications
// (spec §4.5.1-2). Results go to sink, which the caller builds and passes in.
func (m *Manager) Setup(ctx context.Context, req SetupRequest, sink ResultSink) error {
	m.sink = sink
	m.engine = NewRunnerEngine(sink, m.Log)

	type named struct {
		name    string
		setting ModuleSetting
	}
	var externals []named
	for name, setting := range req {
		if setting.Type == ModuleHTTP {
			externals = append(externals, named{name, setting})
		}
	}
	sort.Slice(externals, func(i, j int) bool {
		oi, oj := externalOrder(externals[i].name), externalOrder(externals[j].name)
		if oi != oj {
			return oi < oj
		}
		return externals[i].name < externals[j].name
	})

	specs := map[string]simproto.SpecificationResponse{}
	runners := make([]Runner, 0, len(externals))
	for _, e := range externals {
		runner := NewHttpRunner(e.name, e.setting.Endpoint, m.CallTimeout)
		spec, err := runner.Spec(ctx)
		if err != nil {
			return fmt.Errorf("fetch spec from %s: %w", e.name, err)
		}
		specs[e.name] = spec
		setupCtx, cancel := context.WithTimeout(ctx, m.SetupTimeout)
		err = runner.Setup(setupCtx, e.setting.Details)
		cancel()
		if err != nil {
			return fmt.Errorf("setup %s: %w", e.name, err)
		}
		runners = append(runners, runner)
	}

	validator := &Validator{Specs: specs}
	if err := validator.CheckAll(); err != nil {
		return fmt.Errorf("specification compatibility gate failed: %w", err)
	}

	m.engine.Register(runners...)
	return nil
}

func (m *Manager) Start(ctx context.Context) error {
	return m.engine.Start(ctx)
}

func (m *Manager) Peek(ctx context.Context) (float64, error) {
	return m.engine.Peek(ctx)
}

func (m *Manager) Step(ctx context.Context, until *float64) (float64, error) {
	return m.engine.Step(ctx, until)
}

// Run drives Step in a background goroutine until virtual time passes
// until, or an error occurs (spec §4.5.5's run(until)), grounded on
// controller.py's Manager._run.
func (m *Manager) Run(ctx context.Context, until float64) {
	m.running = true
	go func() {
		defer func() { m.running = false }()
		now := 0.0
		for now <= until && m.Success() {
			next, err := m.Step(ctx, &until)
			if err != nil {
				m.err = err
				m.Log.WithError(err).Errorw("error running broker tick loop")
				return
			}
			now = next
		}
	}()
}

// Plan answers a route request (spec §4.5.5) with no legs: it always
// returns a nil slice. Setup registers only http-tagged modules, so
// planner-tagged entries are never contacted. External route planners are
// out of scope for this repository (spec.md §1's Non-goals); the method
// exists so the HTTP surface has the route.
func (m *Manager) Plan(ctx context.Context, org, dst simproto.Location, dept float64) ([]simproto.RouteLeg, error) {
	return nil, nil
}

func (m *Manager) Reservable(ctx context.Context, service, org, dst string) (bool, error) {
	return m.engine.Reservable(ctx, service, org, dst)
}

func (m *Manager) Finish(ctx context.Context) error {
	var err error
	if m.engine != nil {
		err = m.engine.Finish(ctx)
		m.engine = nil
	}
	if m.sink != nil {
		if cerr := m.sink.Close(ctx); cerr != nil && err == nil {
			err = cerr
		}
		m.sink = nil
	}
	m.running = false
	m.err = nil
	return err
}
