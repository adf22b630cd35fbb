// Package scenario is a thin stand-in for the external demand-generator
// collaborators spec.md §1 deliberately keeps out of scope: it emits DEMAND
// events from a static window description instead of implementing a real
// travel-survey or synthetic-population model. Grounded on
// original_source/src/scenario/generator/{core,generator}.py's
// SenDemand/TenDemand/Demand pipeline, re-expressed on top of the shared
// clock.Scheduler instead of simpy.
package scenario

import (
	"fmt"
	"math/rand"
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/mobility-cosim/platform/clock"
	"github.com/mobility-cosim/platform/data"
	"github.com/mobility-cosim/platform/simproto"
)

// unitMinutes is the Poisson trial granularity generator.py's UNIT_TIME uses.
const unitMinutes = 1.0

// Window describes one stretch of synthetic demand (spec.md §1's "demand
// generators" external collaborator, restored here as a fixture-driven
// stand-in): between Begin and End, ExpectedDemands trips are expected to
// occur, each from Org to Dst, optionally reserved in advance at ReserveAt
// rather than appearing exactly at departure time.
type Window struct {
	Begin           float64
	End             float64
	ExpectedDemands float64
	ReserveAt       *float64
	Org             simproto.Location
	Dst             simproto.Location
	Service         string
	UserType        string
	PeriodID        int
}

// period returns w's span, defending against a non-positive configuration
// the way SenDemand.period asserts period > 0.
func (w Window) period() float64 {
	p := w.End - w.Begin
	if p <= 0 {
		return unitMinutes
	}
	return p
}

// rate returns the per-unit-time Poisson mean, scaled by data's period
// multiplier when the window names one (an enrichment the original Python
// generator doesn't have: SPEC_FULL's ambient time-of-day demand table).
func (w Window) rate() float64 {
	mean := w.ExpectedDemands / (w.period() / unitMinutes)
	if mult, ok := data.TimePeriodMultiplier[w.PeriodID]; ok {
		mean *= mult
	}
	return mean
}

// generate samples occurrence minutes within the window via independent
// per-unit Bernoulli trials (SenDemand.generate_demands), returning each as
// a dept offset from w.Begin.
func (w Window) generate(rng *rand.Rand) []float64 {
	trials := int(w.period() / unitMinutes)
	p := w.rate()
	var depts []float64
	for i := 0; i < trials; i++ {
		if rng.Float64() < p {
			depts = append(depts, w.Begin+float64(i)*unitMinutes)
		}
	}
	return depts
}

// demand is one concrete, user-id-assigned trip pulled from a Window.
type demand struct {
	reserveAt *float64
	dept      float64
	userID    string
	demandID  string
	window    Window
}

// Generator drives demand emission off the shared Scheduler, the same
// continuation style every other module in this repository uses (spec.md
// §2's "scenario modules... thin, but included as interfaces").
type Generator struct {
	Clock   *clock.Scheduler
	demands []demand
	events  []simproto.Event
}

func NewGenerator() *Generator {
	return &Generator{Clock: clock.New()}
}

// Setup expands windows into concrete demands, deterministically ordered
// and user-id-assigned the way make_demands sorts by (time, dept) before
// formatting ids — grounded directly on generator.py's make_demands.
func (g *Generator) Setup(windows []Window, seed int64, userIDFormat string) {
	rng := rand.New(rand.NewSource(seed))

	type ten struct {
		reserveAt *float64
		dept      float64
		window    Window
	}
	var all []ten
	for _, w := range windows {
		for _, dept := range w.generate(rng) {
			all = append(all, ten{reserveAt: w.ReserveAt, dept: dept, window: w})
		}
	}
	sort.SliceStable(all, func(i, j int) bool {
		ti, tj := sortKey(all[i].reserveAt), sortKey(all[j].reserveAt)
		if ti != tj {
			return ti < tj
		}
		return all[i].dept < all[j].dept
	})

	g.demands = make([]demand, 0, len(all))
	for i, t := range all {
		g.demands = append(g.demands, demand{
			reserveAt: t.reserveAt,
			dept:      t.dept,
			userID:    formatUserID(userIDFormat, i+1),
			demandID:  uuid.New().String(),
			window:    t.window,
		})
	}
}

func sortKey(t *float64) float64 {
	if t == nil {
		return -1
	}
	return *t
}

// formatUserID renders the operator-supplied %d/%s template with n, the same
// printf-style substitution generator.py's `userIDFormat % i` does. %s is
// accepted alongside %d since Python's `%` operator doesn't distinguish them
// for an int argument the way Go's fmt verbs do.
func formatUserID(format string, n int) string {
	if format == "" {
		format = "demand-%d"
	}
	return fmt.Sprintf(strings.ReplaceAll(format, "%s", "%d"), n)
}

// Start schedules one callback per demand: an immediate-departure demand
// fires at its dept time, an advance-reservation demand fires at its
// reserveAt time and carries dept in the DEMAND details (spec.md §6's
// `DEMAND.details: ...dept?`), mirroring generator.py's `_demand` coroutine.
func (g *Generator) Start() {
	for _, d := range g.demands {
		d := d
		if d.reserveAt == nil {
			g.Clock.TimeoutUntil(d.dept, func(s *clock.Scheduler) {
				g.emit(d, nil)
			})
			continue
		}
		g.Clock.TimeoutUntil(*d.reserveAt, func(s *clock.Scheduler) {
			dept := d.dept
			g.emit(d, &dept)
		})
	}
}

func (g *Generator) emit(d demand, dept *float64) {
	details, _ := simproto.ToMap(simproto.DemandDetails{
		UserID:   d.userID,
		DemandID: d.demandID,
		Org:      d.window.Org,
		Dst:      d.window.Dst,
		Service:  d.window.Service,
		Dept:     dept,
		UserType: d.window.UserType,
	})
	g.events = append(g.events, simproto.Event{
		EventType: simproto.EventDemand,
		Time:      g.Clock.Now(),
		Details:   details,
	})
}

// DrainEvents returns and clears events accumulated since the last call,
// the same drain-on-step convention every simulator module's HTTP surface
// uses.
func (g *Generator) DrainEvents() []simproto.Event {
	out := g.events
	g.events = nil
	return out
}
