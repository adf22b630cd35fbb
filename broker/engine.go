package broker

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"

	"github.com/mobility-cosim/platform/obslog"
	"github.com/mobility-cosim/platform/simproto"
)

var infinity = math.Inf(1)

// RunnerEngine drives the registered runners through one tick at a time
// (spec §4.5.3), grounded on engine.py's RunnerEngine. Runner order is the
// deterministic registration order from setup (spec §4.5.1's name-prefix
// ordering); ties on t_next break by that order.
type RunnerEngine struct {
	order   []string
	runners map[string]Runner
	sink    ResultSink
	log     *obslog.Logger
}

func NewRunnerEngine(sink ResultSink, log *obslog.Logger) *RunnerEngine {
	return &RunnerEngine{runners: map[string]Runner{}, sink: sink, log: log}
}

// Register adds runners in the given order (spec §4.5.1: externals ordered
// deterministically by name prefix — callers sort before calling Register).
func (e *RunnerEngine) Register(runners ...Runner) {
	for _, r := range runners {
		if _, exists := e.runners[r.Name()]; !exists {
			e.order = append(e.order, r.Name())
		}
		e.runners[r.Name()] = r
	}
}

func (e *RunnerEngine) Runners() []Runner {
	out := make([]Runner, 0, len(e.order))
	for _, name := range e.order {
		out = append(out, e.runners[name])
	}
	return out
}

func (e *RunnerEngine) Start(ctx context.Context) error {
	for _, r := range e.Runners() {
		if err := r.Start(ctx); err != nil {
			return fmt.Errorf("start %s: %w", r.Name(), err)
		}
	}
	return nil
}

// Peek returns the minimum peek across every runner (spec §4.5.3 step 1).
func (e *RunnerEngine) Peek(ctx context.Context) (float64, error) {
	peeks, err := e.peekAll(ctx)
	if err != nil {
		return 0, err
	}
	min := infinity
	for _, p := range peeks {
		if p.t < min {
			min = p.t
		}
	}
	return min, nil
}

type peekResult struct {
	name string
	t    float64
}

func (e *RunnerEngine) peekAll(ctx context.Context) ([]peekResult, error) {
	runners := e.Runners()
	results := make([]peekResult, len(runners))
	errs := make([]error, len(runners))
	var wg sync.WaitGroup
	wg.Add(len(runners))
	for i, r := range runners {
		go func(i int, r Runner) {
			defer wg.Done()
			t, err := r.Peek(ctx)
			results[i] = peekResult{name: r.Name(), t: t}
			errs[i] = err
		}(i, r)
	}
	wg.Wait()
	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}
	return results, nil
}

// Step runs one tick (spec §4.5.3): pick the runner with the lowest peek
// (ties broken by registration order), step it, write its events to the
// sink, then fan them out. If until is non-nil and the minimum peek exceeds
// it, Step stops without advancing and returns that peek time.
func (e *RunnerEngine) Step(ctx context.Context, until *float64) (float64, error) {
	peeks, err := e.peekAll(ctx)
	if err != nil {
		return 0, err
	}
	if len(peeks) == 0 {
		return infinity, nil
	}

	minIdx := 0
	for i := range e.order {
		if peeks[i].t < peeks[minIdx].t {
			minIdx = i
		}
	}
	minPeek := peeks[minIdx].t

	if until != nil && minPeek > *until {
		return minPeek, nil
	}

	r := e.runners[e.order[minIdx]]
	now, events, err := r.Step(ctx)
	if err != nil {
		return 0, fmt.Errorf("step %s: %w", r.Name(), err)
	}

	for _, ev := range events {
		ev.Source = r.Name()
		if err := e.sink.Write(ctx, ev); err != nil {
			e.log.WithError(err).Warnw("result sink write failed", "event", ev.EventType)
		}
		e.fanOut(ctx, r.Name(), ev)
	}
	return now, nil
}

// fanOut delivers ev to its targeted runner when event.service is set, or
// broadcasts to every runner except the producer when it is not (spec
// §4.5.3 step 4). An event whose service names no registered runner is
// logged and dropped.
func (e *RunnerEngine) fanOut(ctx context.Context, producer string, ev simproto.Event) {
	if ev.Service != "" {
		if target, ok := e.runners[ev.Service]; ok {
			if err := target.Triggered(ctx, ev); err != nil {
				e.log.WithError(err).Warnw("triggered delivery failed", "target", ev.Service, "event", ev.EventType)
			}
			return
		}
		e.log.Warnw("event targeted an unknown service", "service", ev.Service, "event", ev.EventType)
		return
	}
	for _, name := range e.order {
		if name == producer {
			continue
		}
		if err := e.runners[name].Triggered(ctx, ev); err != nil {
			e.log.WithError(err).Warnw("triggered delivery failed", "target", name, "event", ev.EventType)
		}
	}
}

func (e *RunnerEngine) Finish(ctx context.Context) error {
	for _, r := range e.Runners() {
		if err := r.Finish(ctx); err != nil {
			e.log.WithError(err).Warnw("finish failed", "runner", r.Name())
		}
	}
	return nil
}

// Reservable delegates to the named runner (spec §4.5.5).
func (e *RunnerEngine) Reservable(ctx context.Context, service, org, dst string) (bool, error) {
	r, ok := e.runners[service]
	if !ok {
		names := make([]string, 0, len(e.runners))
		for n := range e.runners {
			names = append(names, n)
		}
		sort.Strings(names)
		return false, fmt.Errorf("service %q was not found (services: %v)", service, names)
	}
	return r.Reservable(ctx, org, dst)
}
