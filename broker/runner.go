// Package broker implements the runner registry, tick loop, specification
// compatibility gate, and result sink described by spec §4.5. Grounded on
// original_source/src/simulation_broker/{runner,engine,validation,controller}.py:
// the same responsibilities, expressed as Go interfaces and a single-threaded
// tick loop instead of asyncio coroutines.
package broker

import (
	"context"
	"net/http"
	"time"

	"github.com/mobility-cosim/platform/simproto"
)

// Runner is a module driven by the broker (spec §4.5's Runner abstraction).
// Name() is the key the tick loop fans events out by.
type Runner interface {
	Name() string
	Spec(ctx context.Context) (simproto.SpecificationResponse, error)
	Setup(ctx context.Context, setting any) error
	Start(ctx context.Context) error
	Peek(ctx context.Context) (float64, error)
	Step(ctx context.Context) (float64, []simproto.Event, error)
	Triggered(ctx context.Context, ev simproto.Event) error
	Finish(ctx context.Context) error
	Reservable(ctx context.Context, org, dst string) (bool, error)
}

// HttpRunner is the default Runner: an HTTP client against one module
// process's spec §6 surface. Grounded directly on runner.py's HttpRunner —
// same method set, same semantics (peek's -1 maps to +Inf).
type HttpRunner struct {
	name   string
	client *simproto.Client
}

// NewHttpRunner builds an HttpRunner whose calls are each bounded by
// callTimeout (Manager passes 5m), except Setup, which is bounded only by its
// context (Manager gives it SetupTimeout, 1h).
func NewHttpRunner(name, endpoint string, callTimeout time.Duration) *HttpRunner {
	return &HttpRunner{name: name, client: simproto.NewClient(endpoint, callTimeout)}
}

func (r *HttpRunner) Name() string { return r.name }

func (r *HttpRunner) Spec(ctx context.Context) (simproto.SpecificationResponse, error) {
	var out simproto.SpecificationResponse
	err := r.client.GetJSON(ctx, "/spec", &out)
	return out, err
}

func (r *HttpRunner) Setup(ctx context.Context, setting any) error {
	setupClient := &simproto.Client{Base: r.client.Base, HTTPClient: &http.Client{}}
	return setupClient.PostJSON(ctx, "/setup", setting, nil)
}

func (r *HttpRunner) Start(ctx context.Context) error {
	return r.client.PostJSON(ctx, "/start", nil, nil)
}

func (r *HttpRunner) Peek(ctx context.Context) (float64, error) {
	var out simproto.PeekResponse
	if err := r.client.GetJSON(ctx, "/peek", &out); err != nil {
		return 0, err
	}
	if out.Next < 0 {
		return infinity, nil
	}
	return out.Next, nil
}

func (r *HttpRunner) Step(ctx context.Context) (float64, []simproto.Event, error) {
	var out simproto.StepResponse
	if err := r.client.PostJSON(ctx, "/step", nil, &out); err != nil {
		return 0, nil, err
	}
	return out.Now, out.Events, nil
}

func (r *HttpRunner) Triggered(ctx context.Context, ev simproto.Event) error {
	return r.client.PostJSON(ctx, "/triggered", ev, nil)
}

func (r *HttpRunner) Finish(ctx context.Context) error {
	return r.client.PostJSON(ctx, "/finish", nil, nil)
}

func (r *HttpRunner) Reservable(ctx context.Context, org, dst string) (bool, error) {
	var out simproto.ReservableResponse
	err := r.client.GetJSON(ctx, "/reservable?org="+org+"&dst="+dst, &out)
	return out.Reservable, err
}
