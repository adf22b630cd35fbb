package broker

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mobility-cosim/platform/obslog"
	"github.com/mobility-cosim/platform/simproto"
)

// fakeRunner is an in-process Runner stub, standing in for an HttpRunner in
// tests so the tick loop and fan-out can be exercised without a live server.
type fakeRunner struct {
	name        string
	peeks       []float64
	peekIdx     int
	stepEvents  []simproto.Event
	triggered   []simproto.Event
	reservable  bool
	finished    bool
}

func (f *fakeRunner) Name() string { return f.name }

func (f *fakeRunner) Spec(context.Context) (simproto.SpecificationResponse, error) {
	return simproto.SpecificationResponse{Version: "mobility-cosim/v1"}, nil
}

func (f *fakeRunner) Setup(context.Context, any) error { return nil }
func (f *fakeRunner) Start(context.Context) error      { return nil }

func (f *fakeRunner) Peek(context.Context) (float64, error) {
	if f.peekIdx >= len(f.peeks) {
		return infinity, nil
	}
	return f.peeks[f.peekIdx], nil
}

func (f *fakeRunner) Step(context.Context) (float64, []simproto.Event, error) {
	now := f.peeks[f.peekIdx]
	f.peekIdx++
	return now, f.stepEvents, nil
}

func (f *fakeRunner) Triggered(_ context.Context, ev simproto.Event) error {
	f.triggered = append(f.triggered, ev)
	return nil
}

func (f *fakeRunner) Finish(context.Context) error {
	f.finished = true
	return nil
}

func (f *fakeRunner) Reservable(context.Context, string, string) (bool, error) {
	return f.reservable, nil
}

// memSink collects every event written to it, for assertions.
type memSink struct {
	events []simproto.Event
	closed bool
}

func (s *memSink) Write(_ context.Context, ev simproto.Event) error {
	s.events = append(s.events, ev)
	return nil
}

func (s *memSink) Close(context.Context) error {
	s.closed = true
	return nil
}

func testLog() *obslog.Logger { return obslog.Default("broker-test") }

func TestStepPicksLowestPeekWithRegistrationOrderTiebreak(t *testing.T) {
	sink := &memSink{}
	engine := NewRunnerEngine(sink, testLog())

	slow := &fakeRunner{name: "slow", peeks: []float64{10}}
	fast := &fakeRunner{name: "fast", peeks: []float64{5}}
	// Registered slow-first; fast should still win on lower peek.
	engine.Register(slow, fast)

	now, err := engine.Step(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, 5.0, now)
	assert.Equal(t, 1, fast.peekIdx, "the lower-peek runner is the one that actually stepped")
	assert.Equal(t, 0, slow.peekIdx, "the higher-peek runner does not step this tick")
}

func TestStepTieBreaksByRegistrationOrder(t *testing.T) {
	sink := &memSink{}
	engine := NewRunnerEngine(sink, testLog())

	first := &fakeRunner{name: "first", peeks: []float64{5}, stepEvents: []simproto.Event{{EventType: simproto.EventDemand, Time: 5}}}
	second := &fakeRunner{name: "second", peeks: []float64{5}, stepEvents: []simproto.Event{{EventType: simproto.EventDemand, Time: 5}}}
	engine.Register(first, second)

	_, err := engine.Step(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, 1, first.peekIdx, "the tied-for-lowest but first-registered runner steps")
	assert.Equal(t, 0, second.peekIdx, "the tied second-registered runner does not step this tick")
}

func TestStepStopsWhenMinPeekExceedsUntil(t *testing.T) {
	sink := &memSink{}
	engine := NewRunnerEngine(sink, testLog())
	engine.Register(&fakeRunner{name: "only", peeks: []float64{100}})

	until := 50.0
	now, err := engine.Step(context.Background(), &until)
	require.NoError(t, err)
	assert.Equal(t, 100.0, now, "Step reports the peek it stopped at without stepping")
	assert.Equal(t, 0, engine.runners["only"].(*fakeRunner).peekIdx, "runner never actually stepped")
}

func TestFanOutTargetsNamedServiceAndSkipsBroadcast(t *testing.T) {
	sink := &memSink{}
	engine := NewRunnerEngine(sink, testLog())

	producer := &fakeRunner{name: "producer", peeks: []float64{1}, stepEvents: []simproto.Event{
		{EventType: simproto.EventReserve, Time: 1, Service: "valet"},
	}}
	valet := &fakeRunner{name: "valet", peeks: []float64{infinity}}
	bystander := &fakeRunner{name: "bystander", peeks: []float64{infinity}}
	engine.Register(producer, valet, bystander)

	_, err := engine.Step(context.Background(), nil)
	require.NoError(t, err)

	require.Len(t, valet.triggered, 1)
	assert.Equal(t, simproto.EventReserve, valet.triggered[0].EventType)
	assert.Empty(t, bystander.triggered, "non-targeted runner must not receive a service-targeted event")
}

func TestFanOutBroadcastsUnservicedEventToEveryoneButProducer(t *testing.T) {
	sink := &memSink{}
	engine := NewRunnerEngine(sink, testLog())

	producer := &fakeRunner{name: "producer", peeks: []float64{1}, stepEvents: []simproto.Event{
		{EventType: simproto.EventDeparted, Time: 1},
	}}
	other1 := &fakeRunner{name: "other1", peeks: []float64{infinity}}
	other2 := &fakeRunner{name: "other2", peeks: []float64{infinity}}
	engine.Register(producer, other1, other2)

	_, err := engine.Step(context.Background(), nil)
	require.NoError(t, err)

	assert.Len(t, other1.triggered, 1)
	assert.Len(t, other2.triggered, 1)
	assert.Empty(t, producer.triggered, "the producer never receives its own broadcast event back")
}

func TestStepWritesSteppedEventsToSinkWithSourceSet(t *testing.T) {
	sink := &memSink{}
	engine := NewRunnerEngine(sink, testLog())
	r := &fakeRunner{name: "demandgen", peeks: []float64{3}, stepEvents: []simproto.Event{
		{EventType: simproto.EventDemand, Time: 3},
	}}
	engine.Register(r)

	_, err := engine.Step(context.Background(), nil)
	require.NoError(t, err)
	require.Len(t, sink.events, 1)
	assert.Equal(t, "demandgen", sink.events[0].Source)
}

func TestReservableDelegatesToNamedRunnerAndErrorsOnUnknownService(t *testing.T) {
	sink := &memSink{}
	engine := NewRunnerEngine(sink, testLog())
	engine.Register(&fakeRunner{name: "valet", reservable: true})

	ok, err := engine.Reservable(context.Background(), "valet", "A", "B")
	require.NoError(t, err)
	assert.True(t, ok)

	_, err = engine.Reservable(context.Background(), "unknown", "A", "B")
	assert.Error(t, err)
}

func TestFinishTearsDownEveryRegisteredRunner(t *testing.T) {
	sink := &memSink{}
	engine := NewRunnerEngine(sink, testLog())
	r1 := &fakeRunner{name: "r1"}
	r2 := &fakeRunner{name: "r2"}
	engine.Register(r1, r2)

	require.NoError(t, engine.Finish(context.Background()))
	assert.True(t, r1.finished)
	assert.True(t, r2.finished)
}
