package clock

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestStepIsNoOpAtQuiescence(t *testing.T) {
	s := New()
	require.True(t, math.IsInf(s.Peek(), 1))
	require.False(t, s.Step(), "step on an empty queue must be a no-op")
	require.Equal(t, 0.0, s.Now())
}

func TestFIFOAtEqualTime(t *testing.T) {
	s := New()
	var order []int
	s.Schedule(10, func(s *Scheduler) { order = append(order, 1) })
	s.Schedule(10, func(s *Scheduler) { order = append(order, 2) })
	s.Schedule(10, func(s *Scheduler) { order = append(order, 3) })

	require.Equal(t, 10.0, s.Peek())
	s.Step()
	require.Equal(t, []int{1, 2, 3}, order)
	require.Equal(t, 10.0, s.Now())
}

func TestStepRunsEverythingAtSameInstantIncludingReschedules(t *testing.T) {
	s := New()
	var ticks []float64
	var rearm Callback
	rearm = func(s *Scheduler) {
		ticks = append(ticks, s.Now())
		if len(ticks) < 3 {
			// reschedule for the *same* instant; Step must still drain it.
			s.Schedule(s.Now(), rearm)
		}
	}
	s.Schedule(5, rearm)
	s.Step()
	require.Equal(t, []float64{5, 5, 5}, ticks)
	require.False(t, s.Pending())
}

func TestRunAdvancesPastUntilWhenQueueEmpty(t *testing.T) {
	s := New()
	s.Run(100)
	require.Equal(t, 100.0, s.Now())
}

func TestRunStopsAtUntilNotPast(t *testing.T) {
	s := New()
	var fired bool
	s.Schedule(50, func(s *Scheduler) { fired = true })
	s.Run(10)
	require.False(t, fired)
	require.Equal(t, 10.0, s.Now())
	require.Equal(t, 50.0, s.Peek())
}

func TestTimerCancelPreventsCallback(t *testing.T) {
	s := New()
	var ran bool
	timer := s.After(5, func(s *Scheduler) { ran = true })
	timer.Cancel()
	s.Run(10)
	require.False(t, ran)
	require.True(t, timer.Active() == false && !timer.Fired())
}

func TestEventResolvesWaitersInOrder(t *testing.T) {
	s := New()
	ev := NewEvent(s)
	var order []string
	ev.OnDone(func(ok bool, v interface{}) { order = append(order, "a") })
	ev.OnDone(func(ok bool, v interface{}) { order = append(order, "b") })
	s.Schedule(3, func(s *Scheduler) { ev.Succeed("done") })
	s.Run(10)
	require.Equal(t, []string{"a", "b"}, order)
}

func TestEventInterruptReportsNotOK(t *testing.T) {
	s := New()
	ev := NewEvent(s)
	var sawOK bool
	var called bool
	ev.OnDone(func(ok bool, v interface{}) { sawOK = ok; called = true })
	ev.Interrupt()
	s.Run(1)
	require.True(t, called)
	require.False(t, sawOK)
}
