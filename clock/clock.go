// Package clock implements the per-module discrete-event scheduler every
// simulator in this repository is built on: a virtual "now", a priority
// queue of scheduled callbacks, and a handful of cooperative primitives
// (Timeout, TimeoutUntil, Event) that let vehicle/user logic suspend itself
// without blocking the process.
//
// Rather than modelling processes as goroutines synchronized over channels,
// callbacks are plain functions scheduled against the queue (continuation
// style): a callback that needs to "wait" simply schedules its own
// continuation for a later time and returns. This keeps the whole scheduler
// single-threaded and trivially deterministic, which is what the FIFO
// tie-break and bit-identical replay requirements need.
package clock

import (
	"container/heap"
	"math"
)

// Callback is a unit of scheduled work. It receives the scheduler so it can
// re-arm itself (schedule its own continuation) before returning.
type Callback func(s *Scheduler)

type entry struct {
	time float64
	seq  uint64
	fn   Callback
}

// entryQueue is a min-heap ordered by (time, seq) so that callbacks scheduled
// for the same virtual instant run in FIFO order of insertion, per spec.
type entryQueue []*entry

func (q entryQueue) Len() int { return len(q) }
func (q entryQueue) Less(i, j int) bool {
	if q[i].time != q[j].time {
		return q[i].time < q[j].time
	}
	return q[i].seq < q[j].seq
}
func (q entryQueue) Swap(i, j int)       { q[i], q[j] = q[j], q[i] }
func (q *entryQueue) Push(x interface{}) { *q = append(*q, x.(*entry)) }
func (q *entryQueue) Pop() interface{} {
	old := *q
	n := len(old)
	v := old[n-1]
	old[n-1] = nil
	*q = old[:n-1]
	return v
}

// Scheduler is a single-threaded discrete-event clock. All state mutation
// driven through it happens on whatever goroutine calls Step/Run, so callers
// must serialize their own calls into a scheduler the same way the broker
// serializes ticks across modules (at most one module advances at a time).
type Scheduler struct {
	now     float64
	seq     uint64
	queue   entryQueue
	started bool
}

// New returns a scheduler with virtual time starting at 0.
func New() *Scheduler {
	s := &Scheduler{}
	heap.Init(&s.queue)
	return s
}

// Now returns the scheduler's current virtual time, in minutes.
func (s *Scheduler) Now() float64 { return s.now }

// Schedule arranges for fn to run at absolute virtual time `at`. Scheduling
// in the past is clamped to now (a callback may only run at or after the
// instant it was scheduled from).
func (s *Scheduler) Schedule(at float64, fn Callback) {
	if at < s.now {
		at = s.now
	}
	s.seq++
	heap.Push(&s.queue, &entry{time: at, seq: s.seq, fn: fn})
}

// Timeout arranges for fn to run after delta virtual minutes elapse.
func (s *Scheduler) Timeout(delta float64, fn Callback) {
	s.Schedule(s.now+delta, fn)
}

// TimeoutUntil arranges for fn to run at absolute virtual time `at` (at must
// be >= Now()).
func (s *Scheduler) TimeoutUntil(at float64, fn Callback) {
	s.Schedule(at, fn)
}

// Peek returns the virtual time of the next scheduled callback, or +Inf if
// the queue is empty.
func (s *Scheduler) Peek() float64 {
	if len(s.queue) == 0 {
		return math.Inf(1)
	}
	return s.queue[0].time
}

// Step pops the next scheduled callback, advances `now` to its time, and
// runs it along with every other callback already queued for that exact
// instant (so the scheduler is quiescent at `now` when Step returns). It
// returns false if the queue was already empty (no-op, per the idempotence
// invariant).
func (s *Scheduler) Step() bool {
	if len(s.queue) == 0 {
		return false
	}
	target := s.queue[0].time
	s.now = target
	for len(s.queue) > 0 && s.queue[0].time <= s.now {
		next := heap.Pop(&s.queue).(*entry)
		next.fn(s)
	}
	return true
}

// Run steps the scheduler while the next event is at or before `until`, then
// advances `now` to `until` if that leaves it behind (mirrors simpy's
// env.run(until=...)).
func (s *Scheduler) Run(until float64) {
	for s.Peek() <= until {
		s.Step()
	}
	if s.now < until {
		s.now = until
	}
}

// Pending reports whether any callback remains queued.
func (s *Scheduler) Pending() bool { return len(s.queue) > 0 }
