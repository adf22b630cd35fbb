package clock

// Event is a manually-triggered one-shot signal: callers await it with
// OnDone, and exactly one of Succeed/Interrupt later resolves it. Waiters
// registered before resolution run in FIFO order, scheduled at the instant
// Succeed/Interrupt is called (so ordering composes correctly with Step's
// same-instant quiescence loop).
type Event struct {
	s        *Scheduler
	resolved bool
	ok       bool
	value    interface{}
	waiters  []func(ok bool, value interface{})
}

// NewEvent creates an event bound to the scheduler that will run its waiters.
func NewEvent(s *Scheduler) *Event {
	return &Event{s: s}
}

// OnDone registers fn to run once the event resolves. If the event has
// already resolved, fn runs on the next Step quiescence pass (scheduled at
// now) rather than synchronously, so callers never observe reentrant
// callbacks mid-registration.
func (e *Event) OnDone(fn func(ok bool, value interface{})) {
	if e.resolved {
		ok, value := e.ok, e.value
		e.s.Schedule(e.s.Now(), func(*Scheduler) { fn(ok, value) })
		return
	}
	e.waiters = append(e.waiters, fn)
}

// Succeed resolves the event successfully with the given value and fires
// all waiters in registration order.
func (e *Event) Succeed(value interface{}) {
	e.resolve(true, value)
}

// Interrupt resolves the event as aborted; waiters observe ok=false.
func (e *Event) Interrupt() {
	e.resolve(false, nil)
}

func (e *Event) resolve(ok bool, value interface{}) {
	if e.resolved {
		return
	}
	e.resolved = true
	e.ok = ok
	e.value = value
	waiters := e.waiters
	e.waiters = nil
	for _, w := range waiters {
		w := w
		e.s.Schedule(e.s.Now(), func(*Scheduler) { w(ok, value) })
	}
}

// Resolved reports whether Succeed/Interrupt has already been called.
func (e *Event) Resolved() bool { return e.resolved }

// Timer is a cancellable delayed callback, used to implement the
// wait-until-scheduled-departure suspension that a reservation arrival can
// interrupt (spec §4.2.5): start the timer, and Cancel it if a competing
// event preempts the wait before it fires.
type Timer struct {
	cancelled bool
	fired     bool
}

// After schedules fn to run after delta virtual minutes, unless the
// returned Timer is cancelled first.
func (s *Scheduler) After(delta float64, fn Callback) *Timer {
	t := &Timer{}
	s.Timeout(delta, func(s *Scheduler) {
		if t.cancelled {
			return
		}
		t.fired = true
		fn(s)
	})
	return t
}

// AfterAt schedules fn to run at absolute time `at`, unless cancelled first.
func (s *Scheduler) AfterAt(at float64, fn Callback) *Timer {
	t := &Timer{}
	s.TimeoutUntil(at, func(s *Scheduler) {
		if t.cancelled {
			return
		}
		t.fired = true
		fn(s)
	})
	return t
}

// Cancel prevents a pending timer's callback from running. A no-op if the
// timer already fired.
func (t *Timer) Cancel() { t.cancelled = true }

// Fired reports whether the timer's callback has already run.
func (t *Timer) Fired() bool { return t.fired }

// Active reports whether the timer is still pending (neither fired nor
// cancelled) — used by vehicles to test "am I still WaitingForScheduled".
func (t *Timer) Active() bool { return !t.fired && !t.cancelled }
