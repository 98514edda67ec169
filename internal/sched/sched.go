// Package sched provides a single-threaded cooperative task loop.
//
// All handlers run on the goroutine that drives the loop, one at a time and to
// completion. A handler never blocks; it suspends by arming a task to run later.
// Other goroutines hand work to the loop with Post.
package sched

import (
	"context"
	"sync"
	"time"
)

// Clock supplies the current time.
type Clock interface {
	Now() time.Time
}

// RealClock is the wall clock.
type RealClock struct{}

// Now returns time.Now().
func (RealClock) Now() time.Time { return time.Now() }

// Loop owns a set of tasks and a queue of posted functions.
type Loop struct {
	clock Clock

	mu     sync.Mutex
	tasks  []*Task
	posted []func()
	seq    uint64
	wake   chan struct{}
}

// Task is a reschedulable callback. At most one deadline is pending per task;
// arming again replaces it.
type Task struct {
	loop  *Loop
	name  string
	fn    func()
	due   time.Time
	seq   uint64
	armed bool
}

// New creates a loop reading time from clock.
func New(clock Clock) *Loop {
	return &Loop{
		clock: clock,
		wake:  make(chan struct{}, 1),
	}
}

// Now returns the loop's current time.
func (l *Loop) Now() time.Time {
	return l.clock.Now()
}

// Register creates an unarmed task.
func (l *Loop) Register(name string, fn func()) *Task {
	t := &Task{loop: l, name: name, fn: fn}
	l.mu.Lock()
	l.tasks = append(l.tasks, t)
	l.mu.Unlock()
	return t
}

// Post queues fn to run on the loop goroutine. Safe for concurrent use.
func (l *Loop) Post(fn func()) {
	l.mu.Lock()
	l.posted = append(l.posted, fn)
	l.mu.Unlock()
	l.signal()
}

func (l *Loop) signal() {
	select {
	case l.wake <- struct{}{}:
	default:
	}
}

// Name returns the task name.
func (t *Task) Name() string {
	return t.name
}

// Arm schedules the task to run d from now, replacing any pending deadline.
// d <= 0 runs it as soon as the current handler returns.
func (t *Task) Arm(d time.Duration) {
	if d < 0 {
		d = 0
	}
	l := t.loop
	l.mu.Lock()
	l.seq++
	t.seq = l.seq
	t.due = l.clock.Now().Add(d)
	t.armed = true
	l.mu.Unlock()
	l.signal()
}

// Cancel drops the pending deadline, if any.
func (t *Task) Cancel() {
	t.loop.mu.Lock()
	t.armed = false
	t.loop.mu.Unlock()
}

// Pending reports whether the task has a deadline outstanding.
func (t *Task) Pending() bool {
	t.loop.mu.Lock()
	defer t.loop.mu.Unlock()
	return t.armed
}

// Due returns the pending deadline. Only meaningful while Pending.
func (t *Task) Due() time.Time {
	t.loop.mu.Lock()
	defer t.loop.mu.Unlock()
	return t.due
}

// runPosted drains the posted queue, including functions posted while draining.
func (l *Loop) runPosted() int {
	n := 0
	for {
		l.mu.Lock()
		batch := l.posted
		l.posted = nil
		l.mu.Unlock()
		if len(batch) == 0 {
			return n
		}
		for _, fn := range batch {
			fn()
			n++
		}
	}
}

// next returns the earliest armed task due at or before now, disarmed.
func (l *Loop) next(now time.Time) *Task {
	l.mu.Lock()
	defer l.mu.Unlock()

	var best *Task
	for _, t := range l.tasks {
		if !t.armed || t.due.After(now) {
			continue
		}
		if best == nil || t.due.Before(best.due) || (t.due.Equal(best.due) && t.seq < best.seq) {
			best = t
		}
	}
	if best != nil {
		best.armed = false
	}
	return best
}

// nextDue returns the earliest pending deadline.
func (l *Loop) nextDue() (time.Time, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	var due time.Time
	found := false
	for _, t := range l.tasks {
		if t.armed && (!found || t.due.Before(due)) {
			due = t.due
			found = true
		}
	}
	return due, found
}

// RunPending runs posted functions and every task that is due now, in
// deadline order. Tasks armed with zero delay by a handler run in the same
// call, after that handler returns. Returns the number of handlers run.
func (l *Loop) RunPending() int {
	n := l.runPosted()
	for {
		t := l.next(l.clock.Now())
		if t == nil {
			return n
		}
		t.fn()
		n++
		n += l.runPosted()
	}
}

// Run drives the loop until ctx is done.
func (l *Loop) Run(ctx context.Context) error {
	timer := time.NewTimer(time.Hour)
	defer timer.Stop()

	for {
		l.RunPending()

		wait := time.Hour
		if due, ok := l.nextDue(); ok {
			wait = due.Sub(l.clock.Now())
			if wait < 0 {
				wait = 0
			}
		}
		if !timer.Stop() {
			select {
			case <-timer.C:
			default:
			}
		}
		timer.Reset(wait)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-l.wake:
		case <-timer.C:
		}
	}
}
