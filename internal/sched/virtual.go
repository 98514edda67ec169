package sched

import (
	"sync"
	"time"
)

// VirtualClock is a manually advanced clock for tests and simulations.
type VirtualClock struct {
	mu sync.Mutex
	t  time.Time
}

// NewVirtualClock creates a clock stopped at start.
func NewVirtualClock(start time.Time) *VirtualClock {
	return &VirtualClock{t: start}
}

// Now returns the virtual time.
func (c *VirtualClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *VirtualClock) set(t time.Time) {
	c.mu.Lock()
	if t.After(c.t) {
		c.t = t
	}
	c.mu.Unlock()
}

// NewVirtual creates a loop on a virtual clock.
func NewVirtual(start time.Time) (*Loop, *VirtualClock) {
	clock := NewVirtualClock(start)
	return New(clock), clock
}

// Advance moves virtual time forward by d, running every handler that falls
// due on the way at its own deadline. It panics if the loop is not virtual.
func (l *Loop) Advance(d time.Duration) int {
	clock, ok := l.clock.(*VirtualClock)
	if !ok {
		panic("sched: Advance on a loop without a virtual clock")
	}
	target := clock.Now().Add(d)

	n := l.RunPending()
	for {
		due, ok := l.nextDue()
		if !ok || due.After(target) {
			break
		}
		clock.set(due)
		n += l.RunPending()
	}
	clock.set(target)
	return n + l.RunPending()
}
