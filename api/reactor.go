// File: api/reactor.go
// Author: momentics <momentics@gmail.com>
//
// Defines the level-triggered readiness abstraction used by the gateway loop.
// Interest sets are rebuilt by the caller on every iteration.

package api

import (
	"context"
	"time"
)

// Events is a bit mask of readiness conditions.
type Events uint8

const (
	EventRead Events = 1 << iota
	EventWrite
)

// EventSet maps handles to event masks. It is used both for interest and
// for reported readiness. The zero value is not usable; call NewEventSet.
type EventSet struct {
	m map[Handle]Events
}

// NewEventSet returns an empty set.
func NewEventSet() *EventSet {
	return &EventSet{m: make(map[Handle]Events)}
}

// Add merges ev into the mask registered for h.
func (s *EventSet) Add(h Handle, ev Events) {
	if h == NoHandle || ev == 0 {
		return
	}
	s.m[h] |= ev
}

// Has reports whether any bit of ev is set for h.
func (s *EventSet) Has(h Handle, ev Events) bool {
	if h == NoHandle {
		return false
	}
	return s.m[h]&ev != 0
}

// Get returns the mask registered for h.
func (s *EventSet) Get(h Handle) Events {
	return s.m[h]
}

// Len returns the number of handles in the set.
func (s *EventSet) Len() int {
	return len(s.m)
}

// Each calls fn for every handle in unspecified order.
func (s *EventSet) Each(fn func(h Handle, ev Events)) {
	for h, ev := range s.m {
		fn(h, ev)
	}
}

// Reset empties the set, keeping its storage.
func (s *EventSet) Reset() {
	clear(s.m)
}

// Poller waits for readiness on a set of handles.
type Poller interface {
	// Wait blocks until at least one handle in interest is ready, the timeout
	// elapses, or Wake is called. A negative timeout waits indefinitely.
	// Ready handles are written into ready, which is reset first.
	Wait(interest, ready *EventSet, timeout time.Duration) error

	// Wake interrupts a pending or the next Wait. Safe to call from any goroutine.
	Wake() error

	Close() error
}

// Clock abstracts monotonic time and blocking sleeps.
type Clock interface {
	Now() time.Time
	Sleep(d time.Duration)
}

// SystemClock is the wall clock.
type SystemClock struct{}

func (SystemClock) Now() time.Time        { return time.Now() }
func (SystemClock) Sleep(d time.Duration) { time.Sleep(d) }

// SleepContext sleeps for d or until ctx is done.
func (SystemClock) SleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Sleep blocks on c for d. Clocks that implement SleepContext stop early when
// ctx is done; the returned error is then ctx.Err().
func Sleep(ctx context.Context, c Clock, d time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if cs, ok := c.(interface {
		SleepContext(context.Context, time.Duration) error
	}); ok {
		return cs.SleepContext(ctx, d)
	}
	c.Sleep(d)
	return ctx.Err()
}
