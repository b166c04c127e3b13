// File: internal/arbiter/arbiter.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Package arbiter tracks which client slot currently holds the backend's
// attention, which slots asked for a turn while another one held it, and the
// timestamps driving command pacing and turn timeouts.

package arbiter

import "time"

const none = -1

// Arbiter is the turn-taking state. Not safe for concurrent use.
type Arbiter struct {
	active       int
	deferred     []bool
	deferredN    int
	lastRelease  time.Time
	lastActivity time.Time
}

// New returns an idle arbiter for slots client slots. The release time is set
// to now, so the first command is paced like any other.
func New(slots int, now time.Time) *Arbiter {
	return &Arbiter{
		active:      none,
		deferred:    make([]bool, slots),
		lastRelease: now,
	}
}

// Idle reports whether no client holds the turn.
func (a *Arbiter) Idle() bool { return a.active == none }

// Active returns the slot holding the turn.
func (a *Arbiter) Active() (slot int, ok bool) {
	return a.active, a.active != none
}

// IsActive reports whether slot holds the turn.
func (a *Arbiter) IsActive(slot int) bool {
	return a.active != none && a.active == slot
}

// Acquire hands the turn to slot and restarts its inactivity timer. A slot
// holding the turn is never deferred.
func (a *Arbiter) Acquire(slot int, now time.Time) {
	if a.deferred[slot] {
		a.deferred[slot] = false
		a.deferredN--
	}
	a.active = slot
	a.lastActivity = now
}

// Release returns to idle. It reports whether a turn was actually held; only
// then is the pacing timestamp moved.
func (a *Arbiter) Release(now time.Time) bool {
	if a.active == none {
		return false
	}
	a.active = none
	a.lastRelease = now
	return true
}

// Touch records relevant readiness for the current turn.
func (a *Arbiter) Touch(now time.Time) {
	a.lastActivity = now
}

// TurnRemaining returns how long the active turn may stay silent before it
// expires. The result is never negative; it is zero when idle.
func (a *Arbiter) TurnRemaining(now time.Time, timeout time.Duration) time.Duration {
	if a.active == none {
		return 0
	}
	left := timeout - now.Sub(a.lastActivity)
	if left < 0 {
		return 0
	}
	return left
}

// TurnExpired reports whether the active turn has been silent for timeout.
func (a *Arbiter) TurnExpired(now time.Time, timeout time.Duration) bool {
	return a.active != none && now.Sub(a.lastActivity) >= timeout
}

// PacingDelay returns how long to wait so that at least interval separates
// the last release from the next command.
func (a *Arbiter) PacingDelay(now time.Time, interval time.Duration) time.Duration {
	elapsed := now.Sub(a.lastRelease)
	if elapsed < 0 || elapsed >= interval {
		return 0
	}
	return interval - elapsed
}

// LastRelease returns the time of the last transition into idle.
func (a *Arbiter) LastRelease() time.Time { return a.lastRelease }

// Defer records that slot wants a turn.
func (a *Arbiter) Defer(slot int) {
	if !a.deferred[slot] {
		a.deferred[slot] = true
		a.deferredN++
	}
}

// IsDeferred reports whether slot is waiting for a turn.
func (a *Arbiter) IsDeferred(slot int) bool { return a.deferred[slot] }

// Deferred returns the number of waiting slots.
func (a *Arbiter) Deferred() int { return a.deferredN }

// Forget drops slot from the deferred set and, if it held the turn, releases
// it. Called when the slot disconnects.
func (a *Arbiter) Forget(slot int, now time.Time) {
	if a.deferred[slot] {
		a.deferred[slot] = false
		a.deferredN--
	}
	if a.active == slot {
		a.Release(now)
	}
}

// NextDeferred removes and returns the lowest waiting slot.
func (a *Arbiter) NextDeferred() (slot int, ok bool) {
	if a.deferredN == 0 {
		return none, false
	}
	for i, waiting := range a.deferred {
		if waiting {
			a.deferred[i] = false
			a.deferredN--
			return i, true
		}
	}
	return none, false
}

// Reset drops every deferred slot and releases any turn.
func (a *Arbiter) Reset(now time.Time) {
	clear(a.deferred)
	a.deferredN = 0
	a.Release(now)
}
