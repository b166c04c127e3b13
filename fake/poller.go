// Package fake
// Author: momentics <momentics@gmail.com>

package fake

import (
	"errors"
	"time"

	"github.com/momentics/hioload-gate/api"
)

// ErrWouldHang is returned when an indefinite Wait finds nothing ready,
// which in a single-threaded test would block forever.
var ErrWouldHang = errors.New("fake: indefinite wait with nothing ready")

// WaitCall records one Wait invocation.
type WaitCall struct {
	Interest map[api.Handle]api.Events
	Timeout  time.Duration
}

// Poller is a level-triggered api.Poller over a Network. A Wait that finds
// nothing ready advances the Clock by the timeout.
type Poller struct {
	net   *Network
	clock *Clock
	woken bool

	// Err, when set, is returned by every Wait.
	Err   error
	Calls []WaitCall
}

// NewPoller returns a poller over n that advances clock on timeouts.
func NewPoller(n *Network, clock *Clock) *Poller {
	return &Poller{net: n, clock: clock}
}

// Last returns the most recent Wait call.
func (p *Poller) Last() WaitCall {
	if len(p.Calls) == 0 {
		return WaitCall{}
	}
	return p.Calls[len(p.Calls)-1]
}

// EverWatched reports whether h appeared in any interest set.
func (p *Poller) EverWatched(h api.Handle) bool {
	for _, c := range p.Calls {
		if _, ok := c.Interest[h]; ok {
			return true
		}
	}
	return false
}

func (p *Poller) Wait(interest, ready *api.EventSet, timeout time.Duration) error {
	ready.Reset()
	call := WaitCall{Interest: make(map[api.Handle]api.Events), Timeout: timeout}
	interest.Each(func(h api.Handle, ev api.Events) { call.Interest[h] = ev })
	p.Calls = append(p.Calls, call)
	if p.Err != nil {
		return p.Err
	}

	interest.Each(func(h api.Handle, ev api.Events) {
		src, ok := p.net.sources[h]
		if !ok {
			return
		}
		if ev&api.EventRead != 0 && src.readable() {
			ready.Add(h, api.EventRead)
		}
		if ev&api.EventWrite != 0 && src.writable() {
			ready.Add(h, api.EventWrite)
		}
	})
	if ready.Len() > 0 {
		return nil
	}
	if p.woken {
		p.woken = false
		return nil
	}
	if timeout < 0 {
		return ErrWouldHang
	}
	p.clock.Advance(timeout)
	return nil
}

func (p *Poller) Wake() error {
	p.woken = true
	return nil
}

func (p *Poller) Close() error { return nil }
