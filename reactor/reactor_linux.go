//go:build linux
// +build linux

// File: reactor/reactor_linux.go
// Author: momentics <momentics@gmail.com>
//
// Linux poll(2)-based reactor with a self-pipe for wakeups.

package reactor

import (
	"fmt"
	"time"

	"github.com/momentics/hioload-gate/api"
	"golang.org/x/sys/unix"
)

// Reactor waits for readiness with poll(2).
type Reactor struct {
	wakeR, wakeW int
	fds          []unix.PollFd
	handles      []api.Handle
}

// New constructs a Reactor and its wake pipe.
func New() (*Reactor, error) {
	var p [2]int
	if err := unix.Pipe2(p[:], unix.O_NONBLOCK|unix.O_CLOEXEC); err != nil {
		return nil, fmt.Errorf("wake pipe: %w", err)
	}
	return &Reactor{wakeR: p[0], wakeW: p[1]}, nil
}

// Wait implements api.Poller. EINTR restarts the wait with the remaining
// timeout, so signals never look like an empty, timed-out iteration.
func (r *Reactor) Wait(interest, ready *api.EventSet, timeout time.Duration) error {
	ready.Reset()
	r.fds = r.fds[:0]
	r.handles = r.handles[:0]
	r.fds = append(r.fds, unix.PollFd{Fd: int32(r.wakeR), Events: unix.POLLIN})
	interest.Each(func(h api.Handle, ev api.Events) {
		var events int16
		if ev&api.EventRead != 0 {
			events |= unix.POLLIN
		}
		if ev&api.EventWrite != 0 {
			events |= unix.POLLOUT
		}
		r.fds = append(r.fds, unix.PollFd{Fd: int32(h), Events: events})
		r.handles = append(r.handles, h)
	})

	var deadline time.Time
	if timeout >= 0 {
		deadline = time.Now().Add(timeout)
	}
	for {
		ms := -1
		if timeout >= 0 {
			left := time.Until(deadline)
			if left < 0 {
				left = 0
			}
			ms = int((left + time.Millisecond - 1) / time.Millisecond)
		}
		n, err := unix.Poll(r.fds, ms)
		if err == unix.EINTR {
			continue
		}
		if err != nil {
			return fmt.Errorf("poll: %w", err)
		}
		if n == 0 {
			return nil
		}
		break
	}

	if r.fds[0].Revents != 0 {
		r.drainWake()
	}
	for i, pfd := range r.fds[1:] {
		if pfd.Revents == 0 {
			continue
		}
		h := r.handles[i]
		want := interest.Get(h)
		// Errors and hangups surface through the requested operation,
		// which then fails and closes the connection.
		if pfd.Revents&(unix.POLLERR|unix.POLLHUP|unix.POLLNVAL) != 0 {
			ready.Add(h, want)
			continue
		}
		if pfd.Revents&unix.POLLIN != 0 {
			ready.Add(h, api.EventRead)
		}
		if pfd.Revents&unix.POLLOUT != 0 {
			ready.Add(h, api.EventWrite)
		}
	}
	return nil
}

// Wake interrupts a pending or the next Wait.
func (r *Reactor) Wake() error {
	_, err := unix.Write(r.wakeW, []byte{1})
	if err == unix.EAGAIN {
		return nil // a wakeup is already pending
	}
	return err
}

func (r *Reactor) drainWake() {
	var buf [64]byte
	for {
		if n, err := unix.Read(r.wakeR, buf[:]); n <= 0 || err != nil {
			return
		}
	}
}

// Close releases the wake pipe.
func (r *Reactor) Close() error {
	err1 := unix.Close(r.wakeR)
	err2 := unix.Close(r.wakeW)
	if err1 != nil {
		return err1
	}
	return err2
}
