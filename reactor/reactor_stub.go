//go:build !linux
// +build !linux

// File: reactor/reactor_stub.go
// Author: momentics <momentics@gmail.com>
//
// Stub implementation for unsupported platforms.

package reactor

import (
	"time"

	"github.com/momentics/hioload-gate/api"
)

// Reactor is unavailable on this platform.
type Reactor struct{}

// New returns api.ErrNotSupported.
func New() (*Reactor, error) {
	return nil, api.ErrNotSupported
}

func (r *Reactor) Wait(_, _ *api.EventSet, _ time.Duration) error { return api.ErrNotSupported }
func (r *Reactor) Wake() error                                      { return api.ErrNotSupported }
func (r *Reactor) Close() error                                     { return nil }
