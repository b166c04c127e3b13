//go:build !linux
// +build !linux

// File: internal/transport/transport_stub.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Stub implementation for unsupported platforms.

package transport

import (
	"context"
	"net/netip"

	"github.com/momentics/hioload-gate/api"
)

// Listener is unavailable on this platform.
type Listener struct{}

// Listen returns api.ErrNotSupported.
func Listen(string, int, int) (*Listener, error) { return nil, api.ErrNotSupported }

func (l *Listener) Handle() api.Handle          { return api.NoHandle }
func (l *Listener) Accept() (api.Socket, error) { return nil, api.ErrNotSupported }
func (l *Listener) Port() (int, error)          { return 0, api.ErrNotSupported }
func (l *Listener) Close() error                { return nil }

// Dialer is unavailable on this platform.
type Dialer struct{}

func (d *Dialer) Resolve(context.Context, string, int) (netip.AddrPort, error) {
	return netip.AddrPort{}, api.ErrNotSupported
}

func (d *Dialer) Dial(context.Context, netip.AddrPort) (api.Socket, error) {
	return nil, api.ErrNotSupported
}
