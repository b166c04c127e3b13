// File: api/transport.go
// Author: momentics <momentics@gmail.com>
//
// Socket abstractions consumed by the event loop. Implementations wrap raw
// non-blocking descriptors (internal/transport) or in-memory doubles (fake).

package api

import (
	"context"
	"net/netip"
)

// Handle identifies an OS socket within a Poller interest set.
type Handle int

// NoHandle is the sentinel for "not connected".
const NoHandle Handle = -1

// Socket is a connected, non-blocking stream endpoint.
type Socket interface {
	// Handle returns the descriptor used for readiness registration.
	Handle() Handle

	// Read reads up to len(p) bytes. It returns io.EOF on orderly shutdown
	// and ErrWouldBlock when no data is currently available.
	Read(p []byte) (n int, err error)

	// Write writes from p and may write fewer bytes than requested.
	// ErrWouldBlock means nothing could be written right now.
	Write(p []byte) (n int, err error)

	// Close releases the descriptor.
	Close() error

	// PeerName returns the remote "address:port".
	PeerName() (string, error)
}

// Listener accepts downstream clients.
type Listener interface {
	Handle() Handle

	// Accept returns the next pending connection, or ErrWouldBlock.
	Accept() (Socket, error)

	Close() error
}

// Dialer opens the backend connection.
type Dialer interface {
	// Resolve maps host and port to an IPv4 endpoint.
	Resolve(ctx context.Context, host string, port int) (netip.AddrPort, error)

	// Dial performs a single blocking connect attempt.
	Dial(ctx context.Context, addr netip.AddrPort) (Socket, error)
}
