// Package api
// Author: momentics <momentics@gmail.com>
//
// Common error values shared by the gateway packages.

package api

import "errors"

// Common errors used across the gateway.
var (
	// ErrWouldBlock reports that a non-blocking socket operation could not make progress.
	ErrWouldBlock = errors.New("operation would block")
	// ErrClosed reports use of a socket, listener or poller after Close.
	ErrClosed = errors.New("resource is closed")
	// ErrNotSupported is returned by platform stubs.
	ErrNotSupported = errors.New("operation not supported on this platform")
	// ErrPoolFull reports that every client slot is taken.
	ErrPoolFull = errors.New("all client slots are in use")
)
