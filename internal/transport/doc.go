// File: internal/transport/doc.go
// Package transport
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Raw non-blocking TCP sockets for the gateway loop: a listening socket for
// downstream clients, a dialer for the backend and the connected socket type
// shared by both. Descriptors are driven by the reactor, never by the Go
// runtime poller.
package transport
