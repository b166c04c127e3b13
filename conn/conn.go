// File: conn/conn.go
// Package conn models one peer endpoint of the gateway: a downstream client
// or the backend. It wraps a socket, a bounded outbound queue and a label.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package conn

import (
	"errors"
	"io"

	"github.com/momentics/hioload-gate/api"
	"github.com/momentics/hioload-gate/core/buffer"
	"github.com/rs/zerolog"
)

const (
	// DefaultCapacity is the outbound queue size per connection.
	DefaultCapacity = 16384

	labelCleared = "<cleared>"
	labelUnknown = "Unknown"
)

// CloseReason says why a connection was closed.
type CloseReason int

const (
	// ReasonLocal is an explicit Close by the owner.
	ReasonLocal CloseReason = iota
	// ReasonEOF is an orderly shutdown by the peer.
	ReasonEOF
	// ReasonIOError is a failed read or write.
	ReasonIOError
	// ReasonOverflow is an outbound queue overflow.
	ReasonOverflow
)

func (r CloseReason) String() string {
	switch r {
	case ReasonEOF:
		return "eof"
	case ReasonIOError:
		return "io_error"
	case ReasonOverflow:
		return "overflow"
	default:
		return "local"
	}
}

// Conn is a single peer endpoint. The zero value is not usable; call New.
// Not safe for concurrent use: it belongs to the event loop goroutine.
type Conn struct {
	sock    api.Socket // nil when not connected
	out     *buffer.Queue
	label   string
	log     zerolog.Logger
	onClose func(c *Conn, reason CloseReason)
}

// New returns a cleared connection with an outbound queue of capacity bytes.
func New(capacity int, log zerolog.Logger) *Conn {
	c := &Conn{out: buffer.NewQueue(capacity), log: log}
	c.Clear()
	return c
}

// OnClose installs a hook run after every close, once the connection is cleared.
func (c *Conn) OnClose(fn func(c *Conn, reason CloseReason)) {
	c.onClose = fn
}

// Clear resets the connection to the disconnected state without touching the socket.
func (c *Conn) Clear() {
	c.sock = nil
	c.out.Reset()
	c.label = labelCleared
}

// Open attaches a freshly connected socket and resolves its label.
func (c *Conn) Open(sock api.Socket) {
	c.sock = sock
	c.out.Reset()
	if name, err := sock.PeerName(); err != nil || name == "" {
		c.label = labelUnknown
	} else {
		c.label = name
	}
	c.log.Info().Str("peer", c.label).Msg("connected")
}

// Close releases the socket and clears the connection.
func (c *Conn) Close() {
	c.close(ReasonLocal)
}

func (c *Conn) close(reason CloseReason) {
	if c.sock == nil {
		return
	}
	c.log.Info().Str("peer", c.label).Stringer("reason", reason).Msg("close")
	if err := c.sock.Close(); err != nil {
		c.log.Debug().Err(err).Str("peer", c.label).Msg("socket close failed")
	}
	c.Clear()
	if c.onClose != nil {
		c.onClose(c, reason)
	}
}

// Enqueue appends p to the outbound queue. When p does not fit the whole
// connection is closed and false is returned; nothing is partially queued.
func (c *Conn) Enqueue(p []byte) bool {
	if c.sock == nil {
		return false
	}
	if !c.out.Push(p) {
		c.log.Warn().
			Str("peer", c.label).
			Int("queued", c.out.Len()).
			Int("incoming", len(p)).
			Msg("client buffer full")
		c.close(ReasonOverflow)
		return false
	}
	return true
}

// Flush writes as much queued data as the socket accepts. Written bytes are
// removed from the front of the queue; the remainder keeps its order.
// It returns the number of bytes transmitted.
func (c *Conn) Flush() int {
	sent := 0
	for c.sock != nil && c.out.Len() > 0 {
		seg := c.out.Peek()
		n, err := c.sock.Write(seg)
		if n > 0 {
			c.out.Discard(n)
			sent += n
		}
		if err != nil {
			if errors.Is(err, api.ErrWouldBlock) {
				break
			}
			c.log.Error().Err(err).Str("peer", c.label).Msg("send failed")
			c.close(ReasonIOError)
			break
		}
		if n < len(seg) {
			break
		}
	}
	return sent
}

// Receive reads up to len(buf) bytes and returns them as a sub-slice of buf.
// End of stream and hard errors close the connection; both, like a spurious
// wakeup, yield nil.
func (c *Conn) Receive(buf []byte) []byte {
	if c.sock == nil {
		return nil
	}
	n, err := c.sock.Read(buf)
	switch {
	case err == nil && n > 0:
		return buf[:n]
	case errors.Is(err, api.ErrWouldBlock):
		return nil
	case err == nil, errors.Is(err, io.EOF):
		c.close(ReasonEOF)
		return nil
	default:
		c.log.Error().Err(err).Str("peer", c.label).Msg("recv failed")
		c.close(ReasonIOError)
		return nil
	}
}

// HasQueuedData reports whether outbound bytes are pending.
func (c *Conn) HasQueuedData() bool { return c.out.Len() > 0 }

// Queued returns the number of pending outbound bytes.
func (c *Conn) Queued() int { return c.out.Len() }

// Connected reports whether a socket is attached.
func (c *Conn) Connected() bool { return c.sock != nil }

// Handle returns the socket handle, or api.NoHandle when disconnected.
func (c *Conn) Handle() api.Handle {
	if c.sock == nil {
		return api.NoHandle
	}
	return c.sock.Handle()
}

// Label returns the display name of the peer.
func (c *Conn) Label() string { return c.label }
