// Package fake
// Author: momentics <momentics@gmail.com>
//
// In-memory doubles for the gateway's sockets, listener, dialer, poller and
// clock. Readiness is level-triggered and derived from buffered state, so the
// event loop can be driven deterministically one Step at a time.

package fake

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/netip"
	"time"

	"github.com/momentics/hioload-gate/api"
)

// ErrRefused is returned by Dialer.Dial for scripted failures.
var ErrRefused = errors.New("fake: connection refused")

type readiness interface {
	readable() bool
	writable() bool
}

// Network allocates handles and resolves them back to doubles for Poller.
type Network struct {
	next    api.Handle
	sources map[api.Handle]readiness
}

// NewNetwork returns an empty network. Handles start at 3.
func NewNetwork() *Network {
	return &Network{next: 3, sources: make(map[api.Handle]readiness)}
}

func (n *Network) alloc(src readiness) api.Handle {
	h := n.next
	n.next++
	n.sources[h] = src
	return h
}

// NewSocket creates a connected socket whose peer name is peer.
func (n *Network) NewSocket(peer string) *Socket {
	s := &Socket{Peer: peer}
	s.handle = n.alloc(s)
	return s
}

// NewListener creates a listening socket with an empty accept queue.
func (n *Network) NewListener() *Listener {
	l := &Listener{}
	l.handle = n.alloc(l)
	return l
}

// Socket is an in-memory api.Socket.
type Socket struct {
	handle api.Handle

	Peer    string
	PeerErr error

	// WriteLimit caps the bytes accepted per Write; zero means unlimited.
	WriteLimit int
	// Blocked makes the socket unwritable; Write returns api.ErrWouldBlock.
	Blocked  bool
	WriteErr error
	ReadErr  error

	in     []byte
	eof    bool
	out    bytes.Buffer
	closed bool
}

// Feed queues bytes sent by the peer.
func (s *Socket) Feed(p []byte) { s.in = append(s.in, p...) }

// Hangup simulates an orderly shutdown by the peer once buffered data is read.
func (s *Socket) Hangup() { s.eof = true }

// Written returns everything written by the gateway so far.
func (s *Socket) Written() []byte { return s.out.Bytes() }

// TakeWritten returns and forgets everything written so far.
func (s *Socket) TakeWritten() []byte {
	p := append([]byte(nil), s.out.Bytes()...)
	s.out.Reset()
	return p
}

// Pending returns the number of unread peer bytes.
func (s *Socket) Pending() int { return len(s.in) }

// Closed reports whether Close was called.
func (s *Socket) Closed() bool { return s.closed }

func (s *Socket) Handle() api.Handle { return s.handle }

func (s *Socket) Read(p []byte) (int, error) {
	if s.closed {
		return 0, api.ErrClosed
	}
	if s.ReadErr != nil {
		return 0, s.ReadErr
	}
	if len(s.in) == 0 {
		if s.eof {
			return 0, io.EOF
		}
		return 0, api.ErrWouldBlock
	}
	n := copy(p, s.in)
	s.in = s.in[n:]
	return n, nil
}

func (s *Socket) Write(p []byte) (int, error) {
	if s.closed {
		return 0, api.ErrClosed
	}
	if s.WriteErr != nil {
		return 0, s.WriteErr
	}
	if s.Blocked {
		return 0, api.ErrWouldBlock
	}
	if s.WriteLimit > 0 && len(p) > s.WriteLimit {
		p = p[:s.WriteLimit]
	}
	return s.out.Write(p)
}

func (s *Socket) Close() error {
	if s.closed {
		return api.ErrClosed
	}
	s.closed = true
	return nil
}

func (s *Socket) PeerName() (string, error) {
	if s.PeerErr != nil {
		return "", s.PeerErr
	}
	return s.Peer, nil
}

func (s *Socket) readable() bool {
	return !s.closed && (len(s.in) > 0 || s.eof || s.ReadErr != nil)
}

func (s *Socket) writable() bool {
	return !s.closed && !s.Blocked
}

// Listener is an in-memory api.Listener.
type Listener struct {
	handle  api.Handle
	pending []*Socket
	closed  bool
}

// Push queues a socket for the next Accept.
func (l *Listener) Push(s *Socket) { l.pending = append(l.pending, s) }

// Backlog returns the number of sockets waiting to be accepted.
func (l *Listener) Backlog() int { return len(l.pending) }

func (l *Listener) Handle() api.Handle { return l.handle }

func (l *Listener) Accept() (api.Socket, error) {
	if l.closed {
		return nil, api.ErrClosed
	}
	if len(l.pending) == 0 {
		return nil, api.ErrWouldBlock
	}
	s := l.pending[0]
	l.pending = l.pending[1:]
	return s, nil
}

func (l *Listener) Close() error {
	l.closed = true
	return nil
}

func (l *Listener) readable() bool { return !l.closed && len(l.pending) > 0 }
func (l *Listener) writable() bool { return false }

// Dialer is an in-memory api.Dialer producing fresh backend sockets.
type Dialer struct {
	net *Network

	ResolveErr error
	// Failures is the number of upcoming Dial attempts that fail.
	Failures int
	// OnDial runs at the start of every Dial attempt.
	OnDial func()

	Attempts int
	Sockets  []*Socket
}

// NewDialer returns a dialer allocating sockets from n.
func NewDialer(n *Network) *Dialer {
	return &Dialer{net: n}
}

// Last returns the most recently dialed socket, or nil.
func (d *Dialer) Last() *Socket {
	if len(d.Sockets) == 0 {
		return nil
	}
	return d.Sockets[len(d.Sockets)-1]
}

func (d *Dialer) Resolve(_ context.Context, host string, port int) (netip.AddrPort, error) {
	if d.ResolveErr != nil {
		return netip.AddrPort{}, d.ResolveErr
	}
	return netip.AddrPortFrom(netip.AddrFrom4([4]byte{127, 0, 0, 1}), uint16(port)), nil
}

func (d *Dialer) Dial(_ context.Context, addr netip.AddrPort) (api.Socket, error) {
	d.Attempts++
	if d.OnDial != nil {
		d.OnDial()
	}
	if d.Failures > 0 {
		d.Failures--
		return nil, ErrRefused
	}
	s := d.net.NewSocket(addr.String())
	d.Sockets = append(d.Sockets, s)
	return s, nil
}

// Clock is a manual api.Clock. Sleep advances time instantly.
type Clock struct {
	now    time.Time
	Sleeps []time.Duration
}

// NewClock returns a clock set to an arbitrary fixed instant.
func NewClock() *Clock {
	return &Clock{now: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func (c *Clock) Now() time.Time { return c.now }

func (c *Clock) Sleep(d time.Duration) {
	c.Sleeps = append(c.Sleeps, d)
	c.Advance(d)
}

// Advance moves time forward without recording a sleep.
func (c *Clock) Advance(d time.Duration) {
	if d > 0 {
		c.now = c.now.Add(d)
	}
}
