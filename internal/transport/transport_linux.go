//go:build linux
// +build linux

// File: internal/transport/transport_linux.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Linux sockets via golang.org/x/sys/unix.

package transport

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/netip"
	"strconv"

	"github.com/momentics/hioload-gate/api"
	"golang.org/x/sys/unix"
)

// Socket is a connected non-blocking TCP descriptor.
type Socket struct {
	fd int
}

func newSocket(fd int) *Socket {
	_ = unix.SetsockoptInt(fd, unix.IPPROTO_TCP, unix.TCP_NODELAY, 1)
	return &Socket{fd: fd}
}

func (s *Socket) Handle() api.Handle { return api.Handle(s.fd) }

// Read returns io.EOF on orderly shutdown and api.ErrWouldBlock when the
// receive buffer is empty.
func (s *Socket) Read(p []byte) (int, error) {
	if s.fd < 0 {
		return 0, api.ErrClosed
	}
	for {
		n, err := unix.Read(s.fd, p)
		switch {
		case err == unix.EINTR:
			continue
		case err == unix.EAGAIN:
			return 0, api.ErrWouldBlock
		case err != nil:
			return 0, fmt.Errorf("recv: %w", err)
		case n == 0 && len(p) > 0:
			return 0, io.EOF
		}
		return n, nil
	}
}

// Write sends without raising SIGPIPE and may write fewer bytes than len(p).
func (s *Socket) Write(p []byte) (int, error) {
	if s.fd < 0 {
		return 0, api.ErrClosed
	}
	for {
		n, err := unix.SendmsgN(s.fd, p, nil, nil, unix.MSG_NOSIGNAL)
		switch {
		case err == unix.EINTR:
			continue
		case err == unix.EAGAIN:
			return 0, api.ErrWouldBlock
		case err != nil:
			return 0, fmt.Errorf("send: %w", err)
		}
		return n, nil
	}
}

func (s *Socket) Close() error {
	if s.fd < 0 {
		return api.ErrClosed
	}
	fd := s.fd
	s.fd = -1
	return unix.Close(fd)
}

// PeerName returns "ip:port" of the remote end.
func (s *Socket) PeerName() (string, error) {
	sa, err := unix.Getpeername(s.fd)
	if err != nil {
		return "", err
	}
	return sockaddrString(sa)
}

func sockaddrString(sa unix.Sockaddr) (string, error) {
	switch a := sa.(type) {
	case *unix.SockaddrInet4:
		return netip.AddrPortFrom(netip.AddrFrom4(a.Addr), uint16(a.Port)).String(), nil
	case *unix.SockaddrInet6:
		return netip.AddrPortFrom(netip.AddrFrom16(a.Addr), uint16(a.Port)).String(), nil
	default:
		return "", fmt.Errorf("unsupported address family %T", sa)
	}
}

// Listener is a non-blocking IPv4 listening socket.
type Listener struct {
	fd int
}

// Listen binds host:port with SO_REUSEADDR and starts listening.
// Port 0 picks an ephemeral port; see Port.
func Listen(host string, port, backlog int) (*Listener, error) {
	addr := [4]byte{}
	if host != "" {
		ip, err := netip.ParseAddr(host)
		if err != nil || !ip.Is4() {
			return nil, fmt.Errorf("listen address %q: not an IPv4 address", host)
		}
		addr = ip.As4()
	}
	fd, err := unix.Socket(unix.AF_INET, unix.SOCK_STREAM|unix.SOCK_NONBLOCK|unix.SOCK_CLOEXEC, unix.IPPROTO_TCP)
	if err != nil {
		return nil, fmt.Errorf("socket create: %w", err)
	}
	if err := unix.SetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_REUSEADDR, 1); err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("setsockopt SO_REUSEADDR: %w", err)
	}
	if err := unix.Bind(fd, &unix.SockaddrInet4{Port: port, Addr: addr}); err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("bind %s: %w", net.JoinHostPort(host, strconv.Itoa(port)), err)
	}
	if err := unix.Listen(fd, backlog); err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("listen: %w", err)
	}
	return &Listener{fd: fd}, nil
}

func (l *Listener) Handle() api.Handle { return api.Handle(l.fd) }

// Accept returns the next pending connection as a non-blocking Socket.
func (l *Listener) Accept() (api.Socket, error) {
	for {
		nfd, _, err := unix.Accept4(l.fd, unix.SOCK_NONBLOCK|unix.SOCK_CLOEXEC)
		switch {
		case err == unix.EINTR:
			continue
		case err == unix.EAGAIN || err == unix.ECONNABORTED:
			return nil, api.ErrWouldBlock
		case err != nil:
			return nil, fmt.Errorf("accept: %w", err)
		}
		return newSocket(nfd), nil
	}
}

// Port returns the bound local port.
func (l *Listener) Port() (int, error) {
	sa, err := unix.Getsockname(l.fd)
	if err != nil {
		return 0, err
	}
	if a, ok := sa.(*unix.SockaddrInet4); ok {
		return a.Port, nil
	}
	return 0, fmt.Errorf("unexpected listener address %T", sa)
}

func (l *Listener) Close() error {
	if l.fd < 0 {
		return api.ErrClosed
	}
	fd := l.fd
	l.fd = -1
	return unix.Close(fd)
}

// Dialer opens blocking connects to IPv4 endpoints and hands back
// non-blocking sockets.
type Dialer struct {
	Resolver *net.Resolver
}

// Resolve looks up the first IPv4 address of host.
func (d *Dialer) Resolve(ctx context.Context, host string, port int) (netip.AddrPort, error) {
	if port < 1 || port > 65535 {
		return netip.AddrPort{}, fmt.Errorf("port %d out of range", port)
	}
	r := d.Resolver
	if r == nil {
		r = net.DefaultResolver
	}
	ips, err := r.LookupNetIP(ctx, "ip4", host)
	if err != nil {
		return netip.AddrPort{}, err
	}
	if len(ips) == 0 {
		return netip.AddrPort{}, fmt.Errorf("no IPv4 address for %s", host)
	}
	return netip.AddrPortFrom(ips[0].Unmap(), uint16(port)), nil
}

// Dial makes one connect attempt on a fresh socket. The connect blocks; the
// returned socket is switched to non-blocking mode.
func (d *Dialer) Dial(_ context.Context, addr netip.AddrPort) (api.Socket, error) {
	if !addr.Addr().Is4() {
		return nil, fmt.Errorf("dial %s: not an IPv4 endpoint", addr)
	}
	fd, err := unix.Socket(unix.AF_INET, unix.SOCK_STREAM|unix.SOCK_CLOEXEC, unix.IPPROTO_TCP)
	if err != nil {
		return nil, fmt.Errorf("socket create: %w", err)
	}
	sa := &unix.SockaddrInet4{Port: int(addr.Port()), Addr: addr.Addr().As4()}
	for {
		err = unix.Connect(fd, sa)
		if err != unix.EINTR {
			break
		}
	}
	if err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("connect %s: %w", addr, err)
	}
	if err := unix.SetNonblock(fd, true); err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("set nonblock: %w", err)
	}
	return newSocket(fd), nil
}

// Ensure compile-time compliance.
var (
	_ api.Socket   = (*Socket)(nil)
	_ api.Listener = (*Listener)(nil)
	_ api.Dialer   = (*Dialer)(nil)
)
