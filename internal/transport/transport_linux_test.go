//go:build linux

package transport_test

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/momentics/hioload-gate/api"
	"github.com/momentics/hioload-gate/internal/transport"
)

func loopback(t *testing.T) (*transport.Listener, int) {
	t.Helper()
	ln, err := transport.Listen("127.0.0.1", 0, 5)
	if err != nil {
		t.Fatalf("Listen: %v", err)
	}
	t.Cleanup(func() { ln.Close() })
	port, err := ln.Port()
	if err != nil || port == 0 {
		t.Fatalf("Port: %d %v", port, err)
	}
	return ln, port
}

func acceptWithin(t *testing.T, ln *transport.Listener, d time.Duration) api.Socket {
	t.Helper()
	deadline := time.Now().Add(d)
	for time.Now().Before(deadline) {
		s, err := ln.Accept()
		if err == nil {
			return s
		}
		if !errors.Is(err, api.ErrWouldBlock) {
			t.Fatalf("Accept: %v", err)
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("no connection accepted")
	return nil
}

func readWithin(t *testing.T, s api.Socket, want int, d time.Duration) []byte {
	t.Helper()
	var got []byte
	buf := make([]byte, 64)
	deadline := time.Now().Add(d)
	for len(got) < want && time.Now().Before(deadline) {
		n, err := s.Read(buf)
		if errors.Is(err, api.ErrWouldBlock) {
			time.Sleep(5 * time.Millisecond)
			continue
		}
		if err != nil {
			t.Fatalf("Read: %v", err)
		}
		got = append(got, buf[:n]...)
	}
	return got
}

func TestListenerAcceptWouldBlock(t *testing.T) {
	ln, _ := loopback(t)
	if _, err := ln.Accept(); !errors.Is(err, api.ErrWouldBlock) {
		t.Fatalf("expected ErrWouldBlock, got %v", err)
	}
}

func TestDialExchangeAndEOF(t *testing.T) {
	ln, port := loopback(t)
	d := &transport.Dialer{}
	ctx := context.Background()

	addr, err := d.Resolve(ctx, "127.0.0.1", port)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	client, err := d.Dial(ctx, addr)
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	defer client.Close()
	server := acceptWithin(t, ln, 2*time.Second)
	defer server.Close()

	name, err := server.PeerName()
	if err != nil || !strings.HasPrefix(name, "127.0.0.1:") {
		t.Fatalf("PeerName = %q, %v", name, err)
	}

	buf := make([]byte, 16)
	if _, err := server.Read(buf); !errors.Is(err, api.ErrWouldBlock) {
		t.Fatalf("expected ErrWouldBlock on empty socket, got %v", err)
	}

	if n, err := client.Write([]byte("hello")); err != nil || n != 5 {
		t.Fatalf("Write: %d %v", n, err)
	}
	if got := readWithin(t, server, 5, 2*time.Second); string(got) != "hello" {
		t.Fatalf("got %q", got)
	}

	client.Close()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		_, err := server.Read(buf)
		if errors.Is(err, api.ErrWouldBlock) {
			time.Sleep(5 * time.Millisecond)
			continue
		}
		if !errors.Is(err, io.EOF) {
			t.Fatalf("expected io.EOF, got %v", err)
		}
		return
	}
	t.Fatal("EOF not observed")
}

func TestDialRefused(t *testing.T) {
	ln, port := loopback(t)
	ln.Close()
	d := &transport.Dialer{}
	addr, err := d.Resolve(context.Background(), "127.0.0.1", port)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if _, err := d.Dial(context.Background(), addr); err == nil {
		t.Fatal("expected connect failure")
	}
}

func TestResolveRejectsBadPort(t *testing.T) {
	d := &transport.Dialer{}
	if _, err := d.Resolve(context.Background(), "127.0.0.1", 0); err == nil {
		t.Fatal("expected error for port 0")
	}
}

func TestListenRejectsNonIPv4(t *testing.T) {
	if _, err := transport.Listen("::1", 0, 5); err == nil {
		t.Fatal("expected error for IPv6 listen address")
	}
}
