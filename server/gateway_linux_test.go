//go:build linux

// File: server/gateway_linux_test.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package server_test

import (
	"bufio"
	"context"
	"io"
	"net"
	"strconv"
	"testing"
	"time"

	"github.com/momentics/hioload-gate/internal/transport"
	"github.com/momentics/hioload-gate/reactor"
	"github.com/momentics/hioload-gate/server"
)

// echoBackend answers every line with "ECHO " + line on one connection.
func echoBackend(t *testing.T) int {
	t.Helper()
	ln, err := net.Listen("tcp4", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("backend listen: %v", err)
	}
	t.Cleanup(func() { ln.Close() })
	go func() {
		c, err := ln.Accept()
		if err != nil {
			return
		}
		defer c.Close()
		r := bufio.NewReader(c)
		for {
			line, err := r.ReadString('\n')
			if err != nil {
				return
			}
			if _, err := io.WriteString(c, "ECHO "+line); err != nil {
				return
			}
		}
	}()
	return ln.Addr().(*net.TCPAddr).Port
}

func TestGatewayOverLoopback(t *testing.T) {
	backendPort := echoBackend(t)

	ln, err := transport.Listen("127.0.0.1", 0, 5)
	if err != nil {
		t.Fatalf("Listen: %v", err)
	}
	defer ln.Close()
	port, err := ln.Port()
	if err != nil {
		t.Fatalf("Port: %v", err)
	}
	poller, err := reactor.New()
	if err != nil {
		t.Fatalf("reactor.New: %v", err)
	}
	defer poller.Close()

	cfg := server.DefaultConfig()
	cfg.BackendHost = "127.0.0.1"
	cfg.BackendPort = backendPort
	cfg.CommandDelay = 5 * time.Millisecond
	gw, err := server.New(cfg, ln, poller, &transport.Dialer{})
	if err != nil {
		t.Fatalf("server.New: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- gw.Run(ctx) }()

	client, err := net.DialTimeout("tcp4", net.JoinHostPort("127.0.0.1", strconv.Itoa(port)), 2*time.Second)
	if err != nil {
		cancel()
		t.Fatalf("dial gateway: %v", err)
	}
	defer client.Close()
	client.SetDeadline(time.Now().Add(5 * time.Second))

	r := bufio.NewReader(client)
	for _, cmd := range []string{"PING\n", "STATUS\n"} {
		if _, err := io.WriteString(client, cmd); err != nil {
			t.Fatalf("write: %v", err)
		}
		got, err := r.ReadString('\n')
		if err != nil {
			t.Fatalf("read reply to %q: %v", cmd, err)
		}
		if got != "ECHO "+cmd {
			t.Fatalf("reply = %q, want %q", got, "ECHO "+cmd)
		}
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not stop after cancel")
	}

	// Shutdown closes client connections.
	if _, err := r.ReadByte(); err == nil {
		t.Fatal("expected the gateway to close the client")
	}
}
