package conn_test

import (
	"bytes"
	"errors"
	"testing"

	"github.com/momentics/hioload-gate/api"
	"github.com/momentics/hioload-gate/conn"
	"github.com/momentics/hioload-gate/fake"
	"github.com/rs/zerolog"
)

func newOpen(t *testing.T, capacity int) (*conn.Conn, *fake.Socket) {
	t.Helper()
	n := fake.NewNetwork()
	s := n.NewSocket("10.0.0.7:40000")
	c := conn.New(capacity, zerolog.Nop())
	c.Open(s)
	return c, s
}

func TestConnClearedState(t *testing.T) {
	c := conn.New(conn.DefaultCapacity, zerolog.Nop())
	if c.Connected() {
		t.Error("new connection reports connected")
	}
	if c.Handle() != api.NoHandle {
		t.Errorf("Handle = %d, want NoHandle", c.Handle())
	}
	if c.Label() != "<cleared>" {
		t.Errorf("Label = %q, want <cleared>", c.Label())
	}
	if c.Enqueue([]byte("x")) {
		t.Error("Enqueue on a cleared connection succeeded")
	}
}

func TestConnOpenResolvesLabel(t *testing.T) {
	c, s := newOpen(t, 16)
	if !c.Connected() || c.Handle() != s.Handle() {
		t.Fatal("Open did not attach the socket")
	}
	if c.Label() != "10.0.0.7:40000" {
		t.Errorf("Label = %q", c.Label())
	}

	n := fake.NewNetwork()
	anon := n.NewSocket("")
	anon.PeerErr = errors.New("ENOTCONN")
	c2 := conn.New(16, zerolog.Nop())
	c2.Open(anon)
	if c2.Label() != "Unknown" {
		t.Errorf("Label on peer lookup failure = %q, want Unknown", c2.Label())
	}
}

func TestConnOverflowClosesWithoutPartialEnqueue(t *testing.T) {
	c, s := newOpen(t, 8)
	var reasons []conn.CloseReason
	c.OnClose(func(_ *conn.Conn, r conn.CloseReason) { reasons = append(reasons, r) })

	if !c.Enqueue([]byte("12345")) {
		t.Fatal("first enqueue rejected")
	}
	if c.Enqueue([]byte("6789")) {
		t.Fatal("overflowing enqueue accepted")
	}
	if c.Connected() || !s.Closed() {
		t.Fatal("overflow did not close the connection")
	}
	if c.HasQueuedData() {
		t.Error("queue not zeroed on close")
	}
	if len(s.Written()) != 0 {
		t.Errorf("bytes leaked to socket: %q", s.Written())
	}
	if len(reasons) != 1 || reasons[0] != conn.ReasonOverflow {
		t.Errorf("close reasons = %v, want [overflow]", reasons)
	}
}

func TestConnFlushPartialWritesKeepOrder(t *testing.T) {
	c, s := newOpen(t, 64)
	s.WriteLimit = 3
	var want bytes.Buffer
	for _, chunk := range []string{"alpha", "-", "bravo", "-charlie"} {
		c.Enqueue([]byte(chunk))
		want.WriteString(chunk)
	}
	for i := 0; c.HasQueuedData(); i++ {
		if i > 100 {
			t.Fatal("flush made no progress")
		}
		s.Blocked = i%2 == 1 // alternate would-block and short writes
		c.Flush()
	}
	if !bytes.Equal(s.Written(), want.Bytes()) {
		t.Errorf("wire = %q, want %q", s.Written(), want.Bytes())
	}
	if !c.Connected() {
		t.Error("short writes closed the connection")
	}
}

func TestConnFlushErrorCloses(t *testing.T) {
	c, s := newOpen(t, 16)
	c.Enqueue([]byte("data"))
	s.WriteErr = errors.New("EPIPE")
	c.Flush()
	if c.Connected() || !s.Closed() {
		t.Error("hard send error did not close the connection")
	}
}

func TestConnReceive(t *testing.T) {
	c, s := newOpen(t, 16)
	buf := make([]byte, 4)

	if got := c.Receive(buf); got != nil {
		t.Errorf("Receive with nothing pending = %q, want nil", got)
	}
	if !c.Connected() {
		t.Fatal("would-block closed the connection")
	}

	s.Feed([]byte("PING\n"))
	if got := c.Receive(buf); string(got) != "PING" {
		t.Errorf("Receive = %q, want PING (bounded by buffer)", got)
	}
	if got := c.Receive(buf); string(got) != "\n" {
		t.Errorf("Receive = %q, want newline", got)
	}

	s.Hangup()
	var reason conn.CloseReason = -1
	c.OnClose(func(_ *conn.Conn, r conn.CloseReason) { reason = r })
	if got := c.Receive(buf); got != nil {
		t.Errorf("Receive at EOF = %q, want nil", got)
	}
	if c.Connected() || reason != conn.ReasonEOF {
		t.Errorf("EOF: connected=%v reason=%v", c.Connected(), reason)
	}
}

func TestConnReceiveErrorCloses(t *testing.T) {
	c, s := newOpen(t, 16)
	s.ReadErr = errors.New("ECONNRESET")
	if c.Receive(make([]byte, 8)) != nil {
		t.Error("Receive returned data on error")
	}
	if c.Connected() {
		t.Error("recv error did not close the connection")
	}
}

func TestConnReuseAfterClose(t *testing.T) {
	c, _ := newOpen(t, 16)
	c.Enqueue([]byte("stale"))
	c.Close()
	if c.Label() != "<cleared>" || c.HasQueuedData() {
		t.Fatal("close did not clear the slot")
	}
	n := fake.NewNetwork()
	s2 := n.NewSocket("10.0.0.8:1")
	c.Open(s2)
	c.Enqueue([]byte("fresh"))
	c.Flush()
	if string(s2.Written()) != "fresh" {
		t.Errorf("reused slot wrote %q", s2.Written())
	}
}
