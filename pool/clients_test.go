package pool_test

import (
	"testing"

	"github.com/momentics/hioload-gate/conn"
	"github.com/momentics/hioload-gate/fake"
	"github.com/momentics/hioload-gate/pool"
	"github.com/rs/zerolog"
)

func TestPoolFirstFitReuse(t *testing.T) {
	n := fake.NewNetwork()
	p := pool.New(3, 64, zerolog.Nop())

	for want := 0; want < 3; want++ {
		slot, c, ok := p.Allocate()
		if !ok || slot != want {
			t.Fatalf("Allocate = (%d, %v), want slot %d", slot, ok, want)
		}
		c.Open(n.NewSocket("peer"))
	}
	if _, _, ok := p.Allocate(); ok {
		t.Fatal("Allocate succeeded on a full pool")
	}

	p.Slot(1).Close()
	slot, c, ok := p.Allocate()
	if !ok || slot != 1 || c != p.Slot(1) {
		t.Errorf("Allocate after freeing slot 1 = %d, %v", slot, ok)
	}
}

func TestPoolForEachConnectedOrder(t *testing.T) {
	n := fake.NewNetwork()
	p := pool.New(5, 64, zerolog.Nop())
	for _, i := range []int{4, 0, 2} {
		p.Slot(i).Open(n.NewSocket("peer"))
	}
	var seen []int
	p.ForEachConnected(func(slot int, _ *conn.Conn) { seen = append(seen, slot) })
	if len(seen) != 3 || seen[0] != 0 || seen[1] != 2 || seen[2] != 4 {
		t.Errorf("visit order = %v, want [0 2 4]", seen)
	}
	if p.Connected() != 3 || p.Len() != 5 {
		t.Errorf("Connected=%d Len=%d", p.Connected(), p.Len())
	}
}

func TestPoolCloseAll(t *testing.T) {
	n := fake.NewNetwork()
	p := pool.New(4, 64, zerolog.Nop())
	var socks []*fake.Socket
	for i := 0; i < 4; i++ {
		s := n.NewSocket("peer")
		socks = append(socks, s)
		p.Slot(i).Open(s)
	}
	p.CloseAll()
	if p.Connected() != 0 {
		t.Errorf("Connected = %d after CloseAll", p.Connected())
	}
	for i, s := range socks {
		if !s.Closed() {
			t.Errorf("socket %d left open", i)
		}
	}
}
