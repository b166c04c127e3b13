// File: pool/clients.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package pool

import (
	"strconv"

	"github.com/momentics/hioload-gate/conn"
	"github.com/rs/zerolog"
)

// DefaultSize is the number of client slots.
const DefaultSize = 70

// Pool is a fixed-size, ordered table of client connections with first-fit
// reuse. Slot order decides ties: lower indexes win.
type Pool struct {
	slots []*conn.Conn
}

// New creates size cleared slots, each with an outbound queue of capacity bytes.
func New(size, capacity int, log zerolog.Logger) *Pool {
	p := &Pool{slots: make([]*conn.Conn, size)}
	for i := range p.slots {
		p.slots[i] = conn.New(capacity, log.With().Str("slot", strconv.Itoa(i)).Logger())
	}
	return p
}

// Allocate returns the lowest disconnected slot. ok is false when every slot
// is connected; the caller then rejects the incoming socket.
func (p *Pool) Allocate() (slot int, c *conn.Conn, ok bool) {
	for i, c := range p.slots {
		if !c.Connected() {
			return i, c, true
		}
	}
	return -1, nil, false
}

// ForEachConnected calls fn for every connected slot in index order. fn may
// close the slot it is given.
func (p *Pool) ForEachConnected(fn func(slot int, c *conn.Conn)) {
	for i, c := range p.slots {
		if c.Connected() {
			fn(i, c)
		}
	}
}

// Slot returns the connection at index i.
func (p *Pool) Slot(i int) *conn.Conn { return p.slots[i] }

// Len returns the fixed number of slots.
func (p *Pool) Len() int { return len(p.slots) }

// Connected counts connected slots.
func (p *Pool) Connected() int {
	n := 0
	for _, c := range p.slots {
		if c.Connected() {
			n++
		}
	}
	return n
}

// CloseAll closes every connected slot.
func (p *Pool) CloseAll() {
	p.ForEachConnected(func(_ int, c *conn.Conn) { c.Close() })
}
