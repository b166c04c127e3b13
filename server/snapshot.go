// File: server/snapshot.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package server

import (
	"github.com/momentics/hioload-gate/conn"
)

// ClientState describes one connected slot.
type ClientState struct {
	Slot   int    `json:"slot"`
	Peer   string `json:"peer"`
	Queued int    `json:"queued"`
}

// Snapshot is a copy of the loop state taken at the end of an iteration.
type Snapshot struct {
	Backend          string        `json:"backend"`
	BackendConnected bool          `json:"backend_connected"`
	BackendQueued    int           `json:"backend_queued"`
	ActiveSlot       int           `json:"active_slot"` // -1 when idle
	Deferred         []int         `json:"deferred"`
	Clients          []ClientState `json:"clients"`
}

// Snapshot copies the current state. Call it from the loop goroutine; other
// goroutines read the copy published through the debug probe.
func (g *Gateway) Snapshot() *Snapshot {
	b := g.link.Conn()
	s := &Snapshot{
		Backend:          b.Label(),
		BackendConnected: b.Connected(),
		BackendQueued:    b.Queued(),
		ActiveSlot:       -1,
		Deferred:         []int{},
		Clients:          []ClientState{},
	}
	if slot, ok := g.arb.Active(); ok {
		s.ActiveSlot = slot
	}
	for slot := range g.clients.Len() {
		if g.arb.IsDeferred(slot) {
			s.Deferred = append(s.Deferred, slot)
		}
	}
	g.clients.ForEachConnected(func(slot int, c *conn.Conn) {
		s.Clients = append(s.Clients, ClientState{Slot: slot, Peer: c.Label(), Queued: c.Queued()})
	})
	return s
}

func (g *Gateway) publish() {
	if g.probes == nil {
		return
	}
	g.snapshot.Store(g.Snapshot())
}
