// File: server/gateway.go
// Package server implements the gateway event loop: one goroutine, one
// level-triggered readiness wait per iteration, one backend conversation.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package server

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/momentics/hioload-gate/api"
	"github.com/momentics/hioload-gate/conn"
	"github.com/momentics/hioload-gate/control"
	"github.com/momentics/hioload-gate/internal/arbiter"
	"github.com/momentics/hioload-gate/internal/backend"
	"github.com/momentics/hioload-gate/pool"
	"github.com/rs/zerolog"
)

// New builds a gateway serving clients accepted on listener and forwarding
// to the backend reached through dialer. The backend is not contacted until
// the first Step.
func New(cfg *Config, listener api.Listener, poller api.Poller, dialer api.Dialer, opts ...Option) (*Gateway, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if listener == nil || poller == nil || dialer == nil {
		return nil, errors.New("server: listener, poller and dialer are required")
	}
	if cfg.MaxClients <= 0 || cfg.BufferSize <= 0 || cfg.ReadSize <= 0 {
		return nil, fmt.Errorf("server: invalid sizing (clients=%d buffer=%d read=%d)",
			cfg.MaxClients, cfg.BufferSize, cfg.ReadSize)
	}

	g := &Gateway{
		cfg:      cfg,
		listener: listener,
		poller:   poller,
		clock:    api.SystemClock{},
		log:      zerolog.Nop(),
		interest: api.NewEventSet(),
		ready:    api.NewEventSet(),
		buf:      make([]byte, cfg.ReadSize),
	}
	for _, o := range opts {
		o(g)
	}
	if g.metrics == nil {
		g.metrics = control.NewMetrics()
	}

	g.clients = pool.New(cfg.MaxClients, cfg.BufferSize, g.log.With().Str("component", "client").Logger())
	g.link = backend.New(backend.Config{
		Host:     cfg.BackendHost,
		Port:     cfg.BackendPort,
		Capacity: cfg.BufferSize,
		RetryMin: cfg.ReconnectDelay,
		RetryMax: cfg.ReconnectMaxDelay,
	}, dialer, g.clock, g.log.With().Str("component", "backend").Logger())
	g.arb = arbiter.New(cfg.MaxClients, g.clock.Now())
	g.log = g.log.With().Str("component", "gateway").Logger()

	for slot := range g.clients.Len() {
		g.clients.Slot(slot).OnClose(func(_ *conn.Conn, reason conn.CloseReason) {
			g.arb.Forget(slot, g.clock.Now())
			g.metrics.ClientsConnected.Dec()
			g.metrics.ClientsClosed.WithLabelValues(reason.String()).Inc()
		})
	}
	g.link.Conn().OnClose(func(c *conn.Conn, reason conn.CloseReason) {
		g.metrics.BackendConnected.Set(0)
		if reason != conn.ReasonLocal {
			g.log.Warn().Stringer("reason", reason).Msg("backend connection lost")
		}
	})
	g.link.OnConnect(func() {
		g.metrics.BackendReconnects.Inc()
		g.metrics.BackendConnected.Set(1)
	})
	if g.probes != nil {
		g.publish()
		g.probes.RegisterProbe("gateway", func() any { return g.snapshot.Load() })
	}
	return g, nil
}

// Run repeats Step until ctx is cancelled or the readiness wait fails.
// Cancellation wakes a blocked wait. On return every connection is closed;
// the listener and poller stay owned by the caller.
func (g *Gateway) Run(ctx context.Context) error {
	stop := context.AfterFunc(ctx, func() {
		if err := g.poller.Wake(); err != nil {
			g.log.Debug().Err(err).Msg("wake failed")
		}
	})
	defer stop()
	defer g.closeAll()

	g.log.Info().
		Str("backend", g.cfg.BackendHost).
		Int("backend_port", g.cfg.BackendPort).
		Int("max_clients", g.cfg.MaxClients).
		Msg("gateway started")
	for ctx.Err() == nil {
		if err := g.Step(ctx); err != nil {
			if ctx.Err() != nil {
				break
			}
			return err
		}
	}
	g.log.Info().Msg("gateway stopped")
	return nil
}

// Step runs one loop iteration.
func (g *Gateway) Step(ctx context.Context) error {
	if !g.link.Connected() {
		if err := g.link.Reconnect(ctx, g.clients); err != nil {
			return err
		}
	}
	if err := g.pace(ctx); err != nil {
		return err
	}
	g.promote()
	g.buildInterest()

	timeout := time.Duration(-1)
	if !g.arb.Idle() {
		timeout = g.arb.TurnRemaining(g.clock.Now(), g.cfg.TurnTimeout)
	}
	if err := g.poller.Wait(g.interest, g.ready, timeout); err != nil {
		g.log.Error().Err(err).Msg("readiness wait failed")
		return fmt.Errorf("wait: %w", err)
	}

	g.checkTurn()
	g.accept()
	g.readBackend()
	g.readClients()
	g.flush()

	g.updateGauges()
	g.publish()
	return nil
}

// pace blocks until CommandDelay has passed since the last release.
func (g *Gateway) pace(ctx context.Context) error {
	d := g.arb.PacingDelay(g.clock.Now(), g.cfg.CommandDelay)
	if d <= 0 {
		return nil
	}
	g.metrics.PacingWaits.Inc()
	g.log.Debug().Dur("delay", d).Msg("pacing")
	return api.Sleep(ctx, g.clock, d)
}

// promote serves the lowest deferred client's pending read before any other
// client can take the turn.
func (g *Gateway) promote() {
	if !g.arb.Idle() {
		return
	}
	slot, ok := g.arb.NextDeferred()
	if !ok {
		return
	}
	c := g.clients.Slot(slot)
	if !c.Connected() {
		return
	}
	g.metrics.DeferredPromoted.Inc()
	g.log.Debug().Int("slot", slot).Str("peer", c.Label()).Msg("serving deferred client")
	g.forward(slot, c)
}

func (g *Gateway) buildInterest() {
	g.interest.Reset()
	g.interest.Add(g.listener.Handle(), api.EventRead)

	b := g.link.Conn()
	if b.Connected() {
		g.interest.Add(b.Handle(), api.EventRead)
	}
	if slot, ok := g.arb.Active(); ok {
		g.interest.Add(g.clients.Slot(slot).Handle(), api.EventRead)
	} else {
		g.clients.ForEachConnected(func(_ int, c *conn.Conn) {
			g.interest.Add(c.Handle(), api.EventRead)
		})
	}

	if b.HasQueuedData() {
		g.interest.Add(b.Handle(), api.EventWrite)
	}
	g.clients.ForEachConnected(func(_ int, c *conn.Conn) {
		if c.HasQueuedData() {
			g.interest.Add(c.Handle(), api.EventWrite)
		}
	})
}

// checkTurn refreshes the active turn on relevant readiness and releases it
// once the accept socket, the backend and the active client have all been
// silent for TurnTimeout.
func (g *Gateway) checkTurn() {
	slot, ok := g.arb.Active()
	if !ok {
		return
	}
	now := g.clock.Now()
	if g.ready.Get(g.listener.Handle()) != 0 ||
		g.ready.Get(g.link.Conn().Handle()) != 0 ||
		g.ready.Get(g.clients.Slot(slot).Handle()) != 0 {
		g.arb.Touch(now)
		return
	}
	if g.arb.TurnExpired(now, g.cfg.TurnTimeout) {
		g.log.Warn().
			Int("slot", slot).
			Str("peer", g.clients.Slot(slot).Label()).
			Dur("timeout", g.cfg.TurnTimeout).
			Msg("turn timed out")
		g.arb.Release(now)
		g.metrics.TurnTimeouts.Inc()
	}
}

// accept admits at most one pending connection per iteration.
func (g *Gateway) accept() {
	if !g.ready.Has(g.listener.Handle(), api.EventRead) {
		return
	}
	sock, err := g.listener.Accept()
	if err != nil {
		if !errors.Is(err, api.ErrWouldBlock) {
			g.log.Error().Err(err).Msg("accept failed")
		}
		return
	}
	slot, c, ok := g.clients.Allocate()
	if !ok {
		peer, _ := sock.PeerName()
		g.log.Warn().Str("peer", peer).Err(api.ErrPoolFull).Msg("server full, rejecting client")
		if err := sock.Close(); err != nil {
			g.log.Debug().Err(err).Msg("close rejected socket")
		}
		g.metrics.ClientsRejected.Inc()
		return
	}
	c.Open(sock)
	g.metrics.ClientsAccepted.Inc()
	g.metrics.ClientsConnected.Inc()
	g.log.Debug().Int("slot", slot).Str("peer", c.Label()).Msg("client admitted")
}

// readBackend treats any backend data as the reply to the outstanding
// command: the turn ends and the bytes go to every connected client.
func (g *Gateway) readBackend() {
	b := g.link.Conn()
	if !g.ready.Has(b.Handle(), api.EventRead) {
		return
	}
	data := b.Receive(g.buf)
	if data == nil {
		return
	}
	g.arb.Release(g.clock.Now())
	g.clients.ForEachConnected(func(_ int, c *conn.Conn) {
		if c.Enqueue(data) {
			g.metrics.BytesForwarded.WithLabelValues(control.DirDownstream).Add(float64(len(data)))
		}
	})
}

func (g *Gateway) readClients() {
	g.clients.ForEachConnected(func(slot int, c *conn.Conn) {
		if !g.ready.Has(c.Handle(), api.EventRead) {
			return
		}
		if g.arb.Idle() || g.arb.IsActive(slot) {
			g.forward(slot, c)
			return
		}
		if !g.arb.IsDeferred(slot) {
			g.log.Debug().Int("slot", slot).Str("peer", c.Label()).Msg("client deferred")
		}
		g.arb.Defer(slot)
	})
}

// forward reads from a client, hands it the turn and queues the bytes for
// the backend.
func (g *Gateway) forward(slot int, c *conn.Conn) {
	data := c.Receive(g.buf)
	if data == nil {
		return
	}
	g.arb.Acquire(slot, g.clock.Now())
	if g.link.Conn().Enqueue(data) {
		g.metrics.BytesForwarded.WithLabelValues(control.DirUpstream).Add(float64(len(data)))
	}
}

func (g *Gateway) flush() {
	flushOne := func(c *conn.Conn) {
		if c.HasQueuedData() && g.ready.Has(c.Handle(), api.EventWrite) {
			c.Flush()
		}
	}
	flushOne(g.link.Conn())
	g.clients.ForEachConnected(func(_ int, c *conn.Conn) { flushOne(c) })
}

func (g *Gateway) updateGauges() {
	if g.arb.Idle() {
		g.metrics.TurnActive.Set(0)
	} else {
		g.metrics.TurnActive.Set(1)
	}
	g.metrics.DeferredClients.Set(float64(g.arb.Deferred()))
}

func (g *Gateway) closeAll() {
	g.clients.CloseAll()
	g.link.Conn().Close()
	g.arb.Reset(g.clock.Now())
	g.updateGauges()
	g.publish()
}

// Active returns the slot holding the turn.
func (g *Gateway) Active() (slot int, ok bool) { return g.arb.Active() }

// IsDeferred reports whether slot is waiting for a turn.
func (g *Gateway) IsDeferred(slot int) bool { return g.arb.IsDeferred(slot) }

// Clients exposes the client pool.
func (g *Gateway) Clients() *pool.Pool { return g.clients }

// Backend exposes the backend link.
func (g *Gateway) Backend() *backend.Link { return g.link }

// Metrics returns the collectors updated by the loop.
func (g *Gateway) Metrics() *control.Metrics { return g.metrics }
