// File: internal/backend/link.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Package backend owns the single connection to the upstream service and the
// blocking connect/reconnect procedure.

package backend

import (
	"context"
	"fmt"
	"time"

	"github.com/jpillora/backoff"
	"github.com/momentics/hioload-gate/api"
	"github.com/momentics/hioload-gate/conn"
	"github.com/momentics/hioload-gate/pool"
	"github.com/rs/zerolog"
)

// DefaultRetryDelay separates failed connect attempts.
const DefaultRetryDelay = 5 * time.Second

// Config describes the backend endpoint and retry policy.
type Config struct {
	Host     string
	Port     int
	Capacity int // outbound queue size
	// RetryMin and RetryMax bound the delay between attempts. Equal values
	// give a fixed interval.
	RetryMin time.Duration
	RetryMax time.Duration
}

// Link is the single backend connection. It is not part of the client pool.
type Link struct {
	cfg    Config
	conn   *conn.Conn
	dialer api.Dialer
	clock  api.Clock
	retry  *backoff.Backoff
	log    zerolog.Logger

	onConnect func()
}

// New returns a disconnected link.
func New(cfg Config, dialer api.Dialer, clock api.Clock, log zerolog.Logger) *Link {
	if cfg.RetryMin <= 0 {
		cfg.RetryMin = DefaultRetryDelay
	}
	if cfg.RetryMax < cfg.RetryMin {
		cfg.RetryMax = cfg.RetryMin
	}
	if cfg.Capacity <= 0 {
		cfg.Capacity = conn.DefaultCapacity
	}
	return &Link{
		cfg:    cfg,
		conn:   conn.New(cfg.Capacity, log),
		dialer: dialer,
		clock:  clock,
		retry:  &backoff.Backoff{Min: cfg.RetryMin, Max: cfg.RetryMax, Factor: 2},
		log:    log,
	}
}

// OnConnect installs a hook run after every established connection.
func (l *Link) OnConnect(fn func()) { l.onConnect = fn }

// Conn returns the backend connection.
func (l *Link) Conn() *conn.Conn { return l.conn }

// Connected reports whether the backend socket is up.
func (l *Link) Connected() bool { return l.conn.Connected() }

// Connect resolves the backend address and dials until an attempt succeeds.
// Resolution failures are returned immediately; dial failures are logged and
// retried forever. Only context cancellation interrupts the retry loop.
func (l *Link) Connect(ctx context.Context) error {
	addr, err := l.dialer.Resolve(ctx, l.cfg.Host, l.cfg.Port)
	if err != nil {
		return fmt.Errorf("resolve backend %s: %w", l.cfg.Host, err)
	}

	l.retry.Reset()
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		sock, err := l.dialer.Dial(ctx, addr)
		if err == nil {
			l.conn.Open(sock)
			if l.onConnect != nil {
				l.onConnect()
			}
			return nil
		}
		delay := l.retry.Duration()
		l.log.Error().
			Err(err).
			Str("backend", addr.String()).
			Float64("attempt", l.retry.Attempt()).
			Dur("retry_in", delay).
			Msg("failed to connect to backend")
		if err := api.Sleep(ctx, l.clock, delay); err != nil {
			return err
		}
	}
}

// Reconnect evicts every client, drops any previous backend socket and then
// connects again. Client sessions cannot survive a backend restart.
func (l *Link) Reconnect(ctx context.Context, clients *pool.Pool) error {
	if n := clients.Connected(); n > 0 {
		l.log.Warn().Int("clients", n).Msg("backend lost, closing all clients")
	}
	clients.CloseAll()
	l.conn.Close()
	return l.Connect(ctx)
}
