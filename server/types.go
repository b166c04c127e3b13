// File: server/types.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package server

import (
	"sync/atomic"
	"time"

	"github.com/momentics/hioload-gate/api"
	"github.com/momentics/hioload-gate/control"
	"github.com/momentics/hioload-gate/internal/arbiter"
	"github.com/momentics/hioload-gate/internal/backend"
	"github.com/momentics/hioload-gate/pool"
	"github.com/rs/zerolog"
)

// Config holds the gateway loop parameters.
type Config struct {
	BackendHost string
	BackendPort int

	MaxClients   int           // number of client slots
	BufferSize   int           // outbound queue capacity per connection
	ReadSize     int           // bytes read per receive
	TurnTimeout  time.Duration // silence that ends a client's turn
	CommandDelay time.Duration // minimum gap between a release and the next command

	ReconnectDelay    time.Duration
	ReconnectMaxDelay time.Duration
}

// DefaultConfig returns the reference sizing.
func DefaultConfig() *Config {
	return &Config{
		BackendPort:       8002,
		MaxClients:        pool.DefaultSize,
		BufferSize:        16384,
		ReadSize:          8192,
		TurnTimeout:       3 * time.Second,
		CommandDelay:      80 * time.Millisecond,
		ReconnectDelay:    backend.DefaultRetryDelay,
		ReconnectMaxDelay: backend.DefaultRetryDelay,
	}
}

// ConfigFrom maps the process configuration onto loop parameters.
func ConfigFrom(c *control.Config) *Config {
	return &Config{
		BackendHost:       c.BackendHost,
		BackendPort:       c.BackendPort,
		MaxClients:        c.MaxClients,
		BufferSize:        c.BufferSize,
		ReadSize:          c.ReadSize,
		TurnTimeout:       c.TurnTimeout,
		CommandDelay:      c.CommandDelay,
		ReconnectDelay:    c.ReconnectDelay,
		ReconnectMaxDelay: c.ReconnectMaxDelay,
	}
}

// Gateway is the whole mutable state of one gateway: client pool, backend
// link and arbitration, plus the readiness sets reused across iterations.
// It is driven by a single goroutine.
type Gateway struct {
	cfg *Config

	listener api.Listener
	poller   api.Poller
	clock    api.Clock
	metrics  *control.Metrics
	log      zerolog.Logger

	clients *pool.Pool
	link    *backend.Link
	arb     *arbiter.Arbiter

	interest *api.EventSet
	ready    *api.EventSet
	buf      []byte

	probes   *control.DebugProbes
	snapshot atomic.Pointer[Snapshot]
}
