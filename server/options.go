// File: server/options.go
// Package server defines functional options for the Gateway.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package server

import (
	"github.com/momentics/hioload-gate/api"
	"github.com/momentics/hioload-gate/control"
	"github.com/rs/zerolog"
)

// Option customizes gateway construction.
type Option func(*Gateway)

// WithLogger sets the parent logger. Components derive children from it.
func WithLogger(log zerolog.Logger) Option {
	return func(g *Gateway) {
		g.log = log
	}
}

// WithMetrics sets the collectors updated by the loop.
func WithMetrics(m *control.Metrics) Option {
	return func(g *Gateway) {
		g.metrics = m
	}
}

// WithClock replaces the system clock used for pacing, turn timeouts and
// reconnect delays.
func WithClock(c api.Clock) Option {
	return func(g *Gateway) {
		g.clock = c
	}
}

// WithDebugProbes publishes a state snapshot after every iteration under the
// "gateway" probe.
func WithDebugProbes(dp *control.DebugProbes) Option {
	return func(g *Gateway) {
		g.probes = dp
	}
}
