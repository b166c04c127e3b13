// File: reactor/reactor.go
// Author: momentics <momentics@gmail.com>
//
// Package reactor provides the level-triggered readiness primitive behind
// api.Poller. Interest sets are passed on every Wait, so the caller can
// withhold a descriptor from one iteration to the next.

package reactor

import "github.com/momentics/hioload-gate/api"

// Ensure compile-time compliance.
var _ api.Poller = (*Reactor)(nil)
