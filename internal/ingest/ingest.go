// Package ingest implements the Ingest Endpoint: the RPC-facing surface
// that validates and forwards inbound samples to the Shard Router without
// ever blocking on downstream processing.
package ingest

import (
	"context"
	"errors"
	"sync"

	"github.com/carverauto/fleetwatch/internal/hostid"
	"github.com/carverauto/fleetwatch/internal/telemetry"
)

// ErrMissingHostIdentity is returned by PushMonitorInfo when a sample
// carries no derivable host identity.
var ErrMissingHostIdentity = errors.New("ingest: missing host identity")

// Router is the subset of shard.Manager the Ingest Endpoint needs.
type Router interface {
	Route(info telemetry.MonitorInfo)
}

// Endpoint implements PushMonitorInfo/GetMonitorInfo.
type Endpoint struct {
	router Router

	mu     sync.Mutex
	recent map[string]telemetry.MonitorInfo
}

// New builds an Endpoint that forwards validated samples to router.
func New(router Router) *Endpoint {
	return &Endpoint{router: router, recent: make(map[string]telemetry.MonitorInfo)}
}

// PushMonitorInfo validates host identity, enqueues the sample on the
// Shard Router, and returns immediately — it never waits on shard
// processing or any database I/O.
func (e *Endpoint) PushMonitorInfo(_ context.Context, info telemetry.MonitorInfo) error {
	hostID := hostid.Derive(info)
	if hostID == "" {
		return ErrMissingHostIdentity
	}

	e.mu.Lock()
	e.recent[hostID] = info
	e.mu.Unlock()

	e.router.Route(info)

	return nil
}

// GetMonitorInfo returns an arbitrary currently-known sample, used for
// liveness pings. The choice is deterministic within a process (the
// lexicographically-first host id currently held) but not meaningful
// beyond "some sample exists".
func (e *Endpoint) GetMonitorInfo(_ context.Context) (telemetry.MonitorInfo, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	var best string
	var found bool

	for hostID := range e.recent {
		if !found || hostID < best {
			best = hostID
			found = true
		}
	}

	if !found {
		return telemetry.MonitorInfo{}, false
	}

	return e.recent[best], true
}
