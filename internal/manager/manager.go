// Package manager wires the Shard Router/Workers, Live Directory,
// Staleness Sweeper, Historical Store Adapter, Ingest Endpoint, and Query
// Engine into the single long-running Service the process lifecycle
// drives.
package manager

import (
	"context"
	"time"

	"github.com/carverauto/fleetwatch/internal/directory"
	"github.com/carverauto/fleetwatch/internal/ingest"
	"github.com/carverauto/fleetwatch/internal/query"
	"github.com/carverauto/fleetwatch/internal/scorer"
	"github.com/carverauto/fleetwatch/internal/shard"
	"github.com/carverauto/fleetwatch/internal/store"
	"github.com/carverauto/fleetwatch/internal/sweeper"
	"github.com/carverauto/fleetwatch/internal/telemetry"
	"github.com/carverauto/fleetwatch/pkg/logger"
)

const sweepInterval = 60 * time.Second

// Manager is the process-wide composition root for the ingest-and-scoring
// pipeline. It satisfies pkg/lifecycle.Service.
type Manager struct {
	Ingest *ingest.Endpoint
	Query  *query.Engine

	dir     *directory.Directory
	shards  *shard.Manager
	sweeper *sweeper.Sweeper
	writer  store.Writer

	cancel context.CancelFunc
}

// New builds a Manager with shardCount shards, writing through w and
// serving queries through queryEngine (nil if the database is
// unavailable — queries are disabled but ingest continues, per the
// configuration-failure error kind). liveness is the age past which the
// sweeper evicts a server from the Live Directory.
func New(shardCount int, w store.Writer, queryEngine *query.Engine, weights scorer.Weights, liveness time.Duration, log logger.Logger) *Manager {
	dir := directory.New()
	shards := shard.NewManager(shardCount, dir, w, weights, log)

	m := &Manager{
		Query:   queryEngine,
		dir:     dir,
		shards:  shards,
		writer:  w,
		sweeper: sweeper.New(dir, shards, sweepInterval, liveness, log),
	}

	m.Ingest = ingest.New(routerFunc(shards.Route))

	return m
}

type routerFunc func(info telemetry.MonitorInfo)

func (f routerFunc) Route(info telemetry.MonitorInfo) { f(info) }

// Start runs the shard workers and the staleness sweeper until ctx is
// canceled or Stop is called.
func (m *Manager) Start(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	m.cancel = cancel

	m.shards.Start(ctx)

	go m.sweeper.Run(ctx)

	return nil
}

// Stop cancels the sweeper, drains in-flight shard samples, and returns.
func (m *Manager) Stop(_ context.Context) error {
	if m.cancel != nil {
		m.cancel()
	}

	m.shards.Stop()

	return nil
}

// Directory exposes the Live Directory for the query-adjacent
// GetBest/cluster-summary paths that don't go through the Query Engine.
func (m *Manager) Directory() *directory.Directory {
	return m.dir
}
