package shard

import (
	"context"
	"sync"

	"github.com/carverauto/fleetwatch/internal/directory"
	"github.com/carverauto/fleetwatch/internal/hostid"
	"github.com/carverauto/fleetwatch/internal/scorer"
	"github.com/carverauto/fleetwatch/internal/store"
	"github.com/carverauto/fleetwatch/internal/telemetry"
	"github.com/carverauto/fleetwatch/pkg/logger"
)

// Manager owns the fixed pool of N shard workers: their queues and their
// private derived state. It is the router (stable_hash(host_id) mod N)
// and the lifecycle owner of the workers in one type, since the two are
// never meaningfully separated in practice — the router's only job is to
// pick the queue a worker already owns.
type Manager struct {
	queues  []*queue
	workers []*Worker
	n       int

	wg sync.WaitGroup
}

// NewManager builds a Manager with n shards, each backed by store w,
// publishing into dir, scoring with weights, logging via log.
func NewManager(n int, dir *directory.Directory, w store.Writer, weights scorer.Weights, log logger.Logger) *Manager {
	if n < 1 {
		n = 1
	}

	m := &Manager{n: n}

	for i := 0; i < n; i++ {
		q := newQueue()
		m.queues = append(m.queues, q)
		m.workers = append(m.workers, newWorker(i, n, q, dir, w, weights, log))
	}

	return m
}

// Route enqueues info onto the shard stable_hash(host_id) mod N. On empty
// host identity after derivation, it falls back to shard 0 rather than
// dropping the sample outright — a defensive compatibility behavior, not
// a correctness requirement (the worker still drops empty-identity
// samples during Process-Sample).
func (m *Manager) Route(info telemetry.MonitorInfo) {
	hostID := hostid.Derive(info)

	idx := 0
	if hostID != "" {
		idx = Index(hostID, m.n)
	}

	m.queues[idx].Enqueue(info)
}

// ShardFor reports which shard index owns hostID. Given a fixed shard
// count, the result is stable across calls for the same hostID.
func (m *Manager) ShardFor(hostID string) int {
	return Index(hostID, m.n)
}

// Start runs every shard worker's consume loop in its own goroutine.
func (m *Manager) Start(ctx context.Context) {
	for _, w := range m.workers {
		m.wg.Add(1)

		go func(w *Worker) {
			defer m.wg.Done()
			w.run(ctx)
		}(w)
	}
}

// Stop closes every shard's queue and waits for every worker to exit.
// Samples already queued when Stop is called are still processed (a
// closed queue hands out its remaining items before reporting empty);
// samples routed after the queues are closed are discarded.
func (m *Manager) Stop() {
	for _, q := range m.queues {
		q.Close()
	}

	m.wg.Wait()
}

// Evict discards hostID's derived state on the one shard that owns it,
// stable_hash(host_id) mod N, so callers outside the package need not
// know which shard that is.
func (m *Manager) Evict(hostID string) {
	idx := Index(hostID, m.n)
	m.workers[idx].state.evict(hostID)
}
