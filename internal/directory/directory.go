// Package directory implements the Live Directory: a process-wide,
// thread-safe mapping from host identity to the latest known HostScore.
package directory

import (
	"sync"
	"time"

	"github.com/carverauto/fleetwatch/internal/telemetry"
)

// Directory is safe for concurrent use. A single exclusive lock protects
// the whole map: directory traffic is dominated by per-shard processing,
// and directory operations themselves are short.
type Directory struct {
	mu      sync.Mutex
	entries map[string]telemetry.HostScore
	// order records first-seen insertion order, for GetBest's tie-break.
	order []string
}

// New returns an empty Directory.
func New() *Directory {
	return &Directory{entries: make(map[string]telemetry.HostScore)}
}

// Upsert creates or overwrites the entry for hostID. The caller is expected
// to pass a weakly monotonically increasing now per host, since entries are
// only ever replaced, not merged.
func (d *Directory) Upsert(hostID string, info telemetry.MonitorInfo, score float64, now time.Time) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, exists := d.entries[hostID]; !exists {
		d.order = append(d.order, hostID)
	}

	d.entries[hostID] = telemetry.HostScore{Info: info, Score: score, Timestamp: now}
}

// GetAll returns a consistent point-in-time snapshot copy of the directory.
func (d *Directory) GetAll() map[string]telemetry.HostScore {
	d.mu.Lock()
	defer d.mu.Unlock()

	out := make(map[string]telemetry.HostScore, len(d.entries))
	for k, v := range d.entries {
		out[k] = v
	}

	return out
}

// Get returns a single entry and whether it was present.
func (d *Directory) Get(hostID string) (telemetry.HostScore, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()

	hs, ok := d.entries[hostID]

	return hs, ok
}

// GetBest returns the host ID with the maximum score, ties broken by
// first-seen order. Returns "" if the directory is empty.
func (d *Directory) GetBest() string {
	d.mu.Lock()
	defer d.mu.Unlock()

	best := ""
	bestScore := 0.0
	first := true

	for _, hostID := range d.order {
		hs, ok := d.entries[hostID]
		if !ok {
			continue
		}

		if first || hs.Score > bestScore {
			best = hostID
			bestScore = hs.Score
			first = false
		}
	}

	return best
}

// EvictOlderThan removes every entry whose age exceeds maxAge as of now,
// returning the evicted host IDs so callers (the Staleness Sweeper) can
// cascade eviction into per-shard derived state.
func (d *Directory) EvictOlderThan(now time.Time, maxAge time.Duration) []string {
	d.mu.Lock()
	defer d.mu.Unlock()

	var evicted []string

	remaining := d.order[:0]

	for _, hostID := range d.order {
		hs, ok := d.entries[hostID]
		if !ok {
			continue
		}

		if now.Sub(hs.Timestamp) > maxAge {
			delete(d.entries, hostID)

			evicted = append(evicted, hostID)

			continue
		}

		remaining = append(remaining, hostID)
	}

	d.order = remaining

	return evicted
}

// Len returns the number of live entries.
func (d *Directory) Len() int {
	d.mu.Lock()
	defer d.mu.Unlock()

	return len(d.entries)
}
