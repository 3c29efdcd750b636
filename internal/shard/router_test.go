package shard

import (
	"testing"

	"github.com/carverauto/fleetwatch/internal/directory"
	"github.com/carverauto/fleetwatch/internal/scorer"
	"github.com/carverauto/fleetwatch/internal/telemetry"
	"github.com/carverauto/fleetwatch/pkg/logger"
)

func TestIndexStable(t *testing.T) {
	for _, hostID := range []string{"a_1.1.1.1", "b_2.2.2.2", "host-with-long-name_10.0.0.1"} {
		first := Index(hostID, 4)

		if first < 0 || first >= 4 {
			t.Fatalf("Index(%q, 4) = %d, out of range", hostID, first)
		}

		for i := 0; i < 10; i++ {
			if got := Index(hostID, 4); got != first {
				t.Fatalf("Index(%q, 4) = %d on repeat call, want %d", hostID, got, first)
			}
		}
	}
}

// TestRouteShardLocality confirms every sample for a host lands on the
// queue of the shard its hash selects, so exactly one worker ever owns
// that host's derived state.
func TestRouteShardLocality(t *testing.T) {
	const n = 4

	dir := directory.New()
	m := NewManager(n, dir, &recordingWriter{}, scorer.DefaultWeights(), logger.NewTestLogger())

	info := sampleInfo("host-p1", 10, 0)
	want := Index("host-p1_10.0.0.1", n)

	for i := 0; i < 5; i++ {
		m.Route(info)
	}

	for idx, q := range m.queues {
		q.mu.Lock()
		depth := len(q.items)
		q.mu.Unlock()

		wantDepth := 0
		if idx == want {
			wantDepth = 5
		}

		if depth != wantDepth {
			t.Fatalf("shard %d queue depth = %d, want %d", idx, depth, wantDepth)
		}
	}
}

// TestRouteEmptyIdentityFallsBackToShardZero covers the defensive
// fallback: an unidentifiable sample is enqueued on shard 0 rather than
// dropped at the router (the worker drops it during processing instead).
func TestRouteEmptyIdentityFallsBackToShardZero(t *testing.T) {
	dir := directory.New()
	m := NewManager(2, dir, &recordingWriter{}, scorer.DefaultWeights(), logger.NewTestLogger())

	m.Route(telemetry.MonitorInfo{})

	m.queues[0].mu.Lock()
	depth := len(m.queues[0].items)
	m.queues[0].mu.Unlock()

	if depth != 1 {
		t.Fatalf("shard 0 queue depth = %d, want 1", depth)
	}
}
