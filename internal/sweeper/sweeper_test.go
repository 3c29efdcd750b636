package sweeper

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/carverauto/fleetwatch/internal/directory"
	"github.com/carverauto/fleetwatch/internal/telemetry"
	"github.com/carverauto/fleetwatch/pkg/logger"
)

type recordingEvictor struct {
	mu      sync.Mutex
	evicted []string
}

func (r *recordingEvictor) Evict(hostID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.evicted = append(r.evicted, hostID)
}

func (r *recordingEvictor) snapshot() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.evicted))
	copy(out, r.evicted)
	return out
}

// TestSweeperEvictsStaleHosts covers a host idle past the liveness
// window disappears from the directory and its shard state is cleared.
func TestSweeperEvictsStaleHosts(t *testing.T) {
	dir := directory.New()
	dir.Upsert("stale", telemetry.MonitorInfo{}, 50, time.Now().Add(-2*time.Second))

	ev := &recordingEvictor{}
	s := New(dir, ev, 10*time.Millisecond, time.Second, logger.NewTestLogger())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go s.Run(ctx)

	deadline := time.Now().Add(2 * time.Second)
	for len(ev.snapshot()) == 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}

	got := ev.snapshot()
	if len(got) != 1 || got[0] != "stale" {
		t.Fatalf("evicted = %v, want [stale]", got)
	}

	if dir.Len() != 0 {
		t.Fatalf("directory Len() = %d, want 0", dir.Len())
	}
}

// TestSweeperStopsOnContextCancel confirms Run returns promptly once its
// context is canceled, rather than leaking the goroutine.
func TestSweeperStopsOnContextCancel(t *testing.T) {
	dir := directory.New()
	ev := &recordingEvictor{}
	s := New(dir, ev, 5*time.Millisecond, time.Minute, logger.NewTestLogger())

	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		s.Run(ctx)
		close(done)
	}()

	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatalf("Run did not return after context cancellation")
	}
}
