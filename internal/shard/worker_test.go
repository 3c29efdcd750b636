package shard

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/carverauto/fleetwatch/internal/directory"
	"github.com/carverauto/fleetwatch/internal/scorer"
	"github.com/carverauto/fleetwatch/internal/store"
	"github.com/carverauto/fleetwatch/internal/telemetry"
	"github.com/carverauto/fleetwatch/pkg/logger"
)

type recordingWriter struct {
	mu   sync.Mutex
	perf []store.PerformanceRow
	net  []store.NetDetailRow
	mem  []store.MemDetailRow
	disk []store.DiskDetailRow
	irq  []store.SoftIRQDetailRow
}

func (r *recordingWriter) InsertPerformance(_ context.Context, row store.PerformanceRow) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.perf = append(r.perf, row)
	return nil
}

func (r *recordingWriter) InsertNetDetail(_ context.Context, row store.NetDetailRow) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.net = append(r.net, row)
	return nil
}

func (r *recordingWriter) InsertMemDetail(_ context.Context, row store.MemDetailRow) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.mem = append(r.mem, row)
	return nil
}

func (r *recordingWriter) InsertDiskDetail(_ context.Context, row store.DiskDetailRow) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.disk = append(r.disk, row)
	return nil
}

func (r *recordingWriter) InsertSoftIRQDetail(_ context.Context, row store.SoftIRQDetailRow) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.irq = append(r.irq, row)
	return nil
}

func sampleInfo(hostname string, cpuPercent float64, rcvRate float64) telemetry.MonitorInfo {
	return telemetry.MonitorInfo{
		HostInfo: &telemetry.HostInfo{Hostname: hostname, IPAddress: "10.0.0.1"},
		CPUStats: []telemetry.CPUStat{{CPUPercent: cpuPercent}},
		CPULoad:  &telemetry.CPULoad{LoadAvg1: 1},
		MemInfo:  &telemetry.MemInfo{UsedPercent: 40, Total: 1000},
		NetInfo:  []telemetry.NetInfo{{Name: "eth0", RcvRate: rcvRate}},
		DiskInfo: []telemetry.DiskInfo{{Name: "sda", UtilPercent: 10}},
		SoftIRQ:  []telemetry.SoftIRQ{{CPUName: "cpu0", Timer: 100}},
	}
}

// TestWorkerProcessWritesAllTables covers step 8 of the process-sample
// protocol: one sample fans out into all five detail tables plus the
// directory.
func TestWorkerProcessWritesAllTables(t *testing.T) {
	dir := directory.New()
	w := &recordingWriter{}
	wk := newWorker(0, 1, newQueue(), dir, w, scorer.DefaultWeights(), logger.NewTestLogger())

	wk.process(context.Background(), sampleInfo("host-a", 50, 100))

	if len(w.perf) != 1 || len(w.net) != 1 || len(w.mem) != 1 || len(w.disk) != 1 || len(w.irq) != 1 {
		t.Fatalf("expected exactly one row per table, got perf=%d net=%d mem=%d disk=%d irq=%d",
			len(w.perf), len(w.net), len(w.mem), len(w.disk), len(w.irq))
	}

	if _, ok := dir.Get("host-a_10.0.0.1"); !ok {
		t.Fatalf("directory missing entry for processed host")
	}
}

// TestWorkerProcessRates covers the rate law: a doubling CPU percent
// between samples for the same host yields rate 1.0.
func TestWorkerProcessRates(t *testing.T) {
	dir := directory.New()
	w := &recordingWriter{}
	wk := newWorker(0, 1, newQueue(), dir, w, scorer.DefaultWeights(), logger.NewTestLogger())

	wk.process(context.Background(), sampleInfo("host-b", 50, 100))
	wk.process(context.Background(), sampleInfo("host-b", 100, 100))

	last := w.perf[len(w.perf)-1]
	if last.CPUPercentRate != 1.0 {
		t.Fatalf("CPUPercentRate = %v, want 1.0", last.CPUPercentRate)
	}

	if last.NetInMiBpsRate != 0 {
		t.Fatalf("NetInMiBpsRate = %v, want 0 (unchanged between samples)", last.NetInMiBpsRate)
	}
}

// TestWorkerProcessDropsEmptyHostID covers the empty-identity drop case.
func TestWorkerProcessDropsEmptyHostID(t *testing.T) {
	dir := directory.New()
	w := &recordingWriter{}
	wk := newWorker(0, 1, newQueue(), dir, w, scorer.DefaultWeights(), logger.NewTestLogger())

	wk.process(context.Background(), telemetry.MonitorInfo{})

	if len(w.perf) != 0 {
		t.Fatalf("expected no rows written for an empty-identity sample, got %d", len(w.perf))
	}

	if dir.Len() != 0 {
		t.Fatalf("expected no directory entry for an empty-identity sample")
	}
}

// TestWorkerEvictClearsDerivedState confirms that after the sweeper's
// eviction path (derivedState.evict) runs, the next sample for the host
// starts from a zero baseline.
func TestWorkerEvictClearsDerivedState(t *testing.T) {
	dir := directory.New()
	w := &recordingWriter{}
	wk := newWorker(0, 1, newQueue(), dir, w, scorer.DefaultWeights(), logger.NewTestLogger())

	wk.process(context.Background(), sampleInfo("host-c", 80, 100))
	wk.state.evict("host-c_10.0.0.1")
	wk.process(context.Background(), sampleInfo("host-c", 40, 100))

	last := w.perf[len(w.perf)-1]
	if last.CPUPercentRate != 0 {
		t.Fatalf("CPUPercentRate after eviction = %v, want 0 (no prior baseline)", last.CPUPercentRate)
	}
}

// TestManagerRouteAndStop exercises the Manager end to end through a real
// run loop to confirm Start/Route/Stop don't deadlock and every enqueued
// sample is eventually processed.
func TestManagerRouteAndStop(t *testing.T) {
	dir := directory.New()
	w := &recordingWriter{}
	m := NewManager(2, dir, w, scorer.DefaultWeights(), logger.NewTestLogger())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	m.Start(ctx)
	m.Route(sampleInfo("host-d", 30, 10))
	m.Route(sampleInfo("host-e", 30, 10))

	deadline := time.Now().Add(2 * time.Second)
	for dir.Len() < 2 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}

	m.Stop()

	if dir.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", dir.Len())
	}
}
