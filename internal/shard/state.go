package shard

import (
	"sync"

	"github.com/carverauto/fleetwatch/internal/telemetry"
)

// perfSample is the normalized snapshot a worker diffs against on the next
// sample for the same host: index 0 of cpu_stat for the aggregate line,
// index 0 of net_info for the "primary" NIC, net bytes converted to MiB/s.
type perfSample struct {
	cpuPercent     float64
	usrPercent     float64
	systemPercent  float64
	nicePercent    float64
	idlePercent    float64
	ioWaitPercent  float64
	irqPercent     float64
	softIRQPercent float64
	loadAvg1       float64
	loadAvg3       float64
	loadAvg15      float64
	netInMiBps     float64
	netOutMiBps    float64
}

const bytesPerMiB = 1024 * 1024

func newPerfSample(info telemetry.MonitorInfo) perfSample {
	var s perfSample

	if len(info.CPUStats) > 0 {
		c := info.CPUStats[0]
		s.cpuPercent = c.CPUPercent
		s.usrPercent = c.UsrPercent
		s.systemPercent = c.SystemPercent
		s.nicePercent = c.NicePercent
		s.idlePercent = c.IdlePercent
		s.ioWaitPercent = c.IOWaitPercent
		s.irqPercent = c.IRQPercent
		s.softIRQPercent = c.SoftIRQPercent
	}

	if info.CPULoad != nil {
		s.loadAvg1 = info.CPULoad.LoadAvg1
		s.loadAvg3 = info.CPULoad.LoadAvg3
		s.loadAvg15 = info.CPULoad.LoadAvg15
	}

	if len(info.NetInfo) > 0 {
		n := info.NetInfo[0]
		s.netInMiBps = n.RcvRate / bytesPerMiB
		s.netOutMiBps = n.SendRate / bytesPerMiB
	}

	return s
}

// derivedState is the per-host state a single shard worker owns
// exclusively: only that worker's own goroutine reads or
// writes the per-host tables below while processing a sample. The mutex
// exists solely for the Staleness Sweeper's cross-goroutine eviction call;
// it is never contended on the hot path.
type derivedState struct {
	mu          sync.Mutex
	lastPerf    map[string]perfSample
	lastNet     map[string]map[string]telemetry.NetInfo
	lastSoftIRQ map[string]map[string]telemetry.SoftIRQ
	lastMem     map[string]telemetry.MemInfo
	lastDisk    map[string]map[string]telemetry.DiskInfo
}

func newDerivedState() *derivedState {
	return &derivedState{
		lastPerf:    make(map[string]perfSample),
		lastNet:     make(map[string]map[string]telemetry.NetInfo),
		lastSoftIRQ: make(map[string]map[string]telemetry.SoftIRQ),
		lastMem:     make(map[string]telemetry.MemInfo),
		lastDisk:    make(map[string]map[string]telemetry.DiskInfo),
	}
}

// evict discards every table entry owned by hostID. Called when the
// Staleness Sweeper evicts the matching directory entry, so a host that
// returns after a long silence starts from a zero baseline instead of
// computing rates against an ancient one.
func (d *derivedState) evict(hostID string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	delete(d.lastPerf, hostID)
	delete(d.lastNet, hostID)
	delete(d.lastSoftIRQ, hostID)
	delete(d.lastMem, hostID)
	delete(d.lastDisk, hostID)
}
