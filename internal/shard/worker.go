package shard

import (
	"context"
	"time"

	"github.com/carverauto/fleetwatch/internal/directory"
	"github.com/carverauto/fleetwatch/internal/hostid"
	"github.com/carverauto/fleetwatch/internal/rate"
	"github.com/carverauto/fleetwatch/internal/scorer"
	"github.com/carverauto/fleetwatch/internal/store"
	"github.com/carverauto/fleetwatch/internal/telemetry"
	"github.com/carverauto/fleetwatch/pkg/logger"
)

// Worker is the long-running consumer for one shard: it owns the shard's
// queue and its private derivedState, and is the only thing in the
// process allowed to touch either.
type Worker struct {
	idx     int
	n       int
	q       *queue
	state   *derivedState
	dir     *directory.Directory
	w       store.Writer
	weights scorer.Weights
	log     logger.Logger
}

func newWorker(idx, n int, q *queue, dir *directory.Directory, w store.Writer, weights scorer.Weights, log logger.Logger) *Worker {
	return &Worker{
		idx:     idx,
		n:       n,
		q:       q,
		state:   newDerivedState(),
		dir:     dir,
		w:       w,
		weights: weights,
		log:     log,
	}
}

// run dequeues samples until the queue is closed and drained. Dequeuing
// blocks on the queue's condition variable when empty (Idle); a received
// sample moves the worker to Processing and back to Idle.
func (wk *Worker) run(ctx context.Context) {
	for {
		info, ok := wk.q.Dequeue()
		if !ok {
			return // Stopped: queue closed and drained.
		}

		wk.process(ctx, info)
	}
}

// process executes the Process-Sample protocol for one MonitorInfo. A
// failed insert is logged and skipped (the remaining inserts for the
// sample still run); missing sub-messages read as zeros. Processing never
// re-throws to the queue, and samples for other hosts are unaffected.
func (wk *Worker) process(ctx context.Context, info telemetry.MonitorInfo) {
	hostID := hostid.Derive(info)
	if hostID == "" {
		return
	}

	// Sanity check only: a sample that reached a shard other than the one
	// its hash selects is still processed to completion, using this
	// worker's own state — per-host state is looked up by hostID regardless.
	if Index(hostID, wk.n) != wk.idx {
		wk.log.Warn().Str("host_id", hostID).Int("shard", wk.idx).Msg("processing sample routed to a different shard than its hash would select")
	}

	score := scorer.Score(info, wk.weights)
	now := time.Now()

	perf := newPerfSample(info)

	wk.state.mu.Lock()
	lastPerf, hadPerf := wk.state.lastPerf[hostID]
	if !hadPerf {
		lastPerf = perfSample{}
	}
	wk.state.lastPerf[hostID] = perf
	wk.state.mu.Unlock()

	wk.dir.Upsert(hostID, info, score, now)

	row := wk.buildPerformanceRow(hostID, now, perf, lastPerf, score)
	if err := wk.w.InsertPerformance(ctx, row); err != nil {
		wk.log.Error().Err(err).Str("host_id", hostID).Msg("performance insert failed")
	}

	for _, n := range info.NetInfo {
		wk.insertNet(ctx, hostID, now, n)
	}

	for _, s := range info.SoftIRQ {
		wk.insertSoftIRQ(ctx, hostID, now, s)
	}

	if info.MemInfo != nil {
		wk.insertMem(ctx, hostID, now, *info.MemInfo)
	}

	for _, d := range info.DiskInfo {
		wk.insertDisk(ctx, hostID, now, d)
	}
}

func (wk *Worker) buildPerformanceRow(hostID string, now time.Time, cur, last perfSample, score float64) store.PerformanceRow {
	return store.PerformanceRow{
		ServerName:         hostID,
		Timestamp:          now,
		CPUPercent:         cur.cpuPercent,
		CPUPercentRate:     rate.Of(cur.cpuPercent, last.cpuPercent),
		UsrPercent:         cur.usrPercent,
		UsrPercentRate:     rate.Of(cur.usrPercent, last.usrPercent),
		SystemPercent:      cur.systemPercent,
		SystemPercentRate:  rate.Of(cur.systemPercent, last.systemPercent),
		NicePercent:        cur.nicePercent,
		NicePercentRate:    rate.Of(cur.nicePercent, last.nicePercent),
		IdlePercent:        cur.idlePercent,
		IdlePercentRate:    rate.Of(cur.idlePercent, last.idlePercent),
		IOWaitPercent:      cur.ioWaitPercent,
		IOWaitPercentRate:  rate.Of(cur.ioWaitPercent, last.ioWaitPercent),
		IRQPercent:         cur.irqPercent,
		IRQPercentRate:     rate.Of(cur.irqPercent, last.irqPercent),
		SoftIRQPercent:     cur.softIRQPercent,
		SoftIRQPercentRate: rate.Of(cur.softIRQPercent, last.softIRQPercent),
		LoadAvg1:           cur.loadAvg1,
		LoadAvg1Rate:       rate.Of(cur.loadAvg1, last.loadAvg1),
		LoadAvg3:           cur.loadAvg3,
		LoadAvg3Rate:       rate.Of(cur.loadAvg3, last.loadAvg3),
		LoadAvg15:          cur.loadAvg15,
		LoadAvg15Rate:      rate.Of(cur.loadAvg15, last.loadAvg15),
		NetInMiBps:         cur.netInMiBps,
		NetInMiBpsRate:     rate.Of(cur.netInMiBps, last.netInMiBps),
		NetOutMiBps:        cur.netOutMiBps,
		NetOutMiBpsRate:    rate.Of(cur.netOutMiBps, last.netOutMiBps),
		Score:              score,
	}
}

func (wk *Worker) insertNet(ctx context.Context, hostID string, now time.Time, n telemetry.NetInfo) {
	wk.state.mu.Lock()
	perNIC, ok := wk.state.lastNet[hostID]
	if !ok {
		perNIC = make(map[string]telemetry.NetInfo)
		wk.state.lastNet[hostID] = perNIC
	}
	last := perNIC[n.Name]
	perNIC[n.Name] = n
	wk.state.mu.Unlock()

	row := store.NetDetailRow{
		ServerName:          hostID,
		NetName:             n.Name,
		Timestamp:           now,
		RcvRate:             n.RcvRate,
		RcvRateRate:         rate.Of(n.RcvRate, last.RcvRate),
		SendRate:            n.SendRate,
		SendRateRate:        rate.Of(n.SendRate, last.SendRate),
		RcvPacketsRate:      n.RcvPacketsRate,
		RcvPacketsRateRate:  rate.Of(n.RcvPacketsRate, last.RcvPacketsRate),
		SendPacketsRate:     n.SendPacketsRate,
		SendPacketsRateRate: rate.Of(n.SendPacketsRate, last.SendPacketsRate),
		ErrIn:               n.ErrIn,
		ErrInRate:           rate.Of(float64(n.ErrIn), float64(last.ErrIn)),
		ErrOut:              n.ErrOut,
		ErrOutRate:          rate.Of(float64(n.ErrOut), float64(last.ErrOut)),
		DropIn:              n.DropIn,
		DropInRate:          rate.Of(float64(n.DropIn), float64(last.DropIn)),
		DropOut:             n.DropOut,
		DropOutRate:         rate.Of(float64(n.DropOut), float64(last.DropOut)),
	}

	if err := wk.w.InsertNetDetail(ctx, row); err != nil {
		wk.log.Error().Err(err).Str("host_id", hostID).Str("nic", n.Name).Msg("net-detail insert failed")
	}
}

func (wk *Worker) insertSoftIRQ(ctx context.Context, hostID string, now time.Time, s telemetry.SoftIRQ) {
	wk.state.mu.Lock()
	perCPU, ok := wk.state.lastSoftIRQ[hostID]
	if !ok {
		perCPU = make(map[string]telemetry.SoftIRQ)
		wk.state.lastSoftIRQ[hostID] = perCPU
	}
	last := perCPU[s.CPUName]
	perCPU[s.CPUName] = s
	wk.state.mu.Unlock()

	row := store.SoftIRQDetailRow{
		ServerName:  hostID,
		CPUName:     s.CPUName,
		Timestamp:   now,
		Hi:          s.Hi,
		HiRate:      rate.Of(float64(s.Hi), float64(last.Hi)),
		Timer:       s.Timer,
		TimerRate:   rate.Of(float64(s.Timer), float64(last.Timer)),
		NetTx:       s.NetTx,
		NetTxRate:   rate.Of(float64(s.NetTx), float64(last.NetTx)),
		NetRx:       s.NetRx,
		NetRxRate:   rate.Of(float64(s.NetRx), float64(last.NetRx)),
		Block:       s.Block,
		BlockRate:   rate.Of(float64(s.Block), float64(last.Block)),
		IRQPoll:     s.IRQPoll,
		IRQPollRate: rate.Of(float64(s.IRQPoll), float64(last.IRQPoll)),
		Tasklet:     s.Tasklet,
		TaskletRate: rate.Of(float64(s.Tasklet), float64(last.Tasklet)),
		Sched:       s.Sched,
		SchedRate:   rate.Of(float64(s.Sched), float64(last.Sched)),
		HRTimer:     s.HRTimer,
		HRTimerRate: rate.Of(float64(s.HRTimer), float64(last.HRTimer)),
		RCU:         s.RCU,
		RCURate:     rate.Of(float64(s.RCU), float64(last.RCU)),
	}

	if err := wk.w.InsertSoftIRQDetail(ctx, row); err != nil {
		wk.log.Error().Err(err).Str("host_id", hostID).Str("cpu", s.CPUName).Msg("softirq-detail insert failed")
	}
}

func (wk *Worker) insertMem(ctx context.Context, hostID string, now time.Time, m telemetry.MemInfo) {
	wk.state.mu.Lock()
	last := wk.state.lastMem[hostID]
	wk.state.lastMem[hostID] = m
	wk.state.mu.Unlock()

	row := store.MemDetailRow{
		ServerName:       hostID,
		Timestamp:        now,
		Total:            m.Total,
		TotalRate:        rate.Of(float64(m.Total), float64(last.Total)),
		Free:             m.Free,
		FreeRate:         rate.Of(float64(m.Free), float64(last.Free)),
		Avail:            m.Avail,
		AvailRate:        rate.Of(float64(m.Avail), float64(last.Avail)),
		UsedPercent:      m.UsedPercent,
		UsedPercentRate:  rate.Of(m.UsedPercent, last.UsedPercent),
		Buffers:          m.Buffers,
		BuffersRate:      rate.Of(float64(m.Buffers), float64(last.Buffers)),
		Cached:           m.Cached,
		CachedRate:       rate.Of(float64(m.Cached), float64(last.Cached)),
		SwapCached:       m.SwapCached,
		SwapCachedRate:   rate.Of(float64(m.SwapCached), float64(last.SwapCached)),
		Active:           m.Active,
		ActiveRate:       rate.Of(float64(m.Active), float64(last.Active)),
		Inactive:         m.Inactive,
		InactiveRate:     rate.Of(float64(m.Inactive), float64(last.Inactive)),
		ActiveAnon:       m.ActiveAnon,
		ActiveAnonRate:   rate.Of(float64(m.ActiveAnon), float64(last.ActiveAnon)),
		InactiveAnon:     m.InactiveAnon,
		InactiveAnonRate: rate.Of(float64(m.InactiveAnon), float64(last.InactiveAnon)),
		ActiveFile:       m.ActiveFile,
		ActiveFileRate:   rate.Of(float64(m.ActiveFile), float64(last.ActiveFile)),
		InactiveFile:     m.InactiveFile,
		InactiveFileRate: rate.Of(float64(m.InactiveFile), float64(last.InactiveFile)),
		Dirty:            m.Dirty,
		DirtyRate:        rate.Of(float64(m.Dirty), float64(last.Dirty)),
		Writeback:        m.Writeback,
		WritebackRate:    rate.Of(float64(m.Writeback), float64(last.Writeback)),
		AnonPages:        m.AnonPages,
		AnonPagesRate:    rate.Of(float64(m.AnonPages), float64(last.AnonPages)),
		Mapped:           m.Mapped,
		MappedRate:       rate.Of(float64(m.Mapped), float64(last.Mapped)),
		KReclaimable:     m.KReclaimable,
		KReclaimableRate: rate.Of(float64(m.KReclaimable), float64(last.KReclaimable)),
		SReclaimable:     m.SReclaimable,
		SReclaimableRate: rate.Of(float64(m.SReclaimable), float64(last.SReclaimable)),
		SUnreclaim:       m.SUnreclaim,
		SUnreclaimRate:   rate.Of(float64(m.SUnreclaim), float64(last.SUnreclaim)),
	}

	if err := wk.w.InsertMemDetail(ctx, row); err != nil {
		wk.log.Error().Err(err).Str("host_id", hostID).Msg("mem-detail insert failed")
	}
}

func (wk *Worker) insertDisk(ctx context.Context, hostID string, now time.Time, d telemetry.DiskInfo) {
	wk.state.mu.Lock()
	perDisk, ok := wk.state.lastDisk[hostID]
	if !ok {
		perDisk = make(map[string]telemetry.DiskInfo)
		wk.state.lastDisk[hostID] = perDisk
	}
	last := perDisk[d.Name]
	perDisk[d.Name] = d
	wk.state.mu.Unlock()

	row := store.DiskDetailRow{
		ServerName:            hostID,
		DiskName:              d.Name,
		Timestamp:             now,
		ReadBytesPerSec:       d.ReadBytesPerSec,
		ReadBytesPerSecRate:   rate.Of(d.ReadBytesPerSec, last.ReadBytesPerSec),
		WriteBytesPerSec:      d.WriteBytesPerSec,
		WriteBytesPerSecRate:  rate.Of(d.WriteBytesPerSec, last.WriteBytesPerSec),
		ReadIOPS:              d.ReadIOPS,
		ReadIOPSRate:          rate.Of(d.ReadIOPS, last.ReadIOPS),
		WriteIOPS:             d.WriteIOPS,
		WriteIOPSRate:         rate.Of(d.WriteIOPS, last.WriteIOPS),
		AvgReadLatencyMs:      d.AvgReadLatencyMs,
		AvgReadLatencyMsRate:  rate.Of(d.AvgReadLatencyMs, last.AvgReadLatencyMs),
		AvgWriteLatencyMs:     d.AvgWriteLatencyMs,
		AvgWriteLatencyMsRate: rate.Of(d.AvgWriteLatencyMs, last.AvgWriteLatencyMs),
		UtilPercent:           d.UtilPercent,
		UtilPercentRate:       rate.Of(d.UtilPercent, last.UtilPercent),

		Reads:                d.Reads,
		ReadsRate:            rate.Of(float64(d.Reads), float64(last.Reads)),
		Writes:               d.Writes,
		WritesRate:           rate.Of(float64(d.Writes), float64(last.Writes)),
		SectorsRead:          d.SectorsRead,
		SectorsReadRate:      rate.Of(float64(d.SectorsRead), float64(last.SectorsRead)),
		SectorsWritten:       d.SectorsWritten,
		SectorsWrittenRate:   rate.Of(float64(d.SectorsWritten), float64(last.SectorsWritten)),
		ReadTimeMs:           d.ReadTimeMs,
		ReadTimeMsRate:       rate.Of(float64(d.ReadTimeMs), float64(last.ReadTimeMs)),
		WriteTimeMs:          d.WriteTimeMs,
		WriteTimeMsRate:      rate.Of(float64(d.WriteTimeMs), float64(last.WriteTimeMs)),
		IOInProgress:         d.IOInProgress,
		IOInProgressRate:     rate.Of(float64(d.IOInProgress), float64(last.IOInProgress)),
		IOTimeMs:             d.IOTimeMs,
		IOTimeMsRate:         rate.Of(float64(d.IOTimeMs), float64(last.IOTimeMs)),
		WeightedIOTimeMs:     d.WeightedIOTimeMs,
		WeightedIOTimeMsRate: rate.Of(float64(d.WeightedIOTimeMs), float64(last.WeightedIOTimeMs)),
	}

	if err := wk.w.InsertDiskDetail(ctx, row); err != nil {
		wk.log.Error().Err(err).Str("host_id", hostID).Str("disk", d.Name).Msg("disk-detail insert failed")
	}
}
