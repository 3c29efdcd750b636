// Package query implements the Query Engine: a read-only surface over the
// Historical Store and the Live Directory. Every statement is
// parameterized; host names never reach the SQL text.
package query

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/carverauto/fleetwatch/internal/store"
	"github.com/carverauto/fleetwatch/pkg/logger"
)

const defaultPageSize = 100

// coercePage enforces page ≥ 1, page_size ≥ 1, defaulting an out-of-range
// page_size to 100 per the coercion rule in the query contract.
func coercePage(page, pageSize int) (int, int) {
	if page < 1 {
		page = 1
	}

	if pageSize < 1 {
		pageSize = defaultPageSize
	}

	return page, pageSize
}

func offsetFor(page, pageSize int) int {
	return (page - 1) * pageSize
}

// DB is the narrow read surface the Engine needs from a pgxpool.Pool.
type DB interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Engine is the pgxpool-backed Query Engine.
type Engine struct {
	db       DB
	log      logger.Logger
	liveness time.Duration
}

// NewEngine wraps an existing connection pool. The Engine does not own
// the pool's lifecycle; callers close it. liveness is the age past which
// a server's most recent score is considered offline in ClusterStats.
func NewEngine(db DB, liveness time.Duration, log logger.Logger) *Engine {
	return &Engine{db: db, log: log, liveness: liveness}
}

func (e *Engine) validRange(t0, t1 time.Time) bool {
	if t0.After(t1) {
		if e.log != nil {
			e.log.Error().Time("t0", t0).Time("t1", t1).Msg("query: invalid time range, t0 after t1")
		}

		return false
	}

	return true
}

// QueryPerformance returns paginated performance rows for host within
// [t0,t1], newest first, plus the total matching row count.
func (e *Engine) QueryPerformance(ctx context.Context, host string, t0, t1 time.Time, page, pageSize int) ([]store.PerformanceRow, int, error) {
	if !e.validRange(t0, t1) {
		return nil, 0, nil
	}

	page, pageSize = coercePage(page, pageSize)

	var total int
	if err := e.db.QueryRow(ctx,
		`SELECT count(*) FROM server_performance WHERE server_name = $1 AND ts BETWEEN $2 AND $3`,
		host, t0, t1,
	).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("query: count performance: %w", err)
	}

	rows, err := e.db.Query(ctx, `
SELECT server_name, ts,
	cpu_percent, cpu_percent_rate, usr_percent, usr_percent_rate,
	system_percent, system_percent_rate, nice_percent, nice_percent_rate,
	idle_percent, idle_percent_rate, iowait_percent, iowait_percent_rate,
	irq_percent, irq_percent_rate, softirq_percent, softirq_percent_rate,
	load_avg_1, load_avg_1_rate, load_avg_3, load_avg_3_rate,
	load_avg_15, load_avg_15_rate, net_in_mibps, net_in_mibps_rate,
	net_out_mibps, net_out_mibps_rate, score
FROM server_performance
WHERE server_name = $1 AND ts BETWEEN $2 AND $3
ORDER BY ts DESC
LIMIT $4 OFFSET $5`,
		host, t0, t1, pageSize, offsetFor(page, pageSize),
	)
	if err != nil {
		return nil, 0, fmt.Errorf("query: performance rows: %w", err)
	}
	defer rows.Close()

	var out []store.PerformanceRow

	for rows.Next() {
		r, err := scanPerformanceRow(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("query: scan performance row: %w", err)
		}

		out = append(out, r)
	}

	return out, total, rows.Err()
}

func scanPerformanceRow(row pgx.Row) (store.PerformanceRow, error) {
	var r store.PerformanceRow

	err := row.Scan(
		&r.ServerName, &r.Timestamp,
		&r.CPUPercent, &r.CPUPercentRate, &r.UsrPercent, &r.UsrPercentRate,
		&r.SystemPercent, &r.SystemPercentRate, &r.NicePercent, &r.NicePercentRate,
		&r.IdlePercent, &r.IdlePercentRate, &r.IOWaitPercent, &r.IOWaitPercentRate,
		&r.IRQPercent, &r.IRQPercentRate, &r.SoftIRQPercent, &r.SoftIRQPercentRate,
		&r.LoadAvg1, &r.LoadAvg1Rate, &r.LoadAvg3, &r.LoadAvg3Rate,
		&r.LoadAvg15, &r.LoadAvg15Rate, &r.NetInMiBps, &r.NetInMiBpsRate,
		&r.NetOutMiBps, &r.NetOutMiBpsRate, &r.Score,
	)

	return r, err
}

// TrendPoint is one bucket (or raw row, when interval_s == 0) of the
// trend query.
type TrendPoint struct {
	Bucket     time.Time
	CPUPercent float64
	MemPercent float64
	LoadAvg1   float64
	Score      float64
}

// QueryTrend buckets performance rows by intervalS seconds and averages
// cpu_percent/load_avg_1/score within each bucket; intervalS == 0 returns
// raw rows ascending instead. mem_percent is always 0 here since it is
// tracked in the mem-detail table, not performance — callers needing a
// joined mem trend should query QueryMemDetail separately.
func (e *Engine) QueryTrend(ctx context.Context, host string, t0, t1 time.Time, intervalS int) ([]TrendPoint, error) {
	if !e.validRange(t0, t1) {
		return nil, nil
	}

	var rows pgx.Rows
	var err error

	if intervalS > 0 {
		rows, err = e.db.Query(ctx, `
SELECT to_timestamp(floor(extract(epoch FROM ts) / $4) * $4) AS bucket,
	avg(cpu_percent), avg(load_avg_1), avg(score)
FROM server_performance
WHERE server_name = $1 AND ts BETWEEN $2 AND $3
GROUP BY bucket
ORDER BY bucket ASC`,
			host, t0, t1, intervalS,
		)
	} else {
		rows, err = e.db.Query(ctx, `
SELECT ts, cpu_percent, load_avg_1, score
FROM server_performance
WHERE server_name = $1 AND ts BETWEEN $2 AND $3
ORDER BY ts ASC`,
			host, t0, t1,
		)
	}

	if err != nil {
		return nil, fmt.Errorf("query: trend: %w", err)
	}
	defer rows.Close()

	var out []TrendPoint

	for rows.Next() {
		p, err := scanTrendPoint(rows)
		if err != nil {
			return nil, fmt.Errorf("query: scan trend row: %w", err)
		}

		out = append(out, p)
	}

	return out, rows.Err()
}

func scanTrendPoint(row pgx.Row) (TrendPoint, error) {
	var p TrendPoint

	err := row.Scan(&p.Bucket, &p.CPUPercent, &p.LoadAvg1, &p.Score)

	return p, err
}

// AnomalyType classifies the metric that breached its threshold.
type AnomalyType string

const (
	AnomalyCPUHigh   AnomalyType = "CPU_HIGH"
	AnomalyMemHigh   AnomalyType = "MEM_HIGH"
	AnomalyDiskHigh  AnomalyType = "DISK_HIGH"
	AnomalyRateSpike AnomalyType = "RATE_SPIKE"
)

// Severity is CRITICAL or WARNING.
type Severity string

const (
	SeverityCritical Severity = "CRITICAL"
	SeverityWarning  Severity = "WARNING"
)

// AnomalyThresholds gates which breaches are reported; severity itself is
// always decided by the fixed 95%/1.0-rate boundary, not by these values.
type AnomalyThresholds struct {
	CPU        float64
	Mem        float64
	Disk       float64
	ChangeRate float64
}

// AnomalyRecord is one breached metric on one row.
type AnomalyRecord struct {
	ServerName string
	Timestamp  time.Time
	Type       AnomalyType
	Severity   Severity
	Value      float64
}

const utilizationCriticalBoundary = 95.0
const rateCriticalBoundary = 1.0

func utilSeverity(value float64) Severity {
	if value > utilizationCriticalBoundary {
		return SeverityCritical
	}

	return SeverityWarning
}

func rateSeverity(rate float64) Severity {
	if abs(rate) > rateCriticalBoundary {
		return SeverityCritical
	}

	return SeverityWarning
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}

	return v
}

// QueryAnomaly scans performance rows (joined to the latest mem- and
// disk-detail rows for the same sample timestamp) for threshold breaches
// and emits zero or more AnomalyRecords per row. Pagination applies to
// the underlying row scan, not to the emitted record count.
func (e *Engine) QueryAnomaly(ctx context.Context, host string, t0, t1 time.Time, th AnomalyThresholds, page, pageSize int) ([]AnomalyRecord, int, error) {
	if !e.validRange(t0, t1) {
		return nil, 0, nil
	}

	page, pageSize = coercePage(page, pageSize)

	hostFilter := "($1 = '' OR p.server_name = $1)"

	var total int
	if err := e.db.QueryRow(ctx,
		`SELECT count(*) FROM server_performance p WHERE `+hostFilter+` AND p.ts BETWEEN $2 AND $3`,
		host, t0, t1,
	).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("query: count anomaly rows: %w", err)
	}

	rows, err := e.db.Query(ctx, `
SELECT p.server_name, p.ts, p.cpu_percent, p.cpu_percent_rate,
	COALESCE(m.used_percent, 0), COALESCE(d.max_util, 0)
FROM server_performance p
LEFT JOIN server_mem_detail m ON m.server_name = p.server_name AND m.ts = p.ts
LEFT JOIN (
	SELECT server_name, ts, max(util_percent) AS max_util
	FROM server_disk_detail
	GROUP BY server_name, ts
) d ON d.server_name = p.server_name AND d.ts = p.ts
WHERE `+hostFilter+` AND p.ts BETWEEN $2 AND $3
ORDER BY p.ts DESC
LIMIT $4 OFFSET $5`,
		host, t0, t1, pageSize, offsetFor(page, pageSize),
	)
	if err != nil {
		return nil, 0, fmt.Errorf("query: anomaly rows: %w", err)
	}
	defer rows.Close()

	var out []AnomalyRecord

	for rows.Next() {
		src, err := scanAnomalySource(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("query: scan anomaly row: %w", err)
		}

		out = append(out, classify(src, th)...)
	}

	return out, total, rows.Err()
}

// anomalySource is one performance row joined to the matching mem- and
// disk-detail metrics, before threshold classification.
type anomalySource struct {
	ServerName string
	Timestamp  time.Time
	CPUPercent float64
	CPURate    float64
	MemPercent float64
	DiskUtil   float64
}

func scanAnomalySource(row pgx.Row) (anomalySource, error) {
	var src anomalySource

	err := row.Scan(&src.ServerName, &src.Timestamp, &src.CPUPercent, &src.CPURate, &src.MemPercent, &src.DiskUtil)

	return src, err
}

// classify emits one AnomalyRecord per breached metric on src.
func classify(src anomalySource, th AnomalyThresholds) []AnomalyRecord {
	var out []AnomalyRecord

	if src.CPUPercent > th.CPU {
		out = append(out, AnomalyRecord{src.ServerName, src.Timestamp, AnomalyCPUHigh, utilSeverity(src.CPUPercent), src.CPUPercent})
	}

	if src.MemPercent > th.Mem {
		out = append(out, AnomalyRecord{src.ServerName, src.Timestamp, AnomalyMemHigh, utilSeverity(src.MemPercent), src.MemPercent})
	}

	if src.DiskUtil > th.Disk {
		out = append(out, AnomalyRecord{src.ServerName, src.Timestamp, AnomalyDiskHigh, utilSeverity(src.DiskUtil), src.DiskUtil})
	}

	if abs(src.CPURate) > th.ChangeRate {
		out = append(out, AnomalyRecord{src.ServerName, src.Timestamp, AnomalyRateSpike, rateSeverity(src.CPURate), src.CPURate})
	}

	return out
}

// ScoreRow is one host's latest score.
type ScoreRow struct {
	ServerName string
	Timestamp  time.Time
	Score      float64
}

// QueryScoreRank returns each host's latest score ordered asc/desc.
func (e *Engine) QueryScoreRank(ctx context.Context, order string, page, pageSize int) ([]ScoreRow, int, error) {
	page, pageSize = coercePage(page, pageSize)

	direction := "DESC"
	if order == "asc" || order == "ASC" {
		direction = "ASC"
	}

	var total int
	if err := e.db.QueryRow(ctx, `SELECT count(DISTINCT server_name) FROM server_performance`).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("query: count score rank: %w", err)
	}

	rows, err := e.db.Query(ctx, fmt.Sprintf(`
SELECT p.server_name, p.ts, p.score
FROM server_performance p
JOIN (
	SELECT server_name, max(ts) AS ts FROM server_performance GROUP BY server_name
) latest ON latest.server_name = p.server_name AND latest.ts = p.ts
ORDER BY p.score %s
LIMIT $1 OFFSET $2`, direction),
		pageSize, offsetFor(page, pageSize),
	)
	if err != nil {
		return nil, 0, fmt.Errorf("query: score rank: %w", err)
	}
	defer rows.Close()

	var out []ScoreRow

	for rows.Next() {
		r, err := scanScoreRow(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("query: scan score rank row: %w", err)
		}

		out = append(out, r)
	}

	return out, total, rows.Err()
}

func scanScoreRow(row pgx.Row) (ScoreRow, error) {
	var r ScoreRow

	err := row.Scan(&r.ServerName, &r.Timestamp, &r.Score)

	return r, err
}

// ClusterStats summarizes the latest-score rows returned by QueryLatestScore.
type ClusterStats struct {
	Total       int
	Online      int
	Offline     int
	AvgScore    float64
	MaxScore    float64
	MinScore    float64
	BestServer  string
	WorstServer string
}

// QueryLatestScore returns every host's latest score row and a cluster
// summary. now is passed in (rather than taken from time.Now internally)
// so ONLINE/OFFLINE classification is deterministic in tests.
func (e *Engine) QueryLatestScore(ctx context.Context, now time.Time) ([]ScoreRow, ClusterStats, error) {
	rows, err := e.db.Query(ctx, `
SELECT p.server_name, p.ts, p.score
FROM server_performance p
JOIN (
	SELECT server_name, max(ts) AS ts FROM server_performance GROUP BY server_name
) latest ON latest.server_name = p.server_name AND latest.ts = p.ts`)
	if err != nil {
		return nil, ClusterStats{}, fmt.Errorf("query: latest score: %w", err)
	}
	defer rows.Close()

	var scores []ScoreRow

	for rows.Next() {
		r, err := scanScoreRow(rows)
		if err != nil {
			return nil, ClusterStats{}, fmt.Errorf("query: scan latest score row: %w", err)
		}

		scores = append(scores, r)
	}

	if err := rows.Err(); err != nil {
		return nil, ClusterStats{}, err
	}

	return scores, summarize(scores, now, e.liveness), nil
}

func summarize(scores []ScoreRow, now time.Time, liveness time.Duration) ClusterStats {
	var stats ClusterStats

	if len(scores) == 0 {
		return stats
	}

	stats.Total = len(scores)
	stats.MinScore = scores[0].Score
	stats.MaxScore = scores[0].Score
	stats.BestServer = scores[0].ServerName
	stats.WorstServer = scores[0].ServerName

	var sum float64

	for _, s := range scores {
		sum += s.Score

		if now.Sub(s.Timestamp) <= liveness {
			stats.Online++
		} else {
			stats.Offline++
		}

		if s.Score > stats.MaxScore {
			stats.MaxScore = s.Score
			stats.BestServer = s.ServerName
		}

		if s.Score < stats.MinScore {
			stats.MinScore = s.Score
			stats.WorstServer = s.ServerName
		}
	}

	stats.AvgScore = sum / float64(len(scores))

	return stats
}

// QueryNetDetail returns paginated per-NIC rows for host within [t0,t1].
func (e *Engine) QueryNetDetail(ctx context.Context, host string, t0, t1 time.Time, page, pageSize int) ([]store.NetDetailRow, int, error) {
	if !e.validRange(t0, t1) {
		return nil, 0, nil
	}

	page, pageSize = coercePage(page, pageSize)

	var total int
	if err := e.db.QueryRow(ctx,
		`SELECT count(*) FROM server_net_detail WHERE server_name = $1 AND ts BETWEEN $2 AND $3`,
		host, t0, t1,
	).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("query: count net detail: %w", err)
	}

	rows, err := e.db.Query(ctx, `
SELECT server_name, net_name, ts,
	rcv_rate, rcv_rate_rate, send_rate, send_rate_rate,
	rcv_packets_rate, rcv_packets_rate_rate, send_packets_rate, send_packets_rate_rate,
	err_in, err_in_rate, err_out, err_out_rate,
	drop_in, drop_in_rate, drop_out, drop_out_rate
FROM server_net_detail
WHERE server_name = $1 AND ts BETWEEN $2 AND $3
ORDER BY ts DESC
LIMIT $4 OFFSET $5`,
		host, t0, t1, pageSize, offsetFor(page, pageSize),
	)
	if err != nil {
		return nil, 0, fmt.Errorf("query: net detail rows: %w", err)
	}
	defer rows.Close()

	var out []store.NetDetailRow

	for rows.Next() {
		r, err := scanNetDetailRow(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("query: scan net detail row: %w", err)
		}

		out = append(out, r)
	}

	return out, total, rows.Err()
}

func scanNetDetailRow(row pgx.Row) (store.NetDetailRow, error) {
	var r store.NetDetailRow

	err := row.Scan(
		&r.ServerName, &r.NetName, &r.Timestamp,
		&r.RcvRate, &r.RcvRateRate, &r.SendRate, &r.SendRateRate,
		&r.RcvPacketsRate, &r.RcvPacketsRateRate, &r.SendPacketsRate, &r.SendPacketsRateRate,
		&r.ErrIn, &r.ErrInRate, &r.ErrOut, &r.ErrOutRate,
		&r.DropIn, &r.DropInRate, &r.DropOut, &r.DropOutRate,
	)

	return r, err
}

// QueryDiskDetail returns paginated per-disk rows for host within [t0,t1].
func (e *Engine) QueryDiskDetail(ctx context.Context, host string, t0, t1 time.Time, page, pageSize int) ([]store.DiskDetailRow, int, error) {
	if !e.validRange(t0, t1) {
		return nil, 0, nil
	}

	page, pageSize = coercePage(page, pageSize)

	var total int
	if err := e.db.QueryRow(ctx,
		`SELECT count(*) FROM server_disk_detail WHERE server_name = $1 AND ts BETWEEN $2 AND $3`,
		host, t0, t1,
	).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("query: count disk detail: %w", err)
	}

	rows, err := e.db.Query(ctx, `
SELECT server_name, disk_name, ts,
	read_bytes_per_sec, read_bytes_per_sec_rate, write_bytes_per_sec, write_bytes_per_sec_rate,
	read_iops, read_iops_rate, write_iops, write_iops_rate,
	avg_read_latency_ms, avg_read_latency_ms_rate, avg_write_latency_ms, avg_write_latency_ms_rate,
	util_percent, util_percent_rate,
	reads, reads_rate, writes, writes_rate,
	sectors_read, sectors_read_rate, sectors_written, sectors_written_rate,
	read_time_ms, read_time_ms_rate, write_time_ms, write_time_ms_rate,
	io_in_progress, io_in_progress_rate, io_time_ms, io_time_ms_rate,
	weighted_io_time_ms, weighted_io_time_ms_rate
FROM server_disk_detail
WHERE server_name = $1 AND ts BETWEEN $2 AND $3
ORDER BY ts DESC
LIMIT $4 OFFSET $5`,
		host, t0, t1, pageSize, offsetFor(page, pageSize),
	)
	if err != nil {
		return nil, 0, fmt.Errorf("query: disk detail rows: %w", err)
	}
	defer rows.Close()

	var out []store.DiskDetailRow

	for rows.Next() {
		r, err := scanDiskDetailRow(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("query: scan disk detail row: %w", err)
		}

		out = append(out, r)
	}

	return out, total, rows.Err()
}

func scanDiskDetailRow(row pgx.Row) (store.DiskDetailRow, error) {
	var r store.DiskDetailRow

	err := row.Scan(
		&r.ServerName, &r.DiskName, &r.Timestamp,
		&r.ReadBytesPerSec, &r.ReadBytesPerSecRate, &r.WriteBytesPerSec, &r.WriteBytesPerSecRate,
		&r.ReadIOPS, &r.ReadIOPSRate, &r.WriteIOPS, &r.WriteIOPSRate,
		&r.AvgReadLatencyMs, &r.AvgReadLatencyMsRate, &r.AvgWriteLatencyMs, &r.AvgWriteLatencyMsRate,
		&r.UtilPercent, &r.UtilPercentRate,
		&r.Reads, &r.ReadsRate, &r.Writes, &r.WritesRate,
		&r.SectorsRead, &r.SectorsReadRate, &r.SectorsWritten, &r.SectorsWrittenRate,
		&r.ReadTimeMs, &r.ReadTimeMsRate, &r.WriteTimeMs, &r.WriteTimeMsRate,
		&r.IOInProgress, &r.IOInProgressRate, &r.IOTimeMs, &r.IOTimeMsRate,
		&r.WeightedIOTimeMs, &r.WeightedIOTimeMsRate,
	)

	return r, err
}

// QueryMemDetail returns paginated memory-detail rows for host within [t0,t1].
func (e *Engine) QueryMemDetail(ctx context.Context, host string, t0, t1 time.Time, page, pageSize int) ([]store.MemDetailRow, int, error) {
	if !e.validRange(t0, t1) {
		return nil, 0, nil
	}

	page, pageSize = coercePage(page, pageSize)

	var total int
	if err := e.db.QueryRow(ctx,
		`SELECT count(*) FROM server_mem_detail WHERE server_name = $1 AND ts BETWEEN $2 AND $3`,
		host, t0, t1,
	).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("query: count mem detail: %w", err)
	}

	rows, err := e.db.Query(ctx, `
SELECT server_name, ts,
	total, total_rate, free, free_rate, avail, avail_rate,
	used_percent, used_percent_rate, buffers, buffers_rate,
	cached, cached_rate, swap_cached, swap_cached_rate,
	active, active_rate, inactive, inactive_rate,
	active_anon, active_anon_rate, inactive_anon, inactive_anon_rate,
	active_file, active_file_rate, inactive_file, inactive_file_rate,
	dirty, dirty_rate, writeback, writeback_rate,
	anon_pages, anon_pages_rate, mapped, mapped_rate,
	kreclaimable, kreclaimable_rate, sreclaimable, sreclaimable_rate,
	sunreclaim, sunreclaim_rate
FROM server_mem_detail
WHERE server_name = $1 AND ts BETWEEN $2 AND $3
ORDER BY ts DESC
LIMIT $4 OFFSET $5`,
		host, t0, t1, pageSize, offsetFor(page, pageSize),
	)
	if err != nil {
		return nil, 0, fmt.Errorf("query: mem detail rows: %w", err)
	}
	defer rows.Close()

	var out []store.MemDetailRow

	for rows.Next() {
		r, err := scanMemDetailRow(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("query: scan mem detail row: %w", err)
		}

		out = append(out, r)
	}

	return out, total, rows.Err()
}

func scanMemDetailRow(row pgx.Row) (store.MemDetailRow, error) {
	var r store.MemDetailRow

	err := row.Scan(
		&r.ServerName, &r.Timestamp,
		&r.Total, &r.TotalRate, &r.Free, &r.FreeRate, &r.Avail, &r.AvailRate,
		&r.UsedPercent, &r.UsedPercentRate, &r.Buffers, &r.BuffersRate,
		&r.Cached, &r.CachedRate, &r.SwapCached, &r.SwapCachedRate,
		&r.Active, &r.ActiveRate, &r.Inactive, &r.InactiveRate,
		&r.ActiveAnon, &r.ActiveAnonRate, &r.InactiveAnon, &r.InactiveAnonRate,
		&r.ActiveFile, &r.ActiveFileRate, &r.InactiveFile, &r.InactiveFileRate,
		&r.Dirty, &r.DirtyRate, &r.Writeback, &r.WritebackRate,
		&r.AnonPages, &r.AnonPagesRate, &r.Mapped, &r.MappedRate,
		&r.KReclaimable, &r.KReclaimableRate, &r.SReclaimable, &r.SReclaimableRate,
		&r.SUnreclaim, &r.SUnreclaimRate,
	)

	return r, err
}

// QuerySoftIrqDetail returns paginated per-CPU soft-IRQ rows for host
// within [t0,t1].
func (e *Engine) QuerySoftIrqDetail(ctx context.Context, host string, t0, t1 time.Time, page, pageSize int) ([]store.SoftIRQDetailRow, int, error) {
	if !e.validRange(t0, t1) {
		return nil, 0, nil
	}

	page, pageSize = coercePage(page, pageSize)

	var total int
	if err := e.db.QueryRow(ctx,
		`SELECT count(*) FROM server_softirq_detail WHERE server_name = $1 AND ts BETWEEN $2 AND $3`,
		host, t0, t1,
	).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("query: count softirq detail: %w", err)
	}

	rows, err := e.db.Query(ctx, `
SELECT server_name, cpu_name, ts,
	hi, hi_rate, timer, timer_rate, net_tx, net_tx_rate, net_rx, net_rx_rate,
	block, block_rate, irq_poll, irq_poll_rate, tasklet, tasklet_rate,
	sched, sched_rate, hr_timer, hr_timer_rate, rcu, rcu_rate
FROM server_softirq_detail
WHERE server_name = $1 AND ts BETWEEN $2 AND $3
ORDER BY ts DESC
LIMIT $4 OFFSET $5`,
		host, t0, t1, pageSize, offsetFor(page, pageSize),
	)
	if err != nil {
		return nil, 0, fmt.Errorf("query: softirq detail rows: %w", err)
	}
	defer rows.Close()

	var out []store.SoftIRQDetailRow

	for rows.Next() {
		r, err := scanSoftIRQDetailRow(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("query: scan softirq detail row: %w", err)
		}

		out = append(out, r)
	}

	return out, total, rows.Err()
}

func scanSoftIRQDetailRow(row pgx.Row) (store.SoftIRQDetailRow, error) {
	var r store.SoftIRQDetailRow

	err := row.Scan(
		&r.ServerName, &r.CPUName, &r.Timestamp,
		&r.Hi, &r.HiRate, &r.Timer, &r.TimerRate, &r.NetTx, &r.NetTxRate, &r.NetRx, &r.NetRxRate,
		&r.Block, &r.BlockRate, &r.IRQPoll, &r.IRQPollRate, &r.Tasklet, &r.TaskletRate,
		&r.Sched, &r.SchedRate, &r.HRTimer, &r.HRTimerRate, &r.RCU, &r.RCURate,
	)

	return r, err
}
