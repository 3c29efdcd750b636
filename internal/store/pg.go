package store

import (
	"context"
	"fmt"
	"net/url"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/carverauto/fleetwatch/pkg/logger"
)

// PGConfig is the subset of connection settings the Historical Store
// Adapter needs to dial Postgres, mirroring a CNPG connection pool's
// parameters without its TLS/SPIFFE identity machinery (out of scope here).
type PGConfig struct {
	Host           string
	Port           int
	Database       string
	Username       string
	Password       string
	SSLMode        string
	MaxConnections int32
}

// PG is the pgxpool-backed Writer. Every Insert* method issues exactly
// one parameterized statement; row values never reach the SQL text.
type PG struct {
	pool *pgxpool.Pool
	log  logger.Logger
}

// NewPG dials cfg and returns a ready Writer.
func NewPG(ctx context.Context, cfg PGConfig, log logger.Logger) (*PG, error) {
	if cfg.Port == 0 {
		cfg.Port = 5432
	}

	connURL := url.URL{
		Scheme: "postgres",
		Host:   fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Path:   "/" + cfg.Database,
	}

	if cfg.Username != "" {
		if cfg.Password != "" {
			connURL.User = url.UserPassword(cfg.Username, cfg.Password)
		} else {
			connURL.User = url.User(cfg.Username)
		}
	}

	sslMode := cfg.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}

	q := connURL.Query()
	q.Set("sslmode", sslMode)
	connURL.RawQuery = q.Encode()

	poolConfig, err := pgxpool.ParseConfig(connURL.String())
	if err != nil {
		return nil, fmt.Errorf("store: parse connection string: %w", err)
	}

	if cfg.MaxConnections > 0 {
		poolConfig.MaxConns = cfg.MaxConnections
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("store: initialize pool: %w", err)
	}

	if log != nil {
		log.Info().Str("host", cfg.Host).Int("port", cfg.Port).Msg("connected to historical store")
	}

	return &PG{pool: pool, log: log}, nil
}

// Close releases the underlying pool.
func (p *PG) Close() {
	p.pool.Close()
}

// Pool exposes the underlying connection pool for the Query Engine,
// which reads from the same database this adapter writes to.
func (p *PG) Pool() *pgxpool.Pool {
	return p.pool
}

const insertPerformanceSQL = `
INSERT INTO server_performance (
	server_name, ts,
	cpu_percent, cpu_percent_rate, usr_percent, usr_percent_rate,
	system_percent, system_percent_rate, nice_percent, nice_percent_rate,
	idle_percent, idle_percent_rate, iowait_percent, iowait_percent_rate,
	irq_percent, irq_percent_rate, softirq_percent, softirq_percent_rate,
	load_avg_1, load_avg_1_rate, load_avg_3, load_avg_3_rate,
	load_avg_15, load_avg_15_rate, net_in_mibps, net_in_mibps_rate,
	net_out_mibps, net_out_mibps_rate, score
) VALUES (
	$1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,
	$15,$16,$17,$18,$19,$20,$21,$22,$23,$24,$25,$26,$27,$28,$29
)`

func (p *PG) InsertPerformance(ctx context.Context, r PerformanceRow) error {
	_, err := p.pool.Exec(ctx, insertPerformanceSQL,
		r.ServerName, r.Timestamp,
		r.CPUPercent, r.CPUPercentRate, r.UsrPercent, r.UsrPercentRate,
		r.SystemPercent, r.SystemPercentRate, r.NicePercent, r.NicePercentRate,
		r.IdlePercent, r.IdlePercentRate, r.IOWaitPercent, r.IOWaitPercentRate,
		r.IRQPercent, r.IRQPercentRate, r.SoftIRQPercent, r.SoftIRQPercentRate,
		r.LoadAvg1, r.LoadAvg1Rate, r.LoadAvg3, r.LoadAvg3Rate,
		r.LoadAvg15, r.LoadAvg15Rate, r.NetInMiBps, r.NetInMiBpsRate,
		r.NetOutMiBps, r.NetOutMiBpsRate, r.Score,
	)
	return wrapInsertErr(err, "performance")
}

const insertNetDetailSQL = `
INSERT INTO server_net_detail (
	server_name, net_name, ts,
	rcv_rate, rcv_rate_rate, send_rate, send_rate_rate,
	rcv_packets_rate, rcv_packets_rate_rate, send_packets_rate, send_packets_rate_rate,
	err_in, err_in_rate, err_out, err_out_rate,
	drop_in, drop_in_rate, drop_out, drop_out_rate
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19)`

func (p *PG) InsertNetDetail(ctx context.Context, r NetDetailRow) error {
	_, err := p.pool.Exec(ctx, insertNetDetailSQL,
		r.ServerName, r.NetName, r.Timestamp,
		r.RcvRate, r.RcvRateRate, r.SendRate, r.SendRateRate,
		r.RcvPacketsRate, r.RcvPacketsRateRate, r.SendPacketsRate, r.SendPacketsRateRate,
		r.ErrIn, r.ErrInRate, r.ErrOut, r.ErrOutRate,
		r.DropIn, r.DropInRate, r.DropOut, r.DropOutRate,
	)
	return wrapInsertErr(err, "net_detail")
}

const insertMemDetailSQL = `
INSERT INTO server_mem_detail (
	server_name, ts,
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
) VALUES (
	$1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,
	$17,$18,$19,$20,$21,$22,$23,$24,$25,$26,$27,$28,$29,$30,$31,$32,
	$33,$34,$35,$36,$37,$38,$39,$40,$41,$42
)`

func (p *PG) InsertMemDetail(ctx context.Context, r MemDetailRow) error {
	_, err := p.pool.Exec(ctx, insertMemDetailSQL,
		r.ServerName, r.Timestamp,
		r.Total, r.TotalRate, r.Free, r.FreeRate, r.Avail, r.AvailRate,
		r.UsedPercent, r.UsedPercentRate, r.Buffers, r.BuffersRate,
		r.Cached, r.CachedRate, r.SwapCached, r.SwapCachedRate,
		r.Active, r.ActiveRate, r.Inactive, r.InactiveRate,
		r.ActiveAnon, r.ActiveAnonRate, r.InactiveAnon, r.InactiveAnonRate,
		r.ActiveFile, r.ActiveFileRate, r.InactiveFile, r.InactiveFileRate,
		r.Dirty, r.DirtyRate, r.Writeback, r.WritebackRate,
		r.AnonPages, r.AnonPagesRate, r.Mapped, r.MappedRate,
		r.KReclaimable, r.KReclaimableRate, r.SReclaimable, r.SReclaimableRate,
		r.SUnreclaim, r.SUnreclaimRate,
	)
	return wrapInsertErr(err, "mem_detail")
}

const insertDiskDetailSQL = `
INSERT INTO server_disk_detail (
	server_name, disk_name, ts,
	read_bytes_per_sec, read_bytes_per_sec_rate, write_bytes_per_sec, write_bytes_per_sec_rate,
	read_iops, read_iops_rate, write_iops, write_iops_rate,
	avg_read_latency_ms, avg_read_latency_ms_rate, avg_write_latency_ms, avg_write_latency_ms_rate,
	util_percent, util_percent_rate,
	reads, reads_rate, writes, writes_rate,
	sectors_read, sectors_read_rate, sectors_written, sectors_written_rate,
	read_time_ms, read_time_ms_rate, write_time_ms, write_time_ms_rate,
	io_in_progress, io_in_progress_rate, io_time_ms, io_time_ms_rate,
	weighted_io_time_ms, weighted_io_time_ms_rate
) VALUES (
	$1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,
	$18,$19,$20,$21,$22,$23,$24,$25,$26,$27,$28,$29,$30,$31,$32,$33,$34,$35
)`

func (p *PG) InsertDiskDetail(ctx context.Context, r DiskDetailRow) error {
	_, err := p.pool.Exec(ctx, insertDiskDetailSQL,
		r.ServerName, r.DiskName, r.Timestamp,
		r.ReadBytesPerSec, r.ReadBytesPerSecRate, r.WriteBytesPerSec, r.WriteBytesPerSecRate,
		r.ReadIOPS, r.ReadIOPSRate, r.WriteIOPS, r.WriteIOPSRate,
		r.AvgReadLatencyMs, r.AvgReadLatencyMsRate, r.AvgWriteLatencyMs, r.AvgWriteLatencyMsRate,
		r.UtilPercent, r.UtilPercentRate,
		r.Reads, r.ReadsRate, r.Writes, r.WritesRate,
		r.SectorsRead, r.SectorsReadRate, r.SectorsWritten, r.SectorsWrittenRate,
		r.ReadTimeMs, r.ReadTimeMsRate, r.WriteTimeMs, r.WriteTimeMsRate,
		r.IOInProgress, r.IOInProgressRate, r.IOTimeMs, r.IOTimeMsRate,
		r.WeightedIOTimeMs, r.WeightedIOTimeMsRate,
	)
	return wrapInsertErr(err, "disk_detail")
}

const insertSoftIRQDetailSQL = `
INSERT INTO server_softirq_detail (
	server_name, cpu_name, ts,
	hi, hi_rate, timer, timer_rate, net_tx, net_tx_rate, net_rx, net_rx_rate,
	block, block_rate, irq_poll, irq_poll_rate, tasklet, tasklet_rate,
	sched, sched_rate, hr_timer, hr_timer_rate, rcu, rcu_rate
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20,$21,$22,$23)`

func (p *PG) InsertSoftIRQDetail(ctx context.Context, r SoftIRQDetailRow) error {
	_, err := p.pool.Exec(ctx, insertSoftIRQDetailSQL,
		r.ServerName, r.CPUName, r.Timestamp,
		r.Hi, r.HiRate, r.Timer, r.TimerRate, r.NetTx, r.NetTxRate, r.NetRx, r.NetRxRate,
		r.Block, r.BlockRate, r.IRQPoll, r.IRQPollRate, r.Tasklet, r.TaskletRate,
		r.Sched, r.SchedRate, r.HRTimer, r.HRTimerRate, r.RCU, r.RCURate,
	)
	return wrapInsertErr(err, "softirq_detail")
}

func wrapInsertErr(err error, table string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("store: insert into %s: %w", table, err)
}
