package store

// Schema holds the CREATE TABLE statements for the five historical
// tables. Nothing in this module applies it: neither PG nor cmd/manager
// runs it, so creating the tables is left to operator tooling
// (migrations, CNPG bootstrap).
const Schema = `
CREATE TABLE IF NOT EXISTS server_performance (
	server_name varchar(255) NOT NULL,
	ts timestamptz NOT NULL,
	cpu_percent double precision, cpu_percent_rate double precision,
	usr_percent double precision, usr_percent_rate double precision,
	system_percent double precision, system_percent_rate double precision,
	nice_percent double precision, nice_percent_rate double precision,
	idle_percent double precision, idle_percent_rate double precision,
	iowait_percent double precision, iowait_percent_rate double precision,
	irq_percent double precision, irq_percent_rate double precision,
	softirq_percent double precision, softirq_percent_rate double precision,
	load_avg_1 double precision, load_avg_1_rate double precision,
	load_avg_3 double precision, load_avg_3_rate double precision,
	load_avg_15 double precision, load_avg_15_rate double precision,
	net_in_mibps double precision, net_in_mibps_rate double precision,
	net_out_mibps double precision, net_out_mibps_rate double precision,
	score double precision
);

CREATE TABLE IF NOT EXISTS server_net_detail (
	server_name varchar(255) NOT NULL,
	net_name varchar(255) NOT NULL,
	ts timestamptz NOT NULL,
	rcv_rate double precision, rcv_rate_rate double precision,
	send_rate double precision, send_rate_rate double precision,
	rcv_packets_rate double precision, rcv_packets_rate_rate double precision,
	send_packets_rate double precision, send_packets_rate_rate double precision,
	err_in bigint, err_in_rate double precision,
	err_out bigint, err_out_rate double precision,
	drop_in bigint, drop_in_rate double precision,
	drop_out bigint, drop_out_rate double precision
);

CREATE TABLE IF NOT EXISTS server_mem_detail (
	server_name varchar(255) NOT NULL,
	ts timestamptz NOT NULL,
	total bigint, total_rate double precision,
	free bigint, free_rate double precision,
	avail bigint, avail_rate double precision,
	used_percent double precision, used_percent_rate double precision,
	buffers bigint, buffers_rate double precision,
	cached bigint, cached_rate double precision,
	swap_cached bigint, swap_cached_rate double precision,
	active bigint, active_rate double precision,
	inactive bigint, inactive_rate double precision,
	active_anon bigint, active_anon_rate double precision,
	inactive_anon bigint, inactive_anon_rate double precision,
	active_file bigint, active_file_rate double precision,
	inactive_file bigint, inactive_file_rate double precision,
	dirty bigint, dirty_rate double precision,
	writeback bigint, writeback_rate double precision,
	anon_pages bigint, anon_pages_rate double precision,
	mapped bigint, mapped_rate double precision,
	kreclaimable bigint, kreclaimable_rate double precision,
	sreclaimable bigint, sreclaimable_rate double precision,
	sunreclaim bigint, sunreclaim_rate double precision
);

CREATE TABLE IF NOT EXISTS server_disk_detail (
	server_name varchar(255) NOT NULL,
	disk_name varchar(255) NOT NULL,
	ts timestamptz NOT NULL,
	read_bytes_per_sec double precision, read_bytes_per_sec_rate double precision,
	write_bytes_per_sec double precision, write_bytes_per_sec_rate double precision,
	read_iops double precision, read_iops_rate double precision,
	write_iops double precision, write_iops_rate double precision,
	avg_read_latency_ms double precision, avg_read_latency_ms_rate double precision,
	avg_write_latency_ms double precision, avg_write_latency_ms_rate double precision,
	util_percent double precision, util_percent_rate double precision,
	reads bigint, reads_rate double precision,
	writes bigint, writes_rate double precision,
	sectors_read bigint, sectors_read_rate double precision,
	sectors_written bigint, sectors_written_rate double precision,
	read_time_ms bigint, read_time_ms_rate double precision,
	write_time_ms bigint, write_time_ms_rate double precision,
	io_in_progress bigint, io_in_progress_rate double precision,
	io_time_ms bigint, io_time_ms_rate double precision,
	weighted_io_time_ms bigint, weighted_io_time_ms_rate double precision
);

CREATE TABLE IF NOT EXISTS server_softirq_detail (
	server_name varchar(255) NOT NULL,
	cpu_name varchar(255) NOT NULL,
	ts timestamptz NOT NULL,
	hi bigint, hi_rate double precision,
	timer bigint, timer_rate double precision,
	net_tx bigint, net_tx_rate double precision,
	net_rx bigint, net_rx_rate double precision,
	block bigint, block_rate double precision,
	irq_poll bigint, irq_poll_rate double precision,
	tasklet bigint, tasklet_rate double precision,
	sched bigint, sched_rate double precision,
	hr_timer bigint, hr_timer_rate double precision,
	rcu bigint, rcu_rate double precision
);
`
