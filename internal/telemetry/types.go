// Package telemetry holds the inbound sample shape pushed by worker agents
// and the directory entry derived from it.
package telemetry

import "time"

// HostInfo carries the identity fields a worker reports about itself.
type HostInfo struct {
	Hostname  string
	IPAddress string
}

// CPUStat is one entry in MonitorInfo.CPUStats. Index 0 is the aggregate
// "cpu" line; subsequent entries are per-core.
type CPUStat struct {
	CPUPercent     float64
	UsrPercent     float64
	SystemPercent  float64
	NicePercent    float64
	IdlePercent    float64
	IOWaitPercent  float64
	IRQPercent     float64
	SoftIRQPercent float64
}

// CPULoad carries the standard Unix load averages.
type CPULoad struct {
	LoadAvg1  float64
	LoadAvg3  float64
	LoadAvg15 float64
}

// MemInfo is the memory-detail snapshot.
type MemInfo struct {
	Total        uint64
	Free         uint64
	Avail        uint64
	UsedPercent  float64
	Buffers      uint64
	Cached       uint64
	SwapCached   uint64
	Active       uint64
	Inactive     uint64
	ActiveAnon   uint64
	InactiveAnon uint64
	ActiveFile   uint64
	InactiveFile uint64
	Dirty        uint64
	Writeback    uint64
	AnonPages    uint64
	Mapped       uint64
	KReclaimable uint64
	SReclaimable uint64
	SUnreclaim   uint64
}

// NetInfo is a single NIC's rate/error/drop snapshot.
type NetInfo struct {
	Name            string
	RcvRate         float64
	SendRate        float64
	RcvPacketsRate  float64
	SendPacketsRate float64
	ErrIn           uint64
	ErrOut          uint64
	DropIn          uint64
	DropOut         uint64
}

// DiskInfo is a single disk's derived rate/latency snapshot plus the raw
// counters it was computed from.
type DiskInfo struct {
	Name              string
	ReadBytesPerSec   float64
	WriteBytesPerSec  float64
	ReadIOPS          float64
	WriteIOPS         float64
	AvgReadLatencyMs  float64
	AvgWriteLatencyMs float64
	UtilPercent       float64

	Reads            uint64
	Writes           uint64
	SectorsRead      uint64
	SectorsWritten   uint64
	ReadTimeMs       uint64
	WriteTimeMs      uint64
	IOInProgress     uint64
	IOTimeMs         uint64
	WeightedIOTimeMs uint64
}

// SoftIRQ is a single CPU's soft-IRQ counters.
type SoftIRQ struct {
	CPUName string
	Hi      uint64
	Timer   uint64
	NetTx   uint64
	NetRx   uint64
	Block   uint64
	IRQPoll uint64
	Tasklet uint64
	Sched   uint64
	HRTimer uint64
	RCU     uint64
}

// MonitorInfo is the time-less bundle pushed by a worker in one
// PushMonitorInfo call. It carries no timestamp of its own: the Manager
// stamps wall-clock time on receipt.
type MonitorInfo struct {
	Name     string
	HostInfo *HostInfo
	CPUStats []CPUStat
	CPULoad  *CPULoad
	MemInfo  *MemInfo
	NetInfo  []NetInfo
	DiskInfo []DiskInfo
	SoftIRQ  []SoftIRQ
}

// HostScore is a Live Directory entry: the latest sample for a host, its
// composite score, and the wall-clock time it was received.
type HostScore struct {
	Info      MonitorInfo
	Score     float64
	Timestamp time.Time
}
