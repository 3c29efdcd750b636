// Package scorer computes the composite host-pressure score consumed by
// the Live Directory and the score-rank query.
package scorer

import "github.com/carverauto/fleetwatch/internal/telemetry"

// Weights controls how each sub-score contributes to the final composite
// score. The zero value is invalid; use DefaultWeights.
type Weights struct {
	CPU  float64
	Mem  float64
	Load float64
	Disk float64
	Net  float64
}

// DefaultWeights returns the fixed per-dimension weights: cpu 0.35, mem
// 0.30, load 0.15, disk 0.15, net 0.05.
func DefaultWeights() Weights {
	return Weights{CPU: 0.35, Mem: 0.30, Load: 0.15, Disk: 0.15, Net: 0.05}
}

const (
	netReferenceBps = 2 * 125_000_000 // rcv+send against a ~1 Gbps link
	loadPerCore     = 1.5
)

func clamp01(x float64) float64 {
	switch {
	case x < 0:
		return 0
	case x > 1:
		return 1
	default:
		return x
	}
}

// Score computes a composite utilization-pressure inverse in [0, 100]:
// higher means more headroom. It is a pure function of info and w.
func Score(info telemetry.MonitorInfo, w Weights) float64 {
	cpuPct := 0.0
	if len(info.CPUStats) > 0 {
		cpuPct = info.CPUStats[0].CPUPercent
	}

	cores := len(info.CPUStats) - 1
	if cores < 1 {
		cores = 1
	}

	load1 := 0.0
	if info.CPULoad != nil {
		load1 = info.CPULoad.LoadAvg1
	}

	memPct := 0.0
	if info.MemInfo != nil {
		memPct = info.MemInfo.UsedPercent
	}

	netRate := 0.0
	if len(info.NetInfo) > 0 {
		netRate = info.NetInfo[0].RcvRate + info.NetInfo[0].SendRate
	}

	diskUtil := 0.0
	for _, d := range info.DiskInfo {
		if d.UtilPercent > diskUtil {
			diskUtil = d.UtilPercent
		}
	}

	cpuScore := clamp01(1 - cpuPct/100)
	memScore := clamp01(1 - memPct/100)
	loadScore := clamp01(1 - load1/(float64(cores)*loadPerCore))
	diskScore := clamp01(1 - diskUtil/100)
	netScore := clamp01(1 - netRate/netReferenceBps)

	total := 100 * (w.CPU*cpuScore + w.Mem*memScore + w.Load*loadScore + w.Disk*diskScore + w.Net*netScore)

	switch {
	case total < 0:
		return 0
	case total > 100:
		return 100
	default:
		return total
	}
}
