package scorer

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/carverauto/fleetwatch/internal/telemetry"
)

func sample(cpu, mem, load1, diskUtil float64) telemetry.MonitorInfo {
	return telemetry.MonitorInfo{
		CPUStats: []telemetry.CPUStat{{CPUPercent: cpu}, {}, {}, {}},
		CPULoad:  &telemetry.CPULoad{LoadAvg1: load1},
		MemInfo:  &telemetry.MemInfo{UsedPercent: mem},
		DiskInfo: []telemetry.DiskInfo{{UtilPercent: diskUtil}},
	}
}

// TestScoreRange checks 0 <= score(info) <= 100 for a spread of inputs,
// including values well outside their normal domain.
func TestScoreRange(t *testing.T) {
	w := DefaultWeights()

	inputs := []float64{-50, 0, 10, 50, 95, 100, 500}
	for _, cpu := range inputs {
		for _, mem := range inputs {
			got := Score(sample(cpu, mem, 1, 5), w)
			require.GreaterOrEqualf(t, got, 0.0, "Score(cpu=%v, mem=%v)", cpu, mem)
			require.LessOrEqualf(t, got, 100.0, "Score(cpu=%v, mem=%v)", cpu, mem)
		}
	}
}

// TestScoreEmptyInfo covers the all-zero default path (no sub-messages).
func TestScoreEmptyInfo(t *testing.T) {
	got := Score(telemetry.MonitorInfo{}, DefaultWeights())
	require.Equal(t, 100.0, got)
}

// TestScoreMonotonicity checks the score is weakly decreasing in each
// pressure dimension, holding the others fixed.
func TestScoreMonotonicity(t *testing.T) {
	w := DefaultWeights()

	base := Score(sample(10, 10, 0.1, 10), w)

	require.LessOrEqual(t, Score(sample(90, 10, 0.1, 10), w), base, "raising cpu_percent must not raise score")
	require.LessOrEqual(t, Score(sample(10, 90, 0.1, 10), w), base, "raising mem used_percent must not raise score")
	require.LessOrEqual(t, Score(sample(10, 10, 5, 10), w), base, "raising load_avg_1 must not raise score")
	require.LessOrEqual(t, Score(sample(10, 10, 0.1, 90), w), base, "raising disk util must not raise score")
}

// TestScoreS1 covers a light-load host: cpu=10, mem=20, load1=0.5, 4
// cpu_stat entries (3 cores), disk util 5, no network load. Expect score
// in [85, 95].
func TestScoreS1(t *testing.T) {
	info := telemetry.MonitorInfo{
		HostInfo: &telemetry.HostInfo{Hostname: "a", IPAddress: "1.1.1.1"},
		CPUStats: []telemetry.CPUStat{{CPUPercent: 10}, {}, {}, {}},
		CPULoad:  &telemetry.CPULoad{LoadAvg1: 0.5},
		MemInfo:  &telemetry.MemInfo{UsedPercent: 20},
		DiskInfo: []telemetry.DiskInfo{{UtilPercent: 5}},
	}

	got := Score(info, DefaultWeights())
	require.GreaterOrEqual(t, got, 85.0)
	require.LessOrEqual(t, got, 95.0)
}

func TestScoreNoCPUStats(t *testing.T) {
	// cores must floor at 1, not go to -1 or 0, when cpu_stat is empty.
	got := Score(telemetry.MonitorInfo{CPULoad: &telemetry.CPULoad{LoadAvg1: 10}}, DefaultWeights())
	require.GreaterOrEqual(t, got, 0.0)
	require.LessOrEqual(t, got, 100.0)
}
