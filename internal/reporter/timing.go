package reporter

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// StepDuration pairs a step name with its elapsed execution time.
type StepDuration struct {
	StepName string
	Elapsed  time.Duration
}

// TimingReport summarizes a completed run (§4.5): per-step duration
// sorted descending, wall time, and the parallel-speedup ratio
// Σ(step_durations) / wall_time.
type TimingReport struct {
	StepDurations []StepDuration
	WallTime      time.Duration
	SpeedupRatio  float64
}

// BuildTimingReport sorts durations descending and computes the speedup
// ratio against wall.
func BuildTimingReport(durations []StepDuration, wall time.Duration) TimingReport {
	sorted := append([]StepDuration(nil), durations...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Elapsed > sorted[j].Elapsed })

	var sum time.Duration
	for _, d := range sorted {
		sum += d.Elapsed
	}

	ratio := 0.0
	if wall > 0 {
		ratio = sum.Seconds() / wall.Seconds()
	}

	return TimingReport{StepDurations: sorted, WallTime: wall, SpeedupRatio: ratio}
}

// FormatTimingReport renders a report as the end-of-run summary text the
// engine prints after a successful build.
func FormatTimingReport(r TimingReport) string {
	var b strings.Builder
	b.WriteString("Timing report:\n")
	for _, d := range r.StepDurations {
		fmt.Fprintf(&b, "  %-24s %s\n", d.StepName, d.Elapsed.Round(time.Millisecond))
	}
	fmt.Fprintf(&b, "  wall time: %s\n", r.WallTime.Round(time.Millisecond))
	fmt.Fprintf(&b, "  speedup:   %.2fx\n", r.SpeedupRatio)
	return b.String()
}
