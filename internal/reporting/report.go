package reporting

import "time"

// Report summarizes probe run history over a time window.
type Report struct {
	// Metadata
	GeneratedAt time.Time
	Network     string
	WindowStart int64 // Unix ms
	WindowEnd   int64 // Unix ms

	// Run Summary
	RunSummary RunSummary

	// Per-check statistics (sorted by check name)
	CheckStats []CheckStatRow

	// Most recent failures, newest first
	RecentFailures []FailureRow
}

// RunSummary aggregates run outcomes across the window.
type RunSummary struct {
	TotalRuns  int
	PassedRuns int
	FailedRuns int
	PassRate   float64 // 0..1, PassedRuns / TotalRuns
	FirstRunAt int64   // Unix ms, zero when no runs
	LastRunAt  int64   // Unix ms, zero when no runs
}

// CheckStatRow aggregates one check across all runs in the window.
type CheckStatRow struct {
	Name     string
	Executed int
	Passed   int
	Failed   int
	Skipped  int
	PassRate float64 // 0..1 over executed runs

	// Latency over executed runs, milliseconds
	LatencyMeanMS float64
	LatencyP50MS  int64
	LatencyP95MS  int64
}

// FailureRow points at one failed check in one run.
type FailureRow struct {
	RunID     string
	StartedAt int64 // Unix ms
	Check     string
	Error     string
}
