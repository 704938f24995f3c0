package reporting

import (
	"context"
	"sort"
	"time"

	"starknet-probe/internal/domain"
	"starknet-probe/internal/storage"
)

// maxRecentFailures caps the failures section of a report.
const maxRecentFailures = 20

// Generator produces reports from stored probe runs. Latency percentiles
// come from the latency timeseries when a latency store is available, and
// fall back to the per-run check results otherwise.
type Generator struct {
	runStore     storage.ProbeRunStore
	latencyStore storage.LatencySampleStore // optional
	now          func() time.Time           // Injectable clock for deterministic output
}

// NewGenerator creates a new report generator. latencyStore may be nil.
func NewGenerator(runStore storage.ProbeRunStore, latencyStore storage.LatencySampleStore) *Generator {
	return &Generator{
		runStore:     runStore,
		latencyStore: latencyStore,
		now:          func() time.Time { return time.Now().UTC() },
	}
}

// WithClock sets a custom clock function for deterministic output.
func (g *Generator) WithClock(now func() time.Time) *Generator {
	g.now = now
	return g
}

// Generate produces a report over runs started within [start, end] (Unix ms).
func (g *Generator) Generate(ctx context.Context, start, end int64) (*Report, error) {
	runs, err := g.runStore.GetByTimeRange(ctx, start, end)
	if err != nil {
		return nil, err
	}

	report := &Report{
		GeneratedAt: g.now(),
		WindowStart: start,
		WindowEnd:   end,
		RunSummary:  summarizeRuns(runs),
		CheckStats:  computeCheckStats(runs),
	}
	if len(runs) > 0 {
		report.Network = runs[0].Network
	}
	report.RecentFailures = collectFailures(runs, maxRecentFailures)

	if err := g.overlayLatencyStats(ctx, report.CheckStats, start, end); err != nil {
		return nil, err
	}

	return report, nil
}

// overlayLatencyStats replaces run-derived latency stats with ones computed
// from the latency timeseries, which also covers samples from runs whose
// rows were pruned. Checks with no samples in the window keep the fallback.
func (g *Generator) overlayLatencyStats(ctx context.Context, rows []CheckStatRow, start, end int64) error {
	if g.latencyStore == nil {
		return nil
	}

	for i := range rows {
		samples, err := g.latencyStore.GetByCheck(ctx, rows[i].Name, start, end)
		if err != nil {
			return err
		}
		if len(samples) == 0 {
			continue
		}

		latencies := make([]int64, 0, len(samples))
		for _, sample := range samples {
			latencies = append(latencies, sample.LatencyMS)
		}
		rows[i].LatencyMeanMS = mean(latencies)
		rows[i].LatencyP50MS = percentile(latencies, 0.50)
		rows[i].LatencyP95MS = percentile(latencies, 0.95)
	}
	return nil
}

func summarizeRuns(runs []*domain.ProbeRun) RunSummary {
	summary := RunSummary{TotalRuns: len(runs)}
	for _, run := range runs {
		if run.Passed {
			summary.PassedRuns++
		} else {
			summary.FailedRuns++
		}
	}
	if len(runs) > 0 {
		summary.PassRate = float64(summary.PassedRuns) / float64(len(runs))
		summary.FirstRunAt = runs[0].StartedAt
		summary.LastRunAt = runs[len(runs)-1].StartedAt
	}
	return summary
}

func computeCheckStats(runs []*domain.ProbeRun) []CheckStatRow {
	type acc struct {
		row       CheckStatRow
		latencies []int64
	}
	byName := make(map[string]*acc)

	for _, run := range runs {
		for _, result := range run.Results {
			a, ok := byName[result.Name]
			if !ok {
				a = &acc{row: CheckStatRow{Name: result.Name}}
				byName[result.Name] = a
			}
			switch result.Status {
			case domain.StatusSkip:
				a.row.Skipped++
				continue
			case domain.StatusPass:
				a.row.Passed++
			case domain.StatusFail:
				a.row.Failed++
			}
			a.row.Executed++
			a.latencies = append(a.latencies, result.LatencyMS)
		}
	}

	rows := make([]CheckStatRow, 0, len(byName))
	for _, a := range byName {
		if a.row.Executed > 0 {
			a.row.PassRate = float64(a.row.Passed) / float64(a.row.Executed)
			a.row.LatencyMeanMS = mean(a.latencies)
			a.row.LatencyP50MS = percentile(a.latencies, 0.50)
			a.row.LatencyP95MS = percentile(a.latencies, 0.95)
		}
		rows = append(rows, a.row)
	}

	sort.Slice(rows, func(i, j int) bool { return rows[i].Name < rows[j].Name })
	return rows
}

// collectFailures walks runs newest-first and gathers up to limit failed checks.
func collectFailures(runs []*domain.ProbeRun, limit int) []FailureRow {
	var failures []FailureRow
	for i := len(runs) - 1; i >= 0 && len(failures) < limit; i-- {
		run := runs[i]
		for _, result := range run.Results {
			if result.Status != domain.StatusFail {
				continue
			}
			failures = append(failures, FailureRow{
				RunID:     run.RunID,
				StartedAt: run.StartedAt,
				Check:     result.Name,
				Error:     result.Error,
			})
			if len(failures) == limit {
				break
			}
		}
	}
	return failures
}

func mean(values []int64) float64 {
	if len(values) == 0 {
		return 0
	}
	var sum int64
	for _, v := range values {
		sum += v
	}
	return float64(sum) / float64(len(values))
}

// percentile returns the nearest-rank percentile of values. p in (0, 1].
func percentile(values []int64, p float64) int64 {
	if len(values) == 0 {
		return 0
	}
	sorted := make([]int64, len(values))
	copy(sorted, values)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

	rank := int(float64(len(sorted))*p+0.5) - 1
	if rank < 0 {
		rank = 0
	}
	if rank >= len(sorted) {
		rank = len(sorted) - 1
	}
	return sorted[rank]
}
