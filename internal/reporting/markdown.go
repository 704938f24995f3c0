package reporting

import (
	"fmt"
	"strings"
	"time"
)

// RenderMarkdown renders report as Markdown string.
func RenderMarkdown(r *Report) string {
	var sb strings.Builder

	// Header
	sb.WriteString("# Probe Report\n\n")
	sb.WriteString(fmt.Sprintf("Generated: %s\n\n", r.GeneratedAt.Format(time.RFC3339)))
	if r.Network != "" {
		sb.WriteString(fmt.Sprintf("Network: %s\n\n", r.Network))
	}
	sb.WriteString(fmt.Sprintf("Window: %s — %s\n\n",
		time.UnixMilli(r.WindowStart).UTC().Format(time.RFC3339),
		time.UnixMilli(r.WindowEnd).UTC().Format(time.RFC3339)))

	// Run Summary
	sb.WriteString("## Run Summary\n\n")
	sb.WriteString("| Metric | Value |\n")
	sb.WriteString("|--------|-------|\n")
	sb.WriteString(fmt.Sprintf("| Total Runs | %d |\n", r.RunSummary.TotalRuns))
	sb.WriteString(fmt.Sprintf("| Passed | %d |\n", r.RunSummary.PassedRuns))
	sb.WriteString(fmt.Sprintf("| Failed | %d |\n", r.RunSummary.FailedRuns))
	sb.WriteString(fmt.Sprintf("| Pass Rate | %.1f%% |\n", r.RunSummary.PassRate*100))
	sb.WriteString("\n")

	// Check Statistics
	sb.WriteString("## Check Statistics\n\n")
	if len(r.CheckStats) == 0 {
		sb.WriteString("No checks executed in this window.\n\n")
	} else {
		sb.WriteString("| Check | Executed | Passed | Failed | Skipped | Pass Rate | Mean (ms) | p50 (ms) | p95 (ms) |\n")
		sb.WriteString("|-------|----------|--------|--------|---------|-----------|-----------|----------|----------|\n")
		for _, row := range r.CheckStats {
			sb.WriteString(fmt.Sprintf("| %s | %d | %d | %d | %d | %.1f%% | %.1f | %d | %d |\n",
				row.Name, row.Executed, row.Passed, row.Failed, row.Skipped,
				row.PassRate*100, row.LatencyMeanMS, row.LatencyP50MS, row.LatencyP95MS))
		}
		sb.WriteString("\n")
	}

	// Recent Failures
	sb.WriteString("## Recent Failures\n\n")
	if len(r.RecentFailures) == 0 {
		sb.WriteString("No failures in this window.\n")
	} else {
		sb.WriteString("| Run | Started | Check | Error |\n")
		sb.WriteString("|-----|---------|-------|-------|\n")
		for _, f := range r.RecentFailures {
			sb.WriteString(fmt.Sprintf("| %s | %s | %s | %s |\n",
				shortID(f.RunID),
				time.UnixMilli(f.StartedAt).UTC().Format(time.RFC3339),
				f.Check,
				escapePipes(f.Error)))
		}
	}

	return sb.String()
}

// shortID truncates a run ID for table display.
func shortID(id string) string {
	if len(id) > 12 {
		return id[:12]
	}
	return id
}

// escapePipes keeps error messages from breaking Markdown tables.
func escapePipes(s string) string {
	return strings.ReplaceAll(s, "|", "\\|")
}
