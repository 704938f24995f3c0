package reporting

import (
	"fmt"
	"strings"
)

// RenderCSV renders check statistics as CSV string.
func RenderCSV(stats []CheckStatRow) string {
	var sb strings.Builder

	// Header
	sb.WriteString("check,executed,passed,failed,skipped,pass_rate,latency_mean_ms,latency_p50_ms,latency_p95_ms\n")

	// Rows
	for _, row := range stats {
		sb.WriteString(fmt.Sprintf("%s,%d,%d,%d,%d,%.6f,%.2f,%d,%d\n",
			row.Name,
			row.Executed,
			row.Passed,
			row.Failed,
			row.Skipped,
			row.PassRate,
			row.LatencyMeanMS,
			row.LatencyP50MS,
			row.LatencyP95MS,
		))
	}

	return sb.String()
}
