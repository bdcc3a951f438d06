package display

import (
	"fmt"
	"strings"

	"mission-planner/internal/metrics"
	"mission-planner/internal/supervisor"
)

func FormatMissionMetrics(mm *metrics.MissionMetrics) string {
	if mm == nil {
		return "No metrics available."
	}
	var sb strings.Builder
	sb.WriteString("Execution metrics:\n")
	sb.WriteString(fmt.Sprintf("- Total: %d ticks, %.2f s simulated, %.1f units driven, %d ms wall  (success=%v)\n",
		mm.Ticks, mm.SimSeconds, mm.Distance, mm.DurationMs, mm.Succeeded))
	sb.WriteString(fmt.Sprintf("- Photos: %d  Skipped: %d\n", mm.Photos, mm.Skips))
	if mm.Err != "" {
		sb.WriteString(fmt.Sprintf("- Error: %s\n", mm.Err))
	}
	for _, a := range mm.Actions {
		sb.WriteString(fmt.Sprintf("    • %2d %-12s %5d ticks %7.2f s %8.1f u  [%s]",
			a.Index+1, a.Action, a.Ticks, a.SimSeconds, a.Distance, a.Outcome))
		if a.Note != "" {
			sb.WriteString(" " + a.Note)
		}
		sb.WriteString("\n")
	}
	return sb.String()
}

// FormatResult is the one-block summary printed when a mission ends.
func FormatResult(r supervisor.MissionResult) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Mission %s (%s): %s\n", r.MissionID, r.MissionName, r.Status))
	if r.Error != "" {
		sb.WriteString(fmt.Sprintf("Error: %s\n", r.Error))
	}
	sb.WriteString(FormatState(r.FinalState, nil) + "\n")
	if r.Metrics != nil {
		sb.WriteString(FormatMissionMetrics(r.Metrics))
	}
	return strings.TrimRight(sb.String(), "\n")
}
