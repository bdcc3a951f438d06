package display

import (
	"fmt"
	"sort"
	"strings"

	"github.com/mattn/go-runewidth"

	"mission-planner/internal/executor"
	"mission-planner/internal/parser"
	"mission-planner/internal/world"
)

const (
	maxPayloadValueLength = 100
	rule                  = "--------------------------------------------------"
)

// stdout plan (truncated)
func FormatPlan(plan *parser.MissionPlan) string {
	return formatPlanInternal(plan, maxPayloadValueLength)
}

// full plan (no truncation), used for logs
func FormatPlanFull(plan *parser.MissionPlan) string {
	return formatPlanInternal(plan, -1)
}

func formatPlanInternal(plan *parser.MissionPlan, limit int) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Proposed mission plan: %s\n", formatValueForDisplay(plan.MissionName, limit)))
	sb.WriteString(rule + "\n")

	if len(plan.Actions) == 0 {
		sb.WriteString("  (no actions)\n")
	}
	for i, action := range plan.Actions {
		sb.WriteString(fmt.Sprintf("%3d. %s\n", i+1, action.Action))
		keys := make([]string, 0, len(action.Parameters))
		for k := range action.Parameters {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			sb.WriteString(fmt.Sprintf("       %s: %s\n", k, formatValueForDisplay(action.Parameters[k], limit)))
		}
	}
	sb.WriteString(rule)
	return sb.String()
}

// Limit a value to limit display cells (limit < 0 means no limit).
func formatValueForDisplay(s string, limit int) string {
	s = strings.ReplaceAll(s, "\n", "\\n")
	if limit >= 0 && runewidth.StringWidth(s) > limit {
		return runewidth.Truncate(s, limit, "") + "..."
	}
	return s
}

func FormatWarnings(warnings []world.Warning) string {
	if len(warnings) == 0 {
		return ""
	}
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%d warning(s):\n", len(warnings)))
	for _, w := range warnings {
		sb.WriteString("  ! " + w.String() + "\n")
	}
	return strings.TrimRight(sb.String(), "\n")
}

// FormatState describes the rover, naming the location it stands on when
// w knows one.
func FormatState(s executor.State, w *world.World) string {
	where := s.Position.String()
	if w != nil {
		if name, ok := w.NameAt(s.Position, 1); ok {
			where += " at " + name
		}
	}
	carrying := "no"
	if s.CarryingSample {
		carrying = "yes"
	}
	return fmt.Sprintf("Rover %s, %s, carrying sample: %s", where, s.Status, carrying)
}
