package display

import (
	"fmt"
	"strings"

	"mission-planner/internal/parser"
	"mission-planner/internal/world"
)

// FormatPlansCatalog lists the plans of a plan file. With a world, each
// line also counts the review warnings of that plan.
func FormatPlansCatalog(file string, plans []*parser.MissionPlan, w *world.World) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Found %d mission(s) in %s:\n", len(plans), file))
	for i, p := range plans {
		line := fmt.Sprintf("  %2d. %s  (actions=%d", i+1, p.MissionName, len(p.Actions))
		if w != nil {
			line += fmt.Sprintf(", warnings=%d", len(w.Review(p)))
		}
		sb.WriteString(line + ")\n")
	}
	return sb.String()
}
