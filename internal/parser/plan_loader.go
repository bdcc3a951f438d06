package parser

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

/*
LoadPlansFromFile loads one or many mission plans from a JSON file and always
returns a slice. It supports these shapes:

 1. Multi-plan (preferred):
    {
    "plans": [
    { "mission_name": "alpha", "actions": [ ... ] },
    { "actions": [ ... ] }                      // name optional
    ]
    }

 2. Multi-plan (bare array):
    [
    { "mission_name": "alpha", "actions": [ ... ] },
    { "actions": [ ... ] }
    ]

 3. Single plan (treated as 1-element list):
    { "mission_name": "alpha", "actions": [ ... ] }

Unnamed plans are auto-named as "manual:<base>#<index>". Every plan goes
through the same schema checks as generated ones.
*/
func LoadPlansFromFile(path string, reg *ActionRegistry) ([]*MissionPlan, error) {
	clean := filepath.Clean(path)
	if _, err := os.Stat(clean); err != nil {
		return nil, fmt.Errorf("plans file not found: %s", clean)
	}
	data, err := os.ReadFile(clean)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", clean, err)
	}
	return ParsePlans(data, filepath.Base(clean), reg)
}

// ParsePlans is LoadPlansFromFile without the file system; base is used to
// name unnamed plans.
func ParsePlans(data []byte, base string, reg *ActionRegistry) ([]*MissionPlan, error) {
	var doc any
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, &DecodeError{Err: err}
	}

	var items []any
	switch t := doc.(type) {
	case map[string]any:
		if plans, ok := t["plans"]; ok {
			list, isArray := plans.([]any)
			if !isArray {
				return nil, fmt.Errorf("%s: \"plans\" must be an array, got %s", base, kindOf(plans))
			}
			items = list
		} else {
			items = []any{t}
		}
	case []any:
		items = t
	default:
		return nil, fmt.Errorf("unrecognized plans format in %s", base)
	}
	if len(items) == 0 {
		return nil, fmt.Errorf("%s contains no plans", base)
	}

	out := make([]*MissionPlan, 0, len(items))
	for i, item := range items {
		if obj, ok := item.(map[string]any); ok && isBlankName(obj["mission_name"]) {
			obj["mission_name"] = fmt.Sprintf("manual:%s#%d", base, i+1)
		}
		plan, err := validateDocument(item, reg)
		if err != nil {
			return nil, fmt.Errorf("plan #%d in %s: %w", i+1, base, err)
		}
		out = append(out, plan)
	}
	return out, nil
}

func isBlankName(v any) bool {
	if v == nil {
		return true
	}
	s, ok := v.(string)
	return ok && strings.TrimSpace(s) == ""
}

// SelectPlansByNames returns plans matching the given names (case-insensitive)
// in the order asked, plus the names that matched nothing.
func SelectPlansByNames(plans []*MissionPlan, names []string) ([]*MissionPlan, []string) {
	if len(names) == 0 {
		return plans, nil
	}

	var selected []*MissionPlan
	var missing []string

	for _, want := range names {
		w := strings.TrimSpace(want)
		if w == "" {
			continue
		}

		found := false
		for i := range plans {
			if strings.EqualFold(plans[i].MissionName, w) {
				selected = append(selected, plans[i])
				found = true
				break
			}
		}

		if !found {
			missing = append(missing, want)
		}
	}

	return selected, missing
}
