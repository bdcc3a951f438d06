package parser

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrNoJSON is reported when a reply contains no balanced, parseable JSON.
	ErrNoJSON = errors.New("no JSON object or array found in reply")
	ErrDecode = errors.New("plan is not decodable JSON")
)

// Issue is one schema violation. ActionIndex is -1 for plan-level issues.
type Issue struct {
	Path        string
	ActionIndex int
	Key         string
	Expected    string
	Got         string
}

func (i Issue) String() string {
	return fmt.Sprintf("%s: expected %s, got %s", i.Path, i.Expected, i.Got)
}

// SchemaError lists every violation found in a candidate plan. The message
// is written to be sent back to the generator verbatim.
type SchemaError struct {
	Issues []Issue
}

func (e *SchemaError) Error() string {
	lines := make([]string, len(e.Issues))
	for i, issue := range e.Issues {
		lines[i] = issue.String()
	}
	return strings.Join(lines, "\n")
}

type DecodeError struct {
	Err error
}

func (e *DecodeError) Error() string { return fmt.Sprintf("decode plan: %v", e.Err) }

func (e *DecodeError) Unwrap() error { return e.Err }

func (e *DecodeError) Is(target error) bool { return target == ErrDecode }

// Validate decodes candidate and checks it against the mission plan schema
// and the vocabulary of reg (DefaultRegistry when nil). It is the only way
// to obtain a MissionPlan from untrusted text.
func Validate(candidate string, reg *ActionRegistry) (*MissionPlan, error) {
	var doc any
	if err := json.Unmarshal([]byte(candidate), &doc); err != nil {
		return nil, &DecodeError{Err: err}
	}
	return validateDocument(doc, reg)
}

type issueList []Issue

func (l *issueList) add(path string, index int, key, expected, got string) {
	*l = append(*l, Issue{Path: path, ActionIndex: index, Key: key, Expected: expected, Got: got})
}

func validateDocument(doc any, reg *ActionRegistry) (*MissionPlan, error) {
	if reg == nil {
		reg = DefaultRegistry()
	}
	var issues issueList

	obj, ok := doc.(map[string]any)
	if !ok {
		if _, isArray := doc.([]any); isArray {
			issues.add("$", -1, "", `a single JSON object {"mission_name": ..., "actions": [...]}, not a bare array`, "array")
		} else {
			issues.add("$", -1, "", "a JSON object", kindOf(doc))
		}
		return nil, &SchemaError{Issues: issues}
	}

	if reported := obj["error"]; isErrorReport(reported) {
		issues.add("error", -1, "", "a mission plan instead of an error report", describe(reported))
	}

	plan := &MissionPlan{Actions: []Action{}}

	switch name, present := obj["mission_name"]; {
	case !present:
		issues.add("mission_name", -1, "", "a non-empty string", "nothing")
	default:
		s, isString := name.(string)
		switch {
		case !isString:
			issues.add("mission_name", -1, "", "a non-empty string", kindOf(name))
		case strings.TrimSpace(s) == "":
			issues.add("mission_name", -1, "", "a non-empty string", "an empty string")
		default:
			plan.MissionName = s
		}
	}

	rawActions, present := obj["actions"]
	list, isArray := rawActions.([]any)
	switch {
	case !present:
		issues.add("actions", -1, "", "an array of actions", "nothing")
	case !isArray:
		issues.add("actions", -1, "", "an array of actions", kindOf(rawActions))
	default:
		for i, raw := range list {
			if action, ok := validateAction(i, raw, reg, &issues); ok {
				plan.Actions = append(plan.Actions, action)
			}
		}
	}

	if len(issues) > 0 {
		return nil, &SchemaError{Issues: issues}
	}
	return plan, nil
}

func validateAction(i int, raw any, reg *ActionRegistry, issues *issueList) (Action, bool) {
	base := fmt.Sprintf("actions[%d]", i)
	obj, ok := raw.(map[string]any)
	if !ok {
		issues.add(base, i, "", `an object {"action": ..., "parameters": {...}}`, kindOf(raw))
		return Action{}, false
	}

	before := len(*issues)
	action := Action{Parameters: map[string]string{}}

	switch name, present := obj["action"]; {
	case !present:
		issues.add(base+".action", i, "", "an action name", "nothing")
	default:
		s, isString := name.(string)
		switch {
		case !isString:
			issues.add(base+".action", i, "", "an action name string", kindOf(name))
		case strings.TrimSpace(s) == "":
			issues.add(base+".action", i, "", "an action name", "an empty string")
		default:
			action.Action = s
		}
	}

	if rawParams, present := obj["parameters"]; present {
		params, isObject := rawParams.(map[string]any)
		if !isObject {
			issues.add(base+".parameters", i, "", "an object of string values", kindOf(rawParams))
		} else {
			for _, key := range sortedKeys(params) {
				s, isString := params[key].(string)
				if !isString {
					issues.add(paramPath(i, key), i, key, "a string value", kindOf(params[key]))
					continue
				}
				action.Parameters[key] = s
			}
		}
	}

	if len(*issues) > before {
		return Action{}, false
	}
	if extra := reg.actionIssues(i, &action); len(extra) > 0 {
		*issues = append(*issues, extra...)
		return Action{}, false
	}
	return action, true
}

// isErrorReport reports whether an "error" value says something. A null or
// blank value sits harmlessly next to a plan.
func isErrorReport(v any) bool {
	switch v := v.(type) {
	case nil:
		return false
	case string:
		return strings.TrimSpace(v) != ""
	}
	return true
}

func kindOf(v any) string {
	switch v.(type) {
	case nil:
		return "null"
	case string:
		return "string"
	case bool:
		return "boolean"
	case float64:
		return "number"
	case []any:
		return "array"
	case map[string]any:
		return "object"
	}
	return fmt.Sprintf("%T", v)
}

func describe(v any) string {
	if s, ok := v.(string); ok {
		return fmt.Sprintf("%q", s)
	}
	return kindOf(v)
}
