package parser

import (
	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Action is one step of a mission. Parameter values are always strings;
// numeric parameters are read through the accessors in params.go.
type Action struct {
	Action     string            `json:"action"`
	Parameters map[string]string `json:"parameters"`
}

// MissionPlan is an ordered list of actions. Plans handed out by this package
// have passed Validate, so Actions and every Parameters map are non-nil.
type MissionPlan struct {
	MissionName string   `json:"mission_name"`
	Actions     []Action `json:"actions"`
}

// JSON renders the plan in its canonical wire form.
func (p *MissionPlan) JSON() string {
	out, err := json.MarshalToString(p)
	if err != nil {
		// Only strings and string maps are reachable from MissionPlan.
		panic("parser: marshal mission plan: " + err.Error())
	}
	return out
}

// IndentedJSON renders the plan for humans.
func (p *MissionPlan) IndentedJSON() string {
	out, err := json.MarshalIndent(p, "", "  ")
	if err != nil {
		panic("parser: marshal mission plan: " + err.Error())
	}
	return string(out)
}

// Clone returns a deep copy so that callers can hand the same plan to
// several actors.
func (p *MissionPlan) Clone() *MissionPlan {
	cp := &MissionPlan{MissionName: p.MissionName, Actions: make([]Action, len(p.Actions))}
	for i, a := range p.Actions {
		params := make(map[string]string, len(a.Parameters))
		for k, v := range a.Parameters {
			params[k] = v
		}
		cp.Actions[i] = Action{Action: a.Action, Parameters: params}
	}
	return cp
}
