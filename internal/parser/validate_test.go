package parser

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const fullPlan = `{
  "mission_name": "sample return",
  "actions": [
    {"action": "move_to", "parameters": {"target_x": "400", "target_y": "250", "speed": "80"}},
    {"action": "pick_up"},
    {"action": "take_photo", "parameters": {"resolution": "1080p"}},
    {"action": "wait", "parameters": {"duration": "2.5s"}},
    {"action": "move_to", "parameters": {"target_x": "100", "target_y": "100"}},
    {"action": "drop_off", "parameters": {}}
  ]
}`

func TestValidate_FullPlan(t *testing.T) {
	plan, err := Validate(fullPlan, nil)
	require.NoError(t, err)

	assert.Equal(t, "sample return", plan.MissionName)
	require.Len(t, plan.Actions, 6)
	assert.Equal(t, ActionMoveTo, plan.Actions[0].Action)
	assert.Equal(t, "80", plan.Actions[0].Parameters["speed"])
	assert.NotNil(t, plan.Actions[1].Parameters, "absent parameters decode to an empty map")
	assert.Empty(t, plan.Actions[1].Parameters)
	assert.Equal(t, "2.5s", plan.Actions[3].Parameters["duration"])
}

func TestValidate_EmptyActions(t *testing.T) {
	plan, err := Validate(`{"mission_name":"idle","actions":[]}`, nil)
	require.NoError(t, err)
	assert.NotNil(t, plan.Actions)
	assert.Empty(t, plan.Actions)
}

func TestValidate_IgnoresEmptyErrorField(t *testing.T) {
	for _, value := range []string{`null`, `""`, `"  "`} {
		plan, err := Validate(`{"mission_name":"rock run","error":`+value+`,"actions":[{"action":"pick_up"}]}`, nil)
		require.NoError(t, err, "error value %s", value)
		assert.Equal(t, "rock run", plan.MissionName)
		require.Len(t, plan.Actions, 1)
	}
}

func TestValidate_RejectsNonStringParameters(t *testing.T) {
	testCases := []struct {
		name    string
		input   string
		key     string
		index   int
		message string
	}{
		{
			name:    "number",
			input:   `{"mission_name":"m","actions":[{"action":"move_to","parameters":{"target_x":"1","target_y":2}}]}`,
			key:     "target_y",
			index:   0,
			message: "actions[0].parameters.target_y: expected a string value, got number",
		},
		{
			name:    "boolean",
			input:   `{"mission_name":"m","actions":[{"action":"take_photo","parameters":{"zoom":true}}]}`,
			key:     "zoom",
			index:   0,
			message: "actions[0].parameters.zoom: expected a string value, got boolean",
		},
		{
			name:    "number in second action",
			input:   `{"mission_name":"m","actions":[{"action":"pick_up"},{"action":"move_to","parameters":{"target_x":"1","target_y":"2","speed":5}}]}`,
			key:     "speed",
			index:   1,
			message: "actions[1].parameters.speed: expected a string value, got number",
		},
		{
			name:    "nested object",
			input:   `{"mission_name":"m","actions":[{"action":"take_photo","parameters":{"resolution":{"w":"1"}}}]}`,
			key:     "resolution",
			index:   0,
			message: "actions[0].parameters.resolution: expected a string value, got object",
		},
		{
			name:    "list",
			input:   `{"mission_name":"m","actions":[{"action":"wait","parameters":{"duration":["1"]}}]}`,
			key:     "duration",
			index:   0,
			message: "actions[0].parameters.duration: expected a string value, got array",
		},
		{
			name:    "null value",
			input:   `{"mission_name":"m","actions":[{"action":"take_photo","parameters":{"zoom":null}}]}`,
			key:     "zoom",
			index:   0,
			message: "actions[0].parameters.zoom: expected a string value, got null",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			plan, err := Validate(tc.input, nil)
			assert.Nil(t, plan)

			var schemaErr *SchemaError
			require.ErrorAs(t, err, &schemaErr)
			require.Len(t, schemaErr.Issues, 1)
			assert.Equal(t, tc.key, schemaErr.Issues[0].Key)
			assert.Equal(t, tc.index, schemaErr.Issues[0].ActionIndex)
			assert.Equal(t, tc.message, err.Error())
		})
	}
}

func TestValidate_StructuralIssues(t *testing.T) {
	testCases := []struct {
		name  string
		input string
		paths []string
	}{
		{"missing mission_name", `{"actions":[]}`, []string{"mission_name"}},
		{"blank mission_name", `{"mission_name":"  ","actions":[]}`, []string{"mission_name"}},
		{"numeric mission_name", `{"mission_name":7,"actions":[]}`, []string{"mission_name"}},
		{"missing actions", `{"mission_name":"m"}`, []string{"actions"}},
		{"actions not a list", `{"mission_name":"m","actions":{"action":"wait"}}`, []string{"actions"}},
		{"bare array", `[{"action":"wait","parameters":{"duration":"1"}}]`, []string{"$"}},
		{"scalar", `"plan"`, []string{"$"}},
		{"generator error report", `{"error":"instruction is ambiguous"}`, []string{"error", "mission_name", "actions"}},
		{"error report next to a plan", `{"error":"cannot plan","mission_name":"m","actions":[]}`, []string{"error"}},
		{"structured error report", `{"error":{"code":400},"mission_name":"m","actions":[]}`, []string{"error"}},
		{"action not an object", `{"mission_name":"m","actions":["wait"]}`, []string{"actions[0]"}},
		{"missing action name", `{"mission_name":"m","actions":[{"parameters":{}}]}`, []string{"actions[0].action"}},
		{"unknown action", `{"mission_name":"m","actions":[{"action":"fly_to"}]}`, []string{"actions[0].action"}},
		{"null parameters", `{"mission_name":"m","actions":[{"action":"pick_up","parameters":null}]}`, []string{"actions[0].parameters"}},
		{"pick_up with parameters", `{"mission_name":"m","actions":[{"action":"pick_up","parameters":{"what":"rock"}}]}`, []string{"actions[0].parameters"}},
		{"move_to missing target", `{"mission_name":"m","actions":[{"action":"move_to","parameters":{"target_x":"3"}}]}`, []string{"actions[0].parameters.target_y"}},
		{"wait without a number", `{"mission_name":"m","actions":[{"action":"wait","parameters":{"duration":"a bit"}}]}`, []string{"actions[0].parameters.duration"}},
		{
			"issues from several actions",
			`{"mission_name":"m","actions":[{"action":"wait"},{"action":"drop_off"},{"action":"move_to","parameters":{"target_x":1,"target_y":"2"}}]}`,
			[]string{"actions[0].parameters.duration", "actions[2].parameters.target_x"},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			plan, err := Validate(tc.input, nil)
			assert.Nil(t, plan)

			var schemaErr *SchemaError
			require.ErrorAs(t, err, &schemaErr)
			var paths []string
			for _, issue := range schemaErr.Issues {
				paths = append(paths, issue.Path)
			}
			assert.Equal(t, tc.paths, paths)
		})
	}
}

func TestValidate_UnknownActionMessageListsVocabulary(t *testing.T) {
	_, err := Validate(`{"mission_name":"m","actions":[{"action":"fly_to"}]}`, nil)
	require.Error(t, err)
	assert.Equal(t,
		`actions[0].action: expected one of move_to, take_photo, wait, pick_up, drop_off, got "fly_to"`,
		err.Error())
}

func TestValidate_PermissiveVocabulary(t *testing.T) {
	reg, err := NewActionRegistry(DefaultRegistry().Actions, VocabularyPermissive)
	require.NoError(t, err)

	plan, err := Validate(`{"mission_name":"m","actions":[{"action":"scan_area","parameters":{"radius":"5"}}]}`, reg)
	require.NoError(t, err)
	assert.Equal(t, "scan_area", plan.Actions[0].Action)

	_, err = Validate(`{"mission_name":"m","actions":[{"action":"scan_area","parameters":{"radius":5}}]}`, reg)
	assert.Error(t, err, "string-only parameters hold for every action name")

	_, err = Validate(`{"mission_name":"m","actions":[{"action":""}]}`, reg)
	assert.Error(t, err, "names must be non-empty")
}

func TestValidate_DecodeError(t *testing.T) {
	_, err := Validate(`{"mission_name": "m",`, nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrDecode))

	var decodeErr *DecodeError
	assert.ErrorAs(t, err, &decodeErr)

	var schemaErr *SchemaError
	assert.False(t, errors.As(err, &schemaErr))
}

func TestValidate_RoundTrip(t *testing.T) {
	inputs := []string{
		fullPlan,
		`{"mission_name":"idle","actions":[]}`,
		`{"mission_name":"<html> & \"quotes\"","actions":[{"action":"take_photo","parameters":{"zoom":"2x","note":"ünïcødé"}}]}`,
	}
	for _, in := range inputs {
		plan, err := Validate(in, nil)
		require.NoError(t, err)

		candidate, ok := ExtractJSON("Here you go:\n" + plan.JSON() + "\nDone.")
		require.True(t, ok)
		again, err := Validate(candidate, nil)
		require.NoError(t, err)
		assert.Equal(t, plan, again)

		fromIndented, err := Validate(plan.IndentedJSON(), nil)
		require.NoError(t, err)
		assert.Equal(t, plan, fromIndented)
	}
}

func TestMissionPlan_Clone(t *testing.T) {
	plan, err := Validate(fullPlan, nil)
	require.NoError(t, err)

	cp := plan.Clone()
	assert.Equal(t, plan, cp)

	cp.Actions[0].Parameters["speed"] = "1"
	assert.Equal(t, "80", plan.Actions[0].Parameters["speed"])
}
