package parser

import (
	"fmt"
	"os"
	"sort"
	"strings"
)

// Action names of the rover vocabulary.
const (
	ActionMoveTo    = "move_to"
	ActionTakePhoto = "take_photo"
	ActionWait      = "wait"
	ActionPickUp    = "pick_up"
	ActionDropOff   = "drop_off"
)

// Vocabulary decides what happens to action names the registry does not know.
type Vocabulary string

const (
	// VocabularyStrict rejects unknown action names.
	VocabularyStrict Vocabulary = "strict"
	// VocabularyPermissive accepts any non-empty name and checks parameters
	// only for known ones.
	VocabularyPermissive Vocabulary = "permissive"
)

func ParseVocabulary(s string) (Vocabulary, error) {
	switch Vocabulary(strings.ToLower(strings.TrimSpace(s))) {
	case "", VocabularyStrict:
		return VocabularyStrict, nil
	case VocabularyPermissive:
		return VocabularyPermissive, nil
	}
	return "", fmt.Errorf("unknown vocabulary policy %q (want strict or permissive)", s)
}

type ParameterSchema struct {
	Required []string `json:"required"`
	Optional []string `json:"optional"`
	// Numeric keys must contain a numeric token.
	Numeric []string `json:"numeric"`
}

type ActionDefinition struct {
	Name         string          `json:"name"`
	Description  string          `json:"description"`
	Parameters   ParameterSchema `json:"parameters"`
	NoParameters bool            `json:"no_parameters"`
}

func (d ActionDefinition) isNumeric(key string) bool {
	for _, k := range d.Parameters.Numeric {
		if k == key {
			return true
		}
	}
	return false
}

type ActionRegistry struct {
	Actions    []ActionDefinition
	actionsMap map[string]ActionDefinition
	vocabulary Vocabulary
}

func NewActionRegistry(defs []ActionDefinition, vocab Vocabulary) (*ActionRegistry, error) {
	if vocab == "" {
		vocab = VocabularyStrict
	}
	actionsMap := make(map[string]ActionDefinition, len(defs))
	for _, def := range defs {
		name := strings.TrimSpace(def.Name)
		if name == "" {
			return nil, fmt.Errorf("action definition without a name")
		}
		if _, dup := actionsMap[name]; dup {
			return nil, fmt.Errorf("action %q defined twice", name)
		}
		if def.NoParameters && len(def.Parameters.Required) > 0 {
			return nil, fmt.Errorf("action %q requires parameters but is marked no_parameters", name)
		}
		def.Name = name
		actionsMap[name] = def
	}
	return &ActionRegistry{
		Actions:    defs,
		actionsMap: actionsMap,
		vocabulary: vocab,
	}, nil
}

// DefaultRegistry returns the built-in rover vocabulary with a strict policy.
func DefaultRegistry() *ActionRegistry {
	reg, err := NewActionRegistry([]ActionDefinition{
		{
			Name:        ActionMoveTo,
			Description: "Drive in a straight line to a point of the arena.",
			Parameters: ParameterSchema{
				Required: []string{ParamTargetX, ParamTargetY},
				Optional: []string{ParamSpeed},
				Numeric:  []string{ParamTargetX, ParamTargetY, ParamSpeed},
			},
		},
		{
			Name:        ActionTakePhoto,
			Description: "Take a photo at the current position.",
			Parameters: ParameterSchema{
				Optional: []string{ParamResolution, ParamZoom},
			},
		},
		{
			Name:        ActionWait,
			Description: "Stay still for a number of seconds.",
			Parameters: ParameterSchema{
				Required: []string{ParamDuration},
				Numeric:  []string{ParamDuration},
			},
		},
		{
			Name:         ActionPickUp,
			Description:  "Pick up a sample at the current position.",
			NoParameters: true,
		},
		{
			Name:         ActionDropOff,
			Description:  "Drop the carried sample at the current position.",
			NoParameters: true,
		},
	}, VocabularyStrict)
	if err != nil {
		panic(err)
	}
	return reg
}

// Reads the action definitions from a JSON file
func LoadActionRegistry(filePath string, vocab Vocabulary) (*ActionRegistry, error) {
	file, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("could not read action registry file: %w", err)
	}

	var registry struct {
		Actions []ActionDefinition `json:"actions"`
	}
	if err := json.Unmarshal(file, &registry); err != nil {
		return nil, fmt.Errorf("could not parse action registry JSON: %w", err)
	}
	if len(registry.Actions) == 0 {
		return nil, fmt.Errorf("action registry %s defines no actions", filePath)
	}
	return NewActionRegistry(registry.Actions, vocab)
}

// Returns the definition for a specific action
func (r *ActionRegistry) GetDefinition(actionName string) (ActionDefinition, bool) {
	def, found := r.actionsMap[actionName]
	return def, found
}

func (r *ActionRegistry) Vocabulary() Vocabulary { return r.vocabulary }

func (r *ActionRegistry) Names() []string {
	names := make([]string, 0, len(r.Actions))
	for _, a := range r.Actions {
		names = append(names, a.Name)
	}
	return names
}

// Creates the text block for the LLM prompt
func (r *ActionRegistry) GeneratePromptPart() string {
	var sb strings.Builder
	sb.WriteString("AVAILABLE ACTIONS & PARAMETERS:\n")
	for _, action := range r.Actions {
		sb.WriteString(fmt.Sprintf("- `%s`: %s", action.Name, action.Description))
		if action.NoParameters {
			sb.WriteString(" Parameters must be empty: `{}`.\n")
			continue
		}
		sb.WriteString(fmt.Sprintf(" Parameters require keys: `[%s]`.", strings.Join(action.Parameters.Required, ", ")))
		if len(action.Parameters.Optional) > 0 {
			sb.WriteString(fmt.Sprintf(" Optional keys: `[%s]`.", strings.Join(action.Parameters.Optional, ", ")))
		}
		if len(action.Parameters.Numeric) > 0 {
			sb.WriteString(fmt.Sprintf(" Numbers as strings: `[%s]`.", strings.Join(action.Parameters.Numeric, ", ")))
		}
		sb.WriteString("\n")
	}
	if r.vocabulary == VocabularyStrict {
		sb.WriteString("Use ONLY these action names.\n")
	} else {
		sb.WriteString("Prefer these action names; other names are accepted but the rover may ignore them.\n")
	}
	return sb.String()
}

// ValidateAction checks one action against its definition. index is used to
// build issue paths. Unknown names are an issue only under the strict policy.
func (r *ActionRegistry) ValidateAction(index int, action *Action) error {
	if issues := r.actionIssues(index, action); len(issues) > 0 {
		return &SchemaError{Issues: issues}
	}
	return nil
}

func (r *ActionRegistry) actionIssues(index int, action *Action) []Issue {
	def, found := r.GetDefinition(action.Action)
	if !found {
		if r.vocabulary == VocabularyPermissive {
			return nil
		}
		return []Issue{{
			Path:        fmt.Sprintf("actions[%d].action", index),
			ActionIndex: index,
			Expected:    "one of " + strings.Join(r.Names(), ", "),
			Got:         fmt.Sprintf("%q", action.Action),
		}}
	}

	var issues []Issue
	if def.NoParameters {
		if len(action.Parameters) > 0 {
			issues = append(issues, Issue{
				Path:        fmt.Sprintf("actions[%d].parameters", index),
				ActionIndex: index,
				Expected:    fmt.Sprintf("no parameters for %s", def.Name),
				Got:         fmt.Sprintf("keys [%s]", strings.Join(sortedKeys(action.Parameters), ", ")),
			})
		}
		return issues
	}

	for _, key := range def.Parameters.Required {
		if _, ok := action.Parameters[key]; !ok {
			issues = append(issues, Issue{
				Path:        paramPath(index, key),
				ActionIndex: index,
				Key:         key,
				Expected:    fmt.Sprintf("a value (required by %s)", def.Name),
				Got:         "nothing",
			})
		}
	}
	for _, key := range sortedKeys(action.Parameters) {
		if !def.isNumeric(key) {
			continue
		}
		if _, ok := ParseNumber(action.Parameters[key]); !ok {
			issues = append(issues, Issue{
				Path:        paramPath(index, key),
				ActionIndex: index,
				Key:         key,
				Expected:    "a numeric string such as \"12.5\"",
				Got:         fmt.Sprintf("%q", action.Parameters[key]),
			})
		}
	}
	return issues
}

func paramPath(index int, key string) string {
	return fmt.Sprintf("actions[%d].parameters.%s", index, key)
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
