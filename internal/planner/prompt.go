package planner

import (
	"errors"
	"strings"

	"mission-planner/internal/llm_client"
	"mission-planner/internal/parser"
)

const (
	correctionNoJSON = "Previous response did not contain parseable JSON. " +
		"Reply with exactly one JSON object only, no prose, matching the schema."
	correctionDecode = "Your response could not be decoded as JSON. Reply with strict JSON only."
)

func (p *Planner) initialMessages(instruction, constraints string) []llm_client.Message {
	user := "Instruction:\n" + strings.TrimSpace(instruction)
	if c := strings.TrimSpace(constraints); c != "" {
		user += "\n\nConstraints:\n" + c
	}
	return []llm_client.Message{
		llm_client.System(p.systemPrompt()),
		llm_client.User(user),
	}
}

func (p *Planner) systemPrompt() string {
	var sb strings.Builder

	sb.WriteString("You are a mission planning assistant for a robotic rover. Convert the user's instruction into a STRICT JSON mission plan.\n")
	sb.WriteString("Respond with exactly one JSON object and nothing else: no prose, no markdown.\n\n")

	sb.WriteString("OUTPUT JSON SCHEMA:\n")
	sb.WriteString(`{"mission_name": "<non-empty string>", "actions": [{"action": "<action name>", "parameters": {"<key>": "<string>"}}]}` + "\n\n")

	sb.WriteString("SEMANTICS:\n")
	sb.WriteString("- Actions run strictly in list order, one after the other.\n")
	sb.WriteString("- Coordinates are arena pixels; the origin is the top-left corner.\n\n")

	sb.WriteString(p.reg.GeneratePromptPart() + "\n")

	sb.WriteString("HARD RULES:\n")
	sb.WriteString("1) Every parameter value is a JSON string, numbers included (\"12.5\", never 12.5). No nested objects or lists.\n")
	sb.WriteString("2) Omit \"parameters\" or use {} for actions that take none.\n")
	sb.WriteString("3) If the instruction cannot be planned, return {\"error\": \"<reason>\"} instead.\n")
	return sb.String()
}

// correctionFor picks the system message answering a rejected candidate.
// Anything other than a schema failure gets the strict-JSON reminder.
func correctionFor(err error) string {
	var schemaErr *parser.SchemaError
	if errors.As(err, &schemaErr) {
		return schemaCorrection(schemaErr)
	}
	return correctionDecode
}

func schemaCorrection(err *parser.SchemaError) string {
	return "The JSON you returned could not be validated against the mission schema.\n" +
		"Validation errors:\n" + err.Error() + "\n" +
		"Please return corrected JSON only."
}
