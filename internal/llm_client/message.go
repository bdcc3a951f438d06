package llm_client

import "fmt"

type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one conversational turn. Histories are only ever extended by
// appending; a Message is never edited after it has been sent.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

func (m Message) Validate() error {
	switch m.Role {
	case RoleSystem, RoleUser, RoleAssistant:
		return nil
	}
	return fmt.Errorf("message has unknown role %q", m.Role)
}

func System(content string) Message    { return Message{Role: RoleSystem, Content: content} }
func User(content string) Message      { return Message{Role: RoleUser, Content: content} }
func Assistant(content string) Message { return Message{Role: RoleAssistant, Content: content} }

// Reply is what a backend produced for one Generate call.
type Reply struct {
	Content    string         `json:"content"`
	TokensUsed *int           `json:"tokens_used,omitempty"`
	Raw        map[string]any `json:"raw,omitempty"` // diagnostics only
}

func validateMessages(msgs []Message) error {
	if len(msgs) == 0 {
		return fmt.Errorf("no messages to send")
	}
	for i, m := range msgs {
		if err := m.Validate(); err != nil {
			return fmt.Errorf("message %d: %w", i, err)
		}
	}
	return nil
}

func intPtr(v int) *int { return &v }
