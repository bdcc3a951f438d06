package llm_client

import (
	"context"
	"fmt"
	"os"
	"strings"

	"google.golang.org/genai"
)

type geminiProvider struct {
	client *genai.Client
	model  string
}

const geminiDefault = "gemini-2.0-flash"

func (p *geminiProvider) Init(cfg Config) error {
	apiKey := cfg.APIKey
	if apiKey == "" {
		apiKey = os.Getenv("GEMINI_API_KEY")
	}
	if apiKey == "" {
		return fmt.Errorf("GEMINI_API_KEY is not set")
	}
	c, err := genai.NewClient(context.Background(), &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return fmt.Errorf("gemini client init: %w", err)
	}
	p.client = c
	p.model = allowedGeminiModel(cfg.Model)
	return nil
}

func (p *geminiProvider) Name() string         { return "gemini" }
func (p *geminiProvider) DefaultModel() string { return geminiDefault }
func (p *geminiProvider) Model() string        { return p.model }

// Hard guardrail on model names: anything that is not a gemini model falls
// back to the default.
func allowedGeminiModel(model string) string {
	m := strings.TrimSpace(model)
	if m == "" || !strings.HasPrefix(strings.ToLower(m), "gemini-") {
		return geminiDefault
	}
	return m
}

func (p *geminiProvider) Generate(ctx context.Context, messages []Message) (*Reply, error) {
	if p.client == nil {
		return nil, ErrNotInitialized
	}
	if err := validateMessages(messages); err != nil {
		return nil, fmt.Errorf("gemini: %w", err)
	}

	system, contents := toGeminiContents(messages)
	cfg := &genai.GenerateContentConfig{SystemInstruction: system}
	resp, err := p.client.Models.GenerateContent(ctx, p.model, contents, cfg)
	if err != nil {
		return nil, fmt.Errorf("gemini generate: %w", err)
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
		return nil, fmt.Errorf("gemini: %w", ErrEmptyResponse)
	}

	var out strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		out.WriteString(part.Text)
	}
	reply := &Reply{
		Content: out.String(),
		Raw: map[string]any{
			"model":         p.model,
			"finish_reason": string(resp.Candidates[0].FinishReason),
		},
	}
	if resp.UsageMetadata != nil {
		reply.TokensUsed = intPtr(int(resp.UsageMetadata.TotalTokenCount))
	}
	return reply, nil
}

// toGeminiContents maps a history onto Gemini's shape. The leading system
// messages become the system instruction; Gemini only accepts user and model
// turns, so later system messages (corrections) are sent as user turns.
func toGeminiContents(messages []Message) (*genai.Content, []*genai.Content) {
	var systemParts []string
	i := 0
	for ; i < len(messages) && messages[i].Role == RoleSystem; i++ {
		systemParts = append(systemParts, messages[i].Content)
	}

	var system *genai.Content
	if len(systemParts) > 0 {
		system = genai.NewContentFromText(strings.Join(systemParts, "\n\n"), genai.RoleUser)
	}

	contents := make([]*genai.Content, 0, len(messages)-i)
	for _, m := range messages[i:] {
		var role genai.Role = genai.RoleUser
		if m.Role == RoleAssistant {
			role = genai.RoleModel
		}
		contents = append(contents, genai.NewContentFromText(m.Content, role))
	}
	return system, contents
}
