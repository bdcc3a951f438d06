package llm_client

import (
	"context"
	"fmt"
	"os"
	"strings"

	openai "github.com/sashabaranov/go-openai"
)

// openaiProvider talks to any OpenAI-compatible chat completions endpoint.
type openaiProvider struct {
	client *openai.Client
	model  string
}

const openaiDefault = "gpt-4o-mini"

func (p *openaiProvider) Init(cfg Config) error {
	apiKey := firstNonEmpty(cfg.APIKey, os.Getenv("OPENAI_API_KEY"))
	if apiKey == "" {
		return fmt.Errorf("OPENAI_API_KEY is not set")
	}
	oc := openai.DefaultConfig(apiKey)
	if base := normalizeBaseURL(firstNonEmpty(cfg.OpenAIBaseURL, os.Getenv("OPENAI_BASE_URL"))); base != "" {
		oc.BaseURL = base
	}
	p.client = openai.NewClientWithConfig(oc)
	p.model = firstNonEmpty(strings.TrimSpace(cfg.Model), os.Getenv("OPENAI_MODEL"), openaiDefault)
	return nil
}

func (p *openaiProvider) Name() string         { return "openai" }
func (p *openaiProvider) DefaultModel() string { return openaiDefault }
func (p *openaiProvider) Model() string        { return p.model }

func (p *openaiProvider) Generate(ctx context.Context, messages []Message) (*Reply, error) {
	if p.client == nil {
		return nil, ErrNotInitialized
	}
	if err := validateMessages(messages); err != nil {
		return nil, fmt.Errorf("openai: %w", err)
	}

	req := openai.ChatCompletionRequest{
		Model:    p.model,
		Messages: make([]openai.ChatCompletionMessage, 0, len(messages)),
	}
	for _, m := range messages {
		req.Messages = append(req.Messages, openai.ChatCompletionMessage{Role: string(m.Role), Content: m.Content})
	}

	resp, err := p.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("openai chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("openai: %w", ErrEmptyResponse)
	}
	return &Reply{
		Content:    resp.Choices[0].Message.Content,
		TokensUsed: intPtr(resp.Usage.TotalTokens),
		Raw: map[string]any{
			"id":            resp.ID,
			"model":         resp.Model,
			"finish_reason": string(resp.Choices[0].FinishReason),
		},
	}, nil
}

// normalizeBaseURL strips trailing slashes and a "/chat/completions" suffix so
// the client never doubles the path.
func normalizeBaseURL(raw string) string {
	s := strings.TrimRight(strings.TrimSpace(raw), "/")
	return strings.TrimSuffix(s, "/chat/completions")
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
