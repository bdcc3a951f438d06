package llm_client

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/ollama/ollama/api"
)

type ollamaProvider struct {
	client *api.Client
	model  string
}

const ollamaDefault = "llama3:instruct"

func (p *ollamaProvider) Init(cfg Config) error {
	host := strings.TrimSpace(cfg.OllamaHost)
	if host == "" {
		c, err := api.ClientFromEnvironment()
		if err != nil {
			return fmt.Errorf("ollama: client from environment: %w", err)
		}
		p.client = c
	} else {
		u, err := url.Parse(host)
		if err != nil {
			return fmt.Errorf("ollama: bad host %q: %w", host, err)
		}
		p.client = api.NewClient(u, http.DefaultClient)
	}
	if strings.TrimSpace(cfg.Model) != "" {
		p.model = strings.TrimSpace(cfg.Model)
	} else {
		p.model = ollamaDefault
	}
	return nil
}

func (p *ollamaProvider) Name() string         { return "ollama" }
func (p *ollamaProvider) DefaultModel() string { return ollamaDefault }
func (p *ollamaProvider) Model() string        { return p.model }

func (p *ollamaProvider) Generate(ctx context.Context, messages []Message) (*Reply, error) {
	if p.client == nil {
		return nil, ErrNotInitialized
	}
	if err := validateMessages(messages); err != nil {
		return nil, fmt.Errorf("ollama: %w", err)
	}

	msgs := make([]api.Message, 0, len(messages))
	for _, m := range messages {
		msgs = append(msgs, api.Message{Role: string(m.Role), Content: m.Content})
	}
	stream := false
	req := &api.ChatRequest{
		Model:    p.model,
		Messages: msgs,
		Stream:   &stream,
	}

	var out strings.Builder
	var last api.ChatResponse
	if err := p.client.Chat(ctx, req, func(cr api.ChatResponse) error {
		out.WriteString(cr.Message.Content)
		last = cr
		return nil
	}); err != nil {
		return nil, fmt.Errorf("ollama chat: %w", err)
	}

	content := out.String()
	if strings.TrimSpace(content) == "" {
		return nil, fmt.Errorf("ollama: %w", ErrEmptyResponse)
	}
	return &Reply{
		Content:    content,
		TokensUsed: intPtr(last.PromptEvalCount + last.EvalCount),
		Raw: map[string]any{
			"model":             last.Model,
			"done_reason":       last.DoneReason,
			"prompt_eval_count": last.PromptEvalCount,
			"eval_count":        last.EvalCount,
		},
	}, nil
}
