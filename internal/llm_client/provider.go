package llm_client

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

var (
	ErrNotInitialized = errors.New("llm client not initialized")
	ErrEmptyResponse  = errors.New("llm returned an empty response")
)

type Config struct {
	Backend       string
	Model         string
	OllamaHost    string
	OpenAIBaseURL string
	APIKey        string
}

// Provider is a text generator backend. Generate blocks until the whole reply
// is available; streamed backends are drained before returning.
type Provider interface {
	Init(cfg Config) error
	Name() string
	DefaultModel() string
	Model() string
	Generate(ctx context.Context, messages []Message) (*Reply, error)
}

// New creates and initializes the provider selected by cfg.Backend.
func New(cfg Config) (Provider, error) {
	backend := strings.ToLower(strings.TrimSpace(cfg.Backend))
	if backend == "" {
		backend = "ollama"
	}
	var p Provider
	switch backend {
	case "ollama":
		p = &ollamaProvider{}
	case "gemini":
		p = &geminiProvider{}
	case "openai":
		p = &openaiProvider{}
	default:
		return nil, fmt.Errorf("unsupported LLM backend: %s", backend)
	}
	if err := p.Init(cfg); err != nil {
		return nil, err
	}
	return p, nil
}

// Backends lists the accepted Config.Backend values.
func Backends() []string { return []string{"ollama", "gemini", "openai"} }
