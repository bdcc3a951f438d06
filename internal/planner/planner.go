package planner

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"mission-planner/internal/llm_client"
	"mission-planner/internal/parser"
)

// DefaultMaxAttempts bounds the repair-and-retry loop.
const DefaultMaxAttempts = 2

// Generator turns a conversation into reply text. llm_client.Provider
// satisfies it.
type Generator interface {
	Generate(ctx context.Context, messages []llm_client.Message) (*llm_client.Reply, error)
}

type Planner struct {
	gen         Generator
	reg         *parser.ActionRegistry
	maxAttempts int
	callTimeout time.Duration
	log         *zap.Logger
	label       string
}

type Option func(*Planner)

func WithMaxAttempts(n int) Option { return func(p *Planner) { p.maxAttempts = n } }

// WithCallTimeout bounds every generator call. Zero means no bound.
func WithCallTimeout(d time.Duration) Option { return func(p *Planner) { p.callTimeout = d } }

func WithLogger(l *zap.Logger) Option {
	return func(p *Planner) {
		if l != nil {
			p.log = l
		}
	}
}

// WithLabel names the model in logs.
func WithLabel(label string) Option { return func(p *Planner) { p.label = label } }

func New(gen Generator, reg *parser.ActionRegistry, opts ...Option) (*Planner, error) {
	if gen == nil {
		return nil, errors.New("planner: generator is nil")
	}
	if reg == nil {
		reg = parser.DefaultRegistry()
	}
	p := &Planner{
		gen:         gen,
		reg:         reg,
		maxAttempts: DefaultMaxAttempts,
		log:         zap.NewNop(),
		label:       "unknown-llm",
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.maxAttempts < 1 {
		return nil, fmt.Errorf("planner: max attempts must be at least 1, got %d", p.maxAttempts)
	}
	if p.callTimeout < 0 {
		return nil, fmt.Errorf("planner: negative call timeout %s", p.callTimeout)
	}
	return p, nil
}

func (p *Planner) MaxAttempts() int { return p.maxAttempts }

// Result is a validated plan together with the exchange that produced it.
type Result struct {
	ID         string
	Plan       *parser.MissionPlan
	Attempts   int
	History    []llm_client.Message
	TokensUsed int
}

// GeneratePlan runs the repair-and-retry protocol for one instruction.
// Extraction and schema failures are answered with an appended correction
// and another attempt; a generator failure ends the run at once.
func (p *Planner) GeneratePlan(ctx context.Context, instruction, constraints string) (*Result, error) {
	if strings.TrimSpace(instruction) == "" {
		return nil, ErrEmptyInstruction
	}

	planID := uuid.New().String()[:8]
	log := p.log.With(zap.String("plan_id", planID), zap.String("model", p.label))
	history := p.initialMessages(instruction, constraints)

	var (
		lastRaw string
		lastErr error
		tokens  int
	)
	for attempt := 1; attempt <= p.maxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		log.Info("Calling generator", zap.Int("attempt", attempt), zap.Int("max_attempts", p.maxAttempts))

		reply, err := p.call(ctx, history)
		if err != nil {
			log.Error("Generator failed", zap.Int("attempt", attempt), zap.Error(err))
			return nil, &GeneratorError{Attempt: attempt, Err: err}
		}
		if reply.TokensUsed != nil {
			tokens += *reply.TokensUsed
		}
		lastRaw = reply.Content
		log.Debug("Generator reply", zap.Int("attempt", attempt), zap.String("content", reply.Content))
		history = append(history, llm_client.Assistant(reply.Content))

		candidate, ok := parser.ExtractJSON(reply.Content)
		if !ok {
			lastErr = parser.ErrNoJSON
			log.Warn("No JSON block in reply", zap.Int("attempt", attempt))
			history = append(history, llm_client.System(correctionNoJSON))
			continue
		}

		plan, err := parser.Validate(candidate, p.reg)
		if err == nil {
			log.Info("Mission plan validated", zap.Int("attempt", attempt), zap.String("mission", plan.MissionName), zap.Int("actions", len(plan.Actions)))
			return &Result{
				ID:         planID,
				Plan:       plan,
				Attempts:   attempt,
				History:    history,
				TokensUsed: tokens,
			}, nil
		}

		lastErr = err
		log.Warn("Plan rejected", zap.Int("attempt", attempt), zap.Error(err))
		history = append(history, llm_client.System(correctionFor(err)))
	}

	log.Error("Attempts exhausted", zap.Int("attempts", p.maxAttempts), zap.Error(lastErr))
	return nil, &ExhaustedError{Attempts: p.maxAttempts, LastRaw: lastRaw, LastErr: lastErr}
}

// call hands the generator its own copy of the history so that each
// attempt's request stays reproducible.
func (p *Planner) call(ctx context.Context, history []llm_client.Message) (*llm_client.Reply, error) {
	if p.callTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.callTimeout)
		defer cancel()
	}
	reply, err := p.gen.Generate(ctx, slices.Clone(history))
	if err != nil {
		return nil, err
	}
	if reply == nil {
		return nil, llm_client.ErrEmptyResponse
	}
	return reply, nil
}
