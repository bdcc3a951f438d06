package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"go.uber.org/zap"

	"mission-planner/internal/config"
	"mission-planner/internal/display"
	"mission-planner/internal/executor"
	"mission-planner/internal/llm_client"
	"mission-planner/internal/parser"
	"mission-planner/internal/planner"
	"mission-planner/internal/supervisor"
	"mission-planner/internal/world"
)

type generateOptions struct {
	constraints string
	simulate    bool
	jsonOnly    bool
}

func providerGenerator(cfg config.LLMConfig) (planner.Generator, string, error) {
	p, err := llm_client.New(llm_client.Config{
		Backend:       cfg.Backend,
		Model:         cfg.Model,
		OllamaHost:    cfg.OllamaHost,
		OpenAIBaseURL: cfg.OpenAIBaseURL,
		APIKey:        cfg.APIKey,
	})
	if err != nil {
		return nil, "", err
	}
	return p, p.Name() + "/" + p.Model(), nil
}

func (a *app) registry() (*parser.ActionRegistry, error) {
	vocab, err := parser.ParseVocabulary(a.cfg.Planner.Vocabulary)
	if err != nil {
		return nil, err
	}
	if file := strings.TrimSpace(a.cfg.Planner.RegistryFile); file != "" {
		return parser.LoadActionRegistry(file, vocab)
	}
	return parser.NewActionRegistry(parser.DefaultRegistry().Actions, vocab)
}

// setup builds the pieces every command needs.
func (a *app) setup() (*world.World, *parser.ActionRegistry, error) {
	w, err := world.New(a.cfg.World)
	if err != nil {
		return nil, nil, fmt.Errorf("world: %w", err)
	}
	reg, err := a.registry()
	if err != nil {
		return nil, nil, fmt.Errorf("action registry: %w", err)
	}
	return w, reg, nil
}

func (a *app) newPlanner(reg *parser.ActionRegistry) (*planner.Planner, error) {
	gen, label, err := a.newGenerator(a.cfg.LLM)
	if err != nil {
		return nil, fmt.Errorf("text generator: %w", err)
	}
	return planner.New(gen, reg,
		planner.WithMaxAttempts(a.cfg.Planner.MaxAttempts),
		planner.WithCallTimeout(a.cfg.LLM.Timeout),
		planner.WithLogger(a.log),
		planner.WithLabel(label),
	)
}

func (a *app) runGenerate(ctx context.Context, out io.Writer, instruction string, opts generateOptions) error {
	w, reg, err := a.setup()
	if err != nil {
		return err
	}
	p, err := a.newPlanner(reg)
	if err != nil {
		return err
	}

	constraints := opts.constraints
	if strings.TrimSpace(constraints) == "" {
		constraints = w.ConstraintsBlock()
	}

	res, err := p.GeneratePlan(ctx, instruction, constraints)
	if err != nil {
		var exhausted *planner.ExhaustedError
		if errors.As(err, &exhausted) {
			a.log.Debug("Last generator reply", zap.String("raw", exhausted.LastRaw))
		}
		return fmt.Errorf("plan generation failed: %w", err)
	}
	a.log.Info("Plan ready",
		zap.String("plan_id", res.ID),
		zap.Int("attempts", res.Attempts),
		zap.Int("tokens", res.TokensUsed))
	a.log.Debug("Plan (FULL)", zap.String("plan_id", res.ID), zap.String("plan", display.FormatPlanFull(res.Plan)))

	if opts.jsonOnly {
		fmt.Fprintln(out, res.Plan.IndentedJSON())
	} else {
		fmt.Fprintln(out, "Mission plan generated:")
		fmt.Fprintln(out, res.Plan.IndentedJSON())
		if warnings := w.Review(res.Plan); len(warnings) > 0 {
			fmt.Fprintln(out, display.FormatWarnings(warnings))
		}
	}

	if !opts.simulate {
		return nil
	}
	scfg := supervisor.FromConfig(a.cfg)
	ex, err := executor.New(res.Plan, w.Start(), scfg.Executor,
		executor.WithMissionID(res.ID),
		executor.WithLogger(a.log),
	)
	if err != nil {
		return err
	}
	mm, runErr := ex.Run(ctx, scfg.Tick, scfg.MaxTicks)
	fmt.Fprint(out, display.FormatMissionMetrics(mm))
	fmt.Fprintln(out, display.FormatState(ex.State(), w))
	if runErr != nil {
		return fmt.Errorf("simulation failed: %w", runErr)
	}
	return nil
}
