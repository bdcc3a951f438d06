package supervisor

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"mission-planner/internal/executor"
	"mission-planner/internal/parser"
	"mission-planner/internal/world"
)

// RunFleet runs every plan on its own rover, all starting from the world's
// start position, with at most cfg.FleetConcurrency plans in flight. Results
// are returned in plan order. A failed mission does not stop the others;
// the returned error is only set when ctx ends the run.
func RunFleet(ctx context.Context, plans []*parser.MissionPlan, w *world.World, cfg Config, log *zap.Logger) ([]MissionResult, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	if w == nil {
		return nil, errors.New("supervisor: world is nil")
	}
	if log == nil {
		log = zap.NewNop()
	}
	limit := cfg.FleetConcurrency
	if limit <= 0 {
		limit = 1
	}

	results := make([]MissionResult, len(plans))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)

	for i, plan := range plans {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			id := uuid.New().String()[:8]
			p := plan.Clone()
			res := MissionResult{MissionID: id, MissionName: p.MissionName, FinalPlan: p.JSON()}

			ex, err := executor.New(p, w.Start(), cfg.Executor,
				executor.WithMissionID(id),
				executor.WithLogger(log.With(zap.Int("rover", i+1))),
			)
			if err != nil {
				res.Status = StatusFailed
				res.Error = err.Error()
				results[i] = res
				return nil
			}
			mm, err := ex.Run(gctx, cfg.Tick, cfg.MaxTicks)
			res.Metrics = mm
			res.FinalState = ex.State()
			switch {
			case err == nil:
				res.Status = StatusSucceeded
			case errors.Is(err, context.Canceled):
				res.Status = StatusCancelled
				res.Error = err.Error()
			default:
				res.Status = StatusFailed
				res.Error = err.Error()
			}
			results[i] = res
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return results, err
	}
	return results, ctx.Err()
}
