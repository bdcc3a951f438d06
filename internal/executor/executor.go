package executor

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"mission-planner/internal/metrics"
	"mission-planner/internal/parser"
)

// ErrTickBudget is returned by Run when a plan does not finish in time.
var ErrTickBudget = errors.New("tick budget exhausted before the plan finished")

// Executor drives one actor through one plan. It owns its State; nothing
// else may mutate it. Not safe for concurrent use.
type Executor struct {
	plan    *parser.MissionPlan
	state   State
	cfg     Config
	tick    int
	log     *zap.Logger
	onPhoto func(Event)
	onEvent func(Event)

	mm       *metrics.MissionMetrics
	current  *metrics.ActionMetrics
	finished bool
}

type Option func(*Executor)

// WithPhotoHandler is called for every photo taken.
func WithPhotoHandler(fn func(Event)) Option { return func(e *Executor) { e.onPhoto = fn } }

// WithEventHandler is called for every event, in order.
func WithEventHandler(fn func(Event)) Option { return func(e *Executor) { e.onEvent = fn } }

func WithLogger(l *zap.Logger) Option {
	return func(e *Executor) {
		if l != nil {
			e.log = l
		}
	}
}

// WithMissionID tags metrics and logs.
func WithMissionID(id string) Option { return func(e *Executor) { e.mm.MissionID = id } }

func New(plan *parser.MissionPlan, start State, cfg Config, opts ...Option) (*Executor, error) {
	if plan == nil {
		return nil, errors.New("executor: plan is nil")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	start.Cursor = 0
	start.Target = nil
	start.WaitRemaining = 0
	e := &Executor{
		plan:  plan,
		state: start,
		cfg:   cfg,
		log:   zap.NewNop(),
		mm: &metrics.MissionMetrics{
			MissionName: plan.MissionName,
			Start:       time.Now(),
			Actions:     make([]metrics.ActionMetrics, 0, len(plan.Actions)),
		},
	}
	for _, opt := range opts {
		opt(e)
	}
	e.log = e.log.With(zap.String("mission_id", e.mm.MissionID), zap.String("mission", plan.MissionName))
	if len(plan.Actions) == 0 {
		e.finish(nil)
	}
	return e, nil
}

// State returns a copy of the actor state.
func (e *Executor) State() State { return e.state }

func (e *Executor) Done() bool { return e.state.Cursor >= len(e.plan.Actions) }

func (e *Executor) Ticks() int { return e.tick }

func (e *Executor) Plan() *parser.MissionPlan { return e.plan }

// Metrics returns the metrics collected so far.
func (e *Executor) Metrics() *metrics.MissionMetrics { return e.mm }

// Tick advances the current action by dt seconds. The cursor moves on only
// when the action reports nothing in flight afterwards.
func (e *Executor) Tick(dt float64) []Event {
	if e.Done() {
		return nil
	}
	idx := e.state.Cursor
	action := e.plan.Actions[idx]
	if e.current == nil {
		e.current = &metrics.ActionMetrics{Index: idx, Action: action.Action, StartTick: e.tick}
	}

	before := e.state.Position
	next, events := Step(e.state, action, dt, e.cfg)
	moved := before.Dist(next.Position)

	e.current.SimSeconds += dt
	e.current.Distance += moved
	e.mm.Distance += moved
	e.mm.SimSeconds += dt
	e.mm.Ticks++

	for _, ev := range events {
		switch ev.Kind {
		case EventPhotoTaken:
			e.mm.Photos++
		case EventPreconditionSkip:
			e.mm.Skips++
			e.current.Outcome = metrics.OutcomeSkipped
			e.current.Note = ev.Reason
		case EventUnsupported:
			e.current.Outcome = metrics.OutcomeUnsupported
			e.current.Note = ev.Reason
		}
	}

	if !next.InFlight() {
		next.Cursor = idx + 1
		if e.current.Outcome == "" {
			e.current.Outcome = metrics.OutcomeCompleted
		}
		e.current.Finalize(e.tick)
		e.mm.Actions = append(e.mm.Actions, *e.current)
		e.current = nil
		events = append(events, Event{Kind: EventActionCompleted, ActionIndex: idx, Action: action.Action, Position: next.Position})
	}
	e.state = next
	e.tick++

	for _, ev := range events {
		e.dispatch(ev)
	}
	if e.Done() {
		e.finish(nil)
	}
	return events
}

func (e *Executor) dispatch(ev Event) {
	switch ev.Kind {
	case EventPreconditionSkip, EventUnsupported:
		e.log.Warn("Action skipped", zap.Int("action_index", ev.ActionIndex), zap.String("action", ev.Action), zap.String("reason", ev.Reason))
	default:
		e.log.Debug("Executor event", zap.Int("action_index", ev.ActionIndex), zap.Stringer("event", ev.Kind), zap.Stringer("position", ev.Position))
	}
	if ev.Kind == EventPhotoTaken && e.onPhoto != nil {
		e.onPhoto(ev)
	}
	if e.onEvent != nil {
		e.onEvent(ev)
	}
}

// Abort stops the mission early and records err in the metrics.
func (e *Executor) Abort(err error) {
	if err == nil {
		err = errors.New("aborted")
	}
	e.finish(err)
}

func (e *Executor) finish(err error) {
	if e.finished {
		return
	}
	e.finished = true
	e.mm.Finalize(err)
	if err != nil {
		e.log.Warn("Mission stopped", zap.Int("cursor", e.state.Cursor), zap.Error(err))
		return
	}
	e.log.Info("Mission completed", zap.Int("ticks", e.mm.Ticks), zap.Float64("distance", e.mm.Distance))
}

// Run fast-forwards the plan with a fixed dt until it is done, ctx is
// cancelled or maxTicks ticks have been spent (0 means no limit).
func (e *Executor) Run(ctx context.Context, dt float64, maxTicks int) (*metrics.MissionMetrics, error) {
	if dt <= 0 {
		return e.mm, fmt.Errorf("executor: tick length must be positive, got %v", dt)
	}
	for !e.Done() {
		if err := ctx.Err(); err != nil {
			e.finish(err)
			return e.mm, err
		}
		if maxTicks > 0 && e.tick >= maxTicks {
			err := fmt.Errorf("%w: %d ticks, stopped at action %d of %d", ErrTickBudget, maxTicks, e.state.Cursor+1, len(e.plan.Actions))
			e.finish(err)
			return e.mm, err
		}
		e.Tick(dt)
	}
	return e.mm, nil
}
