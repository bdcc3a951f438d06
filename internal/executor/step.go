package executor

import (
	"errors"
	"fmt"
	"math"

	"mission-planner/internal/parser"
)

type Config struct {
	// MaxSpeed is the top speed in units per second; a move_to speed
	// parameter can only lower it.
	MaxSpeed float64
	// ArriveEpsilon is the distance under which the actor snaps to its target.
	ArriveEpsilon float64
}

func DefaultConfig() Config {
	return Config{MaxSpeed: 150, ArriveEpsilon: 1}
}

func (c Config) Validate() error {
	if c.MaxSpeed <= 0 || math.IsInf(c.MaxSpeed, 0) || math.IsNaN(c.MaxSpeed) {
		return fmt.Errorf("executor: max speed must be a positive number, got %v", c.MaxSpeed)
	}
	if c.ArriveEpsilon < 0 || math.IsNaN(c.ArriveEpsilon) {
		return errors.New("executor: arrive epsilon must not be negative")
	}
	return nil
}

type EventKind int

const (
	EventArrived EventKind = iota
	EventPickedUp
	EventDroppedOff
	EventPhotoTaken
	EventWaitStarted
	EventWaitFinished
	// EventPreconditionSkip reports an action that declined to run. It is
	// not an error.
	EventPreconditionSkip
	EventUnsupported
	EventActionCompleted
)

var eventNames = map[EventKind]string{
	EventArrived:          "arrived",
	EventPickedUp:         "picked_up",
	EventDroppedOff:       "dropped_off",
	EventPhotoTaken:       "photo_taken",
	EventWaitStarted:      "wait_started",
	EventWaitFinished:     "wait_finished",
	EventPreconditionSkip: "precondition_skip",
	EventUnsupported:      "unsupported",
	EventActionCompleted:  "action_completed",
}

func (k EventKind) String() string {
	if n, ok := eventNames[k]; ok {
		return n
	}
	return fmt.Sprintf("event(%d)", int(k))
}

type Event struct {
	Kind        EventKind
	ActionIndex int
	Action      string
	Position    Vec2
	Params      map[string]string
	Reason      string
}

// Step is the per-tick transition of one actor running action a. It is pure:
// s is taken by value and the cursor is never touched.
func Step(s State, a parser.Action, dt float64, cfg Config) (State, []Event) {
	ev := func(kind EventKind) Event {
		return Event{Kind: kind, ActionIndex: s.Cursor, Action: a.Action, Position: s.Position}
	}

	// An armed wait owns the whole tick.
	if s.WaitRemaining > 0 {
		s.WaitRemaining = math.Max(s.WaitRemaining-dt, 0)
		if s.WaitRemaining > 0 {
			s.Status = StatusWaiting
			return s, nil
		}
		s.Status = StatusIdle
		return s, []Event{ev(EventWaitFinished)}
	}

	switch a.Action {
	case parser.ActionMoveTo:
		return stepMove(s, a, dt, cfg, ev)

	case parser.ActionPickUp:
		if s.CarryingSample {
			s.Status = StatusBlocked
			e := ev(EventPreconditionSkip)
			e.Reason = "already carrying a sample"
			return s, []Event{e}
		}
		s.CarryingSample = true
		s.Status = StatusIdle
		return s, []Event{ev(EventPickedUp)}

	case parser.ActionDropOff:
		if !s.CarryingSample {
			s.Status = StatusBlocked
			e := ev(EventPreconditionSkip)
			e.Reason = "no sample to drop"
			return s, []Event{e}
		}
		s.CarryingSample = false
		s.Status = StatusIdle
		return s, []Event{ev(EventDroppedOff)}

	case parser.ActionTakePhoto:
		s.Status = StatusIdle
		e := ev(EventPhotoTaken)
		e.Params = copyParams(a.Parameters)
		return s, []Event{e}

	case parser.ActionWait:
		s.WaitRemaining = math.Max(parser.WaitDuration(a)-dt, 0)
		events := []Event{ev(EventWaitStarted)}
		if s.WaitRemaining > 0 {
			s.Status = StatusWaiting
			return s, events
		}
		s.Status = StatusIdle
		return s, append(events, ev(EventWaitFinished))
	}

	s.Status = StatusIdle
	e := ev(EventUnsupported)
	e.Reason = fmt.Sprintf("no behaviour for action %q", a.Action)
	return s, []Event{e}
}

func stepMove(s State, a parser.Action, dt float64, cfg Config, ev func(EventKind) Event) (State, []Event) {
	if s.Target == nil {
		x, y := parser.MoveTarget(a, s.Position.X, s.Position.Y)
		s.Target = &Vec2{X: x, Y: y}
	}
	target := *s.Target

	delta := target.Sub(s.Position)
	remaining := delta.Len()
	if remaining > 0 {
		s.Heading = math.Atan2(delta.Y, delta.X)
	}

	step := parser.Speed(a, cfg.MaxSpeed) * dt
	if remaining < cfg.ArriveEpsilon || step >= remaining {
		s.Position = target
		s.Target = nil
		s.Status = StatusIdle
		e := ev(EventArrived)
		e.Position = target
		return s, []Event{e}
	}

	s.Position = s.Position.Add(delta.Scale(step / remaining))
	s.Status = StatusMoving
	return s, nil
}

func copyParams(in map[string]string) map[string]string {
	out := make(map[string]string, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
