package executor

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mission-planner/internal/metrics"
	"mission-planner/internal/parser"
)

func mustPlan(t *testing.T, raw string) *parser.MissionPlan {
	t.Helper()
	plan, err := parser.Validate(raw, nil)
	require.NoError(t, err)
	return plan
}

func action(name string, kv ...string) parser.Action {
	params := map[string]string{}
	for i := 0; i+1 < len(kv); i += 2 {
		params[kv[i]] = kv[i+1]
	}
	return parser.Action{Action: name, Parameters: params}
}

func TestStep_MoveArrivesInOneTick(t *testing.T) {
	s := NewState(Vec2{0, 0})
	cfg := Config{MaxSpeed: 5, ArriveEpsilon: 0.01}

	next, events := Step(s, action("move_to", "target_x", "3", "target_y", "4"), 1, cfg)

	assert.Equal(t, Vec2{3, 4}, next.Position)
	assert.Nil(t, next.Target)
	assert.False(t, next.InFlight())
	assert.Equal(t, StatusIdle, next.Status)
	assert.InDelta(t, math.Atan2(4, 3), next.Heading, 1e-12)
	require.Len(t, events, 1)
	assert.Equal(t, EventArrived, events[0].Kind)
}

func TestExecutor_MoveScenario(t *testing.T) {
	plan := mustPlan(t, `{"mission_name":"m","actions":[{"action":"move_to","parameters":{"target_x":"3","target_y":"4"}}]}`)
	ex, err := New(plan, NewState(Vec2{0, 0}), Config{MaxSpeed: 5, ArriveEpsilon: 0.01})
	require.NoError(t, err)

	ex.Tick(1)

	assert.Equal(t, Vec2{3, 4}, ex.State().Position)
	assert.Equal(t, 1, ex.State().Cursor)
	assert.True(t, ex.Done())
	assert.Equal(t, 1, ex.Ticks())
}

func TestStep_MoveOverSeveralTicks(t *testing.T) {
	cfg := Config{MaxSpeed: 50, ArriveEpsilon: 0.01}
	a := action("move_to", "target_x", "10", "target_y", "0", "speed", "4")
	s := NewState(Vec2{0, 0})

	s, events := Step(s, a, 1, cfg)
	assert.Empty(t, events)
	assert.InDelta(t, 4, s.Position.X, 1e-9)
	assert.Equal(t, StatusMoving, s.Status)
	require.NotNil(t, s.Target)
	assert.Equal(t, Vec2{10, 0}, *s.Target)
	assert.True(t, s.InFlight())

	s, _ = Step(s, a, 1, cfg)
	assert.InDelta(t, 8, s.Position.X, 1e-9)

	s, events = Step(s, a, 1, cfg)
	assert.Equal(t, Vec2{10, 0}, s.Position)
	assert.False(t, s.InFlight())
	require.Len(t, events, 1)
	assert.Equal(t, EventArrived, events[0].Kind)
}

func TestStep_MoveDetails(t *testing.T) {
	t.Run("speed is capped", func(t *testing.T) {
		cfg := Config{MaxSpeed: 5, ArriveEpsilon: 0.01}
		s, _ := Step(NewState(Vec2{0, 0}), action("move_to", "target_x", "100", "target_y", "0", "speed", "1000"), 1, cfg)
		assert.InDelta(t, 5, s.Position.X, 1e-9)
	})

	t.Run("snaps within epsilon", func(t *testing.T) {
		cfg := Config{MaxSpeed: 5, ArriveEpsilon: 1}
		s, _ := Step(NewState(Vec2{0, 0}), action("move_to", "target_x", "0.5", "target_y", "0", "speed", "0.1"), 1, cfg)
		assert.Equal(t, Vec2{0.5, 0}, s.Position)
		assert.False(t, s.InFlight())
	})

	t.Run("heading follows the remaining delta", func(t *testing.T) {
		cfg := Config{MaxSpeed: 1, ArriveEpsilon: 0.01}
		s, _ := Step(NewState(Vec2{0, 0}), action("move_to", "target_x", "0", "target_y", "10"), 1, cfg)
		assert.InDelta(t, math.Pi/2, s.Heading, 1e-12)
	})

	t.Run("already at target", func(t *testing.T) {
		start := NewState(Vec2{7, 7})
		start.Heading = 1.25
		s, events := Step(start, action("move_to", "target_x", "7", "target_y", "7"), 1, DefaultConfig())
		assert.False(t, s.InFlight())
		assert.Equal(t, 1.25, s.Heading)
		require.Len(t, events, 1)
	})

	t.Run("does not write through the previous target", func(t *testing.T) {
		cfg := Config{MaxSpeed: 1, ArriveEpsilon: 0.01}
		a := action("move_to", "target_x", "2", "target_y", "0")
		s1, _ := Step(NewState(Vec2{0, 0}), a, 1, cfg)
		s2, _ := Step(s1, a, 1, cfg)
		require.NotNil(t, s1.Target)
		assert.Equal(t, Vec2{2, 0}, *s1.Target)
		assert.Nil(t, s2.Target)
		assert.InDelta(t, 1, s1.Position.X, 1e-9)
	})
}

func TestExecutor_WaitScenario(t *testing.T) {
	plan := mustPlan(t, `{"mission_name":"m","actions":[{"action":"wait","parameters":{"duration":"2.5s"}}]}`)
	ex, err := New(plan, NewState(Vec2{0, 0}), DefaultConfig())
	require.NoError(t, err)

	ex.Tick(1)
	ex.Tick(1)
	assert.InDelta(t, 0.5, ex.State().WaitRemaining, 1e-9)
	assert.Equal(t, 0, ex.State().Cursor)
	assert.Equal(t, StatusWaiting, ex.State().Status)
	assert.False(t, ex.Done())

	ex.Tick(1)
	assert.True(t, ex.Done())
	assert.Equal(t, 1, ex.State().Cursor)
	assert.Zero(t, ex.State().WaitRemaining)
}

func TestStep_WaitNeverMovesTheCursor(t *testing.T) {
	a := action("wait", "duration", "2")
	s := NewState(Vec2{0, 0})
	s.Cursor = 4

	s, events := Step(s, a, 1, DefaultConfig())
	assert.Equal(t, 4, s.Cursor)
	assert.Equal(t, []EventKind{EventWaitStarted}, kinds(events))

	// Timer expiry happens in the wait branch and still leaves the cursor alone.
	s, events = Step(s, a, 1, DefaultConfig())
	assert.Equal(t, 4, s.Cursor)
	assert.Zero(t, s.WaitRemaining)
	assert.Equal(t, []EventKind{EventWaitFinished}, kinds(events))
}

func TestStep_ActiveWaitOwnsTheTick(t *testing.T) {
	s := NewState(Vec2{0, 0})
	s.WaitRemaining = 3

	next, events := Step(s, action("move_to", "target_x", "10", "target_y", "10"), 1, DefaultConfig())
	assert.Equal(t, Vec2{0, 0}, next.Position)
	assert.Nil(t, next.Target)
	assert.Equal(t, 2.0, next.WaitRemaining)
	assert.Empty(t, events)
}

func TestStep_WaitEdgeCases(t *testing.T) {
	testCases := []struct {
		name      string
		duration  string
		dt        float64
		remaining float64
		inFlight  bool
	}{
		{"no number defaults to one second", "a moment", 0.25, 0.75, true},
		{"shorter than a tick", "0.5", 1, 0, false},
		{"negative", "-2", 1, 0, false},
		{"clamped at zero", "1", 3, 0, false},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			s, _ := Step(NewState(Vec2{0, 0}), action("wait", "duration", tc.duration), tc.dt, DefaultConfig())
			assert.InDelta(t, tc.remaining, s.WaitRemaining, 1e-9)
			assert.Equal(t, tc.inFlight, s.InFlight())
		})
	}
}

func TestExecutor_DuplicatePickUpIsSkipped(t *testing.T) {
	plan := mustPlan(t, `{"mission_name":"m","actions":[{"action":"pick_up"},{"action":"pick_up"}]}`)
	var seen []Event
	ex, err := New(plan, NewState(Vec2{0, 0}), DefaultConfig(), WithEventHandler(func(e Event) { seen = append(seen, e) }))
	require.NoError(t, err)

	mm, err := ex.Run(context.Background(), 1, 0)
	require.NoError(t, err)

	st := ex.State()
	assert.True(t, st.CarryingSample)
	assert.Equal(t, StatusBlocked, st.Status)
	assert.Equal(t, 2, st.Cursor)
	assert.Equal(t, []EventKind{EventPickedUp, EventActionCompleted, EventPreconditionSkip, EventActionCompleted}, kinds(seen))

	assert.True(t, mm.Succeeded)
	assert.Equal(t, 1, mm.Skips)
	assert.Equal(t, metrics.OutcomeSkipped, mm.Actions[1].Outcome)
	assert.Equal(t, "already carrying a sample", mm.Actions[1].Note)
}

func TestStep_DropOff(t *testing.T) {
	s, events := Step(NewState(Vec2{0, 0}), action("drop_off"), 1, DefaultConfig())
	assert.False(t, s.CarryingSample)
	assert.Equal(t, StatusBlocked, s.Status)
	assert.Equal(t, []EventKind{EventPreconditionSkip}, kinds(events))

	carrying := NewState(Vec2{0, 0})
	carrying.CarryingSample = true
	s, events = Step(carrying, action("drop_off"), 1, DefaultConfig())
	assert.False(t, s.CarryingSample)
	assert.Equal(t, StatusIdle, s.Status)
	assert.Equal(t, []EventKind{EventDroppedOff}, kinds(events))
	assert.True(t, carrying.CarryingSample, "the input state is a value")
}

func TestExecutor_PhotoHandler(t *testing.T) {
	plan := mustPlan(t, `{"mission_name":"m","actions":[{"action":"move_to","parameters":{"target_x":"5","target_y":"0"}},{"action":"take_photo","parameters":{"resolution":"4k"}}]}`)
	var photos []Event
	ex, err := New(plan, NewState(Vec2{0, 0}), DefaultConfig(), WithPhotoHandler(func(e Event) { photos = append(photos, e) }))
	require.NoError(t, err)

	mm, err := ex.Run(context.Background(), 1, 100)
	require.NoError(t, err)

	require.Len(t, photos, 1)
	assert.Equal(t, 1, photos[0].ActionIndex)
	assert.Equal(t, Vec2{5, 0}, photos[0].Position)
	assert.Equal(t, "4k", photos[0].Params["resolution"])
	assert.Equal(t, 1, mm.Photos)
}

func TestExecutor_UnsupportedAction(t *testing.T) {
	reg, err := parser.NewActionRegistry(parser.DefaultRegistry().Actions, parser.VocabularyPermissive)
	require.NoError(t, err)
	plan, err := parser.Validate(`{"mission_name":"m","actions":[{"action":"scan_area"},{"action":"pick_up"}]}`, reg)
	require.NoError(t, err)

	ex, err := New(plan, NewState(Vec2{0, 0}), DefaultConfig())
	require.NoError(t, err)

	events := ex.Tick(1)
	assert.Equal(t, []EventKind{EventUnsupported, EventActionCompleted}, kinds(events))
	assert.Equal(t, 1, ex.State().Cursor)

	mm, err := ex.Run(context.Background(), 1, 0)
	require.NoError(t, err)
	assert.Equal(t, metrics.OutcomeUnsupported, mm.Actions[0].Outcome)
	assert.Equal(t, 1, mm.Completed())
}

func TestExecutor_FullMission(t *testing.T) {
	plan := mustPlan(t, `{"mission_name":"sample return","actions":[
		{"action":"move_to","parameters":{"target_x":"400","target_y":"250"}},
		{"action":"pick_up"},
		{"action":"take_photo"},
		{"action":"wait","parameters":{"duration":"2"}},
		{"action":"move_to","parameters":{"target_x":"100","target_y":"100","speed":"50"}},
		{"action":"drop_off"}
	]}`)
	ex, err := New(plan, NewState(Vec2{100, 100}), Config{MaxSpeed: 150, ArriveEpsilon: 1}, WithMissionID("abc123"))
	require.NoError(t, err)

	mm, err := ex.Run(context.Background(), 0.25, 100000)
	require.NoError(t, err)

	st := ex.State()
	assert.Equal(t, Vec2{100, 100}, st.Position)
	assert.False(t, st.CarryingSample)
	assert.Equal(t, StatusIdle, st.Status)

	assert.Equal(t, "abc123", mm.MissionID)
	assert.Equal(t, "sample return", mm.MissionName)
	assert.True(t, mm.Succeeded)
	assert.Len(t, mm.Actions, 6)
	assert.Equal(t, 6, mm.Completed())
	assert.InDelta(t, 2*math.Hypot(300, 150), mm.Distance, 1e-6)
	assert.Equal(t, mm.Ticks, ex.Ticks())
	// 2 s wait at 4 ticks per second.
	assert.Equal(t, 8, mm.Actions[3].Ticks)
	assert.InDelta(t, 2, mm.Actions[3].SimSeconds, 1e-9)
}

func TestExecutor_RunLimits(t *testing.T) {
	plan := mustPlan(t, `{"mission_name":"m","actions":[{"action":"wait","parameters":{"duration":"100"}}]}`)

	ex, err := New(plan, NewState(Vec2{0, 0}), DefaultConfig())
	require.NoError(t, err)
	mm, err := ex.Run(context.Background(), 1, 10)
	assert.True(t, errors.Is(err, ErrTickBudget))
	assert.False(t, mm.Succeeded)
	assert.Equal(t, 10, mm.Ticks)

	ex, err = New(plan, NewState(Vec2{0, 0}), DefaultConfig())
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = ex.Run(ctx, 1, 0)
	assert.ErrorIs(t, err, context.Canceled)

	_, err = ex.Run(context.Background(), 0, 0)
	assert.Error(t, err)
}

func TestExecutor_EmptyPlan(t *testing.T) {
	ex, err := New(mustPlan(t, `{"mission_name":"idle","actions":[]}`), NewState(Vec2{1, 2}), DefaultConfig())
	require.NoError(t, err)
	assert.True(t, ex.Done())
	assert.Nil(t, ex.Tick(1))
	assert.True(t, ex.Metrics().Succeeded)
}

func TestExecutor_StateIsACopy(t *testing.T) {
	ex, err := New(mustPlan(t, `{"mission_name":"m","actions":[{"action":"pick_up"}]}`), NewState(Vec2{1, 2}), DefaultConfig())
	require.NoError(t, err)

	s := ex.State()
	s.Position = Vec2{99, 99}
	s.CarryingSample = true
	assert.Equal(t, Vec2{1, 2}, ex.State().Position)
	assert.False(t, ex.State().CarryingSample)
}

func TestNew_Errors(t *testing.T) {
	plan := mustPlan(t, `{"mission_name":"m","actions":[]}`)
	_, err := New(nil, NewState(Vec2{}), DefaultConfig())
	assert.Error(t, err)
	_, err = New(plan, NewState(Vec2{}), Config{MaxSpeed: 0, ArriveEpsilon: 1})
	assert.Error(t, err)
	_, err = New(plan, NewState(Vec2{}), Config{MaxSpeed: 1, ArriveEpsilon: -1})
	assert.Error(t, err)
}

func TestEventAndStatusNames(t *testing.T) {
	assert.Equal(t, "precondition_skip", EventPreconditionSkip.String())
	assert.Equal(t, "event(99)", EventKind(99).String())
	assert.Equal(t, "blocked", StatusBlocked.String())
}

func kinds(events []Event) []EventKind {
	out := make([]EventKind, len(events))
	for i, e := range events {
		out[i] = e.Kind
	}
	return out
}
