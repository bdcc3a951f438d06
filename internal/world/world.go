package world

import (
	"fmt"
	"sort"
	"strings"

	"mission-planner/internal/config"
	"mission-planner/internal/executor"
	"mission-planner/internal/parser"
)

type Location struct {
	Name string
	Pos  executor.Vec2
}

// World is the arena the rover moves in. It is read-only after New.
type World struct {
	Width, Height float64
	startName     string
	start         executor.Vec2
	locations     map[string]executor.Vec2
}

func New(cfg config.WorldConfig) (*World, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	w := &World{
		Width:     cfg.Width,
		Height:    cfg.Height,
		startName: cfg.Start,
		locations: make(map[string]executor.Vec2, len(cfg.Locations)),
	}
	for name, p := range cfg.Locations {
		w.locations[strings.ToLower(name)] = executor.Vec2{X: p.X, Y: p.Y}
	}
	if cfg.Start != "" {
		w.start = w.locations[strings.ToLower(cfg.Start)]
	}
	return w, nil
}

// Start returns a fresh actor state at the start location.
func (w *World) Start() executor.State { return executor.NewState(w.start) }

func (w *World) Location(name string) (executor.Vec2, bool) {
	p, ok := w.locations[strings.ToLower(strings.TrimSpace(name))]
	return p, ok
}

// Locations returns the named locations sorted by name.
func (w *World) Locations() []Location {
	out := make([]Location, 0, len(w.locations))
	for name, p := range w.locations {
		out = append(out, Location{Name: name, Pos: p})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func (w *World) Contains(p executor.Vec2) bool {
	return p.X >= 0 && p.Y >= 0 && p.X <= w.Width && p.Y <= w.Height
}

// NameAt returns the name of the location within eps of p, if any.
func (w *World) NameAt(p executor.Vec2, eps float64) (string, bool) {
	for _, loc := range w.Locations() {
		if loc.Pos.Dist(p) <= eps {
			return loc.Name, true
		}
	}
	return "", false
}

// ConstraintsBlock lists the arena facts a planner needs to turn place names
// into coordinates.
func (w *World) ConstraintsBlock() string {
	var sb strings.Builder
	sb.WriteString("Known coordinates:\n")
	for _, loc := range w.Locations() {
		sb.WriteString(fmt.Sprintf("%s = (%g, %g)\n", loc.Name, loc.Pos.X, loc.Pos.Y))
	}
	sb.WriteString(fmt.Sprintf("Arena: %g x %g, origin at the top-left corner.\n", w.Width, w.Height))
	if w.startName != "" {
		sb.WriteString(fmt.Sprintf("The rover starts at %s (%g, %g) without a sample.", w.startName, w.start.X, w.start.Y))
	} else {
		sb.WriteString(fmt.Sprintf("The rover starts at (%g, %g) without a sample.", w.start.X, w.start.Y))
	}
	return sb.String()
}

type Warning struct {
	ActionIndex int
	Action      string
	Message     string
}

func (w Warning) String() string {
	return fmt.Sprintf("action %d (%s): %s", w.ActionIndex+1, w.Action, w.Message)
}

// Review dry-runs plan against the arena and reports what will likely go
// wrong. It never rejects a plan.
func (w *World) Review(plan *parser.MissionPlan) []Warning {
	return w.ReviewFrom(plan, w.Start())
}

// ReviewFrom is Review for a rover that is already at s.
func (w *World) ReviewFrom(plan *parser.MissionPlan, s executor.State) []Warning {
	var warnings []Warning
	pos := s.Position
	carrying := s.CarryingSample

	for i, a := range plan.Actions {
		switch a.Action {
		case parser.ActionMoveTo:
			x, y := parser.MoveTarget(a, pos.X, pos.Y)
			target := executor.Vec2{X: x, Y: y}
			if !w.Contains(target) {
				warnings = append(warnings, Warning{i, a.Action,
					fmt.Sprintf("target %s is outside the %gx%g arena", target, w.Width, w.Height)})
			}
			pos = target
		case parser.ActionPickUp:
			if carrying {
				warnings = append(warnings, Warning{i, a.Action, "already carrying a sample; this pick-up will be skipped"})
			}
			carrying = true
		case parser.ActionDropOff:
			if !carrying {
				warnings = append(warnings, Warning{i, a.Action, "no sample is carried; this drop-off will be skipped"})
			}
			carrying = false
		}
	}
	return warnings
}
