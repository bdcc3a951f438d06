package executor

import (
	"fmt"
	"math"
)

type Vec2 struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

func (v Vec2) Sub(o Vec2) Vec2      { return Vec2{v.X - o.X, v.Y - o.Y} }
func (v Vec2) Add(o Vec2) Vec2      { return Vec2{v.X + o.X, v.Y + o.Y} }
func (v Vec2) Scale(f float64) Vec2 { return Vec2{v.X * f, v.Y * f} }
func (v Vec2) Len() float64         { return math.Hypot(v.X, v.Y) }
func (v Vec2) Dist(o Vec2) float64  { return v.Sub(o).Len() }
func (v Vec2) String() string       { return fmt.Sprintf("(%.1f, %.1f)", v.X, v.Y) }

type Status int

const (
	StatusIdle Status = iota
	StatusMoving
	StatusWaiting
	// StatusBlocked marks a skipped action whose precondition did not hold.
	StatusBlocked
)

func (s Status) String() string {
	switch s {
	case StatusIdle:
		return "idle"
	case StatusMoving:
		return "moving"
	case StatusWaiting:
		return "waiting"
	case StatusBlocked:
		return "blocked"
	}
	return fmt.Sprintf("status(%d)", int(s))
}

// State is the whole mutable state of one actor. It is a value: copies are
// independent, and Step never writes through Target.
type State struct {
	Position       Vec2
	Heading        float64 // radians
	Target         *Vec2
	CarryingSample bool
	WaitRemaining  float64 // seconds
	Cursor         int
	Status         Status
}

// InFlight reports whether the current action needs more ticks. It is the
// only input to cursor advancement.
func (s State) InFlight() bool {
	return s.Target != nil || s.WaitRemaining > 0
}

// NewState places an idle actor at pos.
func NewState(pos Vec2) State {
	return State{Position: pos}
}
