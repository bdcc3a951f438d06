package parser

import (
	"math"
	"regexp"
	"strconv"
)

// Parameter keys understood by the rover.
const (
	ParamTargetX    = "target_x"
	ParamTargetY    = "target_y"
	ParamSpeed      = "speed"
	ParamDuration   = "duration"
	ParamResolution = "resolution"
	ParamZoom       = "zoom"
)

// DefaultWaitSeconds is used when a wait carries no numeric duration.
const DefaultWaitSeconds = 1.0

var numberRe = regexp.MustCompile(`[-+]?\d*\.?\d+`)

// ParseNumber reads the first numeric token of s, so "2.5s" yields 2.5 and
// "x=-3" yields -3.
func ParseNumber(s string) (float64, bool) {
	tok := numberRe.FindString(s)
	if tok == "" {
		return 0, false
	}
	f, err := strconv.ParseFloat(tok, 64)
	if err != nil || math.IsInf(f, 0) || math.IsNaN(f) {
		return 0, false
	}
	return f, true
}

func numberParam(a Action, key string) (float64, bool) {
	v, ok := a.Parameters[key]
	if !ok {
		return 0, false
	}
	return ParseNumber(v)
}

// MoveTarget returns the target of a move_to. A coordinate that is missing or
// unparsable falls back to the current one.
func MoveTarget(a Action, curX, curY float64) (x, y float64) {
	x, y = curX, curY
	if v, ok := numberParam(a, ParamTargetX); ok {
		x = v
	}
	if v, ok := numberParam(a, ParamTargetY); ok {
		y = v
	}
	return x, y
}

// Speed returns the requested speed capped at maxSpeed. A missing or
// non-positive speed means full speed.
func Speed(a Action, maxSpeed float64) float64 {
	v, ok := numberParam(a, ParamSpeed)
	if !ok || v <= 0 || v > maxSpeed {
		return maxSpeed
	}
	return v
}

// WaitDuration returns the wait length in seconds, DefaultWaitSeconds when
// no numeric token is present. Negative values are clamped to zero.
func WaitDuration(a Action) float64 {
	v, ok := numberParam(a, ParamDuration)
	if !ok {
		return DefaultWaitSeconds
	}
	return math.Max(v, 0)
}
