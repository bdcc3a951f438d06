package metrics

import "time"

// Outcome of one action.
const (
	OutcomeCompleted   = "completed"
	OutcomeSkipped     = "skipped"
	OutcomeUnsupported = "unsupported"
)

type ActionMetrics struct {
	Index      int     `json:"index"`
	Action     string  `json:"action"`
	StartTick  int     `json:"start_tick"`
	EndTick    int     `json:"end_tick"`
	Ticks      int     `json:"ticks"`
	SimSeconds float64 `json:"sim_seconds"`
	Distance   float64 `json:"distance"`
	Outcome    string  `json:"outcome"`
	Note       string  `json:"note,omitempty"`
}

type MissionMetrics struct {
	MissionID   string          `json:"mission_id"`
	MissionName string          `json:"mission_name"`
	Start       time.Time       `json:"start"`
	End         time.Time       `json:"end"`
	DurationMs  int64           `json:"duration_ms"`
	Ticks       int             `json:"ticks"`
	SimSeconds  float64         `json:"sim_seconds"`
	Distance    float64         `json:"distance"`
	Photos      int             `json:"photos"`
	Skips       int             `json:"skips"`
	Succeeded   bool            `json:"succeeded"`
	Err         string          `json:"err,omitempty"`
	Actions     []ActionMetrics `json:"actions"`
}

// Compute derived fields for an action that ended on endTick.
func (a *ActionMetrics) Finalize(endTick int) {
	a.EndTick = endTick
	a.Ticks = endTick - a.StartTick + 1
}

// Finalize stamps the wall-clock end and records err, if any.
func (m *MissionMetrics) Finalize(err error) {
	m.End = time.Now()
	m.DurationMs = m.End.Sub(m.Start).Milliseconds()
	m.Succeeded = err == nil
	if err != nil {
		m.Err = err.Error()
	}
}

// Completed counts actions that ran to completion.
func (m *MissionMetrics) Completed() int {
	n := 0
	for _, a := range m.Actions {
		if a.Outcome == OutcomeCompleted {
			n++
		}
	}
	return n
}
