package supervisor

import (
	"mission-planner/internal/executor"
	"mission-planner/internal/metrics"
)

type MissionResult struct {
	MissionID   string                  `json:"mission_id"`
	MissionName string                  `json:"mission_name"`
	Status      string                  `json:"status"`
	FinalPlan   string                  `json:"final_plan"`
	Error       string                  `json:"error,omitempty"`
	FinalState  executor.State          `json:"final_state"`
	Metrics     *metrics.MissionMetrics `json:"metrics,omitempty"`
}

func (r MissionResult) Succeeded() bool { return r.Status == StatusSucceeded }
