package supervisor

import (
	"context"
	"time"

	"mission-planner/internal/parser"
)

const (
	StatusPending   = "PENDING"
	StatusRunning   = "RUNNING"
	StatusSucceeded = "SUCCEEDED"
	StatusFailed    = "FAILED"
	StatusCancelled = "CANCELLED"
)

type Mission struct {
	ID        string
	Name      string
	State     string
	Plan      *parser.MissionPlan
	Submitted time.Time

	// guarded by Supervisor.mu
	cancelled bool
	runCancel context.CancelFunc
}
