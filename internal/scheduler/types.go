package scheduler

import (
	"context"
	"time"

	"github.com/livinlefevreloca/biosync/internal/orchestrator"
)

// Runner starts a sync run unless one is already in flight
type Runner interface {
	TryRunOnce(ctx context.Context, trigger orchestrator.Trigger) (orchestrator.Result, error)
}

// State is a snapshot of the scheduler
type State struct {
	Running         bool
	IntervalMinutes int32
	NextRunAt       time.Time
}
