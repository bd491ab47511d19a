package operations

import (
	"context"
)

// WebSocketHub sends messages to connected clients
type WebSocketHub interface {
	BroadcastUpdate(eventType, id, status string, data interface{})
}

// ProgressFunc reports rows done out of total
type ProgressFunc func(done, total int)

// Runner executes one job and returns the id of the run it produced
type Runner interface {
	RunJob(ctx context.Context, job *Job, progress ProgressFunc) (runID string, err error)
}

// RunnerFunc adapts a function to Runner
type RunnerFunc func(ctx context.Context, job *Job, progress ProgressFunc) (string, error)

func (f RunnerFunc) RunJob(ctx context.Context, job *Job, progress ProgressFunc) (string, error) {
	return f(ctx, job, progress)
}
