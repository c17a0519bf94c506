package scheduler

import (
	"context"
	"time"

	"execbox/internal/sandbox/result"
	"execbox/internal/sandbox/spec"

	"github.com/google/uuid"
)

// State is the lifecycle state of one tracked job.
type State string

const (
	StateQueued    State = "Queued"
	StateRunning   State = "Running"
	StateCompleted State = "Completed"
	StateCancelled State = "Cancelled"
)

// outcome is what a waiting submitter eventually receives.
type outcome struct {
	res result.ExecutionResult
	err error
}

// job wraps one admitted request. All state transitions happen on the
// arbiter goroutine; the per-job context is the handle for cancelling a
// running job.
type job struct {
	id         string
	req        spec.ExecutionRequest
	admittedAt time.Time
	state      State

	ctx    context.Context
	cancel context.CancelFunc

	// outcomeCh is buffered so a departed submitter never blocks the
	// worker goroutine.
	outcomeCh chan outcome
}

func newJob(req spec.ExecutionRequest) *job {
	// The job context is detached from the submitter's: a caller that
	// goes away while the job runs cancels through the arbiter, not by
	// context propagation, so slot accounting stays in one place.
	ctx, cancel := context.WithCancel(context.Background())
	return &job{
		id:         uuid.NewString(),
		req:        req,
		admittedAt: time.Now(),
		state:      StateQueued,
		ctx:        ctx,
		cancel:     cancel,
		outcomeCh:  make(chan outcome, 1),
	}
}
