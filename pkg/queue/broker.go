package queue

import (
	"context"
	"errors"
	"time"
)

// ErrJobNotFound is returned for operations on unknown job ids
var ErrJobNotFound = errors.New("job not found")

// ErrLeaseLost is returned by Extend when the job is no longer held by the caller
var ErrLeaseLost = errors.New("job lease lost")

// ErrStalled is the last error of a job whose lease expired on its final attempt
var ErrStalled = errors.New("stalled")

// Broker stores jobs and moves them between states. Implementations must guarantee
// a single Pop hands a job to exactly one caller.
type Broker interface {
	// Push adds a new job, waiting or delayed depending on RunAt
	Push(ctx context.Context, job *Job) error
	// Pop takes the next ready job, promoting due delayed jobs first, and leases it.
	// Returns nil job if nothing is ready.
	Pop(ctx context.Context, queue string, lease time.Duration) (*Job, error)
	// Extend refreshes the lease of an active job
	Extend(ctx context.Context, job *Job, lease time.Duration) error
	// Complete moves an active job to completed and trims completed jobs by retention
	Complete(ctx context.Context, job *Job, keep Retention) error
	// Retry moves an active job to delayed until job.RunAt
	Retry(ctx context.Context, job *Job) error
	// Fail moves an active job to its terminal job.State, failed or dead
	Fail(ctx context.Context, job *Job) error
	// Recover returns active jobs with expired lease back to waiting. A job which used
	// all attempts goes to failed with ErrStalled instead, returned jobs carry the new state.
	Recover(ctx context.Context, queue string) ([]*Job, error)
	// Stats counts jobs per state
	Stats(ctx context.Context, queue string) (Stats, error)
	// Jobs lists jobs in the given state, newest first for terminal states
	Jobs(ctx context.Context, queue string, state State, limit int) ([]*Job, error)
	// Requeue moves a failed or dead job back to waiting with attempts reset
	Requeue(ctx context.Context, queue, id string) error
	// Purge removes all jobs in a terminal state, returns number removed
	Purge(ctx context.Context, queue string, state State) (int, error)
}

func purgeable(state State) bool {
	return state == StateCompleted || state == StateFailed || state == StateDead
}
