// Package queue implements a durable job queue with named queues, per-queue worker pools,
// retries with backoff, dead-letter handling and stalled job recovery.
package queue

import (
	"encoding/json"
	"fmt"
	"time"
)

// State is a job lifecycle state
type State string

// job states
const (
	StateWaiting   State = "waiting"
	StateActive    State = "active"
	StateDelayed   State = "delayed"
	StateCompleted State = "completed"
	StateFailed    State = "failed"
	StateDead      State = "dead"
)

// ParseState converts a string to a known state
func ParseState(s string) (State, error) {
	switch st := State(s); st {
	case StateWaiting, StateActive, StateDelayed, StateCompleted, StateFailed, StateDead:
		return st, nil
	default:
		return "", fmt.Errorf("unknown job state %q", s)
	}
}

// BackoffType selects how retry delays grow
type BackoffType string

// backoff types
const (
	BackoffExponential BackoffType = "exponential"
	BackoffFixed       BackoffType = "fixed"
)

// Backoff defines the delay before a retry
type Backoff struct {
	Type  BackoffType   `json:"type"`
	Delay time.Duration `json:"delay"`
}

// Next returns the delay after the given failed attempt, attempt starts at 1
func (b Backoff) Next(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	if b.Type == BackoffFixed {
		return b.Delay
	}
	d := b.Delay
	for i := 1; i < attempt && d < 24*time.Hour; i++ {
		d *= 2
	}
	return d
}

// Job is a unit of work in a named queue
type Job struct {
	ID          string          `json:"id"`
	Queue       string          `json:"queue"`
	Type        string          `json:"type"`
	Payload     json.RawMessage `json:"payload"`
	Result      json.RawMessage `json:"result,omitempty"`
	Attempts    int             `json:"attempts"`
	MaxAttempts int             `json:"max_attempts"`
	Backoff     Backoff         `json:"backoff"`
	State       State           `json:"state"`
	LastError   string          `json:"last_error,omitempty"`
	RunAt       time.Time       `json:"run_at"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
	FinishedAt  time.Time       `json:"finished_at,omitzero"`
}

// Decode unmarshals the payload into v
func (j *Job) Decode(v any) error {
	if err := json.Unmarshal(j.Payload, v); err != nil {
		return fmt.Errorf("decode payload of job %s: %w", j.ID, err)
	}
	return nil
}

// Clone returns a deep copy, brokers hand out clones so callers never share state
func (j *Job) Clone() *Job {
	res := *j
	res.Payload = append(json.RawMessage(nil), j.Payload...)
	if j.Result != nil {
		res.Result = append(json.RawMessage(nil), j.Result...)
	}
	return &res
}

func (j *Job) String() string {
	return fmt.Sprintf("%s/%s#%s", j.Queue, j.Type, j.ID)
}

// Options are per-job enqueue settings
type Options struct {
	MaxAttempts int
	Backoff     Backoff
	Delay       time.Duration
}

// Option changes Options
type Option func(*Options)

// WithAttempts sets max attempts, including the first one
func WithAttempts(n int) Option {
	return func(o *Options) { o.MaxAttempts = n }
}

// WithBackoff sets the retry backoff
func WithBackoff(typ BackoffType, delay time.Duration) Option {
	return func(o *Options) { o.Backoff = Backoff{Type: typ, Delay: delay} }
}

// WithDelay postpones the first run
func WithDelay(d time.Duration) Option {
	return func(o *Options) { o.Delay = d }
}

// Retention limits how many completed jobs are kept and for how long
type Retention struct {
	Count int
	Age   time.Duration
}

// Stats is a per-queue snapshot of job counts
type Stats struct {
	Waiting   int64 `json:"waiting"`
	Active    int64 `json:"active"`
	Delayed   int64 `json:"delayed"`
	Completed int64 `json:"completed"`
	Failed    int64 `json:"failed"`
	Dead      int64 `json:"dead"`
}
