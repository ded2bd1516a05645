package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"runtime/debug"
	"slices"
	"sync"
	"time"

	"github.com/go-pkgz/lgr"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// Handler processes a job. The returned result is stored with the completed job.
type Handler func(ctx context.Context, job *Job) (any, error)

// Config holds manager settings
type Config struct {
	Concurrency     int           // workers per queue unless overridden by SetConcurrency
	PollInterval    time.Duration // idle wait between pops of an empty queue
	LeaseTime       time.Duration // how long a worker holds a job without heartbeat
	StalledInterval time.Duration // how often expired leases are checked
	Defaults        Options       // applied to every Enqueue before per-job options
	Retention       Retention     // completed jobs kept

	// DeadLetter reports errors that skip retries and go to dead state directly
	DeadLetter func(err error) bool

	OnCompleted func(job *Job)
	OnFailed    func(job *Job, err error)
	OnStalled   func(job *Job)
}

// Manager owns queue handlers and worker pools on top of a Broker
type Manager struct {
	broker Broker
	cfg    Config
	now    func() time.Time

	mu          sync.Mutex
	handlers    map[string]map[string]Handler // queue -> job type -> handler
	concurrency map[string]int
	known       map[string]bool // queues seen in this process
	running     bool
}

// NewManager makes a manager with defaults for zero config values
func NewManager(broker Broker, cfg Config) *Manager {
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 5
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 200 * time.Millisecond
	}
	if cfg.LeaseTime <= 0 {
		cfg.LeaseTime = 30 * time.Second
	}
	if cfg.StalledInterval <= 0 {
		cfg.StalledInterval = 5 * time.Second
	}
	if cfg.Defaults.MaxAttempts <= 0 {
		cfg.Defaults.MaxAttempts = 3
	}
	if cfg.Defaults.Backoff.Type == "" {
		cfg.Defaults.Backoff.Type = BackoffExponential
	}
	if cfg.Defaults.Backoff.Delay <= 0 {
		cfg.Defaults.Backoff.Delay = time.Second
	}
	if cfg.Retention.Count == 0 && cfg.Retention.Age == 0 {
		cfg.Retention = Retention{Count: 100, Age: time.Hour}
	}
	if cfg.DeadLetter == nil {
		cfg.DeadLetter = func(error) bool { return false }
	}
	return &Manager{
		broker:      broker,
		cfg:         cfg,
		now:         time.Now,
		handlers:    make(map[string]map[string]Handler),
		concurrency: make(map[string]int),
		known:       make(map[string]bool),
	}
}

// Process registers the handler for a job type in a queue, exactly one handler per pair
func (m *Manager) Process(queue, jobType string, h Handler) error {
	if queue == "" || jobType == "" || h == nil {
		return errors.New("queue, job type and handler are required")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.running {
		return fmt.Errorf("can't register %s/%s, manager is running", queue, jobType)
	}
	if _, ok := m.handlers[queue][jobType]; ok {
		return fmt.Errorf("handler for %s/%s already registered", queue, jobType)
	}
	if m.handlers[queue] == nil {
		m.handlers[queue] = make(map[string]Handler)
	}
	m.handlers[queue][jobType] = h
	m.known[queue] = true
	return nil
}

// SetConcurrency overrides the number of workers for a queue
func (m *Manager) SetConcurrency(queue string, n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if n > 0 {
		m.concurrency[queue] = n
	}
}

// Enqueue adds a job and returns its id
func (m *Manager) Enqueue(ctx context.Context, queue, jobType string, payload any, opts ...Option) (string, error) {
	if queue == "" || jobType == "" {
		return "", errors.New("queue and job type are required")
	}
	o := m.cfg.Defaults
	for _, opt := range opts {
		opt(&o)
	}
	if o.MaxAttempts <= 0 {
		o.MaxAttempts = 1
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("marshal payload for %s/%s: %w", queue, jobType, err)
	}

	now := m.now()
	job := &Job{
		ID:          uuid.NewString(),
		Queue:       queue,
		Type:        jobType,
		Payload:     data,
		MaxAttempts: o.MaxAttempts,
		Backoff:     o.Backoff,
		State:       StateWaiting,
		RunAt:       now.Add(o.Delay),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := m.broker.Push(ctx, job); err != nil {
		return "", fmt.Errorf("enqueue %s/%s: %w", queue, jobType, err)
	}

	m.mu.Lock()
	m.known[queue] = true
	m.mu.Unlock()

	lgr.Printf("[DEBUG] enqueued job %s", job)
	return job.ID, nil
}

// Run starts worker pools and stalled job monitors for all registered queues.
// Blocks until ctx is canceled, in-flight jobs finish before it returns.
func (m *Manager) Run(ctx context.Context) error {
	m.mu.Lock()
	if m.running {
		m.mu.Unlock()
		return errors.New("manager is already running")
	}
	m.running = true
	queues := make(map[string]int, len(m.handlers))
	for q := range m.handlers {
		n := m.cfg.Concurrency
		if c, ok := m.concurrency[q]; ok {
			n = c
		}
		queues[q] = n
	}
	m.mu.Unlock()

	defer func() {
		m.mu.Lock()
		m.running = false
		m.mu.Unlock()
	}()

	if len(queues) == 0 {
		return errors.New("no handlers registered")
	}

	g, gctx := errgroup.WithContext(ctx)
	for q, n := range queues {
		lgr.Printf("[INFO] starting %d workers for queue %s", n, q)
		for i := range n {
			g.Go(func() error {
				m.worker(gctx, q, i)
				return nil
			})
		}
		g.Go(func() error {
			m.stalledMonitor(gctx, q)
			return nil
		})
	}
	err := g.Wait()
	lgr.Printf("[INFO] queue workers stopped")
	return err
}

// worker pops and executes jobs until ctx is done
func (m *Manager) worker(ctx context.Context, queue string, id int) {
	for {
		if ctx.Err() != nil {
			return
		}
		job, err := m.broker.Pop(ctx, queue, m.cfg.LeaseTime)
		if err != nil {
			if ctx.Err() == nil {
				lgr.Printf("[WARN] worker %d of %s can't pop job: %v", id, queue, err)
			}
			m.sleep(ctx, m.cfg.PollInterval)
			continue
		}
		if job == nil {
			m.sleep(ctx, m.cfg.PollInterval)
			continue
		}
		m.execute(ctx, job)
	}
}

// execute runs the handler with lease heartbeat and records the outcome.
// Outcome is reported with a context detached from cancellation, so a job finished
// during shutdown is not left active.
func (m *Manager) execute(ctx context.Context, job *Job) {
	h := m.handler(job.Queue, job.Type)
	rctx := context.WithoutCancel(ctx)
	if h == nil {
		job.State = StateDead
		m.finishFailed(rctx, job, fmt.Errorf("no handler for job type %q", job.Type))
		return
	}

	hctx, cancel := context.WithCancel(ctx)
	hbDone := make(chan struct{})
	go func() {
		defer close(hbDone)
		m.heartbeat(hctx, job)
	}()

	started := m.now()
	result, err := m.call(hctx, h, job)
	cancel()
	<-hbDone

	if err != nil && ctx.Err() != nil {
		// interrupted by shutdown, the attempt doesn't count
		job.Attempts--
		job.RunAt = m.now()
		job.State = StateDelayed
		if rerr := m.broker.Retry(rctx, job); rerr != nil {
			lgr.Printf("[WARN] can't return interrupted job %s: %v", job, rerr)
			return
		}
		lgr.Printf("[INFO] job %s interrupted by shutdown, requeued", job)
		return
	}

	if err != nil {
		m.fail(rctx, job, err)
		return
	}

	if result != nil {
		if data, merr := json.Marshal(result); merr == nil {
			job.Result = data
		} else {
			lgr.Printf("[WARN] can't marshal result of job %s: %v", job, merr)
		}
	}
	job.State = StateCompleted
	job.LastError = ""
	job.FinishedAt = m.now()
	job.UpdatedAt = job.FinishedAt
	if err := m.broker.Complete(rctx, job, m.cfg.Retention); err != nil {
		lgr.Printf("[WARN] can't complete job %s: %v", job, err)
		return
	}
	lgr.Printf("[DEBUG] job %s completed in %v", job, m.now().Sub(started))
	if m.cfg.OnCompleted != nil {
		m.cfg.OnCompleted(job)
	}
}

// call invokes the handler converting a panic to an error
func (m *Manager) call(ctx context.Context, h Handler, job *Job) (res any, err error) {
	defer func() {
		if r := recover(); r != nil {
			lgr.Printf("[ERROR] job %s panicked: %v\n%s", job, r, debug.Stack())
			err = fmt.Errorf("handler panic: %v", r)
		}
	}()
	return h(ctx, job)
}

// fail applies the retry policy: dead-letter, retry with backoff or terminal failure
func (m *Manager) fail(ctx context.Context, job *Job, err error) {
	job.LastError = err.Error()
	job.UpdatedAt = m.now()

	if m.cfg.DeadLetter(err) {
		job.State = StateDead
		m.finishFailed(ctx, job, err)
		return
	}

	if job.Attempts < job.MaxAttempts {
		delay := job.Backoff.Next(job.Attempts)
		job.RunAt = m.now().Add(delay)
		job.State = StateDelayed
		if rerr := m.broker.Retry(ctx, job); rerr != nil {
			lgr.Printf("[WARN] can't reschedule job %s: %v", job, rerr)
			return
		}
		lgr.Printf("[INFO] job %s attempt %d/%d failed, retry in %v: %v", job, job.Attempts, job.MaxAttempts, delay, err)
		return
	}

	job.State = StateFailed
	m.finishFailed(ctx, job, err)
}

func (m *Manager) finishFailed(ctx context.Context, job *Job, err error) {
	job.LastError = err.Error()
	job.FinishedAt = m.now()
	job.UpdatedAt = job.FinishedAt
	if ferr := m.broker.Fail(ctx, job); ferr != nil {
		lgr.Printf("[WARN] can't mark job %s as %s: %v", job, job.State, ferr)
		return
	}
	if job.State == StateDead {
		lgr.Printf("[ERROR] job %s in queue %s moved to dead-letter after %d attempt(s): %v", job.ID, job.Queue, job.Attempts, err)
	} else {
		lgr.Printf("[ERROR] job %s in queue %s failed after %d/%d attempts: %v", job.ID, job.Queue, job.Attempts, job.MaxAttempts, err)
	}
	if m.cfg.OnFailed != nil {
		m.cfg.OnFailed(job, err)
	}
}

// heartbeat keeps the lease alive while the handler runs
func (m *Manager) heartbeat(ctx context.Context, job *Job) {
	ticker := time.NewTicker(m.cfg.LeaseTime / 3)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := m.broker.Extend(ctx, job, m.cfg.LeaseTime); err != nil && ctx.Err() == nil {
				lgr.Printf("[WARN] can't extend lease of job %s: %v", job, err)
			}
		}
	}
}

// stalledMonitor periodically returns jobs with expired leases to waiting or fails them
func (m *Manager) stalledMonitor(ctx context.Context, queue string) {
	ticker := time.NewTicker(m.cfg.StalledInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.recoverStalled(ctx, queue)
		}
	}
}

func (m *Manager) recoverStalled(ctx context.Context, queue string) int {
	jobs, err := m.broker.Recover(ctx, queue)
	if err != nil {
		if ctx.Err() == nil {
			lgr.Printf("[WARN] can't recover stalled jobs in %s: %v", queue, err)
		}
		return 0
	}
	for _, j := range jobs {
		if j.State == StateFailed {
			lgr.Printf("[ERROR] job %s in queue %s failed after %d/%d attempts: %v", j.ID, j.Queue, j.Attempts, j.MaxAttempts, ErrStalled)
			if m.cfg.OnFailed != nil {
				m.cfg.OnFailed(j, ErrStalled)
			}
			continue
		}
		lgr.Printf("[WARN] job %s in queue %s stalled after attempt %d, requeued", j.ID, j.Queue, j.Attempts)
		if m.cfg.OnStalled != nil {
			m.cfg.OnStalled(j)
		}
	}
	return len(jobs)
}

// Stats returns job counts for every queue known to this manager
func (m *Manager) Stats(ctx context.Context) (map[string]Stats, error) {
	res := make(map[string]Stats)
	for _, q := range m.Queues() {
		st, err := m.broker.Stats(ctx, q)
		if err != nil {
			return nil, fmt.Errorf("stats for %s: %w", q, err)
		}
		res[q] = st
	}
	return res, nil
}

// QueueStats returns job counts of a single queue, known to this manager or not
func (m *Manager) QueueStats(ctx context.Context, queue string) (Stats, error) {
	st, err := m.broker.Stats(ctx, queue)
	if err != nil {
		return Stats{}, fmt.Errorf("stats for %s: %w", queue, err)
	}
	return st, nil
}

// Queues returns sorted names of queues known to this manager
func (m *Manager) Queues() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	res := make([]string, 0, len(m.known))
	for q := range m.known {
		res = append(res, q)
	}
	slices.Sort(res)
	return res
}

// Jobs lists jobs of a queue in the given state
func (m *Manager) Jobs(ctx context.Context, queue string, state State, limit int) ([]*Job, error) {
	return m.broker.Jobs(ctx, queue, state, limit)
}

// Requeue puts a failed or dead job back to waiting
func (m *Manager) Requeue(ctx context.Context, queue, id string) error {
	if err := m.broker.Requeue(ctx, queue, id); err != nil {
		return fmt.Errorf("requeue %s in %s: %w", id, queue, err)
	}
	lgr.Printf("[INFO] job %s in queue %s requeued", id, queue)
	return nil
}

// Purge removes jobs in a terminal state
func (m *Manager) Purge(ctx context.Context, queue string, state State) (int, error) {
	if !purgeable(state) {
		return 0, fmt.Errorf("can't purge %s jobs", state)
	}
	n, err := m.broker.Purge(ctx, queue, state)
	if err != nil {
		return 0, fmt.Errorf("purge %s in %s: %w", state, queue, err)
	}
	lgr.Printf("[INFO] purged %d %s jobs from %s", n, state, queue)
	return n, nil
}

func (m *Manager) handler(queue, jobType string) Handler {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.handlers[queue][jobType]
}

func (m *Manager) sleep(ctx context.Context, d time.Duration) {
	select {
	case <-ctx.Done():
	case <-time.After(d):
	}
}
