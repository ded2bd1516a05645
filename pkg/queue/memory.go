package queue

import (
	"context"
	"slices"
	"sync"
	"time"
)

// MemoryBroker keeps jobs in process memory. Suitable for a single process and tests.
type MemoryBroker struct {
	mu     sync.Mutex
	queues map[string]*memQueue
	now    func() time.Time
}

type memQueue struct {
	jobs      map[string]*Job
	waiting   []string             // fifo
	delayed   map[string]time.Time // id -> run at
	active    map[string]time.Time // id -> lease deadline
	completed []string             // by finish time, oldest first
	failed    []string
	dead      []string
}

// NewMemoryBroker makes an empty broker
func NewMemoryBroker() *MemoryBroker {
	return &MemoryBroker{queues: make(map[string]*memQueue), now: time.Now}
}

func (b *MemoryBroker) queue(name string) *memQueue {
	q, ok := b.queues[name]
	if !ok {
		q = &memQueue{
			jobs:    make(map[string]*Job),
			delayed: make(map[string]time.Time),
			active:  make(map[string]time.Time),
		}
		b.queues[name] = q
	}
	return q
}

// Push adds a job as waiting, or delayed if RunAt is in the future
func (b *MemoryBroker) Push(_ context.Context, job *Job) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	q := b.queue(job.Queue)
	j := job.Clone()
	q.jobs[j.ID] = j
	if j.RunAt.After(b.now()) {
		j.State = StateDelayed
		q.delayed[j.ID] = j.RunAt
		return nil
	}
	j.State = StateWaiting
	q.waiting = append(q.waiting, j.ID)
	return nil
}

// Pop leases the next ready job
func (b *MemoryBroker) Pop(_ context.Context, queue string, lease time.Duration) (*Job, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	q := b.queue(queue)
	now := b.now()
	b.promoteDelayed(q, now)
	if len(q.waiting) == 0 {
		return nil, nil
	}
	id := q.waiting[0]
	q.waiting = q.waiting[1:]
	j := q.jobs[id]
	j.Attempts++
	j.State = StateActive
	j.UpdatedAt = now
	q.active[id] = now.Add(lease)
	return j.Clone(), nil
}

// promoteDelayed moves due delayed jobs to waiting in run-at order
func (b *MemoryBroker) promoteDelayed(q *memQueue, now time.Time) {
	var due []string
	for id, at := range q.delayed {
		if !at.After(now) {
			due = append(due, id)
		}
	}
	slices.SortFunc(due, func(a, c string) int { return q.delayed[a].Compare(q.delayed[c]) })
	for _, id := range due {
		delete(q.delayed, id)
		q.jobs[id].State = StateWaiting
		q.waiting = append(q.waiting, id)
	}
}

// Extend refreshes the lease of an active job
func (b *MemoryBroker) Extend(_ context.Context, job *Job, lease time.Duration) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	q := b.queue(job.Queue)
	if _, ok := q.active[job.ID]; !ok {
		return ErrLeaseLost
	}
	q.active[job.ID] = b.now().Add(lease)
	return nil
}

// Complete stores the result and trims completed jobs
func (b *MemoryBroker) Complete(_ context.Context, job *Job, keep Retention) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	q := b.queue(job.Queue)
	if _, ok := q.active[job.ID]; !ok {
		return ErrLeaseLost
	}
	delete(q.active, job.ID)
	j := job.Clone()
	j.State = StateCompleted
	q.jobs[j.ID] = j
	q.completed = append(q.completed, j.ID)
	b.trimCompleted(q, keep)
	return nil
}

func (b *MemoryBroker) trimCompleted(q *memQueue, keep Retention) {
	if keep.Age > 0 {
		cutoff := b.now().Add(-keep.Age)
		kept := q.completed[:0]
		for _, id := range q.completed {
			if q.jobs[id].FinishedAt.Before(cutoff) {
				delete(q.jobs, id)
				continue
			}
			kept = append(kept, id)
		}
		q.completed = kept
	}
	if keep.Count > 0 && len(q.completed) > keep.Count {
		extra := len(q.completed) - keep.Count
		for _, id := range q.completed[:extra] {
			delete(q.jobs, id)
		}
		q.completed = slices.Clone(q.completed[extra:])
	}
}

// Retry schedules an active job for job.RunAt
func (b *MemoryBroker) Retry(_ context.Context, job *Job) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	q := b.queue(job.Queue)
	if _, ok := q.active[job.ID]; !ok {
		return ErrLeaseLost
	}
	delete(q.active, job.ID)
	j := job.Clone()
	j.State = StateDelayed
	q.jobs[j.ID] = j
	q.delayed[j.ID] = j.RunAt
	return nil
}

// Fail moves an active job to failed or dead
func (b *MemoryBroker) Fail(_ context.Context, job *Job) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	q := b.queue(job.Queue)
	if _, ok := q.active[job.ID]; !ok {
		return ErrLeaseLost
	}
	delete(q.active, job.ID)
	j := job.Clone()
	q.jobs[j.ID] = j
	if j.State == StateDead {
		q.dead = append(q.dead, j.ID)
		return nil
	}
	j.State = StateFailed
	q.failed = append(q.failed, j.ID)
	return nil
}

// Recover returns jobs with expired lease to waiting, jobs out of attempts go to failed
func (b *MemoryBroker) Recover(_ context.Context, queue string) ([]*Job, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	q := b.queue(queue)
	now := b.now()
	var stalled []string
	for id, deadline := range q.active {
		if deadline.Before(now) {
			stalled = append(stalled, id)
		}
	}
	slices.Sort(stalled)
	res := make([]*Job, 0, len(stalled))
	for _, id := range stalled {
		delete(q.active, id)
		j := q.jobs[id]
		j.UpdatedAt = now
		if j.Attempts >= j.MaxAttempts {
			j.State = StateFailed
			j.LastError = ErrStalled.Error()
			j.FinishedAt = now
			q.failed = append(q.failed, id)
			res = append(res, j.Clone())
			continue
		}
		j.State = StateWaiting
		q.waiting = append(q.waiting, id)
		res = append(res, j.Clone())
	}
	return res, nil
}

// Stats counts jobs per state
func (b *MemoryBroker) Stats(_ context.Context, queue string) (Stats, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	q := b.queue(queue)
	return Stats{
		Waiting:   int64(len(q.waiting)),
		Active:    int64(len(q.active)),
		Delayed:   int64(len(q.delayed)),
		Completed: int64(len(q.completed)),
		Failed:    int64(len(q.failed)),
		Dead:      int64(len(q.dead)),
	}, nil
}

// Jobs lists jobs in the given state
func (b *MemoryBroker) Jobs(_ context.Context, queue string, state State, limit int) ([]*Job, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	q := b.queue(queue)

	var ids []string
	switch state {
	case StateWaiting:
		ids = slices.Clone(q.waiting)
	case StateActive:
		ids = sortedKeys(q.active)
	case StateDelayed:
		ids = sortedKeys(q.delayed)
	case StateCompleted:
		ids = reversed(q.completed)
	case StateFailed:
		ids = reversed(q.failed)
	case StateDead:
		ids = reversed(q.dead)
	}
	if limit > 0 && len(ids) > limit {
		ids = ids[:limit]
	}
	res := make([]*Job, 0, len(ids))
	for _, id := range ids {
		res = append(res, q.jobs[id].Clone())
	}
	return res, nil
}

// Requeue moves a failed or dead job back to waiting
func (b *MemoryBroker) Requeue(_ context.Context, queue, id string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	q := b.queue(queue)
	var found bool
	q.failed, found = without(q.failed, id)
	if !found {
		q.dead, found = without(q.dead, id)
	}
	if !found {
		return ErrJobNotFound
	}
	j := q.jobs[id]
	j.Attempts = 0
	j.State = StateWaiting
	j.FinishedAt = time.Time{}
	j.UpdatedAt = b.now()
	q.waiting = append(q.waiting, id)
	return nil
}

// Purge drops all jobs in a terminal state
func (b *MemoryBroker) Purge(_ context.Context, queue string, state State) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	q := b.queue(queue)
	var ids *[]string
	switch state {
	case StateCompleted:
		ids = &q.completed
	case StateFailed:
		ids = &q.failed
	case StateDead:
		ids = &q.dead
	default:
		return 0, nil
	}
	n := len(*ids)
	for _, id := range *ids {
		delete(q.jobs, id)
	}
	*ids = nil
	return n, nil
}

func sortedKeys(m map[string]time.Time) []string {
	res := make([]string, 0, len(m))
	for k := range m {
		res = append(res, k)
	}
	slices.SortFunc(res, func(a, b string) int { return m[a].Compare(m[b]) })
	return res
}

func reversed(ids []string) []string {
	res := slices.Clone(ids)
	slices.Reverse(res)
	return res
}

func without(ids []string, id string) ([]string, bool) {
	idx := slices.Index(ids, id)
	if idx < 0 {
		return ids, false
	}
	return slices.Delete(ids, idx, idx+1), true
}
