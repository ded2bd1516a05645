package queue

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errPermanent = errors.New("permanent")

func newTestManager(b Broker, mod func(*Config)) *Manager {
	cfg := Config{
		Concurrency:     2,
		PollInterval:    5 * time.Millisecond,
		LeaseTime:       time.Second,
		StalledInterval: 50 * time.Millisecond,
		Defaults:        Options{MaxAttempts: 3, Backoff: Backoff{Type: BackoffExponential, Delay: 10 * time.Millisecond}},
		DeadLetter:      func(err error) bool { return errors.Is(err, errPermanent) },
	}
	if mod != nil {
		mod(&cfg)
	}
	return NewManager(b, cfg)
}

// runManager starts the manager and returns a stop func waiting for shutdown
func runManager(t *testing.T, m *Manager) func() {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- m.Run(ctx) }()
	stop := func() {
		cancel()
		select {
		case err := <-done:
			assert.NoError(t, err)
		case <-time.After(5 * time.Second):
			t.Fatal("manager didn't stop")
		}
	}
	t.Cleanup(func() { cancel() })
	return stop
}

func waitStats(t *testing.T, m *Manager, queue string, check func(Stats) bool) {
	t.Helper()
	require.Eventually(t, func() bool {
		st, err := m.Stats(context.Background())
		return err == nil && check(st[queue])
	}, 5*time.Second, 10*time.Millisecond)
}

func TestBackoff_Next(t *testing.T) {
	exp := Backoff{Type: BackoffExponential, Delay: time.Second}
	assert.Equal(t, time.Second, exp.Next(0))
	assert.Equal(t, time.Second, exp.Next(1))
	assert.Equal(t, 2*time.Second, exp.Next(2))
	assert.Equal(t, 4*time.Second, exp.Next(3))
	assert.Equal(t, 8*time.Second, exp.Next(4))

	fixed := Backoff{Type: BackoffFixed, Delay: time.Second}
	assert.Equal(t, time.Second, fixed.Next(5))
}

func TestManager_Process(t *testing.T) {
	m := newTestManager(NewMemoryBroker(), nil)
	h := func(context.Context, *Job) (any, error) { return nil, nil }

	require.NoError(t, m.Process("q", "a", h))
	require.NoError(t, m.Process("q", "b", h))
	err := m.Process("q", "a", h)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already registered")
	assert.Error(t, m.Process("", "a", h))
	assert.Error(t, m.Process("q", "c", nil))

	stop := runManager(t, m)
	require.Eventually(t, func() bool {
		return m.Process("q", "late", h) != nil
	}, time.Second, 5*time.Millisecond, "registration while running is rejected")
	stop()
}

func TestManager_RunWithoutHandlers(t *testing.T) {
	m := newTestManager(NewMemoryBroker(), nil)
	assert.Error(t, m.Run(context.Background()))
}

func TestManager_Complete(t *testing.T) {
	m := newTestManager(NewMemoryBroker(), nil)
	var completed atomic.Int32
	m.cfg.OnCompleted = func(*Job) { completed.Add(1) }

	type payload struct {
		Name string `json:"name"`
	}
	require.NoError(t, m.Process("work", "greet", func(_ context.Context, job *Job) (any, error) {
		var p payload
		if err := job.Decode(&p); err != nil {
			return nil, err
		}
		return map[string]string{"greeting": "hello " + p.Name}, nil
	}))

	id, err := m.Enqueue(context.Background(), "work", "greet", payload{Name: "bob"})
	require.NoError(t, err)
	assert.NotEmpty(t, id)

	stop := runManager(t, m)
	defer stop()
	waitStats(t, m, "work", func(s Stats) bool { return s.Completed == 1 })

	jobs, err := m.Jobs(context.Background(), "work", StateCompleted, 10)
	require.NoError(t, err)
	require.Len(t, jobs, 1)
	assert.Equal(t, id, jobs[0].ID)
	assert.JSONEq(t, `{"greeting":"hello bob"}`, string(jobs[0].Result))
	assert.Equal(t, 1, jobs[0].Attempts)
	assert.Equal(t, int32(1), completed.Load())
}

func TestManager_RetryThenSuccess(t *testing.T) {
	m := newTestManager(NewMemoryBroker(), nil)
	var calls atomic.Int32
	require.NoError(t, m.Process("work", "flaky", func(context.Context, *Job) (any, error) {
		if calls.Add(1) < 3 {
			return nil, errors.New("temporary")
		}
		return "ok", nil
	}))
	_, err := m.Enqueue(context.Background(), "work", "flaky", nil)
	require.NoError(t, err)

	stop := runManager(t, m)
	defer stop()
	waitStats(t, m, "work", func(s Stats) bool { return s.Completed == 1 })

	jobs, err := m.Jobs(context.Background(), "work", StateCompleted, 1)
	require.NoError(t, err)
	require.Len(t, jobs, 1)
	assert.Equal(t, 3, jobs[0].Attempts)
	assert.Equal(t, int32(3), calls.Load())
}

func TestManager_FailAfterMaxAttempts(t *testing.T) {
	m := newTestManager(NewMemoryBroker(), nil)
	var failed []*Job
	var mu sync.Mutex
	m.cfg.OnFailed = func(j *Job, _ error) {
		mu.Lock()
		failed = append(failed, j)
		mu.Unlock()
	}

	var calls atomic.Int32
	require.NoError(t, m.Process("work", "broken", func(context.Context, *Job) (any, error) {
		calls.Add(1)
		return nil, errors.New("network down")
	}))
	_, err := m.Enqueue(context.Background(), "work", "broken", nil, WithAttempts(2))
	require.NoError(t, err)

	stop := runManager(t, m)
	defer stop()
	waitStats(t, m, "work", func(s Stats) bool { return s.Failed == 1 })

	assert.Equal(t, int32(2), calls.Load())
	jobs, err := m.Jobs(context.Background(), "work", StateFailed, 10)
	require.NoError(t, err)
	require.Len(t, jobs, 1)
	assert.Equal(t, "network down", jobs[0].LastError)
	assert.Equal(t, 2, jobs[0].Attempts)

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, failed, 1)
	assert.Equal(t, StateFailed, failed[0].State)
}

func TestManager_DeadLetter(t *testing.T) {
	m := newTestManager(NewMemoryBroker(), nil)
	var calls atomic.Int32
	require.NoError(t, m.Process("work", "bad", func(context.Context, *Job) (any, error) {
		calls.Add(1)
		return nil, errPermanent
	}))
	_, err := m.Enqueue(context.Background(), "work", "bad", nil)
	require.NoError(t, err)

	stop := runManager(t, m)
	defer stop()
	waitStats(t, m, "work", func(s Stats) bool { return s.Dead == 1 })
	assert.Equal(t, int32(1), calls.Load(), "no retries for permanent errors")

	jobs, err := m.Jobs(context.Background(), "work", StateDead, 10)
	require.NoError(t, err)
	require.Len(t, jobs, 1)

	// operator requeue puts it back and it dies again
	require.NoError(t, m.Requeue(context.Background(), "work", jobs[0].ID))
	require.Eventually(t, func() bool { return calls.Load() == 2 }, 5*time.Second, 10*time.Millisecond)
	waitStats(t, m, "work", func(s Stats) bool { return s.Dead == 1 })

	n, err := m.Purge(context.Background(), "work", StateDead)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	_, err = m.Purge(context.Background(), "work", StateWaiting)
	assert.Error(t, err)
}

func TestManager_PanicDoesNotStopPool(t *testing.T) {
	m := newTestManager(NewMemoryBroker(), func(c *Config) { c.Concurrency = 1 })
	require.NoError(t, m.Process("work", "panic", func(context.Context, *Job) (any, error) {
		panic("oops")
	}))
	require.NoError(t, m.Process("work", "fine", func(context.Context, *Job) (any, error) {
		return nil, nil
	}))
	_, err := m.Enqueue(context.Background(), "work", "panic", nil, WithAttempts(1))
	require.NoError(t, err)
	_, err = m.Enqueue(context.Background(), "work", "fine", nil)
	require.NoError(t, err)

	stop := runManager(t, m)
	defer stop()
	waitStats(t, m, "work", func(s Stats) bool { return s.Failed == 1 && s.Completed == 1 })

	jobs, err := m.Jobs(context.Background(), "work", StateFailed, 1)
	require.NoError(t, err)
	require.Len(t, jobs, 1)
	assert.Contains(t, jobs[0].LastError, "handler panic: oops")
}

func TestManager_UnknownJobTypeIsDead(t *testing.T) {
	m := newTestManager(NewMemoryBroker(), nil)
	require.NoError(t, m.Process("work", "known", func(context.Context, *Job) (any, error) { return nil, nil }))
	_, err := m.Enqueue(context.Background(), "work", "unknown", nil)
	require.NoError(t, err)

	stop := runManager(t, m)
	defer stop()
	waitStats(t, m, "work", func(s Stats) bool { return s.Dead == 1 })
}

func TestManager_Concurrency(t *testing.T) {
	m := newTestManager(NewMemoryBroker(), func(c *Config) { c.Concurrency = 1 })
	m.SetConcurrency("wide", 3)

	var cur, peak atomic.Int32
	h := func(context.Context, *Job) (any, error) {
		n := cur.Add(1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		time.Sleep(30 * time.Millisecond)
		cur.Add(-1)
		return nil, nil
	}
	require.NoError(t, m.Process("wide", "job", h))
	for range 9 {
		_, err := m.Enqueue(context.Background(), "wide", "job", nil)
		require.NoError(t, err)
	}

	stop := runManager(t, m)
	defer stop()
	waitStats(t, m, "wide", func(s Stats) bool { return s.Completed == 9 })
	assert.LessOrEqual(t, peak.Load(), int32(3))
	assert.Greater(t, peak.Load(), int32(1))
}

func TestManager_StalledRecovery(t *testing.T) {
	b := NewMemoryBroker()
	var stalled atomic.Int32
	m := newTestManager(b, func(c *Config) {
		c.OnStalled = func(*Job) { stalled.Add(1) }
	})
	var done atomic.Int32
	require.NoError(t, m.Process("work", "job", func(context.Context, *Job) (any, error) {
		done.Add(1)
		return nil, nil
	}))

	ctx := context.Background()
	_, err := m.Enqueue(ctx, "work", "job", nil)
	require.NoError(t, err)

	// a worker of another process takes the job and dies holding it
	j, err := b.Pop(ctx, "work", 20*time.Millisecond)
	require.NoError(t, err)
	require.NotNil(t, j)
	time.Sleep(30 * time.Millisecond)

	stop := runManager(t, m)
	defer stop()
	waitStats(t, m, "work", func(s Stats) bool { return s.Completed == 1 })
	assert.Equal(t, int32(1), stalled.Load())
	assert.Equal(t, int32(1), done.Load())

	jobs, err := m.Jobs(ctx, "work", StateCompleted, 1)
	require.NoError(t, err)
	require.Len(t, jobs, 1)
	assert.Equal(t, 2, jobs[0].Attempts)
}

func TestManager_StalledOnLastAttemptFails(t *testing.T) {
	b := NewMemoryBroker()
	var stalled atomic.Int32
	failedWith := make(chan error, 1)
	m := newTestManager(b, func(c *Config) {
		c.OnStalled = func(*Job) { stalled.Add(1) }
		c.OnFailed = func(_ *Job, err error) { failedWith <- err }
	})
	var done atomic.Int32
	require.NoError(t, m.Process("work", "job", func(context.Context, *Job) (any, error) {
		done.Add(1)
		return nil, nil
	}))

	ctx := context.Background()
	_, err := m.Enqueue(ctx, "work", "job", nil, WithAttempts(1))
	require.NoError(t, err)

	// the only attempt dies holding the lease
	j, err := b.Pop(ctx, "work", 20*time.Millisecond)
	require.NoError(t, err)
	require.NotNil(t, j)
	time.Sleep(30 * time.Millisecond)

	stop := runManager(t, m)
	defer stop()
	waitStats(t, m, "work", func(s Stats) bool { return s.Failed == 1 })

	select {
	case err := <-failedWith:
		assert.ErrorIs(t, err, ErrStalled)
	case <-time.After(time.Second):
		t.Fatal("failure callback not called")
	}
	assert.Equal(t, int32(0), stalled.Load(), "not requeued")
	assert.Equal(t, int32(0), done.Load(), "handler never runs again")

	jobs, err := m.Jobs(ctx, "work", StateFailed, 1)
	require.NoError(t, err)
	require.Len(t, jobs, 1)
	assert.Equal(t, 1, jobs[0].Attempts)
	assert.Equal(t, "stalled", jobs[0].LastError)
}

func TestManager_HeartbeatKeepsLease(t *testing.T) {
	b := NewMemoryBroker()
	var stalled atomic.Int32
	m := newTestManager(b, func(c *Config) {
		c.LeaseTime = 60 * time.Millisecond
		c.StalledInterval = 10 * time.Millisecond
		c.OnStalled = func(*Job) { stalled.Add(1) }
	})
	require.NoError(t, m.Process("work", "slow", func(ctx context.Context, _ *Job) (any, error) {
		select {
		case <-time.After(300 * time.Millisecond):
		case <-ctx.Done():
		}
		return nil, nil
	}))
	_, err := m.Enqueue(context.Background(), "work", "slow", nil)
	require.NoError(t, err)

	stop := runManager(t, m)
	defer stop()
	waitStats(t, m, "work", func(s Stats) bool { return s.Completed == 1 })
	assert.Equal(t, int32(0), stalled.Load())
}

func TestManager_ShutdownDoesNotBurnAttempt(t *testing.T) {
	b := NewMemoryBroker()
	m := newTestManager(b, func(c *Config) { c.Concurrency = 1 })
	started := make(chan struct{})
	var once sync.Once
	require.NoError(t, m.Process("work", "long", func(ctx context.Context, _ *Job) (any, error) {
		once.Do(func() { close(started) })
		<-ctx.Done()
		return nil, ctx.Err()
	}))
	_, err := m.Enqueue(context.Background(), "work", "long", nil, WithAttempts(1))
	require.NoError(t, err)

	stop := runManager(t, m)
	<-started
	stop()

	st, err := b.Stats(context.Background(), "work")
	require.NoError(t, err)
	assert.Equal(t, Stats{Delayed: 1}, st)
	jobs, err := b.Jobs(context.Background(), "work", StateDelayed, 1)
	require.NoError(t, err)
	require.Len(t, jobs, 1)
	assert.Equal(t, 0, jobs[0].Attempts)
}

func TestManager_EnqueueOptions(t *testing.T) {
	b := NewMemoryBroker()
	m := newTestManager(b, nil)
	ctx := context.Background()

	_, err := m.Enqueue(ctx, "", "t", nil)
	require.Error(t, err)
	_, err = m.Enqueue(ctx, "q", "t", make(chan int))
	require.Error(t, err, "payload must be json encodable")

	id, err := m.Enqueue(ctx, "q", "t", map[string]int{"a": 1},
		WithAttempts(5), WithBackoff(BackoffFixed, time.Minute), WithDelay(time.Hour))
	require.NoError(t, err)

	jobs, err := b.Jobs(ctx, "q", StateDelayed, 10)
	require.NoError(t, err)
	require.Len(t, jobs, 1)
	assert.Equal(t, id, jobs[0].ID)
	assert.Equal(t, 5, jobs[0].MaxAttempts)
	assert.Equal(t, Backoff{Type: BackoffFixed, Delay: time.Minute}, jobs[0].Backoff)
	assert.Equal(t, []string{"q"}, m.Queues())
}

func TestManager_QueueStats(t *testing.T) {
	b := NewMemoryBroker()
	m := newTestManager(b, nil)
	ctx := context.Background()

	require.NoError(t, b.Push(ctx, &Job{ID: "j1", Queue: "other", Type: "t", MaxAttempts: 1}))

	st, err := m.QueueStats(ctx, "other")
	require.NoError(t, err)
	assert.Equal(t, Stats{Waiting: 1}, st, "queue unknown to the manager is still reported")
	assert.Empty(t, m.Queues())
}
