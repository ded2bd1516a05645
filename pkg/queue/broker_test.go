package queue

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func newTestJob(clock *testClock, queue, id string) *Job {
	now := clock.Now()
	return &Job{
		ID: id, Queue: queue, Type: "t", Payload: json.RawMessage(`{"n":1}`),
		MaxAttempts: 3, Backoff: Backoff{Type: BackoffExponential, Delay: time.Second},
		RunAt: now, CreatedAt: now, UpdatedAt: now,
	}
}

func TestMemoryBroker(t *testing.T) {
	clock := &testClock{now: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	b := NewMemoryBroker()
	b.now = clock.Now
	testBrokerContract(t, b, clock)
}

func TestRedisBroker(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	clock := &testClock{now: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	b := NewRedisBroker(rdb, "test:")
	b.now = clock.Now
	testBrokerContract(t, b, clock)

	t.Run("keys are namespaced per queue", func(t *testing.T) {
		require.NoError(t, b.Push(context.Background(), newTestJob(clock, "ns", "n1")))
		assert.True(t, mr.Exists("test:{ns}:jobs"))
		assert.True(t, mr.Exists("test:{ns}:waiting"))
	})
}

// testBrokerContract checks behavior every broker must provide
func testBrokerContract(t *testing.T, b Broker, clock *testClock) {
	ctx := context.Background()

	t.Run("pop empty", func(t *testing.T) {
		j, err := b.Pop(ctx, "empty", time.Minute)
		require.NoError(t, err)
		assert.Nil(t, j)
	})

	t.Run("fifo and attempts", func(t *testing.T) {
		require.NoError(t, b.Push(ctx, newTestJob(clock, "fifo", "a")))
		require.NoError(t, b.Push(ctx, newTestJob(clock, "fifo", "b")))

		j, err := b.Pop(ctx, "fifo", time.Minute)
		require.NoError(t, err)
		require.NotNil(t, j)
		assert.Equal(t, "a", j.ID)
		assert.Equal(t, 1, j.Attempts)
		assert.Equal(t, StateActive, j.State)
		assert.JSONEq(t, `{"n":1}`, string(j.Payload))

		j2, err := b.Pop(ctx, "fifo", time.Minute)
		require.NoError(t, err)
		assert.Equal(t, "b", j2.ID)

		st, err := b.Stats(ctx, "fifo")
		require.NoError(t, err)
		assert.Equal(t, Stats{Active: 2}, st)
	})

	t.Run("delayed job is not ready before run time", func(t *testing.T) {
		j := newTestJob(clock, "delay", "d1")
		j.RunAt = clock.Now().Add(10 * time.Second)
		require.NoError(t, b.Push(ctx, j))

		st, err := b.Stats(ctx, "delay")
		require.NoError(t, err)
		assert.Equal(t, int64(1), st.Delayed)

		got, err := b.Pop(ctx, "delay", time.Minute)
		require.NoError(t, err)
		assert.Nil(t, got)

		clock.Advance(10 * time.Second)
		got, err = b.Pop(ctx, "delay", time.Minute)
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, "d1", got.ID)
	})

	t.Run("complete with retention", func(t *testing.T) {
		for _, id := range []string{"c1", "c2", "c3"} {
			require.NoError(t, b.Push(ctx, newTestJob(clock, "done", id)))
			j, err := b.Pop(ctx, "done", time.Minute)
			require.NoError(t, err)
			j.FinishedAt = clock.Now()
			j.Result = json.RawMessage(`{"ok":true}`)
			require.NoError(t, b.Complete(ctx, j, Retention{Count: 2, Age: time.Hour}))
			clock.Advance(time.Second)
		}
		jobs, err := b.Jobs(ctx, "done", StateCompleted, 10)
		require.NoError(t, err)
		require.Len(t, jobs, 2)
		assert.Equal(t, "c3", jobs[0].ID, "newest first")
		assert.Equal(t, "c2", jobs[1].ID)
		assert.JSONEq(t, `{"ok":true}`, string(jobs[0].Result))

		// age based trim happens on the next completion
		clock.Advance(2 * time.Hour)
		require.NoError(t, b.Push(ctx, newTestJob(clock, "done", "c4")))
		j, err := b.Pop(ctx, "done", time.Minute)
		require.NoError(t, err)
		j.FinishedAt = clock.Now()
		require.NoError(t, b.Complete(ctx, j, Retention{Count: 2, Age: time.Hour}))
		st, err := b.Stats(ctx, "done")
		require.NoError(t, err)
		assert.Equal(t, int64(1), st.Completed)
	})

	t.Run("retry moves to delayed", func(t *testing.T) {
		require.NoError(t, b.Push(ctx, newTestJob(clock, "retry", "r1")))
		j, err := b.Pop(ctx, "retry", time.Minute)
		require.NoError(t, err)
		j.RunAt = clock.Now().Add(2 * time.Second)
		j.LastError = "boom"
		require.NoError(t, b.Retry(ctx, j))

		st, err := b.Stats(ctx, "retry")
		require.NoError(t, err)
		assert.Equal(t, Stats{Delayed: 1}, st)

		clock.Advance(2 * time.Second)
		j, err = b.Pop(ctx, "retry", time.Minute)
		require.NoError(t, err)
		require.NotNil(t, j)
		assert.Equal(t, 2, j.Attempts)
		assert.Equal(t, "boom", j.LastError)
	})

	t.Run("fail, requeue and purge", func(t *testing.T) {
		require.NoError(t, b.Push(ctx, newTestJob(clock, "fail", "f1")))
		require.NoError(t, b.Push(ctx, newTestJob(clock, "fail", "f2")))

		j1, err := b.Pop(ctx, "fail", time.Minute)
		require.NoError(t, err)
		j1.State = StateFailed
		j1.LastError = "network"
		require.NoError(t, b.Fail(ctx, j1))

		j2, err := b.Pop(ctx, "fail", time.Minute)
		require.NoError(t, err)
		j2.State = StateDead
		require.NoError(t, b.Fail(ctx, j2))

		st, err := b.Stats(ctx, "fail")
		require.NoError(t, err)
		assert.Equal(t, Stats{Failed: 1, Dead: 1}, st)

		failed, err := b.Jobs(ctx, "fail", StateFailed, 10)
		require.NoError(t, err)
		require.Len(t, failed, 1)
		assert.Equal(t, "network", failed[0].LastError)
		assert.Equal(t, StateFailed, failed[0].State)

		require.NoError(t, b.Requeue(ctx, "fail", "f1"))
		assert.ErrorIs(t, b.Requeue(ctx, "fail", "nope"), ErrJobNotFound)
		j, err := b.Pop(ctx, "fail", time.Minute)
		require.NoError(t, err)
		require.NotNil(t, j)
		assert.Equal(t, "f1", j.ID)
		assert.Equal(t, 1, j.Attempts, "attempts reset on requeue")

		n, err := b.Purge(ctx, "fail", StateDead)
		require.NoError(t, err)
		assert.Equal(t, 1, n)
		st, err = b.Stats(ctx, "fail")
		require.NoError(t, err)
		assert.Equal(t, int64(0), st.Dead)
	})

	t.Run("lease expiry and extend", func(t *testing.T) {
		require.NoError(t, b.Push(ctx, newTestJob(clock, "lease", "l1")))
		require.NoError(t, b.Push(ctx, newTestJob(clock, "lease", "l2")))
		j1, err := b.Pop(ctx, "lease", 10*time.Second)
		require.NoError(t, err)
		j2, err := b.Pop(ctx, "lease", 10*time.Second)
		require.NoError(t, err)

		clock.Advance(8 * time.Second)
		require.NoError(t, b.Extend(ctx, j2, 10*time.Second))
		clock.Advance(5 * time.Second)

		stalled, err := b.Recover(ctx, "lease")
		require.NoError(t, err)
		require.Len(t, stalled, 1)
		assert.Equal(t, j1.ID, stalled[0].ID)
		assert.Equal(t, StateWaiting, stalled[0].State)

		// the stalled worker lost its lease
		assert.ErrorIs(t, b.Extend(ctx, j1, time.Minute), ErrLeaseLost)
		j1.FinishedAt = clock.Now()
		assert.ErrorIs(t, b.Complete(ctx, j1, Retention{Count: 10}), ErrLeaseLost)

		again, err := b.Pop(ctx, "lease", time.Minute)
		require.NoError(t, err)
		require.NotNil(t, again)
		assert.Equal(t, j1.ID, again.ID)
		assert.Equal(t, 2, again.Attempts)
	})

	t.Run("requeue leaves jobs outside failed and dead untouched", func(t *testing.T) {
		require.NoError(t, b.Push(ctx, newTestJob(clock, "requeue", "q1")))
		j, err := b.Pop(ctx, "requeue", time.Minute)
		require.NoError(t, err)
		require.NotNil(t, j)

		assert.ErrorIs(t, b.Requeue(ctx, "requeue", "q1"), ErrJobNotFound)

		active, err := b.Jobs(ctx, "requeue", StateActive, 10)
		require.NoError(t, err)
		require.Len(t, active, 1)
		assert.Equal(t, 1, active[0].Attempts, "attempts kept")
		st, err := b.Stats(ctx, "requeue")
		require.NoError(t, err)
		assert.Equal(t, Stats{Active: 1}, st)

		// a stalled retry still counts the attempt
		clock.Advance(2 * time.Minute)
		_, err = b.Recover(ctx, "requeue")
		require.NoError(t, err)
		again, err := b.Pop(ctx, "requeue", time.Minute)
		require.NoError(t, err)
		require.NotNil(t, again)
		assert.Equal(t, 2, again.Attempts)
	})

	t.Run("stalled job out of attempts fails", func(t *testing.T) {
		require.NoError(t, b.Push(ctx, newTestJob(clock, "crash", "s1")))
		for attempt := 1; attempt <= 3; attempt++ {
			j, err := b.Pop(ctx, "crash", 10*time.Second)
			require.NoError(t, err)
			require.NotNil(t, j, "attempt %d", attempt)
			assert.Equal(t, attempt, j.Attempts)

			clock.Advance(11 * time.Second)
			stalled, err := b.Recover(ctx, "crash")
			require.NoError(t, err)
			require.Len(t, stalled, 1)
			if attempt < 3 {
				assert.Equal(t, StateWaiting, stalled[0].State)
				continue
			}
			assert.Equal(t, StateFailed, stalled[0].State)
			assert.Equal(t, ErrStalled.Error(), stalled[0].LastError)
		}

		j, err := b.Pop(ctx, "crash", time.Minute)
		require.NoError(t, err)
		assert.Nil(t, j, "nothing left to run")
		st, err := b.Stats(ctx, "crash")
		require.NoError(t, err)
		assert.Equal(t, Stats{Failed: 1}, st)

		failed, err := b.Jobs(ctx, "crash", StateFailed, 10)
		require.NoError(t, err)
		require.Len(t, failed, 1)
		assert.Equal(t, 3, failed[0].Attempts)
		assert.Equal(t, ErrStalled.Error(), failed[0].LastError)
		assert.False(t, failed[0].FinishedAt.IsZero())

		// a failed stalled job can be retried by operator
		require.NoError(t, b.Requeue(ctx, "crash", "s1"))
		j, err = b.Pop(ctx, "crash", time.Minute)
		require.NoError(t, err)
		require.NotNil(t, j)
		assert.Equal(t, 1, j.Attempts)
	})

	t.Run("concurrent pops never share a job", func(t *testing.T) {
		for i := range 50 {
			require.NoError(t, b.Push(ctx, newTestJob(clock, "race", "x"+string(rune('A'+i%26))+string(rune('a'+i/26)))))
		}
		var mu sync.Mutex
		seen := map[string]int{}
		var wg sync.WaitGroup
		for range 8 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				for {
					j, err := b.Pop(ctx, "race", time.Minute)
					if err != nil || j == nil {
						return
					}
					mu.Lock()
					seen[j.ID]++
					mu.Unlock()
				}
			}()
		}
		wg.Wait()
		assert.Len(t, seen, 50)
		for id, n := range seen {
			assert.Equal(t, 1, n, "job %s popped %d times", id, n)
		}
	})
}
