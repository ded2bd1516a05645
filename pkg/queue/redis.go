package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisBroker keeps jobs in redis so several processes can share queues.
// Per queue it uses a hash of job documents, a waiting list and sorted sets for
// delayed (by run time), active (by lease deadline) and terminal states (by finish time).
// The structure holding an id is authoritative for the job state.
type RedisBroker struct {
	rdb    redis.UniversalClient
	prefix string
	now    func() time.Time
}

// NewRedisBroker makes a broker, prefix namespaces all keys
func NewRedisBroker(rdb redis.UniversalClient, prefix string) *RedisBroker {
	return &RedisBroker{rdb: rdb, prefix: prefix, now: time.Now}
}

// pop promotes due delayed ids, takes the oldest waiting id and leases it
var popScript = redis.NewScript(`
local due = redis.call('ZRANGEBYSCORE', KEYS[2], '-inf', ARGV[1])
for _, id in ipairs(due) do
	redis.call('ZREM', KEYS[2], id)
	redis.call('LPUSH', KEYS[1], id)
end
local id = redis.call('RPOP', KEYS[1])
if not id then
	return false
end
redis.call('ZADD', KEYS[3], ARGV[2], id)
return id
`)

// extend updates the lease only if the id is still active
var extendScript = redis.NewScript(`
if redis.call('ZSCORE', KEYS[1], ARGV[1]) then
	redis.call('ZADD', KEYS[1], ARGV[2], ARGV[1])
	return 1
end
return 0
`)

// finish moves an active id to the target set and stores the job document
var finishScript = redis.NewScript(`
if redis.call('ZREM', KEYS[1], ARGV[1]) == 0 then
	return 0
end
redis.call('HSET', KEYS[2], ARGV[1], ARGV[2])
redis.call('ZADD', KEYS[3], ARGV[3], ARGV[1])
return 1
`)

// trim drops completed jobs older than cutoff and above the count limit
var trimScript = redis.NewScript(`
local old = redis.call('ZRANGEBYSCORE', KEYS[1], '-inf', ARGV[1])
for _, id in ipairs(old) do
	redis.call('ZREM', KEYS[1], id)
	redis.call('HDEL', KEYS[2], id)
end
local keep = tonumber(ARGV[2])
if keep > 0 then
	local n = redis.call('ZCARD', KEYS[1])
	if n > keep then
		local extra = redis.call('ZRANGE', KEYS[1], 0, n - keep - 1)
		for _, id in ipairs(extra) do
			redis.call('ZREM', KEYS[1], id)
			redis.call('HDEL', KEYS[2], id)
		end
	end
end
return 0
`)

// recover returns ids with expired lease to the waiting list, ids out of attempts go to failed.
// The reply alternates id and its new state.
var recoverScript = redis.NewScript(`
local ids = redis.call('ZRANGEBYSCORE', KEYS[1], '-inf', '(' .. ARGV[1])
local res = {}
for _, id in ipairs(ids) do
	redis.call('ZREM', KEYS[1], id)
	local exhausted = false
	local doc = redis.call('HGET', KEYS[4], id)
	if doc then
		local job = cjson.decode(doc)
		local max = tonumber(job['max_attempts']) or 0
		exhausted = max > 0 and (tonumber(job['attempts']) or 0) >= max
	end
	if exhausted then
		redis.call('ZADD', KEYS[3], ARGV[1], id)
		table.insert(res, id)
		table.insert(res, 'failed')
	else
		redis.call('LPUSH', KEYS[2], id)
		table.insert(res, id)
		table.insert(res, 'waiting')
	end
end
return res
`)

// requeue moves a failed or dead id back to waiting and stores the reset job document
var requeueScript = redis.NewScript(`
local n = redis.call('ZREM', KEYS[1], ARGV[1]) + redis.call('ZREM', KEYS[2], ARGV[1])
if n == 0 then
	return 0
end
redis.call('HSET', KEYS[4], ARGV[1], ARGV[2])
redis.call('LPUSH', KEYS[3], ARGV[1])
return 1
`)

// storeIn writes the job document only while the id is in the given set
var storeInScript = redis.NewScript(`
if redis.call('ZSCORE', KEYS[1], ARGV[1]) then
	redis.call('HSET', KEYS[2], ARGV[1], ARGV[2])
	return 1
end
return 0
`)

// purge removes a terminal set together with its job documents
var purgeScript = redis.NewScript(`
local ids = redis.call('ZRANGE', KEYS[1], 0, -1)
for _, id in ipairs(ids) do
	redis.call('HDEL', KEYS[2], id)
end
redis.call('DEL', KEYS[1])
return #ids
`)

// key builds a queue key, the hash tag keeps all keys of a queue in one cluster slot
func (b *RedisBroker) key(queue, suffix string) string {
	return b.prefix + "{" + queue + "}:" + suffix
}

func (b *RedisBroker) stateKey(queue string, state State) string {
	return b.key(queue, string(state))
}

// Push stores the job and puts it into waiting or delayed
func (b *RedisBroker) Push(ctx context.Context, job *Job) error {
	j := job.Clone()
	delayed := j.RunAt.After(b.now())
	j.State = StateWaiting
	if delayed {
		j.State = StateDelayed
	}
	data, err := json.Marshal(j)
	if err != nil {
		return fmt.Errorf("marshal job: %w", err)
	}
	_, err = b.rdb.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.HSet(ctx, b.key(j.Queue, "jobs"), j.ID, data)
		if delayed {
			p.ZAdd(ctx, b.stateKey(j.Queue, StateDelayed), redis.Z{Score: msec(j.RunAt), Member: j.ID})
			return nil
		}
		p.LPush(ctx, b.stateKey(j.Queue, StateWaiting), j.ID)
		return nil
	})
	if err != nil {
		return fmt.Errorf("push job %s: %w", j.ID, err)
	}
	return nil
}

// Pop leases the next ready job
func (b *RedisBroker) Pop(ctx context.Context, queue string, lease time.Duration) (*Job, error) {
	now := b.now()
	keys := []string{b.stateKey(queue, StateWaiting), b.stateKey(queue, StateDelayed), b.stateKey(queue, StateActive)}
	id, err := popScript.Run(ctx, b.rdb, keys, msec(now), msec(now.Add(lease))).Text()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("pop %s: %w", queue, err)
	}

	// the id is leased to us now, nobody else writes its document until the lease expires
	job, err := b.load(ctx, queue, id)
	if errors.Is(err, ErrJobNotFound) {
		b.rdb.ZRem(ctx, b.stateKey(queue, StateActive), id)
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	job.Attempts++
	job.State = StateActive
	job.UpdatedAt = now
	if err := b.store(ctx, job); err != nil {
		return nil, err
	}
	return job, nil
}

// Extend refreshes the lease of an active job
func (b *RedisBroker) Extend(ctx context.Context, job *Job, lease time.Duration) error {
	ok, err := extendScript.Run(ctx, b.rdb, []string{b.stateKey(job.Queue, StateActive)},
		job.ID, msec(b.now().Add(lease))).Int()
	if err != nil {
		return fmt.Errorf("extend %s: %w", job.ID, err)
	}
	if ok == 0 {
		return ErrLeaseLost
	}
	return nil
}

// Complete moves an active job to completed and trims by retention
func (b *RedisBroker) Complete(ctx context.Context, job *Job, keep Retention) error {
	j := job.Clone()
	j.State = StateCompleted
	if err := b.finish(ctx, j, StateCompleted, msec(j.FinishedAt)); err != nil {
		return err
	}
	cutoff := int64(-1)
	if keep.Age > 0 {
		cutoff = int64(msec(b.now().Add(-keep.Age)))
	}
	keys := []string{b.stateKey(j.Queue, StateCompleted), b.key(j.Queue, "jobs")}
	if err := trimScript.Run(ctx, b.rdb, keys, cutoff, keep.Count).Err(); err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("trim completed %s: %w", j.Queue, err)
	}
	return nil
}

// Retry moves an active job to delayed until job.RunAt
func (b *RedisBroker) Retry(ctx context.Context, job *Job) error {
	j := job.Clone()
	j.State = StateDelayed
	return b.finish(ctx, j, StateDelayed, msec(j.RunAt))
}

// Fail moves an active job to failed or dead
func (b *RedisBroker) Fail(ctx context.Context, job *Job) error {
	j := job.Clone()
	if j.State != StateDead {
		j.State = StateFailed
	}
	return b.finish(ctx, j, j.State, msec(b.now()))
}

func (b *RedisBroker) finish(ctx context.Context, job *Job, target State, score float64) error {
	data, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("marshal job: %w", err)
	}
	keys := []string{b.stateKey(job.Queue, StateActive), b.key(job.Queue, "jobs"), b.stateKey(job.Queue, target)}
	ok, err := finishScript.Run(ctx, b.rdb, keys, job.ID, data, score).Int()
	if err != nil {
		return fmt.Errorf("move job %s to %s: %w", job.ID, target, err)
	}
	if ok == 0 {
		return ErrLeaseLost
	}
	return nil
}

// Recover returns jobs with expired lease to waiting, jobs out of attempts go to failed
func (b *RedisBroker) Recover(ctx context.Context, queue string) ([]*Job, error) {
	now := b.now()
	keys := []string{b.stateKey(queue, StateActive), b.stateKey(queue, StateWaiting),
		b.stateKey(queue, StateFailed), b.key(queue, "jobs")}
	reply, err := recoverScript.Run(ctx, b.rdb, keys, msec(now)).StringSlice()
	if err != nil && !errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("recover %s: %w", queue, err)
	}
	ids := make([]string, 0, len(reply)/2)
	states := make(map[string]State, len(reply)/2)
	for i := 0; i+1 < len(reply); i += 2 {
		ids = append(ids, reply[i])
		states[reply[i]] = State(reply[i+1])
	}
	jobs, err := b.loadMany(ctx, queue, ids)
	if err != nil {
		return nil, err
	}
	for _, j := range jobs {
		j.State = states[j.ID]
		j.UpdatedAt = now
		if j.State != StateFailed {
			continue
		}
		j.LastError = ErrStalled.Error()
		j.FinishedAt = now
		if err := b.storeIn(ctx, j, StateFailed); err != nil {
			return nil, err
		}
	}
	return jobs, nil
}

// Stats counts jobs per state
func (b *RedisBroker) Stats(ctx context.Context, queue string) (Stats, error) {
	var waiting *redis.IntCmd
	cards := map[State]*redis.IntCmd{}
	_, err := b.rdb.Pipelined(ctx, func(p redis.Pipeliner) error {
		waiting = p.LLen(ctx, b.stateKey(queue, StateWaiting))
		for _, st := range []State{StateActive, StateDelayed, StateCompleted, StateFailed, StateDead} {
			cards[st] = p.ZCard(ctx, b.stateKey(queue, st))
		}
		return nil
	})
	if err != nil {
		return Stats{}, fmt.Errorf("stats %s: %w", queue, err)
	}
	return Stats{
		Waiting:   waiting.Val(),
		Active:    cards[StateActive].Val(),
		Delayed:   cards[StateDelayed].Val(),
		Completed: cards[StateCompleted].Val(),
		Failed:    cards[StateFailed].Val(),
		Dead:      cards[StateDead].Val(),
	}, nil
}

// Jobs lists jobs in the given state
func (b *RedisBroker) Jobs(ctx context.Context, queue string, state State, limit int) ([]*Job, error) {
	stop := int64(-1)
	if limit > 0 {
		stop = int64(limit - 1)
	}
	var ids []string
	var err error
	switch state {
	case StateWaiting:
		ids, err = b.rdb.LRange(ctx, b.stateKey(queue, state), 0, -1).Result()
		slices.Reverse(ids) // oldest first
		if limit > 0 && len(ids) > limit {
			ids = ids[:limit]
		}
	case StateActive, StateDelayed:
		ids, err = b.rdb.ZRange(ctx, b.stateKey(queue, state), 0, stop).Result()
	case StateCompleted, StateFailed, StateDead:
		ids, err = b.rdb.ZRevRange(ctx, b.stateKey(queue, state), 0, stop).Result()
	default:
		return nil, fmt.Errorf("unknown job state %q", state)
	}
	if err != nil {
		return nil, fmt.Errorf("list %s jobs in %s: %w", state, queue, err)
	}
	jobs, err := b.loadMany(ctx, queue, ids)
	if err != nil {
		return nil, err
	}
	for _, j := range jobs {
		j.State = state
	}
	return jobs, nil
}

// Requeue moves a failed or dead job back to waiting with attempts reset
func (b *RedisBroker) Requeue(ctx context.Context, queue, id string) error {
	job, err := b.load(ctx, queue, id)
	if err != nil {
		return err
	}
	job.Attempts = 0
	job.State = StateWaiting
	job.FinishedAt = time.Time{}
	job.UpdatedAt = b.now()
	data, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("marshal job: %w", err)
	}
	// the document is replaced only if the id was really taken out of failed or dead
	keys := []string{b.stateKey(queue, StateFailed), b.stateKey(queue, StateDead), b.stateKey(queue, StateWaiting),
		b.key(queue, "jobs")}
	ok, err := requeueScript.Run(ctx, b.rdb, keys, id, data).Int()
	if err != nil {
		return fmt.Errorf("requeue %s: %w", id, err)
	}
	if ok == 0 {
		return ErrJobNotFound
	}
	return nil
}

// Purge removes all jobs in a terminal state
func (b *RedisBroker) Purge(ctx context.Context, queue string, state State) (int, error) {
	if !purgeable(state) {
		return 0, nil
	}
	keys := []string{b.stateKey(queue, state), b.key(queue, "jobs")}
	n, err := purgeScript.Run(ctx, b.rdb, keys).Int()
	if err != nil {
		return 0, fmt.Errorf("purge %s %s: %w", queue, state, err)
	}
	return n, nil
}

func (b *RedisBroker) load(ctx context.Context, queue, id string) (*Job, error) {
	data, err := b.rdb.HGet(ctx, b.key(queue, "jobs"), id).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrJobNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load job %s: %w", id, err)
	}
	var job Job
	if err := json.Unmarshal(data, &job); err != nil {
		return nil, fmt.Errorf("unmarshal job %s: %w", id, err)
	}
	return &job, nil
}

func (b *RedisBroker) loadMany(ctx context.Context, queue string, ids []string) ([]*Job, error) {
	if len(ids) == 0 {
		return []*Job{}, nil
	}
	vals, err := b.rdb.HMGet(ctx, b.key(queue, "jobs"), ids...).Result()
	if err != nil {
		return nil, fmt.Errorf("load jobs: %w", err)
	}
	res := make([]*Job, 0, len(vals))
	for _, v := range vals {
		s, ok := v.(string)
		if !ok {
			continue // document removed concurrently
		}
		var job Job
		if err := json.Unmarshal([]byte(s), &job); err != nil {
			return nil, fmt.Errorf("unmarshal job: %w", err)
		}
		res = append(res, &job)
	}
	return res, nil
}

func (b *RedisBroker) store(ctx context.Context, job *Job) error {
	data, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("marshal job: %w", err)
	}
	if err := b.rdb.HSet(ctx, b.key(job.Queue, "jobs"), job.ID, data).Err(); err != nil {
		return fmt.Errorf("store job %s: %w", job.ID, err)
	}
	return nil
}

func (b *RedisBroker) storeIn(ctx context.Context, job *Job, state State) error {
	data, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("marshal job: %w", err)
	}
	keys := []string{b.stateKey(job.Queue, state), b.key(job.Queue, "jobs")}
	if err := storeInScript.Run(ctx, b.rdb, keys, job.ID, data).Err(); err != nil {
		return fmt.Errorf("store job %s: %w", job.ID, err)
	}
	return nil
}

func msec(t time.Time) float64 {
	return float64(t.UnixMilli())
}
