package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// DefaultRedisKeyPrefix is used when no prefix is configured
const DefaultRedisKeyPrefix = "queue"

// Pending score packs (ReadyAt, Priority) into one float: ReadyAt in unix
// milliseconds times scoreScale plus priority. Exact until the year 2255.
const scoreScale = MaxPriority + 1

var (
	claimScript = redis.NewScript(`
local ids = redis.call('ZRANGEBYSCORE', KEYS[1], '-inf', ARGV[1], 'LIMIT', 0, 1)
if #ids == 0 then return false end
local id = ids[1]
redis.call('ZREM', KEYS[1], id)
redis.call('ZADD', KEYS[2], ARGV[2], id)
local data = redis.call('HGET', KEYS[3], id)
if not data then return {id} end
return {id, data}
`)

	completeScript = redis.NewScript(`
if redis.call('ZREM', KEYS[1], ARGV[1]) == 0 then return 0 end
redis.call('HDEL', KEYS[2], ARGV[1])
return 1
`)

	requeueScript = redis.NewScript(`
if redis.call('ZREM', KEYS[1], ARGV[1]) == 0 then return 0 end
redis.call('HSET', KEYS[3], ARGV[1], ARGV[3])
redis.call('ZADD', KEYS[2], ARGV[2], ARGV[1])
return 1
`)

	buryScript = redis.NewScript(`
if redis.call('ZREM', KEYS[1], ARGV[1]) == 0 then return 0 end
redis.call('HDEL', KEYS[2], ARGV[1])
redis.call('ZADD', KEYS[3], ARGV[2], ARGV[1])
redis.call('HSET', KEYS[4], ARGV[1], ARGV[3])
return 1
`)

	resurrectScript = redis.NewScript(`
if redis.call('ZREM', KEYS[1], ARGV[1]) == 0 then return 0 end
redis.call('HDEL', KEYS[2], ARGV[1])
redis.call('HSET', KEYS[4], ARGV[1], ARGV[3])
redis.call('ZADD', KEYS[3], ARGV[2], ARGV[1])
return 1
`)
)

// RedisStorage implements Repository on top of Redis sorted sets.
//
// Keys (under the configured prefix):
//
//	<prefix>:jobs          hash   id -> job JSON for pending and in-flight jobs
//	<prefix>:pending       zset   id scored by ReadyAt and Priority
//	<prefix>:inflight      zset   id scored by lease deadline (unix ms)
//	<prefix>:dead          zset   id scored by failure time (unix ms)
//	<prefix>:dead:entries  hash   id -> DeadJob JSON
//
// State transitions run as Lua scripts, so each one is atomic.
type RedisStorage struct {
	db     redis.UniversalClient
	prefix string
}

// RedisStorageOption configures a RedisStorage
type RedisStorageOption func(*RedisStorage)

// WithKeyPrefix sets the key namespace
func WithKeyPrefix(prefix string) RedisStorageOption {
	return func(s *RedisStorage) {
		if prefix != "" {
			s.prefix = prefix
		}
	}
}

// NewRedisStorage creates a Redis-backed queue repository
func NewRedisStorage(client redis.UniversalClient, opts ...RedisStorageOption) *RedisStorage {
	s := &RedisStorage{db: client, prefix: DefaultRedisKeyPrefix}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *RedisStorage) key(name string) string {
	return s.prefix + ":" + name
}

// Push implements EnqueuerRepository
func (s *RedisStorage) Push(ctx context.Context, job *Job) error {
	if job == nil {
		return errors.New("job cannot be nil")
	}

	data, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("failed to encode job %s: %w", job.ID, err)
	}

	id := job.ID.String()
	pipe := s.db.TxPipeline()
	pipe.HSet(ctx, s.key("jobs"), id, data)
	pipe.ZAdd(ctx, s.key("pending"), redis.Z{Score: pendingScore(job), Member: id})
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to push job %s: %w", job.ID, err)
	}

	return nil
}

// Claim implements WorkerRepository
func (s *RedisStorage) Claim(ctx context.Context, now time.Time, lease time.Duration) (*Job, error) {
	leaseUntil := now.Add(lease)
	maxScore := now.UnixMilli()*scoreScale + MaxPriority

	res, err := claimScript.Run(ctx, s.db,
		[]string{s.key("pending"), s.key("inflight"), s.key("jobs")},
		strconv.FormatInt(maxScore, 10),
		leaseUntil.UnixMilli(),
	).Slice()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrNoJobReady
		}
		return nil, fmt.Errorf("failed to claim job: %w", err)
	}

	if len(res) < 2 {
		id, _ := res[0].(string)
		_ = s.db.ZRem(ctx, s.key("inflight"), id).Err()
		return nil, fmt.Errorf("%w: data for claimed job %s is missing", ErrJobNotFound, id)
	}

	data, _ := res[1].(string)
	var job Job
	if err := json.Unmarshal([]byte(data), &job); err != nil {
		return nil, fmt.Errorf("failed to decode claimed job: %w", err)
	}
	job.LeaseUntil = &leaseUntil

	return &job, nil
}

// Complete implements WorkerRepository
func (s *RedisStorage) Complete(ctx context.Context, id uuid.UUID) error {
	ok, err := completeScript.Run(ctx, s.db,
		[]string{s.key("inflight"), s.key("jobs")},
		id.String(),
	).Int()
	if err != nil {
		return fmt.Errorf("failed to complete job %s: %w", id, err)
	}
	if ok == 0 {
		return fmt.Errorf("%w: %s is not in flight", ErrJobNotFound, id)
	}
	return nil
}

// Requeue implements WorkerRepository
func (s *RedisStorage) Requeue(ctx context.Context, job *Job) error {
	jobCopy := *job
	jobCopy.LeaseUntil = nil

	data, err := json.Marshal(&jobCopy)
	if err != nil {
		return fmt.Errorf("failed to encode job %s: %w", job.ID, err)
	}

	ok, err := requeueScript.Run(ctx, s.db,
		[]string{s.key("inflight"), s.key("pending"), s.key("jobs")},
		job.ID.String(),
		strconv.FormatFloat(pendingScore(&jobCopy), 'f', -1, 64),
		data,
	).Int()
	if err != nil {
		return fmt.Errorf("failed to requeue job %s: %w", job.ID, err)
	}
	if ok == 0 {
		return fmt.Errorf("%w: %s is not in flight", ErrJobNotFound, job.ID)
	}
	return nil
}

// Bury implements WorkerRepository
func (s *RedisStorage) Bury(ctx context.Context, job *Job, reason string, failedAt time.Time) error {
	entry := DeadJob{Job: *job, Reason: reason, FailedAt: failedAt}
	entry.Job.LeaseUntil = nil

	data, err := json.Marshal(&entry)
	if err != nil {
		return fmt.Errorf("failed to encode dead job %s: %w", job.ID, err)
	}

	ok, err := buryScript.Run(ctx, s.db,
		[]string{s.key("inflight"), s.key("jobs"), s.key("dead"), s.key("dead:entries")},
		job.ID.String(),
		failedAt.UnixMilli(),
		data,
	).Int()
	if err != nil {
		return fmt.Errorf("failed to bury job %s: %w", job.ID, err)
	}
	if ok == 0 {
		return fmt.Errorf("%w: %s is not in flight", ErrJobNotFound, job.ID)
	}
	return nil
}

// ReclaimExpired implements WorkerRepository
func (s *RedisStorage) ReclaimExpired(ctx context.Context, now time.Time) (int, error) {
	ids, err := s.db.ZRangeByScore(ctx, s.key("inflight"), &redis.ZRangeBy{
		Min: "-inf",
		Max: strconv.FormatInt(now.UnixMilli(), 10),
	}).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to scan expired leases: %w", err)
	}

	reclaimed := 0
	for _, id := range ids {
		data, err := s.db.HGet(ctx, s.key("jobs"), id).Result()
		if err != nil {
			if errors.Is(err, redis.Nil) {
				_ = s.db.ZRem(ctx, s.key("inflight"), id).Err()
				continue
			}
			return reclaimed, fmt.Errorf("failed to load job %s: %w", id, err)
		}

		var job Job
		if err := json.Unmarshal([]byte(data), &job); err != nil {
			return reclaimed, fmt.Errorf("failed to decode job %s: %w", id, err)
		}

		// Requeue is conditional on the job still being in flight,
		// so a job resolved meanwhile is left alone.
		if err := s.Requeue(ctx, &job); err != nil {
			if errors.Is(err, ErrJobNotFound) {
				continue
			}
			return reclaimed, err
		}
		reclaimed++
	}

	return reclaimed, nil
}

// Stats implements AdminRepository
func (s *RedisStorage) Stats(ctx context.Context) (Stats, error) {
	pipe := s.db.Pipeline()
	pending := pipe.ZCard(ctx, s.key("pending"))
	inFlight := pipe.ZCard(ctx, s.key("inflight"))
	dead := pipe.ZCard(ctx, s.key("dead"))
	if _, err := pipe.Exec(ctx); err != nil {
		return Stats{}, fmt.Errorf("failed to read queue sizes: %w", err)
	}

	return Stats{
		Pending:  pending.Val(),
		InFlight: inFlight.Val(),
		Dead:     dead.Val(),
	}, nil
}

// PurgeDead implements AdminRepository
func (s *RedisStorage) PurgeDead(ctx context.Context, before time.Time) (int, error) {
	ids, err := s.db.ZRangeByScore(ctx, s.key("dead"), &redis.ZRangeBy{
		Min: "-inf",
		Max: "(" + strconv.FormatInt(before.UnixMilli(), 10),
	}).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to scan dead jobs: %w", err)
	}
	if len(ids) == 0 {
		return 0, nil
	}

	members := make([]any, len(ids))
	for i, id := range ids {
		members[i] = id
	}

	pipe := s.db.TxPipeline()
	removed := pipe.ZRem(ctx, s.key("dead"), members...)
	pipe.HDel(ctx, s.key("dead:entries"), ids...)
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, fmt.Errorf("failed to purge dead jobs: %w", err)
	}

	return int(removed.Val()), nil
}

// ListDead implements AdminRepository
func (s *RedisStorage) ListDead(ctx context.Context, limit int) ([]DeadJob, error) {
	stop := int64(-1)
	if limit > 0 {
		stop = int64(limit - 1)
	}

	ids, err := s.db.ZRevRange(ctx, s.key("dead"), 0, stop).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list dead jobs: %w", err)
	}
	if len(ids) == 0 {
		return []DeadJob{}, nil
	}

	values, err := s.db.HMGet(ctx, s.key("dead:entries"), ids...).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to load dead jobs: %w", err)
	}

	entries := make([]DeadJob, 0, len(values))
	for i, v := range values {
		data, ok := v.(string)
		if !ok {
			continue
		}
		var entry DeadJob
		if err := json.Unmarshal([]byte(data), &entry); err != nil {
			return nil, fmt.Errorf("failed to decode dead job %s: %w", ids[i], err)
		}
		entries = append(entries, entry)
	}

	return entries, nil
}

// Resurrect implements AdminRepository
func (s *RedisStorage) Resurrect(ctx context.Context, id uuid.UUID, readyAt time.Time) (*Job, error) {
	data, err := s.db.HGet(ctx, s.key("dead:entries"), id.String()).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, fmt.Errorf("%w: %s is not dead", ErrJobNotFound, id)
		}
		return nil, fmt.Errorf("failed to load dead job %s: %w", id, err)
	}

	var entry DeadJob
	if err := json.Unmarshal([]byte(data), &entry); err != nil {
		return nil, fmt.Errorf("failed to decode dead job %s: %w", id, err)
	}

	job := entry.Job
	job.Attempt = 0
	job.ReadyAt = readyAt
	job.LeaseUntil = nil

	jobData, err := json.Marshal(&job)
	if err != nil {
		return nil, fmt.Errorf("failed to encode job %s: %w", id, err)
	}

	ok, err := resurrectScript.Run(ctx, s.db,
		[]string{s.key("dead"), s.key("dead:entries"), s.key("pending"), s.key("jobs")},
		id.String(),
		strconv.FormatFloat(pendingScore(&job), 'f', -1, 64),
		jobData,
	).Int()
	if err != nil {
		return nil, fmt.Errorf("failed to resurrect job %s: %w", id, err)
	}
	if ok == 0 {
		return nil, fmt.Errorf("%w: %s is not dead", ErrJobNotFound, id)
	}

	return &job, nil
}

// pendingScore orders pending jobs by ReadyAt, then Priority
func pendingScore(job *Job) float64 {
	return float64(job.ReadyAt.UnixMilli()*scoreScale + int64(clampPriority(job.Priority)))
}
