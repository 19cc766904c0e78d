package queue

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryStorage implements Repository for testing and local development.
// All state transitions happen under a single mutex, which makes claim,
// requeue and bury atomic with respect to each other.
type MemoryStorage struct {
	mu       sync.Mutex
	pending  map[uuid.UUID]*Job
	inFlight map[uuid.UUID]*Job
	dead     map[uuid.UUID]*DeadJob

	// unavailable simulates a store outage for Push
	unavailable error
}

// NewMemoryStorage creates a new in-memory storage implementation
func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{
		pending:  make(map[uuid.UUID]*Job),
		inFlight: make(map[uuid.UUID]*Job),
		dead:     make(map[uuid.UUID]*DeadJob),
	}
}

// SetUnavailable makes Push fail with err until called again with nil
func (ms *MemoryStorage) SetUnavailable(err error) {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	ms.unavailable = err
}

// Push implements EnqueuerRepository
func (ms *MemoryStorage) Push(ctx context.Context, job *Job) error {
	if job == nil {
		return errors.New("job cannot be nil")
	}

	ms.mu.Lock()
	defer ms.mu.Unlock()

	if ms.unavailable != nil {
		return ms.unavailable
	}

	if ms.exists(job.ID) {
		return fmt.Errorf("job with ID %s already exists", job.ID)
	}

	// Clone job to prevent external modifications
	jobCopy := *job
	jobCopy.LeaseUntil = nil
	ms.pending[job.ID] = &jobCopy

	return nil
}

// Claim implements WorkerRepository
func (ms *MemoryStorage) Claim(ctx context.Context, now time.Time, lease time.Duration) (*Job, error) {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	var best *Job
	for _, job := range ms.pending {
		if job.ReadyAt.After(now) {
			continue
		}
		if best == nil || compareReady(job, best) < 0 {
			best = job
		}
	}

	if best == nil {
		return nil, ErrNoJobReady
	}

	leaseUntil := now.Add(lease)
	best.LeaseUntil = &leaseUntil

	delete(ms.pending, best.ID)
	ms.inFlight[best.ID] = best

	jobCopy := *best
	return &jobCopy, nil
}

// Complete implements WorkerRepository
func (ms *MemoryStorage) Complete(ctx context.Context, id uuid.UUID) error {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	if _, ok := ms.inFlight[id]; !ok {
		return fmt.Errorf("%w: %s is not in flight", ErrJobNotFound, id)
	}
	delete(ms.inFlight, id)

	return nil
}

// Requeue implements WorkerRepository
func (ms *MemoryStorage) Requeue(ctx context.Context, job *Job) error {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	if _, ok := ms.inFlight[job.ID]; !ok {
		return fmt.Errorf("%w: %s is not in flight", ErrJobNotFound, job.ID)
	}

	jobCopy := *job
	jobCopy.LeaseUntil = nil

	delete(ms.inFlight, job.ID)
	ms.pending[job.ID] = &jobCopy

	return nil
}

// Bury implements WorkerRepository
func (ms *MemoryStorage) Bury(ctx context.Context, job *Job, reason string, failedAt time.Time) error {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	if _, ok := ms.inFlight[job.ID]; !ok {
		return fmt.Errorf("%w: %s is not in flight", ErrJobNotFound, job.ID)
	}

	jobCopy := *job
	jobCopy.LeaseUntil = nil

	delete(ms.inFlight, job.ID)
	ms.dead[job.ID] = &DeadJob{
		Job:      jobCopy,
		Reason:   reason,
		FailedAt: failedAt,
	}

	return nil
}

// ReclaimExpired implements WorkerRepository.
// Jobs keep their attempt count, so a crash does not consume retry budget.
func (ms *MemoryStorage) ReclaimExpired(ctx context.Context, now time.Time) (int, error) {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	reclaimed := 0
	for id, job := range ms.inFlight {
		if job.LeaseUntil == nil || job.LeaseUntil.After(now) {
			continue
		}
		job.LeaseUntil = nil
		delete(ms.inFlight, id)
		ms.pending[id] = job
		reclaimed++
	}

	return reclaimed, nil
}

// Stats implements AdminRepository
func (ms *MemoryStorage) Stats(ctx context.Context) (Stats, error) {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	return Stats{
		Pending:  int64(len(ms.pending)),
		InFlight: int64(len(ms.inFlight)),
		Dead:     int64(len(ms.dead)),
	}, nil
}

// PurgeDead implements AdminRepository
func (ms *MemoryStorage) PurgeDead(ctx context.Context, before time.Time) (int, error) {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	removed := 0
	for id, entry := range ms.dead {
		if entry.FailedAt.Before(before) {
			delete(ms.dead, id)
			removed++
		}
	}

	return removed, nil
}

// ListDead implements AdminRepository, newest failures first
func (ms *MemoryStorage) ListDead(ctx context.Context, limit int) ([]DeadJob, error) {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	entries := make([]DeadJob, 0, len(ms.dead))
	for _, entry := range ms.dead {
		entries = append(entries, *entry)
	}

	slices.SortFunc(entries, func(a, b DeadJob) int {
		return b.FailedAt.Compare(a.FailedAt)
	})

	if limit > 0 && len(entries) > limit {
		entries = entries[:limit]
	}

	return entries, nil
}

// Resurrect implements AdminRepository
func (ms *MemoryStorage) Resurrect(ctx context.Context, id uuid.UUID, readyAt time.Time) (*Job, error) {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	entry, ok := ms.dead[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s is not dead", ErrJobNotFound, id)
	}

	job := entry.Job
	job.Attempt = 0
	job.ReadyAt = readyAt
	job.LeaseUntil = nil

	delete(ms.dead, id)
	ms.pending[id] = &job

	jobCopy := job
	return &jobCopy, nil
}

// InFlight returns a copy of the in-flight job with the given id
func (ms *MemoryStorage) InFlight(id uuid.UUID) (*Job, bool) {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	job, ok := ms.inFlight[id]
	if !ok {
		return nil, false
	}
	jobCopy := *job
	return &jobCopy, true
}

// Pending returns a copy of the pending job with the given id
func (ms *MemoryStorage) Pending(id uuid.UUID) (*Job, bool) {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	job, ok := ms.pending[id]
	if !ok {
		return nil, false
	}
	jobCopy := *job
	return &jobCopy, true
}

func (ms *MemoryStorage) exists(id uuid.UUID) bool {
	_, p := ms.pending[id]
	_, f := ms.inFlight[id]
	_, d := ms.dead[id]
	return p || f || d
}

// compareReady orders jobs by ready time, then priority, then creation time
func compareReady(a, b *Job) int {
	if c := a.ReadyAt.Compare(b.ReadyAt); c != 0 {
		return c
	}
	if c := cmp.Compare(a.Priority, b.Priority); c != 0 {
		return c
	}
	return a.CreatedAt.Compare(b.CreatedAt)
}
