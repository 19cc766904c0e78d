package queue

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// AdminRepository defines the interface for inspection and maintenance
type AdminRepository interface {
	// Stats returns the size of the pending, in-flight and dead sets
	Stats(ctx context.Context) (Stats, error)

	// PurgeDead removes dead entries that failed before the given time
	PurgeDead(ctx context.Context, before time.Time) (int, error)

	// ListDead returns dead entries, newest first; limit <= 0 means all
	ListDead(ctx context.Context, limit int) ([]DeadJob, error)

	// Resurrect moves a dead job back to pending with a fresh retry budget
	Resurrect(ctx context.Context, id uuid.UUID, readyAt time.Time) (*Job, error)
}

// Repository is implemented by storages that back the whole queue
type Repository interface {
	EnqueuerRepository
	WorkerRepository
	AdminRepository
}

// ProducerRepository is the part of Repository used by Queue
type ProducerRepository interface {
	EnqueuerRepository
	AdminRepository
}

// Queue is the producer-facing API: enqueue, stats and dead set maintenance
type Queue struct {
	*Enqueuer
	admin AdminRepository
}

// New creates a Queue on top of repo
func New(repo ProducerRepository, opts ...EnqueuerOption) (*Queue, error) {
	if repo == nil {
		return nil, ErrRepositoryNil
	}

	enqueuer, err := NewEnqueuer(repo, opts...)
	if err != nil {
		return nil, err
	}

	return &Queue{Enqueuer: enqueuer, admin: repo}, nil
}

// Stats returns counts of pending, in-flight and dead jobs
func (q *Queue) Stats(ctx context.Context) (Stats, error) {
	stats, err := q.admin.Stats(ctx)
	if err != nil {
		return Stats{}, fmt.Errorf("failed to read queue stats: %w", err)
	}
	return stats, nil
}

// CleanupDeadOlderThan removes dead jobs that failed more than days ago
func (q *Queue) CleanupDeadOlderThan(ctx context.Context, days int) (int, error) {
	cutoff := q.now().Add(-time.Duration(days) * 24 * time.Hour)

	removed, err := q.admin.PurgeDead(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to purge dead jobs: %w", err)
	}
	return removed, nil
}

// DeadJobs lists dead jobs for audit, newest first
func (q *Queue) DeadJobs(ctx context.Context, limit int) ([]DeadJob, error) {
	jobs, err := q.admin.ListDead(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list dead jobs: %w", err)
	}
	return jobs, nil
}

// ResendDead moves a dead job back to pending, ready immediately
func (q *Queue) ResendDead(ctx context.Context, id uuid.UUID) (*Job, error) {
	job, err := q.admin.Resurrect(ctx, id, q.now())
	if err != nil {
		return nil, fmt.Errorf("failed to resend dead job %s: %w", id, err)
	}
	return job, nil
}
