package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrymomot/dentflow/pkg/logger"
)

// EnqueuerRepository defines the interface for job creation
type EnqueuerRepository interface {
	Push(ctx context.Context, job *Job) error
}

// Executor runs a job synchronously, bypassing the queue and retry semantics
type Executor interface {
	Execute(ctx context.Context, job *Job) error
}

// Enqueuer handles job enqueueing
type Enqueuer struct {
	repo               EnqueuerRepository
	fallback           Executor
	defaultPriority    int
	defaultMaxAttempts int
	now                func() time.Time
	logger             *slog.Logger
}

// NewEnqueuer creates a new Enqueuer
func NewEnqueuer(repo EnqueuerRepository, opts ...EnqueuerOption) (*Enqueuer, error) {
	if repo == nil {
		return nil, ErrRepositoryNil
	}

	options := &enqueuerOptions{
		defaultPriority:    DefaultPriority,
		defaultMaxAttempts: DefaultMaxAttempts,
		now:                time.Now,
		logger:             slog.Default(),
	}

	for _, opt := range opts {
		opt(options)
	}

	return &Enqueuer{
		repo:               repo,
		fallback:           options.fallback,
		defaultPriority:    options.defaultPriority,
		defaultMaxAttempts: options.defaultMaxAttempts,
		now:                options.now,
		logger:             options.logger,
	}, nil
}

// Enqueue adds a new job to the queue and returns its id.
//
// When the store rejects the job and a fallback executor is configured, the job
// is executed once synchronously instead. The returned error then reflects the
// outcome of that direct execution.
func (e *Enqueuer) Enqueue(ctx context.Context, payload Payload, opts ...EnqueueOption) (uuid.UUID, error) {
	if payload == nil {
		return uuid.Nil, ErrPayloadNil
	}

	options := &enqueueOptions{
		priority:    e.defaultPriority,
		maxAttempts: e.defaultMaxAttempts,
	}

	for _, opt := range opts {
		opt(options)
	}

	job, err := e.buildJob(payload, options)
	if err != nil {
		return uuid.Nil, err
	}

	pushErr := e.repo.Push(ctx, job)
	if pushErr == nil {
		e.logger.DebugContext(ctx, "job enqueued",
			logger.JobID(job.ID),
			logger.JobKind(string(job.Kind)),
			slog.Int("priority", job.Priority),
			slog.Time("ready_at", job.ReadyAt))
		return job.ID, nil
	}

	if e.fallback == nil {
		return uuid.Nil, errors.Join(ErrJobPush, fmt.Errorf("job %s of kind %q: %w", job.ID, job.Kind, pushErr))
	}

	e.logger.WarnContext(ctx, "queue store unavailable, executing job directly",
		logger.JobID(job.ID),
		logger.JobKind(string(job.Kind)),
		logger.Error(pushErr))

	if err := e.fallback.Execute(ctx, job); err != nil {
		return job.ID, errors.Join(ErrDirectExecution, err)
	}

	return job.ID, nil
}

// buildJob constructs a Job from payload and options
func (e *Enqueuer) buildJob(payload Payload, options *enqueueOptions) (*Job, error) {
	kind := payload.Kind()
	if kind == "" {
		return nil, ErrEmptyKind
	}

	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal payload of kind %q: %w", kind, err)
	}

	now := e.now()
	readyAt := now
	if options.readyAt != nil {
		readyAt = *options.readyAt
	} else if options.delay > 0 {
		readyAt = now.Add(options.delay)
	}

	return &Job{
		ID:          uuid.New(),
		Kind:        kind,
		Payload:     payloadBytes,
		Priority:    clampPriority(options.priority),
		ReadyAt:     readyAt,
		Attempt:     0,
		MaxAttempts: options.maxAttempts,
		CreatedAt:   now,
	}, nil
}
