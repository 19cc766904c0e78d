package queue

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrymomot/dentflow/pkg/logger"
)

// WorkerRepository defines the interface for runner operations.
// Every method must be atomic with respect to the others for a given job id.
type WorkerRepository interface {
	// Claim atomically moves the ready job with the smallest (ReadyAt, Priority)
	// to the in-flight set with a lease. Returns ErrNoJobReady when nothing is ready.
	Claim(ctx context.Context, now time.Time, lease time.Duration) (*Job, error)

	// Complete removes a succeeded job from the in-flight set
	Complete(ctx context.Context, id uuid.UUID) error

	// Requeue moves an in-flight job back to pending with its updated attempt and ReadyAt
	Requeue(ctx context.Context, job *Job) error

	// Bury moves an in-flight job to the dead set
	Bury(ctx context.Context, job *Job, reason string, failedAt time.Time) error

	// ReclaimExpired moves in-flight jobs whose lease expired back to pending
	ReclaimExpired(ctx context.Context, now time.Time) (int, error)
}

type (
	// SuccessHook is called after a job has been resolved successfully
	SuccessHook func(ctx context.Context, job *Job)

	// DeadLetterHook is called after a job has been moved to the dead set
	DeadLetterHook func(ctx context.Context, job *Job, reason string)
)

// Runner drives jobs from pending through in-flight to resolution.
// A single loop claims one job at a time.
type Runner struct {
	repo     WorkerRepository
	handlers map[Kind]Handler
	mu       sync.RWMutex

	policy             RetryPolicy
	idleInterval       time.Duration
	errorInterval      time.Duration
	leaseTimeout       time.Duration
	leaseCheckInterval time.Duration
	now                func() time.Time
	logger             *slog.Logger
	onSuccess          SuccessHook
	onDead             DeadLetterHook

	lastReclaim time.Time

	cancel context.CancelFunc
	done   chan struct{}
}

// NewRunner creates a new job runner
func NewRunner(repo WorkerRepository, opts ...RunnerOption) (*Runner, error) {
	if repo == nil {
		return nil, ErrRepositoryNil
	}

	options := &runnerOptions{
		policy:             DefaultRetryPolicy(),
		idleInterval:       time.Second,
		errorInterval:      5 * time.Second,
		leaseTimeout:       5 * time.Minute,
		leaseCheckInterval: time.Minute,
		now:                time.Now,
		logger:             slog.Default(),
	}

	for _, opt := range opts {
		opt(options)
	}

	return &Runner{
		repo:               repo,
		handlers:           make(map[Kind]Handler),
		policy:             options.policy,
		idleInterval:       options.idleInterval,
		errorInterval:      options.errorInterval,
		leaseTimeout:       options.leaseTimeout,
		leaseCheckInterval: options.leaseCheckInterval,
		now:                options.now,
		logger:             options.logger,
		onSuccess:          options.onSuccess,
		onDead:             options.onDead,
	}, nil
}

// RegisterHandler registers a single job handler, replacing any handler of the same kind
func (r *Runner) RegisterHandler(handler Handler) error {
	if handler == nil {
		return nil
	}
	if handler.Kind() == "" {
		return ErrEmptyKind
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.handlers[handler.Kind()] = handler
	return nil
}

// RegisterHandlers registers multiple job handlers
func (r *Runner) RegisterHandlers(handlers ...Handler) error {
	for _, h := range handlers {
		if err := r.RegisterHandler(h); err != nil {
			return err
		}
	}
	return nil
}

// Start begins processing jobs in the background
func (r *Runner) Start(ctx context.Context) error {
	r.mu.Lock()
	if r.cancel != nil {
		r.mu.Unlock()
		return ErrRunnerStarted
	}

	if len(r.handlers) == 0 {
		r.mu.Unlock()
		return ErrNoHandlers
	}

	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	r.cancel = cancel
	r.done = done
	r.mu.Unlock()

	go func() {
		defer close(done)
		r.loop(ctx)
	}()

	r.logger.Info("job runner started",
		slog.Duration("idle_interval", r.idleInterval),
		slog.Duration("lease_timeout", r.leaseTimeout))

	return nil
}

// Stop halts the loop and waits for the job in progress to be resolved
func (r *Runner) Stop() error {
	r.mu.Lock()
	if r.cancel == nil {
		r.mu.Unlock()
		return ErrRunnerNotStarted
	}

	cancel, done := r.cancel, r.done
	r.cancel = nil
	r.done = nil
	r.mu.Unlock()

	cancel()

	r.logger.Info("job runner stopping, waiting for the active job to finish")
	<-done
	r.logger.Info("job runner stopped")

	return nil
}

// Run starts the runner and returns a function suitable for errgroup
func (r *Runner) Run(ctx context.Context) func() error {
	return func() error {
		if err := r.Start(ctx); err != nil {
			return err
		}

		<-ctx.Done()

		return r.Stop()
	}
}

// loop never exits on a processing error, only on context cancellation
func (r *Runner) loop(ctx context.Context) {
	for {
		if ctx.Err() != nil {
			return
		}

		processed, err := r.ProcessNext(ctx)

		var wait time.Duration
		switch {
		case err != nil:
			r.logger.ErrorContext(ctx, "job runner iteration failed", logger.Error(err))
			wait = r.errorInterval
		case !processed:
			wait = r.idleInterval
		default:
			continue
		}

		if !sleep(ctx, wait) {
			return
		}
	}
}

// ProcessNext claims and resolves at most one ready job.
// It reports whether a job was claimed.
func (r *Runner) ProcessNext(ctx context.Context) (bool, error) {
	now := r.now()
	r.reclaimIfDue(ctx, now)

	job, err := r.repo.Claim(ctx, now, r.leaseTimeout)
	if err != nil {
		if errors.Is(err, ErrNoJobReady) {
			return false, nil
		}
		return false, fmt.Errorf("failed to claim job: %w", err)
	}
	if job == nil {
		return false, nil
	}

	r.logger.DebugContext(ctx, "claimed job",
		logger.JobID(job.ID),
		logger.JobKind(string(job.Kind)),
		logger.Attempt(job.Attempt))

	return true, r.process(ctx, job)
}

// Execute runs a job synchronously once, without retry or dead-lettering.
// Used as the degraded-mode fallback when the queue store is unavailable.
func (r *Runner) Execute(ctx context.Context, job *Job) error {
	handler, ok := r.handler(job.Kind)
	if !ok {
		return fmt.Errorf("%w: %s", ErrHandlerNotFound, job.Kind)
	}

	start := r.now()
	if err := r.invoke(ctx, handler, job); err != nil {
		r.logger.ErrorContext(ctx, "direct job execution failed",
			logger.JobID(job.ID),
			logger.JobKind(string(job.Kind)),
			logger.Attempt(job.Attempt),
			logger.Error(err))
		return err
	}

	r.logger.InfoContext(ctx, "job executed directly",
		logger.JobID(job.ID),
		logger.JobKind(string(job.Kind)),
		logger.Duration(r.now().Sub(start)))

	if r.onSuccess != nil {
		r.onSuccess(ctx, job)
	}

	return nil
}

// process executes a claimed job with its handler and resolves it
func (r *Runner) process(ctx context.Context, job *Job) error {
	// Resolution must be recorded even if shutdown starts mid-job
	ctx = context.WithoutCancel(ctx)

	handler, ok := r.handler(job.Kind)
	if !ok {
		job.Attempt++
		return r.bury(ctx, job, fmt.Sprintf("%s: %s", ErrHandlerNotFound, job.Kind))
	}

	start := r.now()
	execErr := r.invoke(ctx, handler, job)
	duration := r.now().Sub(start)

	if execErr != nil {
		return r.handleFailure(ctx, job, execErr, duration)
	}

	return r.handleSuccess(ctx, job, duration)
}

// invoke calls the handler with panic recovery and a lease-bound timeout
func (r *Runner) invoke(ctx context.Context, handler Handler, job *Job) (retErr error) {
	defer func() {
		if rec := recover(); rec != nil {
			retErr = fmt.Errorf("panic in handler: %v", rec)
			r.logger.ErrorContext(ctx, "handler panicked",
				logger.JobID(job.ID),
				logger.JobKind(string(job.Kind)),
				slog.Any("panic", rec))
		}
	}()

	ctx, cancel := context.WithTimeout(ctx, r.leaseTimeout)
	defer cancel()

	ctx = logger.WithAttrs(ctx, logger.JobID(job.ID), logger.JobKind(string(job.Kind)))

	return handler.Handle(ctx, job.Payload)
}

// handleFailure increments the attempt and either requeues or buries the job
func (r *Runner) handleFailure(ctx context.Context, job *Job, execErr error, duration time.Duration) error {
	job.Attempt++
	msg := execErr.Error()
	job.LastError = &msg

	if IsPermanent(execErr) {
		return r.bury(ctx, job, msg)
	}

	decision := r.policy.Decide(job.Attempt, job.MaxAttempts)
	if decision.DeadLetter {
		return r.bury(ctx, job, msg)
	}

	job.ReadyAt = r.now().Add(decision.Delay)
	if err := r.repo.Requeue(ctx, job); err != nil {
		return fmt.Errorf("failed to requeue job %s: %w", job.ID, err)
	}

	r.logger.WarnContext(ctx, "job failed, retry scheduled",
		logger.JobID(job.ID),
		logger.JobKind(string(job.Kind)),
		logger.Attempt(job.Attempt),
		slog.Int("max_attempts", job.MaxAttempts),
		slog.Duration("retry_in", decision.Delay),
		logger.Duration(duration),
		logger.Error(execErr))

	return nil
}

// bury moves the job to the dead set and notifies the dead-letter hook
func (r *Runner) bury(ctx context.Context, job *Job, reason string) error {
	if err := r.repo.Bury(ctx, job, reason, r.now()); err != nil {
		return fmt.Errorf("failed to dead-letter job %s: %w", job.ID, err)
	}

	r.logger.ErrorContext(ctx, "job moved to dead letter set",
		logger.JobID(job.ID),
		logger.JobKind(string(job.Kind)),
		logger.Attempt(job.Attempt),
		slog.Int("max_attempts", job.MaxAttempts),
		slog.String("reason", reason))

	if r.onDead != nil {
		r.onDead(ctx, job, reason)
	}

	return nil
}

// handleSuccess removes the job and notifies the success hook
func (r *Runner) handleSuccess(ctx context.Context, job *Job, duration time.Duration) error {
	if err := r.repo.Complete(ctx, job.ID); err != nil {
		return fmt.Errorf("failed to complete job %s: %w", job.ID, err)
	}

	r.logger.InfoContext(ctx, "job succeeded",
		logger.JobID(job.ID),
		logger.JobKind(string(job.Kind)),
		logger.Attempt(job.Attempt),
		logger.Duration(duration))

	if r.onSuccess != nil {
		r.onSuccess(ctx, job)
	}

	return nil
}

// reclaimIfDue returns jobs with expired leases to pending, at most once per check interval
func (r *Runner) reclaimIfDue(ctx context.Context, now time.Time) {
	if !r.lastReclaim.IsZero() && now.Sub(r.lastReclaim) < r.leaseCheckInterval {
		return
	}
	r.lastReclaim = now

	n, err := r.repo.ReclaimExpired(ctx, now)
	if err != nil {
		r.logger.ErrorContext(ctx, "failed to reclaim expired jobs", logger.Error(err))
		return
	}
	if n > 0 {
		r.logger.WarnContext(ctx, "reclaimed jobs with expired lease", slog.Int("count", n))
	}
}

func (r *Runner) handler(kind Kind) (Handler, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	h, ok := r.handlers[kind]
	return h, ok
}

// sleep waits for d or until ctx is done; it reports whether the full wait elapsed
func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
