package queue

import (
	"log/slog"
	"time"
)

// EnqueuerOption is a functional option for configuring an Enqueuer
type EnqueuerOption func(*enqueuerOptions)

type enqueuerOptions struct {
	fallback           Executor
	defaultPriority    int
	defaultMaxAttempts int
	now                func() time.Time
	logger             *slog.Logger
}

// WithFallback sets the executor used when the store cannot accept a job
func WithFallback(executor Executor) EnqueuerOption {
	return func(o *enqueuerOptions) {
		if executor != nil {
			o.fallback = executor
		}
	}
}

// WithDefaultPriority sets the default priority
func WithDefaultPriority(priority int) EnqueuerOption {
	return func(o *enqueuerOptions) {
		o.defaultPriority = clampPriority(priority)
	}
}

// WithDefaultMaxAttempts sets the default attempt ceiling
func WithDefaultMaxAttempts(n int) EnqueuerOption {
	return func(o *enqueuerOptions) {
		if n > 0 {
			o.defaultMaxAttempts = n
		}
	}
}

// WithEnqueuerNowFunc overrides the clock
func WithEnqueuerNowFunc(now func() time.Time) EnqueuerOption {
	return func(o *enqueuerOptions) {
		if now != nil {
			o.now = now
		}
	}
}

// WithEnqueuerLogger sets the logger for the enqueuer
func WithEnqueuerLogger(logger *slog.Logger) EnqueuerOption {
	return func(o *enqueuerOptions) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// EnqueueOption is a functional option for the Enqueue method
type EnqueueOption func(*enqueueOptions)

type enqueueOptions struct {
	priority    int
	maxAttempts int
	delay       time.Duration
	readyAt     *time.Time
}

// WithPriority sets the priority for the job, lower values are claimed first
func WithPriority(priority int) EnqueueOption {
	return func(o *enqueueOptions) {
		o.priority = priority
	}
}

// WithMaxAttempts sets the maximum number of delivery attempts.
// Values below 1 keep the enqueuer default.
func WithMaxAttempts(n int) EnqueueOption {
	return func(o *enqueueOptions) {
		if n >= 1 {
			o.maxAttempts = n
		}
	}
}

// WithDelay sets a delay before the job can be claimed
func WithDelay(delay time.Duration) EnqueueOption {
	return func(o *enqueueOptions) {
		if delay > 0 {
			o.delay = delay
		}
	}
}

// WithReadyAt sets a specific time before which the job must not be claimed
func WithReadyAt(readyAt time.Time) EnqueueOption {
	return func(o *enqueueOptions) {
		o.readyAt = &readyAt
	}
}
