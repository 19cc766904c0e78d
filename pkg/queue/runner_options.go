package queue

import (
	"log/slog"
	"time"
)

// RunnerOption is a functional option for configuring a runner
type RunnerOption func(*runnerOptions)

type runnerOptions struct {
	policy             RetryPolicy
	idleInterval       time.Duration
	errorInterval      time.Duration
	leaseTimeout       time.Duration
	leaseCheckInterval time.Duration
	now                func() time.Time
	logger             *slog.Logger
	onSuccess          SuccessHook
	onDead             DeadLetterHook
}

// WithRetryPolicy sets the policy consulted after a failed attempt
func WithRetryPolicy(policy RetryPolicy) RunnerOption {
	return func(o *runnerOptions) {
		if policy != nil {
			o.policy = policy
		}
	}
}

// WithIdleInterval sets how long the runner sleeps when no job is ready
func WithIdleInterval(d time.Duration) RunnerOption {
	return func(o *runnerOptions) {
		if d > 0 {
			o.idleInterval = d
		}
	}
}

// WithErrorInterval sets how long the runner sleeps after an internal error
func WithErrorInterval(d time.Duration) RunnerOption {
	return func(o *runnerOptions) {
		if d > 0 {
			o.errorInterval = d
		}
	}
}

// WithLeaseTimeout sets how long a claimed job stays owned by the runner.
// It also bounds handler execution time.
func WithLeaseTimeout(d time.Duration) RunnerOption {
	return func(o *runnerOptions) {
		if d > 0 {
			o.leaseTimeout = d
		}
	}
}

// WithLeaseCheckInterval sets how often expired leases are reclaimed
func WithLeaseCheckInterval(d time.Duration) RunnerOption {
	return func(o *runnerOptions) {
		if d > 0 {
			o.leaseCheckInterval = d
		}
	}
}

// WithRunnerNowFunc overrides the clock
func WithRunnerNowFunc(now func() time.Time) RunnerOption {
	return func(o *runnerOptions) {
		if now != nil {
			o.now = now
		}
	}
}

// WithRunnerLogger sets the logger for the runner
func WithRunnerLogger(logger *slog.Logger) RunnerOption {
	return func(o *runnerOptions) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithSuccessHook sets the function called after each successful job
func WithSuccessHook(hook SuccessHook) RunnerOption {
	return func(o *runnerOptions) {
		o.onSuccess = hook
	}
}

// WithDeadLetterHook sets the function called after each dead-lettered job
func WithDeadLetterHook(hook DeadLetterHook) RunnerOption {
	return func(o *runnerOptions) {
		o.onDead = hook
	}
}
