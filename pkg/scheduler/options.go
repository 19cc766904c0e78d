package scheduler

import (
	"log/slog"
	"time"
)

// Option is a functional option for configuring a scheduler
type Option func(*options)

type options struct {
	checkInterval time.Duration
	runTimeout    time.Duration
	now           func() time.Time
	logger        *slog.Logger
}

// WithCheckInterval sets how often scheduler checks for due tasks
func WithCheckInterval(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.checkInterval = d
		}
	}
}

// WithRunTimeout bounds the duration of a single task run
func WithRunTimeout(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.runTimeout = d
		}
	}
}

// WithNowFunc overrides the clock
func WithNowFunc(now func() time.Time) Option {
	return func(o *options) {
		if now != nil {
			o.now = now
		}
	}
}

// WithLogger sets the logger for the scheduler
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}
