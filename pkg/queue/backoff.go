package queue

import (
	"math"
	"math/rand/v2"
	"time"
)

// Decision is the outcome of a retry policy evaluation
type Decision struct {
	DeadLetter bool
	Delay      time.Duration
}

// RetryPolicy decides whether a failed job is retried and after which delay.
// Implementations should be safe for concurrent use.
type RetryPolicy interface {
	// Decide is called with the attempt count after it was incremented for the failure.
	Decide(attempt, maxAttempts int) Decision
}

// ExponentialBackoff retries after Base * 2^attempt, so the default Base of one
// second yields 2s, 4s, 8s...
//
// JitterFactor adds a positive random spread of up to JitterFactor*delay.
// It is capped below 1 so a jittered delay never reaches the next attempt's
// base delay and the sequence stays strictly increasing.
type ExponentialBackoff struct {
	Base         time.Duration
	Max          time.Duration
	JitterFactor float64
}

// Decide implements RetryPolicy
func (e ExponentialBackoff) Decide(attempt, maxAttempts int) Decision {
	if attempt >= maxAttempts {
		return Decision{DeadLetter: true}
	}
	return Decision{Delay: e.NextInterval(attempt)}
}

// NextInterval returns the delay before the given attempt is retried
func (e ExponentialBackoff) NextInterval(attempt int) time.Duration {
	if attempt <= 0 {
		return 0
	}

	base := e.Base
	if base <= 0 {
		base = time.Second
	}

	interval := float64(base) * math.Pow(2, float64(attempt))

	if jitter := min(e.JitterFactor, 0.99); jitter > 0 {
		interval += interval * jitter * rand.Float64()
	}

	if e.Max > 0 && interval > float64(e.Max) {
		interval = float64(e.Max)
	}

	return time.Duration(interval)
}

// DefaultRetryPolicy returns the plain 2^attempt seconds policy without jitter
func DefaultRetryPolicy() RetryPolicy {
	return ExponentialBackoff{Base: time.Second}
}
