package queue

import (
	"time"

	"github.com/google/uuid"
)

// Kind selects the handler a job is dispatched to
type Kind string

// Payload is the data carried by a job. Each payload type reports its own kind,
// so a handler is bound to exactly one payload type.
type Payload interface {
	Kind() Kind
}

// Default job settings
const (
	DefaultMaxAttempts = 3
	DefaultPriority    = 0

	// MaxPriority bounds priority values so they can be packed into a sorted-set score
	MaxPriority = 999
)

// Job represents a unit of asynchronous work tracked through the pending,
// in-flight and dead sets
type Job struct {
	ID          uuid.UUID  `json:"id"`
	Kind        Kind       `json:"kind"`
	Payload     []byte     `json:"payload,omitempty"`
	Priority    int        `json:"priority"` // lower value is claimed first among jobs ready at the same time
	ReadyAt     time.Time  `json:"ready_at"`
	Attempt     int        `json:"attempt"`
	MaxAttempts int        `json:"max_attempts"`
	LeaseUntil  *time.Time `json:"lease_until,omitempty"`
	LastError   *string    `json:"last_error,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}

// DeadJob is a job that exhausted its retries or failed permanently.
// Kept for audit and manual resend.
type DeadJob struct {
	Job      Job       `json:"job"`
	Reason   string    `json:"reason"`
	FailedAt time.Time `json:"failed_at"`
}

// Stats holds the size of each logical set
type Stats struct {
	Pending  int64 `json:"pending"`
	InFlight int64 `json:"in_flight"`
	Dead     int64 `json:"dead"`
}

// clampPriority keeps priority within [0, MaxPriority]
func clampPriority(p int) int {
	return min(max(p, 0), MaxPriority)
}
