package notify

import (
	"fmt"
	"time"
)

var transitions = map[Status][]Status{
	StatusPending:   {StatusSent, StatusFailed},
	StatusSent:      {StatusDelivered, StatusRead, StatusFailed},
	StatusDelivered: {StatusRead},
	StatusFailed:    {StatusPending},
}

// CanTransition reports whether a notification may move from one status to another.
// Staying in the same status is always allowed.
func CanTransition(from, to Status) bool {
	if from == to {
		return true
	}
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// StatusUpdate describes a status change and the fields that go with it
type StatusUpdate struct {
	Status         Status
	ExternalID     string
	Error          string
	IncrementRetry bool
	At             time.Time
}

// Apply performs the update in place. It reports false without error when the
// notification already has the target status, so replays are harmless.
func (n *Notification) Apply(u StatusUpdate) (bool, error) {
	if n.Status == u.Status {
		return false, nil
	}
	if !CanTransition(n.Status, u.Status) {
		return false, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, n.Status, u.Status)
	}

	at := u.At
	if at.IsZero() {
		at = time.Now()
	}

	n.Status = u.Status
	n.UpdatedAt = at

	switch u.Status {
	case StatusSent:
		n.SentAt = &at
		n.Error = ""
		if u.ExternalID != "" {
			n.ExternalID = u.ExternalID
		}
	case StatusDelivered:
		n.DeliveredAt = &at
	case StatusRead:
		if n.DeliveredAt == nil {
			n.DeliveredAt = &at
		}
	case StatusFailed:
		n.Error = u.Error
	case StatusPending:
		n.Error = ""
		n.ExternalID = ""
		n.SentAt = nil
	}

	if u.IncrementRetry {
		n.RetryCount++
	}

	return true, nil
}
