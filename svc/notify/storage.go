package notify

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Storage is the persistence port of the notification pipeline.
// Every method commits on its own; no method spans several records in one transaction.
type Storage interface {
	// Ping runs a trivial liveness query
	Ping(ctx context.Context) error

	// GetAppointment returns ErrAppointmentNotFound for unknown ids
	GetAppointment(ctx context.Context, id uuid.UUID) (*Appointment, error)

	// CreateNotification stores a new notification
	CreateNotification(ctx context.Context, n *Notification) error

	// GetNotification returns ErrNotificationNotFound for unknown ids
	GetNotification(ctx context.Context, id uuid.UUID) (*Notification, error)

	// UpdateNotificationStatus validates the transition and applies it atomically.
	// Returns the stored notification after the update.
	UpdateNotificationStatus(ctx context.Context, id uuid.UUID, u StatusUpdate) (*Notification, error)

	// AppointmentsNeedingReminder returns active appointments starting in [from, to)
	// that have no REMINDER notification in any status, ordered by start time.
	AppointmentsNeedingReminder(ctx context.Context, from, to time.Time, limit int) ([]Appointment, error)

	// DeleteTerminalNotificationsBefore removes DELIVERED, READ and FAILED
	// notifications last updated before the given time
	DeleteTerminalNotificationsBefore(ctx context.Context, before time.Time) (int, error)

	// StaleSentNotifications returns SENT notifications sent before the given time, oldest first
	StaleSentNotifications(ctx context.Context, sentBefore time.Time, limit int) ([]Notification, error)

	// RetryableFailedNotifications returns FAILED notifications with fewer than
	// maxRetries retries that were last updated before the given time, oldest first
	RetryableFailedNotifications(ctx context.Context, maxRetries int, updatedBefore time.Time, limit int) ([]Notification, error)
}
