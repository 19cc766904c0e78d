package notify

import "errors"

var (
	// ErrAppointmentNotFound is returned when an appointment id is unknown to storage.
	ErrAppointmentNotFound = errors.New("appointment not found")
	// ErrNotificationNotFound is returned when a notification id is unknown to storage.
	ErrNotificationNotFound = errors.New("notification not found")
	// ErrInvalidTransition is returned when a status change is not allowed from the current status.
	ErrInvalidTransition = errors.New("invalid notification status transition")
	// ErrNoContact marks appointments that cannot be reached on any channel.
	ErrNoContact = errors.New("appointment has neither phone nor email")
	// ErrChannelNotConfigured is returned when a message targets a channel without a sender.
	ErrChannelNotConfigured = errors.New("notification channel not configured")
	// ErrUnknownTask is returned when the admin API names a task that is not registered.
	ErrUnknownTask = errors.New("unknown task")
	// ErrInvalidTemplates wraps template set validation failures.
	ErrInvalidTemplates = errors.New("invalid notification templates")
	// ErrInvalidConfig wraps configuration validation failures.
	ErrInvalidConfig = errors.New("invalid notification config")
)
