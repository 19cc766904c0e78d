package logger

import (
	"log/slog"
	"time"
)

// Error creates an attribute for a single error under the key "error".
// If err is nil, it returns an empty Attr.
func Error(err error) slog.Attr {
	if err == nil {
		return slog.Attr{}
	}
	return slog.Any("error", err)
}

// JobID records the job identifier under the key "job_id".
func JobID(id any) slog.Attr {
	if id == nil {
		return slog.Attr{}
	}
	return slog.Any("job_id", id)
}

// JobKind records the job kind under the key "job_kind".
func JobKind(kind string) slog.Attr {
	return slog.String("job_kind", kind)
}

// Attempt records the delivery attempt count under the key "attempt".
func Attempt(n int) slog.Attr {
	return slog.Int("attempt", n)
}

// TaskName records a recurring task name under the key "task".
func TaskName(name string) slog.Attr {
	return slog.String("task", name)
}

// NotificationID records the notification identifier under the key "notification_id".
func NotificationID(id string) slog.Attr {
	if id == "" {
		return slog.Attr{}
	}
	return slog.String("notification_id", id)
}

// AppointmentID records the appointment identifier under the key "appointment_id".
func AppointmentID(id string) slog.Attr {
	if id == "" {
		return slog.Attr{}
	}
	return slog.String("appointment_id", id)
}

// Duration records a duration under the key "duration".
func Duration(d time.Duration) slog.Attr {
	return slog.Duration("duration", d)
}

// Component records the component name under the key "component".
func Component(name string) slog.Attr {
	return slog.String("component", name)
}
