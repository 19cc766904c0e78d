// Package notify is the appointment notification pipeline built on pkg/queue
// and pkg/scheduler.
//
// Notifier records a PENDING notification and enqueues a sealed Message
// (WhatsAppMessage, EmailMessage) for it. Handlers deliver the message through
// a Channel and mark the notification SENT; when the queue gives up on a job,
// OnDeadLetter marks it FAILED. Status changes follow a fixed transition table
// and re-applying the current status is a no-op, so replays under
// at-least-once delivery are harmless.
//
// Tasks holds the five recurring scans (reminder, cleanup, health,
// reconciliation, failed retry) and Initialize registers them with a scheduler.
// Admin exposes queue and scheduler operations over HTTP.
package notify
