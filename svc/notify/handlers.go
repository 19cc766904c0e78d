package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrymomot/dentflow/pkg/logger"
	"github.com/dmitrymomot/dentflow/pkg/queue"
)

// Handlers processes the jobs produced by Notifier and Tasks
type Handlers struct {
	storage  Storage
	whatsapp Channel
	email    Channel
	now      func() time.Time
	logger   *slog.Logger
}

// HandlersOption configures Handlers
type HandlersOption func(*Handlers)

// WithHandlersLogger sets the logger
func WithHandlersLogger(l *slog.Logger) HandlersOption {
	return func(h *Handlers) {
		if l != nil {
			h.logger = l
		}
	}
}

// WithHandlersNowFunc sets the clock used for status timestamps
func WithHandlersNowFunc(now func() time.Time) HandlersOption {
	return func(h *Handlers) {
		if now != nil {
			h.now = now
		}
	}
}

// NewHandlers creates job handlers. A nil channel makes jobs for it fail permanently.
func NewHandlers(storage Storage, whatsapp, email Channel, opts ...HandlersOption) *Handlers {
	h := &Handlers{
		storage:  storage,
		whatsapp: whatsapp,
		email:    email,
		now:      time.Now,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// QueueHandlers returns one queue handler per job kind
func (h *Handlers) QueueHandlers() []queue.Handler {
	return []queue.Handler{
		queue.NewHandler(h.SendWhatsApp),
		queue.NewHandler(h.SendEmail),
		queue.NewHandler(h.ReconcileStatus),
	}
}

func (h *Handlers) SendWhatsApp(ctx context.Context, msg WhatsAppMessage) error {
	return h.deliver(ctx, h.whatsapp, msg.NotificationID, msg.Phone, Content{Body: msg.Body})
}

func (h *Handlers) SendEmail(ctx context.Context, msg EmailMessage) error {
	return h.deliver(ctx, h.email, msg.NotificationID, msg.To, Content{
		Subject: msg.Subject,
		Body:    msg.Body,
		Tag:     msg.Tag,
	})
}

func (h *Handlers) deliver(ctx context.Context, ch Channel, id uuid.UUID, recipient string, content Content) error {
	ctx = logger.WithAttrs(ctx, logger.NotificationID(id.String()))

	if ch == nil {
		return queue.Permanent(ErrChannelNotConfigured)
	}

	n, err := h.storage.GetNotification(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotificationNotFound) {
			return queue.Permanent(err)
		}
		return fmt.Errorf("failed to load notification: %w", err)
	}

	// A dead job resent by an operator finds its notification FAILED
	if n.Status == StatusFailed {
		n, err = h.storage.UpdateNotificationStatus(ctx, id, StatusUpdate{
			Status:         StatusPending,
			IncrementRetry: true,
			At:             h.now(),
		})
		if err != nil {
			return fmt.Errorf("failed to reopen notification: %w", err)
		}
	}

	// A replayed job after a crash between send and status update lands here
	if n.Status != StatusPending {
		h.logger.InfoContext(ctx, "notification already processed, skipping",
			slog.String("status", string(n.Status)))
		return nil
	}

	res, err := ch.Send(ctx, recipient, content)
	if err != nil {
		return err
	}

	if _, err := h.storage.UpdateNotificationStatus(ctx, id, StatusUpdate{
		Status:     StatusSent,
		ExternalID: res.ExternalID,
		At:         h.now(),
	}); err != nil {
		return fmt.Errorf("failed to mark notification sent: %w", err)
	}

	h.logger.InfoContext(ctx, "notification sent", slog.String("external_id", res.ExternalID))
	return nil
}

// ReconcileStatus marks a still-SENT notification as DELIVERED
func (h *Handlers) ReconcileStatus(ctx context.Context, msg StatusReconcile) error {
	ctx = logger.WithAttrs(ctx, logger.NotificationID(msg.NotificationID.String()))

	return assumeDelivered(ctx, h.storage, msg.NotificationID, h.now())
}

// assumeDelivered moves a SENT notification to DELIVERED. Notifications that
// left SENT or were removed in the meantime are left alone.
func assumeDelivered(ctx context.Context, storage Storage, id uuid.UUID, at time.Time) error {
	n, err := storage.GetNotification(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotificationNotFound) {
			return nil
		}
		return fmt.Errorf("failed to load notification: %w", err)
	}
	if n.Status != StatusSent {
		return nil
	}

	if _, err := storage.UpdateNotificationStatus(ctx, n.ID, StatusUpdate{
		Status: StatusDelivered,
		At:     at,
	}); err != nil {
		return fmt.Errorf("failed to mark notification delivered: %w", err)
	}
	return nil
}

// OnDeadLetter marks the notification behind a dead-lettered send job as FAILED.
// Suitable for queue.WithDeadLetterHook.
func (h *Handlers) OnDeadLetter(ctx context.Context, job *queue.Job, reason string) {
	if job.Kind != KindSendWhatsApp && job.Kind != KindSendEmail {
		return
	}

	var ref struct {
		NotificationID uuid.UUID `json:"notification_id"`
	}
	if err := json.Unmarshal(job.Payload, &ref); err != nil || ref.NotificationID == uuid.Nil {
		h.logger.WarnContext(ctx, "dead job has no notification reference",
			logger.JobID(job.ID),
			logger.JobKind(string(job.Kind)))
		return
	}

	h.markFailed(ctx, ref.NotificationID, reason)
}

func (h *Handlers) markFailed(ctx context.Context, id uuid.UUID, reason string) {
	_, err := h.storage.UpdateNotificationStatus(ctx, id, StatusUpdate{
		Status: StatusFailed,
		Error:  reason,
		At:     h.now(),
	})
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to mark notification failed",
			logger.NotificationID(id.String()),
			logger.Error(err))
	}
}
