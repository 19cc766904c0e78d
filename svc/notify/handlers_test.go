package notify_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/dentflow/pkg/queue"
	"github.com/dmitrymomot/dentflow/svc/notify"
)

func TestHandlers_QueueHandlers(t *testing.T) {
	t.Parallel()

	h := notify.NewHandlers(notify.NewMemoryStorage(), nil, nil)
	var kinds []queue.Kind
	for _, qh := range h.QueueHandlers() {
		kinds = append(kinds, qh.Kind())
	}
	assert.ElementsMatch(t, []queue.Kind{notify.KindSendWhatsApp, notify.KindSendEmail, notify.KindReconcileStatus}, kinds)
}

func TestHandlers_SendWhatsApp(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("sends and marks sent", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)
		n := f.addNotification(t, notify.Notification{})

		err := f.handlers.SendWhatsApp(ctx, notify.WhatsAppMessage{NotificationID: n.ID, Phone: "5511999998888", Body: "hi"})
		require.NoError(t, err)

		sent := f.whatsapp.Sent()
		require.Len(t, sent, 1)
		assert.Equal(t, "5511999998888", sent[0].recipient)
		assert.Equal(t, "hi", sent[0].content.Body)

		got := f.notification(t, n.ID)
		assert.Equal(t, notify.StatusSent, got.Status)
		assert.Equal(t, "ext-1", got.ExternalID)
		require.NotNil(t, got.SentAt)
		assert.Equal(t, f.clock.Now(), *got.SentAt)
	})

	t.Run("replay of a sent notification does not send again", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)
		n := f.addNotification(t, notify.Notification{})
		msg := notify.WhatsAppMessage{NotificationID: n.ID, Phone: "5511999998888", Body: "hi"}

		require.NoError(t, f.handlers.SendWhatsApp(ctx, msg))
		require.NoError(t, f.handlers.SendWhatsApp(ctx, msg))
		assert.Len(t, f.whatsapp.Sent(), 1)
	})

	t.Run("channel failure keeps notification pending", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)
		f.whatsapp.setErr(errors.New("timeout"))
		n := f.addNotification(t, notify.Notification{})

		err := f.handlers.SendWhatsApp(ctx, notify.WhatsAppMessage{NotificationID: n.ID, Phone: "5511999998888", Body: "hi"})
		require.Error(t, err)
		assert.False(t, queue.IsPermanent(err))
		assert.Equal(t, notify.StatusPending, f.notification(t, n.ID).Status)
	})

	t.Run("unknown notification is permanent", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)

		err := f.handlers.SendWhatsApp(ctx, notify.WhatsAppMessage{NotificationID: uuid.New(), Phone: "1", Body: "hi"})
		require.ErrorIs(t, err, notify.ErrNotificationNotFound)
		assert.True(t, queue.IsPermanent(err))
	})

	t.Run("missing channel is permanent", func(t *testing.T) {
		t.Parallel()
		store := notify.NewMemoryStorage()
		h := notify.NewHandlers(store, nil, nil, notify.WithHandlersLogger(quietLogger()))

		err := h.SendEmail(ctx, notify.EmailMessage{NotificationID: uuid.New(), To: "a@b.c"})
		require.ErrorIs(t, err, notify.ErrChannelNotConfigured)
		assert.True(t, queue.IsPermanent(err))
	})

	t.Run("resent dead job reopens a failed notification", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)
		n := f.addNotification(t, notify.Notification{Status: notify.StatusFailed, Error: "boom"})

		require.NoError(t, f.handlers.SendWhatsApp(ctx, notify.WhatsAppMessage{NotificationID: n.ID, Phone: "5511999998888", Body: "hi"}))

		got := f.notification(t, n.ID)
		assert.Equal(t, notify.StatusSent, got.Status)
		assert.Equal(t, 1, got.RetryCount)
		assert.Empty(t, got.Error)
		assert.Len(t, f.whatsapp.Sent(), 1)
	})
}

func TestHandlers_SendEmail(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	n := f.addNotification(t, notify.Notification{Channel: notify.ChannelEmail, Recipient: "ana@example.com"})

	err := f.handlers.SendEmail(context.Background(), notify.EmailMessage{
		NotificationID: n.ID,
		To:             "ana@example.com",
		Subject:        "Reminder",
		Body:           "See you",
		Tag:            "REMINDER",
	})
	require.NoError(t, err)

	sent := f.email.Sent()
	require.Len(t, sent, 1)
	assert.Equal(t, notify.Content{Subject: "Reminder", Body: "See you", Tag: "REMINDER"}, sent[0].content)
	assert.Equal(t, notify.StatusSent, f.notification(t, n.ID).Status)
}

func TestHandlers_ReconcileStatus(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := newFixture(t)

	sentAt := f.clock.Now().Add(-2 * time.Hour)
	sent := f.addNotification(t, notify.Notification{Status: notify.StatusSent, SentAt: &sentAt})
	read := f.addNotification(t, notify.Notification{Status: notify.StatusRead})

	require.NoError(t, f.handlers.ReconcileStatus(ctx, notify.StatusReconcile{NotificationID: sent.ID}))
	got := f.notification(t, sent.ID)
	assert.Equal(t, notify.StatusDelivered, got.Status)
	require.NotNil(t, got.DeliveredAt)

	require.NoError(t, f.handlers.ReconcileStatus(ctx, notify.StatusReconcile{NotificationID: read.ID}))
	assert.Equal(t, notify.StatusRead, f.notification(t, read.ID).Status)

	assert.NoError(t, f.handlers.ReconcileStatus(ctx, notify.StatusReconcile{NotificationID: uuid.New()}))
}

func TestHandlers_OnDeadLetter(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("marks send job notification failed", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)
		n := f.addNotification(t, notify.Notification{})
		payload, err := json.Marshal(notify.WhatsAppMessage{NotificationID: n.ID})
		require.NoError(t, err)

		f.handlers.OnDeadLetter(ctx, &queue.Job{ID: uuid.New(), Kind: notify.KindSendWhatsApp, Payload: payload}, "gave up")

		got := f.notification(t, n.ID)
		assert.Equal(t, notify.StatusFailed, got.Status)
		assert.Equal(t, "gave up", got.Error)
	})

	t.Run("ignores reconcile jobs", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)
		n := f.addNotification(t, notify.Notification{Status: notify.StatusSent})
		payload, err := json.Marshal(notify.StatusReconcile{NotificationID: n.ID})
		require.NoError(t, err)

		f.handlers.OnDeadLetter(ctx, &queue.Job{ID: uuid.New(), Kind: notify.KindReconcileStatus, Payload: payload}, "gave up")
		assert.Equal(t, notify.StatusSent, f.notification(t, n.ID).Status)
	})

	t.Run("tolerates undecodable payload", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)
		assert.NotPanics(t, func() {
			f.handlers.OnDeadLetter(ctx, &queue.Job{ID: uuid.New(), Kind: notify.KindSendEmail, Payload: []byte("{")}, "bad")
		})
	})
}

func TestHandlers_ThroughRunner(t *testing.T) {
	t.Parallel()

	t.Run("exhausted retries end in failed notification", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)
		f.whatsapp.setErr(errors.New("gateway timeout"))
		appt := f.addAppointment("5511999998888", "", 3*time.Hour, notify.AppointmentScheduled)

		n, err := f.notifier.NotifyConfirmation(context.Background(), appt.ID)
		require.NoError(t, err)

		for range 3 {
			f.drain(t)
			f.clock.Advance(time.Minute)
		}

		got := f.notification(t, n.ID)
		assert.Equal(t, notify.StatusFailed, got.Status)
		assert.Contains(t, got.Error, "gateway timeout")

		stats, err := f.queue.Stats(context.Background())
		require.NoError(t, err)
		assert.Equal(t, queue.Stats{Dead: 1}, stats)
	})

	t.Run("recovers on a later attempt", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)
		f.whatsapp.setErr(errors.New("gateway timeout"))
		appt := f.addAppointment("5511999998888", "", 3*time.Hour, notify.AppointmentScheduled)

		n, err := f.notifier.NotifyConfirmation(context.Background(), appt.ID)
		require.NoError(t, err)
		assert.Equal(t, 1, f.drain(t))

		f.whatsapp.setErr(nil)
		f.clock.Advance(2 * time.Second)
		assert.Equal(t, 1, f.drain(t))

		assert.Equal(t, notify.StatusSent, f.notification(t, n.ID).Status)
		stats, err := f.queue.Stats(context.Background())
		require.NoError(t, err)
		assert.Equal(t, queue.Stats{}, stats)
	})
}
