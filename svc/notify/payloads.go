package notify

import (
	"github.com/google/uuid"

	"github.com/dmitrymomot/dentflow/pkg/queue"
)

// Job kinds handled by this package
const (
	KindSendWhatsApp    queue.Kind = "send-whatsapp"
	KindSendEmail       queue.Kind = "send-email"
	KindReconcileStatus queue.Kind = "reconcile-status"
)

// Message is the closed set of job payloads produced by this package
type Message interface {
	queue.Payload
	notificationID() uuid.UUID
}

// WhatsAppMessage delivers a notification over WhatsApp
type WhatsAppMessage struct {
	NotificationID uuid.UUID `json:"notification_id"`
	Phone          string    `json:"phone"`
	Body           string    `json:"body"`
}

func (WhatsAppMessage) Kind() queue.Kind            { return KindSendWhatsApp }
func (m WhatsAppMessage) notificationID() uuid.UUID { return m.NotificationID }

// EmailMessage delivers a notification by email
type EmailMessage struct {
	NotificationID uuid.UUID `json:"notification_id"`
	To             string    `json:"to"`
	Subject        string    `json:"subject"`
	Body           string    `json:"body"`
	Tag            string    `json:"tag,omitempty"`
}

func (EmailMessage) Kind() queue.Kind            { return KindSendEmail }
func (m EmailMessage) notificationID() uuid.UUID { return m.NotificationID }

// StatusReconcile assumes delivery of a notification that was sent but never confirmed
type StatusReconcile struct {
	NotificationID uuid.UUID `json:"notification_id"`
}

func (StatusReconcile) Kind() queue.Kind            { return KindReconcileStatus }
func (m StatusReconcile) notificationID() uuid.UUID { return m.NotificationID }

// messageFor builds the delivery payload for a stored notification
func messageFor(n *Notification) (Message, error) {
	switch n.Channel {
	case ChannelWhatsApp:
		return WhatsAppMessage{NotificationID: n.ID, Phone: n.Recipient, Body: n.Message}, nil
	case ChannelEmail:
		return EmailMessage{
			NotificationID: n.ID,
			To:             n.Recipient,
			Subject:        n.Subject,
			Body:           n.Message,
			Tag:            string(n.Type),
		}, nil
	default:
		return nil, ErrChannelNotConfigured
	}
}
