package notify

import (
	"context"
	"errors"
	"html"
	"strings"

	"github.com/dmitrymomot/dentflow/pkg/email"
	"github.com/dmitrymomot/dentflow/pkg/queue"
	"github.com/dmitrymomot/dentflow/pkg/whatsapp"
)

// Content is what a channel delivers
type Content struct {
	Subject string
	Body    string
	Tag     string
}

// DeliveryResult is returned by a successful send
type DeliveryResult struct {
	ExternalID string
}

// Channel is a delivery mechanism. Errors wrapped with queue.Permanent are not retried.
type Channel interface {
	Send(ctx context.Context, recipient string, content Content) (DeliveryResult, error)
}

// ChannelFunc adapts a function to the Channel interface
type ChannelFunc func(ctx context.Context, recipient string, content Content) (DeliveryResult, error)

func (f ChannelFunc) Send(ctx context.Context, recipient string, content Content) (DeliveryResult, error) {
	return f(ctx, recipient, content)
}

// WhatsAppChannel sends text messages through a whatsapp.Sender
type WhatsAppChannel struct {
	sender whatsapp.Sender
}

// NewWhatsAppChannel wraps sender
func NewWhatsAppChannel(sender whatsapp.Sender) *WhatsAppChannel {
	return &WhatsAppChannel{sender: sender}
}

func (c *WhatsAppChannel) Send(ctx context.Context, recipient string, content Content) (DeliveryResult, error) {
	id, err := c.sender.SendText(ctx, recipient, content.Body)
	if err != nil {
		if whatsapp.IsPermanent(err) {
			return DeliveryResult{}, queue.Permanent(err)
		}
		return DeliveryResult{}, err
	}
	return DeliveryResult{ExternalID: id}, nil
}

// EmailChannel sends plain notification bodies through an email.EmailSender
type EmailChannel struct {
	sender email.EmailSender
}

// NewEmailChannel wraps sender
func NewEmailChannel(sender email.EmailSender) *EmailChannel {
	return &EmailChannel{sender: sender}
}

func (c *EmailChannel) Send(ctx context.Context, recipient string, content Content) (DeliveryResult, error) {
	id, err := c.sender.SendEmail(ctx, email.SendEmailParams{
		SendTo:   recipient,
		Subject:  content.Subject,
		BodyHTML: plainToHTML(content.Body),
		BodyText: content.Body,
		Tag:      content.Tag,
	})
	if err != nil {
		if errors.Is(err, email.ErrInvalidParams) || errors.Is(err, email.ErrRejected) {
			return DeliveryResult{}, queue.Permanent(err)
		}
		return DeliveryResult{}, err
	}
	return DeliveryResult{ExternalID: id}, nil
}

func plainToHTML(body string) string {
	escaped := html.EscapeString(body)
	return "<p>" + strings.ReplaceAll(escaped, "\n", "<br>") + "</p>"
}
