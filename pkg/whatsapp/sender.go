package whatsapp

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"
	"time"
	"unicode"
)

// Sender delivers a text message to a phone number and returns the provider message id
type Sender interface {
	SendText(ctx context.Context, to, body string) (string, error)
}

// NewSender returns a Cloud API client when credentials are configured, DevSender otherwise
func NewSender(cfg Config, opts ...Option) (Sender, error) {
	if !cfg.Enabled() {
		o := applyOptions(opts)
		return NewDevSender(o.logger), nil
	}
	return NewClient(cfg, opts...)
}

// DevSender logs messages instead of sending them
type DevSender struct {
	logger *slog.Logger
	seq    atomic.Int64
}

// NewDevSender creates a sender that writes every message to the logger
func NewDevSender(logger *slog.Logger) *DevSender {
	if logger == nil {
		logger = slog.Default()
	}
	return &DevSender{logger: logger}
}

// SendText implements Sender
func (d *DevSender) SendText(ctx context.Context, to, body string) (string, error) {
	phone, err := normalizePhone(to)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(body) == "" {
		return "", ErrEmptyMessage
	}

	id := fmt.Sprintf("dev.%d.%d", time.Now().Unix(), d.seq.Add(1))
	d.logger.InfoContext(ctx, "whatsapp message (dev)",
		slog.String("to", phone),
		slog.String("message_id", id),
		slog.String("body", body))

	return id, nil
}

// normalizePhone keeps the digits of an E.164-ish number, the form the Cloud API expects
func normalizePhone(phone string) (string, error) {
	digits := strings.Map(func(r rune) rune {
		if unicode.IsDigit(r) {
			return r
		}
		return -1
	}, phone)

	if len(digits) < 8 || len(digits) > 15 {
		return "", fmt.Errorf("%w: %q", ErrInvalidRecipient, phone)
	}
	return digits, nil
}
