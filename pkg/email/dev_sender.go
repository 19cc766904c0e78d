package email

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync/atomic"
	"time"
)

// DevSender writes every message to an outbox directory instead of sending it.
// Each message becomes one JSON file named after its id.
type DevSender struct {
	dir string
	seq atomic.Uint64
	now func() time.Time
}

// NewDevSender creates a DevSender writing to dir, created on first send.
func NewDevSender(dir string) *DevSender {
	return &DevSender{dir: dir, now: time.Now}
}

// OutboxMessage is the file format written by DevSender.
type OutboxMessage struct {
	ID       string    `json:"id"`
	QueuedAt time.Time `json:"queued_at"`
	SendEmailParams
}

// SendEmail writes the message and returns its id, which is also the file name
// without the .json extension.
func (d *DevSender) SendEmail(ctx context.Context, params SendEmailParams) (string, error) {
	if err := params.Validate(); err != nil {
		return "", err
	}
	if err := ctx.Err(); err != nil {
		return "", fmt.Errorf("%w: %w", ErrFailedToSendEmail, err)
	}

	if err := os.MkdirAll(d.dir, 0o755); err != nil {
		return "", fmt.Errorf("%w: failed to create outbox directory: %w", ErrFailedToSendEmail, err)
	}

	now := d.now()
	label := params.Tag
	if label == "" {
		label = params.Subject
	}
	id := fmt.Sprintf("%s_%03d_%s", now.UTC().Format("20060102T150405"), d.seq.Add(1)%1000, slugify(label))

	data, err := json.MarshalIndent(OutboxMessage{ID: id, QueuedAt: now, SendEmailParams: params}, "", "  ")
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrFailedToSendEmail, err)
	}
	if err := os.WriteFile(filepath.Join(d.dir, id+".json"), data, 0o644); err != nil {
		return "", fmt.Errorf("%w: failed to write outbox file: %w", ErrFailedToSendEmail, err)
	}
	return id, nil
}

var unsafeChars = regexp.MustCompile(`[^a-z0-9_-]+`)

func slugify(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	s = strings.ReplaceAll(s, " ", "_")
	s = strings.Trim(unsafeChars.ReplaceAllString(s, ""), "_-")
	if len(s) > 60 {
		s = s[:60]
	}
	if s == "" {
		return "email"
	}
	return s
}
