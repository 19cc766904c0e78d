package queue_test

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/dentflow/pkg/queue"
)

// fakeClock is a manually advanced clock shared by queue components under test
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// Test payload types
type whatsappPayload struct {
	Phone string `json:"phone"`
	Body  string `json:"body"`
}

func (whatsappPayload) Kind() queue.Kind { return "send-whatsapp" }

type emailPayload struct {
	To string `json:"to"`
}

func (emailPayload) Kind() queue.Kind { return "send-email" }

type unknownPayload struct{}

func (unknownPayload) Kind() queue.Kind { return "unknown" }

type emptyKindPayload struct{}

func (emptyKindPayload) Kind() queue.Kind { return "" }

func newJob(kind queue.Kind, readyAt time.Time, priority int) *queue.Job {
	return &queue.Job{
		ID:          uuid.New(),
		Kind:        kind,
		Payload:     []byte(`{}`),
		Priority:    priority,
		ReadyAt:     readyAt,
		MaxAttempts: queue.DefaultMaxAttempts,
		CreatedAt:   readyAt,
	}
}

// buryAt pushes a job, claims it and moves it to the dead set with the given failure time
func buryAt(t *testing.T, repo queue.Repository, failedAt time.Time) uuid.UUID {
	t.Helper()
	ctx := context.Background()

	job := newJob("send-email", failedAt.Add(-time.Minute), 0)
	require.NoError(t, repo.Push(ctx, job))

	claimed, err := repo.Claim(ctx, failedAt, time.Minute)
	require.NoError(t, err)
	require.Equal(t, job.ID, claimed.ID)

	claimed.Attempt = claimed.MaxAttempts
	require.NoError(t, repo.Bury(ctx, claimed, "gateway timeout", failedAt))

	return job.ID
}
