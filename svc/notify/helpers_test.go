package notify_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/dentflow/pkg/queue"
	"github.com/dmitrymomot/dentflow/svc/notify"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 5, 4, 10, 0, 0, 0, time.UTC)}
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

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type sentMessage struct {
	recipient string
	content   notify.Content
}

// recordingChannel records every send and fails while err is set
type recordingChannel struct {
	mu   sync.Mutex
	sent []sentMessage
	err  error
	seq  int
}

func (c *recordingChannel) Send(ctx context.Context, recipient string, content notify.Content) (notify.DeliveryResult, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return notify.DeliveryResult{}, c.err
	}
	c.seq++
	c.sent = append(c.sent, sentMessage{recipient: recipient, content: content})
	return notify.DeliveryResult{ExternalID: "ext-" + string(rune('0'+c.seq))}, nil
}

func (c *recordingChannel) setErr(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.err = err
}

func (c *recordingChannel) Sent() []sentMessage {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]sentMessage(nil), c.sent...)
}

type fixture struct {
	clock    *fakeClock
	cfg      notify.Config
	store    *notify.MemoryStorage
	jobs     *queue.MemoryStorage
	queue    *queue.Queue
	runner   *queue.Runner
	handlers *notify.Handlers
	notifier *notify.Notifier
	tasks    *notify.Tasks
	whatsapp *recordingChannel
	email    *recordingChannel
}

func newFixture(t *testing.T, mutate ...func(*notify.Config)) *fixture {
	t.Helper()

	cfg := notify.DefaultConfig()
	cfg.ClinicName = "Sorriso Clinic"
	for _, m := range mutate {
		m(&cfg)
	}

	f := &fixture{
		clock:    newFakeClock(),
		cfg:      cfg,
		store:    notify.NewMemoryStorage(),
		jobs:     queue.NewMemoryStorage(),
		whatsapp: &recordingChannel{},
		email:    &recordingChannel{},
	}

	f.handlers = notify.NewHandlers(f.store, f.whatsapp, f.email,
		notify.WithHandlersNowFunc(f.clock.Now),
		notify.WithHandlersLogger(quietLogger()))

	runner, err := queue.NewRunner(f.jobs,
		queue.WithRunnerNowFunc(f.clock.Now),
		queue.WithRunnerLogger(quietLogger()),
		queue.WithDeadLetterHook(f.handlers.OnDeadLetter))
	require.NoError(t, err)
	require.NoError(t, runner.RegisterHandlers(f.handlers.QueueHandlers()...))
	f.runner = runner

	q, err := queue.New(f.jobs,
		queue.WithFallback(runner),
		queue.WithEnqueuerNowFunc(f.clock.Now),
		queue.WithEnqueuerLogger(quietLogger()))
	require.NoError(t, err)
	f.queue = q

	opts := append(cfg.NotifierOptions(time.UTC),
		notify.WithNotifierNowFunc(f.clock.Now),
		notify.WithNotifierLogger(quietLogger()))
	f.notifier = notify.NewNotifier(f.store, q, opts...)

	f.tasks = notify.NewTasks(f.store, q, f.notifier, cfg,
		notify.WithTasksNowFunc(f.clock.Now),
		notify.WithTasksLogger(quietLogger()))

	return f
}

func (f *fixture) addAppointment(phone, email string, startsIn time.Duration, status notify.AppointmentStatus) notify.Appointment {
	a := notify.Appointment{
		ID:               uuid.New(),
		PatientName:      "Ana Souza",
		PatientPhone:     phone,
		PatientEmail:     email,
		ProfessionalName: "Dr. Lima",
		TreatmentName:    "Cleaning",
		StartsAt:         f.clock.Now().Add(startsIn),
		Status:           status,
	}
	f.store.AddAppointment(a)
	return a
}

// addNotification stores a notification directly, bypassing the notifier
func (f *fixture) addNotification(t *testing.T, n notify.Notification) notify.Notification {
	t.Helper()
	if n.ID == uuid.Nil {
		n.ID = uuid.New()
	}
	if n.Type == "" {
		n.Type = notify.TypeConfirmation
	}
	if n.Channel == "" {
		n.Channel = notify.ChannelWhatsApp
		n.Recipient = "5511999998888"
	}
	if n.Status == "" {
		n.Status = notify.StatusPending
	}
	if n.CreatedAt.IsZero() {
		n.CreatedAt = f.clock.Now()
	}
	if n.UpdatedAt.IsZero() {
		n.UpdatedAt = n.CreatedAt
	}
	require.NoError(t, f.store.CreateNotification(context.Background(), &n))
	return n
}

// claimAll drains the ready pending jobs in claim order
func (f *fixture) claimAll(t *testing.T) []*queue.Job {
	t.Helper()
	var jobs []*queue.Job
	for {
		job, err := f.jobs.Claim(context.Background(), f.clock.Now(), time.Minute)
		if errors.Is(err, queue.ErrNoJobReady) {
			return jobs
		}
		require.NoError(t, err)
		jobs = append(jobs, job)
	}
}

// drain runs ready jobs until none is left
func (f *fixture) drain(t *testing.T) int {
	t.Helper()
	processed := 0
	for {
		ok, err := f.runner.ProcessNext(context.Background())
		require.NoError(t, err)
		if !ok {
			return processed
		}
		processed++
	}
}

func (f *fixture) notification(t *testing.T, id uuid.UUID) *notify.Notification {
	t.Helper()
	n, err := f.store.GetNotification(context.Background(), id)
	require.NoError(t, err)
	return n
}
