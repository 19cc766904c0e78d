package notify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/dmitrymomot/dentflow/pkg/logger"
	"github.com/dmitrymomot/dentflow/pkg/queue"
	"github.com/dmitrymomot/dentflow/pkg/scheduler"
)

// Recurring task names
const (
	TaskReminderSweep        = "reminder-sweep"
	TaskCleanupSweep         = "cleanup-sweep"
	TaskHealthProbe          = "health-probe"
	TaskStatusReconciliation = "status-reconciliation"
	TaskFailedRetrySweep     = "failed-retry-sweep"
)

// Queue is the part of the delay queue the recurring tasks use
type Queue interface {
	Enqueuer
	Stats(ctx context.Context) (queue.Stats, error)
	CleanupDeadOlderThan(ctx context.Context, days int) (int, error)
}

// Registry accepts recurring task registrations
type Registry interface {
	Register(name string, schedule scheduler.Schedule, fn scheduler.TaskFunc) error
}

// HealthReport is the outcome of a liveness check
type HealthReport struct {
	Healthy  bool        `json:"healthy"`
	Storage  string      `json:"storage"`
	Queue    queue.Stats `json:"queue"`
	Warnings []string    `json:"warnings,omitempty"`
}

// Tasks holds the bodies of the recurring scan tasks
type Tasks struct {
	storage  Storage
	queue    Queue
	notifier *Notifier
	cfg      Config
	now      func() time.Time
	logger   *slog.Logger
}

// TasksOption configures Tasks
type TasksOption func(*Tasks)

// WithTasksNowFunc sets the clock
func WithTasksNowFunc(now func() time.Time) TasksOption {
	return func(t *Tasks) {
		if now != nil {
			t.now = now
		}
	}
}

// WithTasksLogger sets the logger
func WithTasksLogger(l *slog.Logger) TasksOption {
	return func(t *Tasks) {
		if l != nil {
			t.logger = l
		}
	}
}

// NewTasks creates the recurring tasks
func NewTasks(storage Storage, q Queue, notifier *Notifier, cfg Config, opts ...TasksOption) *Tasks {
	t := &Tasks{
		storage:  storage,
		queue:    q,
		notifier: notifier,
		cfg:      cfg,
		now:      time.Now,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Initialize registers all recurring tasks. Tasks already registered are left
// alone, so calling it again is a no-op.
func (t *Tasks) Initialize(reg Registry) error {
	defs := []struct {
		name string
		expr string
		fn   scheduler.TaskFunc
	}{
		{TaskReminderSweep, t.cfg.ReminderCron, t.ReminderSweep},
		{TaskCleanupSweep, t.cfg.CleanupCron, t.CleanupSweep},
		{TaskHealthProbe, t.cfg.HealthCron, t.HealthProbe},
		{TaskStatusReconciliation, t.cfg.ReconcileCron, t.ReconcileStatuses},
		{TaskFailedRetrySweep, t.cfg.RetryCron, t.RetryFailed},
	}

	var errs []error
	for _, d := range defs {
		schedule, err := scheduler.Cron(d.expr)
		if err != nil {
			errs = append(errs, fmt.Errorf("task %s: %w", d.name, err))
			continue
		}
		if err := reg.Register(d.name, schedule, d.fn); err != nil {
			if errors.Is(err, scheduler.ErrTaskAlreadyRegistered) {
				continue
			}
			errs = append(errs, fmt.Errorf("task %s: %w", d.name, err))
		}
	}
	return errors.Join(errs...)
}

// ReminderSweep enqueues one reminder per upcoming appointment that has none yet
func (t *Tasks) ReminderSweep(ctx context.Context) scheduler.Result {
	now := t.now()
	appts, err := t.storage.AppointmentsNeedingReminder(ctx, now, now.Add(t.cfg.ReminderWindow), t.cfg.ReminderBatchSize)
	if err != nil {
		return scheduler.Result{Err: fmt.Errorf("failed to load appointments: %w", err)}
	}

	var sent, skipped int
	var errs []error
	for i := range appts {
		appt := &appts[i]
		if !appt.HasContact() {
			skipped++
			continue
		}
		if _, err := t.notifier.notify(ctx, appt, TypeReminder, ""); err != nil {
			errs = append(errs, fmt.Errorf("appointment %s: %w", appt.ID, err))
			t.logger.WarnContext(ctx, "failed to enqueue reminder",
				logger.AppointmentID(appt.ID.String()),
				logger.Error(err))
			continue
		}
		sent++
	}

	return scheduler.Result{
		Affected: sent,
		Message:  fmt.Sprintf("%d skipped without contact, %d failed", skipped, len(errs)),
		Err:      errors.Join(errs...),
	}
}

// CleanupSweep removes old terminal notifications and old dead jobs
func (t *Tasks) CleanupSweep(ctx context.Context) scheduler.Result {
	var errs []error

	notifications, err := t.storage.DeleteTerminalNotificationsBefore(ctx, t.now().Add(-t.cfg.NotificationRetention))
	if err != nil {
		errs = append(errs, fmt.Errorf("failed to delete notifications: %w", err))
	}

	jobs, err := t.queue.CleanupDeadOlderThan(ctx, t.cfg.DeadJobRetentionDays)
	if err != nil {
		errs = append(errs, fmt.Errorf("failed to purge dead jobs: %w", err))
	}

	return scheduler.Result{
		Affected: notifications + jobs,
		Message:  fmt.Sprintf("%d notifications, %d dead jobs", notifications, jobs),
		Err:      errors.Join(errs...),
	}
}

// Health checks storage liveness and queue backlog
func (t *Tasks) Health(ctx context.Context) HealthReport {
	report := HealthReport{Healthy: true, Storage: "ok"}

	if err := t.storage.Ping(ctx); err != nil {
		report.Healthy = false
		report.Storage = err.Error()
	}

	stats, err := t.queue.Stats(ctx)
	if err != nil {
		report.Healthy = false
		report.Warnings = append(report.Warnings, "queue stats unavailable: "+err.Error())
		return report
	}
	report.Queue = stats

	if stats.Pending > t.cfg.PendingWarnThreshold {
		report.Warnings = append(report.Warnings,
			fmt.Sprintf("pending jobs %d exceed threshold %d", stats.Pending, t.cfg.PendingWarnThreshold))
	}
	if stats.Dead > t.cfg.DeadWarnThreshold {
		report.Warnings = append(report.Warnings,
			fmt.Sprintf("dead jobs %d exceed threshold %d", stats.Dead, t.cfg.DeadWarnThreshold))
	}

	return report
}

// HealthProbe logs the health report. It never reports an error.
func (t *Tasks) HealthProbe(ctx context.Context) scheduler.Result {
	report := t.Health(ctx)

	if report.Storage != "ok" {
		t.logger.ErrorContext(ctx, "storage health check failed", slog.String("storage", report.Storage))
	}
	for _, w := range report.Warnings {
		t.logger.WarnContext(ctx, "queue health warning", slog.String("warning", w))
	}

	return scheduler.Result{
		Message: fmt.Sprintf("healthy=%t pending=%d in_flight=%d dead=%d",
			report.Healthy, report.Queue.Pending, report.Queue.InFlight, report.Queue.Dead),
	}
}

// ReconcileStatuses marks notifications sent long ago without a delivery
// confirmation as DELIVERED. Re-running it only touches what is still SENT.
func (t *Tasks) ReconcileStatuses(ctx context.Context) scheduler.Result {
	stale, err := t.storage.StaleSentNotifications(ctx, t.now().Add(-t.cfg.ReconcileAfter), t.cfg.ReconcileBatchSize)
	if err != nil {
		return scheduler.Result{Err: fmt.Errorf("failed to load sent notifications: %w", err)}
	}

	var errs []error
	delivered := 0
	for _, n := range stale {
		if err := assumeDelivered(ctx, t.storage, n.ID, t.now()); err != nil {
			errs = append(errs, fmt.Errorf("notification %s: %w", n.ID, err))
			continue
		}
		delivered++
	}

	return scheduler.Result{Affected: delivered, Err: errors.Join(errs...)}
}

// RetryFailed reopens and re-enqueues FAILED notifications that still have retries left
func (t *Tasks) RetryFailed(ctx context.Context) scheduler.Result {
	failed, err := t.storage.RetryableFailedNotifications(ctx, t.cfg.MaxRetries, t.now().Add(-t.cfg.RetryAfter), t.cfg.RetryBatchSize)
	if err != nil {
		return scheduler.Result{Err: fmt.Errorf("failed to load failed notifications: %w", err)}
	}

	var errs []error
	retried := 0
	for _, n := range failed {
		if _, err := t.notifier.Resend(ctx, n.ID); err != nil {
			errs = append(errs, fmt.Errorf("notification %s: %w", n.ID, err))
			continue
		}
		retried++
	}

	return scheduler.Result{Affected: retried, Err: errors.Join(errs...)}
}
