package notify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrymomot/dentflow/pkg/logger"
	"github.com/dmitrymomot/dentflow/pkg/queue"
)

// Enqueuer submits jobs to the delay queue
type Enqueuer interface {
	Enqueue(ctx context.Context, payload queue.Payload, opts ...queue.EnqueueOption) (uuid.UUID, error)
}

// Notifier is the producer API used by appointment workflows. It records
// each notification before enqueuing its delivery, so a later failure is
// visible to the retry sweep.
type Notifier struct {
	storage          Storage
	queue            Enqueuer
	templates        *Templates
	clinicName       string
	reminderPriority int
	defaultPriority  int
	maxAttempts      int
	now              func() time.Time
	logger           *slog.Logger
}

// NotifierOption configures a Notifier
type NotifierOption func(*Notifier)

// WithTemplates replaces the default template set
func WithTemplates(t *Templates) NotifierOption {
	return func(n *Notifier) {
		if t != nil {
			n.templates = t
		}
	}
}

// WithClinicName sets the {{clinic_name}} value
func WithClinicName(name string) NotifierOption {
	return func(n *Notifier) {
		n.clinicName = name
	}
}

// WithPriorities sets the queue priority for reminders and for everything else
func WithPriorities(reminder, normal int) NotifierOption {
	return func(n *Notifier) {
		n.reminderPriority = reminder
		n.defaultPriority = normal
	}
}

// WithMaxAttempts sets the delivery retry budget per job
func WithMaxAttempts(attempts int) NotifierOption {
	return func(n *Notifier) {
		if attempts > 0 {
			n.maxAttempts = attempts
		}
	}
}

// WithNotifierNowFunc sets the clock
func WithNotifierNowFunc(now func() time.Time) NotifierOption {
	return func(n *Notifier) {
		if now != nil {
			n.now = now
		}
	}
}

// WithNotifierLogger sets the logger
func WithNotifierLogger(l *slog.Logger) NotifierOption {
	return func(n *Notifier) {
		if l != nil {
			n.logger = l
		}
	}
}

// NewNotifier creates a Notifier
func NewNotifier(storage Storage, enqueuer Enqueuer, opts ...NotifierOption) *Notifier {
	n := &Notifier{
		storage:          storage,
		queue:            enqueuer,
		templates:        NewTemplates(time.UTC),
		reminderPriority: 1,
		defaultPriority:  5,
		maxAttempts:      queue.DefaultMaxAttempts,
		now:              time.Now,
		logger:           slog.Default(),
	}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// NotifierOptions maps the config onto Notifier options
func (c Config) NotifierOptions(loc *time.Location) []NotifierOption {
	return []NotifierOption{
		WithTemplates(NewTemplates(loc)),
		WithClinicName(c.ClinicName),
		WithPriorities(c.ReminderPriority, c.DefaultPriority),
		WithMaxAttempts(c.MaxAttempts),
	}
}

func (n *Notifier) NotifyConfirmation(ctx context.Context, appointmentID uuid.UUID) (*Notification, error) {
	return n.notifyByID(ctx, appointmentID, TypeConfirmation, "")
}

func (n *Notifier) NotifyReminder(ctx context.Context, appointmentID uuid.UUID) (*Notification, error) {
	return n.notifyByID(ctx, appointmentID, TypeReminder, "")
}

func (n *Notifier) NotifyCancellation(ctx context.Context, appointmentID uuid.UUID) (*Notification, error) {
	return n.notifyByID(ctx, appointmentID, TypeCancellation, "")
}

// NotifyCustom sends free text through the CUSTOM template
func (n *Notifier) NotifyCustom(ctx context.Context, appointmentID uuid.UUID, message string) (*Notification, error) {
	return n.notifyByID(ctx, appointmentID, TypeCustom, message)
}

func (n *Notifier) notifyByID(ctx context.Context, appointmentID uuid.UUID, typ Type, message string) (*Notification, error) {
	appt, err := n.storage.GetAppointment(ctx, appointmentID)
	if err != nil {
		return nil, err
	}
	return n.notify(ctx, appt, typ, message)
}

// notify records a notification for appt and enqueues its delivery
func (n *Notifier) notify(ctx context.Context, appt *Appointment, typ Type, message string) (*Notification, error) {
	ctx = logger.WithAttrs(ctx, logger.AppointmentID(appt.ID.String()))

	channel, recipient, err := pickChannel(appt)
	if err != nil {
		return nil, err
	}

	subject, body := n.templates.Render(typ, Vars{
		PatientName:      appt.PatientName,
		ProfessionalName: appt.ProfessionalName,
		TreatmentName:    appt.TreatmentName,
		StartsAt:         appt.StartsAt,
		ClinicName:       n.clinicName,
		Message:          message,
	})

	now := n.now()
	notif := &Notification{
		ID:            uuid.New(),
		AppointmentID: appt.ID,
		Type:          typ,
		Channel:       channel,
		Status:        StatusPending,
		Recipient:     recipient,
		Subject:       subject,
		Message:       body,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := n.storage.CreateNotification(ctx, notif); err != nil {
		return nil, fmt.Errorf("failed to store notification: %w", err)
	}

	return notif, n.dispatch(ctx, notif)
}

// Resend re-enqueues a FAILED notification, counting it as a retry
func (n *Notifier) Resend(ctx context.Context, id uuid.UUID) (*Notification, error) {
	notif, err := n.storage.UpdateNotificationStatus(ctx, id, StatusUpdate{
		Status:         StatusPending,
		IncrementRetry: true,
		At:             n.now(),
	})
	if err != nil {
		return nil, err
	}
	return notif, n.dispatch(ctx, notif)
}

// dispatch enqueues delivery of a PENDING notification. When the job can be
// neither stored nor executed, the notification is marked FAILED for the retry sweep.
func (n *Notifier) dispatch(ctx context.Context, notif *Notification) error {
	ctx = logger.WithAttrs(ctx, logger.NotificationID(notif.ID.String()))

	msg, err := messageFor(notif)
	if err != nil {
		n.markFailed(ctx, notif, err)
		return err
	}

	priority := n.defaultPriority
	if notif.Type == TypeReminder {
		priority = n.reminderPriority
	}

	jobID, err := n.queue.Enqueue(ctx, msg,
		queue.WithPriority(priority),
		queue.WithMaxAttempts(n.maxAttempts))
	if err != nil {
		if errors.Is(err, queue.ErrDirectExecution) || errors.Is(err, queue.ErrJobPush) {
			n.markFailed(ctx, notif, err)
		}
		return fmt.Errorf("failed to enqueue notification: %w", err)
	}

	n.logger.DebugContext(ctx, "notification enqueued",
		logger.JobID(jobID),
		slog.String("type", string(notif.Type)),
		slog.String("channel", string(notif.Channel)))
	return nil
}

func (n *Notifier) markFailed(ctx context.Context, notif *Notification, cause error) {
	updated, err := n.storage.UpdateNotificationStatus(ctx, notif.ID, StatusUpdate{
		Status: StatusFailed,
		Error:  cause.Error(),
		At:     n.now(),
	})
	if err != nil {
		// Direct execution may have already moved it past PENDING
		n.logger.WarnContext(ctx, "failed to mark notification failed", logger.Error(err))
		return
	}
	*notif = *updated
}

func pickChannel(appt *Appointment) (ChannelType, string, error) {
	switch {
	case appt.PatientPhone != "":
		return ChannelWhatsApp, appt.PatientPhone, nil
	case appt.PatientEmail != "":
		return ChannelEmail, appt.PatientEmail, nil
	default:
		return "", "", ErrNoContact
	}
}
