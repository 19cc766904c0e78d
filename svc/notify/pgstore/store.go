package pgstore

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dmitrymomot/dentflow/pkg/pg"
	"github.com/dmitrymomot/dentflow/svc/notify"
)

// Migrations holds the goose migrations for the notify tables
//
//go:embed migrations/*.sql
var Migrations embed.FS

// MigrationsDir is the directory inside Migrations
const MigrationsDir = "migrations"

// Store implements notify.Storage on PostgreSQL
type Store struct {
	db *pgxpool.Pool
}

var _ notify.Storage = (*Store)(nil)

// New creates a Store on top of an open pool
func New(db *pgxpool.Pool) *Store {
	return &Store{db: db}
}

const notificationColumns = `id, appointment_id, type, channel, status, recipient, subject, message,
external_id, retry_count, error, sent_at, delivered_at, created_at, updated_at`

func (s *Store) Ping(ctx context.Context) error {
	return pg.Healthcheck(s.db)(ctx)
}

// SaveAppointment inserts or updates an appointment
func (s *Store) SaveAppointment(ctx context.Context, a notify.Appointment) error {
	_, err := s.db.Exec(ctx, `insert into appointments (
id, patient_name, patient_phone, patient_email, professional_name, treatment_name, starts_at, status
) values ($1, $2, $3, $4, $5, $6, $7, $8)
on conflict (id) do update set
patient_name = excluded.patient_name,
patient_phone = excluded.patient_phone,
patient_email = excluded.patient_email,
professional_name = excluded.professional_name,
treatment_name = excluded.treatment_name,
starts_at = excluded.starts_at,
status = excluded.status,
updated_at = now()`,
		a.ID, a.PatientName, a.PatientPhone, a.PatientEmail, a.ProfessionalName, a.TreatmentName, a.StartsAt, a.Status,
	)
	if err != nil {
		return fmt.Errorf("failed to save appointment: %w", err)
	}
	return nil
}

func (s *Store) GetAppointment(ctx context.Context, id uuid.UUID) (*notify.Appointment, error) {
	row := s.db.QueryRow(ctx, `select id, patient_name, patient_phone, patient_email, professional_name,
treatment_name, starts_at, status from appointments where id = $1`, id)

	a, err := scanAppointment(row)
	if err != nil {
		if pg.IsNotFoundError(err) {
			return nil, notify.ErrAppointmentNotFound
		}
		return nil, fmt.Errorf("failed to get appointment: %w", err)
	}
	return &a, nil
}

func (s *Store) CreateNotification(ctx context.Context, n *notify.Notification) error {
	if n.ID == uuid.Nil {
		n.ID = uuid.New()
	}
	if n.Status == "" {
		n.Status = notify.StatusPending
	}
	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now()
	}
	if n.UpdatedAt.IsZero() {
		n.UpdatedAt = n.CreatedAt
	}

	_, err := s.db.Exec(ctx, `insert into notifications (`+notificationColumns+`)
values ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`,
		n.ID, n.AppointmentID, n.Type, n.Channel, n.Status, n.Recipient, n.Subject, n.Message,
		n.ExternalID, n.RetryCount, n.Error, n.SentAt, n.DeliveredAt, n.CreatedAt, n.UpdatedAt,
	)
	if err != nil {
		if pg.IsForeignKeyViolationError(err) {
			return notify.ErrAppointmentNotFound
		}
		return fmt.Errorf("failed to create notification: %w", err)
	}
	return nil
}

func (s *Store) GetNotification(ctx context.Context, id uuid.UUID) (*notify.Notification, error) {
	row := s.db.QueryRow(ctx, `select `+notificationColumns+` from notifications where id = $1`, id)

	n, err := scanNotification(row)
	if err != nil {
		if pg.IsNotFoundError(err) {
			return nil, notify.ErrNotificationNotFound
		}
		return nil, fmt.Errorf("failed to get notification: %w", err)
	}
	return &n, nil
}

// UpdateNotificationStatus locks the row, validates the transition and writes it back in one transaction
func (s *Store) UpdateNotificationStatus(ctx context.Context, id uuid.UUID, u notify.StatusUpdate) (*notify.Notification, error) {
	var out notify.Notification

	err := pgx.BeginFunc(ctx, s.db, func(tx pgx.Tx) error {
		n, err := scanNotification(tx.QueryRow(ctx,
			`select `+notificationColumns+` from notifications where id = $1 for update`, id))
		if err != nil {
			if pg.IsNotFoundError(err) {
				return notify.ErrNotificationNotFound
			}
			return err
		}

		changed, err := n.Apply(u)
		if err != nil {
			return err
		}
		out = n
		if !changed {
			return nil
		}

		_, err = tx.Exec(ctx, `update notifications set
status = $2, external_id = $3, retry_count = $4, error = $5, sent_at = $6, delivered_at = $7, updated_at = $8
where id = $1`,
			n.ID, n.Status, n.ExternalID, n.RetryCount, n.Error, n.SentAt, n.DeliveredAt, n.UpdatedAt,
		)
		return err
	})
	if err != nil {
		if errors.Is(err, notify.ErrNotificationNotFound) || errors.Is(err, notify.ErrInvalidTransition) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to update notification status: %w", err)
	}

	return &out, nil
}

func (s *Store) AppointmentsNeedingReminder(ctx context.Context, from, to time.Time, limit int) ([]notify.Appointment, error) {
	rows, err := s.db.Query(ctx, `select a.id, a.patient_name, a.patient_phone, a.patient_email, a.professional_name,
a.treatment_name, a.starts_at, a.status
from appointments a
where a.status in ('SCHEDULED', 'CONFIRMED')
and a.starts_at >= $1 and a.starts_at < $2
and not exists (
	select 1 from notifications n where n.appointment_id = a.id and n.type = 'REMINDER'
)
order by a.starts_at
limit $3`, from, to, sqlLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("failed to query appointments: %w", err)
	}

	appts, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (notify.Appointment, error) {
		return scanAppointment(row)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan appointments: %w", err)
	}
	return appts, nil
}

func (s *Store) DeleteTerminalNotificationsBefore(ctx context.Context, before time.Time) (int, error) {
	tag, err := s.db.Exec(ctx, `delete from notifications
where status in ('DELIVERED', 'READ', 'FAILED') and updated_at < $1`, before)
	if err != nil {
		return 0, fmt.Errorf("failed to delete notifications: %w", err)
	}
	return int(tag.RowsAffected()), nil
}

func (s *Store) StaleSentNotifications(ctx context.Context, sentBefore time.Time, limit int) ([]notify.Notification, error) {
	return s.queryNotifications(ctx, `select `+notificationColumns+` from notifications
where status = 'SENT' and delivered_at is null and sent_at < $1
order by sent_at
limit $2`, sentBefore, sqlLimit(limit))
}

func (s *Store) RetryableFailedNotifications(ctx context.Context, maxRetries int, updatedBefore time.Time, limit int) ([]notify.Notification, error) {
	return s.queryNotifications(ctx, `select `+notificationColumns+` from notifications
where status = 'FAILED' and retry_count < $1 and updated_at < $2
order by updated_at
limit $3`, maxRetries, updatedBefore, sqlLimit(limit))
}

func (s *Store) queryNotifications(ctx context.Context, query string, args ...any) ([]notify.Notification, error) {
	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query notifications: %w", err)
	}

	ns, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (notify.Notification, error) {
		return scanNotification(row)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan notifications: %w", err)
	}
	return ns, nil
}

func scanAppointment(row pgx.Row) (notify.Appointment, error) {
	var a notify.Appointment
	err := row.Scan(&a.ID, &a.PatientName, &a.PatientPhone, &a.PatientEmail, &a.ProfessionalName,
		&a.TreatmentName, &a.StartsAt, &a.Status)
	return a, err
}

func scanNotification(row pgx.Row) (notify.Notification, error) {
	var n notify.Notification
	err := row.Scan(&n.ID, &n.AppointmentID, &n.Type, &n.Channel, &n.Status, &n.Recipient, &n.Subject,
		&n.Message, &n.ExternalID, &n.RetryCount, &n.Error, &n.SentAt, &n.DeliveredAt, &n.CreatedAt, &n.UpdatedAt)
	return n, err
}

// sqlLimit maps "no limit" to NULL, which postgres treats as LIMIT ALL
func sqlLimit(limit int) *int {
	if limit <= 0 {
		return nil
	}
	return &limit
}
