package notify

import (
	"cmp"
	"context"
	"errors"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryStorage is an in-memory implementation of the Storage interface.
// Suitable for development and testing.
type MemoryStorage struct {
	appointments  map[uuid.UUID]Appointment
	notifications map[uuid.UUID]Notification
	mu            sync.RWMutex

	// pingErr is returned by Ping when set
	pingErr error
}

// NewMemoryStorage creates a new in-memory storage.
func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{
		appointments:  make(map[uuid.UUID]Appointment),
		notifications: make(map[uuid.UUID]Notification),
	}
}

// AddAppointment inserts or replaces an appointment
func (s *MemoryStorage) AddAppointment(a Appointment) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	s.appointments[a.ID] = a
}

// SetPingError makes Ping fail with err; nil restores it
func (s *MemoryStorage) SetPingError(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pingErr = err
}

// Notifications returns a copy of every stored notification, oldest first
func (s *MemoryStorage) Notifications() []Notification {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Notification, 0, len(s.notifications))
	for _, n := range s.notifications {
		out = append(out, n)
	}
	sortByCreated(out)
	return out
}

func (s *MemoryStorage) Ping(ctx context.Context) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.pingErr
}

func (s *MemoryStorage) GetAppointment(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	a, ok := s.appointments[id]
	if !ok {
		return nil, ErrAppointmentNotFound
	}
	return &a, nil
}

func (s *MemoryStorage) CreateNotification(ctx context.Context, n *Notification) error {
	if n == nil {
		return errors.New("notification is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if n.ID == uuid.Nil {
		n.ID = uuid.New()
	}
	if _, exists := s.notifications[n.ID]; exists {
		return errors.New("notification already exists")
	}
	if n.Status == "" {
		n.Status = StatusPending
	}
	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now()
	}
	if n.UpdatedAt.IsZero() {
		n.UpdatedAt = n.CreatedAt
	}

	s.notifications[n.ID] = *n
	return nil
}

func (s *MemoryStorage) GetNotification(ctx context.Context, id uuid.UUID) (*Notification, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n, ok := s.notifications[id]
	if !ok {
		return nil, ErrNotificationNotFound
	}
	// Return a copy to prevent external mutation of stored data
	return &n, nil
}

func (s *MemoryStorage) UpdateNotificationStatus(ctx context.Context, id uuid.UUID, u StatusUpdate) (*Notification, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	n, ok := s.notifications[id]
	if !ok {
		return nil, ErrNotificationNotFound
	}
	if _, err := n.Apply(u); err != nil {
		return nil, err
	}
	s.notifications[id] = n
	return &n, nil
}

func (s *MemoryStorage) AppointmentsNeedingReminder(ctx context.Context, from, to time.Time, limit int) ([]Appointment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	reminded := make(map[uuid.UUID]bool)
	for _, n := range s.notifications {
		if n.Type == TypeReminder {
			reminded[n.AppointmentID] = true
		}
	}

	var out []Appointment
	for _, a := range s.appointments {
		if !a.Status.Active() || reminded[a.ID] {
			continue
		}
		if a.StartsAt.Before(from) || !a.StartsAt.Before(to) {
			continue
		}
		out = append(out, a)
	}

	slices.SortFunc(out, func(a, b Appointment) int {
		return a.StartsAt.Compare(b.StartsAt)
	})
	return truncate(out, limit), nil
}

func (s *MemoryStorage) DeleteTerminalNotificationsBefore(ctx context.Context, before time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for id, n := range s.notifications {
		if n.Status.Terminal() && n.UpdatedAt.Before(before) {
			delete(s.notifications, id)
			removed++
		}
	}
	return removed, nil
}

func (s *MemoryStorage) StaleSentNotifications(ctx context.Context, sentBefore time.Time, limit int) ([]Notification, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []Notification
	for _, n := range s.notifications {
		if n.Status == StatusSent && n.DeliveredAt == nil && n.SentAt != nil && n.SentAt.Before(sentBefore) {
			out = append(out, n)
		}
	}

	slices.SortFunc(out, func(a, b Notification) int {
		return a.SentAt.Compare(*b.SentAt)
	})
	return truncate(out, limit), nil
}

func (s *MemoryStorage) RetryableFailedNotifications(ctx context.Context, maxRetries int, updatedBefore time.Time, limit int) ([]Notification, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []Notification
	for _, n := range s.notifications {
		if n.Status == StatusFailed && n.RetryCount < maxRetries && n.UpdatedAt.Before(updatedBefore) {
			out = append(out, n)
		}
	}

	slices.SortFunc(out, func(a, b Notification) int {
		return a.UpdatedAt.Compare(b.UpdatedAt)
	})
	return truncate(out, limit), nil
}

func sortByCreated(ns []Notification) {
	slices.SortFunc(ns, func(a, b Notification) int {
		if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
			return c
		}
		return cmp.Compare(a.ID.String(), b.ID.String())
	})
}

func truncate[T any](items []T, limit int) []T {
	if limit > 0 && len(items) > limit {
		return items[:limit]
	}
	return items
}
