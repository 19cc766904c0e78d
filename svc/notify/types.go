package notify

import (
	"time"

	"github.com/google/uuid"
)

// AppointmentStatus is the lifecycle state of an appointment
type AppointmentStatus string

const (
	AppointmentScheduled AppointmentStatus = "SCHEDULED"
	AppointmentConfirmed AppointmentStatus = "CONFIRMED"
	AppointmentCompleted AppointmentStatus = "COMPLETED"
	AppointmentCancelled AppointmentStatus = "CANCELLED"
	AppointmentNoShow    AppointmentStatus = "NO_SHOW"
)

// Active reports whether the appointment is still expected to happen
func (s AppointmentStatus) Active() bool {
	return s == AppointmentScheduled || s == AppointmentConfirmed
}

// Appointment is the read model notifications are generated from
type Appointment struct {
	ID               uuid.UUID         `json:"id"`
	PatientName      string            `json:"patient_name"`
	PatientPhone     string            `json:"patient_phone,omitempty"`
	PatientEmail     string            `json:"patient_email,omitempty"`
	ProfessionalName string            `json:"professional_name"`
	TreatmentName    string            `json:"treatment_name"`
	StartsAt         time.Time         `json:"starts_at"`
	Status           AppointmentStatus `json:"status"`
}

// HasContact reports whether the patient can be reached on any channel
func (a Appointment) HasContact() bool {
	return a.PatientPhone != "" || a.PatientEmail != ""
}

// Type categorizes notifications
type Type string

const (
	TypeConfirmation Type = "CONFIRMATION"
	TypeReminder     Type = "REMINDER"
	TypeCancellation Type = "CANCELLATION"
	TypeCustom       Type = "CUSTOM"
)

// Valid reports whether t is one of the known notification types.
func (t Type) Valid() bool {
	switch t {
	case TypeConfirmation, TypeReminder, TypeCancellation, TypeCustom:
		return true
	}
	return false
}

// ChannelType is the delivery mechanism of a notification
type ChannelType string

const (
	ChannelWhatsApp ChannelType = "WHATSAPP"
	ChannelEmail    ChannelType = "EMAIL"
)

// Status is the delivery state of a notification
type Status string

const (
	StatusPending   Status = "PENDING"
	StatusSent      Status = "SENT"
	StatusDelivered Status = "DELIVERED"
	StatusRead      Status = "READ"
	StatusFailed    Status = "FAILED"
)

// Terminal reports whether no further delivery work is expected.
// FAILED is terminal for cleanup even though a retry sweep may reopen it.
func (s Status) Terminal() bool {
	return s == StatusDelivered || s == StatusRead || s == StatusFailed
}

// Notification is one message to one patient about one appointment
type Notification struct {
	ID            uuid.UUID   `json:"id"`
	AppointmentID uuid.UUID   `json:"appointment_id"`
	Type          Type        `json:"type"`
	Channel       ChannelType `json:"channel"`
	Status        Status      `json:"status"`
	Recipient     string      `json:"recipient"`
	Subject       string      `json:"subject,omitempty"`
	Message       string      `json:"message"`
	ExternalID    string      `json:"external_id,omitempty"`
	RetryCount    int         `json:"retry_count"`
	Error         string      `json:"error,omitempty"`
	SentAt        *time.Time  `json:"sent_at,omitempty"`
	DeliveredAt   *time.Time  `json:"delivered_at,omitempty"`
	CreatedAt     time.Time   `json:"created_at"`
	UpdatedAt     time.Time   `json:"updated_at"`
}
