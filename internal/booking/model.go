package booking

import (
	"time"

	"github.com/google/uuid"

	"github.com/postopcare/clinic-scheduling/internal/schedule"
)

type Status string

const (
	StatusPending   Status = "PENDING"
	StatusConfirmed Status = "CONFIRMED"
	StatusCancelled Status = "CANCELLED"
	StatusCompleted Status = "COMPLETED"
)

// CanTransitionTo encodes the appointment lifecycle: pending requests
// are approved or cancelled, confirmed ones are completed or cancelled.
// Cancelled and completed are terminal.
func (s Status) CanTransitionTo(to Status) bool {
	switch s {
	case StatusPending:
		return to == StatusConfirmed || to == StatusCancelled
	case StatusConfirmed:
		return to == StatusCompleted || to == StatusCancelled
	default:
		return false
	}
}

// Appointment is one booking on a clinic's calendar. Start is minutes
// since midnight on Day (a UTC calendar date). DurationMinutes is nil
// only on rows imported from the legacy system; new rows always carry
// the duration they were booked with.
type Appointment struct {
	ID              uuid.UUID
	PatientID       uuid.UUID
	ClinicID        uuid.UUID
	Day             time.Time
	Start           schedule.MinuteOfDay
	DurationMinutes *int
	Kind            schedule.AppointmentKind
	Status          Status
	CreatedAt       time.Time
	UpdatedAt       time.Time
	DeletedAt       *time.Time
}

// Interval returns the half-open [start, end) span the appointment
// occupies. Legacy rows without a stored duration fall back to
// fallbackMinutes, the resolved schedule's slot length.
func (a *Appointment) Interval(fallbackMinutes int) (start, end schedule.MinuteOfDay) {
	minutes := fallbackMinutes
	if a.DurationMinutes != nil {
		minutes = *a.DurationMinutes
	}
	return a.Start, a.Start + schedule.MinuteOfDay(minutes)
}

// Blocking reports whether the appointment occupies calendar time.
func (a *Appointment) Blocking() bool {
	return a.Status != StatusCancelled && a.DeletedAt == nil
}

const (
	EventAppointmentRequested = "APPOINTMENT_REQUESTED"
	EventAppointmentConfirmed = "APPOINTMENT_CONFIRMED"
	EventAppointmentCancelled = "APPOINTMENT_CANCELLED"
	EventAppointmentCompleted = "APPOINTMENT_COMPLETED"
)

type EventLog struct {
	ID            int64
	EventType     string
	AppointmentID *uuid.UUID
	Payload       []byte
	CreatedAt     time.Time
}
