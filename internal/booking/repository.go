package booking

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	ErrAppointmentNotFound = errors.New("appointment not found")
	ErrPatientNotFound     = errors.New("patient not found")

	// ErrSlotTaken is also the translation of the storage-level
	// no-overlap constraint firing on a losing concurrent insert.
	ErrSlotTaken = errors.New("slot overlaps an existing appointment")
)

// Repository contains all DB interactions needed by the booking engine.
// Day parameters are UTC calendar dates.
type Repository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*Appointment, error)

	// FindForDay returns non-cancelled, non-deleted appointments for
	// the clinic and date, ordered by start minute.
	FindForDay(ctx context.Context, clinicID uuid.UUID, day time.Time) ([]Appointment, error)
	CountForDay(ctx context.Context, clinicID uuid.UUID, day time.Time) (int, error)

	// Insert persists a new appointment. The no-overlap exclusion
	// constraint maps to ErrSlotTaken.
	Insert(ctx context.Context, a *Appointment) (*Appointment, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, from, to Status) (*Appointment, error)

	ListByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]Appointment, error)

	// FindStalePending feeds the sweeper: pending requests whose
	// calendar date is before the given day.
	FindStalePending(ctx context.Context, before time.Time) ([]Appointment, error)

	InsertEvent(ctx context.Context, ev EventLog) error
}

// PatientDirectory is the slice of the patient subsystem the engine
// depends on: bookings must target a patient of the same clinic.
type PatientDirectory interface {
	// BelongsToClinic returns ErrPatientNotFound for unknown ids.
	BelongsToClinic(ctx context.Context, patientID, clinicID uuid.UUID) (bool, error)
}
