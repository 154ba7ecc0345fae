package booking

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/postopcare/clinic-scheduling/internal/observability/metrics"
	redisclient "github.com/postopcare/clinic-scheduling/internal/redis"
	"github.com/postopcare/clinic-scheduling/internal/schedule"
)

var (
	ErrDateInPast            = errors.New("date is in the past")
	ErrDateBlocked           = errors.New("date is blocked for booking")
	ErrOutsideHours          = errors.New("requested time is outside operating hours")
	ErrDayFull               = errors.New("day is fully booked")
	ErrDayContended          = errors.New("day is currently being booked, please retry")
	ErrInvalidTransition     = errors.New("invalid appointment status transition")
	ErrPatientClinicMismatch = errors.New("patient does not belong to this clinic")
	ErrInvalidKind           = errors.New("unknown appointment kind")
)

// CreateRequest carries a parsed booking request. DurationMinutes of 0
// means "one schedule slot"; the service backfills the resolved value so
// the stored row never depends on future schedule edits.
type CreateRequest struct {
	ClinicID        uuid.UUID
	PatientID       uuid.UUID
	Date            time.Time
	Start           schedule.MinuteOfDay
	DurationMinutes int
	Kind            schedule.AppointmentKind
	KindID          *uuid.UUID
}

type Service struct {
	repo     Repository
	patients PatientDirectory
	resolver *schedule.Resolver
	blocked  *schedule.BlockedDateRegistry
	locker   redisclient.Locker
	metrics  *metrics.BookingMetrics
	log      zerolog.Logger
	now      func() time.Time
}

func NewService(repo Repository, patients PatientDirectory, resolver *schedule.Resolver, blocked *schedule.BlockedDateRegistry, locker redisclient.Locker, m *metrics.BookingMetrics, log zerolog.Logger) *Service {
	return &Service{
		repo:     repo,
		patients: patients,
		resolver: resolver,
		blocked:  blocked,
		locker:   locker,
		metrics:  m,
		log:      log,
		now:      time.Now,
	}
}

// Create validates and books an appointment. The availability checks
// that race under concurrency, overlap and daily cap, run again inside
// the per-(clinic, day) lock, and the insert is additionally covered by
// the storage-level no-overlap constraint so a losing concurrent writer
// always surfaces as ErrSlotTaken.
func (s *Service) Create(ctx context.Context, req CreateRequest) (*Appointment, error) {
	start := time.Now()
	appt, err := s.create(ctx, req)
	s.metrics.ObserveBooking(outcomeLabel(err))
	s.metrics.ObserveBookingLatency(time.Since(start).Seconds())
	return appt, err
}

func (s *Service) create(ctx context.Context, req CreateRequest) (*Appointment, error) {
	if !req.Kind.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidKind, req.Kind)
	}

	ok, err := s.patients.BelongsToClinic(ctx, req.PatientID, req.ClinicID)
	if err != nil {
		return nil, fmt.Errorf("check patient: %w", err)
	}
	if !ok {
		return nil, ErrPatientClinicMismatch
	}

	day := schedule.Day(req.Date)
	today := schedule.Day(s.now())
	if day.Before(today) {
		return nil, ErrDateInPast
	}

	blocked, err := s.blocked.IsBlocked(ctx, req.ClinicID, day, &req.Kind)
	if err != nil {
		return nil, err
	}
	if blocked {
		return nil, ErrDateBlocked
	}

	ws, err := s.resolver.Resolve(ctx, req.ClinicID, day.Weekday(), req.KindID, &req.Kind)
	if err != nil {
		return nil, err
	}

	duration := req.DurationMinutes
	if duration <= 0 {
		duration = ws.SlotMinutes
	}
	end := req.Start + schedule.MinuteOfDay(duration)
	if req.Start < ws.OpenMinute || req.Start >= ws.CloseMinute || end > ws.CloseMinute {
		return nil, ErrOutsideHours
	}

	var created *Appointment

	err = s.locker.WithDayLock(ctx, req.ClinicID, day, func(lockCtx context.Context) error {
		existing, err := s.repo.FindForDay(lockCtx, req.ClinicID, day)
		if err != nil {
			return fmt.Errorf("load appointments: %w", err)
		}
		if overlapsExisting(req.Start, end, ws.SlotMinutes, existing) {
			return ErrSlotTaken
		}

		if ws.MaxAppointments != nil && len(existing) >= *ws.MaxAppointments {
			return ErrDayFull
		}

		appt := &Appointment{
			ID:              uuid.New(),
			PatientID:       req.PatientID,
			ClinicID:        req.ClinicID,
			Day:             day,
			Start:           req.Start,
			DurationMinutes: &duration,
			Kind:            req.Kind,
			Status:          StatusPending,
		}

		created, err = s.repo.Insert(lockCtx, appt)
		if err != nil {
			return fmt.Errorf("insert appointment: %w", err)
		}

		s.logEvent(lockCtx, created.ID, EventAppointmentRequested, map[string]any{
			"clinic_id":  req.ClinicID.String(),
			"patient_id": req.PatientID.String(),
			"day":        day.Format("2006-01-02"),
			"start":      req.Start.Clock(),
			"duration":   duration,
			"kind":       string(req.Kind),
		})
		return nil
	})

	if err != nil {
		if errors.Is(err, redisclient.ErrLockNotAcquired) {
			return nil, ErrDayContended
		}
		return nil, err
	}

	s.log.Info().
		Str("appointment_id", created.ID.String()).
		Str("clinic_id", req.ClinicID.String()).
		Str("day", day.Format("2006-01-02")).
		Str("start", req.Start.Clock()).
		Msg("appointment booked")

	return created, nil
}

// Approve moves a pending appointment to confirmed.
func (s *Service) Approve(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	return s.transition(ctx, id, StatusConfirmed, EventAppointmentConfirmed)
}

// Cancel rejects a pending appointment or cancels a confirmed one.
func (s *Service) Cancel(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	return s.transition(ctx, id, StatusCancelled, EventAppointmentCancelled)
}

// Complete marks a confirmed appointment as done.
func (s *Service) Complete(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	return s.transition(ctx, id, StatusCompleted, EventAppointmentCompleted)
}

func (s *Service) transition(ctx context.Context, id uuid.UUID, to Status, event string) (*Appointment, error) {
	appt, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !appt.Status.CanTransitionTo(to) {
		return nil, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, appt.Status, to)
	}

	updated, err := s.repo.UpdateStatus(ctx, id, appt.Status, to)
	if err != nil {
		if errors.Is(err, ErrAppointmentNotFound) {
			// Lost a race with a concurrent transition.
			return nil, fmt.Errorf("%w: appointment changed state concurrently", ErrInvalidTransition)
		}
		return nil, err
	}

	s.logEvent(ctx, updated.ID, event, map[string]any{"from": string(appt.Status)})
	return updated, nil
}

// Get retrieves one appointment.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	return s.repo.GetByID(ctx, id)
}

// ListByPatient pages through a patient's appointments.
func (s *Service) ListByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]Appointment, error) {
	if limit <= 0 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}
	return s.repo.ListByPatient(ctx, patientID, limit, offset)
}

// CancelStalePending cancels pending requests whose calendar date has
// passed without staff action. Called periodically by the sweeper.
func (s *Service) CancelStalePending(ctx context.Context) (int, error) {
	today := schedule.Day(s.now())

	stale, err := s.repo.FindStalePending(ctx, today)
	if err != nil {
		return 0, fmt.Errorf("find stale pending appointments: %w", err)
	}

	cancelled := 0
	for _, appt := range stale {
		if _, err := s.repo.UpdateStatus(ctx, appt.ID, StatusPending, StatusCancelled); err != nil {
			if errors.Is(err, ErrAppointmentNotFound) {
				continue
			}
			s.log.Error().Err(err).Str("appointment_id", appt.ID.String()).Msg("failed to cancel stale appointment")
			continue
		}
		s.logEvent(ctx, appt.ID, EventAppointmentCancelled, map[string]any{"reason": "stale_pending"})
		cancelled++
	}

	return cancelled, nil
}

func (s *Service) logEvent(ctx context.Context, appointmentID uuid.UUID, eventType string, payload map[string]any) {
	data, err := json.Marshal(payload)
	if err != nil {
		s.log.Error().Err(err).Str("event_type", eventType).Msg("failed to marshal event payload")
		data = nil
	}

	apptID := appointmentID
	ev := EventLog{
		EventType:     eventType,
		AppointmentID: &apptID,
		Payload:       data,
		CreatedAt:     time.Now(),
	}

	if err := s.repo.InsertEvent(ctx, ev); err != nil {
		s.log.Error().Err(err).
			Str("event_type", eventType).
			Str("appointment_id", appointmentID.String()).
			Msg("failed to insert event log")
	}
}

func outcomeLabel(err error) string {
	switch {
	case err == nil:
		return "booked"
	case errors.Is(err, ErrSlotTaken), errors.Is(err, ErrDayContended):
		return "conflict"
	case errors.Is(err, ErrDayFull):
		return "day_full"
	case errors.Is(err, ErrDateBlocked), errors.Is(err, schedule.ErrNotOperating):
		return "closed"
	default:
		return "rejected"
	}
}
