package schedule

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// ErrInvalidSchedule wraps validation failures on admin-authored rows.
var ErrInvalidSchedule = errors.New("invalid schedule")

// Service covers the clinic-admin surface: authoring weekly schedules
// and blocked dates. Booking-time reads go through Resolver and
// BlockedDateRegistry instead.
type Service struct {
	repo Repository
	log  zerolog.Logger
}

func NewService(repo Repository, log zerolog.Logger) *Service {
	return &Service{repo: repo, log: log}
}

func validateSchedule(ws *WeeklySchedule) error {
	if ws.Weekday < time.Sunday || ws.Weekday > time.Saturday {
		return fmt.Errorf("%w: weekday must be 0-6", ErrInvalidSchedule)
	}
	if !ws.OpenMinute.Valid() || !ws.CloseMinute.Valid() {
		return fmt.Errorf("%w: open/close outside 00:00-23:59", ErrInvalidSchedule)
	}
	if ws.CloseMinute <= ws.OpenMinute {
		return fmt.Errorf("%w: close time must be after open time", ErrInvalidSchedule)
	}
	if ws.SlotMinutes <= 0 {
		return fmt.Errorf("%w: slot duration must be positive", ErrInvalidSchedule)
	}
	if (ws.BreakStart == nil) != (ws.BreakEnd == nil) {
		return fmt.Errorf("%w: break start and end must be set together", ErrInvalidSchedule)
	}
	if ws.BreakStart != nil {
		if *ws.BreakEnd <= *ws.BreakStart {
			return fmt.Errorf("%w: break end must be after break start", ErrInvalidSchedule)
		}
		if *ws.BreakStart < ws.OpenMinute || *ws.BreakEnd > ws.CloseMinute {
			return fmt.Errorf("%w: break must lie within operating hours", ErrInvalidSchedule)
		}
	}
	if ws.MaxAppointments != nil && *ws.MaxAppointments <= 0 {
		return fmt.Errorf("%w: daily cap must be positive", ErrInvalidSchedule)
	}
	if legacy, ok := ws.Specialization.LegacyKind(); ok && !legacy.Valid() {
		return fmt.Errorf("%w: unknown appointment kind %q", ErrInvalidSchedule, legacy)
	}
	return nil
}

func (s *Service) CreateSchedule(ctx context.Context, ws *WeeklySchedule) (*WeeklySchedule, error) {
	if err := validateSchedule(ws); err != nil {
		return nil, err
	}
	if ws.ID == uuid.Nil {
		ws.ID = uuid.New()
	}
	ws.Active = true

	created, err := s.repo.InsertSchedule(ctx, ws)
	if err != nil {
		return nil, fmt.Errorf("insert schedule: %w", err)
	}

	s.log.Info().
		Str("clinic_id", created.ClinicID.String()).
		Int("weekday", int(created.Weekday)).
		Str("specialization", created.Specialization.Key()).
		Msg("weekly schedule created")
	return created, nil
}

func (s *Service) UpdateSchedule(ctx context.Context, ws *WeeklySchedule) (*WeeklySchedule, error) {
	if err := validateSchedule(ws); err != nil {
		return nil, err
	}
	current, err := s.repo.GetScheduleByID(ctx, ws.ID)
	if err != nil {
		return nil, err
	}
	ws.ClinicID = current.ClinicID

	updated, err := s.repo.UpdateSchedule(ctx, ws)
	if err != nil {
		return nil, fmt.Errorf("update schedule: %w", err)
	}
	return updated, nil
}

func (s *Service) DeactivateSchedule(ctx context.Context, id uuid.UUID) error {
	if err := s.repo.DeactivateSchedule(ctx, id); err != nil {
		return err
	}
	s.log.Info().Str("schedule_id", id.String()).Msg("weekly schedule deactivated")
	return nil
}

func (s *Service) ListSchedules(ctx context.Context, clinicID uuid.UUID) ([]WeeklySchedule, error) {
	return s.repo.ListSchedules(ctx, clinicID)
}

func (s *Service) BlockDate(ctx context.Context, clinicID uuid.UUID, day time.Time, reason *string) (*BlockedDate, error) {
	b := &BlockedDate{
		ID:       uuid.New(),
		ClinicID: clinicID,
		Day:      Day(day),
		Reason:   reason,
	}
	created, err := s.repo.InsertBlockedDate(ctx, b)
	if err != nil {
		return nil, err
	}
	s.log.Info().
		Str("clinic_id", clinicID.String()).
		Str("day", created.Day.Format("2006-01-02")).
		Msg("date blocked")
	return created, nil
}

func (s *Service) UnblockDate(ctx context.Context, id uuid.UUID) error {
	return s.repo.DeleteBlockedDate(ctx, id)
}

func (s *Service) BlockDateForKind(ctx context.Context, clinicID uuid.UUID, kind AppointmentKind, day time.Time, reason *string) (*BlockedDateByKind, error) {
	if !kind.Valid() {
		return nil, fmt.Errorf("%w: unknown appointment kind %q", ErrInvalidSchedule, kind)
	}
	b := &BlockedDateByKind{
		ID:       uuid.New(),
		ClinicID: clinicID,
		Kind:     kind,
		Day:      Day(day),
		Reason:   reason,
	}
	created, err := s.repo.InsertKindBlock(ctx, b)
	if err != nil {
		return nil, err
	}
	s.log.Info().
		Str("clinic_id", clinicID.String()).
		Str("kind", string(kind)).
		Str("day", created.Day.Format("2006-01-02")).
		Msg("date blocked for kind")
	return created, nil
}

func (s *Service) UnblockDateForKind(ctx context.Context, id uuid.UUID) error {
	return s.repo.DeleteKindBlock(ctx, id)
}

func (s *Service) ListBlockedDates(ctx context.Context, clinicID uuid.UUID, from, to time.Time) ([]BlockedDate, []BlockedDateByKind, error) {
	return s.repo.ListBlockedDates(ctx, clinicID, Day(from), Day(to))
}
