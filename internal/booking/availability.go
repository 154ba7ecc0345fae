package booking

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/postopcare/clinic-scheduling/internal/observability/metrics"
	"github.com/postopcare/clinic-scheduling/internal/schedule"
)

const (
	ReasonDateBlocked  = "date blocked"
	ReasonNotOperating = "clinic not operating"
)

// DayAvailability is the read-path answer for one clinic day: either a
// reason the day is closed, or the annotated slot grid.
type DayAvailability struct {
	Available   bool
	Reason      string
	Slots       []Slot
	BookedCount int
	Schedule    *schedule.WeeklySchedule
}

// AvailabilityService answers "what is bookable on date D for kind K".
// It is read-only and side-effect free; callers may invoke it
// concurrently and as often as they like.
type AvailabilityService struct {
	resolver *schedule.Resolver
	blocked  *schedule.BlockedDateRegistry
	repo     Repository
	metrics  *metrics.BookingMetrics
}

func NewAvailabilityService(resolver *schedule.Resolver, blocked *schedule.BlockedDateRegistry, repo Repository, m *metrics.BookingMetrics) *AvailabilityService {
	return &AvailabilityService{
		resolver: resolver,
		blocked:  blocked,
		repo:     repo,
		metrics:  m,
	}
}

func (s *AvailabilityService) DayAvailability(ctx context.Context, clinicID uuid.UUID, date time.Time, kindID *uuid.UUID, kind *schedule.AppointmentKind) (*DayAvailability, error) {
	day := schedule.Day(date)

	blocked, err := s.blocked.IsBlocked(ctx, clinicID, day, kind)
	if err != nil {
		return nil, err
	}
	if blocked {
		s.metrics.ObserveAvailability("blocked")
		return &DayAvailability{Available: false, Reason: ReasonDateBlocked}, nil
	}

	ws, err := s.resolver.Resolve(ctx, clinicID, day.Weekday(), kindID, kind)
	if err != nil {
		if errors.Is(err, schedule.ErrNotOperating) {
			s.metrics.ObserveAvailability("closed")
			return &DayAvailability{Available: false, Reason: ReasonNotOperating}, nil
		}
		return nil, err
	}

	existing, err := s.repo.FindForDay(ctx, clinicID, day)
	if err != nil {
		return nil, fmt.Errorf("load appointments: %w", err)
	}

	slots := MarkConflicts(ws.Slots(), ws.SlotMinutes, existing)

	s.metrics.ObserveAvailability("open")
	return &DayAvailability{
		Available:   true,
		Slots:       slots,
		BookedCount: len(existing),
		Schedule:    ws,
	}, nil
}
