package schedule

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ErrNotOperating means no active schedule covers the requested weekday
// and kind. Distinct from a blocked date: the clinic simply never opens.
var ErrNotOperating = errors.New("clinic is not operating that day")

// ScheduleSource is the lookup the resolver needs from storage.
type ScheduleSource interface {
	// FindSchedule returns the row for the exact specialization, active
	// or not, or ErrScheduleNotFound.
	FindSchedule(ctx context.Context, clinicID uuid.UUID, weekday time.Weekday, spec Specialization) (*WeeklySchedule, error)
}

// Resolver picks the weekly schedule that governs a booking request.
// Lookup order: kind-specific by id, then the legacy kind enum, then the
// clinic's general schedule. The first row found wins; an inactive
// winning row means the clinic is closed for that combination rather
// than falling through to a broader tier.
type Resolver struct {
	src ScheduleSource
}

func NewResolver(src ScheduleSource) *Resolver {
	return &Resolver{src: src}
}

func (r *Resolver) Resolve(ctx context.Context, clinicID uuid.UUID, weekday time.Weekday, kindID *uuid.UUID, legacy *AppointmentKind) (*WeeklySchedule, error) {
	tiers := make([]Specialization, 0, 3)
	if kindID != nil {
		tiers = append(tiers, ByKindID(*kindID))
	}
	if legacy != nil {
		tiers = append(tiers, ByLegacyKind(*legacy))
	}
	tiers = append(tiers, General())

	for _, spec := range tiers {
		ws, err := r.src.FindSchedule(ctx, clinicID, weekday, spec)
		if errors.Is(err, ErrScheduleNotFound) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("find schedule %s: %w", spec.Key(), err)
		}
		if !ws.Active {
			return nil, ErrNotOperating
		}
		return ws, nil
	}

	return nil, ErrNotOperating
}

// ResolveDate resolves against the weekday of a UTC calendar date.
func (r *Resolver) ResolveDate(ctx context.Context, clinicID uuid.UUID, date time.Time, kindID *uuid.UUID, legacy *AppointmentKind) (*WeeklySchedule, error) {
	return r.Resolve(ctx, clinicID, Day(date).Weekday(), kindID, legacy)
}
