package schedule

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// BlockedDateSource is the point-lookup contract the registry needs.
type BlockedDateSource interface {
	GlobalBlockExists(ctx context.Context, clinicID uuid.UUID, day time.Time) (bool, error)
	KindBlockExists(ctx context.Context, clinicID uuid.UUID, kind AppointmentKind, day time.Time) (bool, error)
}

// BlockedDateRegistry answers whether a calendar date is excluded from
// booking, clinic-wide or for one appointment kind. A clinic-wide block
// short-circuits regardless of the kind asked about.
type BlockedDateRegistry struct {
	src BlockedDateSource
}

func NewBlockedDateRegistry(src BlockedDateSource) *BlockedDateRegistry {
	return &BlockedDateRegistry{src: src}
}

func (reg *BlockedDateRegistry) IsBlocked(ctx context.Context, clinicID uuid.UUID, date time.Time, kind *AppointmentKind) (bool, error) {
	day := Day(date)

	blocked, err := reg.src.GlobalBlockExists(ctx, clinicID, day)
	if err != nil {
		return false, fmt.Errorf("check blocked date: %w", err)
	}
	if blocked {
		return true, nil
	}

	if kind == nil {
		return false, nil
	}

	blocked, err = reg.src.KindBlockExists(ctx, clinicID, *kind, day)
	if err != nil {
		return false, fmt.Errorf("check blocked date for kind %s: %w", *kind, err)
	}
	return blocked, nil
}
