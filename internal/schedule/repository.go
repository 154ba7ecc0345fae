package schedule

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	ErrScheduleNotFound    = errors.New("weekly schedule not found")
	ErrBlockedDateNotFound = errors.New("blocked date not found")
	ErrDuplicateSchedule   = errors.New("an active schedule already exists for that weekday and kind")
	ErrDuplicateBlock      = errors.New("date is already blocked")
)

// Repository contains all DB interactions for schedules and blocked
// dates. It satisfies ScheduleSource and BlockedDateSource.
type Repository interface {
	ScheduleSource
	BlockedDateSource

	GetScheduleByID(ctx context.Context, id uuid.UUID) (*WeeklySchedule, error)
	ListSchedules(ctx context.Context, clinicID uuid.UUID) ([]WeeklySchedule, error)
	InsertSchedule(ctx context.Context, ws *WeeklySchedule) (*WeeklySchedule, error)
	UpdateSchedule(ctx context.Context, ws *WeeklySchedule) (*WeeklySchedule, error)
	DeactivateSchedule(ctx context.Context, id uuid.UUID) error

	InsertBlockedDate(ctx context.Context, b *BlockedDate) (*BlockedDate, error)
	DeleteBlockedDate(ctx context.Context, id uuid.UUID) error
	InsertKindBlock(ctx context.Context, b *BlockedDateByKind) (*BlockedDateByKind, error)
	DeleteKindBlock(ctx context.Context, id uuid.UUID) error
	ListBlockedDates(ctx context.Context, clinicID uuid.UUID, from, to time.Time) ([]BlockedDate, []BlockedDateByKind, error)
}
