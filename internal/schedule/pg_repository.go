package schedule

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PgRepository struct {
	pool *pgxpool.Pool
}

func NewPgRepository(pool *pgxpool.Pool) *PgRepository {
	return &PgRepository{pool: pool}
}

const scheduleColumns = `
	id, clinic_id, weekday, kind_id, legacy_kind,
	open_minute, close_minute, break_start, break_end,
	slot_minutes, max_appointments, active, created_at, updated_at
`

// Helpers

func scanSchedule(row pgx.Row) (*WeeklySchedule, error) {
	var (
		ws         WeeklySchedule
		weekday    int
		kindID     *uuid.UUID
		legacyKind *string
		open, clos int
		brkStart   *int
		brkEnd     *int
	)

	err := row.Scan(
		&ws.ID,
		&ws.ClinicID,
		&weekday,
		&kindID,
		&legacyKind,
		&open,
		&clos,
		&brkStart,
		&brkEnd,
		&ws.SlotMinutes,
		&ws.MaxAppointments,
		&ws.Active,
		&ws.CreatedAt,
		&ws.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrScheduleNotFound
		}
		return nil, err
	}

	ws.Weekday = time.Weekday(weekday)
	ws.OpenMinute = MinuteOfDay(open)
	ws.CloseMinute = MinuteOfDay(clos)
	if brkStart != nil {
		m := MinuteOfDay(*brkStart)
		ws.BreakStart = &m
	}
	if brkEnd != nil {
		m := MinuteOfDay(*brkEnd)
		ws.BreakEnd = &m
	}
	switch {
	case kindID != nil:
		ws.Specialization = ByKindID(*kindID)
	case legacyKind != nil:
		ws.Specialization = ByLegacyKind(AppointmentKind(*legacyKind))
	default:
		ws.Specialization = General()
	}

	return &ws, nil
}

func specializationColumns(spec Specialization) (kindID *uuid.UUID, legacy *string) {
	if id, ok := spec.KindID(); ok {
		kindID = &id
	}
	if k, ok := spec.LegacyKind(); ok {
		s := string(k)
		legacy = &s
	}
	return kindID, legacy
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

// Interface methods

func (r *PgRepository) FindSchedule(ctx context.Context, clinicID uuid.UUID, weekday time.Weekday, spec Specialization) (*WeeklySchedule, error) {
	kindID, legacy := specializationColumns(spec)

	row := r.pool.QueryRow(ctx, `
		SELECT `+scheduleColumns+`
		FROM weekly_schedules
		WHERE clinic_id = $1
		  AND weekday = $2
		  AND kind_id IS NOT DISTINCT FROM $3
		  AND legacy_kind IS NOT DISTINCT FROM $4
		ORDER BY active DESC, updated_at DESC
		LIMIT 1
	`, clinicID, int(weekday), kindID, legacy)
	return scanSchedule(row)
}

func (r *PgRepository) GetScheduleByID(ctx context.Context, id uuid.UUID) (*WeeklySchedule, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+scheduleColumns+`
		FROM weekly_schedules
		WHERE id = $1
	`, id)
	return scanSchedule(row)
}

func (r *PgRepository) ListSchedules(ctx context.Context, clinicID uuid.UUID) ([]WeeklySchedule, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+scheduleColumns+`
		FROM weekly_schedules
		WHERE clinic_id = $1
		ORDER BY weekday, kind_id NULLS LAST, legacy_kind NULLS LAST
	`, clinicID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []WeeklySchedule
	for rows.Next() {
		ws, err := scanSchedule(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *ws)
	}
	return result, rows.Err()
}

func (r *PgRepository) InsertSchedule(ctx context.Context, ws *WeeklySchedule) (*WeeklySchedule, error) {
	kindID, legacy := specializationColumns(ws.Specialization)
	var brkStart, brkEnd *int
	if ws.BreakStart != nil {
		v := int(*ws.BreakStart)
		brkStart = &v
	}
	if ws.BreakEnd != nil {
		v := int(*ws.BreakEnd)
		brkEnd = &v
	}

	row := r.pool.QueryRow(ctx, `
		INSERT INTO weekly_schedules (
			id, clinic_id, weekday, kind_id, legacy_kind,
			open_minute, close_minute, break_start, break_end,
			slot_minutes, max_appointments, active, created_at, updated_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, true, now(), now())
		RETURNING `+scheduleColumns+`
	`, ws.ID, ws.ClinicID, int(ws.Weekday), kindID, legacy,
		int(ws.OpenMinute), int(ws.CloseMinute), brkStart, brkEnd,
		ws.SlotMinutes, ws.MaxAppointments)

	created, err := scanSchedule(row)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, ErrDuplicateSchedule
		}
		return nil, err
	}
	return created, nil
}

func (r *PgRepository) UpdateSchedule(ctx context.Context, ws *WeeklySchedule) (*WeeklySchedule, error) {
	var brkStart, brkEnd *int
	if ws.BreakStart != nil {
		v := int(*ws.BreakStart)
		brkStart = &v
	}
	if ws.BreakEnd != nil {
		v := int(*ws.BreakEnd)
		brkEnd = &v
	}

	row := r.pool.QueryRow(ctx, `
		UPDATE weekly_schedules
		SET open_minute = $2,
		    close_minute = $3,
		    break_start = $4,
		    break_end = $5,
		    slot_minutes = $6,
		    max_appointments = $7,
		    active = $8,
		    updated_at = now()
		WHERE id = $1
		RETURNING `+scheduleColumns+`
	`, ws.ID, int(ws.OpenMinute), int(ws.CloseMinute), brkStart, brkEnd,
		ws.SlotMinutes, ws.MaxAppointments, ws.Active)

	updated, err := scanSchedule(row)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, ErrDuplicateSchedule
		}
		return nil, err
	}
	return updated, nil
}

func (r *PgRepository) DeactivateSchedule(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE weekly_schedules
		SET active = false,
		    updated_at = now()
		WHERE id = $1
	`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrScheduleNotFound
	}
	return nil
}

func (r *PgRepository) GlobalBlockExists(ctx context.Context, clinicID uuid.UUID, day time.Time) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM blocked_dates
			WHERE clinic_id = $1 AND day = $2
		)
	`, clinicID, day).Scan(&exists)
	return exists, err
}

func (r *PgRepository) KindBlockExists(ctx context.Context, clinicID uuid.UUID, kind AppointmentKind, day time.Time) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM blocked_dates_by_kind
			WHERE clinic_id = $1 AND kind = $2 AND day = $3
		)
	`, clinicID, string(kind), day).Scan(&exists)
	return exists, err
}

func (r *PgRepository) InsertBlockedDate(ctx context.Context, b *BlockedDate) (*BlockedDate, error) {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO blocked_dates (id, clinic_id, day, reason, created_at)
		VALUES ($1, $2, $3, $4, now())
		RETURNING id, clinic_id, day, reason, created_at
	`, b.ID, b.ClinicID, b.Day, b.Reason)

	var out BlockedDate
	if err := row.Scan(&out.ID, &out.ClinicID, &out.Day, &out.Reason, &out.CreatedAt); err != nil {
		if isUniqueViolation(err) {
			return nil, ErrDuplicateBlock
		}
		return nil, err
	}
	return &out, nil
}

func (r *PgRepository) DeleteBlockedDate(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM blocked_dates WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrBlockedDateNotFound
	}
	return nil
}

func (r *PgRepository) InsertKindBlock(ctx context.Context, b *BlockedDateByKind) (*BlockedDateByKind, error) {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO blocked_dates_by_kind (id, clinic_id, kind, day, reason, created_at)
		VALUES ($1, $2, $3, $4, $5, now())
		RETURNING id, clinic_id, kind, day, reason, created_at
	`, b.ID, b.ClinicID, string(b.Kind), b.Day, b.Reason)

	var (
		out  BlockedDateByKind
		kind string
	)
	if err := row.Scan(&out.ID, &out.ClinicID, &kind, &out.Day, &out.Reason, &out.CreatedAt); err != nil {
		if isUniqueViolation(err) {
			return nil, ErrDuplicateBlock
		}
		return nil, err
	}
	out.Kind = AppointmentKind(kind)
	return &out, nil
}

func (r *PgRepository) DeleteKindBlock(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM blocked_dates_by_kind WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrBlockedDateNotFound
	}
	return nil
}

func (r *PgRepository) ListBlockedDates(ctx context.Context, clinicID uuid.UUID, from, to time.Time) ([]BlockedDate, []BlockedDateByKind, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, clinic_id, day, reason, created_at
		FROM blocked_dates
		WHERE clinic_id = $1 AND day BETWEEN $2 AND $3
		ORDER BY day
	`, clinicID, from, to)
	if err != nil {
		return nil, nil, err
	}
	defer rows.Close()

	var global []BlockedDate
	for rows.Next() {
		var b BlockedDate
		if err := rows.Scan(&b.ID, &b.ClinicID, &b.Day, &b.Reason, &b.CreatedAt); err != nil {
			return nil, nil, err
		}
		global = append(global, b)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, err
	}

	kindRows, err := r.pool.Query(ctx, `
		SELECT id, clinic_id, kind, day, reason, created_at
		FROM blocked_dates_by_kind
		WHERE clinic_id = $1 AND day BETWEEN $2 AND $3
		ORDER BY day, kind
	`, clinicID, from, to)
	if err != nil {
		return nil, nil, err
	}
	defer kindRows.Close()

	var byKind []BlockedDateByKind
	for kindRows.Next() {
		var (
			b    BlockedDateByKind
			kind string
		)
		if err := kindRows.Scan(&b.ID, &b.ClinicID, &kind, &b.Day, &b.Reason, &b.CreatedAt); err != nil {
			return nil, nil, err
		}
		b.Kind = AppointmentKind(kind)
		byKind = append(byKind, b)
	}
	return global, byKind, kindRows.Err()
}
