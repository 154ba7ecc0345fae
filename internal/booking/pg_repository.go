package booking

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/postopcare/clinic-scheduling/internal/schedule"
)

type PgRepository struct {
	pool *pgxpool.Pool
}

func NewPgRepository(pool *pgxpool.Pool) *PgRepository {
	return &PgRepository{pool: pool}
}

const appointmentColumns = `
	id, patient_id, clinic_id, day, start_minute, duration_minutes,
	kind, status, created_at, updated_at, deleted_at
`

// Helpers

func scanAppointment(row pgx.Row) (*Appointment, error) {
	var (
		a      Appointment
		start  int
		kind   string
		status string
	)

	err := row.Scan(
		&a.ID,
		&a.PatientID,
		&a.ClinicID,
		&a.Day,
		&start,
		&a.DurationMinutes,
		&kind,
		&status,
		&a.CreatedAt,
		&a.UpdatedAt,
		&a.DeletedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAppointmentNotFound
		}
		return nil, err
	}

	a.Day = a.Day.UTC()
	a.Start = schedule.MinuteOfDay(start)
	a.Kind = schedule.AppointmentKind(kind)
	a.Status = Status(status)
	return &a, nil
}

// isOverlapViolation matches the no-overlap exclusion constraint
// (23P01) and the start-minute unique index (23505).
func isOverlapViolation(err error) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}
	return pgErr.Code == "23P01" || pgErr.Code == "23505"
}

// Interface methods

func (r *PgRepository) GetByID(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE id = $1 AND deleted_at IS NULL
	`, id)
	return scanAppointment(row)
}

func (r *PgRepository) FindForDay(ctx context.Context, clinicID uuid.UUID, day time.Time) ([]Appointment, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE clinic_id = $1
		  AND day = $2
		  AND status <> 'CANCELLED'
		  AND deleted_at IS NULL
		ORDER BY start_minute
	`, clinicID, day)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []Appointment
	for rows.Next() {
		a, err := scanAppointment(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *a)
	}
	return result, rows.Err()
}

func (r *PgRepository) CountForDay(ctx context.Context, clinicID uuid.UUID, day time.Time) (int, error) {
	var count int
	err := r.pool.QueryRow(ctx, `
		SELECT count(*)
		FROM appointments
		WHERE clinic_id = $1
		  AND day = $2
		  AND status <> 'CANCELLED'
		  AND deleted_at IS NULL
	`, clinicID, day).Scan(&count)
	return count, err
}

func (r *PgRepository) Insert(ctx context.Context, a *Appointment) (*Appointment, error) {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO appointments (
			id, patient_id, clinic_id, day, start_minute, duration_minutes,
			kind, status, created_at, updated_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, now(), now())
		RETURNING `+appointmentColumns+`
	`, a.ID, a.PatientID, a.ClinicID, a.Day, int(a.Start), a.DurationMinutes,
		string(a.Kind), string(a.Status))

	created, err := scanAppointment(row)
	if err != nil {
		if isOverlapViolation(err) {
			return nil, ErrSlotTaken
		}
		return nil, err
	}
	return created, nil
}

func (r *PgRepository) UpdateStatus(ctx context.Context, id uuid.UUID, from, to Status) (*Appointment, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE appointments
		SET status = $2,
		    updated_at = now()
		WHERE id = $1
		  AND status = $3
		  AND deleted_at IS NULL
		RETURNING `+appointmentColumns+`
	`, id, string(to), string(from))
	return scanAppointment(row)
}

func (r *PgRepository) ListByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]Appointment, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE patient_id = $1 AND deleted_at IS NULL
		ORDER BY day DESC, start_minute DESC
		LIMIT $2 OFFSET $3
	`, patientID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []Appointment
	for rows.Next() {
		a, err := scanAppointment(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *a)
	}
	return result, rows.Err()
}

func (r *PgRepository) FindStalePending(ctx context.Context, before time.Time) ([]Appointment, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE status = 'PENDING'
		  AND day < $1
		  AND deleted_at IS NULL
	`, before)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []Appointment
	for rows.Next() {
		a, err := scanAppointment(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *a)
	}
	return result, rows.Err()
}

func (r *PgRepository) InsertEvent(ctx context.Context, ev EventLog) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO event_logs (event_type, appointment_id, payload, created_at)
		VALUES ($1, $2, $3, COALESCE($4, now()))
	`, ev.EventType, ev.AppointmentID, ev.Payload, nullableTime(ev.CreatedAt))
	if err != nil {
		return fmt.Errorf("insert event log: %w", err)
	}
	return nil
}

func nullableTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}

// PgPatientDirectory resolves patient-clinic membership from the
// patients table owned by the patient subsystem.
type PgPatientDirectory struct {
	pool *pgxpool.Pool
}

func NewPgPatientDirectory(pool *pgxpool.Pool) *PgPatientDirectory {
	return &PgPatientDirectory{pool: pool}
}

func (d *PgPatientDirectory) BelongsToClinic(ctx context.Context, patientID, clinicID uuid.UUID) (bool, error) {
	var owner uuid.UUID
	err := d.pool.QueryRow(ctx, `
		SELECT clinic_id FROM patients WHERE id = $1
	`, patientID).Scan(&owner)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, ErrPatientNotFound
		}
		return false, err
	}
	return owner == clinicID, nil
}
