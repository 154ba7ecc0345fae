package main

import (
	"context"
	"log"
	"os"
	"time"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/postopcare/clinic-scheduling/internal/db"
	"github.com/postopcare/clinic-scheduling/internal/schedule"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	log.Println("seed starting")

	dsn := os.Getenv("POSTGRES_DSN")
	if dsn == "" {
		log.Fatal("POSTGRES_DSN is required")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := db.ConnectPostgres(ctx, dsn)
	if err != nil {
		log.Fatalf("connect postgres: %v", err)
	}
	defer pool.Close()

	gofakeit.Seed(time.Now().UnixNano())

	clinicIDs, err := seedClinics(context.Background(), pool, 20)
	if err != nil {
		log.Fatalf("seed clinics: %v", err)
	}
	if err := seedPatients(context.Background(), pool, clinicIDs, 2000); err != nil {
		log.Fatalf("seed patients: %v", err)
	}
	if err := seedSchedules(context.Background(), pool, clinicIDs); err != nil {
		log.Fatalf("seed schedules: %v", err)
	}
	if err := seedBlockedDates(context.Background(), pool, clinicIDs); err != nil {
		log.Fatalf("seed blocked dates: %v", err)
	}

	log.Println("seed complete")
}

func seedClinics(ctx context.Context, pool *pgxpool.Pool, count int) ([]uuid.UUID, error) {
	log.Printf("seeding %d clinics", count)

	tx, err := pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	ids := make([]uuid.UUID, 0, count)
	for i := 0; i < count; i++ {
		id := uuid.New()
		name := gofakeit.Company() + " Clinic"

		_, err := tx.Exec(ctx, `
			INSERT INTO clinics (id, name, created_at, updated_at)
			VALUES ($1, $2, now(), now())
		`, id, name)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	log.Println("clinics seeded")
	return ids, nil
}

func seedPatients(ctx context.Context, pool *pgxpool.Pool, clinicIDs []uuid.UUID, count int) error {
	log.Printf("seeding %d patients", count)

	const batchSize = 500

	for offset := 0; offset < count; offset += batchSize {
		end := offset + batchSize
		if end > count {
			end = count
		}

		tx, err := pool.Begin(ctx)
		if err != nil {
			return err
		}

		for i := offset; i < end; i++ {
			id := uuid.New()
			clinicID := clinicIDs[gofakeit.Number(0, len(clinicIDs)-1)]
			name := gofakeit.Name()
			email := gofakeit.Email()

			_, err := tx.Exec(ctx, `
				INSERT INTO patients (id, clinic_id, name, email, created_at, updated_at)
				VALUES ($1, $2, $3, $4, now(), now())
			`, id, clinicID, name, email)
			if err != nil {
				_ = tx.Rollback(ctx)
				return err
			}
		}

		if err := tx.Commit(ctx); err != nil {
			return err
		}

		log.Printf("patients seeded: %d/%d", end, count)
	}

	log.Println("patients seeded")
	return nil
}

func seedSchedules(ctx context.Context, pool *pgxpool.Pool, clinicIDs []uuid.UUID) error {
	log.Printf("seeding weekly schedules for %d clinics", len(clinicIDs))

	kinds := []schedule.AppointmentKind{
		schedule.KindConsultation,
		schedule.KindFollowUp,
		schedule.KindPhysiotherapy,
	}

	tx, err := pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	for _, clinicID := range clinicIDs {
		// General Monday-Friday hours with a lunch break.
		for weekday := 1; weekday <= 5; weekday++ {
			var cap *int
			if gofakeit.Bool() {
				v := gofakeit.Number(8, 16)
				cap = &v
			}
			_, err := tx.Exec(ctx, `
				INSERT INTO weekly_schedules (
					id, clinic_id, weekday, open_minute, close_minute,
					break_start, break_end, slot_minutes, max_appointments,
					active, created_at, updated_at
				)
				VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, true, now(), now())
			`, uuid.New(), clinicID, weekday,
				8*60, 18*60, 12*60, 13*60,
				30, cap)
			if err != nil {
				return err
			}
		}

		// Kind-specific Saturday hours for one random kind.
		kind := kinds[gofakeit.Number(0, len(kinds)-1)]
		_, err := tx.Exec(ctx, `
			INSERT INTO weekly_schedules (
				id, clinic_id, weekday, legacy_kind, open_minute, close_minute,
				slot_minutes, active, created_at, updated_at
			)
			VALUES ($1, $2, 6, $3, $4, $5, $6, true, now(), now())
		`, uuid.New(), clinicID, string(kind), 9*60, 13*60, 45)
		if err != nil {
			return err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return err
	}

	log.Println("schedules seeded")
	return nil
}

func seedBlockedDates(ctx context.Context, pool *pgxpool.Pool, clinicIDs []uuid.UUID) error {
	log.Println("seeding blocked dates")

	tx, err := pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	for _, clinicID := range clinicIDs {
		day := schedule.Day(time.Now().UTC().AddDate(0, 0, gofakeit.Number(7, 60)))
		reason := "clinic closed"

		_, err := tx.Exec(ctx, `
			INSERT INTO blocked_dates (id, clinic_id, day, reason, created_at)
			VALUES ($1, $2, $3, $4, now())
			ON CONFLICT (clinic_id, day) DO NOTHING
		`, uuid.New(), clinicID, day, reason)
		if err != nil {
			return err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return err
	}

	log.Println("blocked dates seeded")
	return nil
}
