package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/postopcare/clinic-scheduling/internal/booking"
	"github.com/postopcare/clinic-scheduling/internal/schedule"
)

// BookingService is the slice of booking.Service the handlers use.
type BookingService interface {
	Create(ctx context.Context, req booking.CreateRequest) (*booking.Appointment, error)
	Approve(ctx context.Context, id uuid.UUID) (*booking.Appointment, error)
	Cancel(ctx context.Context, id uuid.UUID) (*booking.Appointment, error)
	Complete(ctx context.Context, id uuid.UUID) (*booking.Appointment, error)
	Get(ctx context.Context, id uuid.UUID) (*booking.Appointment, error)
	ListByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]booking.Appointment, error)
}

type AvailabilityReader interface {
	DayAvailability(ctx context.Context, clinicID uuid.UUID, date time.Time, kindID *uuid.UUID, kind *schedule.AppointmentKind) (*booking.DayAvailability, error)
}

// ScheduleAdmin covers the clinic-admin editing surface.
type ScheduleAdmin interface {
	CreateSchedule(ctx context.Context, ws *schedule.WeeklySchedule) (*schedule.WeeklySchedule, error)
	UpdateSchedule(ctx context.Context, ws *schedule.WeeklySchedule) (*schedule.WeeklySchedule, error)
	DeactivateSchedule(ctx context.Context, id uuid.UUID) error
	ListSchedules(ctx context.Context, clinicID uuid.UUID) ([]schedule.WeeklySchedule, error)
	BlockDate(ctx context.Context, clinicID uuid.UUID, day time.Time, reason *string) (*schedule.BlockedDate, error)
	UnblockDate(ctx context.Context, id uuid.UUID) error
	BlockDateForKind(ctx context.Context, clinicID uuid.UUID, kind schedule.AppointmentKind, day time.Time, reason *string) (*schedule.BlockedDateByKind, error)
	UnblockDateForKind(ctx context.Context, id uuid.UUID) error
	ListBlockedDates(ctx context.Context, clinicID uuid.UUID, from, to time.Time) ([]schedule.BlockedDate, []schedule.BlockedDateByKind, error)
}

type RouterConfig struct {
	Bookings     BookingService
	Availability AvailabilityReader
	Schedules    ScheduleAdmin
	PgPool       *pgxpool.Pool
	Redis        *redis.Client
	Logger       zerolog.Logger
	Env          string
	Version      string
}

func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	r.Use(RequestIDMiddleware)
	r.Use(LoggingMiddleware(cfg.Logger))

	health := NewHealthHandler(cfg.PgPool, cfg.Redis, cfg.Env, cfg.Version)
	r.Get("/health/live", health.Liveness)
	r.Get("/health/ready", health.Readiness)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/clinics/{clinicID}", func(r chi.Router) {
		r.Get("/availability", availabilityHandler(cfg.Availability))

		r.Route("/schedules", func(r chi.Router) {
			r.Get("/", listSchedulesHandler(cfg.Schedules))
			r.Post("/", createScheduleHandler(cfg.Schedules))
			r.Put("/{scheduleID}", updateScheduleHandler(cfg.Schedules))
			r.Delete("/{scheduleID}", deactivateScheduleHandler(cfg.Schedules))
		})

		r.Route("/blocked-dates", func(r chi.Router) {
			r.Get("/", listBlockedDatesHandler(cfg.Schedules))
			r.Post("/", blockDateHandler(cfg.Schedules))
			r.Delete("/{blockedDateID}", unblockDateHandler(cfg.Schedules, false))
			r.Delete("/kind/{blockedDateID}", unblockDateHandler(cfg.Schedules, true))
		})
	})

	r.Route("/appointments", func(r chi.Router) {
		r.Post("/", createAppointmentHandler(cfg.Bookings))
		r.Get("/{id}", getAppointmentHandler(cfg.Bookings))
		r.Post("/{id}/approve", transitionHandler(func(req *http.Request, id uuid.UUID) (*booking.Appointment, error) {
			return cfg.Bookings.Approve(req.Context(), id)
		}))
		r.Post("/{id}/cancel", transitionHandler(func(req *http.Request, id uuid.UUID) (*booking.Appointment, error) {
			return cfg.Bookings.Cancel(req.Context(), id)
		}))
		r.Post("/{id}/complete", transitionHandler(func(req *http.Request, id uuid.UUID) (*booking.Appointment, error) {
			return cfg.Bookings.Complete(req.Context(), id)
		}))
	})

	r.Get("/patients/{patientID}/appointments", listPatientAppointmentsHandler(cfg.Bookings))

	return r
}
