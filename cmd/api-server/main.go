package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"github.com/postopcare/clinic-scheduling/internal/api"
	"github.com/postopcare/clinic-scheduling/internal/booking"
	"github.com/postopcare/clinic-scheduling/internal/config"
	"github.com/postopcare/clinic-scheduling/internal/db"
	"github.com/postopcare/clinic-scheduling/internal/observability/metrics"
	redisclient "github.com/postopcare/clinic-scheduling/internal/redis"
	"github.com/postopcare/clinic-scheduling/internal/schedule"
)

const version = "0.3.0"

func main() {
	cfg, err := config.Load()
	if err != nil {
		errLog := zerolog.New(os.Stderr)
		errLog.Fatal().Err(err).Msg("config load error")
	}

	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}
	log := zerolog.New(os.Stdout).Level(level).With().Timestamp().Str("service", "api-server").Logger()

	log.Info().Str("env", cfg.Env).Str("http_port", cfg.HTTPPort).Msg("api-server starting up")

	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pgCtx, cancelPg := context.WithTimeout(rootCtx, 10*time.Second)
	pgPool, err := db.ConnectPostgres(pgCtx, cfg.PostgresDSN)
	cancelPg()
	if err != nil {
		log.Fatal().Err(err).Msg("postgres connection error")
	}
	defer pgPool.Close()
	log.Info().Msg("connected to Postgres")

	rdb, err := redisclient.NewRedisClient(cfg.RedisAddr, cfg.RedisUsername, cfg.RedisPassword)
	if err != nil {
		log.Fatal().Err(err).Msg("redis connection error")
	}
	defer func() {
		if err := rdb.Close(); err != nil {
			log.Error().Err(err).Msg("error closing redis")
		}
	}()
	log.Info().Msg("connected to Redis")

	scheduleRepo := schedule.NewPgRepository(pgPool)
	resolver := schedule.NewResolver(scheduleRepo)
	blocked := schedule.NewBlockedDateRegistry(scheduleRepo)
	scheduleSvc := schedule.NewService(scheduleRepo, log)

	bookingRepo := booking.NewPgRepository(pgPool)
	patients := booking.NewPgPatientDirectory(pgPool)
	locker := redisclient.NewRedisDayLocker(rdb, cfg.LockTTL)
	bookingMetrics := metrics.NewBookingMetrics(prometheus.DefaultRegisterer)

	bookingSvc := booking.NewService(bookingRepo, patients, resolver, blocked, locker, bookingMetrics, log)
	availabilitySvc := booking.NewAvailabilityService(resolver, blocked, bookingRepo, bookingMetrics)

	router := api.NewRouter(api.RouterConfig{
		Bookings:     bookingSvc,
		Availability: availabilitySvc,
		Schedules:    scheduleSvc,
		PgPool:       pgPool,
		Redis:        rdb,
		Logger:       log,
		Env:          cfg.Env,
		Version:      version,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		log.Info().Str("addr", srv.Addr).Msg("http server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("http server error")
		}
	}()

	<-rootCtx.Done()
	log.Info().Msg("shutting down api-server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("http server shutdown error")
	}
}
