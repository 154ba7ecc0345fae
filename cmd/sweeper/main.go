package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/postopcare/clinic-scheduling/internal/booking"
	"github.com/postopcare/clinic-scheduling/internal/config"
	"github.com/postopcare/clinic-scheduling/internal/db"
	redisclient "github.com/postopcare/clinic-scheduling/internal/redis"
	"github.com/postopcare/clinic-scheduling/internal/schedule"
)

// The sweeper cancels PENDING appointment requests whose calendar date
// has passed without staff approval, so stale requests stop blocking
// slots and polluting staff queues.
func main() {
	cfg, err := config.Load()
	if err != nil {
		errLog := zerolog.New(os.Stderr)
		errLog.Fatal().Err(err).Msg("config load error")
	}

	log := zerolog.New(os.Stdout).With().Timestamp().Str("service", "sweeper").Logger()
	log.Info().Str("env", cfg.Env).Dur("interval", cfg.SweepInterval).Msg("sweeper starting up")

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

	scheduleRepo := schedule.NewPgRepository(pgPool)
	resolver := schedule.NewResolver(scheduleRepo)
	blocked := schedule.NewBlockedDateRegistry(scheduleRepo)
	bookingRepo := booking.NewPgRepository(pgPool)
	patients := booking.NewPgPatientDirectory(pgPool)
	locker := redisclient.NewRedisDayLocker(rdb, cfg.LockTTL)

	svc := booking.NewService(bookingRepo, patients, resolver, blocked, locker, nil, log)

	runOnce(rootCtx, svc, log)

	ticker := time.NewTicker(cfg.SweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-rootCtx.Done():
			log.Info().Msg("shutdown signal received, stopping sweeper")
			return
		case <-ticker.C:
			runOnce(rootCtx, svc, log)
		}
	}
}

func runOnce(ctx context.Context, svc *booking.Service, log zerolog.Logger) {
	runCtx, cancel := context.WithTimeout(ctx, 20*time.Second)
	defer cancel()

	start := time.Now()
	cancelled, err := svc.CancelStalePending(runCtx)
	if err != nil {
		log.Error().Err(err).Msg("sweep run error")
		return
	}
	log.Info().Int("cancelled", cancelled).Dur("took", time.Since(start)).Msg("sweep run complete")
}
