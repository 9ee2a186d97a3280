package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/hackgods/appointment-booking/internal/booking"
	"github.com/hackgods/appointment-booking/internal/clock"
	"github.com/hackgods/appointment-booking/internal/config"
	"github.com/hackgods/appointment-booking/internal/db"
	"github.com/hackgods/appointment-booking/internal/logging"
	"github.com/hackgods/appointment-booking/internal/maintenance"
	"github.com/hackgods/appointment-booking/internal/notify"
	redisclient "github.com/hackgods/appointment-booking/internal/redis"
)

const jobTimeout = 2 * time.Minute

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config load error: %v", err)
	}

	logger, err := logging.New(cfg.Env, "maintenance-worker")
	if err != nil {
		log.Fatalf("logger init error: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("maintenance-worker starting up",
		zap.String("timezone", cfg.Timezone),
		zap.String("weekly_schedule", cfg.MaintenanceSchedule),
		zap.String("reminder_schedule", cfg.ReminderSchedule),
	)

	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pgCtx, cancelPg := context.WithTimeout(rootCtx, 10*time.Second)
	pgPool, err := db.ConnectPostgres(pgCtx, cfg.PostgresDSN, db.PoolOptions{MaxConns: 4})
	cancelPg()
	if err != nil {
		logger.Fatal("postgres connection error", zap.Error(err))
	}
	defer pgPool.Close()
	logger.Info("connected to Postgres")

	dispatcher, err := notify.NewFromConfig(cfg, logger)
	if err != nil {
		logger.Fatal("notification setup error", zap.Error(err))
	}
	dispatcher.Start()

	clk := clock.NewSystem(cfg.Location)
	repo := booking.NewPgRepository(pgPool)
	services := booking.NewServiceCache(repo, cfg.ServiceCacheSize, cfg.ServiceCacheTTL)
	// The worker never books, so slot locks are not needed here.
	reservations := booking.NewReservationService(repo, services, redisclient.NewNoopLocker(), dispatcher, clk, logger)
	weekly := maintenance.NewWeekChecker(repo, clk, logger)

	scheduler := maintenance.NewScheduler(cfg.Location, jobTimeout, logger)
	if err := scheduler.Add("weekly-slot-check", cfg.MaintenanceSchedule, weekly.Job()); err != nil {
		logger.Fatal("schedule error", zap.Error(err))
	}
	if err := scheduler.Add("reminders", cfg.ReminderSchedule, maintenance.ReminderJob(reservations, logger)); err != nil {
		logger.Fatal("schedule error", zap.Error(err))
	}

	// Run the weekly check once at startup
	scheduler.Run(rootCtx, "weekly-slot-check", weekly.Job())

	scheduler.Start()
	<-rootCtx.Done()
	logger.Info("shutdown signal received, stopping maintenance worker")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := scheduler.Stop(shutdownCtx); err != nil {
		logger.Warn("jobs still running at shutdown", zap.Error(err))
	}
	dispatcher.Stop(shutdownCtx)

	logger.Info("maintenance-worker stopped")
}
