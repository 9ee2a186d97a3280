package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/hackgods/appointment-booking/internal/account"
	"github.com/hackgods/appointment-booking/internal/api"
	"github.com/hackgods/appointment-booking/internal/auth"
	"github.com/hackgods/appointment-booking/internal/booking"
	"github.com/hackgods/appointment-booking/internal/clock"
	"github.com/hackgods/appointment-booking/internal/config"
	"github.com/hackgods/appointment-booking/internal/db"
	"github.com/hackgods/appointment-booking/internal/db/migrations"
	"github.com/hackgods/appointment-booking/internal/logging"
	"github.com/hackgods/appointment-booking/internal/notify"
	redisclient "github.com/hackgods/appointment-booking/internal/redis"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config load error: %v", err)
	}
	if err := cfg.RequireJWTSecret(); err != nil {
		log.Fatalf("config load error: %v", err)
	}

	logger, err := logging.New(cfg.Env, "api-server")
	if err != nil {
		log.Fatalf("logger init error: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("api-server starting up",
		zap.String("http_port", cfg.HTTPPort),
		zap.String("timezone", cfg.Timezone),
		zap.String("version", version),
	)

	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Postgres
	pgCtx, cancelPg := context.WithTimeout(rootCtx, 10*time.Second)
	pgPool, err := db.ConnectPostgres(pgCtx, cfg.PostgresDSN, db.PoolOptions{})
	if err == nil {
		err = migrations.Apply(pgCtx, pgPool)
	}
	cancelPg()
	if err != nil {
		logger.Fatal("postgres setup error", zap.Error(err))
	}
	defer pgPool.Close()
	logger.Info("connected to Postgres, migrations applied")

	// Redis. Sessions need it, slot locks degrade to database-only protection
	// without it, so an outage at startup is not fatal.
	rdb, err := redisclient.NewRedisClient(rootCtx, cfg.RedisAddr, cfg.RedisUsername, cfg.RedisPassword)
	if err != nil {
		logger.Warn("redis unreachable at startup, continuing degraded", zap.Error(err))
		rdb = redisclient.NewClient(cfg.RedisAddr, cfg.RedisUsername, cfg.RedisPassword)
	} else {
		logger.Info("connected to Redis")
	}
	defer func() {
		if err := rdb.Close(); err != nil {
			logger.Warn("error closing redis", zap.Error(err))
		}
	}()

	dispatcher, err := notify.NewFromConfig(cfg, logger)
	if err != nil {
		logger.Fatal("notification setup error", zap.Error(err))
	}
	dispatcher.Start()

	clk := clock.NewSystem(cfg.Location)
	tokens := auth.NewTokenIssuer(cfg.JWTSecret, cfg.SessionTTL)
	sessions := redisclient.NewSessionStore(rdb, cfg.SessionTTL)
	locker := redisclient.NewRedisSlotLocker(rdb, cfg.LockTTL)

	bookingRepo := booking.NewPgRepository(pgPool)
	services := booking.NewServiceCache(bookingRepo, cfg.ServiceCacheSize, cfg.ServiceCacheTTL)
	reservations := booking.NewReservationService(bookingRepo, services, locker, dispatcher, clk, logger)
	catalog := booking.NewCatalogService(bookingRepo, services, logger)
	availability := booking.NewAvailabilityResolver(services, bookingRepo, bookingRepo)

	accountRepo := account.NewPgRepository(pgPool)
	invites := account.NewInviteGate(accountRepo, logger)
	accounts := account.NewService(accountRepo, invites, sessions, tokens, logger)

	router := api.NewRouter(api.RouterConfig{
		Accounts:      accounts,
		Invites:       invites,
		Catalog:       catalog,
		Availability:  availability,
		Reservations:  reservations,
		Authenticator: api.NewAuthenticator(tokens, sessions, logger),
		Health: api.NewHealthHandler(
			pgPool.Ping,
			func(ctx context.Context) error { return rdb.Ping(ctx).Err() },
			cfg.Env, version,
		),
		Logger:        logger,
		SecureCookies: cfg.Env == "prod",
	})

	server := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	srvErr := make(chan error, 1)
	go func() {
		logger.Info("http server listening", zap.String("addr", server.Addr))
		srvErr <- server.ListenAndServe()
	}()

	select {
	case err := <-srvErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", zap.Error(err))
		}
	case <-rootCtx.Done():
		logger.Info("shutdown signal received, stopping http server")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("http server shutdown error", zap.Error(err))
	}
	dispatcher.Stop(shutdownCtx)

	logger.Info("api-server stopped")
}
