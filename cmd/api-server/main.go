package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/agendavel/agendavel-api/internal/api"
	"github.com/agendavel/agendavel-api/internal/auth"
	"github.com/agendavel/agendavel-api/internal/cache"
	"github.com/agendavel/agendavel-api/internal/config"
	"github.com/agendavel/agendavel-api/internal/db"
	"github.com/agendavel/agendavel-api/internal/directory"
	"github.com/agendavel/agendavel-api/internal/logger"
	"github.com/agendavel/agendavel-api/internal/notify"
	redisclient "github.com/agendavel/agendavel-api/internal/redis"
	"github.com/agendavel/agendavel-api/internal/scheduling"
)

const version = "0.3.0"

func main() {
	cfg, err := config.Load()
	if err != nil {
		fallback := logger.New("dev", "info")
		fallback.Fatal().Err(err).Msg("config load error")
	}

	log := logger.New(cfg.Env, cfg.LogLevel)
	log.Info().Str("env", cfg.Env).Str("http_port", cfg.HTTPPort).Msg("api-server starting up")

	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Connect Postgres
	pgCtx, cancelPg := context.WithTimeout(rootCtx, 10*time.Second)
	pgPool, err := db.ConnectPostgres(pgCtx, cfg.PostgresDSN)
	cancelPg()
	if err != nil {
		log.Fatal().Err(err).Msg("postgres connection error")
	}
	defer pgPool.Close()
	log.Info().Msg("connected to Postgres")

	// Connect Redis
	rdb, err := redisclient.NewRedisClient(cfg.RedisAddr, cfg.RedisUsername, cfg.RedisPassword)
	if err != nil {
		log.Fatal().Err(err).Msg("redis connection error")
	}
	defer func() {
		if err := rdb.Close(); err != nil {
			log.Warn().Err(err).Msg("error closing redis")
		}
	}()
	log.Info().Msg("connected to Redis")

	dirRepo := directory.NewPgRepository(pgPool)
	dirSvc := directory.NewService(dirRepo)

	schedRepo := scheduling.NewPgRepository(pgPool)
	locker := redisclient.NewRedisProviderLocker(rdb, cfg.LockTTL)
	slotCache := cache.NewAvailabilityCache(rdb, cfg.AvailabilityCacheTTL)
	schedSvc := scheduling.NewService(schedRepo, dirSvc, locker, slotCache, cfg, log)

	notifRepo := notify.NewPgRepository(pgPool)
	tokens := auth.NewTokenService(cfg.JWTSecret, cfg.JWTExpiry)

	router := api.NewRouter(api.RouterConfig{
		Scheduling:    schedSvc,
		Directory:     dirSvc,
		Notifications: notifRepo,
		Tokens:        tokens,
		Cache:         slotCache,
		PgPool:        pgPool,
		Redis:         rdb,
		Log:           log,
		Env:           cfg.Env,
		Version:       version,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", srv.Addr).Msg("http server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-rootCtx.Done():
		log.Info().Msg("shutdown signal received")
	case err := <-errCh:
		log.Error().Err(err).Msg("http server error")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("graceful shutdown failed")
		os.Exit(1)
	}

	log.Info().Msg("api-server stopped")
}
