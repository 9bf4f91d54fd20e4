package main

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/slotwise/provider-booking/internal/booking"
	"github.com/slotwise/provider-booking/internal/config"
	"github.com/slotwise/provider-booking/internal/db"
	"github.com/slotwise/provider-booking/internal/observability"
	redisclient "github.com/slotwise/provider-booking/internal/redis"
)

// Standalone expiry sweeper, for deployments that run the sweep outside
// the API process. Disable SWEEP_ENABLED on api-server when using it.
func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("config load error: " + err.Error())
	}

	logger := observability.NewLogger(cfg.Env)
	defer logger.Sync()

	logger.Info("sweeper starting up",
		zap.String("env", cfg.Env),
		zap.Duration("interval", cfg.SweepInterval),
		zap.Duration("grace_period", cfg.GracePeriod),
	)

	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pgCtx, cancelPg := context.WithTimeout(rootCtx, 10*time.Second)
	pgPool, err := db.ConnectPostgres(pgCtx, cfg.PostgresDSN, int32(cfg.PgMaxConns))
	cancelPg()
	if err != nil {
		logger.Fatal("postgres connection error", zap.Error(err))
	}
	defer pgPool.Close()
	logger.Info("connected to Postgres")

	rdb, err := redisclient.NewRedisClient(cfg.RedisAddr, cfg.RedisUsername, cfg.RedisPassword)
	if err != nil {
		logger.Fatal("redis connection error", zap.Error(err))
	}
	defer func() {
		if err := rdb.Close(); err != nil {
			logger.Error("error closing redis", zap.Error(err))
		}
	}()

	repo := booking.NewPgRepository(pgPool)
	locker := redisclient.NewRedisSlotLocker(rdb, cfg.LockTTL)
	svc := booking.NewService(repo, locker, cfg, logger)

	sweeper := booking.NewSweeper(svc, cfg.SweepInterval, logger)
	sweeper.Start(rootCtx)

	<-rootCtx.Done()
	logger.Info("shutdown signal received, stopping sweeper")
	sweeper.Stop()
}
