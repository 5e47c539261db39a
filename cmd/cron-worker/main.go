package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/jmoris/stpark-backend/internal/cron"
	"github.com/jmoris/stpark-backend/internal/debts"
	"github.com/jmoris/stpark-backend/internal/discount"
	"github.com/jmoris/stpark-backend/internal/operators"
	"github.com/jmoris/stpark-backend/internal/pricing"
	"github.com/jmoris/stpark-backend/internal/sessions"
	"github.com/jmoris/stpark-backend/internal/shifts"
	"github.com/jmoris/stpark-backend/pkg/clock"
	"github.com/jmoris/stpark-backend/pkg/config"
	"github.com/jmoris/stpark-backend/pkg/db"
	"github.com/jmoris/stpark-backend/pkg/logger"
	"github.com/jmoris/stpark-backend/pkg/metrics"
	"github.com/jmoris/stpark-backend/pkg/migrate"
	"github.com/jmoris/stpark-backend/pkg/outbox"
	"github.com/jmoris/stpark-backend/pkg/redis"
)

const lockKeyFormat = "stpark:cron-worker:lock:%s"

func main() {
	logg := logger.New(logger.Options{ServiceName: "cron-worker"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	cfg.Service.Kind = "cron-worker"

	logg = logger.New(logger.Options{
		ServiceName: "cron-worker",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	clk := clock.System()
	outboxRepo := outbox.NewRepository(dbClient.DB())
	outboxService := outbox.NewService(outboxRepo, logg)

	sessionService, err := buildSessionService(cfg, dbClient, outboxService, clk)
	if err != nil {
		logg.Error(context.Background(), "failed to create session service", err)
		os.Exit(1)
	}

	expiryJob, err := cron.NewSessionExpiryJob(cron.SessionExpiryJobParams{
		Logger:   logg,
		Sessions: sessionService,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create session expiry job", err)
		os.Exit(1)
	}

	retentionJob, err := cron.NewOutboxRetentionJob(cron.OutboxRetentionJobParams{
		Logger:     logg,
		Repository: outboxRepo,
		Retention:  cfg.Outbox.Retention,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create outbox retention job", err)
		os.Exit(1)
	}

	metricsCollector := metrics.NewCronJobMetrics(prometheus.DefaultRegisterer)
	lock, err := cron.NewRedisLock(redisClient, lockKey(cfg.App.Env), 0)
	if err != nil {
		logg.Error(context.Background(), "failed to create cron lock", err)
		os.Exit(1)
	}

	registry := cron.NewRegistry(expiryJob, retentionJob)
	service, err := cron.NewService(cron.ServiceParams{
		Logger:   logg,
		Registry: registry,
		Lock:     lock,
		Metrics:  metricsCollector,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create cron service", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":         cfg.App.Env,
		"serviceKind": cfg.Service.Kind,
	})
	logg.Info(ctx, "starting cron worker")

	if err := service.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(ctx, "cron worker stopped unexpectedly", err)
		os.Exit(1)
	}

	logg.Info(ctx, "cron worker shutting down gracefully")
}

func buildSessionService(cfg *config.Config, dbClient *db.Client, outboxService *outbox.Service, clk clock.Clock) (sessions.Service, error) {
	operatorService, err := operators.NewService(operators.NewRepository(dbClient.DB()), cfg.Pin)
	if err != nil {
		return nil, err
	}
	shiftService, err := shifts.NewService(dbClient, shifts.NewRepository(dbClient.DB()), operatorService, outboxService, clk)
	if err != nil {
		return nil, err
	}
	debtService, err := debts.NewService(dbClient, debts.NewRepository(dbClient.DB()), shiftService, outboxService, clk)
	if err != nil {
		return nil, err
	}
	return sessions.NewService(
		dbClient,
		sessions.NewRepository(dbClient.DB()),
		pricing.NewResolver(pricing.NewRepository(dbClient.DB())),
		discount.NewResolver(discount.NewRepository(dbClient.DB())),
		shiftService,
		debtService,
		outboxService,
		clk,
		cfg.Sessions.MaxDuration,
	)
}

func lockKey(env string) string {
	if env == "" {
		env = "local"
	}
	return fmt.Sprintf(lockKeyFormat, env)
}
