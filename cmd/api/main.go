package main

import (
	"context"
	"net/http"
	"os"

	"github.com/joho/godotenv"

	"github.com/jmoris/stpark-backend/api/routes"
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
	"github.com/jmoris/stpark-backend/pkg/migrate"
	"github.com/jmoris/stpark-backend/pkg/outbox"
	"github.com/jmoris/stpark-backend/pkg/redis"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
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
	outboxService := outbox.NewService(outbox.NewRepository(dbClient.DB()), logg)

	operatorService, err := operators.NewService(operators.NewRepository(dbClient.DB()), cfg.Pin)
	if err != nil {
		logg.Error(context.Background(), "failed to create operator service", err)
		os.Exit(1)
	}

	shiftService, err := shifts.NewService(dbClient, shifts.NewRepository(dbClient.DB()), operatorService, outboxService, clk)
	if err != nil {
		logg.Error(context.Background(), "failed to create shift service", err)
		os.Exit(1)
	}

	debtService, err := debts.NewService(dbClient, debts.NewRepository(dbClient.DB()), shiftService, outboxService, clk)
	if err != nil {
		logg.Error(context.Background(), "failed to create debt service", err)
		os.Exit(1)
	}

	pricingRepo := pricing.NewRepository(dbClient.DB())
	discountRepo := discount.NewRepository(dbClient.DB())
	discountResolver := discount.NewResolver(discountRepo)

	sessionService, err := sessions.NewService(
		dbClient,
		sessions.NewRepository(dbClient.DB()),
		pricing.NewResolver(pricingRepo),
		discountResolver,
		shiftService,
		debtService,
		outboxService,
		clk,
		cfg.Sessions.MaxDuration,
	)
	if err != nil {
		logg.Error(context.Background(), "failed to create session service", err)
		os.Exit(1)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(
			cfg,
			logg,
			dbClient,
			redisClient,
			clk,
			operatorService,
			sessionService,
			shiftService,
			debtService,
			pricingRepo,
			discountRepo,
			discountResolver,
		),
	}

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}
