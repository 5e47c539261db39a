package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/jmoris/stpark-backend/api/controllers"
	"github.com/jmoris/stpark-backend/api/middleware"
	"github.com/jmoris/stpark-backend/internal/debts"
	"github.com/jmoris/stpark-backend/internal/discount"
	"github.com/jmoris/stpark-backend/internal/operators"
	"github.com/jmoris/stpark-backend/internal/pricing"
	"github.com/jmoris/stpark-backend/internal/sessions"
	"github.com/jmoris/stpark-backend/internal/shifts"
	"github.com/jmoris/stpark-backend/pkg/clock"
	"github.com/jmoris/stpark-backend/pkg/config"
	"github.com/jmoris/stpark-backend/pkg/db"
	"github.com/jmoris/stpark-backend/pkg/enums"
	"github.com/jmoris/stpark-backend/pkg/logger"
	"github.com/jmoris/stpark-backend/pkg/redis"
)

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbP db.Pinger,
	redisClient *redis.Client,
	clk clock.Clock,
	operatorService operators.Service,
	sessionService sessions.Service,
	shiftService shifts.Service,
	debtService debts.Service,
	pricingRepo pricing.Repository,
	discountRepo discount.Repository,
	discountResolver *discount.Resolver,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(),
	)

	loginPolicy := middleware.NewAuthRateLimitPolicy(
		"login",
		cfg.AuthRateLimit.LoginWindow,
		cfg.AuthRateLimit.LoginIPLimit,
		cfg.AuthRateLimit.LoginOperatorLimit,
	)

	// A typed-nil client must not reach the middlewares as a non-nil interface.
	var idempotencyStore redis.IdempotencyStore
	var limiterStore middleware.RateLimiterStore
	var redisPinger redis.Pinger
	if redisClient != nil {
		idempotencyStore = redisClient
		limiterStore = redisClient
		redisPinger = redisClient
	}

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, dbP, redisPinger))
	})

	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/public", func(r chi.Router) {
		r.Get("/ping", controllers.PublicPing())
	})

	r.Route("/api/v1/auth", func(r chi.Router) {
		r.With(middleware.AuthRateLimit(loginPolicy, limiterStore, logg)).
			Post("/login", controllers.AuthLogin(operatorService, cfg.JWT, clk, logg))
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))
		r.Use(middleware.Idempotency(idempotencyStore, logg))

		r.Get("/ping", controllers.PrivatePing())

		r.Route("/sessions", func(r chi.Router) {
			r.Post("/checkin", controllers.SessionCheckIn(sessionService, logg))
			r.Get("/plate/{plate}/active", controllers.SessionActiveByPlate(sessionService, logg))
			r.Get("/plate/{plate}/history", controllers.SessionHistory(sessionService, logg))
			r.Route("/{sessionId}", func(r chi.Router) {
				r.Get("/", controllers.SessionDetail(sessionService, logg))
				r.Get("/quote", controllers.SessionQuote(sessionService, logg))
				r.Post("/checkout", controllers.SessionCheckout(sessionService, logg))
				r.Post("/cancel", controllers.SessionCancel(sessionService, logg))
			})
		})

		r.Route("/shifts", func(r chi.Router) {
			r.Post("/", controllers.ShiftOpen(shiftService, logg))
			r.Get("/current", controllers.ShiftCurrent(shiftService, logg))
			r.Route("/{shiftId}", func(r chi.Router) {
				r.Get("/", controllers.ShiftDetail(shiftService, logg))
				r.Get("/totals", controllers.ShiftReconcile(shiftService, logg))
				r.Get("/operations", controllers.ShiftOperations(shiftService, logg))
				r.Post("/deposit", controllers.ShiftDeposit(shiftService, logg))
				r.Post("/withdraw", controllers.ShiftWithdraw(shiftService, logg))
				r.Post("/close", controllers.ShiftClose(shiftService, logg))
			})
		})

		r.Route("/debts", func(r chi.Router) {
			r.Get("/", controllers.DebtList(debtService, logg))
			r.Route("/{debtId}", func(r chi.Router) {
				r.Get("/", controllers.DebtDetail(debtService, logg))
				r.Post("/settle", controllers.DebtSettle(debtService, logg))
			})
		})

		r.Get("/discounts/{code}", controllers.DiscountFindByCode(discountResolver, logg))
	})

	r.Route("/api/admin/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))
		r.Use(middleware.RequireRole(string(enums.RoleAdmin), logg))
		r.Use(middleware.Idempotency(idempotencyStore, logg))

		r.Get("/ping", controllers.AdminPing())

		r.Route("/operators", func(r chi.Router) {
			r.Get("/", controllers.OperatorList(operatorService, logg))
			r.Post("/", controllers.OperatorCreate(operatorService, logg))
			r.Delete("/{operatorId}", controllers.OperatorDeactivate(operatorService, logg))
		})

		r.Route("/sessions/{sessionId}", func(r chi.Router) {
			r.Post("/force-checkout", controllers.SessionForceCheckout(sessionService, logg))
		})

		r.Route("/pricing/profiles", func(r chi.Router) {
			r.Get("/", controllers.PricingProfileList(pricingRepo, logg))
			r.Post("/", controllers.PricingProfileCreate(pricingRepo, logg))
			r.Get("/{profileId}", controllers.PricingProfileDetail(pricingRepo, logg))
			r.Post("/{profileId}/rules", controllers.PricingRuleCreate(pricingRepo, logg))
		})

		r.Route("/discounts", func(r chi.Router) {
			r.Get("/", controllers.DiscountList(discountRepo, logg))
			r.Post("/", controllers.DiscountCreate(discountRepo, logg))
		})

		r.Route("/debts", func(r chi.Router) {
			r.Post("/", controllers.DebtCreate(debtService, logg))
			r.Post("/{debtId}/cancel", controllers.DebtCancel(debtService, logg))
		})
	})

	return r
}
