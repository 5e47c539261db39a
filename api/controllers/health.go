package controllers

import (
	"context"
	"net/http"
	"time"

	"github.com/jmoris/stpark-backend/api/responses"
	"github.com/jmoris/stpark-backend/pkg/config"
	pkgerrors "github.com/jmoris/stpark-backend/pkg/errors"
	"github.com/jmoris/stpark-backend/pkg/logger"
)

const envHeader = "X-STPark-Env"

const readyCheckTimeout = 2 * time.Second

type pinger interface {
	Ping(context.Context) error
}

func HealthLive(cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set(envHeader, cfg.App.Env)
		responses.WriteSuccess(w, map[string]string{"status": "live"})
	}
}

// HealthReady pings each dependency and fails closed when any is unreachable.
func HealthReady(cfg *config.Config, logg *logger.Logger, dbP, redisP pinger) http.HandlerFunc {
	checks := map[string]pinger{
		"database": dbP,
		"redis":    redisP,
	}
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set(envHeader, cfg.App.Env)

		ctx, cancel := context.WithTimeout(r.Context(), readyCheckTimeout)
		defer cancel()

		for name, check := range checks {
			if check == nil {
				continue
			}
			if err := check.Ping(ctx); err != nil {
				responses.WriteError(r.Context(), logg, w,
					pkgerrors.Wrap(pkgerrors.CodeDependency, err, name+" unavailable"))
				return
			}
		}

		responses.WriteSuccess(w, map[string]string{"status": "ready"})
	}
}
