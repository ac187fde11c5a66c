package controllers

import (
	"context"
	"net/http"
	"time"

	"github.com/naili/storefront/api/responses"
	"github.com/naili/storefront/pkg/config"
	pkgerrors "github.com/naili/storefront/pkg/errors"
	"github.com/naili/storefront/pkg/logger"
)

const readinessTimeout = 2 * time.Second

type pinger interface {
	Ping(ctx context.Context) error
}

func HealthLive(cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Storefront-Env", cfg.App.Env)
		responses.WriteSuccess(w, map[string]string{"status": "live"})
	}
}

// HealthReady pings the database and redis. A nil redis pinger is skipped.
func HealthReady(cfg *config.Config, logg *logger.Logger, dbP, redisP pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Storefront-Env", cfg.App.Env)

		ctx, cancel := context.WithTimeout(r.Context(), readinessTimeout)
		defer cancel()

		failed := map[string]string{}
		if dbP == nil {
			failed["database"] = "not configured"
		} else if err := dbP.Ping(ctx); err != nil {
			failed["database"] = err.Error()
		}
		if redisP != nil {
			if err := redisP.Ping(ctx); err != nil {
				failed["redis"] = err.Error()
			}
		}

		if len(failed) > 0 {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeRemoteUnavailable, "dependencies unavailable").WithDetails(failed))
			return
		}
		responses.WriteSuccess(w, map[string]string{"status": "ready"})
	}
}
