package controllers

import (
	"context"
	"net/http"
	"time"

	"github.com/angelmondragon/quotation-engine/api/responses"
	"github.com/angelmondragon/quotation-engine/pkg/config"
	pkgerrors "github.com/angelmondragon/quotation-engine/pkg/errors"
	"github.com/angelmondragon/quotation-engine/pkg/logger"
)

const readinessTimeout = 2 * time.Second

type pinger interface {
	Ping(ctx context.Context) error
}

func HealthLive(cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Quotation-Env", cfg.App.Env)
		responses.WriteSuccess(w, map[string]string{"status": "live"})
	}
}

// HealthReady pings the database and redis. Any failure reports 503.
func HealthReady(cfg *config.Config, logg *logger.Logger, dbPinger, redisPinger pinger) http.HandlerFunc {
	deps := []struct {
		name string
		p    pinger
	}{
		{name: "database", p: dbPinger},
		{name: "redis", p: redisPinger},
	}
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Quotation-Env", cfg.App.Env)

		ctx, cancel := context.WithTimeout(r.Context(), readinessTimeout)
		defer cancel()

		checks := map[string]string{}
		var failed *pkgerrors.Error
		for _, dep := range deps {
			if dep.p == nil {
				checks[dep.name] = "missing"
				failed = pkgerrors.Newf(pkgerrors.CodeDependency, "%s not configured", dep.name)
				continue
			}
			if err := dep.p.Ping(ctx); err != nil {
				checks[dep.name] = "down"
				failed = pkgerrors.Wrap(pkgerrors.CodeDependency, err, dep.name+" ping failed")
				continue
			}
			checks[dep.name] = "ok"
		}

		if failed != nil {
			responses.WriteError(r.Context(), logg, w, failed.WithDetails(checks))
			return
		}
		responses.WriteSuccess(w, map[string]any{"status": "ready", "checks": checks})
	}
}
