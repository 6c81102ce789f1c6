package routes

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/angelmondragon/quotation-engine/api/controllers"
	"github.com/angelmondragon/quotation-engine/api/middleware"
	"github.com/angelmondragon/quotation-engine/internal/notifications"
	"github.com/angelmondragon/quotation-engine/internal/quotes"
	"github.com/angelmondragon/quotation-engine/pkg/config"
	"github.com/angelmondragon/quotation-engine/pkg/db"
	"github.com/angelmondragon/quotation-engine/pkg/enums"
	"github.com/angelmondragon/quotation-engine/pkg/logger"
	pkgredis "github.com/angelmondragon/quotation-engine/pkg/redis"
)

// redisStore is the slice of the redis client the HTTP surface needs.
type redisStore interface {
	middleware.ReplayStore
	pkgredis.Pinger
	FixedWindowAllow(ctx context.Context, scope string, limit int64, window time.Duration) (bool, int64, error)
}

// Params collects the dependencies NewRouter wires. Nil Redis disables
// idempotent replay and write throttling.
type Params struct {
	Config        *config.Config
	Logger        *logger.Logger
	DB            db.Pinger
	Redis         redisStore
	Quotes        quotes.Service
	Notifications notifications.Service
	Metrics       http.Handler
}

func NewRouter(p Params) http.Handler {
	cfg, logg := p.Config, p.Logger

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(cfg.App.CORSOrigins),
	)

	writePolicy := middleware.WriteRateLimitPolicy{
		Name:   "quote-writes",
		Window: cfg.RateLimit.QuoteWriteWindow,
		Limit:  cfg.RateLimit.QuoteWriteLimit,
	}

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, p.DB, p.Redis))
	})
	if p.Metrics != nil {
		r.Handle("/metrics", p.Metrics)
	}

	r.Get("/api/public/ping", controllers.PublicPing())

	r.Route("/api", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))
		r.Use(middleware.WriteRateLimit(writePolicy, p.Redis, logg))

		r.Get("/ping", controllers.PrivatePing())

		idempotent := middleware.Idempotency(p.Redis, middleware.DefaultIdempotencyTTL, logg)
		adminOnly := middleware.RequireRole(enums.UserRoleAdmin, logg)

		r.Route("/quotes/{requestId}", func(r chi.Router) {
			r.Get("/", controllers.GetQuote(p.Quotes, logg))
			r.With(adminOnly, idempotent).Post("/", controllers.SubmitQuote(p.Quotes, logg))
			r.With(idempotent).Post("/accept", controllers.AcceptQuote(p.Quotes, logg))
			r.With(idempotent).Post("/reject", controllers.RejectQuote(p.Quotes, logg))
		})

		r.Route("/notifications", func(r chi.Router) {
			r.Get("/", controllers.ListNotifications(p.Notifications, logg))
			r.Post("/{notificationId}/read", controllers.MarkNotificationRead(p.Notifications, logg))
			r.Post("/read-all", controllers.MarkAllNotificationsRead(p.Notifications, logg))
		})
	})

	return r
}
