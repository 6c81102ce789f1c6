package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/angelmondragon/quotation-engine/api/routes"
	"github.com/angelmondragon/quotation-engine/internal/bootstrap"
	"github.com/angelmondragon/quotation-engine/internal/notifications"
	"github.com/angelmondragon/quotation-engine/internal/pricing"
	"github.com/angelmondragon/quotation-engine/internal/quotes"
	"github.com/angelmondragon/quotation-engine/pkg/config"
	"github.com/angelmondragon/quotation-engine/pkg/metrics"
	"github.com/angelmondragon/quotation-engine/pkg/outbox"
)

const (
	readHeaderTimeout = 10 * time.Second
	shutdownTimeout   = 15 * time.Second
)

func main() {
	rt := bootstrap.Load("api", config.ServiceKindAPI)
	defer rt.Close(context.Background())
	cfg, logg := rt.Config, rt.Logger

	dbClient := rt.Database(context.Background())
	redisClient := rt.Redis(context.Background())

	calculator, err := pricing.NewCalculator(cfg.Pricing.JMDPerUSD)
	rt.Must("create pricing calculator", err)

	quoteService, err := quotes.NewService(quotes.ServiceParams{
		DB:         dbClient,
		Repository: quotes.NewRepository(dbClient.DB()),
		Outbox:     outbox.NewService(outbox.NewRepository(dbClient.DB()), logg),
		Calculator: calculator,
		Logger:     logg,
		Metrics:    metrics.NewQuoteMetrics(prometheus.DefaultRegisterer),
	})
	rt.Must("create quote service", err)

	notificationsService, err := notifications.NewService(notifications.NewRepository(dbClient.DB()))
	rt.Must("create notifications service", err)

	server := &http.Server{
		Addr: listenAddr(cfg.App.Port),
		Handler: routes.NewRouter(routes.Params{
			Config:        cfg,
			Logger:        logg,
			DB:            dbClient,
			Redis:         redisClient,
			Quotes:        quoteService,
			Notifications: notificationsService,
			Metrics:       promhttp.Handler(),
		}),
		ReadHeaderTimeout: readHeaderTimeout,
	}

	ctx, stop := rt.SignalContext()
	defer stop()
	ctx = logg.WithField(ctx, "addr", server.Addr)

	serveErr := make(chan error, 1)
	go func() {
		logg.Info(ctx, "starting api server")
		serveErr <- server.ListenAndServe()
	}()

	select {
	case err := <-serveErr:
		if !errors.Is(err, http.ErrServerClosed) {
			rt.Must("serve http", err)
		}
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logg.Error(ctx, "api server shutdown failed", err)
		}
		logg.Info(ctx, "api server stopped")
	}
}

// listenAddr prefers the platform-assigned PORT over the configured one.
func listenAddr(configured string) string {
	if port := os.Getenv("PORT"); port != "" {
		return ":" + port
	}
	return ":" + configured
}
