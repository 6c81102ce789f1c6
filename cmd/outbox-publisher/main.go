package main

import (
	"context"
	"errors"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/angelmondragon/quotation-engine/internal/bootstrap"
	"github.com/angelmondragon/quotation-engine/pkg/config"
	"github.com/angelmondragon/quotation-engine/pkg/metrics"
	"github.com/angelmondragon/quotation-engine/pkg/outbox"
	"github.com/angelmondragon/quotation-engine/pkg/outbox/registry"
)

func main() {
	rt := bootstrap.Load("outbox-publisher", config.ServiceKindOutboxPublisher)
	defer rt.Close(context.Background())

	dbClient := rt.Database(context.Background())
	pubsubClient := rt.PubSub(context.Background())

	events, err := registry.NewEventRegistry(rt.Config.PubSub)
	rt.Must("build event registry", err)

	service, err := NewService(ServiceParams{
		Config:        rt.Config,
		Logger:        rt.Logger,
		Metrics:       metrics.NewOutboxMetrics(prometheus.DefaultRegisterer),
		DB:            dbClient,
		PubSub:        pubsubClient,
		Repository:    outbox.NewRepository(dbClient.DB()),
		Registry:      events,
		DLQRepository: outbox.NewDLQRepository(dbClient.DB()),
	})
	rt.Must("create outbox publisher", err)

	ctx, stop := rt.SignalContext()
	defer stop()
	ctx = rt.Logger.WithFields(ctx, map[string]any{
		"batch_size":   rt.Config.Outbox.BatchSize,
		"max_attempts": rt.Config.Outbox.MaxAttempts,
	})

	rt.Logger.Info(ctx, "starting outbox publisher")
	if err := service.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		rt.Must("keep publishing", err)
	}
	rt.Logger.Info(ctx, "outbox publisher stopped")
}
