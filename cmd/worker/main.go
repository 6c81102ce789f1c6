package main

import (
	"context"
	"errors"

	"github.com/angelmondragon/quotation-engine/internal/bootstrap"
	"github.com/angelmondragon/quotation-engine/internal/notifications"
	"github.com/angelmondragon/quotation-engine/pkg/config"
	"github.com/angelmondragon/quotation-engine/pkg/outbox/idempotency"
)

func main() {
	rt := bootstrap.Load("worker", config.ServiceKindWorker)
	defer rt.Close(context.Background())

	dbClient := rt.Database(context.Background())
	redisClient := rt.Redis(context.Background())
	pubsubClient := rt.PubSub(context.Background())

	manager, err := idempotency.NewManager(redisClient, rt.Config.Eventing.OutboxIdempotencyTTL)
	rt.Must("create idempotency manager", err)

	subscription := pubsubClient.NotificationSubscription()
	if subscription == nil {
		rt.Must("find notification subscription", errors.New("subscription not configured"))
	}

	consumer, err := notifications.NewConsumer(
		notifications.NewRepository(dbClient.DB()),
		subscription,
		manager,
		rt.Logger,
	)
	rt.Must("create notification consumer", err)

	service, err := NewService(ServiceParams{
		Config:               rt.Config,
		Logger:               rt.Logger,
		DB:                   dbClient,
		Redis:                redisClient,
		PubSub:               pubsubClient,
		NotificationConsumer: consumer,
	})
	rt.Must("create worker service", err)

	ctx, stop := rt.SignalContext()
	defer stop()

	rt.Logger.Info(ctx, "starting worker")
	if err := service.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		rt.Must("keep consuming", err)
	}
	rt.Logger.Info(ctx, "worker stopped")
}
