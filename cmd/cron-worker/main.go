package main

import (
	"context"
	"errors"
	"flag"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/angelmondragon/quotation-engine/internal/bootstrap"
	"github.com/angelmondragon/quotation-engine/internal/cron"
	"github.com/angelmondragon/quotation-engine/internal/notifications"
	"github.com/angelmondragon/quotation-engine/pkg/config"
	"github.com/angelmondragon/quotation-engine/pkg/metrics"
	"github.com/angelmondragon/quotation-engine/pkg/outbox"
)

const lockKeyFormat = "quotation:cron-worker:lock:%s"

func main() {
	once := flag.Bool("once", false, "run every job a single time and exit")
	flag.Parse()

	rt := bootstrap.Load("cron-worker", config.ServiceKindCron)
	defer rt.Close(context.Background())
	cfg := rt.Config

	dbClient := rt.Database(context.Background())
	redisClient := rt.Redis(context.Background())

	lock, err := cron.NewRedisLock(redisClient, lockKey(cfg.App.Env), 0)
	rt.Must("create cron lock", err)

	notificationCleanup, err := cron.NewNotificationCleanupJob(cron.NotificationCleanupJobParams{
		DB:            dbClient,
		Repository:    notifications.NewRepository(dbClient.DB()),
		RetentionDays: cfg.Cron.NotificationRetentionDays,
	})
	rt.Must("create notification cleanup job", err)

	outboxRetention, err := cron.NewOutboxRetentionJob(cron.OutboxRetentionJobParams{
		DB:               dbClient,
		Repository:       outbox.NewRepository(dbClient.DB()),
		RetentionDays:    cfg.Cron.OutboxRetentionDays,
		TerminalAttempts: cfg.Outbox.MaxAttempts,
	})
	rt.Must("create outbox retention job", err)

	service, err := cron.NewService(cron.ServiceParams{
		Logger:   rt.Logger,
		Registry: cron.NewRegistry(notificationCleanup, outboxRetention),
		Lock:     lock,
		Metrics:  metrics.NewCronJobMetrics(prometheus.DefaultRegisterer),
		Interval: cfg.Cron.Interval,
	})
	rt.Must("create cron service", err)

	ctx, stop := rt.SignalContext()
	defer stop()
	ctx = rt.Logger.WithFields(ctx, map[string]any{
		"interval": cfg.Cron.Interval.String(),
		"once":     *once,
	})

	if *once {
		rt.Must("run cron jobs", service.RunOnce(ctx))
		return
	}

	rt.Logger.Info(ctx, "starting cron worker")
	if err := service.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		rt.Must("keep scheduling", err)
	}
	rt.Logger.Info(ctx, "cron worker stopped")
}

func lockKey(env string) string {
	if env == "" {
		env = "local"
	}
	return fmt.Sprintf(lockKeyFormat, env)
}
