package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/angelmondragon/quotation-engine/internal/drafts"
	"github.com/angelmondragon/quotation-engine/internal/engine"
	"github.com/angelmondragon/quotation-engine/internal/pricing"
	"github.com/angelmondragon/quotation-engine/pkg/backend"
	"github.com/angelmondragon/quotation-engine/pkg/config"
	"github.com/angelmondragon/quotation-engine/pkg/dynamo"
	"github.com/angelmondragon/quotation-engine/pkg/logger"
	"github.com/angelmondragon/quotation-engine/pkg/metrics"
	"github.com/angelmondragon/quotation-engine/pkg/redis"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "quote", Output: os.Stderr})
	_ = godotenv.Load()

	requestID := flag.String("request", "", "service request id")
	rawAction := flag.String("action", "show", "show|totals|recalc|submit|accept|reject|discard")
	paramsPath := flag.String("params", "", "JSON or YAML file with quote parameters")
	reason := flag.String("reason", "", "rejection reason (for -action reject)")
	flag.Parse()

	if *requestID == "" {
		fail("missing -request")
	}
	act, err := parseAction(*rawAction)
	if err != nil {
		fail("%v", err)
	}
	params, err := loadParams(*paramsPath)
	if err != nil {
		fail("%v", err)
	}

	cfg, err := config.Load()
	requireResource(logg, "config", err)
	requireResource(logg, "config", cfg.ValidateFor(config.ServiceKindCLI))

	logg = logger.New(logger.Options{
		ServiceName: "quote",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
		Output:      os.Stderr,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":    cfg.App.Env,
		"action": string(act),
	})

	store, closeStore := draftStore(ctx, cfg, logg)
	defer closeStore()

	quoteMetrics := metrics.NewQuoteMetrics(prometheus.NewRegistry())
	autosaver, err := drafts.NewAutosaver(drafts.AutosaverParams{
		Store:        store,
		Logger:       logg,
		Metrics:      quoteMetrics,
		WriteTimeout: cfg.Drafts.AutosaveTimeout,
	})
	requireResource(logg, "autosaver", err)

	client, err := backend.NewClient(cfg.Backend.BaseURL,
		backend.WithToken(cfg.Backend.Token),
		backend.WithTimeout(cfg.Backend.Timeout),
	)
	requireResource(logg, "backend client", err)

	calculator, err := pricing.NewCalculator(cfg.Pricing.JMDPerUSD)
	requireResource(logg, "pricing calculator", err)

	session, err := engine.NewSession(engine.Params{
		RequestID:  *requestID,
		Backend:    client,
		Drafts:     autosaver,
		Calculator: calculator,
		Logger:     logg,
		Metrics:    quoteMetrics,
	})
	requireResource(logg, "session", err)

	runErr := run(ctx, session, runOptions{Action: act, Params: params, Reason: *reason}, os.Stdout)

	// Close flushes queued draft writes before the process exits.
	if err := autosaver.Close(); err != nil {
		logg.Error(ctx, "flush drafts", err)
	}
	if runErr != nil {
		fail("%s failed: %v", act, runErr)
	}
}

func draftStore(ctx context.Context, cfg *config.Config, logg *logger.Logger) (drafts.Store, func()) {
	switch cfg.Drafts.Store {
	case config.DraftStoreMemory:
		logg.Warn(ctx, "memory draft store selected; drafts are lost when the command exits")
		return drafts.NewMemoryStore(), func() {}
	case config.DraftStoreDynamo:
		ddb, err := dynamo.New(ctx, cfg.AWS, logg)
		requireResource(logg, "dynamodb", err)
		store, err := drafts.NewDynamoStore(ddb, cfg.Drafts.DynamoTable)
		requireResource(logg, "draft store", err)
		return store, func() {}
	}
	redisClient, err := redis.New(ctx, cfg.Redis, logg)
	requireResource(logg, "redis", err)
	store, err := drafts.NewRedisStore(redisClient)
	requireResource(logg, "draft store", err)
	return store, func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(ctx, "error closing redis", err)
		}
	}
}

func requireResource(logg *logger.Logger, name string, err error) {
	if err != nil {
		logg.Error(context.Background(), fmt.Sprintf("failed to initialize %s", name), err)
		os.Exit(1)
	}
}

func fail(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}
