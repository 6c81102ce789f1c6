// Package bootstrap holds the startup sequence shared by the long-running
// binaries: env loading, config validation, logger construction and the
// backing clients, each closed in reverse order on shutdown.
package bootstrap

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/angelmondragon/quotation-engine/pkg/config"
	"github.com/angelmondragon/quotation-engine/pkg/db"
	"github.com/angelmondragon/quotation-engine/pkg/logger"
	"github.com/angelmondragon/quotation-engine/pkg/migrate"
	"github.com/angelmondragon/quotation-engine/pkg/pubsub"
	"github.com/angelmondragon/quotation-engine/pkg/redis"
)

type closer struct {
	name string
	fn   func() error
}

// Runtime is a validated config plus the logger built from it.
type Runtime struct {
	Config *config.Config
	Logger *logger.Logger

	exit    func(code int)
	closers []closer
}

// Load reads .env and the environment, validates the config for kind and
// returns a runtime whose logger carries the configured level. It exits the
// process when the config is unusable.
func Load(service, kind string) *Runtime {
	rt := &Runtime{
		Logger: logger.New(logger.Options{ServiceName: service}),
		exit:   os.Exit,
	}
	if err := godotenv.Load(); err != nil {
		rt.Logger.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	rt.Must("load config", err)
	cfg.Service.Kind = kind
	rt.Must("validate config", cfg.ValidateFor(kind))

	rt.Config = cfg
	rt.Logger = logger.New(logger.Options{
		ServiceName: service,
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})
	return rt
}

// Must logs err and exits after running the registered closers.
func (r *Runtime) Must(step string, err error) {
	if err == nil {
		return
	}
	ctx := context.Background()
	r.Logger.Error(ctx, fmt.Sprintf("failed to %s", step), err)
	r.Close(ctx)
	r.exit(1)
}

func (r *Runtime) onClose(name string, fn func() error) {
	r.closers = append(r.closers, closer{name: name, fn: fn})
}

// Close releases every client opened through the runtime, newest first.
func (r *Runtime) Close(ctx context.Context) {
	for i := len(r.closers) - 1; i >= 0; i-- {
		c := r.closers[i]
		if err := c.fn(); err != nil {
			r.Logger.Error(ctx, "error closing "+c.name, err)
		}
	}
	r.closers = nil
}

// Database connects to Postgres and applies dev migrations when enabled.
func (r *Runtime) Database(ctx context.Context) *db.Client {
	client, err := db.New(ctx, r.Config.DB, r.Logger)
	r.Must("bootstrap database", err)
	r.onClose("database", client.Close)
	r.Must("run dev migrations", migrate.MaybeRunDev(ctx, r.Config, r.Logger, client))
	return client
}

func (r *Runtime) Redis(ctx context.Context) *redis.Client {
	client, err := redis.New(ctx, r.Config.Redis, r.Logger)
	r.Must("bootstrap redis", err)
	r.onClose("redis", client.Close)
	return client
}

func (r *Runtime) PubSub(ctx context.Context) *pubsub.Client {
	client, err := pubsub.NewClient(ctx, r.Config.GCP, r.Config.PubSub, r.Logger)
	r.Must("bootstrap pubsub", err)
	r.onClose("pubsub client", client.Close)
	return client
}

// SignalContext is cancelled on SIGINT or SIGTERM and carries the env field.
func (r *Runtime) SignalContext() (context.Context, context.CancelFunc) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	return r.Logger.WithField(ctx, "env", r.Config.App.Env), stop
}
