package cmd

import (
	"context"
	"fmt"
	"net/http"

	"bankclient/config"
	"bankclient/internal/repo"
	"bankclient/internal/service"
	"bankclient/internal/utils"
	"bankclient/pkg/interceptor"

	"github.com/spf13/cobra"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Module wires the client core: stores, API client, dispatcher, cache, scheduler, session.
var Module = fx.Options(
	fx.Provide(
		config.LoadConfig,
		NewLogger,
		service.NewClock,
		NewCacheStore,
		NewSessionStore,
		NewActivityPublisher,
		NewHTTPTransport,
		fx.Annotate(repo.NewAPIClient, fx.As(new(service.Transport))),
		NewCache,
		NewTransactionSink,
		service.NewDispatcher,
		NewTokenScheduler,
		service.NewSession,
	),
	fx.WithLogger(NewFxLogger),
	fx.Invoke(InitRequestIDs),
)

func NewLogger(config *config.Config) (*zap.Logger, error) {
	zc := zap.NewProductionConfig()
	if config.Log.Development {
		zc = zap.NewDevelopmentConfig()
	}
	level, err := zap.ParseAtomicLevel(config.Log.Level)
	if err != nil {
		return nil, fmt.Errorf("invalid LOG_LEVEL: %w", err)
	}
	zc.Level = level
	return zc.Build()
}

func NewFxLogger(logger *zap.Logger) fxevent.Logger {
	l := &fxevent.ZapLogger{Logger: logger.With(zap.String("component", "fx"))}
	l.UseLogLevel(zapcore.DebugLevel)
	return l
}

func InitRequestIDs(config *config.Config) error {
	return utils.InitSnowflake(config.Snowflake.Node)
}

func NewCacheStore(lc fx.Lifecycle, cfg *config.Config) (repo.CacheStore, error) {
	if cfg.Cache.Driver == config.DriverMemory {
		return repo.NewMemoryStore(), nil
	}

	db, err := repo.NewPostgresDB(cfg)
	if err != nil {
		return nil, err
	}
	store := repo.NewPostgresStore(db)
	lc.Append(fx.Hook{
		OnStart: store.EnsureSchema,
		OnStop: func(ctx context.Context) error {
			return db.Close()
		},
	})
	return store, nil
}

func NewSessionStore(lc fx.Lifecycle, cfg *config.Config) (service.SessionStore, error) {
	if cfg.Session.Driver == config.DriverMemory {
		return repo.NewMemorySessionStore(), nil
	}

	rdb, err := repo.NewRedisClient(cfg)
	if err != nil {
		return nil, err
	}
	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			return rdb.Close()
		},
	})
	return repo.NewRedisSessionStore(rdb, cfg), nil
}

func NewActivityPublisher(lc fx.Lifecycle, config *config.Config, logger *zap.Logger) repo.Kafka {
	publisher := repo.NewKafkaWriter(config, logger)
	if w, ok := publisher.(*repo.KafkaWriter); ok {
		lc.Append(fx.Hook{
			OnStop: func(ctx context.Context) error {
				return w.Close()
			},
		})
	}
	return publisher
}

func NewHTTPTransport(logger *zap.Logger) http.RoundTripper {
	return interceptor.NewRequestLogger(nil, logger)
}

func NewCache(lc fx.Lifecycle, store repo.CacheStore, events repo.Kafka, clock service.Clock, logger *zap.Logger) *service.Cache {
	cache := service.NewCache(store, events, clock, logger)
	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			cache.Close()
			return nil
		},
	})
	return cache
}

func NewTransactionSink(cache *service.Cache) service.TransactionSink {
	return cache
}

func NewTokenScheduler(lc fx.Lifecycle, config *config.Config, dispatcher *service.Dispatcher, clock service.Clock, logger *zap.Logger) *service.TokenScheduler {
	scheduler := service.NewTokenScheduler(config, dispatcher, clock, logger)
	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			scheduler.Dismiss()
			return nil
		},
	})
	return scheduler
}

// withSession starts the app for a single command, resumes any persisted session and
// runs fn against it.
func withSession(cmd *cobra.Command, fn func(ctx context.Context, session *service.Session) error) error {
	var session *service.Session
	app := fx.New(Module, fx.Populate(&session))
	if err := app.Err(); err != nil {
		return err
	}

	startCtx, cancel := context.WithTimeout(cmd.Context(), app.StartTimeout())
	defer cancel()
	if err := app.Start(startCtx); err != nil {
		return err
	}
	defer func() {
		stopCtx, cancel := context.WithTimeout(context.Background(), app.StopTimeout())
		defer cancel()
		_ = app.Stop(stopCtx)
	}()

	if _, err := session.Restore(cmd.Context()); err != nil {
		return err
	}
	return fn(cmd.Context(), session)
}
