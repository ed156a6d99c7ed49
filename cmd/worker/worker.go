package main

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/septivank/greenhouse-telemetry-worker/internal/config"
	"github.com/septivank/greenhouse-telemetry-worker/internal/db"
	"github.com/septivank/greenhouse-telemetry-worker/internal/httpapi"
	"github.com/septivank/greenhouse-telemetry-worker/internal/mq"
	"github.com/septivank/greenhouse-telemetry-worker/internal/repository"
	"github.com/septivank/greenhouse-telemetry-worker/internal/service"
	"github.com/septivank/greenhouse-telemetry-worker/internal/state"
	"github.com/septivank/greenhouse-telemetry-worker/internal/validator"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

func startConsumer(
	lc fx.Lifecycle,
	conn *mq.Connection,
	cfg *config.Config,
	logger *zap.Logger,
	processor *service.Processor,
) (*mq.Consumer, error) {
	// Create context for consumer that will be cancelled on shutdown
	ctx, cancel := context.WithCancel(context.Background())

	consumer, err := mq.NewConsumer(mq.ConsumerConfig{
		Connection:    conn,
		Queue:         cfg.RabbitMQ.IngestQueue,
		DLQQueue:      cfg.RabbitMQ.DLQQueue,
		Exchange:      cfg.RabbitMQ.IngestExchange,
		RoutingKey:    cfg.RabbitMQ.IngestRoutingKey,
		PrefetchCount: cfg.RabbitMQ.PrefetchCount,
		Logger:        logger,
		Handler:       processor.HandleDelivery,
	})
	if err != nil {
		cancel()
		return nil, err
	}

	// Register lifecycle hooks
	lc.Append(fx.Hook{
		OnStart: func(startCtx context.Context) error {
			logger.Info("starting telemetry consumer",
				zap.String("queue", cfg.RabbitMQ.IngestQueue),
				zap.Int("prefetch", cfg.RabbitMQ.PrefetchCount))
			return consumer.Start(ctx)
		},
		OnStop: func(stopCtx context.Context) error {
			cancel()
			if err := consumer.Close(); err != nil {
				logger.Error("failed to close consumer", zap.Error(err))
				return err
			}
			logger.Info("consumer stopped gracefully")
			return nil
		},
	})

	return consumer, nil
}

func startHTTPServer(
	lc fx.Lifecycle,
	cfg *config.Config,
	logger *zap.Logger,
	srv *httpapi.Server,
) {
	httpSrv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.ServicePort),
		Handler:      srv.Handler(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			logger.Info("starting report HTTP server", zap.Int("port", cfg.ServicePort))
			go func() {
				if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					logger.Error("http server error", zap.Error(err))
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			if err := httpSrv.Shutdown(ctx); err != nil {
				logger.Error("http server shutdown failed", zap.Error(err))
				return err
			}
			logger.Info("http server stopped gracefully")
			return nil
		},
	})
}

// ProvideRepository creates a new repository instance
func ProvideRepository(pool *db.Pool, cfg *config.Config) *repository.Repository {
	return repository.NewRepository(pool, cfg)
}

// ProvideValidator creates a new validator instance
func ProvideValidator(cfg *config.Config) *validator.Validator {
	return validator.NewValidator(cfg.Validation.HumidityMin, cfg.Validation.HumidityMax)
}

// ProvideStateStore creates a new current-state store instance
func ProvideStateStore(client *redis.Client) *state.Store {
	return state.NewStore(client)
}

// ProvideProcessor creates a new processor instance
func ProvideProcessor(
	states *state.Store,
	repo *repository.Repository,
	validator *validator.Validator,
	logger *zap.Logger,
) *service.Processor {
	return service.NewProcessor(states, repo, validator, logger)
}

// ProvideHTTPServer creates the report HTTP server instance
func ProvideHTTPServer(repo *repository.Repository, states *state.Store, logger *zap.Logger) *httpapi.Server {
	return httpapi.NewServer(repo, states, logger)
}

// ProvideDBPool creates a new database pool instance
func ProvideDBPool(lc fx.Lifecycle, logger *zap.Logger, cfg *config.Config) (*db.Pool, error) {
	return db.NewPool(lc, logger, cfg.Database.URL)
}

// ProvideRedisClient creates a new Redis client instance
func ProvideRedisClient(lc fx.Lifecycle, logger *zap.Logger, cfg *config.Config) (*redis.Client, error) {
	return state.NewClient(lc, logger, cfg.Redis.Addr, cfg.Redis.Password)
}

// ProvideMQConnection creates a new RabbitMQ connection instance
func ProvideMQConnection(lc fx.Lifecycle, logger *zap.Logger, cfg *config.Config) (*mq.Connection, error) {
	return mq.NewConnection(lc, logger, cfg.RabbitMQ.URL)
}
