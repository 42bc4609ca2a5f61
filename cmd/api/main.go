package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/srgjo27/experience_escrow/internal/adapter/cache"
	"github.com/srgjo27/experience_escrow/internal/adapter/handler"
	"github.com/srgjo27/experience_escrow/internal/adapter/publisher"
	"github.com/srgjo27/experience_escrow/internal/adapter/repository/memory"
	"github.com/srgjo27/experience_escrow/internal/adapter/repository/postgres"
	"github.com/srgjo27/experience_escrow/internal/config"
	"github.com/srgjo27/experience_escrow/internal/core/domain"
	"github.com/srgjo27/experience_escrow/internal/core/ports"
	"github.com/srgjo27/experience_escrow/internal/core/services"
	"github.com/srgjo27/experience_escrow/internal/platform/database"
	"github.com/srgjo27/experience_escrow/internal/platform/logging"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logrus.WithError(err).Fatal("Failed to load configuration")
	}

	logger, err := logging.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		logrus.WithError(err).Fatal("Failed to configure logging")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.WithError(err).Fatal("Server exited with error")
	}

	logger.Info("Server exiting")
}

// storage bundles the ports backed by one storage engine.
type storage struct {
	tx       ports.Transactor
	runs     ports.RunRepository
	bookings ports.BookingRepository
	vault    ports.Vault
	outbox   ports.Outbox
}

func run(ctx context.Context, cfg *config.Config, logger *logrus.Logger) error {
	var closers []io.Closer
	defer func() {
		for i := len(closers) - 1; i >= 0; i-- {
			if err := closers[i].Close(); err != nil {
				logger.WithError(err).Warn("Failed to close resource")
			}
		}
	}()

	store, closer, err := openStorage(ctx, cfg, logger)
	if err != nil {
		return err
	}
	if closer != nil {
		closers = append(closers, closer)
	}

	var redisClient *redis.Client
	if cfg.Redis.Addr != "" {
		logger.WithField("addr", cfg.Redis.Addr).Info("Connecting to Redis")

		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		closers = append(closers, redisClient)

		if err := redisClient.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("failed to connect to redis: %w", err)
		}
		logger.Info("Redis connected")
	}

	eventPublisher, err := openPublisher(cfg, logger, redisClient)
	if err != nil {
		return err
	}
	if c, ok := eventPublisher.(io.Closer); ok {
		closers = append(closers, c)
	}

	deps := services.Dependencies{
		Tx:       store.tx,
		Runs:     store.runs,
		Bookings: store.bookings,
		Vault:    store.vault,
		Outbox:   store.outbox,
		Logger:   logger,
	}
	if redisClient != nil {
		deps.Cache = cache.NewRunCache(redisClient, cfg.Redis.CacheTTL)
	}

	operators := make([]domain.Account, 0, len(cfg.Escrow.Operators))
	for _, op := range cfg.Escrow.Operators {
		operators = append(operators, domain.Account(op))
	}

	escrowService := services.NewEscrowService(services.Config{
		StakePercentage:       cfg.Escrow.StakePercentage,
		PlatformFeePercentage: cfg.Escrow.PlatformFeePercentage,
		PlatformAccount:       domain.Account(cfg.Escrow.PlatformAccount),
		Operators:             operators,
		ForfeitTo:             services.ForfeitPolicy(cfg.Escrow.ForfeitTo),
		EnforceEventTime:      cfg.Escrow.EnforceEventTime,
	}, deps)

	relay := services.NewOutboxRelay(store.outbox, eventPublisher, cfg.Events.RelayInterval, cfg.Events.RelayBatch, logger)

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Server.ReadTimeout = 5 * time.Second
	e.Server.WriteTimeout = 10 * time.Second
	e.Server.IdleTimeout = 120 * time.Second
	handler.NewHandler(escrowService, logger).Register(e)

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return relay.Run(ctx)
	})

	g.Go(func() error {
		logger.WithField("port", cfg.Port).Info("Server starting")
		if err := e.Start(":" + cfg.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server startup failed: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		logger.Info("Shutting down server")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		return e.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

func openStorage(ctx context.Context, cfg *config.Config, logger *logrus.Logger) (*storage, io.Closer, error) {
	if cfg.StorageBackend == config.StorageMemory {
		logger.Warn("Using in-memory storage; state is lost on restart")

		s := memory.NewStore()
		return &storage{tx: s, runs: s.Runs(), bookings: s.Bookings(), vault: s.Vault(), outbox: s.Outbox()}, nil, nil
	}

	db, err := database.NewPostgresDB(ctx, database.Config{
		Host:     cfg.Database.Host,
		Port:     cfg.Database.Port,
		User:     cfg.Database.User,
		Password: cfg.Database.Password,
		DBName:   cfg.Database.Name,
	}, logger)
	if err != nil {
		return nil, nil, err
	}

	if err := postgres.InitializeDBSchema(ctx, db); err != nil {
		db.Close()
		return nil, nil, err
	}

	return &storage{
		tx:       postgres.NewTransactor(db),
		runs:     postgres.NewRunRepository(db),
		bookings: postgres.NewBookingRepository(db),
		vault:    postgres.NewVault(db),
		outbox:   postgres.NewOutbox(db),
	}, db, nil
}

func openPublisher(cfg *config.Config, logger *logrus.Logger, redisClient *redis.Client) (ports.EventPublisher, error) {
	switch cfg.Events.Backend {
	case config.EventsRedis:
		return publisher.NewRedisStreamPublisher(redisClient, logging.NewWatermillAdapter(logger))
	case config.EventsRabbitMQ:
		return publisher.NewRabbitMQPublisher(cfg.Events.RabbitMQURL, cfg.Events.RabbitMQExchange)
	}

	return publisher.NewLogPublisher(logger), nil
}
