package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/DanielPopoola/giftcard-webhook-gateway/internal/application"
	"github.com/DanielPopoola/giftcard-webhook-gateway/internal/application/services"
	"github.com/DanielPopoola/giftcard-webhook-gateway/internal/config"
	"github.com/DanielPopoola/giftcard-webhook-gateway/internal/infrastructure/events"
	"github.com/DanielPopoola/giftcard-webhook-gateway/internal/infrastructure/fulfillment"
	"github.com/DanielPopoola/giftcard-webhook-gateway/internal/infrastructure/persistence/memory"
	"github.com/DanielPopoola/giftcard-webhook-gateway/internal/infrastructure/persistence/postgres"
	"github.com/DanielPopoola/giftcard-webhook-gateway/internal/infrastructure/persistence/redisstore"
	"github.com/DanielPopoola/giftcard-webhook-gateway/internal/infrastructure/processor"
	"github.com/DanielPopoola/giftcard-webhook-gateway/internal/infrastructure/signature"
	"github.com/DanielPopoola/giftcard-webhook-gateway/internal/interfaces/rest/handlers"
	"github.com/DanielPopoola/giftcard-webhook-gateway/internal/worker"
	"github.com/spf13/cobra"
)

const shutdownTimeout = 30 * time.Second

type serveOptions struct {
	skipMigrate bool
}

func serveCmd() *cobra.Command {
	var opts serveOptions

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the webhook HTTP server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), opts)
		},
	}

	cmd.Flags().BoolVar(&opts.skipMigrate, "skip-migrate", false, "do not apply database migrations on start-up")

	return cmd
}

// stores bundles the backend chosen by idempotency.backend. purger is nil
// when the backend expires records itself.
type stores struct {
	idempotency application.IdempotencyStore
	payments    application.PaymentStateRepository
	purger      application.IdempotencyPurger
	health      handlers.HealthChecker
	close       func()
}

func openStores(ctx context.Context, cfg *config.Config, opts serveOptions, logger *slog.Logger) (*stores, error) {
	switch cfg.Idempotency.Backend {
	case config.BackendPostgres:
		if !opts.skipMigrate {
			if err := postgres.Migrate(cfg.Database.URL(), logger); err != nil {
				return nil, err
			}
		}
		db, err := postgres.Connect(ctx, &cfg.Database, logger)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to database: %w", err)
		}
		idempotency := postgres.NewIdempotencyRepository(db, cfg.Idempotency.Lease)
		return &stores{
			idempotency: idempotency,
			payments:    postgres.NewPaymentStateRepository(db),
			purger:      idempotency,
			health:      db,
			close:       db.Close,
		}, nil

	case config.BackendRedis:
		client, err := redisstore.NewClient(ctx, cfg.Redis.URL)
		if err != nil {
			return nil, err
		}
		idempotency := redisstore.NewIdempotencyStore(client, cfg.Idempotency.Lease, cfg.Idempotency.Retention)
		return &stores{
			idempotency: idempotency,
			payments:    redisstore.NewPaymentStateStore(client, cfg.Idempotency.Retention),
			health:      idempotency,
			close:       func() { _ = client.Close() },
		}, nil

	default:
		logger.Warn("using in-memory idempotency store; duplicates are only detected within this process")
		idempotency := memory.NewIdempotencyStore(cfg.Idempotency.Lease)
		return &stores{
			idempotency: idempotency,
			payments:    memory.NewPaymentStateStore(),
			purger:      idempotency,
			close:       func() {},
		}, nil
	}
}

func newPublisher(cfg config.EventsConfig, logger *slog.Logger) (application.EventPublisher, func(), error) {
	if cfg.AMQPURL == "" {
		return events.NoopPublisher{}, func() {}, nil
	}
	publisher, err := events.NewAMQPPublisher(cfg.AMQPURL, cfg.Exchange, logger)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to message broker: %w", err)
	}
	return publisher, publisher.Close, nil
}

func runServe(ctx context.Context, opts serveOptions) error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	logger := cfg.Logger.NewLogger(os.Stdout)
	slog.SetDefault(logger)

	logger.Info("starting gateway service",
		"port", cfg.Server.Port,
		"env", cfg.Primary.Env,
		"idempotency_backend", cfg.Idempotency.Backend,
		"log_level", cfg.Logger.Level,
	)

	st, err := openStores(ctx, cfg, opts, logger)
	if err != nil {
		return err
	}
	defer st.close()

	publisher, closePublisher, err := newPublisher(cfg.Events, logger)
	if err != nil {
		return err
	}
	defer closePublisher()

	dispatcher := fulfillment.NewClient(cfg.Fulfillment)

	var processorClient application.ProcessorClient
	if cfg.Processor.ConfirmPayments {
		processorClient = processor.NewRetryClient(
			processor.NewClient(cfg.Processor, cfg.Primary.Env),
			cfg.Processor,
		)
	}

	webhookProcessor := services.NewWebhookProcessor(
		services.NewGuard(st.idempotency, publisher, logger),
		services.NewPaymentService(dispatcher, st.payments, processorClient, logger),
		services.NewSepaService(dispatcher, logger),
		services.NewCardService(dispatcher, logger),
		cfg.Webhook.ProcessingTimeout,
		logger,
	)

	router := handlers.NewRouter(
		handlers.NewHandlers(webhookProcessor, st.health, logger),
		signature.NewVerifier(cfg.Webhook.Secret),
		handlers.RouterConfig{
			MaxBodyBytes:   cfg.Webhook.MaxBodyBytes,
			HandlerTimeout: cfg.Server.HandlerTimeout,
		},
		logger,
	)

	server := &http.Server{
		Addr:         "0.0.0.0:" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	workerCtx, cancelWorkers := context.WithCancel(context.Background())
	defer cancelWorkers()

	if st.purger != nil {
		retentionWorker := worker.NewRetentionWorker(
			st.purger,
			cfg.Idempotency.Retention,
			cfg.Worker.Interval,
			cfg.Worker.BatchSize,
			logger,
		)
		go retentionWorker.Start(workerCtx)
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("server starting", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	select {
	case <-quit:
	case err := <-serverErr:
		return fmt.Errorf("server error: %w", err)
	}

	logger.Info("shutting down server...")

	cancelWorkers()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
	}

	logger.Info("server exited")
	return nil
}
