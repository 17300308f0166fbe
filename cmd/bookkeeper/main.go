package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"github.com/ulule/limiter/v3"
	"golang.org/x/sync/errgroup"

	"bookkeeper/internal/amqp"
	"bookkeeper/internal/analytics"
	"bookkeeper/internal/cache"
	"bookkeeper/internal/cli"
	apphttp "bookkeeper/internal/http"
	"bookkeeper/internal/log"
	"bookkeeper/internal/services"
)

func main() {
	cli.LoadEnvFile()

	logger := cli.SetupLogger(os.Getenv("LOG_LEVEL"), log.ComponentApp)
	cfg := cli.LoadAndValidateConfig(logger)

	ctx, stop := cli.ShutdownContext(context.Background())
	defer stop()

	store := cli.MustOpenBackend(ctx, logger, cfg, cfg.DataBackend)
	defer func() {
		if err := store.Cleanup(); err != nil {
			logger.Error("Failed to close ledger backend", log.FieldError, err)
		}
	}()

	// Events are optional; the ledger keeps working without a broker.
	var (
		publisher services.Publisher
		ready     func(context.Context) error
	)
	if cfg.AMQPURL != "" {
		client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Warn("AMQP unavailable, continuing without events", log.FieldError, err)
		} else {
			defer client.Close()
			publisher, ready = client, client.Healthy
			logger.Info("AMQP client initialized", "exchange", cfg.AMQPExchange, "queue", cfg.AMQPQueue)
		}
	}

	idem := cache.NewIdempotency(cfg.IdempotencyCapacity, cfg.IdempotencyTTL)
	engine := analytics.New(store.Store, analytics.Options{StrictOperations: cfg.StrictOperations},
		logger.Logger.With(log.FieldComponent, log.ComponentAnalytics))
	svc := services.NewLedgerService(store.Store, engine, services.LedgerServiceConfig{
		Currency:    cfg.Currency,
		Publisher:   publisher,
		Idempotency: idem,
		Logger:      logger.WithComponent(log.ComponentLedger),
	})

	rate, err := limiter.NewRateFromFormatted(cfg.RateLimit)
	if err != nil {
		logger.Error("Invalid rate limit", log.FieldError, err)
		os.Exit(1)
	}
	srv := apphttp.NewServer(":"+cfg.Port, svc, apphttp.Options{
		RateLimit: rate,
		AppName:   cfg.AppName,
		Currency:  cfg.Currency,
		Logger:    logger.WithComponent(log.ComponentHTTP),
		Ready:     ready,
	})

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("Starting bookkeeper server", "port", cfg.Port, log.FieldBackend, store.Type)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		cache.RunJanitor(gctx, time.Minute, idem)
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("Shutting down", log.FieldOperation, log.OpShutdown)
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Error("Server error", log.FieldError, err, "port", cfg.Port)
		os.Exit(1)
	}
	logger.Info("Server stopped gracefully")
}
