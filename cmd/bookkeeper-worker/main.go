package main

import (
	"context"
	"errors"
	"os"

	"golang.org/x/sync/errgroup"

	"bookkeeper/internal/amqp"
	"bookkeeper/internal/cli"
	"bookkeeper/internal/log"
	"bookkeeper/internal/worker"
)

func main() {
	cli.LoadEnvFile()

	logger := cli.SetupLogger(os.Getenv("LOG_LEVEL"), log.ComponentWorker)
	logger.Info("Starting bookkeeper-worker")

	cfg := cli.LoadAndValidateConfig(logger)
	if err := cfg.ValidateMirror(); err != nil {
		logger.Error("Configuration validation failed", log.FieldError, err)
		os.Exit(1)
	}

	ctx, stop := cli.ShutdownContext(context.Background())
	defer stop()

	mirror := cli.MustOpenBackend(ctx, logger, cfg, cfg.MirrorBackend)
	defer func() {
		if err := mirror.Cleanup(); err != nil {
			logger.Error("Failed to close mirror backend", log.FieldError, err)
		}
	}()

	client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		logger.Error("Failed to initialize AMQP client", log.FieldError, err)
		os.Exit(1)
	}
	defer client.Close()

	w := worker.NewMirrorWorker(mirror.Store, logger)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		err := w.Run(gctx, client)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	})

	if err := g.Wait(); err != nil {
		logger.Error("Message consumption failed", log.FieldError, err)
		os.Exit(1)
	}
	logger.Info("Worker stopped gracefully", log.FieldBackend, mirror.Type)
}
