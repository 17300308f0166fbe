// Package cli provides common CLI initialization utilities.
// It consolidates the start-up steps shared by cmd/bookkeeper,
// cmd/bookkeeper-worker and cmd/ledger.
package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"bookkeeper/internal/backend"
	"bookkeeper/internal/config"
	"bookkeeper/internal/log"
)

// LoadEnvFile loads the .env file for local development.
// Errors are ignored silently as this is optional in production.
func LoadEnvFile() {
	_ = godotenv.Load()
}

// SetupLogger initializes structured logging at the given level, stamps it
// with component and installs it as the process default.
func SetupLogger(level, component string) *log.Logger {
	return setupLogger(os.Stdout, level, component)
}

func setupLogger(out io.Writer, level, component string) *log.Logger {
	logger := log.New(log.Config{
		Level:     log.ParseLevel(level),
		Component: component,
		Output:    out,
	})
	log.SetDefault(logger)
	return logger
}

// LoadAndValidateConfig loads configuration and validates it.
// Returns the config or exits the process on validation failure.
func LoadAndValidateConfig(logger *log.Logger) *config.Config {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", log.FieldError, err)
		os.Exit(1)
	}
	return cfg
}

// ShutdownContext returns a context cancelled on SIGINT or SIGTERM.
func ShutdownContext(parent context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
}

// OpenBackend builds the ledger backend of the given kind (cfg.DataBackend
// or cfg.MirrorBackend). The caller must run the returned Cleanup.
func OpenBackend(ctx context.Context, logger *log.Logger, cfg *config.Config, kind string) (*backend.BackendResult, error) {
	bcfg, err := backend.FromAppConfig(cfg, kind)
	if err != nil {
		return nil, err
	}
	res, err := backend.NewFactory(logger.Logger.With(log.FieldComponent, log.ComponentBackend)).CreateBackend(ctx, bcfg)
	if err != nil {
		return nil, fmt.Errorf("open %s ledger: %w", kind, err)
	}
	return res, nil
}

// MustOpenBackend is OpenBackend that exits the process on failure.
func MustOpenBackend(ctx context.Context, logger *log.Logger, cfg *config.Config, kind string) *backend.BackendResult {
	res, err := OpenBackend(ctx, logger, cfg, kind)
	if err != nil {
		logger.Error("Failed to initialize ledger backend", log.FieldError, err, log.FieldBackend, kind)
		os.Exit(1)
	}
	return res
}
