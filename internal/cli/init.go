// Package cli provides common initialization utilities shared by
// cmd/spendlens and cmd/spendlens-worker.
package cli

import (
	"context"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"spendlens/internal/analytics"
	"spendlens/internal/config"
	"spendlens/internal/ledger"
	"spendlens/internal/ledger/memory"
	"spendlens/internal/ledger/sqlite"
	"spendlens/internal/log"
)

// SetupLogger initializes structured logging with default settings and
// sets it as the process default.
func SetupLogger() *log.Logger {
	logger := log.New(log.DefaultConfig())
	log.SetDefault(logger)
	return logger
}

// LoadEnvFile loads the .env file for local development.
// Errors are ignored silently as this is optional in production.
func LoadEnvFile() {
	_ = godotenv.Load()
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

// InitStore builds the ledger backend named by the configuration.
// Returns the store (and a closer for backends that hold resources) or
// exits the process on failure.
func InitStore(logger *log.Logger, cfg *config.Config) (ledger.Store, io.Closer) {
	switch cfg.DataBackend {
	case "sqlite":
		repo, err := sqlite.NewRepository(cfg.SQLiteDBPath)
		if err != nil {
			logger.Error("Failed to initialize SQLite ledger",
				log.FieldError, err, "path", cfg.SQLiteDBPath)
			os.Exit(1)
		}
		logger.Info("SQLite ledger initialized", "path", cfg.SQLiteDBPath)
		return repo, repo
	default:
		logger.Info("In-memory ledger initialized")
		return memory.New(), nil
	}
}

// EngineConfig maps the process configuration onto the analytics
// engine's heuristic parameters.
func EngineConfig(cfg *config.Config) analytics.Config {
	return analytics.Config{
		TopCategories:      cfg.TopCategories,
		AmountTolerancePct: cfg.AmountTolerancePct,
		WeeklyJitterDays:   cfg.WeeklyJitterDays,
		MonthlyJitterDays:  cfg.MonthlyJitterDays,
		MinOccurrences:     cfg.MinOccurrences,
	}
}

// GracefulShutdown sets up signal handling for graceful shutdown.
// Returns a context that will be cancelled on shutdown signals,
// and a channel that signals when shutdown is complete.
func GracefulShutdown(logger *log.Logger, timeout time.Duration, cleanup func()) (context.Context, <-chan struct{}) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigChan
		logger.Info("Shutdown signal received", "signal", sig.String())

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), timeout)
		defer shutdownCancel()

		if cleanup != nil {
			cleanup()
		}

		cancel()

		select {
		case <-shutdownCtx.Done():
			logger.Warn("Shutdown timeout reached")
		case <-time.After(2 * time.Second):
			logger.Info("Shutdown complete")
		}
		close(done)
	}()

	return ctx, done
}

// WaitForShutdown blocks until the context is cancelled.
func WaitForShutdown(ctx context.Context, done <-chan struct{}) {
	<-ctx.Done()
	<-done
}
