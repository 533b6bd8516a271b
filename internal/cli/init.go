// Package cli holds the startup steps shared by cmd/icried and
// cmd/icried-sync.
package cli

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/sony/gobreaker"

	"icried/internal/backend"
	"icried/internal/config"
	"icried/internal/journal"
	applog "icried/internal/log"
)

// SetupLogger builds the process logger at the given level and installs
// it as the slog default.
func SetupLogger(level slog.Level) *applog.Logger {
	lc := applog.DefaultConfig()
	lc.Level = level
	logger := applog.New(lc)
	applog.SetDefault(logger)
	return logger
}

// LoadEnvFile loads the .env file for local development.
// A missing file is not an error.
func LoadEnvFile(logger *applog.Logger) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		logger.Warn("Failed to load .env file", applog.FieldError, err)
	}
}

// LoadAndValidateConfig loads configuration and validates it.
// Returns the config or exits the process on validation failure.
func LoadAndValidateConfig(logger *applog.Logger) *config.Config {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", applog.FieldError, err)
		os.Exit(1)
	}
	return cfg
}

// OpenJournal creates the configured local store and loads the journal
// from it. The caller owns the returned cleanup.
func OpenJournal(ctx context.Context, logger *applog.Logger, cfg *config.Config, opts ...journal.Option) (*journal.Journal, *backend.StoreResult, error) {
	bcfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		return nil, nil, err
	}
	store, err := backend.NewFactory(logger.Logger).CreateStore(ctx, bcfg)
	if err != nil {
		return nil, nil, err
	}

	opts = append([]journal.Option{journal.WithSeedDefaults(cfg.SeedDefaults)}, opts...)
	j := journal.New(store.Store, opts...)
	if err := j.Load(ctx); err != nil {
		_ = store.Cleanup()
		return nil, nil, err
	}
	logger.InfoContext(ctx, "Journal loaded",
		"entries", len(j.Entries()),
		"tags", len(j.Tags()),
		"emojis", len(j.Emojis()))
	return j, store, nil
}

// OpenCloud creates the configured remote store. onState, when set, is
// called on every circuit breaker transition with the new state.
func OpenCloud(ctx context.Context, logger *applog.Logger, cfg *config.Config, onState func(state int)) (*backend.CloudResult, error) {
	bcfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		return nil, err
	}
	if onState != nil {
		bcfg.Breaker.OnStateChange = breakerHook(onState)
	}
	return backend.NewFactory(logger.Logger).CreateCloud(ctx, bcfg)
}

func breakerHook(onState func(int)) func(string, gobreaker.State, gobreaker.State) {
	return func(_ string, _, to gobreaker.State) {
		onState(int(to))
	}
}

// ShutdownContext returns a context cancelled on SIGINT or SIGTERM.
func ShutdownContext(logger *applog.Logger) (context.Context, context.CancelFunc) {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-ctx.Done()
		logger.Info("Shutdown signal received")
	}()
	return ctx, stop
}

// RunCleanup runs the cleanup steps in order within timeout, logging
// failures. Steps still running when the timeout expires are abandoned.
func RunCleanup(logger *applog.Logger, timeout time.Duration, steps ...func(context.Context) error) {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	done := make(chan struct{})
	go func() {
		defer close(done)
		for _, step := range steps {
			if step == nil {
				continue
			}
			if err := step(ctx); err != nil {
				logger.Error("Shutdown step failed", applog.FieldError, err)
			}
		}
	}()

	select {
	case <-done:
		logger.Info("Shutdown complete")
	case <-ctx.Done():
		logger.Warn("Shutdown timeout reached")
	}
}
