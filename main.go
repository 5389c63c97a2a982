package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rxcatalog/medications-catalog/catalog"
	"github.com/rxcatalog/medications-catalog/config"
	"github.com/rxcatalog/medications-catalog/handlers"
	"github.com/rxcatalog/medications-catalog/health"
	"github.com/rxcatalog/medications-catalog/logging"
	"github.com/rxcatalog/medications-catalog/rxnav"
	"github.com/rxcatalog/medications-catalog/scheduler"
	"github.com/rxcatalog/medications-catalog/server"
	"github.com/rxcatalog/medications-catalog/store"
	"github.com/rxcatalog/medications-catalog/validation"
)

const shutdownTimeout = 30 * time.Second

func loadEnv() {
	if err := godotenv.Load(); err == nil {
		return
	}

	// Fall back to the directory of the executable
	ex, err := os.Executable()
	if err != nil {
		slog.Warn("Failed to get executable path", "error", err)
		return
	}
	if err := godotenv.Load(filepath.Join(filepath.Dir(ex), ".env")); err != nil {
		slog.Info("No .env file found, using process environment")
	}
}

func main() {
	loadEnv()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("Invalid configuration", "error", err)
		os.Exit(1)
	}

	if err := logging.InitLogger("logs", logging.Options{
		Env:            cfg.Env,
		Level:          cfg.LogLevel,
		RetentionWeeks: cfg.LogRetentionWeeks,
		MaxFileSize:    cfg.MaxLogFileSize,
	}); err != nil {
		slog.Error("Failed to initialize logging", "error", err)
		os.Exit(1)
	}
	defer func() { _ = logging.Close() }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	recordStore, err := store.Open(ctx, store.Options{
		Driver:         cfg.DBDriver,
		URL:            cfg.DatabaseURL,
		MaxConns:       cfg.DBMaxConns,
		MinConns:       cfg.DBMinConns,
		QueueLimit:     cfg.DBQueueLimit,
		AcquireTimeout: cfg.DBAcquireTimeout,
	})
	if err != nil {
		logging.Error("Failed to open record store", "driver", cfg.DBDriver, "error", err)
		os.Exit(1)
	}

	validator := validation.NewDataValidator()
	service := catalog.NewService(recordStore, rxnav.NewClient(cfg.RxNavBaseURL, cfg.RxNavTimeout), validator)
	handler := handlers.NewHTTPHandler(service, validator, health.NewHealthChecker(recordStore))

	stats := scheduler.NewScheduler(recordStore, cfg.StatsIntervalMinutes)
	if err := stats.Start(); err != nil {
		logging.Error("Failed to start scheduler", "error", err)
		_ = recordStore.Close()
		os.Exit(1)
	}

	srv := server.NewServer(cfg, handler)

	serverErr := make(chan error, 1)
	go func() {
		serverErr <- srv.Start()
	}()

	select {
	case <-ctx.Done():
		logging.Info("Shutdown signal received")
	case err := <-serverErr:
		if err != nil {
			logging.Error("Server failed", "error", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logging.Error("Server shutdown error", "error", err)
	}

	// Handlers have drained, the pool can go
	stats.Stop()
	if err := recordStore.Close(); err != nil {
		logging.Error("Failed to close record store", "error", err)
	}

	logging.Info("Shutdown complete")
}
