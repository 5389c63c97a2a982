// Package logging sets up the process-wide slog logger (console plus weekly
// rotating JSON files) and the HTTP request logging middleware.
package logging

import (
	"log/slog"
	"os"
	"sync"
)

type LoggingService struct {
	Logger   *slog.Logger
	rotating *RotatingLogger
}

var (
	DefaultLoggingService *LoggingService

	fallbackOnce sync.Once
	fallback     *slog.Logger
)

// InitLogger installs the global logger writing to stdout and logDir. It also
// becomes the slog default, so libraries logging through slog follow it.
func InitLogger(logDir string, opts Options) error {
	logger, rotating, err := newLogger(logDir, opts, os.Stdout)
	if err != nil {
		return err
	}

	DefaultLoggingService = &LoggingService{Logger: logger, rotating: rotating}
	slog.SetDefault(logger)
	return nil
}

// Close flushes and closes the log file. Later calls log to stderr.
func Close() error {
	svc := DefaultLoggingService
	if svc == nil {
		return nil
	}
	DefaultLoggingService = nil
	if svc.rotating != nil {
		return svc.rotating.Close()
	}
	return nil
}

func logger() *slog.Logger {
	if svc := DefaultLoggingService; svc != nil && svc.Logger != nil {
		return svc.Logger
	}
	// Not initialized (tests, CLI): log to stderr
	fallbackOnce.Do(func() {
		fallback = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: slog.LevelInfo,
		}))
	})
	return fallback
}

// Package-level functions for direct access

func Info(msg string, args ...any) {
	logger().Info(msg, args...)
}

func Error(msg string, args ...any) {
	logger().Error(msg, args...)
}

func Warn(msg string, args ...any) {
	logger().Warn(msg, args...)
}

func Debug(msg string, args ...any) {
	logger().Debug(msg, args...)
}
