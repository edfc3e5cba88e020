package infrastructure

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
)

// GenerateRunID creates a new unique pipeline run ID using UUID v4
func GenerateRunID() string {
	return uuid.New().String()
}

// ContextWithRunID creates a new context with a generated run ID
func ContextWithRunID(ctx context.Context) context.Context {
	return WithRunID(ctx, GenerateRunID())
}

// EnsureRunID ensures the context has a run ID, generating one if needed.
// Stage binaries honour an inherited WQBT_RUN_ID so a full pipeline run
// shares one ID across all stages.
func EnsureRunID(ctx context.Context) context.Context {
	if GetRunID(ctx) == "" {
		return ContextWithRunID(ctx)
	}
	return ctx
}

// LoggerWithContext creates a logger that includes the run ID and stage
// from context. This is the preferred way to get a logger inside stage code.
func LoggerWithContext(ctx context.Context) *slog.Logger {
	logger := GetLogger()

	if runID := GetRunID(ctx); runID != "" {
		logger = logger.With("run_id", runID)
	}
	if stage := GetStage(ctx); stage != "" {
		logger = logger.With("stage", stage)
	}

	return logger
}

// InfoContext logs an info message with context awareness
func InfoContext(ctx context.Context, msg string, args ...any) {
	LoggerWithContext(ctx).InfoContext(ctx, msg, args...)
}

// ErrorContext logs an error message with context awareness
func ErrorContext(ctx context.Context, msg string, args ...any) {
	LoggerWithContext(ctx).ErrorContext(ctx, msg, args...)
}

// WarnContext logs a warning message with context awareness
func WarnContext(ctx context.Context, msg string, args ...any) {
	LoggerWithContext(ctx).WarnContext(ctx, msg, args...)
}

// DebugContext logs a debug message with context awareness
func DebugContext(ctx context.Context, msg string, args ...any) {
	LoggerWithContext(ctx).DebugContext(ctx, msg, args...)
}

// WithComponent creates a logger with a component field
func WithComponent(logger *slog.Logger, component string) *slog.Logger {
	return logger.With("component", component)
}

// WithError creates a logger with an error field
func WithError(logger *slog.Logger, err error) *slog.Logger {
	if err == nil {
		return logger
	}
	return logger.With("error", err.Error())
}
