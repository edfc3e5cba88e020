package infrastructure

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/Karagul/WorldQuant-BTC-Trading/internal/config"
)

var (
	// globalLogger holds the pipeline-wide logger instance
	globalLogger     *slog.Logger
	globalLoggerOnce sync.Once
	// globalLogFile holds the open log file for cleanup
	globalLogFile *os.File
	// logFileMu protects globalLogFile
	logFileMu sync.Mutex
)

// contextKey is a type for context keys
type contextKey string

const (
	// RunIDContextKey is the key for storing the pipeline run ID in context
	RunIDContextKey contextKey = "run_id"
	// StageContextKey is the key for storing the stage name in context
	StageContextKey contextKey = "stage"
)

// InitializeLogger creates and configures the global slog logger instance.
// This should be called once during stage startup. Output is always JSON,
// written to stdout and the stage log file.
func InitializeLogger(cfg config.LoggingConfig) (*slog.Logger, error) {
	var err error
	globalLoggerOnce.Do(func() {
		globalLogger, err = createLogger(cfg)
		if globalLogger != nil {
			slog.SetDefault(globalLogger)
		}
	})
	return globalLogger, err
}

// GetLogger returns the global logger instance.
// If not initialized, returns the default slog logger.
func GetLogger() *slog.Logger {
	if globalLogger == nil {
		return slog.Default()
	}
	return globalLogger
}

// createLogger creates a new slog logger based on configuration
func createLogger(cfg config.LoggingConfig) (*slog.Logger, error) {
	// Parse log level
	level := parseLogLevel(cfg.Level)

	// Create handler options
	opts := &slog.HandlerOptions{
		AddSource: true,
		Level:     level,
	}

	var output io.Writer

	// Handle different output modes
	switch strings.ToLower(cfg.Output) {
	case "file":
		file, err := openLogFile(cfg.FilePath)
		if err != nil {
			return nil, fmt.Errorf("failed to open log file: %w", err)
		}
		globalLogFile = file
		output = file
	case "both":
		file, err := openLogFile(cfg.FilePath)
		if err != nil {
			return nil, fmt.Errorf("failed to open log file: %w", err)
		}
		globalLogFile = file
		output = io.MultiWriter(os.Stdout, file)
	default:
		output = os.Stdout
	}

	handler := slog.NewJSONHandler(output, opts)

	// Wrap handler to inject run_id and stage from context
	runHandlerInstance := &runHandler{Handler: handler}

	return slog.New(runHandlerInstance), nil
}

// runHandler wraps a slog.Handler to automatically inject run_id and
// stage from context
type runHandler struct {
	slog.Handler
}

// Handle adds run_id and stage to the record if present in context
func (h *runHandler) Handle(ctx context.Context, r slog.Record) error {
	if runID := GetRunID(ctx); runID != "" {
		r.AddAttrs(slog.String("run_id", runID))
	}
	if stage := GetStage(ctx); stage != "" {
		r.AddAttrs(slog.String("stage", stage))
	}

	return h.Handler.Handle(ctx, r)
}

// WithAttrs returns a new Handler with additional attributes
func (h *runHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &runHandler{Handler: h.Handler.WithAttrs(attrs)}
}

// WithGroup returns a new Handler with the given group name
func (h *runHandler) WithGroup(name string) slog.Handler {
	return &runHandler{Handler: h.Handler.WithGroup(name)}
}

// parseLogLevel converts string log level to slog.Level
func parseLogLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// WithRunID adds a pipeline run ID to the context
func WithRunID(ctx context.Context, runID string) context.Context {
	return context.WithValue(ctx, RunIDContextKey, runID)
}

// GetRunID retrieves the pipeline run ID from context
func GetRunID(ctx context.Context) string {
	if runID, ok := ctx.Value(RunIDContextKey).(string); ok {
		return runID
	}
	return ""
}

// WithStage adds a stage name to the context
func WithStage(ctx context.Context, stage string) context.Context {
	return context.WithValue(ctx, StageContextKey, stage)
}

// GetStage retrieves the stage name from context
func GetStage(ctx context.Context) string {
	if stage, ok := ctx.Value(StageContextKey).(string); ok {
		return stage
	}
	return ""
}

// LoggerFromContext extracts or creates a logger from context.
// This is a helper for components that need context-aware logging.
func LoggerFromContext(ctx context.Context) *slog.Logger {
	logger := GetLogger()

	if runID := GetRunID(ctx); runID != "" {
		return logger.With("run_id", runID)
	}

	return logger
}

// MustInitializeLogger is like InitializeLogger but panics on error.
// Use this in main() where errors are fatal.
func MustInitializeLogger(cfg config.LoggingConfig) *slog.Logger {
	logger, err := InitializeLogger(cfg)
	if err != nil {
		panic(fmt.Sprintf("failed to initialize logger: %v", err))
	}
	return logger
}

// DefaultConfig returns the default logging configuration
func DefaultConfig() config.LoggingConfig {
	return config.LoggingConfig{
		Level:    "info",
		Format:   "json",
		Output:   "both",
		FilePath: "logs/pipeline.log",
	}
}

// CloseLogFile closes the global log file if open.
// This should be called during stage shutdown or in tests.
func CloseLogFile() error {
	logFileMu.Lock()
	defer logFileMu.Unlock()

	if globalLogFile != nil {
		err := globalLogFile.Close()
		globalLogFile = nil
		return err
	}
	return nil
}

// ResetLoggerForTesting resets the global logger state.
// This should only be called in tests.
func ResetLoggerForTesting() {
	CloseLogFile()
	globalLogger = nil
	globalLoggerOnce = sync.Once{}
}

// openLogFile opens or creates a log file with proper permissions
func openLogFile(filePath string) (*os.File, error) {
	// Ensure the directory exists
	dir := filepath.Dir(filePath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create log directory %s: %w", dir, err)
	}

	// Open file in append mode, create if doesn't exist
	file, err := os.OpenFile(filePath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file %s: %w", filePath, err)
	}

	return file, nil
}
