//go:build example
// +build example

package config

import (
	"log/slog"
	"os"
)

// ExampleUsage demonstrates how to use the paths package throughout the pipeline
func ExampleUsage() {
	// Always get paths from the centralized GetPaths() function
	paths, err := GetPaths()
	if err != nil {
		slog.Error("Failed to get paths", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// Ensure all directories exist at startup
	if err := paths.EnsureDirectories(); err != nil {
		slog.Error("Failed to ensure directories", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// Log all resolved paths for debugging
	paths.LogPathResolution()

	// Example 1: Crawler writing per-symbol downloads
	rawPath := paths.GetRawCSVPath("BTC-USD")
	slog.Info("Raw candles will be saved to", slog.String("path", rawPath))

	// Example 2: Cleaner writing chronological splits
	trainPath := paths.GetCleanedSplitPath("train")
	slog.Info("Train split will be at", slog.String("path", trainPath))

	// Example 3: Regime model artifacts
	statePath := paths.GetStateSplitPath("validation")
	slog.Info("Validation state table will be at", slog.String("path", statePath))
	slog.Info("Fitted regime model will be at", slog.String("path", paths.HMMModelFile))

	// Example 4: Plots and reports
	plotPath := paths.GetRegimePlotPath("test")
	slog.Info("Regime chart will be at", slog.String("path", plotPath))
	slog.Info("Final comparison will be at", slog.String("path", paths.EvaluationCSV))
}

// Migration Guide:
//
// OLD CODE (problematic):
//   trainPath := filepath.Join(os.Getwd(), "data/cleaned/train_data.csv")
//
// NEW CODE (correct):
//   paths, _ := config.GetPaths()
//   trainPath := paths.GetCleanedSplitPath("train")
//
// Benefits:
// 1. All paths relative to executable, not working directory
// 2. Consistent across all stage binaries
// 3. Cross-platform path handling
// 4. Centralized logging and debugging
