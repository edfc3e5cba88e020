package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/Karagul/WorldQuant-BTC-Trading/internal/config"
	"github.com/Karagul/WorldQuant-BTC-Trading/internal/dataset"
	"github.com/Karagul/WorldQuant-BTC-Trading/internal/files"
	"github.com/Karagul/WorldQuant-BTC-Trading/internal/hmm"
	"github.com/Karagul/WorldQuant-BTC-Trading/internal/infrastructure"
	"github.com/Karagul/WorldQuant-BTC-Trading/internal/plotting"
	"github.com/Karagul/WorldQuant-BTC-Trading/internal/validation"
	"github.com/Karagul/WorldQuant-BTC-Trading/pkg/contracts/domain"
)

func main() {
	dataVersion := flag.String("data_version", "", "split to plot: train, validation or test (required)")
	cleanedFolder := flag.String("cleaned_folder", "", "directory with cleaned split CSVs (defaults to data/cleaned)")
	hmmFolder := flag.String("hmm_folder", "", "directory with regime state tables (defaults to data/hmm)")
	outputFolder := flag.String("output_folder", "", "directory for regime charts (defaults to plots/regimes)")
	flag.Parse()

	paths, err := config.GetPaths()
	if err != nil {
		slog.Error("Failed to initialize paths", "error", err)
		os.Exit(1)
	}

	if *cleanedFolder == "" {
		*cleanedFolder = paths.CleanedDir
	}
	if *hmmFolder == "" {
		*hmmFolder = paths.StatesDir
	}
	if *outputFolder == "" {
		*outputFolder = paths.RegimePlotsDir
	}

	if err := paths.EnsureDirectories(); err != nil {
		slog.Error("Failed to create required directories", "error", err)
		os.Exit(1)
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Warn("Failed to load config, using defaults", "error", err)
		cfg = config.Default()
	}
	cfg.Logging.FilePath = paths.GetLogPath(config.StageRegimePlot + ".log")

	logger, err := infrastructure.InitializeLogger(cfg.Logging)
	if err != nil {
		slog.Warn("Failed to initialize logger, using default", "error", err)
		logger = slog.Default()
	}

	split, err := domain.ParseSplit(*dataVersion)
	if err != nil {
		logger.Error("Invalid data_version flag", slog.String("data_version", *dataVersion), slog.String("error", err.Error()))
		os.Exit(1)
	}

	ctx := infrastructure.WithStage(context.Background(), config.StageRegimePlot)
	if runID := os.Getenv(config.EnvPrefix + "_RUN_ID"); runID != "" {
		ctx = infrastructure.WithRunID(ctx, runID)
	}
	ctx = infrastructure.EnsureRunID(ctx)

	validator := validation.NewFileValidator(logger)
	cleanedPath := filepath.Join(*cleanedFolder, split.FileName())
	tablePath := filepath.Join(*hmmFolder, split.FileName())
	for _, path := range []string{cleanedPath, tablePath} {
		if err := validator.ValidateCSVFile(path); err != nil {
			infrastructure.ErrorContext(ctx, "Missing input file", "error", err)
			os.Exit(1)
		}
	}
	if err := validator.ValidateFile(paths.HMMModelFile); err != nil {
		infrastructure.ErrorContext(ctx, "Missing regime model", "error", err)
		os.Exit(1)
	}

	infrastructure.InfoContext(ctx, "Starting regime chart",
		slog.String("split", split.String()),
		slog.String("cleaned_folder", *cleanedFolder),
		slog.String("hmm_folder", *hmmFolder),
		slog.String("output_folder", *outputFolder))

	startedAt := time.Now()
	plotPath := filepath.Join(*outputFolder, fmt.Sprintf("regimes_%s.png", split))
	rows, runErr := run(cleanedPath, tablePath, paths.HMMModelFile, plotPath, split)

	record := domain.StageRecord{
		RunID:      infrastructure.GetRunID(ctx),
		Stage:      config.StageRegimePlot,
		StartedAt:  startedAt.UTC(),
		DurationMS: time.Since(startedAt).Milliseconds(),
		Inputs:     []string{cleanedPath, tablePath},
		Outputs:    []string{plotPath},
		Rows:       rows,
		Status:     domain.StageStatusCompleted,
	}
	if runErr != nil {
		record.Status = domain.StageStatusFailed
		record.Error = runErr.Error()
	}
	if err := files.NewAppender(paths.ManifestFile).Append(record); err != nil {
		infrastructure.WarnContext(ctx, "Failed to append manifest record", "error", err)
	}

	if runErr != nil {
		infrastructure.ErrorContext(ctx, "Regime chart failed", "error", runErr)
		os.Exit(1)
	}

	infrastructure.InfoContext(ctx, "Regime chart completed",
		slog.String("plot", plotPath),
		slog.Int64("duration_ms", record.DurationMS))
}

func run(cleanedPath, tablePath, modelPath, plotPath string, split domain.Split) (int, error) {
	cleaned, err := dataset.ReadFrameCSV(cleanedPath)
	if err != nil {
		return 0, err
	}
	table, err := dataset.ReadFrameCSV(tablePath)
	if err != nil {
		return 0, err
	}
	model, err := hmm.Load(modelPath)
	if err != nil {
		return 0, err
	}

	title := fmt.Sprintf("Close price by market regime (%s)", split)
	if err := plotting.RenderRegimes(cleaned, table, model.States, title, plotPath); err != nil {
		return 0, err
	}
	return table.Len(), nil
}
