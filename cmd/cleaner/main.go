package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/Karagul/WorldQuant-BTC-Trading/internal/cleaning"
	"github.com/Karagul/WorldQuant-BTC-Trading/internal/config"
	"github.com/Karagul/WorldQuant-BTC-Trading/internal/dataset"
	"github.com/Karagul/WorldQuant-BTC-Trading/internal/files"
	"github.com/Karagul/WorldQuant-BTC-Trading/internal/infrastructure"
	"github.com/Karagul/WorldQuant-BTC-Trading/internal/validation"
	"github.com/Karagul/WorldQuant-BTC-Trading/pkg/contracts/domain"
)

func main() {
	inputData := flag.String("input_data", "", "processed CSV to clean (defaults to data/processed/market_data.csv)")
	outputFolder := flag.String("output_folder", "", "directory for split CSVs (defaults to data/cleaned)")
	trainRatio := flag.Float64("train_ratio", -1, "fraction of rows for the train split (defaults to configuration)")
	validationRatio := flag.Float64("validation_ratio", -1, "fraction of rows for the validation split (defaults to configuration)")
	fillGaps := flag.String("fill_gaps", "", "fill missing calendar days: true or false (defaults to configuration)")
	winsorize := flag.Float64("winsorize", -1, "tail quantile to clip on return columns, 0 disables (defaults to configuration)")
	flag.Parse()

	paths, err := config.GetPaths()
	if err != nil {
		slog.Error("Failed to initialize paths", "error", err)
		os.Exit(1)
	}

	if *inputData == "" {
		*inputData = paths.ProcessedCSV
	}
	if *outputFolder == "" {
		*outputFolder = paths.CleanedDir
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
	cfg.Logging.FilePath = paths.GetLogPath(config.StageClean + ".log")

	logger, err := infrastructure.InitializeLogger(cfg.Logging)
	if err != nil {
		slog.Warn("Failed to initialize logger, using default", "error", err)
		logger = slog.Default()
	}

	if *trainRatio >= 0 {
		cfg.Cleaning.TrainRatio = *trainRatio
	}
	if *validationRatio >= 0 {
		cfg.Cleaning.ValidationRatio = *validationRatio
	}
	if *fillGaps != "" {
		parsed, err := strconv.ParseBool(*fillGaps)
		if err != nil {
			logger.Error("Invalid fill_gaps value", slog.String("fill_gaps", *fillGaps))
			os.Exit(1)
		}
		cfg.Cleaning.FillGaps = parsed
	}
	if *winsorize >= 0 {
		cfg.Cleaning.WinsorizeQuantile = *winsorize
	}
	if cfg.Cleaning.TrainRatio <= 0 || cfg.Cleaning.ValidationRatio <= 0 ||
		cfg.Cleaning.TrainRatio+cfg.Cleaning.ValidationRatio >= 1 {
		logger.Error("Invalid split ratios",
			slog.Float64("train_ratio", cfg.Cleaning.TrainRatio),
			slog.Float64("validation_ratio", cfg.Cleaning.ValidationRatio))
		os.Exit(1)
	}

	ctx := infrastructure.WithStage(context.Background(), config.StageClean)
	if runID := os.Getenv(config.EnvPrefix + "_RUN_ID"); runID != "" {
		ctx = infrastructure.WithRunID(ctx, runID)
	}
	ctx = infrastructure.EnsureRunID(ctx)

	validator := validation.NewFileValidator(logger)
	if err := validator.ValidateCSVFile(*inputData); err != nil {
		infrastructure.ErrorContext(ctx, "Invalid input file", "error", err)
		os.Exit(1)
	}
	if err := validator.ValidateOutputDirectory(*outputFolder); err != nil {
		infrastructure.ErrorContext(ctx, "Invalid output directory", "error", err)
		os.Exit(1)
	}

	infrastructure.InfoContext(ctx, "Starting data cleaning",
		slog.String("input_data", *inputData),
		slog.String("output_folder", *outputFolder),
		slog.Float64("train_ratio", cfg.Cleaning.TrainRatio),
		slog.Float64("validation_ratio", cfg.Cleaning.ValidationRatio),
		slog.Bool("fill_gaps", cfg.Cleaning.FillGaps),
		slog.Float64("winsorize_quantile", cfg.Cleaning.WinsorizeQuantile))

	startedAt := time.Now()
	outputs, rows, runErr := run(ctx, cfg, *inputData, *outputFolder)

	record := domain.StageRecord{
		RunID:      infrastructure.GetRunID(ctx),
		Stage:      config.StageClean,
		StartedAt:  startedAt.UTC(),
		DurationMS: time.Since(startedAt).Milliseconds(),
		Inputs:     []string{*inputData},
		Outputs:    outputs,
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
		infrastructure.ErrorContext(ctx, "Cleaning failed", "error", runErr)
		os.Exit(1)
	}

	infrastructure.InfoContext(ctx, "Cleaning completed",
		slog.Int("rows", rows),
		slog.Int64("duration_ms", record.DurationMS))
}

func run(ctx context.Context, cfg *config.Config, inputData, outputFolder string) ([]string, int, error) {
	frame, err := dataset.ReadFrameCSV(inputData)
	if err != nil {
		return nil, 0, err
	}

	cleaner := cleaning.New(cfg.Cleaning)

	if cfg.Cleaning.FillGaps {
		filled, stats, err := cleaner.FillGaps(frame)
		if err != nil {
			return nil, 0, err
		}
		frame = filled
		infrastructure.InfoContext(ctx, "Filled calendar gaps",
			slog.Int("total_rows", stats.TotalRows),
			slog.Int("observed_rows", stats.ObservedRows),
			slog.Int("filled_rows", stats.FilledRows))
	}

	if cfg.Cleaning.WinsorizeQuantile > 0 {
		results, err := cleaner.Winsorize(frame)
		if err != nil {
			return nil, 0, err
		}
		for _, result := range results {
			infrastructure.InfoContext(ctx, "Winsorized column",
				slog.String("column", result.Column),
				slog.Float64("lower", result.Lower),
				slog.Float64("upper", result.Upper),
				slog.Int("clipped", result.Clipped))
		}
	}

	splits, err := cleaner.Split(frame)
	if err != nil {
		return nil, 0, err
	}

	outputs := make([]string, 0, len(domain.Splits))
	for _, split := range domain.Splits {
		path := filepath.Join(outputFolder, split.FileName())
		if err := dataset.WriteFrameCSV(path, splits[split]); err != nil {
			return nil, 0, fmt.Errorf("failed to write %s split: %w", split, err)
		}
		outputs = append(outputs, path)
	}
	return outputs, frame.Len(), nil
}
