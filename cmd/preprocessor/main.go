package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"time"

	"github.com/Karagul/WorldQuant-BTC-Trading/internal/config"
	"github.com/Karagul/WorldQuant-BTC-Trading/internal/dataset"
	"github.com/Karagul/WorldQuant-BTC-Trading/internal/files"
	"github.com/Karagul/WorldQuant-BTC-Trading/internal/infrastructure"
	"github.com/Karagul/WorldQuant-BTC-Trading/internal/preprocess"
	"github.com/Karagul/WorldQuant-BTC-Trading/internal/validation"
	"github.com/Karagul/WorldQuant-BTC-Trading/pkg/contracts/domain"
)

func main() {
	inputFolder := flag.String("input_folder", "", "directory with raw downloads (defaults to data/raw relative to executable)")
	outputFile := flag.String("output_file", "", "output CSV path (defaults to data/processed/market_data.csv)")
	symbol := flag.String("symbol", config.DefaultSymbol, "symbol whose files to merge")
	flag.Parse()

	paths, err := config.GetPaths()
	if err != nil {
		slog.Error("Failed to initialize paths", "error", err)
		os.Exit(1)
	}

	if *inputFolder == "" {
		*inputFolder = paths.RawDir
	}
	if *outputFile == "" {
		*outputFile = paths.ProcessedCSV
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
	cfg.Logging.FilePath = paths.GetLogPath(config.StagePreprocess + ".log")

	logger, err := infrastructure.InitializeLogger(cfg.Logging)
	if err != nil {
		slog.Warn("Failed to initialize logger, using default", "error", err)
		logger = slog.Default()
	}

	ctx := infrastructure.WithStage(context.Background(), config.StagePreprocess)
	if runID := os.Getenv(config.EnvPrefix + "_RUN_ID"); runID != "" {
		ctx = infrastructure.WithRunID(ctx, runID)
	}
	ctx = infrastructure.EnsureRunID(ctx)

	validator := validation.NewFileValidator(logger)
	if err := validator.ValidateInputDirectory(*inputFolder, "*"); err != nil {
		infrastructure.ErrorContext(ctx, "Invalid input directory", "error", err)
		os.Exit(1)
	}

	infrastructure.InfoContext(ctx, "Starting preprocessing",
		slog.String("input_folder", *inputFolder),
		slog.String("output_file", *outputFile),
		slog.String("symbol", *symbol))

	startedAt := time.Now()
	rows, runErr := run(ctx, cfg, *inputFolder, *outputFile, *symbol)

	record := domain.StageRecord{
		RunID:      infrastructure.GetRunID(ctx),
		Stage:      config.StagePreprocess,
		StartedAt:  startedAt.UTC(),
		DurationMS: time.Since(startedAt).Milliseconds(),
		Inputs:     []string{*inputFolder},
		Outputs:    []string{*outputFile},
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
		infrastructure.ErrorContext(ctx, "Preprocessing failed", "error", runErr)
		os.Exit(1)
	}

	infrastructure.InfoContext(ctx, "Preprocessing completed",
		slog.Int("rows", rows),
		slog.Int64("duration_ms", record.DurationMS))
}

func run(ctx context.Context, cfg *config.Config, inputFolder, outputFile, symbol string) (int, error) {
	preprocessor := preprocess.New(cfg.Features)

	bars, err := preprocessor.LoadBars(inputFolder, symbol)
	if err != nil {
		return 0, err
	}
	infrastructure.InfoContext(ctx, "Loaded raw bars", slog.Int("bars", len(bars)))

	frame, err := preprocessor.Features(bars)
	if err != nil {
		return 0, err
	}

	if err := dataset.WriteFrameCSV(outputFile, frame); err != nil {
		return 0, err
	}
	return frame.Len(), nil
}
