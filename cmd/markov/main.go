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
	"github.com/Karagul/WorldQuant-BTC-Trading/internal/evaluation"
	"github.com/Karagul/WorldQuant-BTC-Trading/internal/files"
	"github.com/Karagul/WorldQuant-BTC-Trading/internal/infrastructure"
	"github.com/Karagul/WorldQuant-BTC-Trading/internal/markovchain"
	"github.com/Karagul/WorldQuant-BTC-Trading/internal/validation"
	"github.com/Karagul/WorldQuant-BTC-Trading/pkg/contracts/domain"
)

func main() {
	cleanedData := flag.String("cleaned_data", "", "directory with cleaned split CSVs (defaults to data/cleaned)")
	hmmData := flag.String("hmm_data", "", "directory with regime state tables (defaults to data/hmm)")
	smoothing := flag.Float64("smoothing", -1, "Laplace pseudo-count for transition rows (defaults to configuration)")
	flag.Parse()

	paths, err := config.GetPaths()
	if err != nil {
		slog.Error("Failed to initialize paths", "error", err)
		os.Exit(1)
	}

	if *cleanedData == "" {
		*cleanedData = paths.CleanedDir
	}
	if *hmmData == "" {
		*hmmData = paths.StatesDir
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
	cfg.Logging.FilePath = paths.GetLogPath(config.StageMarkov + ".log")

	logger, err := infrastructure.InitializeLogger(cfg.Logging)
	if err != nil {
		slog.Warn("Failed to initialize logger, using default", "error", err)
		logger = slog.Default()
	}

	if *smoothing >= 0 {
		cfg.Markov.Smoothing = *smoothing
	}

	ctx := infrastructure.WithStage(context.Background(), config.StageMarkov)
	if runID := os.Getenv(config.EnvPrefix + "_RUN_ID"); runID != "" {
		ctx = infrastructure.WithRunID(ctx, runID)
	}
	ctx = infrastructure.EnsureRunID(ctx)

	validator := validation.NewFileValidator(logger)
	if err := validator.ValidateCSVFile(filepath.Join(*cleanedData, domain.SplitTrain.FileName())); err != nil {
		infrastructure.ErrorContext(ctx, "Missing cleaned split", "error", err)
		os.Exit(1)
	}
	for _, split := range domain.Splits {
		if err := validator.ValidateCSVFile(filepath.Join(*hmmData, split.FileName())); err != nil {
			infrastructure.ErrorContext(ctx, "Missing state table", "split", string(split), "error", err)
			os.Exit(1)
		}
	}

	infrastructure.InfoContext(ctx, "Starting Markov chain stage",
		slog.String("cleaned_data", *cleanedData),
		slog.String("hmm_data", *hmmData),
		slog.Float64("smoothing", cfg.Markov.Smoothing))

	startedAt := time.Now()
	outputs, rows, runErr := run(ctx, cfg, paths, *cleanedData, *hmmData)

	record := domain.StageRecord{
		RunID:      infrastructure.GetRunID(ctx),
		Stage:      config.StageMarkov,
		StartedAt:  startedAt.UTC(),
		DurationMS: time.Since(startedAt).Milliseconds(),
		Inputs:     []string{*cleanedData, *hmmData},
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
		infrastructure.ErrorContext(ctx, "Markov chain stage failed", "error", runErr)
		os.Exit(1)
	}

	infrastructure.InfoContext(ctx, "Markov chain stage completed",
		slog.Int("rows", rows),
		slog.Int64("duration_ms", record.DurationMS))
}

func run(ctx context.Context, cfg *config.Config, paths *config.Paths, cleanedData, hmmData string) ([]string, int, error) {
	cleanedTrain, err := dataset.ReadFrameCSV(filepath.Join(cleanedData, domain.SplitTrain.FileName()))
	if err != nil {
		return nil, 0, err
	}

	tables := make(map[domain.Split]*dataset.Frame, len(domain.Splits))
	for _, split := range domain.Splits {
		table, err := dataset.ReadFrameCSV(filepath.Join(hmmData, split.FileName()))
		if err != nil {
			return nil, 0, fmt.Errorf("reading %s state table: %w", split, err)
		}
		tables[split] = table
	}
	trainTable := tables[domain.SplitTrain]

	regimeSeq, err := trainTable.IntColumn(dataset.ColRegime)
	if err != nil {
		return nil, 0, err
	}
	regimeChain, err := markovchain.FitChain(regimeSeq, cfg.Markov.Smoothing)
	if err != nil {
		return nil, 0, fmt.Errorf("fitting regime chain: %w", err)
	}

	closeSeq, err := trainTable.IntColumn(dataset.ColClose)
	if err != nil {
		return nil, 0, err
	}
	closeChain, err := markovchain.FitChain(closeSeq, cfg.Markov.Smoothing)
	if err != nil {
		return nil, 0, fmt.Errorf("fitting close-state chain: %w", err)
	}

	stationary, err := regimeChain.Stationary()
	if err != nil {
		return nil, 0, err
	}
	durations, err := regimeChain.ExpectedDurations()
	if err != nil {
		return nil, 0, err
	}
	stats, err := markovchain.RegimeStats(cleanedTrain, trainTable, regimeChain.States)
	if err != nil {
		return nil, 0, err
	}

	errors := make(map[domain.Split]float64, 2)
	for _, split := range []domain.Split{domain.SplitValidation, domain.SplitTest} {
		actual, err := tables[split].IntColumn(dataset.ColClose)
		if err != nil {
			return nil, 0, fmt.Errorf("%s close states: %w", split, err)
		}
		mismatch, err := evaluation.ShiftedMismatch(actual, closeChain.PredictSequence(actual))
		if err != nil {
			return nil, 0, fmt.Errorf("scoring %s split: %w", split, err)
		}
		errors[split] = mismatch
		infrastructure.InfoContext(ctx, "Scored close-state forecasts",
			slog.String("split", split.String()),
			slog.Float64("error", mismatch),
			slog.Int("observations", len(actual)))
	}

	model := &markovchain.Model{
		SchemaVersion: markovchain.SchemaVersion,
		RegimeChain:   regimeChain,
		CloseChain:    closeChain,
		TrainRows:     trainTable.Len(),
	}
	if err := model.Save(paths.MarkovModelFile); err != nil {
		return nil, 0, err
	}

	report := &domain.MarkovReport{
		RunID:             infrastructure.GetRunID(ctx),
		GeneratedAt:       time.Now().UTC(),
		States:            regimeChain.States,
		Smoothing:         cfg.Markov.Smoothing,
		TransitionMatrix:  regimeChain.Transition,
		Stationary:        stationary,
		ExpectedDurations: durations,
		RegimeStats:       stats,
		ValidationError:   errors[domain.SplitValidation],
		TestError:         errors[domain.SplitTest],
	}
	metricsPath := paths.GetMetricsPath(domain.MarkovMetricsFile)
	if err := files.WriteJSON(metricsPath, report); err != nil {
		return nil, 0, err
	}

	outputs := []string{paths.MarkovModelFile, metricsPath}
	return outputs, trainTable.Len(), nil
}
