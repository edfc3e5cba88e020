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
	"github.com/Karagul/WorldQuant-BTC-Trading/internal/discretize"
	"github.com/Karagul/WorldQuant-BTC-Trading/internal/files"
	"github.com/Karagul/WorldQuant-BTC-Trading/internal/hmm"
	"github.com/Karagul/WorldQuant-BTC-Trading/internal/infrastructure"
	"github.com/Karagul/WorldQuant-BTC-Trading/internal/validation"
	"github.com/Karagul/WorldQuant-BTC-Trading/pkg/contracts/domain"
)

func main() {
	inputFolder := flag.String("train_val_test_folder", "", "directory with cleaned split CSVs (defaults to data/cleaned)")
	outputFolder := flag.String("output_folder", "", "directory for regime state tables (defaults to data/hmm)")
	states := flag.Int("states", -1, "hidden state count, 0 selects by BIC (defaults to configuration)")
	maxIter := flag.Int("max_iter", 0, "EM iteration cap (defaults to configuration)")
	restarts := flag.Int("restarts", 0, "seeded EM restarts (defaults to configuration)")
	seed := flag.Int64("seed", 0, "random seed for EM initialization (defaults to configuration)")
	bins := flag.Int("bins", 0, "quantile bins for the state tables (defaults to configuration)")
	flag.Parse()

	paths, err := config.GetPaths()
	if err != nil {
		slog.Error("Failed to initialize paths", "error", err)
		os.Exit(1)
	}

	if *inputFolder == "" {
		*inputFolder = paths.CleanedDir
	}
	if *outputFolder == "" {
		*outputFolder = paths.StatesDir
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
	cfg.Logging.FilePath = paths.GetLogPath(config.StageHMM + ".log")

	logger, err := infrastructure.InitializeLogger(cfg.Logging)
	if err != nil {
		slog.Warn("Failed to initialize logger, using default", "error", err)
		logger = slog.Default()
	}

	if *states >= 0 {
		cfg.HMM.States = *states
	}
	if *maxIter > 0 {
		cfg.HMM.MaxIterations = *maxIter
	}
	if *restarts > 0 {
		cfg.HMM.Restarts = *restarts
	}
	if *seed != 0 {
		cfg.HMM.Seed = *seed
	}
	if *bins > 0 {
		cfg.HMM.Bins = *bins
	}

	ctx := infrastructure.WithStage(context.Background(), config.StageHMM)
	if runID := os.Getenv(config.EnvPrefix + "_RUN_ID"); runID != "" {
		ctx = infrastructure.WithRunID(ctx, runID)
	}
	ctx = infrastructure.EnsureRunID(ctx)

	validator := validation.NewFileValidator(logger)
	for _, split := range domain.Splits {
		if err := validator.ValidateCSVFile(filepath.Join(*inputFolder, split.FileName())); err != nil {
			infrastructure.ErrorContext(ctx, "Missing cleaned split", "split", string(split), "error", err)
			os.Exit(1)
		}
	}

	infrastructure.InfoContext(ctx, "Starting regime model fit",
		slog.String("input_folder", *inputFolder),
		slog.String("output_folder", *outputFolder),
		slog.Int("states", cfg.HMM.States),
		slog.Int("max_iterations", cfg.HMM.MaxIterations),
		slog.Int("restarts", cfg.HMM.Restarts),
		slog.Int64("seed", cfg.HMM.Seed),
		slog.Int("bins", cfg.HMM.Bins))

	startedAt := time.Now()
	outputs, rows, runErr := run(ctx, cfg, paths, *inputFolder, *outputFolder)

	record := domain.StageRecord{
		RunID:      infrastructure.GetRunID(ctx),
		Stage:      config.StageHMM,
		StartedAt:  startedAt.UTC(),
		DurationMS: time.Since(startedAt).Milliseconds(),
		Inputs:     []string{*inputFolder},
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
		infrastructure.ErrorContext(ctx, "Regime model fit failed", "error", runErr)
		os.Exit(1)
	}

	infrastructure.InfoContext(ctx, "Regime model fit completed",
		slog.Int("rows", rows),
		slog.Int64("duration_ms", record.DurationMS))
}

func run(ctx context.Context, cfg *config.Config, paths *config.Paths, inputFolder, outputFolder string) ([]string, int, error) {
	frames := make(map[domain.Split]*dataset.Frame, len(domain.Splits))
	for _, split := range domain.Splits {
		frame, err := dataset.ReadFrameCSV(filepath.Join(inputFolder, split.FileName()))
		if err != nil {
			return nil, 0, fmt.Errorf("reading %s split: %w", split, err)
		}
		frames[split] = frame
	}

	trainObs, err := hmm.BuildObservations(frames[domain.SplitTrain])
	if err != nil {
		return nil, 0, fmt.Errorf("building train observations: %w", err)
	}

	fitCfg := hmm.FitConfig{
		States:        cfg.HMM.States,
		MaxIterations: cfg.HMM.MaxIterations,
		Tolerance:     cfg.HMM.Tolerance,
		Restarts:      cfg.HMM.Restarts,
		Seed:          cfg.HMM.Seed,
	}

	var model *hmm.Model
	var candidates []hmm.Candidate
	if cfg.HMM.States == 0 {
		model, candidates, err = hmm.Select(trainObs, hmm.FeatureNames, cfg.HMM.MinStates, cfg.HMM.MaxStates, fitCfg)
	} else {
		model, err = hmm.Fit(trainObs, hmm.FeatureNames, fitCfg)
	}
	if err != nil {
		return nil, 0, err
	}
	infrastructure.InfoContext(ctx, "Fitted regime model",
		slog.Int("states", model.States),
		slog.Float64("log_likelihood", model.LogLikelihood),
		slog.Float64("bic", model.BIC),
		slog.Bool("converged", model.Converged))

	edges, err := discretize.Fit(frames[domain.SplitTrain], cfg.HMM.Bins)
	if err != nil {
		return nil, 0, err
	}

	outputs := make([]string, 0, len(domain.Splits)+2)
	regimeCounts := make(map[string][]int, len(domain.Splits))
	var trainRegimes []int
	rows := 0
	for _, split := range domain.Splits {
		frame := frames[split]
		obs, err := hmm.BuildObservations(frame)
		if err != nil {
			return nil, 0, fmt.Errorf("building %s observations: %w", split, err)
		}
		regimes, err := model.Decode(obs)
		if err != nil {
			return nil, 0, fmt.Errorf("decoding %s split: %w", split, err)
		}
		if split == domain.SplitTrain {
			trainRegimes = regimes
		}

		counts := make([]int, model.States)
		for _, regime := range regimes {
			counts[regime]++
		}
		regimeCounts[split.String()] = counts

		table, err := discretize.BuildStateTable(frame, regimes, edges)
		if err != nil {
			return nil, 0, fmt.Errorf("building %s state table: %w", split, err)
		}
		path := filepath.Join(outputFolder, split.FileName())
		if err := dataset.WriteFrameCSV(path, table); err != nil {
			return nil, 0, fmt.Errorf("writing %s state table: %w", split, err)
		}
		outputs = append(outputs, path)
		rows += table.Len()
	}

	if err := model.Save(paths.HMMModelFile); err != nil {
		return nil, 0, err
	}
	outputs = append(outputs, paths.HMMModelFile)

	report := buildReport(ctx, model, candidates, regimeCounts, trainRegimes)
	metricsPath := paths.GetMetricsPath(domain.HMMMetricsFile)
	if err := files.WriteJSON(metricsPath, report); err != nil {
		return nil, 0, err
	}
	outputs = append(outputs, metricsPath)

	return outputs, rows, nil
}

func buildReport(ctx context.Context, model *hmm.Model, candidates []hmm.Candidate, regimeCounts map[string][]int, trainRegimes []int) *domain.HMMReport {
	report := &domain.HMMReport{
		RunID:         infrastructure.GetRunID(ctx),
		GeneratedAt:   time.Now().UTC(),
		States:        model.States,
		Features:      model.Features,
		TrainRows:     model.TrainRows,
		LogLikelihood: model.LogLikelihood,
		BIC:           model.BIC,
		Iterations:    model.Iterations,
		Converged:     model.Converged,
		RegimeCounts:  regimeCounts,
	}
	for _, c := range candidates {
		report.Candidates = append(report.Candidates, domain.HMMCandidate{
			States:        c.States,
			LogLikelihood: c.LogLikelihood,
			BIC:           c.BIC,
			Selected:      c.Chosen,
		})
	}
	for s := 0; s < model.States; s++ {
		occupied := 0
		for _, regime := range trainRegimes {
			if regime == s {
				occupied++
			}
		}
		report.StateSummary = append(report.StateSummary, domain.HMMStateSummary{
			State:          s,
			MeanReturn:     model.Means[s][0],
			MeanVolatility: model.Means[s][1],
			Occupancy:      float64(occupied) / float64(len(trainRegimes)),
		})
	}
	return report
}
