package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/Karagul/WorldQuant-BTC-Trading/internal/bayes"
	"github.com/Karagul/WorldQuant-BTC-Trading/internal/config"
	"github.com/Karagul/WorldQuant-BTC-Trading/internal/dataset"
	"github.com/Karagul/WorldQuant-BTC-Trading/internal/evaluation"
	"github.com/Karagul/WorldQuant-BTC-Trading/internal/files"
	"github.com/Karagul/WorldQuant-BTC-Trading/internal/infrastructure"
	"github.com/Karagul/WorldQuant-BTC-Trading/internal/plotting"
	"github.com/Karagul/WorldQuant-BTC-Trading/internal/validation"
	"github.com/Karagul/WorldQuant-BTC-Trading/pkg/contracts/domain"
)

func main() {
	trainData := flag.String("train_data", "", "train state table (defaults to data/hmm/train_data.csv)")
	valData := flag.String("val_data", "", "validation state table (defaults to data/hmm/validation_data.csv)")
	maxIters := flag.String("max_iters", "", "comma-separated hill-climb iteration caps (defaults to configuration)")
	ess := flag.Float64("ess", 0, "equivalent sample size for BDeu and BDs scores (defaults to configuration)")
	flag.Parse()

	paths, err := config.GetPaths()
	if err != nil {
		slog.Error("Failed to initialize paths", "error", err)
		os.Exit(1)
	}

	if *trainData == "" {
		*trainData = paths.GetStateSplitPath(domain.SplitTrain.String())
	}
	if *valData == "" {
		*valData = paths.GetStateSplitPath(domain.SplitValidation.String())
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
	cfg.Logging.FilePath = paths.GetLogPath(config.StageBayesian + ".log")

	logger, err := infrastructure.InitializeLogger(cfg.Logging)
	if err != nil {
		slog.Warn("Failed to initialize logger, using default", "error", err)
		logger = slog.Default()
	}

	if *maxIters != "" {
		caps, err := parseIntList(*maxIters)
		if err != nil {
			logger.Error("Invalid max_iters flag", slog.String("max_iters", *maxIters), slog.String("error", err.Error()))
			os.Exit(1)
		}
		cfg.Bayes.MaxIterations = caps
	}
	if *ess > 0 {
		cfg.Bayes.ESS = *ess
	}

	ctx := infrastructure.WithStage(context.Background(), config.StageBayesian)
	if runID := os.Getenv(config.EnvPrefix + "_RUN_ID"); runID != "" {
		ctx = infrastructure.WithRunID(ctx, runID)
	}
	ctx = infrastructure.EnsureRunID(ctx)

	validator := validation.NewFileValidator(logger)
	for _, path := range []string{*trainData, *valData} {
		if err := validator.ValidateCSVFile(path); err != nil {
			infrastructure.ErrorContext(ctx, "Missing state table", "error", err)
			os.Exit(1)
		}
	}

	infrastructure.InfoContext(ctx, "Starting Bayesian network stage",
		slog.String("train_data", *trainData),
		slog.String("val_data", *valData),
		slog.String("methods", strings.Join(cfg.Bayes.Methods, ",")),
		slog.Float64("ess", cfg.Bayes.ESS))

	startedAt := time.Now()
	outputs, rows, runErr := run(ctx, cfg, paths, *trainData, *valData)

	record := domain.StageRecord{
		RunID:      infrastructure.GetRunID(ctx),
		Stage:      config.StageBayesian,
		StartedAt:  startedAt.UTC(),
		DurationMS: time.Since(startedAt).Milliseconds(),
		Inputs:     []string{*trainData, *valData},
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
		infrastructure.ErrorContext(ctx, "Bayesian network stage failed", "error", runErr)
		os.Exit(1)
	}

	infrastructure.InfoContext(ctx, "Bayesian network stage completed",
		slog.Int("rows", rows),
		slog.Int64("duration_ms", record.DurationMS))
}

func run(ctx context.Context, cfg *config.Config, paths *config.Paths, trainData, valData string) ([]string, int, error) {
	trainTable, err := dataset.ReadFrameCSV(trainData)
	if err != nil {
		return nil, 0, err
	}
	valTable, err := dataset.ReadFrameCSV(valData)
	if err != nil {
		return nil, 0, err
	}
	for _, column := range []string{dataset.ColForecast, dataset.ColClose} {
		if !valTable.HasColumn(column) {
			return nil, 0, fmt.Errorf("validation table %s has no %s column", valData, column)
		}
	}

	data, err := bayes.FromFrame(trainTable)
	if err != nil {
		return nil, 0, err
	}

	result, err := bayes.SearchBest(data, cfg.Bayes.Methods, cfg.Bayes.MaxIterations, cfg.Bayes.ESS)
	if err != nil {
		return nil, 0, err
	}
	infrastructure.InfoContext(ctx, "Structure search finished",
		slog.String("method", result.Method),
		slog.Int("max_iter", result.MaxIter),
		slog.Float64("score", result.Score),
		slog.Int("edges", result.Graph.EdgeCount()))

	network, err := bayes.FitNetwork(data, result)
	if err != nil {
		return nil, 0, err
	}

	predictions, err := network.Predict(valTable, dataset.ColForecast)
	if err != nil {
		return nil, 0, err
	}
	actual, err := valTable.IntColumn(dataset.ColClose)
	if err != nil {
		return nil, 0, err
	}
	validationError, err := evaluation.ShiftedMismatch(actual, predictions)
	if err != nil {
		return nil, 0, err
	}
	infrastructure.InfoContext(ctx, "Scored validation forecasts",
		slog.Float64("validation_error", validationError),
		slog.Int("observations", len(actual)))

	if err := network.Save(paths.BayesianModelFile); err != nil {
		return nil, 0, err
	}

	networkPlot := paths.GetNetworkPlotPath()
	title := fmt.Sprintf("Learned network structure (%s, max_iter=%d)", result.Method, result.MaxIter)
	if err := plotting.RenderNetwork(network.Nodes, network.Edges, title, networkPlot); err != nil {
		return nil, 0, err
	}

	report := &domain.BayesianReport{
		RunID:           infrastructure.GetRunID(ctx),
		GeneratedAt:     time.Now().UTC(),
		BestMethod:      result.Method,
		BestMaxIter:     result.MaxIter,
		BestScore:       result.Score,
		Nodes:           network.Nodes,
		Edges:           network.Edges,
		ValidationError: validationError,
	}
	for _, c := range result.Candidates {
		report.Candidates = append(report.Candidates, domain.BayesianCandidate{
			Method:   c.Method,
			MaxIter:  c.MaxIter,
			Score:    c.Score,
			Edges:    c.Edges,
			Selected: c.Chosen,
		})
	}
	metricsPath := paths.GetMetricsPath(domain.BayesianMetricsFile)
	if err := files.WriteJSON(metricsPath, report); err != nil {
		return nil, 0, err
	}

	outputs := []string{paths.BayesianModelFile, networkPlot, metricsPath}
	return outputs, trainTable.Len(), nil
}

func parseIntList(v string) ([]int, error) {
	parts := strings.Split(v, ",")
	out := make([]int, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		n, err := strconv.Atoi(p)
		if err != nil {
			return nil, fmt.Errorf("invalid iteration cap %q: %w", p, err)
		}
		out = append(out, n)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("no iteration caps in %q", v)
	}
	return out, nil
}
