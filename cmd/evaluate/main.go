package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/Karagul/WorldQuant-BTC-Trading/internal/config"
	"github.com/Karagul/WorldQuant-BTC-Trading/internal/evaluation"
	"github.com/Karagul/WorldQuant-BTC-Trading/internal/files"
	"github.com/Karagul/WorldQuant-BTC-Trading/internal/infrastructure"
	"github.com/Karagul/WorldQuant-BTC-Trading/internal/plotting"
	"github.com/Karagul/WorldQuant-BTC-Trading/internal/validation"
	"github.com/Karagul/WorldQuant-BTC-Trading/pkg/contracts/domain"
)

func main() {
	metricsFolder := flag.String("metrics_folder", "", "directory with stage metrics JSON files (defaults to reports/metrics)")
	outputFolder := flag.String("output_folder", "", "directory for the comparison report (defaults to reports)")
	flag.Parse()

	paths, err := config.GetPaths()
	if err != nil {
		slog.Error("Failed to initialize paths", "error", err)
		os.Exit(1)
	}

	if *metricsFolder == "" {
		*metricsFolder = paths.MetricsDir
	}
	if *outputFolder == "" {
		*outputFolder = paths.ReportsDir
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
	cfg.Logging.FilePath = paths.GetLogPath(config.StageEvaluate + ".log")

	logger, err := infrastructure.InitializeLogger(cfg.Logging)
	if err != nil {
		slog.Warn("Failed to initialize logger, using default", "error", err)
		logger = slog.Default()
	}

	ctx := infrastructure.WithStage(context.Background(), config.StageEvaluate)
	if runID := os.Getenv(config.EnvPrefix + "_RUN_ID"); runID != "" {
		ctx = infrastructure.WithRunID(ctx, runID)
	}
	ctx = infrastructure.EnsureRunID(ctx)

	validator := validation.NewFileValidator(logger)
	if err := validator.ValidateInputDirectory(*metricsFolder, "*.json"); err != nil {
		infrastructure.ErrorContext(ctx, "Invalid metrics directory", "error", err)
		os.Exit(1)
	}

	infrastructure.InfoContext(ctx, "Starting model evaluation",
		slog.String("metrics_folder", *metricsFolder),
		slog.String("output_folder", *outputFolder))

	startedAt := time.Now()
	outputs, rows, runErr := run(ctx, paths, *metricsFolder, *outputFolder)

	record := domain.StageRecord{
		RunID:      infrastructure.GetRunID(ctx),
		Stage:      config.StageEvaluate,
		StartedAt:  startedAt.UTC(),
		DurationMS: time.Since(startedAt).Milliseconds(),
		Inputs:     []string{*metricsFolder},
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
		infrastructure.ErrorContext(ctx, "Model evaluation failed", "error", runErr)
		os.Exit(1)
	}

	infrastructure.InfoContext(ctx, "Model evaluation completed",
		slog.Int("rows", rows),
		slog.Int64("duration_ms", record.DurationMS))
}

func run(ctx context.Context, paths *config.Paths, metricsFolder, outputFolder string) ([]string, int, error) {
	metrics, err := evaluation.LoadStageMetrics(metricsFolder)
	if err != nil {
		return nil, 0, err
	}
	for _, stage := range metrics.Missing {
		infrastructure.WarnContext(ctx, "Stage metrics not found, model skipped", slog.String("model", stage))
	}

	report, err := evaluation.BuildReport(infrastructure.GetRunID(ctx), metrics)
	if err != nil {
		return nil, 0, err
	}

	csvPath := filepath.Join(outputFolder, config.EvaluationCSVName)
	if err := evaluation.WriteComparisonCSV(csvPath, report); err != nil {
		return nil, 0, err
	}
	xlsxPath := filepath.Join(outputFolder, config.EvaluationXLSXName)
	if err := evaluation.WriteWorkbook(xlsxPath, report, metrics); err != nil {
		return nil, 0, err
	}
	plotPath := paths.GetEvalPlotPath("error_comparison")
	if err := plotting.RenderErrorBars(report.Rows, "Shifted-state error by model", plotPath); err != nil {
		return nil, 0, err
	}

	for split, model := range evaluation.BestBySplit(report.Rows) {
		infrastructure.InfoContext(ctx, "Best model on split",
			slog.String("split", split),
			slog.String("model", model))
	}
	infrastructure.InfoContext(ctx, "Best model overall", slog.String("model", report.BestModel))

	return []string{csvPath, xlsxPath, plotPath}, len(report.Rows), nil
}
