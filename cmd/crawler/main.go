package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/Karagul/WorldQuant-BTC-Trading/internal/config"
	"github.com/Karagul/WorldQuant-BTC-Trading/internal/crawler"
	"github.com/Karagul/WorldQuant-BTC-Trading/internal/files"
	"github.com/Karagul/WorldQuant-BTC-Trading/internal/infrastructure"
	"github.com/Karagul/WorldQuant-BTC-Trading/internal/validation"
	"github.com/Karagul/WorldQuant-BTC-Trading/pkg/contracts/domain"
)

func main() {
	startDate := flag.String("start_date", "", "first day to download, YYYY-MM-DD (required)")
	endDate := flag.String("end_date", "", "last day to download, YYYY-MM-DD (defaults to today)")
	outputFolder := flag.String("output_folder", "", "directory for per-symbol CSVs (defaults to data/raw relative to executable)")
	symbols := flag.String("symbols", "", "comma-separated symbols to download (defaults to configuration)")
	interval := flag.String("interval", "", "bar interval: 1d, 1wk or 1mo (defaults to configuration)")
	flag.Parse()

	paths, err := config.GetPaths()
	if err != nil {
		slog.Error("Failed to initialize paths", "error", err)
		os.Exit(1)
	}

	if *outputFolder == "" {
		*outputFolder = paths.RawDir
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
	cfg.Logging.FilePath = paths.GetLogPath(config.StageCrawl + ".log")

	logger, err := infrastructure.InitializeLogger(cfg.Logging)
	if err != nil {
		slog.Warn("Failed to initialize logger, using default", "error", err)
		logger = slog.Default()
	}

	if *symbols != "" {
		cfg.Crawler.Symbols = splitList(*symbols)
	}
	if *interval != "" {
		cfg.Crawler.Interval = *interval
	}
	switch cfg.Crawler.Interval {
	case "1d", "1wk", "1mo":
	default:
		logger.Error("Invalid interval", slog.String("interval", cfg.Crawler.Interval))
		os.Exit(1)
	}

	ctx := infrastructure.WithStage(context.Background(), config.StageCrawl)
	if runID := os.Getenv(config.EnvPrefix + "_RUN_ID"); runID != "" {
		ctx = infrastructure.WithRunID(ctx, runID)
	}
	ctx = infrastructure.EnsureRunID(ctx)

	validator := validation.NewFileValidator(logger)
	start, end, err := validator.ValidateDateRange(*startDate, *endDate, config.DateLayout)
	if err != nil {
		infrastructure.ErrorContext(ctx, "Invalid date range", "error", err)
		os.Exit(1)
	}
	if err := validator.ValidateOutputDirectory(*outputFolder); err != nil {
		infrastructure.ErrorContext(ctx, "Invalid output directory", "error", err)
		os.Exit(1)
	}

	infrastructure.InfoContext(ctx, "Starting market data crawl",
		slog.String("start_date", start.Format(config.DateLayout)),
		slog.String("end_date", end.Format(config.DateLayout)),
		slog.String("symbols", strings.Join(cfg.Crawler.Symbols, ",")),
		slog.String("interval", cfg.Crawler.Interval),
		slog.String("output_folder", *outputFolder))

	startedAt := time.Now()
	results, runErr := crawler.New(cfg.Crawler).Run(ctx, cfg.Crawler.Symbols, start, end, *outputFolder)

	record := domain.StageRecord{
		RunID:      infrastructure.GetRunID(ctx),
		Stage:      config.StageCrawl,
		StartedAt:  startedAt.UTC(),
		DurationMS: time.Since(startedAt).Milliseconds(),
		Inputs:     []string{fmt.Sprintf("%s..%s", start.Format(config.DateLayout), end.Format(config.DateLayout))},
		Status:     domain.StageStatusCompleted,
	}
	totalRows := 0
	for _, result := range results {
		record.Outputs = append(record.Outputs, result.Path)
		totalRows += result.Rows
	}
	record.Rows = totalRows
	if runErr != nil {
		record.Status = domain.StageStatusFailed
		record.Error = runErr.Error()
	}
	if err := files.NewAppender(paths.ManifestFile).Append(record); err != nil {
		infrastructure.WarnContext(ctx, "Failed to append manifest record", "error", err)
	}

	if runErr != nil {
		infrastructure.ErrorContext(ctx, "Crawl failed", "error", runErr)
		os.Exit(1)
	}

	infrastructure.InfoContext(ctx, "Crawl completed",
		slog.Int("symbols", len(results)),
		slog.Int("rows", totalRows),
		slog.Int64("duration_ms", record.DurationMS))
}

func splitList(v string) []string {
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
