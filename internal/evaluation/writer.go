package evaluation

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/xuri/excelize/v2"

	"github.com/Karagul/WorldQuant-BTC-Trading/pkg/contracts/domain"
)

const (
	summarySheet = "Summary"
	metricsSheet = "Metrics"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// WriteComparisonCSV writes the comparison rows to path with a UTF-8
// BOM so Excel opens it cleanly.
func WriteComparisonCSV(path string, report *domain.EvaluationReport) error {
	if err := os.MkdirAll(filepath.Dir(path), 0750); err != nil {
		return fmt.Errorf("failed to create report directory: %w", err)
	}

	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create file %s: %w", path, err)
	}
	defer file.Close()

	if _, err := file.Write(utf8BOM); err != nil {
		return fmt.Errorf("failed to write BOM: %w", err)
	}

	writer := csv.NewWriter(file)
	if err := writer.Write([]string{"Model", "Split", "ErrorRate", "Accuracy", "Detail"}); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}
	for i, row := range report.Rows {
		record := []string{
			row.Model,
			row.Split,
			strconv.FormatFloat(row.ErrorRate, 'f', 6, 64),
			strconv.FormatFloat(row.Accuracy, 'f', 6, 64),
			row.Detail,
		}
		if err := writer.Write(record); err != nil {
			return fmt.Errorf("failed to write row %d: %w", i, err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return fmt.Errorf("failed to flush CSV: %w", err)
	}
	return nil
}

// WriteWorkbook writes the xlsx rendering of the comparison: a Summary
// sheet with the ranked rows and a Metrics sheet listing the raw stage
// metrics, including stages that did not run.
func WriteWorkbook(path string, report *domain.EvaluationReport, metrics *StageMetrics) error {
	if err := os.MkdirAll(filepath.Dir(path), 0750); err != nil {
		return fmt.Errorf("failed to create report directory: %w", err)
	}

	f := excelize.NewFile()
	defer f.Close()

	if _, err := f.NewSheet(summarySheet); err != nil {
		return fmt.Errorf("failed to create sheet %s: %w", summarySheet, err)
	}
	if _, err := f.NewSheet(metricsSheet); err != nil {
		return fmt.Errorf("failed to create sheet %s: %w", metricsSheet, err)
	}
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return fmt.Errorf("failed to drop default sheet: %w", err)
	}

	if err := setRow(f, summarySheet, 1, "Model", "Split", "Error rate", "Accuracy", "Detail"); err != nil {
		return err
	}
	rowIdx := 2
	for _, row := range report.Rows {
		if err := setRow(f, summarySheet, rowIdx, row.Model, row.Split, row.ErrorRate, row.Accuracy, row.Detail); err != nil {
			return err
		}
		rowIdx++
	}
	rowIdx++
	if err := setRow(f, summarySheet, rowIdx, "Best model", report.BestModel); err != nil {
		return err
	}

	if err := setRow(f, metricsSheet, 1, "Stage", "Metric", "Value"); err != nil {
		return err
	}
	for i, row := range metricsRows(metrics) {
		if err := setRow(f, metricsSheet, i+2, row...); err != nil {
			return err
		}
	}

	index, err := f.GetSheetIndex(summarySheet)
	if err != nil {
		return fmt.Errorf("failed to locate sheet %s: %w", summarySheet, err)
	}
	f.SetActiveSheet(index)

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("failed to save workbook %s: %w", path, err)
	}
	return nil
}

func setRow(f *excelize.File, sheet string, row int, values ...any) error {
	for i, value := range values {
		cell, err := excelize.CoordinatesToCellName(i+1, row)
		if err != nil {
			return fmt.Errorf("failed to name cell (%d, %d): %w", i+1, row, err)
		}
		if err := f.SetCellValue(sheet, cell, value); err != nil {
			return fmt.Errorf("failed to set %s!%s: %w", sheet, cell, err)
		}
	}
	return nil
}

func metricsRows(metrics *StageMetrics) [][]any {
	var rows [][]any
	if r := metrics.HMM; r != nil {
		rows = append(rows,
			[]any{"hmm", "states", r.States},
			[]any{"hmm", "train_rows", r.TrainRows},
			[]any{"hmm", "log_likelihood", r.LogLikelihood},
			[]any{"hmm", "bic", r.BIC},
			[]any{"hmm", "converged", r.Converged},
		)
	} else {
		rows = append(rows, []any{"hmm", "status", "not run"})
	}
	if r := metrics.Bayesian; r != nil {
		rows = append(rows,
			[]any{ModelBayesian, "best_method", r.BestMethod},
			[]any{ModelBayesian, "best_max_iter", r.BestMaxIter},
			[]any{ModelBayesian, "best_score", r.BestScore},
			[]any{ModelBayesian, "edges", len(r.Edges)},
			[]any{ModelBayesian, "validation_error", r.ValidationError},
		)
	} else {
		rows = append(rows, []any{ModelBayesian, "status", "not run"})
	}
	if r := metrics.Markov; r != nil {
		rows = append(rows,
			[]any{ModelMarkov, "states", r.States},
			[]any{ModelMarkov, "smoothing", r.Smoothing},
			[]any{ModelMarkov, "validation_error", r.ValidationError},
			[]any{ModelMarkov, "test_error", r.TestError},
		)
	} else {
		rows = append(rows, []any{ModelMarkov, "status", "not run"})
	}
	return rows
}
