package dataset

import (
	"encoding/csv"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/Karagul/WorldQuant-BTC-Trading/internal/config"
	"github.com/Karagul/WorldQuant-BTC-Trading/pkg/contracts/domain"
)

// BarHeader is the column layout of raw per-symbol OHLCV files.
var BarHeader = []string{ColDate, ColOpen, ColHigh, ColLow, ColClose, ColAdjClose, ColVolume}

// WriteBarsCSV writes raw bars to path with the standard header and a
// UTF-8 BOM. Parent directories are created as needed.
func WriteBarsCSV(path string, bars []domain.Bar) error {
	if err := os.MkdirAll(filepath.Dir(path), 0750); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
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
	defer writer.Flush()

	if err := writer.Write(BarHeader); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	for i, bar := range bars {
		record := []string{
			bar.Date.Format(config.DateLayout),
			formatValue(bar.Open),
			formatValue(bar.High),
			formatValue(bar.Low),
			formatValue(bar.Close),
			formatValue(bar.AdjClose),
			formatValue(bar.Volume),
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

// ReadBarsCSV reads raw bars from a CSV file. The header row is located
// by name so extra or reordered columns from different providers still
// parse. Malformed rows are skipped with a warning instead of failing
// the whole file.
func ReadBarsCSV(path, symbol string) ([]domain.Bar, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open file %s: %w", path, err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1
	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV %s: %w", path, err)
	}
	if len(records) < 2 {
		return nil, fmt.Errorf("file %s has no data rows", path)
	}

	header := records[0]
	header[0] = strings.TrimPrefix(header[0], string(utf8BOM))
	columnMap, err := mapBarColumns(header)
	if err != nil {
		return nil, fmt.Errorf("file %s: %w", path, err)
	}

	bars := make([]domain.Bar, 0, len(records)-1)
	skipped := 0
	for i, record := range records[1:] {
		bar, err := parseBarRecord(record, columnMap, symbol)
		if err != nil {
			slog.Warn("skipping malformed row",
				"file", filepath.Base(path),
				"row", i+2,
				"error", err)
			skipped++
			continue
		}
		bars = append(bars, bar)
	}
	if skipped > 0 {
		slog.Warn("skipped malformed rows",
			"file", filepath.Base(path),
			"skipped", skipped,
			"parsed", len(bars))
	}
	if len(bars) == 0 {
		return nil, fmt.Errorf("file %s contains no parseable rows", path)
	}
	return bars, nil
}

// ReadBarsXLSX reads raw bars from an Excel workbook. Data exported by
// hand often carries title rows above the header and trailing notes
// below the data, so both the sheet and the header row are discovered
// by content.
func ReadBarsXLSX(path, symbol string) ([]domain.Bar, error) {
	workbook, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook %s: %w", path, err)
	}
	defer workbook.Close()

	sheet, rows, headerIdx, err := findBarSheet(workbook)
	if err != nil {
		return nil, fmt.Errorf("file %s: %w", path, err)
	}
	slog.Debug("located data sheet", "file", filepath.Base(path), "sheet", sheet, "header_row", headerIdx+1)

	columnMap, err := mapBarColumns(rows[headerIdx])
	if err != nil {
		return nil, fmt.Errorf("file %s sheet %s: %w", path, sheet, err)
	}

	bars := make([]domain.Bar, 0, len(rows)-headerIdx-1)
	skipped := 0
	for i := headerIdx + 1; i < len(rows); i++ {
		if isEmptyRow(rows[i]) {
			continue
		}
		bar, err := parseBarRecord(rows[i], columnMap, symbol)
		if err != nil {
			slog.Warn("skipping malformed row",
				"file", filepath.Base(path),
				"sheet", sheet,
				"row", i+1,
				"error", err)
			skipped++
			continue
		}
		bars = append(bars, bar)
	}
	if skipped > 0 {
		slog.Warn("skipped malformed rows",
			"file", filepath.Base(path),
			"skipped", skipped,
			"parsed", len(bars))
	}
	if len(bars) == 0 {
		return nil, fmt.Errorf("file %s contains no parseable rows", path)
	}
	return bars, nil
}

// findBarSheet scans the workbook for the first sheet whose top rows
// contain a recognizable OHLCV header.
func findBarSheet(workbook *excelize.File) (string, [][]string, int, error) {
	for _, sheet := range workbook.GetSheetList() {
		rows, err := workbook.GetRows(sheet)
		if err != nil || len(rows) < 2 {
			continue
		}
		limit := len(rows)
		if limit > 10 {
			limit = 10
		}
		for i := 0; i < limit; i++ {
			if isBarHeader(rows[i]) {
				return sheet, rows, i, nil
			}
		}
	}
	return "", nil, 0, fmt.Errorf("no sheet with an OHLCV header found")
}

// isBarHeader reports whether a row looks like an OHLCV header.
func isBarHeader(row []string) bool {
	hasDate, hasClose := false, false
	for _, cell := range row {
		switch normalizeColumn(cell) {
		case ColDate:
			hasDate = true
		case ColClose:
			hasClose = true
		}
	}
	return hasDate && hasClose
}

// mapBarColumns resolves the index of every required column by name.
func mapBarColumns(header []string) (map[string]int, error) {
	columnMap := make(map[string]int, len(BarHeader))
	for idx, cell := range header {
		name := normalizeColumn(cell)
		if _, ok := columnMap[name]; !ok && name != "" {
			columnMap[name] = idx
		}
	}
	var missing []string
	for _, name := range BarHeader {
		if _, ok := columnMap[name]; !ok {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("missing columns: %s", strings.Join(missing, ", "))
	}
	return columnMap, nil
}

// normalizeColumn maps provider header spellings onto canonical names.
func normalizeColumn(cell string) string {
	cleaned := strings.TrimSpace(strings.TrimPrefix(cell, string(utf8BOM)))
	switch strings.ToLower(strings.ReplaceAll(cleaned, " ", "")) {
	case "date", "timestamp":
		return ColDate
	case "open":
		return ColOpen
	case "high":
		return ColHigh
	case "low":
		return ColLow
	case "close":
		return ColClose
	case "adjclose", "adj.close", "adjustedclose":
		return ColAdjClose
	case "volume":
		return ColVolume
	default:
		return cleaned
	}
}

func parseBarRecord(record []string, columnMap map[string]int, symbol string) (domain.Bar, error) {
	get := func(name string) string {
		idx := columnMap[name]
		if idx >= len(record) {
			return ""
		}
		return strings.TrimSpace(record[idx])
	}

	date, err := parseBarDate(get(ColDate))
	if err != nil {
		return domain.Bar{}, err
	}

	bar := domain.Bar{Symbol: symbol, Date: date}
	fields := []struct {
		name string
		dst  *float64
	}{
		{ColOpen, &bar.Open},
		{ColHigh, &bar.High},
		{ColLow, &bar.Low},
		{ColClose, &bar.Close},
		{ColAdjClose, &bar.AdjClose},
		{ColVolume, &bar.Volume},
	}
	for _, field := range fields {
		value, err := parseBarFloat(get(field.name))
		if err != nil {
			return domain.Bar{}, fmt.Errorf("column %s: %w", field.name, err)
		}
		*field.dst = value
	}

	if err := bar.Validate(); err != nil {
		return domain.Bar{}, err
	}
	return bar, nil
}

// parseBarDate accepts the pipeline's own layout plus the formats
// Excel tends to produce.
func parseBarDate(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, fmt.Errorf("empty date")
	}
	layouts := []string{
		config.DateLayout,
		"2006-01-02 15:04:05",
		"01-02-06",
		"1/2/2006",
		"01/02/2006",
		"2006/01/02",
		"02-Jan-06",
	}
	for _, layout := range layouts {
		if date, err := time.Parse(layout, s); err == nil {
			return date.UTC().Truncate(24 * time.Hour), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized date %q", s)
}

// parseBarFloat parses a numeric cell, tolerating thousands separators.
func parseBarFloat(s string) (float64, error) {
	if s == "" || s == "-" {
		return 0, fmt.Errorf("empty value")
	}
	cleaned := strings.ReplaceAll(s, ",", "")
	value, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid number %q", s)
	}
	return value, nil
}

func isEmptyRow(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}

// FromBars builds a frame from raw bars, one column per OHLCV field.
// Bars must already be sorted and deduplicated.
func FromBars(bars []domain.Bar) *Frame {
	dates := make([]time.Time, len(bars))
	open := make([]float64, len(bars))
	high := make([]float64, len(bars))
	low := make([]float64, len(bars))
	closes := make([]float64, len(bars))
	adjClose := make([]float64, len(bars))
	volume := make([]float64, len(bars))
	for i, bar := range bars {
		dates[i] = bar.Date
		open[i] = bar.Open
		high[i] = bar.High
		low[i] = bar.Low
		closes[i] = bar.Close
		adjClose[i] = bar.AdjClose
		volume[i] = bar.Volume
	}

	frame := New(dates)
	frame.AddColumn(ColOpen, open)
	frame.AddColumn(ColHigh, high)
	frame.AddColumn(ColLow, low)
	frame.AddColumn(ColClose, closes)
	frame.AddColumn(ColAdjClose, adjClose)
	frame.AddColumn(ColVolume, volume)
	return frame
}
