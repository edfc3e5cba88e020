package dataset

import (
	"encoding/csv"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/Karagul/WorldQuant-BTC-Trading/internal/config"
)

// ErrEmpty is returned when a CSV holds no data rows.
var ErrEmpty = errors.New("no data rows")

// utf8BOM is prepended to CSV files so Excel detects UTF-8 encoding.
var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// WriteFrameCSV writes a frame to path as CSV with a UTF-8 BOM. The
// first column is the date, followed by the frame columns in order.
// Floats are written at full precision so a read round-trips exactly.
func WriteFrameCSV(path string, f *Frame) error {
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

	header := append([]string{ColDate}, f.Columns()...)
	if err := writer.Write(header); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	columns := make([][]float64, 0, len(f.columns))
	for _, name := range f.columns {
		columns = append(columns, f.data[name])
	}

	record := make([]string, len(header))
	for i := 0; i < f.Len(); i++ {
		record[0] = f.dates[i].Format(config.DateLayout)
		for k, values := range columns {
			record[k+1] = formatValue(values[i])
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

// ReadFrameCSV reads a CSV previously written by WriteFrameCSV. Frames
// are machine-written, so any malformed cell is an error rather than a
// row to skip.
func ReadFrameCSV(path string) (*Frame, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open file %s: %w", path, err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV %s: %w", path, err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("file %s: %w", path, ErrEmpty)
	}

	header := records[0]
	header[0] = strings.TrimPrefix(header[0], string(utf8BOM))
	if len(header) < 2 || header[0] != ColDate {
		return nil, fmt.Errorf("file %s: first column must be %s", path, ColDate)
	}

	rows := records[1:]
	if len(rows) == 0 {
		return nil, fmt.Errorf("file %s: %w", path, ErrEmpty)
	}
	dates := make([]time.Time, len(rows))
	columns := make([][]float64, len(header)-1)
	for k := range columns {
		columns[k] = make([]float64, len(rows))
	}

	for i, record := range rows {
		if len(record) != len(header) {
			return nil, fmt.Errorf("file %s row %d: expected %d fields, got %d", path, i+2, len(header), len(record))
		}
		date, err := time.Parse(config.DateLayout, record[0])
		if err != nil {
			return nil, fmt.Errorf("file %s row %d: invalid date %q: %w", path, i+2, record[0], err)
		}
		dates[i] = date
		for k := 1; k < len(record); k++ {
			value, err := parseValue(record[k])
			if err != nil {
				return nil, fmt.Errorf("file %s row %d column %s: %w", path, i+2, header[k], err)
			}
			columns[k-1][i] = value
		}
	}

	frame := New(dates)
	for k, name := range header[1:] {
		if err := frame.AddColumn(name, columns[k]); err != nil {
			return nil, fmt.Errorf("file %s: %w", path, err)
		}
	}
	return frame, nil
}

// formatValue renders a float for CSV. NaN becomes an empty cell, all
// other values keep their shortest exact representation.
func formatValue(v float64) string {
	if math.IsNaN(v) {
		return ""
	}
	return strconv.FormatFloat(v, 'g', -1, 64)
}

// parseValue is the inverse of formatValue.
func parseValue(s string) (float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return math.NaN(), nil
	}
	value, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid number %q", s)
	}
	return value, nil
}
