package validation

import (
	"bufio"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// FileValidator provides common file validation functions for all stage binaries
type FileValidator struct {
	logger *slog.Logger
}

// NewFileValidator creates a new file validator
func NewFileValidator(logger *slog.Logger) *FileValidator {
	if logger == nil {
		logger = slog.Default()
	}
	return &FileValidator{
		logger: logger,
	}
}

// ValidateInputDirectory validates that input directory exists and contains expected files
func (v *FileValidator) ValidateInputDirectory(dir string, requiredPattern string) error {
	// Check if directory exists
	info, err := os.Stat(dir)
	if os.IsNotExist(err) {
		v.logger.Error("Input directory does not exist",
			slog.String("directory", dir))
		return fmt.Errorf("input directory %s does not exist", dir)
	}
	if err != nil {
		v.logger.Error("Failed to stat input directory",
			slog.String("directory", dir),
			slog.String("error", err.Error()))
		return fmt.Errorf("failed to stat directory %s: %w", dir, err)
	}
	if !info.IsDir() {
		v.logger.Error("Input path is not a directory",
			slog.String("path", dir))
		return fmt.Errorf("%s is not a directory", dir)
	}

	// Check for files matching pattern if provided
	if requiredPattern != "" {
		pattern := filepath.Join(dir, requiredPattern)
		matches, err := filepath.Glob(pattern)
		if err != nil {
			v.logger.Error("Failed to check for files",
				slog.String("pattern", pattern),
				slog.String("error", err.Error()))
			return fmt.Errorf("failed to check for files: %w", err)
		}

		if len(matches) == 0 {
			v.logger.Warn("No files matching pattern found",
				slog.String("directory", dir),
				slog.String("pattern", requiredPattern))
			// This is not an error - just no files to process
			return nil
		}

		v.logger.Info("Input directory validated",
			slog.String("directory", dir),
			slog.Int("files_found", len(matches)),
			slog.String("pattern", requiredPattern))
	}

	return nil
}

// ValidateOutputDirectory ensures output directory exists or can be created
func (v *FileValidator) ValidateOutputDirectory(dir string) error {
	// Try to create directory if it doesn't exist
	if err := os.MkdirAll(dir, 0755); err != nil {
		v.logger.Error("Failed to create output directory",
			slog.String("directory", dir),
			slog.String("error", err.Error()))
		return fmt.Errorf("failed to create output directory %s: %w", dir, err)
	}

	// Verify it's writable by creating a test file
	testFile := filepath.Join(dir, ".write_test")
	file, err := os.Create(testFile)
	if err != nil {
		v.logger.Error("Output directory is not writable",
			slog.String("directory", dir),
			slog.String("error", err.Error()))
		return fmt.Errorf("output directory %s is not writable: %w", dir, err)
	}
	file.Close()
	os.Remove(testFile)

	v.logger.Info("Output directory validated",
		slog.String("directory", dir))
	return nil
}

// ValidateFile checks if a specific file exists and is readable
func (v *FileValidator) ValidateFile(path string) error {
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		v.logger.Error("File does not exist",
			slog.String("file", path))
		return fmt.Errorf("file %s does not exist", path)
	}
	if err != nil {
		v.logger.Error("Failed to stat file",
			slog.String("file", path),
			slog.String("error", err.Error()))
		return fmt.Errorf("failed to stat file %s: %w", path, err)
	}
	if info.IsDir() {
		v.logger.Error("Path is a directory, not a file",
			slog.String("path", path))
		return fmt.Errorf("%s is a directory, not a file", path)
	}

	// Check if file is readable by opening it
	file, err := os.Open(path)
	if err != nil {
		v.logger.Error("File is not readable",
			slog.String("file", path),
			slog.String("error", err.Error()))
		return fmt.Errorf("file %s is not readable: %w", path, err)
	}
	file.Close()

	v.logger.Debug("File validated",
		slog.String("file", path),
		slog.Int64("size", info.Size()))
	return nil
}

// CountFiles counts files matching a pattern in a directory
func (v *FileValidator) CountFiles(dir string, pattern string) (int, error) {
	fullPattern := filepath.Join(dir, pattern)
	matches, err := filepath.Glob(fullPattern)
	if err != nil {
		v.logger.Error("Failed to count files",
			slog.String("pattern", fullPattern),
			slog.String("error", err.Error()))
		return 0, fmt.Errorf("failed to count files: %w", err)
	}

	// Filter out directories from matches
	fileCount := 0
	for _, match := range matches {
		info, err := os.Stat(match)
		if err == nil && !info.IsDir() {
			fileCount++
		}
	}

	v.logger.Debug("Files counted",
		slog.String("directory", dir),
		slog.String("pattern", pattern),
		slog.Int("count", fileCount))
	return fileCount, nil
}

// ValidateExcelFile checks if a file is a valid Excel file
func (v *FileValidator) ValidateExcelFile(path string) error {
	// First validate it exists
	if err := v.ValidateFile(path); err != nil {
		return err
	}

	// Check extension
	ext := strings.ToLower(filepath.Ext(path))
	if ext != ".xlsx" && ext != ".xls" {
		v.logger.Error("File is not an Excel file",
			slog.String("file", path),
			slog.String("extension", ext))
		return fmt.Errorf("file %s is not an Excel file (extension: %s)", path, ext)
	}

	// Check it's not a temp file
	base := filepath.Base(path)
	if strings.HasPrefix(base, "~$") {
		v.logger.Warn("Skipping temporary Excel file",
			slog.String("file", path))
		return fmt.Errorf("file %s is a temporary Excel file", path)
	}

	return nil
}

// ValidateCSVFile checks if a file is a valid CSV file
func (v *FileValidator) ValidateCSVFile(path string) error {
	// First validate it exists
	if err := v.ValidateFile(path); err != nil {
		return err
	}

	// Check extension
	ext := strings.ToLower(filepath.Ext(path))
	if ext != ".csv" {
		v.logger.Error("File is not a CSV file",
			slog.String("file", path),
			slog.String("extension", ext))
		return fmt.Errorf("file %s is not a CSV file (extension: %s)", path, ext)
	}

	return nil
}

// ValidateCSVHeader checks that the first line of a CSV file contains
// every required column. Column matching is exact and case-sensitive
// because downstream parsers index columns by name.
func (v *FileValidator) ValidateCSVHeader(path string, required []string) error {
	if err := v.ValidateCSVFile(path); err != nil {
		return err
	}

	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	if !scanner.Scan() {
		v.logger.Error("CSV file is empty",
			slog.String("file", path))
		return fmt.Errorf("file %s is empty", path)
	}

	header := strings.TrimPrefix(scanner.Text(), "\ufeff")
	columns := make(map[string]bool)
	for _, col := range strings.Split(header, ",") {
		columns[strings.TrimSpace(col)] = true
	}

	var missing []string
	for _, col := range required {
		if !columns[col] {
			missing = append(missing, col)
		}
	}
	if len(missing) > 0 {
		v.logger.Error("CSV file is missing required columns",
			slog.String("file", path),
			slog.String("missing", strings.Join(missing, ",")))
		return fmt.Errorf("file %s is missing columns: %s", path, strings.Join(missing, ", "))
	}

	v.logger.Debug("CSV header validated",
		slog.String("file", path),
		slog.Int("columns", len(columns)))
	return nil
}

// ValidateDateRange checks that both dates parse with the given layout
// and that start does not come after end. End may be empty, meaning
// "up to today".
func (v *FileValidator) ValidateDateRange(start, end, layout string) (time.Time, time.Time, error) {
	startDate, err := time.Parse(layout, start)
	if err != nil {
		v.logger.Error("Invalid start date",
			slog.String("start_date", start),
			slog.String("error", err.Error()))
		return time.Time{}, time.Time{}, fmt.Errorf("invalid start date %q: %w", start, err)
	}

	endDate := time.Now().UTC().Truncate(24 * time.Hour)
	if end != "" {
		endDate, err = time.Parse(layout, end)
		if err != nil {
			v.logger.Error("Invalid end date",
				slog.String("end_date", end),
				slog.String("error", err.Error()))
			return time.Time{}, time.Time{}, fmt.Errorf("invalid end date %q: %w", end, err)
		}
	}

	if startDate.After(endDate) {
		v.logger.Error("Start date is after end date",
			slog.String("start_date", start),
			slog.String("end_date", endDate.Format(layout)))
		return time.Time{}, time.Time{}, fmt.Errorf("start date %s is after end date %s",
			startDate.Format(layout), endDate.Format(layout))
	}

	return startDate, endDate, nil
}
