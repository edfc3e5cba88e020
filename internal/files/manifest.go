package files

import (
	"bufio"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/Karagul/WorldQuant-BTC-Trading/pkg/contracts/domain"
)

// Appender writes stage records to the pipeline manifest. The manifest
// is a JSON Lines file, one record per stage invocation, appended so
// earlier runs are never rewritten.
type Appender struct {
	path string
	mu   sync.Mutex
}

// NewAppender creates a manifest appender for the given file path.
func NewAppender(path string) *Appender {
	return &Appender{path: path}
}

// Path returns the manifest file path.
func (a *Appender) Path() string {
	return a.path
}

// Append writes one stage record as a single JSON line.
func (a *Appender) Append(record domain.StageRecord) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(a.path), 0750); err != nil {
		return fmt.Errorf("failed to create manifest directory: %w", err)
	}

	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to marshal stage record: %w", err)
	}

	file, err := os.OpenFile(a.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("failed to open manifest %s: %w", a.path, err)
	}
	defer file.Close()

	if _, err := file.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("failed to append to manifest: %w", err)
	}
	return file.Sync()
}

// ReadManifest reads all stage records from a manifest file. Lines that
// fail to parse (a run killed mid-write leaves a torn last line) are
// skipped with a warning.
func ReadManifest(path string) ([]domain.StageRecord, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open manifest %s: %w", path, err)
	}
	defer file.Close()

	var records []domain.StageRecord
	scanner := bufio.NewScanner(file)
	line := 0
	for scanner.Scan() {
		line++
		raw := scanner.Bytes()
		if len(raw) == 0 {
			continue
		}
		var record domain.StageRecord
		if err := json.Unmarshal(raw, &record); err != nil {
			slog.Warn("skipping malformed manifest line",
				"file", filepath.Base(path),
				"line", line,
				"error", err)
			continue
		}
		records = append(records, record)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read manifest %s: %w", path, err)
	}
	return records, nil
}

// LatestByStage returns the most recent record for each stage name.
// Records are assumed to be in append order.
func LatestByStage(records []domain.StageRecord) map[string]domain.StageRecord {
	latest := make(map[string]domain.StageRecord)
	for _, record := range records {
		latest[record.Stage] = record
	}
	return latest
}
