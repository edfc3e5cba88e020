package files

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Karagul/WorldQuant-BTC-Trading/pkg/contracts/domain"
)

func stageRecord(stage string, status domain.StageStatus) domain.StageRecord {
	return domain.StageRecord{
		RunID:      uuid.New().String(),
		Stage:      stage,
		StartedAt:  time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC),
		DurationMS: 150,
		Inputs:     []string{"data/raw/BTC-USD.csv"},
		Outputs:    []string{"data/processed/market_data.csv"},
		Rows:       500,
		Status:     status,
	}
}

func TestAppenderRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data", "manifest.jsonl")
	appender := NewAppender(path)

	first := stageRecord("crawl_data", domain.StageStatusCompleted)
	second := stageRecord("preprocess_data", domain.StageStatusFailed)
	second.Error = "no input files"

	require.NoError(t, appender.Append(first))
	require.NoError(t, appender.Append(second))

	records, err := ReadManifest(path)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, first.RunID, records[0].RunID)
	assert.Equal(t, "crawl_data", records[0].Stage)
	assert.Equal(t, domain.StageStatusFailed, records[1].Status)
	assert.Equal(t, "no input files", records[1].Error)
	assert.True(t, first.StartedAt.Equal(records[0].StartedAt))
}

func TestAppenderPreservesExistingLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "manifest.jsonl")
	appender := NewAppender(path)

	require.NoError(t, appender.Append(stageRecord("crawl_data", domain.StageStatusCompleted)))

	// A second process appending must not truncate earlier records.
	other := NewAppender(path)
	require.NoError(t, other.Append(stageRecord("clean_data", domain.StageStatusCompleted)))

	records, err := ReadManifest(path)
	require.NoError(t, err)
	assert.Len(t, records, 2)
}

func TestReadManifestSkipsTornLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "manifest.jsonl")
	appender := NewAppender(path)
	require.NoError(t, appender.Append(stageRecord("crawl_data", domain.StageStatusCompleted)))

	// Simulate a run killed mid-write.
	file, err := os.OpenFile(path, os.O_WRONLY|os.O_APPEND, 0644)
	require.NoError(t, err)
	_, err = file.WriteString(`{"run_id":"trunc`)
	require.NoError(t, err)
	require.NoError(t, file.Close())

	records, err := ReadManifest(path)
	require.NoError(t, err)
	assert.Len(t, records, 1)
}

func TestReadManifestMissingFile(t *testing.T) {
	_, err := ReadManifest(filepath.Join(t.TempDir(), "nope.jsonl"))
	assert.Error(t, err)
}

func TestLatestByStage(t *testing.T) {
	old := stageRecord("crawl_data", domain.StageStatusFailed)
	newer := stageRecord("crawl_data", domain.StageStatusCompleted)
	other := stageRecord("bayesian", domain.StageStatusCompleted)

	latest := LatestByStage([]domain.StageRecord{old, other, newer})
	assert.Len(t, latest, 2)
	assert.Equal(t, newer.RunID, latest["crawl_data"].RunID)
	assert.Equal(t, domain.StageStatusCompleted, latest["crawl_data"].Status)
}
