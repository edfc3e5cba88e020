package testutil

import (
	"log/slog"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Karagul/WorldQuant-BTC-Trading/internal/dataset"
)

func TestRegimeBars(t *testing.T) {
	start := time.Date(2022, time.January, 1, 0, 0, 0, 0, time.UTC)
	bars := RegimeBars("BTC-USD", start, 240, 42)
	require.Len(t, bars, 240)

	for _, bar := range bars {
		require.NoError(t, bar.Validate())
	}
	assert.Equal(t, start, bars[0].Date)
	assert.Equal(t, start.AddDate(0, 0, 239), bars[239].Date)

	// Volatile segments move more than calm ones.
	calmMove, volatileMove := 0.0, 0.0
	for i := 0; i < regimeSegment; i++ {
		calmMove += math.Abs(math.Log(bars[i].Close / bars[i].Open))
		volatileMove += math.Abs(math.Log(bars[regimeSegment+i].Close / bars[regimeSegment+i].Open))
	}
	assert.Greater(t, volatileMove, 2*calmMove)

	again := RegimeBars("BTC-USD", start, 240, 42)
	assert.Equal(t, bars, again, "generator must be deterministic per seed")

	other := RegimeBars("BTC-USD", start, 240, 43)
	assert.NotEqual(t, bars[10].Close, other[10].Close)
}

func TestNewFrame(t *testing.T) {
	start := time.Date(2024, time.March, 1, 0, 0, 0, 0, time.UTC)
	frame := NewFrame(t, start, 3,
		Column{Name: dataset.ColClose, Values: []float64{100, 101, 102}},
		Column{Name: dataset.ColVolume, Values: []float64{1000, 2000, 3000}},
	)

	assert.Equal(t, 3, frame.Len())
	assert.Equal(t, []string{dataset.ColClose, dataset.ColVolume}, frame.Columns())
	assert.Equal(t, start.AddDate(0, 0, 2), frame.Date(2))
}

func TestLogCapture(t *testing.T) {
	logger, capture := NewTestLogger(t)

	logger.Info("fit finished", "states", 2)
	logger.Warn("skipped malformed rows", "skipped", 3)
	logger.With("stage", "markov").Error("chain failed")

	records := capture.Records()
	require.Len(t, records, 3)
	assert.Equal(t, slog.LevelInfo, records[0].Level)
	assert.Equal(t, 2, int(records[0].Attrs["states"].(int64)))

	assert.True(t, capture.ContainsMessage("malformed"))
	assert.False(t, capture.ContainsMessage("no such message"))
	assert.Equal(t, 1, capture.CountLevel(slog.LevelError))
}
