package markovchain

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Karagul/WorldQuant-BTC-Trading/internal/dataset"
)

func TestFitChain(t *testing.T) {
	chain, err := FitChain([]int{0, 0, 1, 0, 1, 1}, 0)
	require.NoError(t, err)

	assert.Equal(t, 2, chain.States)
	assert.Equal(t, []int{3, 2}, chain.Visits)
	assert.InDelta(t, 1.0/3, chain.Transition[0][0], 1e-12)
	assert.InDelta(t, 2.0/3, chain.Transition[0][1], 1e-12)
	assert.InDelta(t, 0.5, chain.Transition[1][0], 1e-12)
	assert.InDelta(t, 0.5, chain.Transition[1][1], 1e-12)
}

func TestFitChainLaplace(t *testing.T) {
	chain, err := FitChain([]int{0, 0, 1, 0, 1, 1}, 1)
	require.NoError(t, err)

	assert.InDelta(t, 0.4, chain.Transition[0][0], 1e-12)
	assert.InDelta(t, 0.6, chain.Transition[0][1], 1e-12)
	assert.InDelta(t, 0.5, chain.Transition[1][0], 1e-12)
}

func TestFitChainUnseenSourceState(t *testing.T) {
	// State 1 never occurs, state 2 never transitions anywhere twice.
	sequence := []int{0, 0, 2, 0, 2}

	smoothed, err := FitChain(sequence, 1)
	require.NoError(t, err)
	assert.Equal(t, 3, smoothed.States)
	assert.Equal(t, []int{3, 0, 1}, smoothed.Visits)
	for j := 0; j < 3; j++ {
		assert.InDelta(t, 1.0/3, smoothed.Transition[1][j], 1e-12)
	}

	unsmoothed, err := FitChain(sequence, 0)
	require.NoError(t, err)
	for j := 0; j < 3; j++ {
		assert.InDelta(t, 1.0/3, unsmoothed.Transition[1][j], 1e-12)
	}
}

func TestFitChainRejectsBadInputs(t *testing.T) {
	_, err := FitChain([]int{0}, 1)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "at least 2")

	_, err = FitChain([]int{0, -1, 0}, 1)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "negative state")

	_, err = FitChain([]int{0, 1}, -0.5)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "smoothing")
}

func TestPredictNext(t *testing.T) {
	chain := &Chain{
		States:     2,
		Transition: [][]float64{{0.2, 0.8}, {0.5, 0.5}},
		Visits:     []int{10, 10},
	}

	assert.Equal(t, 1, chain.PredictNext(0))
	assert.Equal(t, 0, chain.PredictNext(1), "ties resolve to the lower state")
	assert.Equal(t, 0, chain.PredictNext(7), "unknown states fall back to 0")
	assert.Equal(t, 0, chain.PredictNext(-1))

	assert.Equal(t, []int{1, 0, 1}, chain.PredictSequence([]int{0, 1, 0}))
}

func TestStationary(t *testing.T) {
	chain := &Chain{
		States:     2,
		Transition: [][]float64{{0.9, 0.1}, {0.5, 0.5}},
		Visits:     []int{10, 10},
	}

	pi, err := chain.Stationary()
	require.NoError(t, err)
	assert.InDelta(t, 5.0/6, pi[0], 1e-8)
	assert.InDelta(t, 1.0/6, pi[1], 1e-8)

	sum := 0.0
	for _, v := range pi {
		sum += v
	}
	assert.InDelta(t, 1.0, sum, 1e-9)

	// pi P must reproduce pi at the same tolerance.
	for j := 0; j < chain.States; j++ {
		next := 0.0
		for i := 0; i < chain.States; i++ {
			next += pi[i] * chain.Transition[i][j]
		}
		assert.InDelta(t, pi[j], next, 1e-8)
	}
}

func TestExpectedDurations(t *testing.T) {
	chain := &Chain{
		States:     2,
		Transition: [][]float64{{0.9, 0.1}, {0.5, 0.5}},
		Visits:     []int{10, 10},
	}

	durations, err := chain.ExpectedDurations()
	require.NoError(t, err)
	assert.InDelta(t, 10, durations[0], 1e-9)
	assert.InDelta(t, 2, durations[1], 1e-9)

	absorbing := &Chain{
		States:     2,
		Transition: [][]float64{{1, 0}, {0.5, 0.5}},
		Visits:     []int{10, 10},
	}
	_, err = absorbing.ExpectedDurations()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "absorbing")
}

func TestModelPersistence(t *testing.T) {
	regimes, err := FitChain([]int{0, 0, 1, 1, 0, 1}, 1)
	require.NoError(t, err)
	closes, err := FitChain([]int{0, 1, 2, 1, 0, 2}, 1)
	require.NoError(t, err)

	model := &Model{
		SchemaVersion: SchemaVersion,
		RegimeChain:   regimes,
		CloseChain:    closes,
		TrainRows:     6,
	}
	path := filepath.Join(t.TempDir(), "models", "markov_model.json")
	require.NoError(t, model.Save(path))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, model, loaded)
}

func TestLoadRejectsUnknownSchema(t *testing.T) {
	chain, err := FitChain([]int{0, 1, 0, 1}, 1)
	require.NoError(t, err)
	model := &Model{SchemaVersion: SchemaVersion + 1, RegimeChain: chain, CloseChain: chain, TrainRows: 4}

	path := filepath.Join(t.TempDir(), "markov_model.json")
	require.NoError(t, model.Save(path))
	_, err = Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "schema version")
}

func TestRegimeStats(t *testing.T) {
	day := func(d int) time.Time {
		return time.Date(2024, 5, d, 0, 0, 0, 0, time.UTC)
	}

	cleaned := dataset.New([]time.Time{day(1), day(2), day(3), day(4), day(5), day(6)})
	require.NoError(t, cleaned.AddColumn(dataset.ColReturn, []float64{0.01, 0.02, -0.01, 0.03, 0.00, 0.05}))
	require.NoError(t, cleaned.AddColumn(dataset.ColVolatility, []float64{0.1, 0.2, 0.3, 0.4, 0.5, 0.6}))

	table := dataset.New([]time.Time{day(2), day(3), day(4), day(5)})
	require.NoError(t, table.AddColumn(dataset.ColRegime, []float64{0, 1, 1, 1}))

	stats, err := RegimeStats(cleaned, table, 2)
	require.NoError(t, err)
	require.Len(t, stats, 2)

	assert.Equal(t, 1, stats[0].Days)
	assert.InDelta(t, 0.02, stats[0].MeanReturn, 1e-12)
	assert.InDelta(t, 0.2, stats[0].MeanVolatility, 1e-12)

	assert.Equal(t, 3, stats[1].Days)
	assert.InDelta(t, (0.03-0.01)/3, stats[1].MeanReturn, 1e-12)
	assert.InDelta(t, 0.4, stats[1].MeanVolatility, 1e-12)
}

func TestRegimeStatsEmptyJoin(t *testing.T) {
	day := func(d int) time.Time {
		return time.Date(2024, 5, d, 0, 0, 0, 0, time.UTC)
	}
	cleaned := dataset.New([]time.Time{day(1), day(2)})
	require.NoError(t, cleaned.AddColumn(dataset.ColReturn, []float64{0.01, 0.02}))
	require.NoError(t, cleaned.AddColumn(dataset.ColVolatility, []float64{0.1, 0.2}))

	table := dataset.New([]time.Time{day(10), day(11)})
	require.NoError(t, table.AddColumn(dataset.ColRegime, []float64{0, 1}))

	_, err := RegimeStats(cleaned, table, 2)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "share no dates")
}
