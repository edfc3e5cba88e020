package discretize

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Karagul/WorldQuant-BTC-Trading/internal/dataset"
)

// sixDayFrame is small enough to check every bucket by hand. Day 5
// has zero volume, the way a gap-filled bar does.
func sixDayFrame(t *testing.T) *dataset.Frame {
	t.Helper()
	dates := make([]time.Time, 6)
	for i := range dates {
		dates[i] = time.Date(2024, 3, 1+i, 0, 0, 0, 0, time.UTC)
	}

	closes := []float64{100, 110, 105, 115, 120, 110}
	logReturns := make([]float64, 6)
	for i := 1; i < 6; i++ {
		logReturns[i] = math.Log(closes[i] / closes[i-1])
	}

	frame := dataset.New(dates)
	require.NoError(t, frame.AddColumn(dataset.ColOpen, []float64{100, 105, 108, 110, 118, 115}))
	require.NoError(t, frame.AddColumn(dataset.ColHigh, []float64{102, 112, 110, 118, 124, 118}))
	require.NoError(t, frame.AddColumn(dataset.ColLow, []float64{98, 104, 102, 108, 114, 108}))
	require.NoError(t, frame.AddColumn(dataset.ColClose, closes))
	require.NoError(t, frame.AddColumn(dataset.ColVolume, []float64{1000, 2000, 1000, 1500, 0, 3000}))
	require.NoError(t, frame.AddColumn(dataset.ColLogReturn, logReturns))
	return frame
}

func testEdges() Edges {
	edges := Edges{}
	for _, field := range BasisFields {
		edges[field] = []float64{-0.05, 0.05}
	}
	edges[dataset.ColVolume] = []float64{-0.5, 0.5}
	return edges
}

func TestFitEdges(t *testing.T) {
	values := make([]float64, 100)
	for i := range values {
		values[i] = float64(i + 1)
	}

	cuts, err := FitEdges(values, 4)
	require.NoError(t, err)
	require.Len(t, cuts, 3)
	assert.InDelta(t, 25.75, cuts[0], 1e-12)
	assert.InDelta(t, 50.5, cuts[1], 1e-12)
	assert.InDelta(t, 75.25, cuts[2], 1e-12)
}

func TestFitEdgesRejectsBadInputs(t *testing.T) {
	_, err := FitEdges([]float64{1, 2, 3}, 1)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "at least 2 bins")

	_, err = FitEdges([]float64{1, 2}, 3)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "too few")
}

func TestDigitize(t *testing.T) {
	cuts := []float64{-0.01, 0.01}

	tests := []struct {
		value float64
		want  float64
	}{
		{-0.05, 0},
		{-0.01, 1},
		{0, 1},
		{0.01, 2},
		{0.05, 2},
	}
	for _, tt := range tests {
		assert.Equalf(t, tt.want, digitize(tt.value, cuts), "digitize(%v)", tt.value)
	}
}

func TestBasis(t *testing.T) {
	frame := sixDayFrame(t)

	basis, err := Basis(frame)
	require.NoError(t, err)
	require.Len(t, basis[dataset.ColClose], 5)

	assert.InDelta(t, math.Log(110.0/100), basis[dataset.ColClose][0], 1e-12)
	assert.InDelta(t, math.Log(105.0/110), basis[dataset.ColClose][1], 1e-12)
	assert.InDelta(t, math.Log(105.0/100), basis[dataset.ColOpen][0], 1e-12)
	assert.InDelta(t, math.Log(112.0/100), basis[dataset.ColHigh][0], 1e-12)
	assert.InDelta(t, math.Log(104.0/100), basis[dataset.ColLow][0], 1e-12)

	// Return basis is the stored log return.
	assert.Equal(t, basis[dataset.ColClose], basis[dataset.ColReturn])

	// Volume changes touching the zero-volume day carry no signal.
	assert.InDelta(t, math.Log(2), basis[dataset.ColVolume][0], 1e-12)
	assert.Zero(t, basis[dataset.ColVolume][3])
	assert.Zero(t, basis[dataset.ColVolume][4])
}

func TestBasisRejectsShortFrame(t *testing.T) {
	frame := dataset.New([]time.Time{time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)})
	_, err := Basis(frame)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "at least 2 rows")
}

func TestFit(t *testing.T) {
	frame := sixDayFrame(t)

	edges, err := Fit(frame, 3)
	require.NoError(t, err)
	for _, field := range BasisFields {
		require.Lenf(t, edges[field], 2, "field %s", field)
		assert.LessOrEqualf(t, edges[field][0], edges[field][1], "field %s", field)
	}
}

func TestBuildStateTable(t *testing.T) {
	frame := sixDayFrame(t)
	regimes := []int{0, 0, 1, 1, 0, 1}

	table, err := BuildStateTable(frame, regimes, testEdges())
	require.NoError(t, err)

	require.Equal(t, 4, table.Len())
	assert.Equal(t, StateColumns, table.Columns())
	assert.Equal(t, time.Date(2024, 3, 2, 0, 0, 0, 0, time.UTC), table.Date(0))
	assert.Equal(t, time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC), table.Date(3))

	closeStates, err := table.Column(dataset.ColClose)
	require.NoError(t, err)
	assert.Equal(t, []float64{2, 1, 2, 1}, closeStates)

	forecast, err := table.Column(dataset.ColForecast)
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 2, 1, 0}, forecast)

	regime, err := table.Column(dataset.ColRegime)
	require.NoError(t, err)
	assert.Equal(t, []float64{0, 1, 1, 0}, regime)

	volume, err := table.Column(dataset.ColVolume)
	require.NoError(t, err)
	assert.Equal(t, []float64{2, 0, 1, 1}, volume)

	open, err := table.Column(dataset.ColOpen)
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 1, 1, 1}, open)
}

func TestBuildStateTableForecastShift(t *testing.T) {
	frame := sixDayFrame(t)
	regimes := make([]int, 6)

	table, err := BuildStateTable(frame, regimes, testEdges())
	require.NoError(t, err)

	closeStates, err := table.Column(dataset.ColClose)
	require.NoError(t, err)
	forecast, err := table.Column(dataset.ColForecast)
	require.NoError(t, err)
	for i := 0; i < table.Len()-1; i++ {
		assert.Equal(t, closeStates[i+1], forecast[i])
	}
}

func TestBuildStateTableRejectsBadInputs(t *testing.T) {
	frame := sixDayFrame(t)

	_, err := BuildStateTable(frame, []int{0, 1}, testEdges())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "regimes")

	short, err := frame.Slice(0, 2)
	require.NoError(t, err)
	_, err = BuildStateTable(short, []int{0, 1}, testEdges())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "at least 3 rows")

	edges := testEdges()
	delete(edges, dataset.ColHigh)
	_, err = BuildStateTable(frame, []int{0, 0, 1, 1, 0, 1}, edges)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no edges")
}
