package dataset

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func day(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return t
}

func testDates(n int) []time.Time {
	dates := make([]time.Time, n)
	start := day("2024-01-01")
	for i := range dates {
		dates[i] = start.AddDate(0, 0, i)
	}
	return dates
}

func TestFrameAddColumn(t *testing.T) {
	frame := New(testDates(3))

	require.NoError(t, frame.AddColumn(ColClose, []float64{1, 2, 3}))
	assert.True(t, frame.HasColumn(ColClose))
	assert.Equal(t, []string{ColClose}, frame.Columns())

	err := frame.AddColumn(ColClose, []float64{4, 5, 6})
	assert.Error(t, err, "duplicate column must be rejected")

	err = frame.AddColumn(ColOpen, []float64{1, 2})
	assert.Error(t, err, "length mismatch must be rejected")

	values, err := frame.Column(ColClose)
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 2, 3}, values)

	_, err = frame.Column("Missing")
	assert.Error(t, err)
}

func TestFrameIntColumn(t *testing.T) {
	frame := New(testDates(3))
	require.NoError(t, frame.AddColumn(ColRegime, []float64{0, 2, 1}))
	require.NoError(t, frame.AddColumn(ColReturn, []float64{0.1, -0.2, 0.3}))

	states, err := frame.IntColumn(ColRegime)
	require.NoError(t, err)
	assert.Equal(t, []int{0, 2, 1}, states)

	_, err = frame.IntColumn(ColReturn)
	assert.ErrorContains(t, err, "not a discrete state")

	_, err = frame.IntColumn("Missing")
	assert.Error(t, err)
}

func TestFrameSetColumn(t *testing.T) {
	frame := New(testDates(2))
	require.NoError(t, frame.SetColumn(ColClose, []float64{1, 2}))
	require.NoError(t, frame.SetColumn(ColClose, []float64{3, 4}))

	values, err := frame.Column(ColClose)
	require.NoError(t, err)
	assert.Equal(t, []float64{3, 4}, values)
	assert.Equal(t, []string{ColClose}, frame.Columns(), "replacing must not duplicate the column")

	assert.Error(t, frame.SetColumn(ColOpen, []float64{1}))
}

func TestFrameSelect(t *testing.T) {
	frame := New(testDates(3))
	require.NoError(t, frame.AddColumn(ColOpen, []float64{1, 2, 3}))
	require.NoError(t, frame.AddColumn(ColClose, []float64{4, 5, 6}))
	require.NoError(t, frame.AddColumn(ColVolume, []float64{7, 8, 9}))

	selected, err := frame.Select(ColClose, ColOpen)
	require.NoError(t, err)
	assert.Equal(t, []string{ColClose, ColOpen}, selected.Columns())
	assert.Equal(t, 3, selected.Len())

	// Selection copies: mutating the copy leaves the source intact.
	values, _ := selected.Column(ColClose)
	values[0] = -1
	original, _ := frame.Column(ColClose)
	assert.Equal(t, float64(4), original[0])

	_, err = frame.Select(ColClose, "Missing")
	assert.Error(t, err)
}

func TestFrameSlice(t *testing.T) {
	frame := New(testDates(5))
	require.NoError(t, frame.AddColumn(ColClose, []float64{1, 2, 3, 4, 5}))

	tests := []struct {
		name    string
		i, j    int
		wantErr bool
		wantLen int
	}{
		{name: "middle", i: 1, j: 4, wantLen: 3},
		{name: "full", i: 0, j: 5, wantLen: 5},
		{name: "empty", i: 2, j: 2, wantLen: 0},
		{name: "negative start", i: -1, j: 3, wantErr: true},
		{name: "past end", i: 0, j: 6, wantErr: true},
		{name: "inverted", i: 3, j: 1, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sliced, err := frame.Slice(tt.i, tt.j)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantLen, sliced.Len())
			if tt.wantLen > 0 {
				values, _ := sliced.Column(ColClose)
				assert.Equal(t, float64(tt.i+1), values[0])
			}
		})
	}
}

func TestFrameDropHead(t *testing.T) {
	frame := New(testDates(4))
	require.NoError(t, frame.AddColumn(ColClose, []float64{1, 2, 3, 4}))

	trimmed, err := frame.DropHead(2)
	require.NoError(t, err)
	assert.Equal(t, 2, trimmed.Len())
	values, _ := trimmed.Column(ColClose)
	assert.Equal(t, []float64{3, 4}, values)
	assert.Equal(t, day("2024-01-03"), trimmed.Date(0))

	_, err = frame.DropHead(5)
	assert.Error(t, err)
}

func TestFrameSortByDate(t *testing.T) {
	dates := []time.Time{day("2024-01-03"), day("2024-01-01"), day("2024-01-02")}
	frame := New(dates)
	require.NoError(t, frame.AddColumn(ColClose, []float64{3, 1, 2}))
	require.NoError(t, frame.AddColumn(ColVolume, []float64{30, 10, 20}))

	frame.SortByDate()

	assert.Equal(t, day("2024-01-01"), frame.Date(0))
	assert.Equal(t, day("2024-01-03"), frame.Date(2))
	closes, _ := frame.Column(ColClose)
	volumes, _ := frame.Column(ColVolume)
	assert.Equal(t, []float64{1, 2, 3}, closes, "columns must follow the date permutation")
	assert.Equal(t, []float64{10, 20, 30}, volumes)
}

func TestFrameMatrix(t *testing.T) {
	frame := New(testDates(3))
	require.NoError(t, frame.AddColumn(ColReturn, []float64{0.1, 0.2, 0.3}))
	require.NoError(t, frame.AddColumn(ColVolatility, []float64{1, 2, 3}))

	matrix, err := frame.Matrix(ColVolatility, ColReturn)
	require.NoError(t, err)
	require.Len(t, matrix, 3)
	assert.Equal(t, []float64{1, 0.1}, matrix[0])
	assert.Equal(t, []float64{3, 0.3}, matrix[2])

	_, err = frame.Matrix(ColReturn, "Missing")
	assert.Error(t, err)
}

func TestFrameCopy(t *testing.T) {
	frame := New(testDates(2))
	require.NoError(t, frame.AddColumn(ColClose, []float64{1, 2}))

	clone := frame.Copy()
	values, _ := clone.Column(ColClose)
	values[0] = 99

	original, _ := frame.Column(ColClose)
	assert.Equal(t, float64(1), original[0])
	assert.Equal(t, frame.Columns(), clone.Columns())
}

func TestAlignDates(t *testing.T) {
	a := New([]time.Time{day("2024-01-01"), day("2024-01-02"), day("2024-01-03"), day("2024-01-05")})
	b := New([]time.Time{day("2024-01-02"), day("2024-01-03"), day("2024-01-04"), day("2024-01-05")})

	idxA, idxB := AlignDates(a, b)
	assert.Equal(t, []int{1, 2, 3}, idxA)
	assert.Equal(t, []int{0, 1, 3}, idxB)

	disjoint := New([]time.Time{day("2025-06-01")})
	idxA, idxB = AlignDates(a, disjoint)
	assert.Empty(t, idxA)
	assert.Empty(t, idxB)
}
