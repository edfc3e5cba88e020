package bayes

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// dependentColumns builds x, a column equal to x, and an independent
// noise column.
func dependentColumns(n int, seed int64) ([]float64, []float64, []float64) {
	rng := rand.New(rand.NewSource(seed))
	x := make([]float64, n)
	y := make([]float64, n)
	z := make([]float64, n)
	for i := range x {
		x[i] = float64(rng.Intn(2))
		y[i] = x[i]
		z[i] = float64(rng.Intn(3))
	}
	return x, y, z
}

func TestHillClimbFindsDependence(t *testing.T) {
	x, y, z := dependentColumns(200, 21)
	d := datasetOf(t, []string{"x", "y", "z"}, x, y, z)

	g, score, moves := HillClimb(d, NewBICScore(d), 10)

	assert.Equal(t, 1, g.EdgeCount())
	assert.True(t, g.HasEdge(0, 1), "expected the x -> y edge")
	assert.Equal(t, 1, moves)
	assert.InDelta(t, ScoreGraph(g, NewBICScore(d)), score, 1e-12)
}

func TestHillClimbRespectsIterationCap(t *testing.T) {
	x, y, z := dependentColumns(200, 22)
	d := datasetOf(t, []string{"x", "y", "z"}, x, y, z)

	g, _, moves := HillClimb(d, NewBICScore(d), 0)
	assert.Equal(t, 0, moves)
	assert.Equal(t, 0, g.EdgeCount())
}

func TestHillClimbLeavesConstantColumnIsolated(t *testing.T) {
	x, y, _ := dependentColumns(200, 23)
	flat := make([]float64, 200)
	d := datasetOf(t, []string{"x", "y", "flat"}, x, y, flat)

	g, _, _ := HillClimb(d, NewBICScore(d), 10)

	flatIdx, ok := d.Index("flat")
	require.True(t, ok)
	assert.Empty(t, g.Parents(flatIdx))
	assert.Empty(t, g.Children(flatIdx))
}

func TestSearchBest(t *testing.T) {
	x, y, z := dependentColumns(300, 24)
	d := datasetOf(t, []string{"x", "y", "z"}, x, y, z)

	result, err := SearchBest(d, []string{"bic", "bdeu", "bds"}, []int{5, 10}, 10)
	require.NoError(t, err)
	require.NotNil(t, result.Graph)
	require.Len(t, result.Candidates, 6)

	chosen := 0
	for _, c := range result.Candidates {
		assert.Contains(t, []string{"bic", "bdeu", "bds"}, c.Method)
		if c.Chosen {
			chosen++
			assert.Equal(t, result.Method, c.Method)
			assert.Equal(t, result.MaxIter, c.MaxIter)
			assert.Equal(t, result.Score, c.Score)
		}
	}
	assert.Equal(t, 1, chosen)
	assert.GreaterOrEqual(t, result.Graph.EdgeCount(), 1)
}

func TestSearchBestRejectsBadInputs(t *testing.T) {
	x, y, z := dependentColumns(100, 25)
	d := datasetOf(t, []string{"x", "y", "z"}, x, y, z)

	_, err := SearchBest(d, []string{"bic"}, []int{5}, 0)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "sample size")

	_, err = SearchBest(d, nil, []int{5}, 10)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no scoring methods")

	_, err = SearchBest(d, []string{"bic"}, nil, 10)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no iteration caps")

	_, err = SearchBest(d, []string{"bic"}, []int{0}, 10)
	require.Error(t, err)

	_, err = SearchBest(d, []string{"aic"}, []int{5}, 10)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown scoring method")
}
