package bayes

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Karagul/WorldQuant-BTC-Trading/internal/dataset"
)

// fittedNetwork learns a -> b, c -> b on four rows where the (a=1,
// c=1) parent configuration never occurs.
func fittedNetwork(t *testing.T) *Network {
	t.Helper()
	d := datasetOf(t, []string{"a", "b", "c"},
		[]float64{0, 0, 1, 1},
		[]float64{0, 1, 1, 1},
		[]float64{0, 1, 0, 0})

	g := NewGraph(d.Names())
	require.NoError(t, g.AddEdge(0, 1))
	require.NoError(t, g.AddEdge(2, 1))

	net, err := FitNetwork(d, &Result{Graph: g, Method: "bic", MaxIter: 5, Score: -12.5})
	require.NoError(t, err)
	require.NoError(t, net.Validate())
	return net
}

func TestFitNetwork(t *testing.T) {
	net := fittedNetwork(t)

	assert.Equal(t, []string{"a", "b", "c"}, net.Nodes)
	assert.Equal(t, []int{2, 2, 2}, net.Cardinalities)
	assert.Equal(t, [][2]string{{"a", "b"}, {"c", "b"}}, net.Edges)
	assert.Equal(t, 4, net.TrainRows)

	b := net.CPTs[1]
	assert.Equal(t, []string{"a", "c"}, b.Parents)
	require.Len(t, b.Table, 4)
	assert.Equal(t, []float64{1, 0}, b.Table[0], "a=0 c=0")
	assert.Equal(t, []float64{0, 1}, b.Table[1], "a=0 c=1")
	assert.Equal(t, []float64{0, 1}, b.Table[2], "a=1 c=0")
	assert.Equal(t, []float64{0.5, 0.5}, b.Table[3], "unseen configuration stays uniform")
	assert.Equal(t, []int{1, 1, 2, 0}, b.Support)

	a := net.CPTs[0]
	assert.Empty(t, a.Parents)
	assert.Equal(t, []float64{0.5, 0.5}, a.Table[0])
	assert.Equal(t, []int{4}, a.Support)
}

func TestNetworkPersistence(t *testing.T) {
	net := fittedNetwork(t)
	path := filepath.Join(t.TempDir(), "models", "bayesian_model.json")

	require.NoError(t, net.Save(path))
	loaded, err := LoadNetwork(path)
	require.NoError(t, err)
	assert.Equal(t, net, loaded)
}

func TestLoadNetworkRejectsUnknownSchema(t *testing.T) {
	net := fittedNetwork(t)
	net.SchemaVersion = SchemaVersion + 1
	path := filepath.Join(t.TempDir(), "bayesian_model.json")
	require.NoError(t, net.Save(path))

	_, err := LoadNetwork(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "schema version")
}

func TestNetworkValidateRejectsBadCPT(t *testing.T) {
	net := fittedNetwork(t)
	net.CPTs[1].Table[0] = []float64{0.7, 0.7}

	err := net.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "sums to")
}

// predictFrame builds a state table with the given columns, one date
// per row.
func predictFrame(t *testing.T, names []string, columns ...[]float64) *dataset.Frame {
	t.Helper()
	dates := make([]time.Time, len(columns[0]))
	for i := range dates {
		dates[i] = time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, i)
	}
	frame := dataset.New(dates)
	for i, name := range names {
		require.NoError(t, frame.AddColumn(name, columns[i]))
	}
	return frame
}

// forecastNetwork wires Forecast -> Close with Regime as a co-parent:
// the close state copies the forecast whatever the regime does.
func forecastNetwork(t *testing.T) *Network {
	t.Helper()
	n := 80
	forecast := make([]float64, n)
	closeStates := make([]float64, n)
	regime := make([]float64, n)
	for i := 0; i < n; i++ {
		forecast[i] = float64(i % 2)
		closeStates[i] = forecast[i]
		regime[i] = float64((i / 3) % 2)
	}
	d := datasetOf(t, []string{dataset.ColForecast, dataset.ColClose, dataset.ColRegime},
		forecast, closeStates, regime)

	g := NewGraph(d.Names())
	require.NoError(t, g.AddEdge(0, 1)) // Forecast -> Close
	require.NoError(t, g.AddEdge(2, 1)) // Regime -> Close

	net, err := FitNetwork(d, &Result{Graph: g, Method: "bdeu", MaxIter: 10, Score: -1})
	require.NoError(t, err)
	return net
}

func TestPredictThroughMarkovBlanket(t *testing.T) {
	net := forecastNetwork(t)

	frame := predictFrame(t,
		[]string{dataset.ColClose, dataset.ColRegime, dataset.ColForecast},
		[]float64{0, 1, 1, 0},
		[]float64{0, 0, 1, 1},
		[]float64{9, 9, 9, 9}) // present but never used as evidence

	predictions, err := net.Predict(frame, dataset.ColForecast)
	require.NoError(t, err)
	assert.Equal(t, []int{0, 1, 1, 0}, predictions)
}

func TestPredictTiesGoToLowerState(t *testing.T) {
	// No edges: the forecast prior is exactly uniform, so every row
	// ties and resolves to state 0.
	d := datasetOf(t, []string{dataset.ColForecast, dataset.ColClose},
		[]float64{0, 1, 0, 1},
		[]float64{1, 1, 0, 0})
	net, err := FitNetwork(d, &Result{Graph: NewGraph(d.Names()), Method: "bic", MaxIter: 5, Score: -1})
	require.NoError(t, err)

	frame := predictFrame(t, []string{dataset.ColClose}, []float64{0, 1})
	predictions, err := net.Predict(frame, dataset.ColForecast)
	require.NoError(t, err)
	assert.Equal(t, []int{0, 0}, predictions)
}

func TestPredictUnseenEvidenceFallsBackToUniform(t *testing.T) {
	net := forecastNetwork(t)

	frame := predictFrame(t,
		[]string{dataset.ColClose, dataset.ColRegime},
		[]float64{7, 1},
		[]float64{0, 0})

	predictions, err := net.Predict(frame, dataset.ColForecast)
	require.NoError(t, err)
	// Row 0 carries an unseen close state, every candidate scores the
	// same and the tie resolves low. Row 1 is ordinary evidence.
	assert.Equal(t, []int{0, 1}, predictions)
}

func TestPredictErrors(t *testing.T) {
	net := forecastNetwork(t)

	frame := predictFrame(t, []string{dataset.ColClose}, []float64{0, 1})
	_, err := net.Predict(frame, "NotANode")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not a network node")

	_, err = net.Predict(frame, dataset.ColForecast)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing blanket column")
}
