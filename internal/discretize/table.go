package discretize

import (
	"fmt"

	"github.com/Karagul/WorldQuant-BTC-Trading/internal/dataset"
)

// StateColumns is the state-table layout after the date column.
var StateColumns = []string{
	dataset.ColOpen,
	dataset.ColHigh,
	dataset.ColLow,
	dataset.ColClose,
	dataset.ColVolume,
	dataset.ColReturn,
	dataset.ColRegime,
	dataset.ColForecast,
}

// BuildStateTable discretizes one split against train-fit edges and
// attaches the decoded regimes and the close-state forecast. The
// regimes slice must cover every frame row; the first row falls away
// with the return basis and the last with the forecast shift, so a
// frame of n rows yields n-2 table rows.
func BuildStateTable(frame *dataset.Frame, regimes []int, edges Edges) (*dataset.Frame, error) {
	if len(regimes) != frame.Len() {
		return nil, fmt.Errorf("%d regimes for %d rows", len(regimes), frame.Len())
	}
	if frame.Len() < 3 {
		return nil, fmt.Errorf("need at least 3 rows to build a state table, got %d", frame.Len())
	}
	for _, field := range BasisFields {
		if len(edges[field]) == 0 {
			return nil, fmt.Errorf("no edges for field %s", field)
		}
	}

	basis, err := Basis(frame)
	if err != nil {
		return nil, err
	}

	n := frame.Len() - 1 // basis rows, aligned to frame dates 1..
	states := make(map[string][]float64, len(BasisFields))
	for _, field := range BasisFields {
		states[field] = make([]float64, n)
		for i, v := range basis[field] {
			states[field][i] = digitize(v, edges[field])
		}
	}

	regimeStates := make([]float64, n)
	for i := 0; i < n; i++ {
		regimeStates[i] = float64(regimes[i+1])
	}

	// Forecast is tomorrow's close state; the last row has no
	// tomorrow and is dropped.
	forecast := make([]float64, n)
	closeStates := states[dataset.ColClose]
	for i := 0; i < n-1; i++ {
		forecast[i] = closeStates[i+1]
	}

	table := dataset.New(frame.Dates()[1:])
	for _, field := range BasisFields {
		if err := table.AddColumn(field, states[field]); err != nil {
			return nil, err
		}
	}
	if err := table.AddColumn(dataset.ColRegime, regimeStates); err != nil {
		return nil, err
	}
	if err := table.AddColumn(dataset.ColForecast, forecast); err != nil {
		return nil, err
	}
	return table.Slice(0, n-1)
}
