package discretize

import (
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"

	"github.com/Karagul/WorldQuant-BTC-Trading/internal/dataset"
)

// BasisFields are the state-table columns that come from binning,
// keyed by their output name.
var BasisFields = []string{
	dataset.ColOpen,
	dataset.ColHigh,
	dataset.ColLow,
	dataset.ColClose,
	dataset.ColVolume,
	dataset.ColReturn,
}

// Edges holds per-field quantile cut points, fit on the training
// split and reused for validation and test.
type Edges map[string][]float64

// Fit computes the binning basis of the training split and fits
// quantile edges for every basis field.
func Fit(train *dataset.Frame, bins int) (Edges, error) {
	basis, err := Basis(train)
	if err != nil {
		return nil, fmt.Errorf("computing train binning basis: %w", err)
	}
	edges := make(Edges, len(BasisFields))
	for _, field := range BasisFields {
		cuts, err := FitEdges(basis[field], bins)
		if err != nil {
			return nil, fmt.Errorf("fitting %s edges: %w", field, err)
		}
		edges[field] = cuts
	}
	return edges, nil
}

// FitEdges places bins-1 cut points at the 1/bins .. (bins-1)/bins
// quantiles, matching numpy's linear interpolation.
func FitEdges(values []float64, bins int) ([]float64, error) {
	if bins < 2 {
		return nil, fmt.Errorf("need at least 2 bins, got %d", bins)
	}
	if len(values) < bins {
		return nil, fmt.Errorf("%d values is too few for %d bins", len(values), bins)
	}
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)

	cuts := make([]float64, bins-1)
	for i := 1; i < bins; i++ {
		cuts[i-1] = stat.Quantile(float64(i)/float64(bins), stat.LinInterp, sorted, nil)
	}
	return cuts, nil
}

// digitize maps a value to its bucket: the count of cut points at or
// below it, so values land in 0..len(cuts).
func digitize(v float64, cuts []float64) float64 {
	state := 0
	for _, cut := range cuts {
		if v >= cut {
			state++
		}
	}
	return float64(state)
}

// Basis derives the continuous series the buckets are fit on. Price
// fields become log returns against the previous close, volume its
// own log change (zero-volume fill days pinned at zero), and the
// return field is the log return as stored. The first row has no
// previous close and is dropped, so every series aligns to the frame
// dates from index 1 on.
func Basis(frame *dataset.Frame) (map[string][]float64, error) {
	if frame.Len() < 2 {
		return nil, fmt.Errorf("need at least 2 rows to compute returns, got %d", frame.Len())
	}

	columns := make(map[string][]float64, 6)
	for _, name := range []string{
		dataset.ColOpen, dataset.ColHigh, dataset.ColLow,
		dataset.ColClose, dataset.ColVolume, dataset.ColLogReturn,
	} {
		values, err := frame.Column(name)
		if err != nil {
			return nil, err
		}
		columns[name] = values
	}

	n := frame.Len()
	closes := columns[dataset.ColClose]
	volumes := columns[dataset.ColVolume]

	basis := make(map[string][]float64, len(BasisFields))
	for _, field := range BasisFields {
		basis[field] = make([]float64, n-1)
	}
	for t := 1; t < n; t++ {
		prevClose := closes[t-1]
		for _, field := range []string{dataset.ColOpen, dataset.ColHigh, dataset.ColLow, dataset.ColClose} {
			basis[field][t-1] = math.Log(columns[field][t] / prevClose)
		}
		volumeChange := 0.0
		if volumes[t] > 0 && volumes[t-1] > 0 {
			volumeChange = math.Log(volumes[t] / volumes[t-1])
		}
		basis[dataset.ColVolume][t-1] = volumeChange
		basis[dataset.ColReturn][t-1] = columns[dataset.ColLogReturn][t]
	}

	for _, field := range BasisFields {
		for i, v := range basis[field] {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return nil, fmt.Errorf("%s basis is not finite at row %d", field, i+1)
			}
		}
	}
	return basis, nil
}
