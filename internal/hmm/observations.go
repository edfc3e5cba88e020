package hmm

import (
	"fmt"
	"math"

	"github.com/Karagul/WorldQuant-BTC-Trading/internal/dataset"
)

// FeatureVolumeChange names the log volume change feature the model
// derives itself; the cleaned tables do not carry it as a column.
const FeatureVolumeChange = "VolumeChange"

// FeatureNames is the observation vector layout, in column order.
var FeatureNames = []string{dataset.ColLogReturn, dataset.ColVolatility, FeatureVolumeChange}

// BuildObservations extracts the model features from a cleaned split:
// log return, rolling volatility and log volume change. Gap-filled
// days have zero volume, so volume changes touching a zero-volume day
// are pinned at zero instead of blowing up to infinity. The first row
// has no previous volume and also gets zero.
func BuildObservations(frame *dataset.Frame) ([][]float64, error) {
	logReturns, err := frame.Column(dataset.ColLogReturn)
	if err != nil {
		return nil, err
	}
	volatility, err := frame.Column(dataset.ColVolatility)
	if err != nil {
		return nil, err
	}
	volumes, err := frame.Column(dataset.ColVolume)
	if err != nil {
		return nil, err
	}

	n := frame.Len()
	observations := make([][]float64, n)
	for t := 0; t < n; t++ {
		volumeChange := 0.0
		if t > 0 && volumes[t] > 0 && volumes[t-1] > 0 {
			volumeChange = math.Log(volumes[t] / volumes[t-1])
		}
		observations[t] = []float64{logReturns[t], volatility[t], volumeChange}
	}

	if err := checkFinite(observations); err != nil {
		return nil, err
	}
	return observations, nil
}

func checkFinite(observations [][]float64) error {
	for t, row := range observations {
		for f, v := range row {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return fmt.Errorf("observation row %d feature %d is not finite", t, f)
			}
		}
	}
	return nil
}
