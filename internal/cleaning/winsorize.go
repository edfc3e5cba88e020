package cleaning

import (
	"fmt"
	"log/slog"
	"sort"

	"gonum.org/v1/gonum/stat"

	"github.com/Karagul/WorldQuant-BTC-Trading/internal/dataset"
)

// WinsorizeResult reports the clip bounds applied to one column.
type WinsorizeResult struct {
	Column  string
	Lower   float64
	Upper   float64
	Clipped int
}

// winsorizeColumns are the columns whose tails get clipped. Indicator
// columns stay untouched: they are bounded or smoothed already.
var winsorizeColumns = []string{dataset.ColReturn, dataset.ColLogReturn}

// Winsorize clips the return columns in place at the configured
// [q, 1-q] quantiles, fit on the full series. A zero quantile is a
// no-op.
func (c *Cleaner) Winsorize(frame *dataset.Frame) ([]WinsorizeResult, error) {
	q := c.cfg.WinsorizeQuantile
	if q == 0 {
		return nil, nil
	}
	if q < 0 || q >= 0.5 {
		return nil, fmt.Errorf("winsorize quantile %v out of range [0, 0.5)", q)
	}

	results := make([]WinsorizeResult, 0, len(winsorizeColumns))
	for _, name := range winsorizeColumns {
		values, err := frame.Column(name)
		if err != nil {
			return nil, err
		}

		sorted := make([]float64, len(values))
		copy(sorted, values)
		sort.Float64s(sorted)

		lower := stat.Quantile(q, stat.LinInterp, sorted, nil)
		upper := stat.Quantile(1-q, stat.LinInterp, sorted, nil)

		clipped := 0
		for i, v := range values {
			switch {
			case v < lower:
				values[i] = lower
				clipped++
			case v > upper:
				values[i] = upper
				clipped++
			}
		}

		results = append(results, WinsorizeResult{Column: name, Lower: lower, Upper: upper, Clipped: clipped})
		slog.Info("winsorized column",
			"column", name,
			"quantile", q,
			"lower", lower,
			"upper", upper,
			"clipped", clipped)
	}
	return results, nil
}
