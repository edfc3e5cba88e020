package cleaning

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/Karagul/WorldQuant-BTC-Trading/internal/config"
	"github.com/Karagul/WorldQuant-BTC-Trading/internal/dataset"
)

// Cleaner applies gap filling, winsorization and splitting.
type Cleaner struct {
	cfg config.CleaningConfig
}

// New creates a cleaner from configuration.
func New(cfg config.CleaningConfig) *Cleaner {
	return &Cleaner{cfg: cfg}
}

// FillStatistics summarizes a gap-fill pass.
type FillStatistics struct {
	TotalRows    int
	ObservedRows int
	FilledRows   int
}

// FillGaps inserts one synthetic row per missing calendar day between
// the first and last observed dates. A filled day is flat: OHLC pinned
// at the previous close, zero volume and returns, indicator values
// carried forward. Crypto trades every day, so a hole is a data outage
// rather than a market holiday and the models expect a continuous
// daily index.
func (c *Cleaner) FillGaps(frame *dataset.Frame) (*dataset.Frame, FillStatistics, error) {
	stats := FillStatistics{ObservedRows: frame.Len()}
	if frame.Len() == 0 {
		return nil, stats, fmt.Errorf("cannot fill gaps in an empty table")
	}

	columns := frame.Columns()
	sources := make([][]float64, len(columns))
	for k, name := range columns {
		values, err := frame.Column(name)
		if err != nil {
			return nil, stats, err
		}
		sources[k] = values
	}
	closeIdx := -1
	for k, name := range columns {
		if name == dataset.ColClose {
			closeIdx = k
		}
	}
	if closeIdx < 0 {
		return nil, stats, fmt.Errorf("table has no %s column", dataset.ColClose)
	}

	var dates []time.Time
	filled := make([][]float64, len(columns))

	src := 0
	for day := frame.Date(0); !day.After(frame.Date(frame.Len() - 1)); day = day.AddDate(0, 0, 1) {
		if src < frame.Len() && sameDay(frame.Date(src), day) {
			dates = append(dates, frame.Date(src))
			for k := range columns {
				filled[k] = append(filled[k], sources[k][src])
			}
			src++
			continue
		}

		// Synthesize the missing day from the previous emitted row.
		last := len(dates) - 1
		prevClose := filled[closeIdx][last]
		dates = append(dates, day)
		for k, name := range columns {
			var v float64
			switch name {
			case dataset.ColOpen, dataset.ColHigh, dataset.ColLow, dataset.ColClose:
				v = prevClose
			case dataset.ColVolume, dataset.ColReturn, dataset.ColLogReturn:
				v = 0
			default:
				v = filled[k][last]
			}
			filled[k] = append(filled[k], v)
		}
		stats.FilledRows++
	}

	if src != frame.Len() {
		return nil, stats, fmt.Errorf("table dates are not strictly ascending")
	}

	out := dataset.New(dates)
	for k, name := range columns {
		if err := out.AddColumn(name, filled[k]); err != nil {
			return nil, stats, err
		}
	}
	stats.TotalRows = out.Len()

	if stats.FilledRows > 0 {
		slog.Info("filled calendar gaps",
			"observed", stats.ObservedRows,
			"filled", stats.FilledRows,
			"total", stats.TotalRows)
	}
	return out, stats, nil
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}
