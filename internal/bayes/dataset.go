package bayes

import (
	"fmt"
	"math"

	"github.com/Karagul/WorldQuant-BTC-Trading/internal/dataset"
)

// maxCardinality caps the states per variable; the tables hold small
// quantile buckets and regime ids, anything larger is a broken input.
const maxCardinality = 32

// Dataset is a fully discrete observation table. Cardinalities are
// derived from the data, so state k implies states 0..k exist.
type Dataset struct {
	names []string
	cards []int
	rows  [][]int
}

// FromFrame builds a discrete dataset from every non-date column of a
// state table.
func FromFrame(frame *dataset.Frame) (*Dataset, error) {
	names := frame.Columns()
	if len(names) == 0 {
		return nil, fmt.Errorf("state table has no columns")
	}
	if frame.Len() == 0 {
		return nil, fmt.Errorf("state table has no rows")
	}

	columns := make([][]int, len(names))
	cards := make([]int, len(names))
	for i, name := range names {
		values, err := frame.Column(name)
		if err != nil {
			return nil, err
		}
		states := make([]int, len(values))
		for t, v := range values {
			state, err := toState(v)
			if err != nil {
				return nil, fmt.Errorf("column %s row %d: %w", name, t, err)
			}
			states[t] = state
			if state+1 > cards[i] {
				cards[i] = state + 1
			}
		}
		if cards[i] > maxCardinality {
			return nil, fmt.Errorf("column %s has %d states, limit is %d", name, cards[i], maxCardinality)
		}
		columns[i] = states
	}

	rows := make([][]int, frame.Len())
	for t := range rows {
		row := make([]int, len(names))
		for i := range names {
			row[i] = columns[i][t]
		}
		rows[t] = row
	}
	return &Dataset{names: append([]string(nil), names...), cards: cards, rows: rows}, nil
}

func toState(v float64) (int, error) {
	if math.IsNaN(v) || math.IsInf(v, 0) || v != math.Trunc(v) || v < 0 {
		return 0, fmt.Errorf("value %v is not a discrete state", v)
	}
	return int(v), nil
}

// Len returns the observation count.
func (d *Dataset) Len() int {
	return len(d.rows)
}

// Names returns the variable names in column order.
func (d *Dataset) Names() []string {
	return append([]string(nil), d.names...)
}

// Card returns the state count of a variable.
func (d *Dataset) Card(v int) int {
	return d.cards[v]
}

// Value returns one observation cell.
func (d *Dataset) Value(row, v int) int {
	return d.rows[row][v]
}

// Index resolves a variable name.
func (d *Dataset) Index(name string) (int, bool) {
	for i, n := range d.names {
		if n == name {
			return i, true
		}
	}
	return 0, false
}
