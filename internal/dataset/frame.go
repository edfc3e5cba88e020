package dataset

import (
	"fmt"
	"sort"
	"time"
)

// Canonical column names used across the pipeline. Stages communicate
// through CSV files, so the names double as the on-disk header.
const (
	ColDate       = "Date"
	ColOpen       = "Open"
	ColHigh       = "High"
	ColLow        = "Low"
	ColClose      = "Close"
	ColAdjClose   = "AdjClose"
	ColVolume     = "Volume"
	ColReturn     = "Return"
	ColLogReturn  = "LogReturn"
	ColVolatility = "Volatility"
	ColRSI        = "RSI"
	ColMACD       = "MACD"
	ColMACDSignal = "MACDSignal"
	ColATR        = "ATR"
	ColEMAFast    = "EMAFast"
	ColEMASlow    = "EMASlow"
	ColOBV        = "OBV"
	ColVolumeSMA  = "VolumeSMA"
	ColRegime     = "Regime"
	ColForecast   = "Forecast"
)

// Frame is a date-indexed table of float64 columns with a stable
// column order. All columns have exactly one value per date.
type Frame struct {
	dates   []time.Time
	columns []string
	data    map[string][]float64
}

// New creates an empty frame over the given dates.
func New(dates []time.Time) *Frame {
	d := make([]time.Time, len(dates))
	copy(d, dates)
	return &Frame{
		dates: d,
		data:  make(map[string][]float64),
	}
}

// Len returns the number of rows.
func (f *Frame) Len() int {
	return len(f.dates)
}

// Dates returns the date index. Callers must treat it as read-only.
func (f *Frame) Dates() []time.Time {
	return f.dates
}

// Date returns the date at row i.
func (f *Frame) Date(i int) time.Time {
	return f.dates[i]
}

// Columns returns the column names in insertion order.
func (f *Frame) Columns() []string {
	out := make([]string, len(f.columns))
	copy(out, f.columns)
	return out
}

// HasColumn reports whether the frame contains the named column.
func (f *Frame) HasColumn(name string) bool {
	_, ok := f.data[name]
	return ok
}

// AddColumn appends a new column. It fails if the name already exists
// or the length does not match the date index.
func (f *Frame) AddColumn(name string, values []float64) error {
	if _, ok := f.data[name]; ok {
		return fmt.Errorf("column %s already exists", name)
	}
	if len(values) != len(f.dates) {
		return fmt.Errorf("column %s has %d values, frame has %d rows", name, len(values), len(f.dates))
	}
	f.columns = append(f.columns, name)
	f.data[name] = values
	return nil
}

// SetColumn replaces an existing column or adds a new one.
func (f *Frame) SetColumn(name string, values []float64) error {
	if _, ok := f.data[name]; !ok {
		return f.AddColumn(name, values)
	}
	if len(values) != len(f.dates) {
		return fmt.Errorf("column %s has %d values, frame has %d rows", name, len(values), len(f.dates))
	}
	f.data[name] = values
	return nil
}

// Column returns the values of the named column. The returned slice is
// the frame's backing storage, not a copy.
func (f *Frame) Column(name string) ([]float64, error) {
	values, ok := f.data[name]
	if !ok {
		return nil, fmt.Errorf("column %s not found", name)
	}
	return values, nil
}

// IntColumn returns a column of discrete states as ints. State tables
// store their values as floats on disk; anything fractional or
// negative means the caller read the wrong file.
func (f *Frame) IntColumn(name string) ([]int, error) {
	values, err := f.Column(name)
	if err != nil {
		return nil, err
	}
	states := make([]int, len(values))
	for i, v := range values {
		state := int(v)
		if float64(state) != v || state < 0 {
			return nil, fmt.Errorf("column %s row %d: value %v is not a discrete state", name, i, v)
		}
		states[i] = state
	}
	return states, nil
}

// Select returns a new frame containing copies of the named columns,
// preserving the requested order.
func (f *Frame) Select(names ...string) (*Frame, error) {
	out := New(f.dates)
	for _, name := range names {
		values, ok := f.data[name]
		if !ok {
			return nil, fmt.Errorf("column %s not found", name)
		}
		copied := make([]float64, len(values))
		copy(copied, values)
		if err := out.AddColumn(name, copied); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// Slice returns a new frame holding copies of rows [i, j).
func (f *Frame) Slice(i, j int) (*Frame, error) {
	if i < 0 || j > len(f.dates) || i > j {
		return nil, fmt.Errorf("slice bounds [%d:%d) out of range for %d rows", i, j, len(f.dates))
	}
	out := New(f.dates[i:j])
	for _, name := range f.columns {
		copied := make([]float64, j-i)
		copy(copied, f.data[name][i:j])
		if err := out.AddColumn(name, copied); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// DropHead returns a new frame without the first n rows. Indicator
// warmup rows are removed this way before anything is written out.
func (f *Frame) DropHead(n int) (*Frame, error) {
	if n < 0 || n > len(f.dates) {
		return nil, fmt.Errorf("cannot drop %d rows from %d", n, len(f.dates))
	}
	return f.Slice(n, len(f.dates))
}

// Copy returns a deep copy of the frame.
func (f *Frame) Copy() *Frame {
	out := New(f.dates)
	for _, name := range f.columns {
		copied := make([]float64, len(f.data[name]))
		copy(copied, f.data[name])
		out.columns = append(out.columns, name)
		out.data[name] = copied
	}
	return out
}

// SortByDate sorts all rows chronologically in place. The sort is
// stable so duplicate dates keep their relative order.
func (f *Frame) SortByDate() {
	n := len(f.dates)
	perm := make([]int, n)
	for i := range perm {
		perm[i] = i
	}
	sort.SliceStable(perm, func(a, b int) bool {
		return f.dates[perm[a]].Before(f.dates[perm[b]])
	})

	sortedDates := make([]time.Time, n)
	for i, p := range perm {
		sortedDates[i] = f.dates[p]
	}
	f.dates = sortedDates

	for _, name := range f.columns {
		values := f.data[name]
		sorted := make([]float64, n)
		for i, p := range perm {
			sorted[i] = values[p]
		}
		f.data[name] = sorted
	}
}

// AlignDates inner-joins two frames on their date columns. It returns
// the row indices of matching dates, in a's order. Dates are compared
// at day precision after the UTC truncation every reader applies.
func AlignDates(a, b *Frame) ([]int, []int) {
	lookup := make(map[time.Time]int, b.Len())
	for j, d := range b.dates {
		lookup[d] = j
	}
	var idxA, idxB []int
	for i, d := range a.dates {
		if j, ok := lookup[d]; ok {
			idxA = append(idxA, i)
			idxB = append(idxB, j)
		}
	}
	return idxA, idxB
}

// Matrix returns the named columns as a row-major matrix, one row per
// date. The models consume observation sequences in this shape.
func (f *Frame) Matrix(names ...string) ([][]float64, error) {
	cols := make([][]float64, len(names))
	for k, name := range names {
		values, ok := f.data[name]
		if !ok {
			return nil, fmt.Errorf("column %s not found", name)
		}
		cols[k] = values
	}
	rows := make([][]float64, len(f.dates))
	for i := range rows {
		row := make([]float64, len(names))
		for k := range names {
			row[k] = cols[k][i]
		}
		rows[i] = row
	}
	return rows, nil
}
