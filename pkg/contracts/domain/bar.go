package domain

import (
	"fmt"
	"sort"
	"time"
)

// Bar represents a single daily OHLCV candle for one symbol.
// This is the primary data structure for raw market data entries.
type Bar struct {
	Symbol   string    `json:"symbol" csv:"Symbol" validate:"required"`
	Date     time.Time `json:"date" csv:"Date" validate:"required"`
	Open     float64   `json:"open" csv:"Open" validate:"min=0"`
	High     float64   `json:"high" csv:"High" validate:"min=0"`
	Low      float64   `json:"low" csv:"Low" validate:"min=0"`
	Close    float64   `json:"close" csv:"Close" validate:"min=0"`
	AdjClose float64   `json:"adj_close" csv:"AdjClose" validate:"min=0"`
	Volume   float64   `json:"volume" csv:"Volume" validate:"min=0"`
	Filled   bool      `json:"filled,omitempty" csv:"-"` // true if gap-filled, not observed
}

// Validate checks structural consistency of a single bar.
// It does not validate against neighbouring bars.
func (b Bar) Validate() error {
	if b.Date.IsZero() {
		return fmt.Errorf("bar has zero date")
	}
	if b.Low < 0 || b.Open < 0 || b.High < 0 || b.Close < 0 {
		return fmt.Errorf("bar %s has negative price", b.Date.Format("2006-01-02"))
	}
	if b.High < b.Low {
		return fmt.Errorf("bar %s has high %.6f below low %.6f", b.Date.Format("2006-01-02"), b.High, b.Low)
	}
	if b.Volume < 0 {
		return fmt.Errorf("bar %s has negative volume", b.Date.Format("2006-01-02"))
	}
	return nil
}

// SortBarsByDate orders bars chronologically in place.
// Ordering is stable so duplicate dates keep their source order.
func SortBarsByDate(bars []Bar) {
	sort.SliceStable(bars, func(i, j int) bool {
		return bars[i].Date.Before(bars[j].Date)
	})
}

// DedupeBars removes duplicate dates from a chronologically sorted
// slice, keeping the last record seen for each date. The crawler can
// emit the same candle twice when date windows overlap.
func DedupeBars(bars []Bar) []Bar {
	if len(bars) == 0 {
		return bars
	}
	out := bars[:0]
	for _, b := range bars {
		if len(out) > 0 && sameDay(out[len(out)-1].Date, b.Date) {
			out[len(out)-1] = b
			continue
		}
		out = append(out, b)
	}
	return out
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}
