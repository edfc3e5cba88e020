package testutil

import (
	"math"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/Karagul/WorldQuant-BTC-Trading/internal/dataset"
	"github.com/Karagul/WorldQuant-BTC-Trading/pkg/contracts/domain"
)

// regimeSegment is the length in days of one synthetic regime before
// the generator flips to the other one.
const regimeSegment = 60

// RegimeBars generates n daily bars of a seeded random walk that
// alternates every regimeSegment days between a calm upward-drifting
// regime and a volatile drawdown regime with heavier volume. The
// structure is strong enough for a two-state regime model to recover.
func RegimeBars(symbol string, start time.Time, n int, seed int64) []domain.Bar {
	rng := rand.New(rand.NewSource(seed))
	bars := make([]domain.Bar, 0, n)

	price := 100.0
	date := start
	for i := 0; i < n; i++ {
		calm := (i/regimeSegment)%2 == 0
		drift, sigma, baseVolume := 0.0008, 0.008, 1e6
		if !calm {
			drift, sigma, baseVolume = -0.0015, 0.035, 3e6
		}

		logReturn := drift + sigma*rng.NormFloat64()
		open := price
		close := price * math.Exp(logReturn)
		high := math.Max(open, close) * (1 + 0.3*sigma*math.Abs(rng.NormFloat64()))
		low := math.Min(open, close) * (1 - 0.3*sigma*math.Abs(rng.NormFloat64()))
		volume := baseVolume * (0.8 + 0.4*rng.Float64())

		bars = append(bars, domain.Bar{
			Symbol:   symbol,
			Date:     date,
			Open:     open,
			High:     high,
			Low:      low,
			Close:    close,
			AdjClose: close,
			Volume:   volume,
		})
		price = close
		date = date.AddDate(0, 0, 1)
	}
	return bars
}

// Days returns n consecutive daily dates starting at start.
func Days(start time.Time, n int) []time.Time {
	dates := make([]time.Time, n)
	for i := range dates {
		dates[i] = start.AddDate(0, 0, i)
	}
	return dates
}

// Column names one frame column and its values, in insertion order.
type Column struct {
	Name   string
	Values []float64
}

// NewFrame builds a daily frame from ordered columns, failing the test
// on any length mismatch.
func NewFrame(t *testing.T, start time.Time, rows int, columns ...Column) *dataset.Frame {
	t.Helper()
	frame := dataset.New(Days(start, rows))
	for _, col := range columns {
		require.NoError(t, frame.AddColumn(col.Name, col.Values))
	}
	return frame
}
