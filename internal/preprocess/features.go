package preprocess

import (
	"fmt"
	"log/slog"
	"math"

	talib "github.com/markcheno/go-talib"
	"gonum.org/v1/gonum/stat"

	"github.com/Karagul/WorldQuant-BTC-Trading/internal/dataset"
	"github.com/Karagul/WorldQuant-BTC-Trading/pkg/contracts/domain"
)

// Features computes the processed feature table from merged bars and
// trims the indicator warmup rows. Column order is the processed CSV
// contract.
func (p *Preprocessor) Features(bars []domain.Bar) (*dataset.Frame, error) {
	warmup := p.warmupRows()
	if len(bars) <= warmup {
		return nil, fmt.Errorf("%d rows is not enough for indicator warmup (%d)", len(bars), warmup)
	}

	frame := dataset.FromBars(bars)
	closes, _ := frame.Column(dataset.ColClose)
	highs, _ := frame.Column(dataset.ColHigh)
	lows, _ := frame.Column(dataset.ColLow)
	volumes, _ := frame.Column(dataset.ColVolume)

	returns, logReturns := returnSeries(closes)
	cfg := p.features

	macd, macdSignal, _ := talib.Macd(closes, cfg.MACDFast, cfg.MACDSlow, cfg.MACDSignal)

	columns := []struct {
		name   string
		values []float64
	}{
		{dataset.ColReturn, returns},
		{dataset.ColLogReturn, logReturns},
		{dataset.ColVolatility, rollingStd(logReturns, cfg.VolatilityWindow)},
		{dataset.ColRSI, talib.Rsi(closes, cfg.RSIPeriod)},
		{dataset.ColMACD, macd},
		{dataset.ColMACDSignal, macdSignal},
		{dataset.ColATR, talib.Atr(highs, lows, closes, cfg.ATRPeriod)},
		{dataset.ColEMAFast, talib.Ema(closes, cfg.EMAFast)},
		{dataset.ColEMASlow, talib.Ema(closes, cfg.EMASlow)},
		{dataset.ColOBV, talib.Obv(closes, volumes)},
		{dataset.ColVolumeSMA, talib.Sma(volumes, cfg.VolumeWindow)},
	}
	for _, col := range columns {
		if err := frame.AddColumn(col.name, col.values); err != nil {
			return nil, err
		}
	}

	// AdjClose fed nothing downstream; the raw files keep it.
	out, err := frame.Select(dataset.ColOpen, dataset.ColHigh, dataset.ColLow, dataset.ColClose,
		dataset.ColVolume, dataset.ColReturn, dataset.ColLogReturn, dataset.ColVolatility,
		dataset.ColRSI, dataset.ColMACD, dataset.ColMACDSignal, dataset.ColATR,
		dataset.ColEMAFast, dataset.ColEMASlow, dataset.ColOBV, dataset.ColVolumeSMA)
	if err != nil {
		return nil, err
	}

	out, err = out.DropHead(warmup)
	if err != nil {
		return nil, err
	}
	slog.Info("computed features",
		"rows", out.Len(),
		"warmup_trimmed", warmup,
		"columns", len(out.Columns()))
	return out, nil
}

// warmupRows is the first index at which every feature column holds a
// real value. The talib port pads its unstable period with zeros, so
// the cut must be computed from the windows, not found by scanning.
func (p *Preprocessor) warmupRows() int {
	cfg := p.features
	warmup := cfg.VolatilityWindow // volatility needs a full window of returns
	candidates := []int{
		cfg.RSIPeriod,
		cfg.MACDSlow + cfg.MACDSignal - 2,
		cfg.ATRPeriod,
		cfg.EMASlow - 1,
		cfg.VolumeWindow - 1,
		1,
	}
	for _, c := range candidates {
		if c > warmup {
			warmup = c
		}
	}
	return warmup
}

// returnSeries computes simple and log returns. Index 0 has no previous
// close and stays NaN until the warmup trim removes it.
func returnSeries(closes []float64) (returns, logReturns []float64) {
	returns = make([]float64, len(closes))
	logReturns = make([]float64, len(closes))
	if len(closes) == 0 {
		return returns, logReturns
	}
	returns[0] = math.NaN()
	logReturns[0] = math.NaN()
	for i := 1; i < len(closes); i++ {
		returns[i] = closes[i]/closes[i-1] - 1
		logReturns[i] = math.Log(closes[i] / closes[i-1])
	}
	return returns, logReturns
}

// rollingStd computes the sample standard deviation over a trailing
// window. Windows containing NaN yield NaN.
func rollingStd(values []float64, window int) []float64 {
	out := make([]float64, len(values))
	for i := range out {
		out[i] = math.NaN()
	}
	for i := window - 1; i < len(values); i++ {
		sample := values[i-window+1 : i+1]
		if hasNaN(sample) {
			continue
		}
		out[i] = stat.StdDev(sample, nil)
	}
	return out
}

func hasNaN(values []float64) bool {
	for _, v := range values {
		if math.IsNaN(v) {
			return true
		}
	}
	return false
}
