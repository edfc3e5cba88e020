package preprocess

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/Karagul/WorldQuant-BTC-Trading/internal/config"
	"github.com/Karagul/WorldQuant-BTC-Trading/internal/dataset"
	"github.com/Karagul/WorldQuant-BTC-Trading/internal/files"
	"github.com/Karagul/WorldQuant-BTC-Trading/pkg/contracts/domain"
)

// Preprocessor turns raw bar files into the processed feature table.
type Preprocessor struct {
	features config.FeaturesConfig
}

// New creates a preprocessor with the given feature windows.
func New(features config.FeaturesConfig) *Preprocessor {
	return &Preprocessor{features: features}
}

// LoadBars reads every raw file belonging to symbol from inputDir and
// merges them into one sorted, deduplicated series. Files may be CSV or
// Excel; chunked histories like BTC-USD_2021.csv all count.
func (p *Preprocessor) LoadBars(inputDir, symbol string) ([]domain.Bar, error) {
	discovery := files.NewDiscovery(inputDir)
	candidates, err := discovery.FindMarketDataFiles(".")
	if err != nil {
		return nil, err
	}

	var bars []domain.Bar
	matched := 0
	for _, file := range candidates {
		if !matchesSymbol(file.Name, symbol) {
			continue
		}
		matched++

		var chunk []domain.Bar
		switch strings.ToLower(filepath.Ext(file.Name)) {
		case ".csv":
			chunk, err = dataset.ReadBarsCSV(file.Path, symbol)
		default:
			chunk, err = dataset.ReadBarsXLSX(file.Path, symbol)
		}
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", file.Name, err)
		}
		slog.Info("loaded raw file", "file", file.Name, "rows", len(chunk))
		bars = append(bars, chunk...)
	}

	if matched == 0 {
		return nil, fmt.Errorf("no raw files for symbol %s in %s", symbol, inputDir)
	}

	domain.SortBarsByDate(bars)
	before := len(bars)
	bars = domain.DedupeBars(bars)
	if dropped := before - len(bars); dropped > 0 {
		slog.Warn("duplicate dates across raw files", "symbol", symbol, "duplicates", dropped)
	}

	bars = dropNonPositiveClose(bars, symbol)
	if len(bars) == 0 {
		return nil, fmt.Errorf("no usable rows for symbol %s", symbol)
	}
	return bars, nil
}

// matchesSymbol accepts <symbol>.<ext> and chunked <symbol>_<suffix>.<ext>.
func matchesSymbol(fileName, symbol string) bool {
	base := files.SymbolFromFileName(fileName)
	return base == symbol || strings.HasPrefix(base, symbol+"_")
}

func dropNonPositiveClose(bars []domain.Bar, symbol string) []domain.Bar {
	out := bars[:0]
	dropped := 0
	for _, bar := range bars {
		if bar.Close <= 0 {
			slog.Warn("dropping bar with non-positive close",
				"symbol", symbol, "date", bar.Date.Format(config.DateLayout))
			dropped++
			continue
		}
		out = append(out, bar)
	}
	if dropped > 0 {
		slog.Warn("dropped non-positive close rows", "symbol", symbol, "dropped", dropped)
	}
	return out
}
