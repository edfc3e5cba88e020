package crawler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/Karagul/WorldQuant-BTC-Trading/internal/config"
	"github.com/Karagul/WorldQuant-BTC-Trading/internal/dataset"
)

// Crawler downloads raw history for a set of symbols and writes one
// CSV per symbol into the raw data directory.
type Crawler struct {
	client      *Client
	concurrency int
}

// Result summarizes the download of one symbol.
type Result struct {
	Symbol string
	Rows   int
	Path   string
}

// New creates a crawler from configuration.
func New(cfg config.CrawlerConfig) *Crawler {
	return &Crawler{
		client:      NewClient(cfg),
		concurrency: cfg.Concurrency,
	}
}

// Run fetches all symbols concurrently and writes their bar files.
// Every symbol is attempted even when one fails, and the failures come
// back joined so the operator sees the full picture in one run.
func (c *Crawler) Run(ctx context.Context, symbols []string, start, end time.Time, outputDir string) ([]Result, error) {
	if len(symbols) == 0 {
		return nil, fmt.Errorf("no symbols to fetch")
	}

	var g errgroup.Group
	g.SetLimit(c.concurrency)

	var mu sync.Mutex
	results := make([]Result, 0, len(symbols))
	var failures []error

	for _, symbol := range symbols {
		symbol := symbol
		g.Go(func() error {
			bars, err := c.client.FetchBars(ctx, symbol, start, end)
			if err == nil {
				path := filepath.Join(outputDir, symbol+".csv")
				if writeErr := dataset.WriteBarsCSV(path, bars); writeErr != nil {
					err = fmt.Errorf("writing %s: %w", symbol, writeErr)
				} else {
					mu.Lock()
					results = append(results, Result{Symbol: symbol, Rows: len(bars), Path: path})
					mu.Unlock()
					slog.Info("wrote raw bars", "symbol", symbol, "rows", len(bars), "path", path)
					return nil
				}
			}

			slog.Error("symbol download failed", "symbol", symbol, "error", err)
			mu.Lock()
			failures = append(failures, err)
			mu.Unlock()
			return nil
		})
	}

	g.Wait()

	if len(failures) > 0 {
		return nil, errors.Join(failures...)
	}

	sort.Slice(results, func(i, j int) bool {
		return results[i].Symbol < results[j].Symbol
	})
	return results, nil
}
