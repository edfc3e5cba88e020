// Package dataset provides the tabular data structures shared by the
// pipeline stages.
//
// This package contains three main components:
//
// Frame: An ordered, date-indexed table of float64 columns. Frames are
// the unit of exchange between stages: the preprocessor writes one,
// the cleaner splits it, the models consume slices of it.
//
// Bar I/O: Readers and writers for raw per-symbol OHLCV files in CSV
// and XLSX form, with header detection tolerant of provider quirks.
//
// Frame I/O: CSV round-trip for frames with full float64 precision and
// UTF-8 BOM for Excel compatibility.
//
// Example usage:
//
//	frame, err := dataset.ReadFrameCSV("data/processed/market_data.csv")
//	if err != nil {
//		return err
//	}
//	closes, _ := frame.Column(dataset.ColClose)
package dataset
