// Package files provides file system discovery and manifest utilities
// for the research pipeline.
//
// This package contains two main components:
//
// Discovery: Provides file discovery operations such as finding raw
// market data files (CSV and Excel), locating the cleaned split files,
// and finding the latest file in a set.
//
// Appender: Writes stage records to the pipeline manifest, a JSON Lines
// file where every stage invocation appends exactly one record. The
// manifest is the audit trail of a pipeline run.
//
// Example usage:
//
//	// Find raw input files
//	discovery := files.NewDiscovery("/path/to/base")
//	inputs, err := discovery.FindMarketDataFiles("data/raw")
//
//	// Record a stage run
//	appender := files.NewAppender(paths.ManifestFile)
//	err = appender.Append(record)
package files
