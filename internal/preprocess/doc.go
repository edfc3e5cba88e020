// Package preprocess merges raw per-symbol bar files into a single
// feature table: daily returns, rolling volatility and the technical
// indicator set, with indicator warmup rows trimmed off.
package preprocess
