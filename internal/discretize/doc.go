// Package discretize turns cleaned market tables into small-integer
// state tables: per-field log returns against the previous close are
// bucketed into quantile bins whose edges are fit on the training
// split only, then joined with the decoded regime sequence and a
// one-step-ahead close-state forecast column.
package discretize
