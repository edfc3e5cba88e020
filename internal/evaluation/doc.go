// Package evaluation aggregates the per-stage metrics files into the
// final model comparison: a shared error metric, a ranked report, and
// CSV/xlsx renderings of it.
package evaluation
