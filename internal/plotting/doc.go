// Package plotting renders the pipeline's PNG artifacts with
// gonum.org/v1/plot: regime-overlay price charts, the learned
// Bayesian network on a circular layout and the cross-model error
// comparison bars.
package plotting
