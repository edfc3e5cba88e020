// Package markovchain fits first-order Markov chains to the discrete
// regime and close-state sequences: Laplace-smoothed transition
// matrices, stationary distributions by power iteration, expected
// regime durations and one-step-ahead state prediction.
package markovchain
