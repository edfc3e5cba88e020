// Package bayes learns a discrete Bayesian network over the HMM state
// tables: greedy hill climbing over single-edge moves scored by BIC,
// BDeu or BDs, maximum-likelihood CPTs, and Markov-blanket prediction
// of the forecast column. Graphs stay acyclic through every move.
package bayes
