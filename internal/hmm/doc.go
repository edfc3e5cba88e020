// Package hmm fits diagonal-covariance Gaussian hidden Markov models
// to daily market features and decodes regime sequences.
//
// Fitting uses Baum-Welch EM with scaled forward/backward passes and
// seeded random restarts. The state count can be fixed or selected by
// BIC over a range. Fitted states are relabeled in ascending
// volatility order so state 0 is always the calmest regime, which
// keeps runs and downstream reports comparable.
package hmm
