package markovchain

import (
	"fmt"
	"math"
)

const (
	stationaryTolerance = 1e-9
	stationaryMaxIter   = 100000
)

// Chain is a first-order Markov chain over states 0..States-1.
type Chain struct {
	States     int         `json:"states"`
	Smoothing  float64     `json:"smoothing"`
	Transition [][]float64 `json:"transition"`
	Visits     []int       `json:"visits"` // observed transitions out of each state
}

// FitChain estimates a transition matrix from a state sequence by
// maximum likelihood with Laplace smoothing. A state that never
// occurs as a source still gets a row: smoothed when smoothing is
// positive, uniform as a fallback otherwise.
func FitChain(sequence []int, smoothing float64) (*Chain, error) {
	if len(sequence) < 2 {
		return nil, fmt.Errorf("need at least 2 observations to fit transitions, got %d", len(sequence))
	}
	if smoothing < 0 {
		return nil, fmt.Errorf("smoothing must not be negative, got %v", smoothing)
	}

	states := 0
	for _, s := range sequence {
		if s < 0 {
			return nil, fmt.Errorf("negative state %d in sequence", s)
		}
		if s+1 > states {
			states = s + 1
		}
	}

	counts := make([][]int, states)
	for i := range counts {
		counts[i] = make([]int, states)
	}
	for t := 1; t < len(sequence); t++ {
		counts[sequence[t-1]][sequence[t]]++
	}

	transition := make([][]float64, states)
	visits := make([]int, states)
	for i := 0; i < states; i++ {
		total := 0
		for _, c := range counts[i] {
			total += c
		}
		visits[i] = total

		transition[i] = make([]float64, states)
		denominator := float64(total) + smoothing*float64(states)
		if denominator == 0 {
			uniform := 1.0 / float64(states)
			for j := range transition[i] {
				transition[i][j] = uniform
			}
			continue
		}
		for j := 0; j < states; j++ {
			transition[i][j] = (float64(counts[i][j]) + smoothing) / denominator
		}
	}

	chain := &Chain{States: states, Smoothing: smoothing, Transition: transition, Visits: visits}
	if err := chain.Validate(); err != nil {
		return nil, fmt.Errorf("fit produced an invalid chain: %w", err)
	}
	return chain, nil
}

// Validate checks that the transition matrix is square and row
// stochastic.
func (c *Chain) Validate() error {
	if c.States < 1 {
		return fmt.Errorf("chain has %d states", c.States)
	}
	if len(c.Transition) != c.States || len(c.Visits) != c.States {
		return fmt.Errorf("chain shapes do not match %d states", c.States)
	}
	for i, row := range c.Transition {
		if len(row) != c.States {
			return fmt.Errorf("transition row %d has %d entries, want %d", i, len(row), c.States)
		}
		sum := 0.0
		for _, p := range row {
			if p < 0 || math.IsNaN(p) || math.IsInf(p, 0) {
				return fmt.Errorf("transition row %d has invalid probability %v", i, p)
			}
			sum += p
		}
		if math.Abs(sum-1) > 1e-9 {
			return fmt.Errorf("transition row %d sums to %v, want 1", i, sum)
		}
	}
	return nil
}

// PredictNext returns the most likely successor state, ties resolving
// to the lower state. States the chain never saw predict through the
// uniform fallback, which resolves to state 0.
func (c *Chain) PredictNext(state int) int {
	if state < 0 || state >= c.States {
		return 0
	}
	best := 0
	for j := 1; j < c.States; j++ {
		if c.Transition[state][j] > c.Transition[state][best] {
			best = j
		}
	}
	return best
}

// PredictSequence maps every observed state to its predicted
// successor.
func (c *Chain) PredictSequence(sequence []int) []int {
	predictions := make([]int, len(sequence))
	for i, s := range sequence {
		predictions[i] = c.PredictNext(s)
	}
	return predictions
}

// Stationary computes the stationary distribution by power iteration,
// stopping when the update is below 1e-9 in the max norm.
func (c *Chain) Stationary() ([]float64, error) {
	pi := make([]float64, c.States)
	for i := range pi {
		pi[i] = 1.0 / float64(c.States)
	}

	next := make([]float64, c.States)
	for iter := 0; iter < stationaryMaxIter; iter++ {
		for j := range next {
			next[j] = 0
		}
		for i := 0; i < c.States; i++ {
			for j := 0; j < c.States; j++ {
				next[j] += pi[i] * c.Transition[i][j]
			}
		}

		sum := 0.0
		for _, v := range next {
			sum += v
		}
		diff := 0.0
		for j := range next {
			next[j] /= sum
			if d := math.Abs(next[j] - pi[j]); d > diff {
				diff = d
			}
		}
		copy(pi, next)
		if diff < stationaryTolerance {
			return pi, nil
		}
	}
	return nil, fmt.Errorf("stationary distribution did not converge in %d iterations", stationaryMaxIter)
}

// ExpectedDurations returns the expected consecutive stay 1/(1-p) per
// state. An absorbing state has no finite expected stay and is an
// error; positive smoothing rules that case out.
func (c *Chain) ExpectedDurations() ([]float64, error) {
	durations := make([]float64, c.States)
	for i := 0; i < c.States; i++ {
		stay := c.Transition[i][i]
		if stay >= 1 {
			return nil, fmt.Errorf("state %d is absorbing, expected duration is unbounded", i)
		}
		durations[i] = 1 / (1 - stay)
	}
	return durations, nil
}
