package hmm

import (
	"fmt"
	"math"
)

// Decode assigns the most likely state sequence to the observations
// using log-space Viterbi, so long sequences cannot underflow.
func (m *Model) Decode(observations [][]float64) ([]int, error) {
	n := len(observations)
	if n == 0 {
		return nil, fmt.Errorf("no observations to decode")
	}
	for t, row := range observations {
		if len(row) != len(m.Features) {
			return nil, fmt.Errorf("observation row %d has %d features, model expects %d",
				t, len(row), len(m.Features))
		}
	}
	if err := checkFinite(observations); err != nil {
		return nil, err
	}

	k := m.States
	logInitial := make([]float64, k)
	for s := 0; s < k; s++ {
		logInitial[s] = math.Log(m.Initial[s])
	}
	logTransition := make([][]float64, k)
	for s := 0; s < k; s++ {
		logTransition[s] = make([]float64, k)
		for r := 0; r < k; r++ {
			logTransition[s][r] = math.Log(m.Transition[s][r])
		}
	}

	delta := make([][]float64, n)
	backpointer := make([][]int, n)
	delta[0] = make([]float64, k)
	backpointer[0] = make([]int, k)
	for s := 0; s < k; s++ {
		delta[0][s] = logInitial[s] + m.logEmission(s, observations[0])
	}
	for t := 1; t < n; t++ {
		delta[t] = make([]float64, k)
		backpointer[t] = make([]int, k)
		for s := 0; s < k; s++ {
			bestScore := math.Inf(-1)
			bestPrev := 0
			for r := 0; r < k; r++ {
				score := delta[t-1][r] + logTransition[r][s]
				if score > bestScore {
					bestScore = score
					bestPrev = r
				}
			}
			delta[t][s] = bestScore + m.logEmission(s, observations[t])
			backpointer[t][s] = bestPrev
		}
	}

	states := make([]int, n)
	best := math.Inf(-1)
	for s := 0; s < k; s++ {
		if delta[n-1][s] > best {
			best = delta[n-1][s]
			states[n-1] = s
		}
	}
	for t := n - 2; t >= 0; t-- {
		states[t] = backpointer[t+1][states[t+1]]
	}
	return states, nil
}
