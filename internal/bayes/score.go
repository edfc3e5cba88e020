package bayes

import (
	"math"
)

// Score is a decomposable structure score: the graph score is the sum
// of Local over every node with its parent set.
type Score interface {
	Name() string
	Local(v int, parents []int) float64
}

// ScoreGraph sums the local scores of a graph.
func ScoreGraph(g *Graph, s Score) float64 {
	total := 0.0
	for v := 0; v < g.NodeCount(); v++ {
		total += s.Local(v, g.Parents(v))
	}
	return total
}

// countTable tallies value counts per observed parent configuration.
// Keys are mixed-radix configuration indices, last parent fastest.
func countTable(d *Dataset, v int, parents []int) map[int][]int {
	counts := make(map[int][]int)
	for t := 0; t < d.Len(); t++ {
		idx := 0
		for _, p := range parents {
			idx = idx*d.Card(p) + d.Value(t, p)
		}
		row, ok := counts[idx]
		if !ok {
			row = make([]int, d.Card(v))
			counts[idx] = row
		}
		row[d.Value(t, v)]++
	}
	return counts
}

func parentConfigs(d *Dataset, parents []int) float64 {
	q := 1.0
	for _, p := range parents {
		q *= float64(d.Card(p))
	}
	return q
}

func lgamma(x float64) float64 {
	v, _ := math.Lgamma(x)
	return v
}

// BICScore is the log-likelihood of the node given its parents minus
// half the parameter count times ln of the sample size. The penalty
// covers every parent configuration, observed or not.
type BICScore struct {
	data *Dataset
}

func NewBICScore(data *Dataset) *BICScore {
	return &BICScore{data: data}
}

func (s *BICScore) Name() string { return "bic" }

func (s *BICScore) Local(v int, parents []int) float64 {
	counts := countTable(s.data, v, parents)

	logLikelihood := 0.0
	for _, row := range counts {
		total := 0
		for _, c := range row {
			total += c
		}
		if total == 0 {
			continue
		}
		logTotal := math.Log(float64(total))
		for _, c := range row {
			if c > 0 {
				logLikelihood += float64(c) * (math.Log(float64(c)) - logTotal)
			}
		}
	}

	q := parentConfigs(s.data, parents)
	r := float64(s.data.Card(v))
	penalty := 0.5 * math.Log(float64(s.data.Len())) * q * (r - 1)
	return logLikelihood - penalty
}

// BDeuScore is the Bayesian-Dirichlet equivalent uniform score with
// an equivalent sample size spread over all parent configurations.
// Unobserved configurations contribute nothing, so the sum runs over
// observed ones only.
type BDeuScore struct {
	data *Dataset
	ess  float64
}

func NewBDeuScore(data *Dataset, ess float64) *BDeuScore {
	return &BDeuScore{data: data, ess: ess}
}

func (s *BDeuScore) Name() string { return "bdeu" }

func (s *BDeuScore) Local(v int, parents []int) float64 {
	counts := countTable(s.data, v, parents)
	q := parentConfigs(s.data, parents)
	r := float64(s.data.Card(v))
	return dirichletScore(counts, s.ess/q, s.ess/(q*r))
}

// BDsScore spreads the prior mass over observed parent configurations
// only, which keeps sparse tables from being drowned by phantom rows.
type BDsScore struct {
	data *Dataset
	ess  float64
}

func NewBDsScore(data *Dataset, ess float64) *BDsScore {
	return &BDsScore{data: data, ess: ess}
}

func (s *BDsScore) Name() string { return "bds" }

func (s *BDsScore) Local(v int, parents []int) float64 {
	counts := countTable(s.data, v, parents)
	observed := float64(len(counts))
	if observed == 0 {
		return 0
	}
	r := float64(s.data.Card(v))
	return dirichletScore(counts, s.ess/observed, s.ess/(observed*r))
}

func dirichletScore(counts map[int][]int, alphaRow, alphaCell float64) float64 {
	score := 0.0
	for _, row := range counts {
		total := 0
		for _, c := range row {
			total += c
		}
		score += lgamma(alphaRow) - lgamma(alphaRow+float64(total))
		for _, c := range row {
			score += lgamma(alphaCell+float64(c)) - lgamma(alphaCell)
		}
	}
	return score
}
