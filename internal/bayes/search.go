package bayes

import (
	"fmt"
	"log/slog"
)

// improvementEpsilon is the minimum score gain a move must deliver;
// below it the search is considered converged.
const improvementEpsilon = 1e-4

type moveKind int

const (
	moveAdd moveKind = iota
	moveRemove
	moveReverse
)

type move struct {
	kind  moveKind
	from  int
	to    int
	delta float64
}

// HillClimb greedily applies the best single-edge move (add, remove
// or reverse) until no move improves the score by more than
// improvementEpsilon or maxIter moves were taken. The graph is
// acyclic after every move.
func HillClimb(data *Dataset, score Score, maxIter int) (*Graph, float64, int) {
	g := NewGraph(data.Names())
	n := g.NodeCount()

	local := make([]float64, n)
	for v := 0; v < n; v++ {
		local[v] = score.Local(v, g.Parents(v))
	}

	iterations := 0
	for iterations < maxIter {
		best := move{delta: improvementEpsilon}
		found := false
		for u := 0; u < n; u++ {
			for v := 0; v < n; v++ {
				if u == v {
					continue
				}
				if !g.HasEdge(u, v) {
					if g.HasEdge(v, u) || g.pathExists(v, u) {
						continue
					}
					delta := score.Local(v, append(g.Parents(v), u)) - local[v]
					if delta > best.delta {
						best = move{kind: moveAdd, from: u, to: v, delta: delta}
						found = true
					}
					continue
				}

				removed := score.Local(v, without(g.Parents(v), u)) - local[v]
				if removed > best.delta {
					best = move{kind: moveRemove, from: u, to: v, delta: removed}
					found = true
				}

				g.adj[u][v] = false
				reversible := !g.pathExists(u, v)
				g.adj[u][v] = true
				if reversible {
					delta := removed + score.Local(u, append(g.Parents(u), v)) - local[u]
					if delta > best.delta {
						best = move{kind: moveReverse, from: u, to: v, delta: delta}
						found = true
					}
				}
			}
		}
		if !found {
			break
		}

		switch best.kind {
		case moveAdd:
			g.adj[best.from][best.to] = true
		case moveRemove:
			g.adj[best.from][best.to] = false
		case moveReverse:
			g.adj[best.from][best.to] = false
			g.adj[best.to][best.from] = true
			local[best.from] = score.Local(best.from, g.Parents(best.from))
		}
		local[best.to] = score.Local(best.to, g.Parents(best.to))
		iterations++
	}

	return g, ScoreGraph(g, score), iterations
}

func without(parents []int, drop int) []int {
	kept := make([]int, 0, len(parents))
	for _, p := range parents {
		if p != drop {
			kept = append(kept, p)
		}
	}
	return kept
}

// Candidate records one (method, iteration cap) pair of the search
// grid.
type Candidate struct {
	Method  string  `json:"method"`
	MaxIter int     `json:"max_iter"`
	Score   float64 `json:"score"`
	Edges   int     `json:"edges"`
	Chosen  bool    `json:"chosen"`
}

// Result is the winning structure of a search grid.
type Result struct {
	Graph      *Graph
	Method     string
	MaxIter    int
	Score      float64
	Candidates []Candidate
}

func scoreFor(method string, data *Dataset, ess float64) (Score, error) {
	switch method {
	case "bic":
		return NewBICScore(data), nil
	case "bdeu":
		return NewBDeuScore(data, ess), nil
	case "bds":
		return NewBDsScore(data, ess), nil
	default:
		return nil, fmt.Errorf("unknown scoring method %q (want bic, bdeu or bds)", method)
	}
}

// SearchBest runs hill climbing for every scoring method and every
// iteration cap and keeps the candidate with the highest raw score.
// Each candidate is scored under its own method; the comparison across
// methods is deliberately raw even though the scales differ.
func SearchBest(data *Dataset, methods []string, maxIters []int, ess float64) (*Result, error) {
	if ess <= 0 {
		return nil, fmt.Errorf("equivalent sample size must be positive, got %v", ess)
	}
	if len(methods) == 0 {
		return nil, fmt.Errorf("no scoring methods given")
	}
	if len(maxIters) == 0 {
		return nil, fmt.Errorf("no iteration caps given")
	}
	for _, maxIter := range maxIters {
		if maxIter < 1 {
			return nil, fmt.Errorf("iteration cap %d is not positive", maxIter)
		}
	}

	scores := make([]Score, 0, len(methods))
	for _, method := range methods {
		score, err := scoreFor(method, data, ess)
		if err != nil {
			return nil, err
		}
		scores = append(scores, score)
	}

	result := &Result{}
	bestIdx := -1
	for _, maxIter := range maxIters {
		for _, score := range scores {
			graph, total, moves := HillClimb(data, score, maxIter)
			slog.Info("structure search candidate",
				"method", score.Name(),
				"max_iter", maxIter,
				"score", total,
				"edges", graph.EdgeCount(),
				"moves", moves)

			result.Candidates = append(result.Candidates, Candidate{
				Method:  score.Name(),
				MaxIter: maxIter,
				Score:   total,
				Edges:   graph.EdgeCount(),
			})
			if bestIdx < 0 || total > result.Score {
				bestIdx = len(result.Candidates) - 1
				result.Graph = graph
				result.Method = score.Name()
				result.MaxIter = maxIter
				result.Score = total
			}
		}
	}
	result.Candidates[bestIdx].Chosen = true
	return result, nil
}
