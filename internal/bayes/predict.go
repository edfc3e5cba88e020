package bayes

import (
	"fmt"
	"math"

	"github.com/Karagul/WorldQuant-BTC-Trading/internal/dataset"
)

// Predict infers the most likely state of target for every row of a
// state table. With full evidence on the remaining nodes the
// posterior reduces to the target's Markov blanket: its own CPT row
// times the CPT rows of its children. Frame columns that are not
// network nodes are ignored, so a state table may carry more columns
// than the model saw during the structure search. Ties go to the
// lower state.
func (n *Network) Predict(frame *dataset.Frame, target string) ([]int, error) {
	targetIdx := -1
	for i, name := range n.Nodes {
		if name == target {
			targetIdx = i
			break
		}
	}
	if targetIdx < 0 {
		return nil, fmt.Errorf("target %s is not a network node", target)
	}

	cptIndex := make(map[string]*CPT, len(n.CPTs))
	for i := range n.CPTs {
		cptIndex[n.CPTs[i].Node] = &n.CPTs[i]
	}
	targetCPT := cptIndex[target]
	if targetCPT == nil {
		return nil, fmt.Errorf("network has no CPT for %s", target)
	}

	var children []*CPT
	for i := range n.CPTs {
		for _, parent := range n.CPTs[i].Parents {
			if parent == target {
				children = append(children, &n.CPTs[i])
				break
			}
		}
	}

	evidence, err := n.evidenceColumns(frame, target, targetCPT, children)
	if err != nil {
		return nil, err
	}

	card := n.Cardinalities[targetIdx]
	predictions := make([]int, frame.Len())
	for t := 0; t < frame.Len(); t++ {
		value := func(node string, candidate int) int {
			if node == target {
				return candidate
			}
			return evidence[node][t]
		}

		bestState := 0
		bestLog := math.Inf(-1)
		for f := 0; f < card; f++ {
			logp := math.Log(n.lookup(targetCPT, f, func(node string) int { return value(node, f) }))
			for _, child := range children {
				p := n.lookup(child, value(child.Node, f), func(node string) int { return value(node, f) })
				logp += math.Log(p)
			}
			if logp > bestLog {
				bestLog = logp
				bestState = f
			}
		}
		predictions[t] = bestState
	}
	return predictions, nil
}

// evidenceColumns extracts the integer state columns the blanket
// needs. A required column missing from the frame is an error.
func (n *Network) evidenceColumns(frame *dataset.Frame, target string, targetCPT *CPT, children []*CPT) (map[string][]int, error) {
	required := make(map[string]bool)
	for _, parent := range targetCPT.Parents {
		required[parent] = true
	}
	for _, child := range children {
		required[child.Node] = true
		for _, parent := range child.Parents {
			required[parent] = true
		}
	}
	delete(required, target)

	evidence := make(map[string][]int, len(required))
	for node := range required {
		values, err := frame.Column(node)
		if err != nil {
			return nil, fmt.Errorf("state table is missing blanket column %s: %w", node, err)
		}
		states := make([]int, len(values))
		for t, v := range values {
			state, err := toState(v)
			if err != nil {
				return nil, fmt.Errorf("column %s row %d: %w", node, t, err)
			}
			states[t] = state
		}
		evidence[node] = states
	}
	return evidence, nil
}

// lookup reads one CPT probability. Evidence values outside the
// cardinality seen in training count as an unseen configuration and
// fall back to uniform.
func (n *Network) lookup(cpt *CPT, value int, assignment func(node string) int) float64 {
	card := len(cpt.Table[0])
	if value < 0 || value >= card {
		return 1.0 / float64(card)
	}
	idx := 0
	for _, parent := range cpt.Parents {
		parentCard := n.cardOf(parent)
		v := assignment(parent)
		if v < 0 || v >= parentCard {
			return 1.0 / float64(card)
		}
		idx = idx*parentCard + v
	}
	return cpt.Table[idx][value]
}

func (n *Network) cardOf(node string) int {
	for i, name := range n.Nodes {
		if name == node {
			return n.Cardinalities[i]
		}
	}
	return 0
}
