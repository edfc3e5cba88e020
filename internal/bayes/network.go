package bayes

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
)

// SchemaVersion gates persisted network files.
const SchemaVersion = 1

// maxCPTRows bounds a single conditional table; beyond it the parent
// set is too wide to estimate from daily data anyway.
const maxCPTRows = 1 << 16

// CPT is the conditional distribution of one node. Rows are indexed
// by the mixed-radix parent configuration, last parent fastest; every
// row sums to 1, with unobserved configurations kept uniform.
type CPT struct {
	Node    string      `json:"node"`
	Parents []string    `json:"parents"`
	Table   [][]float64 `json:"table"`
	Support []int       `json:"support"`
}

// Network is a fitted Bayesian network with its search metadata.
type Network struct {
	SchemaVersion int         `json:"schema_version"`
	Nodes         []string    `json:"nodes"`
	Cardinalities []int       `json:"cardinalities"`
	Edges         [][2]string `json:"edges"`
	CPTs          []CPT       `json:"cpts"`
	Method        string      `json:"method"`
	MaxIter       int         `json:"max_iter"`
	Score         float64     `json:"score"`
	TrainRows     int         `json:"train_rows"`
}

// FitNetwork estimates maximum-likelihood CPTs for the graph, filling
// unobserved parent configurations with uniform rows.
func FitNetwork(data *Dataset, result *Result) (*Network, error) {
	g := result.Graph
	if g.NodeCount() != len(data.names) {
		return nil, fmt.Errorf("graph has %d nodes, dataset has %d", g.NodeCount(), len(data.names))
	}
	net := &Network{
		SchemaVersion: SchemaVersion,
		Nodes:         data.Names(),
		Cardinalities: make([]int, g.NodeCount()),
		Edges:         g.Edges(),
		CPTs:          make([]CPT, g.NodeCount()),
		Method:        result.Method,
		MaxIter:       result.MaxIter,
		Score:         result.Score,
		TrainRows:     data.Len(),
	}

	for v := 0; v < g.NodeCount(); v++ {
		net.Cardinalities[v] = data.Card(v)
		parents := g.Parents(v)

		rows := 1
		parentNames := make([]string, len(parents))
		for i, p := range parents {
			parentNames[i] = g.NodeName(p)
			rows *= data.Card(p)
			if rows > maxCPTRows {
				return nil, fmt.Errorf("node %s has %d parent configurations, limit is %d",
					g.NodeName(v), rows, maxCPTRows)
			}
		}

		counts := countTable(data, v, parents)
		card := data.Card(v)
		table := make([][]float64, rows)
		support := make([]int, rows)
		for j := 0; j < rows; j++ {
			table[j] = make([]float64, card)
			row, seen := counts[j]
			if !seen {
				uniformRow(table[j])
				continue
			}
			total := 0
			for _, c := range row {
				total += c
			}
			support[j] = total
			for k, c := range row {
				table[j][k] = float64(c) / float64(total)
			}
		}

		net.CPTs[v] = CPT{
			Node:    g.NodeName(v),
			Parents: parentNames,
			Table:   table,
			Support: support,
		}
	}
	return net, nil
}

func uniformRow(row []float64) {
	p := 1.0 / float64(len(row))
	for i := range row {
		row[i] = p
	}
}

// Validate checks the structural invariants of a persisted network.
func (n *Network) Validate() error {
	if len(n.Nodes) == 0 {
		return fmt.Errorf("network has no nodes")
	}
	if len(n.Cardinalities) != len(n.Nodes) || len(n.CPTs) != len(n.Nodes) {
		return fmt.Errorf("network shapes do not match %d nodes", len(n.Nodes))
	}
	index := make(map[string]int, len(n.Nodes))
	for i, name := range n.Nodes {
		if n.Cardinalities[i] < 1 {
			return fmt.Errorf("node %s has cardinality %d", name, n.Cardinalities[i])
		}
		index[name] = i
	}

	for _, cpt := range n.CPTs {
		v, ok := index[cpt.Node]
		if !ok {
			return fmt.Errorf("CPT for unknown node %s", cpt.Node)
		}
		rows := 1
		for _, parent := range cpt.Parents {
			p, ok := index[parent]
			if !ok {
				return fmt.Errorf("node %s has unknown parent %s", cpt.Node, parent)
			}
			rows *= n.Cardinalities[p]
		}
		if len(cpt.Table) != rows {
			return fmt.Errorf("node %s has %d CPT rows, want %d", cpt.Node, len(cpt.Table), rows)
		}
		if len(cpt.Support) != rows {
			return fmt.Errorf("node %s has %d support entries, want %d", cpt.Node, len(cpt.Support), rows)
		}
		for j, row := range cpt.Table {
			if len(row) != n.Cardinalities[v] {
				return fmt.Errorf("node %s CPT row %d has %d entries, want %d",
					cpt.Node, j, len(row), n.Cardinalities[v])
			}
			sum := 0.0
			for _, p := range row {
				if p < 0 || math.IsNaN(p) {
					return fmt.Errorf("node %s CPT row %d has invalid probability %v", cpt.Node, j, p)
				}
				sum += p
			}
			if math.Abs(sum-1) > 1e-9 {
				return fmt.Errorf("node %s CPT row %d sums to %v, want 1", cpt.Node, j, sum)
			}
		}
	}
	return nil
}

// Save writes the network as indented JSON, creating parent
// directories.
func (n *Network) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0750); err != nil {
		return fmt.Errorf("failed to create model directory: %w", err)
	}
	data, err := json.MarshalIndent(n, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal network: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write network %s: %w", path, err)
	}
	return nil
}

// LoadNetwork reads a persisted network and rejects unknown schema
// versions.
func LoadNetwork(path string) (*Network, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read network %s: %w", path, err)
	}
	var net Network
	if err := json.Unmarshal(data, &net); err != nil {
		return nil, fmt.Errorf("failed to parse network %s: %w", path, err)
	}
	if net.SchemaVersion != SchemaVersion {
		return nil, fmt.Errorf("network %s has schema version %d, this build reads %d",
			path, net.SchemaVersion, SchemaVersion)
	}
	if err := net.Validate(); err != nil {
		return nil, fmt.Errorf("network %s is invalid: %w", path, err)
	}
	return &net, nil
}
