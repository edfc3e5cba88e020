package bayes

import (
	"fmt"
	"sort"
)

// Graph is a directed acyclic graph over named nodes. Mutations that
// would introduce a cycle are rejected, so a Graph is a DAG at every
// point in a search.
type Graph struct {
	names []string
	adj   [][]bool // adj[u][v]: edge u -> v
}

// NewGraph creates an edgeless graph over the given nodes.
func NewGraph(names []string) *Graph {
	adj := make([][]bool, len(names))
	for i := range adj {
		adj[i] = make([]bool, len(names))
	}
	return &Graph{names: append([]string(nil), names...), adj: adj}
}

// Copy returns an independent graph with the same edges.
func (g *Graph) Copy() *Graph {
	clone := NewGraph(g.names)
	for u := range g.adj {
		copy(clone.adj[u], g.adj[u])
	}
	return clone
}

// NodeCount returns the number of nodes.
func (g *Graph) NodeCount() int {
	return len(g.names)
}

// NodeName returns the name of a node.
func (g *Graph) NodeName(v int) string {
	return g.names[v]
}

// HasEdge reports whether u -> v exists.
func (g *Graph) HasEdge(u, v int) bool {
	return g.adj[u][v]
}

// AddEdge inserts u -> v, refusing self loops, duplicates and cycles.
func (g *Graph) AddEdge(u, v int) error {
	if u == v {
		return fmt.Errorf("self loop on %s", g.names[u])
	}
	if g.adj[u][v] {
		return fmt.Errorf("edge %s -> %s already exists", g.names[u], g.names[v])
	}
	if g.pathExists(v, u) {
		return fmt.Errorf("edge %s -> %s would close a cycle", g.names[u], g.names[v])
	}
	g.adj[u][v] = true
	return nil
}

// RemoveEdge deletes u -> v if present.
func (g *Graph) RemoveEdge(u, v int) {
	g.adj[u][v] = false
}

// ReverseEdge flips u -> v to v -> u, refusing moves that would close
// a cycle.
func (g *Graph) ReverseEdge(u, v int) error {
	if !g.adj[u][v] {
		return fmt.Errorf("edge %s -> %s does not exist", g.names[u], g.names[v])
	}
	g.adj[u][v] = false
	if g.pathExists(u, v) {
		g.adj[u][v] = true
		return fmt.Errorf("reversing %s -> %s would close a cycle", g.names[u], g.names[v])
	}
	g.adj[v][u] = true
	return nil
}

// Parents returns the parent indices of v in ascending order.
func (g *Graph) Parents(v int) []int {
	var parents []int
	for u := range g.adj {
		if g.adj[u][v] {
			parents = append(parents, u)
		}
	}
	return parents
}

// Children returns the child indices of u in ascending order.
func (g *Graph) Children(u int) []int {
	var children []int
	for v, edge := range g.adj[u] {
		if edge {
			children = append(children, v)
		}
	}
	return children
}

// EdgeCount returns the number of edges.
func (g *Graph) EdgeCount() int {
	count := 0
	for u := range g.adj {
		for v := range g.adj[u] {
			if g.adj[u][v] {
				count++
			}
		}
	}
	return count
}

// Edges lists the edges as name pairs, sorted for stable reports.
func (g *Graph) Edges() [][2]string {
	var edges [][2]string
	for u := range g.adj {
		for v := range g.adj[u] {
			if g.adj[u][v] {
				edges = append(edges, [2]string{g.names[u], g.names[v]})
			}
		}
	}
	sort.Slice(edges, func(i, j int) bool {
		if edges[i][0] != edges[j][0] {
			return edges[i][0] < edges[j][0]
		}
		return edges[i][1] < edges[j][1]
	})
	return edges
}

// pathExists reports whether to is reachable from from.
func (g *Graph) pathExists(from, to int) bool {
	if from == to {
		return true
	}
	seen := make([]bool, len(g.names))
	stack := []int{from}
	seen[from] = true
	for len(stack) > 0 {
		u := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		for v, edge := range g.adj[u] {
			if !edge || seen[v] {
				continue
			}
			if v == to {
				return true
			}
			seen[v] = true
			stack = append(stack, v)
		}
	}
	return false
}
