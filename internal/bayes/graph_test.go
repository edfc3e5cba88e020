package bayes

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGraphAddEdge(t *testing.T) {
	g := NewGraph([]string{"a", "b", "c"})

	require.NoError(t, g.AddEdge(0, 1))
	require.NoError(t, g.AddEdge(1, 2))
	assert.True(t, g.HasEdge(0, 1))
	assert.Equal(t, 2, g.EdgeCount())

	err := g.AddEdge(0, 1)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already exists")

	err = g.AddEdge(1, 1)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "self loop")

	err = g.AddEdge(2, 0)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cycle")
}

func TestGraphReverseEdge(t *testing.T) {
	g := NewGraph([]string{"a", "b", "c"})
	require.NoError(t, g.AddEdge(0, 1))

	require.NoError(t, g.ReverseEdge(0, 1))
	assert.False(t, g.HasEdge(0, 1))
	assert.True(t, g.HasEdge(1, 0))

	err := g.ReverseEdge(0, 1)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "does not exist")
}

func TestGraphReverseEdgeRefusesCycle(t *testing.T) {
	g := NewGraph([]string{"a", "b", "c"})
	require.NoError(t, g.AddEdge(0, 1))
	require.NoError(t, g.AddEdge(1, 2))
	require.NoError(t, g.AddEdge(0, 2))

	err := g.ReverseEdge(0, 2)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cycle")
	assert.True(t, g.HasEdge(0, 2), "failed reverse must leave the edge in place")
}

func TestGraphParentsChildren(t *testing.T) {
	g := NewGraph([]string{"a", "b", "c", "d"})
	require.NoError(t, g.AddEdge(0, 2))
	require.NoError(t, g.AddEdge(1, 2))
	require.NoError(t, g.AddEdge(2, 3))

	assert.Equal(t, []int{0, 1}, g.Parents(2))
	assert.Equal(t, []int{3}, g.Children(2))
	assert.Empty(t, g.Parents(0))
	assert.Empty(t, g.Children(3))
}

func TestGraphEdgesSorted(t *testing.T) {
	g := NewGraph([]string{"b", "a", "c"})
	require.NoError(t, g.AddEdge(2, 0))
	require.NoError(t, g.AddEdge(1, 0))
	require.NoError(t, g.AddEdge(1, 2))

	assert.Equal(t, [][2]string{{"a", "b"}, {"a", "c"}, {"c", "b"}}, g.Edges())
}

func TestGraphCopy(t *testing.T) {
	g := NewGraph([]string{"a", "b"})
	require.NoError(t, g.AddEdge(0, 1))

	clone := g.Copy()
	clone.RemoveEdge(0, 1)
	assert.True(t, g.HasEdge(0, 1))
	assert.False(t, clone.HasEdge(0, 1))
}
