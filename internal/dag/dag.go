// Package dag provides a small directed acyclic graph used to order tables
// and transforms by their declared dependencies.
//
// Ordering is stable: among nodes whose dependencies are satisfied, the one
// added first comes first. Callers therefore get declaration order wherever
// the graph leaves them free to choose.
package dag

import (
	"fmt"
	"slices"
)

// Node represents a node in the DAG.
type Node[T any] struct {
	// ID is the unique identifier
	ID string
	// Data holds the caller's payload
	Data T
}

// Graph is a directed acyclic graph with insertion-ordered nodes.
type Graph[T any] struct {
	nodes   map[string]*Node[T]
	order   []string            // insertion order
	edges   map[string][]string // parent -> children (dependents)
	parents map[string][]string // child -> parents (dependencies)
}

// CycleError is returned when the graph is not acyclic.
type CycleError struct {
	Path []string
}

func (e *CycleError) Error() string {
	return fmt.Sprintf("cycle detected: %v", e.Path)
}

// NewGraph creates a new empty graph.
func NewGraph[T any]() *Graph[T] {
	return &Graph[T]{
		nodes:   make(map[string]*Node[T]),
		edges:   make(map[string][]string),
		parents: make(map[string][]string),
	}
}

// AddNode adds a node, or replaces the data of an existing one without changing its position.
func (g *Graph[T]) AddNode(id string, data T) {
	if n, exists := g.nodes[id]; exists {
		n.Data = data
		return
	}
	g.nodes[id] = &Node[T]{ID: id, Data: data}
	g.order = append(g.order, id)
}

// AddEdge adds a directed edge from parent to child (child depends on parent).
func (g *Graph[T]) AddEdge(parentID, childID string) error {
	if _, exists := g.nodes[parentID]; !exists {
		return fmt.Errorf("parent node %q does not exist", parentID)
	}
	if _, exists := g.nodes[childID]; !exists {
		return fmt.Errorf("child node %q does not exist", childID)
	}
	if parentID == childID {
		return fmt.Errorf("self-loop detected: %s", parentID)
	}

	if !slices.Contains(g.edges[parentID], childID) {
		g.edges[parentID] = append(g.edges[parentID], childID)
	}
	if !slices.Contains(g.parents[childID], parentID) {
		g.parents[childID] = append(g.parents[childID], parentID)
	}
	return nil
}

// Node returns a node by ID.
func (g *Graph[T]) Node(id string) (*Node[T], bool) {
	n, ok := g.nodes[id]
	return n, ok
}

// Parents returns the dependencies of a node in the order they were added.
func (g *Graph[T]) Parents(id string) []string {
	return slices.Clone(g.parents[id])
}

// Children returns the dependents of a node in the order they were added.
func (g *Graph[T]) Children(id string) []string {
	return slices.Clone(g.edges[id])
}

// Nodes returns all nodes in insertion order.
func (g *Graph[T]) Nodes() []*Node[T] {
	out := make([]*Node[T], len(g.order))
	for i, id := range g.order {
		out[i] = g.nodes[id]
	}
	return out
}

// NodeCount returns the number of nodes in the graph.
func (g *Graph[T]) NodeCount() int {
	return len(g.nodes)
}

// EdgeCount returns the number of edges in the graph.
func (g *Graph[T]) EdgeCount() int {
	count := 0
	for _, children := range g.edges {
		count += len(children)
	}
	return count
}

// HasCycle returns true if the graph contains a cycle, along with the cycle path.
func (g *Graph[T]) HasCycle() (bool, []string) {
	visited := make(map[string]bool)
	onStack := make(map[string]bool)
	var stack []string
	var cycle []string

	var dfs func(id string) bool
	dfs = func(id string) bool {
		visited[id] = true
		onStack[id] = true
		stack = append(stack, id)

		for _, child := range g.edges[id] {
			if onStack[child] {
				start := slices.Index(stack, child)
				cycle = append(slices.Clone(stack[start:]), child)
				return true
			}
			if !visited[child] && dfs(child) {
				return true
			}
		}

		onStack[id] = false
		stack = stack[:len(stack)-1]
		return false
	}

	for _, id := range g.order {
		if !visited[id] && dfs(id) {
			return true, cycle
		}
	}
	return false, nil
}

// TopologicalSort returns nodes with dependencies before dependents.
// Ties are broken by insertion order.
func (g *Graph[T]) TopologicalSort() ([]*Node[T], error) {
	if hasCycle, path := g.HasCycle(); hasCycle {
		return nil, &CycleError{Path: path}
	}

	remaining := make(map[string]int, len(g.nodes))
	for _, id := range g.order {
		remaining[id] = len(g.parents[id])
	}

	result := make([]*Node[T], 0, len(g.nodes))
	done := make(map[string]bool, len(g.nodes))
	for len(result) < len(g.order) {
		// Pick the earliest-added node whose dependencies are all placed.
		for _, id := range g.order {
			if done[id] || remaining[id] > 0 {
				continue
			}
			done[id] = true
			result = append(result, g.nodes[id])
			for _, child := range g.edges[id] {
				remaining[child]--
			}
			break
		}
	}
	return result, nil
}

// ExecutionLevels groups node IDs by depth.
// Level 0 holds nodes without dependencies; nodes at level N depend only on
// earlier levels. Each level is in insertion order.
func (g *Graph[T]) ExecutionLevels() ([][]string, error) {
	sorted, err := g.TopologicalSort()
	if err != nil {
		return nil, err
	}

	level := make(map[string]int, len(sorted))
	maxLevel := -1
	for _, n := range sorted {
		l := 0
		for _, p := range g.parents[n.ID] {
			l = max(l, level[p]+1)
		}
		level[n.ID] = l
		maxLevel = max(maxLevel, l)
	}

	levels := make([][]string, maxLevel+1)
	for _, id := range g.order {
		levels[level[id]] = append(levels[level[id]], id)
	}
	return levels, nil
}

// Upstream returns every transitive dependency of id, in topological order.
func (g *Graph[T]) Upstream(id string) []string {
	seen := make(map[string]bool)
	var mark func(string)
	mark = func(n string) {
		for _, p := range g.parents[n] {
			if !seen[p] {
				seen[p] = true
				mark(p)
			}
		}
	}
	mark(id)
	return g.filterOrdered(seen)
}

// Downstream returns every transitive dependent of id, in topological order.
func (g *Graph[T]) Downstream(id string) []string {
	seen := make(map[string]bool)
	var mark func(string)
	mark = func(n string) {
		for _, c := range g.edges[n] {
			if !seen[c] {
				seen[c] = true
				mark(c)
			}
		}
	}
	mark(id)
	return g.filterOrdered(seen)
}

func (g *Graph[T]) filterOrdered(keep map[string]bool) []string {
	sorted, err := g.TopologicalSort()
	if err != nil {
		return nil
	}
	var out []string
	for _, n := range sorted {
		if keep[n.ID] {
			out = append(out, n.ID)
		}
	}
	return out
}
