// Package dag provides the dependency graph between the sheets of an
// extraction format. It supports cycle detection, ordering checks and
// upstream closure.
package dag

import (
	"fmt"
	"slices"
	"strings"
)

// CycleError is returned when the sheets of a format depend on each other.
type CycleError struct {
	Path []string
}

func (e *CycleError) Error() string {
	return fmt.Sprintf("cycle detected: %s", strings.Join(e.Path, " -> "))
}

// Graph is a directed graph of sheets. Edges point from a sheet to the
// sheets reading its table. Nodes keep their insertion order, which is the
// declared production order.
type Graph struct {
	order   []string
	index   map[string]int
	edges   map[string][]string // parent -> children (readers)
	parents map[string][]string // child -> parents (sources)
}

// NewGraph creates a new empty graph.
func NewGraph() *Graph {
	return &Graph{
		index:   make(map[string]int),
		edges:   make(map[string][]string),
		parents: make(map[string][]string),
	}
}

// AddNode adds a sheet. Adding a sheet twice is a no-op.
func (g *Graph) AddNode(id string) {
	if _, exists := g.index[id]; exists {
		return
	}
	g.index[id] = len(g.order)
	g.order = append(g.order, id)
}

// Has reports whether the sheet is in the graph.
func (g *Graph) Has(id string) bool {
	_, ok := g.index[id]
	return ok
}

// AddEdge records that child reads the table of parent.
func (g *Graph) AddEdge(parentID, childID string) error {
	if !g.Has(parentID) {
		return fmt.Errorf("sheet %q does not exist", parentID)
	}
	if !g.Has(childID) {
		return fmt.Errorf("sheet %q does not exist", childID)
	}
	if parentID == childID {
		return fmt.Errorf("sheet %s reads its own table", parentID)
	}

	if !slices.Contains(g.edges[parentID], childID) {
		g.edges[parentID] = append(g.edges[parentID], childID)
	}
	if !slices.Contains(g.parents[childID], parentID) {
		g.parents[childID] = append(g.parents[childID], parentID)
	}
	return nil
}

// Nodes returns the sheets in insertion order.
func (g *Graph) Nodes() []string {
	return slices.Clone(g.order)
}

// Parents returns the sheets a sheet reads from.
func (g *Graph) Parents(id string) []string {
	return slices.Clone(g.parents[id])
}

// Children returns the sheets reading a sheet.
func (g *Graph) Children(id string) []string {
	return slices.Clone(g.edges[id])
}

// EdgeCount returns the number of edges in the graph.
func (g *Graph) EdgeCount() int {
	count := 0
	for _, children := range g.edges {
		count += len(children)
	}
	return count
}

// FindCycle returns a cycle path, or nil when the graph is acyclic.
func (g *Graph) FindCycle() []string {
	visited := make(map[string]bool)
	onStack := make(map[string]bool)
	from := make(map[string]string)

	var cycle []string
	var dfs func(id string) bool
	dfs = func(id string) bool {
		visited[id] = true
		onStack[id] = true
		for _, child := range g.edges[id] {
			if !visited[child] {
				from[child] = id
				if dfs(child) {
					return true
				}
			} else if onStack[child] {
				cycle = []string{child}
				for cur := id; cur != child; cur = from[cur] {
					cycle = append([]string{cur}, cycle...)
				}
				cycle = append([]string{child}, cycle...)
				return true
			}
		}
		onStack[id] = false
		return false
	}

	for _, id := range g.order {
		if !visited[id] && dfs(id) {
			return cycle
		}
	}
	return nil
}

// CheckOrder verifies that every sheet comes after the sheets it reads, so
// producing sheets in insertion order is valid.
func (g *Graph) CheckOrder() error {
	if cycle := g.FindCycle(); cycle != nil {
		return &CycleError{Path: cycle}
	}
	for _, id := range g.order {
		for _, parent := range g.parents[id] {
			if g.index[parent] > g.index[id] {
				return fmt.Errorf("sheet %s reads %s which is produced after it", id, parent)
			}
		}
	}
	return nil
}

// Upstream returns the given sheets and every sheet they transitively read,
// in insertion order.
func (g *Graph) Upstream(ids ...string) []string {
	need := make(map[string]bool)
	var mark func(id string)
	mark = func(id string) {
		if need[id] {
			return
		}
		need[id] = true
		for _, parent := range g.parents[id] {
			mark(parent)
		}
	}
	for _, id := range ids {
		if g.Has(id) {
			mark(id)
		}
	}

	result := make([]string, 0, len(need))
	for _, id := range g.order {
		if need[id] {
			result = append(result, id)
		}
	}
	return result
}
