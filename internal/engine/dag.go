package engine

import (
	"fmt"
	"sort"

	"github.com/esxistate/esxistate/internal/config"
	esxierrors "github.com/esxistate/esxistate/pkg/errors"
)

// Node is one step in the dependency graph. Edges are kept as IDs; the
// graph owns the only authoritative step index.
type Node struct {
	ID   string
	Step *config.Step

	dependents []string
	indegree   int
}

// Graph is the step dependency graph. After TopologicalSort, Levels holds
// the execution waves: every step in a level depends only on steps in
// earlier levels, so a level can run concurrently.
type Graph struct {
	Nodes  map[string]*Node
	Levels [][]string
}

// NewGraph creates an empty graph.
func NewGraph() *Graph {
	return &Graph{Nodes: make(map[string]*Node)}
}

// AddNode inserts a step as a vertex in the graph.
func (g *Graph) AddNode(step *config.Step) (*Node, error) {
	if step == nil {
		return nil, fmt.Errorf("step cannot be nil")
	}
	if _, exists := g.Nodes[step.ID]; exists {
		return nil, esxierrors.NewValidationError("steps", fmt.Sprintf("duplicate step id %q", step.ID), nil)
	}

	node := &Node{ID: step.ID, Step: step}
	g.Nodes[step.ID] = node
	return node, nil
}

// AddEdge records that `to` cannot run before `from`.
func (g *Graph) AddEdge(from, to string) error {
	source, ok := g.Nodes[from]
	if !ok {
		return esxierrors.NewValidationError("steps", fmt.Sprintf("unknown dependency %q", from), nil)
	}
	target, ok := g.Nodes[to]
	if !ok {
		return esxierrors.NewValidationError("steps", fmt.Sprintf("unknown dependency target %q", to), nil)
	}

	source.dependents = append(source.dependents, target.ID)
	target.indegree++
	return nil
}

// TopologicalSort groups the steps into execution levels, peeling off the
// steps whose remaining dependencies have all been placed. IDs inside a
// level are sorted so plans render the same way run to run.
func (g *Graph) TopologicalSort() error {
	remaining := make(map[string]int, len(g.Nodes))
	for id, node := range g.Nodes {
		remaining[id] = node.indegree
	}

	wave := make([]string, 0, len(g.Nodes))
	for id, n := range remaining {
		if n == 0 {
			wave = append(wave, id)
		}
	}

	var levels [][]string
	placed := 0
	for len(wave) > 0 {
		sort.Strings(wave)
		levels = append(levels, wave)
		placed += len(wave)

		var next []string
		for _, id := range wave {
			for _, dependent := range g.Nodes[id].dependents {
				remaining[dependent]--
				if remaining[dependent] == 0 {
					next = append(next, dependent)
				}
			}
		}
		wave = next
	}

	if placed != len(g.Nodes) {
		return esxierrors.NewValidationError("steps", "cycle detected while sorting graph", nil)
	}

	g.Levels = levels
	return nil
}
