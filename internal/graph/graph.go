// Package graph builds and analyzes the dependency DAG described by a
// workflow's REQUIRES edges (§4.1). Ordering throughout is deterministic
// and derived from the workflow's declaration order, not name order: two
// runs over the same document always produce the same generations.
package graph

import (
	"fmt"

	"github.com/aidanmoss/forgeflow/internal/config"
	workflowerrors "github.com/aidanmoss/forgeflow/pkg/errors"
)

// Node is a single vertex: a workflow step plus its resolved edges.
type Node struct {
	Name       string
	Step       *config.StepDef
	DependsOn  []string
	Dependents []string
}

// Graph is the full or subgraph DAG over a workflow's steps. Order is the
// declaration order of the steps it contains, used to break every tie in
// topological processing.
type Graph struct {
	order []string
	nodes map[string]*Node
}

// Build constructs the full dependency graph from a workflow, validating
// that every REQUIRES name refers to a declared step.
func Build(workflow *config.WorkflowDef) (*Graph, error) {
	g := &Graph{nodes: make(map[string]*Node, workflow.Len())}

	for _, name := range workflow.Names() {
		step, _ := workflow.Get(name)
		g.order = append(g.order, name)
		g.nodes[name] = &Node{Name: name, Step: step}
	}

	for _, name := range g.order {
		node := g.nodes[name]
		for _, dep := range node.Step.Requires {
			depNode, ok := g.nodes[dep]
			if !ok {
				return nil, workflowerrors.NewConfigError(name, fmt.Sprintf("requires unknown step %q", dep), nil)
			}
			node.DependsOn = append(node.DependsOn, dep)
			depNode.Dependents = append(depNode.Dependents, name)
		}
	}

	return g, nil
}

// Node returns the node for name, if present.
func (g *Graph) Node(name string) (*Node, bool) {
	n, ok := g.nodes[name]
	return n, ok
}

// Names returns all node names in declaration order.
func (g *Graph) Names() []string {
	return g.order
}

// Len reports the number of nodes in the graph.
func (g *Graph) Len() int {
	return len(g.order)
}

// ExecutionSubgraph returns the subgraph containing finalStep and all its
// transitive ancestors, or the full graph when finalStep is empty (§4.1).
func ExecutionSubgraph(full *Graph, finalStep string) (*Graph, error) {
	if finalStep == "" {
		return full, nil
	}
	if _, ok := full.nodes[finalStep]; !ok {
		return nil, workflowerrors.NewConfigError(finalStep, fmt.Sprintf("unknown final step %q", finalStep), nil)
	}

	keep := make(map[string]bool)
	var visit func(name string)
	visit = func(name string) {
		if keep[name] {
			return
		}
		keep[name] = true
		node := full.nodes[name]
		for _, dep := range node.DependsOn {
			visit(dep)
		}
	}
	visit(finalStep)

	sub := &Graph{nodes: make(map[string]*Node, len(keep))}
	for _, name := range full.order {
		if !keep[name] {
			continue
		}
		sub.order = append(sub.order, name)
	}
	for _, name := range sub.order {
		orig := full.nodes[name]
		node := &Node{Name: name, Step: orig.Step}
		for _, dep := range orig.DependsOn {
			node.DependsOn = append(node.DependsOn, dep)
		}
		for _, dep := range orig.Dependents {
			if keep[dep] {
				node.Dependents = append(node.Dependents, dep)
			}
		}
		sub.nodes[name] = node
	}

	return sub, nil
}

// TopologicalGenerations runs Kahn's algorithm over the graph, returning
// its layers: generation 0 holds every node with no dependencies,
// generation N+1 holds nodes whose dependencies are all satisfied by
// generations 0..N. Within a generation, nodes are ordered by their
// position in the workflow's declaration (§4.1), not alphabetically, so
// two runs over the same document always schedule identically.
func TopologicalGenerations(g *Graph) ([][]string, error) {
	indegree := make(map[string]int, len(g.order))
	for _, name := range g.order {
		indegree[name] = len(g.nodes[name].DependsOn)
	}

	position := make(map[string]int, len(g.order))
	for i, name := range g.order {
		position[name] = i
	}
	byDeclaration := func(names []string) []string {
		out := append([]string(nil), names...)
		for i := 1; i < len(out); i++ {
			for j := i; j > 0 && position[out[j-1]] > position[out[j]]; j-- {
				out[j-1], out[j] = out[j], out[j-1]
			}
		}
		return out
	}

	var frontier []string
	for _, name := range g.order {
		if indegree[name] == 0 {
			frontier = append(frontier, name)
		}
	}
	frontier = byDeclaration(frontier)

	var generations [][]string
	processed := 0
	for len(frontier) > 0 {
		generations = append(generations, frontier)
		processed += len(frontier)

		var next []string
		for _, name := range frontier {
			for _, dependent := range g.nodes[name].Dependents {
				indegree[dependent]--
				if indegree[dependent] == 0 {
					next = append(next, dependent)
				}
			}
		}
		frontier = byDeclaration(next)
	}

	if processed != len(g.order) {
		return nil, workflowerrors.NewConfigError("", "dependency cycle detected in workflow", nil)
	}

	return generations, nil
}

// TopologicalOrder flattens TopologicalGenerations into a single ordering.
func TopologicalOrder(g *Graph) ([]string, error) {
	generations, err := TopologicalGenerations(g)
	if err != nil {
		return nil, err
	}
	var order []string
	for _, gen := range generations {
		order = append(order, gen...)
	}
	return order, nil
}
