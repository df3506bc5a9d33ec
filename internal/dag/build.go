package dag

import (
	"context"
	"fmt"

	"github.com/gantryci/gantry/internal/config"
	"github.com/gantryci/gantry/internal/ctxlog"
)

// Graph is a collection of job nodes and their gate edges, representing
// a DAG. The graph is immutable once Build returns.
type Graph struct {
	Nodes map[string]*Node
}

// NodeID returns the graph ID for a job name.
func NodeID(jobName string) string {
	return "job." + jobName
}

// Build constructs a complete, validated dependency graph from a config
// model. Any shape problem is reported as a *config.ConfigurationError.
func Build(ctx context.Context, model *config.Model) (*Graph, error) {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("Build: Starting graph construction.")
	graph := &Graph{Nodes: make(map[string]*Node)}

	// First pass: create all nodes with resolved environments.
	for _, job := range model.Pipeline.Jobs {
		env := model.Pipeline.Environment(job.Environment)
		if env == nil {
			return nil, &config.ConfigurationError{Reason: fmt.Sprintf(
				"job %q references unknown environment %q", job.Name, job.Environment)}
		}
		id := NodeID(job.Name)
		graph.Nodes[id] = &Node{
			ID:         id,
			Job:        job,
			Env:        env,
			Deps:       make(map[string]*Node),
			Dependents: make(map[string]*Node),
		}
	}
	logger.Debug("Build: Node creation complete.", "node_count", len(graph.Nodes))

	// Second pass: link explicit gate dependencies.
	if err := linkNodes(ctx, graph); err != nil {
		return nil, err
	}
	logger.Debug("Build: Node linking complete.")

	// Third pass: initialize counters.
	for _, node := range graph.Nodes {
		node.SetInitialCounters()
	}

	if err := graph.detectCycles(); err != nil {
		return nil, err
	}
	logger.Debug("Build: Cycle detection passed.")

	return graph, nil
}

// linkNodes establishes dependency links from depends_on declarations.
func linkNodes(ctx context.Context, graph *Graph) error {
	logger := ctxlog.FromContext(ctx)
	for _, node := range graph.Nodes {
		for _, depName := range node.Job.DependsOn {
			depNode, ok := graph.Nodes[NodeID(depName)]
			if !ok {
				return &config.ConfigurationError{Reason: fmt.Sprintf(
					"job %q depends on non-existent job %q", node.Job.Name, depName)}
			}
			if depNode == node {
				return &config.ConfigurationError{Reason: fmt.Sprintf(
					"job %q depends on itself", node.Job.Name)}
			}
			if _, exists := node.Deps[depNode.ID]; !exists {
				logger.Debug("Linking gate dependency.", "from", node.ID, "to", depNode.ID)
				node.Deps[depNode.ID] = depNode
				depNode.Dependents[node.ID] = node
			}
		}
	}
	return nil
}

// detectCycles checks for circular dependencies in the graph using DFS.
func (g *Graph) detectCycles() error {
	visiting := make(map[string]bool)
	visited := make(map[string]bool)

	var visit func(node *Node) error
	visit = func(node *Node) error {
		visiting[node.ID] = true
		for _, dep := range node.Deps {
			if visiting[dep.ID] {
				return &config.ConfigurationError{Reason: fmt.Sprintf(
					"dependency cycle detected involving %q", dep.ID)}
			}
			if !visited[dep.ID] {
				if err := visit(dep); err != nil {
					return err
				}
			}
		}
		delete(visiting, node.ID)
		visited[node.ID] = true
		return nil
	}

	for _, node := range g.Nodes {
		if !visited[node.ID] {
			if err := visit(node); err != nil {
				return err
			}
		}
	}
	return nil
}
