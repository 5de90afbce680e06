// Package builder provides a fluent, copy-on-write API for constructing
// workflow graphs programmatically. Each method returns a new builder;
// intermediate builders stay valid and reusable.
package builder

import (
	"errors"
	"fmt"
	"strings"

	"github.com/kode4food/vellum/pkg/api"
)

// Graph accumulates nodes and edges toward an api.Graph
type Graph struct {
	start api.NodeID
	nodes []*Node
	edges []*api.Edge
}

var ErrGraphInvalid = errors.New("graph failed validation")

// NewGraph creates an empty graph builder
func NewGraph() *Graph {
	return &Graph{}
}

// StartAt sets the start node. When never called, the first added node
// starts the graph
func (g *Graph) StartAt(id api.NodeID) *Graph {
	res := *g
	res.start = id
	return &res
}

// Add appends nodes to the graph
func (g *Graph) Add(nodes ...*Node) *Graph {
	res := *g
	res.nodes = make([]*Node, len(g.nodes)+len(nodes))
	copy(res.nodes, g.nodes)
	copy(res.nodes[len(g.nodes):], nodes)
	return &res
}

// Connect adds a directed edge between two previously added nodes
func (g *Graph) Connect(source, target api.NodeID) *Graph {
	res := *g
	res.edges = make([]*api.Edge, len(g.edges)+1)
	copy(res.edges, g.edges)
	res.edges[len(g.edges)] = &api.Edge{
		ID:     fmt.Sprintf("e%d", len(g.edges)+1),
		Source: source,
		Target: target,
	}
	return &res
}

// Chain connects the given nodes in sequence
func (g *Graph) Chain(ids ...api.NodeID) *Graph {
	res := g
	for i := 0; i < len(ids)-1; i++ {
		res = res.Connect(ids[i], ids[i+1])
	}
	return res
}

// Build assembles and validates the graph. Structural problems are
// collected into one error
func (g *Graph) Build() (*api.Graph, error) {
	out := &api.Graph{
		Nodes:       make([]*api.Node, len(g.nodes)),
		Edges:       g.edges,
		StartNodeID: g.start,
	}
	for i, n := range g.nodes {
		out.Nodes[i] = n.node
	}
	if out.StartNodeID == "" && len(out.Nodes) > 0 {
		out.StartNodeID = out.Nodes[0].ID
	}

	var problems []string
	seen := map[api.NodeID]bool{}
	for _, n := range out.Nodes {
		if seen[n.ID] {
			problems = append(problems,
				fmt.Sprintf("duplicate node id: %s", n.ID))
		}
		seen[n.ID] = true
		if err := n.Validate(); err != nil {
			problems = append(problems, err.Error())
		}
	}
	for _, e := range out.Edges {
		if !seen[e.Source] {
			problems = append(problems,
				fmt.Sprintf("edge %s source missing: %s", e.ID, e.Source))
		}
		if !seen[e.Target] {
			problems = append(problems,
				fmt.Sprintf("edge %s target missing: %s", e.ID, e.Target))
		}
	}

	if len(problems) > 0 {
		return nil, fmt.Errorf(
			"%w: %s", ErrGraphInvalid, strings.Join(problems, "; "),
		)
	}
	return out, nil
}
