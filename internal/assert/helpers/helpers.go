package helpers

import (
	"fmt"

	"github.com/kode4food/vellum/internal/config"
	"github.com/kode4food/vellum/internal/runner"
	"github.com/kode4food/vellum/pkg/api"
)

// NewTestConfig creates a configuration suitable for tests
func NewTestConfig() *config.Config {
	cfg := config.NewDefaultConfig()
	cfg.AnswerStore.Prefix = "vellum-test"
	return cfg
}

// NewRunInput creates a run input with fixed test identity
func NewRunInput(inputs map[api.NodeID]any) *runner.RunInput {
	return &runner.RunInput{
		WorkflowID: "test-workflow",
		RunID:      "test-run",
		TenantID:   "test-tenant",
		Inputs:     inputs,
	}
}

// QuestionNode creates a question node binding the answer under key
func QuestionNode(id api.NodeID, key api.Name) *api.Node {
	return &api.Node{
		ID:       id,
		Type:     api.NodeTypeQuestion,
		Question: &api.QuestionConfig{Key: key},
	}
}

// ComputeNode creates a compute node evaluating expr into key
func ComputeNode(id api.NodeID, key api.Name, expr string) *api.Node {
	return &api.Node{
		ID:   id,
		Type: api.NodeTypeCompute,
		Compute: &api.ComputeConfig{
			OutputKey:  key,
			Expression: expr,
		},
	}
}

// LinearGraph chains the given nodes with straight-line edges, starting
// from the first node
func LinearGraph(nodes ...*api.Node) *api.Graph {
	g := &api.Graph{Nodes: nodes}
	if len(nodes) > 0 {
		g.StartNodeID = nodes[0].ID
	}
	for i := 0; i < len(nodes)-1; i++ {
		g.Edges = append(g.Edges, &api.Edge{
			ID:     fmt.Sprintf("e%d", i),
			Source: nodes[i].ID,
			Target: nodes[i+1].ID,
		})
	}
	return g
}
