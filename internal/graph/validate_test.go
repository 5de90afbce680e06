package graph_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/kode4food/vellum/internal/assert/helpers"
	"github.com/kode4food/vellum/internal/graph"
	"github.com/kode4food/vellum/pkg/api"
)

func TestValidateGraphAccepts(t *testing.T) {
	g := helpers.LinearGraph(
		helpers.QuestionNode("q1", "name"),
		helpers.ComputeNode("c1", "greeting", `"Hello, " + name`),
	)

	res := graph.ValidateGraph(g)
	assert.True(t, res.Valid)
	assert.Empty(t, res.Errors)
}

func TestValidateGraphStructural(t *testing.T) {
	tests := []struct {
		name          string
		graph         *api.Graph
		errorContains string
	}{
		{
			name: "duplicate_node_ids",
			graph: &api.Graph{
				Nodes: []*api.Node{
					helpers.QuestionNode("q1", "a"),
					helpers.QuestionNode("q1", "b"),
				},
				StartNodeID: "q1",
			},
			errorContains: "Duplicate node id: q1",
		},
		{
			name: "edge_to_missing_target",
			graph: &api.Graph{
				Nodes: []*api.Node{helpers.QuestionNode("q1", "a")},
				Edges: []*api.Edge{
					{ID: "e1", Source: "q1", Target: "ghost"},
				},
				StartNodeID: "q1",
			},
			errorContains: "non-existent target node: ghost",
		},
		{
			name: "edge_from_missing_source",
			graph: &api.Graph{
				Nodes: []*api.Node{helpers.QuestionNode("q1", "a")},
				Edges: []*api.Edge{
					{ID: "e1", Source: "ghost", Target: "q1"},
				},
				StartNodeID: "q1",
			},
			errorContains: "non-existent source node: ghost",
		},
		{
			name: "empty_start_node",
			graph: &api.Graph{
				Nodes: []*api.Node{helpers.QuestionNode("q1", "a")},
			},
			errorContains: "Start node id is empty",
		},
		{
			name: "unresolvable_start_node",
			graph: &api.Graph{
				Nodes:       []*api.Node{helpers.QuestionNode("q1", "a")},
				StartNodeID: "missing",
			},
			errorContains: "unresolvable: missing",
		},
		{
			name: "node_missing_config",
			graph: &api.Graph{
				Nodes: []*api.Node{
					{ID: "q1", Type: api.NodeTypeQuestion},
				},
				StartNodeID: "q1",
			},
			errorContains: "node config missing",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := graph.ValidateGraph(tt.graph)
			assert.False(t, res.Valid)
			found := false
			for _, msg := range res.Errors {
				if strings.Contains(msg, tt.errorContains) {
					found = true
				}
			}
			assert.True(t, found, "expected error containing %q, got %v",
				tt.errorContains, res.Errors)
		})
	}
}

func TestValidateGraphCollectsAll(t *testing.T) {
	g := &api.Graph{
		Nodes: []*api.Node{
			helpers.QuestionNode("q1", "a"),
			helpers.QuestionNode("q1", "b"),
		},
		Edges: []*api.Edge{
			{ID: "e1", Source: "q1", Target: "ghost"},
		},
	}

	res := graph.ValidateGraph(g)
	assert.False(t, res.Valid)
	assert.Len(t, res.Errors, 3)
}

func TestValidateNodeConditions(t *testing.T) {
	t.Run("known_identifiers_pass", func(t *testing.T) {
		g := helpers.LinearGraph(
			helpers.QuestionNode("q1", "income"),
			helpers.ComputeNode("c1", "monthly", "income / 12"),
		)
		res := graph.ValidateNodeConditions(g)
		assert.True(t, res.Valid)
	})

	t.Run("typo_in_expression_flagged", func(t *testing.T) {
		g := helpers.LinearGraph(
			helpers.QuestionNode("q1", "income"),
			helpers.ComputeNode("c1", "monthly", "incme / 12"),
		)
		res := graph.ValidateNodeConditions(g)
		assert.False(t, res.Valid)
		assert.Contains(t, res.Errors[0], "unknown identifier: incme")
	})

	t.Run("typo_in_condition_flagged", func(t *testing.T) {
		q := helpers.QuestionNode("q2", "details")
		q.Question.Condition = api.Predicate(
			api.OpEquals, api.Variable("has_detials"), api.Value(true),
		)
		g := helpers.LinearGraph(
			helpers.QuestionNode("q1", "has_details"), q,
		)
		res := graph.ValidateNodeConditions(g)
		assert.False(t, res.Valid)
		assert.Contains(t, res.Errors[0], "unknown identifier: has_detials")
	})

	t.Run("dotted_path_checks_root", func(t *testing.T) {
		q := helpers.QuestionNode("q2", "state_note")
		q.Question.Condition = api.Predicate(
			api.OpEquals, api.Variable("applicant.state"), api.Value("WA"),
		)
		g := helpers.LinearGraph(
			helpers.QuestionNode("q1", "applicant"), q,
		)
		res := graph.ValidateNodeConditions(g)
		assert.True(t, res.Valid)
	})

	t.Run("template_bindings_checked", func(t *testing.T) {
		g := helpers.LinearGraph(
			helpers.QuestionNode("q1", "name"),
			&api.Node{
				ID:   "t1",
				Type: api.NodeTypeTemplate,
				Template: &api.TemplateConfig{
					TemplateID: "letter",
					Bindings: map[api.Name]string{
						"greeting": `"Dear " + nmae`,
					},
				},
			},
		)
		res := graph.ValidateNodeConditions(g)
		assert.False(t, res.Valid)
		assert.Contains(t, res.Errors[0], "unknown identifier: nmae")
	})
}
