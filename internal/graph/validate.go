package graph

import (
	"fmt"
	"strings"

	"github.com/kode4food/vellum/internal/eval"
	"github.com/kode4food/vellum/pkg/api"
	"github.com/kode4food/vellum/pkg/util"
)

// ValidateGraph performs structural-only checks on a graph definition:
// duplicate node ids, edges referencing non-existent nodes, and an
// unresolvable start node. All problems are collected
func ValidateGraph(g *api.Graph) *api.ValidationResult {
	res := api.NewValidationResult()

	seen := util.Set[api.NodeID]{}
	for _, node := range g.Nodes {
		if seen.Contains(node.ID) {
			res.AddError(fmt.Sprintf("Duplicate node id: %s", node.ID))
			continue
		}
		seen.Add(node.ID)

		if err := node.Validate(); err != nil {
			res.AddError(fmt.Sprintf("Node %s: %s", node.ID, err))
		}
	}

	for _, edge := range g.Edges {
		if !seen.Contains(edge.Source) {
			res.AddError(fmt.Sprintf(
				"Edge %s references non-existent source node: %s",
				edge.ID, edge.Source,
			))
		}
		if !seen.Contains(edge.Target) {
			res.AddError(fmt.Sprintf(
				"Edge %s references non-existent target node: %s",
				edge.ID, edge.Target,
			))
		}
	}

	if g.StartNodeID == "" {
		res.AddError("Start node id is empty")
	} else if !seen.Contains(g.StartNodeID) {
		res.AddError(fmt.Sprintf(
			"Start node id is unresolvable: %s", g.StartNodeID,
		))
	}

	return res
}

// ValidateNodeConditions checks every expression-bearing field of the
// graph against the set of output keys declared anywhere in it, reporting
// each unmatched identifier by name. This is a typo-detection heuristic,
// not a dataflow proof: it does not establish that the producing node
// executes before the consumer along any path. Strengthening it would
// change accepted/rejected status for existing graphs
func ValidateNodeConditions(g *api.Graph) *api.ValidationResult {
	res := api.NewValidationResult()
	produced := producedKeys(g)

	for _, node := range g.Nodes {
		checkNodeConditions(node, produced, res)
	}

	return res
}

func producedKeys(g *api.Graph) util.Set[string] {
	keys := util.Set[string]{}
	for _, node := range g.Nodes {
		keys = keys.Union(nodeKeySet(node))
	}
	return keys
}

func nodeKeySet(node *api.Node) util.Set[string] {
	keys := util.Set[string]{}
	for _, key := range node.OutputKeys() {
		keys.Add(string(key))
	}
	return keys
}

func checkNodeConditions(
	node *api.Node, produced util.Set[string], res *api.ValidationResult,
) {
	switch node.Type {
	case api.NodeTypeQuestion:
		checkCondition(node, node.Question.Condition, produced, res)

	case api.NodeTypeCompute:
		checkCondition(node, node.Compute.Condition, produced, res)
		checkExpression(node, node.Compute.Expression, produced, res)

	case api.NodeTypeBranch:
		for _, branch := range node.Branch.Branches {
			checkCondition(node, branch.Condition, produced, res)
		}

	case api.NodeTypeTemplate:
		for _, binding := range node.Template.Bindings {
			checkExpression(node, binding, produced, res)
		}
	}
}

func checkCondition(
	node *api.Node, cond *api.Condition, produced util.Set[string],
	res *api.ValidationResult,
) {
	if cond == nil {
		return
	}
	for _, path := range conditionPaths(cond) {
		root := pathRoot(path)
		if !produced.Contains(root) {
			res.AddError(fmt.Sprintf(
				"Node %s condition references unknown identifier: %s",
				node.ID, root,
			))
		}
	}
}

func checkExpression(
	node *api.Node, src string, produced util.Set[string],
	res *api.ValidationResult,
) {
	idents, err := eval.ExtractIdentifiers(src)
	if err != nil {
		res.AddError(fmt.Sprintf("Node %s expression: %s", node.ID, err))
		return
	}
	for _, name := range idents {
		if !produced.Contains(name) {
			res.AddError(fmt.Sprintf(
				"Node %s expression references unknown identifier: %s",
				node.ID, name,
			))
		}
	}
}

// conditionPaths collects every variable operand path in a condition tree
func conditionPaths(cond *api.Condition) []string {
	var paths []string
	collectPaths(cond, &paths)
	return paths
}

func collectPaths(cond *api.Condition, paths *[]string) {
	if cond == nil {
		return
	}
	for _, child := range cond.And {
		collectPaths(child, paths)
	}
	for _, child := range cond.Or {
		collectPaths(child, paths)
	}
	collectPaths(cond.Not, paths)

	for _, operand := range []*api.Operand{cond.Left, cond.Right} {
		if operand != nil && operand.Type == api.OperandVariable {
			*paths = append(*paths, operand.Path)
		}
	}
}

func pathRoot(path string) string {
	if i := strings.IndexByte(path, '.'); i >= 0 {
		return path[:i]
	}
	return path
}
