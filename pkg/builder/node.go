package builder

import (
	"slices"

	"github.com/kode4food/vellum/pkg/api"
)

// Node wraps one graph node under construction
type Node struct {
	node *api.Node
}

// Question creates a question node binding the answer under key
func Question(id api.NodeID, key api.Name) *Node {
	return &Node{node: &api.Node{
		ID:       id,
		Type:     api.NodeTypeQuestion,
		Question: &api.QuestionConfig{Key: key},
	}}
}

// Compute creates a compute node evaluating expr into key
func Compute(id api.NodeID, key api.Name, expr string) *Node {
	return &Node{node: &api.Node{
		ID:   id,
		Type: api.NodeTypeCompute,
		Compute: &api.ComputeConfig{
			OutputKey:  key,
			Expression: expr,
		},
	}}
}

// Branch creates a branch node; add cases with Case
func Branch(id api.NodeID) *Node {
	return &Node{node: &api.Node{
		ID:     id,
		Type:   api.NodeTypeBranch,
		Branch: &api.BranchConfig{},
	}}
}

// Template creates a template node; add bindings with Bind
func Template(id api.NodeID, templateID string) *Node {
	return &Node{node: &api.Node{
		ID:   id,
		Type: api.NodeTypeTemplate,
		Template: &api.TemplateConfig{
			TemplateID: templateID,
			Bindings:   map[api.Name]string{},
		},
	}}
}

// Script creates a script node running code in the given language
func Script(id api.NodeID, key api.Name, language, code string) *Node {
	return &Node{node: &api.Node{
		ID:   id,
		Type: api.NodeTypeScript,
		Script: &api.ScriptConfig{
			OutputKey: key,
			Language:  language,
			Code:      code,
		},
	}}
}

// Write creates a table write node; add values with Map
func Write(id api.NodeID, tableID string, mode api.WriteMode) *Node {
	return &Node{node: &api.Node{
		ID:   id,
		Type: api.NodeTypeWrite,
		Write: &api.WriteConfig{
			TableID: tableID,
			Mode:    mode,
		},
	}}
}

// Query creates a table query node binding the result list under key
func Query(id api.NodeID, tableID string, key api.Name) *Node {
	return &Node{node: &api.Node{
		ID:   id,
		Type: api.NodeTypeQuery,
		Query: &api.QueryConfig{
			TableID:   tableID,
			OutputKey: key,
		},
	}}
}

// When gates a question or compute node on a condition
func (n *Node) When(cond *api.Condition) *Node {
	res := n.clone()
	switch res.node.Type {
	case api.NodeTypeQuestion:
		res.node.Question.Condition = cond
	case api.NodeTypeCompute:
		res.node.Compute.Condition = cond
	}
	return res
}

// Case adds a branch case redirecting to target when cond holds
func (n *Node) Case(cond *api.Condition, target api.NodeID) *Node {
	res := n.clone()
	res.node.Branch.Branches = append(
		slices.Clone(n.node.Branch.Branches),
		&api.BranchCase{Condition: cond, Target: target},
	)
	return res
}

// Bind adds a template binding from a placeholder name to an expression
func (n *Node) Bind(name api.Name, expr string) *Node {
	res := n.clone()
	bindings := make(map[api.Name]string, len(n.node.Template.Bindings)+1)
	for k, v := range n.node.Template.Bindings {
		bindings[k] = v
	}
	bindings[name] = expr
	res.node.Template.Bindings = bindings
	return res
}

// WithInputs whitelists the variables exposed to a script node
func (n *Node) WithInputs(keys ...string) *Node {
	res := n.clone()
	res.node.Script.InputKeys = slices.Clone(keys)
	return res
}

// WithTimeout bounds a script node's execution in milliseconds
func (n *Node) WithTimeout(ms int64) *Node {
	res := n.clone()
	res.node.Script.TimeoutMs = ms
	return res
}

// WithConsole enables console capture for a script node
func (n *Node) WithConsole() *Node {
	res := n.clone()
	res.node.Script.ConsoleEnabled = true
	return res
}

// Map adds a column value (literal or {{path}} template) to a write node
func (n *Node) Map(columnID string, value any) *Node {
	res := n.clone()
	res.node.Write.ColumnMappings = append(
		slices.Clone(n.node.Write.ColumnMappings),
		api.ColumnMapping{ColumnID: columnID, Value: value},
	)
	return res
}

// WithPrimaryKey sets the update target of a write node
func (n *Node) WithPrimaryKey(columnID string, value any) *Node {
	res := n.clone()
	res.node.Write.PrimaryKeyColumnID = columnID
	res.node.Write.PrimaryKeyValue = value
	return res
}

// WithOutput binds a write node's row id under key
func (n *Node) WithOutput(key api.Name) *Node {
	res := n.clone()
	res.node.Write.OutputKey = key
	return res
}

// Filter restricts a query node by a column comparison
func (n *Node) Filter(
	columnID string, op api.FilterOperator, value any,
) *Node {
	res := n.clone()
	res.node.Query.Filters = append(
		slices.Clone(n.node.Query.Filters),
		api.QueryFilter{ColumnID: columnID, Operator: op, Value: value},
	)
	return res
}

// SortBy orders a query node's results by a column
func (n *Node) SortBy(columnID string, descending bool) *Node {
	res := n.clone()
	res.node.Query.Sort = &api.QuerySort{
		ColumnID:   columnID,
		Descending: descending,
	}
	return res
}

// WithLimit caps a query node's result count
func (n *Node) WithLimit(limit int) *Node {
	res := n.clone()
	res.node.Query.Limit = limit
	return res
}

// ID returns the node's identifier for wiring edges
func (n *Node) ID() api.NodeID {
	return n.node.ID
}

// clone copies the node and its populated config so that derived builders
// never mutate their parents
func (n *Node) clone() *Node {
	node := *n.node
	switch node.Type {
	case api.NodeTypeQuestion:
		cfg := *n.node.Question
		node.Question = &cfg
	case api.NodeTypeCompute:
		cfg := *n.node.Compute
		node.Compute = &cfg
	case api.NodeTypeBranch:
		cfg := *n.node.Branch
		node.Branch = &cfg
	case api.NodeTypeTemplate:
		cfg := *n.node.Template
		node.Template = &cfg
	case api.NodeTypeScript:
		cfg := *n.node.Script
		node.Script = &cfg
	case api.NodeTypeWrite:
		cfg := *n.node.Write
		node.Write = &cfg
	case api.NodeTypeQuery:
		cfg := *n.node.Query
		node.Query = &cfg
	}
	return &Node{node: &node}
}
