package api

import (
	"errors"
	"fmt"

	"github.com/kode4food/vellum/pkg/util"
)

type (
	// NodeType identifies the kind of work a graph node performs
	NodeType string

	// NodeID uniquely identifies a node within a graph
	NodeID string

	// Name is a string identifier for variables and output keys
	Name string

	// Graph is a directed workflow definition produced by the builder
	Graph struct {
		Nodes       []*Node `json:"nodes"`
		Edges       []*Edge `json:"edges"`
		StartNodeID NodeID  `json:"start_node_id"`
	}

	// Node is one unit of work in a workflow graph. Exactly one of the
	// typed configs is populated, matching the node's Type
	Node struct {
		Question *QuestionConfig `json:"question,omitempty"`
		Compute  *ComputeConfig  `json:"compute,omitempty"`
		Branch   *BranchConfig   `json:"branch,omitempty"`
		Template *TemplateConfig `json:"template,omitempty"`
		Script   *ScriptConfig   `json:"script,omitempty"`
		Write    *WriteConfig    `json:"write,omitempty"`
		Query    *QueryConfig    `json:"query,omitempty"`
		ID       NodeID          `json:"id"`
		Type     NodeType        `json:"type"`
	}

	// Edge connects a source node to a target node
	Edge struct {
		ID     string `json:"id"`
		Source NodeID `json:"source"`
		Target NodeID `json:"target"`
	}

	// QuestionConfig captures an answer from the run's input under Key,
	// optionally gated by Condition
	QuestionConfig struct {
		Condition *Condition `json:"condition,omitempty"`
		Key       Name       `json:"key"`
	}

	// ComputeConfig evaluates Expression against the run's variables and
	// stores the result under OutputKey, optionally gated by Condition
	ComputeConfig struct {
		Condition  *Condition `json:"condition,omitempty"`
		OutputKey  Name       `json:"output_key"`
		Expression string     `json:"expression"`
	}

	// BranchConfig redirects traversal to the first case whose condition
	// holds; no match falls through to the node's straight-line edge
	BranchConfig struct {
		Branches []*BranchCase `json:"branches"`
	}

	// BranchCase pairs a condition with the node to jump to when it holds
	BranchCase struct {
		Condition *Condition `json:"condition"`
		Target    NodeID     `json:"target"`
	}

	// TemplateConfig binds resolved expressions to document placeholders.
	// The engine resolves Bindings; rendering is an external concern
	TemplateConfig struct {
		Bindings   map[Name]string `json:"bindings"`
		TemplateID string          `json:"template_id"`
	}

	// ScriptConfig runs caller-authored code in the sandbox and stores the
	// emitted value under OutputKey
	ScriptConfig struct {
		OutputKey      Name     `json:"output_key"`
		Language       string   `json:"language"`
		Code           string   `json:"code"`
		InputKeys      []string `json:"input_keys,omitempty"`
		TimeoutMs      int64    `json:"timeout_ms,omitempty"`
		ConsoleEnabled bool     `json:"console_enabled,omitempty"`
	}
)

const (
	NodeTypeQuestion NodeType = "question"
	NodeTypeCompute  NodeType = "compute"
	NodeTypeBranch   NodeType = "branch"
	NodeTypeTemplate NodeType = "template"
	NodeTypeScript   NodeType = "script"
	NodeTypeWrite    NodeType = "write"
	NodeTypeQuery    NodeType = "query"
)

var (
	ErrNodeIDEmpty     = errors.New("node ID empty")
	ErrInvalidNodeType = errors.New("invalid node type")
	ErrNodeConfigNil   = errors.New("node config missing for type")
)

var validNodeTypes = util.SetOf(
	NodeTypeQuestion,
	NodeTypeCompute,
	NodeTypeBranch,
	NodeTypeTemplate,
	NodeTypeScript,
	NodeTypeWrite,
	NodeTypeQuery,
)

// Validate performs basic per-node checks: a non-empty ID, a recognized
// type, and a populated config matching that type
func (n *Node) Validate() error {
	if n.ID == "" {
		return ErrNodeIDEmpty
	}
	if !validNodeTypes.Contains(n.Type) {
		return fmt.Errorf("%w: %s", ErrInvalidNodeType, n.Type)
	}
	if !n.hasConfig() {
		return fmt.Errorf("%w: %s", ErrNodeConfigNil, n.Type)
	}
	return nil
}

// OutputKeys returns the variable names this node declares as outputs
func (n *Node) OutputKeys() []Name {
	switch n.Type {
	case NodeTypeQuestion:
		if n.Question != nil && n.Question.Key != "" {
			return []Name{n.Question.Key}
		}
	case NodeTypeCompute:
		if n.Compute != nil && n.Compute.OutputKey != "" {
			return []Name{n.Compute.OutputKey}
		}
	case NodeTypeScript:
		if n.Script != nil && n.Script.OutputKey != "" {
			return []Name{n.Script.OutputKey}
		}
	case NodeTypeWrite:
		if n.Write != nil && n.Write.OutputKey != "" {
			return []Name{n.Write.OutputKey}
		}
	case NodeTypeQuery:
		if n.Query != nil && n.Query.OutputKey != "" {
			return []Name{n.Query.OutputKey}
		}
	}
	return nil
}

func (n *Node) hasConfig() bool {
	switch n.Type {
	case NodeTypeQuestion:
		return n.Question != nil
	case NodeTypeCompute:
		return n.Compute != nil
	case NodeTypeBranch:
		return n.Branch != nil
	case NodeTypeTemplate:
		return n.Template != nil
	case NodeTypeScript:
		return n.Script != nil
	case NodeTypeWrite:
		return n.Write != nil
	case NodeTypeQuery:
		return n.Query != nil
	default:
		return false
	}
}

// FindNode returns the node with the given ID, or nil when absent
func (g *Graph) FindNode(id NodeID) *Node {
	for _, n := range g.Nodes {
		if n.ID == id {
			return n
		}
	}
	return nil
}

// EdgesFrom returns the edges whose source is the given node, in
// definition order
func (g *Graph) EdgesFrom(id NodeID) []*Edge {
	var out []*Edge
	for _, e := range g.Edges {
		if e.Source == id {
			out = append(out, e)
		}
	}
	return out
}
