package runner

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/kode4food/vellum/internal/eval"
	"github.com/kode4food/vellum/internal/graph"
	"github.com/kode4food/vellum/internal/script"
	"github.com/kode4food/vellum/internal/table"
	"github.com/kode4food/vellum/pkg/api"
	"github.com/kode4food/vellum/pkg/log"
)

type (
	// Runner executes validated workflow graphs. It is safe for use by
	// concurrent runs: all mutable state lives in the per-run state
	Runner struct {
		eval     *eval.Evaluator
		scripts  *script.Engine
		tables   *table.Runner
		docs     DocumentSink
		handlers map[api.NodeType]nodeHandler
	}

	// DocumentSink receives a template node's resolved binding map. The
	// runner resolves bindings; rendering to file formats is external
	DocumentSink interface {
		RenderTemplate(ctx context.Context, bound *api.BoundTemplate) error
	}

	// RunInput carries the caller-supplied answers and identity of a run
	RunInput struct {
		Inputs     map[api.NodeID]any
		WorkflowID string
		RunID      string
		TenantID   string
		Preview    bool
	}

	// Option configures a Runner
	Option func(*Runner)

	// RunOption configures one run invocation
	RunOption func(*runState)

	// runState is the arena for one run: vars, trace, lineage, and logs
	// are allocated fresh per invocation and returned at completion
	runState struct {
		vars     api.Vars
		lineage  api.VariableLineage
		input    *RunInput
		trace    []*api.StepTrace
		logs     []string
		executed int
		debug    bool
	}

	nodeHandler func(
		ctx context.Context, rs *runState, node *api.Node,
	) (*stepOutcome, error)

	// stepOutcome is the result of one node handler
	stepOutcome struct {
		condResult    *bool
		delta         api.Vars
		next          api.NodeID
		source        api.LineageSource
		skippedReason string
		skipped       bool
	}
)

var (
	ErrGraphInvalid     = errors.New("graph failed validation")
	ErrNodeNotFound     = errors.New("node not found")
	ErrTraversalRunaway = errors.New("graph traversal exceeded node count")
	ErrScriptNode       = errors.New("script node failed")
	ErrWriteNode        = errors.New("write node failed")
)

// NewRunner creates a graph runner over the given collaborators
func NewRunner(
	e *eval.Evaluator, scripts *script.Engine, tables *table.Runner,
	opts ...Option,
) *Runner {
	r := &Runner{
		eval:    e,
		scripts: scripts,
		tables:  tables,
	}
	for _, opt := range opts {
		opt(r)
	}

	// Closed dispatch table: adding a node type adds one entry here
	r.handlers = map[api.NodeType]nodeHandler{
		api.NodeTypeQuestion: r.runQuestion,
		api.NodeTypeCompute:  r.runCompute,
		api.NodeTypeBranch:   r.runBranch,
		api.NodeTypeTemplate: r.runTemplate,
		api.NodeTypeScript:   r.runScript,
		api.NodeTypeWrite:    r.runWrite,
		api.NodeTypeQuery:    r.runQuery,
	}
	return r
}

// WithDocumentSink attaches the external document-rendering collaborator
func WithDocumentSink(sink DocumentSink) Option {
	return func(r *Runner) {
		r.docs = sink
	}
}

// WithDebug enables trace and lineage collection for one run. Without it
// the trace is omitted entirely, not emptied
func WithDebug() RunOption {
	return func(rs *runState) {
		rs.debug = true
	}
}

// Run executes the graph for one run. A node whose evaluation fails
// aborts the run with an error status; vars and trace mutated by prior
// nodes are retained. Writes committed by earlier nodes are never rolled
// back
func (r *Runner) Run(
	ctx context.Context, g *api.Graph, input *RunInput, opts ...RunOption,
) *api.RunResult {
	if res := graph.ValidateGraph(g); !res.Valid {
		return &api.RunResult{
			Status: api.RunError,
			Vars:   api.Vars{},
			Logs:   []string{},
			Error: fmt.Sprintf(
				"%s: %s", ErrGraphInvalid, strings.Join(res.Errors, "; "),
			),
		}
	}

	rs := &runState{
		vars:    api.Vars{},
		lineage: api.VariableLineage{},
		logs:    []string{},
		input:   input,
	}
	for _, opt := range opts {
		opt(rs)
	}

	current := g.StartNodeID
	for current != "" {
		node := g.FindNode(current)
		if node == nil {
			return r.fail(rs, fmt.Errorf("%w: %s", ErrNodeNotFound, current))
		}
		if rs.executed >= len(g.Nodes) {
			return r.fail(rs, fmt.Errorf("%w at %s", ErrTraversalRunaway, current))
		}
		rs.executed++

		out, err := r.handlers[node.Type](ctx, rs, node)
		if err != nil {
			slog.Error("Node execution failed",
				log.RunID(rs.input.RunID),
				log.NodeID(node.ID),
				log.Error(err))
			return r.fail(rs, fmt.Errorf("node %s: %w", node.ID, err))
		}

		r.apply(rs, node, out)
		current = nextNode(g, node, out)
	}

	return r.finish(rs)
}

// apply merges a node's outputs into the run state. Lineage is recorded
// exactly once, at first assignment; skipped nodes contribute neither
// vars nor lineage
func (r *Runner) apply(rs *runState, node *api.Node, out *stepOutcome) {
	if !out.skipped {
		for name := range out.delta {
			if _, ok := rs.lineage[name]; !ok {
				rs.lineage[name] = &api.LineageEntry{
					SourceType:      out.source,
					CreatedByNodeID: node.ID,
				}
			}
		}
		rs.vars.Merge(out.delta)
	}

	if !rs.debug {
		return
	}

	trace := &api.StepTrace{
		NodeID:          node.ID,
		Status:          api.StepExecuted,
		ConditionResult: out.condResult,
	}
	if out.skipped {
		trace.Status = api.StepSkipped
		trace.SkippedReason = out.skippedReason
	} else if len(out.delta) > 0 {
		trace.OutputsDelta = out.delta
	}
	rs.trace = append(rs.trace, trace)
}

// nextNode resolves the next traversal target: a branch override wins,
// otherwise the node's first straight-line edge, otherwise the run ends
func nextNode(g *api.Graph, node *api.Node, out *stepOutcome) api.NodeID {
	if out.next != "" {
		return out.next
	}
	edges := g.EdgesFrom(node.ID)
	if len(edges) == 0 {
		return ""
	}
	return edges[0].Target
}

func (r *Runner) finish(rs *runState) *api.RunResult {
	result := &api.RunResult{
		Status: api.RunSuccess,
		Vars:   rs.vars,
		Logs:   rs.logs,
	}
	if rs.debug {
		result.Trace = rs.trace
		result.Lineage = rs.lineage
	}
	return result
}

// fail returns an error result retaining everything mutated so far:
// best-effort-forward, not transactional across nodes
func (r *Runner) fail(rs *runState, err error) *api.RunResult {
	result := &api.RunResult{
		Status: api.RunError,
		Vars:   rs.vars,
		Logs:   rs.logs,
		Error:  err.Error(),
	}
	if rs.debug {
		result.Trace = rs.trace
		result.Lineage = rs.lineage
	}
	return result
}
