package runner

import (
	"context"
	"fmt"

	"github.com/kode4food/vellum/internal/table"
	"github.com/kode4food/vellum/pkg/api"
)

const skippedByCondition = "condition evaluated to false"

// gate evaluates a node's optional guard condition. The returned pointer
// is nil when the node carries no condition, so the trace distinguishes
// "unconditional" from "condition held"
func (r *Runner) gate(
	rs *runState, cond *api.Condition,
) (bool, *bool, error) {
	if cond == nil {
		return true, nil, nil
	}
	ok, err := r.eval.EvaluateCondition(cond, rs.vars)
	if err != nil {
		return false, nil, err
	}
	return ok, &ok, nil
}

// runQuestion captures the caller-supplied answer for this node, if one
// was provided. An unanswered question still executes; it just binds
// nothing
func (r *Runner) runQuestion(
	_ context.Context, rs *runState, node *api.Node,
) (*stepOutcome, error) {
	cfg := node.Question
	ok, condResult, err := r.gate(rs, cfg.Condition)
	if err != nil {
		return nil, err
	}
	if !ok {
		return &stepOutcome{
			skipped:       true,
			skippedReason: skippedByCondition,
			condResult:    condResult,
		}, nil
	}

	out := &stepOutcome{
		condResult: condResult,
		source:     api.LineageQuestion,
	}
	if answer, found := rs.input.Inputs[node.ID]; found {
		out.delta = api.Vars{cfg.Key: answer}
	}
	return out, nil
}

// runCompute evaluates the node's expression against the current
// variables and binds the result
func (r *Runner) runCompute(
	_ context.Context, rs *runState, node *api.Node,
) (*stepOutcome, error) {
	cfg := node.Compute
	ok, condResult, err := r.gate(rs, cfg.Condition)
	if err != nil {
		return nil, err
	}
	if !ok {
		return &stepOutcome{
			skipped:       true,
			skippedReason: skippedByCondition,
			condResult:    condResult,
		}, nil
	}

	value, err := r.eval.Resolve(cfg.Expression, rs.vars)
	if err != nil {
		return nil, err
	}
	return &stepOutcome{
		condResult: condResult,
		delta:      api.Vars{cfg.OutputKey: value},
		source:     api.LineageCompute,
	}, nil
}

// runBranch redirects traversal to the first case whose condition holds.
// When no case matches, the node falls through to its straight-line edge
func (r *Runner) runBranch(
	_ context.Context, rs *runState, node *api.Node,
) (*stepOutcome, error) {
	for _, branch := range node.Branch.Branches {
		ok, err := r.eval.EvaluateCondition(branch.Condition, rs.vars)
		if err != nil {
			return nil, err
		}
		if ok {
			return &stepOutcome{next: branch.Target}, nil
		}
	}
	return &stepOutcome{}, nil
}

// runTemplate resolves each binding expression and hands the bound map to
// the document sink. Template nodes bind no workflow variables
func (r *Runner) runTemplate(
	ctx context.Context, rs *runState, node *api.Node,
) (*stepOutcome, error) {
	cfg := node.Template
	values := make(map[api.Name]any, len(cfg.Bindings))
	for name, src := range cfg.Bindings {
		value, err := r.eval.Resolve(src, rs.vars)
		if err != nil {
			return nil, fmt.Errorf("binding %s: %w", name, err)
		}
		values[name] = value
	}

	// Binding resolution happens regardless; rendering is optional
	if r.docs == nil {
		return &stepOutcome{}, nil
	}
	err := r.docs.RenderTemplate(ctx, &api.BoundTemplate{
		TemplateID: cfg.TemplateID,
		NodeID:     node.ID,
		Values:     values,
	})
	if err != nil {
		return nil, err
	}
	return &stepOutcome{}, nil
}

// runScript executes the node's sandboxed code. Sandbox failures arrive
// in-band on the result, so an unsuccessful script fails the node here
// rather than raising inside the engine
func (r *Runner) runScript(
	ctx context.Context, rs *runState, node *api.Node,
) (*stepOutcome, error) {
	cfg := node.Script
	res := r.scripts.Execute(ctx, &api.ScriptParams{
		Language:       cfg.Language,
		Code:           cfg.Code,
		Data:           rs.vars.ToStringMap(),
		InputKeys:      cfg.InputKeys,
		TimeoutMs:      cfg.TimeoutMs,
		ConsoleEnabled: cfg.ConsoleEnabled,
		Context: api.ScriptContext{
			WorkflowID: rs.input.WorkflowID,
			RunID:      rs.input.RunID,
			Phase:      "run",
		},
	})

	for _, entry := range res.ConsoleLogs {
		rs.logs = append(rs.logs, fmt.Sprint(entry...))
	}
	if !res.OK {
		return nil, fmt.Errorf("%w: %s", ErrScriptNode, res.Error)
	}
	return &stepOutcome{
		delta:  api.Vars{cfg.OutputKey: res.Output},
		source: api.LineageScript,
	}, nil
}

// runWrite persists a row through the table runner. A write reported
// unsuccessful (a missing update target) fails the node
func (r *Runner) runWrite(
	ctx context.Context, rs *runState, node *api.Node,
) (*stepOutcome, error) {
	cfg := node.Write
	res, err := r.tables.ExecuteWrite(
		ctx, cfg, r.tableContext(rs), rs.input.TenantID, rs.input.Preview,
	)
	if err != nil {
		return nil, err
	}
	if !res.Success {
		return nil, fmt.Errorf("%w: %s", ErrWriteNode, res.Error)
	}

	out := &stepOutcome{source: api.LineageWrite}
	if cfg.OutputKey != "" {
		out.delta = api.Vars{cfg.OutputKey: res.RowID}
	}
	return out, nil
}

// runQuery reads matching rows through the table runner and binds the
// hydrated list
func (r *Runner) runQuery(
	ctx context.Context, rs *runState, node *api.Node,
) (*stepOutcome, error) {
	cfg := node.Query
	list, err := r.tables.ExecuteQuery(
		ctx, cfg, r.tableContext(rs), rs.input.TenantID,
	)
	if err != nil {
		return nil, err
	}

	out := &stepOutcome{source: api.LineageQuery}
	if cfg.OutputKey != "" {
		out.delta = api.Vars{cfg.OutputKey: list}
	}
	return out, nil
}

func (r *Runner) tableContext(rs *runState) *table.Context {
	return &table.Context{
		Data:       rs.vars.ToStringMap(),
		WorkflowID: rs.input.WorkflowID,
		RunID:      rs.input.RunID,
	}
}
