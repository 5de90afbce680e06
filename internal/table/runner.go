package table

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/kode4food/vellum/pkg/api"
	"github.com/kode4food/vellum/pkg/log"
)

type (
	// Runner resolves bound expressions against execution state and
	// performs reads and writes against the external row store
	Runner struct {
		store RowStore
	}

	// Context is the execution state a table node resolves against
	Context struct {
		Data       map[string]any
		WorkflowID string
		RunID      string
	}
)

// PreviewRowID is the synthetic row id returned by preview writes
const PreviewRowID = "preview-row"

var (
	ErrMissingTableID = errors.New("missing tableId")
	ErrInvalidMode    = errors.New("invalid write mode")
	ErrMissingPrimary = errors.New("update requires a primary key column")
)

// NewRunner creates a table runner over the given row store
func NewRunner(store RowStore) *Runner {
	return &Runner{store: store}
}

// ExecuteWrite verifies table ownership, resolves the column mappings,
// and creates or updates a row. A missing update target is reported on
// the result, not returned as an error. Preview mode short-circuits
// persistence and returns a fixed synthetic row id
func (r *Runner) ExecuteWrite(
	ctx context.Context, cfg *api.WriteConfig, ec *Context,
	tenantID string, preview bool,
) (*api.WriteResult, error) {
	if cfg.TableID == "" {
		return nil, ErrMissingTableID
	}
	if err := r.store.CheckOwnership(ctx, cfg.TableID, tenantID); err != nil {
		return nil, err
	}

	doc, err := contextDocument(ec)
	if err != nil {
		return nil, err
	}
	values, err := resolveMappings(cfg.ColumnMappings, doc)
	if err != nil {
		return nil, err
	}

	if preview {
		return &api.WriteResult{Success: true, RowID: PreviewRowID}, nil
	}

	switch cfg.Mode {
	case api.WriteModeCreate:
		return r.createRow(ctx, cfg, values)
	case api.WriteModeUpdate:
		return r.updateRow(ctx, cfg, doc, values)
	default:
		return nil, fmt.Errorf("%w: %s", ErrInvalidMode, cfg.Mode)
	}
}

// ExecuteQuery resolves filter templates against the execution context
// and reads matching rows. Unlike visibility evaluation, an unresolved
// filter variable fails loudly rather than silently widening the result
func (r *Runner) ExecuteQuery(
	ctx context.Context, q *api.QueryConfig, ec *Context, tenantID string,
) (*api.ListVariable, error) {
	if q.TableID == "" {
		return nil, ErrMissingTableID
	}
	if err := r.store.CheckOwnership(ctx, q.TableID, tenantID); err != nil {
		return nil, err
	}

	doc, err := contextDocument(ec)
	if err != nil {
		return nil, err
	}

	filters := make([]api.QueryFilter, len(q.Filters))
	for i, f := range q.Filters {
		resolved, err := resolveValue(f.Value, doc)
		if err != nil {
			return nil, err
		}
		filters[i] = api.QueryFilter{
			ColumnID: f.ColumnID,
			Operator: f.Operator,
			Value:    resolved,
		}
	}

	rowIDs, err := r.store.QueryRowIDs(
		ctx, q.TableID, filters, q.Sort, q.Limit,
	)
	if err != nil {
		return nil, err
	}

	// One batch hydration call; never per-row fetches
	rows, err := r.store.HydrateRows(ctx, q.TableID, rowIDs)
	if err != nil {
		return nil, err
	}

	return &api.ListVariable{ID: uuid.NewString(), Rows: rows}, nil
}

func (r *Runner) createRow(
	ctx context.Context, cfg *api.WriteConfig, values map[string]any,
) (*api.WriteResult, error) {
	rowID, err := r.store.CreateRow(ctx, cfg.TableID, values)
	if err != nil {
		return nil, err
	}
	slog.Debug("Created table row", log.TableID(cfg.TableID))
	return &api.WriteResult{Success: true, RowID: rowID}, nil
}

func (r *Runner) updateRow(
	ctx context.Context, cfg *api.WriteConfig, doc string,
	values map[string]any,
) (*api.WriteResult, error) {
	if cfg.PrimaryKeyColumnID == "" {
		return nil, ErrMissingPrimary
	}

	pkValue, err := resolveValue(cfg.PrimaryKeyValue, doc)
	if err != nil {
		return nil, err
	}

	rowID, err := r.store.FindRowByColumn(
		ctx, cfg.TableID, cfg.PrimaryKeyColumnID, pkValue,
	)
	if errors.Is(err, ErrRowNotFound) {
		return &api.WriteResult{
			Success: false,
			Error: fmt.Sprintf(
				"Row not found for %s=%v", cfg.PrimaryKeyColumnID, pkValue,
			),
		}, nil
	}
	if err != nil {
		return nil, err
	}

	if err := r.store.UpdateRow(ctx, cfg.TableID, rowID, values); err != nil {
		return nil, err
	}
	return &api.WriteResult{Success: true, RowID: rowID}, nil
}

func resolveMappings(
	mappings []api.ColumnMapping, doc string,
) (map[string]any, error) {
	values := make(map[string]any, len(mappings))
	for _, m := range mappings {
		resolved, err := resolveValue(m.Value, doc)
		if err != nil {
			return nil, err
		}
		values[m.ColumnID] = resolved
	}
	return values, nil
}

func contextDocument(ec *Context) (string, error) {
	payload := map[string]any{
		"data": ec.Data,
		"context": map[string]any{
			"workflowId": ec.WorkflowID,
			"runId":      ec.RunID,
		},
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}
	return string(data), nil
}
