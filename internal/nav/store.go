package nav

import (
	"context"

	"github.com/kode4food/vellum/pkg/api"
)

// AnswerStore is the persistence collaborator the resolvers read from.
// The engine does not own the schema or durability of these records
type AnswerStore interface {
	// ListPages returns a workflow's pages in display order
	ListPages(ctx context.Context, workflowID string) ([]*api.Page, error)

	// ListSteps returns the steps of one page, unordered
	ListSteps(ctx context.Context, sectionID api.PageID) ([]*api.PageStep, error)

	// Values returns a run's stored answers keyed by step alias
	Values(ctx context.Context, runID string) (map[string]any, error)

	// DeleteValues removes the stored answers for the given steps
	DeleteValues(ctx context.Context, runID string, stepIDs []api.StepID) error
}
