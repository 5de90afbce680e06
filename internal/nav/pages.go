package nav

import (
	"context"
	"log/slog"
	"math"
	"slices"

	"github.com/kode4food/vellum/internal/eval"
	"github.com/kode4food/vellum/pkg/api"
	"github.com/kode4food/vellum/pkg/log"
)

// PageResolver evaluates page-level visibleIf/skipIf trees against stored
// answers to drive paged navigation. Results are recomputed per request
// and never persisted
type PageResolver struct {
	store AnswerStore
	eval  *eval.Evaluator
}

// NewPageResolver creates a page-level visibility resolver
func NewPageResolver(store AnswerStore, e *eval.Evaluator) *PageResolver {
	return &PageResolver{store: store, eval: e}
}

// EvaluateNavigation computes the page visibility sets and the neighbors
// of currentPageID among the visible pages. An absent visibleIf means
// visible; skipIf is only consulted on pages that are already visible
func (r *PageResolver) EvaluateNavigation(
	ctx context.Context, workflowID, runID string, currentPageID api.PageID,
) (*api.NavigationState, error) {
	pages, vars, err := r.load(ctx, workflowID, runID)
	if err != nil {
		return nil, err
	}

	state := &api.NavigationState{
		VisiblePages: []api.PageID{},
		HiddenPages:  []api.PageID{},
		SkippedPages: []api.PageID{},
	}

	for _, page := range pages {
		if !r.evalCondition(page.VisibleIf, vars, true, page.ID) {
			state.HiddenPages = append(state.HiddenPages, page.ID)
			continue
		}
		if r.evalCondition(page.SkipIf, vars, false, page.ID) {
			state.SkippedPages = append(state.SkippedPages, page.ID)
			continue
		}
		state.VisiblePages = append(state.VisiblePages, page.ID)
	}

	idx := slices.Index(state.VisiblePages, currentPageID)
	if idx >= 0 {
		if idx > 0 {
			state.PreviousPageID = state.VisiblePages[idx-1]
		}
		if idx < len(state.VisiblePages)-1 {
			state.NextPageID = state.VisiblePages[idx+1]
		}
		state.Progress = progressOf(idx, len(state.VisiblePages))
	}

	return state, nil
}

// GetFirstPage returns the first visible page of the workflow, or empty
// when every page is hidden or skipped
func (r *PageResolver) GetFirstPage(
	ctx context.Context, workflowID, runID string,
) (api.PageID, error) {
	state, err := r.EvaluateNavigation(ctx, workflowID, runID, "")
	if err != nil {
		return "", err
	}
	if len(state.VisiblePages) == 0 {
		return "", nil
	}
	return state.VisiblePages[0], nil
}

// IsPageNavigable reports whether the page is currently visible and not
// skipped
func (r *PageResolver) IsPageNavigable(
	ctx context.Context, workflowID, runID string, pageID api.PageID,
) (bool, error) {
	state, err := r.EvaluateNavigation(ctx, workflowID, runID, pageID)
	if err != nil {
		return false, err
	}
	return slices.Contains(state.VisiblePages, pageID), nil
}

// GetPageSequence returns the visible pages in display order
func (r *PageResolver) GetPageSequence(
	ctx context.Context, workflowID, runID string,
) ([]api.PageID, error) {
	state, err := r.EvaluateNavigation(ctx, workflowID, runID, "")
	if err != nil {
		return nil, err
	}
	return state.VisiblePages, nil
}

func (r *PageResolver) load(
	ctx context.Context, workflowID, runID string,
) ([]*api.Page, api.Vars, error) {
	pages, err := r.store.ListPages(ctx, workflowID)
	if err != nil {
		return nil, nil, err
	}
	pages = slices.Clone(pages)
	slices.SortStableFunc(pages, func(a, b *api.Page) int {
		return a.Order - b.Order
	})

	values, err := r.store.Values(ctx, runID)
	if err != nil {
		return nil, nil, err
	}
	return pages, aliasVars(values), nil
}

// evalCondition applies the resolver fail policy: an absent tree yields
// absentValue, and an evaluation failure never hides content
func (r *PageResolver) evalCondition(
	cond *api.Condition, vars api.Vars, absentValue bool, pageID api.PageID,
) bool {
	if cond == nil {
		return absentValue
	}
	result, err := r.eval.EvaluateCondition(cond, vars)
	if err != nil {
		slog.Warn("Page condition failed open",
			log.PageID(pageID),
			log.Error(err))
		return absentValue
	}
	return result
}

// progressOf is the 1-based position of the current page among the
// visible ones, as a rounded percentage
func progressOf(idx, total int) int {
	if total == 0 {
		return 0
	}
	return int(math.Round(100 * float64(idx+1) / float64(total)))
}

func aliasVars(values map[string]any) api.Vars {
	vars := make(api.Vars, len(values))
	for alias, value := range values {
		vars[api.Name(alias)] = value
	}
	return vars
}
