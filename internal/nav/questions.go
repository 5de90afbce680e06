package nav

import (
	"context"
	"fmt"
	"log/slog"
	"slices"

	"github.com/kode4food/vellum/internal/eval"
	"github.com/kode4food/vellum/pkg/api"
	"github.com/kode4food/vellum/pkg/log"
	"github.com/kode4food/vellum/pkg/util"
)

// QuestionResolver evaluates question-level visibleIf trees for one page.
// Virtual steps (outputs never shown to a human) are excluded from
// evaluation entirely
type QuestionResolver struct {
	store AnswerStore
	eval  *eval.Evaluator
	cache *visibilityCache
}

const (
	reasonAlways  = "always"
	reasonVisible = "visible"
	reasonHidden  = "hidden"
)

// NewQuestionResolver creates a question-level visibility resolver with a
// per-run, per-section evaluation cache
func NewQuestionResolver(
	store AnswerStore, e *eval.Evaluator,
) *QuestionResolver {
	return &QuestionResolver{
		store: store,
		eval:  e,
		cache: newVisibilityCache(),
	}
}

// EvaluatePageQuestions computes visible and hidden question sets for a
// section, with a per-step diagnostic reason. Results are cached per run
// and section until InvalidateRun
func (r *QuestionResolver) EvaluatePageQuestions(
	ctx context.Context, sectionID api.PageID, runID string,
) (*api.QuestionVisibility, error) {
	if vis, ok := r.cache.get(runID, sectionID); ok {
		return vis, nil
	}

	steps, vars, err := r.load(ctx, sectionID, runID)
	if err != nil {
		return nil, err
	}

	vis := &api.QuestionVisibility{
		VisibleQuestions:  []api.StepID{},
		HiddenQuestions:   []api.StepID{},
		VisibilityReasons: map[api.StepID]string{},
	}

	for _, step := range steps {
		if step.VisibleIf == nil {
			vis.VisibleQuestions = append(vis.VisibleQuestions, step.ID)
			vis.VisibilityReasons[step.ID] = reasonAlways
			continue
		}

		visible, err := r.eval.EvaluateCondition(step.VisibleIf, vars)
		if err != nil {
			// Fail open: never hide something unevaluable
			slog.Warn("Question condition failed open",
				log.PageID(sectionID),
				log.Error(err))
			vis.VisibleQuestions = append(vis.VisibleQuestions, step.ID)
			vis.VisibilityReasons[step.ID] = fmt.Sprintf("error: %s", err)
			continue
		}

		if visible {
			vis.VisibleQuestions = append(vis.VisibleQuestions, step.ID)
			vis.VisibilityReasons[step.ID] = reasonVisible
		} else {
			vis.HiddenQuestions = append(vis.HiddenQuestions, step.ID)
			vis.VisibilityReasons[step.ID] = reasonHidden
		}
	}

	r.cache.put(runID, sectionID, vis)
	return vis, nil
}

// GetValidationFilter partitions the section's required questions by
// current visibility so the caller never demands unseen answers
func (r *QuestionResolver) GetValidationFilter(
	ctx context.Context, sectionID api.PageID, runID string,
) (*api.ValidationFilter, error) {
	vis, err := r.EvaluatePageQuestions(ctx, sectionID, runID)
	if err != nil {
		return nil, err
	}

	steps, err := r.store.ListSteps(ctx, sectionID)
	if err != nil {
		return nil, err
	}

	filter := &api.ValidationFilter{
		RequiredQuestions: []api.StepID{},
		SkippedQuestions:  []api.StepID{},
	}
	hidden := util.SetOf(vis.HiddenQuestions...)
	for _, step := range steps {
		if !step.Required || step.Virtual {
			continue
		}
		if hidden.Contains(step.ID) {
			filter.SkippedQuestions = append(
				filter.SkippedQuestions, step.ID,
			)
		} else {
			filter.RequiredQuestions = append(
				filter.RequiredQuestions, step.ID,
			)
		}
	}
	return filter, nil
}

// ClearHiddenQuestionValues deletes stored values for currently-hidden
// questions that still carry one, returning the cleared step ids. Called
// after an upstream answer change so stale answers never leak into later
// export or rendering
func (r *QuestionResolver) ClearHiddenQuestionValues(
	ctx context.Context, sectionID api.PageID, runID string,
) ([]api.StepID, error) {
	vis, err := r.EvaluatePageQuestions(ctx, sectionID, runID)
	if err != nil {
		return nil, err
	}

	steps, err := r.store.ListSteps(ctx, sectionID)
	if err != nil {
		return nil, err
	}
	values, err := r.store.Values(ctx, runID)
	if err != nil {
		return nil, err
	}

	cleared := []api.StepID{}
	hidden := util.SetOf(vis.HiddenQuestions...)
	for _, step := range steps {
		if !hidden.Contains(step.ID) {
			continue
		}
		if _, ok := values[step.Alias]; !ok {
			continue
		}
		cleared = append(cleared, step.ID)
	}

	if len(cleared) == 0 {
		return cleared, nil
	}

	if err := r.store.DeleteValues(ctx, runID, cleared); err != nil {
		return nil, err
	}
	r.cache.invalidateRun(runID)
	return cleared, nil
}

// ValidateQuestionConditions is an authoring-time lint. It warns on a
// required question carrying visibleIf, and on a virtual step carrying
// visibleIf, which is meaningless
func (r *QuestionResolver) ValidateQuestionConditions(
	ctx context.Context, sectionID api.PageID,
) ([]string, error) {
	steps, err := r.store.ListSteps(ctx, sectionID)
	if err != nil {
		return nil, err
	}

	var warnings []string
	for _, step := range steps {
		if step.VisibleIf == nil {
			continue
		}
		if step.Required {
			warnings = append(warnings, fmt.Sprintf(
				"Step %s is required but carries visibleIf; it may be "+
					"hidden while still demanded", step.ID,
			))
		}
		if step.Virtual {
			warnings = append(warnings, fmt.Sprintf(
				"Step %s is virtual; visibleIf has no effect", step.ID,
			))
		}
	}
	return warnings, nil
}

// InvalidateRun drops cached visibility for a run. Any write to step
// values must call this before the next read
func (r *QuestionResolver) InvalidateRun(runID string) {
	r.cache.invalidateRun(runID)
}

func (r *QuestionResolver) load(
	ctx context.Context, sectionID api.PageID, runID string,
) ([]*api.PageStep, api.Vars, error) {
	steps, err := r.store.ListSteps(ctx, sectionID)
	if err != nil {
		return nil, nil, err
	}

	filtered := make([]*api.PageStep, 0, len(steps))
	for _, step := range steps {
		if !step.Virtual {
			filtered = append(filtered, step)
		}
	}
	slices.SortStableFunc(filtered, func(a, b *api.PageStep) int {
		return a.Order - b.Order
	})

	values, err := r.store.Values(ctx, runID)
	if err != nil {
		return nil, nil, err
	}
	return filtered, aliasVars(values), nil
}
