package nav_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kode4food/vellum/internal/eval"
	"github.com/kode4food/vellum/internal/nav"
	"github.com/kode4food/vellum/internal/store"
	"github.com/kode4food/vellum/pkg/api"
)

const testSection = api.PageID("sec-1")

func saveSteps(t *testing.T, s *store.RedisStore, steps ...*api.PageStep) {
	t.Helper()
	err := s.SaveSteps(context.Background(), testSection, steps)
	require.NoError(t, err)
}

func TestEvaluatePageQuestions(t *testing.T) {
	s := newTestStore(t)
	r := nav.NewQuestionResolver(s, eval.NewEvaluator())

	saveSteps(t, s,
		&api.PageStep{ID: "s1", Alias: "name", Order: 1},
		&api.PageStep{
			ID:    "s2",
			Alias: "spouse_name",
			Order: 2,
			VisibleIf: api.Predicate(
				api.OpEquals, api.Variable("married"), api.Value(true),
			),
		},
		&api.PageStep{
			ID:      "s3",
			Alias:   "computed_total",
			Order:   3,
			Virtual: true,
		},
	)
	setValue(t, s, "married", false)

	vis, err := r.EvaluatePageQuestions(
		context.Background(), testSection, testRun,
	)
	require.NoError(t, err)

	assert.Equal(t, []api.StepID{"s1"}, vis.VisibleQuestions)
	assert.Equal(t, []api.StepID{"s2"}, vis.HiddenQuestions)
	assert.Equal(t, "always", vis.VisibilityReasons["s1"])
	assert.Equal(t, "hidden", vis.VisibilityReasons["s2"])

	// Virtual steps never participate
	assert.NotContains(t, vis.VisibilityReasons, api.StepID("s3"))
}

func TestQuestionVisibilityFailsOpen(t *testing.T) {
	s := newTestStore(t)
	r := nav.NewQuestionResolver(s, eval.NewEvaluator())

	saveSteps(t, s, &api.PageStep{
		ID:    "s1",
		Alias: "extra",
		Order: 1,
		VisibleIf: api.Predicate(
			api.OpGt, api.Variable("age"), api.Value(18),
		),
	})
	setValue(t, s, "age", "unparseable")

	vis, err := r.EvaluatePageQuestions(
		context.Background(), testSection, testRun,
	)
	require.NoError(t, err)
	assert.Equal(t, []api.StepID{"s1"}, vis.VisibleQuestions)
	assert.Contains(t, vis.VisibilityReasons["s1"], "error:")
}

func TestQuestionVisibilityCache(t *testing.T) {
	s := newTestStore(t)
	r := nav.NewQuestionResolver(s, eval.NewEvaluator())

	saveSteps(t, s, &api.PageStep{
		ID:    "s1",
		Alias: "details",
		Order: 1,
		VisibleIf: api.Predicate(
			api.OpEquals, api.Variable("wants"), api.Value(true),
		),
	})
	setValue(t, s, "wants", true)

	vis, err := r.EvaluatePageQuestions(
		context.Background(), testSection, testRun,
	)
	require.NoError(t, err)
	assert.Equal(t, []api.StepID{"s1"}, vis.VisibleQuestions)

	// A value change without invalidation serves the cached result
	setValue(t, s, "wants", false)
	vis, err = r.EvaluatePageQuestions(
		context.Background(), testSection, testRun,
	)
	require.NoError(t, err)
	assert.Equal(t, []api.StepID{"s1"}, vis.VisibleQuestions)

	r.InvalidateRun(testRun)
	vis, err = r.EvaluatePageQuestions(
		context.Background(), testSection, testRun,
	)
	require.NoError(t, err)
	assert.Equal(t, []api.StepID{"s1"}, vis.HiddenQuestions)
}

func TestGetValidationFilter(t *testing.T) {
	s := newTestStore(t)
	r := nav.NewQuestionResolver(s, eval.NewEvaluator())

	saveSteps(t, s,
		&api.PageStep{ID: "s1", Alias: "name", Order: 1, Required: true},
		&api.PageStep{
			ID:       "s2",
			Alias:    "spouse_name",
			Order:    2,
			Required: true,
			VisibleIf: api.Predicate(
				api.OpEquals, api.Variable("married"), api.Value(true),
			),
		},
		&api.PageStep{ID: "s3", Alias: "nickname", Order: 3},
	)
	setValue(t, s, "married", false)

	filter, err := r.GetValidationFilter(
		context.Background(), testSection, testRun,
	)
	require.NoError(t, err)

	assert.Equal(t, []api.StepID{"s1"}, filter.RequiredQuestions)
	assert.Equal(t, []api.StepID{"s2"}, filter.SkippedQuestions)
}

func TestClearHiddenQuestionValues(t *testing.T) {
	t.Run("nothing_hidden_returns_empty", func(t *testing.T) {
		s := newTestStore(t)
		r := nav.NewQuestionResolver(s, eval.NewEvaluator())

		saveSteps(t, s,
			&api.PageStep{ID: "s1", Alias: "name", Order: 1},
		)
		cleared, err := r.ClearHiddenQuestionValues(
			context.Background(), testSection, testRun,
		)
		require.NoError(t, err)
		assert.NotNil(t, cleared)
		assert.Empty(t, cleared)
	})

	t.Run("clears_hidden_with_values", func(t *testing.T) {
		s := newTestStore(t)
		r := nav.NewQuestionResolver(s, eval.NewEvaluator())
		ctx := context.Background()

		saveSteps(t, s,
			&api.PageStep{ID: "s1", Alias: "married", Order: 1},
			&api.PageStep{
				ID:    "s2",
				Alias: "spouse_name",
				Order: 2,
				VisibleIf: api.Predicate(
					api.OpEquals, api.Variable("married"),
					api.Value(true),
				),
			},
		)
		require.NoError(t, s.RegisterStepAlias(
			ctx, testRun, "s2", "spouse_name",
		))

		// Answered while visible, then upstream answer flips
		setValue(t, s, "married", false)
		setValue(t, s, "spouse_name", "Jordan")

		cleared, err := r.ClearHiddenQuestionValues(
			ctx, testSection, testRun,
		)
		require.NoError(t, err)
		assert.Equal(t, []api.StepID{"s2"}, cleared)

		values, err := s.Values(ctx, testRun)
		require.NoError(t, err)
		assert.NotContains(t, values, "spouse_name")
		assert.Contains(t, values, "married")
	})

	t.Run("hidden_without_value_untouched", func(t *testing.T) {
		s := newTestStore(t)
		r := nav.NewQuestionResolver(s, eval.NewEvaluator())

		saveSteps(t, s, &api.PageStep{
			ID:    "s1",
			Alias: "extra",
			Order: 1,
			VisibleIf: api.Predicate(
				api.OpEquals, api.Variable("show"), api.Value(true),
			),
		})
		setValue(t, s, "show", false)

		cleared, err := r.ClearHiddenQuestionValues(
			context.Background(), testSection, testRun,
		)
		require.NoError(t, err)
		assert.Empty(t, cleared)
	})
}

func TestValidateQuestionConditions(t *testing.T) {
	s := newTestStore(t)
	r := nav.NewQuestionResolver(s, eval.NewEvaluator())

	cond := api.Predicate(
		api.OpEquals, api.Variable("x"), api.Value(1),
	)
	saveSteps(t, s,
		&api.PageStep{
			ID: "s1", Alias: "a", Required: true, VisibleIf: cond,
		},
		&api.PageStep{
			ID: "s2", Alias: "b", Virtual: true, VisibleIf: cond,
		},
		&api.PageStep{ID: "s3", Alias: "c"},
	)

	warnings, err := r.ValidateQuestionConditions(
		context.Background(), testSection,
	)
	require.NoError(t, err)
	require.Len(t, warnings, 2)
	assert.Contains(t, warnings[0], "required")
	assert.Contains(t, warnings[1], "virtual")
}
