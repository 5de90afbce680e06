package eval_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kode4food/vellum/internal/eval"
	"github.com/kode4food/vellum/pkg/api"
)

func TestConditionOperators(t *testing.T) {
	e := eval.NewEvaluator()
	vars := api.Vars{
		"age":    int64(25),
		"name":   "Grace",
		"agreed": true,
		"tags":   []any{"priority", "vip"},
		"notes":  "",
	}

	tests := []struct {
		cond     *api.Condition
		name     string
		expected bool
	}{
		{
			name: "equals_numeric_coercion",
			cond: api.Predicate(
				api.OpEquals, api.Variable("age"), api.Value(25.0),
			),
			expected: true,
		},
		{
			name: "equals_string",
			cond: api.Predicate(
				api.OpEquals, api.Variable("name"), api.Value("Grace"),
			),
			expected: true,
		},
		{
			name: "bool_never_equals_nonbool",
			cond: api.Predicate(
				api.OpEquals, api.Variable("agreed"), api.Value(1),
			),
			expected: false,
		},
		{
			name: "not_equals",
			cond: api.Predicate(
				api.OpNotEquals, api.Variable("name"), api.Value("Ada"),
			),
			expected: true,
		},
		{
			name: "gt_numeric_string",
			cond: api.Predicate(
				api.OpGt, api.Variable("age"), api.Value("18"),
			),
			expected: true,
		},
		{
			name: "lte",
			cond: api.Predicate(
				api.OpLte, api.Variable("age"), api.Value(25),
			),
			expected: true,
		},
		{
			name: "contains_list",
			cond: api.Predicate(
				api.OpContains, api.Variable("tags"), api.Value("vip"),
			),
			expected: true,
		},
		{
			name: "contains_substring",
			cond: api.Predicate(
				api.OpContains, api.Variable("name"), api.Value("race"),
			),
			expected: true,
		},
		{
			name: "empty_whitespace_string",
			cond: api.Predicate(
				api.OpEmpty, api.Variable("notes"), nil,
			),
			expected: true,
		},
		{
			name: "not_empty",
			cond: api.Predicate(
				api.OpNotEmpty, api.Variable("name"), nil,
			),
			expected: true,
		},
		{
			name: "missing_variable_is_nil",
			cond: api.Predicate(
				api.OpEmpty, api.Variable("never_answered"), nil,
			),
			expected: true,
		},
		{
			name: "nil_equals_only_nil",
			cond: api.Predicate(
				api.OpEquals, api.Variable("never_answered"), api.Value("x"),
			),
			expected: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := e.EvaluateCondition(tt.cond, vars)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, result)
		})
	}
}

func TestConditionCombinators(t *testing.T) {
	e := eval.NewEvaluator()
	vars := api.Vars{"a": 1, "b": 2}

	isA := api.Predicate(api.OpEquals, api.Variable("a"), api.Value(1))
	notB := api.Predicate(api.OpEquals, api.Variable("b"), api.Value(99))

	t.Run("and", func(t *testing.T) {
		result, err := e.EvaluateCondition(api.And(isA, notB), vars)
		require.NoError(t, err)
		assert.False(t, result)
	})

	t.Run("or", func(t *testing.T) {
		result, err := e.EvaluateCondition(api.Or(notB, isA), vars)
		require.NoError(t, err)
		assert.True(t, result)
	})

	t.Run("not", func(t *testing.T) {
		result, err := e.EvaluateCondition(api.Not(notB), vars)
		require.NoError(t, err)
		assert.True(t, result)
	})

	t.Run("nested", func(t *testing.T) {
		cond := api.And(isA, api.Or(notB, api.Not(notB)))
		result, err := e.EvaluateCondition(cond, vars)
		require.NoError(t, err)
		assert.True(t, result)
	})
}

// A failing branch after the result is already determined must never be
// reached. The second child here would error with ErrNotComparable
func TestConditionShortCircuit(t *testing.T) {
	e := eval.NewEvaluator()
	vars := api.Vars{"a": 1, "bad": struct{}{}}

	failing := api.Predicate(api.OpGt, api.Variable("bad"), api.Value(1))

	t.Run("and_stops_on_false", func(t *testing.T) {
		cond := api.And(
			api.Predicate(api.OpEquals, api.Variable("a"), api.Value(2)),
			failing,
		)
		result, err := e.EvaluateCondition(cond, vars)
		require.NoError(t, err)
		assert.False(t, result)
	})

	t.Run("or_stops_on_true", func(t *testing.T) {
		cond := api.Or(
			api.Predicate(api.OpEquals, api.Variable("a"), api.Value(1)),
			failing,
		)
		result, err := e.EvaluateCondition(cond, vars)
		require.NoError(t, err)
		assert.True(t, result)
	})

	t.Run("failing_branch_alone_errors", func(t *testing.T) {
		_, err := e.EvaluateCondition(failing, vars)
		require.Error(t, err)
		assert.ErrorIs(t, err, eval.ErrNotComparable)
	})
}

func TestConditionDottedPath(t *testing.T) {
	e := eval.NewEvaluator()
	vars := api.Vars{
		"applicant": map[string]any{
			"address": map[string]any{"state": "WA"},
		},
	}

	cond := api.Predicate(
		api.OpEquals, api.Variable("applicant.address.state"),
		api.Value("WA"),
	)
	result, err := e.EvaluateCondition(cond, vars)
	require.NoError(t, err)
	assert.True(t, result)
}

func TestConditionMalformed(t *testing.T) {
	e := eval.NewEvaluator()

	_, err := e.EvaluateCondition(&api.Condition{}, api.Vars{})
	require.Error(t, err)
	assert.ErrorIs(t, err, api.ErrConditionMalformed)
}

func TestConditionDeterministic(t *testing.T) {
	e := eval.NewEvaluator()
	vars := api.Vars{"score": 75}
	cond := api.And(
		api.Predicate(api.OpGte, api.Variable("score"), api.Value(50)),
		api.Predicate(api.OpLt, api.Variable("score"), api.Value(100)),
	)

	for range 10 {
		result, err := e.EvaluateCondition(cond, vars)
		require.NoError(t, err)
		assert.True(t, result)
	}
}
