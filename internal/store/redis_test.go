package store_test

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kode4food/vellum/internal/store"
	"github.com/kode4food/vellum/pkg/api"
)

func newStore(t *testing.T) *store.RedisStore {
	t.Helper()
	mr := miniredis.RunT(t)
	s, err := store.NewRedisStore(store.Config{Addr: mr.Addr()})
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestNewRedisStoreUnreachable(t *testing.T) {
	_, err := store.NewRedisStore(store.Config{
		Addr: "localhost:1",
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to ping redis")
}

func TestPagesRoundTrip(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()

	t.Run("missing_workflow_is_empty", func(t *testing.T) {
		pages, err := s.ListPages(ctx, "nope")
		require.NoError(t, err)
		assert.Empty(t, pages)
	})

	t.Run("conditions_survive", func(t *testing.T) {
		saved := []*api.Page{
			{ID: "p1", Title: "Basics", Order: 1},
			{
				ID:    "p2",
				Order: 2,
				VisibleIf: api.Predicate(
					api.OpEquals, api.Variable("joint"), api.Value(true),
				),
			},
		}
		require.NoError(t, s.SavePages(ctx, "wf-1", saved))

		pages, err := s.ListPages(ctx, "wf-1")
		require.NoError(t, err)
		require.Len(t, pages, 2)
		assert.Equal(t, "Basics", pages[0].Title)
		require.NotNil(t, pages[1].VisibleIf)
		assert.Equal(t, api.OpEquals, pages[1].VisibleIf.Op)
		assert.Equal(t, "joint", pages[1].VisibleIf.Left.Path)
	})
}

func TestStepsRoundTrip(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()

	steps := []*api.PageStep{
		{ID: "s1", SectionID: "sec-1", Alias: "name", Required: true},
		{ID: "s2", SectionID: "sec-1", Alias: "total", Virtual: true},
	}
	require.NoError(t, s.SaveSteps(ctx, "sec-1", steps))

	loaded, err := s.ListSteps(ctx, "sec-1")
	require.NoError(t, err)
	require.Len(t, loaded, 2)
	assert.True(t, loaded[0].Required)
	assert.True(t, loaded[1].Virtual)
}

func TestValues(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()

	require.NoError(t, s.SetValue(ctx, "run-1", "name", "Ada"))
	require.NoError(t, s.SetValue(ctx, "run-1", "age", 36))
	require.NoError(t, s.SetValue(ctx, "run-1", "tags",
		[]any{"a", "b"}))

	values, err := s.Values(ctx, "run-1")
	require.NoError(t, err)
	assert.Equal(t, "Ada", values["name"])
	assert.EqualValues(t, 36, values["age"])
	assert.Equal(t, []any{"a", "b"}, values["tags"])

	t.Run("runs_are_isolated", func(t *testing.T) {
		other, err := s.Values(ctx, "run-2")
		require.NoError(t, err)
		assert.Empty(t, other)
	})
}

func TestDeleteValues(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()

	require.NoError(t, s.SetValue(ctx, "run-1", "keep", 1))
	require.NoError(t, s.SetValue(ctx, "run-1", "drop", 2))
	require.NoError(t, s.RegisterStepAlias(ctx, "run-1", "s2", "drop"))

	t.Run("empty_batch_is_noop", func(t *testing.T) {
		require.NoError(t, s.DeleteValues(ctx, "run-1", nil))
	})

	t.Run("deletes_by_step_id", func(t *testing.T) {
		err := s.DeleteValues(ctx, "run-1", []api.StepID{"s2"})
		require.NoError(t, err)

		values, err := s.Values(ctx, "run-1")
		require.NoError(t, err)
		assert.Contains(t, values, "keep")
		assert.NotContains(t, values, "drop")
	})

	t.Run("unknown_step_id_ignored", func(t *testing.T) {
		err := s.DeleteValues(ctx, "run-1", []api.StepID{"ghost"})
		require.NoError(t, err)
	})
}
