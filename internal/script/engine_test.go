package script_test

import (
	"context"
	"os/exec"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kode4food/vellum/internal/script"
	"github.com/kode4food/vellum/pkg/api"
)

func jsParams(code string, keys ...string) *api.ScriptParams {
	return &api.ScriptParams{
		Language:  api.ScriptLangJS,
		Code:      code,
		InputKeys: keys,
		Context: api.ScriptContext{
			WorkflowID: "wf-1",
			RunID:      "run-1",
			Phase:      "run",
		},
	}
}

func TestExecuteJS(t *testing.T) {
	e := script.NewEngine()

	t.Run("emits_value", func(t *testing.T) {
		params := jsParams("emit(input.a + input.b);", "a", "b")
		params.Data = map[string]any{"a": 2, "b": 3}

		res := e.Execute(context.Background(), params)
		require.True(t, res.OK, res.Error)
		assert.EqualValues(t, 5, res.Output)
	})

	t.Run("emits_object", func(t *testing.T) {
		params := jsParams(`emit({total: 10, label: "ok"});`)
		res := e.Execute(context.Background(), params)
		require.True(t, res.OK, res.Error)

		obj, ok := res.Output.(map[string]any)
		require.True(t, ok)
		assert.Equal(t, "ok", obj["label"])
	})

	t.Run("missing_emit_is_error", func(t *testing.T) {
		res := e.Execute(context.Background(), jsParams("var x = 1;"))
		assert.False(t, res.OK)
		assert.Contains(t, res.Error, "emit")
	})

	t.Run("double_emit_is_error", func(t *testing.T) {
		res := e.Execute(
			context.Background(), jsParams("emit(1); emit(2);"),
		)
		assert.False(t, res.OK)
		assert.Contains(t, res.Error, "more than once")
	})

	t.Run("runtime_error_in_band", func(t *testing.T) {
		res := e.Execute(
			context.Background(), jsParams("emit(missing.property);"),
		)
		assert.False(t, res.OK)
		assert.NotEmpty(t, res.Error)
	})

	t.Run("context_is_exposed", func(t *testing.T) {
		res := e.Execute(
			context.Background(), jsParams("emit(context.runId);"),
		)
		require.True(t, res.OK, res.Error)
		assert.Equal(t, "run-1", res.Output)
	})
}

// Scripts written in current JavaScript run on the ES5 interpreter;
// block-scoped declarations must not surface as syntax errors
func TestExecuteModernDeclarations(t *testing.T) {
	e := script.NewEngine()

	t.Run("const_without_emit", func(t *testing.T) {
		res := e.Execute(context.Background(), jsParams("const x = 5;"))
		assert.False(t, res.OK)
		assert.Contains(t, res.Error, "emit")
	})

	t.Run("let_and_const_execute", func(t *testing.T) {
		res := e.Execute(context.Background(), jsParams(
			"let base = 2; const more = base * 3; emit(more);",
		))
		require.True(t, res.OK, res.Error)
		assert.EqualValues(t, 6, res.Output)
	})

	t.Run("string_literals_untouched", func(t *testing.T) {
		res := e.Execute(
			context.Background(), jsParams(`emit("let const");`),
		)
		require.True(t, res.OK, res.Error)
		assert.Equal(t, "let const", res.Output)
	})

	t.Run("comments_untouched", func(t *testing.T) {
		res := e.Execute(context.Background(), jsParams(
			"// const is fine here\nconst n = 1; emit(n);",
		))
		require.True(t, res.OK, res.Error)
		assert.EqualValues(t, 1, res.Output)
	})
}

func TestExecuteCancellation(t *testing.T) {
	e := script.NewEngine()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res := e.Execute(ctx, jsParams(`throw new Error("boom");`))
	assert.False(t, res.OK)
	assert.NotContains(t, res.Error, "Timeout")
}

// Only keys named by InputKeys reach the script. Everything else in the
// run's data is invisible, not just empty
func TestExecuteInputWhitelist(t *testing.T) {
	e := script.NewEngine()

	params := jsParams(
		"emit(typeof input.c === 'undefined');", "a", "b",
	)
	params.Data = map[string]any{"a": 1, "b": 2, "c": "secret"}

	res := e.Execute(context.Background(), params)
	require.True(t, res.OK, res.Error)
	assert.Equal(t, true, res.Output)
}

func TestExecuteTimeout(t *testing.T) {
	e := script.NewEngine()

	params := jsParams("while (true) {}")
	params.TimeoutMs = 100

	started := time.Now()
	res := e.Execute(context.Background(), params)
	assert.False(t, res.OK)
	assert.Contains(t, res.Error, "Timeout after 100ms")
	assert.Less(t, time.Since(started), 5*time.Second)
}

func TestExecuteConsoleCapture(t *testing.T) {
	e := script.NewEngine()

	t.Run("ordered_entries", func(t *testing.T) {
		params := jsParams(
			`console.log("first", 1); console.log("second"); emit(true);`,
		)
		params.ConsoleEnabled = true

		res := e.Execute(context.Background(), params)
		require.True(t, res.OK, res.Error)
		require.Len(t, res.ConsoleLogs, 2)
		require.Len(t, res.ConsoleLogs[0], 2)
		assert.Equal(t, "first", res.ConsoleLogs[0][0])
		assert.EqualValues(t, 1, res.ConsoleLogs[0][1])
		assert.Equal(t, []any{"second"}, res.ConsoleLogs[1])
	})

	t.Run("disabled_by_default", func(t *testing.T) {
		res := e.Execute(
			context.Background(), jsParams(`console.log("x"); emit(1);`),
		)
		require.True(t, res.OK, res.Error)
		assert.Empty(t, res.ConsoleLogs)
	})
}

func TestExecuteHelpers(t *testing.T) {
	e := script.NewEngine()

	t.Run("builtin_helper", func(t *testing.T) {
		res := e.Execute(
			context.Background(), jsParams(`emit(helpers.upper("abc"));`),
		)
		require.True(t, res.OK, res.Error)
		assert.Equal(t, "ABC", res.Output)
	})

	t.Run("caller_helper_wins", func(t *testing.T) {
		params := jsParams(`emit(helpers.upper);`)
		params.Helpers = map[string]any{"upper": "overridden"}

		res := e.Execute(context.Background(), params)
		require.True(t, res.OK, res.Error)
		assert.Equal(t, "overridden", res.Output)
	})
}

func TestExecuteUnsupportedLanguage(t *testing.T) {
	e := script.NewEngine()

	res := e.Execute(context.Background(), &api.ScriptParams{
		Language: "cobol",
		Code:     "DISPLAY 'HELLO'.",
	})
	assert.False(t, res.OK)
	assert.Contains(t, res.Error, "unsupported script language")
}

func TestValidate(t *testing.T) {
	e := script.NewEngine()

	t.Run("empty_code", func(t *testing.T) {
		v := e.Validate(jsParams("   "))
		assert.False(t, v.Valid)
		assert.Contains(t, v.Errors[0], "empty")
	})

	t.Run("oversized_code", func(t *testing.T) {
		v := e.Validate(jsParams(strings.Repeat("x", script.MaxCodeSize+1)))
		assert.False(t, v.Valid)
		assert.Contains(t, v.Errors[0], "byte limit")
	})

	t.Run("js_syntax_error", func(t *testing.T) {
		v := e.Validate(jsParams("function ("))
		assert.False(t, v.Valid)
		assert.NotEmpty(t, v.Errors)
	})

	t.Run("js_valid", func(t *testing.T) {
		v := e.Validate(jsParams("emit(1);"))
		assert.True(t, v.Valid)
		assert.Empty(t, v.Errors)
	})

	t.Run("js_modern_declarations_valid", func(t *testing.T) {
		v := e.Validate(jsParams("const x = 1; emit(x);"))
		assert.True(t, v.Valid)
		assert.Empty(t, v.Errors)
	})

	t.Run("configured_size_ceiling", func(t *testing.T) {
		small := script.NewEngine(script.WithMaxCodeSize(16))
		v := small.Validate(jsParams(strings.Repeat("x", 17)))
		assert.False(t, v.Valid)
		assert.Contains(t, v.Errors[0], "16 byte limit")
	})

	t.Run("python_missing_emit_warns", func(t *testing.T) {
		v := e.Validate(&api.ScriptParams{
			Language: api.ScriptLangPython,
			Code:     "x = 1",
		})
		assert.True(t, v.Valid)
		assert.NotEmpty(t, v.Warnings)
	})
}

func TestTestUsesSyntheticContext(t *testing.T) {
	e := script.NewEngine()

	res := e.Test(context.Background(), jsParams("emit(context.phase);"))
	require.True(t, res.OK, res.Error)
	assert.Equal(t, "test", res.Output)
}

func requirePython(t *testing.T) {
	t.Helper()
	if _, err := exec.LookPath("python3"); err != nil {
		t.Skip("python3 not available")
	}
}

func TestExecutePython(t *testing.T) {
	requirePython(t)
	e := script.NewEngine()

	t.Run("emits_value", func(t *testing.T) {
		res := e.Execute(context.Background(), &api.ScriptParams{
			Language:  api.ScriptLangPython,
			Code:      "emit(input['a'] * 2)",
			InputKeys: []string{"a"},
			Data:      map[string]any{"a": 21},
		})
		require.True(t, res.OK, res.Error)
		assert.EqualValues(t, 42, res.Output)
	})

	t.Run("missing_emit_is_error", func(t *testing.T) {
		res := e.Execute(context.Background(), &api.ScriptParams{
			Language: api.ScriptLangPython,
			Code:     "x = 1",
		})
		assert.False(t, res.OK)
		assert.Contains(t, res.Error, "emit")
	})

	t.Run("console_capture", func(t *testing.T) {
		res := e.Execute(context.Background(), &api.ScriptParams{
			Language:       api.ScriptLangPython,
			Code:           "console.log('hi')\nemit(1)",
			ConsoleEnabled: true,
		})
		require.True(t, res.OK, res.Error)
		require.Len(t, res.ConsoleLogs, 1)
		assert.Equal(t, []any{"hi"}, res.ConsoleLogs[0])
	})

	t.Run("timeout", func(t *testing.T) {
		res := e.Execute(context.Background(), &api.ScriptParams{
			Language:  api.ScriptLangPython,
			Code:      "while True:\n    pass",
			TimeoutMs: 200,
		})
		assert.False(t, res.OK)
		assert.Contains(t, res.Error, "Timeout")
	})
}
