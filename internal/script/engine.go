package script

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/kode4food/vellum/pkg/api"
	"github.com/kode4food/vellum/pkg/log"
)

type (
	// Engine executes caller-authored scripts in isolated per-call
	// contexts. Each invocation gets a fresh interpreter or subprocess;
	// concurrent calls share no mutable state
	Engine struct {
		envs           map[string]environment
		defaultTimeout time.Duration
		maxCodeSize    int
	}

	// environment is a single language backend. Boundary concerns are
	// the Engine's; a backend only runs code and checks syntax
	environment interface {
		// Run executes the invocation and reports the emitted value(s)
		// and captured console entries
		Run(ctx context.Context, inv *invocation) (*outcome, error)

		// Check statically validates code, returning warnings for
		// conditions that cannot be rejected outright
		Check(code string) ([]string, error)
	}

	// Option configures an Engine
	Option func(*Engine)

	// invocation is the prepared, whitelisted view of one script call
	invocation struct {
		input   map[string]any
		context map[string]any
		helpers map[string]any
		console *consoleSink
		code    string
	}

	// outcome reports what a backend observed during one run
	outcome struct {
		value     any
		emitCount int
	}

	consoleSink struct {
		mu      sync.Mutex
		entries [][]any
	}
)

const (
	// DefaultTimeout bounds script execution when the caller does not
	DefaultTimeout = 5 * time.Second

	// interruptGrace is how long the engine waits for a backend to honor
	// an interrupt before abandoning it and returning to the caller
	interruptGrace = 500 * time.Millisecond

	// MaxCodeSize is the default static validation ceiling for script
	// source
	MaxCodeSize = 32 * 1024

	testWorkflowID = "test-workflow"
	testRunID      = "test-run"
	testPhase      = "test"
)

var (
	ErrUnsupportedLanguage = errors.New("unsupported script language")
)

// NewEngine creates a script engine with JavaScript and Python backends
func NewEngine(opts ...Option) *Engine {
	e := &Engine{
		envs: map[string]environment{
			api.ScriptLangJS:     newJSEnv(),
			api.ScriptLangPython: newPythonEnv(),
		},
		defaultTimeout: DefaultTimeout,
		maxCodeSize:    MaxCodeSize,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// WithDefaultTimeout overrides the timeout applied when params omit one
func WithDefaultTimeout(d time.Duration) Option {
	return func(e *Engine) {
		e.defaultTimeout = d
	}
}

// WithMaxCodeSize overrides the static validation ceiling for script
// source
func WithMaxCodeSize(size int) Option {
	return func(e *Engine) {
		e.maxCodeSize = size
	}
}

// WithPythonBin overrides the interpreter used by the Python backend
func WithPythonBin(bin string) Option {
	return func(e *Engine) {
		e.envs[api.ScriptLangPython] = newPythonEnvWithBin(bin)
	}
}

// Execute runs the script described by params and never returns an error;
// every outcome, including interpreter failures and timeouts, is reported
// in-band on the result
func (e *Engine) Execute(
	ctx context.Context, params *api.ScriptParams,
) *api.ScriptResult {
	started := time.Now()

	env, ok := e.envs[params.Language]
	if !ok {
		return failure(started, fmt.Sprintf(
			"%s: %s", ErrUnsupportedLanguage, params.Language,
		))
	}

	timeout := e.timeoutFor(params)
	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	inv := newInvocation(params)
	out, err := e.runBounded(runCtx, env, inv)

	result := &api.ScriptResult{
		DurationMs: time.Since(started).Milliseconds(),
	}
	if inv.console != nil {
		result.ConsoleLogs = inv.console.snapshot()
	}

	switch {
	case errors.Is(err, context.DeadlineExceeded):
		result.Error = fmt.Sprintf(
			"Timeout after %dms", timeout.Milliseconds(),
		)
	case err != nil:
		result.Error = err.Error()
	case out.emitCount == 0:
		result.Error = "Script completed without calling emit()"
	case out.emitCount > 1:
		result.Error = "emit() called more than once"
	default:
		result.OK = true
		result.Output = out.value
	}

	if !result.OK {
		slog.Debug("Script execution failed",
			log.Language(params.Language),
			log.ErrorString(result.Error))
	}
	return result
}

// Validate performs static-only authoring-time checks: empty or oversized
// code is rejected, JavaScript is syntax-checked, and Python (which cannot
// be parsed in-process) warns when no emit call is apparent
func (e *Engine) Validate(params *api.ScriptParams) *api.ScriptValidation {
	v := &api.ScriptValidation{Valid: true}

	env, ok := e.envs[params.Language]
	if !ok {
		v.Valid = false
		v.Errors = append(v.Errors, fmt.Sprintf(
			"%s: %s", ErrUnsupportedLanguage, params.Language,
		))
		return v
	}

	if strings.TrimSpace(params.Code) == "" {
		v.Valid = false
		v.Errors = append(v.Errors, "Script code is empty")
		return v
	}
	if len(params.Code) > e.maxCodeSize {
		v.Valid = false
		v.Errors = append(v.Errors, fmt.Sprintf(
			"Script code exceeds %d byte limit", e.maxCodeSize,
		))
		return v
	}

	warnings, err := env.Check(params.Code)
	if err != nil {
		v.Valid = false
		v.Errors = append(v.Errors, err.Error())
	}
	v.Warnings = append(v.Warnings, warnings...)
	return v
}

// Test wraps Execute with a fixed synthetic context for authoring-time
// previews
func (e *Engine) Test(
	ctx context.Context, params *api.ScriptParams,
) *api.ScriptResult {
	preview := *params
	preview.Context = api.ScriptContext{
		WorkflowID: testWorkflowID,
		RunID:      testRunID,
		Phase:      testPhase,
	}
	return e.Execute(ctx, &preview)
}

// runBounded executes the backend on its own goroutine so that a backend
// stuck past its interrupt window still returns control to the caller
// within the grace period
func (e *Engine) runBounded(
	ctx context.Context, env environment, inv *invocation,
) (*outcome, error) {
	var (
		out *outcome
		err error
	)
	done := make(chan struct{})
	go func() {
		defer close(done)
		out, err = env.Run(ctx, inv)
	}()

	select {
	case <-done:
		// Only deadline expiry maps to the timeout message; a cancelled
		// parent context must not mask a genuine script error
		if errors.Is(ctx.Err(), context.DeadlineExceeded) && err != nil {
			return nil, context.DeadlineExceeded
		}
		return out, err
	case <-ctx.Done():
		select {
		case <-done:
		case <-time.After(interruptGrace):
		}
		return nil, ctx.Err()
	}
}

func (e *Engine) timeoutFor(params *api.ScriptParams) time.Duration {
	if params.TimeoutMs > 0 {
		return time.Duration(params.TimeoutMs) * time.Millisecond
	}
	return e.defaultTimeout
}

// newInvocation projects the whitelisted inputs and read-only context for
// one call. Only keys named by InputKeys are exposed; this is a capability
// whitelist, not a convenience
func newInvocation(params *api.ScriptParams) *invocation {
	input := make(map[string]any, len(params.InputKeys))
	for _, key := range params.InputKeys {
		if value, ok := params.Data[key]; ok {
			input[key] = value
		}
	}

	inv := &invocation{
		code:  params.Code,
		input: input,
		context: map[string]any{
			"workflowId": params.Context.WorkflowID,
			"runId":      params.Context.RunID,
			"phase":      params.Context.Phase,
		},
		helpers: params.Helpers,
	}
	if params.ConsoleEnabled {
		inv.console = &consoleSink{}
	}
	return inv
}

func failure(started time.Time, msg string) *api.ScriptResult {
	return &api.ScriptResult{
		Error:      msg,
		DurationMs: time.Since(started).Milliseconds(),
	}
}

func (s *consoleSink) record(args []any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = append(s.entries, args)
}

func (s *consoleSink) snapshot() [][]any {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([][]any, len(s.entries))
	copy(out, s.entries)
	return out
}
