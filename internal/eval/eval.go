package eval

import (
	"errors"
	"fmt"
	"time"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/ast"
	"github.com/expr-lang/expr/parser"
	"github.com/expr-lang/expr/vm"

	"github.com/kode4food/vellum/pkg/api"
	"github.com/kode4food/vellum/pkg/util"
)

type (
	// Evaluator resolves expressions and condition trees against a run's
	// variables. Compiled programs are cached by source text
	Evaluator struct {
		programs *util.LRUCache[*vm.Program]
		clock    Clock
	}

	// Clock supplies the current time for time-dependent expressions
	Clock func() time.Time

	// Option configures an Evaluator
	Option func(*Evaluator)

	identCollector struct {
		seen   util.Set[string]
		idents []string
	}
)

const programCacheSize = 4096

var (
	ErrExpressionParse   = errors.New("expression parse error")
	ErrUnknownIdentifier = errors.New("unknown identifier")
	ErrExpressionRun     = errors.New("expression evaluation error")
)

// builtinNames are identifiers the expression language resolves without a
// variable binding. They never count as graph-produced outputs
var builtinNames = util.SetOf(
	"abs", "all", "any", "ceil", "count", "date", "duration", "filter",
	"first", "float", "floor", "indexOf", "int", "join", "keys", "last",
	"len", "lower", "map", "max", "mean", "median", "min", "none", "now",
	"one", "repeat", "replace", "round", "sort", "split", "string", "sum",
	"take", "timezone", "trim", "trimPrefix", "trimSuffix", "type", "upper",
	"values",
)

// NewEvaluator creates an expression evaluator with a compiled-program
// cache and the system clock
func NewEvaluator(opts ...Option) *Evaluator {
	e := &Evaluator{
		programs: util.NewLRUCache[*vm.Program](programCacheSize),
		clock:    time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// WithClock overrides the evaluator's time source for deterministic,
// test-reproducible time-dependent expressions
func WithClock(clock Clock) Option {
	return func(e *Evaluator) {
		e.clock = clock
	}
}

// WithCacheSize overrides the compiled-program cache capacity
func WithCacheSize(size int) Option {
	return func(e *Evaluator) {
		e.programs = util.NewLRUCache[*vm.Program](size)
	}
}

// Resolve evaluates an arithmetic, string, or function-call expression
// against vars. Any identifier vars does not bind fails with an error
// naming the exact offending token
func (e *Evaluator) Resolve(src string, vars api.Vars) (any, error) {
	idents, err := ExtractIdentifiers(src)
	if err != nil {
		return nil, err
	}
	for _, name := range idents {
		if _, ok := vars[api.Name(name)]; !ok {
			return nil, fmt.Errorf("%w: %s", ErrUnknownIdentifier, name)
		}
	}

	program, err := e.compile(src)
	if err != nil {
		return nil, err
	}

	result, err := vm.Run(program, e.environment(vars))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrExpressionRun, err)
	}
	return result, nil
}

// ExtractIdentifiers parses an expression and returns every referenced
// identifier that is not a language builtin, in first-appearance order
func ExtractIdentifiers(src string) ([]string, error) {
	tree, err := parser.Parse(src)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrExpressionParse, err)
	}

	c := &identCollector{seen: util.Set[string]{}}
	ast.Walk(&tree.Node, c)
	return c.idents, nil
}

func (e *Evaluator) compile(src string) (*vm.Program, error) {
	return e.programs.Get(src, func() (*vm.Program, error) {
		program, err := expr.Compile(src,
			expr.DisableBuiltin("now"),
			expr.Function("now", func(...any) (any, error) {
				return e.clock(), nil
			}),
		)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrExpressionParse, err)
		}
		return program, nil
	})
}

func (e *Evaluator) environment(vars api.Vars) map[string]any {
	env := make(map[string]any, len(vars))
	for name, value := range vars {
		env[string(name)] = value
	}
	return env
}

func (c *identCollector) Visit(node *ast.Node) {
	id, ok := (*node).(*ast.IdentifierNode)
	if !ok {
		return
	}
	if builtinNames.Contains(id.Value) || c.seen.Contains(id.Value) {
		return
	}
	c.seen.Add(id.Value)
	c.idents = append(c.idents, id.Value)
}
