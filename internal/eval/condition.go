package eval

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/kode4food/vellum/pkg/api"
)

type (
	operatorFunc func(left, right any) (bool, error)

	// condScope carries the vars and a lazily built JSON document used
	// for nested path lookups during one condition evaluation
	condScope struct {
		vars api.Vars
		doc  string
		err  error
		norm bool
	}
)

var (
	ErrUnknownOperator  = errors.New("unknown operator")
	ErrPredicateOperand = errors.New("predicate operand missing")
	ErrNormalizeVars    = errors.New("failed to normalize vars")
)

var operators = map[api.Operator]operatorFunc{
	api.OpEquals:      opEquals,
	api.OpNotEquals:   opNotEquals,
	api.OpGt:          opGt,
	api.OpGte:         opGte,
	api.OpLt:          opLt,
	api.OpLte:         opLte,
	api.OpContains:    opContains,
	api.OpNotContains: opNotContains,
	api.OpEmpty:       opEmpty,
	api.OpNotEmpty:    opNotEmpty,
}

// EvaluateCondition recursively evaluates a condition tree against vars.
// The and/or combinators short-circuit: once the result is determined the
// remaining children are never evaluated. Evaluation is deterministic for
// a fixed (tree, vars) pair
func (e *Evaluator) EvaluateCondition(
	cond *api.Condition, vars api.Vars,
) (bool, error) {
	scope := &condScope{vars: vars}
	return evaluate(cond, scope)
}

func evaluate(cond *api.Condition, scope *condScope) (bool, error) {
	kind, err := cond.Kind()
	if err != nil {
		return false, err
	}

	switch kind {
	case api.ConditionAnd:
		for _, child := range cond.And {
			ok, err := evaluate(child, scope)
			if err != nil {
				return false, err
			}
			if !ok {
				return false, nil
			}
		}
		return true, nil

	case api.ConditionOr:
		for _, child := range cond.Or {
			ok, err := evaluate(child, scope)
			if err != nil {
				return false, err
			}
			if ok {
				return true, nil
			}
		}
		return false, nil

	case api.ConditionNot:
		ok, err := evaluate(cond.Not, scope)
		if err != nil {
			return false, err
		}
		return !ok, nil

	default:
		return evaluatePredicate(cond, scope)
	}
}

func evaluatePredicate(cond *api.Condition, scope *condScope) (bool, error) {
	op, ok := operators[cond.Op]
	if !ok {
		return false, fmt.Errorf("%w: %s", ErrUnknownOperator, cond.Op)
	}

	left, err := resolveOperand(cond.Left, scope)
	if err != nil {
		return false, err
	}

	// Unary operators carry no right operand
	if cond.Op == api.OpEmpty || cond.Op == api.OpNotEmpty {
		return op(left, nil)
	}

	right, err := resolveOperand(cond.Right, scope)
	if err != nil {
		return false, err
	}
	return op(left, right)
}

// resolveOperand returns the operand's value. An absent variable resolves
// to nil rather than failing; unanswered questions are routine in intake
// conditions and the operators treat nil explicitly
func resolveOperand(o *api.Operand, scope *condScope) (any, error) {
	if o == nil {
		return nil, ErrPredicateOperand
	}
	if o.Type == api.OperandValue {
		return o.Value, nil
	}

	if !strings.Contains(o.Path, ".") {
		value, ok := scope.vars[api.Name(o.Path)]
		if !ok {
			return nil, nil
		}
		return value, nil
	}

	doc, err := scope.document()
	if err != nil {
		return nil, err
	}
	result := gjson.Get(doc, o.Path)
	if !result.Exists() {
		return nil, nil
	}
	return result.Value(), nil
}

func (s *condScope) document() (string, error) {
	if s.norm {
		return s.doc, s.err
	}
	s.norm = true

	data, err := json.Marshal(s.vars.ToStringMap())
	if err != nil {
		s.err = fmt.Errorf("%w: %w", ErrNormalizeVars, err)
		return "", s.err
	}
	s.doc = string(data)
	return s.doc, nil
}
