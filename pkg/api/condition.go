package api

import "errors"

type (
	// ConditionKind discriminates the variants of a condition tree node
	ConditionKind string

	// Operator names a comparison applied by a predicate
	Operator string

	// OperandType discriminates variable references from literal values
	OperandType string

	// Condition is a recursive tagged union: either a predicate comparing
	// two operands, or a combinator over child conditions. Exactly one
	// variant is populated
	Condition struct {
		Left  *Operand     `json:"left,omitempty"`
		Right *Operand     `json:"right,omitempty"`
		Not   *Condition   `json:"not,omitempty"`
		Op    Operator     `json:"op,omitempty"`
		And   []*Condition `json:"and,omitempty"`
		Or    []*Condition `json:"or,omitempty"`
	}

	// Operand is one side of a predicate: a variable path into the run's
	// variables or a literal value
	Operand struct {
		Value any         `json:"value,omitempty"`
		Type  OperandType `json:"type"`
		Path  string      `json:"path,omitempty"`
	}
)

const (
	ConditionPredicate ConditionKind = "predicate"
	ConditionAnd       ConditionKind = "and"
	ConditionOr        ConditionKind = "or"
	ConditionNot       ConditionKind = "not"

	OpEquals      Operator = "equals"
	OpNotEquals   Operator = "notEquals"
	OpGt          Operator = "gt"
	OpGte         Operator = "gte"
	OpLt          Operator = "lt"
	OpLte         Operator = "lte"
	OpContains    Operator = "contains"
	OpNotContains Operator = "notContains"
	OpEmpty       Operator = "empty"
	OpNotEmpty    Operator = "notEmpty"

	OperandVariable OperandType = "variable"
	OperandValue    OperandType = "value"
)

var ErrConditionMalformed = errors.New("condition has no recognizable variant")

// Kind reports which variant of the tagged union this condition is. A
// condition with no populated variant returns an error
func (c *Condition) Kind() (ConditionKind, error) {
	switch {
	case len(c.And) > 0:
		return ConditionAnd, nil
	case len(c.Or) > 0:
		return ConditionOr, nil
	case c.Not != nil:
		return ConditionNot, nil
	case c.Op != "":
		return ConditionPredicate, nil
	default:
		return "", ErrConditionMalformed
	}
}

// Predicate builds a predicate condition comparing two operands
func Predicate(op Operator, left, right *Operand) *Condition {
	return &Condition{Op: op, Left: left, Right: right}
}

// And builds a conjunction over the given conditions
func And(conds ...*Condition) *Condition {
	return &Condition{And: conds}
}

// Or builds a disjunction over the given conditions
func Or(conds ...*Condition) *Condition {
	return &Condition{Or: conds}
}

// Not builds a negation of the given condition
func Not(cond *Condition) *Condition {
	return &Condition{Not: cond}
}

// Variable builds an operand referencing a variable by path
func Variable(path string) *Operand {
	return &Operand{Type: OperandVariable, Path: path}
}

// Value builds a literal operand
func Value(v any) *Operand {
	return &Operand{Type: OperandValue, Value: v}
}
