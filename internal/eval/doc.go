// Package eval implements the expression and condition evaluator
//
// Expressions are compiled with expr-lang and cached. Condition trees are
// evaluated by a pure recursive walk with short-circuit combinators and a
// closed operator table
package eval
