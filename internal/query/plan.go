package query

import (
	"github.com/ternstore/ternstore/internal/term"
)

// Plan is an immutable query plan tree built by an external planner.
// Variables maps slot indexes to names; slot bounds are the planner's
// responsibility.
type Plan struct {
	Entrypoint Node
	Variables  []string
}

// VariableIndex returns the slot of a named variable
func (p Plan) VariableIndex(name string) (int, bool) {
	for i, v := range p.Variables {
		if v == name {
			return i, true
		}
	}
	return 0, false
}

// Node is one of the five plan node kinds
type Node interface {
	planNode()
}

// TriplePatternNode matches stored triples against a pattern of
// constants and variable slots.
type TriplePatternNode struct {
	Subject   PatternValue[term.Subject]
	Predicate PatternValue[term.Node]
	Object    PatternValue[term.Object]
}

// ForLoopJoinNode re-evaluates the right sub-plan once per left
// solution, feeding it the left bindings as input.
type ForLoopJoinNode struct {
	Left  Node
	Right Node
}

// CartesianProductJoinNode evaluates the right sub-plan once,
// materializes it, and pairs every left solution against the
// materialized set.
type CartesianProductJoinNode struct {
	Left  Node
	Right Node
}

// SkipNode discards the first First produced elements
type SkipNode struct {
	Child Node
	First int
}

// LimitNode truncates the stream after First elements
type LimitNode struct {
	Child Node
	First int
}

func (TriplePatternNode) planNode()        {}
func (ForLoopJoinNode) planNode()          {}
func (CartesianProductJoinNode) planNode() {}
func (SkipNode) planNode()                 {}
func (LimitNode) planNode()                {}

// PatternValue is either a constant term value or a reference to a
// variable slot.
type PatternValue[T any] struct {
	constant T
	variable int
	isVar    bool
}

// Constant builds a constant pattern value
func Constant[T any](v T) PatternValue[T] {
	return PatternValue[T]{constant: v}
}

// Variable builds a pattern value referencing a variable slot
func Variable[T any](slot int) PatternValue[T] {
	return PatternValue[T]{variable: slot, isVar: true}
}

// Constant returns the constant value when the pattern value is one
func (p PatternValue[T]) Constant() (T, bool) {
	return p.constant, !p.isVar
}

// Slot returns the variable slot when the pattern value is one
func (p PatternValue[T]) Slot() (int, bool) {
	return p.variable, p.isVar
}
