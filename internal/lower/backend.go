package lower

import (
	"fmt"

	"github.com/roach88/exprgen/internal/ir"
	"github.com/roach88/exprgen/internal/rt"
)

// Param declares an evaluator parameter. Parameters form the outermost
// scope, so a tree may Load them by name.
type Param struct {
	Name string
	Type ir.TypeID
}

// Backend lowers IR trees into evaluators.
//
// Implementations must satisfy the lowering contract:
//   - children are evaluated left to right
//   - Ternary, BooleanAnd and BooleanOr evaluate only the chosen operand
//   - Throw raises its value and only a TryCatch whose exception type accepts
//     it handles it; anything else propagates unchanged
//   - a failing lowering returns an *Error and no evaluator
//   - lowering the same tree twice yields evaluators with identical behaviour
type Backend interface {
	// Name returns the backend identifier (e.g., "closure").
	Name() string

	// Lower validates node and produces an evaluator for it.
	Lower(node ir.Node, params ...Param) (*Evaluator, error)
}

// evalFn is one lowered node.
type evalFn func(f *frame) (rt.Value, error)

// frame is the per-call storage for local slots.
type frame struct {
	slots []rt.Value
}

// Evaluator is the executable form of a lowered tree.
// It is immutable and safe for concurrent and reentrant use.
type Evaluator struct {
	root   evalFn
	params []Param
	slots  int
	hash   string
}

// Eval runs the expression. args bind to the declared parameters in order.
// A returned *rt.Exception (or any other error) is an uncaught throw or a
// runtime failure of a called method.
func (e *Evaluator) Eval(args ...rt.Value) (rt.Value, error) {
	if len(args) != len(e.params) {
		return nil, fmt.Errorf("%w: want %d, got %d", ErrArgumentCount, len(e.params), len(args))
	}
	f := &frame{slots: make([]rt.Value, e.slots)}
	copy(f.slots, args)
	return e.root(f)
}

// Params returns a copy of the declared parameters.
func (e *Evaluator) Params() []Param {
	out := make([]Param, len(e.params))
	copy(out, e.params)
	return out
}

// Slots returns the frame size each evaluation allocates.
func (e *Evaluator) Slots() int {
	return e.slots
}

// TreeHash returns the content hash of the lowered tree, or "" when the tree
// holds constants that have no canonical encoding.
func (e *Evaluator) TreeHash() string {
	return e.hash
}
