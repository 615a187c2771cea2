// Package lower turns IR trees into executable evaluators.
//
// It defines the lowering contract every backend must honour and ships the
// reference backend, Compiler, which lowers a tree once into a graph of Go
// closures. All semantic validation happens here, once per expression:
//
//   - Load and AssignToLocalVariable names must resolve through the scope
//     stack (UNBOUND_VARIABLE)
//   - invocation descriptors must match the argument count and resolve in the
//     method table with the right static/instance flavour (SIGNATURE_MISMATCH)
//   - every variant must be supported by the backend (UNSUPPORTED_OPERATION)
//
// Lowering is all-or-nothing: either the whole tree lowers or an *Error is
// returned and no evaluator exists.
//
// EVALUATION ORDER:
//
// Children are evaluated left to right as written in the tree. Ternary,
// BooleanAnd and BooleanOr short-circuit; Condition and TryCatch evaluate
// their second operand only on their triggering outcome. Evaluation order is
// observable because calls and throws have side effects, so backends must not
// reorder.
//
// CONCURRENCY:
//
// A Compiler may lower independent trees from many goroutines. An Evaluator
// is immutable; each Eval call allocates its own frame of local slots, so one
// evaluator may be invoked concurrently and reentrantly.
package lower
