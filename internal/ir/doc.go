// Package ir provides the intermediate representation that compiled query
// expressions are built in before a backend lowers them to an evaluator.
//
// This package contains data definitions only. All other internal packages
// import ir; ir imports nothing internal. Trees are pure values: they never
// execute, they are never mutated after construction, and any subtree may be
// shared between parents.
//
// Key design constraints:
//   - Node is a sealed interface; every consumer switches exhaustively over Kind
//   - Trees are built through the DSL in dsl.go, never by hand
//   - Construction never fails; scope, signature and type checks belong to lowering
//   - Type tags are opaque TypeID values from a Registry, never reflective metadata
package ir
