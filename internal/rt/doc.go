// Package rt is the reference target runtime that lowered evaluators run
// against: its value representation, its throwable exceptions, equality and
// default-value rules, and the method table that invocation nodes resolve
// their descriptors in.
//
// Value representation:
//
//	null      nil
//	boolean   bool
//	integer   int64
//	float     float64
//	string    string
//	array     []Value
//	exception *Exception
//
// Any other Go value may flow through Constant nodes and method calls; it is
// tagged TypeObject.
package rt
