package ir

import "slices"

// This file is the construction DSL: the supported way to build trees.
// Every builder copies the slices it is handed, so the caller may reuse its
// buffers and the resulting tree stays immutable.

// Fixed-arity descriptors. The arity lives in the Go type, so an
// InvokeStatic2 call site cannot be handed a one-parameter method.
type (
	// Static0 is a static method descriptor taking no arguments.
	Static0 struct{ Method Method }
	// Static1 is a static method descriptor taking one argument.
	Static1 struct{ Method Method }
	// Static2 is a static method descriptor taking two arguments.
	Static2 struct{ Method Method }
	// Static3 is a static method descriptor taking three arguments.
	Static3 struct{ Method Method }

	// Virtual0 is an instance method descriptor taking no arguments.
	Virtual0 struct{ Method Method }
	// Virtual1 is an instance method descriptor taking one argument.
	Virtual1 struct{ Method Method }
	// Virtual2 is an instance method descriptor taking two arguments.
	Virtual2 struct{ Method Method }
	// Virtual3 is an instance method descriptor taking three arguments.
	Virtual3 struct{ Method Method }
)

// StaticMethod0 describes a static method with no parameters.
func StaticMethod0(owner, output TypeID, name string) Static0 {
	return Static0{NewMethod(owner, output, name)}
}

// StaticMethod1 describes a static method with one parameter.
func StaticMethod1(owner, output TypeID, name string, p1 TypeID) Static1 {
	return Static1{NewMethod(owner, output, name, p1)}
}

// StaticMethod2 describes a static method with two parameters.
func StaticMethod2(owner, output TypeID, name string, p1, p2 TypeID) Static2 {
	return Static2{NewMethod(owner, output, name, p1, p2)}
}

// StaticMethod3 describes a static method with three parameters.
func StaticMethod3(owner, output TypeID, name string, p1, p2, p3 TypeID) Static3 {
	return Static3{NewMethod(owner, output, name, p1, p2, p3)}
}

// Method0 describes an instance method with no parameters.
func Method0(owner, output TypeID, name string) Virtual0 {
	return Virtual0{NewMethod(owner, output, name)}
}

// Method1 describes an instance method with one parameter.
func Method1(owner, output TypeID, name string, p1 TypeID) Virtual1 {
	return Virtual1{NewMethod(owner, output, name, p1)}
}

// Method2 describes an instance method with two parameters.
func Method2(owner, output TypeID, name string, p1, p2 TypeID) Virtual2 {
	return Virtual2{NewMethod(owner, output, name, p1, p2)}
}

// Method3 describes an instance method with three parameters.
func Method3(owner, output TypeID, name string, p1, p2, p3 TypeID) Virtual3 {
	return Virtual3{NewMethod(owner, output, name, p1, p2, p3)}
}

// InvokeStatic0 calls a no-argument static method.
func InvokeStatic0(m Static0) Node {
	return InvokeStatic{Method: m.Method}
}

// InvokeStatic1 calls a one-argument static method.
func InvokeStatic1(m Static1, a1 Node) Node {
	return InvokeStatic{Method: m.Method, Args: []Node{a1}}
}

// InvokeStatic2 calls a two-argument static method.
func InvokeStatic2(m Static2, a1, a2 Node) Node {
	return InvokeStatic{Method: m.Method, Args: []Node{a1, a2}}
}

// InvokeStatic3 calls a three-argument static method.
func InvokeStatic3(m Static3, a1, a2, a3 Node) Node {
	return InvokeStatic{Method: m.Method, Args: []Node{a1, a2, a3}}
}

// InvokeStaticN calls a static method with any number of arguments.
// Arity is not checked here; a mismatch fails lowering with SignatureMismatch.
func InvokeStaticN(m Method, args ...Node) Node {
	return InvokeStatic{Method: m, Args: slices.Clone(args)}
}

// Invoke0 calls a no-argument method on target.
func Invoke0(target Node, m Virtual0) Node {
	return Invoke{Target: target, Method: m.Method}
}

// Invoke1 calls a one-argument method on target.
func Invoke1(target Node, m Virtual1, a1 Node) Node {
	return Invoke{Target: target, Method: m.Method, Args: []Node{a1}}
}

// Invoke2 calls a two-argument method on target.
func Invoke2(target Node, m Virtual2, a1, a2 Node) Node {
	return Invoke{Target: target, Method: m.Method, Args: []Node{a1, a2}}
}

// Invoke3 calls a three-argument method on target.
func Invoke3(target Node, m Virtual3, a1, a2, a3 Node) Node {
	return Invoke{Target: target, Method: m.Method, Args: []Node{a1, a2, a3}}
}

// InvokeN calls an instance method with any number of arguments.
// Arity is not checked here; a mismatch fails lowering with SignatureMismatch.
func InvokeN(target Node, m Method, args ...Node) Node {
	return Invoke{Target: target, Method: m, Args: slices.Clone(args)}
}

// Scalar is the set of host value categories Literal accepts.
// uint, uint64 and uintptr are excluded: they do not all fit an int64.
type Scalar interface {
	int | int8 | int16 | int32 | int64 |
		uint8 | uint16 | uint32 |
		float32 | float64 |
		string
}

// Literal picks the constant variant matching the category of v:
// integral values become IntegerLiteral, floating-point values FloatLiteral,
// strings StringLiteral.
func Literal[T Scalar](v T) Node {
	switch x := any(v).(type) {
	case int:
		return IntegerLiteral{Value: int64(x)}
	case int8:
		return IntegerLiteral{Value: int64(x)}
	case int16:
		return IntegerLiteral{Value: int64(x)}
	case int32:
		return IntegerLiteral{Value: int64(x)}
	case int64:
		return IntegerLiteral{Value: x}
	case uint8:
		return IntegerLiteral{Value: int64(x)}
	case uint16:
		return IntegerLiteral{Value: int64(x)}
	case uint32:
		return IntegerLiteral{Value: int64(x)}
	case float32:
		return FloatLiteral{Value: float64(x)}
	case float64:
		return FloatLiteral{Value: x}
	case string:
		return StringLiteral{Value: x}
	}
	panic("unreachable: Scalar constraint admitted an unhandled type")
}

// ConstantOf embeds an opaque host value.
func ConstantOf(v any) Node {
	return Constant{Value: v}
}

// Null yields the runtime's null.
func Null() Node { return NullLiteral{} }

// True yields the runtime's true.
func True() Node { return TrueLiteral{} }

// False yields the runtime's false.
func False() Node { return FalseLiteral{} }

// Bool yields True() or False().
func Bool(b bool) Node {
	if b {
		return TrueLiteral{}
	}
	return FalseLiteral{}
}

// ArrayOf builds a fixed-size array literal, preserving element order.
func ArrayOf(values ...Node) Node {
	return ArrayLiteral{Values: slices.Clone(values)}
}

// TernaryOf chooses between onTrue and onFalse.
func TernaryOf(condition, onTrue, onFalse Node) Node {
	return Ternary{Condition: condition, OnTrue: onTrue, OnFalse: onFalse}
}

// Equal compares lhs and rhs.
func Equal(lhs, rhs Node) Node {
	return Eq{Lhs: lhs, Rhs: rhs}
}

// NotEqual compares lhs and rhs for inequality.
func NotEqual(lhs, rhs Node) Node {
	return NotEq{Lhs: lhs, Rhs: rhs}
}

// BlockOf sequences ops. It always yields a Block, even for a single op.
func BlockOf(ops ...Node) Block {
	return Block{Ops: slices.Clone(ops)}
}

// ConditionOf is the curried one-armed conditional:
//
//	ir.ConditionOf(test)(onTrue)
func ConditionOf(test Node) func(onTrue Node) Node {
	return func(onTrue Node) Node {
		return Condition{Test: test, OnTrue: onTrue}
	}
}

// Declare introduces a local binding of typ called name.
func Declare(typ TypeID, name string) Node {
	return DeclareLocalVariable{Type: typ, Name: name}
}

// Assign stores value into the binding called name.
func Assign(name string, value Node) Node {
	return AssignToLocalVariable{Name: name, Value: value}
}

// LoadOf reads the binding called name.
func LoadOf(name string) Node {
	return Load{Name: name}
}

// TryCatchOf runs ops, handing errors assignable to exceptionType to onError
// under the binding name.
func TryCatchOf(ops, onError Node, exceptionType TypeID, name string) Node {
	return TryCatch{Ops: ops, OnError: onError, ExceptionType: exceptionType, Name: name}
}

// ThrowOf raises the value of err.
func ThrowOf(err Node) Node {
	return Throw{Error: err}
}

// And is the short-circuit conjunction.
func And(lhs, rhs Node) Node {
	return BooleanAnd{Lhs: lhs, Rhs: rhs}
}

// Or is the short-circuit disjunction.
func Or(lhs, rhs Node) Node {
	return BooleanOr{Lhs: lhs, Rhs: rhs}
}

// NotOf negates operand.
func NotOf(operand Node) Node {
	return Not{Operand: operand}
}

// IsNullOf tests operand against null.
func IsNullOf(operand Node) Node {
	return IsNull{Operand: operand}
}
