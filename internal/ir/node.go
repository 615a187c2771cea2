package ir

import "slices"

// Node is a single operation in an expression tree.
//
// This is a sealed interface - only types in this package implement it.
// Backends must switch over every variant; AllKinds lists the closed set so
// tests can assert that a backend covers it.
//
// Example:
//
//	switch n := node.(type) {
//	case Block:
//	    // lower n.Ops in order
//	case Load:
//	    // resolve n.Name in the scope stack
//	default:
//	    // unsupported variant
//	}
type Node interface {
	irNode() // Marker method - seals interface to this package
	Kind() Kind
}

// Kind names a Node variant.
type Kind uint8

// Variant kinds, in declaration order.
const (
	KindInvalid Kind = iota
	KindInvokeStatic
	KindInvoke
	KindLoad
	KindIntegerLiteral
	KindFloatLiteral
	KindStringLiteral
	KindConstant
	KindNullLiteral
	KindTrueLiteral
	KindFalseLiteral
	KindArrayLiteral
	KindTernary
	KindEq
	KindNotEq
	KindBlock
	KindCondition
	KindDeclareLocalVariable
	KindAssignToLocalVariable
	KindTryCatch
	KindThrow
	KindBooleanAnd
	KindBooleanOr
	KindNot
	KindIsNull
	kindCount
)

var kindNames = [kindCount]string{
	KindInvalid:               "Invalid",
	KindInvokeStatic:          "InvokeStatic",
	KindInvoke:                "Invoke",
	KindLoad:                  "Load",
	KindIntegerLiteral:        "IntegerLiteral",
	KindFloatLiteral:          "FloatLiteral",
	KindStringLiteral:         "StringLiteral",
	KindConstant:              "Constant",
	KindNullLiteral:           "NullLiteral",
	KindTrueLiteral:           "TrueLiteral",
	KindFalseLiteral:          "FalseLiteral",
	KindArrayLiteral:          "ArrayLiteral",
	KindTernary:               "Ternary",
	KindEq:                    "Eq",
	KindNotEq:                 "NotEq",
	KindBlock:                 "Block",
	KindCondition:             "Condition",
	KindDeclareLocalVariable:  "DeclareLocalVariable",
	KindAssignToLocalVariable: "AssignToLocalVariable",
	KindTryCatch:              "TryCatch",
	KindThrow:                 "Throw",
	KindBooleanAnd:            "BooleanAnd",
	KindBooleanOr:             "BooleanOr",
	KindNot:                   "Not",
	KindIsNull:                "IsNull",
}

func (k Kind) String() string {
	if k >= kindCount {
		return "Invalid"
	}
	return kindNames[k]
}

// ParseKind maps a variant name back to its Kind.
func ParseKind(name string) (Kind, bool) {
	for k := KindInvokeStatic; k < kindCount; k++ {
		if kindNames[k] == name {
			return k, true
		}
	}
	return KindInvalid, false
}

// AllKinds returns every valid variant kind.
func AllKinds() []Kind {
	kinds := make([]Kind, 0, kindCount-1)
	for k := KindInvokeStatic; k < kindCount; k++ {
		kinds = append(kinds, k)
	}
	return kinds
}

// InvokeStatic calls a method with no receiver.
type InvokeStatic struct {
	Method Method
	Args   []Node
}

// Invoke calls a method on the value of Target.
type Invoke struct {
	Target Node
	Method Method
	Args   []Node
}

// Load reads a previously declared local binding.
type Load struct {
	Name string
}

// IntegerLiteral is an integral constant.
type IntegerLiteral struct {
	Value int64
}

// FloatLiteral is a floating-point constant.
type FloatLiteral struct {
	Value float64
}

// StringLiteral is a textual constant.
type StringLiteral struct {
	Value string
}

// Constant embeds an opaque host value. The backend yields it unchanged.
type Constant struct {
	Value any
}

// NullLiteral yields the target runtime's null.
type NullLiteral struct{}

// TrueLiteral yields the target runtime's true.
type TrueLiteral struct{}

// FalseLiteral yields the target runtime's false.
type FalseLiteral struct{}

// ArrayLiteral yields a fixed-size collection of its evaluated elements,
// in order.
type ArrayLiteral struct {
	Values []Node
}

// Ternary evaluates Condition, then exactly one of OnTrue or OnFalse.
type Ternary struct {
	Condition Node
	OnTrue    Node
	OnFalse   Node
}

// Eq compares both operands for equality. Both sides are always evaluated.
type Eq struct {
	Lhs Node
	Rhs Node
}

// NotEq is the negation of Eq.
type NotEq struct {
	Lhs Node
	Rhs Node
}

// Block evaluates Ops in order and yields the value of the last one.
// Declarations inside a block are visible until the block ends.
type Block struct {
	Ops []Node
}

// Condition evaluates OnTrue for its side effects when Test holds.
// It produces no value.
type Condition struct {
	Test   Node
	OnTrue Node
}

// DeclareLocalVariable introduces a binding initialised to the default
// value of Type.
type DeclareLocalVariable struct {
	Type TypeID
	Name string
}

// AssignToLocalVariable stores the value of Value into the nearest
// enclosing binding called Name.
type AssignToLocalVariable struct {
	Name  string
	Value Node
}

// TryCatch evaluates Ops; an error assignable to ExceptionType is bound to
// Name and OnError is evaluated instead.
type TryCatch struct {
	Ops           Node
	OnError       Node
	ExceptionType TypeID
	Name          string
}

// Throw raises the value of Error.
type Throw struct {
	Error Node
}

// BooleanAnd evaluates Rhs only when Lhs is true.
type BooleanAnd struct {
	Lhs Node
	Rhs Node
}

// BooleanOr evaluates Rhs only when Lhs is false.
type BooleanOr struct {
	Lhs Node
	Rhs Node
}

// Not negates a boolean operand.
type Not struct {
	Operand Node
}

// IsNull tests whether the operand is the runtime's null.
type IsNull struct {
	Operand Node
}

func (InvokeStatic) irNode()          {}
func (Invoke) irNode()                {}
func (Load) irNode()                  {}
func (IntegerLiteral) irNode()        {}
func (FloatLiteral) irNode()          {}
func (StringLiteral) irNode()         {}
func (Constant) irNode()              {}
func (NullLiteral) irNode()           {}
func (TrueLiteral) irNode()           {}
func (FalseLiteral) irNode()          {}
func (ArrayLiteral) irNode()          {}
func (Ternary) irNode()               {}
func (Eq) irNode()                    {}
func (NotEq) irNode()                 {}
func (Block) irNode()                 {}
func (Condition) irNode()             {}
func (DeclareLocalVariable) irNode()  {}
func (AssignToLocalVariable) irNode() {}
func (TryCatch) irNode()              {}
func (Throw) irNode()                 {}
func (BooleanAnd) irNode()            {}
func (BooleanOr) irNode()             {}
func (Not) irNode()                   {}
func (IsNull) irNode()                {}

func (InvokeStatic) Kind() Kind          { return KindInvokeStatic }
func (Invoke) Kind() Kind                { return KindInvoke }
func (Load) Kind() Kind                  { return KindLoad }
func (IntegerLiteral) Kind() Kind        { return KindIntegerLiteral }
func (FloatLiteral) Kind() Kind          { return KindFloatLiteral }
func (StringLiteral) Kind() Kind         { return KindStringLiteral }
func (Constant) Kind() Kind              { return KindConstant }
func (NullLiteral) Kind() Kind           { return KindNullLiteral }
func (TrueLiteral) Kind() Kind           { return KindTrueLiteral }
func (FalseLiteral) Kind() Kind          { return KindFalseLiteral }
func (ArrayLiteral) Kind() Kind          { return KindArrayLiteral }
func (Ternary) Kind() Kind               { return KindTernary }
func (Eq) Kind() Kind                    { return KindEq }
func (NotEq) Kind() Kind                 { return KindNotEq }
func (Block) Kind() Kind                 { return KindBlock }
func (Condition) Kind() Kind             { return KindCondition }
func (DeclareLocalVariable) Kind() Kind  { return KindDeclareLocalVariable }
func (AssignToLocalVariable) Kind() Kind { return KindAssignToLocalVariable }
func (TryCatch) Kind() Kind              { return KindTryCatch }
func (Throw) Kind() Kind                 { return KindThrow }
func (BooleanAnd) Kind() Kind            { return KindBooleanAnd }
func (BooleanOr) Kind() Kind             { return KindBooleanOr }
func (Not) Kind() Kind                   { return KindNot }
func (IsNull) Kind() Kind                { return KindIsNull }

// KindOf returns the kind of n, or KindInvalid for nil.
func KindOf(n Node) Kind {
	if n == nil {
		return KindInvalid
	}
	return n.Kind()
}

// Children returns the direct child nodes of n in evaluation order. The
// slice is a fresh copy; changing it leaves n untouched.
func Children(n Node) []Node {
	switch v := n.(type) {
	case InvokeStatic:
		return slices.Clone(v.Args)
	case Invoke:
		return append([]Node{v.Target}, v.Args...)
	case ArrayLiteral:
		return slices.Clone(v.Values)
	case Ternary:
		return []Node{v.Condition, v.OnTrue, v.OnFalse}
	case Eq:
		return []Node{v.Lhs, v.Rhs}
	case NotEq:
		return []Node{v.Lhs, v.Rhs}
	case Block:
		return slices.Clone(v.Ops)
	case Condition:
		return []Node{v.Test, v.OnTrue}
	case AssignToLocalVariable:
		return []Node{v.Value}
	case TryCatch:
		return []Node{v.Ops, v.OnError}
	case Throw:
		return []Node{v.Error}
	case BooleanAnd:
		return []Node{v.Lhs, v.Rhs}
	case BooleanOr:
		return []Node{v.Lhs, v.Rhs}
	case Not:
		return []Node{v.Operand}
	case IsNull:
		return []Node{v.Operand}
	default:
		return nil
	}
}

// Walk visits n and its descendants in pre-order. Returning false from fn
// skips the children of the visited node.
func Walk(n Node, fn func(Node) bool) {
	if n == nil || !fn(n) {
		return
	}
	for _, c := range Children(n) {
		Walk(c, fn)
	}
}

// Count returns the number of nodes in the tree rooted at n.
// Shared subtrees are counted once per occurrence.
func Count(n Node) int {
	total := 0
	Walk(n, func(Node) bool {
		total++
		return true
	})
	return total
}
