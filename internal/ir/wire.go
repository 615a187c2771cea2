package ir

import (
	"errors"
	"fmt"
	"math"
)

// ErrUnencodable is returned when a tree holds a Constant whose value has no
// portable encoding. Only nil, bool, int64, float64 and string constants
// survive encoding; narrower numeric kinds would come back as a different
// Go type, so they are rejected rather than widened.
var ErrUnencodable = errors.New("constant value has no portable encoding")

// wireNode is the serialised shape of a Node, shared by the canonical JSON
// and msgpack encodings.
type wireNode struct {
	Kind     string      `msgpack:"k"`
	Name     string      `msgpack:"n,omitempty"`
	Type     TypeID      `msgpack:"t,omitempty"`
	Method   *wireMethod `msgpack:"m,omitempty"`
	Int      int64       `msgpack:"i,omitempty"`
	Float    *float64    `msgpack:"f,omitempty"`
	Str      string      `msgpack:"s,omitempty"`
	Const    any         `msgpack:"c"`
	Children []*wireNode `msgpack:"x,omitempty"`
}

type wireMethod struct {
	Owner  TypeID   `msgpack:"o"`
	Output TypeID   `msgpack:"r"`
	Name   string   `msgpack:"n"`
	Params []TypeID `msgpack:"p,omitempty"`
}

func toWireMethod(m Method) *wireMethod {
	return &wireMethod{Owner: m.owner, Output: m.output, Name: m.name, Params: m.params}
}

func (w *wireMethod) method() Method {
	return NewMethod(w.Owner, w.Output, w.Name, w.Params...)
}

// toWire converts a tree to its serialised shape.
func toWire(n Node) (*wireNode, error) {
	if n == nil {
		return nil, fmt.Errorf("nil node in tree")
	}
	w := &wireNode{Kind: n.Kind().String()}

	switch v := n.(type) {
	case InvokeStatic:
		w.Method = toWireMethod(v.Method)
	case Invoke:
		w.Method = toWireMethod(v.Method)
	case Load:
		w.Name = v.Name
	case IntegerLiteral:
		w.Int = v.Value
	case FloatLiteral:
		f := v.Value // a pointer keeps -0 from being dropped as empty
		w.Float = &f
	case StringLiteral:
		w.Str = v.Value
	case Constant:
		c, err := portableConstant(v.Value)
		if err != nil {
			return nil, err
		}
		w.Const = c
	case DeclareLocalVariable:
		w.Type = v.Type
		w.Name = v.Name
	case AssignToLocalVariable:
		w.Name = v.Name
	case TryCatch:
		w.Type = v.ExceptionType
		w.Name = v.Name
	case NullLiteral, TrueLiteral, FalseLiteral, ArrayLiteral, Ternary, Eq, NotEq,
		Block, Condition, Throw, BooleanAnd, BooleanOr, Not, IsNull:
		// children only
	default:
		return nil, fmt.Errorf("unknown node type %T", n)
	}

	for i, c := range Children(n) {
		cw, err := toWire(c)
		if err != nil {
			return nil, fmt.Errorf("%s[%d]: %w", w.Kind, i, err)
		}
		w.Children = append(w.Children, cw)
	}
	return w, nil
}

// fromWire rebuilds a tree, going through the DSL for every variant.
func fromWire(w *wireNode) (Node, error) {
	if w == nil {
		return nil, fmt.Errorf("nil node in encoding")
	}
	kind, ok := ParseKind(w.Kind)
	if !ok {
		return nil, fmt.Errorf("unknown node kind %q", w.Kind)
	}

	kids := make([]Node, len(w.Children))
	for i, cw := range w.Children {
		c, err := fromWire(cw)
		if err != nil {
			return nil, fmt.Errorf("%s[%d]: %w", w.Kind, i, err)
		}
		kids[i] = c
	}
	need := func(n int) error {
		if len(kids) != n {
			return fmt.Errorf("%s: expected %d children, got %d", w.Kind, n, len(kids))
		}
		return nil
	}
	needMethod := func() error {
		if w.Method == nil {
			return fmt.Errorf("%s: missing method descriptor", w.Kind)
		}
		return nil
	}

	switch kind {
	case KindInvokeStatic:
		if err := needMethod(); err != nil {
			return nil, err
		}
		return InvokeStaticN(w.Method.method(), kids...), nil
	case KindInvoke:
		if err := needMethod(); err != nil {
			return nil, err
		}
		if len(kids) == 0 {
			return nil, fmt.Errorf("%s: missing target", w.Kind)
		}
		return InvokeN(kids[0], w.Method.method(), kids[1:]...), nil
	case KindLoad:
		return LoadOf(w.Name), need(0)
	case KindIntegerLiteral:
		return Literal(w.Int), need(0)
	case KindFloatLiteral:
		if w.Float == nil {
			return nil, fmt.Errorf("%s: missing value", w.Kind)
		}
		return Literal(*w.Float), need(0)
	case KindStringLiteral:
		return Literal(w.Str), need(0)
	case KindConstant:
		c, err := decodedConstant(w.Const)
		if err != nil {
			return nil, err
		}
		return ConstantOf(c), need(0)
	case KindNullLiteral:
		return Null(), need(0)
	case KindTrueLiteral:
		return True(), need(0)
	case KindFalseLiteral:
		return False(), need(0)
	case KindArrayLiteral:
		return ArrayOf(kids...), nil
	case KindBlock:
		return BlockOf(kids...), nil
	case KindDeclareLocalVariable:
		return Declare(w.Type, w.Name), need(0)
	}

	switch kind {
	case KindTernary:
		if err := need(3); err != nil {
			return nil, err
		}
		return TernaryOf(kids[0], kids[1], kids[2]), nil
	case KindAssignToLocalVariable, KindThrow, KindNot, KindIsNull:
		if err := need(1); err != nil {
			return nil, err
		}
		switch kind {
		case KindAssignToLocalVariable:
			return Assign(w.Name, kids[0]), nil
		case KindThrow:
			return ThrowOf(kids[0]), nil
		case KindNot:
			return NotOf(kids[0]), nil
		default:
			return IsNullOf(kids[0]), nil
		}
	}

	if err := need(2); err != nil {
		return nil, err
	}
	switch kind {
	case KindEq:
		return Equal(kids[0], kids[1]), nil
	case KindNotEq:
		return NotEqual(kids[0], kids[1]), nil
	case KindCondition:
		return ConditionOf(kids[0])(kids[1]), nil
	case KindTryCatch:
		return TryCatchOf(kids[0], kids[1], w.Type, w.Name), nil
	case KindBooleanAnd:
		return And(kids[0], kids[1]), nil
	case KindBooleanOr:
		return Or(kids[0], kids[1]), nil
	default:
		return nil, fmt.Errorf("unhandled node kind %s", kind)
	}
}

// portableConstant checks that a constant value survives encoding with its
// Go type intact.
func portableConstant(v any) (any, error) {
	switch x := v.(type) {
	case nil, bool, int64, float64, string:
		return x, nil
	default:
		return nil, fmt.Errorf("constant of type %T: %w", v, ErrUnencodable)
	}
}

// decodedConstant maps a decoded msgpack value back onto the portable kinds.
func decodedConstant(v any) (any, error) {
	if x, ok := v.(uint64); ok {
		if x > math.MaxInt64 {
			return nil, fmt.Errorf("constant %d overflows int64: %w", x, ErrUnencodable)
		}
		return int64(x), nil
	}
	return portableConstant(v)
}
