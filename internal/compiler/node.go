package compiler

import (
	"fmt"

	"cuelang.org/go/cue"

	"github.com/roach88/exprgen/internal/ir"
	"github.com/roach88/exprgen/internal/rt"
)

// node compiles one CUE value into an IR node.
//
// Scalars stand for themselves: 1 is an IntegerLiteral, 1.5 a FloatLiteral,
// "s" a StringLiteral, true/false/null the matching literal and a list an
// ArrayLiteral. Everything else is a struct with exactly one key naming the
// variant:
//
//	{load: "x"}
//	{ternary: {cond: <node>, then: <node>, else: <node>}}
//	{condition: {cond: <node>, then: <node>}}
//	{block: [<node>, ...]}
//	{declare: {name: "x", type: "Int"}}
//	{assign: {name: "x", value: <node>}}
//	{try: {body: <node>, catch: "MyError", as: "e", handler: <node>}}
//	{call: {method: "Math.add", args: [<node>, ...]}}
//	{invoke: {target: <node>, method: "String.concat", args: [<node>, ...]}}
//	{exception: {type: "MyError", message: "boom"}}
//
// Binary operators (eq, neq, and, or) take a two-element list; unary ones
// (not, isNull, throw) take a node.
func (p *Program) node(field string, v cue.Value) (ir.Node, error) {
	if err := v.Err(); err != nil {
		return nil, cueError(field, err)
	}

	switch v.IncompleteKind() {
	case cue.IntKind:
		n, err := v.Int64()
		if err != nil {
			return nil, cueError(field, err)
		}
		return ir.Literal(n), nil
	case cue.FloatKind:
		f, err := v.Float64()
		if err != nil {
			return nil, cueError(field, err)
		}
		return ir.Literal(f), nil
	case cue.StringKind:
		s, err := v.String()
		if err != nil {
			return nil, cueError(field, err)
		}
		return ir.Literal(s), nil
	case cue.BoolKind:
		b, err := v.Bool()
		if err != nil {
			return nil, cueError(field, err)
		}
		return ir.Bool(b), nil
	case cue.NullKind:
		return ir.Null(), nil
	case cue.ListKind:
		values, err := p.nodeList(field, v)
		if err != nil {
			return nil, err
		}
		return ir.ArrayOf(values...), nil
	case cue.StructKind:
		return p.variant(field, v)
	default:
		return nil, &CompileError{
			Field:   field,
			Message: fmt.Sprintf("expression must be concrete, got %v", v.IncompleteKind()),
			Pos:     v.Pos(),
		}
	}
}

func (p *Program) variant(field string, v cue.Value) (ir.Node, error) {
	iter, err := v.Fields()
	if err != nil {
		return nil, cueError(field, err)
	}
	var key string
	var arg cue.Value
	count := 0
	for iter.Next() {
		key = labelOf(iter)
		arg = iter.Value()
		count++
	}
	if count != 1 {
		return nil, &CompileError{
			Field:   field,
			Message: fmt.Sprintf("node must have exactly one key naming its variant, got %d", count),
			Pos:     v.Pos(),
		}
	}
	at := field + "." + key

	switch key {
	case "int":
		n, err := arg.Int64()
		if err != nil {
			return nil, cueError(at, err)
		}
		return ir.Literal(n), nil
	case "float":
		f, err := arg.Float64()
		if err != nil {
			return nil, cueError(at, err)
		}
		return ir.Literal(f), nil
	case "string":
		s, err := arg.String()
		if err != nil {
			return nil, cueError(at, err)
		}
		return ir.Literal(s), nil
	case "null":
		return ir.Null(), nil
	case "true":
		return ir.True(), nil
	case "false":
		return ir.False(), nil

	case "load":
		name, err := arg.String()
		if err != nil {
			return nil, cueError(at, err)
		}
		return ir.LoadOf(name), nil

	case "array":
		values, err := p.nodeList(at, arg)
		if err != nil {
			return nil, err
		}
		return ir.ArrayOf(values...), nil

	case "block":
		ops, err := p.nodeList(at, arg)
		if err != nil {
			return nil, err
		}
		return ir.BlockOf(ops...), nil

	case "eq", "neq", "and", "or":
		lhs, rhs, err := p.pair(at, arg)
		if err != nil {
			return nil, err
		}
		switch key {
		case "eq":
			return ir.Equal(lhs, rhs), nil
		case "neq":
			return ir.NotEqual(lhs, rhs), nil
		case "and":
			return ir.And(lhs, rhs), nil
		default:
			return ir.Or(lhs, rhs), nil
		}

	case "not", "isNull", "throw":
		operand, err := p.node(at, arg)
		if err != nil {
			return nil, err
		}
		switch key {
		case "not":
			return ir.NotOf(operand), nil
		case "isNull":
			return ir.IsNullOf(operand), nil
		default:
			return ir.ThrowOf(operand), nil
		}

	case "ternary":
		cond, err := p.member(at, arg, "cond")
		if err != nil {
			return nil, err
		}
		onTrue, err := p.member(at, arg, "then")
		if err != nil {
			return nil, err
		}
		onFalse, err := p.member(at, arg, "else")
		if err != nil {
			return nil, err
		}
		return ir.TernaryOf(cond, onTrue, onFalse), nil

	case "condition":
		test, err := p.member(at, arg, "cond")
		if err != nil {
			return nil, err
		}
		onTrue, err := p.member(at, arg, "then")
		if err != nil {
			return nil, err
		}
		return ir.ConditionOf(test)(onTrue), nil

	case "declare":
		name, err := stringField(at, arg, "name")
		if err != nil {
			return nil, err
		}
		typ, err := p.typeField(at, arg, "type")
		if err != nil {
			return nil, err
		}
		return ir.Declare(typ, name), nil

	case "assign":
		name, err := stringField(at, arg, "name")
		if err != nil {
			return nil, err
		}
		value, err := p.member(at, arg, "value")
		if err != nil {
			return nil, err
		}
		return ir.Assign(name, value), nil

	case "try":
		body, err := p.member(at, arg, "body")
		if err != nil {
			return nil, err
		}
		catchType, err := p.typeField(at, arg, "catch")
		if err != nil {
			return nil, err
		}
		name, err := stringField(at, arg, "as")
		if err != nil {
			return nil, err
		}
		handler, err := p.member(at, arg, "handler")
		if err != nil {
			return nil, err
		}
		return ir.TryCatchOf(body, handler, catchType, name), nil

	case "call", "invoke":
		return p.call(at, key == "invoke", arg)

	case "exception":
		typ, err := p.typeField(at, arg, "type")
		if err != nil {
			return nil, err
		}
		if !p.Registry.Assignable(typ, ir.TypeError) {
			return nil, &CompileError{
				Field:   at + ".type",
				Message: fmt.Sprintf("%s is not an exception type", p.Registry.Name(typ)),
				Pos:     arg.Pos(),
			}
		}
		msg, err := stringField(at, arg, "message")
		if err != nil {
			return nil, err
		}
		return ir.ConstantOf(&rt.Exception{Type: typ, Message: msg}), nil
	}

	return nil, &CompileError{
		Field:   at,
		Message: fmt.Sprintf("unknown node variant %q", key),
		Pos:     v.Pos(),
	}
}

func (p *Program) call(field string, virtual bool, v cue.Value) (ir.Node, error) {
	alias, err := stringField(field, v, "method")
	if err != nil {
		return nil, err
	}
	ref, ok := p.Methods[alias]
	if !ok {
		return nil, &CompileError{
			Field:   field + ".method",
			Message: fmt.Sprintf("unknown method %q", alias),
			Pos:     v.Pos(),
		}
	}

	var args []ir.Node
	if av := v.LookupPath(cue.ParsePath("args")); av.Exists() {
		if args, err = p.nodeList(field+".args", av); err != nil {
			return nil, err
		}
	}

	if !virtual {
		return ir.InvokeStaticN(ref.Method, args...), nil
	}
	target, err := p.member(field, v, "target")
	if err != nil {
		return nil, err
	}
	return ir.InvokeN(target, ref.Method, args...), nil
}

func (p *Program) nodeList(field string, v cue.Value) ([]ir.Node, error) {
	list, err := v.List()
	if err != nil {
		return nil, &CompileError{Field: field, Message: "expected a list of nodes", Pos: v.Pos()}
	}
	var out []ir.Node
	for i := 0; list.Next(); i++ {
		n, err := p.node(fmt.Sprintf("%s[%d]", field, i), list.Value())
		if err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, nil
}

func (p *Program) pair(field string, v cue.Value) (ir.Node, ir.Node, error) {
	nodes, err := p.nodeList(field, v)
	if err != nil {
		return nil, nil, err
	}
	if len(nodes) != 2 {
		return nil, nil, &CompileError{
			Field:   field,
			Message: fmt.Sprintf("expected two operands, got %d", len(nodes)),
			Pos:     v.Pos(),
		}
	}
	return nodes[0], nodes[1], nil
}

func (p *Program) member(field string, v cue.Value, key string) (ir.Node, error) {
	mv := v.LookupPath(cue.MakePath(cue.Str(key)))
	if !mv.Exists() {
		return nil, &CompileError{Field: field + "." + key, Message: key + " is required", Pos: v.Pos()}
	}
	return p.node(field+"."+key, mv)
}

func stringField(field string, v cue.Value, key string) (string, error) {
	sv := v.LookupPath(cue.MakePath(cue.Str(key)))
	if !sv.Exists() {
		return "", &CompileError{Field: field + "." + key, Message: key + " is required", Pos: v.Pos()}
	}
	s, err := sv.String()
	if err != nil {
		return "", cueError(field+"."+key, err)
	}
	return s, nil
}
