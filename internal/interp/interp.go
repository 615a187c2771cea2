// Package interp is a direct tree-walking interpreter for IR trees.
//
// It shares no code with the closure backend beyond the runtime and serves
// as its differential oracle: for any tree, both must agree on the result
// value, the raised exception, or the lowering error code.
//
// Unlike the closure backend, the interpreter keeps variables in a chain of
// environments that is built while evaluating. Static validation is a
// separate pass (Validate) run before every evaluation, so unbound names are
// still reported before anything executes.
package interp

import (
	"fmt"
	"log/slog"

	"github.com/roach88/exprgen/internal/ir"
	"github.com/roach88/exprgen/internal/lower"
	"github.com/roach88/exprgen/internal/rt"
)

// Interpreter evaluates trees directly.
//
// Thread-safety: safe for concurrent use; every evaluation owns its
// environment chain.
type Interpreter struct {
	registry *ir.Registry
	methods  *rt.Methods
	logger   *slog.Logger
}

// New creates an interpreter over reg and table.
func New(reg *ir.Registry, table *rt.Methods, logger *slog.Logger) *Interpreter {
	if logger == nil {
		logger = slog.Default()
	}
	return &Interpreter{registry: reg, methods: table, logger: logger}
}

// Eval validates node, then evaluates it with args bound to params.
func (in *Interpreter) Eval(node ir.Node, params []lower.Param, args ...rt.Value) (rt.Value, error) {
	if len(args) != len(params) {
		return nil, fmt.Errorf("%w: want %d, got %d", lower.ErrArgumentCount, len(params), len(args))
	}
	if err := in.Validate(node, params...); err != nil {
		return nil, err
	}
	root := newEnv(nil)
	for i, p := range params {
		root.declare(p.Name, args[i])
	}
	in.logger.Debug("interpreting expression", "nodes", ir.Count(node))
	return in.eval(root, node)
}

// env is one level of the variable chain.
type env struct {
	vars   map[string]*rt.Value
	parent *env
}

func newEnv(parent *env) *env {
	return &env{vars: make(map[string]*rt.Value), parent: parent}
}

func (e *env) declare(name string, v rt.Value) {
	e.vars[name] = &v
}

func (e *env) lookup(name string) (*rt.Value, bool) {
	for cur := e; cur != nil; cur = cur.parent {
		if p, ok := cur.vars[name]; ok {
			return p, true
		}
	}
	return nil, false
}

func (in *Interpreter) eval(e *env, n ir.Node) (rt.Value, error) {
	switch v := n.(type) {
	case ir.IntegerLiteral:
		return v.Value, nil
	case ir.FloatLiteral:
		return v.Value, nil
	case ir.StringLiteral:
		return v.Value, nil
	case ir.Constant:
		return v.Value, nil
	case ir.NullLiteral:
		return nil, nil
	case ir.TrueLiteral:
		return true, nil
	case ir.FalseLiteral:
		return false, nil

	case ir.ArrayLiteral:
		return in.evalAll(e, v.Values)

	case ir.Load:
		p, ok := e.lookup(v.Name)
		if !ok {
			return nil, lower.NewUnboundVariable(ir.KindLoad, v.Name, "")
		}
		return *p, nil

	case ir.DeclareLocalVariable:
		e.declare(v.Name, rt.Default(v.Type))
		return nil, nil

	case ir.AssignToLocalVariable:
		p, ok := e.lookup(v.Name)
		if !ok {
			return nil, lower.NewUnboundVariable(ir.KindAssignToLocalVariable, v.Name, "")
		}
		val, err := in.eval(e, v.Value)
		if err != nil {
			return nil, err
		}
		*p = val
		return nil, nil

	case ir.Block:
		inner := newEnv(e)
		var last rt.Value
		for _, op := range v.Ops {
			val, err := in.eval(inner, op)
			if err != nil {
				return nil, err
			}
			last = val
		}
		return last, nil

	case ir.InvokeStatic:
		callee, _ := in.methods.Resolve(v.Method)
		args, err := in.evalAll(e, v.Args)
		if err != nil {
			return nil, err
		}
		return callee.Call(nil, args)

	case ir.Invoke:
		callee, _ := in.methods.Resolve(v.Method)
		recv, err := in.eval(e, v.Target)
		if err != nil {
			return nil, err
		}
		args, err := in.evalAll(e, v.Args)
		if err != nil {
			return nil, err
		}
		return callee.Call(recv, args)

	case ir.Ternary:
		ok, err := in.test(e, v.Condition)
		if err != nil {
			return nil, err
		}
		if ok {
			return in.eval(newEnv(e), v.OnTrue)
		}
		return in.eval(newEnv(e), v.OnFalse)

	case ir.Condition:
		ok, err := in.test(e, v.Test)
		if err != nil || !ok {
			return nil, err
		}
		_, err = in.eval(newEnv(e), v.OnTrue)
		return nil, err

	case ir.Eq, ir.NotEq:
		lhs, rhs, negate := operands(v)
		a, err := in.eval(e, lhs)
		if err != nil {
			return nil, err
		}
		b, err := in.eval(e, rhs)
		if err != nil {
			return nil, err
		}
		return rt.Equal(a, b) != negate, nil

	case ir.BooleanAnd:
		a, err := in.test(e, v.Lhs)
		if err != nil || !a {
			return false, err
		}
		return in.test(newEnv(e), v.Rhs)

	case ir.BooleanOr:
		a, err := in.test(e, v.Lhs)
		if err != nil {
			return false, err
		}
		if a {
			return true, nil
		}
		return in.test(newEnv(e), v.Rhs)

	case ir.Not:
		a, err := in.test(e, v.Operand)
		if err != nil {
			return nil, err
		}
		return !a, nil

	case ir.IsNull:
		val, err := in.eval(e, v.Operand)
		if err != nil {
			return nil, err
		}
		return val == nil, nil

	case ir.Throw:
		val, err := in.eval(e, v.Error)
		if err != nil {
			return nil, err
		}
		return nil, rt.Throwable(val)

	case ir.TryCatch:
		val, err := in.eval(newEnv(e), v.Ops)
		if err == nil {
			return val, nil
		}
		if !rt.Matches(in.registry, err, v.ExceptionType) {
			return nil, err
		}
		handler := newEnv(e)
		handler.declare(v.Name, rt.AsException(err))
		return in.eval(handler, v.OnError)
	}
	return nil, lower.NewUnsupported(ir.KindOf(n), "")
}

func operands(n ir.Node) (lhs, rhs ir.Node, negate bool) {
	switch v := n.(type) {
	case ir.Eq:
		return v.Lhs, v.Rhs, false
	case ir.NotEq:
		return v.Lhs, v.Rhs, true
	}
	return nil, nil, false
}

func (in *Interpreter) evalAll(e *env, nodes []ir.Node) ([]rt.Value, error) {
	out := make([]rt.Value, len(nodes))
	for i, n := range nodes {
		val, err := in.eval(e, n)
		if err != nil {
			return nil, err
		}
		out[i] = val
	}
	return out, nil
}

func (in *Interpreter) test(e *env, n ir.Node) (bool, error) {
	val, err := in.eval(e, n)
	if err != nil {
		return false, err
	}
	ok, err := rt.Truthy(val)
	if err != nil {
		return false, &rt.Exception{Type: ir.TypeError, Message: fmt.Sprintf("%T used as a condition", val), Cause: err}
	}
	return ok, nil
}
