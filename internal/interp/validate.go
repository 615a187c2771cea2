package interp

import (
	"fmt"

	"github.com/roach88/exprgen/internal/ir"
	"github.com/roach88/exprgen/internal/lower"
)

// Validate checks node against the same static rules the closure backend
// enforces: names resolve lexically, descriptors resolve in the method table
// with matching arity and flavour, and no child is nil.
func (in *Interpreter) Validate(node ir.Node, params ...lower.Param) error {
	names := []map[string]bool{{}}
	for _, p := range params {
		names[0][p.Name] = true
	}
	v := &validator{in: in, names: names}
	return v.check(node)
}

type validator struct {
	in    *Interpreter
	names []map[string]bool
}

func (v *validator) push() { v.names = append(v.names, map[string]bool{}) }
func (v *validator) pop()  { v.names = v.names[:len(v.names)-1] }

func (v *validator) declare(name string) {
	v.names[len(v.names)-1][name] = true
}

func (v *validator) bound(name string) bool {
	for i := len(v.names) - 1; i >= 0; i-- {
		if v.names[i][name] {
			return true
		}
	}
	return false
}

func (v *validator) check(n ir.Node) error {
	if n == nil {
		return &lower.Error{Code: lower.ErrCodeUnsupportedOperation, Message: "nil node"}
	}
	switch x := n.(type) {
	case ir.Load:
		if !v.bound(x.Name) {
			return lower.NewUnboundVariable(ir.KindLoad, x.Name, "")
		}
		return nil
	case ir.DeclareLocalVariable:
		v.declare(x.Name)
		return nil
	case ir.AssignToLocalVariable:
		if !v.bound(x.Name) {
			return lower.NewUnboundVariable(ir.KindAssignToLocalVariable, x.Name, "")
		}
		return v.check(x.Value)
	case ir.Block:
		v.push()
		defer v.pop()
		return v.checkAll(x.Ops)
	case ir.Ternary:
		if err := v.check(x.Condition); err != nil {
			return err
		}
		if err := v.branch(x.OnTrue); err != nil {
			return err
		}
		return v.branch(x.OnFalse)
	case ir.Condition:
		if err := v.check(x.Test); err != nil {
			return err
		}
		return v.branch(x.OnTrue)
	case ir.BooleanAnd:
		if err := v.check(x.Lhs); err != nil {
			return err
		}
		return v.branch(x.Rhs)
	case ir.BooleanOr:
		if err := v.check(x.Lhs); err != nil {
			return err
		}
		return v.branch(x.Rhs)
	case ir.TryCatch:
		if err := v.branch(x.Ops); err != nil {
			return err
		}
		v.push()
		defer v.pop()
		v.declare(x.Name)
		return v.check(x.OnError)
	case ir.InvokeStatic:
		if err := v.method(ir.KindInvokeStatic, x.Method, len(x.Args), true); err != nil {
			return err
		}
		return v.checkAll(x.Args)
	case ir.Invoke:
		if err := v.method(ir.KindInvoke, x.Method, len(x.Args), false); err != nil {
			return err
		}
		if err := v.check(x.Target); err != nil {
			return err
		}
		return v.checkAll(x.Args)
	}
	return v.checkAll(ir.Children(n))
}

// branch checks an operand that may not run in a frame of its own.
func (v *validator) branch(n ir.Node) error {
	v.push()
	defer v.pop()
	return v.check(n)
}

func (v *validator) checkAll(nodes []ir.Node) error {
	for _, c := range nodes {
		if err := v.check(c); err != nil {
			return err
		}
	}
	return nil
}

func (v *validator) method(kind ir.Kind, m ir.Method, argc int, static bool) error {
	if m.Arity() != argc {
		return lower.NewSignatureMismatch(kind, m, "",
			fmt.Sprintf("descriptor declares %d parameters, call passes %d arguments", m.Arity(), argc))
	}
	callee, ok := v.in.methods.Resolve(m)
	if !ok {
		return lower.NewSignatureMismatch(kind, m, "", "no callable")
	}
	if callee.Static != static {
		return lower.NewSignatureMismatch(kind, m, "", "wrong call flavour")
	}
	return nil
}
