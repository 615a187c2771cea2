package compiler

import (
	"fmt"
	"maps"
	"sort"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/token"

	"github.com/roach88/exprgen/internal/ir"
	"github.com/roach88/exprgen/internal/lower"
	"github.com/roach88/exprgen/internal/rt"
)

// MethodRef is a method descriptor reachable by alias from CUE sources.
type MethodRef struct {
	Method ir.Method
	Static bool
}

// Expression is one compiled entry of a program.
type Expression struct {
	Name   string
	Params []lower.Param
	Root   ir.Node
	Pos    token.Pos
}

// Program is the result of compiling a CUE source: the declared types (now
// registered), the method aliases in scope and the expressions in
// declaration order.
type Program struct {
	Registry    *ir.Registry
	Methods     map[string]MethodRef
	Expressions []Expression
}

// Expression returns the expression called name.
func (p *Program) Expression(name string) (*Expression, bool) {
	for i := range p.Expressions {
		if p.Expressions[i].Name == name {
			return &p.Expressions[i], true
		}
	}
	return nil, false
}

// MethodNames returns the method aliases in sorted order.
func (p *Program) MethodNames() []string {
	names := make([]string, 0, len(p.Methods))
	for name := range p.Methods {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// BuiltinMethods returns the library descriptors keyed "Owner.name".
func BuiltinMethods(reg *ir.Registry, lib *rt.Library) map[string]MethodRef {
	statics := []ir.Method{
		lib.Add.Method, lib.Sub.Method, lib.Mul.Method, lib.Lt.Method, lib.Gt.Method,
		lib.ToFloat.Method, lib.NewError.Method, lib.Fail.Method,
	}
	virtuals := []ir.Method{
		lib.Concat.Method, lib.Length.Method, lib.Upper.Method,
		lib.ArrayLength.Method, lib.ArrayGet.Method,
	}
	out := make(map[string]MethodRef, len(statics)+len(virtuals))
	for _, m := range statics {
		out[reg.Name(m.Owner())+"."+m.Name()] = MethodRef{Method: m, Static: true}
	}
	for _, m := range virtuals {
		out[reg.Name(m.Owner())+"."+m.Name()] = MethodRef{Method: m}
	}
	return out
}

// CompileString compiles CUE source text. filename is used for positions.
func CompileString(src, filename string, reg *ir.Registry, lib *rt.Library) (*Program, error) {
	return CompileStringWith(src, filename, reg, BuiltinMethods(reg, lib))
}

// CompileStringWith is CompileString with an explicit set of method aliases.
func CompileStringWith(src, filename string, reg *ir.Registry, methods map[string]MethodRef) (*Program, error) {
	ctx := cuecontext.New()
	v := ctx.CompileString(src, cue.Filename(filename))
	return CompileWith(v, reg, methods)
}

// Compile parses a CUE value into a Program.
// Uses CUE SDK's Go API directly (not CLI subprocess).
//
// The value holds up to three top-level fields:
//
//	types: MyError: "Error"               // name: supertype, registered in order
//	methods: "Geo.dist": {owner: "Geo", output: "Float", params: ["Float"], static: true}
//	expressions: double: {
//		params: n: "Int"
//		body: call: {method: "Math.mul", args: [{load: "n"}, {load: "n"}]}
//	}
//
// Builtin library methods are always in scope under "Owner.name".
func Compile(v cue.Value, reg *ir.Registry, lib *rt.Library) (*Program, error) {
	return CompileWith(v, reg, BuiltinMethods(reg, lib))
}

// CompileWith compiles v with methods as the aliases in scope before the
// source's own methods section. The map is not modified.
func CompileWith(v cue.Value, reg *ir.Registry, methods map[string]MethodRef) (*Program, error) {
	if err := v.Err(); err != nil {
		return nil, cueError("cue", err)
	}

	p := &Program{Registry: reg, Methods: maps.Clone(methods)}
	if p.Methods == nil {
		p.Methods = map[string]MethodRef{}
	}

	if err := p.compileTypes(v.LookupPath(cue.ParsePath("types"))); err != nil {
		return nil, err
	}
	if err := p.compileMethods(v.LookupPath(cue.ParsePath("methods"))); err != nil {
		return nil, err
	}

	exprsVal := v.LookupPath(cue.ParsePath("expressions"))
	if !exprsVal.Exists() {
		return nil, &CompileError{
			Field:   "expressions",
			Message: "at least one expression is required",
			Pos:     v.Pos(),
		}
	}
	iter, err := exprsVal.Fields()
	if err != nil {
		return nil, cueError("expressions", err)
	}
	for iter.Next() {
		name := labelOf(iter)
		expr, err := p.compileExpression(name, iter.Value())
		if err != nil {
			return nil, err
		}
		p.Expressions = append(p.Expressions, *expr)
	}
	if len(p.Expressions) == 0 {
		return nil, &CompileError{
			Field:   "expressions",
			Message: "at least one expression is required",
			Pos:     exprsVal.Pos(),
		}
	}
	return p, nil
}

// compileTypes registers declared types. Redeclaring a type that already
// exists with the same supertype is accepted so sources can be recompiled
// against a shared registry.
func (p *Program) compileTypes(v cue.Value) error {
	if !v.Exists() {
		return nil // types are optional
	}
	iter, err := v.Fields()
	if err != nil {
		return cueError("types", err)
	}
	for iter.Next() {
		name := labelOf(iter)
		field := "types." + name
		superName, err := iter.Value().String()
		if err != nil {
			return &CompileError{Field: field, Message: "supertype must be a type name", Pos: iter.Value().Pos()}
		}
		super, err := p.typeNamed(field, superName, iter.Value())
		if err != nil {
			return err
		}
		if existing, ok := p.Registry.Lookup(name); ok {
			if got, _ := p.Registry.Super(existing); got != super {
				return &CompileError{
					Field:   field,
					Message: fmt.Sprintf("type %q already registered under %s", name, p.Registry.Name(got)),
					Pos:     iter.Value().Pos(),
				}
			}
			continue
		}
		if _, err := p.Registry.Register(name, super); err != nil {
			return &CompileError{Field: field, Message: err.Error(), Pos: iter.Value().Pos()}
		}
	}
	return nil
}

func (p *Program) compileMethods(v cue.Value) error {
	if !v.Exists() {
		return nil
	}
	iter, err := v.Fields()
	if err != nil {
		return cueError("methods", err)
	}
	for iter.Next() {
		alias := labelOf(iter)
		mv := iter.Value()
		field := "methods." + alias
		if _, exists := p.Methods[alias]; exists {
			return &CompileError{Field: field, Message: "method alias already defined", Pos: mv.Pos()}
		}

		owner, err := p.typeField(field, mv, "owner")
		if err != nil {
			return err
		}
		output, err := p.typeField(field, mv, "output")
		if err != nil {
			return err
		}
		name := alias
		if nv := mv.LookupPath(cue.ParsePath("name")); nv.Exists() {
			if name, err = nv.String(); err != nil {
				return cueError(field+".name", err)
			}
		}

		var params []ir.TypeID
		if pv := mv.LookupPath(cue.ParsePath("params")); pv.Exists() {
			list, err := pv.List()
			if err != nil {
				return cueError(field+".params", err)
			}
			for i := 0; list.Next(); i++ {
				tn, err := list.Value().String()
				if err != nil {
					return cueError(fmt.Sprintf("%s.params[%d]", field, i), err)
				}
				t, err := p.typeNamed(fmt.Sprintf("%s.params[%d]", field, i), tn, list.Value())
				if err != nil {
					return err
				}
				params = append(params, t)
			}
		}

		static := false
		if sv := mv.LookupPath(cue.ParsePath("static")); sv.Exists() {
			if static, err = sv.Bool(); err != nil {
				return cueError(field+".static", err)
			}
		}

		p.Methods[alias] = MethodRef{Method: ir.NewMethod(owner, output, name, params...), Static: static}
	}
	return nil
}

func (p *Program) compileExpression(name string, v cue.Value) (*Expression, error) {
	field := "expressions." + name
	expr := &Expression{Name: name, Pos: v.Pos()}

	if pv := v.LookupPath(cue.ParsePath("params")); pv.Exists() {
		iter, err := pv.Fields()
		if err != nil {
			return nil, cueError(field+".params", err)
		}
		for iter.Next() {
			pname := labelOf(iter)
			tn, err := iter.Value().String()
			if err != nil {
				return nil, cueError(field+".params."+pname, err)
			}
			t, err := p.typeNamed(field+".params."+pname, tn, iter.Value())
			if err != nil {
				return nil, err
			}
			expr.Params = append(expr.Params, lower.Param{Name: pname, Type: t})
		}
	}

	body := v.LookupPath(cue.ParsePath("body"))
	if !body.Exists() {
		return nil, &CompileError{Field: field + ".body", Message: "expression body is required", Pos: v.Pos()}
	}
	root, err := p.node(field+".body", body)
	if err != nil {
		return nil, err
	}
	expr.Root = root
	return expr, nil
}

func (p *Program) typeField(field string, v cue.Value, key string) (ir.TypeID, error) {
	tv := v.LookupPath(cue.ParsePath(key))
	if !tv.Exists() {
		return ir.TypeInvalid, &CompileError{Field: field + "." + key, Message: key + " is required", Pos: v.Pos()}
	}
	name, err := tv.String()
	if err != nil {
		return ir.TypeInvalid, cueError(field+"."+key, err)
	}
	return p.typeNamed(field+"."+key, name, tv)
}

func (p *Program) typeNamed(field, name string, at cue.Value) (ir.TypeID, error) {
	t, ok := p.Registry.Lookup(name)
	if !ok {
		return ir.TypeInvalid, &CompileError{
			Field:   field,
			Message: fmt.Sprintf("unknown type %q", name),
			Pos:     at.Pos(),
		}
	}
	return t, nil
}

// labelOf returns the unquoted label of the current field.
func labelOf(iter *cue.Iterator) string {
	sel := iter.Selector()
	if sel.LabelType() == cue.StringLabel {
		return sel.Unquoted()
	}
	return sel.String()
}
