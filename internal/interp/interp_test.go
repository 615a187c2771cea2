package interp

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/exprgen/internal/ir"
	"github.com/roach88/exprgen/internal/lower"
	"github.com/roach88/exprgen/internal/rt"
	"github.com/roach88/exprgen/internal/testutil"
)

type fixture struct {
	r        *testutil.Runtime
	interp   *Interpreter
	compiler *lower.Compiler
	myErr    ir.TypeID
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	r := testutil.NewRuntime(t)
	return &fixture{
		r:        r,
		interp:   New(r.Registry, r.Methods, nil),
		compiler: lower.NewCompiler(r.Registry, r.Methods),
		myErr:    r.Registry.MustRegister("MyError", ir.TypeError),
	}
}

// corpus returns trees covering every variant, each paired with the
// parameters it needs.
func (f *fixture) corpus() map[string]ir.Node {
	lib := f.r.Library
	p := f.r.Probe
	exc := rt.NewException(f.myErr, "boom")

	return map[string]ir.Node{
		"literal":          ir.Literal(3),
		"float":            ir.Literal(1.5),
		"string":           ir.Literal("s"),
		"null":             ir.Null(),
		"array":            ir.ArrayOf(p.I(1), p.I(2), p.I(3)),
		"arith":            ir.InvokeStatic2(lib.Add, p.I(1), ir.InvokeStatic2(lib.Mul, p.I(2), p.I(3))),
		"virtual":          ir.Invoke1(ir.Literal("a"), lib.Concat, ir.Invoke0(ir.Literal("b"), lib.Upper)),
		"ternary":          ir.TernaryOf(ir.InvokeStatic2(lib.Lt, p.I(1), p.I(2)), p.I(10), p.I(20)),
		"and":              ir.And(ir.False(), p.T(ir.True())),
		"or":               ir.Or(ir.InvokeStatic1(p.Mark, ir.False()), ir.True()),
		"not":              ir.NotOf(ir.Equal(ir.Literal(1), ir.Literal(2))),
		"isNull":           ir.IsNullOf(ir.Null()),
		"notEq":            ir.NotEqual(ir.Literal("a"), ir.Literal("a")),
		"block":            ir.BlockOf(ir.Declare(ir.TypeInt, "x"), ir.Assign("x", ir.Literal(5)), ir.LoadOf("x")),
		"shadow":           ir.BlockOf(ir.Declare(ir.TypeInt, "x"), ir.Assign("x", ir.Literal(1)), ir.BlockOf(ir.Declare(ir.TypeInt, "x"), ir.Assign("x", ir.Literal(2))), ir.LoadOf("x")),
		"cond":             ir.BlockOf(ir.Declare(ir.TypeInt, "x"), ir.ConditionOf(ir.True())(ir.Assign("x", p.I(4))), ir.LoadOf("x")),
		"catch":            ir.TryCatchOf(ir.ThrowOf(ir.ConstantOf(exc)), ir.Literal(7), f.myErr, "e"),
		"uncaught":         ir.TryCatchOf(ir.ThrowOf(ir.ConstantOf(exc)), p.I(0), lib.IndexError, "e"),
		"index":            ir.TryCatchOf(ir.Invoke1(ir.ArrayOf(), lib.ArrayGet, ir.Literal(0)), ir.Literal("oob"), lib.IndexError, "e"),
		"fail":             ir.InvokeStatic1(lib.Fail, ir.Literal("nope")),
		"notBool":          ir.TernaryOf(ir.Literal(1), ir.Literal(2), ir.Literal(3)),
		"unbound":          ir.BlockOf(ir.BlockOf(ir.Declare(ir.TypeInt, "x")), ir.LoadOf("x")),
		"unreachedUnbound": ir.TernaryOf(ir.True(), ir.Literal(1), ir.LoadOf("nope")),
		"branchDeclare":    ir.BlockOf(ir.BlockOf(ir.Declare(ir.TypeInt, "x"), ir.Assign("x", ir.Literal(41))), ir.BlockOf(ir.ConditionOf(ir.False())(ir.Declare(ir.TypeInt, "y")), ir.LoadOf("y"))),
		"ternaryDeclare":   ir.BlockOf(ir.TernaryOf(ir.True(), ir.Declare(ir.TypeInt, "y"), ir.Null()), ir.LoadOf("y")),
		"tryDeclare":       ir.BlockOf(ir.TryCatchOf(ir.Declare(ir.TypeInt, "y"), ir.Null(), ir.TypeError, "e"), ir.LoadOf("y")),
		"branchOuter":      ir.BlockOf(ir.Declare(ir.TypeInt, "x"), ir.TernaryOf(ir.True(), ir.Assign("x", ir.Literal(2)), ir.Null()), ir.LoadOf("x")),
		"arity":            ir.InvokeStaticN(lib.Add.Method, ir.Literal(1)),
		"flavour":          ir.InvokeStaticN(lib.Length.Method),
		"catchVar":         ir.TryCatchOf(ir.ThrowOf(ir.InvokeStatic2(lib.NewError, ir.Literal("MyError"), ir.Literal("m"))), ir.IsNullOf(ir.LoadOf("e")), ir.TypeError, "e"),
	}
}

func TestInterpreter_AgreesWithCompiler(t *testing.T) {
	f := newFixture(t)

	for name, tree := range f.corpus() {
		t.Run(name, func(t *testing.T) {
			f.r.Probe.Reset()
			want, wantErr := f.lowerAndEval(tree)
			wantCalls := f.r.Probe.Calls()

			f.r.Probe.Reset()
			got, gotErr := f.interp.Eval(tree, nil)
			gotCalls := f.r.Probe.Calls()

			assert.Equal(t, lower.CodeOf(wantErr), lower.CodeOf(gotErr))
			assert.Equal(t, wantErr == nil, gotErr == nil, "compiler=%v interp=%v", wantErr, gotErr)
			if wantErr != nil && gotErr != nil && lower.CodeOf(wantErr) == "" {
				assert.Equal(t, rt.AsException(wantErr).Type, rt.AsException(gotErr).Type)
			}
			assert.Equal(t, want, got)
			assert.Equal(t, wantCalls, gotCalls, "side effects must match")
		})
	}
}

func (f *fixture) lowerAndEval(tree ir.Node) (rt.Value, error) {
	ev, err := f.compiler.Lower(tree)
	if err != nil {
		return nil, err
	}
	return ev.Eval()
}

func TestInterpreter_Parameters(t *testing.T) {
	f := newFixture(t)

	tree := ir.InvokeStatic2(f.r.Library.Sub, ir.LoadOf("a"), ir.LoadOf("b"))
	params := []lower.Param{{Name: "a", Type: ir.TypeInt}, {Name: "b", Type: ir.TypeInt}}

	got, err := f.interp.Eval(tree, params, int64(9), int64(4))
	require.NoError(t, err)
	assert.Equal(t, int64(5), got)

	_, err = f.interp.Eval(tree, params, int64(1))
	assert.True(t, errors.Is(err, lower.ErrArgumentCount))
}

func TestInterpreter_ValidateReportsBeforeRunning(t *testing.T) {
	f := newFixture(t)

	tree := ir.BlockOf(f.r.Probe.I(1), ir.LoadOf("missing"))
	_, err := f.interp.Eval(tree, nil)
	assert.True(t, lower.IsUnboundVariable(err))
	assert.Zero(t, f.r.Probe.Count())
}

func TestInterpreter_ValidateScopesBranches(t *testing.T) {
	f := newFixture(t)
	p := f.r.Probe

	trees := map[string]ir.Node{
		"condition": ir.BlockOf(p.I(1), ir.ConditionOf(ir.False())(ir.Declare(ir.TypeInt, "y")), ir.LoadOf("y")),
		"ternary":   ir.BlockOf(p.I(1), ir.TernaryOf(ir.True(), ir.Declare(ir.TypeInt, "y"), ir.Null()), ir.LoadOf("y")),
		"and":       ir.BlockOf(p.I(1), ir.And(ir.True(), ir.Declare(ir.TypeInt, "y")), ir.LoadOf("y")),
		"try":       ir.BlockOf(p.I(1), ir.TryCatchOf(ir.Declare(ir.TypeInt, "y"), ir.Null(), ir.TypeError, "e"), ir.LoadOf("y")),
	}
	for name, tree := range trees {
		t.Run(name, func(t *testing.T) {
			p.Reset()
			assert.True(t, lower.IsUnboundVariable(f.interp.Validate(tree)))

			_, err := f.interp.Eval(tree, nil)
			assert.True(t, lower.IsUnboundVariable(err))
			assert.Zero(t, p.Count(), "nothing runs before the error")

			_, err = f.compiler.Lower(tree)
			assert.True(t, lower.IsUnboundVariable(err))
		})
	}
}

func TestInterpreter_NilChild(t *testing.T) {
	f := newFixture(t)

	err := f.interp.Validate(ir.ArrayOf(ir.Literal(1), nil))
	assert.True(t, lower.IsUnsupported(err))
}
