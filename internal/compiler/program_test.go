package compiler

import (
	"testing"

	"cuelang.org/go/cue/cuecontext"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/exprgen/internal/ir"
	"github.com/roach88/exprgen/internal/lower"
	"github.com/roach88/exprgen/internal/testutil"
)

func compileSource(t *testing.T, src string) (*Program, *testutil.Runtime, error) {
	t.Helper()
	r := testutil.NewRuntime(t)
	p, err := CompileString(src, "test.cue", r.Registry, r.Library)
	return p, r, err
}

func TestCompileProgramBasic(t *testing.T) {
	p, r, err := compileSource(t, `
		types: MyError: "Error"

		expressions: {
			sum: {
				params: {a: "Int", b: "Int"}
				body: call: {method: "Math.add", args: [{load: "a"}, {load: "b"}]}
			}
			greeting: body: invoke: {
				target: "hello, "
				method: "String.concat"
				args: ["world"]
			}
		}
	`)
	require.NoError(t, err)

	require.Len(t, p.Expressions, 2)
	assert.Equal(t, "sum", p.Expressions[0].Name)
	assert.Equal(t, "greeting", p.Expressions[1].Name)
	assert.Equal(t, []lower.Param{{Name: "a", Type: ir.TypeInt}, {Name: "b", Type: ir.TypeInt}}, p.Expressions[0].Params)

	_, ok := r.Registry.Lookup("MyError")
	assert.True(t, ok, "declared types are registered")

	c := lower.NewCompiler(r.Registry, r.Methods)
	sum, _ := p.Expression("sum")
	ev, err := c.Lower(sum.Root, sum.Params...)
	require.NoError(t, err)
	got, err := ev.Eval(int64(2), int64(40))
	require.NoError(t, err)
	assert.Equal(t, int64(42), got)

	greeting, _ := p.Expression("greeting")
	ev, err = c.Lower(greeting.Root)
	require.NoError(t, err)
	got, err = ev.Eval()
	require.NoError(t, err)
	assert.Equal(t, "hello, world", got)

	_, ok = p.Expression("missing")
	assert.False(t, ok)
}

func TestCompileProgramFromValue(t *testing.T) {
	r := testutil.NewRuntime(t)
	ctx := cuecontext.New()
	v := ctx.CompileString(`expressions: one: body: 1`)
	require.NoError(t, v.Err())

	p, err := Compile(v, r.Registry, r.Library)
	require.NoError(t, err)
	assert.Equal(t, ir.Literal(1), p.Expressions[0].Root)
}

func TestCompileProgramMissingExpressions(t *testing.T) {
	_, _, err := compileSource(t, `types: Foo: "Object"`)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "expressions")
	assert.Contains(t, err.Error(), "required")

	_, _, err = compileSource(t, `expressions: {}`)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "at least one expression")
}

func TestCompileProgramMissingBody(t *testing.T) {
	_, _, err := compileSource(t, `expressions: broken: params: x: "Int"`)
	require.Error(t, err)

	var ce *CompileError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, "expressions.broken.body", ce.Field)
}

func TestCompileProgramUnknownType(t *testing.T) {
	_, _, err := compileSource(t, `
		expressions: bad: {
			params: x: "Widget"
			body: {load: "x"}
		}
	`)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown type "Widget"`)
	assert.Contains(t, err.Error(), "expressions.bad.params.x")
}

func TestCompileProgramTypeRedeclaration(t *testing.T) {
	r := testutil.NewRuntime(t)
	src := `
		types: MyError: "Error"
		expressions: e: body: 1
	`
	_, err := CompileString(src, "a.cue", r.Registry, r.Library)
	require.NoError(t, err)
	_, err = CompileString(src, "b.cue", r.Registry, r.Library)
	require.NoError(t, err, "identical redeclaration is accepted")

	_, err = CompileString(`
		types: MyError: "Object"
		expressions: e: body: 1
	`, "c.cue", r.Registry, r.Library)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already registered")
}

func TestCompileProgramDeclaredMethods(t *testing.T) {
	p, r, err := compileSource(t, `
		types: Geo: "Object"
		methods: "Geo.dist": {owner: "Geo", output: "Float", name: "dist", params: ["Float", "Float"], static: true}
		expressions: d: body: call: {method: "Geo.dist", args: [1.5, 2.5]}
	`)
	require.NoError(t, err)

	ref, ok := p.Methods["Geo.dist"]
	require.True(t, ok)
	assert.True(t, ref.Static)
	assert.Equal(t, 2, ref.Method.Arity())
	assert.Equal(t, ir.TypeFloat, ref.Method.Output())
	assert.Contains(t, p.MethodNames(), "Math.add")

	// Declared but unimplemented: lowering rejects the call.
	c := lower.NewCompiler(r.Registry, r.Methods)
	_, err = c.Lower(p.Expressions[0].Root)
	assert.True(t, lower.IsSignatureMismatch(err))
}

func TestCompileProgramDuplicateMethodAlias(t *testing.T) {
	_, _, err := compileSource(t, `
		methods: "Math.add": {owner: "Math", output: "Int", params: ["Int"]}
		expressions: e: body: 1
	`)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already defined")
}

func TestCompileProgramCUEError(t *testing.T) {
	_, _, err := compileSource(t, `
		expressions: e: body: 1
		expressions: e: body: 2
	`)
	require.Error(t, err)

	var ce *CompileError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, "expressions", ce.Section(), "conflict is attributed to %s", ce.Field)
	assert.True(t, ce.Pos.IsValid())
}

func TestBuiltinMethods(t *testing.T) {
	r := testutil.NewRuntime(t)
	methods := BuiltinMethods(r.Registry, r.Library)

	assert.Len(t, methods, 13)
	assert.True(t, methods["Math.add"].Static)
	assert.False(t, methods["String.concat"].Static)
	assert.False(t, methods["Array.get"].Static)
	assert.True(t, methods["Errors.new"].Static)
}
