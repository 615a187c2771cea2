package compiler

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/exprgen/internal/ir"
	"github.com/roach88/exprgen/internal/lower"
	"github.com/roach88/exprgen/internal/testutil"
)

func TestValidateCollectsAllErrors(t *testing.T) {
	r := testutil.NewRuntime(t)
	p, err := CompileString(`
		expressions: {
			ok: body: {call: {method: "Math.add", args: [1, 2]}}
			unbound: body: {block: [{load: "x"}]}
			arity: body: {call: {method: "Math.add", args: [1]}}
		}
	`, "v.cue", r.Registry, r.Library)
	require.NoError(t, err)

	errs := Validate(p, lower.NewCompiler(r.Registry, r.Methods))
	require.Len(t, errs, 2)

	assert.Equal(t, "unbound", errs[0].Expression)
	assert.Equal(t, ErrUnboundVariable, errs[0].Code)
	assert.Equal(t, "body/Block[0]/Load", errs[0].Field)
	assert.Positive(t, errs[0].Line)

	assert.Equal(t, "arity", errs[1].Expression)
	assert.Equal(t, ErrSignatureMismatch, errs[1].Code)
}

func TestValidateUnsupportedBackend(t *testing.T) {
	r := testutil.NewRuntime(t)
	p, err := CompileString(`expressions: e: body: {not: true}`, "v.cue", r.Registry, r.Library)
	require.NoError(t, err)

	partial := lower.NewCompiler(r.Registry, r.Methods, lower.WithSupported(ir.KindTrueLiteral))
	errs := Validate(p, partial)
	require.Len(t, errs, 1)
	assert.Equal(t, ErrUnsupportedNode, errs[0].Code)
	assert.Contains(t, errs[0].Error(), "[E112]")
}

func TestValidateDuplicateParams(t *testing.T) {
	r := testutil.NewRuntime(t)
	p := &Program{
		Registry: r.Registry,
		Expressions: []Expression{{
			Name:   "dup",
			Params: []lower.Param{{Name: "a", Type: ir.TypeInt}, {Name: "a", Type: ir.TypeInt}},
			Root:   ir.LoadOf("a"),
		}},
	}

	errs := Validate(p, lower.NewCompiler(r.Registry, r.Methods))
	require.Len(t, errs, 1)
	assert.Equal(t, ErrDuplicateParam, errs[0].Code)
	assert.Equal(t, "params[1]", errs[0].Field)
	assert.Equal(t, `[E101] params[1]: duplicate parameter name: "a"`, errs[0].Error())
}

func TestValidateCleanProgram(t *testing.T) {
	r := testutil.NewRuntime(t)
	p, err := CompileString(`expressions: e: body: "fine"`, "v.cue", r.Registry, r.Library)
	require.NoError(t, err)

	assert.Empty(t, Validate(p, lower.NewCompiler(r.Registry, r.Methods)))
}
