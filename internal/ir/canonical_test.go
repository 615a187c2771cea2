package ir

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarshalCanonicalLeaf(t *testing.T) {
	got, err := MarshalCanonical(Literal(5))
	require.NoError(t, err)
	assert.Equal(t, `{"int":5,"kind":"IntegerLiteral"}`, string(got))

	got, err = MarshalCanonical(Literal("<a&b>"))
	require.NoError(t, err)
	assert.Equal(t, `{"kind":"StringLiteral","string":"<a&b>"}`, string(got), "no HTML escaping")

	got, err = MarshalCanonical(ConstantOf(nil))
	require.NoError(t, err)
	assert.Equal(t, `{"kind":"Constant","value":null}`, string(got))
}

func TestMarshalCanonicalNested(t *testing.T) {
	tree := BlockOf(
		Declare(TypeInt, "x"),
		Assign("x", Literal(5)),
		LoadOf("x"),
	)
	got, err := MarshalCanonical(tree)
	require.NoError(t, err)

	want := `{"children":[` +
		`{"kind":"DeclareLocalVariable","name":"x","type":4},` +
		`{"children":[{"int":5,"kind":"IntegerLiteral"}],"kind":"AssignToLocalVariable","name":"x"},` +
		`{"kind":"Load","name":"x"}` +
		`],"kind":"Block"}`
	assert.Equal(t, want, string(got))
}

func TestMarshalCanonicalMethod(t *testing.T) {
	m := StaticMethod1(TypeAny, TypeInt, "abs", TypeInt)
	got, err := MarshalCanonical(InvokeStatic1(m, Literal(-1)))
	require.NoError(t, err)
	assert.Equal(t,
		`{"children":[{"int":-1,"kind":"IntegerLiteral"}],"kind":"InvokeStatic",`+
			`"method":{"name":"abs","output":4,"owner":2,"params":[4]}}`,
		string(got))
}

func TestMarshalCanonicalKeepsStringBytes(t *testing.T) {
	// "e" plus a combining acute accent is a different literal from the
	// precomposed form, even though both render the same.
	decomposed, err := MarshalCanonical(Literal("e\u0301"))
	require.NoError(t, err)
	composed, err := MarshalCanonical(Literal("\u00e9"))
	require.NoError(t, err)
	assert.NotEqual(t, composed, decomposed)
	assert.Equal(t, "{\"kind\":\"StringLiteral\",\"string\":\"e\u0301\"}", string(decomposed))
}

func TestMarshalCanonicalConstantKinds(t *testing.T) {
	tests := []struct {
		value any
		want  string
	}{
		{int64(5), `{"kind":"Constant","value":{"int":5}}`},
		{float64(5), `{"kind":"Constant","value":{"float":5}}`},
		{"5", `{"kind":"Constant","value":{"string":"5"}}`},
		{true, `{"kind":"Constant","value":{"bool":true}}`},
		{math.Copysign(0, -1), `{"kind":"Constant","value":{"float":-0}}`},
	}
	for _, tt := range tests {
		got, err := MarshalCanonical(ConstantOf(tt.value))
		require.NoError(t, err)
		assert.Equal(t, tt.want, string(got), "%T %v", tt.value, tt.value)
	}
}

func TestMarshalCanonicalZeroLiterals(t *testing.T) {
	tests := []struct {
		node Node
		want string
	}{
		{Literal(int64(0)), `{"int":0,"kind":"IntegerLiteral"}`},
		{Literal(0.0), `{"float":0,"kind":"FloatLiteral"}`},
		{Literal(math.Copysign(0, -1)), `{"float":-0,"kind":"FloatLiteral"}`},
		{Literal(""), `{"kind":"StringLiteral","string":""}`},
	}
	for _, tt := range tests {
		got, err := MarshalCanonical(tt.node)
		require.NoError(t, err)
		assert.Equal(t, tt.want, string(got))
	}
}

func TestMarshalCanonicalLineSeparators(t *testing.T) {
	got, err := MarshalCanonical(Literal("a\u2028b"))
	require.NoError(t, err)
	assert.Equal(t, "{\"kind\":\"StringLiteral\",\"string\":\"a\u2028b\"}", string(got))

	// A literal backslash followed by the text u2028 stays escaped.
	got, err = MarshalCanonical(Literal(`a\u2028b`))
	require.NoError(t, err)
	assert.Equal(t, `{"kind":"StringLiteral","string":"a\\u2028b"}`, string(got))
}

func TestMarshalCanonicalRejections(t *testing.T) {
	_, err := MarshalCanonical(Literal(math.NaN()))
	assert.Error(t, err)

	_, err = MarshalCanonical(ConstantOf(struct{}{}))
	assert.ErrorIs(t, err, ErrUnencodable)

	// Narrow integer kinds would decode as int64.
	_, err = MarshalCanonical(ConstantOf(5))
	assert.ErrorIs(t, err, ErrUnencodable)
	_, err = MarshalCanonical(ConstantOf(float32(1.5)))
	assert.ErrorIs(t, err, ErrUnencodable)

	_, err = MarshalCanonical(BlockOf(nil))
	assert.Error(t, err)
}

func TestCompareKeysRFC8785(t *testing.T) {
	// U+1F600 sorts after U+FF61 in UTF-8 but before it in UTF-16.
	assert.Equal(t, -1, compareKeysRFC8785("\U0001F600", "\uFF61"))
	assert.Equal(t, 0, compareKeysRFC8785("kind", "kind"))
	assert.Equal(t, -1, compareKeysRFC8785("a", "ab"))
}
