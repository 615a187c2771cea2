package ir

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMethodStructuralEquality(t *testing.T) {
	params := []TypeID{TypeString, TypeInt}
	m1 := NewMethod(TypeString, TypeString, "pad", params...)
	m2 := NewMethod(TypeString, TypeString, "pad", TypeString, TypeInt)

	assert.True(t, m1.Equal(m2), "independently built descriptors must be equal")
	assert.Equal(t, m1.Key(), m2.Key())
	assert.Equal(t, m1.Hash(), m2.Hash())

	// Usable as interchangeable cache keys.
	cache := map[MethodKey]string{m1.Key(): "site-1"}
	assert.Equal(t, "site-1", cache[m2.Key()])
}

func TestMethodDistinguishesEveryField(t *testing.T) {
	base := NewMethod(TypeString, TypeInt, "length")

	variants := map[string]Method{
		"owner":  NewMethod(TypeArray, TypeInt, "length"),
		"output": NewMethod(TypeString, TypeFloat, "length"),
		"name":   NewMethod(TypeString, TypeInt, "size"),
		"params": NewMethod(TypeString, TypeInt, "length", TypeInt),
	}
	for field, m := range variants {
		assert.False(t, base.Equal(m), "differs in %s", field)
		assert.NotEqual(t, base.Key(), m.Key(), "key differs in %s", field)
		assert.NotEqual(t, base.Hash(), m.Hash(), "hash differs in %s", field)
	}
}

func TestMethodKeyQuotesName(t *testing.T) {
	// A name containing the key delimiters must not collide with a
	// differently-shaped descriptor.
	a := NewMethod(TypeAny, TypeAny, "f(1)2")
	b := NewMethod(TypeAny, TypeAny, "f", TypeInt)
	assert.NotEqual(t, a.Key(), b.Key())
}

func TestMethodIsImmutable(t *testing.T) {
	params := []TypeID{TypeInt, TypeInt}
	m := NewMethod(TypeAny, TypeInt, "add", params...)

	params[0] = TypeString
	assert.Equal(t, []TypeID{TypeInt, TypeInt}, m.Params(), "caller slice must not alias descriptor")

	got := m.Params()
	got[1] = TypeString
	assert.Equal(t, []TypeID{TypeInt, TypeInt}, m.Params(), "Params must return a copy")
	assert.Equal(t, 2, m.Arity())
}

func TestMethodDescribe(t *testing.T) {
	reg := NewRegistry()
	m := NewMethod(TypeString, TypeString, "concat", TypeString)
	assert.Equal(t, "String.concat(String) String", m.Describe(reg))
}
