package ir

import (
	"slices"
	"strconv"
	"strings"
)

// Method identifies a callable by owner type, return type, name and ordered
// parameter types. Descriptors are immutable values; equality is structural.
type Method struct {
	owner  TypeID
	output TypeID
	name   string
	params []TypeID
}

// MethodKey is the comparable form of a Method, usable as a map key by
// call-site caches. Two descriptors have equal keys exactly when Equal holds.
type MethodKey string

// NewMethod builds a descriptor with an explicit ordered parameter list.
// It never fails; whether the callable exists is decided at lowering.
func NewMethod(owner, output TypeID, name string, params ...TypeID) Method {
	return Method{
		owner:  owner,
		output: output,
		name:   name,
		params: slices.Clone(params),
	}
}

// Owner returns the type that declares the method.
func (m Method) Owner() TypeID { return m.owner }

// Output returns the declared return type.
func (m Method) Output() TypeID { return m.output }

// Name returns the method name.
func (m Method) Name() string { return m.name }

// Params returns a copy of the ordered parameter types.
func (m Method) Params() []TypeID { return slices.Clone(m.params) }

// Arity returns the number of declared parameters.
func (m Method) Arity() int { return len(m.params) }

// Equal reports structural equality over all four fields.
func (m Method) Equal(other Method) bool {
	return m.owner == other.owner &&
		m.output == other.output &&
		m.name == other.name &&
		slices.Equal(m.params, other.params)
}

// Key returns the comparable cache key for m.
// Format: owner ":" name "(" p1 "," p2 ")" output, with numeric type tags.
func (m Method) Key() MethodKey {
	var b strings.Builder
	b.WriteString(strconv.FormatUint(uint64(m.owner), 10))
	b.WriteByte(':')
	b.WriteString(strconv.Quote(m.name))
	b.WriteByte('(')
	for i, p := range m.params {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(strconv.FormatUint(uint64(p), 10))
	}
	b.WriteByte(')')
	b.WriteString(strconv.FormatUint(uint64(m.output), 10))
	return MethodKey(b.String())
}

// Describe renders the descriptor with type names from reg.
// Example: "String.concat(String) String"
func (m Method) Describe(reg *Registry) string {
	var b strings.Builder
	b.WriteString(reg.Name(m.owner))
	b.WriteByte('.')
	b.WriteString(m.name)
	b.WriteByte('(')
	for i, p := range m.params {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(reg.Name(p))
	}
	b.WriteString(") ")
	b.WriteString(reg.Name(m.output))
	return b.String()
}
