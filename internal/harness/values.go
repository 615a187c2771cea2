package harness

import (
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/roach88/exprgen/internal/ir"
	"github.com/roach88/exprgen/internal/lower"
	"github.com/roach88/exprgen/internal/rt"
)

// toValues converts a list; nil stays nil so "unset" survives.
func toValues(vs []any) ([]rt.Value, error) {
	if vs == nil {
		return nil, nil
	}
	out := make([]rt.Value, len(vs))
	for i, v := range vs {
		cv, err := rt.FromGo(v)
		if err != nil {
			return nil, fmt.Errorf("[%d]: %w", i, err)
		}
		out[i] = cv
	}
	return out, nil
}

func decodeValue(n *yaml.Node) (rt.Value, error) {
	var v any
	if err := n.Decode(&v); err != nil {
		return nil, err
	}
	return rt.FromGo(v)
}

// outcome classifies an evaluation failure.
type outcome struct {
	code      string
	exception string
	message   string
}

func classify(reg *ir.Registry, err error) outcome {
	if err == nil {
		return outcome{}
	}
	if code := lower.CodeOf(err); code != "" {
		return outcome{code: string(code), message: err.Error()}
	}
	exc := rt.AsException(err)
	return outcome{code: CodeException, exception: reg.Name(exc.Type), message: err.Error()}
}

// identical reports whether a and b are equal and of the same runtime type,
// element by element for arrays. rt.Equal alone treats Int 5 and Float 5 as
// equal, which would hide a backend returning the wrong type.
func identical(a, b rt.Value) bool {
	if rt.TypeOf(a) != rt.TypeOf(b) {
		return false
	}
	if xs, ok := a.([]rt.Value); ok {
		ys := b.([]rt.Value)
		return len(xs) == len(ys) && sameCalls(xs, ys)
	}
	return rt.Equal(a, b)
}

// sameCalls compares two value lists with identical.
func sameCalls(a, b []rt.Value) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !identical(a[i], b[i]) {
			return false
		}
	}
	return true
}
