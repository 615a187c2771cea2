package rt

import (
	"errors"
	"fmt"
	"reflect"

	"github.com/roach88/exprgen/internal/ir"
)

// Value is a runtime value.
type Value = any

// ErrNotBoolean is returned when a condition does not evaluate to a bool.
var ErrNotBoolean = errors.New("condition is not a boolean")

// TypeOf returns the runtime type tag of v.
func TypeOf(v Value) ir.TypeID {
	switch x := v.(type) {
	case nil:
		return ir.TypeAny
	case bool:
		return ir.TypeBool
	case int64:
		return ir.TypeInt
	case float64:
		return ir.TypeFloat
	case string:
		return ir.TypeString
	case []Value:
		return ir.TypeArray
	case *Exception:
		return x.Type
	case error:
		return ir.TypeError
	default:
		return ir.TypeObject
	}
}

// Default returns the initial value of a freshly declared local of type t.
func Default(t ir.TypeID) Value {
	switch t {
	case ir.TypeBool:
		return false
	case ir.TypeInt:
		return int64(0)
	case ir.TypeFloat:
		return float64(0)
	default:
		return nil
	}
}

// Truthy interprets v as a condition. Only booleans qualify.
func Truthy(v Value) (bool, error) {
	b, ok := v.(bool)
	if !ok {
		return false, fmt.Errorf("%w: got %T", ErrNotBoolean, v)
	}
	return b, nil
}

// Equal implements the runtime's equality:
//   - integers and floats compare numerically with each other
//   - arrays compare element-wise
//   - comparable values compare with ==
//   - anything else compares by identity
func Equal(a, b Value) bool {
	switch x := a.(type) {
	case nil:
		return b == nil
	case int64:
		switch y := b.(type) {
		case int64:
			return x == y
		case float64:
			return float64(x) == y
		}
		return false
	case float64:
		switch y := b.(type) {
		case float64:
			return x == y
		case int64:
			return x == float64(y)
		}
		return false
	case []Value:
		y, ok := b.([]Value)
		if !ok || len(x) != len(y) {
			return false
		}
		for i := range x {
			if !Equal(x[i], y[i]) {
				return false
			}
		}
		return true
	}

	if b == nil {
		return false
	}
	ta, tb := reflect.TypeOf(a), reflect.TypeOf(b)
	if ta != tb {
		return false
	}
	if ta.Comparable() {
		return a == b
	}
	return identical(a, b)
}

// identical compares reference-like values (maps, funcs) by pointer.
func identical(a, b Value) bool {
	va, vb := reflect.ValueOf(a), reflect.ValueOf(b)
	switch va.Kind() {
	case reflect.Map, reflect.Func, reflect.Slice, reflect.Pointer, reflect.Chan, reflect.UnsafePointer:
		return va.Pointer() == vb.Pointer()
	default:
		return false
	}
}
