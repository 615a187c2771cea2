package rt

import (
	"errors"
	"fmt"

	"fortio.org/safecast"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/roach88/exprgen/internal/ir"
)

// Library holds the descriptors of the builtin methods, so callers can build
// invocation nodes that resolve against a table populated by Install.
type Library struct {
	Math   ir.TypeID
	Errors ir.TypeID

	// IndexError is raised by Array.get for out-of-range indices.
	IndexError ir.TypeID

	Add     ir.Static2 // Math.add(Int, Int) Int
	Sub     ir.Static2 // Math.sub(Int, Int) Int
	Mul     ir.Static2 // Math.mul(Int, Int) Int
	Lt      ir.Static2 // Math.lt(Int, Int) Bool
	Gt      ir.Static2 // Math.gt(Int, Int) Bool
	ToFloat ir.Static1 // Math.toFloat(Int) Float

	Concat ir.Virtual1 // String.concat(String) String
	Length ir.Virtual0 // String.length() Int
	Upper  ir.Virtual0 // String.upper() String

	ArrayLength ir.Virtual0 // Array.length() Int
	ArrayGet    ir.Virtual1 // Array.get(Int) Any

	NewError ir.Static2 // Errors.new(String, String) Error
	Fail     ir.Static1 // Errors.fail(String) Any
}

// NewLibrary registers the library's owner and exception types in reg and
// returns the descriptors. It is idempotent per registry.
func NewLibrary(reg *ir.Registry) (*Library, error) {
	mathT, err := ensureType(reg, "Math", ir.TypeObject)
	if err != nil {
		return nil, err
	}
	errorsT, err := ensureType(reg, "Errors", ir.TypeObject)
	if err != nil {
		return nil, err
	}
	indexErr, err := ensureType(reg, "IndexError", ir.TypeError)
	if err != nil {
		return nil, err
	}

	return &Library{
		Math:       mathT,
		Errors:     errorsT,
		IndexError: indexErr,

		Add:     ir.StaticMethod2(mathT, ir.TypeInt, "add", ir.TypeInt, ir.TypeInt),
		Sub:     ir.StaticMethod2(mathT, ir.TypeInt, "sub", ir.TypeInt, ir.TypeInt),
		Mul:     ir.StaticMethod2(mathT, ir.TypeInt, "mul", ir.TypeInt, ir.TypeInt),
		Lt:      ir.StaticMethod2(mathT, ir.TypeBool, "lt", ir.TypeInt, ir.TypeInt),
		Gt:      ir.StaticMethod2(mathT, ir.TypeBool, "gt", ir.TypeInt, ir.TypeInt),
		ToFloat: ir.StaticMethod1(mathT, ir.TypeFloat, "toFloat", ir.TypeInt),

		Concat: ir.Method1(ir.TypeString, ir.TypeString, "concat", ir.TypeString),
		Length: ir.Method0(ir.TypeString, ir.TypeInt, "length"),
		Upper:  ir.Method0(ir.TypeString, ir.TypeString, "upper"),

		ArrayLength: ir.Method0(ir.TypeArray, ir.TypeInt, "length"),
		ArrayGet:    ir.Method1(ir.TypeArray, ir.TypeAny, "get", ir.TypeInt),

		NewError: ir.StaticMethod2(errorsT, ir.TypeError, "new", ir.TypeString, ir.TypeString),
		Fail:     ir.StaticMethod1(errorsT, ir.TypeAny, "fail", ir.TypeString),
	}, nil
}

func ensureType(reg *ir.Registry, name string, super ir.TypeID) (ir.TypeID, error) {
	if id, ok := reg.Lookup(name); ok {
		return id, nil
	}
	id, err := reg.Register(name, super)
	if errors.Is(err, ir.ErrDuplicateType) {
		// Lost a registration race; the winner's tag is equally valid.
		id, _ = reg.Lookup(name)
		return id, nil
	}
	return id, err
}

// Builtins returns a method table with the library installed.
func Builtins(reg *ir.Registry) (*Methods, *Library, error) {
	lib, err := NewLibrary(reg)
	if err != nil {
		return nil, nil, err
	}
	table := NewMethods()
	if err := lib.Install(reg, table); err != nil {
		return nil, nil, err
	}
	return table, lib, nil
}

// Install registers every library method in table.
func (l *Library) Install(reg *ir.Registry, table *Methods) error {
	upper := cases.Upper(language.Und)

	statics := []struct {
		m  ir.Method
		fn Func
	}{
		{l.Add.Method, intOp(func(a, b int64) Value { return a + b })},
		{l.Sub.Method, intOp(func(a, b int64) Value { return a - b })},
		{l.Mul.Method, intOp(func(a, b int64) Value { return a * b })},
		{l.Lt.Method, intOp(func(a, b int64) Value { return a < b })},
		{l.Gt.Method, intOp(func(a, b int64) Value { return a > b })},
		{l.ToFloat.Method, func(args []Value) (Value, error) {
			n, err := argInt(args, 0)
			if err != nil {
				return nil, err
			}
			return float64(n), nil
		}},
		{l.NewError.Method, func(args []Value) (Value, error) {
			typeName, err := argString(args, 0)
			if err != nil {
				return nil, err
			}
			msg, err := argString(args, 1)
			if err != nil {
				return nil, err
			}
			t, ok := reg.Lookup(typeName)
			if !ok || !reg.Assignable(t, ir.TypeError) {
				return nil, fmt.Errorf("Errors.new: %q is not an exception type", typeName)
			}
			return &Exception{Type: t, Message: msg}, nil
		}},
		{l.Fail.Method, func(args []Value) (Value, error) {
			msg, err := argString(args, 0)
			if err != nil {
				return nil, err
			}
			return nil, errors.New(msg)
		}},
	}
	for _, s := range statics {
		if err := table.RegisterStatic(s.m, s.fn); err != nil {
			return err
		}
	}

	virtuals := []struct {
		m  ir.Method
		fn VirtualFunc
	}{
		{l.Concat.Method, func(recv Value, args []Value) (Value, error) {
			s, err := receiver[string](recv)
			if err != nil {
				return nil, err
			}
			other, err := argString(args, 0)
			if err != nil {
				return nil, err
			}
			return s + other, nil
		}},
		{l.Length.Method, func(recv Value, _ []Value) (Value, error) {
			s, err := receiver[string](recv)
			if err != nil {
				return nil, err
			}
			return int64(len([]rune(s))), nil
		}},
		{l.Upper.Method, func(recv Value, _ []Value) (Value, error) {
			s, err := receiver[string](recv)
			if err != nil {
				return nil, err
			}
			return upper.String(s), nil
		}},
		{l.ArrayLength.Method, func(recv Value, _ []Value) (Value, error) {
			arr, err := receiver[[]Value](recv)
			if err != nil {
				return nil, err
			}
			return int64(len(arr)), nil
		}},
		{l.ArrayGet.Method, func(recv Value, args []Value) (Value, error) {
			arr, err := receiver[[]Value](recv)
			if err != nil {
				return nil, err
			}
			idx, err := argInt(args, 0)
			if err != nil {
				return nil, err
			}
			i, err := safecast.Conv[uint32](idx)
			if err != nil || int(i) >= len(arr) {
				return nil, NewException(l.IndexError, "index %d out of range [0, %d)", idx, len(arr))
			}
			return arr[i], nil
		}},
	}
	for _, v := range virtuals {
		if err := table.RegisterVirtual(v.m, v.fn); err != nil {
			return err
		}
	}
	return nil
}

func intOp(op func(a, b int64) Value) Func {
	return func(args []Value) (Value, error) {
		a, err := argInt(args, 0)
		if err != nil {
			return nil, err
		}
		b, err := argInt(args, 1)
		if err != nil {
			return nil, err
		}
		return op(a, b), nil
	}
}

func arg(args []Value, i int) (Value, error) {
	if i >= len(args) {
		return nil, fmt.Errorf("missing argument %d", i)
	}
	return args[i], nil
}

func argInt(args []Value, i int) (int64, error) {
	v, err := arg(args, i)
	if err != nil {
		return 0, err
	}
	n, ok := v.(int64)
	if !ok {
		return 0, fmt.Errorf("argument %d: expected Int, got %T", i, v)
	}
	return n, nil
}

func argString(args []Value, i int) (string, error) {
	v, err := arg(args, i)
	if err != nil {
		return "", err
	}
	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("argument %d: expected String, got %T", i, v)
	}
	return s, nil
}

func receiver[T any](recv Value) (T, error) {
	v, ok := recv.(T)
	if !ok {
		var zero T
		if recv == nil {
			return zero, fmt.Errorf("null receiver")
		}
		return zero, fmt.Errorf("receiver: expected %T, got %T", zero, recv)
	}
	return v, nil
}
