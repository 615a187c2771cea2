package rt

import (
	"errors"
	"fmt"

	"github.com/roach88/exprgen/internal/ir"
)

// Exception is the runtime's throwable value. Throw nodes raise it and
// TryCatch nodes match it by assignability of Type.
type Exception struct {
	// Type is the exception's tag; it should descend from ir.TypeError.
	Type ir.TypeID

	// Message is a human-readable description.
	Message string

	// Cause is the underlying Go error, when the exception wraps one.
	Cause error
}

// NewException creates an exception of the given type.
func NewException(t ir.TypeID, format string, args ...any) *Exception {
	return &Exception{Type: t, Message: fmt.Sprintf(format, args...)}
}

// Error implements the error interface.
func (e *Exception) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("exception(%d): %s: %v", e.Type, e.Message, e.Cause)
	}
	return fmt.Sprintf("exception(%d): %s", e.Type, e.Message)
}

func (e *Exception) Unwrap() error {
	return e.Cause
}

// AsException returns err as an Exception. Plain Go errors raised by method
// implementations are wrapped as TypeError so TryCatch(..., Error, ...) can
// handle them; they are otherwise passed through untouched.
func AsException(err error) *Exception {
	var exc *Exception
	if errors.As(err, &exc) {
		return exc
	}
	return &Exception{Type: ir.TypeError, Message: err.Error(), Cause: err}
}

// Matches reports whether err is caught by a handler for catchType.
func Matches(reg *ir.Registry, err error, catchType ir.TypeID) bool {
	if err == nil {
		return false
	}
	return reg.Assignable(AsException(err).Type, catchType)
}

// Throwable converts a thrown value into the error to propagate.
// Exceptions and Go errors are raised as-is; anything else is not throwable
// and becomes a TypeError exception describing the value.
func Throwable(v Value) error {
	switch x := v.(type) {
	case *Exception:
		return x
	case error:
		return x
	default:
		return NewException(ir.TypeError, "value of type %T is not throwable", v)
	}
}
