package lower

import (
	"errors"
	"fmt"

	"github.com/roach88/exprgen/internal/ir"
)

// ErrorCode categorizes lowering failures.
type ErrorCode string

const (
	// ErrCodeUnboundVariable indicates a Load or assignment names no
	// reachable declaration.
	ErrCodeUnboundVariable ErrorCode = "UNBOUND_VARIABLE"

	// ErrCodeSignatureMismatch indicates an invocation descriptor disagrees
	// with its arguments or with every callable in the target runtime.
	ErrCodeSignatureMismatch ErrorCode = "SIGNATURE_MISMATCH"

	// ErrCodeUnsupportedOperation indicates the backend cannot lower a variant.
	ErrCodeUnsupportedOperation ErrorCode = "UNSUPPORTED_OPERATION"
)

// Error is a lowering failure. It is fatal to the whole expression.
type Error struct {
	// Code identifies the error category.
	Code ErrorCode

	// Message is a human-readable description.
	Message string

	// Kind is the variant of the offending node.
	Kind ir.Kind

	// Path locates the offending node, e.g. "Block[2]/AssignToLocalVariable".
	Path string

	// Name is the variable name for UNBOUND_VARIABLE.
	Name string

	// Method is the descriptor for SIGNATURE_MISMATCH.
	Method *ir.Method
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("%s: %s (at %s)", e.Code, e.Message, e.Path)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// IsUnboundVariable returns true if err is an UNBOUND_VARIABLE failure.
// Uses errors.As to handle wrapped errors.
func IsUnboundVariable(err error) bool {
	return hasCode(err, ErrCodeUnboundVariable)
}

// IsSignatureMismatch returns true if err is a SIGNATURE_MISMATCH failure.
func IsSignatureMismatch(err error) bool {
	return hasCode(err, ErrCodeSignatureMismatch)
}

// IsUnsupported returns true if err is an UNSUPPORTED_OPERATION failure.
func IsUnsupported(err error) bool {
	return hasCode(err, ErrCodeUnsupportedOperation)
}

// CodeOf returns the lowering code carried by err, or "" if there is none.
func CodeOf(err error) ErrorCode {
	var le *Error
	if errors.As(err, &le) {
		return le.Code
	}
	return ""
}

func hasCode(err error, code ErrorCode) bool {
	return CodeOf(err) == code
}

// NewUnboundVariable creates an Error for an unresolved name.
func NewUnboundVariable(kind ir.Kind, name, path string) *Error {
	return &Error{
		Code:    ErrCodeUnboundVariable,
		Message: fmt.Sprintf("variable %q is not declared in any enclosing block", name),
		Kind:    kind,
		Path:    path,
		Name:    name,
	}
}

// NewSignatureMismatch creates an Error for an unusable descriptor.
func NewSignatureMismatch(kind ir.Kind, m ir.Method, path, reason string) *Error {
	return &Error{
		Code:    ErrCodeSignatureMismatch,
		Message: fmt.Sprintf("method %s: %s", m.Name(), reason),
		Kind:    kind,
		Path:    path,
		Method:  &m,
	}
}

// NewUnsupported creates an Error naming the variant the backend cannot lower.
func NewUnsupported(kind ir.Kind, path string) *Error {
	return &Error{
		Code:    ErrCodeUnsupportedOperation,
		Message: fmt.Sprintf("backend does not implement %s", kind),
		Kind:    kind,
		Path:    path,
	}
}

// ErrArgumentCount is returned by Evaluator.Eval when the number of
// arguments differs from the declared parameters.
var ErrArgumentCount = errors.New("argument count does not match evaluator parameters")
