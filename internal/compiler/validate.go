package compiler

import (
	"errors"
	"fmt"

	"github.com/roach88/exprgen/internal/lower"
)

// Validation error codes (E100-E199)
const (
	// General validation errors (E100)
	ErrValidationGeneric = "E100" // lowering failed for a non-contract reason

	// Expression shape errors (E101-E109)
	ErrDuplicateParam = "E101" // parameter declared twice

	// Lowering contract errors (E110-E119)
	ErrUnboundVariable   = "E110" // Load/assign names no declaration
	ErrSignatureMismatch = "E111" // descriptor does not resolve or arity differs
	ErrUnsupportedNode   = "E112" // backend cannot lower a variant
)

// ValidationError represents an expression that will not lower.
type ValidationError struct {
	Expression string `json:"expression"`
	Field      string `json:"field"`
	Message    string `json:"message"`
	Code       string `json:"code"`
	Line       int    `json:"line,omitempty"`
}

// Error implements the error interface.
func (e ValidationError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("[%s] line %d: %s: %s", e.Code, e.Line, e.Field, e.Message)
	}
	return fmt.Sprintf("[%s] %s: %s", e.Code, e.Field, e.Message)
}

// Validate lowers every expression of p against backend.
// Returns all errors found (does not fail-fast).
func Validate(p *Program, backend lower.Backend) []ValidationError {
	var errs []ValidationError

	for _, expr := range p.Expressions {
		line := 0
		if expr.Pos.IsValid() {
			line = expr.Pos.Line()
		}

		// E101: duplicate parameter
		seen := make(map[string]bool, len(expr.Params))
		duplicate := false
		for i, param := range expr.Params {
			if seen[param.Name] {
				errs = append(errs, ValidationError{
					Expression: expr.Name,
					Field:      fmt.Sprintf("params[%d]", i),
					Message:    fmt.Sprintf("duplicate parameter name: %q", param.Name),
					Code:       ErrDuplicateParam,
					Line:       line,
				})
				duplicate = true
			}
			seen[param.Name] = true
		}
		if duplicate {
			continue
		}

		_, err := backend.Lower(expr.Root, expr.Params...)
		if err == nil {
			continue
		}
		errs = append(errs, toValidationError(expr.Name, line, err))
	}

	return errs
}

func toValidationError(name string, line int, err error) ValidationError {
	ve := ValidationError{
		Expression: name,
		Field:      "body",
		Message:    err.Error(),
		Code:       ErrValidationGeneric,
		Line:       line,
	}
	var le *lower.Error
	if !errors.As(err, &le) {
		return ve
	}
	if le.Path != "" {
		ve.Field = "body/" + le.Path
	}
	ve.Message = le.Message
	switch le.Code {
	case lower.ErrCodeUnboundVariable:
		ve.Code = ErrUnboundVariable
	case lower.ErrCodeSignatureMismatch:
		ve.Code = ErrSignatureMismatch
	case lower.ErrCodeUnsupportedOperation:
		ve.Code = ErrUnsupportedNode
	}
	return ve
}
