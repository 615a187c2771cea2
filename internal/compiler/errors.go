package compiler

import (
	"fmt"
	"strings"

	"cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"
)

// CompileError is a source error located by its field path, e.g.
// "expressions.double.body.call.method". Source-level CUE failures use the
// field "cue".
type CompileError struct {
	Field   string
	Message string
	Pos     token.Pos
}

func (e *CompileError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s",
			e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(),
			e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Section is the top-level source section of the error: "types",
// "methods", "expressions" or "cue".
func (e *CompileError) Section() string {
	section, _, _ := strings.Cut(e.Field, ".")
	return section
}

// cueError attributes a CUE evaluation error to field. CUE reports one
// error per conflicting value; the first one carries the position.
func cueError(field string, err error) error {
	if err == nil {
		return nil
	}
	ce := &CompileError{Field: field, Message: err.Error()}
	if errs := errors.Errors(err); len(errs) > 0 {
		ce.Message = errs[0].Error()
		if positions := errors.Positions(errs[0]); len(positions) > 0 {
			ce.Pos = positions[0]
		}
	}
	return ce
}
