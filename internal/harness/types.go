package harness

import "github.com/roach88/exprgen/internal/rt"

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass indicates overall success: every case matched its expectation
	// and the backend agreed with the interpreter.
	Pass bool `json:"pass"`

	// Expressions holds the formatted IR of every compiled expression,
	// in declaration order.
	Expressions []ExpressionDump `json:"expressions"`

	// Cases holds one entry per scenario case, in order.
	Cases []CaseResult `json:"cases"`

	// Errors contains validation error messages.
	// Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`
}

// ExpressionDump is the printable form of one compiled expression.
type ExpressionDump struct {
	Name      string `json:"name"`
	Signature string `json:"signature"`
	IR        string `json:"ir"`

	// Lowering is the lowering failure code, empty when lowering succeeded.
	Lowering string `json:"lowering,omitempty"`
}

// CaseResult is what the lowered evaluator produced for one case.
type CaseResult struct {
	Expr  string     `json:"expr"`
	Args  []rt.Value `json:"args,omitempty"`
	Value rt.Value   `json:"value,omitempty"`

	// Code classifies the failure: a lowering code, EXCEPTION, or empty
	// for success.
	Code string `json:"code,omitempty"`

	// Exception is the type name of an uncaught exception.
	Exception string `json:"exception,omitempty"`

	// Message is the failure's error text.
	Message string `json:"message,omitempty"`

	// Calls is the probe log recorded during evaluation.
	Calls []rt.Value `json:"calls,omitempty"`

	Pass bool `json:"pass"`
}

// NewResult creates a new passing result.
// Used as the starting point for test execution.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Cases:  []CaseResult{},
		Errors: []string{},
	}
}

// AddError adds a validation error and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}
