package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/exprgen/internal/compiler"
)

// CheckResult holds lowering check results.
type CheckResult struct {
	Valid       bool                       `json:"valid"`
	Backend     string                     `json:"backend"`
	Expressions int                        `json:"expressions"`
	Errors      []compiler.ValidationError `json:"errors,omitempty"`
}

// NewCheckCommand creates the check command.
func NewCheckCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "check <source>",
		Short: "Lower every expression without evaluating",
		Long: `Lower every expression of a CUE source with the configured backend.

Reports every expression that fails to lower with its error code:
  E110 UNBOUND_VARIABLE      a load or assignment names no declaration
  E111 SIGNATURE_MISMATCH    a method descriptor does not resolve
  E112 UNSUPPORTED_OPERATION the backend cannot lower a node kind

Errors are collected, not fail-fast.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true, // Don't print usage on errors
		SilenceErrors: true, // Don't print errors - we handle our own error output
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCheck(rootOpts, args[0], cmd)
		},
	}

	return cmd
}

func runCheck(opts *RootOptions, source string, cmd *cobra.Command) error {
	formatter := opts.newFormatter(cmd)

	loadResult, err := LoadProgram(source)
	if err != nil {
		return outputLoadError(formatter, err)
	}
	formatter.VerboseLog("Loaded %d CUE file(s) from %s", loadResult.FileCount, source)

	backend, err := opts.newBackend(loadResult, opts.logger(formatter.GetErrWriter()))
	if err != nil {
		return outputCommandError(formatter, ErrCodeGeneric, err.Error())
	}

	for _, e := range loadResult.Program.Expressions {
		formatter.VerboseLog("Lowering expression: %s", e.Name)
	}
	errs := compiler.Validate(loadResult.Program, backend)

	result := CheckResult{
		Valid:       len(errs) == 0,
		Backend:     backend.Name(),
		Expressions: len(loadResult.Program.Expressions),
		Errors:      errs,
	}
	if len(errs) > 0 {
		return outputCheckErrors(formatter, result)
	}
	return outputCheckSuccess(formatter, result)
}

// outputCheckSuccess outputs successful check results.
func outputCheckSuccess(formatter *OutputFormatter, result CheckResult) error {
	if formatter.Format == "json" {
		return formatter.Success(result)
	}

	formatter.Pass("All %d expression(s) lower with %s", result.Expressions, result.Backend)
	return nil
}

// outputCheckErrors outputs every lowering failure.
func outputCheckErrors(formatter *OutputFormatter, result CheckResult) error {
	errs := result.Errors
	if formatter.Format == "json" {
		response := CLIResponse{
			Status: "error",
			Data:   result,
			Error: &CLIError{
				Code:    errs[0].Code,
				Message: errs[0].Message,
			},
		}

		if err := formatter.JSON(response); err != nil {
			return err
		}

		// Lowering failures = exit code 1
		return NewExitError(ExitFailure, fmt.Sprintf("check failed with %d error(s)", len(errs)))
	}

	// Text format
	formatter.Fail("Check failed")
	fmt.Fprintln(formatter.Writer)

	for _, err := range errs {
		if err.Line > 0 {
			fmt.Fprintf(formatter.Writer, "line %d\n", err.Line)
		}
		fmt.Fprintf(formatter.Writer, "  %s: %s: %s (%s)\n\n", Code(err.Code), err.Expression, err.Message, err.Field)
	}

	// Lowering failures = exit code 1
	return NewExitError(ExitFailure, fmt.Sprintf("check failed with %d error(s)", len(errs)))
}
