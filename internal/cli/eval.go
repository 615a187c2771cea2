package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/roach88/exprgen/internal/lower"
	"github.com/roach88/exprgen/internal/rt"
)

// EvalOptions holds flags for the eval command.
type EvalOptions struct {
	*RootOptions
	Args string
}

// EvalResult is the outcome of a successful evaluation.
type EvalResult struct {
	Expression string     `json:"expression"`
	Args       []rt.Value `json:"args"`
	Value      rt.Value   `json:"value"`
	Type       string     `json:"type"`
}

// NewEvalCommand creates the eval command.
func NewEvalCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &EvalOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "eval <source> <expression>",
		Short: "Lower and evaluate one expression",
		Long: `Lower one expression of a CUE source and evaluate it.

Arguments bind to the expression's params in order and are given as a
JSON (or YAML flow) list.

Example:
  exprgen eval ./exprs.cue double --args '[21]'`,
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runEval(opts, args[0], args[1], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Args, "args", "[]", "expression arguments as a JSON list")

	return cmd
}

func runEval(opts *EvalOptions, source, name string, cmd *cobra.Command) error {
	formatter := opts.newFormatter(cmd)

	args, err := parseArgs(opts.Args)
	if err != nil {
		return outputCommandError(formatter, ErrCodeBadArgs, fmt.Sprintf("invalid --args: %v", err))
	}

	loadResult, err := LoadProgram(source)
	if err != nil {
		return outputLoadError(formatter, err)
	}
	expr, ok := loadResult.Program.Expression(name)
	if !ok {
		return outputCommandError(formatter, ErrCodeBadArgs, fmt.Sprintf("expression %q not found in %s", name, source))
	}
	if len(args) != len(expr.Params) {
		return outputCommandError(formatter, ErrCodeBadArgs,
			fmt.Sprintf("%s takes %d argument(s), got %d", signature(loadResult.Registry, expr), len(expr.Params), len(args)))
	}

	backend, err := opts.newBackend(loadResult, opts.logger(formatter.GetErrWriter()))
	if err != nil {
		return outputCommandError(formatter, ErrCodeGeneric, err.Error())
	}
	ev, err := backend.Lower(expr.Root, expr.Params...)
	if err != nil {
		var le *lower.Error
		if errors.As(err, &le) {
			_ = formatter.Error(string(le.Code), le.Message, le.Path)
			return WrapExitError(ExitFailure, "lowering failed", err)
		}
		return outputCommandError(formatter, ErrCodeGeneric, err.Error())
	}
	formatter.VerboseLog("Lowered %s: %d slot(s)", expr.Name, ev.Slots())

	value, err := ev.Eval(args...)
	if err != nil {
		exc := rt.AsException(err)
		_ = formatter.Error(ErrCodeException,
			fmt.Sprintf("uncaught %s: %s", loadResult.Registry.Name(exc.Type), exc.Message), nil)
		return WrapExitError(ExitFailure, "evaluation failed", err)
	}

	result := EvalResult{
		Expression: expr.Name,
		Args:       args,
		Value:      value,
		Type:       loadResult.Registry.Name(rt.TypeOf(value)),
	}
	if formatter.Format == "json" {
		return formatter.Success(result)
	}
	fmt.Fprintf(formatter.Writer, "%s = %s\n", signature(loadResult.Registry, expr), formatValue(value))
	return nil
}

// parseArgs decodes a JSON or YAML flow list into runtime values.
func parseArgs(s string) ([]rt.Value, error) {
	var raw []any
	if err := yaml.Unmarshal([]byte(s), &raw); err != nil {
		return nil, err
	}
	args := make([]rt.Value, len(raw))
	for i, v := range raw {
		cv, err := rt.FromGo(v)
		if err != nil {
			return nil, fmt.Errorf("[%d]: %w", i, err)
		}
		args[i] = cv
	}
	return args, nil
}

// formatValue renders a runtime value for text output.
func formatValue(v rt.Value) string {
	switch x := v.(type) {
	case nil:
		return "null"
	case string:
		return fmt.Sprintf("%q", x)
	case *rt.Exception:
		return fmt.Sprintf("exception(%s)", x.Message)
	case []rt.Value:
		out := "["
		for i, e := range x {
			if i > 0 {
				out += ", "
			}
			out += formatValue(e)
		}
		return out + "]"
	default:
		return fmt.Sprintf("%v", x)
	}
}
