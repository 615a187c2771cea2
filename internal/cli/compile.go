package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/exprgen/internal/ir"
)

// CompileOptions holds flags for the compile command.
type CompileOptions struct {
	*RootOptions
	Output string // output file path
}

// CompilationResult holds the compiled expressions.
type CompilationResult struct {
	IRVersion   string               `json:"ir_version"`
	Expressions []CompiledExpression `json:"expressions"`
}

// CompiledExpression is one expression in printable and canonical form.
type CompiledExpression struct {
	Name      string          `json:"name"`
	Signature string          `json:"signature"`
	Nodes     int             `json:"nodes"`
	Hash      string          `json:"hash,omitempty"`
	IR        string          `json:"ir"`
	Canonical json.RawMessage `json:"canonical,omitempty"`
}

// NewCompileCommand creates the compile command.
func NewCompileCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CompileOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "compile <source>",
		Short: "Compile CUE expressions to IR",
		Long: `Compile the expressions of a CUE file (or directory) to IR.

Prints each expression's formatted tree and content hash. With --output
the trees are also written as canonical JSON.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true, // Don't print usage on errors - we handle our own error output
		SilenceErrors: true, // Don't print errors - we handle our own error output
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCompile(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.Output, "output", "o", "", "output file path")

	return cmd
}

func runCompile(opts *CompileOptions, source string, cmd *cobra.Command) error {
	formatter := opts.newFormatter(cmd)

	loadResult, err := LoadProgram(source)
	if err != nil {
		return outputLoadError(formatter, err)
	}
	formatter.VerboseLog("Loaded %d CUE file(s) from %s", loadResult.FileCount, source)

	result := buildCompilationResult(loadResult)

	if opts.Output != "" {
		if err := writeIRToFile(result, opts.Output); err != nil {
			return outputCommandError(formatter, ErrCodeWriteFailed, fmt.Sprintf("writing output file: %v", err))
		}
	}

	return outputCompileSuccess(formatter, result, opts.Output)
}

func buildCompilationResult(res *LoadResult) *CompilationResult {
	result := &CompilationResult{IRVersion: ir.IRVersion}
	for i := range res.Program.Expressions {
		e := &res.Program.Expressions[i]
		ce := CompiledExpression{
			Name:      e.Name,
			Signature: signature(res.Registry, e),
			Nodes:     ir.Count(e.Root),
			IR:        ir.FormatWith(res.Registry, e.Root),
		}
		// Trees holding exception constants have no canonical form.
		if hash, err := ir.TreeHash(e.Root); err == nil {
			ce.Hash = hash
		}
		if canonical, err := ir.MarshalCanonical(e.Root); err == nil {
			ce.Canonical = canonical
		}
		result.Expressions = append(result.Expressions, ce)
	}
	return result
}

// outputCompileSuccess outputs successful compilation results.
func outputCompileSuccess(formatter *OutputFormatter, result *CompilationResult, outputFile string) error {
	if formatter.Format == "json" {
		return formatter.Success(result)
	}

	formatter.Pass("Compiled %d expression(s)", len(result.Expressions))
	fmt.Fprintln(formatter.Writer)

	for _, e := range result.Expressions {
		hash := e.Hash
		if hash == "" {
			hash = "(unhashable)"
		}
		fmt.Fprintf(formatter.Writer, "  %s: %d node(s), %s\n", e.Signature, e.Nodes, hash)
		if formatter.Verbose {
			fmt.Fprintln(formatter.Writer, indent(e.IR, "    "))
		}
	}
	fmt.Fprintln(formatter.Writer)

	if outputFile != "" {
		fmt.Fprintf(formatter.Writer, "Wrote canonical IR to %s\n", outputFile)
	}

	return nil
}

// outputLoadError reports a LoadProgram failure.
func outputLoadError(formatter *OutputFormatter, err error) error {
	var loadErr *LoadError
	if errors.As(err, &loadErr) {
		if formatter.Format != "json" && loadErr.Pos.IsValid() {
			fmt.Fprintf(formatter.Writer, "%s:%d:%d\n", loadErr.Pos.Filename(), loadErr.Pos.Line(), loadErr.Pos.Column())
		}
		return outputCommandError(formatter, loadErr.Code, loadErr.Message)
	}
	return outputCommandError(formatter, ErrCodeGeneric, err.Error())
}

// outputCommandError outputs a single command-level error (exit code 2).
func outputCommandError(formatter *OutputFormatter, code, message string) error {
	_ = formatter.Error(code, message, nil)
	return WrapExitError(ExitCommandError, fmt.Sprintf("%s: %s", code, message), nil)
}

// writeIRToFile writes the compilation result to a file.
func writeIRToFile(result *CompilationResult, filename string) error {
	// Indented for readability; hashes cover the compact canonical form.
	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling IR: %w", err)
	}

	if err := os.WriteFile(filename, data, 0644); err != nil {
		return fmt.Errorf("writing file: %w", err)
	}

	return nil
}
