package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/load"
	"cuelang.org/go/cue/token"

	"github.com/roach88/exprgen/internal/compiler"
	"github.com/roach88/exprgen/internal/ir"
	"github.com/roach88/exprgen/internal/rt"
)

// LoadResult contains a compiled program and the runtime it was compiled
// against.
type LoadResult struct {
	Program   *compiler.Program
	Registry  *ir.Registry
	Methods   *rt.Methods
	FileCount int // Number of CUE files loaded
}

// LoadError represents an error that occurred while loading a program.
type LoadError struct {
	Code    string
	Message string
	Pos     token.Pos // CUE position if available
}

func (e *LoadError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s", e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(), e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// LoadProgram loads a CUE file, or every CUE file of a directory, and
// compiles it against a fresh runtime holding the builtin library.
// Returns a *LoadError on failure.
func LoadProgram(path string) (*LoadResult, error) {
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return nil, &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("source not found: %s", path)}
	}
	if err != nil {
		return nil, &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("error accessing source: %v", err)}
	}

	ctx := cuecontext.New()
	var value cue.Value
	fileCount := 1
	if info.IsDir() {
		files, err := FindCUEFiles(path)
		if err != nil {
			return nil, &LoadError{Code: ErrCodeScanError, Message: fmt.Sprintf("error scanning directory: %v", err)}
		}
		if len(files) == 0 {
			return nil, &LoadError{Code: ErrCodeNoFiles, Message: fmt.Sprintf("no CUE files found in %s", path)}
		}
		fileCount = len(files)

		// Load CUE instances
		instances := load.Instances([]string{"."}, &load.Config{Dir: path})
		if len(instances) == 0 {
			return nil, &LoadError{Code: ErrCodeLoadFailed, Message: "no CUE instances loaded"}
		}
		inst := instances[0]
		if inst.Err != nil {
			return nil, &LoadError{Code: ErrCodeLoadFailed, Message: fmt.Sprintf("loading CUE files: %v", inst.Err)}
		}
		value = ctx.BuildInstance(inst)
	} else {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, &LoadError{Code: ErrCodeLoadFailed, Message: fmt.Sprintf("reading %s: %v", path, err)}
		}
		value = ctx.CompileBytes(data, cue.Filename(path))
	}
	if err := value.Err(); err != nil {
		return nil, &LoadError{Code: ErrCodeBuildFailed, Message: fmt.Sprintf("building CUE value: %v", err)}
	}

	reg := ir.NewRegistry()
	methods, lib, err := rt.Builtins(reg)
	if err != nil {
		return nil, &LoadError{Code: ErrCodeGeneric, Message: fmt.Sprintf("installing builtins: %v", err)}
	}

	prog, err := compiler.Compile(value, reg, lib)
	if err != nil {
		return nil, convertCompileError(err)
	}

	return &LoadResult{
		Program:   prog,
		Registry:  reg,
		Methods:   methods,
		FileCount: fileCount,
	}, nil
}

// FindCUEFiles walks the directory and returns all .cue file paths.
func FindCUEFiles(dir string) ([]string, error) {
	var files []string
	err := filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() && filepath.Ext(path) == ".cue" {
			files = append(files, path)
		}
		return nil
	})
	return files, err
}

// convertCompileError converts a compiler error to a LoadError with position info.
func convertCompileError(err error) *LoadError {
	var compileErr *compiler.CompileError
	if errors.As(err, &compileErr) {
		return &LoadError{
			Code:    SectionErrorCode(compileErr.Section()),
			Message: compileErr.Message,
			Pos:     compileErr.Pos,
		}
	}
	return &LoadError{Code: ErrCodeGeneric, Message: err.Error()}
}

// Error code constants - unified across all CLI commands.
const (
	ErrCodeGeneric     = "E001" // Generic/unknown error
	ErrCodeScanError   = "E002" // Directory scan error
	ErrCodeNoFiles     = "E003" // No CUE files found
	ErrCodeLoadFailed  = "E004" // CUE load failed
	ErrCodeNotFound    = "E005" // Path not found
	ErrCodeBuildFailed = "E006" // CUE build failed
	ErrCodeWriteFailed = "E007" // File write error
	ErrCodeStoreFailed = "E008" // Catalog open/read/write error
	ErrCodeBadArgs     = "E009" // Invalid command arguments
	ErrCodeConfig      = "E010" // Config file unreadable or invalid

	// Source compilation errors
	ErrCodeTypeDecl   = "E120" // Invalid types section
	ErrCodeMethodDecl = "E121" // Invalid methods section
	ErrCodeExpression = "E122" // Invalid expression or node

	// Evaluation errors
	ErrCodeException = "E130" // Uncaught exception
)

// SectionErrorCode maps a compiler error's source section to an error code.
func SectionErrorCode(section string) string {
	switch section {
	case "types":
		return ErrCodeTypeDecl
	case "methods":
		return ErrCodeMethodDecl
	case "expressions":
		return ErrCodeExpression
	case "cue":
		return ErrCodeBuildFailed
	default:
		return ErrCodeGeneric
	}
}

// signature renders "name(a Int, b String)".
func signature(reg *ir.Registry, e *compiler.Expression) string {
	parts := make([]string, len(e.Params))
	for i, p := range e.Params {
		parts[i] = p.Name + " " + reg.Name(p.Type)
	}
	return e.Name + "(" + strings.Join(parts, ", ") + ")"
}

// indent prefixes every line of s.
func indent(s, prefix string) string {
	return prefix + strings.ReplaceAll(s, "\n", "\n"+prefix)
}
