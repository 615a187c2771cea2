package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/roach88/exprgen/internal/ir"
	"github.com/roach88/exprgen/internal/lower"
)

// Scenario defines a conformance scenario.
type Scenario struct {
	// Name uniquely identifies this scenario. It also names the golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Source is the CUE program to compile.
	// Relative paths are resolved against the scenario file's directory.
	Source string `yaml:"source"`

	// Supported restricts the backend to these node kinds (e.g. "Block").
	// Empty means every kind.
	Supported []string `yaml:"supported,omitempty"`

	// Cases are evaluated in order.
	Cases []Case `yaml:"cases"`
}

// Case evaluates one expression and checks the outcome.
type Case struct {
	// Expr names the expression in the program.
	Expr string `yaml:"expr"`

	// Args bind to the expression's params in order.
	Args []any `yaml:"args,omitempty"`

	// Expect is the expected value. Unset means the value is not checked;
	// an explicit null expects a null result.
	Expect yaml.Node `yaml:"expect,omitempty"`

	// ExpectError expects a failure instead of a value.
	ExpectError *ExpectError `yaml:"expect_error,omitempty"`

	// Calls is the expected probe log. Unset means the log is not checked;
	// an empty list expects no probe calls.
	Calls []any `yaml:"calls,omitempty"`
}

// HasExpect reports whether the case states an expected value.
func (c *Case) HasExpect() bool {
	return c.Expect.Kind != 0
}

// ExpectError describes an expected failure.
type ExpectError struct {
	// Code is a lowering code (UNBOUND_VARIABLE, SIGNATURE_MISMATCH,
	// UNSUPPORTED_OPERATION) or EXCEPTION for an uncaught throw.
	Code string `yaml:"code"`

	// Exception is the expected exception type name. Only valid with
	// code EXCEPTION; empty matches any exception.
	Exception string `yaml:"exception,omitempty"`
}

// CodeException classifies a failure raised while evaluating.
const CodeException = "EXCEPTION"

var knownCodes = map[string]bool{
	string(lower.ErrCodeUnboundVariable):      true,
	string(lower.ErrCodeSignatureMismatch):    true,
	string(lower.ErrCodeUnsupportedOperation): true,
	CodeException: true,
}

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	return LoadScenarioWithBasePath(path, filepath.Dir(path))
}

// LoadScenarioWithBasePath reads and parses a scenario YAML file,
// resolving the source path relative to basePath.
func LoadScenarioWithBasePath(path, basePath string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true) // Reject unknown fields
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if scenario.Source != "" && !filepath.IsAbs(scenario.Source) && basePath != "" {
		scenario.Source = filepath.Join(basePath, scenario.Source)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if s.Source == "" {
		return fmt.Errorf("source is required")
	}
	if _, err := os.Stat(s.Source); os.IsNotExist(err) {
		return fmt.Errorf("source file not found: %s", s.Source)
	}
	if len(s.Cases) == 0 {
		return fmt.Errorf("cases list is required and must be non-empty")
	}
	if _, err := supportedKinds(s.Supported); err != nil {
		return err
	}

	for i := range s.Cases {
		c := &s.Cases[i]
		if c.Expr == "" {
			return fmt.Errorf("cases[%d]: expr is required", i)
		}
		if c.HasExpect() && c.ExpectError != nil {
			return fmt.Errorf("cases[%d]: expect and expect_error are mutually exclusive", i)
		}
		if e := c.ExpectError; e != nil {
			if !knownCodes[e.Code] {
				return fmt.Errorf("cases[%d].expect_error: unknown code %q", i, e.Code)
			}
			if e.Exception != "" && e.Code != CodeException {
				return fmt.Errorf("cases[%d].expect_error: exception requires code %s", i, CodeException)
			}
		}
		if _, err := toValues(c.Args); err != nil {
			return fmt.Errorf("cases[%d].args: %w", i, err)
		}
		if c.HasExpect() {
			if _, err := decodeValue(&c.Expect); err != nil {
				return fmt.Errorf("cases[%d].expect: %w", i, err)
			}
		}
		if _, err := toValues(c.Calls); err != nil {
			return fmt.Errorf("cases[%d].calls: %w", i, err)
		}
	}
	return nil
}

// supportedKinds parses the kind names of a supported list.
func supportedKinds(names []string) ([]ir.Kind, error) {
	kinds := make([]ir.Kind, 0, len(names))
	for i, name := range names {
		k, ok := ir.ParseKind(name)
		if !ok {
			return nil, fmt.Errorf("supported[%d]: unknown node kind %q", i, name)
		}
		kinds = append(kinds, k)
	}
	return kinds, nil
}
