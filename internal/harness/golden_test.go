package harness

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunWithGolden_Scenarios(t *testing.T) {
	for _, name := range []string{"arith", "errors"} {
		t.Run(name, func(t *testing.T) {
			scenario, err := LoadScenario(filepath.Join("testdata", "scenarios", name+".yaml"))
			require.NoError(t, err)

			result, err := RunWithGolden(t, scenario)
			require.NoError(t, err)
			assert.True(t, result.Pass, "errors: %v", result.Errors)
		})
	}
}

func TestSnapshot_Layout(t *testing.T) {
	result := &Result{Expressions: []ExpressionDump{
		{Name: "a", Signature: "a()", IR: "(int 1)"},
		{Name: "b", Signature: "b(x Int)", IR: "(load y)", Lowering: "UNBOUND_VARIABLE"},
	}}

	want := strings.Join([]string{
		"# a()",
		"(int 1)",
		"",
		"# b(x Int)",
		"# lowering: UNBOUND_VARIABLE",
		"(load y)",
		"",
	}, "\n")
	assert.Equal(t, want, string(Snapshot(result)))
}

func TestSnapshot_Deterministic(t *testing.T) {
	scenario, err := LoadScenario(filepath.Join("testdata", "scenarios", "arith.yaml"))
	require.NoError(t, err)

	first, err := Run(scenario)
	require.NoError(t, err)
	second, err := Run(scenario)
	require.NoError(t, err)
	assert.Equal(t, Snapshot(first), Snapshot(second))
}
