package cli

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var harnessScenarios = filepath.Join("..", "harness", "testdata", "scenarios")

const oneSource = `expressions: one: body: 1`

const oneScenario = `
name: one
description: a single literal
source: one.cue
cases:
  - expr: one
    expect: 1
`

func TestRunHarnessScenarios(t *testing.T) {
	out, _, err := execute(NewRootCommand(), "test", harnessScenarios)
	require.NoError(t, err)

	assert.Contains(t, out, "✓ arith (")
	assert.Contains(t, out, "✓ errors (")
	assert.Contains(t, out, "Test Summary: 2 passed, 0 failed, 2 total")
	assert.Contains(t, out, "✓ All scenarios passed")
}

func TestRunFilter(t *testing.T) {
	out, _, err := execute(NewRootCommand(), "test", harnessScenarios, "--filter", "arith*")
	require.NoError(t, err)
	assert.Contains(t, out, "Test Summary: 1 passed, 0 failed, 1 total")
	assert.NotContains(t, out, "errors")
}

func TestRunNoScenarios(t *testing.T) {
	out, _, err := execute(NewRootCommand(), "test", t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, "No scenarios found.\n", out)
}

func TestRunMissingDirectory(t *testing.T) {
	_, _, err := execute(NewRootCommand(), "test", "/nonexistent/scenarios")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestRunFailingScenario(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "one.cue", oneSource)
	writeFile(t, dir, "wrong.yaml", `
name: wrong
description: expects the wrong value
source: one.cue
cases:
  - expr: one
    expect: 2
`)

	out, _, err := execute(NewRootCommand(), "test", dir)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "✗ wrong")
	assert.Contains(t, out, "cases[0] (one): ")
	assert.Contains(t, out, "Test Summary: 0 passed, 1 failed, 1 total")
}

func TestRunInvalidScenario(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "bad.yaml", "name: bad\n")

	out, _, err := execute(NewRootCommand(), "test", dir)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "✗ bad.yaml")
	assert.Contains(t, out, "failed to load scenario")
}

func TestRunUpdateGolden(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "one.cue", oneSource)
	writeFile(t, dir, "one.yaml", oneScenario)

	out, _, err := execute(NewRootCommand(), "test", dir, "--update")
	require.NoError(t, err)
	assert.Contains(t, out, "✓ one (golden updated)")

	golden, err := os.ReadFile(filepath.Join(dir, "golden", "one.golden"))
	require.NoError(t, err)
	assert.Contains(t, string(golden), "# one()\n")

	// The golden directory is not scanned for scenarios
	out, _, err = execute(NewRootCommand(), "test", dir)
	require.NoError(t, err)
	assert.Contains(t, out, "Test Summary: 1 passed, 0 failed, 1 total")

	require.NoError(t, os.WriteFile(filepath.Join(dir, "golden", "one.golden"), []byte("# stale\n"), 0644))
	out, _, err = execute(NewRootCommand(), "test", dir)
	require.Error(t, err)
	assert.Contains(t, out, "IR does not match golden file")
}

func TestRunJSON(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "one.cue", oneSource)
	writeFile(t, dir, "one.yaml", oneScenario)

	out, _, err := execute(NewRootCommand(), "--format", "json", "test", dir)
	require.NoError(t, err)

	var resp struct {
		Status string     `json:"status"`
		Data   TestResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, 1, resp.Data.Passed)
	assert.Equal(t, 1, resp.Data.Total)
	require.Len(t, resp.Data.Scenarios, 1)
	assert.Equal(t, "one", resp.Data.Scenarios[0].Name)
}

func TestRunJSONFailure(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "bad.yaml", "name: bad\n")

	out, _, err := execute(NewRootCommand(), "--format", "json", "test", dir)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))

	var resp CLIResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "error", resp.Status)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "E_TEST_FAILED", resp.Error.Code)
}
