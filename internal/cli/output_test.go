package cli

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestFormatter(format string, verbose bool) (*OutputFormatter, *bytes.Buffer, *bytes.Buffer) {
	out, errOut := &bytes.Buffer{}, &bytes.Buffer{}
	return &OutputFormatter{Format: format, Writer: out, ErrWriter: errOut, Verbose: verbose}, out, errOut
}

func TestOutputFormatter_JSON(t *testing.T) {
	f, out, _ := newTestFormatter("json", false)

	require.NoError(t, f.Success(map[string]int{"expressions": 2}))
	var ok CLIResponse
	require.NoError(t, json.Unmarshal(out.Bytes(), &ok))
	assert.Equal(t, "ok", ok.Status)
	assert.Equal(t, map[string]any{"expressions": float64(2)}, ok.Data)
	assert.Nil(t, ok.Error)

	out.Reset()
	require.NoError(t, f.Error("UNBOUND_VARIABLE", `variable "x" is not declared`, "Block[1]/Load"))
	var failed CLIResponse
	require.NoError(t, json.Unmarshal(out.Bytes(), &failed))
	assert.Equal(t, "error", failed.Status)
	require.NotNil(t, failed.Error)
	assert.Equal(t, "UNBOUND_VARIABLE", failed.Error.Code)
	assert.Equal(t, "Block[1]/Load", failed.Error.Details)
}

func TestOutputFormatter_TextError(t *testing.T) {
	tests := []struct {
		name    string
		verbose bool
		details any
		want    string
	}{
		{"no details", false, nil, "Error [E005]: source not found\n"},
		{"location", false, "Block[2]/Load", "Error [E005]: source not found\n  at Block[2]/Load\n"},
		{"empty location", false, "", "Error [E005]: source not found\n"},
		{"structured details hidden", false, map[string]int{"line": 3}, "Error [E005]: source not found\n"},
		{"structured details verbose", true, map[string]int{"line": 3}, "Error [E005]: source not found\nDetails: map[line:3]\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, out, _ := newTestFormatter("text", tt.verbose)
			require.NoError(t, f.Error("E005", "source not found", tt.details))
			assert.Equal(t, tt.want, out.String())
		})
	}
}

func TestOutputFormatter_VerboseLogUsesErrWriter(t *testing.T) {
	f, out, errOut := newTestFormatter("json", true)
	f.VerboseLog("Loaded %d CUE file(s)", 2)
	assert.Empty(t, out.String(), "diagnostics never mix with JSON")
	assert.Equal(t, "Loaded 2 CUE file(s)\n", errOut.String())

	quiet, out, errOut := newTestFormatter("text", false)
	quiet.VerboseLog("hidden")
	assert.Empty(t, out.String())
	assert.Empty(t, errOut.String())

	noErr := &OutputFormatter{Writer: out, Verbose: true}
	noErr.VerboseLog("fallback")
	assert.Equal(t, "fallback\n", out.String())
}

func TestOutputFormatter_PassFail(t *testing.T) {
	f, out, _ := newTestFormatter("text", false)

	f.Pass("Compiled %d expression(s)", 2)
	f.Fail("Check failed")
	assert.Equal(t, "✓ Compiled 2 expression(s)\n✗ Check failed\n", out.String())
	assert.Equal(t, "E110", Code("E110"))
}

func TestGetExitCode(t *testing.T) {
	assert.Equal(t, ExitSuccess, GetExitCode(nil))
	assert.Equal(t, ExitCommandError, GetExitCode(NewExitError(ExitCommandError, "bad path")))
	assert.Equal(t, ExitFailure, GetExitCode(WrapExitError(ExitFailure, "lowering failed", errors.New("x"))))
	assert.Equal(t, ExitFailure, GetExitCode(errors.New("plain")), "plain errors are failures")

	wrapped := fmt.Errorf("outer: %w", NewExitError(ExitCommandError, "inner"))
	assert.Equal(t, ExitCommandError, GetExitCode(wrapped))

	err := WrapExitError(ExitFailure, "evaluation failed", errors.New("boom"))
	assert.Equal(t, "evaluation failed: boom", err.Error())
	assert.EqualError(t, errors.Unwrap(err), "boom")
}
