package testutil

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/roach88/exprgen/internal/ir"
	"github.com/roach88/exprgen/internal/rt"
)

// Runtime bundles a fresh type registry, the builtin method table and a
// probe. Every call to NewRuntime yields an independent, identically laid
// out runtime, so type tags are stable across tests.
type Runtime struct {
	Registry *ir.Registry
	Methods  *rt.Methods
	Library  *rt.Library
	Probe    *Probe
}

// NewRuntime builds a Runtime, failing the test on setup errors.
func NewRuntime(t testing.TB) *Runtime {
	t.Helper()
	reg := ir.NewRegistry()
	methods, lib, err := rt.Builtins(reg)
	require.NoError(t, err)
	probe, err := NewProbe(reg, methods)
	require.NoError(t, err)
	return &Runtime{Registry: reg, Methods: methods, Library: lib, Probe: probe}
}
