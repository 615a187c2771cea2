package store

import (
	"path/filepath"
	"testing"

	"github.com/roach88/exprgen/internal/ir"
)

// createTestStore creates a new temporary store for testing.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// sampleTree builds a small tree touching methods, scopes and literals.
func sampleTree(v int64) ir.Node {
	add := ir.StaticMethod2(ir.TypeObject, ir.TypeInt, "add", ir.TypeInt, ir.TypeInt)
	return ir.BlockOf(
		ir.Declare(ir.TypeInt, "x"),
		ir.Assign("x", ir.InvokeStatic2(add, ir.Literal(v), ir.Literal(1))),
		ir.TernaryOf(ir.IsNullOf(ir.LoadOf("x")), ir.Null(), ir.ArrayOf(ir.LoadOf("x"), ir.Literal("s"))),
	)
}
