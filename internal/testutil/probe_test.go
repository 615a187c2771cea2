package testutil

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/exprgen/internal/ir"
)

func TestProbe_RecordsInCallOrder(t *testing.T) {
	r := NewRuntime(t)

	callee, ok := r.Methods.Resolve(r.Probe.Tick.Method)
	require.True(t, ok)
	assert.True(t, callee.Static)

	for _, v := range []int64{3, 1, 2} {
		got, err := callee.Call(nil, []any{v})
		require.NoError(t, err)
		assert.Equal(t, v, got)
	}
	assert.Equal(t, []any{int64(3), int64(1), int64(2)}, r.Probe.Calls())
	assert.Equal(t, 3, r.Probe.Count())

	r.Probe.Reset()
	assert.Empty(t, r.Probe.Calls())
}

func TestProbe_Nodes(t *testing.T) {
	r := NewRuntime(t)

	n := r.Probe.I(7)
	call, ok := n.(ir.InvokeStatic)
	require.True(t, ok)
	assert.True(t, call.Method.Equal(r.Probe.Tick.Method))
	assert.Equal(t, []ir.Node{ir.IntegerLiteral{Value: 7}}, call.Args)

	wrapped := r.Probe.T(ir.True())
	assert.Equal(t, ir.KindInvokeStatic, wrapped.Kind())
}

func TestNewRuntime_StableLayout(t *testing.T) {
	a := NewRuntime(t)
	b := NewRuntime(t)

	assert.Equal(t, a.Probe.Owner, b.Probe.Owner)
	assert.Equal(t, a.Library.IndexError, b.Library.IndexError)
	assert.Equal(t, a.Registry.Len(), b.Registry.Len())
	assert.Equal(t, a.Methods.Len(), b.Methods.Len())
}

func TestProbe_ThreadSafe(t *testing.T) {
	r := NewRuntime(t)
	callee, _ := r.Methods.Resolve(r.Probe.Mark.Method)

	const numGoroutines = 50
	var wg sync.WaitGroup
	wg.Add(numGoroutines)
	for i := 0; i < numGoroutines; i++ {
		go func(idx int) {
			defer wg.Done()
			_, _ = callee.Call(nil, []any{idx})
		}(i)
	}
	wg.Wait()

	assert.Equal(t, numGoroutines, r.Probe.Count())
}
