package lower

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/exprgen/internal/ir"
)

func TestScope_DeclareResolve(t *testing.T) {
	s := NewScope()
	a := s.Declare("a", ir.TypeInt)

	got, ok := s.Resolve("a")
	require.True(t, ok)
	assert.Equal(t, a, got)
	assert.Equal(t, 0, got.Slot)

	_, ok = s.Resolve("b")
	assert.False(t, ok)
}

func TestScope_PopHidesInnerBindings(t *testing.T) {
	s := NewScope()
	s.Push()
	s.Declare("inner", ir.TypeString)
	assert.Equal(t, 2, s.Depth())
	s.Pop()

	_, ok := s.Resolve("inner")
	assert.False(t, ok)
	assert.Equal(t, 1, s.Depth())
}

func TestScope_Shadowing(t *testing.T) {
	s := NewScope()
	outer := s.Declare("x", ir.TypeInt)
	s.Push()
	inner := s.Declare("x", ir.TypeString)

	got, _ := s.Resolve("x")
	assert.Equal(t, inner, got)
	assert.NotEqual(t, outer.Slot, inner.Slot)

	s.Pop()
	got, _ = s.Resolve("x")
	assert.Equal(t, outer, got)
}

func TestScope_RedeclareSameFrame(t *testing.T) {
	s := NewScope()
	first := s.Declare("x", ir.TypeInt)
	second := s.Declare("x", ir.TypeFloat)

	got, _ := s.Resolve("x")
	assert.Equal(t, second, got)
	assert.NotEqual(t, first.Slot, second.Slot)
}

func TestScope_SlotReuseAndHighWater(t *testing.T) {
	s := NewScope()
	s.Declare("p", ir.TypeInt)

	s.Push()
	s.Declare("a", ir.TypeInt)
	s.Declare("b", ir.TypeInt)
	s.Pop()

	s.Push()
	c := s.Declare("c", ir.TypeInt)
	s.Pop()

	assert.Equal(t, 1, c.Slot, "released slots are reused")
	assert.Equal(t, 3, s.Slots())
}

func TestScope_OutermostFrameNeverPops(t *testing.T) {
	s := NewScope()
	s.Declare("param", ir.TypeAny)
	s.Pop()
	s.Pop()

	_, ok := s.Resolve("param")
	assert.True(t, ok)
	assert.Equal(t, 1, s.Depth())
}
