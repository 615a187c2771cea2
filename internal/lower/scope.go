package lower

import "github.com/roach88/exprgen/internal/ir"

// Binding is a resolved local variable.
type Binding struct {
	Name string
	Type ir.TypeID
	Slot int
}

// Scope is the lexical scope stack used while lowering one tree.
//
// Every Push opens a frame; declarations land in the innermost frame and are
// visible until the matching Pop. Resolution searches innermost to outermost,
// so an inner declaration shadows an outer one of the same name.
//
// Slots are indices into the evaluation frame. A popped frame releases its
// slots for reuse by later siblings; Slots reports the high-water mark, which
// is the frame size an evaluator needs.
//
// Scope is not safe for concurrent use; each lowering owns one.
type Scope struct {
	frames []scopeFrame
	next   int
	max    int
}

type scopeFrame struct {
	names map[string]Binding
	base  int
}

// NewScope creates a scope stack holding a single outermost frame.
func NewScope() *Scope {
	s := &Scope{}
	s.Push()
	return s
}

// Push opens a new innermost frame.
func (s *Scope) Push() {
	s.frames = append(s.frames, scopeFrame{names: make(map[string]Binding), base: s.next})
}

// Pop closes the innermost frame and releases its slots.
// The outermost frame is never popped.
func (s *Scope) Pop() {
	if len(s.frames) <= 1 {
		return
	}
	top := s.frames[len(s.frames)-1]
	s.frames = s.frames[:len(s.frames)-1]
	s.next = top.base
}

// Declare binds name in the innermost frame to a fresh slot.
// Redeclaring a name in the same frame shadows the earlier binding.
func (s *Scope) Declare(name string, typ ir.TypeID) Binding {
	b := Binding{Name: name, Type: typ, Slot: s.next}
	s.next++
	if s.next > s.max {
		s.max = s.next
	}
	s.frames[len(s.frames)-1].names[name] = b
	return b
}

// Resolve finds the innermost binding for name.
func (s *Scope) Resolve(name string) (Binding, bool) {
	for i := len(s.frames) - 1; i >= 0; i-- {
		if b, ok := s.frames[i].names[name]; ok {
			return b, true
		}
	}
	return Binding{}, false
}

// Depth returns the number of open frames.
func (s *Scope) Depth() int {
	return len(s.frames)
}

// Slots returns the number of slots an evaluation frame must hold.
func (s *Scope) Slots() int {
	return s.max
}
