package rt

import (
	"fmt"
	"sync"

	"github.com/roach88/exprgen/internal/ir"
)

// Func implements a static method.
type Func func(args []Value) (Value, error)

// VirtualFunc implements an instance method; recv is the evaluated target.
type VirtualFunc func(recv Value, args []Value) (Value, error)

// Callable is a resolved method table entry.
type Callable struct {
	Method  ir.Method
	Static  bool
	static  Func
	virtual VirtualFunc
}

// Call invokes the entry. recv is ignored for static entries.
func (c Callable) Call(recv Value, args []Value) (Value, error) {
	if c.Static {
		return c.static(args)
	}
	return c.virtual(recv, args)
}

// Methods is the table that invocation descriptors resolve against.
// Entries are keyed by ir.MethodKey, so lookups are purely structural.
//
// Thread-safety: registration and resolution are safe for concurrent use.
type Methods struct {
	mu      sync.RWMutex
	entries map[ir.MethodKey]Callable
}

// NewMethods creates an empty table.
func NewMethods() *Methods {
	return &Methods{entries: make(map[ir.MethodKey]Callable)}
}

// RegisterStatic binds a static implementation to m.
func (t *Methods) RegisterStatic(m ir.Method, fn Func) error {
	return t.register(Callable{Method: m, Static: true, static: fn})
}

// RegisterVirtual binds an instance implementation to m.
func (t *Methods) RegisterVirtual(m ir.Method, fn VirtualFunc) error {
	return t.register(Callable{Method: m, virtual: fn})
}

func (t *Methods) register(c Callable) error {
	if c.static == nil && c.virtual == nil {
		return fmt.Errorf("register %s: nil implementation", c.Method.Name())
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	key := c.Method.Key()
	if _, exists := t.entries[key]; exists {
		return fmt.Errorf("register %s: method already registered", key)
	}
	t.entries[key] = c
	return nil
}

// Resolve looks up the implementation bound to m.
func (t *Methods) Resolve(m ir.Method) (Callable, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	c, ok := t.entries[m.Key()]
	return c, ok
}

// Len returns the number of registered methods.
func (t *Methods) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.entries)
}
