package ir

import (
	"errors"
	"fmt"
	"sync"

	"fortio.org/safecast"
)

// TypeID is an opaque type tag resolved by the host runtime ahead of time.
// The IR only stores and compares these identifiers.
type TypeID uint32

// Builtin type tags. Every Registry starts with these in this order.
const (
	TypeInvalid TypeID = iota
	TypeVoid
	TypeAny
	TypeBool
	TypeInt
	TypeFloat
	TypeString
	TypeArray
	TypeObject
	TypeError // root of the throwable hierarchy
	builtinTypeCount
)

var builtinTypes = [builtinTypeCount]struct {
	name  string
	super TypeID
}{
	TypeInvalid: {"<invalid>", TypeInvalid},
	TypeVoid:    {"Void", TypeInvalid},
	TypeAny:     {"Any", TypeInvalid},
	TypeBool:    {"Bool", TypeAny},
	TypeInt:     {"Int", TypeAny},
	TypeFloat:   {"Float", TypeAny},
	TypeString:  {"String", TypeAny},
	TypeArray:   {"Array", TypeAny},
	TypeObject:  {"Object", TypeAny},
	TypeError:   {"Error", TypeAny},
}

var (
	// ErrDuplicateType is returned when a type name is registered twice.
	ErrDuplicateType = errors.New("type already registered")

	// ErrUnknownType is returned for names or tags the registry does not hold.
	ErrUnknownType = errors.New("unknown type")
)

type typeEntry struct {
	name  string
	super TypeID
}

// Registry is the process-wide table of type identifiers.
//
// The host runtime populates it before any plan compiles; lookups happen
// concurrently from independent compilations, so all methods are safe for
// concurrent use.
type Registry struct {
	mu      sync.RWMutex
	entries []typeEntry
	byName  map[string]TypeID
}

// NewRegistry creates a registry holding the builtin types.
func NewRegistry() *Registry {
	r := &Registry{
		entries: make([]typeEntry, 0, builtinTypeCount),
		byName:  make(map[string]TypeID, builtinTypeCount),
	}
	for id, b := range builtinTypes {
		r.entries = append(r.entries, typeEntry{name: b.name, super: b.super})
		if TypeID(id) != TypeInvalid {
			r.byName[b.name] = TypeID(id)
		}
	}
	return r
}

// Register adds a named type whose direct supertype is super.
// Registering an exception type under TypeError makes it catchable by
// TryCatch nodes naming any of its ancestors.
func (r *Registry) Register(name string, super TypeID) (TypeID, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.byName[name]; exists {
		return TypeInvalid, fmt.Errorf("register %q: %w", name, ErrDuplicateType)
	}
	if super == TypeInvalid || int(super) >= len(r.entries) {
		return TypeInvalid, fmt.Errorf("register %q: supertype %d: %w", name, super, ErrUnknownType)
	}

	slot, err := safecast.Conv[uint32](len(r.entries))
	if err != nil {
		return TypeInvalid, fmt.Errorf("register %q: type table overflow: %w", name, err)
	}
	id := TypeID(slot)
	r.entries = append(r.entries, typeEntry{name: name, super: super})
	r.byName[name] = id
	return id, nil
}

// MustRegister is like Register but panics on error.
// Use only in tests or host bootstrap code with fixed type tables.
func (r *Registry) MustRegister(name string, super TypeID) TypeID {
	id, err := r.Register(name, super)
	if err != nil {
		panic(err)
	}
	return id
}

// Lookup returns the identifier registered under name.
func (r *Registry) Lookup(name string) (TypeID, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.byName[name]
	return id, ok
}

// Name returns the registered name of id, or "<unknown:N>".
func (r *Registry) Name(id TypeID) string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if int(id) >= len(r.entries) {
		return fmt.Sprintf("<unknown:%d>", id)
	}
	return r.entries[id].name
}

// Super returns the direct supertype of id.
// Roots (Any, Void) report TypeInvalid.
func (r *Registry) Super(id TypeID) (TypeID, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if id == TypeInvalid || int(id) >= len(r.entries) {
		return TypeInvalid, fmt.Errorf("super of %d: %w", id, ErrUnknownType)
	}
	return r.entries[id].super, nil
}

// Assignable reports whether a value tagged from may be used where to is
// expected: from equals to, or to is an ancestor of from. Any accepts every
// registered type except Void.
func (r *Registry) Assignable(from, to TypeID) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if int(from) >= len(r.entries) || int(to) >= len(r.entries) {
		return false
	}
	if from == TypeInvalid || to == TypeInvalid {
		return false
	}
	for cur := from; cur != TypeInvalid; cur = r.entries[cur].super {
		if cur == to {
			return true
		}
	}
	return false
}

// Len returns the number of registered identifiers, builtins included.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}
