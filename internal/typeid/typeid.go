// Package typeid produces the stable, equality-comparable identifiers that
// the rest of the store uses to name component types, together with the
// move/copy/destroy metadata the storage layer needs to treat those types
// uniformly without generics at the archetype boundary.
package typeid

import (
	"fmt"
	"reflect"
	"sync"
	"unsafe"

	"github.com/TheBitDrifter/table"
)

// ID is a process-wide identifier for a distinct component type. Two IDs
// are equal iff the types they were registered for are the same.
type ID uint32

// Invalid is the zero value, never handed out by Registry.
const Invalid ID = 0

// IncompatibleRegistrationError is panicked when one reflect.Type is
// registered with a stable flag different from its existing record. Of and
// OfStable register different types (T and stableMarker[T]), so calling
// both for the same T does not panic.
type IncompatibleRegistrationError struct {
	TypeName string
}

func (e IncompatibleRegistrationError) Error() string {
	return fmt.Sprintf("typeid: %s already registered with a different stable flag", e.TypeName)
}

// Meta holds everything the storage layer needs to know about a component
// type without importing it generically.
type Meta struct {
	ID        ID
	Name      string
	GoType    reflect.Type
	Size      uintptr
	Align     uintptr
	Stable    bool
	ChunkSize int // only meaningful when Stable is true; 0 means "use default"

	// Element and At back this type's non-stable packed-column storage
	// (internal/column.Packed), which keeps its values in a
	// github.com/TheBitDrifter/table.Table the way the teacher's own
	// archetype columns do. Both are nil for a stable type, which keeps its
	// bytes in a column.Stable allocator instead.
	Element table.ElementType
	At      func(row int, t table.Table) unsafe.Pointer
}

// Registry maps reflect.Type to Meta and hands out new IDs on first sight.
// It is effectively append-only: once a type is registered its Meta never
// changes, matching the "component registry is append-only after type
// registration" resource policy.
type Registry struct {
	mu      sync.RWMutex
	byType  map[reflect.Type]*Meta
	byID    []*Meta // index 0 unused (Invalid)
	nextID  ID
	byName  map[string]ID
}

// NewRegistry constructs an empty type registry.
func NewRegistry() *Registry {
	return &Registry{
		byType: make(map[reflect.Type]*Meta),
		byID:   []*Meta{nil},
		nextID: 1,
		byName: make(map[string]ID),
	}
}

// stableMarker wraps T so that reflect.TypeOf distinguishes the stable
// variant of a component from its plain form, giving it a distinct ID for
// free per the data model's "stable variants carry a distinct type-id"
// rule, with no special casing in the registry itself.
type stableMarker[T any] struct{ _ T }

// Of registers (or fetches) the ID for T, a non-stable component type. The
// table.ElementType/Accessor pair minted here is what lets
// internal/column.Packed store T's values in a real table.Table instead of
// a hand-rolled reflect.Value slice.
func Of[T any](r *Registry) ID {
	var zero T
	et := table.FactoryNewElementType[T]()
	accessor := table.FactoryNewAccessor[T](et)
	at := func(row int, t table.Table) unsafe.Pointer {
		return unsafe.Pointer(accessor.Get(row, t))
	}
	return r.register(reflect.TypeOf(zero), false, 0, et, at)
}

// OfStable registers (or fetches) the ID for the stable variant of T.
// chunkSize is the slot-chunk capacity override for this type; 0 uses the
// store's configured default. Stable types never go through table.Table:
// their bytes live in a column.Stable allocator so addresses survive
// archetype moves, which table's own relocating storage cannot promise.
func OfStable[T any](r *Registry, chunkSize int) ID {
	var zero stableMarker[T]
	return r.register(reflect.TypeOf(zero), true, chunkSize, nil, nil)
}

func (r *Registry) register(t reflect.Type, stable bool, chunkSize int, element table.ElementType, at func(int, table.Table) unsafe.Pointer) ID {
	r.mu.RLock()
	if m, ok := r.byType[t]; ok {
		r.mu.RUnlock()
		if m.Stable != stable {
			panic(IncompatibleRegistrationError{TypeName: t.String()})
		}
		return m.ID
	}
	r.mu.RUnlock()

	r.mu.Lock()
	defer r.mu.Unlock()
	if m, ok := r.byType[t]; ok {
		return m.ID
	}
	elem, size, align := elemLayout(t, stable)
	id := r.nextID
	r.nextID++
	name := t.String()
	m := &Meta{
		ID:        id,
		Name:      name,
		GoType:    elem,
		Size:      size,
		Align:     align,
		Stable:    stable,
		ChunkSize: chunkSize,
		Element:   element,
		At:        at,
	}
	r.byType[t] = m
	r.byID = append(r.byID, m)
	r.byName[name] = id
	return id
}

// elemLayout unwraps the type actually stored: for a stable marker the
// payload is T, not stableMarker[T] (which has exactly one field, a blank
// field of type T), and reports its size/align alongside it.
func elemLayout(t reflect.Type, stable bool) (elem reflect.Type, size, align uintptr) {
	elem = t
	if stable {
		elem = t.Field(0).Type
	}
	return elem, elem.Size(), uintptr(elem.Align())
}

// Lookup returns the metadata for id, or nil if id was never registered.
func (r *Registry) Lookup(id ID) *Meta {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if int(id) >= len(r.byID) {
		return nil
	}
	return r.byID[id]
}

// ByName returns the ID registered for a type's reflect-derived name.
func (r *Registry) ByName(name string) (ID, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.byName[name]
	return id, ok
}

// Count returns the number of distinct registered types (including stable
// variants, which count separately from their plain form).
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byID) - 1
}

// Sorted returns ids sorted in ascending canonical order: the order every
// archetype's type_ids slice must follow.
func Sorted(ids []ID) []ID {
	out := append([]ID(nil), ids...)
	for i := 1; i < len(out); i++ {
		for j := i; j > 0 && out[j-1] > out[j]; j-- {
			out[j-1], out[j] = out[j], out[j-1]
		}
	}
	return out
}
