// Package registry implements component H: per-type metadata consulted
// whenever a new archetype materializes a column, plus the observer hooks
// the store facade fires around component lifecycle events.
package registry

import (
	"fmt"
	"reflect"
	"sort"
	"unsafe"

	"github.com/TheBitDrifter/bark"
	"github.com/TheBitDrifter/table"
	"github.com/foundry-ecs/warehouse/internal/column"
	"github.com/foundry-ecs/warehouse/internal/typeid"
)

// CreateObserver is invoked after a component of the observed type is
// attached to an entity, with a pointer to the new value.
type CreateObserver func(value unsafe.Pointer, entityIndex uint32, entityGen uint32)

// DestroyObserver is invoked just before a component of the observed type
// is detached from an entity.
type DestroyObserver func(value unsafe.Pointer, entityIndex uint32, entityGen uint32)

// entry holds one type's full metadata plus its observers.
type entry struct {
	meta          typeid.Meta
	observerOrder int
	onCreate      []CreateObserver
	onDestroy     []DestroyObserver
	stable        *column.Stable // lazily built; shared by every archetype holding this type
}

// Registry is the store's component registry (component H). It wraps a
// typeid.Registry with the observer hooks and chunk-size preferences spec
// §4.H and §6 describe, and is effectively append-only once the store is
// in use, matching the resource-model policy that lookups during
// iteration never mutate it.
type Registry struct {
	types              *typeid.Registry
	entries            map[typeid.ID]*entry
	defaultChunkSize   int
	perTypeChunkSize   map[typeid.ID]int
}

// New creates an empty component registry over the given process-wide type
// identity registry. defaultStableChunkSize is the fallback slot-chunk
// capacity for stable types that don't override it (spec §6
// default_stable_chunk_size).
func New(types *typeid.Registry, defaultStableChunkSize int) *Registry {
	return &Registry{
		types:            types,
		entries:          make(map[typeid.ID]*entry),
		defaultChunkSize: defaultStableChunkSize,
		perTypeChunkSize: make(map[typeid.ID]int),
	}
}

// Ensure records id (already known to the shared type registry) into this
// component registry's local entry table, a no-op if already present.
// Every store-scoped registry lazily ensures ids the first time a
// component of that type is used against it.
func (r *Registry) Ensure(id typeid.ID) {
	r.ensureEntry(id)
	if m := r.types.Lookup(id); m != nil && m.Stable && m.ChunkSize > 0 {
		r.perTypeChunkSize[id] = m.ChunkSize
	}
}

// SetChunkSizeOverride records an explicit stable-chunk capacity for id,
// taking priority over both the type's registration-time chunk size and
// the registry default. Used by the store to apply Config-level overrides.
func (r *Registry) SetChunkSizeOverride(id typeid.ID, n int) {
	if n <= 0 {
		return
	}
	r.ensureEntry(id)
	r.perTypeChunkSize[id] = n
}

func (r *Registry) ensureEntry(id typeid.ID) *entry {
	if e, ok := r.entries[id]; ok {
		return e
	}
	meta := r.types.Lookup(id)
	if meta == nil {
		panic(bark.AddTrace(fmt.Errorf("registry: lookup failed for id %d immediately after registration", id)))
	}
	e := &entry{meta: *meta}
	r.entries[id] = e
	return e
}

// StableColumn returns the shared *column.Stable allocator for a stable
// type id, creating it on first use. Every archetype holding this type,
// across its entire lifetime in this store, references the exact same
// instance: a cross-archetype move of the type then only ever relocates a
// SlotRef, never the bytes underneath it (spec invariant: stable component
// addresses survive structural changes).
func (r *Registry) StableColumn(id typeid.ID) *column.Stable {
	e := r.ensureEntry(id)
	if e.stable == nil {
		e.stable = column.NewStable(e.meta.GoType, r.ChunkSize(id))
	}
	return e.stable
}

// Element returns the table.ElementType minted for id at registration time
// (nil for a stable type, which doesn't use table-backed storage).
func (r *Registry) Element(id typeid.ID) table.ElementType {
	m := r.Meta(id)
	if m == nil {
		panic(bark.AddTrace(fmt.Errorf("registry: unregistered type id %d", id)))
	}
	return m.Element
}

// Accessor returns the row-to-pointer accessor minted for id at
// registration time (nil for a stable type).
func (r *Registry) Accessor(id typeid.ID) func(int, table.Table) unsafe.Pointer {
	m := r.Meta(id)
	if m == nil {
		panic(bark.AddTrace(fmt.Errorf("registry: unregistered type id %d", id)))
	}
	return m.At
}

// Meta returns the metadata for id, or nil if unregistered.
func (r *Registry) Meta(id typeid.ID) *typeid.Meta {
	e, ok := r.entries[id]
	if !ok {
		return nil
	}
	return &e.meta
}

// GoType returns the reflect.Type backing id's storage.
func (r *Registry) GoType(id typeid.ID) reflect.Type {
	m := r.Meta(id)
	if m == nil {
		panic(bark.AddTrace(fmt.Errorf("registry: unregistered type id %d", id)))
	}
	return m.GoType
}

// Stable reports whether id names a stable component type.
func (r *Registry) Stable(id typeid.ID) bool {
	m := r.Meta(id)
	return m != nil && m.Stable
}

// ChunkSize returns the effective stable-chunk capacity for id: its
// per-type override if set, else the registry default, else the column
// package's own built-in default.
func (r *Registry) ChunkSize(id typeid.ID) int {
	if n, ok := r.perTypeChunkSize[id]; ok && n > 0 {
		return n
	}
	if r.defaultChunkSize > 0 {
		return r.defaultChunkSize
	}
	return 0
}

// SetObserverOrder sets the integer used when ordering this type's
// observers among others fired by the same operation (sorted by
// (observer_order, type_id) ascending). It does not affect column order,
// which is always ascending by type id.
func (r *Registry) SetObserverOrder(id typeid.ID, order int) {
	r.ensureEntry(id)
	r.entries[id].observerOrder = order
}

// OnCreate registers a create-component observer for id.
func (r *Registry) OnCreate(id typeid.ID, fn CreateObserver) {
	r.ensureEntry(id)
	r.entries[id].onCreate = append(r.entries[id].onCreate, fn)
}

// OnDestroy registers a destroy-component observer for id.
func (r *Registry) OnDestroy(id typeid.ID, fn DestroyObserver) {
	r.ensureEntry(id)
	r.entries[id].onDestroy = append(r.entries[id].onDestroy, fn)
}

// FireCreate invokes every create observer registered for id.
func (r *Registry) FireCreate(id typeid.ID, value unsafe.Pointer, idx, gen uint32) {
	e, ok := r.entries[id]
	if !ok {
		return
	}
	for _, fn := range e.onCreate {
		fn(value, idx, gen)
	}
}

// FireDestroy invokes every destroy observer registered for id.
func (r *Registry) FireDestroy(id typeid.ID, value unsafe.Pointer, idx, gen uint32) {
	e, ok := r.entries[id]
	if !ok {
		return
	}
	for _, fn := range e.onDestroy {
		fn(value, idx, gen)
	}
}

// SortByObserverOrder sorts ids in place by (observer_order, type_id)
// ascending, the sequence component observers fire in for an operation
// that touches several components. Archetype columns are not ordered by it.
func (r *Registry) SortByObserverOrder(ids []typeid.ID) {
	sort.Slice(ids, func(i, j int) bool {
		oi, oj := r.order(ids[i]), r.order(ids[j])
		if oi != oj {
			return oi < oj
		}
		return ids[i] < ids[j]
	})
}

func (r *Registry) order(id typeid.ID) int {
	if e, ok := r.entries[id]; ok {
		return e.observerOrder
	}
	return 0
}

// Types exposes the underlying type-id registry, e.g. for debug/name
// lookups.
func (r *Registry) Types() *typeid.Registry { return r.types }
