package ecs

import (
	"reflect"
	"unsafe"

	"github.com/TheBitDrifter/bark"
	"github.com/foundry-ecs/warehouse/internal/query"
	"github.com/foundry-ecs/warehouse/internal/typeid"
)

// TypeID is a process-wide value uniquely identifying a component type (a
// Go type paired with its stable/non-stable variant).
type TypeID = typeid.ID

// globalTypes is the single process-wide type identity registry. TypeID
// values must mean the same thing in every Store so that multi-container
// queries (MultiQuery) can compare archetypes from different stores by
// type id directly, the way the teacher's package-level Factory gave every
// AccessibleComponent[T] a single shared identity.
var globalTypes = typeid.NewRegistry()

// RegisterComponent records (or fetches) the process-wide id for the
// ordinary, non-stable variant of T. The stable variant of T is a separate
// component type with its own id, so T may also be registered through
// RegisterStableComponent. Panics with IncompatibleRegistryError if the
// type registry reports a stable-flag conflict for the same type.
func RegisterComponent[T any]() (id TypeID) {
	defer convertIncompatibleRegistration[T]()
	return typeid.Of[T](globalTypes)
}

// RegisterStableComponent records (or fetches) the process-wide id for the
// stable (pointer-stable) variant of T, distinct from the id
// RegisterComponent returns for T. chunkSize sets the slot-chunk capacity
// used the first time this type is registered; Config.SetStableChunkSize
// overrides it, process-wide, in any store that has not yet created this
// type's stable storage. Panics with IncompatibleRegistryError if the type
// registry reports a stable-flag conflict for the same type.
func RegisterStableComponent[T any](chunkSize int) (id TypeID) {
	defer convertIncompatibleRegistration[T]()
	return typeid.OfStable[T](globalTypes, chunkSize)
}

func convertIncompatibleRegistration[T any]() {
	if r := recover(); r != nil {
		if _, ok := r.(typeid.IncompatibleRegistrationError); ok {
			var zero T
			panic(bark.AddTrace(IncompatibleRegistryError{TypeName: reflect.TypeOf(zero).String()}))
		}
		panic(r)
	}
}

// ComponentType is a typed handle for attaching, reading, and writing one
// component type on entities in a Store. It extends the identity carried
// by its TypeID with the concrete Go type needed for unsafe-pointer
// conversions, mirroring the teacher's AccessibleComponent[T].
type ComponentType[T any] struct {
	id TypeID
}

// NewComponentType registers T as an ordinary component and returns a
// handle for it.
func NewComponentType[T any]() ComponentType[T] {
	return ComponentType[T]{id: RegisterComponent[T]()}
}

// NewStableComponentType registers T as a stable component and returns a
// handle for it.
func NewStableComponentType[T any](chunkSize int) ComponentType[T] {
	return ComponentType[T]{id: RegisterStableComponent[T](chunkSize)}
}

// ID returns the handle's process-wide type id.
func (c ComponentType[T]) ID() TypeID { return c.id }

func fromPtr[T any](p unsafe.Pointer) *T {
	return (*T)(p)
}

// Get returns a pointer to T on entity id, or nil if the entity is dead or
// does not carry this component.
func (c ComponentType[T]) Get(s *Store, id EntityId) *T {
	ptr := s.componentPtr(id, c.id)
	if ptr == nil {
		return nil
	}
	return fromPtr[T](ptr)
}

// Has reports whether entity id currently carries this component.
func (c ComponentType[T]) Has(s *Store, id EntityId) bool {
	return s.componentPtr(id, c.id) != nil
}

// Set writes value into entity id's component slot. The entity must
// already carry this component (use Store.AddComponent first).
func (c ComponentType[T]) Set(s *Store, id EntityId, value T) bool {
	ptr := c.Get(s, id)
	if ptr == nil {
		return false
	}
	*ptr = value
	return true
}

// GetFromCursor returns a pointer to T at the cursor's current row. Valid
// only while this component is included in the cursor's query and Next
// has returned true.
func (c ComponentType[T]) GetFromCursor(cur *Cursor) *T {
	ctx, row := cur.it.Current()
	return c.getFromContext(ctx, row)
}

// GetFromCursorSafe is GetFromCursor guarded by a Has-style check, for
// components that are optional in the query (e.g. reached through AnyOf).
func (c ComponentType[T]) GetFromCursorSafe(cur *Cursor) (*T, bool) {
	ctx, row := cur.it.Current()
	if !ctx.Archetype.HasType(c.id) {
		return nil, false
	}
	return c.getFromContext(ctx, row), true
}

func (c ComponentType[T]) getFromContext(ctx query.Context, row int) *T {
	ptr := ctx.Archetype.ComponentPtr(c.id, row)
	if ptr == nil {
		return nil
	}
	return fromPtr[T](ptr)
}
