package ecs

import (
	"unsafe"

	"github.com/foundry-ecs/warehouse/internal/entitymgr"
)

// EntityId is a recycled (index, generation) handle identifying one entity
// within a Store. A handle whose generation no longer matches the live
// record at its index refers to a dead entity (spec §3 EntityId/Lifecycles).
type EntityId = entitymgr.ID

// CreateObserver is invoked after a component of the observed type is
// attached to an entity, with a pointer to the new value.
type CreateObserver[T any] func(value *T, id EntityId)

// DestroyObserver is invoked just before a component of the observed type
// is detached from an entity (including as part of destroying the entity
// itself).
type DestroyObserver[T any] func(value *T, id EntityId)

// RegisterCreateObserver attaches fn to store s for component type T,
// firing after a value is materialized for a newly added (or spawned)
// component, in (observer_order, type_id) order relative to other
// components touched by the same operation.
func RegisterCreateObserver[T any](s *Store, c ComponentType[T], fn CreateObserver[T]) {
	s.reg.OnCreate(c.id, func(ptr unsafe.Pointer, idx, gen uint32) {
		fn(fromPtr[T](ptr), EntityId{Index: idx, Generation: gen})
	})
}

// RegisterDestroyObserver attaches fn to fire just before a value of
// component type T is removed from an entity.
func RegisterDestroyObserver[T any](s *Store, c ComponentType[T], fn DestroyObserver[T]) {
	s.reg.OnDestroy(c.id, func(ptr unsafe.Pointer, idx, gen uint32) {
		fn(fromPtr[T](ptr), EntityId{Index: idx, Generation: gen})
	})
}
