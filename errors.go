package ecs

import "fmt"

// LockedStorageError is returned by mutating Store methods called while the
// store is locked (e.g. during iteration); enqueue the equivalent
// EnqueueXxx operation instead.
type LockedStorageError struct{}

func (e LockedStorageError) Error() string {
	return "store is currently locked"
}

// DeadEntityError is returned when an operation targets an EntityId whose
// generation no longer matches the live record at its index.
type DeadEntityError struct {
	ID EntityId
}

func (e DeadEntityError) Error() string {
	return fmt.Sprintf("entity %v is dead", e.ID)
}

// DuplicateComponentError is returned by AddComponent when the entity
// already carries the component type.
type DuplicateComponentError struct {
	ID   EntityId
	Type TypeID
}

func (e DuplicateComponentError) Error() string {
	return fmt.Sprintf("entity %v already has component type %d", e.ID, e.Type)
}

// MissingComponentError is returned by RemoveComponent when the entity does
// not carry the component type.
type MissingComponentError struct {
	ID   EntityId
	Type TypeID
}

func (e MissingComponentError) Error() string {
	return fmt.Sprintf("entity %v does not have component type %d", e.ID, e.Type)
}

// IncompatibleRegistryError is raised (as a bark-traced panic, never a
// returned error) when the type registry finds a registration whose stable
// flag disagrees with the record it already holds for the same type: a
// programmer error, not a runtime condition callers recover from.
// Registering T through both RegisterComponent and RegisterStableComponent
// does not raise it, since the two register distinct types.
type IncompatibleRegistryError struct {
	TypeName string
}

func (e IncompatibleRegistryError) Error() string {
	return fmt.Sprintf("component type %s registered both stable and non-stable", e.TypeName)
}

// CapacityExhaustedError is raised when the entity manager cannot allocate
// another index without exceeding the 32-bit index space.
type CapacityExhaustedError struct{}

func (e CapacityExhaustedError) Error() string {
	return "entity index space exhausted"
}
