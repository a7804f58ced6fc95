package ecs

import (
	"unsafe"

	"github.com/foundry-ecs/warehouse/internal/archetype"
)

// ArchetypeView is a read-only view over one archetype, the surface
// external serialization, command-buffer, or prefab collaborators are
// built against (spec §6). No such collaborator ships in this module; the
// core exposes the surface because those integrations depend on it.
type ArchetypeView struct {
	a *archetype.Archetype
}

// Archetypes returns a read-only view over every archetype in this store,
// in registration order.
func (s *Store) Archetypes() []ArchetypeView {
	all := s.graph.All()
	views := make([]ArchetypeView, len(all))
	for i, a := range all {
		views[i] = ArchetypeView{a: a}
	}
	return views
}

// TypeIDs returns the archetype's component type-set.
func (v ArchetypeView) TypeIDs() []TypeID { return v.a.TypeIDs() }

// Len returns the number of entity rows in the archetype.
func (v ArchetypeView) Len() int { return v.a.Len() }

// EntityAt returns the EntityId occupying row j.
func (v ArchetypeView) EntityAt(j int) EntityId {
	ref := v.a.RowAt(j)
	return EntityId{Index: ref.Index, Generation: ref.Generation}
}

// Column returns a read-only view over column i (0 <= i < len(TypeIDs())).
func (v ArchetypeView) Column(i int) ColumnView {
	return ColumnView{a: v.a, idx: i}
}

// ColumnView is a read-only view over one archetype column.
type ColumnView struct {
	a   *archetype.Archetype
	idx int
}

// TypeID returns the component type this column stores.
func (c ColumnView) TypeID() TypeID { return c.a.Column(c.idx).TypeID }

// Stable reports whether this column's values live in pointer-stable
// storage (i.e. the column itself holds indirection, not raw values).
func (c ColumnView) Stable() bool { return c.a.Column(c.idx).Stable != nil }

// ElemSize returns the size in bytes of one component value.
func (c ColumnView) ElemSize() uintptr {
	slot := c.a.Column(c.idx)
	if slot.Stable != nil {
		return slot.Stable.Type().Size()
	}
	return slot.Packed.Type().Size()
}

// At returns a pointer to the component value at row, already
// dereferenced through stable indirection when Stable() is true.
func (c ColumnView) At(row int) unsafe.Pointer {
	return c.a.ComponentPtr(c.a.Column(c.idx).TypeID, row)
}
