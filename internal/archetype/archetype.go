// Package archetype implements component E: the columnar home for every
// entity sharing one exact component type-set, with stable row indices and
// cross-archetype row transfer.
package archetype

import (
	"reflect"
	"unsafe"

	"github.com/TheBitDrifter/table"
	"github.com/foundry-ecs/warehouse/internal/column"
	"github.com/foundry-ecs/warehouse/internal/typeid"
)

// EntityRef is the back-pointer an archetype row holds to the owning
// entity. The entity manager owns the authoritative record; this is a
// cheap copy used to update that record's row on swap-remove/move without
// a reverse lookup table.
type EntityRef struct {
	Index      uint32
	Generation uint32
}

// ColumnSlot pairs a component type's packed storage with its optional
// stable-slot allocator. When Stable is nil, Packed holds the component
// values directly; when non-nil, Packed holds column.SlotRef values and
// Stable owns the actual bytes.
type ColumnSlot struct {
	TypeID typeid.ID
	Packed *column.Packed
	Stable *column.Stable // nil for non-stable component types
}

// Archetype holds every entity sharing one exact, canonically sorted
// component type-set.
type Archetype struct {
	typeIDs []typeid.ID // sorted ascending, no duplicates
	columns []ColumnSlot
	rows    []EntityRef

	AddEdges    map[typeid.ID]*Archetype
	RemoveEdges map[typeid.ID]*Archetype

	// RegIndex is this archetype's position in the graph's registration
	// order, set once by the graph and never changed; iteration and
	// serialization walk archetypes in this order.
	RegIndex int
}

// New creates an archetype for the given sorted, deduplicated type ids.
// goType/stable/element/accessor let the caller (the registry) supply the
// reflect.Type, stability, and table-backing metadata for each id without
// this package depending on the registry. stableColumn returns the shared
// *column.Stable allocator for a stable type id: it must return the same
// instance every time it is called for the same id across every archetype
// in a store, so a cross-archetype move of a stable component only ever
// relocates its SlotRef, never its bytes (see MoveRowTo).
func New(typeIDs []typeid.ID, goType func(typeid.ID) reflect.Type, stable func(typeid.ID) bool, stableColumn func(typeid.ID) *column.Stable, element func(typeid.ID) table.ElementType, accessor func(typeid.ID) func(int, table.Table) unsafe.Pointer) *Archetype {
	a := &Archetype{
		typeIDs:     append([]typeid.ID(nil), typeIDs...),
		columns:     make([]ColumnSlot, len(typeIDs)),
		AddEdges:    make(map[typeid.ID]*Archetype),
		RemoveEdges: make(map[typeid.ID]*Archetype),
	}
	for i, id := range typeIDs {
		if stable(id) {
			a.columns[i] = ColumnSlot{
				TypeID: id,
				Packed: column.NewPackedFor[column.SlotRef](),
				Stable: stableColumn(id),
			}
		} else {
			a.columns[i] = ColumnSlot{
				TypeID: id,
				Packed: column.NewPacked(goType(id), element(id), accessor(id)),
			}
		}
	}
	return a
}

// TypeIDs returns the archetype's sorted component type-id set.
func (a *Archetype) TypeIDs() []typeid.ID { return a.typeIDs }

// Len returns the number of rows (entities) in this archetype.
func (a *Archetype) Len() int { return len(a.rows) }

// Rows exposes the entity-ref slice for read-only iteration.
func (a *Archetype) Rows() []EntityRef { return a.rows }

// RowAt returns the EntityRef stored at row j.
func (a *Archetype) RowAt(j int) EntityRef { return a.rows[j] }

// HasType reports whether id is one of this archetype's component types.
func (a *Archetype) HasType(id typeid.ID) bool {
	_, ok := a.columnIndex(id)
	return ok
}

func (a *Archetype) columnIndex(id typeid.ID) (int, bool) {
	// typeIDs is sorted and short in practice (component counts rarely
	// exceed a few dozen); linear scan avoids building a per-archetype map.
	for i, t := range a.typeIDs {
		if t == id {
			return i, true
		}
	}
	return -1, false
}

// ColumnIndex is the exported form of columnIndex, used by queries to
// resolve include-list column pointers once per fetch.
func (a *Archetype) ColumnIndex(id typeid.ID) (int, bool) { return a.columnIndex(id) }

// Column returns the column slot at position i (0 <= i < len(TypeIDs())).
func (a *Archetype) Column(i int) *ColumnSlot { return &a.columns[i] }

// ComponentPtr returns a pointer to the component value for id at row j,
// dereferencing the stable indirection automatically when needed.
func (a *Archetype) ComponentPtr(id typeid.ID, j int) unsafe.Pointer {
	i, ok := a.columnIndex(id)
	if !ok {
		return nil
	}
	return a.columnPtr(i, j)
}

func (a *Archetype) columnPtr(colIdx, row int) unsafe.Pointer {
	slot := &a.columns[colIdx]
	if slot.Stable == nil {
		return slot.Packed.At(row)
	}
	ref := (*column.SlotRef)(slot.Packed.At(row))
	return ref.Ptr
}

// AddEntity pushes ref onto rows. The caller must append exactly one value
// into every column, in column order, before the row is considered valid.
func (a *Archetype) AddEntity(ref EntityRef) int {
	a.rows = append(a.rows, ref)
	return len(a.rows) - 1
}

// AppendValue appends the value pointed to by src into column i (for a
// non-stable column), or materializes it through the stable allocator and
// appends the resulting SlotRef (for a stable column).
func (a *Archetype) AppendValue(i int, src unsafe.Pointer) {
	slot := &a.columns[i]
	if slot.Stable == nil {
		slot.Packed.PushFrom(src)
		return
	}
	ref := slot.Stable.Emplace(src)
	slot.Packed.PushFrom(unsafe.Pointer(&ref))
}

// AppendZero appends a zero value into column i: for a non-stable column,
// directly; for a stable column, by materializing a real zero-valued slot
// through the stable allocator, exactly as AppendValue would for a
// supplied value, so the resulting SlotRef.Ptr is always valid.
func (a *Archetype) AppendZero(i int) {
	slot := &a.columns[i]
	if slot.Stable == nil {
		slot.Packed.PushZero()
		return
	}
	zero := reflect.New(slot.Stable.Type())
	ref := slot.Stable.Emplace(zero.UnsafePointer())
	slot.Packed.PushFrom(unsafe.Pointer(&ref))
}

// SwapRemoveRow removes row j, releasing its stable slots first, and
// reports the EntityRef of whatever row now occupies index j (the
// formerly-last row), or false if j was the last row (nothing moved).
func (a *Archetype) SwapRemoveRow(j int) (moved EntityRef, didMove bool) {
	last := len(a.rows) - 1
	for i := range a.columns {
		slot := &a.columns[i]
		if slot.Stable != nil {
			ref := (*column.SlotRef)(slot.Packed.At(j))
			slot.Stable.Remove(ref.ChunkIndex, ref.SlotIndex)
		}
		slot.Packed.SwapRemove(j)
	}
	if j != last {
		a.rows[j] = a.rows[last]
		moved = a.rows[j]
		didMove = true
	}
	a.rows = a.rows[:last]
	return moved, didMove
}

// MoveRowTo moves row j of a into dst, which must be reachable from a by
// adding or removing exactly one component type. fillExtra is invoked with
// the destination column index of any type present in dst but absent from
// a (there is at most one, by construction of the archetype graph); it
// must append a value into that column. Returns the EntityRef of whichever
// row now occupies index j in a (after the swap-remove), and whether a
// move happened, plus the row index the entity now occupies in dst.
func (a *Archetype) MoveRowTo(dst *Archetype, j int, ref EntityRef, fillExtra func(dstColIdx int)) (moved EntityRef, didMove bool, dstRow int) {
	dstRow = dst.AddEntity(ref)

	si, di := 0, 0
	for si < len(a.typeIDs) && di < len(dst.typeIDs) {
		switch {
		case a.typeIDs[si] == dst.typeIDs[di]:
			srcSlot := &a.columns[si]
			dstSlot := &dst.columns[di]
			if srcSlot.Stable == nil {
				dstSlot.Packed.PushFrom(srcSlot.Packed.At(j))
			} else {
				// srcSlot.Stable and dstSlot.Stable are the same shared
				// allocator (every archetype holding this stable type
				// references it via the registry's StableColumn cache), so
				// the stable bytes never move: copying the SlotRef itself
				// into the destination's indirection column is the entire
				// transfer.
				ref := *(*column.SlotRef)(srcSlot.Packed.At(j))
				dstSlot.Packed.PushFrom(unsafe.Pointer(&ref))
			}
			srcSlot.Packed.SwapRemove(j)
			si++
			di++
		case a.typeIDs[si] < dst.typeIDs[di]:
			// Extra type only in a: drop it.
			srcSlot := &a.columns[si]
			if srcSlot.Stable != nil {
				r := (*column.SlotRef)(srcSlot.Packed.At(j))
				srcSlot.Stable.Remove(r.ChunkIndex, r.SlotIndex)
			}
			srcSlot.Packed.SwapRemove(j)
			si++
		default:
			// Extra type only in dst: caller fills it.
			fillExtra(di)
			di++
		}
	}
	for si < len(a.typeIDs) {
		srcSlot := &a.columns[si]
		if srcSlot.Stable != nil {
			r := (*column.SlotRef)(srcSlot.Packed.At(j))
			srcSlot.Stable.Remove(r.ChunkIndex, r.SlotIndex)
		}
		srcSlot.Packed.SwapRemove(j)
		si++
	}
	for di < len(dst.typeIDs) {
		fillExtra(di)
		di++
	}

	last := len(a.rows) - 1
	if j != last {
		a.rows[j] = a.rows[last]
		moved = a.rows[j]
		didMove = true
	}
	a.rows = a.rows[:last]
	return moved, didMove, dstRow
}

// Reserve propagates a capacity hint to rows and every column.
func (a *Archetype) Reserve(n int) {
	for i := range a.columns {
		a.columns[i].Packed.Reserve(n)
	}
	if cap(a.rows) < n {
		grown := make([]EntityRef, len(a.rows), n)
		copy(grown, a.rows)
		a.rows = grown
	}
}

// ShrinkToFit drops excess capacity from every column.
func (a *Archetype) ShrinkToFit() {
	for i := range a.columns {
		a.columns[i].Packed.ShrinkToFit()
	}
}

// LoadFactor is the minimum load factor across this archetype's packed
// columns, used by the incremental shrink pass to decide eligibility.
func (a *Archetype) LoadFactor() float64 {
	min := 1.0
	for i := range a.columns {
		if lf := a.columns[i].Packed.LoadFactor(); lf < min {
			min = lf
		}
	}
	return min
}

// ExactlyOneMissing reports whether smaller differs from larger by exactly
// one type id, returning that id. Both slices must be sorted. Used by the
// graph when wiring add/remove edges between archetypes of adjacent size.
func ExactlyOneMissing(smaller, larger []typeid.ID) (typeid.ID, bool) {
	if len(larger) != len(smaller)+1 {
		return typeid.Invalid, false
	}
	si := 0
	var extra typeid.ID
	found := false
	for _, id := range larger {
		if si < len(smaller) && smaller[si] == id {
			si++
			continue
		}
		if found {
			return typeid.Invalid, false
		}
		extra = id
		found = true
	}
	if si != len(smaller) {
		return typeid.Invalid, false
	}
	return extra, found
}
