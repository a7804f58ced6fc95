// Package column implements the two column flavors an archetype holds:
// Packed, a type-erased contiguous array of component values, and Stable,
// a chunked slot allocator handing out fixed-address slots. Packed is
// backed by the teacher's own github.com/TheBitDrifter/table.Table, the
// same structure the teacher uses for every archetype's component storage,
// rather than a hand-rolled slice: it never promises address stability
// across appends or swap-removes, so it has nothing Packed needs that
// table doesn't already provide.
package column

import (
	"reflect"
	"unsafe"

	"github.com/TheBitDrifter/table"
)

// Packed is a growable, contiguous, type-erased column. It never promises
// address stability across appends or swap-removes — that guarantee is
// reserved for Stable columns.
type Packed struct {
	typ      reflect.Type
	element  table.ElementType
	accessor func(row int, t table.Table) unsafe.Pointer
	tbl      table.Table
	n        int
}

// NewPacked creates an empty packed column for elements of type t, backed
// by the table.ElementType/accessor pair minted for T at registration time
// (see typeid.Of). Non-stable component columns are always constructed
// this way, since the archetype only has a reflect.Type by the time it
// builds a column.
func NewPacked(t reflect.Type, element table.ElementType, accessor func(row int, tbl table.Table) unsafe.Pointer) *Packed {
	return newPackedTable(t, element, accessor)
}

// NewPackedFor creates a packed column for a type known at compile time,
// used for columns internal to this package (the SlotRef indirection
// column behind a stable component) that have no typeid.Meta of their own.
func NewPackedFor[T any]() *Packed {
	var zero T
	et := table.FactoryNewElementType[T]()
	accessor := table.FactoryNewAccessor[T](et)
	at := func(row int, t table.Table) unsafe.Pointer {
		return unsafe.Pointer(accessor.Get(row, t))
	}
	return newPackedTable(reflect.TypeOf(zero), et, at)
}

func newPackedTable(t reflect.Type, element table.ElementType, accessor func(row int, tbl table.Table) unsafe.Pointer) *Packed {
	schema := table.Factory.NewSchema()
	schema.Register(element)
	tbl, err := table.NewTableBuilder().
		WithSchema(schema).
		WithEntryIndex(table.Factory.NewEntryIndex()).
		WithElementTypes(element).
		WithEvents(table.TableEvents{}).
		Build()
	if err != nil {
		panic(err)
	}
	return &Packed{typ: t, element: element, accessor: accessor, tbl: tbl}
}

// Len returns the number of live elements.
func (c *Packed) Len() int { return c.n }

// Reserve is a no-op: table.Table owns its own growth strategy, the way
// the teacher's archetype never pre-sizes its table either.
func (c *Packed) Reserve(n int) {}

// At returns an unsafe pointer to element i.
func (c *Packed) At(i int) unsafe.Pointer {
	return c.accessor(i, c.tbl)
}

// PushFrom appends a value copied from src (which must point at an element
// of c's type) and returns the new length minus one, i.e. the row index it
// was stored at.
func (c *Packed) PushFrom(src unsafe.Pointer) int {
	entries, err := c.tbl.NewEntries(1)
	if err != nil {
		panic(err)
	}
	row := entries[0].Index()
	dst := c.accessor(row, c.tbl)
	reflect.NewAt(c.typ, dst).Elem().Set(reflect.NewAt(c.typ, src).Elem())
	c.n++
	return row
}

// PushZero appends a zero-valued element and returns its row index. Used
// by Archetype.AppendZero, e.g. when AddComponent attaches a new,
// zero-valued component.
func (c *Packed) PushZero() int {
	entries, err := c.tbl.NewEntries(1)
	if err != nil {
		panic(err)
	}
	row := entries[0].Index()
	dst := c.accessor(row, c.tbl)
	reflect.NewAt(c.typ, dst).Elem().Set(reflect.Zero(c.typ))
	c.n++
	return row
}

// SwapRemove destroys the element at i; if i is not the last element, the
// last element is moved into i (table.Table's own DeleteEntries does this
// swap internally). Reports whether a move happened.
func (c *Packed) SwapRemove(i int) bool {
	last := c.n - 1
	entry, err := c.tbl.Entry(i)
	if err != nil {
		panic(err)
	}
	moved := i != last
	if _, err := c.tbl.DeleteEntries(int(entry.ID())); err != nil {
		panic(err)
	}
	c.n--
	return moved
}

// PopBack destroys and removes the last element.
func (c *Packed) PopBack() {
	if c.n == 0 {
		return
	}
	c.SwapRemove(c.n - 1)
}

// Clear removes every element.
func (c *Packed) Clear() {
	for c.n > 0 {
		c.SwapRemove(c.n - 1)
	}
}

// ShrinkToFit is a no-op: table.Table, not this column, owns compaction of
// its own backing storage.
func (c *Packed) ShrinkToFit() {}

// EmptyClone creates a new column of the same element type with zero
// length, used when a new archetype is registered.
func (c *Packed) EmptyClone() *Packed {
	return newPackedTable(c.typ, c.element, c.accessor)
}

// Type returns the reflect.Type of elements stored in this column.
func (c *Packed) Type() reflect.Type { return c.typ }

// LoadFactor always reports fully loaded: table.Table manages its own
// capacity, so there is nothing for the incremental shrink pass to act on
// here (ShrinkToFit on this column is already a no-op).
func (c *Packed) LoadFactor() float64 { return 1 }
