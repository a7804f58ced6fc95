package query

import "github.com/foundry-ecs/warehouse/internal/archetype"

// ActiveFunc reports whether the entity identified by (index, generation)
// is currently active. Inactive rows are skipped during iteration.
type ActiveFunc func(index, generation uint32) bool

// Iterator walks the rows of a matched context set, forward or backward,
// skipping inactive entities. It performs no synchronization of its own:
// per spec §5, it is safe only when no structural mutation of the
// iterated archetypes happens concurrently, except for swap-removes the
// iteration itself performs while walking backward.
type Iterator struct {
	contexts []Context
	forward  bool
	active   ActiveFunc

	ctxIdx  int
	row     int
	started bool
}

// NewIterator creates an iterator over contexts. active may be nil to
// disable the inactive-entity skip (e.g. for internal bookkeeping passes
// that intentionally want every row).
func NewIterator(contexts []Context, forward bool, active ActiveFunc) *Iterator {
	return &Iterator{contexts: contexts, forward: forward, active: active}
}

func (it *Iterator) resetRowForCurrentContext() {
	if it.ctxIdx >= len(it.contexts) {
		return
	}
	if it.forward {
		it.row = 0
	} else {
		it.row = it.contexts[it.ctxIdx].Archetype.Len() - 1
	}
}

// Next advances to the next qualifying row, returning false once
// exhausted. The cursor sits on the previous hit until Next is called
// again, so callers may safely perform a swap-remove of the current row
// during backward iteration between Next calls (standard archetype
// iterator discipline per spec §4.I) before advancing.
func (it *Iterator) Next() bool {
	if !it.started {
		it.started = true
		it.resetRowForCurrentContext()
	} else {
		it.step()
	}
	for it.ctxIdx < len(it.contexts) {
		a := it.contexts[it.ctxIdx].Archetype
		for (it.forward && it.row < a.Len()) || (!it.forward && it.row >= 0) {
			ref := a.RowAt(it.row)
			if it.active == nil || it.active(ref.Index, ref.Generation) {
				return true
			}
			it.step()
		}
		it.ctxIdx++
		it.resetRowForCurrentContext()
	}
	return false
}

func (it *Iterator) step() {
	if it.forward {
		it.row++
	} else {
		it.row--
	}
}

// Current returns the context and row the cursor currently sits on.
// Valid only after Next returned true.
func (it *Iterator) Current() (Context, int) {
	return it.contexts[it.ctxIdx], it.row
}

// Entity returns the EntityRef at the current position.
func (it *Iterator) Entity() archetype.EntityRef {
	return it.contexts[it.ctxIdx].Archetype.RowAt(it.row)
}

// TotalMatched counts every active row across contexts without mutating
// iterator position — used by Cursor.TotalMatched equivalents.
func TotalMatched(contexts []Context, active ActiveFunc) int {
	n := 0
	for _, ctx := range contexts {
		a := ctx.Archetype
		if active == nil {
			n += a.Len()
			continue
		}
		for i := 0; i < a.Len(); i++ {
			ref := a.RowAt(i)
			if active(ref.Index, ref.Generation) {
				n++
			}
		}
	}
	return n
}
