package ecs

import "github.com/foundry-ecs/warehouse/internal/query"

// Cursor iterates the entities matched by one Query, skipping inactive
// entities. A forward cursor is safe to use while the iterated archetypes
// are not structurally mutated; a backward cursor additionally tolerates
// the current row being swap-removed between Next calls.
type Cursor struct {
	q  *Query
	it *query.Iterator
}

func newCursor(q *Query, forward bool) *Cursor {
	q.Refresh()
	return &Cursor{
		q:  q,
		it: query.NewIterator(q.matcher.Matched(), forward, q.store.activeFunc()),
	}
}

// Next advances to the next matching, active entity.
func (c *Cursor) Next() bool { return c.it.Next() }

// Entity returns the EntityId at the cursor's current position.
func (c *Cursor) Entity() EntityId {
	ref := c.it.Entity()
	return EntityId{Index: ref.Index, Generation: ref.Generation}
}

// TotalMatched returns the number of active entities across the cursor's
// query without consuming the cursor's iteration position.
func (c *Cursor) TotalMatched() int {
	return query.TotalMatched(c.q.matcher.Matched(), c.q.store.activeFunc())
}

// BuildBatches partitions the cursor's query into batches of roughly equal
// entity count for parallel consumption, per spec §4.I. Call before
// consuming the cursor's own Next loop; use WalkBatch to drive each batch.
func (c *Cursor) BuildBatches(desiredBatches, minBatchSize int) []Batch {
	return query.BuildBatches(c.q.matcher.Matched(), desiredBatches, minBatchSize, c.q.store.activeFunc())
}

// Batch describes one partition built by BuildBatches.
type Batch = query.Batch

// WalkBatch invokes fn for every active entity owned by b, resolved
// against the entities and component pointers of c's query.
func (c *Cursor) WalkBatch(b Batch, fn func(EntityId)) {
	query.WalkBatch(c.q.matcher.Matched(), b, c.q.store.activeFunc(), func(ctx query.Context, row int) {
		ref := ctx.Archetype.RowAt(row)
		fn(EntityId{Index: ref.Index, Generation: ref.Generation})
	})
}

// MultiCursor iterates the merged, store-tagged result of a MultiQuery.
type MultiCursor struct {
	queries  []*Query
	contexts []query.Context

	ctxIdx  int
	row     int
	started bool
}

// Next advances to the next matching, active entity across every
// associated store, in store-then-archetype-registration order.
func (mc *MultiCursor) Next() bool {
	if !mc.started {
		mc.started = true
	} else {
		mc.row++
	}
	for mc.ctxIdx < len(mc.contexts) {
		ctx := mc.contexts[mc.ctxIdx]
		a := ctx.Archetype
		active := mc.queries[ctx.StoreIndex].store.activeFunc()
		for mc.row < a.Len() {
			ref := a.RowAt(mc.row)
			if active(ref.Index, ref.Generation) {
				return true
			}
			mc.row++
		}
		mc.ctxIdx++
		mc.row = 0
	}
	return false
}

// Entity returns the EntityId and owning store index at the cursor's
// current position. Valid only after Next returns true.
func (mc *MultiCursor) Entity() (EntityId, int) {
	ctx := mc.contexts[mc.ctxIdx]
	ref := ctx.Archetype.RowAt(mc.row)
	return EntityId{Index: ref.Index, Generation: ref.Generation}, ctx.StoreIndex
}
