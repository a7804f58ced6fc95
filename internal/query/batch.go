package query

// Batch describes a contiguous slice of active rows sized for parallel
// consumption, per spec §4.I: a starting position within the matched
// context list plus how many active entities it owns. A batch may
// straddle archetype (and, for multi-container queries, store) boundaries.
type Batch struct {
	StartCtxIdx int
	StartRow    int
	EntityCount int
}

// BuildBatches partitions contexts into batches of entities, each sized at
// least minBatchSize, targeting desiredBatches batches overall:
// batch_size = max(min_batch_size, ceil(N/desired_batches)), where N is
// the total active entity count across contexts.
func BuildBatches(contexts []Context, desiredBatches, minBatchSize int, active ActiveFunc) []Batch {
	if desiredBatches <= 0 {
		desiredBatches = 1
	}
	if minBatchSize <= 0 {
		minBatchSize = 1
	}

	total := TotalMatched(contexts, active)
	if total == 0 {
		return nil
	}
	batchSize := ceilDiv(total, desiredBatches)
	if batchSize < minBatchSize {
		batchSize = minBatchSize
	}

	var batches []Batch
	var cur *Batch
	count := 0

	flush := func() {
		if cur != nil {
			batches = append(batches, *cur)
			cur = nil
		}
	}

	for ci := range contexts {
		a := contexts[ci].Archetype
		for row := 0; row < a.Len(); row++ {
			ref := a.RowAt(row)
			if active != nil && !active(ref.Index, ref.Generation) {
				continue
			}
			if cur == nil {
				cur = &Batch{StartCtxIdx: ci, StartRow: row}
				count = 0
			}
			cur.EntityCount++
			count++
			if count == batchSize {
				flush()
			}
		}
	}
	flush()
	return batches
}

func ceilDiv(a, b int) int {
	if b <= 0 {
		return a
	}
	return (a + b - 1) / b
}

// WalkBatch invokes fn for every active row the batch owns, in forward
// archetype-then-row order, starting at the batch's recorded position and
// consuming exactly EntityCount active rows (crossing context boundaries
// as needed).
func WalkBatch(contexts []Context, b Batch, active ActiveFunc, fn func(ctx Context, row int)) {
	remaining := b.EntityCount
	ci := b.StartCtxIdx
	row := b.StartRow
	for remaining > 0 && ci < len(contexts) {
		a := contexts[ci].Archetype
		for ; row < a.Len() && remaining > 0; row++ {
			ref := a.RowAt(row)
			if active != nil && !active(ref.Index, ref.Generation) {
				continue
			}
			fn(contexts[ci], row)
			remaining--
		}
		ci++
		row = 0
	}
}
