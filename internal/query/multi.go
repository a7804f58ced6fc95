package query

// MultiMatcher holds one Matcher per associated store (archetype graph)
// and concatenates their matched contexts, in store order, into one list
// tagged with each context's StoreIndex. It does no active-entity counting
// or batch partitioning of its own; BuildBatches and TotalMatched take a
// single ActiveFunc and do not tell stores apart.
type MultiMatcher struct {
	matchers []*Matcher
	merged   []Context
}

// NewMultiMatcher wraps one matcher per store, in store order.
func NewMultiMatcher(matchers ...*Matcher) *MultiMatcher {
	return &MultiMatcher{matchers: matchers}
}

// Fetch refreshes every underlying matcher and rebuilds the merged,
// store-tagged context list used for aggregate iteration and batching.
func (mm *MultiMatcher) Fetch() {
	merged := make([]Context, 0, len(mm.merged))
	for storeIdx, m := range mm.matchers {
		m.Fetch()
		for _, ctx := range m.Matched() {
			ctx.StoreIndex = storeIdx
			merged = append(merged, ctx)
		}
	}
	mm.merged = merged
}

// Matched returns the merged, store-tagged context list built by the last
// Fetch call, in store-then-archetype-registration order.
func (mm *MultiMatcher) Matched() []Context { return mm.merged }
