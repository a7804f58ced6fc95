package ecs

import "github.com/foundry-ecs/warehouse/internal/query"

// PredicateOption configures a Query's compiled predicate.
type PredicateOption func(*query.Predicate)

// Include adds types that must all be present; their values are read at
// the cursor's position through ComponentType.GetFromCursor.
func Include(types ...TypeID) PredicateOption {
	return func(p *query.Predicate) { p.Include = append(p.Include, types...) }
}

// Exclude disqualifies any archetype carrying one of types.
func Exclude(types ...TypeID) PredicateOption {
	return func(p *query.Predicate) { p.Exclude = append(p.Exclude, types...) }
}

// AnyOf requires at least one of types to be present, without exposing an
// accessor position for it.
func AnyOf(types ...TypeID) PredicateOption {
	return func(p *query.Predicate) { p.AnyOf = append(p.AnyOf, types...) }
}

// AllOf requires every one of types to be present, without exposing an
// accessor position for it (use Include when the value must be read).
func AllOf(types ...TypeID) PredicateOption {
	return func(p *query.Predicate) { p.AllOf = append(p.AllOf, types...) }
}

// Query is a compiled predicate over one store's archetype graph, matched
// incrementally as new archetypes are created.
type Query struct {
	store   *Store
	matcher *query.Matcher
}

// NewQuery compiles opts into a predicate and returns a query bound to s.
func (s *Store) NewQuery(opts ...PredicateOption) *Query {
	var pred query.Predicate
	for _, opt := range opts {
		opt(&pred)
	}
	return &Query{store: s, matcher: query.NewMatcher(s.graph, pred)}
}

// Refresh re-fetches the query's matched archetype set, picking up any
// archetype created since the last call, and returns how many new
// archetypes were added.
func (q *Query) Refresh() int { return q.matcher.Fetch() }

// TotalMatched returns the number of currently active entities across the
// query's matched archetypes. Calls Refresh first.
func (q *Query) TotalMatched() int {
	q.Refresh()
	return query.TotalMatched(q.matcher.Matched(), q.store.activeFunc())
}

// NewCursor creates a forward cursor over q, refreshing it first.
func (s *Store) NewCursor(q *Query) *Cursor {
	return newCursor(q, true)
}

// NewBackwardCursor creates a backward cursor over q, suitable for loops
// that swap-remove the current row (e.g. destroying matched entities)
// between Next calls.
func (s *Store) NewBackwardCursor(q *Query) *Cursor {
	return newCursor(q, false)
}

// MultiQuery aggregates one Query per associated store into a single
// iteration surface, per spec §4.I multi-container queries. It offers
// cursor iteration only; it has no batch or TotalMatched method.
type MultiQuery struct {
	queries []*Query
	mm      *query.MultiMatcher
}

// NewMultiQuery wraps one query per store, in store order.
func NewMultiQuery(queries ...*Query) *MultiQuery {
	matchers := make([]*query.Matcher, len(queries))
	for i, q := range queries {
		matchers[i] = q.matcher
	}
	return &MultiQuery{queries: queries, mm: query.NewMultiMatcher(matchers...)}
}

// Refresh re-fetches every underlying query and rebuilds the merged,
// store-tagged context list.
func (mq *MultiQuery) Refresh() { mq.mm.Fetch() }

// NewCursor creates a forward cursor over the merged, store-tagged result
// of mq, refreshing it first. Each matched row's liveness is checked
// against the specific store Context.StoreIndex names, since entity
// indices are only unique within one store.
func (mq *MultiQuery) NewCursor() *MultiCursor {
	mq.Refresh()
	return &MultiCursor{queries: mq.queries, contexts: mq.mm.Matched()}
}
