// Package query implements component I: predicate compilation into a
// matching archetype set, incremental refresh as the graph grows, and
// forward/backward/batched iteration over the result.
package query

import (
	"sort"

	"github.com/foundry-ecs/warehouse/internal/archetype"
	"github.com/foundry-ecs/warehouse/internal/graph"
	"github.com/foundry-ecs/warehouse/internal/typeid"
)

// Predicate is a compiled query shape: include positions become the
// caller's iteration callback parameters; exclude/any_of/all_of narrow
// which archetypes qualify without contributing positions.
type Predicate struct {
	Include []typeid.ID
	Exclude []typeid.ID
	AnyOf   []typeid.ID
	AllOf   []typeid.ID
}

func (p Predicate) minRequired() int {
	n := len(p.Include) + len(p.AllOf)
	if len(p.AnyOf) > 0 {
		n++
	}
	return n
}

// Context is a matched archetype plus the resolved column index for each
// include position, cached until the next structural mutation of that
// archetype invalidates the pointers it backs.
type Context struct {
	Archetype  *archetype.Archetype
	ColumnIdx  []int
	StoreIndex int
}

// Matcher compiles a Predicate against one archetype graph and refreshes
// its matched set incrementally as new archetypes appear.
type Matcher struct {
	graph     *graph.Graph
	pred      Predicate
	matched   []Context
	matchedAt map[*archetype.Archetype]bool
	seenCount int
	dirty     bool
}

// NewMatcher compiles pred against g.
func NewMatcher(g *graph.Graph, pred Predicate) *Matcher {
	return &Matcher{
		graph:     g,
		pred:      pred,
		matchedAt: make(map[*archetype.Archetype]bool),
	}
}

// Invalidate marks the matcher dirty, forcing a full rescan on the next
// Fetch. Callers use this after mutating the predicate in place.
func (m *Matcher) Invalidate() { m.dirty = true }

func (m *Matcher) evaluate(a *archetype.Archetype) ([]int, bool) {
	ids := a.TypeIDs()
	if len(ids) < m.pred.minRequired() {
		return nil, false
	}
	for _, t := range m.pred.Exclude {
		if a.HasType(t) {
			return nil, false
		}
	}
	for _, t := range m.pred.AllOf {
		if !a.HasType(t) {
			return nil, false
		}
	}
	if len(m.pred.AnyOf) > 0 {
		any := false
		for _, t := range m.pred.AnyOf {
			if a.HasType(t) {
				any = true
				break
			}
		}
		if !any {
			return nil, false
		}
	}
	cols := make([]int, len(m.pred.Include))
	for i, t := range m.pred.Include {
		idx, ok := a.ColumnIndex(t)
		if !ok {
			return nil, false
		}
		cols[i] = idx
	}
	return cols, true
}

func (m *Matcher) tryAdd(a *archetype.Archetype) bool {
	if m.matchedAt[a] {
		return false
	}
	cols, ok := m.evaluate(a)
	if !ok {
		return false
	}
	m.matchedAt[a] = true
	m.matched = append(m.matched, Context{Archetype: a, ColumnIdx: cols})
	return true
}

// Fetch discovers archetypes that have appeared since the last call and
// adds any that match to the cached result, per spec 4.I's incremental
// fetch algorithm: if nothing has matched yet, or the graph grew by fewer
// archetypes than the matcher's own current match-set size, scan only the
// new range; otherwise pick the smallest by_first_type-grouped seed among
// the Include and AllOf types and scan from there.
// Fetch returns the number of new archetype contexts added to the cache
// by this call, so callers (and tests) can verify incremental behavior.
func (m *Matcher) Fetch() int {
	if m.dirty {
		m.matched = nil
		m.matchedAt = make(map[*archetype.Archetype]bool)
		m.seenCount = 0
		m.dirty = false
	}

	total := m.graph.Count()
	grew := total - m.seenCount
	if grew <= 0 {
		return 0
	}

	before := len(m.matched)
	if grew < len(m.matched) || len(m.matched) == 0 {
		for _, a := range m.graph.Range(m.seenCount, total) {
			m.tryAdd(a)
		}
	} else {
		seed := append(append([]typeid.ID{}, m.pred.Include...), m.pred.AllOf...)
		for _, a := range m.graph.ByFirstTypeSmallestGroup(seed, m.pred.minRequired()) {
			m.tryAdd(a)
		}
	}
	m.seenCount = total

	if len(m.matched) != before {
		sort.Slice(m.matched, func(i, j int) bool {
			return m.matched[i].Archetype.RegIndex < m.matched[j].Archetype.RegIndex
		})
	}
	return len(m.matched) - before
}

// Matched returns the cached matching archetype contexts. Callers must
// call Fetch first.
func (m *Matcher) Matched() []Context { return m.matched }
