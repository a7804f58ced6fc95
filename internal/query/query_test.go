package query

import (
	"reflect"
	"testing"
	"unsafe"

	"github.com/TheBitDrifter/table"
	"github.com/foundry-ecs/warehouse/internal/archetype"
	"github.com/foundry-ecs/warehouse/internal/column"
	"github.com/foundry-ecs/warehouse/internal/graph"
	"github.com/foundry-ecs/warehouse/internal/typeid"
)

type position struct{ X, Y float64 }
type velocity struct{ DX, DY float64 }
type tag struct{}

func newTestGraph() (*graph.Graph, *typeid.Registry) {
	reg := typeid.NewRegistry()
	stableCols := map[typeid.ID]*column.Stable{}
	info := graph.TypeInfo{
		GoType: func(id typeid.ID) reflect.Type { return reg.Lookup(id).GoType },
		Stable: func(id typeid.ID) bool { return reg.Lookup(id).Stable },
		StableColumn: func(id typeid.ID) *column.Stable {
			if c, ok := stableCols[id]; ok {
				return c
			}
			m := reg.Lookup(id)
			c := column.NewStable(m.GoType, m.ChunkSize)
			stableCols[id] = c
			return c
		},
		Element:  func(id typeid.ID) table.ElementType { return reg.Lookup(id).Element },
		Accessor: func(id typeid.ID) func(int, table.Table) unsafe.Pointer { return reg.Lookup(id).At },
	}
	return graph.New(info), reg
}

// addRows populates n zero-valued rows with distinct entity indices into a.
func addRows(a *archetype.Archetype, n int, startIndex uint32) {
	for i := 0; i < n; i++ {
		ref := archetype.EntityRef{Index: startIndex + uint32(i), Generation: 1}
		a.AddEntity(ref)
		for ci := range a.TypeIDs() {
			a.AppendZero(ci)
		}
	}
}

func allActive(uint32, uint32) bool { return true }

func TestMatcherIncludeExclude(t *testing.T) {
	g, reg := newTestGraph()
	posID := typeid.Of[position](reg)
	velID := typeid.Of[velocity](reg)
	tagID := typeid.Of[tag](reg)

	onlyPos := g.GetOrCreate(typeid.Sorted([]typeid.ID{posID}))
	posVel := g.GetOrCreate(typeid.Sorted([]typeid.ID{posID, velID}))
	posTag := g.GetOrCreate(typeid.Sorted([]typeid.ID{posID, tagID}))
	addRows(onlyPos, 1, 0)
	addRows(posVel, 1, 10)
	addRows(posTag, 1, 20)

	m := NewMatcher(g, Predicate{Include: []typeid.ID{posID}, Exclude: []typeid.ID{tagID}})
	m.Fetch()
	matched := m.Matched()
	for _, ctx := range matched {
		if ctx.Archetype == posTag {
			t.Fatal("expected excluded archetype to be filtered out")
		}
	}
	if len(matched) != 2 {
		t.Fatalf("expected 2 matched archetypes, got %d", len(matched))
	}
}

func TestMatcherAnyOfAllOf(t *testing.T) {
	g, reg := newTestGraph()
	posID := typeid.Of[position](reg)
	velID := typeid.Of[velocity](reg)
	tagID := typeid.Of[tag](reg)

	posOnly := g.GetOrCreate(typeid.Sorted([]typeid.ID{posID}))
	posVel := g.GetOrCreate(typeid.Sorted([]typeid.ID{posID, velID}))
	posVelTag := g.GetOrCreate(typeid.Sorted([]typeid.ID{posID, velID, tagID}))
	addRows(posOnly, 1, 0)
	addRows(posVel, 1, 10)
	addRows(posVelTag, 1, 20)

	m := NewMatcher(g, Predicate{AllOf: []typeid.ID{posID, velID}, AnyOf: []typeid.ID{tagID}})
	m.Fetch()
	matched := m.Matched()
	if len(matched) != 1 || matched[0].Archetype != posVelTag {
		t.Fatalf("expected only the archetype satisfying AllOf+AnyOf, got %d matches", len(matched))
	}
}

func TestMatcherIncrementalFetch(t *testing.T) {
	g, reg := newTestGraph()
	posID := typeid.Of[position](reg)
	velID := typeid.Of[velocity](reg)

	a1 := g.GetOrCreate(typeid.Sorted([]typeid.ID{posID}))
	addRows(a1, 1, 0)

	m := NewMatcher(g, Predicate{Include: []typeid.ID{posID}})
	added := m.Fetch()
	if added != 1 {
		t.Fatalf("expected 1 new match on first fetch, got %d", added)
	}
	if n := m.Fetch(); n != 0 {
		t.Fatalf("expected no new matches on a no-op fetch, got %d", n)
	}

	a2 := g.GetOrCreate(typeid.Sorted([]typeid.ID{posID, velID}))
	addRows(a2, 1, 100)
	added = m.Fetch()
	if added != 1 {
		t.Fatalf("expected 1 new match after growing the graph, got %d", added)
	}
	if len(m.Matched()) != 2 {
		t.Fatalf("expected 2 cumulative matches, got %d", len(m.Matched()))
	}
}

func TestMatcherInvalidateForcesRescan(t *testing.T) {
	g, reg := newTestGraph()
	posID := typeid.Of[position](reg)
	a := g.GetOrCreate(typeid.Sorted([]typeid.ID{posID}))
	addRows(a, 1, 0)

	m := NewMatcher(g, Predicate{Include: []typeid.ID{posID}})
	m.Fetch()
	m.Invalidate()
	added := m.Fetch()
	if added != 1 || len(m.Matched()) != 1 {
		t.Fatalf("expected invalidate to force a full rescan producing 1 match, got added=%d total=%d", added, len(m.Matched()))
	}
}

func TestTotalMatchedSkipsInactive(t *testing.T) {
	g, reg := newTestGraph()
	posID := typeid.Of[position](reg)
	a := g.GetOrCreate(typeid.Sorted([]typeid.ID{posID}))
	addRows(a, 3, 0)

	m := NewMatcher(g, Predicate{Include: []typeid.ID{posID}})
	m.Fetch()

	inactiveIndex := uint32(1)
	active := func(idx, gen uint32) bool { return idx != inactiveIndex }
	if got := TotalMatched(m.Matched(), active); got != 2 {
		t.Fatalf("expected 2 active entities, got %d", got)
	}
}
