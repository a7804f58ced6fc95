package graph

import (
	"reflect"
	"testing"
	"unsafe"

	"github.com/TheBitDrifter/table"
	"github.com/foundry-ecs/warehouse/internal/column"
	"github.com/foundry-ecs/warehouse/internal/typeid"
)

type position struct{ X, Y float64 }
type velocity struct{ DX, DY float64 }
type tag struct{}

func newGraphFixture() (*Graph, *typeid.Registry) {
	reg := typeid.NewRegistry()
	stableCols := map[typeid.ID]*column.Stable{}
	info := TypeInfo{
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
	return New(info), reg
}

func TestGetOrCreateIdempotent(t *testing.T) {
	g, reg := newGraphFixture()
	posID := typeid.Of[position](reg)
	velID := typeid.Of[velocity](reg)
	ids := typeid.Sorted([]typeid.ID{posID, velID})

	a := g.GetOrCreate(ids)
	b := g.GetOrCreate(ids)
	if a != b {
		t.Fatal("expected the same archetype pointer for the same type set")
	}
	if g.Count() != 2 {
		// position-only and (position,velocity) both get materialized as
		// GetOrCreate walks from the single-type archetype.
		t.Fatalf("expected 2 archetypes registered, got %d", g.Count())
	}
}

func TestAddEdgeWiredBothDirections(t *testing.T) {
	g, reg := newGraphFixture()
	posID := typeid.Of[position](reg)
	velID := typeid.Of[velocity](reg)

	small := g.GetOrCreate(typeid.Sorted([]typeid.ID{posID}))
	large := g.GetOrCreate(typeid.Sorted([]typeid.ID{posID, velID}))

	if small.AddEdges[velID] != large {
		t.Fatal("expected AddEdges[vel] on the smaller archetype to point at the larger one")
	}
	if large.RemoveEdges[velID] != small {
		t.Fatal("expected RemoveEdges[vel] on the larger archetype to point at the smaller one")
	}
}

func TestEdgeWiredRegardlessOfCreationOrder(t *testing.T) {
	g, reg := newGraphFixture()
	posID := typeid.Of[position](reg)
	velID := typeid.Of[velocity](reg)
	tagID := typeid.Of[tag](reg)

	// Create the larger archetype first, then a smaller sibling that its
	// own creation walk did not pass through ({vel, tag}); the edge must
	// still end up wired both ways once both exist, regardless of which one
	// was registered first.
	large := g.GetOrCreate(typeid.Sorted([]typeid.ID{posID, velID, tagID}))
	small := g.GetOrCreate(typeid.Sorted([]typeid.ID{velID, tagID}))

	if small.AddEdges[posID] != large {
		t.Fatal("expected edge wired after both archetypes exist, smaller created second")
	}
	if large.RemoveEdges[posID] != small {
		t.Fatal("expected reverse edge wired too")
	}
}

func TestBySingleTypeCreatesOnDemand(t *testing.T) {
	g, reg := newGraphFixture()
	posID := typeid.Of[position](reg)
	a := g.BySingleType(posID)
	b := g.BySingleType(posID)
	if a != b {
		t.Fatal("expected repeated calls to return the same archetype")
	}
	if len(a.TypeIDs()) != 1 || a.TypeIDs()[0] != posID {
		t.Fatalf("expected a single-column archetype for position, got %v", a.TypeIDs())
	}
}

func TestShrinkIncrementalAdvancesCursor(t *testing.T) {
	g, reg := newGraphFixture()
	posID := typeid.Of[position](reg)
	velID := typeid.Of[velocity](reg)
	tagID := typeid.Of[tag](reg)
	g.GetOrCreate(typeid.Sorted([]typeid.ID{posID}))
	g.GetOrCreate(typeid.Sorted([]typeid.ID{velID}))
	g.GetOrCreate(typeid.Sorted([]typeid.ID{tagID}))

	next := g.ShrinkIncremental(0, 2, 1.0)
	if next != 2 {
		t.Fatalf("expected cursor to advance by maxArchetypes, got %d", next)
	}
}
