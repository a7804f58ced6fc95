// Package graph implements component F: the registry of archetypes keyed
// by exact type-set, with the add/remove edge network that lets the store
// move an entity between archetypes in O(1) once an edge has been
// traversed, plus the by-count/by-first-type indices the query engine uses
// to seed its matching scan.
package graph

import (
	"reflect"
	"unsafe"

	"github.com/TheBitDrifter/mask"
	"github.com/TheBitDrifter/table"
	"github.com/foundry-ecs/warehouse/internal/archetype"
	"github.com/foundry-ecs/warehouse/internal/column"
	"github.com/foundry-ecs/warehouse/internal/typeid"
)

// TypeInfo is everything the graph needs from the registry to materialize
// a brand new archetype's columns, kept as plain functions so this package
// never imports the registry (which, in turn, depends on nothing here).
// StableColumn must return the same *column.Stable instance for a given id
// across every call, so every archetype sharing that stable type shares
// its backing storage too.
type TypeInfo struct {
	GoType       func(typeid.ID) reflect.Type
	Stable       func(typeid.ID) bool
	StableColumn func(typeid.ID) *column.Stable
	Element      func(typeid.ID) table.ElementType
	Accessor     func(typeid.ID) func(int, table.Table) unsafe.Pointer
}

// firstTypeGroup indexes every archetype containing a given type id,
// sub-grouped by component count, mirroring spec's by_first_type index.
type firstTypeGroup struct {
	byCount map[int][]*archetype.Archetype
}

// Graph owns every archetype created for one store. Archetypes, once
// created, live for the lifetime of the graph (never destroyed) and are
// referenced everywhere else purely by pointer — per the design note, the
// graph is the arena and sole owner.
type Graph struct {
	info TypeInfo

	all         []*archetype.Archetype // registration order; serialization walks this
	byMask      map[mask.Mask]*archetype.Archetype
	bySingle    map[typeid.ID]*archetype.Archetype
	byCount     map[int][]*archetype.Archetype
	byFirstType map[typeid.ID]*firstTypeGroup
}

// New creates an empty archetype graph.
func New(info TypeInfo) *Graph {
	return &Graph{
		info:        info,
		byMask:      make(map[mask.Mask]*archetype.Archetype),
		bySingle:    make(map[typeid.ID]*archetype.Archetype),
		byCount:     make(map[int][]*archetype.Archetype),
		byFirstType: make(map[typeid.ID]*firstTypeGroup),
	}
}

// Count returns how many archetypes have been registered so far, used by
// the query engine's incremental-fetch bookkeeping.
func (g *Graph) Count() int { return len(g.all) }

// All returns every archetype in registration order.
func (g *Graph) All() []*archetype.Archetype { return g.all }

// Range returns the archetypes registered in [start, end).
func (g *Graph) Range(start, end int) []*archetype.Archetype {
	if end > len(g.all) {
		end = len(g.all)
	}
	if start >= end {
		return nil
	}
	return g.all[start:end]
}

// BySingleType returns the archetype with exactly one column of type id,
// creating it if it does not yet exist.
func (g *Graph) BySingleType(id typeid.ID) *archetype.Archetype {
	if a, ok := g.bySingle[id]; ok {
		return a
	}
	return g.register([]typeid.ID{id})
}

// ByFirstTypeSmallestGroup returns, among the given include ids, the
// smallest by_first_type/by_count-grouped candidate set — the "best seed"
// the query engine scans from, per spec 4.I.
func (g *Graph) ByFirstTypeSmallestGroup(ids []typeid.ID, minCount int) []*archetype.Archetype {
	var best []*archetype.Archetype
	bestLen := -1
	for _, id := range ids {
		grp, ok := g.byFirstType[id]
		if !ok {
			continue
		}
		total := 0
		var candidates []*archetype.Archetype
		for count, archs := range grp.byCount {
			if count+1 < minCount {
				continue
			}
			total += len(archs)
			candidates = append(candidates, archs...)
		}
		if bestLen == -1 || total < bestLen {
			bestLen = total
			best = candidates
		}
	}
	if best == nil {
		return g.all
	}
	return best
}

// maskFor computes the bitmask for a sorted type-id slice.
func maskFor(ids []typeid.ID) mask.Mask {
	var m mask.Mask
	for _, id := range ids {
		m.Mark(uint32(id))
	}
	return m
}

// GetOrCreate resolves the archetype for an exact, sorted, deduplicated
// type-id sequence, per spec 4.F's lookup algorithm: edge traversal first,
// then a by_first_type group scan, then creation.
func (g *Graph) GetOrCreate(sortedIDs []typeid.ID) *archetype.Archetype {
	if len(sortedIDs) == 0 {
		return nil
	}
	m := maskFor(sortedIDs)
	if a, ok := g.byMask[m]; ok {
		return a
	}

	cur := g.BySingleType(sortedIDs[0])
	for i := 1; i < len(sortedIDs); i++ {
		next := sortedIDs[i]
		if edge, ok := cur.AddEdges[next]; ok {
			cur = edge
			continue
		}
		if found := g.scanGroupForExact(sortedIDs[:i+1]); found != nil {
			cur = found
			continue
		}
		cur = g.register(append([]typeid.ID(nil), sortedIDs[:i+1]...))
	}
	return cur
}

// scanGroupForExact linear-scans the by_first_type group for types[0],
// restricted to archetypes of the target component count, comparing the
// full type sequence.
func (g *Graph) scanGroupForExact(types []typeid.ID) *archetype.Archetype {
	grp, ok := g.byFirstType[types[0]]
	if !ok {
		return nil
	}
	candidates := grp.byCount[len(types)]
	for _, a := range candidates {
		if sameTypeSet(a.TypeIDs(), types) {
			return a
		}
	}
	return nil
}

func sameTypeSet(a, b []typeid.ID) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// register creates and indexes a brand-new archetype, wiring its
// add/remove edges against every existing archetype one size smaller or
// larger that differs by exactly one type.
func (g *Graph) register(sortedIDs []typeid.ID) *archetype.Archetype {
	a := archetype.New(sortedIDs, g.info.GoType, g.info.Stable, g.info.StableColumn, g.info.Element, g.info.Accessor)
	a.RegIndex = len(g.all)

	g.all = append(g.all, a)
	g.byMask[maskFor(sortedIDs)] = a
	if len(sortedIDs) == 1 {
		g.bySingle[sortedIDs[0]] = a
	}
	g.byCount[len(sortedIDs)] = append(g.byCount[len(sortedIDs)], a)
	for _, id := range sortedIDs {
		grp, ok := g.byFirstType[id]
		if !ok {
			grp = &firstTypeGroup{byCount: make(map[int][]*archetype.Archetype)}
			g.byFirstType[id] = grp
		}
		grp.byCount[len(sortedIDs)] = append(grp.byCount[len(sortedIDs)], a)
	}

	k := len(sortedIDs)
	for _, other := range g.byCount[k-1] {
		if other == a {
			continue
		}
		if missing, ok := archetype.ExactlyOneMissing(other.TypeIDs(), a.TypeIDs()); ok {
			other.AddEdges[missing] = a
			a.RemoveEdges[missing] = other
		}
	}
	for _, other := range g.byCount[k+1] {
		if other == a {
			continue
		}
		if missing, ok := archetype.ExactlyOneMissing(a.TypeIDs(), other.TypeIDs()); ok {
			a.AddEdges[missing] = other
			other.RemoveEdges[missing] = a
		}
	}
	return a
}

// ShrinkToFit compacts every archetype's columns in one pass.
func (g *Graph) ShrinkToFit() {
	for _, a := range g.all {
		a.ShrinkToFit()
	}
}

// ShrinkIncremental compacts at most maxArchetypes archetypes whose load
// factor is at or below threshold, resuming from cursor on the next call.
// Returns the cursor to pass on the following call.
func (g *Graph) ShrinkIncremental(cursor, maxArchetypes int, loadFactorThreshold float64) int {
	if len(g.all) == 0 {
		return 0
	}
	processed := 0
	i := cursor % len(g.all)
	for processed < maxArchetypes {
		a := g.all[i]
		if a.LoadFactor() <= loadFactorThreshold {
			a.ShrinkToFit()
		}
		i = (i + 1) % len(g.all)
		processed++
		if i == cursor {
			break
		}
	}
	return i
}
