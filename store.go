package ecs

import (
	"errors"
	"reflect"
	"sort"
	"unsafe"

	"github.com/TheBitDrifter/bark"
	"github.com/TheBitDrifter/mask"
	"github.com/foundry-ecs/warehouse/internal/archetype"
	"github.com/foundry-ecs/warehouse/internal/entitymgr"
	"github.com/foundry-ecs/warehouse/internal/graph"
	"github.com/foundry-ecs/warehouse/internal/query"
	"github.com/foundry-ecs/warehouse/internal/registry"
	"github.com/foundry-ecs/warehouse/internal/typeid"
)

// Store owns every archetype, entity record, and component registry for
// one ECS world (spec §3 Ownership: "the store owns every archetype, every
// entity record, and the component registry"). Stores do not share
// archetypes or entity records with one another, but do share the
// process-wide TypeID space, which is what lets MultiQuery compare
// archetypes across stores.
type Store struct {
	reg      *registry.Registry
	graph    *graph.Graph
	entities *entitymgr.Manager
	ops      *operationQueue
	locks    mask.Mask256

	onCreateEntity  []func(EntityId)
	onDestroyEntity []func(EntityId)
	onActivate      []func(EntityId)
	onDeactivate    []func(EntityId)
}

// NewStore creates an empty store.
func NewStore() *Store {
	reg := registry.New(globalTypes, Config.defaultStableChunkSize)
	s := &Store{
		reg:      reg,
		entities: entitymgr.New(Config.entityChunkSize),
		ops:      &operationQueue{},
	}
	s.graph = graph.New(graph.TypeInfo{
		GoType:       s.goTypeOf,
		Stable:       s.reg.Stable,
		StableColumn: s.reg.StableColumn,
		Element:      s.reg.Element,
		Accessor:     s.reg.Accessor,
	})
	return s
}

func (s *Store) goTypeOf(id typeid.ID) reflect.Type {
	return s.reg.GoType(id)
}

// getOrCreateArchetype wraps graph.GetOrCreate, giving a brand-new archetype
// an initial row/column capacity so the first few spawns into it don't pay
// for repeated grows.
func (s *Store) getOrCreateArchetype(sortedIDs []TypeID) *archetype.Archetype {
	a := s.graph.GetOrCreate(sortedIDs)
	if a.Len() == 0 {
		a.Reserve(Config.archetypeChunkSize)
	}
	return a
}

// ensureTypes registers every id with this store's local registry entry
// table (chunk size, observer order bookkeeping) before it is used to
// materialize or look up an archetype.
func (s *Store) ensureTypes(ids []TypeID) {
	for _, id := range ids {
		s.reg.Ensure(id)
		if n := Config.perTypeStableChunkSize[id]; n > 0 {
			s.reg.SetChunkSizeOverride(id, n)
		}
	}
}

// Locked reports whether the store is currently locked against structural
// mutation (e.g. during iteration).
func (s *Store) Locked() bool { return !s.locks.IsEmpty() }

// Lock marks the store locked under bit, deferring structural mutation
// until every lock bit is released.
func (s *Store) Lock(bit uint32) { s.locks.Mark(bit) }

// Unlock releases bit and, once no locks remain, drains the deferred
// operation queue.
func (s *Store) Unlock(bit uint32) {
	s.locks.Unmark(bit)
	if s.locks.IsEmpty() {
		s.ops.processAll(s)
	}
}

// CreateEntity allocates a bare EntityId with no archetype and fires the
// create-entity observer. Used to build a prefab up component by component
// (via AddComponent) before cloning it with Spawn.
func (s *Store) CreateEntity(active bool) (EntityId, error) {
	if s.Locked() {
		return EntityId{}, LockedStorageError{}
	}
	id, err := s.entities.Create(active)
	if err != nil {
		return EntityId{}, CapacityExhaustedError{}
	}
	for _, fn := range s.onCreateEntity {
		fn(id)
	}
	return id, nil
}

// Spawn creates count entities that are deep copies of prefab's current
// component values: stable component types allocate a fresh slot per copy
// with prefab's bytes copied in, non-stable types are memberwise copied.
// prefab must be alive and already carry an archetype (built up via
// CreateEntity and AddComponent). Returns the new entities' ids in
// creation order.
func (s *Store) Spawn(prefab EntityId, count int, active bool) ([]EntityId, error) {
	if s.Locked() {
		return nil, LockedStorageError{}
	}
	rec := s.liveRecord(prefab)
	if rec == nil {
		return nil, DeadEntityError{ID: prefab}
	}
	a := s.archetypeAt(rec.ArchetypeID)
	a.Reserve(a.Len() + count)

	// observer_order only governs the sequence create observers fire in
	// for a multi-component operation; the archetype's own column order
	// always stays canonical (ascending by type id), since the graph's
	// edge-wiring and row-move merges depend on every archetype sharing
	// one fixed comparator.
	fireOrder := append([]TypeID(nil), a.TypeIDs()...)
	s.reg.SortByObserverOrder(fireOrder)

	ids := make([]EntityId, count)
	for i := 0; i < count; i++ {
		id, err := s.entities.Create(active)
		if err != nil {
			return ids[:i], CapacityExhaustedError{}
		}
		row := a.AddEntity(archetype.EntityRef{Index: id.Index, Generation: id.Generation})
		for ci, tid := range a.TypeIDs() {
			src := a.ComponentPtr(tid, rec.Row)
			a.AppendValue(ci, src)
		}
		for _, tid := range fireOrder {
			s.fireCreate(tid, a, row, id)
		}
		newRec := s.entities.Record(id)
		newRec.ArchetypeID = entitymgr.ArchetypeID(a.RegIndex)
		newRec.Row = row
		ids[i] = id
		for _, fn := range s.onCreateEntity {
			fn(id)
		}
	}
	return ids, nil
}

// sortedForMask canonicalizes a type-id list into the ascending, deduped
// order every archetype uses for its type-set identity (mask, edges, and
// row-move merges all assume this one fixed comparator).
func sortedForMask(ids []TypeID) []TypeID {
	out := append([]TypeID(nil), ids...)
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	n := 0
	for i, id := range out {
		if i == 0 || out[n-1] != id {
			out[n] = id
			n++
		}
	}
	return out[:n]
}

func (s *Store) fireCreate(id TypeID, a *archetype.Archetype, row int, entity EntityId) {
	ptr := a.ComponentPtr(id, row)
	s.reg.FireCreate(id, ptr, entity.Index, entity.Generation)
}

func (s *Store) fireDestroy(id TypeID, a *archetype.Archetype, row int, entity EntityId) {
	ptr := a.ComponentPtr(id, row)
	s.reg.FireDestroy(id, ptr, entity.Index, entity.Generation)
}

// DestroyEntity removes id from the store, firing destroy observers for
// every component it carries and recycling its index.
func (s *Store) DestroyEntity(id EntityId) error {
	if s.Locked() {
		return LockedStorageError{}
	}
	if rec := s.entities.Record(id); rec != nil && rec.ArchetypeID == entitymgr.NoArchetype {
		s.entities.Destroy(id)
		for _, fn := range s.onDestroyEntity {
			fn(id)
		}
		return nil
	}
	rec := s.liveRecord(id)
	if rec == nil {
		return DeadEntityError{ID: id}
	}
	a := s.archetypeAt(rec.ArchetypeID)
	row := rec.Row
	fireOrder := append([]TypeID(nil), a.TypeIDs()...)
	s.reg.SortByObserverOrder(fireOrder)
	for _, tid := range fireOrder {
		s.fireDestroy(tid, a, row, id)
	}
	moved, didMove := a.SwapRemoveRow(row)
	if didMove {
		if mr := s.entities.RecordUnchecked(moved.Index); mr.Generation == moved.Generation {
			mr.Row = row
		}
	}
	s.entities.Destroy(id)
	for _, fn := range s.onDestroyEntity {
		fn(id)
	}
	return nil
}

func (s *Store) liveRecord(id EntityId) *entitymgr.Record {
	if !s.entities.Live(id) {
		return nil
	}
	rec := s.entities.Record(id)
	if rec == nil || rec.ArchetypeID == entitymgr.NoArchetype {
		return nil
	}
	return rec
}

func (s *Store) archetypeAt(id entitymgr.ArchetypeID) *archetype.Archetype {
	return s.graph.All()[id]
}

// HasComponent reports whether id is alive and carries component type t.
func (s *Store) HasComponent(id EntityId, t TypeID) bool {
	return s.componentPtr(id, t) != nil
}

func (s *Store) componentPtr(id EntityId, t TypeID) unsafe.Pointer {
	rec := s.liveRecord(id)
	if rec == nil {
		return nil
	}
	a := s.archetypeAt(rec.ArchetypeID)
	return a.ComponentPtr(t, rec.Row)
}

// AddComponent moves id into the archetype reached by adding t, leaving
// the new component zero-valued, and fires t's create observers. Returns
// DuplicateComponentError if id already carries t.
func (s *Store) AddComponent(id EntityId, t TypeID) error {
	if s.Locked() {
		return LockedStorageError{}
	}
	if !s.entities.Live(id) {
		return DeadEntityError{ID: id}
	}
	rec := s.entities.Record(id)
	if rec.ArchetypeID == entitymgr.NoArchetype {
		s.ensureTypes([]TypeID{t})
		dst := s.getOrCreateArchetype([]TypeID{t})
		row := dst.AddEntity(archetype.EntityRef{Index: id.Index, Generation: id.Generation})
		dst.AppendZero(0)
		rec.ArchetypeID = entitymgr.ArchetypeID(dst.RegIndex)
		rec.Row = row
		s.fireCreate(t, dst, row, id)
		return nil
	}
	src := s.archetypeAt(rec.ArchetypeID)
	if src.HasType(t) {
		return DuplicateComponentError{ID: id, Type: t}
	}
	s.ensureTypes([]TypeID{t})

	dst, ok := src.AddEdges[t]
	if !ok {
		ids := sortedForMask(append(append([]TypeID(nil), src.TypeIDs()...), t))
		dst = s.getOrCreateArchetype(ids)
	}

	return s.transferRow(id, rec, src, dst, func(dstColIdx int) {
		dst.AppendZero(dstColIdx)
	}, t)
}

// RemoveComponent moves id into the archetype reached by removing t,
// firing t's destroy observer first. Returns MissingComponentError if id
// does not carry t.
func (s *Store) RemoveComponent(id EntityId, t TypeID) error {
	if s.Locked() {
		return LockedStorageError{}
	}
	rec := s.liveRecord(id)
	if rec == nil {
		if s.entities.Live(id) {
			return MissingComponentError{ID: id, Type: t}
		}
		return DeadEntityError{ID: id}
	}
	src := s.archetypeAt(rec.ArchetypeID)
	if !src.HasType(t) {
		return MissingComponentError{ID: id, Type: t}
	}
	s.fireDestroy(t, src, rec.Row, id)

	if len(src.TypeIDs()) == 1 {
		moved, didMove := src.SwapRemoveRow(rec.Row)
		if didMove {
			if mr := s.entities.RecordUnchecked(moved.Index); mr.Generation == moved.Generation {
				mr.Row = rec.Row
			}
		}
		rec.ArchetypeID = entitymgr.NoArchetype
		rec.Row = 0
		return nil
	}

	dst, ok := src.RemoveEdges[t]
	if !ok {
		remaining := make([]TypeID, 0, len(src.TypeIDs())-1)
		for _, tid := range src.TypeIDs() {
			if tid != t {
				remaining = append(remaining, tid)
			}
		}
		dst = s.getOrCreateArchetype(remaining)
	}
	return s.transferRow(id, rec, src, dst, nil, typeid.Invalid)
}

// transferRow performs the generic cross-archetype move shared by
// AddComponent/RemoveComponent: dst differs from src by exactly one type
// (addedType, when filling an addition; typeid.Invalid for a removal).
func (s *Store) transferRow(id EntityId, rec *entitymgr.Record, src, dst *archetype.Archetype, fillExtra func(int), addedType TypeID) error {
	ref := archetype.EntityRef{Index: id.Index, Generation: id.Generation}
	moved, didMove, dstRow := src.MoveRowTo(dst, rec.Row, ref, func(dstColIdx int) {
		if fillExtra != nil {
			fillExtra(dstColIdx)
		} else {
			panic(bark.AddTrace(errNoFillForAddedColumn))
		}
	})
	if didMove {
		if mr := s.entities.RecordUnchecked(moved.Index); mr.Generation == moved.Generation {
			mr.Row = rec.Row
		}
	}
	rec.ArchetypeID = entitymgr.ArchetypeID(dst.RegIndex)
	rec.Row = dstRow
	if addedType != typeid.Invalid {
		s.fireCreate(addedType, dst, dstRow, id)
	}
	return nil
}

// SetActive marks id active or inactive. Inactive entities are skipped by
// query iteration but remain in their archetype (spec §3 Lifecycles).
// Returns false if id is dead or the flag already had the requested value.
func (s *Store) SetActive(id EntityId, active bool) bool {
	changed := s.entities.SetActive(id, active)
	if !changed {
		return false
	}
	if active {
		for _, fn := range s.onActivate {
			fn(id)
		}
	} else {
		for _, fn := range s.onDeactivate {
			fn(id)
		}
	}
	return true
}

// Active reports whether id is alive and currently active.
func (s *Store) Active(id EntityId) bool {
	rec := s.entities.Record(id)
	return rec != nil && rec.Active
}

func (s *Store) activeFunc() query.ActiveFunc {
	return func(index, generation uint32) bool {
		r := s.entities.RecordUnchecked(index)
		return r.Generation == generation && r.Active
	}
}

// OnCreateEntity registers fn to fire whenever a new entity is spawned.
func (s *Store) OnCreateEntity(fn func(EntityId)) { s.onCreateEntity = append(s.onCreateEntity, fn) }

// OnDestroyEntity registers fn to fire whenever an entity is destroyed.
func (s *Store) OnDestroyEntity(fn func(EntityId)) {
	s.onDestroyEntity = append(s.onDestroyEntity, fn)
}

// OnActivate registers fn to fire whenever an entity transitions inactive
// to active.
func (s *Store) OnActivate(fn func(EntityId)) { s.onActivate = append(s.onActivate, fn) }

// OnDeactivate registers fn to fire whenever an entity transitions active
// to inactive.
func (s *Store) OnDeactivate(fn func(EntityId)) { s.onDeactivate = append(s.onDeactivate, fn) }

// ShrinkToFit compacts every archetype's columns in one pass.
func (s *Store) ShrinkToFit() { s.graph.ShrinkToFit() }

// ShrinkIncremental compacts at most maxArchetypes archetypes per call,
// resuming from cursor on the next call; see Graph.ShrinkIncremental.
func (s *Store) ShrinkIncremental(cursor, maxArchetypes int, loadFactorThreshold float64) int {
	return s.graph.ShrinkIncremental(cursor, maxArchetypes, loadFactorThreshold)
}

var errNoFillForAddedColumn = errors.New("transferRow: destination archetype has an extra column with no fill function")
