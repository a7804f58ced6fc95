// Package entitymgr implements component G: entity id allocation with
// generation tags, id-to-archetype-row resolution, and recycling.
package entitymgr

import (
	"errors"

	"github.com/foundry-ecs/warehouse/internal/chunked"
)

// State mirrors the spec's EntityRecord state machine.
type State uint8

const (
	Dead State = iota
	Alive
	InDestruction
	DelayedDestruction
)

// ArchetypeID identifies an archetype by its position in the graph's
// registration-order slice. This package does not depend on the graph or
// archetype packages; the store facade translates ArchetypeID to a
// *archetype.Archetype.
type ArchetypeID int

// NoArchetype marks an entity that currently has no components.
const NoArchetype ArchetypeID = -1

// Record is the per-index bookkeeping entry the spec calls EntityRecord.
type Record struct {
	Generation  uint32
	State       State
	Active      bool
	ArchetypeID ArchetypeID
	Row         int
}

// ID is the (index, generation) handle applications hold.
type ID struct {
	Index      uint32
	Generation uint32
}

// ErrCapacityExhausted is the hard error raised when the entity index
// space (uint32) is exhausted.
var ErrCapacityExhausted = errors.New("entitymgr: entity id space exhausted")

// Manager allocates and recycles entity ids.
type Manager struct {
	records  *chunked.Vector[Record]
	freeList []uint32
}

// New creates an empty entity manager. chunkSize configures the backing
// chunked vector (spec §6 entity_chunk_size).
func New(chunkSize int) *Manager {
	return &Manager{records: chunked.NewVector[Record](chunkSize)}
}

// Create allocates a new entity id, recycling a free index when available.
func (m *Manager) Create(active bool) (ID, error) {
	if len(m.freeList) > 0 {
		idx := m.freeList[len(m.freeList)-1]
		m.freeList = m.freeList[:len(m.freeList)-1]
		rec := m.records.At(int(idx))
		rec.Generation++
		rec.State = Alive
		rec.Active = active
		rec.ArchetypeID = NoArchetype
		rec.Row = 0
		return ID{Index: idx, Generation: rec.Generation}, nil
	}
	if m.records.Len() >= 1<<32-1 {
		return ID{}, ErrCapacityExhausted
	}
	idx := m.records.PushBack(Record{
		Generation:  1,
		State:       Alive,
		Active:      active,
		ArchetypeID: NoArchetype,
	})
	return ID{Index: uint32(idx), Generation: 1}, nil
}

// Live reports whether id refers to a currently alive entity.
func (m *Manager) Live(id ID) bool {
	if int(id.Index) >= m.records.Len() {
		return false
	}
	rec := m.records.At(int(id.Index))
	return rec.Generation == id.Generation && rec.State == Alive
}

// Record returns a pointer to the backing record for id, or nil if id is
// not live. The returned pointer is stable until the entity is destroyed
// (records are chunked-vector-backed and never relocate while alive).
func (m *Manager) Record(id ID) *Record {
	if !m.Live(id) {
		return nil
	}
	return m.records.At(int(id.Index))
}

// RecordUnchecked returns the record for id's index without validating
// generation/state; used internally when the caller has already validated
// liveness once and wants to avoid a second check.
func (m *Manager) RecordUnchecked(index uint32) *Record {
	return m.records.At(int(index))
}

// Destroy marks id Dead and returns its index to the free list. Reports
// false if id was not live.
func (m *Manager) Destroy(id ID) bool {
	rec := m.Record(id)
	if rec == nil {
		return false
	}
	rec.State = Dead
	rec.ArchetypeID = NoArchetype
	m.freeList = append(m.freeList, id.Index)
	return true
}

// SetActive flips the active flag, reporting whether it changed (the
// caller uses this to decide whether to fire Activate/Deactivate
// observers).
func (m *Manager) SetActive(id ID, active bool) bool {
	rec := m.Record(id)
	if rec == nil || rec.Active == active {
		return false
	}
	rec.Active = active
	return true
}

// Len returns the number of record slots ever allocated (alive or dead).
func (m *Manager) Len() int { return m.records.Len() }

// FreeCount returns the number of indices currently on the free list.
func (m *Manager) FreeCount() int { return len(m.freeList) }
