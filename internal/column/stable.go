package column

import (
	"reflect"
	"unsafe"
)

// SlotRef identifies a component value living inside a Stable column: the
// chunk it lives in, its slot within that chunk, and a cached pointer to
// the value itself (valid for as long as the slot stays occupied).
type SlotRef struct {
	ChunkIndex int
	SlotIndex  int
	Ptr        unsafe.Pointer
}

// stableChunk is a fixed-capacity, never-resized array of elements, plus
// per-slot occupancy and a free-slot stack. Because the backing array is
// allocated once and never reallocated, pointers into it are stable for
// the chunk's lifetime.
type stableChunk struct {
	data      reflect.Value // addressable array of cap N
	occupied  []bool
	freeList  []int
	allocHigh int // one past the highest slot ever allocated (bump pointer)
	inFreeSet bool
	count     int
}

func newStableChunk(t reflect.Type, n int) *stableChunk {
	arr := reflect.New(reflect.ArrayOf(n, t)).Elem()
	return &stableChunk{
		data:     arr,
		occupied: make([]bool, n),
	}
}

func (c *stableChunk) cap() int { return len(c.occupied) }

func (c *stableChunk) hasFreeSpace() bool {
	return c.allocHigh < c.cap() || len(c.freeList) > 0
}

func (c *stableChunk) ptr(slot int) unsafe.Pointer {
	return c.data.Index(slot).Addr().UnsafePointer()
}

// Stable is a chunked allocator of fixed-address slots, the indirection
// layer behind component types that must keep stable addresses across
// archetype moves.
type Stable struct {
	typ        reflect.Type
	chunkCap   int
	chunks     []*stableChunk // a released chunk leaves a nil hole
	freeChunks []int          // indices into chunks with hasFreeSpace() true
	current    int            // preferred chunk index, -1 if none
}

// NewStable creates an empty stable column with the given per-chunk
// capacity (spec default: 1000).
func NewStable(t reflect.Type, chunkCap int) *Stable {
	if chunkCap <= 0 {
		chunkCap = 1000
	}
	return &Stable{typ: t, chunkCap: chunkCap, current: -1}
}

func (s *Stable) Type() reflect.Type { return s.typ }

// Emplace copies *src into a freshly allocated stable slot and returns a
// reference to it. src must point at a value of s.Type().
func (s *Stable) Emplace(src unsafe.Pointer) SlotRef {
	ci := s.pickChunk()
	chunk := s.chunks[ci]

	var slot int
	if len(chunk.freeList) > 0 {
		slot = chunk.freeList[len(chunk.freeList)-1]
		chunk.freeList = chunk.freeList[:len(chunk.freeList)-1]
	} else {
		slot = chunk.allocHigh
		chunk.allocHigh++
	}
	chunk.occupied[slot] = true
	chunk.count++

	dst := chunk.ptr(slot)
	reflect.NewAt(s.typ, dst).Elem().Set(reflect.NewAt(s.typ, src).Elem())

	if !chunk.hasFreeSpace() {
		s.removeFromFreeSet(ci)
	}

	return SlotRef{ChunkIndex: ci, SlotIndex: slot, Ptr: dst}
}

// pickChunk returns the index of a chunk with free space, preferring the
// current chunk, creating a new one if none has room.
func (s *Stable) pickChunk() int {
	if s.current >= 0 && s.current < len(s.chunks) && s.chunks[s.current] != nil && s.chunks[s.current].hasFreeSpace() {
		return s.current
	}
	if len(s.freeChunks) > 0 {
		ci := s.freeChunks[len(s.freeChunks)-1]
		s.current = ci
		return ci
	}
	chunk := newStableChunk(s.typ, s.chunkCap)
	ci := len(s.chunks)
	s.chunks = append(s.chunks, chunk)
	chunk.inFreeSet = true
	s.freeChunks = append(s.freeChunks, ci)
	s.current = ci
	return ci
}

func (s *Stable) removeFromFreeSet(ci int) {
	chunk := s.chunks[ci]
	if !chunk.inFreeSet {
		return
	}
	chunk.inFreeSet = false
	for i, v := range s.freeChunks {
		if v == ci {
			s.freeChunks[i] = s.freeChunks[len(s.freeChunks)-1]
			s.freeChunks = s.freeChunks[:len(s.freeChunks)-1]
			break
		}
	}
}

func (s *Stable) addToFreeSet(ci int) {
	chunk := s.chunks[ci]
	if chunk.inFreeSet {
		return
	}
	chunk.inFreeSet = true
	s.freeChunks = append(s.freeChunks, ci)
}

// Remove destroys the value at (chunkIndex, slotIndex), freeing the slot.
// If the chunk becomes empty, it is released entirely.
func (s *Stable) Remove(chunkIndex, slotIndex int) {
	chunk := s.chunks[chunkIndex]
	chunk.occupied[slotIndex] = false
	chunk.count--
	reflect.NewAt(s.typ, chunk.ptr(slotIndex)).Elem().Set(reflect.Zero(s.typ))

	if chunk.count == 0 {
		s.releaseChunk(chunkIndex)
		return
	}
	chunk.freeList = append(chunk.freeList, slotIndex)
	s.addToFreeSet(chunkIndex)
}

func (s *Stable) releaseChunk(ci int) {
	s.removeFromFreeSet(ci)
	s.chunks[ci] = nil
	if s.current == ci {
		s.current = -1
	}
}

// At returns a pointer to the value at the given slot reference. Callers
// use this after a row move to re-resolve a SlotRef's Ptr field should
// they need freshness guarantees beyond the cached pointer (the pointer
// itself never moves while the slot stays occupied, so this is primarily
// useful for invariant checks).
func (s *Stable) At(chunkIndex, slotIndex int) unsafe.Pointer {
	return s.chunks[chunkIndex].ptr(slotIndex)
}

// Occupied reports whether the given slot currently holds a value.
func (s *Stable) Occupied(chunkIndex, slotIndex int) bool {
	if chunkIndex < 0 || chunkIndex >= len(s.chunks) || s.chunks[chunkIndex] == nil {
		return false
	}
	return s.chunks[chunkIndex].occupied[slotIndex]
}

// Len returns the total number of live slots across all chunks.
func (s *Stable) Len() int {
	n := 0
	for _, c := range s.chunks {
		if c != nil {
			n += c.count
		}
	}
	return n
}

// ChunkCount returns the number of chunk slots ever allocated, including
// released (nil) holes — used by shrink passes to bound their own work.
func (s *Stable) ChunkCount() int { return len(s.chunks) }

// EmptyClone creates a new stable column of the same element type and
// chunk capacity with no allocated chunks.
func (s *Stable) EmptyClone() *Stable {
	return NewStable(s.typ, s.chunkCap)
}
