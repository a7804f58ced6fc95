package column

import (
	"reflect"
	"testing"
	"unsafe"
)

func TestStableEmplaceAddressStability(t *testing.T) {
	s := NewStable(reflect.TypeOf(vec2{}), 4)
	v := vec2{1, 2}
	ref := s.Emplace(unsafe.Pointer(&v))
	got := (*vec2)(ref.Ptr)
	if *got != v {
		t.Fatalf("expected emplaced value %v, got %v", v, *got)
	}

	// Filling the rest of the chunk and spilling into a new one must not
	// move the first slot's address.
	for i := 0; i < 5; i++ {
		other := vec2{float64(i), float64(i)}
		s.Emplace(unsafe.Pointer(&other))
	}
	still := (*vec2)(ref.Ptr)
	if *still != v {
		t.Fatalf("expected slot address to stay stable, got %v", *still)
	}
}

func TestStableRemoveAndReuseSlot(t *testing.T) {
	s := NewStable(reflect.TypeOf(vec2{}), 4)
	a := vec2{1, 1}
	b := vec2{2, 2}
	refA := s.Emplace(unsafe.Pointer(&a))
	_ = s.Emplace(unsafe.Pointer(&b))

	s.Remove(refA.ChunkIndex, refA.SlotIndex)
	if s.Occupied(refA.ChunkIndex, refA.SlotIndex) {
		t.Fatal("expected slot to be unoccupied after Remove")
	}
	if s.Len() != 1 {
		t.Fatalf("expected 1 live slot, got %d", s.Len())
	}

	c := vec2{3, 3}
	refC := s.Emplace(unsafe.Pointer(&c))
	if refC.ChunkIndex != refA.ChunkIndex || refC.SlotIndex != refA.SlotIndex {
		t.Fatalf("expected the freed slot to be reused, got chunk=%d slot=%d", refC.ChunkIndex, refC.SlotIndex)
	}
}

func TestStableChunkReleasedWhenEmpty(t *testing.T) {
	s := NewStable(reflect.TypeOf(vec2{}), 2)
	a := vec2{1, 1}
	b := vec2{2, 2}
	refA := s.Emplace(unsafe.Pointer(&a))
	refB := s.Emplace(unsafe.Pointer(&b))
	if refA.ChunkIndex != refB.ChunkIndex {
		t.Fatalf("expected both slots in the same chunk, got %d and %d", refA.ChunkIndex, refB.ChunkIndex)
	}
	s.Remove(refA.ChunkIndex, refA.SlotIndex)
	s.Remove(refB.ChunkIndex, refB.SlotIndex)
	if s.Occupied(refA.ChunkIndex, refA.SlotIndex) {
		t.Fatal("expected chunk released, slot should report unoccupied")
	}
	if s.Len() != 0 {
		t.Fatalf("expected len 0 after releasing chunk, got %d", s.Len())
	}

	// A fresh emplace after full release must still succeed.
	c := vec2{3, 3}
	refC := s.Emplace(unsafe.Pointer(&c))
	got := (*vec2)(refC.Ptr)
	if *got != c {
		t.Fatalf("expected %v, got %v", c, *got)
	}
}

func TestStableEmptyCloneSharesLayout(t *testing.T) {
	s := NewStable(reflect.TypeOf(vec2{}), 4)
	v := vec2{1, 1}
	s.Emplace(unsafe.Pointer(&v))
	clone := s.EmptyClone()
	if clone.Len() != 0 {
		t.Fatalf("expected clone to start empty, got %d", clone.Len())
	}
	if clone.Type() != s.Type() {
		t.Fatal("expected clone to share element type")
	}
}
