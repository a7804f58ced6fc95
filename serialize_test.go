package ecs

import "testing"

type serializeTestPosition struct{ X, Y float64 }

func TestArchetypeViewReflectsSpawnedRows(t *testing.T) {
	s := NewStore()
	pos := NewComponentType[serializeTestPosition]()
	ids, _ := spawnN(t, s, 2, pos.ID())
	pos.Set(s, ids[0], serializeTestPosition{1, 2})
	pos.Set(s, ids[1], serializeTestPosition{3, 4})

	views := s.Archetypes()
	if len(views) != 1 {
		t.Fatalf("expected 1 archetype, got %d", len(views))
	}
	v := views[0]
	if v.Len() != 2 {
		t.Fatalf("expected 2 rows, got %d", v.Len())
	}
	typeIDs := v.TypeIDs()
	if len(typeIDs) != 1 || typeIDs[0] != pos.ID() {
		t.Fatalf("expected the archetype's type-set to be [pos], got %v", typeIDs)
	}
	if v.EntityAt(0) != ids[0] || v.EntityAt(1) != ids[1] {
		t.Fatalf("expected rows in spawn order")
	}
}

func TestColumnViewExposesValuesByPointer(t *testing.T) {
	s := NewStore()
	pos := NewComponentType[serializeTestPosition]()
	ids, _ := spawnN(t, s, 1, pos.ID())
	pos.Set(s, ids[0], serializeTestPosition{7, 8})

	v := s.Archetypes()[0]
	col := v.Column(0)
	if col.TypeID() != pos.ID() {
		t.Fatalf("expected column type id to match pos, got %v", col.TypeID())
	}
	if col.Stable() {
		t.Fatal("expected a non-stable component to report Stable() == false")
	}
	ptr := col.At(0)
	got := (*serializeTestPosition)(ptr)
	if *got != (serializeTestPosition{7, 8}) {
		t.Fatalf("expected column value to match what was Set, got %v", *got)
	}
}

func TestColumnViewStableReportsIndirection(t *testing.T) {
	s := NewStore()
	pos := NewStableComponentType[serializeTestPosition](4)
	spawnN(t, s, 1, pos.ID())

	v := s.Archetypes()[0]
	col := v.Column(0)
	if !col.Stable() {
		t.Fatal("expected a stable component's column view to report Stable() == true")
	}
}
