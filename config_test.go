package ecs

import "testing"

type configTestPosition struct{ X, Y float64 }

func TestSetArchetypeChunkSizeAppliesToNewArchetypes(t *testing.T) {
	orig := Config.archetypeChunkSize
	defer Config.SetArchetypeChunkSize(orig)

	Config.SetArchetypeChunkSize(8)
	s := NewStore()
	pos := NewComponentType[configTestPosition]()
	ids, err := spawnN(t, s, 5, pos.ID())
	if err != nil {
		t.Fatalf("unexpected error spawning into a freshly reserved archetype: %v", err)
	}
	if len(ids) != 5 {
		t.Fatalf("expected 5 entities, got %d", len(ids))
	}
}

func TestSetDefaultStableChunkSize(t *testing.T) {
	origDefault := Config.defaultStableChunkSize
	defer Config.SetDefaultStableChunkSize(origDefault)

	Config.SetDefaultStableChunkSize(16)
	pos := NewStableComponentType[configTestPosition](0)
	s := NewStore()
	if _, err := spawnN(t, s, 1, pos.ID()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestSetEntityChunkSize(t *testing.T) {
	orig := Config.entityChunkSize
	defer Config.SetEntityChunkSize(orig)

	Config.SetEntityChunkSize(4)
	s := NewStore()
	pos := NewComponentType[configTestPosition]()
	ids, err := spawnN(t, s, 10, pos.ID())
	if err != nil {
		t.Fatalf("unexpected error spawning across entity chunk boundaries: %v", err)
	}
	if len(ids) != 10 {
		t.Fatalf("expected 10 entities, got %d", len(ids))
	}
}
