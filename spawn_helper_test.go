package ecs

import "testing"

// spawnN builds one zero-valued prototype entity carrying every type in
// types, then clones it n-1 more times via Spawn, returning all n ids in
// creation order (prototype first). Most tests just want a batch of
// identical fresh entities and don't care about prefab semantics directly,
// so this keeps their call sites close to the shape they had before Spawn
// started taking a prefab.
func spawnN(t *testing.T, s *Store, n int, types ...TypeID) ([]EntityId, error) {
	t.Helper()
	proto, err := s.CreateEntity(true)
	if err != nil {
		return nil, err
	}
	for _, tid := range types {
		if err := s.AddComponent(proto, tid); err != nil {
			return nil, err
		}
	}
	if n <= 0 {
		return nil, nil
	}
	ids := []EntityId{proto}
	if n > 1 {
		rest, err := s.Spawn(proto, n-1, true)
		if err != nil {
			return ids, err
		}
		ids = append(ids, rest...)
	}
	return ids, nil
}
