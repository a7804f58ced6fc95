/*
Package ecs provides an archetype-based Entity-Component-System data store.

The store groups entities by their exact component type-set into archetypes,
keeping same-shaped entities packed together column-by-column for cache
friendly iteration. Structural changes (adding or removing a component)
transition an entity along a graph of add/remove edges between archetypes
rather than rehashing a lookup table on every change.

Core Concepts:

  - EntityId: a recycled (index, generation) handle identifying an entity.
  - ComponentType[T]: a typed handle used to attach, read, and write a
    component on entities.
  - Store: owns every archetype, entity record, and component registry
    for one ECS world.
  - Query: a compiled predicate over component types, matched incrementally
    against the store's archetype graph.

Basic Usage:

	position := ecs.NewComponentType[Position]()
	velocity := ecs.NewComponentType[Velocity]()

	store := ecs.NewStore()
	proto, _ := store.CreateEntity(true)
	store.AddComponent(proto, position.ID())
	store.AddComponent(proto, velocity.ID())
	clones, _ := store.Spawn(proto, 99, true)
	entities := append([]ecs.EntityId{proto}, clones...)

	query := store.NewQuery(ecs.Include(position.ID(), velocity.ID()))
	cursor := store.NewCursor(query)

	for cursor.Next() {
		pos := position.GetFromCursor(cursor)
		vel := velocity.GetFromCursor(cursor)
		pos.X += vel.X
		pos.Y += vel.Y
	}
*/
package ecs
