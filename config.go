package ecs

import "github.com/foundry-ecs/warehouse/internal/typeid"

// Config holds global configuration consulted whenever a store allocates a
// new archetype, column, or entity record.
var Config config = config{
	entityChunkSize:    1024,
	archetypeChunkSize: 64,
}

type config struct {
	defaultStableChunkSize int
	perTypeStableChunkSize map[typeid.ID]int
	entityChunkSize        int
	archetypeChunkSize     int
}

// SetDefaultStableChunkSize sets the fallback slot-chunk capacity used by
// stable component types that don't have a per-type override.
func (c *config) SetDefaultStableChunkSize(n int) {
	c.defaultStableChunkSize = n
}

// SetStableChunkSize overrides the slot-chunk capacity for one stable
// component type, taking priority over the default.
func (c *config) SetStableChunkSize(id TypeID, n int) {
	if c.perTypeStableChunkSize == nil {
		c.perTypeStableChunkSize = make(map[typeid.ID]int)
	}
	c.perTypeStableChunkSize[id] = n
}

// SetEntityChunkSize sets the chunk capacity for the entity record vector.
func (c *config) SetEntityChunkSize(n int) {
	c.entityChunkSize = n
}

// SetArchetypeChunkSize sets the row capacity reserved for an archetype
// when a store looks it up while it holds no rows.
func (c *config) SetArchetypeChunkSize(n int) {
	c.archetypeChunkSize = n
}

func (c *config) chunkSizeFor(id typeid.ID) int {
	if c.perTypeStableChunkSize != nil {
		if n, ok := c.perTypeStableChunkSize[id]; ok && n > 0 {
			return n
		}
	}
	return c.defaultStableChunkSize
}
