package ecs

// deferredOp is one mutation deferred because the store was locked when it
// was requested.
type deferredOp interface {
	apply(*Store)
}

// operationQueue buffers structural mutations requested while a Store is
// locked (e.g. from inside a Cursor loop), replaying them once every lock
// is released, mirroring the teacher's lock-then-drain discipline.
type operationQueue struct {
	ops []deferredOp
}

func (q *operationQueue) enqueue(op deferredOp) {
	q.ops = append(q.ops, op)
}

func (q *operationQueue) processAll(s *Store) {
	if s.Locked() {
		return
	}
	pending := q.ops
	q.ops = nil
	for _, op := range pending {
		op.apply(s)
	}
}

type spawnOp struct {
	prefab EntityId
	count  int
	active bool
	onDone func([]EntityId, error)
}

func (op spawnOp) apply(s *Store) {
	ids, err := s.Spawn(op.prefab, op.count, op.active)
	if op.onDone != nil {
		op.onDone(ids, err)
	}
}

type destroyOp struct {
	id EntityId
}

func (op destroyOp) apply(s *Store) {
	s.DestroyEntity(op.id)
}

type addComponentOp struct {
	id EntityId
	t  TypeID
}

func (op addComponentOp) apply(s *Store) {
	s.AddComponent(op.id, op.t)
}

type removeComponentOp struct {
	id EntityId
	t  TypeID
}

func (op removeComponentOp) apply(s *Store) {
	s.RemoveComponent(op.id, op.t)
}

// EnqueueSpawn queues cloning prefab for after the store unlocks, or clones
// immediately if it is already unlocked. onDone, if non-nil, is invoked
// with the result once the operation actually runs.
func (s *Store) EnqueueSpawn(prefab EntityId, count int, active bool, onDone func([]EntityId, error)) {
	if !s.Locked() {
		ids, err := s.Spawn(prefab, count, active)
		if onDone != nil {
			onDone(ids, err)
		}
		return
	}
	s.ops.enqueue(spawnOp{prefab: prefab, count: count, active: active, onDone: onDone})
}

// EnqueueDestroyEntity queues entity destruction for after the store
// unlocks, or destroys immediately if it is already unlocked.
func (s *Store) EnqueueDestroyEntity(id EntityId) {
	if !s.Locked() {
		s.DestroyEntity(id)
		return
	}
	s.ops.enqueue(destroyOp{id: id})
}

// EnqueueAddComponent queues a component addition for after the store
// unlocks, or applies it immediately if it is already unlocked.
func (s *Store) EnqueueAddComponent(id EntityId, t TypeID) {
	if !s.Locked() {
		s.AddComponent(id, t)
		return
	}
	s.ops.enqueue(addComponentOp{id: id, t: t})
}

// EnqueueRemoveComponent queues a component removal for after the store
// unlocks, or applies it immediately if it is already unlocked.
func (s *Store) EnqueueRemoveComponent(id EntityId, t TypeID) {
	if !s.Locked() {
		s.RemoveComponent(id, t)
		return
	}
	s.ops.enqueue(removeComponentOp{id: id, t: t})
}
