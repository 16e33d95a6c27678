// Package world implements the shared mutable entity store that realized
// prototype trees are wired into. Entities are plain component bags with a
// parent/child index; realization marks each spawned child with an Instance
// so that repeated application reuses entities instead of duplicating them.
package world

import (
	"sync"

	"github.com/google/uuid"

	"protoforge/internal/logging"
	"protoforge/internal/proto"
)

// Instance marks an entity as having been spawned for a particular
// (prototype handle, child index) slot under its parent. Equal instances
// under the same parent refer to the same logical child.
type Instance struct {
	Handle     proto.Handle
	ChildIndex int
}

// Entity is one concrete object in the world.
type Entity struct {
	ID         uuid.UUID
	Components map[string]any

	instance    Instance
	hasInstance bool
}

// World is the shared store of entities. Callers are expected to hold
// exclusive access for the duration of one realization or application pass;
// the internal lock only guards against torn reads from observers.
type World struct {
	mu       sync.RWMutex
	entities map[uuid.UUID]*Entity
	children map[uuid.UUID][]uuid.UUID
	parents  map[uuid.UUID]uuid.UUID
}

func New() *World {
	return &World{
		entities: make(map[uuid.UUID]*Entity),
		children: make(map[uuid.UUID][]uuid.UUID),
		parents:  make(map[uuid.UUID]uuid.UUID),
	}
}

// Spawn creates a new empty entity and returns its ID.
func (w *World) Spawn() uuid.UUID {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.spawn(Instance{}, false)
}

// SpawnInstance creates a new entity carrying the given instance marker.
func (w *World) SpawnInstance(inst Instance) uuid.UUID {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.spawn(inst, true)
}

func (w *World) spawn(inst Instance, marked bool) uuid.UUID {
	id := uuid.New()
	w.entities[id] = &Entity{
		ID:          id,
		Components:  make(map[string]any),
		instance:    inst,
		hasInstance: marked,
	}
	logging.Get(logging.CategoryWorld).Debugf("spawned entity %s", id)
	return id
}

// Despawn removes an entity and detaches it from its parent. Children of
// the removed entity are orphaned, not removed.
func (w *World) Despawn(id uuid.UUID) {
	w.mu.Lock()
	defer w.mu.Unlock()
	delete(w.entities, id)
	if parent, ok := w.parents[id]; ok {
		siblings := w.children[parent]
		for i, sib := range siblings {
			if sib == id {
				w.children[parent] = append(siblings[:i], siblings[i+1:]...)
				break
			}
		}
		delete(w.parents, id)
	}
	for _, child := range w.children[id] {
		delete(w.parents, child)
	}
	delete(w.children, id)
}

// Contains reports whether the entity exists.
func (w *World) Contains(id uuid.UUID) bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	_, ok := w.entities[id]
	return ok
}

// Len returns the number of live entities.
func (w *World) Len() int {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return len(w.entities)
}

// AddChild links child under parent in the parent/child index.
func (w *World) AddChild(parent, child uuid.UUID) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.children[parent] = append(w.children[parent], child)
	w.parents[child] = parent
}

// Children returns the ordered children of the given entity.
func (w *World) Children(parent uuid.UUID) []uuid.UUID {
	w.mu.RLock()
	defer w.mu.RUnlock()
	out := make([]uuid.UUID, len(w.children[parent]))
	copy(out, w.children[parent])
	return out
}

// Parent returns the parent of the given entity, if it has one.
func (w *World) Parent(child uuid.UUID) (uuid.UUID, bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	p, ok := w.parents[child]
	return p, ok
}

// InstanceOf returns the instance marker of an entity, if it carries one.
func (w *World) InstanceOf(id uuid.UUID) (Instance, bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	e, ok := w.entities[id]
	if !ok || !e.hasInstance {
		return Instance{}, false
	}
	return e.instance, true
}

// FindInstance looks for an existing child of parent carrying the given
// instance marker. This is the reuse lookup that makes realization
// idempotent.
func (w *World) FindInstance(parent uuid.UUID, inst Instance) (uuid.UUID, bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	for _, child := range w.children[parent] {
		e, ok := w.entities[child]
		if ok && e.hasInstance && e.instance == inst {
			return child, true
		}
	}
	return uuid.Nil, false
}

// SetComponent stores a component value on an entity.
func (w *World) SetComponent(entity uuid.UUID, key string, value any) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if e, ok := w.entities[entity]; ok {
		e.Components[key] = value
	}
}

// Component reads a component value from an entity.
func (w *World) Component(entity uuid.UUID, key string) (any, bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	e, ok := w.entities[entity]
	if !ok {
		return nil, false
	}
	v, ok := e.Components[key]
	return v, ok
}

// RemoveComponent deletes a component from an entity.
func (w *World) RemoveComponent(entity uuid.UUID, key string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if e, ok := w.entities[entity]; ok {
		delete(e.Components, key)
	}
}

// Components returns a copy of an entity's component map.
func (w *World) Components(entity uuid.UUID) map[string]any {
	w.mu.RLock()
	defer w.mu.RUnlock()
	e, ok := w.entities[entity]
	if !ok {
		return nil
	}
	out := make(map[string]any, len(e.Components))
	for k, v := range e.Components {
		out[k] = v
	}
	return out
}
