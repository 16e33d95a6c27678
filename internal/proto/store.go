package proto

import "sync"

// Store resolves handles to loaded raw prototypes. The loader owns the
// canonical implementation; tests construct small in-memory ones.
type Store interface {
	// Get returns the prototype stored under the given handle, if any.
	Get(h Handle) (*Prototype, bool)
}

// MemStore is a mutable, RWMutex-guarded Store. It stands in for the asset
// layer: parsed prototypes are put here by the loader and resolved from here
// by the tree builder.
type MemStore struct {
	mu         sync.RWMutex
	prototypes map[Handle]*Prototype
}

func NewMemStore() *MemStore {
	return &MemStore{prototypes: make(map[Handle]*Prototype)}
}

func (s *MemStore) Get(h Handle) (*Prototype, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.prototypes[h]
	return p, ok
}

// Put stores a prototype under the given handle, replacing any previous
// value. Replacement is how hot reload delivers a modified prototype.
func (s *MemStore) Put(h Handle, p *Prototype) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.prototypes[h] = p
}

// Delete removes the prototype stored under the given handle.
func (s *MemStore) Delete(h Handle) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.prototypes, h)
}

// Len returns the number of stored prototypes.
func (s *MemStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.prototypes)
}
