package proto

import (
	"fmt"

	"github.com/google/uuid"
)

// EntityMutator is the slice of the world that schematics are allowed to
// touch: component reads and writes on concrete entities.
type EntityMutator interface {
	SetComponent(entity uuid.UUID, key string, value any)
	Component(entity uuid.UUID, key string) (any, bool)
	RemoveComponent(entity uuid.UUID, key string)
}

// SchematicContext is handed to a schematic during application. It exposes
// the entity currently being processed (absent when the node does not
// require one) and relative path lookup into the realized tree.
type SchematicContext interface {
	// Entity returns the concrete entity for the current tree node.
	// ok is false for nodes that do not require an entity.
	Entity() (uuid.UUID, bool)

	// FindEntity resolves an access path (e.g. "../@2:engine") relative to
	// the current node. ok is false when any operation in the path cannot
	// be satisfied; callers decide whether absence is fatal.
	FindEntity(path string) (uuid.UUID, bool)

	// World returns the component store for the shared world.
	World() EntityMutator
}

// Schematic is a named unit of world mutation attached to a prototype.
// Implementations form a closed set registered in the codec table; the
// resolver treats them as opaque.
type Schematic interface {
	// Kind is the stable type tag the schematic was registered under.
	Kind() string
	// Apply mutates the world for the current tree node.
	Apply(ctx SchematicContext) error
	// Remove undoes Apply for the current tree node.
	Remove(ctx SchematicContext) error
}

// Schematics is an ordered, named collection of schematics. Order is the
// document order, which is also the application order within one prototype.
type Schematics struct {
	order  []string
	byKind map[string]Schematic
}

func NewSchematics() *Schematics {
	return &Schematics{byKind: make(map[string]Schematic)}
}

// Insert adds a schematic, replacing any existing one of the same kind
// while keeping its original position.
func (s *Schematics) Insert(sch Schematic) {
	kind := sch.Kind()
	if _, ok := s.byKind[kind]; !ok {
		s.order = append(s.order, kind)
	}
	s.byKind[kind] = sch
}

func (s *Schematics) Get(kind string) (Schematic, bool) {
	sch, ok := s.byKind[kind]
	return sch, ok
}

// All returns the schematics in document order.
func (s *Schematics) All() []Schematic {
	out := make([]Schematic, 0, len(s.order))
	for _, kind := range s.order {
		out = append(out, s.byKind[kind])
	}
	return out
}

func (s *Schematics) Len() int {
	return len(s.order)
}

func (s *Schematics) String() string {
	return fmt.Sprintf("Schematics%v", s.order)
}
