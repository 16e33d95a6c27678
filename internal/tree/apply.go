package tree

import (
	"fmt"

	"github.com/google/uuid"

	"protoforge/internal/logging"
	"protoforge/internal/proto"
	"protoforge/internal/world"
)

// applyContext implements proto.SchematicContext for one application pass.
// Relative paths resolve against the tree's cursor, which Apply/Remove move
// node by node.
type applyContext struct {
	tree  *EntityTree
	world *world.World
}

func (c *applyContext) Entity() (uuid.UUID, bool) {
	return c.tree.Current().Entity()
}

func (c *applyContext) FindEntity(path string) (uuid.UUID, bool) {
	access, err := ParseAccess(path)
	if err != nil {
		logging.Get(logging.CategoryApply).Warnf("bad entity path %q: %v", path, err)
		return uuid.Nil, false
	}
	return c.tree.FindEntity(access)
}

func (c *applyContext) World() proto.EntityMutator {
	return c.world
}

// Apply walks the realized tree breadth-first and applies every schematic
// of every node. Within a node the prototype handle set is applied
// back-to-front, so the most-distant base template is applied first and the
// node's own prototype last, letting the closest definition win.
func (t *EntityTree) Apply(store proto.Store, w *world.World) error {
	return t.forEachSchematic(store, w, true)
}

// Remove walks the realized tree the same way Apply does and invokes each
// schematic's Remove instead.
func (t *EntityTree) Remove(store proto.Store, w *world.World) error {
	return t.forEachSchematic(store, w, false)
}

func (t *EntityTree) forEachSchematic(store proto.Store, w *world.World, apply bool) error {
	ctx := &applyContext{tree: t, world: w}

	for _, node := range t.nodes {
		t.SetCurrent(node)

		prototypes := node.Prototypes()
		for i := len(prototypes) - 1; i >= 0; i-- {
			handle := prototypes[i]
			p, ok := store.Get(handle)
			if !ok {
				return &proto.MissingError{Handle: handle}
			}
			if p.Schematics == nil {
				continue
			}

			for _, sch := range p.Schematics.All() {
				var err error
				if apply {
					err = sch.Apply(ctx)
				} else {
					err = sch.Remove(ctx)
				}
				if err != nil {
					return fmt.Errorf("schematic %q of prototype %q: %w", sch.Kind(), string(p.ID), err)
				}
			}
		}
	}
	return nil
}
