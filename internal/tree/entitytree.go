package tree

import (
	"fmt"
	"strings"

	"github.com/google/uuid"

	"protoforge/internal/logging"
	"protoforge/internal/proto"
	"protoforge/internal/world"
)

// Node is one realized node of an EntityTree: the prototype identifier and
// handle set of the ProtoTree node it mirrors, plus the world entity spawned
// for it (if it required one).
type Node struct {
	id         string
	index      int
	entity     uuid.UUID
	hasEntity  bool
	prototypes []proto.Handle
}

// ID returns the prototype identifier of the node.
func (n *Node) ID() string {
	return n.id
}

// Entity returns the world entity realized for this node, if it required
// one.
func (n *Node) Entity() (uuid.UUID, bool) {
	return n.entity, n.hasEntity
}

// Prototypes returns the node's prototype handle set in reverse-application
// order (self first). Application walks it back-to-front.
func (n *Node) Prototypes() []proto.Handle {
	return n.prototypes
}

// childSet indexes the children of one node: node index per sibling
// position, plus an identifier index for occurrence lookups.
type childSet struct {
	nodes []int
	byID  map[string][]int
}

func (c *childSet) insert(nodeIndex int, id string) int {
	if c.byID == nil {
		c.byID = make(map[string][]int)
	}
	position := len(c.nodes)
	c.nodes = append(c.nodes, nodeIndex)
	c.byID[id] = append(c.byID[id], position)
	return position
}

// at returns the node index at the given sibling position. Negative
// positions count from the end.
func (c *childSet) at(i int) (int, bool) {
	if i < 0 {
		i += len(c.nodes)
	}
	if i < 0 || i >= len(c.nodes) {
		return 0, false
	}
	return c.nodes[i], true
}

// byOccurrence finds the occurrence-th child with the given identifier
// whose sibling position lies within [start, end] (either order). When
// start > end the positions are scanned backward.
func (c *childSet) byOccurrence(id string, start, end, occurrence int) (int, bool) {
	positions, ok := c.byID[id]
	if !ok || occurrence <= 0 {
		return 0, false
	}

	lo, hi := start, end
	if lo > hi {
		lo, hi = hi, lo
	}

	visit := func(position int) (int, bool) {
		if position < lo || position > hi {
			return 0, false
		}
		occurrence--
		if occurrence == 0 {
			return c.nodes[position], true
		}
		return 0, false
	}

	if start <= end {
		for _, position := range positions {
			if node, done := visit(position); done {
				return node, true
			}
		}
	} else {
		for i := len(positions) - 1; i >= 0; i-- {
			if node, done := visit(positions[i]); done {
				return node, true
			}
		}
	}
	return 0, false
}

// position returns the sibling position of the given node index.
func (c *childSet) position(nodeIndex int) (int, bool) {
	for i, n := range c.nodes {
		if n == nodeIndex {
			return i, true
		}
	}
	return 0, false
}

// EntityTree is a realized ProtoTree: every node that requires an entity is
// backed by a live world entity, reusing entities spawned by earlier
// realizations of the same tree. It carries a cursor ("current node") that
// application moves as it walks the tree, so relative accesses resolve
// against the node whose schematics are being applied.
//
// An EntityTree is not safe for concurrent use; one realization or
// application pass owns it at a time.
type EntityTree struct {
	nodes    []*Node
	parents  map[int]int
	children map[int]*childSet
	current  int
}

// New realizes a resolved ProtoTree against the world, breadth-first.
// root is the entity backing the tree root; pass uuid.Nil when the root
// prototype does not require an entity. A node whose subtree requires an
// entity is spawned with an instance marker, or reuses the parent's
// existing child carrying the same marker.
func New(t *ProtoTree, root uuid.UUID, w *world.World) *EntityTree {
	et := &EntityTree{
		nodes:    make([]*Node, 0, 8),
		parents:  make(map[int]int),
		children: make(map[int]*childSet),
	}

	et.nodes = append(et.nodes, &Node{
		id:         string(t.ID()),
		index:      0,
		entity:     root,
		hasEntity:  root != uuid.Nil,
		prototypes: t.Prototypes(),
	})

	type frame struct {
		index int
		tree  *ProtoTree
	}
	queue := []frame{{index: 0, tree: t}}

	for len(queue) > 0 {
		f := queue[0]
		queue = queue[1:]
		parent := et.nodes[f.index]

		for _, child := range f.tree.Children() {
			index := len(et.nodes)
			set := et.children[f.index]
			if set == nil {
				set = &childSet{}
				et.children[f.index] = set
			}
			position := set.insert(index, string(child.ID()))
			et.parents[index] = f.index

			node := &Node{
				id:         string(child.ID()),
				index:      index,
				prototypes: child.Prototypes(),
			}
			if child.RequiresEntity() {
				node.entity = realizeEntity(w, parent, world.Instance{
					Handle:     child.Handle(),
					ChildIndex: position,
				})
				node.hasEntity = true
			}

			et.nodes = append(et.nodes, node)
			queue = append(queue, frame{index: index, tree: child})
		}
	}

	logging.Get(logging.CategoryWorld).Debugf("realized tree %q (%d nodes)", string(t.ID()), len(et.nodes))
	return et
}

// realizeEntity spawns the entity for an instance slot, or returns the
// parent's existing child that already carries the marker.
func realizeEntity(w *world.World, parent *Node, inst world.Instance) uuid.UUID {
	if parent.hasEntity {
		if existing, ok := w.FindInstance(parent.entity, inst); ok {
			return existing
		}
	}
	entity := w.SpawnInstance(inst)
	if parent.hasEntity {
		w.AddChild(parent.entity, entity)
	}
	return entity
}

// Root returns the root node.
func (t *EntityTree) Root() *Node {
	return t.nodes[0]
}

// Current returns the cursor node relative accesses resolve against.
func (t *EntityTree) Current() *Node {
	return t.nodes[t.current]
}

// SetCurrent moves the cursor.
func (t *EntityTree) SetCurrent(n *Node) {
	t.current = n.index
}

// Len returns the number of nodes.
func (t *EntityTree) Len() int {
	return len(t.nodes)
}

// Nodes returns all nodes in breadth-first order.
func (t *EntityTree) Nodes() []*Node {
	return t.nodes
}

// Get resolves an access relative to the current node.
func (t *EntityTree) Get(access EntityAccess) (*Node, bool) {
	index := t.current
	for _, op := range access.ops {
		var ok bool
		index, ok = t.step(index, op)
		if !ok {
			return nil, false
		}
	}
	return t.nodes[index], true
}

func (t *EntityTree) step(index int, op accessOp) (int, bool) {
	switch op.kind {
	case opRoot:
		return 0, true

	case opParent:
		parent, ok := t.parents[index]
		return parent, ok

	case opChildAt:
		set := t.children[index]
		if set == nil {
			return 0, false
		}
		return set.at(op.n)

	case opChildID:
		set := t.children[index]
		if set == nil {
			return 0, false
		}
		last := len(set.nodes) - 1
		start, end := 0, last
		if op.n < 0 {
			start, end = last, 0
		}
		return set.byOccurrence(op.id, start, end, abs(op.n))

	case opSiblingAt:
		set, position, ok := t.siblings(index)
		if !ok {
			return 0, false
		}
		return set.at(position + op.n)

	case opSiblingID:
		set, position, ok := t.siblings(index)
		if !ok {
			return 0, false
		}
		var start, end int
		if op.n < 0 {
			start = max(position-1, 0)
			end = 0
		} else {
			start = position + 1
			end = len(set.nodes) - 1
		}
		return set.byOccurrence(op.id, start, end, abs(op.n))

	default:
		return 0, false
	}
}

func (t *EntityTree) siblings(index int) (*childSet, int, bool) {
	parent, ok := t.parents[index]
	if !ok {
		return nil, 0, false
	}
	set := t.children[parent]
	if set == nil {
		return nil, 0, false
	}
	position, ok := set.position(index)
	if !ok {
		return nil, 0, false
	}
	return set, position, true
}

// FindEntity resolves an access to the world entity backing the target
// node. It reports false when the access does not resolve or the target
// node did not require an entity.
func (t *EntityTree) FindEntity(access EntityAccess) (uuid.UUID, bool) {
	node, ok := t.Get(access)
	if !ok || !node.hasEntity {
		return uuid.Nil, false
	}
	return node.entity, true
}

func (t *EntityTree) String() string {
	var b strings.Builder
	t.write(&b, 0, 0)
	return b.String()
}

func (t *EntityTree) write(b *strings.Builder, index, depth int) {
	node := t.nodes[index]
	entity := "-"
	if node.hasEntity {
		entity = node.entity.String()[:8]
	}
	fmt.Fprintf(b, "%s%s [%s]\n", strings.Repeat("  ", depth), node.id, entity)
	if set := t.children[index]; set != nil {
		for _, child := range set.nodes {
			t.write(b, child, depth+1)
		}
	}
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
