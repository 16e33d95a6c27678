// Package tree implements the prototype resolution core: building a
// cycle-free, inheritance-flattened ProtoTree from the raw prototype graph,
// and realizing a ProtoTree into concrete world entities (EntityTree).
package tree

import (
	"fmt"
	"strings"

	"protoforge/internal/proto"
)

// ProtoTree is the resolved, immutable-after-build representation of one
// prototype: its inheritance-flattened prototype handle set, whether it
// needs a concrete instance, and its merge-unified children.
type ProtoTree struct {
	id     proto.ID
	handle proto.Handle

	// prototypes holds the inheritance chain in reverse-application order:
	// this prototype's own handle first, inherited handles appended after.
	// Application iterates it back-to-front so the closest override wins.
	prototypes []proto.Handle
	protoSet   map[proto.Handle]struct{}

	// mergeKey is the key this tree was built under, when it was built as a
	// merge-keyed child. Empty means none.
	mergeKey string

	requiresEntity bool

	children  []*ProtoTree
	mergeKeys map[string]int
}

func newProtoTree(handle proto.Handle, mergeKey string, p *proto.Prototype) *ProtoTree {
	return &ProtoTree{
		id:             p.ID,
		handle:         handle,
		prototypes:     []proto.Handle{handle},
		protoSet:       map[proto.Handle]struct{}{handle: {}},
		mergeKey:       mergeKey,
		requiresEntity: p.RequiresEntity,
		mergeKeys:      make(map[string]int),
	}
}

// ID returns the identifier of the prototype this tree resolves.
func (t *ProtoTree) ID() proto.ID {
	return t.id
}

// Handle returns the handle this tree was built for.
func (t *ProtoTree) Handle() proto.Handle {
	return t.handle
}

// Prototypes returns the prototype handle set in reverse-application order
// (self first, most-distant base last).
func (t *ProtoTree) Prototypes() []proto.Handle {
	return t.prototypes
}

// RequiresEntity reports whether this node (or anything it inherits)
// requires a concrete instance.
func (t *ProtoTree) RequiresEntity() bool {
	return t.requiresEntity
}

// Children returns the resolved, merge-unified children.
func (t *ProtoTree) Children() []*ProtoTree {
	return t.children
}

// MergeKey returns the merge key this tree was built under, if any.
func (t *ProtoTree) MergeKey() (string, bool) {
	return t.mergeKey, t.mergeKey != ""
}

// appendChild adds tree as a resolved child, unifying it with an existing
// child that shares its merge key. The first occurrence of a key
// establishes the child's position; later same-key children are inherited
// into that slot instead of appended.
func (t *ProtoTree) appendChild(tree *ProtoTree) {
	if tree.mergeKey != "" {
		if index, ok := t.mergeKeys[tree.mergeKey]; ok {
			t.children[index].inherit(tree)
			return
		}
		t.mergeKeys[tree.mergeKey] = len(t.children)
	}
	t.children = append(t.children, tree)
}

// inherit merges a template's resolved tree into this one: union-inserts
// the template's prototype handles (preserving this tree's relative order,
// so its own handle stays ahead of anything inherited), ORs requiresEntity,
// and appends the template's children under merge-key unification.
func (t *ProtoTree) inherit(other *ProtoTree) {
	for _, h := range other.prototypes {
		if _, ok := t.protoSet[h]; ok {
			continue
		}
		t.protoSet[h] = struct{}{}
		t.prototypes = append(t.prototypes, h)
	}

	t.requiresEntity = t.requiresEntity || other.requiresEntity

	for _, child := range other.children {
		t.appendChild(child)
	}
}

// Clone duplicates the tree. The prototype set and child list are copied
// (children recursively), so a clone can be merged or extended without
// aliasing the cached original.
func (t *ProtoTree) Clone() *ProtoTree {
	prototypes := make([]proto.Handle, len(t.prototypes))
	copy(prototypes, t.prototypes)

	protoSet := make(map[proto.Handle]struct{}, len(t.protoSet))
	for h := range t.protoSet {
		protoSet[h] = struct{}{}
	}

	children := make([]*ProtoTree, len(t.children))
	for i, child := range t.children {
		children[i] = child.Clone()
	}

	mergeKeys := make(map[string]int, len(t.mergeKeys))
	for k, v := range t.mergeKeys {
		mergeKeys[k] = v
	}

	return &ProtoTree{
		id:             t.id,
		handle:         t.handle,
		prototypes:     prototypes,
		protoSet:       protoSet,
		mergeKey:       t.mergeKey,
		requiresEntity: t.requiresEntity,
		children:       children,
		mergeKeys:      mergeKeys,
	}
}

func (t *ProtoTree) String() string {
	var b strings.Builder
	t.write(&b, 0)
	return b.String()
}

func (t *ProtoTree) write(b *strings.Builder, depth int) {
	indent := strings.Repeat("  ", depth)
	fmt.Fprintf(b, "%s%s (handles=%d entity=%v)\n", indent, t.id, len(t.prototypes), t.requiresEntity)
	for _, child := range t.children {
		child.write(b, depth+1)
	}
}
