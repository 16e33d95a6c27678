// Package cycles detects prototype cycles during tree resolution.
//
// A prototype cycle is where a prototype recursively depends on itself,
// either through its template inheritance chain or through its children
// hierarchy. The checker works like a stack: pushing an identifier that is
// already on the ancestry path (or equals the root) produces a Cycle.
package cycles

import "protoforge/internal/proto"

// NodeKind tags how an identifier was reached. The kind affects only
// diagnostic messages, never equality.
type NodeKind int

const (
	// KindTemplate marks a node reached via template inheritance.
	KindTemplate NodeKind = iota
	// KindChild marks a node reached via containment.
	KindChild
)

// Node is one entry on the ancestry stack.
type Node struct {
	Kind NodeKind
	ID   proto.ID
}

// Template is shorthand for an inheritance node.
func Template(id proto.ID) Node {
	return Node{Kind: KindTemplate, ID: id}
}

// Child is shorthand for a containment node.
func Child(id proto.ID) Node {
	return Node{Kind: KindChild, ID: id}
}

// Checker is an ancestry stack keyed by prototype identifier. One checker is
// local to one build call and is shared by the inheritance and containment
// descent of that call.
type Checker struct {
	root     proto.ID
	ancestry []Node
	index    map[proto.ID]int
}

// NewChecker returns a checker with an empty ancestry stack rooted at the
// given identifier.
func NewChecker(root proto.ID) *Checker {
	return &Checker{
		root:  root,
		index: make(map[proto.ID]int),
	}
}

// TryPush records the node on the stack and returns nil, unless the node's
// identifier equals the root or already exists anywhere on the stack, in
// which case the stack is left untouched and the resulting Cycle is
// returned. Callers must call Pop exactly once for every successful push,
// including along error paths.
func (c *Checker) TryPush(node Node) *Cycle {
	if node.ID == c.root {
		return c.newCycle(node, -1)
	}
	if start, ok := c.index[node.ID]; ok {
		return c.newCycle(node, start)
	}
	c.index[node.ID] = len(c.ancestry)
	c.ancestry = append(c.ancestry, node)
	return nil
}

// Pop removes the most recently pushed node.
func (c *Checker) Pop() {
	if len(c.ancestry) == 0 {
		return
	}
	last := c.ancestry[len(c.ancestry)-1]
	c.ancestry = c.ancestry[:len(c.ancestry)-1]
	delete(c.index, last.ID)
}

// Depth returns the number of nodes currently on the stack.
func (c *Checker) Depth() int {
	return len(c.ancestry)
}

func (c *Checker) newCycle(curr Node, start int) *Cycle {
	// The ancestry is copied so the diagnostic stays valid after the
	// build call unwinds.
	ancestry := make([]Node, len(c.ancestry))
	copy(ancestry, c.ancestry)
	return &Cycle{
		curr:       curr,
		startIndex: start,
		root:       c.root,
		ancestry:   ancestry,
	}
}
