package cycles

import (
	"fmt"
	"strings"

	"protoforge/internal/proto"
)

// Cycle describes a detected prototype cycle: the offending node, the root
// of the build that found it, and the full ancestry path that led to it.
type Cycle struct {
	curr Node
	// startIndex is the ancestry index where the repeated identifier was
	// first seen, or -1 when the identifier matched the root.
	startIndex int
	root       proto.ID
	ancestry   []Node
}

// ID returns the identifier that caused the cycle to be detected. The
// "start" of a cycle is not well-defined; any identifier within it could be
// considered the start.
func (c *Cycle) ID() proto.ID {
	return c.curr.ID
}

func (c *Cycle) start() int {
	if c.startIndex < 0 {
		return 0
	}
	return c.startIndex
}

// CycleContains reports whether the identifier lies strictly within the
// cyclic portion of the path.
func (c *Cycle) CycleContains(id proto.ID) bool {
	if c.curr.ID == id || c.root == id {
		return true
	}
	for i := c.start(); i < len(c.ancestry); i++ {
		if c.ancestry[i].ID == id {
			return true
		}
	}
	return false
}

// Contains reports whether the identifier appears anywhere in the ancestry,
// including the acyclic prefix.
func (c *Cycle) Contains(id proto.ID) bool {
	if c.curr.ID == id || c.root == id {
		return true
	}
	for _, node := range c.ancestry {
		if node.ID == id {
			return true
		}
	}
	return false
}

// IterCycle returns just the cyclic identifiers, in traversal order.
func (c *Cycle) IterCycle() []proto.ID {
	ids := make([]proto.ID, 0, len(c.ancestry)-c.start()+1)
	for i := c.start(); i < len(c.ancestry); i++ {
		ids = append(ids, c.ancestry[i].ID)
	}
	return append(ids, c.curr.ID)
}

// IterFull returns the complete root-to-cycle path, in traversal order.
func (c *Cycle) IterFull() []proto.ID {
	ids := make([]proto.ID, 0, len(c.ancestry)+2)
	ids = append(ids, c.root)
	for _, node := range c.ancestry {
		ids = append(ids, node.ID)
	}
	return append(ids, c.curr.ID)
}

// String renders the cycle as a human-readable chain, e.g.
//
//	"A" inherits "B" which contains "C" which inherits "A"
func (c *Cycle) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%q", string(c.root))

	nodes := append(append([]Node{}, c.ancestry[c.start():]...), c.curr)
	for i, node := range nodes {
		verb := "inherits"
		if node.Kind == KindChild {
			verb = "contains"
		}
		if i == 0 {
			fmt.Fprintf(&b, " %s %q", verb, string(node.ID))
		} else {
			fmt.Fprintf(&b, " which %s %q", verb, string(node.ID))
		}
	}
	return b.String()
}
