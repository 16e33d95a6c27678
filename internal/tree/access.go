package tree

import (
	"fmt"
	"strconv"
	"strings"
)

type opKind int

const (
	opRoot opKind = iota
	opParent
	opChildAt
	opChildID
	opSiblingAt
	opSiblingID
)

type accessOp struct {
	kind opKind
	id   string
	// n is the index for opChildAt, the offset for opSiblingAt, and the
	// 1-based occurrence for opChildID/opSiblingID. Negative values count
	// from the end (children) or search backward (siblings/occurrences).
	n int
}

// EntityAccess addresses an entity within an EntityTree relative to the
// current cursor node, as a sequence of operations.
//
// Accesses can also be written as path strings with the grammar:
//
//	/            root
//	./           self
//	../          parent
//	@2           child at index 2 (negative counts from the end)
//	foo          first child named "foo"
//	@2:foo       second child named "foo" (negative: from the end)
//	~2           sibling at offset +2 from the current node
//	~foo         first following sibling named "foo"
//	~-1:foo      closest preceding sibling named "foo"
type EntityAccess struct {
	ops []accessOp
}

// Self returns an access that resolves to the current node.
func Self() EntityAccess {
	return EntityAccess{}
}

// Root returns an access that starts from the tree root.
func Root() EntityAccess {
	return EntityAccess{ops: []accessOp{{kind: opRoot}}}
}

func (a EntityAccess) push(op accessOp) EntityAccess {
	ops := make([]accessOp, 0, len(a.ops)+1)
	ops = append(ops, a.ops...)
	return EntityAccess{ops: append(ops, op)}
}

// Parent adds a one-level-up operation.
func (a EntityAccess) Parent() EntityAccess {
	return a.push(accessOp{kind: opParent})
}

// ChildAt adds an access to the i-th immediate child. Negative indices
// count from the end.
func (a EntityAccess) ChildAt(i int) EntityAccess {
	return a.push(accessOp{kind: opChildAt, n: i})
}

// Child adds an access to the first child with the given identifier.
func (a EntityAccess) Child(id string) EntityAccess {
	return a.ChildID(id, 1)
}

// ChildID adds an access to the n-th child (1-based occurrence) with the
// given identifier. A negative occurrence begins the search from the last
// child.
func (a EntityAccess) ChildID(id string, occurrence int) EntityAccess {
	return a.push(accessOp{kind: opChildID, id: id, n: occurrence})
}

// SiblingAt adds an access to the sibling at the given non-zero offset from
// the current node.
func (a EntityAccess) SiblingAt(offset int) EntityAccess {
	return a.push(accessOp{kind: opSiblingAt, n: offset})
}

// Sibling adds an access to the first following sibling with the given
// identifier.
func (a EntityAccess) Sibling(id string) EntityAccess {
	return a.SiblingID(id, 1)
}

// SiblingID adds an access to the n-th occurrence of a sibling with the
// given identifier. The sign of the occurrence determines the search
// direction: negative searches backward from the current node, positive
// searches forward.
func (a EntityAccess) SiblingID(id string, occurrence int) EntityAccess {
	return a.push(accessOp{kind: opSiblingID, id: id, n: occurrence})
}

// Path renders the access as a path string that ParseAccess accepts.
func (a EntityAccess) Path() string {
	rooted := len(a.ops) > 0 && a.ops[0].kind == opRoot

	var parts []string
	for _, op := range a.ops {
		switch op.kind {
		case opRoot:
			// Handled by the prefix.
		case opParent:
			parts = append(parts, "..")
		case opChildAt:
			parts = append(parts, fmt.Sprintf("@%d", op.n))
		case opChildID:
			if op.n == 1 {
				parts = append(parts, op.id)
			} else {
				parts = append(parts, fmt.Sprintf("@%d:%s", op.n, op.id))
			}
		case opSiblingAt:
			parts = append(parts, fmt.Sprintf("~%d", op.n))
		case opSiblingID:
			if op.n == 1 {
				parts = append(parts, "~"+op.id)
			} else {
				parts = append(parts, fmt.Sprintf("~%d:%s", op.n, op.id))
			}
		}
	}

	if rooted {
		return "/" + strings.Join(parts, "/")
	}
	if len(parts) == 0 {
		return "."
	}
	return "./" + strings.Join(parts, "/")
}

func (a EntityAccess) String() string {
	return a.Path()
}

// ParseAccess parses a path string into an EntityAccess.
func ParseAccess(path string) (EntityAccess, error) {
	access := Self()
	if strings.HasPrefix(path, "/") {
		access = Root()
	}

	for _, segment := range strings.Split(path, "/") {
		switch segment {
		case "", ".":
			continue
		case "..":
			access = access.Parent()
			continue
		}

		switch {
		case strings.HasPrefix(segment, "@"):
			rest := segment[1:]
			if occStr, id, ok := strings.Cut(rest, ":"); ok {
				occ, err := parseOccurrence(occStr, segment)
				if err != nil {
					return EntityAccess{}, err
				}
				access = access.ChildID(strings.TrimSpace(id), occ)
			} else {
				index, err := strconv.Atoi(strings.TrimSpace(rest))
				if err != nil {
					return EntityAccess{}, fmt.Errorf("invalid child index in %q: %w", segment, err)
				}
				access = access.ChildAt(index)
			}
		case strings.HasPrefix(segment, "~"):
			rest := segment[1:]
			if occStr, id, ok := strings.Cut(rest, ":"); ok {
				occ, err := parseOccurrence(occStr, segment)
				if err != nil {
					return EntityAccess{}, err
				}
				access = access.SiblingID(strings.TrimSpace(id), occ)
			} else if offset, err := strconv.Atoi(strings.TrimSpace(rest)); err == nil {
				if offset == 0 {
					return EntityAccess{}, fmt.Errorf("sibling offset in %q must be non-zero", segment)
				}
				access = access.SiblingAt(offset)
			} else {
				access = access.SiblingID(strings.TrimSpace(rest), 1)
			}
		default:
			access = access.ChildID(segment, 1)
		}
	}

	return access, nil
}

func parseOccurrence(s, segment string) (int, error) {
	occ, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0, fmt.Errorf("invalid occurrence in %q: %w", segment, err)
	}
	if occ == 0 {
		return 0, fmt.Errorf("occurrence in %q must be non-zero", segment)
	}
	return occ, nil
}
