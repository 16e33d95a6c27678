// Package proto defines the raw prototype data model: identifiers, handles,
// children, and the parsed prototype value produced by the loader. Everything
// downstream (tree resolution, registration, realization) consumes these
// types and never re-parses source documents.
package proto

import (
	"fmt"

	"github.com/google/uuid"
)

// ID uniquely names one prototype within the universe of loaded prototypes.
// IDs are authored in the prototype document and are independent of the file
// the prototype was loaded from.
type ID string

func (id ID) String() string {
	return string(id)
}

// handleNamespace is the UUID namespace for path-derived handles.
var handleNamespace = uuid.MustParse("6ba7b811-9dad-11d1-80b4-00c04fd430c8")

// Handle is an opaque reference to a loaded prototype's storage slot.
// Handles are distinct from IDs: many handles may resolve to the same ID,
// but only one handle may be registered as canonical for an ID at a time.
type Handle struct {
	uid uuid.UUID
}

// HandleFromPath mints a deterministic handle for a source path. Loading the
// same path twice yields the same handle, which is what makes hot reload a
// re-registration instead of a duplicate.
func HandleFromPath(path string) Handle {
	return Handle{uid: uuid.NewSHA1(handleNamespace, []byte(path))}
}

// NewHandle mints a fresh random handle, used for prototypes that are built
// in memory rather than loaded from a path.
func NewHandle() Handle {
	return Handle{uid: uuid.New()}
}

// IsZero reports whether h is the zero handle.
func (h Handle) IsZero() bool {
	return h.uid == uuid.Nil
}

func (h Handle) String() string {
	s := h.uid.String()
	return s[:8]
}

// Child pairs a child prototype reference with an optional merge key.
// An empty merge key means the child is never unified with another.
type Child struct {
	MergeKey string
	Handle   Handle
}

// Prototype is the raw, parsed form of one prototype document.
//
// Template handles are stored in insertion order; they are applied in
// reverse insertion order so later-inserted templates take priority.
type Prototype struct {
	ID             ID
	Path           string
	Templates      []Handle
	Children       []Child
	RequiresEntity bool
	Schematics     *Schematics
}

// MissingError indicates that a referenced handle does not resolve to a
// loaded prototype.
type MissingError struct {
	Handle Handle
}

func (e *MissingError) Error() string {
	return fmt.Sprintf("prototype with handle %s either does not exist or is not fully loaded", e.Handle)
}
