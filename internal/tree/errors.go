package tree

import (
	"fmt"

	"protoforge/internal/cycles"
	"protoforge/internal/proto"
)

// CycleError is returned when a build finds a prototype cycle and the
// policy does not allow skipping it.
type CycleError struct {
	Cycle *cycles.Cycle
	// Fatal marks the error as the result of an escalate response:
	// the host should treat the condition as unrecoverable.
	Fatal bool
}

func (e *CycleError) Error() string {
	return fmt.Sprintf("found prototype cycle: `%s`", e.Cycle)
}

// RequiresEntityError is returned when a resolved node does not require an
// instance yet has resolved children: a node that does not materialize
// cannot own children.
type RequiresEntityError struct {
	ID proto.ID
}

func (e *RequiresEntityError) Error() string {
	return fmt.Sprintf("prototype %q has children but does not require an entity", string(e.ID))
}
