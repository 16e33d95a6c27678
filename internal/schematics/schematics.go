// Package schematics provides the built-in schematic set. Each schematic
// decodes from the YAML payload of one prototype document entry and knows
// how to apply and remove itself against a world entity. Decoders are
// registered in the shared codec table at init, keyed by the type tag used
// in documents.
package schematics

import (
	"fmt"

	"github.com/google/uuid"

	"protoforge/internal/proto"
)

// requireEntity fetches the current node's entity, failing with a uniform
// error when the node did not materialize one.
func requireEntity(ctx proto.SchematicContext, kind string) (uuid.UUID, error) {
	entity, ok := ctx.Entity()
	if !ok {
		return uuid.Nil, fmt.Errorf("%s schematic requires an entity", kind)
	}
	return entity, nil
}
