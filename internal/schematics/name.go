package schematics

import (
	"gopkg.in/yaml.v3"

	"protoforge/internal/proto"
)

const KindName = "name"

func init() {
	proto.RegisterSchematic(KindName, func(node *yaml.Node) (proto.Schematic, error) {
		var n Name
		if err := node.Decode(&n.Value); err != nil {
			return nil, err
		}
		return &n, nil
	})
}

// Name attaches a display name to the node's entity.
type Name struct {
	Value string
}

func (n *Name) Kind() string {
	return KindName
}

func (n *Name) Apply(ctx proto.SchematicContext) error {
	entity, err := requireEntity(ctx, KindName)
	if err != nil {
		return err
	}
	ctx.World().SetComponent(entity, KindName, n.Value)
	return nil
}

func (n *Name) Remove(ctx proto.SchematicContext) error {
	entity, err := requireEntity(ctx, KindName)
	if err != nil {
		return err
	}
	ctx.World().RemoveComponent(entity, KindName)
	return nil
}
