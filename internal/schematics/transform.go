package schematics

import (
	"gopkg.in/yaml.v3"

	"protoforge/internal/proto"
)

const KindTransform = "transform"

func init() {
	proto.RegisterSchematic(KindTransform, func(node *yaml.Node) (proto.Schematic, error) {
		t := Transform{Scale: [3]float64{1, 1, 1}}
		if err := node.Decode(&t); err != nil {
			return nil, err
		}
		return &t, nil
	})
}

// Transform places the node's entity in space.
type Transform struct {
	Translation [3]float64 `yaml:"translation"`
	Rotation    float64    `yaml:"rotation"`
	Scale       [3]float64 `yaml:"scale"`
}

func (t *Transform) Kind() string {
	return KindTransform
}

func (t *Transform) Apply(ctx proto.SchematicContext) error {
	entity, err := requireEntity(ctx, KindTransform)
	if err != nil {
		return err
	}
	ctx.World().SetComponent(entity, KindTransform, *t)
	return nil
}

func (t *Transform) Remove(ctx proto.SchematicContext) error {
	entity, err := requireEntity(ctx, KindTransform)
	if err != nil {
		return err
	}
	ctx.World().RemoveComponent(entity, KindTransform)
	return nil
}
