package schematics

import (
	"fmt"

	"gopkg.in/yaml.v3"

	"protoforge/internal/proto"
)

const KindRelation = "relation"

func init() {
	proto.RegisterSchematic(KindRelation, func(node *yaml.Node) (proto.Schematic, error) {
		var r Relation
		if err := node.Decode(&r); err != nil {
			return nil, err
		}
		if r.Name == "" || r.Target == "" {
			return nil, fmt.Errorf("relation schematic needs a name and a target path")
		}
		return &r, nil
	})
}

// Relation links the node's entity to another entity in the realized tree,
// addressed by an access path resolved relative to this node at apply time
// (e.g. "../turret" or "/engine"). When the target is required, its absence
// is an authoring error; otherwise the relation is simply skipped.
type Relation struct {
	Name     string `yaml:"name"`
	Target   string `yaml:"target"`
	Required bool   `yaml:"required"`
}

func (r *Relation) Kind() string {
	return KindRelation
}

func (r *Relation) componentKey() string {
	return KindRelation + ":" + r.Name
}

func (r *Relation) Apply(ctx proto.SchematicContext) error {
	entity, err := requireEntity(ctx, KindRelation)
	if err != nil {
		return err
	}

	target, ok := ctx.FindEntity(r.Target)
	if !ok {
		if r.Required {
			return fmt.Errorf("entity should exist at path %q", r.Target)
		}
		return nil
	}

	ctx.World().SetComponent(entity, r.componentKey(), target)
	return nil
}

func (r *Relation) Remove(ctx proto.SchematicContext) error {
	entity, err := requireEntity(ctx, KindRelation)
	if err != nil {
		return err
	}
	ctx.World().RemoveComponent(entity, r.componentKey())
	return nil
}
