package schematics

import (
	"gopkg.in/yaml.v3"

	"protoforge/internal/proto"
)

const KindTags = "tags"

func init() {
	proto.RegisterSchematic(KindTags, func(node *yaml.Node) (proto.Schematic, error) {
		var t Tags
		if err := node.Decode(&t.Values); err != nil {
			return nil, err
		}
		return &t, nil
	})
}

// Tags attaches a tag list to the node's entity. Application merges with
// tags already present (a template's tags survive unless the node removes
// the whole schematic), deduplicating while preserving first-seen order.
type Tags struct {
	Values []string
}

func (t *Tags) Kind() string {
	return KindTags
}

func (t *Tags) Apply(ctx proto.SchematicContext) error {
	entity, err := requireEntity(ctx, KindTags)
	if err != nil {
		return err
	}

	existing, _ := ctx.World().Component(entity, KindTags)
	merged, seen := []string{}, map[string]struct{}{}
	if prior, ok := existing.([]string); ok {
		for _, tag := range prior {
			if _, dup := seen[tag]; !dup {
				seen[tag] = struct{}{}
				merged = append(merged, tag)
			}
		}
	}
	for _, tag := range t.Values {
		if _, dup := seen[tag]; !dup {
			seen[tag] = struct{}{}
			merged = append(merged, tag)
		}
	}

	ctx.World().SetComponent(entity, KindTags, merged)
	return nil
}

func (t *Tags) Remove(ctx proto.SchematicContext) error {
	entity, err := requireEntity(ctx, KindTags)
	if err != nil {
		return err
	}
	ctx.World().RemoveComponent(entity, KindTags)
	return nil
}
