package schematics

import (
	"fmt"

	"gopkg.in/yaml.v3"

	"protoforge/internal/proto"
)

const KindSprite = "sprite"

func init() {
	proto.RegisterSchematic(KindSprite, func(node *yaml.Node) (proto.Schematic, error) {
		var s Sprite
		if err := node.Decode(&s); err != nil {
			return nil, err
		}
		if s.Texture == "" {
			return nil, fmt.Errorf("sprite schematic needs a texture")
		}
		return &s, nil
	})
}

// Sprite records the visual for the node's entity. The texture is stored as
// an asset path; this layer does not load it.
type Sprite struct {
	Texture string `yaml:"texture"`
	Color   string `yaml:"color"`
	FlipX   bool   `yaml:"flip_x"`
	FlipY   bool   `yaml:"flip_y"`
}

func (s *Sprite) Kind() string {
	return KindSprite
}

func (s *Sprite) Apply(ctx proto.SchematicContext) error {
	entity, err := requireEntity(ctx, KindSprite)
	if err != nil {
		return err
	}
	ctx.World().SetComponent(entity, KindSprite, *s)
	return nil
}

func (s *Sprite) Remove(ctx proto.SchematicContext) error {
	entity, err := requireEntity(ctx, KindSprite)
	if err != nil {
		return err
	}
	ctx.World().RemoveComponent(entity, KindSprite)
	return nil
}
