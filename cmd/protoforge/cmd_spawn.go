package main

import (
	"fmt"
	"sort"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"protoforge/internal/proto"
	"protoforge/internal/tree"
	"protoforge/internal/world"
)

var spawnCmd = &cobra.Command{
	Use:   "spawn [id]",
	Short: "Realize a prototype into a fresh world and apply its schematics",
	Long: `Resolves the prototype, spawns an entity for every node that requires
one, applies all schematics (base templates first, the node's own last), and
prints the resulting entities with their components.`,
	Args: cobra.ExactArgs(1),
	RunE: runSpawn,
}

func runSpawn(cmd *cobra.Command, args []string) error {
	store, reg, loader, err := newSession()
	if err != nil {
		return err
	}
	if err := loader.LoadAll(cmd.Context()); err != nil {
		return err
	}

	id := proto.ID(args[0])
	t, ok := reg.TreeByID(id)
	if !ok {
		return fmt.Errorf("no registered prototype with id %q", args[0])
	}

	w := world.New()
	root := uuid.Nil
	if t.RequiresEntity() {
		root = w.Spawn()
	}

	et := tree.New(t, root, w)
	if err := et.Apply(store, w); err != nil {
		return err
	}

	printEntities(et, w)
	return nil
}

func printEntities(et *tree.EntityTree, w *world.World) {
	for _, node := range et.Nodes() {
		entity, ok := node.Entity()
		if !ok {
			fmt.Printf("%s (no entity)\n", node.ID())
			continue
		}

		components := w.Components(entity)
		keys := make([]string, 0, len(components))
		for k := range components {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		fmt.Printf("%s [%s]\n", node.ID(), entity)
		for _, k := range keys {
			fmt.Printf("  %s: %v\n", k, components[k])
		}
	}
}
