package main

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"protoforge/internal/proto"
	"protoforge/internal/tree"
	"protoforge/internal/world"
)

var removeCmd = &cobra.Command{
	Use:   "remove [id]",
	Short: "Apply and then remove a prototype's schematics, reporting leftovers",
	Long: `Dry-runs the schematic lifecycle: realizes the prototype, applies every
schematic, then removes them all. Components still present afterwards point
at schematics whose Remove does not undo their Apply.`,
	Args: cobra.ExactArgs(1),
	RunE: runRemove,
}

func runRemove(cmd *cobra.Command, args []string) error {
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
	if err := et.Remove(store, w); err != nil {
		return err
	}

	leftovers := 0
	for _, node := range et.Nodes() {
		entity, ok := node.Entity()
		if !ok {
			continue
		}
		for key := range w.Components(entity) {
			fmt.Printf("leftover: %s on %s\n", key, node.ID())
			leftovers++
		}
	}
	if leftovers == 0 {
		fmt.Println("clean: every schematic removed its components")
	}
	return nil
}
