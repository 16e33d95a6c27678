package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Load and register every prototype document, reporting failures",
	Long: `Walks the prototype root, validates every document against the schema,
resolves the full graph, and reports anything that fails to load or
register (missing references, identifier collisions, cycles).`,
	RunE: runValidate,
}

func runValidate(cmd *cobra.Command, args []string) error {
	store, reg, loader, err := newSession()
	if err != nil {
		return err
	}

	loadErr := loader.LoadAll(cmd.Context())

	fmt.Printf("parsed:  %d prototypes\n", store.Len())
	fmt.Printf("queued:  %d awaiting registration\n", reg.Queue().Len())
	if loadErr != nil {
		return fmt.Errorf("validation failed:\n%w", loadErr)
	}

	fmt.Println("ok")
	return nil
}
